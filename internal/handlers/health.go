package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/carewell/medfeedback/backend/internal/models"
	"github.com/carewell/medfeedback/backend/internal/services"
)

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	hub *services.EventHub
}

func NewHealthHandler(hub *services.EventHub) *HealthHandler {
	return &HealthHandler{hub: hub}
}

// CheckHealth returns the health status of all subsystems.
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"

	// Database check
	dbStatus := "ok"
	sqlDB, err := models.GetDB().DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	} else if err := sqlDB.Ping(); err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	}

	// Queue mode
	taskQueue := services.GetTaskQueue()
	queueMode := "sync"
	if taskQueue != nil && taskQueue.IsAsync() {
		queueMode = "async (Redis)"
	}

	// Feedback still waiting on analysis
	var pendingCount int64
	models.GetDB().Model(&models.Feedback{}).
		Where("status = ?", models.StatusPendingAnalysis).
		Count(&pendingCount)

	c.JSON(200, gin.H{
		"status":  overall,
		"service": "medfeedback",
		"components": gin.H{
			"database":         dbStatus,
			"queue_mode":       queueMode,
			"sse_clients":      h.hub.ClientCount(),
			"pending_analysis": pendingCount,
		},
	})
}
