package handlers

import (
	"strconv"

	"github.com/carewell/medfeedback/backend/internal/services"
	"github.com/carewell/medfeedback/backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type AnalyticsHandler struct {
	analytics *services.AnalyticsService
}

func NewAnalyticsHandler(analytics *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Summary returns dashboard aggregates
// GET /api/analytics/summary
func (h *AnalyticsHandler) Summary(c *gin.Context) {
	summary, err := h.analytics.Summary()
	if err != nil {
		response.ServerError(c, "failed to compute summary")
		return
	}
	response.Success(c, summary)
}

// Trends returns daily submission volume
// GET /api/analytics/trends?days=7
func (h *AnalyticsHandler) Trends(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))

	points, err := h.analytics.Trends(days)
	if err != nil {
		response.ServerError(c, "failed to compute trends")
		return
	}
	response.Success(c, points)
}

// Departments returns per-department performance
// GET /api/analytics/departments
func (h *AnalyticsHandler) Departments(c *gin.Context) {
	stats, err := h.analytics.DepartmentPerformance()
	if err != nil {
		response.ServerError(c, "failed to compute department stats")
		return
	}
	response.Success(c, stats)
}
