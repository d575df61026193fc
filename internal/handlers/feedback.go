package handlers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/carewell/medfeedback/backend/internal/models"
	"github.com/carewell/medfeedback/backend/internal/services"
	"github.com/carewell/medfeedback/backend/pkg/logger"
	"github.com/carewell/medfeedback/backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type FeedbackHandler struct {
	feedbackService *services.FeedbackService
	enrichment      *services.EnrichmentService
	notifier        services.Notifier
}

func NewFeedbackHandler(feedbackService *services.FeedbackService, enrichment *services.EnrichmentService, notifier services.Notifier) *FeedbackHandler {
	return &FeedbackHandler{
		feedbackService: feedbackService,
		enrichment:      enrichment,
		notifier:        notifier,
	}
}

// Create handles patient feedback submission
// POST /api/feedback
func (h *FeedbackHandler) Create(c *gin.Context) {
	var input services.CreateFeedbackInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	fb, err := h.feedbackService.Create(&input)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			response.BadRequest(c, err.Error())
			return
		}
		response.ServerError(c, "failed to save feedback")
		return
	}

	h.notifier.NotifyNewFeedback(fb)

	if err := h.enrichment.EnrichAsync(fb.ID); err != nil {
		// The record stays in pending_analysis; the retry sweep or a manual
		// trigger picks it up later.
		logger.Errorf("[Feedback] Failed to enqueue analysis for feedback %d: %v", fb.ID, err)
	}

	response.Created(c, fb)
}

// List returns a filtered, paginated feedback listing
// GET /api/feedback
func (h *FeedbackHandler) List(c *gin.Context) {
	filter := &services.FeedbackFilter{
		Status:     c.Query("status"),
		Department: c.Query("department"),
		Sentiment:  c.Query("sentiment"),
		Urgency:    c.Query("urgency"),
		Category:   c.Query("category"),
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	if filter.Status != "" && !services.ValidStatus(filter.Status) {
		response.BadRequest(c, fmt.Sprintf("unknown status %q", filter.Status))
		return
	}

	if from := c.Query("date_from"); from != "" {
		t, err := time.Parse(time.DateOnly, from)
		if err != nil {
			response.BadRequest(c, "date_from must be YYYY-MM-DD")
			return
		}
		filter.DateFrom = t
	}
	if to := c.Query("date_to"); to != "" {
		t, err := time.Parse(time.DateOnly, to)
		if err != nil {
			response.BadRequest(c, "date_to must be YYYY-MM-DD")
			return
		}
		filter.DateTo = t
	}

	records, total, err := h.feedbackService.List(filter)
	if err != nil {
		response.ServerError(c, "failed to list feedback")
		return
	}

	if c.Query("format") == "csv" {
		h.writeCSV(c, records)
		return
	}

	response.Success(c, gin.H{
		"items":     records,
		"total":     total,
		"page":      filter.Page,
		"page_size": filter.PageSize,
	})
}

func (h *FeedbackHandler) writeCSV(c *gin.Context, records []models.Feedback) {
	filename := fmt.Sprintf("feedback-%s.csv", time.Now().Format("20060102-150405"))
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename="+filename)

	w := csv.NewWriter(c.Writer)
	defer w.Flush()

	w.Write([]string{"id", "patient_name", "visit_date", "department", "doctor_name", "rating", "status", "sentiment", "urgency", "category", "created_at", "feedback_text"})
	for _, fb := range records {
		sentiment, urgency, category := "", "", ""
		if fb.Analysis != nil {
			sentiment = fb.Analysis.Sentiment
			urgency = fb.Analysis.Urgency
			category = fb.Analysis.PrimaryCategory
		}
		w.Write([]string{
			strconv.FormatUint(uint64(fb.ID), 10),
			fb.PatientName,
			fb.VisitDate.Format(time.DateOnly),
			fb.Department,
			fb.DoctorName,
			strconv.Itoa(fb.Rating),
			fb.Status,
			sentiment,
			urgency,
			category,
			fb.CreatedAt.Format(time.RFC3339),
			strings.ReplaceAll(fb.FeedbackText, "\n", " "),
		})
	}
}

// Get returns one feedback record with analysis and actions
// GET /api/feedback/:id
func (h *FeedbackHandler) Get(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		response.BadRequest(c, "invalid feedback id")
		return
	}

	fb, err := h.feedbackService.GetByID(id)
	if err != nil {
		if errors.Is(err, services.ErrFeedbackNotFound) {
			response.NotFound(c, "feedback not found")
			return
		}
		response.ServerError(c, "failed to load feedback")
		return
	}

	response.Success(c, fb)
}

type updateStatusRequest struct {
	Status             string `json:"status" binding:"required"`
	StaffNote          string `json:"staff_note"`
	AssignedDepartment string `json:"assigned_department"`
}

// UpdateStatus moves a record through the staff workflow
// PUT /api/feedback/:id/status
func (h *FeedbackHandler) UpdateStatus(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		response.BadRequest(c, "invalid feedback id")
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	fb, err := h.feedbackService.UpdateStatus(id, req.Status, req.StaffNote, req.AssignedDepartment)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrFeedbackNotFound):
			response.NotFound(c, "feedback not found")
		case errors.Is(err, services.ErrInvalidStatus):
			response.BadRequest(c, err.Error())
		case errors.Is(err, services.ErrIllegalTransition):
			response.Conflict(c, err.Error())
		default:
			response.ServerError(c, "failed to update status")
		}
		return
	}

	response.Success(c, fb)
}

// RetryAnalysis re-runs analysis for one failed record
// POST /api/feedback/:id/retry-analysis
func (h *FeedbackHandler) RetryAnalysis(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		response.BadRequest(c, "invalid feedback id")
		return
	}

	if _, err := h.feedbackService.GetByID(id); err != nil {
		if errors.Is(err, services.ErrFeedbackNotFound) {
			response.NotFound(c, "feedback not found")
			return
		}
		response.ServerError(c, "failed to load feedback")
		return
	}

	if err := h.enrichment.RequestRetry(id); err != nil {
		response.Conflict(c, err.Error())
		return
	}

	response.Success(c, gin.H{"message": "analysis retry scheduled"})
}

type retryFailedRequest struct {
	MaxCount int `json:"max_count"`
}

// RetryFailed re-runs analysis for a batch of failed records
// POST /api/feedback/retry-failed
func (h *FeedbackHandler) RetryFailed(c *gin.Context) {
	var req retryFailedRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.BadRequest(c, err.Error())
		return
	}
	if req.MaxCount <= 0 {
		req.MaxCount = 10
	}
	if req.MaxCount > 100 {
		req.MaxCount = 100
	}

	succeeded, err := h.enrichment.RetryFailed(c.Request.Context(), req.MaxCount)
	if err != nil {
		response.ServerError(c, "retry batch failed")
		return
	}

	response.Success(c, gin.H{"retried": succeeded})
}

// FailedAnalysis lists records stuck in analysis_failed
// GET /api/feedback/failed
func (h *FeedbackHandler) FailedAnalysis(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	records, err := h.feedbackService.ListFailedAnalysis(limit)
	if err != nil {
		response.ServerError(c, "failed to list failed analyses")
		return
	}
	response.Success(c, records)
}

// Departments returns the distinct departments for filter dropdowns
// GET /api/feedback/departments
func (h *FeedbackHandler) Departments(c *gin.Context) {
	departments, err := h.feedbackService.Departments()
	if err != nil {
		response.ServerError(c, "failed to list departments")
		return
	}
	response.Success(c, departments)
}

func parseID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}
