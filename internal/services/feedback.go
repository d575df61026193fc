package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/carewell/medfeedback/backend/internal/models"
	"github.com/carewell/medfeedback/backend/pkg/logger"

	"gorm.io/gorm"
)

var (
	ErrFeedbackNotFound  = errors.New("feedback not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrIllegalTransition = errors.New("illegal status transition")
)

// CreateFeedbackInput carries the fields a patient submits.
type CreateFeedbackInput struct {
	PatientName  string `json:"patient_name"`
	VisitDate    string `json:"visit_date" binding:"required"`
	Department   string `json:"department" binding:"required"`
	DoctorName   string `json:"doctor_name"`
	FeedbackText string `json:"feedback_text" binding:"required"`
	Rating       int    `json:"rating" binding:"required,min=1,max=5"`
}

// FeedbackFilter selects and pages feedback listings. Sentiment, Urgency and
// Category filter on the joined analysis row, so records still pending
// analysis never match them.
type FeedbackFilter struct {
	Status     string
	Department string
	Sentiment  string
	Urgency    string
	Category   string
	DateFrom   time.Time // inclusive, zero value means unset
	DateTo     time.Time // inclusive, zero value means unset
	Page       int
	PageSize   int
}

// FeedbackService owns feedback record CRUD and listing. Status transitions
// go through the lifecycle rules; enrichment is triggered by the caller.
type FeedbackService struct {
	db *gorm.DB
}

func NewFeedbackService(db *gorm.DB) *FeedbackService {
	return &FeedbackService{db: db}
}

// Create stores a new feedback record in pending_analysis.
func (s *FeedbackService) Create(input *CreateFeedbackInput) (*models.Feedback, error) {
	visitDate, err := time.Parse(time.DateOnly, input.VisitDate)
	if err != nil {
		return nil, fmt.Errorf("%w: visit_date must be YYYY-MM-DD", ErrInvalidInput)
	}

	fb := &models.Feedback{
		PatientName:  input.PatientName,
		VisitDate:    visitDate,
		Department:   input.Department,
		DoctorName:   input.DoctorName,
		FeedbackText: input.FeedbackText,
		Rating:       input.Rating,
		Status:       models.StatusPendingAnalysis,
	}
	if fb.PatientName == "" {
		fb.PatientName = "Anonymous"
	}

	if err := s.db.Create(fb).Error; err != nil {
		return nil, fmt.Errorf("create feedback: %w", err)
	}

	logger.Infof("[Feedback] Created feedback %d (department=%s, rating=%d)", fb.ID, fb.Department, fb.Rating)
	return fb, nil
}

// GetByID loads one record with its analysis and action trail.
func (s *FeedbackService) GetByID(id uint) (*models.Feedback, error) {
	var fb models.Feedback
	err := s.db.Preload("Analysis").
		Preload("Actions", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&fb, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFeedbackNotFound
		}
		return nil, err
	}
	return &fb, nil
}

// List returns a filtered page of feedback records, newest first, plus the
// total count under the same filter.
func (s *FeedbackService) List(filter *FeedbackFilter) ([]models.Feedback, int64, error) {
	query := s.db.Model(&models.Feedback{})

	if filter.Status != "" {
		query = query.Where("feedback.status = ?", filter.Status)
	}
	if filter.Department != "" {
		query = query.Where("feedback.department = ?", filter.Department)
	}
	if !filter.DateFrom.IsZero() {
		query = query.Where("feedback.created_at >= ?", filter.DateFrom)
	}
	if !filter.DateTo.IsZero() {
		query = query.Where("feedback.created_at < ?", filter.DateTo.AddDate(0, 0, 1))
	}

	if filter.Sentiment != "" || filter.Urgency != "" || filter.Category != "" {
		query = query.Joins("JOIN analysis ON analysis.feedback_id = feedback.id")
		if filter.Sentiment != "" {
			query = query.Where("analysis.sentiment = ?", filter.Sentiment)
		}
		if filter.Urgency != "" {
			query = query.Where("analysis.urgency = ?", filter.Urgency)
		}
		if filter.Category != "" {
			query = query.Where("analysis.primary_category = ?", filter.Category)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count feedback: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var records []models.Feedback
	err := query.Preload("Analysis").
		Order("feedback.created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list feedback: %w", err)
	}

	return records, total, nil
}

// UpdateStatus moves a record to a new staff-facing status and appends an
// action entry recording the note and routing.
func (s *FeedbackService) UpdateStatus(id uint, newStatus, staffNote, assignedDepartment string) (*models.Feedback, error) {
	if !ValidStatus(newStatus) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, newStatus)
	}

	var fb models.Feedback
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&fb, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrFeedbackNotFound
			}
			return err
		}

		if !CanTransition(fb.Status, newStatus) {
			return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, fb.Status, newStatus)
		}

		if err := tx.Model(&fb).Update("status", newStatus).Error; err != nil {
			return err
		}

		action := models.Action{
			FeedbackID:         fb.ID,
			Status:             newStatus,
			StaffNote:          staffNote,
			AssignedDepartment: assignedDepartment,
		}
		return tx.Create(&action).Error
	})
	if err != nil {
		return nil, err
	}

	logger.Infof("[Feedback] Feedback %d status updated to %s", fb.ID, newStatus)
	return &fb, nil
}

// ListFailedAnalysis returns the oldest records stuck in analysis_failed, up
// to limit.
func (s *FeedbackService) ListFailedAnalysis(limit int) ([]models.Feedback, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var records []models.Feedback
	err := s.db.Where("status = ?", models.StatusAnalysisFailed).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list failed analysis: %w", err)
	}
	return records, nil
}

// Departments returns the distinct departments seen across all records, for
// filter dropdowns.
func (s *FeedbackService) Departments() ([]string, error) {
	var departments []string
	err := s.db.Model(&models.Feedback{}).
		Distinct("department").
		Order("department ASC").
		Pluck("department", &departments).Error
	if err != nil {
		return nil, err
	}
	return departments, nil
}
