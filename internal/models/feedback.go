package models

import (
	"time"
)

// Feedback lifecycle statuses.
const (
	StatusPendingAnalysis = "pending_analysis"
	StatusReviewed        = "reviewed"
	StatusInProgress      = "in_progress"
	StatusResolved        = "resolved"
	StatusAnalysisFailed  = "analysis_failed"
)

// Feedback represents a single patient feedback record.
type Feedback struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	PatientName  string    `gorm:"size:255" json:"patient_name,omitempty"`
	VisitDate    time.Time `gorm:"index;not null" json:"visit_date"`
	Department   string    `gorm:"size:100;index:idx_feedback_department_status;not null" json:"department"`
	DoctorName   string    `gorm:"size:255" json:"doctor_name,omitempty"`
	FeedbackText string    `gorm:"type:text;not null" json:"feedback_text"`
	Rating       int       `gorm:"not null" json:"rating"` // 1-5
	Status       string    `gorm:"size:50;default:pending_analysis;index:idx_feedback_department_status,priority:2;index:idx_feedback_created_status,priority:2" json:"status"`
	CreatedAt    time.Time `gorm:"index:idx_feedback_created_status" json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Analysis *Analysis `gorm:"foreignKey:FeedbackID;constraint:OnDelete:CASCADE" json:"analysis,omitempty"`
	Actions  []Action  `gorm:"foreignKey:FeedbackID;constraint:OnDelete:CASCADE" json:"actions,omitempty"`
}

func (Feedback) TableName() string { return "feedback" }
