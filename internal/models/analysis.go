package models

import (
	"time"
)

// Sentiment values produced by the classifier.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
	SentimentMixed    = "mixed"
)

// Urgency levels produced by the classifier.
const (
	UrgencyCritical = "critical"
	UrgencyHigh     = "high"
	UrgencyMedium   = "medium"
	UrgencyLow      = "low"
)

// Analysis is the structured result of AI enrichment for one feedback record.
// Immutable once created; the unique index on FeedbackID enforces at most one
// analysis per record at the store level.
type Analysis struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	FeedbackID uint `gorm:"uniqueIndex;not null" json:"feedback_id"`

	Sentiment       string     `gorm:"size:50;not null" json:"sentiment"`
	ConfidenceScore float64    `gorm:"not null" json:"confidence_score"` // 0.0 to 1.0
	Emotions        StringList `gorm:"type:text" json:"emotions"`

	Urgency       string     `gorm:"size:50;index;not null" json:"urgency"`
	UrgencyReason string     `gorm:"type:text" json:"urgency_reason,omitempty"`
	UrgencyFlags  StringList `gorm:"type:text" json:"urgency_flags"`

	PrimaryCategory string     `gorm:"size:100;index" json:"primary_category,omitempty"`
	Subcategories   StringList `gorm:"type:text" json:"subcategories"`

	MedicalConcerns MedicalConcerns `gorm:"type:text" json:"medical_concerns"`

	ActionableInsights string     `gorm:"type:text" json:"actionable_insights,omitempty"`
	KeyPoints          StringList `gorm:"type:text" json:"key_points"`

	CreatedAt time.Time `json:"created_at"`
}

func (Analysis) TableName() string { return "analysis" }
