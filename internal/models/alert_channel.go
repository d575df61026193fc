package models

import (
	"time"
)

// AlertChannel is an outbound webhook that receives urgent-alert pushes.
type AlertChannel struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"size:100;not null" json:"name"`
	Type       string    `gorm:"size:50;not null" json:"type"` // slack, generic
	WebhookURL string    `gorm:"size:500;not null" json:"webhook_url"`
	IsActive   bool      `gorm:"default:true" json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (AlertChannel) TableName() string { return "alert_channels" }
