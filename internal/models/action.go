package models

import (
	"time"
)

// Action is an append-only audit record of a staff-driven status change.
type Action struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	FeedbackID         uint      `gorm:"index;not null" json:"feedback_id"`
	Status             string    `gorm:"size:50;not null" json:"status"`
	StaffNote          string    `gorm:"type:text" json:"staff_note,omitempty"`
	AssignedDepartment string    `gorm:"size:100" json:"assigned_department,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

func (Action) TableName() string { return "actions" }
