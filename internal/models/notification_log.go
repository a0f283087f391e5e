package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	NotificationSent   = "sent"
	NotificationFailed = "failed"
)

// NotificationLog records every message handed to the notification sink.
type NotificationLog struct {
	ID        string            `json:"id" gorm:"primaryKey;size:64"`
	Kind      string            `json:"kind" gorm:"size:48;index"`
	Recipient string            `json:"recipient" gorm:"size:128"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      datatypes.JSONMap `json:"data" gorm:"type:jsonb"`
	Status    string            `json:"status" gorm:"size:16"`
	LastError string            `json:"lastError,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}
