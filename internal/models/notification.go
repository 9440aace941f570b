package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Notification is a user-facing alert shown in the dashboard.
type Notification struct {
	ID        surrealmodels.RecordID `json:"id"`
	UserID    string                 `json:"user_id"`
	CompanyID string                 `json:"company_id"`
	Type      string                 `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Data      map[string]any         `json:"data,omitempty"`
	Read      bool                   `json:"read"`
	ReadAt    *time.Time             `json:"read_at,omitempty"`
	Created   time.Time              `json:"created"`
}

// NotificationInput holds the fields set when a notification is created.
type NotificationInput struct {
	UserID    string
	CompanyID string
	Type      string
	Title     string
	Message   string
	Data      map[string]any
}
