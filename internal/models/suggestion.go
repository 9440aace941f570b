package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// SuggestionRecord is a generated suggestion kept for history and analytics.
// Exactly one of CallID and ChatID is set.
type SuggestionRecord struct {
	ID          surrealmodels.RecordID `json:"id"`
	UserID      string                 `json:"user_id"`
	CallID      *string                `json:"call_id,omitempty"`
	ChatID      *string                `json:"chat_id,omitempty"`
	Category    string                 `json:"category"`
	Content     string                 `json:"content"`
	Confidence  float64                `json:"confidence"`
	TriggerText string                 `json:"trigger_text"`
	Channel     string                 `json:"channel"`
	Model       string                 `json:"model"`
	LatencyMs   int64                  `json:"latency_ms"`
	Used        bool                   `json:"used"`
	Created     time.Time              `json:"created"`
}
