// Package models defines the persisted records of the SalesPilot database.
package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// CallStatus is the lifecycle state of a phone call.
type CallStatus string

const (
	CallInitiated  CallStatus = "initiated"
	CallRinging    CallStatus = "ringing"
	CallInProgress CallStatus = "in_progress"
	CallCompleted  CallStatus = "completed"
	CallFailed     CallStatus = "failed"
	CallNoAnswer   CallStatus = "no_answer"
	CallBusy       CallStatus = "busy"
	CallCanceled   CallStatus = "canceled"
)

// Valid reports whether s is a known call status.
func (s CallStatus) Valid() bool {
	switch s {
	case CallInitiated, CallRinging, CallInProgress, CallCompleted,
		CallFailed, CallNoAnswer, CallBusy, CallCanceled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are expected.
func (s CallStatus) Terminal() bool {
	switch s {
	case CallCompleted, CallFailed, CallNoAnswer, CallBusy, CallCanceled:
		return true
	}
	return false
}

// Speakers recorded on transcript segments.
const (
	SpeakerCustomer = "customer"
	SpeakerAgent    = "agent"
)

// TranscriptSegment is one utterance of a call transcript.
type TranscriptSegment struct {
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Call is a phone call handled by an agent.
type Call struct {
	ID             surrealmodels.RecordID `json:"id"`
	CompanyID      string                 `json:"company_id"`
	UserID         string                 `json:"user_id"` // assigned agent
	PhoneNumber    string                 `json:"phone_number"`
	Direction      string                 `json:"direction"`
	Status         CallStatus             `json:"status"`
	ProviderSID    *string                `json:"provider_sid,omitempty"`
	Transcript     string                 `json:"transcript"`
	Segments       []TranscriptSegment    `json:"segments"`
	Sentiment      *string                `json:"sentiment,omitempty"`
	SentimentScore *float64               `json:"sentiment_score,omitempty"`
	Summary        *string                `json:"summary,omitempty"`
	RecordingURL   *string                `json:"recording_url,omitempty"`
	DurationSec    *int                   `json:"duration_sec,omitempty"`
	StartedAt      *time.Time             `json:"started_at,omitempty"`
	EndedAt        *time.Time             `json:"ended_at,omitempty"`
	LastActivity   time.Time              `json:"last_activity"`
	Created        time.Time              `json:"created"`
}

// CallStats aggregates call counts for a company.
type CallStats struct {
	Total          int     `json:"total"`
	Completed      int     `json:"completed"`
	InProgress     int     `json:"in_progress"`
	AvgDurationSec float64 `json:"avg_duration_sec"`
	Positive       int     `json:"positive"`
	Negative       int     `json:"negative"`
}

// CallInput holds the fields set when a call is created.
type CallInput struct {
	CompanyID   string
	UserID      string
	PhoneNumber string
	Direction   string
	ProviderSID *string
}

// CallUpdate is a partial update. Nil fields are left unchanged.
type CallUpdate struct {
	Status       *CallStatus
	ProviderSID  *string
	RecordingURL *string
	Summary      *string
}
