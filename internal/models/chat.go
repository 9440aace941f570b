package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// MessageDirection tells whether a chat message came from the customer.
type MessageDirection string

const (
	DirectionIncoming MessageDirection = "incoming"
	DirectionOutgoing MessageDirection = "outgoing"
)

// Chat is a WhatsApp conversation with one customer phone number.
type Chat struct {
	ID                 surrealmodels.RecordID `json:"id"`
	CompanyID          string                 `json:"company_id"`
	UserID             string                 `json:"user_id"`
	Phone              string                 `json:"phone"`
	ContactName        *string                `json:"contact_name,omitempty"`
	Active             bool                   `json:"active"`
	UnreadCount        int                    `json:"unread_count"`
	LastMessageAt      *time.Time             `json:"last_message_at,omitempty"`
	LastMessagePreview *string                `json:"last_message_preview,omitempty"`
	Created            time.Time              `json:"created"`
}

// Message is a single WhatsApp message in a chat.
type Message struct {
	ID         surrealmodels.RecordID `json:"id"`
	ChatID     string                 `json:"chat_id"`
	Direction  MessageDirection       `json:"direction"`
	Type       string                 `json:"type"`
	Content    string                 `json:"content"`
	MediaURL   *string                `json:"media_url,omitempty"`
	ExternalID *string                `json:"external_id,omitempty"`
	Status     string                 `json:"status"`
	Created    time.Time              `json:"created"`
}

// ChatInput holds the fields set when a chat is created.
type ChatInput struct {
	CompanyID   string
	UserID      string
	Phone       string
	ContactName *string
}

// MessageInput holds the fields set when a message is stored.
type MessageInput struct {
	ChatID     string
	Direction  MessageDirection
	Type       string
	Content    string
	MediaURL   *string
	ExternalID *string
	Status     string
}
