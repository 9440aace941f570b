package models

import "time"

// Views render records for JSON clients with plain string ids.

// CallView is the client representation of a Call.
type CallView struct {
	ID             string              `json:"id"`
	CompanyID      string              `json:"companyId"`
	UserID         string              `json:"userId"`
	PhoneNumber    string              `json:"phoneNumber"`
	Direction      string              `json:"direction"`
	Status         CallStatus          `json:"status"`
	ProviderSID    *string             `json:"providerSid,omitempty"`
	Transcript     string              `json:"transcript"`
	Segments       []TranscriptSegment `json:"segments"`
	Sentiment      *string             `json:"sentiment,omitempty"`
	SentimentScore *float64            `json:"sentimentScore,omitempty"`
	Summary        *string             `json:"summary,omitempty"`
	RecordingURL   *string             `json:"recordingUrl,omitempty"`
	DurationSec    *int                `json:"duration,omitempty"`
	StartedAt      *time.Time          `json:"startedAt,omitempty"`
	EndedAt        *time.Time          `json:"endedAt,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
}

// View renders c.
func (c Call) View() CallView {
	segments := c.Segments
	if segments == nil {
		segments = []TranscriptSegment{}
	}
	return CallView{
		ID:             IDString(c.ID),
		CompanyID:      c.CompanyID,
		UserID:         c.UserID,
		PhoneNumber:    c.PhoneNumber,
		Direction:      c.Direction,
		Status:         c.Status,
		ProviderSID:    c.ProviderSID,
		Transcript:     c.Transcript,
		Segments:       segments,
		Sentiment:      c.Sentiment,
		SentimentScore: c.SentimentScore,
		Summary:        c.Summary,
		RecordingURL:   c.RecordingURL,
		DurationSec:    c.DurationSec,
		StartedAt:      c.StartedAt,
		EndedAt:        c.EndedAt,
		CreatedAt:      c.Created,
	}
}

// ChatView is the client representation of a Chat.
type ChatView struct {
	ID                 string     `json:"id"`
	CompanyID          string     `json:"companyId"`
	UserID             string     `json:"userId"`
	Phone              string     `json:"customerPhone"`
	ContactName        *string    `json:"customerName,omitempty"`
	Active             bool       `json:"active"`
	UnreadCount        int        `json:"unreadCount"`
	LastMessageAt      *time.Time `json:"lastMessageAt,omitempty"`
	LastMessagePreview *string    `json:"lastMessagePreview,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
}

// View renders c.
func (c Chat) View() ChatView {
	return ChatView{
		ID:                 IDString(c.ID),
		CompanyID:          c.CompanyID,
		UserID:             c.UserID,
		Phone:              c.Phone,
		ContactName:        c.ContactName,
		Active:             c.Active,
		UnreadCount:        c.UnreadCount,
		LastMessageAt:      c.LastMessageAt,
		LastMessagePreview: c.LastMessagePreview,
		CreatedAt:          c.Created,
	}
}

// MessageView is the client representation of a Message.
type MessageView struct {
	ID         string           `json:"id"`
	ChatID     string           `json:"chatId"`
	Direction  MessageDirection `json:"direction"`
	Type       string           `json:"type"`
	Content    string           `json:"content"`
	MediaURL   *string          `json:"mediaUrl,omitempty"`
	ExternalID *string          `json:"waMessageId,omitempty"`
	Status     string           `json:"status"`
	CreatedAt  time.Time        `json:"createdAt"`
}

// View renders m.
func (m Message) View() MessageView {
	return MessageView{
		ID:         IDString(m.ID),
		ChatID:     m.ChatID,
		Direction:  m.Direction,
		Type:       m.Type,
		Content:    m.Content,
		MediaURL:   m.MediaURL,
		ExternalID: m.ExternalID,
		Status:     m.Status,
		CreatedAt:  m.Created,
	}
}

// SuggestionView is the client representation of a SuggestionRecord.
type SuggestionView struct {
	ID          string    `json:"id"`
	CallID      *string   `json:"callId,omitempty"`
	ChatID      *string   `json:"chatId,omitempty"`
	Type        string    `json:"type"`
	Content     string    `json:"content"`
	Confidence  float64   `json:"confidence"`
	TriggerText string    `json:"triggerText"`
	Used        bool      `json:"used"`
	LatencyMs   int64     `json:"latencyMs"`
	CreatedAt   time.Time `json:"createdAt"`
}

// View renders s.
func (s SuggestionRecord) View() SuggestionView {
	return SuggestionView{
		ID:          IDString(s.ID),
		CallID:      s.CallID,
		ChatID:      s.ChatID,
		Type:        s.Category,
		Content:     s.Content,
		Confidence:  s.Confidence,
		TriggerText: s.TriggerText,
		Used:        s.Used,
		LatencyMs:   s.LatencyMs,
		CreatedAt:   s.Created,
	}
}

// NotificationView is the client representation of a Notification.
type NotificationView struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	Read      bool           `json:"read"`
	ReadAt    *time.Time     `json:"readAt,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// View renders n.
func (n Notification) View() NotificationView {
	return NotificationView{
		ID:        IDString(n.ID),
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Data:      n.Data,
		Read:      n.Read,
		ReadAt:    n.ReadAt,
		CreatedAt: n.Created,
	}
}

// Views renders a slice of records with a View method.
func Views[T interface{ View() V }, V any](items []T) []V {
	out := make([]V, 0, len(items))
	for _, it := range items {
		out = append(out, it.View())
	}
	return out
}
