// Package suggestion generates reply suggestions for sales agents and
// scores conversation sentiment.
package suggestion

import "strings"

// Category classifies a suggestion. The set is closed.
type Category string

const (
	CategoryGreeting    Category = "greeting"
	CategoryObjection   Category = "objection"
	CategoryClosing     Category = "closing"
	CategoryQuestion    Category = "question"
	CategoryInformation Category = "information"
	CategoryEmpathy     Category = "empathy"
	CategoryGeneral     Category = "general"
)

// Valid reports whether c belongs to the closed category set.
func (c Category) Valid() bool {
	switch c {
	case CategoryGreeting, CategoryObjection, CategoryClosing, CategoryQuestion,
		CategoryInformation, CategoryEmpathy, CategoryGeneral:
		return true
	}
	return false
}

// Channel is the conversation medium a suggestion is produced for.
type Channel string

const (
	ChannelCall Channel = "phone_call"
	ChannelChat Channel = "whatsapp"
)

// ParseChannel accepts both the short and wire spellings. An empty or
// unknown value yields "".
func ParseChannel(s string) Channel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "phone_call":
		return ChannelCall
	case "chat", "whatsapp":
		return ChannelChat
	}
	return ""
}

// Sources of a suggestion.
const (
	SourceProvider = "provider"
	SourceFallback = "fallback"
)

// Suggestion is one generated reply. Cached values are returned verbatim,
// so every field describes the invocation that produced it.
type Suggestion struct {
	Text          string   `json:"text"`
	Confidence    float64  `json:"confidence"`
	Category      Category `json:"category"`
	Channel       Channel  `json:"channel,omitempty"`
	GeneratedAtMs int64    `json:"generatedAtMs"`
	LatencyMs     int64    `json:"latencyMs"`
	SourceTrigger string   `json:"sourceTrigger"`
	Source        string   `json:"source"`
	Model         string   `json:"model,omitempty"`
}

// ConversationContext is the input of a single generation.
type ConversationContext struct {
	TriggerMessage string
	// History holds prior turns joined by newlines, oldest first.
	History string
	Channel Channel
}
