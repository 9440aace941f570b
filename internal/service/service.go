// Package service sequences persistence, suggestion generation and
// realtime dispatch for calls, chats and notifications. Services own no
// state beyond their collaborators.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/salespilot/salespilot-go/internal/models"
	"github.com/salespilot/salespilot-go/internal/realtime"
	"github.com/salespilot/salespilot-go/internal/suggestion"
)

// Errors returned by services. db.ErrNotFound passes through unchanged.
var (
	ErrValidation   = errors.New("validation failed")
	ErrInvalidState = errors.New("invalid state")
)

// CallStore persists calls. *db.Client implements it.
type CallStore interface {
	QueryCreateCall(ctx context.Context, id string, in models.CallInput) (*models.Call, error)
	QueryGetCall(ctx context.Context, id string) (*models.Call, error)
	QueryFindCallBySID(ctx context.Context, sid string) (*models.Call, error)
	QueryUpdateCall(ctx context.Context, id string, u models.CallUpdate) (*models.Call, error)
	QueryAppendTranscript(ctx context.Context, id, speaker, text string) (*models.Call, error)
	QueryCompleteCall(ctx context.Context, id, sentiment string, score float64, summary string) (*models.Call, error)
	QueryActiveCalls(ctx context.Context, companyID string) ([]models.Call, error)
	QueryListCalls(ctx context.Context, companyID string, limit int) ([]models.Call, error)
	QueryCallStats(ctx context.Context, companyID string) (models.CallStats, error)
	QueryFailStaleCalls(ctx context.Context, idle time.Duration) ([]models.Call, error)
}

// ChatStore persists chats and messages.
type ChatStore interface {
	QueryCreateChat(ctx context.Context, id string, in models.ChatInput) (*models.Chat, error)
	QueryGetChat(ctx context.Context, id string) (*models.Chat, error)
	QueryFindChatByPhone(ctx context.Context, companyID, phone string) (*models.Chat, error)
	QueryActivateChat(ctx context.Context, id, userID string) (*models.Chat, error)
	QueryListChats(ctx context.Context, companyID string, limit int) ([]models.Chat, error)
	QueryMarkChatRead(ctx context.Context, id string) error
	QueryCreateMessage(ctx context.Context, id string, in models.MessageInput) (*models.Message, error)
	QueryRecentMessages(ctx context.Context, chatID string, limit int) ([]models.Message, error)
}

// SuggestionStore persists generated suggestions.
type SuggestionStore interface {
	QueryCreateSuggestion(ctx context.Context, id string, s models.SuggestionRecord) (*models.SuggestionRecord, error)
	QuerySuggestionsForCall(ctx context.Context, callID string, limit int) ([]models.SuggestionRecord, error)
	QuerySuggestionsForChat(ctx context.Context, chatID string, limit int) ([]models.SuggestionRecord, error)
	QueryMarkSuggestionUsed(ctx context.Context, id string) error
}

// NotificationStore persists notifications.
type NotificationStore interface {
	QueryCreateNotification(ctx context.Context, id string, in models.NotificationInput) (*models.Notification, error)
	QueryListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error)
	QueryUnreadCount(ctx context.Context, userID string) (int, error)
	QueryMarkNotificationRead(ctx context.Context, id, userID string) (*models.Notification, error)
	QueryMarkAllRead(ctx context.Context, userID string) (int, error)
}

// Dispatcher pushes payloads to realtime rooms. *realtime.Dispatcher
// implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, p realtime.Payload) int
}

// Generator produces suggestions. *suggestion.Generator implements it.
type Generator interface {
	Generate(ctx context.Context, cc suggestion.ConversationContext) suggestion.Suggestion
}

// MessageSender delivers outbound chat messages. *whatsapp.Client
// implements it.
type MessageSender interface {
	Enabled() bool
	SendText(ctx context.Context, phone, text string) (string, error)
}

// Page sizes.
const (
	suggestionHistoryLimit = 20
	chatHistoryLimit       = 10
	listLimit              = 50
)
