package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/salespilot/salespilot-go/internal/metrics"
	"github.com/salespilot/salespilot-go/internal/models"
	"github.com/salespilot/salespilot-go/internal/queue"
	"github.com/salespilot/salespilot-go/internal/realtime"
	"github.com/salespilot/salespilot-go/internal/suggestion"
	"github.com/salespilot/salespilot-go/internal/whatsapp"
)

// Message statuses.
const (
	MessagePending   = "pending"
	MessageSent      = "sent"
	MessageFailed    = "failed"
	MessageDelivered = "delivered"
)

// AwaitingCustomer is returned by Chat suggestions when the customer has
// not written yet.
const AwaitingCustomer = "Aguardando mensagem do cliente para gerar sugestão."

// MessageEvent is the body of a whatsapp:message dispatch.
type MessageEvent struct {
	ChatID    string             `json:"chatId"`
	Message   models.MessageView `json:"message"`
	Timestamp int64              `json:"timestamp"`
}

// ChatService manages WhatsApp conversations.
type ChatService struct {
	chats       ChatStore
	suggestions SuggestionStore
	generator   Generator
	dispatcher  Dispatcher
	sender      MessageSender
	queue       queue.Client
	metrics     *metrics.Collector
	now         func() time.Time
}

// NewChatService wires a ChatService. sender may be nil when outbound
// delivery is not configured.
func NewChatService(chats ChatStore, suggestions SuggestionStore, g Generator, d Dispatcher, sender MessageSender, q queue.Client, collector *metrics.Collector) *ChatService {
	return &ChatService{
		chats:       chats,
		suggestions: suggestions,
		generator:   g,
		dispatcher:  d,
		sender:      sender,
		queue:       q,
		metrics:     collector,
		now:         time.Now,
	}
}

// Create opens a chat with a customer phone. An existing chat for the same
// company and phone is reactivated and reassigned instead.
func (s *ChatService) Create(ctx context.Context, in models.ChatInput) (*models.Chat, error) {
	in.Phone = strings.TrimSpace(in.Phone)
	if in.Phone == "" || in.UserID == "" {
		return nil, fmt.Errorf("%w: customerPhone and userId are required", ErrValidation)
	}

	existing, err := s.chats.QueryFindChatByPhone(ctx, in.CompanyID, in.Phone)
	if err != nil {
		return nil, fmt.Errorf("find chat: %w", err)
	}
	if existing != nil {
		return s.chats.QueryActivateChat(ctx, models.IDString(existing.ID), in.UserID)
	}

	chat, err := s.chats.QueryCreateChat(ctx, uuid.NewString(), in)
	if err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}
	slog.Info("chat created", "chat_id", models.IDString(chat.ID), "user_id", in.UserID)
	return chat, nil
}

// Get returns a chat and marks it read.
func (s *ChatService) Get(ctx context.Context, id string) (*models.Chat, error) {
	chat, err := s.chats.QueryGetChat(ctx, id)
	if err != nil {
		return nil, err
	}
	if chat.UnreadCount > 0 {
		if err := s.chats.QueryMarkChatRead(ctx, id); err != nil {
			slog.Warn("mark chat read failed", "chat_id", id, "error", err)
		} else {
			chat.UnreadCount = 0
		}
	}
	return chat, nil
}

// List returns the most recently active chats of a company.
func (s *ChatService) List(ctx context.Context, companyID string) ([]models.Chat, error) {
	return s.chats.QueryListChats(ctx, companyID, listLimit)
}

// Messages returns up to limit messages of a chat, newest first.
func (s *ChatService) Messages(ctx context.Context, id string, limit int) ([]models.Message, error) {
	if _, err := s.chats.QueryGetChat(ctx, id); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > listLimit {
		limit = listLimit
	}
	return s.chats.QueryRecentMessages(ctx, id, limit)
}

// Suggestions returns the newest suggestions generated for a chat.
func (s *ChatService) Suggestions(ctx context.Context, id string) ([]models.SuggestionRecord, error) {
	if _, err := s.chats.QueryGetChat(ctx, id); err != nil {
		return nil, err
	}
	return s.suggestions.QuerySuggestionsForChat(ctx, id, suggestionHistoryLimit)
}

// SendMessage delivers an agent message to the customer, stores it and
// echoes it to the agent's sessions. A failed delivery is stored with
// status failed and is not an error.
func (s *ChatService) SendMessage(ctx context.Context, chatID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrValidation)
	}
	chat, err := s.chats.QueryGetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}

	in := models.MessageInput{
		ChatID:    chatID,
		Direction: models.DirectionOutgoing,
		Type:      "text",
		Content:   content,
		Status:    MessagePending,
	}
	if s.sender != nil && s.sender.Enabled() {
		externalID, err := s.sender.SendText(ctx, chat.Phone, content)
		if err != nil {
			s.metrics.Inc(metrics.CounterSendFailed)
			slog.Warn("whatsapp send failed", "chat_id", chatID, "error", err)
			in.Status = MessageFailed
		} else {
			in.Status = MessageSent
			in.ExternalID = &externalID
		}
	}

	msg, err := s.chats.QueryCreateMessage(ctx, uuid.NewString(), in)
	if err != nil {
		return nil, fmt.Errorf("store message: %w", err)
	}
	s.notifyMessage(ctx, chat, msg)
	return msg, nil
}

// HandleIncoming stores a customer message received through the webhook,
// opening an unassigned chat for unknown phones, and schedules a
// suggestion for the owning agent.
func (s *ChatService) HandleIncoming(ctx context.Context, in whatsapp.InboundMessage) (*models.Message, error) {
	if in.From == "" {
		return nil, fmt.Errorf("%w: sender phone is required", ErrValidation)
	}

	chat, err := s.chats.QueryFindChatByPhone(ctx, "", in.From)
	if err != nil {
		return nil, fmt.Errorf("find chat: %w", err)
	}
	if chat == nil {
		var name *string
		if in.ContactName != "" {
			name = &in.ContactName
		}
		chat, err = s.chats.QueryCreateChat(ctx, uuid.NewString(), models.ChatInput{Phone: in.From, ContactName: name})
		if err != nil {
			return nil, fmt.Errorf("create chat: %w", err)
		}
		slog.Info("chat opened by customer", "chat_id", models.IDString(chat.ID), "phone", in.From)
	}

	chatID := models.IDString(chat.ID)
	var history string
	if chat.UserID != "" && in.Content != "" {
		history = s.history(ctx, chatID)
	}
	mi := models.MessageInput{
		ChatID:    chatID,
		Direction: models.DirectionIncoming,
		Type:      in.Type,
		Content:   in.Content,
		Status:    MessageDelivered,
	}
	if in.ExternalID != "" {
		mi.ExternalID = &in.ExternalID
	}
	msg, err := s.chats.QueryCreateMessage(ctx, uuid.NewString(), mi)
	if err != nil {
		return nil, fmt.Errorf("store message: %w", err)
	}
	s.notifyMessage(ctx, chat, msg)

	if chat.UserID != "" && in.Content != "" {
		enqueueSuggestion(ctx, s.queue, SuggestionTask{
			UserID:  chat.UserID,
			ChatID:  chatID,
			Trigger: in.Content,
			History: history,
			Channel: suggestion.ChannelChat,
		})
	}
	return msg, nil
}

// Suggest generates a reply for the last customer message of a chat.
func (s *ChatService) Suggest(ctx context.Context, chatID string) (suggestion.Suggestion, error) {
	chat, err := s.chats.QueryGetChat(ctx, chatID)
	if err != nil {
		return suggestion.Suggestion{}, err
	}
	recent, err := s.chats.QueryRecentMessages(ctx, chatID, chatHistoryLimit)
	if err != nil {
		return suggestion.Suggestion{}, fmt.Errorf("load messages: %w", err)
	}

	var trigger string
	for _, m := range recent {
		if m.Direction == models.DirectionIncoming {
			trigger = m.Content
			break
		}
	}
	if trigger == "" {
		return suggestion.Suggestion{
			Text:       AwaitingCustomer,
			Confidence: 0.5,
			Category:   suggestion.CategoryGeneral,
			Channel:    suggestion.ChannelChat,
			Source:     suggestion.SourceFallback,
		}, nil
	}

	start := s.now()
	out := s.generator.Generate(ctx, suggestion.ConversationContext{
		TriggerMessage: trigger,
		History:        formatHistory(recent),
		Channel:        suggestion.ChannelChat,
	})
	latency := s.now().Sub(start)

	if chat.UserID != "" {
		task := SuggestionTask{UserID: chat.UserID, ChatID: chatID, Trigger: trigger, Channel: suggestion.ChannelChat}
		if _, err := s.suggestions.QueryCreateSuggestion(ctx, uuid.NewString(), recordFor(task, out, latency)); err != nil {
			slog.Warn("persist suggestion failed", "chat_id", chatID, "error", err)
		}
	}
	return out, nil
}

// history renders the recent messages of a chat for the generator. Errors
// yield an empty history.
func (s *ChatService) history(ctx context.Context, chatID string) string {
	recent, err := s.chats.QueryRecentMessages(ctx, chatID, chatHistoryLimit)
	if err != nil {
		slog.Warn("load chat history failed", "chat_id", chatID, "error", err)
		return ""
	}
	return formatHistory(recent)
}

// formatHistory renders newest-first messages oldest first, one
// "Cliente:" or "Vendedor:" line each.
func formatHistory(newestFirst []models.Message) string {
	lines := make([]string, 0, len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		m := newestFirst[i]
		who := "Vendedor"
		if m.Direction == models.DirectionIncoming {
			who = "Cliente"
		}
		lines = append(lines, who+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

func (s *ChatService) notifyMessage(ctx context.Context, chat *models.Chat, msg *models.Message) {
	chatID := models.IDString(chat.ID)
	body := MessageEvent{ChatID: chatID, Message: msg.View(), Timestamp: s.now().UnixMilli()}
	if chat.UserID != "" {
		s.dispatcher.Dispatch(ctx, realtime.Payload{Kind: realtime.KindMessage, Room: realtime.UserRoom(chat.UserID), Body: body})
	}
	s.dispatcher.Dispatch(ctx, realtime.Payload{Kind: realtime.KindMessage, Room: realtime.ChatRoom(chatID), Body: body})
}
