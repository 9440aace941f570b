package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/salespilot/salespilot-go/internal/models"
	"github.com/salespilot/salespilot-go/internal/realtime"
)

// NotificationEvent is the body of a notification dispatch.
type NotificationEvent struct {
	Notification models.NotificationView `json:"notification"`
	Timestamp    int64                   `json:"timestamp"`
}

// NotificationService stores user notifications and pushes them live.
type NotificationService struct {
	store      NotificationStore
	dispatcher Dispatcher
	now        func() time.Time
}

func NewNotificationService(store NotificationStore, d Dispatcher) *NotificationService {
	return &NotificationService{store: store, dispatcher: d, now: time.Now}
}

// Create persists a notification and sends it to the user's sessions.
func (s *NotificationService) Create(ctx context.Context, in models.NotificationInput) (*models.Notification, error) {
	if in.UserID == "" || in.Title == "" {
		return nil, fmt.Errorf("%w: userId and title are required", ErrValidation)
	}
	if in.Type == "" {
		in.Type = "info"
	}
	n, err := s.store.QueryCreateNotification(ctx, uuid.NewString(), in)
	if err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	s.dispatcher.Dispatch(ctx, realtime.Payload{
		Kind: realtime.KindNotification,
		Room: realtime.UserRoom(in.UserID),
		Body: NotificationEvent{Notification: n.View(), Timestamp: s.now().UnixMilli()},
	})
	return n, nil
}

func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	return s.store.QueryListNotifications(ctx, userID, unreadOnly, listLimit)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.store.QueryUnreadCount(ctx, userID)
}

// MarkRead marks one of the user's notifications read. Unknown ids and
// notifications of other users yield db.ErrNotFound.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) (*models.Notification, error) {
	return s.store.QueryMarkNotificationRead(ctx, id, userID)
}

// MarkAllRead marks every unread notification of the user and returns how
// many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return s.store.QueryMarkAllRead(ctx, userID)
}
