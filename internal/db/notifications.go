package db

import (
	"context"
	"fmt"
	"time"

	"github.com/salespilot/salespilot-go/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// QueryCreateNotification stores an unread notification.
func (c *Client) QueryCreateNotification(ctx context.Context, id string, in models.NotificationInput) (*models.Notification, error) {
	defer c.observe(time.Now())

	data := in.Data
	if data == nil {
		data = map[string]any{}
	}

	results, err := surrealdb.Query[[]models.Notification](ctx, c.db, `
		CREATE type::record("notification", $id) SET
			user_id = $user_id,
			company_id = $company_id,
			type = $type,
			title = $title,
			message = $message,
			data = $data,
			read = false,
			created = time::now()
		RETURN AFTER
	`, map[string]any{
		"id":         id,
		"user_id":    in.UserID,
		"company_id": in.CompanyID,
		"type":       in.Type,
		"title":      in.Title,
		"message":    in.Message,
		"data":       data,
	})
	if err != nil {
		return nil, fmt.Errorf("create notification: %w", wrapQueryError(err))
	}

	n := first(results)
	if n == nil {
		return nil, fmt.Errorf("create notification: no result returned")
	}
	return n, nil
}

// QueryListNotifications returns a user's newest notifications.
func (c *Client) QueryListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	defer c.observe(time.Now())

	filter := ""
	if unreadOnly {
		filter = "AND read = false"
	}
	sql := fmt.Sprintf(`
		SELECT * FROM notification WHERE user_id = $user %s
		ORDER BY created DESC LIMIT $limit
	`, filter)

	results, err := surrealdb.Query[[]models.Notification](ctx, c.db, sql, map[string]any{"user": userID, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return rows(results), nil
}

// QueryUnreadCount counts a user's unread notifications.
func (c *Client) QueryUnreadCount(ctx context.Context, userID string) (int, error) {
	defer c.observe(time.Now())

	results, err := surrealdb.Query[[]struct {
		C int `json:"c"`
	}](ctx, c.db, `
		SELECT count() AS c FROM notification WHERE user_id = $user AND read = false GROUP ALL
	`, map[string]any{"user": userID})
	if err != nil {
		return 0, fmt.Errorf("unread count: %w", err)
	}

	row := first(results)
	if row == nil {
		return 0, nil
	}
	return row.C, nil
}

// QueryMarkNotificationRead marks one of the user's notifications read.
func (c *Client) QueryMarkNotificationRead(ctx context.Context, id, userID string) (*models.Notification, error) {
	defer c.observe(time.Now())

	results, err := surrealdb.Query[[]models.Notification](ctx, c.db, `
		UPDATE type::record("notification", $id) SET
			read = true,
			read_at = read_at ?? time::now()
		WHERE user_id = $user
		RETURN AFTER
	`, map[string]any{"id": id, "user": userID})
	if err != nil {
		return nil, fmt.Errorf("mark notification read: %w", wrapQueryError(err))
	}

	n := first(results)
	if n == nil {
		return nil, fmt.Errorf("notification %s: %w", id, ErrNotFound)
	}
	return n, nil
}

// QueryMarkAllRead marks every unread notification of a user read and
// returns how many changed.
func (c *Client) QueryMarkAllRead(ctx context.Context, userID string) (int, error) {
	defer c.observe(time.Now())

	results, err := surrealdb.Query[[]models.Notification](ctx, c.db, `
		UPDATE notification SET read = true, read_at = time::now()
		WHERE user_id = $user AND read = false
		RETURN AFTER
	`, map[string]any{"user": userID})
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", wrapQueryError(err))
	}
	return len(rows(results)), nil
}
