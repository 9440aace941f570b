package db

import (
	"context"
	"fmt"
	"time"

	"github.com/salespilot/salespilot-go/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// PreviewLength bounds last_message_preview.
const PreviewLength = 100

// QueryCreateChat stores a new active chat.
func (c *Client) QueryCreateChat(ctx context.Context, id string, in models.ChatInput) (*models.Chat, error) {
	defer c.observe(time.Now())

	results, err := surrealdb.Query[[]models.Chat](ctx, c.db, `
		CREATE type::record("chat", $id) SET
			company_id = $company_id,
			user_id = $user_id,
			phone = $phone,
			contact_name = $contact_name,
			active = true,
			unread_count = 0,
			created = time::now()
		RETURN AFTER
	`, map[string]any{
		"id":           id,
		"company_id":   in.CompanyID,
		"user_id":      in.UserID,
		"phone":        in.Phone,
		"contact_name": in.ContactName,
	})
	if err != nil {
		return nil, fmt.Errorf("create chat: %w", wrapQueryError(err))
	}

	chat := first(results)
	if chat == nil {
		return nil, fmt.Errorf("create chat: no result returned")
	}
	return chat, nil
}

// QueryGetChat retrieves a chat by id.
func (c *Client) QueryGetChat(ctx context.Context, id string) (*models.Chat, error) {
	defer c.observe(time.Now())

	results, err := surrealdb.Query[[]models.Chat](ctx, c.db, `
		SELECT * FROM type::record("chat", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get chat: %w", err)
	}

	chat := first(results)
	if chat == nil {
		return nil, fmt.Errorf("chat %s: %w", id, ErrNotFound)
	}
	return chat, nil
}

// QueryFindChatByPhone returns the company's chat with phone, or nil.
// An empty companyID matches any company, which the inbound webhook uses
// since the Graph API payload carries no company.
func (c *Client) QueryFindChatByPhone(ctx context.Context, companyID, phone string) (*models.Chat, error) {
	defer c.observe(time.Now())

	sql := `SELECT * FROM chat WHERE phone = $phone ORDER BY created DESC LIMIT 1`
	vars := map[string]any{"phone": phone}
	if companyID != "" {
		sql = `SELECT * FROM chat WHERE company_id = $company AND phone = $phone ORDER BY created DESC LIMIT 1`
		vars["company"] = companyID
	}

	results, err := surrealdb.Query[[]models.Chat](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("find chat by phone: %w", err)
	}
	return first(results), nil
}

// QueryActivateChat reopens a chat and assigns it to userID.
func (c *Client) QueryActivateChat(ctx context.Context, id, userID string) (*models.Chat, error) {
	defer c.observe(time.Now())

	results, err := surrealdb.Query[[]models.Chat](ctx, c.db, `
		UPDATE type::record("chat", $id) SET active = true, user_id = $user_id RETURN AFTER
	`, map[string]any{"id": id, "user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("activate chat: %w", wrapQueryError(err))
	}

	chat := first(results)
	if chat == nil {
		return nil, fmt.Errorf("chat %s: %w", id, ErrNotFound)
	}
	return chat, nil
}

// QueryListChats lists a company's chats by most recent message.
func (c *Client) QueryListChats(ctx context.Context, companyID string, limit int) ([]models.Chat, error) {
	defer c.observe(time.Now())

	results, err := surrealdb.Query[[]models.Chat](ctx, c.db, `
		SELECT * FROM chat WHERE company_id = $company
		ORDER BY last_message_at DESC LIMIT $limit
	`, map[string]any{"company": companyID, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	return rows(results), nil
}

// QueryMarkChatRead resets the unread counter.
func (c *Client) QueryMarkChatRead(ctx context.Context, id string) error {
	defer c.observe(time.Now())

	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("chat", $id) SET unread_count = 0
	`, map[string]any{"id": id})
	if err != nil {
		return fmt.Errorf("mark chat read: %w", wrapQueryError(err))
	}
	return nil
}

// QueryCreateMessage stores a message and refreshes the chat preview in one
// transaction. Incoming messages bump the unread counter.
func (c *Client) QueryCreateMessage(ctx context.Context, id string, in models.MessageInput) (*models.Message, error) {
	defer c.observe(time.Now())

	msgType := in.Type
	if msgType == "" {
		msgType = "text"
	}
	status := in.Status
	if status == "" {
		status = "sent"
	}

	results, err := surrealdb.Query[[]models.Message](ctx, c.db, `
		BEGIN TRANSACTION;
		CREATE type::record("message", $id) SET
			chat_id = $chat_id,
			direction = $direction,
			type = $type,
			content = $content,
			media_url = $media_url,
			external_id = $external_id,
			status = $status,
			created = time::now()
		RETURN AFTER;
		UPDATE type::record("chat", $chat_id) SET
			last_message_at = time::now(),
			last_message_preview = $preview,
			unread_count += IF $incoming THEN 1 ELSE 0 END
		RETURN NONE;
		COMMIT TRANSACTION;
	`, map[string]any{
		"id":          id,
		"chat_id":     in.ChatID,
		"direction":   string(in.Direction),
		"type":        msgType,
		"content":     in.Content,
		"media_url":   in.MediaURL,
		"external_id": in.ExternalID,
		"status":      status,
		"preview":     models.Preview(in.Content, PreviewLength),
		"incoming":    in.Direction == models.DirectionIncoming,
	})
	if err != nil {
		return nil, fmt.Errorf("create message: %w", wrapQueryError(err))
	}

	msg := first(results)
	if msg == nil {
		return nil, fmt.Errorf("create message: no result returned")
	}
	return msg, nil
}

// QueryRecentMessages returns up to limit messages of a chat, newest first.
func (c *Client) QueryRecentMessages(ctx context.Context, chatID string, limit int) ([]models.Message, error) {
	defer c.observe(time.Now())

	results, err := surrealdb.Query[[]models.Message](ctx, c.db, `
		SELECT * FROM message WHERE chat_id = $chat ORDER BY created DESC LIMIT $limit
	`, map[string]any{"chat": chatID, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	return rows(results), nil
}
