package db

import (
	"context"
	"fmt"
	"time"

	"github.com/salespilot/salespilot-go/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// QueryCreateSuggestion stores a generated suggestion. The record's id,
// used and created fields are ignored.
func (c *Client) QueryCreateSuggestion(ctx context.Context, id string, s models.SuggestionRecord) (*models.SuggestionRecord, error) {
	defer c.observe(time.Now())

	results, err := surrealdb.Query[[]models.SuggestionRecord](ctx, c.db, `
		CREATE type::record("suggestion", $id) SET
			user_id = $user_id,
			call_id = $call_id,
			chat_id = $chat_id,
			category = $category,
			content = $content,
			confidence = $confidence,
			trigger_text = $trigger_text,
			channel = $channel,
			model = $model,
			latency_ms = $latency_ms,
			used = false,
			created = time::now()
		RETURN AFTER
	`, map[string]any{
		"id":           id,
		"user_id":      s.UserID,
		"call_id":      s.CallID,
		"chat_id":      s.ChatID,
		"category":     s.Category,
		"content":      s.Content,
		"confidence":   s.Confidence,
		"trigger_text": s.TriggerText,
		"channel":      s.Channel,
		"model":        s.Model,
		"latency_ms":   s.LatencyMs,
	})
	if err != nil {
		return nil, fmt.Errorf("create suggestion: %w", wrapQueryError(err))
	}

	rec := first(results)
	if rec == nil {
		return nil, fmt.Errorf("create suggestion: no result returned")
	}
	return rec, nil
}

// QuerySuggestionsForCall returns a call's newest suggestions.
func (c *Client) QuerySuggestionsForCall(ctx context.Context, callID string, limit int) ([]models.SuggestionRecord, error) {
	return c.listSuggestions(ctx, "call_id", callID, limit)
}

// QuerySuggestionsForChat returns a chat's newest suggestions.
func (c *Client) QuerySuggestionsForChat(ctx context.Context, chatID string, limit int) ([]models.SuggestionRecord, error) {
	return c.listSuggestions(ctx, "chat_id", chatID, limit)
}

func (c *Client) listSuggestions(ctx context.Context, field, id string, limit int) ([]models.SuggestionRecord, error) {
	defer c.observe(time.Now())

	sql := fmt.Sprintf(`SELECT * FROM suggestion WHERE %s = $id ORDER BY created DESC LIMIT $limit`, field)
	results, err := surrealdb.Query[[]models.SuggestionRecord](ctx, c.db, sql, map[string]any{"id": id, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("list suggestions by %s: %w", field, err)
	}
	return rows(results), nil
}

// QueryMarkSuggestionUsed flags that the agent used a suggestion.
func (c *Client) QueryMarkSuggestionUsed(ctx context.Context, id string) error {
	defer c.observe(time.Now())

	results, err := surrealdb.Query[[]models.SuggestionRecord](ctx, c.db, `
		UPDATE type::record("suggestion", $id) SET used = true RETURN AFTER
	`, map[string]any{"id": id})
	if err != nil {
		return fmt.Errorf("mark suggestion used: %w", wrapQueryError(err))
	}
	if first(results) == nil {
		return fmt.Errorf("suggestion %s: %w", id, ErrNotFound)
	}
	return nil
}
