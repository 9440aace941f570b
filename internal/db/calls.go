package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/salespilot/salespilot-go/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// QueryCreateCall stores a new call in status initiated.
func (c *Client) QueryCreateCall(ctx context.Context, id string, in models.CallInput) (*models.Call, error) {
	defer c.observe(time.Now())

	direction := in.Direction
	if direction == "" {
		direction = "outbound"
	}

	results, err := surrealdb.Query[[]models.Call](ctx, c.db, `
		CREATE type::record("call", $id) SET
			company_id = $company_id,
			user_id = $user_id,
			phone_number = $phone_number,
			direction = $direction,
			status = $status,
			provider_sid = $provider_sid,
			transcript = "",
			segments = [],
			last_activity = time::now(),
			created = time::now()
		RETURN AFTER
	`, map[string]any{
		"id":           id,
		"company_id":   in.CompanyID,
		"user_id":      in.UserID,
		"phone_number": in.PhoneNumber,
		"direction":    direction,
		"status":       string(models.CallInitiated),
		"provider_sid": in.ProviderSID,
	})
	if err != nil {
		return nil, fmt.Errorf("create call: %w", wrapQueryError(err))
	}

	call := first(results)
	if call == nil {
		return nil, fmt.Errorf("create call: no result returned")
	}
	return call, nil
}

// QueryGetCall retrieves a call by id.
func (c *Client) QueryGetCall(ctx context.Context, id string) (*models.Call, error) {
	defer c.observe(time.Now())

	results, err := surrealdb.Query[[]models.Call](ctx, c.db, `
		SELECT * FROM type::record("call", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get call: %w", err)
	}

	call := first(results)
	if call == nil {
		return nil, fmt.Errorf("call %s: %w", id, ErrNotFound)
	}
	return call, nil
}

// QueryFindCallBySID looks a call up by its telephony provider id.
// Returns nil if no call matches.
func (c *Client) QueryFindCallBySID(ctx context.Context, sid string) (*models.Call, error) {
	defer c.observe(time.Now())

	results, err := surrealdb.Query[[]models.Call](ctx, c.db, `
		SELECT * FROM call WHERE provider_sid = $sid LIMIT 1
	`, map[string]any{"sid": sid})
	if err != nil {
		return nil, fmt.Errorf("find call by sid: %w", err)
	}
	return first(results), nil
}

// QueryUpdateCall applies a partial update and refreshes last_activity.
// Moving to in_progress stamps started_at once; a terminal status stamps
// ended_at once.
func (c *Client) QueryUpdateCall(ctx context.Context, id string, u models.CallUpdate) (*models.Call, error) {
	defer c.observe(time.Now())

	sets := []string{"last_activity = time::now()"}
	vars := map[string]any{"id": id}

	if u.Status != nil {
		sets = append(sets, "status = $status")
		vars["status"] = string(*u.Status)
		if *u.Status == models.CallInProgress {
			sets = append(sets, "started_at = started_at ?? time::now()")
		}
		if u.Status.Terminal() {
			sets = append(sets, "ended_at = ended_at ?? time::now()")
		}
	}
	if u.ProviderSID != nil {
		sets = append(sets, "provider_sid = $provider_sid")
		vars["provider_sid"] = *u.ProviderSID
	}
	if u.RecordingURL != nil {
		sets = append(sets, "recording_url = $recording_url")
		vars["recording_url"] = *u.RecordingURL
	}
	if u.Summary != nil {
		sets = append(sets, "summary = $summary")
		vars["summary"] = *u.Summary
	}

	sql := fmt.Sprintf(`UPDATE type::record("call", $id) SET %s RETURN AFTER`, strings.Join(sets, ", "))
	results, err := surrealdb.Query[[]models.Call](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("update call: %w", wrapQueryError(err))
	}

	call := first(results)
	if call == nil {
		return nil, fmt.Errorf("call %s: %w", id, ErrNotFound)
	}
	return call, nil
}

// QueryAppendTranscript adds one "speaker: text" line and a segment.
func (c *Client) QueryAppendTranscript(ctx context.Context, id, speaker, text string) (*models.Call, error) {
	defer c.observe(time.Now())

	line := speaker + ": " + text
	results, err := surrealdb.Query[[]models.Call](ctx, c.db, `
		UPDATE type::record("call", $id) SET
			transcript = IF transcript = "" THEN $line ELSE string::concat(transcript, "\n", $line) END,
			segments += { speaker: $speaker, text: $text, timestamp: time::now() },
			last_activity = time::now()
		RETURN AFTER
	`, map[string]any{
		"id":      id,
		"line":    line,
		"speaker": speaker,
		"text":    text,
	})
	if err != nil {
		return nil, fmt.Errorf("append transcript: %w", wrapQueryError(err))
	}

	call := first(results)
	if call == nil {
		return nil, fmt.Errorf("call %s: %w", id, ErrNotFound)
	}
	return call, nil
}

// QueryCompleteCall marks a call completed and stores its analysis.
// Duration runs from started_at, or from creation when the call never
// reached in_progress.
func (c *Client) QueryCompleteCall(ctx context.Context, id, sentiment string, score float64, summary string) (*models.Call, error) {
	defer c.observe(time.Now())

	results, err := surrealdb.Query[[]models.Call](ctx, c.db, `
		UPDATE type::record("call", $id) SET
			status = $status,
			ended_at = time::now(),
			duration_sec = duration::secs(time::now() - (started_at ?? created)),
			sentiment = $sentiment,
			sentiment_score = $score,
			summary = $summary,
			last_activity = time::now()
		RETURN AFTER
	`, map[string]any{
		"id":        id,
		"status":    string(models.CallCompleted),
		"sentiment": sentiment,
		"score":     score,
		"summary":   summary,
	})
	if err != nil {
		return nil, fmt.Errorf("complete call: %w", wrapQueryError(err))
	}

	call := first(results)
	if call == nil {
		return nil, fmt.Errorf("call %s: %w", id, ErrNotFound)
	}
	return call, nil
}

// QueryActiveCalls lists a company's calls that have not ended, newest first.
func (c *Client) QueryActiveCalls(ctx context.Context, companyID string) ([]models.Call, error) {
	defer c.observe(time.Now())

	results, err := surrealdb.Query[[]models.Call](ctx, c.db, `
		SELECT * FROM call
		WHERE company_id = $company AND status IN $statuses
		ORDER BY created DESC
	`, map[string]any{
		"company":  companyID,
		"statuses": []string{string(models.CallInitiated), string(models.CallRinging), string(models.CallInProgress)},
	})
	if err != nil {
		return nil, fmt.Errorf("active calls: %w", err)
	}
	return rows(results), nil
}

// QueryListCalls lists a company's calls, newest first.
func (c *Client) QueryListCalls(ctx context.Context, companyID string, limit int) ([]models.Call, error) {
	defer c.observe(time.Now())

	results, err := surrealdb.Query[[]models.Call](ctx, c.db, `
		SELECT * FROM call WHERE company_id = $company ORDER BY created DESC LIMIT $limit
	`, map[string]any{"company": companyID, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("list calls: %w", err)
	}
	return rows(results), nil
}

type callStatRow struct {
	Status      string  `json:"status"`
	Sentiment   *string `json:"sentiment,omitempty"`
	DurationSec *int    `json:"duration_sec,omitempty"`
}

// QueryCallStats aggregates a company's calls.
func (c *Client) QueryCallStats(ctx context.Context, companyID string) (models.CallStats, error) {
	defer c.observe(time.Now())

	results, err := surrealdb.Query[[]callStatRow](ctx, c.db, `
		SELECT status, sentiment, duration_sec FROM call WHERE company_id = $company
	`, map[string]any{"company": companyID})
	if err != nil {
		return models.CallStats{}, fmt.Errorf("call stats: %w", err)
	}
	return aggregateCallStats(rows(results)), nil
}

func aggregateCallStats(calls []callStatRow) models.CallStats {
	var stats models.CallStats
	var durationSum, durationN int

	for _, r := range calls {
		stats.Total++
		switch models.CallStatus(r.Status) {
		case models.CallCompleted:
			stats.Completed++
			if r.DurationSec != nil {
				durationSum += *r.DurationSec
				durationN++
			}
		case models.CallInProgress:
			stats.InProgress++
		}
		if r.Sentiment != nil {
			switch *r.Sentiment {
			case "positive":
				stats.Positive++
			case "negative":
				stats.Negative++
			}
		}
	}
	if durationN > 0 {
		stats.AvgDurationSec = float64(durationSum) / float64(durationN)
	}
	return stats
}

// QueryFailStaleCalls marks ringing or in-progress calls idle for longer
// than idle as failed. Returns the calls as they were before the update.
func (c *Client) QueryFailStaleCalls(ctx context.Context, idle time.Duration) ([]models.Call, error) {
	defer c.observe(time.Now())

	results, err := surrealdb.Query[[]models.Call](ctx, c.db, `
		UPDATE call SET
			status = $failed,
			ended_at = ended_at ?? time::now()
		WHERE status IN $statuses
			AND last_activity < time::now() - duration::from::secs($idle)
		RETURN BEFORE
	`, map[string]any{
		"failed":   string(models.CallFailed),
		"statuses": []string{string(models.CallRinging), string(models.CallInProgress)},
		"idle":     int64(idle.Seconds()),
	})
	if err != nil {
		return nil, fmt.Errorf("fail stale calls: %w", wrapQueryError(err))
	}
	return rows(results), nil
}
