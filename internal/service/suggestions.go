package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/salespilot/salespilot-go/internal/metrics"
	"github.com/salespilot/salespilot-go/internal/models"
	"github.com/salespilot/salespilot-go/internal/queue"
	"github.com/salespilot/salespilot-go/internal/realtime"
	"github.com/salespilot/salespilot-go/internal/suggestion"
)

// TaskSuggestion is the queue task type for background suggestions.
const TaskSuggestion = "suggestion:generate"

// SuggestionQueue is the queue suggestion tasks are enqueued on.
const SuggestionQueue = "suggestions"

// SuggestionTimeout bounds one background suggestion end to end.
const SuggestionTimeout = 30 * time.Second

// SuggestionTask is the payload of a TaskSuggestion. Exactly one of CallID
// and ChatID is set.
type SuggestionTask struct {
	UserID  string             `json:"userId"`
	CallID  string             `json:"callId,omitempty"`
	ChatID  string             `json:"chatId,omitempty"`
	Trigger string             `json:"trigger"`
	History string             `json:"history,omitempty"`
	Channel suggestion.Channel `json:"channel"`
}

// SuggestionEvent is the body of an ai:suggestion dispatch.
type SuggestionEvent struct {
	ID         string                `json:"id,omitempty"`
	CallID     string                `json:"callId,omitempty"`
	ChatID     string                `json:"chatId,omitempty"`
	Suggestion suggestion.Suggestion `json:"suggestion"`
	Timestamp  int64                 `json:"timestamp"`
}

// enqueueSuggestion hands a suggestion task to the queue. Enqueue failures
// are logged and swallowed, the triggering request still succeeds.
func enqueueSuggestion(ctx context.Context, q queue.Client, task SuggestionTask) {
	payload, err := json.Marshal(task)
	if err != nil {
		slog.Error("encode suggestion task", "error", err)
		return
	}
	id, err := q.Enqueue(ctx, queue.Task{Type: TaskSuggestion, Payload: payload}, queue.EnqueueOption{
		Queue:    SuggestionQueue,
		Deadline: time.Now().Add(SuggestionTimeout),
	})
	if err != nil {
		slog.Warn("suggestion task not enqueued", "call_id", task.CallID, "chat_id", task.ChatID, "error", err)
		return
	}
	slog.Debug("suggestion task enqueued", "task_id", id, "call_id", task.CallID, "chat_id", task.ChatID)
}

// SuggestionWorker generates, persists and dispatches one suggestion per
// task. It is the error boundary of the background path: every failure is
// logged and counted, none is returned to the queue.
type SuggestionWorker struct {
	generator  Generator
	store      SuggestionStore
	dispatcher Dispatcher
	metrics    *metrics.Collector
	now        func() time.Time
}

// NewSuggestionWorker creates a worker. collector may be nil.
func NewSuggestionWorker(g Generator, store SuggestionStore, d Dispatcher, collector *metrics.Collector) *SuggestionWorker {
	return &SuggestionWorker{generator: g, store: store, dispatcher: d, metrics: collector, now: time.Now}
}

// Register binds the worker to TaskSuggestion on srv.
func (w *SuggestionWorker) Register(srv queue.Server) {
	srv.Register(TaskSuggestion, w.Handle)
}

// Handle implements queue.Handler. It always returns nil.
func (w *SuggestionWorker) Handle(ctx context.Context, t queue.Task) error {
	start := w.now()
	defer func() { w.metrics.RecordTiming(metrics.OpSuggestionTask, w.now().Sub(start)) }()

	var task SuggestionTask
	if err := json.Unmarshal(t.Payload, &task); err != nil {
		w.metrics.Inc(metrics.CounterTaskFailed)
		slog.Error("decode suggestion task", "error", err)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, SuggestionTimeout)
	defer cancel()

	if err := w.Run(ctx, task); err != nil {
		w.metrics.Inc(metrics.CounterTaskFailed)
		slog.Error("suggestion task failed", "call_id", task.CallID, "chat_id", task.ChatID, "error", err)
	}
	return nil
}

// Run executes one task. Persistence errors are logged and the suggestion
// is still dispatched.
func (w *SuggestionWorker) Run(ctx context.Context, task SuggestionTask) error {
	if task.UserID == "" {
		return fmt.Errorf("%w: suggestion task without user", ErrValidation)
	}

	start := w.now()
	s := w.generator.Generate(ctx, suggestion.ConversationContext{
		TriggerMessage: task.Trigger,
		History:        task.History,
		Channel:        task.Channel,
	})
	latency := w.now().Sub(start)
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("suggestion abandoned: %w", err)
	}

	event := SuggestionEvent{
		CallID:     task.CallID,
		ChatID:     task.ChatID,
		Suggestion: s,
		Timestamp:  w.now().UnixMilli(),
	}

	if w.store != nil {
		rec, err := w.store.QueryCreateSuggestion(ctx, uuid.NewString(), recordFor(task, s, latency))
		if err != nil {
			slog.Warn("persist suggestion failed", "call_id", task.CallID, "chat_id", task.ChatID, "error", err)
		} else {
			event.ID = models.IDString(rec.ID)
		}
	}

	n := w.dispatcher.Dispatch(ctx, realtime.Payload{
		Kind: realtime.KindSuggestion,
		Room: realtime.UserRoom(task.UserID),
		Body: event,
	})
	slog.Debug("suggestion dispatched", "user_id", task.UserID, "delivered", n, "source", s.Source, "latency_ms", latency.Milliseconds())
	return nil
}

// recordFor builds the stored suggestion. latency is the duration of this
// generation, which differs from s.LatencyMs when s came from the cache.
func recordFor(task SuggestionTask, s suggestion.Suggestion, latency time.Duration) models.SuggestionRecord {
	rec := models.SuggestionRecord{
		UserID:      task.UserID,
		Category:    string(s.Category),
		Content:     s.Text,
		Confidence:  s.Confidence,
		TriggerText: task.Trigger,
		Channel:     string(task.Channel),
		Model:       s.Model,
		LatencyMs:   latency.Milliseconds(),
	}
	if rec.Model == "" {
		rec.Model = s.Source
	}
	if task.CallID != "" {
		rec.CallID = &task.CallID
	}
	if task.ChatID != "" {
		rec.ChatID = &task.ChatID
	}
	return rec
}
