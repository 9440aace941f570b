package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/salespilot/salespilot-go/internal/db"
	"github.com/salespilot/salespilot-go/internal/models"
	"github.com/salespilot/salespilot-go/internal/queue"
	"github.com/salespilot/salespilot-go/internal/realtime"
	"github.com/salespilot/salespilot-go/internal/suggestion"
)

// memStore is an in-memory stand-in for *db.Client.
type memStore struct {
	mu            sync.Mutex
	calls         map[string]*models.Call
	chats         map[string]*models.Chat
	messages      []models.Message
	suggestions   []models.SuggestionRecord
	notifications map[string]*models.Notification
	failCreate    error
	seq           int
}

func newMemStore() *memStore {
	return &memStore{
		calls:         map[string]*models.Call{},
		chats:         map[string]*models.Chat{},
		notifications: map[string]*models.Notification{},
	}
}

func (m *memStore) tick() time.Time {
	m.seq++
	return time.Date(2024, 1, 1, 0, 0, m.seq, 0, time.UTC)
}

func (m *memStore) QueryCreateCall(_ context.Context, id string, in models.CallInput) (*models.Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := &models.Call{
		ID:          surrealmodels.NewRecordID("call", id),
		CompanyID:   in.CompanyID,
		UserID:      in.UserID,
		PhoneNumber: in.PhoneNumber,
		Direction:   in.Direction,
		Status:      models.CallInitiated,
		ProviderSID: in.ProviderSID,
		Created:     m.tick(),
	}
	m.calls[id] = c
	cp := *c
	return &cp, nil
}

func (m *memStore) QueryGetCall(_ context.Context, id string) (*models.Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.calls[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) QueryFindCallBySID(_ context.Context, sid string) (*models.Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.calls {
		if c.ProviderSID != nil && *c.ProviderSID == sid {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) QueryUpdateCall(_ context.Context, id string, u models.CallUpdate) (*models.Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.calls[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	if u.Status != nil {
		c.Status = *u.Status
	}
	if u.ProviderSID != nil {
		c.ProviderSID = u.ProviderSID
	}
	if u.RecordingURL != nil {
		c.RecordingURL = u.RecordingURL
	}
	if u.Summary != nil {
		c.Summary = u.Summary
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) QueryAppendTranscript(_ context.Context, id, speaker, text string) (*models.Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.calls[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	line := speaker + ": " + text
	if c.Transcript == "" {
		c.Transcript = line
	} else {
		c.Transcript += "\n" + line
	}
	c.Segments = append(c.Segments, models.TranscriptSegment{Speaker: speaker, Text: text, Timestamp: m.tick()})
	cp := *c
	return &cp, nil
}

func (m *memStore) QueryCompleteCall(_ context.Context, id, sentiment string, score float64, summary string) (*models.Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.calls[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	dur := 42
	c.Status = models.CallCompleted
	c.Sentiment = &sentiment
	c.SentimentScore = &score
	c.Summary = &summary
	c.DurationSec = &dur
	cp := *c
	return &cp, nil
}

func (m *memStore) QueryActiveCalls(_ context.Context, companyID string) ([]models.Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Call
	for _, c := range m.calls {
		if c.CompanyID == companyID && !c.Status.Terminal() {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memStore) QueryListCalls(_ context.Context, companyID string, limit int) ([]models.Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Call
	for _, c := range m.calls {
		if c.CompanyID == companyID {
			out = append(out, *c)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) QueryCallStats(_ context.Context, companyID string) (models.CallStats, error) {
	calls, _ := m.QueryListCalls(context.Background(), companyID, 1000)
	return models.CallStats{Total: len(calls)}, nil
}

// QueryFailStaleCalls fails every in-progress or ringing call and returns
// them as they were before.
func (m *memStore) QueryFailStaleCalls(_ context.Context, _ time.Duration) ([]models.Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var before []models.Call
	for _, c := range m.calls {
		if c.Status == models.CallInProgress || c.Status == models.CallRinging {
			before = append(before, *c)
			c.Status = models.CallFailed
		}
	}
	return before, nil
}

func (m *memStore) QueryCreateChat(_ context.Context, id string, in models.ChatInput) (*models.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := &models.Chat{
		ID:          surrealmodels.NewRecordID("chat", id),
		CompanyID:   in.CompanyID,
		UserID:      in.UserID,
		Phone:       in.Phone,
		ContactName: in.ContactName,
		Active:      true,
		Created:     m.tick(),
	}
	m.chats[id] = c
	cp := *c
	return &cp, nil
}

func (m *memStore) QueryGetChat(_ context.Context, id string) (*models.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chats[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) QueryFindChatByPhone(_ context.Context, companyID, phone string) (*models.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.chats {
		if c.Phone == phone && (companyID == "" || c.CompanyID == companyID) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) QueryActivateChat(_ context.Context, id, userID string) (*models.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chats[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	c.Active = true
	c.UserID = userID
	cp := *c
	return &cp, nil
}

func (m *memStore) QueryListChats(_ context.Context, companyID string, _ int) ([]models.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Chat
	for _, c := range m.chats {
		if c.CompanyID == companyID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memStore) QueryMarkChatRead(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chats[id]
	if !ok {
		return db.ErrNotFound
	}
	c.UnreadCount = 0
	return nil
}

func (m *memStore) QueryCreateMessage(_ context.Context, id string, in models.MessageInput) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate != nil {
		return nil, m.failCreate
	}
	msg := models.Message{
		ID:         surrealmodels.NewRecordID("message", id),
		ChatID:     in.ChatID,
		Direction:  in.Direction,
		Type:       in.Type,
		Content:    in.Content,
		MediaURL:   in.MediaURL,
		ExternalID: in.ExternalID,
		Status:     in.Status,
		Created:    m.tick(),
	}
	m.messages = append(m.messages, msg)
	if c, ok := m.chats[in.ChatID]; ok {
		preview := models.Preview(in.Content, db.PreviewLength)
		c.LastMessagePreview = &preview
		if in.Direction == models.DirectionIncoming {
			c.UnreadCount++
		}
	}
	return &msg, nil
}

func (m *memStore) QueryRecentMessages(_ context.Context, chatID string, limit int) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Message
	for i := len(m.messages) - 1; i >= 0 && len(out) < limit; i-- {
		if m.messages[i].ChatID == chatID {
			out = append(out, m.messages[i])
		}
	}
	return out, nil
}

func (m *memStore) QueryCreateSuggestion(_ context.Context, id string, s models.SuggestionRecord) (*models.SuggestionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = surrealmodels.NewRecordID("suggestion", id)
	s.Created = m.tick()
	m.suggestions = append(m.suggestions, s)
	return &s, nil
}

func (m *memStore) QuerySuggestionsForCall(_ context.Context, callID string, limit int) ([]models.SuggestionRecord, error) {
	return m.suggestionsWhere(func(s models.SuggestionRecord) bool { return s.CallID != nil && *s.CallID == callID }, limit), nil
}

func (m *memStore) QuerySuggestionsForChat(_ context.Context, chatID string, limit int) ([]models.SuggestionRecord, error) {
	return m.suggestionsWhere(func(s models.SuggestionRecord) bool { return s.ChatID != nil && *s.ChatID == chatID }, limit), nil
}

func (m *memStore) suggestionsWhere(keep func(models.SuggestionRecord) bool, limit int) []models.SuggestionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.SuggestionRecord
	for i := len(m.suggestions) - 1; i >= 0 && len(out) < limit; i-- {
		if keep(m.suggestions[i]) {
			out = append(out, m.suggestions[i])
		}
	}
	return out
}

func (m *memStore) QueryMarkSuggestionUsed(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.suggestions {
		if models.IDString(m.suggestions[i].ID) == id {
			m.suggestions[i].Used = true
			return nil
		}
	}
	return db.ErrNotFound
}

func (m *memStore) QueryCreateNotification(_ context.Context, id string, in models.NotificationInput) (*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := &models.Notification{
		ID:        surrealmodels.NewRecordID("notification", id),
		UserID:    in.UserID,
		CompanyID: in.CompanyID,
		Type:      in.Type,
		Title:     in.Title,
		Message:   in.Message,
		Data:      in.Data,
		Created:   m.tick(),
	}
	m.notifications[id] = n
	cp := *n
	return &cp, nil
}

func (m *memStore) QueryListNotifications(_ context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, n := range m.notifications {
		if n.UserID == userID && (!unreadOnly || !n.Read) {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Created.After(out[j].Created) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) QueryUnreadCount(ctx context.Context, userID string) (int, error) {
	unread, _ := m.QueryListNotifications(ctx, userID, true, 1000)
	return len(unread), nil
}

func (m *memStore) QueryMarkNotificationRead(_ context.Context, id, userID string) (*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok || n.UserID != userID {
		return nil, db.ErrNotFound
	}
	n.Read = true
	cp := *n
	return &cp, nil
}

func (m *memStore) QueryMarkAllRead(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			count++
		}
	}
	return count, nil
}

// recordingDispatcher captures every dispatched payload.
type recordingDispatcher struct {
	mu       sync.Mutex
	payloads []realtime.Payload
}

func (d *recordingDispatcher) Dispatch(_ context.Context, p realtime.Payload) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.payloads = append(d.payloads, p)
	return 1
}

func (d *recordingDispatcher) to(room realtime.Room) []realtime.Payload {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []realtime.Payload
	for _, p := range d.payloads {
		if p.Room == room {
			out = append(out, p)
		}
	}
	return out
}

// recordingQueue captures enqueued tasks without running them.
type recordingQueue struct {
	mu    sync.Mutex
	tasks []queue.Task
	err   error
}

func (q *recordingQueue) Enqueue(_ context.Context, t queue.Task, _ ...queue.EnqueueOption) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return "", q.err
	}
	q.tasks = append(q.tasks, t)
	return "task-1", nil
}

func (q *recordingQueue) Close() error { return nil }

func (q *recordingQueue) suggestionTasks() []SuggestionTask {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []SuggestionTask
	for _, t := range q.tasks {
		if t.Type != TaskSuggestion {
			continue
		}
		var st SuggestionTask
		if err := json.Unmarshal(t.Payload, &st); err == nil {
			out = append(out, st)
		}
	}
	return out
}

// fixedGenerator echoes the trigger back and records every context.
type fixedGenerator struct {
	mu   sync.Mutex
	seen []suggestion.ConversationContext
}

func (g *fixedGenerator) Generate(_ context.Context, cc suggestion.ConversationContext) suggestion.Suggestion {
	g.mu.Lock()
	g.seen = append(g.seen, cc)
	g.mu.Unlock()
	return suggestion.Suggestion{
		Text:          "resposta para " + strings.ToLower(cc.TriggerMessage),
		Confidence:    0.85,
		Category:      suggestion.CategoryGeneral,
		Channel:       cc.Channel,
		SourceTrigger: cc.TriggerMessage,
		Source:        suggestion.SourceProvider,
		Model:         "test-model",
		LatencyMs:     12,
	}
}

// stubSender records outbound messages.
type stubSender struct {
	enabled bool
	err     error
	sent    []string
}

func (s *stubSender) Enabled() bool { return s.enabled }

func (s *stubSender) SendText(_ context.Context, phone, text string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.sent = append(s.sent, phone+"|"+text)
	return "wamid.1", nil
}

// wireFields marshals a dispatched body the way the dispatcher does and
// returns its top-level fields.
func wireFields(t *testing.T, body any) map[string]json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &fields))
	return fields
}
