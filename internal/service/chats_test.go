package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salespilot/salespilot-go/internal/cache"
	"github.com/salespilot/salespilot-go/internal/db"
	"github.com/salespilot/salespilot-go/internal/metrics"
	"github.com/salespilot/salespilot-go/internal/models"
	"github.com/salespilot/salespilot-go/internal/realtime"
	"github.com/salespilot/salespilot-go/internal/suggestion"
	"github.com/salespilot/salespilot-go/internal/whatsapp"
)

type chatFixture struct {
	svc       *ChatService
	store     *memStore
	disp      *recordingDispatcher
	queue     *recordingQueue
	gen       *fixedGenerator
	sender    *stubSender
	collector *metrics.Collector
}

func newChatFixture() chatFixture {
	f := chatFixture{
		store:     newMemStore(),
		disp:      &recordingDispatcher{},
		queue:     &recordingQueue{},
		gen:       &fixedGenerator{},
		sender:    &stubSender{enabled: true},
		collector: metrics.NewCollector(),
	}
	f.svc = NewChatService(f.store, f.store, f.gen, f.disp, f.sender, f.queue, f.collector)
	return f
}

func (f chatFixture) openChat(t *testing.T) string {
	t.Helper()
	chat, err := f.svc.Create(context.Background(), models.ChatInput{CompanyID: "co1", UserID: "u1", Phone: "5511988887777"})
	require.NoError(t, err)
	return models.IDString(chat.ID)
}

func TestChatCreateReusesPhone(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()
	id := f.openChat(t)

	again, err := f.svc.Create(ctx, models.ChatInput{CompanyID: "co1", UserID: "u2", Phone: "5511988887777"})
	require.NoError(t, err)
	assert.Equal(t, id, models.IDString(again.ID))
	assert.Equal(t, "u2", again.UserID)
	assert.True(t, again.Active)

	_, err = f.svc.Create(ctx, models.ChatInput{CompanyID: "co1", Phone: "1"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSendMessage(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()
	id := f.openChat(t)

	msg, err := f.svc.SendMessage(ctx, id, "Olá! Posso ajudar?")
	require.NoError(t, err)
	assert.Equal(t, MessageSent, msg.Status)
	require.NotNil(t, msg.ExternalID)
	assert.Equal(t, "wamid.1", *msg.ExternalID)
	assert.Equal(t, []string{"5511988887777|Olá! Posso ajudar?"}, f.sender.sent)

	toUser := f.disp.to(realtime.UserRoom("u1"))
	require.Len(t, toUser, 1)
	ev := toUser[0].Body.(MessageEvent)
	assert.Equal(t, id, ev.ChatID)
	assert.Equal(t, "Olá! Posso ajudar?", ev.Message.Content)
	assert.Len(t, f.disp.to(realtime.ChatRoom(id)), 1)

	fields := wireFields(t, toUser[0].Body)
	for _, key := range []string{"chatId", "message", "timestamp"} {
		assert.Contains(t, fields, key)
	}
	assert.NotEqual(t, "0", string(fields["timestamp"]))
	var inner map[string]any
	require.NoError(t, json.Unmarshal(fields["message"], &inner))
	assert.Equal(t, "Olá! Posso ajudar?", inner["content"])
}

func TestSendMessageDeliveryFailure(t *testing.T) {
	f := newChatFixture()
	f.sender.err = assert.AnError
	id := f.openChat(t)

	msg, err := f.svc.SendMessage(context.Background(), id, "oi")
	require.NoError(t, err)
	assert.Equal(t, MessageFailed, msg.Status)
	assert.Equal(t, int64(1), f.collector.Snapshot().Counters[metrics.CounterSendFailed])
}

func TestSendMessageWithoutSender(t *testing.T) {
	f := newChatFixture()
	f.sender.enabled = false
	id := f.openChat(t)

	msg, err := f.svc.SendMessage(context.Background(), id, "oi")
	require.NoError(t, err)
	assert.Equal(t, MessagePending, msg.Status)
	assert.Empty(t, f.sender.sent)
}

func TestSendMessageErrors(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()
	id := f.openChat(t)

	_, err := f.svc.SendMessage(ctx, id, "  ")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.SendMessage(ctx, "missing", "oi")
	assert.ErrorIs(t, err, db.ErrNotFound)

	f.store.failCreate = db.ErrTransactionConflict
	_, err = f.svc.SendMessage(ctx, id, "oi")
	assert.ErrorIs(t, err, db.ErrTransactionConflict)
}

func TestHandleIncomingKnownChat(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()
	id := f.openChat(t)

	_, err := f.svc.SendMessage(ctx, id, "Bom dia!")
	require.NoError(t, err)

	msg, err := f.svc.HandleIncoming(ctx, whatsapp.InboundMessage{
		ExternalID: "wamid.in",
		From:       "5511988887777",
		Type:       "text",
		Content:    "Qual o preço?",
	})
	require.NoError(t, err)
	assert.Equal(t, models.DirectionIncoming, msg.Direction)
	assert.Equal(t, id, msg.ChatID)

	tasks := f.queue.suggestionTasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "u1", tasks[0].UserID)
	assert.Equal(t, id, tasks[0].ChatID)
	assert.Equal(t, "Qual o preço?", tasks[0].Trigger)
	assert.Equal(t, "Vendedor: Bom dia!", tasks[0].History)
	assert.Equal(t, suggestion.ChannelChat, tasks[0].Channel)

	chat, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, chat.UnreadCount)
}

func TestHandleIncomingHistoryPrecedesTrigger(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()
	id := f.openChat(t)

	_, err := f.svc.HandleIncoming(ctx, whatsapp.InboundMessage{From: "5511988887777", Type: "text", Content: "Oi, tudo bem?"})
	require.NoError(t, err)
	_, err = f.svc.HandleIncoming(ctx, whatsapp.InboundMessage{From: "5511988887777", Type: "text", Content: "Tem desconto à vista?"})
	require.NoError(t, err)

	tasks := f.queue.suggestionTasks()
	require.Len(t, tasks, 2)
	assert.Empty(t, tasks[0].History)
	assert.Equal(t, "Cliente: Oi, tudo bem?", tasks[1].History)
	assert.NotContains(t, tasks[1].History, tasks[1].Trigger)

	recent, err := f.store.QueryRecentMessages(ctx, id, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestHandleIncomingUnknownPhone(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()

	msg, err := f.svc.HandleIncoming(ctx, whatsapp.InboundMessage{From: "5521977776666", ContactName: "Ana", Type: "text", Content: "oi"})
	require.NoError(t, err)

	chat, err := f.store.QueryGetChat(ctx, msg.ChatID)
	require.NoError(t, err)
	assert.Empty(t, chat.UserID)
	require.NotNil(t, chat.ContactName)
	assert.Equal(t, "Ana", *chat.ContactName)

	assert.Empty(t, f.queue.suggestionTasks(), "unassigned chats get no suggestion")
	assert.Len(t, f.disp.to(realtime.ChatRoom(msg.ChatID)), 1)

	_, err = f.svc.HandleIncoming(ctx, whatsapp.InboundMessage{Content: "oi"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSuggestWithoutCustomerMessage(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()
	id := f.openChat(t)

	_, err := f.svc.SendMessage(ctx, id, "Olá")
	require.NoError(t, err)

	s, err := f.svc.Suggest(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, AwaitingCustomer, s.Text)
	assert.Equal(t, 0.5, s.Confidence)
	assert.Equal(t, suggestion.CategoryGeneral, s.Category)
	assert.Empty(t, f.gen.seen)
}

func TestSuggestUsesLastCustomerMessage(t *testing.T) {
	f := newChatFixture()
	ctx := context.Background()
	id := f.openChat(t)

	_, err := f.svc.HandleIncoming(ctx, whatsapp.InboundMessage{From: "5511988887777", Type: "text", Content: "Primeira"})
	require.NoError(t, err)
	_, err = f.svc.HandleIncoming(ctx, whatsapp.InboundMessage{From: "5511988887777", Type: "text", Content: "Segunda"})
	require.NoError(t, err)
	_, err = f.svc.SendMessage(ctx, id, "Resposta")
	require.NoError(t, err)

	s, err := f.svc.Suggest(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "resposta para segunda", s.Text)

	require.Len(t, f.gen.seen, 1)
	assert.Equal(t, "Segunda", f.gen.seen[0].TriggerMessage)
	assert.Equal(t, "Cliente: Primeira\nCliente: Segunda\nVendedor: Resposta", f.gen.seen[0].History)

	saved, err := f.svc.Suggestions(ctx, id)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "Segunda", saved[0].TriggerText)

	_, err = f.svc.Suggest(ctx, "missing")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestSuggestRecordsLatencyOfCacheHit(t *testing.T) {
	const delay = 60 * time.Millisecond
	gen := suggestion.NewGenerator(cache.NewMemoryCache(16, time.Minute),
		suggestion.WithProvider(&slowCompleter{delay: delay}),
		suggestion.WithProviderTimeout(time.Second))
	f := newChatFixture()
	f.svc = NewChatService(f.store, f.store, gen, f.disp, f.sender, f.queue, f.collector)
	ctx := context.Background()
	id := f.openChat(t)

	_, err := f.svc.HandleIncoming(ctx, whatsapp.InboundMessage{From: "5511988887777", Type: "text", Content: "Parcela em 12x?"})
	require.NoError(t, err)

	first, err := f.svc.Suggest(ctx, id)
	require.NoError(t, err)
	second, err := f.svc.Suggest(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, first.LatencyMs, second.LatencyMs)

	saved := f.store.suggestions
	require.Len(t, saved, 2)
	assert.GreaterOrEqual(t, saved[0].LatencyMs, delay.Milliseconds())
	assert.Less(t, saved[1].LatencyMs, delay.Milliseconds())
}

func TestFormatHistory(t *testing.T) {
	newestFirst := []models.Message{
		{Direction: models.DirectionOutgoing, Content: "c"},
		{Direction: models.DirectionIncoming, Content: "b"},
		{Direction: models.DirectionIncoming, Content: "a"},
	}
	assert.Equal(t, "Cliente: a\nCliente: b\nVendedor: c", formatHistory(newestFirst))
	assert.Empty(t, formatHistory(nil))
}
