package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/salespilot/salespilot-go/internal/client"
	"github.com/salespilot/salespilot-go/internal/realtime"
)

func event(name, data string) client.Event {
	return client.Event{Name: name, Data: json.RawMessage(data)}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		ev   client.Event
		want string
	}{
		{
			name: "call suggestion",
			ev:   event(realtime.EventSuggestion, `{"callId":"c1","suggestion":{"text":"Posso oferecer parcelamento","confidence":0.85,"category":"objection"}}`),
			want: "call c1 [objection] Posso oferecer parcelamento (85%)",
		},
		{
			name: "chat suggestion",
			ev:   event(realtime.EventSuggestion, `{"chatId":"w1","suggestion":{"text":"Oi!","confidence":0.5,"category":"general"}}`),
			want: "chat w1 [general] Oi! (50%)",
		},
		{
			name: "call status with duration",
			ev:   event(realtime.EventCallStatus, `{"callId":"c1","status":"completed","previousStatus":"in_progress","duration":95,"sentiment":"positive"}`),
			want: "call c1: in_progress -> completed (95s), positive",
		},
		{
			name: "call status without previous",
			ev:   event(realtime.EventCallStatus, `{"callId":"c1","status":"ringing"}`),
			want: "call c1: ringing",
		},
		{
			name: "incoming message",
			ev:   event(realtime.EventChatMessage, `{"chatId":"w1","message":{"direction":"incoming","content":"Qual o preço?"}}`),
			want: "chat w1 <- Qual o preço?",
		},
		{
			name: "outgoing message",
			ev:   event(realtime.EventChatMessage, `{"chatId":"w1","message":{"direction":"outgoing","content":"R$ 99"}}`),
			want: "chat w1 -> R$ 99",
		},
		{
			name: "notification",
			ev:   event(realtime.EventNotification, `{"notification":{"id":"n1","title":"Nova mensagem","message":"Cliente respondeu"},"timestamp":1767225600000}`),
			want: "Nova mensagem: Cliente respondeu",
		},
		{
			name: "typing",
			ev:   event(realtime.EventTypingStart, `{"chatId":"w1","userId":"u2"}`),
			want: "u2 started typing in chat w1",
		},
		{
			name: "presence",
			ev:   event(realtime.EventUserOffline, `{"userId":"u2","timestamp":1}`),
			want: "u2 went offline",
		},
		{
			name: "error",
			ev:   event(realtime.EventError, `{"code":"bad_request","error":"callId is required"}`),
			want: "bad_request: callId is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, describe(tt.ev))
		})
	}
}

func TestIsKeepalive(t *testing.T) {
	assert.True(t, isKeepalive(event(realtime.EventAck, `{"pong":true,"timestamp":1}`)))
	assert.False(t, isKeepalive(event(realtime.EventAck, `{"success":true}`)))
	assert.False(t, isKeepalive(event(realtime.EventSuggestion, `{"pong":true}`)))
}

func TestPrintEvent(t *testing.T) {
	ev := event(realtime.EventCallStatus, `{"callId":"c1","status":"ringing"}`)

	t.Run("json lines", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, printEvent(&buf, outputJSON, ev))
		assert.JSONEq(t, `{"event":"call:status","data":{"callId":"c1","status":"ringing"}}`, buf.String())
	})

	t.Run("yaml documents", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, printEvent(&buf, outputYAML, ev))
		out := buf.String()
		assert.True(t, strings.HasPrefix(out, "---\n"))

		var doc map[string]any
		require.NoError(t, yaml.Unmarshal([]byte(strings.TrimPrefix(out, "---\n")), &doc))
		assert.Equal(t, "call:status", doc["event"])
	})

	t.Run("keepalive skipped", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, printEvent(&buf, outputText, event(realtime.EventAck, `{"pong":true}`)))
		assert.Empty(t, buf.String())
	})
}

func TestFeedModel(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 14, 30, 0, 0, time.UTC)
	m := newFeedModel("agent u1")
	m.now = func() time.Time { return fixed }

	assert.Contains(t, m.renderContent(), "[connecting]")

	next, _ := m.Update(eventMsg(event(realtime.EventAck, `{"success":true}`)))
	m = next.(feedModel)
	assert.True(t, m.joined)
	assert.Contains(t, m.renderContent(), "[live]")

	next, _ = m.Update(eventMsg(event(realtime.EventAck, `{"pong":true}`)))
	m = next.(feedModel)
	assert.Empty(t, m.lines)

	next, _ = m.Update(eventMsg(event(realtime.EventSuggestion, `{"callId":"c1","suggestion":{"text":"Ofereça um desconto","confidence":0.85,"category":"objection"}}`)))
	m = next.(feedModel)
	require.Len(t, m.lines, 1)
	assert.Equal(t, "Ofereça um desconto", m.latest)
	assert.InDelta(t, 0.85, m.confidence, 1e-9)

	view := m.renderContent()
	assert.Contains(t, view, "Ofereça um desconto")
	assert.Contains(t, view, "14:30:00")

	next, cmd := m.Update(watchDoneMsg{})
	m = next.(feedModel)
	assert.True(t, m.done)
	require.NotNil(t, cmd)
	assert.Contains(t, m.renderContent(), "Server closed the connection.")
}

func TestFeedModelTrimsLines(t *testing.T) {
	m := newFeedModel("agent u1")
	for i := 0; i < maxFeedLines+5; i++ {
		next, _ := m.Update(eventMsg(event(realtime.EventUserOnline, `{"userId":"u2"}`)))
		m = next.(feedModel)
	}
	assert.Len(t, m.lines, maxFeedLines)
}

func TestFeedModelQuit(t *testing.T) {
	m := newFeedModel("agent u1")
	next, cmd := m.Update(tea.KeyPressMsg{Code: 'q', Text: "q"})
	m = next.(feedModel)
	assert.True(t, m.quitting)
	require.NotNil(t, cmd)
}

func TestReadTranscript(t *testing.T) {
	analyzeFile = ""

	got, err := readTranscript(strings.NewReader(""), []string{"  Cliente: ótimo  "})
	require.NoError(t, err)
	assert.Equal(t, "Cliente: ótimo", got)

	got, err = readTranscript(strings.NewReader("Cliente: caro demais\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, "Cliente: caro demais", got)

	_, err = readTranscript(strings.NewReader("   "), nil)
	assert.Error(t, err)
}

func TestSuggestCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req client.SuggestRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Está muito caro", req.CurrentMessage)
		assert.Equal(t, "Vendedor: Olá", req.ConversationHistory)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"suggestion":"Entendo, posso mostrar o retorno?","confidence":0.85,"type":"objection","context":"call"}`))
	}))
	defer srv.Close()
	t.Cleanup(func() {
		output = outputText
		rootCmd.SetOut(nil)
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"suggest", "Está", "muito", "caro", "--history", "Vendedor: Olá", "--server", srv.URL, "-o", "json"})
	require.NoError(t, rootCmd.Execute())

	var res client.SuggestResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, "objection", res.Type)
}

func TestRejectsUnknownOutput(t *testing.T) {
	rootCmd.SetArgs([]string{"health", "-o", "xml"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
	output = outputText
}
