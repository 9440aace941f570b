package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/salespilot/salespilot-go/internal/metrics"
)

// Kind tags what a dispatched payload carries.
type Kind string

const (
	KindSuggestion   Kind = "suggestion"
	KindStatus       Kind = "status"
	KindMessage      Kind = "message"
	KindNotification Kind = "notification"
	KindTyping       Kind = "typing"
	KindPresence     Kind = "presence"
)

// Server-to-client event names.
const (
	EventSuggestion   = "ai:suggestion"
	EventCallStatus   = "call:status"
	EventChatMessage  = "whatsapp:message"
	EventNotification = "notification"
	EventTypingStart  = "typing:start"
	EventTypingStop   = "typing:stop"
	EventUserOnline   = "user:online"
	EventUserOffline  = "user:offline"
	EventAck          = "ack"
	EventError        = "error"
)

var defaultEvents = map[Kind]string{
	KindSuggestion:   EventSuggestion,
	KindStatus:       EventCallStatus,
	KindMessage:      EventChatMessage,
	KindNotification: EventNotification,
}

// Payload is one event addressed to a room.
type Payload struct {
	Kind Kind
	Room Room
	Body any
	// Event overrides the default event name for Kind.
	Event string
	// Except skips the connection with this id, typically the sender.
	Except string
}

// EventName resolves the wire event for p.
func (p Payload) EventName() string {
	if p.Event != "" {
		return p.Event
	}
	if name, ok := defaultEvents[p.Kind]; ok {
		return name
	}
	return string(p.Kind)
}

// Frame is the wire envelope in both directions.
type Frame struct {
	Event string          `json:"event"`
	ID    string          `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EncodeFrame marshals body into a Frame.
func EncodeFrame(event, id string, body any) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode %s body: %w", event, err)
	}
	return json.Marshal(Frame{Event: event, ID: id, Data: data})
}

// Dispatcher is the only component that writes to live connections.
type Dispatcher struct {
	registry RoomRegistry
	metrics  *metrics.Collector
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher over registry. collector may be nil.
func NewDispatcher(registry RoomRegistry, collector *metrics.Collector, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{registry: registry, metrics: collector, logger: logger}
}

// Dispatch sends p to every current member of p.Room and returns how many
// sends succeeded. It never retries and never queues: an empty room drops
// the event, and a failed send does not affect the other members.
func (d *Dispatcher) Dispatch(ctx context.Context, p Payload) int {
	start := time.Now()
	defer func() { d.metrics.RecordTiming(metrics.OpDispatch, time.Since(start)) }()

	members := d.registry.MembersOf(p.Room)
	if len(members) == 0 {
		d.metrics.Inc(metrics.CounterDispatchDropped)
		d.logger.Debug("dispatch dropped, room empty", "room", p.Room, "event", p.EventName())
		return 0
	}

	frame, err := EncodeFrame(p.EventName(), "", p.Body)
	if err != nil {
		d.logger.Error("dispatch encode failed", "room", p.Room, "error", err)
		return 0
	}

	delivered := 0
	for _, conn := range members {
		if p.Except != "" && conn.ID() == p.Except {
			continue
		}
		if err := conn.Send(frame); err != nil {
			d.metrics.Inc(metrics.CounterSendFailed)
			d.logger.Debug("dispatch send failed", "room", p.Room, "conn_id", conn.ID(), "error", err)
			continue
		}
		delivered++
	}
	return delivered
}

// Reply sends a single frame to one connection, used for acks and errors.
func (d *Dispatcher) Reply(conn Conn, event, id string, body any) error {
	frame, err := EncodeFrame(event, id, body)
	if err != nil {
		return err
	}
	return conn.Send(frame)
}
