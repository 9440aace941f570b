package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// Event is an inbound occurrence routed through the Bus.
type Event struct {
	Name string
	// Conn is the originating connection, nil for server-side events.
	Conn Conn
	// ID correlates an ack with the client request.
	ID   string
	Data json.RawMessage
}

// Decode unmarshals the event data into v.
func (e Event) Decode(v any) error {
	if len(e.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode %s: %w", e.Name, err)
	}
	return nil
}

// HandlerFunc handles one event.
type HandlerFunc func(ctx context.Context, ev Event) error

// Token identifies a subscription for Unsubscribe.
type Token uint64

type subscription struct {
	token   Token
	handler HandlerFunc
}

// Bus is a synchronous publish/subscribe registry keyed by event name.
type Bus struct {
	mu     sync.RWMutex
	next   Token
	subs   map[string][]subscription
	events map[Token]string
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		subs:   make(map[string][]subscription),
		events: make(map[Token]string),
	}
}

// Subscribe registers h for event. Handlers run in subscription order.
func (b *Bus) Subscribe(event string, h HandlerFunc) Token {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	t := b.next
	b.subs[event] = append(b.subs[event], subscription{token: t, handler: h})
	b.events[t] = event
	return t
}

// Unsubscribe removes a subscription. Reports whether t was active.
func (b *Bus) Unsubscribe(t Token) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	event, ok := b.events[t]
	if !ok {
		return false
	}
	delete(b.events, t)

	subs := b.subs[event]
	for i, s := range subs {
		if s.token == t {
			b.subs[event] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subs[event]) == 0 {
		delete(b.subs, event)
	}
	return true
}

// ErrNoHandler is returned by Publish when nothing is subscribed to the event.
var ErrNoHandler = errors.New("no handler for event")

// Publish runs every handler subscribed to ev.Name and joins their errors.
func (b *Bus) Publish(ctx context.Context, ev Event) error {
	b.mu.RLock()
	subs := append([]subscription(nil), b.subs[ev.Name]...)
	b.mu.RUnlock()

	if len(subs) == 0 {
		return fmt.Errorf("%w: %s", ErrNoHandler, ev.Name)
	}

	var errs []error
	for _, s := range subs {
		if err := s.handler(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
