package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/salespilot/salespilot-go/internal/metrics"
)

// Client-to-server event names.
const (
	EventJoinCall  = "join:call"
	EventLeaveCall = "leave:call"
	EventJoinChat  = "join:chat"
	EventLeaveChat = "leave:chat"
	EventPing      = "ping"
)

const maxFrameBytes = 1 << 20

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type callRef struct {
	CallID string `json:"callId"`
}

type chatRef struct {
	ChatID string `json:"chatId"`
}

// Ack bodies.
type (
	joinAck struct {
		Success bool `json:"success"`
	}
	pongAck struct {
		Pong      bool  `json:"pong"`
		Timestamp int64 `json:"timestamp"`
	}
	errorBody struct {
		Code  string `json:"code"`
		Error string `json:"error"`
	}
)

// TypingBody is relayed to a chat room on typing:start and typing:stop.
type TypingBody struct {
	ChatID string `json:"chatId"`
	UserID string `json:"userId"`
}

// PresenceBody is sent to a company room on user:online and user:offline.
type PresenceBody struct {
	UserID    string `json:"userId"`
	Timestamp int64  `json:"timestamp"`
}

// Gateway upgrades HTTP requests to websocket connections, registers them
// and routes their frames through the Bus.
type Gateway struct {
	registry   RoomRegistry
	dispatcher *Dispatcher
	bus        *Bus
	metrics    *metrics.Collector
	logger     *slog.Logger
	now        func() time.Time

	mu       sync.Mutex
	presence map[string]int    // userID -> open connections on this instance
	owners   map[string]string // connID -> userID
	tokens   []Token
}

// NewGateway wires the built-in client event handlers onto bus.
func NewGateway(registry RoomRegistry, dispatcher *Dispatcher, bus *Bus, collector *metrics.Collector, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gateway{
		registry:   registry,
		dispatcher: dispatcher,
		bus:        bus,
		metrics:    collector,
		logger:     logger,
		now:        time.Now,
		presence:   make(map[string]int),
		owners:     make(map[string]string),
	}

	g.tokens = []Token{
		bus.Subscribe(EventJoinCall, g.handleJoinCall),
		bus.Subscribe(EventLeaveCall, g.handleLeaveCall),
		bus.Subscribe(EventJoinChat, g.handleJoinChat),
		bus.Subscribe(EventLeaveChat, g.handleLeaveChat),
		bus.Subscribe(EventTypingStart, g.handleTyping(EventTypingStart)),
		bus.Subscribe(EventTypingStop, g.handleTyping(EventTypingStop)),
		bus.Subscribe(EventPing, g.handlePing),
	}
	return g
}

// Close removes the gateway's bus subscriptions.
func (g *Gateway) Close() {
	for _, t := range g.tokens {
		g.bus.Unsubscribe(t)
	}
}

// Credentials extracts the handshake ids from query params or headers.
func Credentials(r *http.Request) (userID, companyID string) {
	q := r.URL.Query()
	userID = q.Get("userId")
	if userID == "" {
		userID = r.Header.Get("X-User-Id")
	}
	companyID = q.Get("companyId")
	if companyID == "" {
		companyID = r.Header.Get("X-Company-Id")
	}
	return userID, companyID
}

// ServeHTTP handles one websocket session until the client disconnects.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the response.
		g.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	conn := NewWSConn(ws)
	userID, companyID := Credentials(r)
	if err := g.registry.Register(conn, userID, companyID); err != nil {
		g.logger.Warn("websocket handshake rejected", "conn_id", conn.ID(), "error", err)
		// The write loop is not running yet, so write the error frame directly.
		if frame, encErr := EncodeFrame(EventError, "", errorBody{Code: "unauthorized", Error: err.Error()}); encErr == nil {
			_ = conn.write(websocket.TextMessage, frame)
		}
		conn.Close(websocket.ClosePolicyViolation, "authentication required")
		return
	}
	conn.Start()
	g.metrics.Inc(metrics.CounterConnections)
	g.logger.Info("client connected", "conn_id", conn.ID(), "user_id", userID, "company_id", companyID)
	g.connected(conn, userID, companyID)

	defer func() {
		g.registry.Unregister(conn)
		conn.Close(websocket.CloseNormalClosure, "session closed")
		g.disconnected(conn, companyID)
		g.logger.Info("client disconnected", "conn_id", conn.ID(), "user_id", userID)
	}()

	ws.SetReadLimit(maxFrameBytes)
	_ = ws.SetReadDeadline(time.Now().Add(readTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) &&
				!errors.Is(err, websocket.ErrCloseSent) {
				g.logger.Debug("websocket read ended", "conn_id", conn.ID(), "error", err)
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(readTimeout))

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil || frame.Event == "" {
			g.replyError(conn, "", "bad_request", "invalid frame")
			continue
		}

		ev := Event{Name: frame.Event, Conn: conn, ID: frame.ID, Data: frame.Data}
		if err := g.bus.Publish(r.Context(), ev); err != nil {
			if errors.Is(err, ErrNoHandler) {
				g.replyError(conn, frame.ID, "unsupported_event", "unknown event "+frame.Event)
				continue
			}
			g.replyError(conn, frame.ID, "bad_request", err.Error())
		}
	}
}

// connected tracks presence and announces the first connection of a user.
func (g *Gateway) connected(conn Conn, userID, companyID string) {
	g.mu.Lock()
	g.owners[conn.ID()] = userID
	g.presence[userID]++
	first := g.presence[userID] == 1
	g.mu.Unlock()

	if first {
		g.dispatcher.Dispatch(context.Background(), Payload{
			Kind:   KindPresence,
			Event:  EventUserOnline,
			Room:   CompanyRoom(companyID),
			Body:   PresenceBody{UserID: userID, Timestamp: g.now().UnixMilli()},
			Except: conn.ID(),
		})
	}
}

// disconnected announces when a user's last connection closes.
func (g *Gateway) disconnected(conn Conn, companyID string) {
	g.mu.Lock()
	userID, ok := g.owners[conn.ID()]
	delete(g.owners, conn.ID())
	last := false
	if ok {
		g.presence[userID]--
		if g.presence[userID] <= 0 {
			delete(g.presence, userID)
			last = true
		}
	}
	g.mu.Unlock()

	if last {
		g.dispatcher.Dispatch(context.Background(), Payload{
			Kind:  KindPresence,
			Event: EventUserOffline,
			Room:  CompanyRoom(companyID),
			Body:  PresenceBody{UserID: userID, Timestamp: g.now().UnixMilli()},
		})
	}
}

// Online reports whether userID has a connection on this instance.
func (g *Gateway) Online(userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.presence[userID] > 0
}

func (g *Gateway) handleJoinCall(_ context.Context, ev Event) error {
	var ref callRef
	if err := ev.Decode(&ref); err != nil {
		return err
	}
	if ref.CallID == "" {
		return errors.New("callId is required")
	}
	g.registry.Join(ev.Conn, CallRoom(ref.CallID))
	return g.dispatcher.Reply(ev.Conn, EventAck, ev.ID, joinAck{Success: true})
}

func (g *Gateway) handleLeaveCall(_ context.Context, ev Event) error {
	var ref callRef
	if err := ev.Decode(&ref); err != nil {
		return err
	}
	if ref.CallID == "" {
		return errors.New("callId is required")
	}
	g.registry.Leave(ev.Conn, CallRoom(ref.CallID))
	return g.dispatcher.Reply(ev.Conn, EventAck, ev.ID, joinAck{Success: true})
}

func (g *Gateway) handleJoinChat(_ context.Context, ev Event) error {
	var ref chatRef
	if err := ev.Decode(&ref); err != nil {
		return err
	}
	if ref.ChatID == "" {
		return errors.New("chatId is required")
	}
	g.registry.Join(ev.Conn, ChatRoom(ref.ChatID))
	return g.dispatcher.Reply(ev.Conn, EventAck, ev.ID, joinAck{Success: true})
}

func (g *Gateway) handleLeaveChat(_ context.Context, ev Event) error {
	var ref chatRef
	if err := ev.Decode(&ref); err != nil {
		return err
	}
	if ref.ChatID == "" {
		return errors.New("chatId is required")
	}
	g.registry.Leave(ev.Conn, ChatRoom(ref.ChatID))
	return g.dispatcher.Reply(ev.Conn, EventAck, ev.ID, joinAck{Success: true})
}

func (g *Gateway) handleTyping(event string) HandlerFunc {
	return func(ctx context.Context, ev Event) error {
		var ref chatRef
		if err := ev.Decode(&ref); err != nil {
			return err
		}
		if ref.ChatID == "" {
			return errors.New("chatId is required")
		}

		g.mu.Lock()
		userID := g.owners[ev.Conn.ID()]
		g.mu.Unlock()

		g.dispatcher.Dispatch(ctx, Payload{
			Kind:   KindTyping,
			Event:  event,
			Room:   ChatRoom(ref.ChatID),
			Body:   TypingBody{ChatID: ref.ChatID, UserID: userID},
			Except: ev.Conn.ID(),
		})
		return nil
	}
}

func (g *Gateway) handlePing(_ context.Context, ev Event) error {
	return g.dispatcher.Reply(ev.Conn, EventAck, ev.ID, pongAck{Pong: true, Timestamp: g.now().UnixMilli()})
}

func (g *Gateway) replyError(conn Conn, id, code, msg string) {
	if err := g.dispatcher.Reply(conn, EventError, id, errorBody{Code: code, Error: msg}); err != nil {
		g.logger.Debug("error reply failed", "conn_id", conn.ID(), "error", err)
	}
}
