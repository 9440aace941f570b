package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait   = 10 * time.Second
	pingPeriod  = 30 * time.Second
	readTimeout = 60 * time.Second
	sendBuffer  = 128
)

// Errors returned by WSConn.Send.
var (
	ErrConnClosed = errors.New("connection closed")
	ErrBufferFull = errors.New("connection buffer exceeded")
)

// WSConn wraps a websocket and serializes outbound writes through a
// buffered channel drained by a single write loop.
type WSConn struct {
	id string

	ws     *websocket.Conn
	send   chan []byte
	once   sync.Once
	closed chan struct{}
}

var _ Conn = (*WSConn)(nil)

// NewWSConn constructs a connection with a fresh id. Call Start to begin
// writing.
func NewWSConn(ws *websocket.Conn) *WSConn {
	return &WSConn{
		id:     uuid.NewString(),
		ws:     ws,
		send:   make(chan []byte, sendBuffer),
		closed: make(chan struct{}),
	}
}

func (c *WSConn) ID() string { return c.id }

// Start launches the write loop. It must be called exactly once.
func (c *WSConn) Start() {
	go c.writeLoop()
}

// Send enqueues payload without blocking. A slow client whose buffer is
// full is disconnected. The send channel is never closed, so Send cannot
// panic when racing Close.
func (c *WSConn) Send(payload []byte) error {
	select {
	case <-c.closed:
		return ErrConnClosed
	default:
	}

	select {
	case <-c.closed:
		return ErrConnClosed
	case c.send <- payload:
		return nil
	default:
		c.Close(websocket.CloseGoingAway, "send buffer full")
		return ErrBufferFull
	}
}

// Close sends a close frame and tears down the socket. Safe to call more
// than once.
func (c *WSConn) Close(code int, reason string) {
	c.once.Do(func() {
		close(c.closed)
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
		_ = c.ws.Close()
	})
}

// Done is closed once the connection is closed.
func (c *WSConn) Done() <-chan struct{} {
	return c.closed
}

func (c *WSConn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				c.Close(websocket.CloseAbnormalClosure, "write failed")
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.Close(websocket.CloseAbnormalClosure, "ping failed")
				return
			}
		}
	}
}

func (c *WSConn) write(messageType int, payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(messageType, payload)
}
