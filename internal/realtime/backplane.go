package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const publishTimeout = 2 * time.Second

// envelope is what travels over the Redis channel between instances.
type envelope struct {
	Origin  string          `json:"origin"`
	Room    Room            `json:"room"`
	Payload json.RawMessage `json:"payload"`
}

// Backplane is a RoomRegistry that extends a local registry across server
// instances through Redis pub/sub. Membership stays local; MembersOf adds a
// proxy member that republishes frames so peers can deliver them to their
// own members of the same room.
type Backplane struct {
	local   RoomRegistry
	client  *redis.Client
	channel string
	origin  string
	logger  *slog.Logger
}

var _ RoomRegistry = (*Backplane)(nil)

// NewBackplane wraps local. Run must be started to receive peer traffic.
func NewBackplane(local RoomRegistry, client *redis.Client, channel string, logger *slog.Logger) *Backplane {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backplane{
		local:   local,
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		logger:  logger,
	}
}

func (b *Backplane) Register(conn Conn, userID, companyID string) error {
	return b.local.Register(conn, userID, companyID)
}

func (b *Backplane) Join(conn Conn, room Room)  { b.local.Join(conn, room) }
func (b *Backplane) Leave(conn Conn, room Room) { b.local.Leave(conn, room) }
func (b *Backplane) Unregister(conn Conn)       { b.local.Unregister(conn) }

// MembersOf returns local members plus one proxy for remote instances.
func (b *Backplane) MembersOf(room Room) []Conn {
	return append(b.local.MembersOf(room), &remoteConn{backplane: b, room: room})
}

// Run subscribes to the channel and delivers peer frames until ctx is done.
func (b *Backplane) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	b.logger.Info("backplane subscribed", "channel", b.channel, "origin", b.origin)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.deliver([]byte(msg.Payload))
		}
	}
}

// deliver hands a peer frame to local members. Frames this instance
// published are ignored, it already delivered them locally.
func (b *Backplane) deliver(raw []byte) int {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		b.logger.Warn("backplane message malformed", "error", err)
		return 0
	}
	if env.Origin == b.origin {
		return 0
	}

	delivered := 0
	for _, conn := range b.local.MembersOf(env.Room) {
		if err := conn.Send(env.Payload); err != nil {
			b.logger.Debug("backplane send failed", "room", env.Room, "conn_id", conn.ID(), "error", err)
			continue
		}
		delivered++
	}
	return delivered
}

func (b *Backplane) publish(room Room, frame []byte) error {
	data, err := json.Marshal(envelope{Origin: b.origin, Room: room, Payload: frame})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	return b.client.Publish(ctx, b.channel, data).Err()
}

// remoteConn stands in for every member of room on other instances.
type remoteConn struct {
	backplane *Backplane
	room      Room
}

func (r *remoteConn) ID() string { return "remote:" + r.backplane.origin + ":" + string(r.room) }

func (r *remoteConn) Send(payload []byte) error {
	return r.backplane.publish(r.room, payload)
}
