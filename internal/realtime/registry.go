package realtime

import (
	"errors"
	"sync"
)

// ErrAuthentication is returned when a connection lacks owner ids.
var ErrAuthentication = errors.New("authentication required: userId and companyId must be present")

// Conn is a live client connection. Send must not block and must be safe to
// call after the connection has gone away (it then returns an error).
type Conn interface {
	ID() string
	Send(payload []byte) error
}

// RoomRegistry maps rooms to the connections currently subscribed.
// Implementations must be safe for concurrent use.
type RoomRegistry interface {
	// Register adds conn to user:<userID> and company:<companyID>.
	Register(conn Conn, userID, companyID string) error
	// Join and Leave are idempotent and ignore unregistered connections.
	Join(conn Conn, room Room)
	Leave(conn Conn, room Room)
	// Unregister drops conn from every room it belongs to.
	Unregister(conn Conn)
	// MembersOf returns a snapshot of the room's connections, unordered.
	MembersOf(room Room) []Conn
}

// Owner identifies who a registered connection belongs to.
type Owner struct {
	UserID    string
	CompanyID string
}

type member struct {
	conn  Conn
	owner Owner
	rooms map[Room]struct{}
}

// MemoryRegistry is the single-process RoomRegistry.
type MemoryRegistry struct {
	mu      sync.RWMutex
	members map[string]*member       // connID -> member
	rooms   map[Room]map[string]Conn // room -> connID -> conn
}

var _ RoomRegistry = (*MemoryRegistry)(nil)

// NewMemoryRegistry constructs an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		members: make(map[string]*member),
		rooms:   make(map[Room]map[string]Conn),
	}
}

func (r *MemoryRegistry) Register(conn Conn, userID, companyID string) error {
	if conn == nil || userID == "" || companyID == "" {
		return ErrAuthentication
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[conn.ID()]; ok {
		return nil
	}
	r.members[conn.ID()] = &member{
		conn:  conn,
		owner: Owner{UserID: userID, CompanyID: companyID},
		rooms: make(map[Room]struct{}),
	}
	r.joinLocked(conn, UserRoom(userID))
	r.joinLocked(conn, CompanyRoom(companyID))
	return nil
}

func (r *MemoryRegistry) Join(conn Conn, room Room) {
	r.mu.Lock()
	r.joinLocked(conn, room)
	r.mu.Unlock()
}

func (r *MemoryRegistry) Leave(conn Conn, room Room) {
	r.mu.Lock()
	r.leaveLocked(conn.ID(), room)
	r.mu.Unlock()
}

func (r *MemoryRegistry) Unregister(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[conn.ID()]
	if !ok {
		return
	}
	for room := range m.rooms {
		r.leaveLocked(conn.ID(), room)
	}
	delete(r.members, conn.ID())
}

func (r *MemoryRegistry) MembersOf(room Room) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.rooms[room]
	out := make([]Conn, 0, len(conns))
	for _, c := range conns {
		out = append(out, c)
	}
	return out
}

// OwnerOf returns the ids conn registered with.
func (r *MemoryRegistry) OwnerOf(conn Conn) (Owner, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.members[conn.ID()]
	if !ok {
		return Owner{}, false
	}
	return m.owner, true
}

// RoomsOf returns the rooms conn currently belongs to.
func (r *MemoryRegistry) RoomsOf(conn Conn) []Room {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.members[conn.ID()]
	if !ok {
		return nil
	}
	out := make([]Room, 0, len(m.rooms))
	for room := range m.rooms {
		out = append(out, room)
	}
	return out
}

// joinLocked requires r.mu held for writing.
func (r *MemoryRegistry) joinLocked(conn Conn, room Room) {
	m, ok := r.members[conn.ID()]
	if !ok {
		return
	}
	conns := r.rooms[room]
	if conns == nil {
		conns = make(map[string]Conn)
		r.rooms[room] = conns
	}
	conns[conn.ID()] = conn
	m.rooms[room] = struct{}{}
}

// leaveLocked requires r.mu held for writing.
func (r *MemoryRegistry) leaveLocked(connID string, room Room) {
	if conns, ok := r.rooms[room]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(r.rooms, room)
		}
	}
	if m, ok := r.members[connID]; ok {
		delete(m.rooms, room)
	}
}
