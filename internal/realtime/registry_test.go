package realtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterRequiresIDs(t *testing.T) {
	r := NewMemoryRegistry()

	tests := []struct {
		name      string
		userID    string
		companyID string
	}{
		{"missing user", "", "c1"},
		{"missing company", "u1", ""},
		{"missing both", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Register(newFakeConn("x"), tt.userID, tt.companyID)
			assert.ErrorIs(t, err, ErrAuthentication)
		})
	}
	assert.Empty(t, r.MembersOf(UserRoom("u1")))
}

func TestRegisterJoinsOwnerRooms(t *testing.T) {
	r := NewMemoryRegistry()
	conn := newFakeConn("a")
	require.NoError(t, r.Register(conn, "u1", "c1"))

	assert.ElementsMatch(t, []Room{UserRoom("u1"), CompanyRoom("c1")}, r.RoomsOf(conn))
	owner, ok := r.OwnerOf(conn)
	require.True(t, ok)
	assert.Equal(t, Owner{UserID: "u1", CompanyID: "c1"}, owner)

	// Registering twice is a no-op.
	require.NoError(t, r.Register(conn, "u2", "c2"))
	assert.Empty(t, r.MembersOf(UserRoom("u2")))
}

func TestJoinIsIdempotent(t *testing.T) {
	r := NewMemoryRegistry()
	conn := newFakeConn("a")
	require.NoError(t, r.Register(conn, "u1", "c1"))

	r.Join(conn, CallRoom("call-1"))
	r.Join(conn, CallRoom("call-1"))
	assert.Len(t, r.MembersOf(CallRoom("call-1")), 1)

	r.Leave(conn, CallRoom("call-1"))
	r.Leave(conn, CallRoom("call-1"))
	assert.Empty(t, r.MembersOf(CallRoom("call-1")))
}

func TestJoinIgnoresUnregistered(t *testing.T) {
	r := NewMemoryRegistry()
	r.Join(newFakeConn("ghost"), ChatRoom("chat-1"))
	assert.Empty(t, r.MembersOf(ChatRoom("chat-1")))
}

func TestUnregisterLeavesEveryRoom(t *testing.T) {
	r := NewMemoryRegistry()
	a, b := newFakeConn("a"), newFakeConn("b")
	require.NoError(t, r.Register(a, "u1", "c1"))
	require.NoError(t, r.Register(b, "u2", "c1"))
	r.Join(a, ChatRoom("chat-1"))

	r.Unregister(a)
	r.Unregister(a)

	assert.Empty(t, r.MembersOf(UserRoom("u1")))
	assert.Empty(t, r.MembersOf(ChatRoom("chat-1")))
	assert.Empty(t, r.RoomsOf(a))
	members := r.MembersOf(CompanyRoom("c1"))
	require.Len(t, members, 1)
	assert.Equal(t, "b", members[0].ID())
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewMemoryRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn := newFakeConn(string(rune('A' + i)))
			_ = r.Register(conn, "u1", "c1")
			r.Join(conn, CallRoom("call-1"))
			_ = r.MembersOf(CallRoom("call-1"))
			r.Unregister(conn)
		}(i)
	}
	wg.Wait()

	assert.Empty(t, r.MembersOf(CallRoom("call-1")))
	assert.Empty(t, r.MembersOf(UserRoom("u1")))
}

func TestRoomValid(t *testing.T) {
	assert.True(t, UserRoom("u1").Valid())
	assert.True(t, ChatRoom("x").Valid())
	assert.False(t, UserRoom("").Valid())
	assert.False(t, Room("lobby").Valid())
}
