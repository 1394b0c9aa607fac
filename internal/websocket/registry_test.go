package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubConn builds a Connection without a socket; registry operations
// never touch the wire.
func stubConn(id, userID string) *Connection {
	return &Connection{id: id, userID: userID}
}

func TestRegisterAndLookup(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()

	req.ErrorIs(r.Register(nil), ErrNilConnection)

	conn := stubConn("c1", "u1")
	req.NoError(r.Register(conn))
	req.ErrorIs(r.Register(conn), ErrDuplicateConnection)

	binding, ok := r.Lookup("c1")
	req.True(ok)
	req.Equal("u1", binding.UserID)
	req.Empty(binding.RoomID)

	_, ok = r.Lookup("missing")
	req.False(ok)
}

func TestBindRoom(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()

	req.NoError(r.Register(stubConn("c1", "u1")))
	req.NoError(r.Register(stubConn("c2", "u2")))

	r.BindRoom("c1", "room-1")
	r.BindRoom("c2", "room-1")
	req.Len(r.MembersOf("room-1"), 2)

	// Rebinding moves the connection out of its old room.
	r.BindRoom("c1", "room-2")
	req.Len(r.MembersOf("room-1"), 1)
	req.Len(r.MembersOf("room-2"), 1)

	// Empty roomID clears the association.
	r.BindRoom("c1", "")
	req.Empty(r.MembersOf("room-2"))
	binding, ok := r.Lookup("c1")
	req.True(ok)
	req.Empty(binding.RoomID)

	// Unknown connection is a no-op.
	r.BindRoom("missing", "room-1")
	req.Len(r.MembersOf("room-1"), 1)
}

func TestUnregisterReturnsBindingOnce(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()

	req.NoError(r.Register(stubConn("c1", "u1")))
	r.BindRoom("c1", "room-1")

	binding, ok := r.Unregister("c1")
	req.True(ok)
	req.Equal("u1", binding.UserID)
	req.Equal("room-1", binding.RoomID)
	req.Empty(r.MembersOf("room-1"))

	// Second call finds nothing; disconnect racing an explicit leave
	// relies on this.
	_, ok = r.Unregister("c1")
	req.False(ok)
}

func TestLookupReturnsCopy(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()

	req.NoError(r.Register(stubConn("c1", "u1")))
	binding, ok := r.Lookup("c1")
	req.True(ok)

	binding.RoomID = "mutated"
	fresh, _ := r.Lookup("c1")
	req.Empty(fresh.RoomID)
}

func TestAllAndStats(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(stubConn("c1", "u1")))
	require.NoError(t, r.Register(stubConn("c2", "u2")))
	r.BindRoom("c1", "room-1")

	assert.Len(t, r.All(), 2)
	stats := r.Stats()
	assert.Equal(t, 2, stats["connections"])
	assert.Equal(t, 1, stats["occupied_rooms"])

	r.Unregister("c1")
	stats = r.Stats()
	assert.Equal(t, 1, stats["connections"])
	assert.Equal(t, 0, stats["occupied_rooms"])
}
