package websocket

import "sync"

// Binding is the process-local record tying an open socket to its
// authenticated user and, optionally, the room it currently occupies.
type Binding struct {
	Conn   *Connection
	UserID string
	RoomID string // empty when not in a room
}

// Registry is the in-memory connection index. It is a delivery-audience
// index only; the store remains the arbiter of room invariants.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Binding               // connectionID -> binding
	rooms map[string]map[string]*Connection // roomID -> connectionID -> conn
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*Binding),
		rooms: make(map[string]map[string]*Connection),
	}
}

// Register creates a roomless binding for an authenticated connection.
// A duplicate connection ID should not occur; rejecting it is defensive.
func (r *Registry) Register(conn *Connection) error {
	if conn == nil {
		return ErrNilConnection
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conns[conn.ID()]; exists {
		return ErrDuplicateConnection
	}
	r.conns[conn.ID()] = &Binding{Conn: conn, UserID: conn.UserID()}
	return nil
}

// BindRoom updates the room association; an empty roomID clears it. A
// missing connection ID is a no-op, since the connection may already
// have disconnected.
func (r *Registry) BindRoom(connectionID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	binding, exists := r.conns[connectionID]
	if !exists {
		return
	}

	if binding.RoomID != "" {
		r.removeFromRoom(binding.RoomID, connectionID)
	}
	binding.RoomID = roomID
	if roomID != "" {
		if r.rooms[roomID] == nil {
			r.rooms[roomID] = make(map[string]*Connection)
		}
		r.rooms[roomID][connectionID] = binding.Conn
	}
}

// Lookup returns a copy of the binding.
func (r *Registry) Lookup(connectionID string) (Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	binding, exists := r.conns[connectionID]
	if !exists {
		return Binding{}, false
	}
	return *binding, true
}

// Unregister removes and returns the prior binding atomically, so the
// caller can run leave-effects exactly once even when disconnect races
// an in-flight leave. Idempotent.
func (r *Registry) Unregister(connectionID string) (Binding, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	binding, exists := r.conns[connectionID]
	if !exists {
		return Binding{}, false
	}
	delete(r.conns, connectionID)
	if binding.RoomID != "" {
		r.removeFromRoom(binding.RoomID, connectionID)
	}
	return *binding, true
}

// MembersOf returns the connections currently bound to a room, as of
// call time.
func (r *Registry) MembersOf(roomID string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[roomID]
	conns := make([]*Connection, 0, len(members))
	for _, conn := range members {
		conns = append(conns, conn)
	}
	return conns
}

// All returns every registered connection, for global fanout.
func (r *Registry) All() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Connection, 0, len(r.conns))
	for _, binding := range r.conns {
		conns = append(conns, binding.Conn)
	}
	return conns
}

// Stats reports registry size for the health endpoint.
func (r *Registry) Stats() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return map[string]int{
		"connections":    len(r.conns),
		"occupied_rooms": len(r.rooms),
	}
}

// removeFromRoom must be called with the lock held.
func (r *Registry) removeFromRoom(roomID, connectionID string) {
	if members, exists := r.rooms[roomID]; exists {
		delete(members, connectionID)
		if len(members) == 0 {
			delete(r.rooms, roomID)
		}
	}
}
