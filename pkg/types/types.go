package types

import (
	"encoding/json"
	"time"
)

// Room status values. PLAYING is entered by the gameplay layer, never by
// the coordinator itself; the coordinator only refuses joins once a room
// is PLAYING.
const (
	RoomStatusWaiting = "WAITING"
	RoomStatusPlaying = "PLAYING"
)

// Inbound event names carried in the envelope's "event" field.
const (
	EventCreateRoom = "createRoom"
	EventJoinRoom   = "joinRoom"
	EventLeaveRoom  = "leaveRoom"
	EventGetRooms   = "getRooms"
	EventGetRoom    = "getRoom"
)

// Outbound event names.
const (
	EventRooms       = "rooms"
	EventRoomCreated = "roomCreated"
	EventRoomJoined  = "roomJoined"
	EventRoomLeft    = "roomLeft"
	EventRoom        = "room"
	EventUserJoined  = "userJoined"
	EventUserLeft    = "userLeft"
	EventConnected   = "connected"
	EventError       = "error"
)

// Envelope is the wire frame for every message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Member is one user's seat in a room as shown to clients.
type Member struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsReady  bool   `json:"isReady"`
}

// Room is the outward-facing room view. It deliberately carries no
// password field, so a stored hash cannot leak through any encode path.
type Room struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	MaxPlayers int       `json:"maxPlayers"`
	Rounds     int       `json:"rounds"`
	IsPrivate  bool      `json:"isPrivate"`
	OwnerID    string    `json:"ownerId"`
	Status     string    `json:"status"`
	Members    []Member  `json:"members"`
	CreatedAt  time.Time `json:"createdAt"`
}

// LeaveResult is the outcome of a leave: either the surviving room view
// or a dissolution notice when the last member left.
type LeaveResult struct {
	Room      *Room  `json:"room,omitempty"`
	Dissolved bool   `json:"dissolved"`
	RoomID    string `json:"roomId"`
	Message   string `json:"message,omitempty"`
}

// MemberRecord is a membership row as stored, including the join time
// used for the earliest-joined ownership handover.
type MemberRecord struct {
	UserID   string
	Username string
	IsReady  bool
	JoinedAt time.Time
}

// RoomRecord is the store-side representation of a room. It holds the
// password hash and must never be serialized to a client; all outward
// paths go through Room.
type RoomRecord struct {
	ID           string
	Name         string
	MaxPlayers   int
	Rounds       int
	IsPrivate    bool
	PasswordHash string
	OwnerID      string
	Status       string
	CreatedAt    time.Time
	Members      []MemberRecord
}

// MemberCount returns the number of membership rows on the record.
func (r *RoomRecord) MemberCount() int {
	return len(r.Members)
}

// HasMember reports whether userID holds a membership row on the record.
func (r *RoomRecord) HasMember(userID string) bool {
	for _, m := range r.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// User is the store-side user row. PasswordHash and RefreshTokenHash are
// owned by the auth layer and never leave the process.
type User struct {
	ID               string
	Email            string
	Username         string
	PasswordHash     string
	RefreshTokenHash string
	CreatedAt        time.Time
}

// ConnectedPayload acknowledges a successful handshake.
type ConnectedPayload struct {
	UserID  string `json:"userId"`
	Message string `json:"message"`
}

// MembershipPayload accompanies userJoined and userLeft events.
type MembershipPayload struct {
	Room   *Room  `json:"room"`
	UserID string `json:"userId"`
}

// ErrorPayload is pushed for any rejected request.
type ErrorPayload struct {
	Message string `json:"message"`
}
