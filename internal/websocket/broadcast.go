package websocket

import (
	"log/slog"

	"sketchroom/pkg/types"
)

// Broadcaster fans room events out to their audience: a single creator,
// one room's live connections, or everyone. Delivery is best-effort;
// a client that disconnects mid-fanout simply misses the event.
type Broadcaster struct {
	registry *Registry
	log      *slog.Logger
}

func NewBroadcaster(registry *Registry, log *slog.Logger) *Broadcaster {
	return &Broadcaster{registry: registry, log: log}
}

// Rooms pushes the full open-room list to every connected client.
func (b *Broadcaster) Rooms(rooms []*types.Room) {
	for _, conn := range b.registry.All() {
		b.send(conn, types.EventRooms, rooms)
	}
}

// RoomCreated notifies the creator's connection only.
func (b *Broadcaster) RoomCreated(conn *Connection, room *types.Room) {
	b.send(conn, types.EventRoomCreated, room)
}

// UserJoined notifies every connection currently bound to the room.
func (b *Broadcaster) UserJoined(roomID string, room *types.Room, userID string) {
	payload := types.MembershipPayload{Room: room, UserID: userID}
	for _, conn := range b.registry.MembersOf(roomID) {
		b.send(conn, types.EventUserJoined, payload)
	}
}

// UserLeft notifies the room's remaining connections. Callers skip this
// entirely when the room dissolved, since no audience remains.
func (b *Broadcaster) UserLeft(roomID string, room *types.Room, userID string) {
	payload := types.MembershipPayload{Room: room, UserID: userID}
	for _, conn := range b.registry.MembersOf(roomID) {
		b.send(conn, types.EventUserLeft, payload)
	}
}

func (b *Broadcaster) send(conn *Connection, event string, payload any) {
	if err := conn.WriteEvent(event, payload); err != nil {
		b.log.Debug("dropped broadcast", "event", event, "connection_id", conn.ID(), "error", err)
	}
}
