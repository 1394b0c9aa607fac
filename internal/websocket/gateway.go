package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"sketchroom/internal/auth"
	"sketchroom/internal/config"
	"sketchroom/internal/room"
	"sketchroom/pkg/interfaces"
	"sketchroom/pkg/types"
)

// Gateway terminates WebSocket connections: it authenticates the
// handshake, registers the binding, dispatches room events to the
// lifecycle engine, and runs leave-effects on disconnect.
type Gateway struct {
	registry    *Registry
	broadcaster *Broadcaster
	engine      *room.Engine
	gate        *auth.Gate
	cfg         config.WebSocketConfig
	upgrader    websocket.Upgrader
	log         *slog.Logger
}

func NewGateway(registry *Registry, broadcaster *Broadcaster, engine *room.Engine, gate *auth.Gate, cfg config.WebSocketConfig, log *slog.Logger) *Gateway {
	return &Gateway{
		registry:    registry,
		broadcaster: broadcaster,
		engine:      engine,
		gate:        gate,
		cfg:         cfg,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			CheckOrigin: func(r *http.Request) bool {
				// Origin checking is delegated to the deployment's proxy.
				return true
			},
		},
		log: log,
	}
}

// HandleWebSocket upgrades the request, checks the bearer credential and
// starts the connection's read loop. An unauthenticated client gets an
// error event and an immediate close, mutating nothing.
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := handshakeToken(r)

	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	identity, err := g.gate.Authenticate(token)
	if err != nil {
		g.rejectHandshake(ws, err)
		return
	}

	conn := NewConnection(ws, g.cfg.BufferSize, g.cfg.WriteTimeout)
	conn.SetIdentity(identity.UserID, identity.Email, token)

	if err := g.registry.Register(conn); err != nil {
		g.log.Error("failed to register connection", "error", err)
		_ = conn.Close()
		return
	}

	g.log.Info("client connected", "connection_id", conn.ID(), "user_id", identity.UserID)

	// Push the current open-room list and an acknowledgment.
	if rooms, err := g.engine.OpenRooms(conn.Context()); err == nil {
		g.sendEvent(conn, types.EventRooms, rooms)
	} else {
		g.log.Error("failed to list rooms on connect", "error", err)
	}
	g.sendEvent(conn, types.EventConnected, types.ConnectedPayload{
		UserID:  identity.UserID,
		Message: "successfully connected to room service",
	})

	go g.handleConnection(conn)
}

// handleConnection owns the read side of one socket: heartbeat, message
// dispatch, and the disconnect path.
func (g *Gateway) handleConnection(conn *Connection) {
	defer func() {
		// Claim the binding exactly once; a racing explicit leave has
		// either already cleared the room or will find no binding.
		binding, ok := g.registry.Unregister(conn.ID())
		_ = conn.Close()
		if ok && binding.RoomID != "" {
			g.disconnectLeave(binding)
		}
		g.log.Info("client disconnected", "connection_id", conn.ID())
	}()

	if err := conn.conn.SetReadDeadline(time.Now().Add(g.cfg.ReadTimeout)); err != nil {
		return
	}
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(g.cfg.ReadTimeout))
	})

	ticker := time.NewTicker(g.cfg.PingInterval)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ticker.C:
				deadline := time.Now().Add(g.cfg.WriteTimeout)
				if err := conn.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					return
				}
			case <-conn.Context().Done():
				return
			}
		}
	}()

	for {
		messageType, data, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				g.log.Warn("websocket read error", "connection_id", conn.ID(), "error", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var env types.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			g.sendError(conn, "malformed message envelope")
			continue
		}
		g.dispatch(conn, &env)
	}
}

// dispatch re-verifies the credential, then routes one inbound event.
// A token that expired mid-session rejects the request without touching
// any state.
func (g *Gateway) dispatch(conn *Connection, env *types.Envelope) {
	if _, err := g.gate.Authenticate(conn.Token()); err != nil {
		g.sendError(conn, err.Error())
		return
	}

	switch env.Event {
	case types.EventCreateRoom:
		g.handleCreateRoom(conn, env.Data)
	case types.EventJoinRoom:
		g.handleJoinRoom(conn, env.Data)
	case types.EventLeaveRoom:
		g.handleLeaveRoom(conn, env.Data)
	case types.EventGetRooms:
		g.handleGetRooms(conn)
	case types.EventGetRoom:
		g.handleGetRoom(conn, env.Data)
	default:
		g.sendError(conn, "unknown event: "+env.Event)
	}
}

func (g *Gateway) handleCreateRoom(conn *Connection, data json.RawMessage) {
	var req types.CreateRoomRequest
	if err := json.Unmarshal(data, &req); err != nil {
		g.sendError(conn, "malformed createRoom payload")
		return
	}
	if err := req.Validate(); err != nil {
		g.sendError(conn, err.Error())
		return
	}

	ctx := conn.Context()

	// A user occupies at most one room; creating while joined vacates
	// the current room first.
	if binding, ok := g.registry.Lookup(conn.ID()); ok && binding.RoomID != "" {
		g.vacate(ctx, conn, binding.RoomID)
	}

	view, err := g.engine.CreateRoom(ctx, conn.UserID(), &req)
	if err != nil {
		g.sendError(conn, err.Error())
		return
	}

	g.registry.BindRoom(conn.ID(), view.ID)
	g.broadcaster.RoomCreated(conn, view)
	g.broadcastRooms()
}

func (g *Gateway) handleJoinRoom(conn *Connection, data json.RawMessage) {
	var req types.JoinRoomRequest
	if err := json.Unmarshal(data, &req); err != nil {
		g.sendError(conn, "malformed joinRoom payload")
		return
	}
	if err := req.Validate(); err != nil {
		g.sendError(conn, err.Error())
		return
	}

	ctx := conn.Context()

	if binding, ok := g.registry.Lookup(conn.ID()); ok && binding.RoomID != "" && binding.RoomID != req.RoomID {
		g.vacate(ctx, conn, binding.RoomID)
	}

	view, err := g.engine.JoinRoom(ctx, conn.UserID(), &req)
	if err != nil {
		g.sendError(conn, err.Error())
		return
	}

	g.registry.BindRoom(conn.ID(), view.ID)
	g.sendEvent(conn, types.EventRoomJoined, view)
	g.broadcaster.UserJoined(view.ID, view, conn.UserID())
	g.broadcastRooms()
}

func (g *Gateway) handleLeaveRoom(conn *Connection, data json.RawMessage) {
	var req types.RoomIDRequest
	if err := json.Unmarshal(data, &req); err != nil {
		g.sendError(conn, "malformed leaveRoom payload")
		return
	}
	if err := req.Validate(); err != nil {
		g.sendError(conn, err.Error())
		return
	}

	ctx := conn.Context()

	result, err := g.engine.LeaveRoom(ctx, conn.UserID(), req.RoomID)
	if err != nil {
		g.sendError(conn, err.Error())
		return
	}

	if binding, ok := g.registry.Lookup(conn.ID()); ok && binding.RoomID == req.RoomID {
		g.registry.BindRoom(conn.ID(), "")
	}

	g.sendEvent(conn, types.EventRoomLeft, result)
	if !result.Dissolved {
		g.broadcaster.UserLeft(req.RoomID, result.Room, conn.UserID())
	}
	g.broadcastRooms()
}

func (g *Gateway) handleGetRooms(conn *Connection) {
	rooms, err := g.engine.OpenRooms(conn.Context())
	if err != nil {
		g.sendError(conn, err.Error())
		return
	}
	g.sendEvent(conn, types.EventRooms, rooms)
}

func (g *Gateway) handleGetRoom(conn *Connection, data json.RawMessage) {
	var req types.RoomIDRequest
	if err := json.Unmarshal(data, &req); err != nil {
		g.sendError(conn, "malformed getRoom payload")
		return
	}
	if err := req.Validate(); err != nil {
		g.sendError(conn, err.Error())
		return
	}

	view, err := g.engine.RoomByID(conn.Context(), req.RoomID)
	if err != nil {
		g.sendError(conn, err.Error())
		return
	}
	g.sendEvent(conn, types.EventRoom, view)
}

// vacate runs the leave-effects for a connection's current room before
// it creates or joins another one. Already-left conditions are normal
// here and never surfaced.
func (g *Gateway) vacate(ctx context.Context, conn *Connection, roomID string) {
	result, err := g.engine.LeaveRoom(ctx, conn.UserID(), roomID)
	g.registry.BindRoom(conn.ID(), "")
	if err != nil {
		if errors.Is(err, interfaces.ErrRoomNotFound) || errors.Is(err, interfaces.ErrNotMember) {
			g.log.Debug("implicit leave skipped", "room_id", roomID, "user_id", conn.UserID(), "reason", err)
			return
		}
		g.log.Error("implicit leave failed", "room_id", roomID, "user_id", conn.UserID(), "error", err)
		return
	}
	if !result.Dissolved {
		g.broadcaster.UserLeft(roomID, result.Room, conn.UserID())
	}
	g.broadcastRooms()
}

// disconnectLeave applies the same leave-effects as an explicit leave
// when a connection that held a room drops. There is no client left to
// notify, so failures are logged and swallowed.
func (g *Gateway) disconnectLeave(binding Binding) {
	ctx := context.Background()
	result, err := g.engine.LeaveRoom(ctx, binding.UserID, binding.RoomID)
	if err != nil {
		if errors.Is(err, interfaces.ErrRoomNotFound) || errors.Is(err, interfaces.ErrNotMember) {
			g.log.Debug("disconnect leave skipped", "room_id", binding.RoomID, "user_id", binding.UserID, "reason", err)
		} else {
			g.log.Error("disconnect leave failed", "room_id", binding.RoomID, "user_id", binding.UserID, "error", err)
		}
		return
	}
	if !result.Dissolved {
		g.broadcaster.UserLeft(binding.RoomID, result.Room, binding.UserID)
	}
	g.broadcastRooms()
}

// broadcastRooms refreshes the open-room list for every client. It
// never runs on the acting connection's context: the actor may
// disconnect right after its mutation commits, and the refresh is owed
// to everyone else.
func (g *Gateway) broadcastRooms() {
	rooms, err := g.engine.OpenRooms(context.Background())
	if err != nil {
		g.log.Error("failed to refresh room list", "error", err)
		return
	}
	g.broadcaster.Rooms(rooms)
}

func (g *Gateway) sendEvent(conn *Connection, event string, payload any) {
	if err := conn.WriteEvent(event, payload); err != nil {
		g.log.Debug("failed to send event", "event", event, "connection_id", conn.ID(), "error", err)
	}
}

func (g *Gateway) sendError(conn *Connection, message string) {
	g.sendEvent(conn, types.EventError, types.ErrorPayload{Message: message})
}

// rejectHandshake pushes a single error event on the raw socket and
// closes it without registering anything.
func (g *Gateway) rejectHandshake(ws *websocket.Conn, authErr error) {
	data, _ := json.Marshal(types.ErrorPayload{Message: authErr.Error()})
	frame, _ := json.Marshal(types.Envelope{Event: types.EventError, Data: data})
	_ = ws.SetWriteDeadline(time.Now().Add(g.cfg.WriteTimeout))
	_ = ws.WriteMessage(websocket.TextMessage, frame)
	_ = ws.Close()
}

// handshakeToken pulls the credential from the token query parameter or
// the Authorization header.
func handshakeToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}
	return ""
}
