// Package room implements the room lifecycle engine: creation, joining,
// leaving, ownership handover and dissolution, with password gating for
// private rooms. Every mutation delegates its check-then-write sequence
// to the store's transactions, so concurrent operations on the same room
// behave as if serialized.
package room

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"sketchroom/internal/auth"
	"sketchroom/pkg/interfaces"
	"sketchroom/pkg/types"
)

// Engine coordinates room mutations against the store and converts
// records to outward, password-stripped views.
type Engine struct {
	store interfaces.RoomStore
	log   *slog.Logger
}

func NewEngine(store interfaces.RoomStore, log *slog.Logger) *Engine {
	return &Engine{store: store, log: log}
}

// CreateRoom validates the request and creates the room with the caller
// as sole, ready member and owner.
func (e *Engine) CreateRoom(ctx context.Context, userID string, req *types.CreateRoomRequest) (*types.Room, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req.ApplyDefaults()

	var passwordHash string
	if req.IsPrivate && req.Password != "" {
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			return nil, err
		}
		passwordHash = hash
	}

	rec := &types.RoomRecord{
		ID:           uuid.NewString(),
		Name:         req.Name,
		MaxPlayers:   req.MaxPlayers,
		Rounds:       req.Rounds,
		IsPrivate:    req.IsPrivate,
		PasswordHash: passwordHash,
		OwnerID:      userID,
		Status:       types.RoomStatusWaiting,
		CreatedAt:    time.Now().UTC(),
	}

	created, err := e.store.CreateRoom(ctx, rec)
	if err != nil {
		return nil, err
	}

	e.log.Info("room created", "room_id", created.ID, "owner_id", userID, "private", req.IsPrivate)
	return toView(created), nil
}

// JoinRoom admits a user into a room. Checks run in a fixed order:
// existence, capacity, duplicate membership, password, game status. The
// store repeats the structural checks inside its insert transaction, so
// a last-slot race is resolved there rather than here.
func (e *Engine) JoinRoom(ctx context.Context, userID string, req *types.JoinRoomRequest) (*types.Room, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	rec, err := e.store.GetRoom(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	if rec.MemberCount() >= rec.MaxPlayers {
		return nil, interfaces.ErrRoomFull
	}
	if rec.HasMember(userID) {
		return nil, interfaces.ErrAlreadyMember
	}
	if rec.IsPrivate && rec.PasswordHash != "" {
		if req.Password == "" {
			return nil, ErrPasswordRequired
		}
		ok, err := auth.VerifyPassword(req.Password, rec.PasswordHash)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrInvalidPassword
		}
	}
	if rec.Status == types.RoomStatusPlaying {
		return nil, interfaces.ErrGameInProgress
	}

	joined, err := e.store.AddMember(ctx, req.RoomID, userID)
	if err != nil {
		return nil, err
	}

	e.log.Info("user joined room", "room_id", req.RoomID, "user_id", userID, "members", joined.MemberCount())
	return toView(joined), nil
}

// LeaveRoom removes a membership. The store hands ownership to the
// earliest-joined remaining member when the owner leaves, and dissolves
// the room when the last member leaves.
func (e *Engine) LeaveRoom(ctx context.Context, userID, roomID string) (*types.LeaveResult, error) {
	rec, dissolved, err := e.store.RemoveMember(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}

	if dissolved {
		e.log.Info("room dissolved", "room_id", roomID, "last_user_id", userID)
		return &types.LeaveResult{
			Dissolved: true,
			RoomID:    roomID,
			Message:   "room deleted as you were the last player",
		}, nil
	}

	e.log.Info("user left room", "room_id", roomID, "user_id", userID, "members", rec.MemberCount())
	return &types.LeaveResult{Room: toView(rec), RoomID: roomID}, nil
}

// OpenRooms lists every room still waiting for players.
func (e *Engine) OpenRooms(ctx context.Context) ([]*types.Room, error) {
	records, err := e.store.ListRoomsByStatus(ctx, types.RoomStatusWaiting)
	if err != nil {
		return nil, err
	}
	return lo.Map(records, func(rec *types.RoomRecord, _ int) *types.Room {
		return toView(rec)
	}), nil
}

// RoomByID returns one room view or ErrRoomNotFound.
func (e *Engine) RoomByID(ctx context.Context, roomID string) (*types.Room, error) {
	rec, err := e.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return toView(rec), nil
}

// toView strips the record down to its outward shape. The view type has
// no password field, so the hash cannot leak on any path.
func toView(rec *types.RoomRecord) *types.Room {
	return &types.Room{
		ID:         rec.ID,
		Name:       rec.Name,
		MaxPlayers: rec.MaxPlayers,
		Rounds:     rec.Rounds,
		IsPrivate:  rec.IsPrivate,
		OwnerID:    rec.OwnerID,
		Status:     rec.Status,
		CreatedAt:  rec.CreatedAt,
		Members: lo.Map(rec.Members, func(m types.MemberRecord, _ int) types.Member {
			return types.Member{ID: m.UserID, Username: m.Username, IsReady: m.IsReady}
		}),
	}
}
