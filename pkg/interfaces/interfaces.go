// Package interfaces defines the seams between the coordinator's
// components and its storage collaborators, so the engine and gateway
// can be exercised against alternative store implementations.
package interfaces

import (
	"context"

	"sketchroom/pkg/types"
)

// RoomStore is the transactional source of truth for rooms and
// memberships. Implementations must make each mutating call atomic: the
// check-then-write sequences inside AddMember and RemoveMember may not
// be torn by a concurrent writer on the same room.
type RoomStore interface {
	// CreateRoom inserts the room together with the creator's membership
	// row (isReady true) and returns the refreshed record.
	CreateRoom(ctx context.Context, rec *types.RoomRecord) (*types.RoomRecord, error)

	// GetRoom returns the record with its member list, or ErrRoomNotFound.
	GetRoom(ctx context.Context, roomID string) (*types.RoomRecord, error)

	// ListRoomsByStatus returns all rooms with the given status.
	ListRoomsByStatus(ctx context.Context, status string) ([]*types.RoomRecord, error)

	// AddMember appends a membership row after re-checking existence,
	// status, capacity and uniqueness inside one transaction. A losing
	// concurrent joiner gets ErrRoomFull or ErrAlreadyMember, never an
	// overfilled room.
	AddMember(ctx context.Context, roomID, userID string) (*types.RoomRecord, error)

	// RemoveMember deletes the membership row, handing ownership to the
	// earliest-joined remaining member when the owner leaves, and deletes
	// the room when the last member leaves. dissolved reports deletion;
	// rec is nil in that case.
	RemoveMember(ctx context.Context, roomID, userID string) (rec *types.RoomRecord, dissolved bool, err error)

	// SetRoomStatus is the gameplay collaborator's hook for the
	// WAITING -> PLAYING transition.
	SetRoomStatus(ctx context.Context, roomID, status string) error
}

// UserStore persists user accounts for the auth layer.
type UserStore interface {
	CreateUser(ctx context.Context, u *types.User) error
	GetUserByID(ctx context.Context, id string) (*types.User, error)
	// GetUserByLogin matches either username or email.
	GetUserByLogin(ctx context.Context, usernameOrEmail string) (*types.User, error)
	UpdateRefreshToken(ctx context.Context, userID, tokenHash string) error
}
