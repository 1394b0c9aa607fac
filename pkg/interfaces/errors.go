package interfaces

import "errors"

// Store-level errors shared across components. The gateway maps these to
// error payloads; the disconnect path swallows ErrRoomNotFound and
// ErrNotMember entirely.
var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomFull       = errors.New("room is full")
	ErrAlreadyMember  = errors.New("already in this room")
	ErrNotMember      = errors.New("not in this room")
	ErrGameInProgress = errors.New("game is already in progress")
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateUser  = errors.New("user already exists")
)
