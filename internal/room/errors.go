package room

import "errors"

// Password gating errors for private rooms.
var (
	ErrPasswordRequired = errors.New("password is required for this room")
	ErrInvalidPassword  = errors.New("invalid password")
)
