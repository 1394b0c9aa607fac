package websocket

import "errors"

var (
	ErrConnectionClosed    = errors.New("connection is closed")
	ErrWriteTimeout        = errors.New("write timeout exceeded")
	ErrInvalidJSON         = errors.New("failed to marshal JSON")
	ErrDuplicateConnection = errors.New("connection already registered")
	ErrNilConnection       = errors.New("connection cannot be nil")
)
