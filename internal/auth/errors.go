package auth

import "errors"

var (
	ErrMissingToken       = errors.New("authentication failed: no token provided")
	ErrInvalidToken       = errors.New("authentication failed: invalid token")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
