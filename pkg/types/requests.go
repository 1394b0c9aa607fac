package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Shared validator instance; tags mirror the bounds in the room rules
// (2-8 players, 1-10 rounds).
var validate = validator.New(validator.WithRequiredStructEnabled())

// Defaults applied when a create request omits optional fields.
const (
	DefaultMaxPlayers = 8
	DefaultRounds     = 8
)

// CreateRoomRequest is the payload of a createRoom event.
type CreateRoomRequest struct {
	Name       string `json:"name" validate:"required,min=1,max=100"`
	MaxPlayers int    `json:"maxPlayers" validate:"omitempty,gte=2,lte=8"`
	Rounds     int    `json:"rounds" validate:"omitempty,gte=1,lte=10"`
	IsPrivate  bool   `json:"isPrivate"`
	Password   string `json:"password" validate:"omitempty,max=72"`
}

// Validate checks shape and bounds before the request reaches the
// lifecycle engine.
func (r *CreateRoomRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// ApplyDefaults fills omitted optional fields.
func (r *CreateRoomRequest) ApplyDefaults() {
	if r.MaxPlayers == 0 {
		r.MaxPlayers = DefaultMaxPlayers
	}
	if r.Rounds == 0 {
		r.Rounds = DefaultRounds
	}
}

// JoinRoomRequest is the payload of a joinRoom event.
type JoinRoomRequest struct {
	RoomID   string `json:"roomId" validate:"required"`
	Password string `json:"password" validate:"omitempty,max=72"`
}

func (r *JoinRoomRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// RoomIDRequest is the payload of leaveRoom and getRoom events.
type RoomIDRequest struct {
	RoomID string `json:"roomId" validate:"required"`
}

func (r *RoomIDRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// SignupRequest creates a user account.
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=30"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

func (r *SignupRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// SigninRequest exchanges credentials for a token pair.
type SigninRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail" validate:"required"`
	Password        string `json:"password" validate:"required"`
}

func (r *SigninRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// RefreshRequest rotates a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

func (r *RefreshRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// TokenPair is returned by signup, signin and refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
