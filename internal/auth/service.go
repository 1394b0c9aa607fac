package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"sketchroom/pkg/interfaces"
	"sketchroom/pkg/types"
)

// Service implements the credential issuance collaborator: account
// creation, sign-in and refresh-token rotation. Refresh tokens are
// stored hashed so a leaked database cannot be replayed.
type Service struct {
	users interfaces.UserStore
	gate  *Gate
	log   *slog.Logger
}

func NewService(users interfaces.UserStore, gate *Gate, log *slog.Logger) *Service {
	return &Service{users: users, gate: gate, log: log}
}

// Signup registers a new account and returns its first token pair.
func (s *Service) Signup(ctx context.Context, req *types.SignupRequest) (*types.TokenPair, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &types.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("user registered", "user_id", user.ID, "username", user.Username)
	return s.issueAndStore(ctx, user)
}

// Signin exchanges username-or-email plus password for a token pair.
func (s *Service) Signin(ctx context.Context, req *types.SigninRequest) (*types.TokenPair, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByLogin(ctx, req.UsernameOrEmail)
	if err != nil {
		if errors.Is(err, interfaces.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := VerifyPassword(req.Password, user.PasswordHash)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}

	return s.issueAndStore(ctx, user)
}

// Refresh rotates a refresh token, rejecting tokens that no longer match
// the stored hash (already rotated or revoked).
func (s *Service) Refresh(ctx context.Context, req *types.RefreshRequest) (*types.TokenPair, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	identity, err := s.gate.VerifyRefresh(req.RefreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, interfaces.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if user.RefreshTokenHash == "" {
		return nil, ErrInvalidToken
	}

	ok, err := VerifyPassword(req.RefreshToken, user.RefreshTokenHash)
	if err != nil || !ok {
		return nil, ErrInvalidToken
	}

	return s.issueAndStore(ctx, user)
}

func (s *Service) issueAndStore(ctx context.Context, user *types.User) (*types.TokenPair, error) {
	pair, err := s.gate.IssueTokens(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	refreshHash, err := HashPassword(pair.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to hash refresh token: %w", err)
	}
	if err := s.users.UpdateRefreshToken(ctx, user.ID, refreshHash); err != nil {
		return nil, err
	}

	return pair, nil
}
