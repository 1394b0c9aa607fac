package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"sketchroom/pkg/interfaces"
	"sketchroom/pkg/types"
)

// CreateUser inserts a new account. Email and username collisions map to
// ErrDuplicateUser.
func (s *Store) CreateUser(ctx context.Context, u *types.User) error {
	return s.executeWrite(func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO users (id, email, username, password_hash, refresh_token_hash, created_at)
			VALUES (?, ?, ?, ?, NULLIF(?, ''), ?)`,
			u.ID, u.Email, u.Username, u.PasswordHash, u.RefreshTokenHash, u.CreatedAt,
		)
		if err != nil {
			if isConstraintViolation(err) {
				return interfaces.ErrDuplicateUser
			}
			return fmt.Errorf("failed to insert user: %w", err)
		}
		return nil
	})
}

// GetUserByID returns the user row or ErrUserNotFound.
func (s *Store) GetUserByID(ctx context.Context, id string) (*types.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, username, password_hash, COALESCE(refresh_token_hash, ''), created_at
		FROM users WHERE id = ?`, id))
}

// GetUserByLogin matches against username or email.
func (s *Store) GetUserByLogin(ctx context.Context, usernameOrEmail string) (*types.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, username, password_hash, COALESCE(refresh_token_hash, ''), created_at
		FROM users WHERE username = ? OR email = ?`, usernameOrEmail, usernameOrEmail))
}

// UpdateRefreshToken replaces the stored refresh-token hash.
func (s *Store) UpdateRefreshToken(ctx context.Context, userID, tokenHash string) error {
	return s.executeWrite(func(db *sql.DB) error {
		res, err := db.ExecContext(ctx,
			`UPDATE users SET refresh_token_hash = NULLIF(?, '') WHERE id = ?`, tokenHash, userID)
		if err != nil {
			return fmt.Errorf("failed to update refresh token: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if affected == 0 {
			return interfaces.ErrUserNotFound
		}
		return nil
	})
}

func (s *Store) scanUser(row *sql.Row) (*types.User, error) {
	var u types.User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.RefreshTokenHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, interfaces.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &u, nil
}
