package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sketchroom/pkg/interfaces"
	"sketchroom/pkg/types"
)

// CreateRoom inserts the room together with the creator's membership row
// in one transaction. The creator starts ready.
func (s *Store) CreateRoom(ctx context.Context, rec *types.RoomRecord) (*types.RoomRecord, error) {
	var created *types.RoomRecord
	err := s.executeWrite(func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		_, err = tx.ExecContext(ctx, `
			INSERT INTO rooms (id, name, max_players, rounds, is_private, password_hash, owner_id, status, created_at)
			VALUES (?, ?, ?, ?, ?, NULLIF(?, ''), ?, ?, ?)`,
			rec.ID, rec.Name, rec.MaxPlayers, rec.Rounds, rec.IsPrivate,
			rec.PasswordHash, rec.OwnerID, rec.Status, rec.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert room: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO room_members (room_id, user_id, is_ready, joined_at)
			VALUES (?, ?, 1, ?)`,
			rec.ID, rec.OwnerID, rec.CreatedAt,
		)
		if err != nil {
			if isConstraintViolation(err) {
				return interfaces.ErrAlreadyMember
			}
			return fmt.Errorf("failed to insert creator membership: %w", err)
		}

		created, err = loadRoom(ctx, tx, rec.ID)
		if err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetRoom returns the record with its member list, or ErrRoomNotFound.
func (s *Store) GetRoom(ctx context.Context, roomID string) (*types.RoomRecord, error) {
	return loadRoom(ctx, s.db, roomID)
}

// ListRoomsByStatus returns every room with the given status, members
// included, ordered by creation time.
func (s *Store) ListRoomsByStatus(ctx context.Context, status string) ([]*types.RoomRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, max_players, rounds, is_private, COALESCE(password_hash, ''), owner_id, status, created_at
		FROM rooms WHERE status = ? ORDER BY created_at`, status)
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*types.RoomRecord
	index := make(map[string]*types.RoomRecord)
	for rows.Next() {
		rec, err := scanRoomRow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
		index[rec.ID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rooms: %w", err)
	}
	if len(records) == 0 {
		return records, nil
	}

	memberRows, err := s.db.QueryContext(ctx, `
		SELECT m.room_id, m.user_id, u.username, m.is_ready, m.joined_at
		FROM room_members m
		JOIN users u ON u.id = m.user_id
		JOIN rooms r ON r.id = m.room_id
		WHERE r.status = ?
		ORDER BY m.joined_at, m.rowid`, status)
	if err != nil {
		return nil, fmt.Errorf("failed to query memberships: %w", err)
	}
	defer func() { _ = memberRows.Close() }()

	for memberRows.Next() {
		var roomID string
		var m types.MemberRecord
		if err := memberRows.Scan(&roomID, &m.UserID, &m.Username, &m.IsReady, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		if rec, ok := index[roomID]; ok {
			rec.Members = append(rec.Members, m)
		}
	}
	if err := memberRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate memberships: %w", err)
	}

	return records, nil
}

// AddMember appends a membership row. Existence, status, capacity and
// uniqueness are all evaluated against the same transactional read, and
// the insert itself is constraint-backed, so a racing joiner for the
// last slot loses with ErrRoomFull or ErrAlreadyMember rather than
// overfilling the room.
func (s *Store) AddMember(ctx context.Context, roomID, userID string) (*types.RoomRecord, error) {
	var joined *types.RoomRecord
	err := s.executeWrite(func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		rec, err := loadRoom(ctx, tx, roomID)
		if err != nil {
			return err
		}
		if rec.Status == types.RoomStatusPlaying {
			return interfaces.ErrGameInProgress
		}
		if rec.HasMember(userID) {
			return interfaces.ErrAlreadyMember
		}
		if rec.MemberCount() >= rec.MaxPlayers {
			return interfaces.ErrRoomFull
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO room_members (room_id, user_id, is_ready, joined_at)
			VALUES (?, ?, 0, ?)`,
			roomID, userID, time.Now().UTC(),
		)
		if err != nil {
			if isConstraintViolation(err) {
				return interfaces.ErrAlreadyMember
			}
			return fmt.Errorf("failed to insert membership: %w", err)
		}

		joined, err = loadRoom(ctx, tx, roomID)
		if err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return nil, err
	}
	return joined, nil
}

// RemoveMember deletes the membership row. When the owner leaves and
// others remain, ownership passes to the earliest-joined remaining
// member. When the last member leaves, the room is deleted and dissolved
// is true.
func (s *Store) RemoveMember(ctx context.Context, roomID, userID string) (*types.RoomRecord, bool, error) {
	var (
		remaining *types.RoomRecord
		dissolved bool
	)
	err := s.executeWrite(func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		rec, err := loadRoom(ctx, tx, roomID)
		if err != nil {
			return err
		}
		if !rec.HasMember(userID) {
			return interfaces.ErrNotMember
		}

		if rec.MemberCount() == 1 {
			// Last member out: the room never survives empty.
			if _, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, roomID); err != nil {
				return fmt.Errorf("failed to delete room: %w", err)
			}
			dissolved = true
			return tx.Commit()
		}

		if rec.OwnerID == userID {
			// Members are loaded in join order; hand ownership to the
			// earliest-joined member who is not the leaver.
			for _, m := range rec.Members {
				if m.UserID != userID {
					if _, err := tx.ExecContext(ctx,
						`UPDATE rooms SET owner_id = ? WHERE id = ?`, m.UserID, roomID); err != nil {
						return fmt.Errorf("failed to transfer ownership: %w", err)
					}
					break
				}
			}
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM room_members WHERE room_id = ? AND user_id = ?`, roomID, userID); err != nil {
			return fmt.Errorf("failed to delete membership: %w", err)
		}

		remaining, err = loadRoom(ctx, tx, roomID)
		if err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return nil, false, err
	}
	return remaining, dissolved, nil
}

// SetRoomStatus is the gameplay layer's transition hook.
func (s *Store) SetRoomStatus(ctx context.Context, roomID, status string) error {
	return s.executeWrite(func(db *sql.DB) error {
		res, err := db.ExecContext(ctx, `UPDATE rooms SET status = ? WHERE id = ?`, status, roomID)
		if err != nil {
			return fmt.Errorf("failed to update room status: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if affected == 0 {
			return interfaces.ErrRoomNotFound
		}
		return nil
	})
}

// loadRoom reads one room row plus its members in join order.
func loadRoom(ctx context.Context, q querier, roomID string) (*types.RoomRecord, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, name, max_players, rounds, is_private, COALESCE(password_hash, ''), owner_id, status, created_at
		FROM rooms WHERE id = ?`, roomID)

	rec, err := scanRoomRow(row)
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx, `
		SELECT m.user_id, u.username, m.is_ready, m.joined_at
		FROM room_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.room_id = ?
		ORDER BY m.joined_at, m.rowid`, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to query memberships: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var m types.MemberRecord
		if err := rows.Scan(&m.UserID, &m.Username, &m.IsReady, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		rec.Members = append(rec.Members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate memberships: %w", err)
	}

	return rec, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoomRow(row rowScanner) (*types.RoomRecord, error) {
	var rec types.RoomRecord
	err := row.Scan(&rec.ID, &rec.Name, &rec.MaxPlayers, &rec.Rounds, &rec.IsPrivate,
		&rec.PasswordHash, &rec.OwnerID, &rec.Status, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, interfaces.ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to scan room: %w", err)
	}
	return &rec, nil
}
