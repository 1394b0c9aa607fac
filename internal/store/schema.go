package store

import (
	"database/sql"
	"fmt"
)

// The unique index on room_members(user_id) is what enforces the
// one-room-per-user invariant against racing joins; the composite
// primary key rejects duplicate membership in the same room.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	refresh_token_hash TEXT,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS rooms (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	max_players INTEGER NOT NULL,
	rounds INTEGER NOT NULL,
	is_private INTEGER NOT NULL DEFAULT 0,
	password_hash TEXT,
	owner_id TEXT NOT NULL REFERENCES users(id),
	status TEXT NOT NULL DEFAULT 'WAITING',
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS room_members (
	room_id TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
	user_id TEXT NOT NULL REFERENCES users(id),
	is_ready INTEGER NOT NULL DEFAULT 0,
	joined_at DATETIME NOT NULL,
	PRIMARY KEY (room_id, user_id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_room_members_user ON room_members(user_id);
CREATE INDEX IF NOT EXISTS idx_rooms_status ON rooms(status);
CREATE INDEX IF NOT EXISTS idx_rooms_owner ON rooms(owner_id);
`

func applySchema(db *sql.DB) error {
	_, err := db.Exec(schemaSQL)
	return err
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}
	return nil
}
