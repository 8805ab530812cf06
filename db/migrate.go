package db

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are idempotent and run at startup in order. Cascading
// foreign keys implement the data model's deletion rules: removing a
// user or document removes its collaborator, lock and key rows.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		username   TEXT PRIMARY KEY,
		hash       TEXT NOT NULL,
		full_name  TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS documents (
		uuid       UUID PRIMARY KEY,
		title      TEXT NOT NULL,
		content    TEXT NOT NULL DEFAULT '',
		version    BIGINT NOT NULL DEFAULT 0,
		lock_user  TEXT REFERENCES users (username) ON DELETE SET NULL,
		lock_time  TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS collaborators (
		document    UUID NOT NULL REFERENCES documents (uuid) ON DELETE CASCADE,
		username    TEXT NOT NULL REFERENCES users (username) ON DELETE CASCADE,
		permissions INTEGER NOT NULL,
		PRIMARY KEY (document, username)
	)`,
	`CREATE TABLE IF NOT EXISTS document_keys (
		document UUID NOT NULL REFERENCES documents (uuid) ON DELETE CASCADE,
		created  TIMESTAMPTZ NOT NULL,
		key      TEXT NOT NULL,
		PRIMARY KEY (document, created)
	)`,
}

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}
	return nil
}
