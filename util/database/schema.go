package database

import (
	"context"
	"database/sql"
)

// The partial unique index on requests is what enforces the "at most one
// pending request per (book, requester)" rule durably; the service maps the
// resulting unique violation to a conflict error.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL PRIMARY KEY,
		name          TEXT NOT NULL,
		email         TEXT NOT NULL,
		bio           TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (lower(email))`,

	`CREATE TABLE IF NOT EXISTS books (
		id            BIGSERIAL PRIMARY KEY,
		title         TEXT NOT NULL,
		author        TEXT NOT NULL,
		genre         TEXT NOT NULL,
		available_for TEXT NOT NULL DEFAULT 'lend',
		status        TEXT NOT NULL DEFAULT 'available',
		owner_id      BIGINT NOT NULL REFERENCES users(id),
		owner_name    TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS requests (
		id              UUID PRIMARY KEY,
		book_id         BIGINT NOT NULL,
		book_title      TEXT NOT NULL,
		owner_id        BIGINT NOT NULL,
		owner_name      TEXT NOT NULL,
		requester_id    BIGINT NOT NULL,
		requester_name  TEXT NOT NULL,
		requester_email TEXT NOT NULL,
		request_type    TEXT NOT NULL,
		status          TEXT NOT NULL DEFAULT 'pending',
		due_at          TIMESTAMPTZ,
		reminder_sent   BOOLEAN NOT NULL DEFAULT FALSE,
		overdue_sent    BOOLEAN NOT NULL DEFAULT FALSE,
		created_at      TIMESTAMPTZ NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS requests_pending_once
		ON requests (book_id, requester_id) WHERE status = 'pending'`,
	`CREATE INDEX IF NOT EXISTS requests_requester_idx ON requests (requester_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS requests_owner_idx ON requests (owner_id, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS notifications (
		id         UUID PRIMARY KEY,
		user_id    BIGINT NOT NULL,
		type       TEXT NOT NULL,
		message    TEXT NOT NULL,
		data       JSONB NOT NULL DEFAULT '{}',
		read       BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS notifications_user_idx ON notifications (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS notifications_unread_idx ON notifications (user_id) WHERE NOT read`,
}

func initSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
