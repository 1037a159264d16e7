package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema holds the chat tables. Conversations are not a first-class table: a
// conversation exists the moment a message or participant row references its
// id, so only messages and participants carry the grouping key.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         UUID PRIMARY KEY,
		name       TEXT NOT NULL,
		image_url  TEXT NOT NULL DEFAULT '',
		role       TEXT NOT NULL DEFAULT 'buyer',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS participants (
		conversation_id UUID NOT NULL,
		user_id         UUID NOT NULL REFERENCES users (id),
		joined_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (conversation_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id              TEXT PRIMARY KEY,
		conversation_id UUID NOT NULL,
		sender_id       UUID NOT NULL REFERENCES users (id),
		receiver_id     UUID NOT NULL REFERENCES users (id),
		body            TEXT NOT NULL,
		dedupe_key      TEXT,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_conversation_created
		ON messages (conversation_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_participants_user
		ON participants (user_id, joined_at)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_dedupe
		ON messages (conversation_id, dedupe_key) WHERE dedupe_key IS NOT NULL`,
}

// Migrate applies the schema statements in order. Statements are idempotent so
// running it on every startup is safe.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: migrate: %w", err)
		}
	}
	return nil
}
