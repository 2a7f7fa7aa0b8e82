package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CreateSchema creates all tables needed by the store.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id            UUID PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    email         TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    points        BIGINT NOT NULL DEFAULT 0 CONSTRAINT accounts_points_check CHECK (points >= 0),
    is_admin      BOOLEAN NOT NULL DEFAULT FALSE,
    avatar        TEXT NOT NULL DEFAULT '/default-avatar.png',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS accounts_email_key ON accounts (lower(email));

-- Endpoints are plain references: an account row cannot go while its
-- transactions remain.
CREATE TABLE IF NOT EXISTS transactions (
    id          UUID PRIMARY KEY,
    sender_id   UUID NOT NULL REFERENCES accounts(id),
    receiver_id UUID NOT NULL REFERENCES accounts(id),
    amount      BIGINT NOT NULL CHECK (amount > 0),
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_transactions_sender ON transactions(sender_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_transactions_receiver ON transactions(receiver_id, created_at DESC);

CREATE TABLE IF NOT EXISTS polls (
    id         UUID PRIMARY KEY,
    title      TEXT NOT NULL,
    options    TEXT[] NOT NULL,
    votes      JSONB NOT NULL DEFAULT '{}',
    voters     TEXT[] NOT NULL DEFAULT '{}',
    active     BOOLEAN NOT NULL DEFAULT TRUE,
    creator_id UUID REFERENCES accounts(id),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_polls_creator ON polls(creator_id);

CREATE TABLE IF NOT EXISTS admin_requests (
    id         UUID PRIMARY KEY,
    user_id    UUID NOT NULL REFERENCES accounts(id),
    reason     TEXT NOT NULL,
    status     TEXT NOT NULL CHECK (status IN ('pending', 'approved', 'rejected')),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS admin_requests_one_pending ON admin_requests(user_id) WHERE status = 'pending';

CREATE TABLE IF NOT EXISTS chat_messages (
    id         UUID PRIMARY KEY,
    room_id    TEXT NOT NULL,
    user_id    UUID NOT NULL REFERENCES accounts(id),
    message    TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_chat_messages_room ON chat_messages(room_id, created_at);
CREATE INDEX IF NOT EXISTS idx_chat_messages_user ON chat_messages(user_id);

CREATE TABLE IF NOT EXISTS analysis_history (
    id         UUID PRIMARY KEY,
    user_id    UUID NOT NULL REFERENCES accounts(id),
    text       TEXT NOT NULL,
    sentiment  TEXT NOT NULL,
    confidence DOUBLE PRECISION NOT NULL,
    score      DOUBLE PRECISION NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_analysis_history_user ON analysis_history(user_id);
`
