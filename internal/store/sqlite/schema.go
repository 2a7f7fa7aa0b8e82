package sqlite

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id            TEXT PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    email         TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    points        INTEGER NOT NULL DEFAULT 0 CONSTRAINT accounts_points_check CHECK (points >= 0),
    is_admin      INTEGER NOT NULL DEFAULT 0,
    avatar        TEXT NOT NULL DEFAULT '/default-avatar.png',
    created_at    INTEGER NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS accounts_email_key ON accounts (email COLLATE NOCASE);

CREATE TABLE IF NOT EXISTS transactions (
    id          TEXT PRIMARY KEY,
    sender_id   TEXT NOT NULL REFERENCES accounts(id),
    receiver_id TEXT NOT NULL REFERENCES accounts(id),
    amount      INTEGER NOT NULL CHECK (amount > 0),
    created_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_sender ON transactions(sender_id);
CREATE INDEX IF NOT EXISTS idx_transactions_receiver ON transactions(receiver_id);

CREATE TABLE IF NOT EXISTS polls (
    id         TEXT PRIMARY KEY,
    title      TEXT NOT NULL,
    options    TEXT NOT NULL,
    votes      TEXT NOT NULL DEFAULT '{}',
    voters     TEXT NOT NULL DEFAULT '[]',
    active     INTEGER NOT NULL DEFAULT 1,
    creator_id TEXT REFERENCES accounts(id),
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_polls_creator ON polls(creator_id);

CREATE TABLE IF NOT EXISTS admin_requests (
    id         TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL REFERENCES accounts(id),
    reason     TEXT NOT NULL,
    status     TEXT NOT NULL CHECK (status IN ('pending', 'approved', 'rejected')),
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS admin_requests_one_pending ON admin_requests(user_id) WHERE status = 'pending';

CREATE TABLE IF NOT EXISTS chat_messages (
    id         TEXT PRIMARY KEY,
    room_id    TEXT NOT NULL,
    user_id    TEXT NOT NULL REFERENCES accounts(id),
    message    TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chat_messages_room ON chat_messages(room_id, created_at);

CREATE TABLE IF NOT EXISTS analysis_history (
    id         TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL REFERENCES accounts(id),
    text       TEXT NOT NULL,
    sentiment  TEXT NOT NULL,
    confidence REAL NOT NULL,
    score      REAL NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analysis_history_user ON analysis_history(user_id);
`
