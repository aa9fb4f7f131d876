package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new SQLite database connection
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn(dataSourceName))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if isMemory(dataSourceName) {
		// Each pooled connection to :memory: would get its own private
		// database; force everything through one connection.
		db.SetMaxOpenConns(1)
	}

	return &DB{db}, nil
}

// dsn attaches the connection options as query parameters so every pooled
// connection gets them, not just the one a plain Exec("PRAGMA ...") runs on:
// writers queue behind each other instead of failing with SQLITE_BUSY,
// foreign keys are enforced, and transactions take the write lock up front
// so a read-then-write transaction cannot deadlock against another writer.
func dsn(dataSourceName string) string {
	params := "_txlock=immediate" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=foreign_keys(1)"
	if !isMemory(dataSourceName) {
		params += "&_pragma=journal_mode(WAL)"
	}

	sep := "?"
	if strings.Contains(dataSourceName, "?") {
		sep = "&"
	}
	return dataSourceName + sep + params
}

func isMemory(dataSourceName string) bool {
	return strings.Contains(dataSourceName, ":memory:")
}

// RunMigrations creates the schema. Idempotent for a fresh database file;
// production deployments run the same SQL via their migration tooling.
func (db *DB) RunMigrations() error {
	migration := `
-- Append-only event log. seq orders events within a tenant; rows are
-- never updated or deleted.
CREATE TABLE events (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    tenant_id TEXT NOT NULL,
    type TEXT NOT NULL,
    entity_type TEXT NOT NULL,
    entity_id TEXT NOT NULL,
    actor_id TEXT NOT NULL,
    actor_type TEXT NOT NULL,
    data TEXT,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX idx_tenant_events ON events(tenant_id, seq);
CREATE INDEX idx_tenant_events_type ON events(tenant_id, type, created_at);
CREATE INDEX idx_tenant_events_entity ON events(tenant_id, entity_id, created_at);

-- Canonical collections.
CREATE TABLE dialogs (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX idx_tenant_dialogs ON dialogs(tenant_id);

CREATE TABLE dialog_members (
    tenant_id TEXT NOT NULL,
    dialog_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT 'member',
    joined_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (tenant_id, dialog_id, user_id)
);
CREATE INDEX idx_members_user ON dialog_members(tenant_id, user_id);

CREATE TABLE topics (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    dialog_id TEXT NOT NULL,
    title TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX idx_tenant_topics ON topics(tenant_id, dialog_id);

CREATE TABLE messages (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    dialog_id TEXT NOT NULL,
    topic_id TEXT,
    sender_id TEXT NOT NULL,
    body TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX idx_tenant_messages ON messages(tenant_id, dialog_id, created_at);

-- Per-recipient delivery rows; ground truth for unread counters.
CREATE TABLE message_statuses (
    tenant_id TEXT NOT NULL,
    message_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    dialog_id TEXT NOT NULL,
    topic_id TEXT,
    is_read INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    read_at TIMESTAMP,
    PRIMARY KEY (tenant_id, message_id, user_id)
);
CREATE INDEX idx_statuses_unread ON message_statuses(tenant_id, user_id, dialog_id, is_read);

CREATE TABLE packs (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX idx_tenant_packs ON packs(tenant_id);

CREATE TABLE pack_dialogs (
    tenant_id TEXT NOT NULL,
    pack_id TEXT NOT NULL,
    dialog_id TEXT NOT NULL,
    added_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (tenant_id, pack_id, dialog_id)
);
CREATE INDEX idx_pack_dialogs_dialog ON pack_dialogs(tenant_id, dialog_id);

-- Denormalized aggregates. Counters never go below zero; rows are created
-- lazily on first delta or by recalculation.
CREATE TABLE user_stats (
    tenant_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    dialog_count INTEGER NOT NULL DEFAULT 0,
    total_unread_count INTEGER NOT NULL DEFAULT 0,
    unread_dialogs_count INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (tenant_id, user_id)
);

CREATE TABLE user_dialog_stats (
    tenant_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    dialog_id TEXT NOT NULL,
    unread_count INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (tenant_id, user_id, dialog_id)
);
CREATE INDEX idx_user_dialog_stats_dialog ON user_dialog_stats(tenant_id, dialog_id);

CREATE TABLE dialog_stats (
    tenant_id TEXT NOT NULL,
    dialog_id TEXT NOT NULL,
    member_count INTEGER NOT NULL DEFAULT 0,
    message_count INTEGER NOT NULL DEFAULT 0,
    topic_count INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (tenant_id, dialog_id)
);

CREATE TABLE user_topic_stats (
    tenant_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    dialog_id TEXT NOT NULL,
    topic_id TEXT NOT NULL,
    unread_count INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (tenant_id, user_id, topic_id)
);
CREATE INDEX idx_user_topic_stats_dialog ON user_topic_stats(tenant_id, dialog_id);

CREATE TABLE pack_stats (
    tenant_id TEXT NOT NULL,
    pack_id TEXT NOT NULL,
    dialog_count INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (tenant_id, pack_id)
);

CREATE TABLE user_pack_stats (
    tenant_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    pack_id TEXT NOT NULL,
    unread_count INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (tenant_id, user_id, pack_id)
);
`

	_, err := db.Exec(migration)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
