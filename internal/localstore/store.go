// Package localstore is the relational store of conversational memory
// records the sync engine reads from and writes into. Open creates the
// schema if it is absent; ownership of the database file stays with the
// host application, and this package exposes typed reads/writes over it.
package localstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store wraps a SQLite handle holding the four memory record tables.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the local store at path in WAL mode
// and ensures its schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping local store: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// DB returns the underlying connection for the importer's transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close checkpoints the WAL and closes the handle.
func (s *Store) Close() error {
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	content_session_id TEXT PRIMARY KEY,
	memory_session_id TEXT UNIQUE,
	project TEXT NOT NULL DEFAULT '',
	user_prompt TEXT NOT NULL DEFAULT '',
	custom_title TEXT,
	started_at TEXT NOT NULL DEFAULT '',
	started_at_epoch INTEGER NOT NULL DEFAULT 0,
	completed_at TEXT,
	completed_at_epoch INTEGER,
	status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active','failed','completed'))
);

CREATE TABLE IF NOT EXISTS user_prompts (
	content_session_id TEXT NOT NULL,
	prompt_number INTEGER NOT NULL,
	project TEXT NOT NULL DEFAULT '',
	prompt_text TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL DEFAULT '',
	created_at_epoch INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (content_session_id, prompt_number)
);

CREATE INDEX IF NOT EXISTS idx_user_prompts_epoch ON user_prompts(created_at_epoch);

CREATE TABLE IF NOT EXISTS observations (
	memory_session_id TEXT NOT NULL,
	project TEXT NOT NULL DEFAULT '',
	text TEXT NOT NULL DEFAULT '',
	type TEXT NOT NULL DEFAULT '',
	title TEXT,
	subtitle TEXT,
	facts TEXT,
	narrative TEXT,
	concepts TEXT,
	files_read TEXT,
	files_modified TEXT,
	prompt_number INTEGER,
	discovery_tokens INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL DEFAULT '',
	created_at_epoch INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_observations_epoch ON observations(created_at_epoch);
CREATE INDEX IF NOT EXISTS idx_observations_session ON observations(memory_session_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_observations_dedup
	ON observations(memory_session_id, created_at_epoch, type, COALESCE(title,''), COALESCE(narrative,''));

CREATE TABLE IF NOT EXISTS summaries (
	memory_session_id TEXT NOT NULL,
	project TEXT NOT NULL DEFAULT '',
	text TEXT NOT NULL DEFAULT '',
	title TEXT,
	narrative TEXT,
	concepts TEXT,
	prompt_number INTEGER,
	discovery_tokens INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL DEFAULT '',
	created_at_epoch INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_summaries_epoch ON summaries(created_at_epoch);
CREATE INDEX IF NOT EXISTS idx_summaries_session ON summaries(memory_session_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_summaries_dedup
	ON summaries(memory_session_id, created_at_epoch, COALESCE(prompt_number,-1));
`

func (s *Store) initSchema() error {
	_, err := s.db.Exec(schema)
	return err
}

// ExecContext runs a statement outside of the importer's transaction, used
// by host-application writers (session capture, prompt capture, ...).
func (s *Store) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, query, args...)
}
