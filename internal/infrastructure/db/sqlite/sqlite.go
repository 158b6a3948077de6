// Package sqlite provides the embedded durable store backing the offline
// queue and the credential store. SQLite is deliberate: offline durability
// cannot depend on an external daemon being reachable.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const dbFileName = "fieldsync.db"

// Open opens (creating if needed) the agent database under dataDir with WAL
// mode and foreign keys enabled. SQLite supports a single writer, so the
// connection pool is capped at one.
func Open(dataDir string) (*sql.DB, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("sqlite: create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dataDir, dbFileName))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: enable foreign keys: %w", err)
	}

	return db, nil
}

// Migrate creates the schema. Safe to call on every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS queued_operations (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	kind            TEXT    NOT NULL,
	payload         TEXT    NOT NULL,
	status          TEXT    NOT NULL DEFAULT 'pending',
	idempotency_key TEXT    NOT NULL,
	created_at      INTEGER NOT NULL,
	synced_at       INTEGER,
	remote_id       TEXT
);
CREATE INDEX IF NOT EXISTS idx_queued_operations_status     ON queued_operations(status);
CREATE INDEX IF NOT EXISTS idx_queued_operations_created_at ON queued_operations(created_at);

CREATE TABLE IF NOT EXISTS credentials (
	k TEXT PRIMARY KEY,
	v BLOB NOT NULL
);`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}
