// Package store persists activity events in an embedded SQLite database.
//
// The event log is append-only: rows are inserted and queried, never updated
// or deleted. Timestamps are stored as integer Unix nanoseconds so range
// scans and ordering use the (user_id, ts) index directly.
//
// Architecture:
//   - Database file: ~/.local/share/timeforged/timeforged.db
//   - WAL mode: report queries read while the watcher writes
//   - Schema: users, events
//   - Indexes: (user_id, ts) for range scans, (user_id, project, ts) for
//     project-filtered reports
//
// Example:
//
//	db, err := store.Open(path)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	if err := db.InitSchema(); err != nil {
//	    return err
//	}
//	id, err := db.InsertEvent(ctx, ev)
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DB wraps the SQLite connection pool.
type DB struct {
	conn *sql.DB
	path string
}

// Open creates or opens the database at path with WAL enabled.
// The parent directory is created if needed. The caller must call Close.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{conn: conn, path: path}
	return db, nil
}

// dsn builds the connection string. Pragmas in the DSN run on every pooled
// connection, not just the first one.
func dsn(path string) string {
	return "file:" + path +
		"?_pragma=journal_mode(wal)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=foreign_keys(1)"
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Close checkpoints the WAL and closes the connection pool.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	db.conn = nil
	return nil
}

// InitSchema creates the tables and indexes if they do not exist.
// It is idempotent.
func (db *DB) InitSchema() error {
	return db.InitSchemaContext(context.Background())
}

// InitSchemaContext creates the schema with context support.
func (db *DB) InitSchemaContext(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		ts INTEGER NOT NULL,       -- unix nanoseconds, UTC
		event_type TEXT NOT NULL,
		entity TEXT NOT NULL,
		project TEXT,
		language TEXT,
		branch TEXT,
		activity TEXT,
		machine TEXT,
		metadata TEXT,             -- JSON object
		created_at INTEGER NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE INDEX IF NOT EXISTS idx_events_user_ts ON events(user_id, ts);
	CREATE INDEX IF NOT EXISTS idx_events_user_project_ts ON events(user_id, project, ts);
	`

	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}
