// Package store provides the durable local store for the festival
// catalog and the user's annotations.
//
// The store is an embedded SQLite database (WAL mode) addressed by the
// natural composite keys from the schema package:
//
//   - bands:      (name, year)
//   - events:     (band, time_index, year)
//   - priorities: (band, year)
//   - attendance: (band, location, start_hour, start_minute, type, year)
//
// Catalog tables are owned by the feed importer and replaced wholesale
// per year. Annotation tables are owned by the user and the cloud sync
// engine and must survive catalog re-imports. The meta table holds
// process-wide key/value state such as migration completion flags.
//
// Every write is a single statement or transaction, so a concurrent
// reader never observes a half-written row.
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

// Store wraps the SQLite connection.
type Store struct {
	conn *sql.DB
	path string
}

// Open creates or opens the database at path and prepares it for
// concurrent use. The caller must Close() when done.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
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

	s := &Store{conn: conn, path: path}

	// WAL keeps readers live during importer write bursts.
	if _, err := s.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := s.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return s, nil
}

// Path returns the on-disk location of the database.
func (s *Store) Path() string {
	return s.path
}

// Close checkpoints the WAL and closes the connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	s.conn = nil
	return nil
}

// InitSchema creates all tables and indexes. Idempotent.
func (s *Store) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS bands (
		name TEXT NOT NULL,
		year INTEGER NOT NULL,
		official_site TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		youtube TEXT NOT NULL DEFAULT '',
		metal_archives TEXT NOT NULL DEFAULT '',
		wikipedia TEXT NOT NULL DEFAULT '',
		country TEXT NOT NULL DEFAULT '',
		genre TEXT NOT NULL DEFAULT '',
		noteworthy TEXT NOT NULL DEFAULT '',
		prior_years TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (name, year)
	);

	CREATE TABLE IF NOT EXISTS events (
		band TEXT NOT NULL,
		time_index INTEGER NOT NULL,
		year INTEGER NOT NULL,
		end_time_index INTEGER NOT NULL DEFAULT 0,
		location TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL DEFAULT '',
		day TEXT NOT NULL DEFAULT '',
		start_time TEXT NOT NULL DEFAULT '',
		end_time TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL DEFAULT 'Unknown',
		notes TEXT NOT NULL DEFAULT '',
		desc_url TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (band, time_index, year)
	);

	CREATE TABLE IF NOT EXISTS priorities (
		band TEXT NOT NULL,
		year INTEGER NOT NULL,
		level INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL DEFAULT 0,
		device_id TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (band, year)
	);

	CREATE TABLE IF NOT EXISTS attendance (
		band TEXT NOT NULL,
		location TEXT NOT NULL,
		start_hour INTEGER NOT NULL,
		start_minute INTEGER NOT NULL,
		type TEXT NOT NULL,
		year INTEGER NOT NULL,
		status INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL DEFAULT 0,
		device_id TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (band, location, start_hour, start_minute, type, year)
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_bands_year ON bands(year);
	CREATE INDEX IF NOT EXISTS idx_events_year ON events(year);
	CREATE INDEX IF NOT EXISTS idx_events_band ON events(band, year);
	CREATE INDEX IF NOT EXISTS idx_priorities_year ON priorities(year);
	CREATE INDEX IF NOT EXISTS idx_attendance_year ON attendance(year);
	`

	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// GetMeta reads a process-wide key/value entry.
// The second return is false when the key has never been set.
func (s *Store) GetMeta(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.conn.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read meta %q: %w", key, err)
	}
	return value, true, nil
}

// SetMeta writes a process-wide key/value entry.
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	query := `
	INSERT INTO meta (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`
	if _, err := s.conn.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to write meta %q: %w", key, err)
	}
	return nil
}
