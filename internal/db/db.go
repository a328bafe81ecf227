package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wikivault/wikivault/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// DefaultListID is the fixed id of the default reading list created at
// migration time.
const DefaultListID = "default"

// Init initializes the SQLite database at baseDir/wikivault.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.wikivault.
func Init(baseDir string) (*sql.DB, error) {
	// Create base directory with restricted permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	// Explicit chmod (best-effort, may not work on all platforms)
	_ = os.Chmod(baseDir, 0700)

	// Create exports subdirectory
	exportsDir := filepath.Join(baseDir, "exports")
	if err := os.MkdirAll(exportsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create exports directory: %w", err)
	}
	_ = os.Chmod(exportsDir, 0700)

	// Open database with pragmas in connection string (applies to all connections)
	dbPath := filepath.Join(baseDir, "wikivault.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify WAL mode is active
	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	// Run migrations (this creates the file if it doesn't exist)
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions after file exists (best-effort)
	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
// Call after Init if you need to tune pool behavior for contention.
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema (v1)
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS reading_list (
		  id               TEXT PRIMARY KEY,
		  title            TEXT NOT NULL,
		  description      TEXT,
		  is_default       INTEGER NOT NULL DEFAULT 0,
		  download_enabled INTEGER NOT NULL DEFAULT 1,
		  created_at       INTEGER NOT NULL,
		  updated_at       INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS reading_list_page (
		  id                INTEGER PRIMARY KEY AUTOINCREMENT,
		  list_id           TEXT NOT NULL REFERENCES reading_list(id),
		  site              TEXT NOT NULL,
		  lang              TEXT NOT NULL,
		  namespace         INTEGER NOT NULL DEFAULT 0,
		  display_title     TEXT NOT NULL,
		  api_title         TEXT NOT NULL,
		  description       TEXT,
		  thumb_url         TEXT,
		  status            INTEGER NOT NULL DEFAULT 0,
		  offline           INTEGER NOT NULL DEFAULT 1,
		  size_bytes        INTEGER NOT NULL DEFAULT 0,
		  mtime             INTEGER NOT NULL,
		  atime             INTEGER NOT NULL,
		  revision          INTEGER NOT NULL DEFAULT 0,
		  remote_id         INTEGER NOT NULL DEFAULT 0,
		  download_progress INTEGER NOT NULL DEFAULT 0,
		  retry_count       INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_page_list
		ON reading_list_page(list_id);

		CREATE INDEX IF NOT EXISTS idx_page_status
		ON reading_list_page(status, offline);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_page_list_lang_title
		ON reading_list_page(list_id, lang, api_title);

		CREATE TABLE IF NOT EXISTS offline_object (
		  id        INTEGER PRIMARY KEY AUTOINCREMENT,
		  url       TEXT NOT NULL,
		  lang      TEXT NOT NULL,
		  path      TEXT NOT NULL,
		  status    INTEGER NOT NULL DEFAULT 1,
		  usedby    TEXT NOT NULL DEFAULT '',
		  save_type INTEGER NOT NULL DEFAULT 0
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_object_url_lang_type
		ON offline_object(url, lang, save_type);

		CREATE VIRTUAL TABLE IF NOT EXISTS offline_page_fts
		USING fts5(url UNINDEXED, title, body);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}

		// Seed the default reading list.
		now := time.Now().Unix()
		_, err := db.Exec(`
			INSERT OR IGNORE INTO reading_list (id, title, is_default, download_enabled, created_at, updated_at)
			VALUES (?, 'Saved pages', 1, 1, ?, ?)`,
			DefaultListID, now, now,
		)
		if err != nil {
			return fmt.Errorf("failed to seed default list: %w", err)
		}

		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
