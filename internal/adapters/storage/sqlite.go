package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS customers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	domain TEXT UNIQUE NOT NULL,
	status INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL,
	status_changed_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
	` + "`key`" + ` TEXT PRIMARY KEY,
	value TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMP NOT NULL
);

INSERT OR IGNORE INTO settings (` + "`key`" + `, value, updated_at)
VALUES ('user_email', '', CURRENT_TIMESTAMP);
`

// OpenSQLite opens (or creates) the sqlite database at the given path and
// ensures the schema exists.
func OpenSQLite(path string) (*sqlx.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
	}

	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// WAL keeps concurrent readers off the writers' backs.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return db, nil
}
