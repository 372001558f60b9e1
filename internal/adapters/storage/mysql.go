package storage

import (
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

const mysqlSchema = `
CREATE TABLE IF NOT EXISTS customers (
	id BIGINT PRIMARY KEY AUTO_INCREMENT,
	domain VARCHAR(255) UNIQUE NOT NULL,
	status INT NOT NULL,
	created_at DATETIME NOT NULL,
	status_changed_at DATETIME NOT NULL
);
`

const mysqlSettingsSchema = `
CREATE TABLE IF NOT EXISTS settings (
	` + "`key`" + ` VARCHAR(255) PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);
`

// OpenMySQL connects to MySQL and ensures the schema exists. The DSN must
// carry parseTime=true so DATETIME columns scan into time.Time; it is
// appended when missing.
func OpenMySQL(dsn string) (*sqlx.DB, error) {
	if !strings.Contains(dsn, "parseTime") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "parseTime=true"
	}

	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to mysql database: %w", err)
	}

	for _, stmt := range []string{mysqlSchema, mysqlSettingsSchema} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	if _, err := db.Exec(
		"INSERT IGNORE INTO settings (`key`, value, updated_at) VALUES ('user_email', '', NOW())",
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to seed settings: %w", err)
	}

	return db, nil
}
