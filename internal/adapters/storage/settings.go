package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/theak/crm/internal/core"
)

// SettingsRepo is a sqlx implementation of core.SettingsRepository.
type SettingsRepo struct {
	db *sqlx.DB
}

// NewSettingsRepo creates a settings repository over an open database.
func NewSettingsRepo(db *sqlx.DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

var _ core.SettingsRepository = (*SettingsRepo)(nil)

// Get returns the raw setting for a key, or core.ErrNotFound.
func (r *SettingsRepo) Get(ctx context.Context, key string) (*core.Setting, error) {
	var s core.Setting
	err := r.db.GetContext(ctx, &s, "SELECT `key`, value, updated_at FROM settings WHERE `key` = ?", key)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query setting: %w", err)
	}
	return &s, nil
}

// List returns all settings.
func (r *SettingsRepo) List(ctx context.Context) ([]core.Setting, error) {
	var settings []core.Setting
	err := r.db.SelectContext(ctx, &settings, "SELECT `key`, value, updated_at FROM settings")
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return settings, nil
}

// Set upserts a key and refreshes updated_at.
func (r *SettingsRepo) Set(ctx context.Context, key, value string) error {
	now := time.Now().UTC()

	res, err := r.db.ExecContext(ctx,
		"UPDATE settings SET value = ?, updated_at = ? WHERE `key` = ?", value, now, key)
	if err != nil {
		return fmt.Errorf("update setting: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update setting: %w", err)
	}
	if affected == 0 {
		if _, err := r.db.ExecContext(ctx,
			"INSERT INTO settings (`key`, value, updated_at) VALUES (?, ?, ?)", key, value, now); err != nil {
			return fmt.Errorf("insert setting: %w", err)
		}
	}
	return nil
}
