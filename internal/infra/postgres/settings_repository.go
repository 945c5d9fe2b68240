package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/contentgraph/api/pkg/domain/shared"
)

// SettingsRepository is a generic key-value store for process-wide option
// values: feature toggles, the schema-version marker, last-scan timestamps.
// Values are stored as JSONB.
type SettingsRepository struct {
	db *DB
}

// NewSettingsRepository creates a new SettingsRepository.
func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get unmarshals the value for key into target, or returns shared.ErrNotFound.
func (r *SettingsRepository) Get(ctx context.Context, key string, target any) error {
	var raw []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = $1`, key).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("setting %q: %w", key, shared.ErrNotFound)
		}
		return fmt.Errorf("failed to get setting %q: %w", key, err)
	}
	return json.Unmarshal(raw, target)
}

// Set stores the value for key, overwriting any prior value.
func (r *SettingsRepository) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal setting %q: %w", key, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, key, raw)
	if err != nil {
		return fmt.Errorf("failed to set setting %q: %w", key, err)
	}
	return nil
}

// Delete removes a setting. Missing keys are not an error.
func (r *SettingsRepository) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM settings WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("failed to delete setting %q: %w", key, err)
	}
	return nil
}

// GetInt returns an integer setting, or fallback when absent.
func (r *SettingsRepository) GetInt(ctx context.Context, key string, fallback int) (int, error) {
	var v int
	if err := r.Get(ctx, key, &v); err != nil {
		if shared.IsNotFound(err) {
			return fallback, nil
		}
		return 0, err
	}
	return v, nil
}

// SetInt stores an integer setting.
func (r *SettingsRepository) SetInt(ctx context.Context, key string, v int) error {
	return r.Set(ctx, key, v)
}

// GetTime returns a timestamp setting, or the zero time when absent.
func (r *SettingsRepository) GetTime(ctx context.Context, key string) (time.Time, error) {
	var v time.Time
	if err := r.Get(ctx, key, &v); err != nil {
		if shared.IsNotFound(err) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	return v, nil
}

// SetTime stores a timestamp setting.
func (r *SettingsRepository) SetTime(ctx context.Context, key string, v time.Time) error {
	return r.Set(ctx, key, v)
}
