package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Well-known settings keys.
const (
	SettingLastSession = "last_session"
	SettingProfile     = "profile"
)

// SettingsStore keeps small JSON documents by key.
type SettingsStore struct {
	db  *Database
	now func() time.Time
}

// NewSettingsStore creates a SettingsStore.
func NewSettingsStore(database *Database) (*SettingsStore, error) {
	if database == nil {
		return nil, fmt.Errorf("db: database cannot be nil")
	}
	return &SettingsStore{db: database, now: time.Now}, nil
}

// GetJSON decodes the value stored under key into dst. It reports false
// when the key is absent, leaving dst untouched.
func (s *SettingsStore) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	q, err := s.db.querier()
	if err != nil {
		return false, err
	}
	var raw string
	err = q.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("db: read setting %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("db: decode setting %s: %w", key, err)
	}
	return true, nil
}

// PutJSON stores v under key, replacing any previous value.
func (s *SettingsStore) PutJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("db: encode setting %s: %w", key, err)
	}
	return s.putRaw(ctx, key, data)
}

func (s *SettingsStore) putRaw(ctx context.Context, key string, data []byte) error {
	q, err := s.db.querier()
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(data), s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("db: write setting %s: %w", key, err)
	}
	return nil
}

// All returns every setting as raw JSON.
func (s *SettingsStore) All(ctx context.Context) (map[string]json.RawMessage, error) {
	q, err := s.db.querier()
	if err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx, `SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("db: list settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("db: scan setting: %w", err)
		}
		out[key] = json.RawMessage(value)
	}
	return out, rows.Err()
}

// PutAll stores raw JSON values, used when restoring a backup.
func (s *SettingsStore) PutAll(ctx context.Context, values map[string]json.RawMessage) error {
	for key, value := range values {
		if !json.Valid(value) {
			return fmt.Errorf("db: setting %s is not valid JSON", key)
		}
		if err := s.putRaw(ctx, key, value); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes key.
func (s *SettingsStore) Delete(ctx context.Context, key string) error {
	q, err := s.db.querier()
	if err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key); err != nil {
		return fmt.Errorf("db: delete setting %s: %w", key, err)
	}
	return nil
}
