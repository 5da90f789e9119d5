package db

import (
	"context"
	"encoding/json"
	"fmt"

	"thumbnail_studio/core"
)

// PresetStore persists style presets. Saving an existing id overwrites it.
type PresetStore struct {
	db *Database
}

// NewPresetStore creates a PresetStore.
func NewPresetStore(database *Database) (*PresetStore, error) {
	if database == nil {
		return nil, fmt.Errorf("db: database cannot be nil")
	}
	return &PresetStore{db: database}, nil
}

// Save inserts or replaces p.
func (s *PresetStore) Save(ctx context.Context, p core.StylePreset) error {
	if p.ID == "" {
		return fmt.Errorf("db: preset requires an id")
	}
	modules := p.Modules
	if modules == nil {
		modules = []string{}
	}
	encoded, err := json.Marshal(modules)
	if err != nil {
		return fmt.Errorf("db: encode preset modules: %w", err)
	}

	q, err := s.db.querier()
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO style_presets (id, name, modules, scene_id, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			modules = excluded.modules,
			scene_id = excluded.scene_id,
			created_at = excluded.created_at`,
		p.ID, p.Name, string(encoded), p.SceneID, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("db: save preset %s: %w", p.ID, err)
	}
	return nil
}

// List returns all presets, newest first.
func (s *PresetStore) List(ctx context.Context) ([]core.StylePreset, error) {
	q, err := s.db.querier()
	if err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx,
		`SELECT id, name, modules, scene_id, created_at FROM style_presets ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("db: list presets: %w", err)
	}
	defer rows.Close()

	presets := []core.StylePreset{}
	for rows.Next() {
		var (
			p       core.StylePreset
			modules string
		)
		if err := rows.Scan(&p.ID, &p.Name, &modules, &p.SceneID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("db: scan preset: %w", err)
		}
		if err := json.Unmarshal([]byte(modules), &p.Modules); err != nil {
			return nil, fmt.Errorf("db: decode modules for preset %s: %w", p.ID, err)
		}
		presets = append(presets, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db: iterate presets: %w", err)
	}
	return presets, nil
}

// Delete removes the preset with id. Missing ids are ignored.
func (s *PresetStore) Delete(ctx context.Context, id string) error {
	q, err := s.db.querier()
	if err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM style_presets WHERE id = ?`, id); err != nil {
		return fmt.Errorf("db: delete preset %s: %w", id, err)
	}
	return nil
}
