package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"thumbnail_studio/core"
)

// TemplateStore persists prompt templates. Saving an existing id overwrites it.
type TemplateStore struct {
	db *Database
}

// NewTemplateStore creates a TemplateStore.
func NewTemplateStore(database *Database) (*TemplateStore, error) {
	if database == nil {
		return nil, fmt.Errorf("db: database cannot be nil")
	}
	return &TemplateStore{db: database}, nil
}

const templateColumns = `id, name, prompt, vehicle, model, aspect_ratio, number_of_images, settings_model, is_favorite, created_at`

// Save inserts or replaces t.
func (s *TemplateStore) Save(ctx context.Context, t core.Template) error {
	if t.ID == "" {
		return fmt.Errorf("db: template requires an id")
	}
	q, err := s.db.querier()
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO templates (`+templateColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			prompt = excluded.prompt,
			vehicle = excluded.vehicle,
			model = excluded.model,
			aspect_ratio = excluded.aspect_ratio,
			number_of_images = excluded.number_of_images,
			settings_model = excluded.settings_model,
			is_favorite = excluded.is_favorite,
			created_at = excluded.created_at`,
		t.ID, t.Name, t.Prompt, string(t.Vehicle), string(t.Model),
		t.Settings.AspectRatio, t.Settings.NumberOfImages, string(t.Settings.Model),
		t.IsFavorite, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("db: save template %s: %w", t.ID, err)
	}
	return nil
}

// List returns all templates, newest first.
func (s *TemplateStore) List(ctx context.Context) ([]core.Template, error) {
	q, err := s.db.querier()
	if err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx, `SELECT `+templateColumns+` FROM templates ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("db: list templates: %w", err)
	}
	defer rows.Close()

	templates := []core.Template{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db: iterate templates: %w", err)
	}
	return templates, nil
}

// Get returns the template with id, or ErrNotFound.
func (s *TemplateStore) Get(ctx context.Context, id string) (core.Template, error) {
	q, err := s.db.querier()
	if err != nil {
		return core.Template{}, err
	}
	t, err := scanTemplate(q.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM templates WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Template{}, ErrNotFound
	}
	return t, err
}

// Delete removes the template with id. Missing ids are ignored.
func (s *TemplateStore) Delete(ctx context.Context, id string) error {
	q, err := s.db.querier()
	if err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM templates WHERE id = ?`, id); err != nil {
		return fmt.Errorf("db: delete template %s: %w", id, err)
	}
	return nil
}

// ToggleFavorite flips the favorite flag and returns the updated template.
func (s *TemplateStore) ToggleFavorite(ctx context.Context, id string) (core.Template, error) {
	var out core.Template
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE templates SET is_favorite = NOT is_favorite WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("db: toggle favorite %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		out, err = scanTemplate(tx.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM templates WHERE id = ?`, id))
		return err
	})
	return out, err
}

func scanTemplate(row rowScanner) (core.Template, error) {
	var (
		t        core.Template
		vehicle  string
		model    string
		setModel string
	)
	err := row.Scan(&t.ID, &t.Name, &t.Prompt, &vehicle, &model,
		&t.Settings.AspectRatio, &t.Settings.NumberOfImages, &setModel, &t.IsFavorite, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return t, err
	}
	if err != nil {
		return t, fmt.Errorf("db: scan template: %w", err)
	}
	t.Vehicle = core.VehicleType(vehicle)
	t.Model = core.ImageModel(model)
	t.Settings.Model = core.ImageModel(setModel)
	return t, nil
}
