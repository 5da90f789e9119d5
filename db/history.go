package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"thumbnail_studio/core"
	"thumbnail_studio/logging"
)

// HistoryStoreConfig configures a HistoryStore.
type HistoryStoreConfig struct {
	// Limit is the number of records kept after each insert. Oldest go first.
	Limit int

	// Notifier is told about every committed mutation. Optional.
	Notifier core.HistoryNotifier
}

// DefaultHistoryStoreConfig keeps the newest 100 records.
func DefaultHistoryStoreConfig() HistoryStoreConfig {
	return HistoryStoreConfig{Limit: core.DefaultHistoryLimit}
}

// HistoryStore persists generated images with a secondary index on cache key.
// Every read decodes fresh values, so callers never share state with the store.
type HistoryStore struct {
	db       *Database
	limit    int
	notifier core.HistoryNotifier
	logger   *logging.Logger
}

// NewHistoryStore creates a HistoryStore on a migrated database.
func NewHistoryStore(database *Database, config HistoryStoreConfig, logger *logging.Logger) (*HistoryStore, error) {
	if database == nil {
		return nil, fmt.Errorf("db: database cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("db: logger cannot be nil")
	}
	if config.Limit < 1 {
		config.Limit = core.DefaultHistoryLimit
	}
	return &HistoryStore{
		db:       database,
		limit:    config.Limit,
		notifier: config.Notifier,
		logger:   logger.Named("history"),
	}, nil
}

// Limit returns the eviction limit.
func (s *HistoryStore) Limit() int {
	return s.limit
}

const historyColumns = `id, url, model, prompt, vehicle, timestamp, aspect_ratio,
	number_of_images, settings_model, cache_key, note, favorite, shipped, session_id, copy_ideas`

const upsertHistory = `INSERT INTO history (` + historyColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		url = excluded.url,
		model = excluded.model,
		prompt = excluded.prompt,
		vehicle = excluded.vehicle,
		timestamp = excluded.timestamp,
		aspect_ratio = excluded.aspect_ratio,
		number_of_images = excluded.number_of_images,
		settings_model = excluded.settings_model,
		cache_key = excluded.cache_key,
		note = excluded.note,
		favorite = excluded.favorite,
		shipped = excluded.shipped,
		session_id = excluded.session_id,
		copy_ideas = excluded.copy_ideas`

// Newest first. rowid breaks timestamp ties in favour of the later insert.
const historyOrder = ` ORDER BY timestamp DESC, rowid DESC`

// Put inserts or overwrites rec by id, then evicts beyond the limit.
func (s *HistoryStore) Put(ctx context.Context, rec core.HistoryRecord) error {
	return s.PutMany(ctx, []core.HistoryRecord{rec})
}

// PutMany writes all records and runs eviction in one transaction: either
// every record is stored or none is. Records are inserted so that, among
// equal timestamps, recs[0] reads back first.
func (s *HistoryStore) PutMany(ctx context.Context, recs []core.HistoryRecord) error {
	if len(recs) == 0 {
		return nil
	}

	var evicted int64
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertHistory)
		if err != nil {
			return fmt.Errorf("db: prepare history insert: %w", err)
		}
		defer stmt.Close()

		for i := len(recs) - 1; i >= 0; i-- {
			args, err := historyArgs(recs[i])
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("db: insert history %s: %w", recs[i].ID, err)
			}
		}

		evicted, err = s.evict(ctx, tx)
		return err
	})
	if err != nil {
		return err
	}

	if evicted > 0 {
		s.logger.Debug("evicted history records", zap.Int64("count", evicted), zap.Int("limit", s.limit))
	}
	s.notify(core.HistoryOpPut, recordIDs(recs))
	return nil
}

func (s *HistoryStore) evict(ctx context.Context, tx *sql.Tx) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`DELETE FROM history WHERE id IN (
			SELECT id FROM history`+historyOrder+` LIMIT -1 OFFSET ?
		)`, s.limit)
	if err != nil {
		return 0, fmt.Errorf("db: evict history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil || n == 0 {
		return n, err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM exports WHERE image_id NOT IN (SELECT id FROM history)`); err != nil {
		return 0, fmt.Errorf("db: evict exports: %w", err)
	}
	return n, nil
}

// GetAll returns every record, newest first.
func (s *HistoryStore) GetAll(ctx context.Context) ([]core.HistoryRecord, error) {
	return s.query(ctx, `SELECT `+historyColumns+` FROM history`+historyOrder)
}

// GetByCacheKey returns the records generated for key, newest first.
func (s *HistoryStore) GetByCacheKey(ctx context.Context, key string) ([]core.HistoryRecord, error) {
	return s.query(ctx, `SELECT `+historyColumns+` FROM history WHERE cache_key = ?`+historyOrder, key)
}

// Get returns the record with id, or ErrNotFound.
func (s *HistoryStore) Get(ctx context.Context, id string) (core.HistoryRecord, error) {
	recs, err := s.query(ctx, `SELECT `+historyColumns+` FROM history WHERE id = ?`, id)
	if err != nil {
		return core.HistoryRecord{}, err
	}
	if len(recs) == 0 {
		return core.HistoryRecord{}, ErrNotFound
	}
	return recs[0], nil
}

// Count returns the number of stored records.
func (s *HistoryStore) Count(ctx context.Context) (int, error) {
	q, err := s.db.querier()
	if err != nil {
		return 0, err
	}
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM history`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db: count history: %w", err)
	}
	return n, nil
}

// Update merges patch into the record with id. It reports false, with no
// error and no change, when the id does not exist.
func (s *HistoryStore) Update(ctx context.Context, id string, patch core.HistoryPatch) (bool, error) {
	found := false
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+historyColumns+` FROM history WHERE id = ?`, id)
		rec, err := scanHistory(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		if patch.IsEmpty() {
			return nil
		}

		patch.Apply(&rec)
		ideas, err := encodeCopyIdeas(rec.CopyIdeas)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE history SET note = ?, favorite = ?, shipped = ?, copy_ideas = ? WHERE id = ?`,
			rec.Note, rec.Favorite, rec.Shipped, ideas, id)
		if err != nil {
			return fmt.Errorf("db: update history %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if found && !patch.IsEmpty() {
		s.notify(core.HistoryOpUpdate, []string{id})
	}
	return found, nil
}

// Delete removes the record with id and its export log. Deleting a missing
// id is not an error.
func (s *HistoryStore) Delete(ctx context.Context, id string) error {
	var deleted int64
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM exports WHERE image_id = ?`, id); err != nil {
			return fmt.Errorf("db: delete exports for %s: %w", id, err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM history WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("db: delete history %s: %w", id, err)
		}
		deleted, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return err
	}
	if deleted > 0 {
		s.notify(core.HistoryOpDelete, []string{id})
	}
	return nil
}

// Clear removes every record and the export log.
func (s *HistoryStore) Clear(ctx context.Context) error {
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM history`); err != nil {
			return fmt.Errorf("db: clear history: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM exports`); err != nil {
			return fmt.Errorf("db: clear exports: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.notify(core.HistoryOpClear, nil)
	return nil
}

// LogExport appends an export entry for an image. It returns ErrNotFound
// when the image is not in history.
func (s *HistoryStore) LogExport(ctx context.Context, entry core.ExportLogEntry) error {
	if entry.ID == "" || entry.ImageID == "" {
		return fmt.Errorf("db: export entry requires id and image id")
	}
	q, err := s.db.querier()
	if err != nil {
		return err
	}
	res, err := q.ExecContext(ctx,
		`INSERT INTO exports (id, image_id, format, width, height, destination, exported_at)
		 SELECT ?, ?, ?, ?, ?, ?, ?
		 WHERE EXISTS (SELECT 1 FROM history WHERE id = ?)`,
		entry.ID, entry.ImageID, entry.Format, entry.Width, entry.Height, entry.Destination, entry.ExportedAt,
		entry.ImageID)
	if err != nil {
		return fmt.Errorf("db: insert export %s: %w", entry.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("db: export %s for image %s: %w", entry.ID, entry.ImageID, ErrNotFound)
	}
	s.notify(core.HistoryOpExport, []string{entry.ImageID})
	return nil
}

// ExportLogs returns the export log for imageID, or for every image when
// imageID is empty, newest first.
func (s *HistoryStore) ExportLogs(ctx context.Context, imageID string) ([]core.ExportLogEntry, error) {
	q, err := s.db.querier()
	if err != nil {
		return nil, err
	}

	query := `SELECT id, image_id, format, width, height, destination, exported_at FROM exports`
	var args []any
	if imageID != "" {
		query += ` WHERE image_id = ?`
		args = append(args, imageID)
	}
	query += ` ORDER BY exported_at DESC, rowid DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db: query exports: %w", err)
	}
	defer rows.Close()
	return scanExports(rows)
}

func (s *HistoryStore) query(ctx context.Context, query string, args ...any) ([]core.HistoryRecord, error) {
	q, err := s.db.querier()
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db: query history: %w", err)
	}
	recs := []core.HistoryRecord{}
	for rows.Next() {
		rec, err := scanHistory(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("db: iterate history: %w", err)
	}
	rows.Close()

	if err := attachExports(ctx, q, recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// attachExports fills ExportLogs, oldest first, for the given records.
func attachExports(ctx context.Context, q querier, recs []core.HistoryRecord) error {
	if len(recs) == 0 {
		return nil
	}

	index := make(map[string]int, len(recs))
	placeholders := make([]string, len(recs))
	args := make([]any, len(recs))
	for i, r := range recs {
		index[r.ID] = i
		placeholders[i] = "?"
		args[i] = r.ID
	}

	rows, err := q.QueryContext(ctx,
		`SELECT id, image_id, format, width, height, destination, exported_at FROM exports
		 WHERE image_id IN (`+strings.Join(placeholders, ",")+`)
		 ORDER BY exported_at ASC, rowid ASC`, args...)
	if err != nil {
		return fmt.Errorf("db: query exports: %w", err)
	}
	defer rows.Close()

	entries, err := scanExports(rows)
	if err != nil {
		return err
	}
	for _, e := range entries {
		i := index[e.ImageID]
		recs[i].ExportLogs = append(recs[i].ExportLogs, e)
	}
	return nil
}

func (s *HistoryStore) notify(op core.HistoryOp, ids []string) {
	if s.notifier != nil {
		s.notifier.HistoryChanged(core.HistoryChange{Op: op, IDs: ids})
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHistory(row rowScanner) (core.HistoryRecord, error) {
	var (
		rec      core.HistoryRecord
		model    string
		vehicle  string
		setModel string
		ideas    sql.NullString
	)
	err := row.Scan(&rec.ID, &rec.URL, &model, &rec.Prompt, &vehicle, &rec.Timestamp,
		&rec.Settings.AspectRatio, &rec.Settings.NumberOfImages, &setModel, &rec.CacheKey,
		&rec.Note, &rec.Favorite, &rec.Shipped, &rec.SessionID, &ideas)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, err
	}
	if err != nil {
		return rec, fmt.Errorf("db: scan history: %w", err)
	}

	rec.Model = core.ImageModel(model)
	rec.Vehicle = core.VehicleType(vehicle)
	rec.Settings.Model = core.ImageModel(setModel)
	rec.ExportLogs = []core.ExportLogEntry{}
	if ideas.Valid && ideas.String != "" {
		if err := json.Unmarshal([]byte(ideas.String), &rec.CopyIdeas); err != nil {
			return rec, fmt.Errorf("db: decode copy ideas for %s: %w", rec.ID, err)
		}
	}
	return rec, nil
}

func scanExports(rows *sql.Rows) ([]core.ExportLogEntry, error) {
	entries := []core.ExportLogEntry{}
	for rows.Next() {
		var e core.ExportLogEntry
		if err := rows.Scan(&e.ID, &e.ImageID, &e.Format, &e.Width, &e.Height, &e.Destination, &e.ExportedAt); err != nil {
			return nil, fmt.Errorf("db: scan export: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db: iterate exports: %w", err)
	}
	return entries, nil
}

func historyArgs(r core.HistoryRecord) ([]any, error) {
	if r.ID == "" {
		return nil, fmt.Errorf("db: history record requires an id")
	}
	ideas, err := encodeCopyIdeas(r.CopyIdeas)
	if err != nil {
		return nil, err
	}
	return []any{
		r.ID, r.URL, string(r.Model), r.Prompt, string(r.Vehicle), r.Timestamp,
		r.Settings.AspectRatio, r.Settings.NumberOfImages, string(r.Settings.Model), r.CacheKey,
		r.Note, r.Favorite, r.Shipped, r.SessionID, ideas,
	}, nil
}

func encodeCopyIdeas(ideas []string) (any, error) {
	if ideas == nil {
		return nil, nil
	}
	data, err := json.Marshal(ideas)
	if err != nil {
		return nil, fmt.Errorf("db: encode copy ideas: %w", err)
	}
	return string(data), nil
}

func recordIDs(recs []core.HistoryRecord) []string {
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	return ids
}
