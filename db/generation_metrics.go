package db

import (
	"context"
	"fmt"
	"time"

	"thumbnail_studio/metrics"
)

// MetricsRepository persists finished generation records.
type MetricsRepository struct {
	db *Database
}

// NewMetricsRepository creates a MetricsRepository.
func NewMetricsRepository(database *Database) (*MetricsRepository, error) {
	if database == nil {
		return nil, fmt.Errorf("db: database cannot be nil")
	}
	return &MetricsRepository{db: database}, nil
}

// Insert stores rec.
func (r *MetricsRepository) Insert(ctx context.Context, rec metrics.GenerationRecord) error {
	q, err := r.db.querier()
	if err != nil {
		return err
	}
	finished := rec.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO generation_metrics
			(run_id, model, status, attempts, image_count, duration_ms, persistence_failed, error_message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Model, rec.Status, rec.Attempts, rec.ImageCount,
		rec.Duration.Milliseconds(), rec.PersistenceFailed, rec.ErrorMsg, finished.UnixMilli())
	if err != nil {
		return fmt.Errorf("db: insert generation metric %s: %w", rec.RunID, err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (r *MetricsRepository) Recent(ctx context.Context, limit int) ([]metrics.GenerationRecord, error) {
	q, err := r.db.querier()
	if err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx,
		`SELECT run_id, model, status, attempts, image_count, duration_ms, persistence_failed, error_message, created_at
		 FROM generation_metrics ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("db: query generation metrics: %w", err)
	}
	defer rows.Close()

	out := []metrics.GenerationRecord{}
	for rows.Next() {
		var (
			rec        metrics.GenerationRecord
			durationMs int64
			createdAt  int64
		)
		if err := rows.Scan(&rec.RunID, &rec.Model, &rec.Status, &rec.Attempts, &rec.ImageCount,
			&durationMs, &rec.PersistenceFailed, &rec.ErrorMsg, &createdAt); err != nil {
			return nil, fmt.Errorf("db: scan generation metric: %w", err)
		}
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		rec.FinishedAt = time.UnixMilli(createdAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Count returns the number of stored records.
func (r *MetricsRepository) Count(ctx context.Context) (int64, error) {
	q, err := r.db.querier()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM generation_metrics`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db: count generation metrics: %w", err)
	}
	return n, nil
}

// WriteHandler adapts Insert for an AsyncWriter. Operations carrying
// anything other than a metrics.GenerationRecord are rejected.
func (r *MetricsRepository) WriteHandler(timeout time.Duration) WriteHandler {
	return func(op WriteOperation) error {
		rec, ok := op.Data.(metrics.GenerationRecord)
		if !ok {
			return fmt.Errorf("db: unexpected write payload %T", op.Data)
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return r.Insert(ctx, rec)
	}
}
