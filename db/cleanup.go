package db

import (
	"context"
	"fmt"
	"time"
)

// CleanupResult reports one retention pass.
type CleanupResult struct {
	MetricsDeleted int64
	Duration       time.Duration
}

// Cleanup deletes generation metrics older than retentionDays and compacts
// the file. History is bounded by eviction and is not touched here.
func (d *Database) Cleanup(ctx context.Context, retentionDays int, now time.Time) (CleanupResult, error) {
	start := time.Now()
	var result CleanupResult

	if retentionDays < 0 {
		return result, fmt.Errorf("db: retentionDays must be non-negative, got %d", retentionDays)
	}

	cutoff := now.AddDate(0, 0, -retentionDays).UnixMilli()
	q, err := d.querier()
	if err != nil {
		return result, err
	}
	res, err := q.ExecContext(ctx, `DELETE FROM generation_metrics WHERE created_at < ?`, cutoff)
	if err != nil {
		return result, fmt.Errorf("db: delete expired metrics: %w", err)
	}
	result.MetricsDeleted, _ = res.RowsAffected()

	if _, err := q.ExecContext(ctx, "VACUUM"); err != nil {
		result.Duration = time.Since(start)
		return result, fmt.Errorf("db: cleanup succeeded but VACUUM failed: %w", err)
	}

	result.Duration = time.Since(start)
	return result, nil
}

// CleanupSchedulerConfig configures RunCleanupScheduler.
type CleanupSchedulerConfig struct {
	RetentionDays int
	Interval      time.Duration

	// OnCleanup is called after every pass. Optional.
	OnCleanup func(result CleanupResult, err error)
}

func DefaultCleanupSchedulerConfig() CleanupSchedulerConfig {
	return CleanupSchedulerConfig{
		RetentionDays: 30,
		Interval:      24 * time.Hour,
	}
}

// RunCleanupScheduler runs a pass immediately and then every Interval until
// ctx is cancelled. It blocks; run it in its own goroutine or errgroup.
func (d *Database) RunCleanupScheduler(ctx context.Context, config CleanupSchedulerConfig) error {
	if config.Interval <= 0 {
		return fmt.Errorf("db: cleanup interval must be positive")
	}

	pass := func() {
		result, err := d.Cleanup(ctx, config.RetentionDays, time.Now())
		if config.OnCleanup != nil {
			config.OnCleanup(result, err)
		}
	}

	pass()
	ticker := time.NewTicker(config.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			pass()
		}
	}
}
