package metrics

import (
	"sync"
	"time"
)

// Store keeps generation aggregates and a ring of recent records.
// It is safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	recent []GenerationRecord
	cap    int
	head   int
	size   int

	total, completed, cached, failed int64
	persistenceFailures, retries     int64
	images                           int64
	byModel                          map[string]*modelStats

	sink      func(GenerationRecord)
	startTime time.Time
	version   string
}

type modelStats struct {
	count         int64
	successCount  int64
	attempts      int64
	totalDuration time.Duration
}

// StoreConfig configures a Store.
type StoreConfig struct {
	// RecentCapacity is the number of records kept for Recent.
	RecentCapacity int

	Version string

	// Sink, when set, receives every record after it is aggregated.
	// It must not block; the async writer's Write is the intended sink.
	Sink func(GenerationRecord)
}

func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		RecentCapacity: 100,
		Version:        "0.0.0",
	}
}

// NewStore creates a Store.
func NewStore(config StoreConfig, startTime time.Time) *Store {
	capacity := config.RecentCapacity
	if capacity < 1 {
		capacity = 100
	}
	return &Store{
		recent:    make([]GenerationRecord, capacity),
		cap:       capacity,
		byModel:   make(map[string]*modelStats),
		sink:      config.Sink,
		startTime: startTime,
		version:   config.Version,
	}
}

var _ Recorder = (*Store)(nil)

// RecordGeneration aggregates rec and forwards it to the sink.
func (s *Store) RecordGeneration(rec GenerationRecord) {
	s.mu.Lock()
	s.recent[s.head] = rec
	s.head = (s.head + 1) % s.cap
	if s.size < s.cap {
		s.size++
	}

	s.total++
	switch rec.Status {
	case StatusCompleted:
		s.completed++
		s.images += int64(rec.ImageCount)
	case StatusCached:
		s.cached++
	case StatusFailed:
		s.failed++
	}
	if rec.PersistenceFailed {
		s.persistenceFailures++
	}
	if rec.Attempts > 1 {
		s.retries += int64(rec.Attempts - 1)
	}

	if rec.Status != StatusCached {
		stats, ok := s.byModel[rec.Model]
		if !ok {
			stats = &modelStats{}
			s.byModel[rec.Model] = stats
		}
		stats.count++
		if rec.Status == StatusCompleted {
			stats.successCount++
		}
		stats.attempts += int64(rec.Attempts)
		stats.totalDuration += rec.Duration
	}
	sink := s.sink
	s.mu.Unlock()

	if sink != nil {
		sink(rec)
	}
}

// Stats returns a snapshot of the aggregates.
func (s *Store) Stats() GenerationStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := GenerationStats{
		Total:               s.total,
		Completed:           s.completed,
		Cached:              s.cached,
		Failed:              s.failed,
		PersistenceFailures: s.persistenceFailures,
		Retries:             s.retries,
		ImagesGenerated:     s.images,
		ByModel:             make(map[string]*ModelStats, len(s.byModel)),
	}
	if s.total > 0 {
		out.CacheHitRate = float64(s.cached) / float64(s.total) * 100
	}

	for model, stats := range s.byModel {
		ms := &ModelStats{Count: stats.count}
		if stats.count > 0 {
			ms.SuccessRate = float64(stats.successCount) / float64(stats.count) * 100
			ms.AvgDuration = stats.totalDuration / time.Duration(stats.count)
			ms.AvgAttempts = float64(stats.attempts) / float64(stats.count)
		}
		out.ByModel[model] = ms
	}
	return out
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(limit int) []GenerationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || s.size == 0 {
		return []GenerationRecord{}
	}
	if limit > s.size {
		limit = s.size
	}

	out := make([]GenerationRecord, limit)
	for i := 0; i < limit; i++ {
		idx := (s.head - 1 - i + s.cap) % s.cap
		out[i] = s.recent[idx]
	}
	return out
}

// SystemStatus reports degraded health when the most recent generations
// all failed.
func (s *Store) SystemStatus(now time.Time) SystemStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	health := SystemHealthRunning
	const window = 3
	if s.size >= window {
		allFailed := true
		for i := 0; i < window; i++ {
			if s.recent[(s.head-1-i+s.cap)%s.cap].Status != StatusFailed {
				allFailed = false
				break
			}
		}
		if allFailed {
			health = SystemHealthDegraded
		}
	}

	return SystemStatus{
		Health:    health,
		Version:   s.version,
		Uptime:    now.Sub(s.startTime),
		LastCheck: now,
	}
}
