package metrics

import "time"

// Generation outcomes. They mirror the terminal session run statuses.
const (
	StatusCompleted = "completed"
	StatusCached    = "cached"
	StatusFailed    = "failed"
)

const (
	SystemHealthRunning  = "running"
	SystemHealthDegraded = "degraded"
)

// GenerationRecord describes one finished generation request.
type GenerationRecord struct {
	RunID             string        `json:"run_id"`
	Model             string        `json:"model"`
	Status            string        `json:"status"`
	Attempts          int           `json:"attempts"`
	ImageCount        int           `json:"image_count"`
	Duration          time.Duration `json:"duration"`
	PersistenceFailed bool          `json:"persistence_failed"`
	ErrorMsg          string        `json:"error_msg,omitempty"`
	FinishedAt        time.Time     `json:"finished_at"`
}

// GenerationStats aggregates every record seen since start.
type GenerationStats struct {
	Total               int64                  `json:"total"`
	Completed           int64                  `json:"completed"`
	Cached              int64                  `json:"cached"`
	Failed              int64                  `json:"failed"`
	PersistenceFailures int64                  `json:"persistence_failures"`
	Retries             int64                  `json:"retries"`
	ImagesGenerated     int64                  `json:"images_generated"`
	CacheHitRate        float64                `json:"cache_hit_rate"`
	ByModel             map[string]*ModelStats `json:"by_model"`
}

// ModelStats covers the API-backed generations of one model.
// Cached results never reach a model and are not counted here.
type ModelStats struct {
	Count       int64         `json:"count"`
	SuccessRate float64       `json:"success_rate"`
	AvgDuration time.Duration `json:"avg_duration"`
	AvgAttempts float64       `json:"avg_attempts"`
}

// SystemStatus is a coarse health summary.
type SystemStatus struct {
	Health    string        `json:"health"`
	Version   string        `json:"version"`
	Uptime    time.Duration `json:"uptime"`
	LastCheck time.Time     `json:"last_check"`
}

// Recorder accepts finished generation records.
type Recorder interface {
	RecordGeneration(rec GenerationRecord)
}
