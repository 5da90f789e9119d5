package studio

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"thumbnail_studio/core"
	"thumbnail_studio/imagegen"
	"thumbnail_studio/logging"
	"thumbnail_studio/metrics"
)

// MaxAttempts is the number of calls made to the image API per request.
const MaxAttempts = 3

// Backoff returns the delay before the retry that follows attempt (1-based).
type Backoff func(attempt int) time.Duration

// LinearBackoff waits attempt×base.
func LinearBackoff(base time.Duration) Backoff {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * base
	}
}

// ExponentialBackoff waits base×2^(attempt-1).
func ExponentialBackoff(base time.Duration) Backoff {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		return base << (attempt - 1)
	}
}

// HistoryRepository is the part of the history store the orchestrator uses.
type HistoryRepository interface {
	GetByCacheKey(ctx context.Context, key string) ([]core.HistoryRecord, error)
	PutMany(ctx context.Context, recs []core.HistoryRecord) error
}

// OrchestratorConfig tunes retries and optional features.
type OrchestratorConfig struct {
	// AttemptTimeout bounds each call to the image API.
	AttemptTimeout time.Duration
	// Backoff is consulted between attempts. Default: LinearBackoff(1s).
	Backoff Backoff
	// Hasher computes cache keys. Default: SHA256Hasher.
	Hasher KeyHasher
}

// DefaultOrchestratorConfig returns a 60s attempt timeout and linear 1s backoff.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		AttemptTimeout: 60 * time.Second,
		Backoff:        LinearBackoff(time.Second),
		Hasher:         SHA256Hasher{},
	}
}

// OrchestratorDeps are the collaborators of an Orchestrator. Copywriter,
// Recorder and Bus are optional.
type OrchestratorDeps struct {
	Generator  imagegen.ImageGenerator
	History    HistoryRepository
	Runs       *SessionLog
	Bus        *Bus
	Copywriter imagegen.CopySuggester
	Recorder   metrics.Recorder
	Logger     *logging.Logger
}

// GenerationResult is returned by a successful Generate.
type GenerationResult struct {
	Records  []core.HistoryRecord `json:"records"`
	RunID    string               `json:"runId"`
	CacheKey string               `json:"cacheKey"`
	Cached   bool                 `json:"cached"`
	Attempts int                  `json:"attempts"`
	// Warning is set when the images could not be saved to history.
	Warning error `json:"-"`
}

// GeneratorStatus is the observable orchestrator state.
type GeneratorStatus struct {
	Busy        bool   `json:"busy"`
	RetryStatus string `json:"retryStatus,omitempty"`
}

// Orchestrator runs one generation at a time: cache lookup, bounded retries
// against the image API, then persistence.
type Orchestrator struct {
	generator  imagegen.ImageGenerator
	history    HistoryRepository
	runs       *SessionLog
	bus        *Bus
	copywriter imagegen.CopySuggester
	recorder   metrics.Recorder
	logger     *logging.Logger
	config     OrchestratorConfig

	busy atomic.Bool

	statusMu    sync.RWMutex
	retryStatus string

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	newID func() string
}

// NewOrchestrator validates deps and fills config defaults.
func NewOrchestrator(deps OrchestratorDeps, config OrchestratorConfig) (*Orchestrator, error) {
	if deps.Generator == nil {
		return nil, fmt.Errorf("studio: generator cannot be nil")
	}
	if deps.History == nil {
		return nil, fmt.Errorf("studio: history cannot be nil")
	}
	if deps.Runs == nil {
		return nil, fmt.Errorf("studio: session log cannot be nil")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("studio: logger cannot be nil")
	}

	defaults := DefaultOrchestratorConfig()
	if config.AttemptTimeout <= 0 {
		config.AttemptTimeout = defaults.AttemptTimeout
	}
	if config.Backoff == nil {
		config.Backoff = defaults.Backoff
	}
	if config.Hasher == nil {
		config.Hasher = defaults.Hasher
	}

	return &Orchestrator{
		generator:  deps.Generator,
		history:    deps.History,
		runs:       deps.Runs,
		bus:        deps.Bus,
		copywriter: deps.Copywriter,
		recorder:   deps.Recorder,
		logger:     deps.Logger.Named("orchestrator"),
		config:     config,
		now:        time.Now,
		sleep:      sleepContext,
		newID:      uuid.NewString,
	}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Status reports whether a generation is running and its retry state.
func (o *Orchestrator) Status() GeneratorStatus {
	o.statusMu.RLock()
	defer o.statusMu.RUnlock()
	return GeneratorStatus{Busy: o.busy.Load(), RetryStatus: o.retryStatus}
}

func (o *Orchestrator) setRetryStatus(s string) {
	o.statusMu.Lock()
	o.retryStatus = s
	o.statusMu.Unlock()
}

// Generate runs the full request lifecycle.
//
// Invalid requests fail with a *ValidationError and a concurrent call fails
// with ErrBusy; neither creates a session run. Cached results make no API
// call. A storage failure after a successful generation is reported in
// GenerationResult.Warning rather than as an error. Cancelling ctx stops
// further attempts but does not abort one already dispatched; its images are
// returned and saved.
func (o *Orchestrator) Generate(ctx context.Context, req GenerationRequest) (result *GenerationResult, err error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !o.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer o.busy.Store(false)
	defer o.setRetryStatus("")

	start := o.now()
	key, err := ComputeKeyWith(o.config.Hasher, req)
	if err != nil {
		return nil, err
	}

	run := o.runs.Start(req.Prompt, key)
	o.publish(EventRunUpdated, run)
	log := o.logger.With(zap.String("run_id", run.ID), zap.String("cache_key", key))

	rec := metrics.GenerationRecord{RunID: run.ID, Model: string(req.Model)}
	finished := false
	finish := func(status RunStatus, note string) {
		if finished {
			return
		}
		finished = true
		updated, ferr := o.runs.Finish(run.ID, status, note)
		if ferr != nil {
			log.Warn("failed to finalize session run", zap.Error(ferr))
			return
		}
		o.publish(EventRunUpdated, updated)

		rec.Status = string(status)
		rec.ErrorMsg = note
		rec.Duration = o.now().Sub(start)
		rec.FinishedAt = o.now()
		if o.recorder != nil {
			o.recorder.RecordGeneration(rec)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("generation panicked", zap.Any("panic", r))
			finish(RunFailed, fmt.Sprintf("panic: %v", r))
			result, err = nil, fmt.Errorf("studio: generation panicked: %v", r)
		}
	}()

	hits, lerr := o.history.GetByCacheKey(ctx, key)
	if lerr != nil {
		log.Warn("cache lookup failed, treating as miss", zap.Error(lerr))
	} else if len(hits) > 0 {
		log.Info("cache hit", zap.Int("images", len(hits)))
		rec.ImageCount = len(hits)
		finish(RunCached, "")
		return &GenerationResult{Records: hits, RunID: run.ID, CacheKey: key, Cached: true}, nil
	}

	urls, attempts, gerr := o.generateWithRetry(ctx, req, run.ID, log)
	rec.Attempts = attempts
	if gerr != nil {
		log.Error("generation failed", zap.Int("attempts", attempts), zap.Error(gerr))
		finish(RunFailed, gerr.Error())
		return nil, gerr
	}

	// Images already paid for are kept even if the caller has gone away.
	detached := context.WithoutCancel(ctx)
	ideas := o.suggestCopy(detached, req, log)
	timestamp := o.now().UnixMilli()
	records := make([]core.HistoryRecord, len(urls))
	for i, u := range urls {
		records[i] = core.HistoryRecord{
			ID:         o.newID(),
			URL:        u,
			Model:      req.Model,
			Prompt:     req.Prompt,
			Vehicle:    req.Vehicle,
			Timestamp:  timestamp,
			Settings:   req.Settings(),
			CacheKey:   key,
			SessionID:  run.ID,
			CopyIdeas:  append([]string(nil), ideas...),
			ExportLogs: []core.ExportLogEntry{},
		}
	}
	rec.ImageCount = len(records)

	result = &GenerationResult{Records: records, RunID: run.ID, CacheKey: key, Attempts: attempts}
	if perr := o.history.PutMany(detached, records); perr != nil {
		log.Warn("generated images could not be saved to history", zap.Error(perr))
		result.Warning = &PersistenceError{Op: "save history", Err: perr}
		rec.PersistenceFailed = true
	}

	log.Info("generation completed", zap.Int("images", len(records)), zap.Int("attempts", attempts))
	finish(RunCompleted, "")
	return result, nil
}

// generateWithRetry calls the image API up to MaxAttempts times. It returns
// the number of attempts made.
func (o *Orchestrator) generateWithRetry(ctx context.Context, req GenerationRequest, runID string, log *logging.Logger) ([]string, int, error) {
	imgReq := imagegen.ImageRequest{
		Prompt:      req.Prompt,
		Model:       req.Model,
		AspectRatio: req.AspectRatio,
		Count:       req.ImageCount,
		Reference:   req.Reference,
	}

	// A dispatched call runs to completion or timeout; cancellation of ctx
	// is only observed between attempts.
	callCtx := context.WithoutCancel(ctx)

	var last error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return nil, attempt - 1, fmt.Errorf("studio: generation cancelled: %w", cerr)
		}

		actx, cancel := context.WithTimeout(callCtx, o.config.AttemptTimeout)
		urls, err := o.generator.GenerateImages(actx, imgReq)
		cancel()
		if err == nil && len(urls) == 0 {
			err = imagegen.ErrNoImages
		}
		if err == nil {
			return urls, attempt, nil
		}

		last = &TransientGenerationError{Attempt: attempt, Err: err}
		if attempt == MaxAttempts {
			break
		}
		if cerr := ctx.Err(); cerr != nil {
			return nil, attempt, fmt.Errorf("studio: generation cancelled: %w", cerr)
		}

		status := fmt.Sprintf("Retrying (%d/%d)...", attempt+1, MaxAttempts)
		o.setRetryStatus(status)
		o.publish(EventRetrying, RetryInfo{RunID: runID, Attempt: attempt, Status: status, Error: err.Error()})
		delay := o.config.Backoff(attempt)
		log.Warn("image API attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err))

		if serr := o.sleep(ctx, delay); serr != nil {
			return nil, attempt, fmt.Errorf("studio: generation cancelled: %w", serr)
		}
	}
	return nil, MaxAttempts, &ExhaustedRetryError{Attempts: MaxAttempts, Last: last}
}

func (o *Orchestrator) suggestCopy(ctx context.Context, req GenerationRequest, log *logging.Logger) []string {
	if o.copywriter == nil {
		return []string{}
	}
	ideas, err := o.copywriter.SuggestCopy(ctx, req.Prompt, req.Vehicle)
	if err != nil {
		log.Warn("copy suggestions unavailable", zap.Error(err))
		return []string{}
	}
	return ideas
}

func (o *Orchestrator) publish(t EventType, data any) {
	if o.bus != nil {
		o.bus.Publish(Event{Type: t, Timestamp: o.now(), Data: data})
	}
}
