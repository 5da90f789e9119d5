package studio

import (
	"context"
	"errors"
	"testing"
	"time"

	"thumbnail_studio/core"
	"thumbnail_studio/db"
	"thumbnail_studio/imagegen"
	"thumbnail_studio/metrics"
)

func TestNewOrchestrator_RequiresDeps(t *testing.T) {
	logger := testLogger(t)
	full := OrchestratorDeps{
		Generator: &fakeGenerator{},
		History:   &memoryHistory{},
		Runs:      NewSessionLog(0),
		Logger:    logger,
	}
	tests := []struct {
		name   string
		mutate func(*OrchestratorDeps)
	}{
		{"generator", func(d *OrchestratorDeps) { d.Generator = nil }},
		{"history", func(d *OrchestratorDeps) { d.History = nil }},
		{"runs", func(d *OrchestratorDeps) { d.Runs = nil }},
		{"logger", func(d *OrchestratorDeps) { d.Logger = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := full
			tt.mutate(&deps)
			if _, err := NewOrchestrator(deps, OrchestratorConfig{}); err == nil {
				t.Error("expected error")
			}
		})
	}

	o, err := NewOrchestrator(full, OrchestratorConfig{})
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}
	if o.config.AttemptTimeout != 60*time.Second || o.config.Backoff == nil || o.config.Hasher == nil {
		t.Errorf("defaults not applied: %+v", o.config)
	}
}

func TestGenerate_EndToEnd(t *testing.T) {
	database := openTestDB(t)
	logger := testLogger(t)
	bus := NewBus(logger)
	events, cancel := bus.Subscribe(64)
	defer cancel()

	history, err := db.NewHistoryStore(database, db.HistoryStoreConfig{Limit: 100, Notifier: bus}, logger)
	if err != nil {
		t.Fatalf("NewHistoryStore() error = %v", err)
	}
	gen := &fakeGenerator{}
	runs := NewSessionLog(0)
	orch, err := NewOrchestrator(OrchestratorDeps{
		Generator:  gen,
		History:    history,
		Runs:       runs,
		Bus:        bus,
		Copywriter: imagegen.NewStaticCopywriter(),
		Logger:     logger,
	}, DefaultOrchestratorConfig())
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}

	ctx := context.Background()
	res, err := orch.Generate(ctx, rykerRequest())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if gen.Calls() != 1 {
		t.Errorf("API calls = %d, want 1", gen.Calls())
	}
	if res.Cached || res.Attempts != 1 || res.Warning != nil {
		t.Errorf("unexpected result flags: %+v", res)
	}
	if len(res.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(res.Records))
	}
	a, b := res.Records[0], res.Records[1]
	if a.ID == b.ID {
		t.Error("records share an id")
	}
	if a.SessionID != b.SessionID || a.SessionID != res.RunID {
		t.Errorf("session ids = %q, %q; run %q", a.SessionID, b.SessionID, res.RunID)
	}
	if a.CacheKey != b.CacheKey || a.CacheKey != res.CacheKey {
		t.Errorf("cache keys = %q, %q; result %q", a.CacheKey, b.CacheKey, res.CacheKey)
	}
	if a.Timestamp != b.Timestamp {
		t.Errorf("timestamps differ: %d vs %d", a.Timestamp, b.Timestamp)
	}
	if len(a.CopyIdeas) == 0 {
		t.Error("expected copy ideas on records")
	}

	stored, err := history.GetByCacheKey(ctx, res.CacheKey)
	if err != nil {
		t.Fatalf("GetByCacheKey() error = %v", err)
	}
	if len(stored) != 2 {
		t.Errorf("stored records = %d, want 2", len(stored))
	}

	run, ok := runs.Get(res.RunID)
	if !ok {
		t.Fatal("session run missing")
	}
	if run.Status != RunCompleted || run.CacheKey != res.CacheKey {
		t.Errorf("run = %+v", run)
	}

	// The run was published as pending before it was published completed.
	var statuses []RunStatus
	sawHistory := false
	for len(events) > 0 {
		e := <-events
		switch e.Type {
		case EventRunUpdated:
			statuses = append(statuses, e.Data.(SessionRun).Status)
		case EventHistoryChanged:
			sawHistory = true
		}
	}
	if len(statuses) != 2 || statuses[0] != RunPending || statuses[1] != RunCompleted {
		t.Errorf("run statuses = %v, want [pending completed]", statuses)
	}
	if !sawHistory {
		t.Error("expected a history_changed event")
	}

	if st := orch.Status(); st.Busy || st.RetryStatus != "" {
		t.Errorf("Status() = %+v after completion", st)
	}
}

func TestGenerate_CacheHit(t *testing.T) {
	f := newOrchestratorFixture(t, nil, nil)
	ctx := context.Background()

	first, err := f.orch.Generate(ctx, rykerRequest())
	if err != nil {
		t.Fatalf("first Generate() error = %v", err)
	}
	second, err := f.orch.Generate(ctx, rykerRequest())
	if err != nil {
		t.Fatalf("second Generate() error = %v", err)
	}

	if f.gen.Calls() != 1 {
		t.Errorf("API calls = %d, want 1", f.gen.Calls())
	}
	if !second.Cached {
		t.Error("second result not marked cached")
	}
	if second.CacheKey != first.CacheKey || len(second.Records) != 2 {
		t.Errorf("cached result = %+v", second)
	}
	if f.history.Len() != 2 {
		t.Errorf("history grew to %d records on a cache hit", f.history.Len())
	}
	run, _ := f.runs.Get(second.RunID)
	if run.Status != RunCached {
		t.Errorf("run status = %s, want cached", run.Status)
	}
	if f.runs.Len() != 2 {
		t.Errorf("runs = %d, want 2", f.runs.Len())
	}
}

func TestGenerate_CacheLookupFailureIsMiss(t *testing.T) {
	f := newOrchestratorFixture(t, nil, &memoryHistory{getErr: errors.New("disk I/O error")})

	res, err := f.orch.Generate(context.Background(), rykerRequest())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if res.Cached || f.gen.Calls() != 1 {
		t.Errorf("cached=%v calls=%d, want a fresh generation", res.Cached, f.gen.Calls())
	}
}

func TestGenerate_InvalidRequest(t *testing.T) {
	f := newOrchestratorFixture(t, nil, nil)
	tests := []struct {
		name   string
		mutate func(*GenerationRequest)
		field  string
	}{
		{"blank prompt", func(r *GenerationRequest) { r.Prompt = "   " }, "prompt"},
		{"unknown model", func(r *GenerationRequest) { r.Model = "dall-e-9" }, "model"},
		{"bad aspect", func(r *GenerationRequest) { r.AspectRatio = "21:9" }, "aspectRatio"},
		{"zero images", func(r *GenerationRequest) { r.ImageCount = 0 }, "imageCount"},
		{"too many images", func(r *GenerationRequest) { r.ImageCount = 5 }, "imageCount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := rykerRequest()
			tt.mutate(&req)
			_, err := f.orch.Generate(context.Background(), req)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error = %v, want *ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("field = %q, want %q", verr.Field, tt.field)
			}
			if !errors.Is(err, ErrValidation) {
				t.Error("errors.Is(err, ErrValidation) = false")
			}
		})
	}
	if f.runs.Len() != 0 {
		t.Errorf("invalid requests created %d session runs", f.runs.Len())
	}
	if f.gen.Calls() != 0 {
		t.Errorf("invalid requests made %d API calls", f.gen.Calls())
	}
}

func TestGenerate_RejectsWhileBusy(t *testing.T) {
	gen := &fakeGenerator{block: make(chan struct{}), started: make(chan struct{})}
	f := newOrchestratorFixture(t, gen, nil)

	done := make(chan error, 1)
	go func() {
		_, err := f.orch.Generate(context.Background(), rykerRequest())
		done <- err
	}()
	<-gen.started

	if !f.orch.Status().Busy {
		t.Error("Status().Busy = false during generation")
	}
	req := rykerRequest()
	req.Prompt = "Polaris Slingshot at night"
	if _, err := f.orch.Generate(context.Background(), req); !errors.Is(err, ErrBusy) {
		t.Errorf("concurrent Generate() error = %v, want ErrBusy", err)
	}
	if f.runs.Len() != 1 {
		t.Errorf("runs = %d, want 1 (busy call must not log a run)", f.runs.Len())
	}

	close(gen.block)
	if err := <-done; err != nil {
		t.Fatalf("first Generate() error = %v", err)
	}
	if f.orch.Status().Busy {
		t.Error("busy flag not cleared")
	}
}

func TestGenerate_RetriesThenSucceeds(t *testing.T) {
	gen := &fakeGenerator{errs: []error{errUpstream, errUpstream}}
	f := newOrchestratorFixture(t, gen, nil)
	events, cancel := f.bus.Subscribe(16)
	defer cancel()

	res, err := f.orch.Generate(context.Background(), rykerRequest())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if res.Attempts != 3 || gen.Calls() != 3 {
		t.Errorf("attempts=%d calls=%d, want 3", res.Attempts, gen.Calls())
	}
	wantSleeps := []time.Duration{time.Second, 2 * time.Second}
	if len(f.sleeps) != 2 || f.sleeps[0] != wantSleeps[0] || f.sleeps[1] != wantSleeps[1] {
		t.Errorf("backoff = %v, want %v", f.sleeps, wantSleeps)
	}

	var retries []RetryInfo
	for len(events) > 0 {
		if e := <-events; e.Type == EventRetrying {
			retries = append(retries, e.Data.(RetryInfo))
		}
	}
	if len(retries) != 2 {
		t.Fatalf("retrying events = %d, want 2", len(retries))
	}
	if retries[0].Status != "Retrying (2/3)..." || retries[1].Status != "Retrying (3/3)..." {
		t.Errorf("retry statuses = %q, %q", retries[0].Status, retries[1].Status)
	}
	if st := f.orch.Status(); st.RetryStatus != "" {
		t.Errorf("retry status %q not cleared", st.RetryStatus)
	}
}

func TestGenerate_ExhaustsRetries(t *testing.T) {
	gen := &fakeGenerator{errs: []error{errUpstream, errUpstream, errUpstream, errUpstream}}
	f := newOrchestratorFixture(t, gen, nil)

	res, err := f.orch.Generate(context.Background(), rykerRequest())
	if res != nil {
		t.Errorf("result = %+v, want nil", res)
	}
	if !errors.Is(err, ErrExhaustedRetries) {
		t.Fatalf("error = %v, want ErrExhaustedRetries", err)
	}
	if !errors.Is(err, errUpstream) {
		t.Error("last cause not reachable through errors.Is")
	}
	var terr *TransientGenerationError
	if !errors.As(err, &terr) || terr.Attempt != MaxAttempts {
		t.Errorf("last transient error = %+v", terr)
	}
	if gen.Calls() != MaxAttempts {
		t.Errorf("API calls = %d, want %d", gen.Calls(), MaxAttempts)
	}
	if len(f.sleeps) != MaxAttempts-1 {
		t.Errorf("sleeps = %v", f.sleeps)
	}

	runs := f.runs.List()
	if len(runs) != 1 || runs[0].Status != RunFailed || runs[0].Note == "" {
		t.Errorf("runs = %+v, want one failed run with a note", runs)
	}
	if f.history.Len() != 0 {
		t.Error("failed generation wrote history")
	}
	if f.orch.Status().Busy {
		t.Error("busy flag not cleared after failure")
	}
}

func TestGenerate_EmptyResultIsRetried(t *testing.T) {
	gen := &fakeGenerator{}
	f := newOrchestratorFixture(t, gen, nil)
	req := rykerRequest()
	req.ImageCount = 1

	// A generator returning nothing counts as a failed attempt.
	f.orch.generator = emptyGenerator{calls: new(int)}
	_, err := f.orch.Generate(context.Background(), req)
	if !errors.Is(err, imagegen.ErrNoImages) {
		t.Errorf("error = %v, want ErrNoImages cause", err)
	}
	if n := *f.orch.generator.(emptyGenerator).calls; n != MaxAttempts {
		t.Errorf("calls = %d, want %d", n, MaxAttempts)
	}
}

type emptyGenerator struct{ calls *int }

func (g emptyGenerator) GenerateImages(ctx context.Context, req imagegen.ImageRequest) ([]string, error) {
	*g.calls++
	return nil, nil
}

func TestGenerate_PersistenceFailureIsWarning(t *testing.T) {
	storeErr := errors.New("database or disk is full")
	f := newOrchestratorFixture(t, nil, &memoryHistory{putErr: storeErr})

	res, err := f.orch.Generate(context.Background(), rykerRequest())
	if err != nil {
		t.Fatalf("Generate() error = %v, want success with warning", err)
	}
	if len(res.Records) != 2 {
		t.Errorf("records = %d, want 2", len(res.Records))
	}
	var perr *PersistenceError
	if !errors.As(res.Warning, &perr) {
		t.Fatalf("warning = %v, want *PersistenceError", res.Warning)
	}
	if !errors.Is(res.Warning, storeErr) {
		t.Error("warning does not wrap the storage error")
	}
	run, _ := f.runs.Get(res.RunID)
	if run.Status != RunCompleted {
		t.Errorf("run status = %s, want completed", run.Status)
	}
}

func TestGenerate_CancelledDuringCallKeepsResult(t *testing.T) {
	gen := &fakeGenerator{block: make(chan struct{}), started: make(chan struct{})}
	f := newOrchestratorFixture(t, gen, nil)
	ctx, cancel := context.WithCancel(context.Background())

	type outcome struct {
		res *GenerationResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := f.orch.Generate(ctx, rykerRequest())
		done <- outcome{res, err}
	}()
	<-gen.started
	cancel()
	close(gen.block)

	got := <-done
	if got.err != nil {
		t.Fatalf("Generate() error = %v, want images from the dispatched call", got.err)
	}
	if len(got.res.Records) != 2 || got.res.Warning != nil {
		t.Errorf("result = %d records, warning %v", len(got.res.Records), got.res.Warning)
	}
	if f.history.Len() != 2 {
		t.Errorf("history = %d records, want 2", f.history.Len())
	}
	if gen.Calls() != 1 {
		t.Errorf("calls = %d, want 1", gen.Calls())
	}
	runs := f.runs.List()
	if len(runs) != 1 || runs[0].Status != RunCompleted {
		t.Errorf("runs = %+v, want one completed run", runs)
	}
	if f.orch.Status().Busy {
		t.Error("busy flag not cleared")
	}
}

func TestGenerate_CancelledDuringBackoffStopsRetrying(t *testing.T) {
	gen := &fakeGenerator{errs: []error{errUpstream, errUpstream, errUpstream}}
	f := newOrchestratorFixture(t, gen, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.orch.sleep = func(sctx context.Context, d time.Duration) error {
		f.sleeps = append(f.sleeps, d)
		cancel()
		return sctx.Err()
	}

	_, err := f.orch.Generate(ctx, rykerRequest())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if gen.Calls() != 1 {
		t.Errorf("calls = %d, cancelled request must not retry", gen.Calls())
	}
	if len(f.sleeps) != 1 {
		t.Errorf("sleeps = %v, want one backoff", f.sleeps)
	}
	runs := f.runs.List()
	if len(runs) != 1 || runs[0].Status != RunFailed {
		t.Errorf("runs = %+v, want one failed run", runs)
	}
	if f.history.Len() != 0 {
		t.Errorf("history = %d records, want none", f.history.Len())
	}
}

func TestGenerate_CancelledBeforeDispatch(t *testing.T) {
	gen := &fakeGenerator{}
	f := newOrchestratorFixture(t, gen, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.orch.Generate(ctx, rykerRequest())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if gen.Calls() != 0 {
		t.Errorf("calls = %d, want no API call", gen.Calls())
	}
}

func TestGenerate_PanicMarksRunFailed(t *testing.T) {
	f := newOrchestratorFixture(t, &fakeGenerator{panics: true}, nil)

	_, err := f.orch.Generate(context.Background(), rykerRequest())
	if err == nil {
		t.Fatal("expected error from panicking generator")
	}
	runs := f.runs.List()
	if len(runs) != 1 || runs[0].Status != RunFailed {
		t.Errorf("runs = %+v, want one failed run", runs)
	}
	if f.orch.Status().Busy {
		t.Error("busy flag not cleared after panic")
	}
}

func TestGenerate_RecordsMetrics(t *testing.T) {
	f := newOrchestratorFixture(t, &fakeGenerator{errs: []error{errUpstream}}, nil)
	store := metrics.NewStore(metrics.DefaultStoreConfig(), time.Now())
	f.orch.recorder = store

	ctx := context.Background()
	if _, err := f.orch.Generate(ctx, rykerRequest()); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if _, err := f.orch.Generate(ctx, rykerRequest()); err != nil {
		t.Fatalf("cached Generate() error = %v", err)
	}

	stats := store.Stats()
	if stats.Total != 2 || stats.Completed != 1 || stats.Cached != 1 {
		t.Errorf("stats = %+v", stats)
	}
	recent := store.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("recent = %d records", len(recent))
	}
	var completed metrics.GenerationRecord
	for _, r := range recent {
		if r.Status == metrics.StatusCompleted {
			completed = r
		}
	}
	if completed.Attempts != 2 || completed.ImageCount != 2 || completed.Model != string(core.ModelImagen) {
		t.Errorf("completed record = %+v", completed)
	}
}

func TestBackoff(t *testing.T) {
	lin := LinearBackoff(500 * time.Millisecond)
	exp := ExponentialBackoff(500 * time.Millisecond)
	tests := []struct {
		attempt int
		lin     time.Duration
		exp     time.Duration
	}{
		{1, 500 * time.Millisecond, 500 * time.Millisecond},
		{2, time.Second, time.Second},
		{3, 1500 * time.Millisecond, 2 * time.Second},
	}
	for _, tt := range tests {
		if got := lin(tt.attempt); got != tt.lin {
			t.Errorf("LinearBackoff(%d) = %v, want %v", tt.attempt, got, tt.lin)
		}
		if got := exp(tt.attempt); got != tt.exp {
			t.Errorf("ExponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.exp)
		}
	}
}
