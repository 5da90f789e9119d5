package studio

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"thumbnail_studio/core"
	"thumbnail_studio/db"
	"thumbnail_studio/imagegen"
	"thumbnail_studio/logging"
)

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	return logging.NewFromZap(zaptest.NewLogger(t))
}

func openTestDB(t *testing.T) *db.Database {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "studio.db"))
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func rykerRequest() GenerationRequest {
	return GenerationRequest{
		Prompt:      "Can-Am Ryker drifting at sunset",
		Model:       core.ModelImagen,
		AspectRatio: "16:9",
		ImageCount:  2,
		Vehicle:     core.VehicleRyker,
	}
}

// fakeGenerator returns count data URLs per call, or the scripted errors
// for the first len(errs) calls.
type fakeGenerator struct {
	mu    sync.Mutex
	calls int
	errs  []error
	reqs  []imagegen.ImageRequest
	block chan struct{}
	// started is closed on the first call when non-nil.
	started chan struct{}
	panics  bool
}

func (g *fakeGenerator) GenerateImages(ctx context.Context, req imagegen.ImageRequest) ([]string, error) {
	g.mu.Lock()
	g.calls++
	call := g.calls
	g.reqs = append(g.reqs, req)
	if g.started != nil && call == 1 {
		close(g.started)
	}
	g.mu.Unlock()

	if g.panics {
		panic("decoder exploded")
	}
	if g.block != nil {
		select {
		case <-g.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if call <= len(g.errs) && g.errs[call-1] != nil {
		return nil, g.errs[call-1]
	}
	urls := make([]string, req.Count)
	for i := range urls {
		urls[i] = imagegen.B64DataURL("image/png", "aW1hZ2U=")
	}
	return urls, nil
}

func (g *fakeGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// memoryHistory is an in-memory HistoryRepository with injectable failures.
type memoryHistory struct {
	mu      sync.Mutex
	records []core.HistoryRecord
	getErr  error
	putErr  error
}

func (h *memoryHistory) GetByCacheKey(ctx context.Context, key string) ([]core.HistoryRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.getErr != nil {
		return nil, h.getErr
	}
	var out []core.HistoryRecord
	for _, r := range h.records {
		if r.CacheKey == key {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (h *memoryHistory) PutMany(ctx context.Context, recs []core.HistoryRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.putErr != nil {
		return h.putErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	h.records = append(h.records, recs...)
	return nil
}

func (h *memoryHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

var errUpstream = errors.New("upstream 503")

type orchestratorFixture struct {
	orch    *Orchestrator
	gen     *fakeGenerator
	history *memoryHistory
	runs    *SessionLog
	bus     *Bus
	sleeps  []time.Duration
}

func newOrchestratorFixture(t *testing.T, gen *fakeGenerator, history *memoryHistory) *orchestratorFixture {
	t.Helper()
	if gen == nil {
		gen = &fakeGenerator{}
	}
	if history == nil {
		history = &memoryHistory{}
	}
	f := &orchestratorFixture{
		gen:     gen,
		history: history,
		runs:    NewSessionLog(0),
		bus:     NewBus(testLogger(t)),
	}
	orch, err := NewOrchestrator(OrchestratorDeps{
		Generator: gen,
		History:   history,
		Runs:      f.runs,
		Bus:       f.bus,
		Logger:    testLogger(t),
	}, OrchestratorConfig{AttemptTimeout: time.Second, Backoff: LinearBackoff(time.Second)})
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}
	orch.sleep = func(ctx context.Context, d time.Duration) error {
		f.sleeps = append(f.sleeps, d)
		return ctx.Err()
	}
	f.orch = orch
	return f
}
