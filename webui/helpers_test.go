package webui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"thumbnail_studio/core"
	"thumbnail_studio/db"
	"thumbnail_studio/imagegen"
	"thumbnail_studio/logging"
	"thumbnail_studio/shutdown"
	"thumbnail_studio/studio"
)

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	return logging.NewFromZap(zaptest.NewLogger(t))
}

// stubGenerator returns req.Count data URLs, fails when err is set and
// waits on block when it is non-nil.
type stubGenerator struct {
	mu      sync.Mutex
	calls   int
	err     error
	last    imagegen.ImageRequest
	block   chan struct{}
	started chan struct{}
}

func (g *stubGenerator) GenerateImages(ctx context.Context, req imagegen.ImageRequest) ([]string, error) {
	g.mu.Lock()
	g.calls++
	g.last = req
	if g.started != nil && g.calls == 1 {
		close(g.started)
	}
	g.mu.Unlock()

	if g.block != nil {
		select {
		case <-g.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if g.err != nil {
		return nil, g.err
	}
	urls := make([]string, req.Count)
	for i := range urls {
		urls[i] = imagegen.B64DataURL("image/png", "aW1hZ2U=")
	}
	return urls, nil
}

func (g *stubGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *stubGenerator) Last() imagegen.ImageRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

var errUpstream = errors.New("upstream 503")

type testServer struct {
	srv *Server
	app *studio.App
	gen *stubGenerator
}

type serverOption func(*ServerConfig)

func withPassword(p string) serverOption {
	return func(c *ServerConfig) { c.Password = p }
}

func withModels(models ...core.ImageModel) serverOption {
	return func(c *ServerConfig) { c.Models = models }
}

func newTestServer(t *testing.T, gen *stubGenerator, ops Operations, opts ...serverOption) *testServer {
	t.Helper()
	if gen == nil {
		gen = &stubGenerator{}
	}
	logger := testLogger(t)

	database, err := db.Open(filepath.Join(t.TempDir(), "studio.db"))
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}

	appCfg := studio.DefaultAppConfig()
	appCfg.Orchestrator.Backoff = studio.LinearBackoff(time.Millisecond)
	appCfg.DrainTimeout = 5 * time.Second
	appCfg.Defaults = core.SessionSnapshot{Model: core.ModelImagen, AspectRatio: "16:9", NumberOfImages: 2}
	app, err := studio.NewApp(studio.AppDeps{Database: database, Generator: gen, Logger: logger}, appCfg)
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	t.Cleanup(func() { app.Close(context.Background()) })

	cfg := DefaultServerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	srv, err := NewServer(cfg, app, ops, logger)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	return &testServer{srv: srv, app: app, gen: gen}
}

// do sends body as JSON and decodes the response into out when non-nil.
func (ts *testServer) do(t *testing.T, method, path string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)

	if out != nil && rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("%s %s: decode response %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec
}

func rykerSelection() studio.Selection {
	return studio.Selection{
		BasePrompt:  "Can-Am Ryker drifting at sunset",
		Vehicle:     core.VehicleRyker,
		Model:       core.ModelImagen,
		AspectRatio: "16:9",
		ImageCount:  2,
	}
}

// closedOps rejects every operation as if shutdown had begun.
type closedOps struct{}

func (closedOps) WrapOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	return shutdown.ErrTrackerClosed
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}
