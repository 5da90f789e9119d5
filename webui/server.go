// Package webui serves the studio HTTP API and pushes studio events to
// browsers over a websocket.
package webui

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"thumbnail_studio/core"
	"thumbnail_studio/logging"
	"thumbnail_studio/studio"
)

// Operations tracks long-running work so shutdown can wait for it.
// *shutdown.Manager implements it.
type Operations interface {
	WrapOperation(ctx context.Context, name string, fn func(context.Context) error) error
}

type untracked struct{}

func (untracked) WrapOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	return fn(ctx)
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host string
	Port int

	ReadTimeout time.Duration
	// WriteTimeout must cover a full generation including retries.
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Password enables HTTP basic auth when set.
	Password string

	// LogSkipPaths are not logged on success.
	LogSkipPaths []string

	// Models lists the models with a configured backend. Empty means all.
	Models []core.ImageModel

	Broadcaster BroadcasterConfig
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "localhost",
		Port:            3000,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    5 * time.Minute,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		LogSkipPaths:    []string{"/health", "/api/generate/status"},
		Broadcaster:     DefaultBroadcasterConfig(),
	}
}

// Server is the studio HTTP server.
type Server struct {
	config      ServerConfig
	app         *studio.App
	ops         Operations
	auth        *BasicAuth
	broadcaster *Broadcaster
	router      chi.Router
	httpServer  *http.Server
	logger      *logging.Logger
	started     time.Time
}

// NewServer builds the router. ops may be nil, in which case requests are
// not tracked for shutdown.
func NewServer(config ServerConfig, app *studio.App, ops Operations, logger *logging.Logger) (*Server, error) {
	if app == nil {
		return nil, fmt.Errorf("webui: app cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("webui: logger cannot be nil")
	}
	if ops == nil {
		ops = untracked{}
	}

	s := &Server{
		config:  config,
		app:     app,
		ops:     ops,
		logger:  logger.Named("webui"),
		started: time.Now(),
	}
	if config.Password != "" {
		auth, err := NewBasicAuth(config.Password, logger)
		if err != nil {
			return nil, err
		}
		s.auth = auth
	}
	s.broadcaster = NewBroadcaster(config.Broadcaster, s.snapshot, logger)
	s.router = s.routes()
	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(config.Host, fmt.Sprint(config.Port)),
		Handler:      s.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		RequestLogger(s.logger, s.config.LogSkipPaths...),
	)

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.auth != nil {
			r.Use(s.auth.Middleware)
		}
		r.Get("/ws", s.broadcaster.HandleConnection)

		r.Route("/api", func(r chi.Router) {
			r.Get("/catalog", s.handleCatalog)
			r.Post("/prompt/compose", s.handleCompose)
			r.Post("/prompt/enhance", s.handleEnhance)

			r.Post("/generate", s.handleGenerate)
			r.Get("/generate/status", s.handleGenerateStatus)
			r.Get("/runs", s.handleRuns)

			r.Route("/history", func(r chi.Router) {
				r.Get("/", s.handleListHistory)
				r.Delete("/", s.handleClearHistory)
				r.Get("/{id}", s.handleGetHistory)
				r.Patch("/{id}", s.handleUpdateHistory)
				r.Delete("/{id}", s.handleDeleteHistory)
				r.Post("/{id}/exports", s.handleLogExport)
			})
			r.Get("/exports", s.handleListExports)

			r.Route("/templates", func(r chi.Router) {
				r.Get("/", s.handleListTemplates)
				r.Post("/", s.handleSaveTemplate)
				r.Delete("/{id}", s.handleDeleteTemplate)
				r.Post("/{id}/favorite", s.handleToggleFavorite)
			})
			r.Route("/presets", func(r chi.Router) {
				r.Get("/", s.handleListPresets)
				r.Post("/", s.handleSavePreset)
				r.Delete("/{id}", s.handleDeletePreset)
			})

			r.Get("/session", s.handleGetSession)
			r.Put("/session", s.handlePutSession)
			r.Get("/backup", s.handleExportBackup)
			r.Post("/backup", s.handleImportBackup)

			r.Post("/batch", s.handleRunBatch)
			r.Post("/batch/reorder", s.handleReorderBatch)
			r.Get("/metrics", s.handleMetrics)
		})
	})
	return r
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Broadcaster returns the websocket broadcaster.
func (s *Server) Broadcaster() *Broadcaster {
	return s.broadcaster
}

// Run serves until ctx is cancelled, then shuts down gracefully. Studio
// events are relayed to websocket clients while it runs.
func (s *Server) Run(ctx context.Context) error {
	events, unsubscribe := s.app.Bus.Subscribe(256)
	defer unsubscribe()
	go s.broadcaster.Run(ctx, events)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", s.httpServer.Addr), zap.Bool("auth", s.auth != nil))
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("webui: serve: %w", err)
	case <-ctx.Done():
		timeout := s.config.ShutdownTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		sctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return s.Shutdown(sctx)
	}
}

// Shutdown stops accepting connections and waits for active requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.broadcaster.Close()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("webui: shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) snapshot() InitialData {
	return InitialData{
		Status: s.app.Orchestrator.Status(),
		Runs:   s.app.Runs.List(),
	}
}
