package studio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"thumbnail_studio/core"
	"thumbnail_studio/db"
	"thumbnail_studio/imagegen"
	"thumbnail_studio/logging"
	"thumbnail_studio/metrics"
	"thumbnail_studio/prompt"
)

// AppConfig collects the tunables of the application state.
type AppConfig struct {
	HistoryLimit        int
	SessionLogCapacity  int
	Orchestrator        OrchestratorConfig
	Metrics             metrics.StoreConfig
	MetricsWriter       db.AsyncWriterConfig
	MetricsWriteTimeout time.Duration
	DrainTimeout        time.Duration
	// Defaults seed the session snapshot when none has been saved.
	Defaults core.SessionSnapshot
}

// DefaultAppConfig returns production defaults.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		HistoryLimit:        core.DefaultHistoryLimit,
		SessionLogCapacity:  DefaultSessionLogCapacity,
		Orchestrator:        DefaultOrchestratorConfig(),
		Metrics:             metrics.DefaultStoreConfig(),
		MetricsWriter:       db.DefaultAsyncWriterConfig(),
		MetricsWriteTimeout: 5 * time.Second,
		DrainTimeout:        db.DefaultDrainTimeout,
	}
}

// AppDeps are the external collaborators of App. Copywriter is optional.
type AppDeps struct {
	Database   *db.Database
	Generator  imagegen.ImageGenerator
	Copywriter imagegen.CopySuggester
	Catalog    *prompt.Catalog
	Logger     *logging.Logger
}

// App is the application state built once at startup and passed to the
// HTTP layer.
type App struct {
	DB           *db.Database
	History      *db.HistoryStore
	Templates    *db.TemplateStore
	Presets      *db.PresetStore
	Settings     *db.SettingsStore
	MetricsRepo  *db.MetricsRepository
	Metrics      *metrics.Store
	Bus          *Bus
	Runs         *SessionLog
	Orchestrator *Orchestrator
	Batch        *BatchRunner
	Catalog      *prompt.Catalog

	writer       *db.AsyncWriter
	drainTimeout time.Duration
	defaults     core.SessionSnapshot
	logger       *logging.Logger
}

// NewApp wires the stores, event bus, orchestrator and metrics pipeline.
func NewApp(deps AppDeps, config AppConfig) (*App, error) {
	if deps.Database == nil {
		return nil, fmt.Errorf("studio: database cannot be nil")
	}
	if deps.Generator == nil {
		return nil, fmt.Errorf("studio: generator cannot be nil")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("studio: logger cannot be nil")
	}
	if deps.Catalog == nil {
		deps.Catalog = prompt.DefaultCatalog()
	}
	logger := deps.Logger.Named("app")

	bus := NewBus(deps.Logger)

	history, err := db.NewHistoryStore(deps.Database, db.HistoryStoreConfig{
		Limit:    config.HistoryLimit,
		Notifier: bus,
	}, deps.Logger)
	if err != nil {
		return nil, err
	}
	templates, err := db.NewTemplateStore(deps.Database)
	if err != nil {
		return nil, err
	}
	presets, err := db.NewPresetStore(deps.Database)
	if err != nil {
		return nil, err
	}
	settings, err := db.NewSettingsStore(deps.Database)
	if err != nil {
		return nil, err
	}
	metricsRepo, err := db.NewMetricsRepository(deps.Database)
	if err != nil {
		return nil, err
	}

	writeTimeout := config.MetricsWriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	writerCfg := config.MetricsWriter
	if writerCfg.OnError == nil {
		writerCfg.OnError = func(op db.WriteOperation, err error) {
			logger.Warn("failed to persist generation metrics", zap.Error(err))
		}
	}
	writer := db.NewAsyncWriter(metricsRepo.WriteHandler(writeTimeout), writerCfg)
	writer.Start()

	storeCfg := config.Metrics
	storeCfg.Sink = func(rec metrics.GenerationRecord) {
		if !writer.Write(rec) {
			logger.Debug("metrics writer full, dropping record", zap.String("run_id", rec.RunID))
		}
	}
	metricsStore := metrics.NewStore(storeCfg, time.Now())

	runs := NewSessionLog(config.SessionLogCapacity)
	orchestrator, err := NewOrchestrator(OrchestratorDeps{
		Generator:  deps.Generator,
		History:    history,
		Runs:       runs,
		Bus:        bus,
		Copywriter: deps.Copywriter,
		Recorder:   metricsStore,
		Logger:     deps.Logger,
	}, config.Orchestrator)
	if err != nil {
		writer.Stop(time.Second)
		return nil, err
	}
	batch, err := NewBatchRunner(orchestrator, bus, deps.Logger)
	if err != nil {
		writer.Stop(time.Second)
		return nil, err
	}

	drain := config.DrainTimeout
	if drain <= 0 {
		drain = db.DefaultDrainTimeout
	}

	return &App{
		DB:           deps.Database,
		History:      history,
		Templates:    templates,
		Presets:      presets,
		Settings:     settings,
		MetricsRepo:  metricsRepo,
		Metrics:      metricsStore,
		Bus:          bus,
		Runs:         runs,
		Orchestrator: orchestrator,
		Batch:        batch,
		Catalog:      deps.Catalog,
		writer:       writer,
		drainTimeout: drain,
		defaults:     config.Defaults,
		logger:       logger,
	}, nil
}

// Close drains pending metric writes and closes the database.
func (a *App) Close(ctx context.Context) error {
	timeout := a.drainTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if !a.writer.Stop(timeout) {
		a.logger.Warn("metrics writer did not drain before timeout", zap.Int("pending", a.writer.Pending()))
	}
	if err := a.DB.Close(); err != nil {
		return fmt.Errorf("studio: close database: %w", err)
	}
	return nil
}

// SaveTemplate validates t, assigns an id and creation time when missing,
// and stores it.
func (a *App) SaveTemplate(ctx context.Context, t core.Template) (core.Template, error) {
	if err := ValidateStruct(t); err != nil {
		return core.Template{}, err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt == 0 {
		t.CreatedAt = time.Now().UnixMilli()
	}
	if err := a.Templates.Save(ctx, t); err != nil {
		return core.Template{}, err
	}
	return t, nil
}

// SavePreset validates p, assigns an id and creation time when missing,
// and stores it.
func (a *App) SavePreset(ctx context.Context, p core.StylePreset) (core.StylePreset, error) {
	if err := ValidateStruct(p); err != nil {
		return core.StylePreset{}, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt == 0 {
		p.CreatedAt = time.Now().UnixMilli()
	}
	if p.Modules == nil {
		p.Modules = []string{}
	}
	if err := a.Presets.Save(ctx, p); err != nil {
		return core.StylePreset{}, err
	}
	return p, nil
}

// LogExport records an export of an existing image.
func (a *App) LogExport(ctx context.Context, entry core.ExportLogEntry) (core.ExportLogEntry, error) {
	if _, err := a.History.Get(ctx, entry.ImageID); err != nil {
		return core.ExportLogEntry{}, err
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.ExportedAt == 0 {
		entry.ExportedAt = time.Now().UnixMilli()
	}
	if err := a.History.LogExport(ctx, entry); err != nil {
		return core.ExportLogEntry{}, err
	}
	return entry, nil
}

// LoadSession returns the last saved studio state, or the configured
// defaults when nothing was saved yet.
func (a *App) LoadSession(ctx context.Context) (core.SessionSnapshot, error) {
	var snap core.SessionSnapshot
	ok, err := a.Settings.GetJSON(ctx, db.SettingLastSession, &snap)
	if err != nil {
		return core.SessionSnapshot{}, err
	}
	if !ok {
		return a.defaults, nil
	}
	return snap, nil
}

// SaveSession persists the current studio state.
func (a *App) SaveSession(ctx context.Context, snap core.SessionSnapshot) error {
	return a.Settings.PutJSON(ctx, db.SettingLastSession, snap)
}

// IsNotFound reports whether err means the addressed entity does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, db.ErrNotFound) || errors.Is(err, ErrRunNotFound)
}
