package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"thumbnail_studio/core"
	"thumbnail_studio/core/validation"
	"thumbnail_studio/db"
	"thumbnail_studio/imagegen"
	"thumbnail_studio/logging"
	"thumbnail_studio/prompt"
	"thumbnail_studio/shutdown"
	"thumbnail_studio/studio"
	"thumbnail_studio/webui"
)

// options are the command-line flags.
type options struct {
	envFile       string
	serviceAction string
	offline       bool
	version       bool
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("thumbnail-studio", flag.ContinueOnError)
	fs.StringVar(&opts.envFile, "env", ".env", "path to the .env file")
	fs.StringVar(&opts.serviceAction, "service", "", "control the system service: install, uninstall, start, stop, restart, status")
	fs.BoolVar(&opts.offline, "offline", false, "skip provider reachability checks at startup")
	fs.BoolVar(&opts.version, "version", false, "print version and exit")
	err := fs.Parse(args)
	return opts, err
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(core.ExitCodeConfig)
	}
	if opts.version {
		fmt.Println("thumbnail-studio", core.VersionInfo())
		return
	}
	if opts.serviceAction != "" {
		os.Exit(controlService(opts))
	}
	if handled, code := runAsService(opts); handled {
		os.Exit(code)
	}
	os.Exit(run(context.Background(), opts))
}

// run starts the studio and blocks until ctx is cancelled or a signal
// arrives. It returns the process exit code.
func run(ctx context.Context, opts options) int {
	if err := godotenv.Load(opts.envFile); err != nil {
		// Logger isn't initialized yet.
		fmt.Fprintf(os.Stderr, "Warning: %s not loaded: %v\n", opts.envFile, err)
	}

	logger, err := logging.NewLogger(logging.Options{
		Development: core.ParseBoolEnv("DEV_MODE", false),
		Level:       os.Getenv("LOG_LEVEL"),
		FilePath:    core.GetEnvOrDefault("LOG_FILE", "app.log"),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return core.ExitCodeError
	}
	defer logger.Sync()

	cfg, err := core.LoadConfig()
	if err != nil {
		printConfigError(err)
		logger.Error("invalid configuration", zap.Error(err))
		return core.ExitCodeFor(err)
	}

	var probe *http.Client
	if !opts.offline {
		probe = core.GetHTTPClient(cfg, 10*time.Second)
	}
	preflight := validation.NewSuite("Thumbnail Studio "+core.Version, validation.StartupChecks(cfg, opts.envFile, probe)...).Run(ctx)
	if !preflight.Success {
		logger.Error(preflight.Summary(), zap.Error(preflight.FirstError()))
		return core.ExitCodeFor(preflight.FirstError())
	}
	logger.Info(preflight.Summary())

	logger.Info("configuration loaded",
		zap.String("version", core.Version),
		zap.String("default_model", string(cfg.DefaultModel)),
		zap.String("database", cfg.DatabasePath),
		zap.Int("history_limit", cfg.HistoryLimit),
		zap.Duration("retry_delay", cfg.RetryDelay),
		zap.Duration("ai_timeout", cfg.AITimeout),
		zap.Bool("copy_suggestions", cfg.CopySuggestions),
		zap.Bool("auth", cfg.WebUIPassword != ""),
		zap.Bool("allow_self_signed_certs", cfg.AllowSelfSignedCerts),
	)

	if err := serve(ctx, cfg, logger); err != nil {
		logger.Error("studio stopped with error", zap.Error(err))
		return core.ExitCodeFor(err)
	}
	logger.Info("goodbye")
	return core.ExitCodeSuccess
}

// serve wires the application and runs it until shutdown.
func serve(ctx context.Context, cfg *core.Config, logger *logging.Logger) error {
	catalog, err := prompt.LoadCatalogFile(cfg.PromptCatalogPath)
	if err != nil {
		return err
	}

	database, err := db.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	router, err := imagegen.NewRouterFromConfig(cfg, logger)
	if err != nil {
		database.Close()
		return err
	}

	app, err := studio.NewApp(studio.AppDeps{
		Database:   database,
		Generator:  router,
		Copywriter: newCopywriter(cfg, logger),
		Catalog:    catalog,
		Logger:     logger,
	}, appConfig(cfg))
	if err != nil {
		database.Close()
		return err
	}

	mgr := shutdown.NewManager(logger)
	go func() {
		// Service stop and tests cancel ctx instead of signalling.
		select {
		case <-ctx.Done():
			mgr.Trigger()
		case <-mgr.Context().Done():
		}
	}()

	serverCfg := webui.DefaultServerConfig()
	serverCfg.Host = cfg.Host
	serverCfg.Port = cfg.Port
	serverCfg.Password = cfg.WebUIPassword
	serverCfg.Models = router.Models()
	// A generation may retry three times before answering.
	serverCfg.WriteTimeout = 3*cfg.AITimeout + 3*cfg.RetryDelay + 30*time.Second
	server, err := webui.NewServer(serverCfg, app, mgr, logger)
	if err != nil {
		app.Close(context.Background())
		return err
	}

	mgr.Register("http", shutdown.PriorityHTTP, server.Shutdown)
	mgr.Register("app", shutdown.PriorityStorage, app.Close)
	mgr.Register("logger", shutdown.PriorityLogging, func(context.Context) error {
		logger.Sync()
		return nil
	})
	mgr.Start()

	printBanner(cfg, server.Addr(), router.Models())

	g, gctx := errgroup.WithContext(mgr.Context())
	g.Go(func() error {
		return server.Run(gctx)
	})
	g.Go(func() error {
		return database.RunCleanupScheduler(gctx, db.CleanupSchedulerConfig{
			RetentionDays: cfg.MetricsRetentionDays,
			Interval:      cfg.CleanupInterval,
			OnCleanup: func(res db.CleanupResult, err error) {
				if err != nil {
					logger.Warn("metrics cleanup failed", zap.Error(err))
					return
				}
				logger.Debug("metrics cleanup", zap.Int64("deleted", res.MetricsDeleted), zap.Duration("took", res.Duration))
			},
		})
	})

	runErr := g.Wait()
	mgr.Trigger()
	return errors.Join(runErr, mgr.Shutdown())
}

func appConfig(cfg *core.Config) studio.AppConfig {
	c := studio.DefaultAppConfig()
	c.HistoryLimit = cfg.HistoryLimit
	c.Orchestrator.AttemptTimeout = cfg.AITimeout
	c.Orchestrator.Backoff = studio.LinearBackoff(cfg.RetryDelay)
	c.Metrics.Version = core.Version
	c.Defaults = core.SessionSnapshot{
		Model:          cfg.DefaultModel,
		AspectRatio:    cfg.DefaultAspectRatio,
		NumberOfImages: cfg.DefaultImageCount,
		Negatives:      cfg.DefaultNegatives,
	}
	return c
}

// newCopywriter returns nil when copy suggestions are disabled. Without an
// OpenAI key the offline copywriter is used.
func newCopywriter(cfg *core.Config, logger *logging.Logger) imagegen.CopySuggester {
	if !cfg.CopySuggestions {
		return nil
	}
	static := imagegen.NewStaticCopywriter()
	if !cfg.HasOpenAI() {
		return static
	}
	cw, err := imagegen.NewOpenAICopywriter(imagegen.OpenAICopywriterConfig{
		APIKey:   cfg.OpenAIAPIKey,
		BaseURL:  cfg.OpenAIBaseURL,
		Model:    cfg.OpenAICopyModel,
		Fallback: static,
	}, cfg)
	if err != nil {
		logger.Warn("copywriter unavailable, using offline suggestions", zap.Error(err))
		return static
	}
	return cw
}

func printBanner(cfg *core.Config, addr string, models []core.ImageModel) {
	title := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.FgHiBlack)

	title.Printf("\n  Thumbnail Studio %s\n", core.Version)
	fmt.Printf("  Listening on  http://%s\n", addr)
	for _, m := range models {
		marker := " "
		if m == cfg.DefaultModel {
			marker = "*"
		}
		dim.Printf("  %s %s (%s)\n", marker, m.DisplayName(), m)
	}
	if cfg.WebUIPassword == "" {
		color.New(color.FgYellow).Println("  No WEBUI_PWD set: the API is open to anyone who can reach it")
	}
	fmt.Println()
}

func printConfigError(err error) {
	red := color.New(color.FgRed, color.Bold)
	if cfgErr, ok := core.IsConfigError(err); ok {
		red.Fprintf(os.Stderr, "Configuration error [%s]\n", cfgErr.Code)
		fmt.Fprintf(os.Stderr, "  %s\n", cfgErr.Message)
		if cfgErr.Action != "" {
			color.New(color.FgYellow).Fprintf(os.Stderr, "  → %s\n", cfgErr.Action)
		}
		return
	}
	red.Fprintf(os.Stderr, "Configuration error: %v\n", err)
}
