package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/fableforge/fable-api/internal/config"
	"github.com/fableforge/fable-api/internal/events"
	"github.com/fableforge/fable-api/internal/generation"
	"github.com/fableforge/fable-api/internal/metrics"
	"github.com/fableforge/fable-api/internal/platform/clock"
	"github.com/fableforge/fable-api/internal/platform/gemini"
	"github.com/fableforge/fable-api/internal/platform/logger"
	"github.com/fableforge/fable-api/internal/progress"
	"github.com/fableforge/fable-api/internal/store"
	"github.com/fableforge/fable-api/internal/task"
)

// application bundles the long-lived components the server wires together
// at startup.
type application struct {
	config *config.Config
	logger *slog.Logger

	db          *sql.DB
	broadcaster *events.Broadcaster
	taskStore   *task.MemoryStore
	metrics     *metrics.MemoryStore
	summaries   *metrics.SummaryCache
	runner      *task.Runner
	taskService *task.Service
	generator   generation.Generator
}

// newApplication loads configuration and constructs every component.
// Construction order matters: the broadcaster and archive exist before the
// task store that publishes to them, and the runner before the service that
// submits to it.
func newApplication(ctx context.Context) (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger := logger.Setup(cfg.Server)
	appLogger.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"workers", cfg.Task.WorkerCount,
		"archive_enabled", cfg.Database.URL != "")

	app := &application{
		config: cfg,
		logger: appLogger,
	}

	clk := clock.New()
	app.broadcaster = events.NewBroadcaster(appLogger)

	storeOpts := []task.MemoryStoreOption{
		task.WithPublisher(app.broadcaster),
		task.WithClock(clk),
	}

	// The archive is optional; without a database URL terminal tasks live
	// only in memory.
	if cfg.Database.URL != "" {
		db, err := store.NewDB(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := store.RunMigrations(appLogger, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		app.db = db
		storeOpts = append(storeOpts, task.WithArchiver(store.NewPostgresTaskArchive(db, appLogger)))
	}

	app.taskStore = task.NewMemoryStore(appLogger, storeOpts...)

	kindDefaults, unknown := cfg.Task.KindDefaults()
	for _, name := range unknown {
		appLogger.Warn("ignoring duration default for unknown task kind", "kind", name)
	}
	app.metrics = metrics.NewMemoryStore(metrics.Config{
		RetentionCap:    cfg.Task.RetentionCap,
		DefaultDuration: cfg.Task.DefaultDuration(),
		KindDefaults:    kindDefaults,
	}, clk, appLogger)
	app.summaries = metrics.NewSummaryCache(app.metrics, cfg.Task.SummaryCacheTTL(), clk, appLogger)

	app.runner = task.NewRunner(app.taskStore, app.metrics, app.metrics, task.RunnerConfig{
		WorkerCount: cfg.Task.WorkerCount,
		QueueSize:   cfg.Task.QueueSize,
		Estimator: progress.Config{
			TickInterval: cfg.Task.TickInterval(),
			MinIncrement: cfg.Task.MinIncrement,
			MaxIncrement: cfg.Task.MaxIncrement,
			Ceiling:      cfg.Task.ProgressCeiling,
			DefaultTotal: cfg.Task.DefaultDuration(),
		},
	}, clk, appLogger)

	generator, err := gemini.NewNovelGenerator(ctx, appLogger, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}
	app.generator = generator

	app.taskService = task.NewService(app.taskStore, app.runner, app.generator, appLogger)

	return app, nil
}

// run starts the workers and serves HTTP until shutdown.
func (app *application) run(ctx context.Context) error {
	app.runner.Start()
	return app.startHTTPServer(ctx, app.setupRouter())
}

// cleanup releases resources in reverse construction order.
func (app *application) cleanup() {
	app.runner.Stop()
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("failed to close database", "error", err)
		}
	}
}
