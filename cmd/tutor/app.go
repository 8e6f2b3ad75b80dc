package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-tutor/internal/config"
	"github.com/phrazzld/scry-tutor/internal/domain/retention"
	"github.com/phrazzld/scry-tutor/internal/events"
	"github.com/phrazzld/scry-tutor/internal/generation"
	"github.com/phrazzld/scry-tutor/internal/graph"
	"github.com/phrazzld/scry-tutor/internal/platform/badgerstore"
	"github.com/phrazzld/scry-tutor/internal/platform/gemini"
	"github.com/phrazzld/scry-tutor/internal/platform/postgres"
	"github.com/phrazzld/scry-tutor/internal/platform/telemetry"
	"github.com/phrazzld/scry-tutor/internal/resolver"
	"github.com/phrazzld/scry-tutor/internal/router"
	"github.com/phrazzld/scry-tutor/internal/scheduler"
	"github.com/phrazzld/scry-tutor/internal/store"
	"github.com/phrazzld/scry-tutor/internal/store/memory"
)

// application holds the wired engine and everything that must be released
// on exit.
type application struct {
	config    *config.Config
	logger    *slog.Logger
	graph     *graph.Holder
	mastery   store.MasteryStore
	scheduler scheduler.Scheduler
	engine    *router.Engine

	closers []func(context.Context) error
}

// newApplication wires every component from cfg. The caller must call cleanup.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{config: cfg, logger: logger}

	shutdown, err := telemetry.Init(ctx, cfg.Telemetry, telemetry.WithServiceVersion(version))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	app.closers = append(app.closers, shutdown)

	g, err := graph.LoadFile(cfg.Graph.Path)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to load concept graph: %w", err)
	}
	app.graph = graph.NewHolder(g, logger)
	logger.Info("concept graph loaded",
		slog.String("path", cfg.Graph.Path),
		slog.Int("concepts", g.Len()))

	if err := app.openMasteryStore(ctx); err != nil {
		app.cleanup()
		return nil, err
	}

	model, err := retentionModel(cfg.Retention)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("invalid retention policy: %w", err)
	}
	app.scheduler = scheduler.NewScheduler(app.graph, app.mastery, model,
		scheduler.Config{MaxRevisions: cfg.Scheduler.MaxRevisions}, logger)

	deps := router.Dependencies{
		Resolver:  resolver.NewKeywordResolver(app.graph, logger),
		Scheduler: app.scheduler,
		Catalog:   app.graph,
		Events:    newEventEmitter(logger),
	}
	if err := app.wireGenerators(ctx, &deps); err != nil {
		app.cleanup()
		return nil, err
	}
	app.engine = router.NewEngine(cfg.Router, deps, logger)
	return app, nil
}

func (app *application) openMasteryStore(ctx context.Context) error {
	dbCfg := app.config.Database
	switch dbCfg.Driver {
	case "memory":
		app.mastery = memory.NewMasteryStore(app.logger)

	case "postgres":
		db, err := postgres.Open(ctx, dbCfg.URL, app.logger)
		if err != nil {
			return err
		}
		app.closers = append(app.closers, func(context.Context) error { return db.Close() })
		app.mastery = postgres.NewPostgresMasteryStore(db, app.logger)

	case "badger":
		db, err := badgerstore.Open(badgerstore.DefaultConfig(dbCfg.Path), app.logger)
		if err != nil {
			return fmt.Errorf("failed to open badger store: %w", err)
		}
		app.closers = append(app.closers, func(context.Context) error { return db.Close() })
		app.mastery = badgerstore.NewMasteryStore(db, app.logger)

	default:
		return fmt.Errorf("unsupported database driver %q", dbCfg.Driver)
	}

	app.logger.Info("mastery store ready", slog.String("driver", dbCfg.Driver))
	return nil
}

func (app *application) wireGenerators(ctx context.Context, deps *router.Dependencies) error {
	switch app.config.LLM.Provider {
	case "gemini":
		client, err := gemini.NewClient(ctx, app.config.LLM, app.logger)
		if err != nil {
			return fmt.Errorf("failed to create gemini client: %w", err)
		}
		deps.Content, deps.Notes, deps.Profiler = client, client, client
	default:
		offline := generation.Offline{}
		deps.Content, deps.Notes, deps.Profiler = offline, offline, offline
	}
	app.logger.Info("content generators ready", slog.String("provider", app.config.LLM.Provider))
	return nil
}

func newEventEmitter(logger *slog.Logger) events.EventEmitter {
	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(events.NewLogHandler(logger))
	return emitter
}

func retentionModel(cfg config.RetentionConfig) (*retention.Model, error) {
	params, err := retention.NewParams(retention.ParamsConfig{
		Threshold:        cfg.Threshold,
		HighUrgencyBelow: cfg.HighUrgencyBelow,
		BaseStrengthDays: cfg.BaseStrengthDays,
		StrengthGrowth:   cfg.StrengthGrowth,
		BandFloors:       cfg.BandFloors,
		IntervalDays:     cfg.IntervalDays,
	})
	if err != nil {
		return nil, err
	}
	return retention.NewModel(params)
}

// cleanup releases resources in reverse order of acquisition.
func (app *application) cleanup() {
	ctx := context.Background()
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil
	if err := errors.Join(errs...); err != nil {
		app.logger.Error("cleanup failed", slog.String("error", err.Error()))
	}
}
