// Package server wires configuration, storage, the challenge registry and
// the HTTP API together and runs them until shutdown.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/flagkeeper/internal/logging"
	"github.com/dmitrijs2005/flagkeeper/internal/server/challenges"
	"github.com/dmitrijs2005/flagkeeper/internal/server/config"
	"github.com/dmitrijs2005/flagkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/flagkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/flagkeeper/internal/server/scorecache"
	"github.com/dmitrijs2005/flagkeeper/internal/server/services"
	"github.com/dmitrijs2005/flagkeeper/internal/telemetry"
	"golang.org/x/sync/errgroup"
)

type App struct {
	config *config.Config
	logger logging.Logger
}

func NewApp(c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogFormat, os.Stdout)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}
	return &App{config: c, logger: logger}, nil
}

// newScoreCache picks Redis when an address is configured.
func (app *App) newScoreCache(ctx context.Context) (scorecache.Cache, func() error, error) {
	if app.config.RedisAddr == "" {
		app.logger.Info(ctx, "Using in-memory scoreboard cache")
		return scorecache.NewMemory(), func() error { return nil }, nil
	}
	c, closeFn, err := scorecache.NewRedis(ctx, app.config.RedisAddr)
	if err != nil {
		return nil, nil, err
	}
	app.logger.Info(ctx, "Using redis scoreboard cache", "address", app.config.RedisAddr)
	return c, closeFn, nil
}

// watchReload reloads the registry every time sig fires until ctx ends.
func (app *App) watchReload(ctx context.Context, sig <-chan os.Signal, r httpapi.Reloader) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sig:
			app.logger.Info(ctx, "Reloading challenges")
			if _, err := r.Load(ctx); err != nil {
				app.logger.Error(ctx, "challenge reload failed", "error", err.Error())
			}
		}
	}
}

// Run starts the app and blocks until ctx is cancelled, a termination
// signal arrives, or a component fails.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app.logger.Info(ctx, "Starting app...")

	shutdownTracing, err := telemetry.Setup(ctx, "flagkeeper", app.config.TraceStdout, os.Stdout)
	if err != nil {
		return fmt.Errorf("tracing init error: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	db, err := repomanager.OpenDB(ctx, app.config.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	defer db.Close()

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return err
	}

	cache, closeCache, err := app.newScoreCache(ctx)
	if err != nil {
		return fmt.Errorf("cache init error: %w", err)
	}
	defer func() { _ = closeCache() }()

	registry := challenges.NewRegistry(challenges.Options{
		Root:           app.config.ChallengesDir,
		EvalTimeout:    app.config.EvalTimeout,
		ScriptBudget:   app.config.ScriptInstructionBudget,
		ScriptMaxBytes: app.config.ScriptMaxBytes,
	}, app.logger)

	attachments := services.NewAttachmentService(app.config, registry, app.logger)
	registry.OnLoad(attachments.Publish)

	if _, err := registry.Load(ctx); err != nil {
		return fmt.Errorf("challenges init error: %w", err)
	}

	scoreboard := services.NewScoreboardService(db, rm, cache, app.logger)
	deps := httpapi.Deps{
		Accounts:    services.NewUserService(db, rm, app.config, app.logger),
		Teams:       services.NewTeamService(db, rm, scoreboard, app.logger),
		Board:       services.NewBoardService(db, rm, registry, app.logger),
		Submissions: services.NewSubmissionService(db, rm, registry, scoreboard, app.logger),
		Scoreboard:  scoreboard,
		Attachments: attachments,
		Reloader:    registry,
	}
	srv := httpapi.NewServer(app.config.EndpointAddrHTTP, app.logger, deps, app.config.SecretKey)

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return app.watchReload(gctx, hup, registry) })

	err = g.Wait()
	app.logger.Info(context.Background(), "App stopped")
	return err
}
