package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/ratlab/internal/config"
	"github.com/aretw0/ratlab/internal/logging"
	httpAdapter "github.com/aretw0/ratlab/pkg/adapters/http"
	"github.com/aretw0/ratlab/pkg/domain"
	"github.com/aretw0/ratlab/pkg/observability"
	"github.com/aretw0/ratlab/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
)

// App holds everything a command needs: the session manager, the store
// behind it and the observability plumbing.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Manager  *session.Manager
	Streams  *httpAdapter.StreamManager
	Registry *prometheus.Registry

	persistence *persistence
}

// NewApp wires the configured evaluator, store and hooks into a Manager.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := createLogger(cfg)

	factory, engine, err := createEvaluatorFactory(cfg)
	if err != nil {
		return nil, err
	}

	p, err := setupPersistence(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(registry)
	if err != nil {
		_ = p.close()
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	hooks := metrics.Hooks()
	if cfg.Debug {
		hooks = domain.ChainHooks(hooks, observability.LoggingHooks(logger))
	}

	streams := httpAdapter.NewStreamManager(logger)

	opts := []session.ManagerOption{
		session.WithLogger(logger),
		session.WithHooks(hooks),
		session.WithEngineName(engine),
		session.WithReplay(cfg.Replay),
		session.WithEntryObserver(streams.Publish),
	}
	if p.locker != nil {
		opts = append(opts, session.WithLocker(p.locker))
	}

	return &App{
		Config:      cfg,
		Logger:      logger,
		Manager:     session.NewManager(factory, p.store, opts...),
		Streams:     streams,
		Registry:    registry,
		persistence: p,
	}, nil
}

// Close releases every session and the store.
func (a *App) Close() error {
	return errors.Join(a.Manager.Close(), a.persistence.close())
}

// createLogger configures the application logger.
// In debug mode, it writes to Stderr (to separate from Stdout REPL output).
func createLogger(cfg *config.Config) *slog.Logger {
	if !cfg.Debug {
		return logging.NewNop()
	}
	return logging.NewWithWriter(stderr, slog.LevelDebug, logging.Format(cfg.LogFormat))
}
