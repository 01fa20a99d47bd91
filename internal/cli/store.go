package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/ratlab/internal/config"
	"github.com/aretw0/ratlab/pkg/adapters/file"
	"github.com/aretw0/ratlab/pkg/adapters/memory"
	"github.com/aretw0/ratlab/pkg/adapters/redis"
	"github.com/aretw0/ratlab/pkg/adapters/sqlite"
	"github.com/aretw0/ratlab/pkg/persistence/middleware"
	"github.com/aretw0/ratlab/pkg/ports"
)

// sqliteFile is used when the configured path is a directory.
const sqliteFile = "ratlab.db"

// persistence bundles the configured store with its optional locker.
type persistence struct {
	store  ports.TranscriptStore
	locker ports.DistributedLocker
	close  func() error
}

// setupPersistence opens the store named by cfg.Store.Kind and wraps it with
// the configured middlewares. Redaction runs before encryption on save.
func setupPersistence(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*persistence, error) {
	p := &persistence{close: func() error { return nil }}

	switch cfg.Store.Kind {
	case "memory":
		p.store = memory.NewStore()
	case "file":
		p.store = file.New(cfg.Store.Path)
	case "sqlite":
		st, err := sqlite.Open(sqlitePath(cfg.Store.Path))
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		p.store = st
		p.close = st.Close
	case "redis":
		st := redis.New(cfg.Store.RedisAddr, cfg.Store.RedisPassword, cfg.Store.RedisDB,
			redis.WithPrefix(cfg.Store.RedisPrefix),
			redis.WithTTL(cfg.Store.TTL),
		)
		if err := st.Client().Ping(ctx).Err(); err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Store.RedisAddr, err)
		}
		p.store = st
		p.close = st.Close
		if cfg.Store.Lock {
			p.locker = redis.NewLocker(st.Client(), cfg.Store.RedisPrefix)
		}
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store.Kind)
	}

	mws, err := storeMiddlewares(cfg)
	if err != nil {
		_ = p.close()
		return nil, err
	}
	p.store = middleware.Chain(p.store, mws...)

	logger.Debug("Persistence ready", "store", cfg.Store.Kind, "middlewares", len(mws), "locking", p.locker != nil)
	return p, nil
}

func storeMiddlewares(cfg *config.Config) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware

	if len(cfg.Security.RedactPatterns) > 0 {
		mw, err := middleware.NewRedactionMiddleware(cfg.Security.RedactPatterns)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction config: %w", err)
		}
		mws = append(mws, mw)
	}

	if cfg.Security.EncryptionKey != "" {
		active, err := middleware.ParseKey(cfg.Security.EncryptionKey)
		if err != nil {
			return nil, err
		}
		var fallbacks [][]byte
		for _, k := range cfg.Security.FallbackKeys {
			key, err := middleware.ParseKey(k)
			if err != nil {
				return nil, fmt.Errorf("fallback key: %w", err)
			}
			fallbacks = append(fallbacks, key)
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallbacks,
		}))
	}

	return mws, nil
}

func sqlitePath(path string) string {
	switch filepath.Ext(path) {
	case ".db", ".sqlite", ".sqlite3":
		return path
	}
	return filepath.Join(path, sqliteFile)
}
