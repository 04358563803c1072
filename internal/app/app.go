// Package app assembles the service from configuration: storage backend,
// auth core, metrics, audit publisher and the HTTP router.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/task-manager/internal/auth"
	"github.com/iliyamo/task-manager/internal/config"
	"github.com/iliyamo/task-manager/internal/database"
	"github.com/iliyamo/task-manager/internal/metrics"
	"github.com/iliyamo/task-manager/internal/repository"
	"github.com/iliyamo/task-manager/internal/router"
	"github.com/iliyamo/task-manager/internal/service"
)

// App holds the long-lived components of a running service.
type App struct {
	Config      config.Config
	Log         *slog.Logger
	Store       repository.Manager
	Registry    *prometheus.Registry
	Metrics     *metrics.Auth
	Coordinator *auth.Coordinator
	Pruner      *auth.Pruner
	Publisher   *service.SessionPublisher // nil unless AUDIT_ENABLED
	Redis       *redis.Client             // nil when Redis is unreachable
}

// OpenStore connects the backend selected by cfg.StoreDriver and prepares
// its schema or indexes.
func OpenStore(ctx context.Context, cfg config.Config) (repository.Manager, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, err := database.OpenMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		if err := database.EnsureIndexes(ctx, client.Database(cfg.MongoDB)); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return repository.NewMongoManager(client, cfg.MongoDB), nil
	case config.DriverMySQL:
		if cfg.DBUser == "" {
			return nil, errors.New("DB_USER is required for the mysql store")
		}
		db, err := database.OpenMySQL(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		if err := database.MigrateMySQL(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate mysql: %w", err)
		}
		return repository.NewMySQLManager(db), nil
	case config.DriverMemory:
		return repository.NewMemoryManager(), nil
	}
	return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}

// New opens the store and builds the auth core around it.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a, err := Build(cfg, store, log)
	if err != nil {
		_ = store.Close(context.Background())
		return nil, err
	}
	return a, nil
}

// Build wires the components on an already open store.
func Build(cfg config.Config, store repository.Manager, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	signer, err := auth.NewSigner([]byte(cfg.JWTSecret), cfg.AccessTTL())
	if err != nil {
		return nil, err
	}
	reg, m := metrics.New()
	sessions := auth.NewSessionStore(store.Users(), cfg.RefreshTTL())

	a := &App{
		Config:   cfg,
		Log:      log,
		Store:    store,
		Registry: reg,
		Metrics:  m,
		Pruner:   auth.NewPruner(sessions, cfg.PruneInterval, m, log.With("component", "pruner")),
	}
	opts := []auth.Option{auth.WithLogger(log.With("component", "auth")), auth.WithMetrics(m)}
	if cfg.AuditEnabled {
		a.Publisher = service.NewSessionPublisher(cfg.RabbitURL, log.With("component", "audit"))
		opts = append(opts, auth.WithObserver(a.Publisher))
	}
	a.Coordinator = auth.NewCoordinator(store.Users(),
		auth.NewPasswordHasher(cfg.BcryptCost, int64(cfg.HashConcurrency)),
		signer, sessions, opts...)
	return a, nil
}

// Router builds the HTTP surface. Redis is connected lazily here since only
// the HTTP layer uses it.
func (a *App) Router(ctx context.Context) *echo.Echo {
	rl, cache := config.LoadRateLimitConfig(), config.LoadCacheConfig()
	if (rl.Enabled || cache.Enabled) && a.Redis == nil {
		a.Redis = config.NewRedisClient(ctx, config.LoadRedisConfig())
		if a.Redis == nil {
			a.Log.WarnContext(ctx, "redis unavailable; rate limiting and caching disabled")
		}
	}
	return router.New(router.Deps{
		Coordinator: a.Coordinator,
		Store:       a.Store,
		Registry:    a.Registry,
		Redis:       a.Redis,
		RateLimit:   rl,
		Cache:       cache,
		CORSOrigins: a.Config.CORSOrigins,
		Log:         a.Log.With("component", "http"),
	})
}

// Close releases everything New opened.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Publisher != nil {
		errs = append(errs, a.Publisher.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	errs = append(errs, a.Store.Close(ctx))
	return errors.Join(errs...)
}
