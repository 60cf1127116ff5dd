// Package app assembles the services from configuration. Both the HTTP
// server and the one-shot sweep command start from here.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hugobelem/depoc/internal/config"
	"github.com/hugobelem/depoc/internal/events"
	"github.com/hugobelem/depoc/internal/handler"
	"github.com/hugobelem/depoc/internal/repository"
	"github.com/hugobelem/depoc/internal/repository/memory"
	"github.com/hugobelem/depoc/internal/repository/postgres"
	"github.com/hugobelem/depoc/internal/service"
	"github.com/hugobelem/depoc/pkg/database"
	"github.com/hugobelem/depoc/pkg/redis"
)

type App struct {
	Store     repository.Store
	Locker    service.Locker
	Cache     service.IdempotencyCache
	Publisher events.Publisher

	Obligations *service.ObligationService
	Ledger      *service.LedgerService
	Accounts    *service.AccountService
	Sweeper     *service.Sweeper

	checks  []func(ctx context.Context) error
	closers []func() error
}

// New connects to the configured backends and builds the services. Redis and
// Kafka are optional: without them locks and the idempotency cache stay in
// process and events are dropped.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	a := &App{}

	if cfg.Storage == config.StorageMemory && cfg.IsProduction() {
		return nil, fmt.Errorf("STORAGE=%s is not allowed in production", config.StorageMemory)
	}

	switch cfg.Storage {
	case config.StorageMemory:
		log.Warn("using in-memory storage, data is lost on restart")
		a.Store = memory.New()
	default:
		db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL, database.DefaultPool)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		a.checks = append(a.checks, db.PingContext)

		if err := postgres.Migrate(ctx, db.DB); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		a.Store = postgres.New(db)
	}

	if cfg.RedisAddr != "" {
		client := redis.NewRedisClient(cfg.RedisAddr)
		if err := client.Ping(ctx); err != nil {
			client.Close()
			a.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		a.checks = append(a.checks, client.Ping)
		a.Locker = service.NewRedisLocker(client)
		a.Cache = service.NewRedisIdempotencyCache(client)
	} else {
		log.Info("REDIS_ADDR not set, using process-local locks and idempotency cache")
		a.Locker = service.NewLocalLocker()
		a.Cache = service.NewMemoryIdempotencyCache()
	}

	if len(cfg.KafkaBrokers) > 0 {
		publisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		a.closers = append(a.closers, publisher.Close)
		a.Publisher = publisher
	} else {
		a.Publisher = events.NopPublisher{}
	}

	a.Obligations = service.NewObligationService(a.Store, a.Cache, a.Publisher, log)
	a.Ledger = service.NewLedgerService(a.Store, a.Obligations, a.Publisher, log)
	a.Accounts = service.NewAccountService(a.Store, log)
	a.Sweeper = service.NewSweeper(a.Store, a.Locker, cfg.SweepLockTTL, log)

	return a, nil
}

// Services returns what the HTTP router needs.
func (a *App) Services() handler.Services {
	return handler.Services{
		Obligations: a.Obligations,
		Ledger:      a.Ledger,
		Accounts:    a.Accounts,
		Sweeper:     a.Sweeper,
		Ready:       a.Ready,
	}
}

// Ready checks every backend connection.
func (a *App) Ready(ctx context.Context) error {
	for _, check := range a.checks {
		if err := check(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close releases connections in reverse order of creation.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
