package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/cliquefs/internal/logging"
	"github.com/dmitrijs2005/cliquefs/internal/server/config"
	"github.com/dmitrijs2005/cliquefs/internal/server/events"
	"github.com/dmitrijs2005/cliquefs/internal/server/ratelimit"
	"github.com/dmitrijs2005/cliquefs/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/cliquefs/internal/server/services"
	"github.com/dmitrijs2005/cliquefs/internal/server/storage"
	"github.com/redis/go-redis/v9"
)

// Runtime owns the shared resources of a cliquefs process (the connection
// pool, the optional Redis client and event publisher) and the services
// built on top of them.
type Runtime struct {
	DB          *sql.DB
	Credentials *services.CredentialStore
	Ledger      *services.RelationLedger
	Gateway     *services.FetchGateway
	Auth        *services.AuthService
	Files       *services.FileRegistry
	Cliques     *services.CliqueRegistry

	redis     *redis.Client
	publisher events.Publisher
}

// NewRuntime opens the database, applies migrations and wires the services.
// Redis and AMQP are optional: when configured but unreachable the process
// runs without throttling or events and logs a warning.
func NewRuntime(ctx context.Context, cfg *config.Config, logger logging.Logger) (*Runtime, error) {
	db, err := storage.Open(ctx, cfg.DatabaseDSN, storage.PoolOptions{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	rt := &Runtime{DB: db, publisher: events.Nop{}}

	var limiter *ratelimit.Limiter
	if cfg.RedisAddr != "" {
		client, err := ratelimit.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn(ctx, "verification throttling disabled", "error", err)
		} else {
			rt.redis = client
			limiter = ratelimit.New(client, cfg.VerifyAttemptLimit, cfg.VerifyAttemptWindow)
		}
	}

	if cfg.AMQPURL != "" {
		p, err := events.DialAMQP(cfg.AMQPURL, cfg.EventsQueue)
		if err != nil {
			logger.Warn(ctx, "relation events disabled", "error", err)
		} else {
			rt.publisher = p
		}
	}

	rt.Credentials = services.NewCredentialStore(db, m, limiter, cfg, logger)
	rt.Ledger = services.NewRelationLedger(db, m, rt.publisher, cfg, logger)
	rt.Gateway = services.NewFetchGateway(db, m, cfg, logger)
	rt.Auth = services.NewAuthService(rt.Credentials, cfg, logger)
	rt.Files = services.NewFileRegistry(db, m, cfg, logger)
	rt.Cliques = services.NewCliqueRegistry(db, m, cfg, logger)

	return rt, nil
}

// Close releases everything NewRuntime opened.
func (rt *Runtime) Close() error {
	var errs []error
	if err := rt.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publisher: %w", err))
	}
	if rt.redis != nil {
		if err := rt.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if err := rt.DB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close db: %w", err))
	}
	return errors.Join(errs...)
}
