package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"wallet-gateway/internal/cache"
	"wallet-gateway/internal/config"
	"wallet-gateway/internal/database"
	"wallet-gateway/internal/logging"
	"wallet-gateway/internal/repositories/redisrepo"
	"wallet-gateway/internal/repositories/sqlrepo"
	"wallet-gateway/internal/services"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
)

// env holds the connections a command needs. Redis is optional; without it
// balance caches are left untouched.
type env struct {
	cfg   *config.Config
	log   *slog.Logger
	db    *sqlx.DB
	redis *redis.Client
}

func openEnv(withRedis bool) (*env, error) {
	cfg := config.New()
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	e := &env{cfg: cfg, log: logging.New(cfg.Log.Level)}

	db, err := database.Open(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("database connection error: %w", err)
	}
	e.db = db

	if withRedis {
		rdb, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			e.log.Warn("redis unavailable, balance cache not refreshed", "err", err)
		} else {
			e.redis = rdb
		}
	}
	return e, nil
}

func (e *env) close() {
	if e.redis != nil {
		e.redis.Close()
	}
	e.db.Close()
}

func (e *env) balanceCache() services.BalanceCache {
	if e.redis == nil {
		return nil
	}
	return redisrepo.NewWalletRepository(e.redis)
}

func (e *env) payments() *services.PaymentProcessor {
	sessions := sqlrepo.NewSessionRepository(e.db)
	return services.NewPaymentProcessor(
		sqlrepo.NewUserRepository(e.db), sessions, sqlrepo.NewLedgerRepository(e.db),
		e.balanceCache(), services.NopPublisher{}, e.log)
}

func (e *env) migrate(ctx context.Context) error {
	return database.Migrate(ctx, e.db)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
