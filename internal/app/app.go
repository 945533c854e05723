package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"wallet-gateway/internal/broker"
	"wallet-gateway/internal/cache"
	"wallet-gateway/internal/config"
	"wallet-gateway/internal/database"
	"wallet-gateway/internal/logging"
	"wallet-gateway/internal/repositories/kafkarepo"
	"wallet-gateway/internal/repositories/redisrepo"
	"wallet-gateway/internal/repositories/sqlrepo"
	"wallet-gateway/internal/services"
	"wallet-gateway/internal/transport/http/handler"
	"wallet-gateway/internal/worker"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	cfg        *config.Config
	log        *slog.Logger
	db         *sqlx.DB
	redis      *redis.Client
	events     *kafka.Writer
	dispatcher *services.Dispatcher
	sweeper    *worker.Sweeper
	httpServer *http.Server
}

func New() (*App, error) {
	a := new(App)

	// Initialize config
	a.cfg = config.New()
	if err := a.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	a.log = logging.New(a.cfg.Log.Level)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	// Connect to database
	db, err := database.Open(a.cfg.Database.Driver, a.cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("database connection error: %w", err)
	}
	a.db = db

	if err := database.Migrate(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration error: %w", err)
	}

	// Connect to cache
	rdb, err := cache.NewRedis(a.cfg.Redis)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("cache connection error: %w", err)
	}
	a.redis = rdb

	// Connect to broker
	var events services.EventPublisher = services.NopPublisher{}
	if a.cfg.Kafka.Enabled() {
		a.events = broker.NewKafkaWriter(a.cfg.Kafka)
		events = kafkarepo.NewEventRepository(a.events)
	} else {
		a.log.Warn("KAFKA_BROKERS not set, wallet events are not published")
	}

	// Initialize repositories
	users := sqlrepo.NewUserRepository(db)
	sessions := sqlrepo.NewSessionRepository(db)
	ledger := sqlrepo.NewLedgerRepository(db)
	balances := redisrepo.NewWalletRepository(rdb)
	tokens := redisrepo.NewTokenRepository(rdb)

	// Initialize services
	gate, err := services.NewAuthGate(users, a.cfg.Payment.BcryptCost, a.log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("auth gate error: %w", err)
	}
	manager := services.NewSessionManager(sessions, a.cfg.Payment, a.log)
	payments := services.NewPaymentProcessor(users, sessions, ledger, balances, events, a.log)
	a.dispatcher = services.NewDispatcher(sessions, nil, a.cfg.Callback, services.NewRetryPolicy(a.cfg.Callback), a.log)

	h := handler.New(handler.Services{
		Sessions: manager,
		Checkout: services.NewCheckout(manager, gate, payments, a.dispatcher, a.log),
		Payments: payments,
		Accounts: services.NewAccountService(users, payments, gate, balances, tokens, a.cfg.Payment.BcryptCost, a.cfg.Auth.TokenTTL, a.log),
		History:  services.NewHistoryService(users, sessions, ledger),
	}, redisrepo.NewRateLimiter(rdb), db, a.cfg, a.log)

	a.sweeper = worker.NewSweeper(a.log, manager, a.dispatcher, a.cfg)

	// Initialize http server
	a.httpServer = &http.Server{
		Addr:         a.cfg.Server.Port,
		Handler:      h.Routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	return a, nil
}

// Run serves until ctx is cancelled, then drains requests and pending
// callbacks before returning.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	sweepCtx, stopSweep := context.WithCancel(ctx)
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		a.sweeper.Run(sweepCtx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		a.log.Info("starting HTTP server", "addr", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			runErr = fmt.Errorf("http server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.log.Error("http server shutdown error", "err", err)
	}
	stopSweep()
	<-sweepDone
	if err := a.dispatcher.WaitContext(shutdownCtx); err != nil {
		a.log.Warn("callbacks still in flight at shutdown", "err", err)
	}

	a.log.Info("gateway stopped")
	return runErr
}

func (a *App) Close() {
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.log.Error("failed to close kafka writer", "err", err)
		}
	}
	if a.redis != nil {
		a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
