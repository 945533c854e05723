package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
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
	"wallet-gateway/internal/worker"

	"github.com/IBM/sarama"
	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// topupMarkerTTL is how long an applied request ID skips the database.
const topupMarkerTTL = 24 * time.Hour

type TopupWorker struct {
	cfg              *config.Config
	log              *slog.Logger
	db               *sqlx.DB
	redis            *redis.Client
	consumer         sarama.Consumer
	events           *kafka.Writer
	partitionManager *worker.PartitionManager
}

func NewTopupWorker() (*TopupWorker, error) {
	w := new(TopupWorker)

	// Initialize config
	w.cfg = config.New()
	if !w.cfg.Kafka.Enabled() {
		return nil, errors.New("KAFKA_BROKERS is required for the topup worker")
	}
	if w.cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	w.log = logging.New(w.cfg.Log.Level)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	// Connect to database
	db, err := database.Open(w.cfg.Database.Driver, w.cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("database connection error: %w", err)
	}
	w.db = db

	// Connect to cache
	rdb, err := cache.NewRedis(w.cfg.Redis)
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("cache connection error: %w", err)
	}
	w.redis = rdb

	// Connect to broker
	consumer, err := broker.NewTopupConsumer(&w.cfg.Kafka)
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("broker connection error: %w", err)
	}
	w.consumer = consumer
	w.events = broker.NewKafkaWriter(w.cfg.Kafka)

	// Initialize repositories
	users := sqlrepo.NewUserRepository(db)
	sessions := sqlrepo.NewSessionRepository(db)
	ledger := sqlrepo.NewLedgerRepository(db)
	balances := redisrepo.NewWalletRepository(rdb)
	markers := redisrepo.NewIdempotencyRepository(rdb, topupMarkerTTL)

	// Initialize services
	payments := services.NewPaymentProcessor(users, sessions, ledger, balances, kafkarepo.NewEventRepository(w.events), w.log)

	// Partition Manager
	w.partitionManager = worker.NewPartitionManager(w.cfg, consumer, payments, markers, w.log)

	return w, nil
}

// Run consumes topup commands until ctx is cancelled.
func (w *TopupWorker) Run(ctx context.Context) error {
	defer w.Close()
	return w.partitionManager.Start(ctx)
}

func (w *TopupWorker) Close() {
	if w.consumer != nil {
		if err := w.consumer.Close(); err != nil {
			w.log.Error("failed to close kafka consumer", "err", err)
		}
	}
	if w.events != nil {
		w.events.Close()
	}
	if w.redis != nil {
		w.redis.Close()
	}
	if w.db != nil {
		w.db.Close()
	}
}
