package worker

import (
	"context"
	"log/slog"
	"sync"

	"wallet-gateway/internal/config"

	"github.com/IBM/sarama"
)

// PartitionManager runs one batching worker per partition of the topup topic.
type PartitionManager struct {
	cfg      *config.Config
	consumer sarama.Consumer
	topups   Topupper
	markers  Marker
	log      *slog.Logger
	wg       sync.WaitGroup
}

func NewPartitionManager(cfg *config.Config, consumer sarama.Consumer, topups Topupper, markers Marker, log *slog.Logger) *PartitionManager {
	return &PartitionManager{
		cfg:      cfg,
		consumer: consumer,
		topups:   topups,
		markers:  markers,
		log:      log,
	}
}

// Start blocks until ctx is cancelled and every partition worker has
// flushed its batch.
func (m *PartitionManager) Start(ctx context.Context) error {
	m.log.Info("starting topup workers", "topic", m.cfg.Kafka.TopupTopic, "partitions", m.cfg.Kafka.Partitions)

	for partition := 0; partition < m.cfg.Kafka.Partitions; partition++ {
		m.wg.Add(1)
		go m.startWorkerForPartition(ctx, partition)
	}

	m.wg.Wait()
	m.log.Info("all partition workers stopped")
	return nil
}

func (m *PartitionManager) startWorkerForPartition(ctx context.Context, partition int) {
	defer m.wg.Done()

	partitionConsumer, err := m.consumer.ConsumePartition(m.cfg.Kafka.TopupTopic, int32(partition), sarama.OffsetNewest)
	if err != nil {
		m.log.Error("failed to create partition consumer", "partition", partition, "err", err)
		return
	}
	defer partitionConsumer.Close()

	m.log.Info("worker started", "partition", partition)

	batchProcessor := NewBatchProcessor(partition, m.topups, m.markers, m.log)
	m.runWorker(ctx, partition, partitionConsumer, batchProcessor)
}
