package worker

import (
	"context"
	"encoding/json"
	"time"

	"wallet-gateway/internal/models"

	"github.com/IBM/sarama"
)

// shutdownFlushTimeout bounds the final flush after the worker context ends.
const shutdownFlushTimeout = 10 * time.Second

func (m *PartitionManager) runWorker(ctx context.Context, partition int, partitionConsumer sarama.PartitionConsumer, batchProcessor *BatchProcessor) {
	ticker := time.NewTicker(m.cfg.Worker.ProcessingInterval)
	defer ticker.Stop()

	log := m.log.With("partition", partition)
	errs := partitionConsumer.Errors()

	for {
		select {
		case <-ctx.Done():
			log.Info("shutdown signal received")
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownFlushTimeout)
			batchProcessor.ProcessRemaining(flushCtx)
			cancel()
			return

		case msg, ok := <-partitionConsumer.Messages():
			if !ok {
				log.Warn("partition consumer closed")
				batchProcessor.ProcessRemaining(context.WithoutCancel(ctx))
				return
			}
			var cmd models.TopupCommand
			if err := json.Unmarshal(msg.Value, &cmd); err != nil {
				log.Error("failed to unmarshal topup command", "offset", msg.Offset, "err", err)
				continue
			}
			batchProcessor.AddMessage(msg, cmd)

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			log.Error("kafka error", "err", err)

		case <-ticker.C:
			batchProcessor.ProcessBatch(ctx)
		}
	}
}
