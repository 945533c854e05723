package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"wallet-gateway/internal/config"
	"wallet-gateway/internal/models"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
)

func topupMessage(t *testing.T, cmd models.TopupCommand) *sarama.ConsumerMessage {
	t.Helper()
	body, err := json.Marshal(cmd)
	if err != nil {
		t.Fatalf("failed to marshal command: %v", err)
	}
	return &sarama.ConsumerMessage{Value: body}
}

func TestPartitionManager_ConsumesAndFlushes(t *testing.T) {
	cfg := config.New()
	cfg.Kafka.TopupTopic = "wallet.topups"
	cfg.Kafka.Partitions = 2
	cfg.Worker.ProcessingInterval = 10 * time.Millisecond

	consumer := mocks.NewConsumer(t, nil)
	p0 := consumer.ExpectConsumePartition("wallet.topups", 0, sarama.OffsetNewest)
	p1 := consumer.ExpectConsumePartition("wallet.topups", 1, sarama.OffsetNewest)

	p0.YieldMessage(topupMessage(t, models.TopupCommand{RequestID: "r1", Phone: "01000000001", Amount: 100}))
	p0.YieldMessage(&sarama.ConsumerMessage{Value: []byte("not json")})
	p1.YieldMessage(topupMessage(t, models.TopupCommand{RequestID: "r2", Phone: "01000000002", Amount: 200}))
	// redelivery of r1 on another partition credits nothing
	p1.YieldMessage(topupMessage(t, models.TopupCommand{RequestID: "r1", Phone: "01000000001", Amount: 100}))

	topups := newFakeTopupper(nil)
	m := NewPartitionManager(cfg, consumer, topups, newFakeMarker(), discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for topups.appliedCount() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("topups applied = %d, want 2", topups.appliedCount())
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("partition manager did not stop")
	}

	if n := topups.appliedCount(); n != 2 {
		t.Fatalf("topups applied = %d, want 2", n)
	}
}
