package kafkarepo

import (
	"context"
	"encoding/json"
	"fmt"

	"wallet-gateway/internal/models"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// EventRepository publishes wallet events for downstream consumers.
type EventRepository struct {
	writer messageWriter
}

func NewEventRepository(writer messageWriter) *EventRepository {
	return &EventRepository{
		writer: writer,
	}
}

// PublishEvent sends an event keyed by user so one user's events stay ordered.
func (r *EventRepository) PublishEvent(ctx context.Context, event models.WalletEvent) error {
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal wallet event: %w", err)
	}

	key := event.UserID
	if key == "" {
		key = event.TransactionID
	}

	err = r.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(key),
		Value:   msgBytes,
		Headers: InjectKafkaHeaders(ctx, []kafka.Header{{Key: "event-type", Value: []byte(event.Type)}}),
	})
	if err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// TopupRepository queues topup commands for the topup worker.
type TopupRepository struct {
	writer messageWriter
}

func NewTopupRepository(writer messageWriter) *TopupRepository {
	return &TopupRepository{
		writer: writer,
	}
}

func (r *TopupRepository) SendTopup(ctx context.Context, cmd models.TopupCommand) error {
	msgBytes, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to marshal topup command: %w", err)
	}

	// phone as key keeps one account's topups on one partition
	err = r.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(cmd.Phone),
		Value:   msgBytes,
		Headers: InjectKafkaHeaders(ctx, nil),
	})
	if err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}
