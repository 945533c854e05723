package broker

import (
	"wallet-gateway/internal/config"

	"github.com/IBM/sarama"
	"github.com/segmentio/kafka-go"
)

// NewKafkaWriter returns a writer for the wallet events topic.
func NewKafkaWriter(cfg config.KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.EventsTopic,
		Balancer:     &kafka.Hash{},    // events of one user stay ordered
		RequiredAcks: kafka.RequireOne, // Wait for acknowledgement from leader
		Async:        false,
		MaxAttempts:  10,
	}
}

// NewTopupWriter returns a writer for the topup command topic.
func NewTopupWriter(cfg config.KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TopupTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  10,
	}
}

// NewTopupConsumer creates the sarama consumer the topup worker reads partitions from.
func NewTopupConsumer(cfg *config.KafkaConfig) (sarama.Consumer, error) {
	return sarama.NewConsumer(cfg.Brokers, cfg.GetSaramaConfig())
}
