package repository

import (
	"context"
	"fmt"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	pkgkafka "SignalForge/pkg/kafka"
)

// KafkaSignalSink publishes enhanced signals to a Kafka topic, keyed by
// symbol so downstream consumers see per-symbol order.
type KafkaSignalSink struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaSignalSink(producer *pkgkafka.Producer, topic string) *KafkaSignalSink {
	return &KafkaSignalSink{producer: producer, topic: topic}
}

func (k *KafkaSignalSink) Publish(ctx context.Context, s *models.PublishedSignal) error {
	if err := k.producer.Publish(ctx, k.topic, []byte(s.Symbol), s); err != nil {
		return fmt.Errorf("publish signal %s: %w", s.ID, err)
	}
	return nil
}

func (k *KafkaSignalSink) Close() error {
	return k.producer.Close()
}

var _ domrepo.SignalSink = (*KafkaSignalSink)(nil)
