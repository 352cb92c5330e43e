package kafka

import (
	"context"
	"fmt"
	"time"

	"coop-ledger/internal/pkg/config"
	"coop-ledger/internal/pkg/log_messages"
	"coop-ledger/internal/pkg/logger"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

const (
	deliveryTimeout = 10 * time.Second
	flushTimeoutMs  = 5000
)

// ProducerInterface is the part of *kafka.Producer the ledger publisher uses.
type ProducerInterface interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Flush(timeoutMs int) int
	Close()
}

// KafkaProducer publishes ledger events to a single topic and waits for the
// delivery report of each message.
type KafkaProducer struct {
	producer ProducerInterface
	topic    string
}

func NewKafkaProducer(cfg config.KafkaConfig) (*KafkaProducer, error) {
	kafkaConfig := &kafka.ConfigMap{
		"bootstrap.servers": cfg.Server,
		"client.id":         cfg.ClientID,
	}
	if cfg.SecurityProtocol != "" {
		_ = kafkaConfig.SetKey("security.protocol", cfg.SecurityProtocol)
	}
	if cfg.SASLMechanism != "" {
		_ = kafkaConfig.SetKey("sasl.mechanisms", cfg.SASLMechanism)
		_ = kafkaConfig.SetKey("sasl.username", cfg.SASLUsername)
		_ = kafkaConfig.SetKey("sasl.password", cfg.SASLPassword)
	}

	producer, err := kafka.NewProducer(kafkaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	logger.Info(log_messages.KafkaProducerCreated)

	return NewKafkaProducerWithInterface(producer, cfg.LedgerTopic), nil
}

func NewKafkaProducerWithInterface(producer ProducerInterface, topic string) *KafkaProducer {
	return &KafkaProducer{producer: producer, topic: topic}
}

// Publish sends msg keyed by key. Messages with the same key land on the
// same partition, so events of one member stay ordered.
func (kp *KafkaProducer) Publish(ctx context.Context, key, msg []byte) error {
	// Buffered and never closed: a late delivery report after a timeout must
	// not panic the producer's event goroutine.
	deliveryChan := make(chan kafka.Event, 1)

	err := kp.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &kp.topic, Partition: kafka.PartitionAny},
		Key:            key,
		Value:          msg,
	}, deliveryChan)
	if err != nil {
		logger.CtxError(ctx, "Failed to produce Kafka message", err)
		return err
	}

	timer := time.NewTimer(deliveryTimeout)
	defer timer.Stop()

	select {
	case ev := <-deliveryChan:
		m, ok := ev.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected event type %T", ev)
		}
		if m.TopicPartition.Error != nil {
			return fmt.Errorf("delivery failed: %w", m.TopicPartition.Error)
		}
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("timeout waiting for Kafka delivery report")
	}
	return nil
}

// Close flushes outstanding messages and closes the producer.
func (kp *KafkaProducer) Close() error {
	kp.producer.Flush(flushTimeoutMs)
	kp.producer.Close()
	return nil
}
