package kafka

import (
	"context"
	"fmt"
	"testing"

	"coop-ledger/internal/pkg/config"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testTopic   = "ledger-events"
	testKey     = "member-1"
	testMessage = `{"eventId":"e1"}`
)

type MockProducer struct {
	ProduceFunc func(msg *kafka.Message, deliveryChan chan kafka.Event) error
	FlushFunc   func(timeoutMs int) int
	CloseFunc func()
}

func (m *MockProducer) Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error {
	if m.ProduceFunc != nil {
		return m.ProduceFunc(msg, deliveryChan)
	}
	return nil
}

func (m *MockProducer) Flush(timeoutMs int) int {
	if m.FlushFunc != nil {
		return m.FlushFunc(timeoutMs)
	}
	return 0
}

func (m *MockProducer) Close() {
	if m.CloseFunc != nil {
		m.CloseFunc()
	}
}

func deliver(topicErr error) func(msg *kafka.Message, deliveryChan chan kafka.Event) error {
	return func(msg *kafka.Message, deliveryChan chan kafka.Event) error {
		go func() {
			deliveryChan <- &kafka.Message{
				TopicPartition: kafka.TopicPartition{
					Topic:     msg.TopicPartition.Topic,
					Partition: msg.TopicPartition.Partition,
					Error:     topicErr,
				},
				Key:   msg.Key,
				Value: msg.Value,
			}
		}()
		return nil
	}
}

func TestKafkaProducerPublish(t *testing.T) {
	t.Run("successful delivery carries key and topic", func(t *testing.T) {
		var produced *kafka.Message
		mockProducer := &MockProducer{
			ProduceFunc: func(msg *kafka.Message, deliveryChan chan kafka.Event) error {
				produced = msg
				return deliver(nil)(msg, deliveryChan)
			},
		}
		producer := NewKafkaProducerWithInterface(mockProducer, testTopic)

		err := producer.Publish(context.Background(), []byte(testKey), []byte(testMessage))

		require.NoError(t, err)
		require.NotNil(t, produced)
		assert.Equal(t, testTopic, *produced.TopicPartition.Topic)
		assert.Equal(t, []byte(testKey), produced.Key)
		assert.Equal(t, []byte(testMessage), produced.Value)
	})

	t.Run("delivery failure", func(t *testing.T) {
		producer := NewKafkaProducerWithInterface(&MockProducer{
			ProduceFunc: deliver(kafka.NewError(kafka.ErrMsgTimedOut, "delivery failed", false)),
		}, testTopic)

		err := producer.Publish(context.Background(), []byte(testKey), []byte(testMessage))
		assert.ErrorContains(t, err, "delivery failed")
	})

	t.Run("produce error", func(t *testing.T) {
		producer := NewKafkaProducerWithInterface(&MockProducer{
			ProduceFunc: func(msg *kafka.Message, deliveryChan chan kafka.Event) error {
				return fmt.Errorf("produce failed")
			},
		}, testTopic)

		err := producer.Publish(context.Background(), nil, []byte(testMessage))
		assert.ErrorContains(t, err, "produce failed")
	})

	t.Run("unexpected event type", func(t *testing.T) {
		producer := NewKafkaProducerWithInterface(&MockProducer{
			ProduceFunc: func(msg *kafka.Message, deliveryChan chan kafka.Event) error {
				go func() {
					deliveryChan <- kafka.NewError(kafka.ErrUnknown, "unexpected event", false)
				}()
				return nil
			},
		}, testTopic)

		err := producer.Publish(context.Background(), nil, []byte(testMessage))
		assert.ErrorContains(t, err, "unexpected event type")
	})

	t.Run("context cancelled while waiting", func(t *testing.T) {
		producer := NewKafkaProducerWithInterface(&MockProducer{}, testTopic)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := producer.Publish(ctx, nil, []byte(testMessage))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestKafkaProducerClose(t *testing.T) {
	var flushed int
	closed := false
	producer := NewKafkaProducerWithInterface(&MockProducer{
		FlushFunc: func(timeoutMs int) int { flushed = timeoutMs; return 0 },
		CloseFunc: func() { closed = true },
	}, testTopic)

	assert.NoError(t, producer.Close())
	assert.Equal(t, flushTimeoutMs, flushed)
	assert.True(t, closed)
}

func TestNewKafkaProducer(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		producer, err := NewKafkaProducer(config.KafkaConfig{
			Server:      "localhost:9092",
			LedgerTopic: testTopic,
			ClientID:    "coop-ledger-test",
		})
		require.NoError(t, err)
		defer producer.Close()
		assert.Equal(t, testTopic, producer.topic)
	})

	t.Run("invalid security protocol", func(t *testing.T) {
		producer, err := NewKafkaProducer(config.KafkaConfig{
			Server:           "localhost:9092",
			LedgerTopic:      testTopic,
			SecurityProtocol: "INVALID_PROTOCOL",
		})
		assert.Error(t, err)
		assert.Nil(t, producer)
	})
}
