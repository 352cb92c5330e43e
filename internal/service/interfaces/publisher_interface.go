package interfaces

import "context"

// PubSubPublisherClientInterface wraps the Pub/Sub client so tests can substitute it.
type PubSubPublisherClientInterface interface {
	Publisher(topic string) PublisherInterface
	Close() error
}

type PublisherInterface interface {
	Publish(ctx context.Context, msg []byte) error
}

// NotificationPublisher publishes a message to a named topic.
type NotificationPublisher interface {
	Publish(ctx context.Context, topic string, msg []byte) error
}

// KafkaPublisherInterface publishes keyed messages to the ledger topic.
type KafkaPublisherInterface interface {
	Publish(ctx context.Context, key []byte, msg []byte) error
}

// ReportUploader stores a rendered report and returns its object name.
type ReportUploader interface {
	UploadReport(ctx context.Context, name string, content []byte, contentType string) (string, error)
}
