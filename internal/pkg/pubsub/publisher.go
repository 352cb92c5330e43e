package pubsub

import (
	"context"
	"sync"

	"coop-ledger/internal/pkg/log_messages"
	"coop-ledger/internal/pkg/logger"
	"coop-ledger/internal/service/interfaces"

	"cloud.google.com/go/pubsub/v2"
)

// PubSubPublisher publishes member notifications to Pub/Sub topics.
type PubSubPublisher struct {
	PubSubClient interfaces.PubSubPublisherClientInterface
	Ctx          context.Context
	Cancel       context.CancelFunc
}

// PubSubPublisherClientFactory makes new clients (mockable in tests).
type PubSubPublisherClientFactory interface {
	NewPubSubPublisherClient(ctx context.Context, projectID string) (interfaces.PubSubPublisherClientInterface, error)
}

type defaultPubSubPublisherClientFactory struct{}

func (f *defaultPubSubPublisherClientFactory) NewPubSubPublisherClient(ctx context.Context,
	projectID string) (interfaces.PubSubPublisherClientInterface, error) {
	sdkClient, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &pubSubPublisherClientAdapter{client: sdkClient, publishers: map[string]*pubsub.Publisher{}}, nil
}

// pubSubPublisherClientAdapter wraps *pubsub.Client and keeps one publisher
// per topic, since each publisher owns its own batching goroutines.
type pubSubPublisherClientAdapter struct {
	client     *pubsub.Client
	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

func (c *pubSubPublisherClientAdapter) Publisher(topic string) interfaces.PublisherInterface {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.publishers[topic]
	if !ok {
		p = c.client.Publisher(topic)
		c.publishers[topic] = p
	}
	return &publisherAdapter{publisher: p}
}

func (c *pubSubPublisherClientAdapter) Close() error {
	c.mu.Lock()
	for topic, p := range c.publishers {
		p.Stop()
		delete(c.publishers, topic)
	}
	c.mu.Unlock()
	return c.client.Close()
}

type publisherAdapter struct {
	publisher *pubsub.Publisher
}

func (p *publisherAdapter) Publish(ctx context.Context, msg []byte) error {
	result := p.publisher.Publish(ctx, &pubsub.Message{
		Data: msg,
	})
	_, err := result.Get(ctx)
	return err
}

// NewPubSubPublisher is the default constructor for production use.
// Declared as a variable so tests can replace it.
var NewPubSubPublisher = func(ctx context.Context, projectID string) (*PubSubPublisher, error) {
	return NewPubSubPublisherWithFactory(ctx, projectID, &defaultPubSubPublisherClientFactory{})
}

func NewPubSubPublisherWithFactory(ctx context.Context, projectID string,
	factory PubSubPublisherClientFactory) (*PubSubPublisher, error) {
	client, err := factory.NewPubSubPublisherClient(ctx, projectID)
	if err != nil {
		logger.CtxError(ctx, "Failed creating PubSub client", err)
		return nil, err
	}
	logger.CtxInfo(ctx, log_messages.PubsubPublisherCreated)

	publisherCtx, cancel := context.WithCancel(ctx)
	return &PubSubPublisher{
		PubSubClient: client,
		Ctx:          publisherCtx,
		Cancel:       cancel,
	}, nil
}

// Publish publishes msg to topic and waits for the server ack.
func (p *PubSubPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	return p.PubSubClient.Publisher(topic).Publish(ctx, msg)
}

func (p *PubSubPublisher) Close() error {
	if p.Cancel != nil {
		p.Cancel()
	}
	return p.PubSubClient.Close()
}
