package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"coop-ledger/internal/pkg/log_messages"
	"coop-ledger/internal/pkg/logger"
	"coop-ledger/internal/pkg/store/models"
	"coop-ledger/internal/service/interfaces"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultQueueSize      = 1024
	defaultPublishTimeout = 15 * time.Second
)

// Publisher fans an applied payment out to the ledger audit topic and to
// member notifications. Either sink may be nil when it is not configured.
//
// Until Start is called events are published inline. After Start a single
// worker publishes them in the order they were queued, so events for one
// member stay ordered and a slow broker does not hold up the caller.
type Publisher struct {
	ledger            interfaces.KafkaPublisherInterface
	notifications     interfaces.NotificationPublisher
	notificationTopic string
	publishTimeout    time.Duration
	now               func() time.Time
	newID             func() string

	mu    sync.RWMutex
	queue chan queuedEvent
	done  chan struct{}
}

type queuedEvent struct {
	ctx context.Context
	tx  models.Transaction
}

var _ interfaces.LedgerEventPublisher = (*Publisher)(nil)

func NewPublisher(
	ledger interfaces.KafkaPublisherInterface,
	notifications interfaces.NotificationPublisher,
	notificationTopic string,
) *Publisher {
	return &Publisher{
		ledger:            ledger,
		notifications:     notifications,
		notificationTopic: notificationTopic,
		publishTimeout:    defaultPublishTimeout,
		now:               func() time.Time { return time.Now().UTC() },
		newID:             func() string { return uuid.New().String() },
	}
}

// Start launches the background worker with room for queueSize events.
func (p *Publisher) Start(queueSize int) {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.queue != nil {
		return
	}
	p.queue = make(chan queuedEvent, queueSize)
	p.done = make(chan struct{})
	go p.drain(p.queue, p.done)
}

// Close stops accepting events and waits for the queue to drain or ctx to
// end, whichever comes first.
func (p *Publisher) Close(ctx context.Context) {
	p.mu.Lock()
	queue, done := p.queue, p.done
	p.queue, p.done = nil, nil
	p.mu.Unlock()
	if queue == nil {
		return
	}

	close(queue)
	select {
	case <-done:
	case <-ctx.Done():
		logger.CtxWarn(ctx, log_messages.LedgerEventsAbandoned, zap.Int("pending", len(queue)))
	}
}

func (p *Publisher) PaymentApplied(ctx context.Context, tx models.Transaction) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.queue == nil {
		p.publish(ctx, tx)
		return
	}

	select {
	case p.queue <- queuedEvent{ctx: context.WithoutCancel(ctx), tx: tx}:
	case <-ctx.Done():
		logger.CtxWarn(ctx, log_messages.LedgerEventDropped,
			zap.String("member_id", tx.MemberID), zap.String("transaction_id", tx.ID.Hex()))
	}
}

func (p *Publisher) drain(queue <-chan queuedEvent, done chan<- struct{}) {
	defer close(done)
	for ev := range queue {
		p.publish(ev.ctx, ev.tx)
	}
}

func (p *Publisher) publish(ctx context.Context, tx models.Transaction) {
	ctx, cancel := context.WithTimeout(ctx, p.publishTimeout)
	defer cancel()
	fields := []zap.Field{zap.String("member_id", tx.MemberID), zap.String("transaction_id", tx.ID.Hex())}

	if p.ledger != nil {
		payload, err := json.Marshal(models.NewLedgerEvent(p.newID(), tx, p.now()))
		if err != nil {
			logger.CtxError(ctx, log_messages.ErrorMarshallingJSON, err, fields...)
		} else if err := p.ledger.Publish(ctx, []byte(tx.MemberID), payload); err != nil {
			logger.CtxError(ctx, log_messages.ErrorPublishingLedgerEvent, err, fields...)
		}
	}

	if p.notifications != nil && p.notificationTopic != "" {
		payload, err := json.Marshal(notificationFor(tx))
		if err != nil {
			logger.CtxError(ctx, log_messages.ErrorMarshallingJSON, err, fields...)
			return
		}
		if err := p.notifications.Publish(ctx, p.notificationTopic, payload); err != nil {
			logger.CtxError(ctx, log_messages.ErrorPublishingNotification, err, fields...)
		}
	}
}

func notificationFor(tx models.Transaction) models.PaymentNotification {
	return models.PaymentNotification{
		MemberID:     tx.MemberID,
		MemberNumber: tx.MemberNumber,
		EventName:    models.PaymentRecordedEvent,
		Parameters: []models.NotificationParameter{
			{Name: "name", Value: tx.MemberName},
			{Name: "payment_type", Value: tx.PaymentType},
			{Name: "amount", Value: decimal.NewFromFloat(tx.Amount).StringFixed(2)},
			{Name: "balance", Value: decimal.NewFromFloat(tx.NewBalance).StringFixed(2)},
			{Name: "date", Value: tx.PaymentDate.UTC().Format("2006-01-02")},
		},
	}
}
