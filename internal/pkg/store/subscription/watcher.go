package subscription

import (
	"context"
	"errors"
	"sync"
	"time"

	"coop-ledger/internal/pkg/apperrors"
	"coop-ledger/internal/pkg/config"
	"coop-ledger/internal/pkg/log_messages"
	"coop-ledger/internal/pkg/logger"
	"coop-ledger/internal/service/interfaces"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

const (
	defaultPollInterval   = 5 * time.Second
	defaultRestartBackoff = 2 * time.Second
)

var errFeedClosed = errors.New("change feed closed")

// SnapshotFunc receives the full current contents of a collection.
// Deliveries for one subscription never overlap.
type SnapshotFunc func(ctx context.Context, docs []bson.M)

// Unsubscribe stops delivery and waits for the delivery loop to exit.
// It is safe to call more than once.
type Unsubscribe func()

// Watcher turns change streams into a stream of full snapshots. When a
// collection cannot be watched it polls instead.
type Watcher struct {
	sources        map[string]interfaces.SnapshotSource
	pollInterval   time.Duration
	restartBackoff time.Duration
}

func NewWatcher(cfg config.SubscriptionConfig) *Watcher {
	w := &Watcher{
		sources:        make(map[string]interfaces.SnapshotSource),
		pollInterval:   cfg.PollInterval,
		restartBackoff: cfg.RestartBackoff,
	}
	if w.pollInterval <= 0 {
		w.pollInterval = defaultPollInterval
	}
	if w.restartBackoff <= 0 {
		w.restartBackoff = defaultRestartBackoff
	}
	return w
}

// Register makes collection available to Subscribe.
func (w *Watcher) Register(collection string, source interfaces.SnapshotSource) {
	w.sources[collection] = source
}

// Subscribe delivers the current snapshot of collection before returning,
// then delivers a fresh snapshot after every change until unsubscribed or
// ctx is done.
func (w *Watcher) Subscribe(ctx context.Context, collection string, filter bson.M, onSnapshot SnapshotFunc) (Unsubscribe, error) {
	source, ok := w.sources[collection]
	if !ok {
		return nil, apperrors.NewValidationError("collection", "no subscription source for "+collection)
	}
	if onSnapshot == nil {
		return nil, apperrors.NewValidationError("onSnapshot", "is required")
	}

	// The feed is opened before the read so a write landing in between
	// still produces an event.
	feed, watchErr := source.WatchChanges(ctx)
	docs, err := source.ListRaw(ctx, filter)
	if err != nil {
		if watchErr == nil {
			_ = feed.Close(context.WithoutCancel(ctx))
		}
		return nil, err
	}
	onSnapshot(ctx, docs)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s := &stream{
		source:     source,
		collection: collection,
		filter:     filter,
		onSnapshot: onSnapshot,
		poll:       w.pollInterval,
		backoff:    w.restartBackoff,
	}
	go func() {
		defer close(done)
		s.run(runCtx, feed, watchErr)
	}()
	logger.CtxInfo(ctx, log_messages.SubscriptionStarted, zap.String("collection", collection), zap.Int("documents", len(docs)))

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
			logger.CtxInfo(ctx, log_messages.SubscriptionStopped, zap.String("collection", collection))
		})
	}, nil
}

type stream struct {
	source     interfaces.SnapshotSource
	collection string
	filter     bson.M
	onSnapshot SnapshotFunc
	poll       time.Duration
	backoff    time.Duration
}

func (s *stream) run(ctx context.Context, feed interfaces.ChangeFeed, err error) {
	for {
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.CtxWarn(ctx, log_messages.ChangeStreamUnavailable,
				zap.String("collection", s.collection), zap.Error(err))
			s.pollLoop(ctx)
			return
		}

		err = s.follow(ctx, feed)
		if ctx.Err() != nil {
			return
		}
		logger.CtxError(ctx, log_messages.ChangeStreamFailed, apperrors.NewStoreError("watch "+s.collection, err))
		if !sleep(ctx, s.backoff) {
			return
		}
		// reopen before catching up so nothing committed in between is missed
		feed, err = s.source.WatchChanges(ctx)
		s.deliver(ctx)
	}
}

func (s *stream) follow(ctx context.Context, feed interfaces.ChangeFeed) error {
	defer func() {
		_ = feed.Close(context.WithoutCancel(ctx))
	}()
	for feed.Next(ctx) {
		s.deliver(ctx)
	}
	if err := feed.Err(); err != nil {
		return err
	}
	return errFeedClosed
}

func (s *stream) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.deliver(ctx)
		}
	}
}

func (s *stream) deliver(ctx context.Context) bool {
	docs, err := s.source.ListRaw(ctx, s.filter)
	if err != nil {
		if ctx.Err() == nil {
			logger.CtxError(ctx, log_messages.SubscriptionReadFailed, err, zap.String("collection", s.collection))
		}
		return false
	}
	if ctx.Err() != nil {
		return false
	}
	s.onSnapshot(ctx, docs)
	return true
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
