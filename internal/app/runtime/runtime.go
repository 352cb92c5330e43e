package runtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"coop-ledger/internal/app/router"
	"coop-ledger/internal/pkg/cleanup"
	"coop-ledger/internal/pkg/config"
	mongodb "coop-ledger/internal/pkg/db/mongo"
	redisdb "coop-ledger/internal/pkg/db/redis"
	"coop-ledger/internal/pkg/gcs"
	"coop-ledger/internal/pkg/kafka"
	"coop-ledger/internal/pkg/log_messages"
	"coop-ledger/internal/pkg/logger"
	"coop-ledger/internal/pkg/otel"
	"coop-ledger/internal/pkg/pubsub"
	loanstore "coop-ledger/internal/pkg/store/impl/loans"
	memberstore "coop-ledger/internal/pkg/store/impl/members"
	txstore "coop-ledger/internal/pkg/store/impl/transactions"
	"coop-ledger/internal/pkg/store/repository"
	"coop-ledger/internal/pkg/store/subscription"
	"coop-ledger/internal/service/events"
	"coop-ledger/internal/service/interfaces"
	"coop-ledger/internal/service/loans"
	"coop-ledger/internal/service/members"
	"coop-ledger/internal/service/payment"
	"coop-ledger/internal/service/report"
	"coop-ledger/internal/service/snapshot"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

const readHeaderTimeout = 10 * time.Second

// Connectors are package variables so tests can run New without live
// backends.
var (
	setupOtel          = otel.Setup
	connectMongo       = mongodb.ConnectToMongoDB
	connectRedis       = redisdb.ConnectToRedis
	newKafkaProducer   = kafka.NewKafkaProducer
	newPubSubPublisher = func(ctx context.Context, projectID string) (*pubsub.PubSubPublisher, error) {
		return pubsub.NewPubSubPublisher(ctx, projectID)
	}
	newGCSClient = func(ctx context.Context, cfg config.GCSConfig) (*gcs.GCSClient, error) {
		return gcs.NewGCSClient(ctx, cfg)
	}
)

// App owns every long-lived resource of the service.
type App struct {
	cfg       *config.AppConfig
	resources cleanup.Resources
	cache     *snapshot.Cache
	watcher   *subscription.Watcher
	processor *payment.Processor
	server    *http.Server
}

// New connects to the configured backends and wires the services. Optional
// backends that are disabled in config are left out; the features they
// serve degrade instead of failing.
func New(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	app := &App{cfg: cfg}

	shutdown, err := setupOtel(ctx, cfg.Server.ServiceName, cfg.Otel)
	if err != nil {
		logger.CtxError(ctx, log_messages.OtelSetupFailed, err)
	} else {
		app.resources.OtelShutdown = shutdown
	}

	mongoClient, err := connectMongo(ctx, cfg.Mongo)
	if err != nil {
		app.Shutdown(ctx)
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	app.resources.Mongo = mongoClient

	// Interface values stay untyped nil for disabled backends.
	var (
		redisStore    interfaces.RedisStoreInterface
		ledgerSink    interfaces.KafkaPublisherInterface
		notifications interfaces.NotificationPublisher
		uploader      interfaces.ReportUploader
	)

	if cfg.Redis.Enabled {
		redisClient, err := connectRedis(ctx, cfg.Redis, nil)
		if err != nil {
			app.Shutdown(ctx)
			return nil, fmt.Errorf("connect to Redis: %w", err)
		}
		app.resources.Redis = redisClient
		redisStore = repository.NewRedisStoreAdapter(redisClient.Client)
	}

	if cfg.Kafka.Enabled {
		producer, err := newKafkaProducer(cfg.Kafka)
		if err != nil {
			app.Shutdown(ctx)
			return nil, fmt.Errorf("create Kafka producer: %w", err)
		}
		app.resources.Kafka = producer
		ledgerSink = producer
		logger.CtxInfo(ctx, log_messages.KafkaProducerCreated, zap.String("topic", cfg.Kafka.LedgerTopic))
	}

	if cfg.PubSub.Enabled {
		publisher, err := newPubSubPublisher(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			app.Shutdown(ctx)
			return nil, fmt.Errorf("create Pub/Sub publisher: %w", err)
		}
		app.resources.PubSub = publisher
		notifications = publisher
		logger.CtxInfo(ctx, log_messages.PubsubPublisherCreated, zap.String("topic", cfg.PubSub.NotificationTopic))
	}

	if cfg.GCS.Enabled {
		client, err := newGCSClient(ctx, cfg.GCS)
		if err != nil {
			app.Shutdown(ctx)
			return nil, fmt.Errorf("create GCS client: %w", err)
		}
		app.resources.GCS = client
		uploader = client
	}

	membersRepo := memberstore.NewMembersRepository(mongoClient, cfg.Mongo.MembersCollection)
	transactionsRepo := txstore.NewTransactionsRepository(mongoClient, cfg.Mongo.TransactionsCollection)
	loansRepo := loanstore.NewLoansRepository(mongoClient, cfg.Mongo.LoansCollection)

	app.cache = snapshot.NewCache(redisStore, cfg.Redis.SnapshotTTL)
	app.watcher = subscription.NewWatcher(cfg.Subscription)
	app.watcher.Register(cfg.Mongo.MembersCollection, membersRepo)

	publisher := events.NewPublisher(ledgerSink, notifications, cfg.PubSub.NotificationTopic)
	publisher.Start(cfg.Ledger.EventQueueSize)
	app.resources.Events = publisher
	app.processor = payment.NewProcessor(membersRepo, transactionsRepo, mongoClient, publisher, cfg.Ledger)

	engine := router.SetupRouter(cfg.Server.ServiceName, router.Dependencies{
		Members:        members.NewService(membersRepo, app.cache, transactionsRepo, loansRepo, cfg.Ledger),
		Payments:       app.processor,
		Reports:        report.NewService(app.cache, transactionsRepo, uploader, reportRate(cfg.Ledger)),
		Loans:          loans.NewService(loansRepo, cfg.Ledger),
		Snapshot:       app.cache,
		Idempotency:    redisStore,
		IdempotencyTTL: cfg.Redis.IdempotencyTTL,
	})

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return app, nil
}

// Run starts the member subscription, resolves pending transactions left by
// a previous run, and serves HTTP until ctx is done or the server fails.
func (a *App) Run(ctx context.Context) error {
	if a.cache.Warm(ctx) {
		logger.CtxInfo(ctx, log_messages.SnapshotWarmedFromMirror, zap.Int("members", len(a.cache.Members())))
	}

	unsubscribe, err := a.watcher.Subscribe(ctx, a.cfg.Mongo.MembersCollection, bson.M{}, a.cache.Update)
	if err != nil {
		return fmt.Errorf("subscribe to members: %w", err)
	}
	a.resources.Unsubscribe = unsubscribe

	if a.cfg.Ledger.RecoverOnStartup {
		if _, err := a.processor.Recover(ctx, 0); err != nil {
			logger.CtxError(ctx, log_messages.RecoveryFailed, err)
		}
	}

	a.resources.Server = a.server
	errCh := make(chan error, 1)
	go func() {
		logger.CtxInfo(ctx, log_messages.ServerListening, zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.CtxInfo(ctx, log_messages.ShutdownSignalReceived)
		return nil
	case err, ok := <-errCh:
		if ok {
			logger.CtxError(ctx, log_messages.ServerStartFailure, err)
			return err
		}
		return nil
	}
}

// Shutdown releases everything New and Run opened.
func (a *App) Shutdown(ctx context.Context) {
	cleanup.CleanupResources(ctx, a.resources)
}

func reportRate(cfg config.LedgerConfig) decimal.Decimal {
	if rate, err := decimal.NewFromString(cfg.MonthlyInterestRate); err == nil {
		return rate
	}
	return report.DefaultMonthlyRate
}
