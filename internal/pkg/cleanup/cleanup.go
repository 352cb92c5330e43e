package cleanup

import (
	"context"
	"net/http"
	"time"

	mongodb "coop-ledger/internal/pkg/db/mongo"
	redisdb "coop-ledger/internal/pkg/db/redis"
	"coop-ledger/internal/pkg/log_messages"
	"coop-ledger/internal/pkg/logger"
)

const serverShutdownTimeout = 8 * time.Second

// Resources lists everything the runtime opened. Nil entries are skipped.
type Resources struct {
	Server       *http.Server
	Unsubscribe  func()
	Events       interface{ Close(context.Context) }
	Kafka        interface{ Close() error }
	PubSub       interface{ Close() error }
	GCS          interface{ Close(context.Context) }
	OtelShutdown func(context.Context) error
	Mongo        *mongodb.MongoClient
	Redis        *redisdb.RedisClient
}

// CleanupResources stops intake first (HTTP, snapshot subscription), then
// flushes publishers and closes the stores.
func CleanupResources(ctx context.Context, r Resources) {
	logger.CtxInfo(ctx, log_messages.CleanupStarted)

	if r.Server != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, serverShutdownTimeout)
		if err := r.Server.Shutdown(shutdownCtx); err != nil {
			logger.CtxError(ctx, "Failed to shutdown HTTP server", err)
		} else {
			logger.CtxInfo(ctx, "HTTP server shutdown successfully")
		}
		cancel()
	}
	if r.Unsubscribe != nil {
		r.Unsubscribe()
	}
	if r.Events != nil {
		r.Events.Close(ctx)
	}
	if r.Kafka != nil {
		if err := r.Kafka.Close(); err != nil {
			logger.CtxError(ctx, "Failed to close Kafka producer", err)
		}
	}
	if r.PubSub != nil {
		if err := r.PubSub.Close(); err != nil {
			logger.CtxError(ctx, "Failed to close PubSub publisher", err)
		}
	}
	if r.GCS != nil {
		r.GCS.Close(ctx)
	}
	if r.OtelShutdown != nil {
		if err := r.OtelShutdown(ctx); err != nil {
			logger.CtxError(ctx, "Failed to shutdown tracer provider", err)
		}
	}
	if r.Redis != nil && r.Redis.Client != nil {
		if err := redisdb.Disconnect(r.Redis.Client); err != nil {
			logger.CtxError(ctx, "Failed to disconnect from Redis", err)
		}
	}
	if r.Mongo != nil && r.Mongo.Client != nil {
		if err := mongodb.Disconnect(r.Mongo.Client); err != nil {
			logger.CtxError(ctx, "Failed to disconnect from MongoDB", err)
		}
	}

	logger.CtxInfo(ctx, log_messages.CleanupCompleted)
}
