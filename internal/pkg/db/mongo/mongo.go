package mongo

import (
	"context"
	"net/url"
	"strings"
	"time"

	"coop-ledger/internal/pkg/config"
	"coop-ledger/internal/pkg/logger"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type MongoClient struct {
	Client          *mongo.Client
	Database        *mongo.Database
	UseTransactions bool
}

func ConnectToMongoDB(ctx context.Context, cfg config.MongoConfig) (*MongoClient, error) {
	return connectWithConnector(ctx, cfg, &DefaultMongoConnector{})
}

func connectWithConnector(ctx context.Context, cfg config.MongoConfig, connector MongoConnector) (*MongoClient, error) {
	mongoURI := buildMongoURI(cfg)

	// Redact username and password for safe logging
	safeURI := redactMongoURI(mongoURI)

	logger.CtxInfo(ctx, "Connecting to MongoDB",
		zap.String("uri", safeURI),
		zap.String("database", cfg.DBName),
	)

	connectTimeout := cfg.ConnectTimeout
	clientOpts := options.Client().
		ApplyURI(mongoURI).
		SetConnectTimeout(connectTimeout).
		SetServerSelectionTimeout(connectTimeout * 2).
		SetSocketTimeout(connectTimeout * 3).
		SetHeartbeatInterval(10 * time.Second).
		SetMaxConnIdleTime(cfg.MaxConnIdleTime).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize)

	client, err := connector.Connect(ctx, clientOpts)
	if err != nil {
		logger.CtxError(ctx, "Failed to connect to MongoDB", err,
			zap.String("uri", safeURI),
			zap.String("database", cfg.DBName),
		)
		return nil, err
	}

	if err := connector.Ping(ctx, client); err != nil {
		logger.CtxError(ctx, "MongoDB ping failed", err,
			zap.String("uri", safeURI),
			zap.String("database", cfg.DBName),
		)
		return nil, err
	}

	useTransactions := cfg.UseTransactions
	if useTransactions {
		supported, err := connector.SupportsTransactions(ctx, client)
		if err != nil || !supported {
			logger.CtxWarn(ctx, "MongoDB deployment does not support transactions, ledger writes run without them",
				zap.String("database", cfg.DBName),
				zap.Error(err),
			)
			useTransactions = false
		}
	}

	logger.CtxInfo(ctx, "Successfully connected to MongoDB",
		zap.String("uri", safeURI),
		zap.String("database", cfg.DBName),
		zap.Bool("use_transactions", useTransactions),
	)

	return &MongoClient{
		Client:          client,
		Database:        client.Database(cfg.DBName),
		UseTransactions: useTransactions,
	}, nil
}

func Disconnect(client *mongo.Client) error {
	return client.Disconnect(context.Background())
}

// buildMongoURI injects escaped credentials into the configured URI when a username is set.
func buildMongoURI(cfg config.MongoConfig) string {
	if cfg.Username == "" {
		return cfg.URI
	}
	scheme := "mongodb://"
	if strings.HasPrefix(cfg.URI, "mongodb+srv://") {
		scheme = "mongodb+srv://"
	}
	host := strings.TrimPrefix(strings.TrimPrefix(cfg.URI, "mongodb+srv://"), "mongodb://")
	if at := strings.LastIndex(host, "@"); at >= 0 {
		host = host[at+1:]
	}
	return scheme + url.QueryEscape(cfg.Username) + ":" + url.QueryEscape(cfg.Password) + "@" + host
}

// redactMongoURI hides username and password from a MongoDB URI
func redactMongoURI(uri string) string {
	schemeEnd := strings.Index(uri, "://")
	at := strings.LastIndex(uri, "@")
	if schemeEnd < 0 || at < schemeEnd {
		return uri
	}
	return uri[:schemeEnd+3] + "***:***@" + uri[at+1:]
}
