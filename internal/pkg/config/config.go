package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"coop-ledger/internal/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds server-level config
type ServerConfig struct {
	Port        int    `yaml:"port"`
	ServiceName string `yaml:"service_name"`
}

type LogConfig struct {
	LogLevel string `yaml:"level"`
}

// MongoDB connection config
type MongoConfig struct {
	Username               string        `yaml:"username"`
	Password               string        `yaml:"password"`
	URI                    string        `yaml:"uri"`
	DBName                 string        `yaml:"db_name"`
	MaxPoolSize            uint64        `yaml:"max_pool_size"`
	MinPoolSize            uint64        `yaml:"min_pool_size"`
	MaxConnIdleMinutes     int           `yaml:"max_conn_idle_minutes"`
	ConnectTimeoutSeconds  int           `yaml:"connect_timeout_seconds"`
	MaxConnIdleTime        time.Duration `yaml:"-"`
	ConnectTimeout         time.Duration `yaml:"-"`
	UseTransactions        bool          `yaml:"use_transactions"`
	MembersCollection      string        `yaml:"members_collection"`
	TransactionsCollection string        `yaml:"transactions_collection"`
	LoansCollection        string        `yaml:"loans_collection"`
}

// Redis connection config
type RedisConfig struct {
	Enabled               bool          `yaml:"enabled"`
	Addr                  string        `yaml:"addr"`
	Password              string        `yaml:"password"`
	DB                    int           `yaml:"db"`
	EnableTLS             bool          `yaml:"enable_tls"`
	ConnectTimeoutSeconds int           `yaml:"connect_timeout_seconds"`
	CertContent           string        `yaml:"cert_content"`
	IdempotencyTTLMinutes int           `yaml:"idempotency_ttl_minutes"`
	SnapshotTTLMinutes    int           `yaml:"snapshot_ttl_minutes"`
	ConnectTimeout        time.Duration `yaml:"-"`
	IdempotencyTTL        time.Duration `yaml:"-"`
	SnapshotTTL           time.Duration `yaml:"-"`
}

// LedgerConfig holds the cooperative's bookkeeping rules.
type LedgerConfig struct {
	MonthlyInterestRate string `yaml:"monthly_interest_rate"`
	LoanInterestRate    string `yaml:"loan_interest_rate"`
	MinLoanAmount       int    `yaml:"min_loan_amount"`
	DefaultInterestRate string `yaml:"default_interest_rate"`
	MaxBatchSize        int    `yaml:"max_batch_size"`
	MaxRetries          int    `yaml:"max_retries"`
	RecoverOnStartup    bool   `yaml:"recover_on_startup"`
	EventQueueSize      int    `yaml:"event_queue_size"`
}

type SubscriptionConfig struct {
	PollIntervalSeconds   int           `yaml:"poll_interval_seconds"`
	RestartBackoffSeconds int           `yaml:"restart_backoff_seconds"`
	PollInterval          time.Duration `yaml:"-"`
	RestartBackoff        time.Duration `yaml:"-"`
}

type PubSubConfig struct {
	Enabled           bool   `yaml:"enabled"`
	ProjectID         string `yaml:"project_id"`
	NotificationTopic string `yaml:"notification_topic"`
}

// Kafka connection config
type KafkaConfig struct {
	Enabled          bool   `yaml:"enabled"`
	Server           string `yaml:"server"`
	LedgerTopic      string `yaml:"ledger_topic"`
	SecurityProtocol string `yaml:"security_protocol"`
	SASLMechanism    string `yaml:"sasl_mechanism"`
	SASLUsername     string `yaml:"sasl_username"`
	SASLPassword     string `yaml:"sasl_password"`
	SessionTimeoutMs int    `yaml:"session_timeout_ms"`
	ClientID         string `yaml:"client_id"`
}

type GCSConfig struct {
	Enabled    bool   `yaml:"enabled"`
	BucketName string `yaml:"bucket_name"`
	FolderName string `yaml:"folder_name"`
}

type OtelConfig struct {
	Enabled      bool   `yaml:"enabled"`
	CollectorURL string `yaml:"collector_url"`
}

// AppConfig is the main config struct that holds all configs
type AppConfig struct {
	Server       ServerConfig       `yaml:"server"`
	Logging      LogConfig          `yaml:"logging"`
	Mongo        MongoConfig        `yaml:"mongo"`
	Redis        RedisConfig        `yaml:"redis"`
	Ledger       LedgerConfig       `yaml:"ledger"`
	Subscription SubscriptionConfig `yaml:"subscription"`
	PubSub       PubSubConfig       `yaml:"pubsub"`
	Kafka        KafkaConfig        `yaml:"kafka"`
	GCS          GCSConfig          `yaml:"gcs"`
	Otel         OtelConfig         `yaml:"otel"`
}

func intOr(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}

func stringOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

// nolint: funlen
func assignDefaultConfigValues(cfg *AppConfig) *AppConfig {

	// server config defaults
	cfg.Server.Port = GetEnvOrDefaultAsInt("SERVER_PORT", intOr(cfg.Server.Port, 8080))
	cfg.Server.ServiceName = GetEnvOrDefaultAsString("SERVICE_NAME", stringOr(cfg.Server.ServiceName, "coop-ledger"))

	// log config defaults
	cfg.Logging.LogLevel = GetEnvOrDefaultAsString("LOGGING_LEVEL", stringOr(cfg.Logging.LogLevel, "info"))

	// MongoDB config defaults
	cfg.Mongo.URI = GetEnvOrDefaultAsString("MONGO_URI", cfg.Mongo.URI)
	cfg.Mongo.DBName = GetEnvOrDefaultAsString("MONGO_DB_NAME", cfg.Mongo.DBName)
	cfg.Mongo.Username = GetEnvOrDefaultAsString("MONGO_USERNAME", cfg.Mongo.Username)
	cfg.Mongo.Password = GetEnvOrDefaultAsString("MONGO_PASSWORD", cfg.Mongo.Password)
	cfg.Mongo.MaxPoolSize = GetEnvOrDefaultAsUint64("MONGO_MAX_POOL_SIZE", cfg.Mongo.MaxPoolSize)
	cfg.Mongo.MinPoolSize = GetEnvOrDefaultAsUint64("MONGO_MIN_POOL_SIZE", cfg.Mongo.MinPoolSize)
	cfg.Mongo.MaxConnIdleMinutes = GetEnvOrDefaultAsInt("MONGO_MAX_CONN_IDLE_MINUTES", intOr(cfg.Mongo.MaxConnIdleMinutes, 30))
	cfg.Mongo.MaxConnIdleTime = time.Duration(cfg.Mongo.MaxConnIdleMinutes) * time.Minute
	cfg.Mongo.ConnectTimeoutSeconds = GetEnvOrDefaultAsInt("MONGO_CONNECT_TIMEOUT_SECONDS", intOr(cfg.Mongo.ConnectTimeoutSeconds, 10))
	cfg.Mongo.ConnectTimeout = time.Duration(cfg.Mongo.ConnectTimeoutSeconds) * time.Second
	cfg.Mongo.UseTransactions = GetEnvOrDefaultAsBool("MONGO_USE_TRANSACTIONS", cfg.Mongo.UseTransactions)
	cfg.Mongo.MembersCollection = GetEnvOrDefaultAsString("MONGO_MEMBERS_COLLECTION", stringOr(cfg.Mongo.MembersCollection, "members"))
	cfg.Mongo.TransactionsCollection = GetEnvOrDefaultAsString("MONGO_TRANSACTIONS_COLLECTION",
		stringOr(cfg.Mongo.TransactionsCollection, "transactions"))
	cfg.Mongo.LoansCollection = GetEnvOrDefaultAsString("MONGO_LOANS_COLLECTION", stringOr(cfg.Mongo.LoansCollection, "loans"))

	// Redis config defaults
	cfg.Redis.Enabled = GetEnvOrDefaultAsBool("REDIS_ENABLED", cfg.Redis.Enabled)
	cfg.Redis.Addr = GetEnvOrDefaultAsString("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = GetEnvOrDefaultAsString("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = GetEnvOrDefaultAsInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.EnableTLS = GetEnvOrDefaultAsBool("REDIS_ENABLE_TLS", cfg.Redis.EnableTLS)
	cfg.Redis.CertContent = GetEnvOrDefaultAsString("REDIS_TLS_CERT", cfg.Redis.CertContent)
	cfg.Redis.ConnectTimeoutSeconds = GetEnvOrDefaultAsInt("REDIS_CONNECT_TIMEOUT_SECONDS", intOr(cfg.Redis.ConnectTimeoutSeconds, 10))
	cfg.Redis.ConnectTimeout = time.Duration(cfg.Redis.ConnectTimeoutSeconds) * time.Second
	cfg.Redis.IdempotencyTTLMinutes = GetEnvOrDefaultAsInt("REDIS_IDEMPOTENCY_TTL_MINUTES", intOr(cfg.Redis.IdempotencyTTLMinutes, 1440))
	cfg.Redis.IdempotencyTTL = time.Duration(cfg.Redis.IdempotencyTTLMinutes) * time.Minute
	cfg.Redis.SnapshotTTLMinutes = GetEnvOrDefaultAsInt("REDIS_SNAPSHOT_TTL_MINUTES", intOr(cfg.Redis.SnapshotTTLMinutes, 10))
	cfg.Redis.SnapshotTTL = time.Duration(cfg.Redis.SnapshotTTLMinutes) * time.Minute

	// Ledger rules
	cfg.Ledger.MonthlyInterestRate = GetEnvOrDefaultAsString("LEDGER_MONTHLY_INTEREST_RATE",
		stringOr(cfg.Ledger.MonthlyInterestRate, "0.02"))
	cfg.Ledger.LoanInterestRate = GetEnvOrDefaultAsString("LEDGER_LOAN_INTEREST_RATE", stringOr(cfg.Ledger.LoanInterestRate, "0.02"))
	cfg.Ledger.MinLoanAmount = GetEnvOrDefaultAsInt("LEDGER_MIN_LOAN_AMOUNT", intOr(cfg.Ledger.MinLoanAmount, 1000))
	cfg.Ledger.DefaultInterestRate = GetEnvOrDefaultAsString("LEDGER_DEFAULT_INTEREST_RATE",
		stringOr(cfg.Ledger.DefaultInterestRate, "2"))
	cfg.Ledger.MaxBatchSize = GetEnvOrDefaultAsInt("LEDGER_MAX_BATCH_SIZE", intOr(cfg.Ledger.MaxBatchSize, 100))
	cfg.Ledger.MaxRetries = GetEnvOrDefaultAsInt("LEDGER_MAX_RETRIES", intOr(cfg.Ledger.MaxRetries, 3))
	cfg.Ledger.RecoverOnStartup = GetEnvOrDefaultAsBool("LEDGER_RECOVER_ON_STARTUP", cfg.Ledger.RecoverOnStartup)
	cfg.Ledger.EventQueueSize = GetEnvOrDefaultAsInt("LEDGER_EVENT_QUEUE_SIZE", intOr(cfg.Ledger.EventQueueSize, 1024))

	// Subscription defaults
	cfg.Subscription.PollIntervalSeconds = GetEnvOrDefaultAsInt("SUBSCRIPTION_POLL_INTERVAL_SECONDS",
		intOr(cfg.Subscription.PollIntervalSeconds, 5))
	cfg.Subscription.PollInterval = time.Duration(cfg.Subscription.PollIntervalSeconds) * time.Second
	cfg.Subscription.RestartBackoffSeconds = GetEnvOrDefaultAsInt("SUBSCRIPTION_RESTART_BACKOFF_SECONDS",
		intOr(cfg.Subscription.RestartBackoffSeconds, 2))
	cfg.Subscription.RestartBackoff = time.Duration(cfg.Subscription.RestartBackoffSeconds) * time.Second

	// PubSub config defaults
	cfg.PubSub.Enabled = GetEnvOrDefaultAsBool("PUBSUB_ENABLED", cfg.PubSub.Enabled)
	cfg.PubSub.ProjectID = GetEnvOrDefaultAsString("PROJECT_ID", cfg.PubSub.ProjectID)
	cfg.PubSub.NotificationTopic = GetEnvOrDefaultAsString("PUBSUB_NOTIFICATION_TOPIC", cfg.PubSub.NotificationTopic)

	// Kafka config defaults
	cfg.Kafka.Enabled = GetEnvOrDefaultAsBool("KAFKA_ENABLED", cfg.Kafka.Enabled)
	cfg.Kafka.Server = GetEnvOrDefaultAsString("KAFKA_SERVER", cfg.Kafka.Server)
	cfg.Kafka.LedgerTopic = GetEnvOrDefaultAsString("KAFKA_LEDGER_TOPIC", cfg.Kafka.LedgerTopic)
	cfg.Kafka.SecurityProtocol = GetEnvOrDefaultAsString("KAFKA_SECURITY_PROTOCOL", cfg.Kafka.SecurityProtocol)
	cfg.Kafka.SASLMechanism = GetEnvOrDefaultAsString("KAFKA_SASL_MECHANISM", cfg.Kafka.SASLMechanism)
	cfg.Kafka.SASLUsername = GetEnvOrDefaultAsString("KAFKA_SASL_USERNAME", cfg.Kafka.SASLUsername)
	cfg.Kafka.SASLPassword = GetEnvOrDefaultAsString("KAFKA_SASL_PASSWORD", cfg.Kafka.SASLPassword)
	cfg.Kafka.SessionTimeoutMs = GetEnvOrDefaultAsInt("KAFKA_SESSION_TIMEOUT_MS", intOr(cfg.Kafka.SessionTimeoutMs, 15000))
	cfg.Kafka.ClientID = GetEnvOrDefaultAsString("KAFKA_CLIENT_ID", cfg.Kafka.ClientID)

	// GCS config defaults
	cfg.GCS.Enabled = GetEnvOrDefaultAsBool("GCS_ENABLED", cfg.GCS.Enabled)
	cfg.GCS.BucketName = GetEnvOrDefaultAsString("GCS_BUCKET_NAME", cfg.GCS.BucketName)
	cfg.GCS.FolderName = GetEnvOrDefaultAsString("GCS_FOLDER_NAME", stringOr(cfg.GCS.FolderName, "reports"))

	// Otel config defaults
	cfg.Otel.Enabled = GetEnvOrDefaultAsBool("OTEL_ENABLED", cfg.Otel.Enabled)
	cfg.Otel.CollectorURL = GetEnvOrDefaultAsString("OTEL_COLLECTOR_URL", cfg.Otel.CollectorURL)

	return cfg
}

// LoadFromConfigFilePath loads and parses config file into AppConfig
func LoadFromConfigFilePath(configPath string) (*AppConfig, error) {

	// #nosec G304: path comes from operator-controlled CONFIG_PATH
	data, err := os.ReadFile(configPath)
	if err != nil {
		logger.Error("Failed to read config file", err, zap.String("path", configPath))
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		logger.Error("Failed to unmarshal config", err)
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	defaultCfg := assignDefaultConfigValues(&cfg)

	if err := validateConfig(defaultCfg); err != nil {
		logger.Error("Config validation failed", err)
		return nil, err
	}

	logger.Info("Configuration loaded successfully", zap.String("path", configPath))

	return defaultCfg, nil
}

func validateConfig(cfg *AppConfig) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if err := validateMongoConfig(cfg.Mongo); err != nil {
		return err
	}
	if err := validateLedgerConfig(cfg.Ledger); err != nil {
		return err
	}
	if err := validateRedisConfig(cfg.Redis); err != nil {
		return err
	}
	if err := validateKafkaConfig(cfg.Kafka); err != nil {
		return err
	}
	if cfg.PubSub.Enabled && (cfg.PubSub.ProjectID == "" || cfg.PubSub.NotificationTopic == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.notification_topic are required when pubsub is enabled")
	}
	if cfg.GCS.Enabled && cfg.GCS.BucketName == "" {
		return fmt.Errorf("gcs.bucket_name is required when gcs is enabled")
	}
	if cfg.Otel.Enabled && cfg.Otel.CollectorURL == "" {
		return fmt.Errorf("otel.collector_url is required when otel is enabled")
	}
	return nil
}

func validateMongoConfig(mongo MongoConfig) error {
	if mongo.URI == "" {
		return fmt.Errorf("mongo.uri is required")
	}
	if mongo.DBName == "" {
		return fmt.Errorf("mongo.db_name is required")
	}
	if mongo.MaxPoolSize < 1 || mongo.MaxPoolSize > 100 {
		return fmt.Errorf("mongo.max_pool_size must be between 1 and 100, got %d", mongo.MaxPoolSize)
	}
	if mongo.MinPoolSize > mongo.MaxPoolSize {
		return fmt.Errorf(
			"mongo.min_pool_size (%d) must not exceed mongo.max_pool_size (%d)",
			mongo.MinPoolSize,
			mongo.MaxPoolSize,
		)
	}
	if mongo.MaxConnIdleMinutes < 1 || mongo.MaxConnIdleMinutes > 60 {
		return fmt.Errorf("mongo.max_conn_idle_minutes must be between 1 and 60, got %d", mongo.MaxConnIdleMinutes)
	}
	return nil
}

func validateLedgerConfig(ledger LedgerConfig) error {
	for name, value := range map[string]string{
		"ledger.monthly_interest_rate": ledger.MonthlyInterestRate,
		"ledger.loan_interest_rate":    ledger.LoanInterestRate,
	} {
		rate, err := decimal.NewFromString(value)
		if err != nil {
			return fmt.Errorf("%s must be a decimal, got %q: %w", name, value, err)
		}
		if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return fmt.Errorf("%s must be in [0, 1), got %s", name, value)
		}
	}
	if ledger.MaxBatchSize < 1 || ledger.MaxBatchSize > 1000 {
		return fmt.Errorf("ledger.max_batch_size must be between 1 and 1000, got %d", ledger.MaxBatchSize)
	}
	if ledger.MaxRetries < 0 || ledger.MaxRetries > 10 {
		return fmt.Errorf("ledger.max_retries must be between 0 and 10, got %d", ledger.MaxRetries)
	}
	if ledger.MinLoanAmount < 0 {
		return fmt.Errorf("ledger.min_loan_amount must not be negative, got %d", ledger.MinLoanAmount)
	}
	return nil
}

func validateRedisConfig(redis RedisConfig) error {
	if !redis.Enabled {
		return nil
	}
	if redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	if redis.IdempotencyTTLMinutes < 1 {
		return fmt.Errorf("redis.idempotency_ttl_minutes must be positive, got %d", redis.IdempotencyTTLMinutes)
	}
	return nil
}

func validateKafkaConfig(kafka KafkaConfig) error {
	if !kafka.Enabled {
		return nil
	}
	if kafka.Server == "" || kafka.LedgerTopic == "" {
		return fmt.Errorf("kafka.server and kafka.ledger_topic are required when kafka is enabled")
	}
	if kafka.SessionTimeoutMs < 10000 || kafka.SessionTimeoutMs > 15000 {
		return fmt.Errorf(
			"kafka.session_timeout_ms must be between 10000 and 15000 ms, got %d",
			kafka.SessionTimeoutMs,
		)
	}
	return nil
}

// GetEnvOrDefaultAsInt returns the value of the given env variable
// as an int or the default value if not set or invalid.
func GetEnvOrDefaultAsInt(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return int(value)
}

// GetEnvOrDefaultAsString returns the value of the given env variable or the default value if not set.
func GetEnvOrDefaultAsString(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		if val != "" {
			return val
		}
	}
	return defaultVal
}

func GetEnvOrDefaultAsUint64(key string, defaultValue uint64) uint64 {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func GetEnvOrDefaultAsBool(key string, defaultValue bool) bool {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// LoadEnv loads variables from a .env file when one is present.
func LoadEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

// LoadFromConfig loads the .env file, then the config file named by CONFIG_PATH.
func LoadFromConfig() (*AppConfig, error) {
	if err := LoadEnv(); err != nil {
		logger.Warn("Failed to load .env file", zap.Error(err))
	}

	configPath := GetEnvOrDefaultAsString("CONFIG_PATH", "configs/config.yaml")

	cfg, err := LoadFromConfigFilePath(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}

	return cfg, nil
}
