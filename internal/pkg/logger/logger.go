package logger

import (
	"context"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Define context key for request ID
type contextKey string

const traceIDKey contextKey = "trace_id"

const defaultServiceName = "coop-ledger"

var (
	mu          sync.RWMutex
	log         = build(zapcore.InfoLevel)
	serviceName = defaultServiceName
)

// GetTraceID retrieves trace_id from context, returns empty string if missing
func GetTraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v := ctx.Value(traceIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithTraceID returns a new context with the given trace ID
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// Init replaces the global logger with a JSON production logger at the given level.
func Init(level string) {
	SetLogger(build(parseLevel(level)))
}

// SetServiceName sets the service_name field attached to context-aware entries.
func SetServiceName(name string) {
	mu.Lock()
	defer mu.Unlock()
	if name == "" {
		name = defaultServiceName
	}
	serviceName = name
}

// SetLogger swaps the underlying zap logger. Tests use it with an observer core.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	log = l
}

func current() (*zap.Logger, string) {
	mu.RLock()
	defer mu.RUnlock()
	return log, serviceName
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zap.DebugLevel
	case "info":
		return zap.InfoLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

func build(level zapcore.Level) *zap.Logger {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(level)
	config.Encoding = "json"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.LevelKey = "log_level"
	config.EncoderConfig.MessageKey = "message"
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.StacktraceKey = ""
	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	config.OutputPaths = []string{"stdout"}

	l, err := config.Build(zap.AddCallerSkip(1))
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func contextFields(ctx context.Context, fields []zap.Field) []zap.Field {
	_, name := current()
	if traceID := GetTraceID(ctx); traceID != "" {
		fields = append(fields, zap.String("trace_id", traceID))
	} else if ctx != nil {
		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
		}
	}
	return append(fields, zap.String("service_name", name))
}

// CONTEXT-AWARE LOGGING //

// CtxInfo logs an info message with the trace ID from ctx
func CtxInfo(ctx context.Context, msg string, fields ...zap.Field) {
	l, _ := current()
	l.Info(msg, contextFields(ctx, fields)...)
}

func CtxError(ctx context.Context, msg string, err error, fields ...zap.Field) {
	l, _ := current()
	fields = append(fields, zap.Error(err))
	l.Error(msg, contextFields(ctx, fields)...)
}

// CtxDebug logs debug messages
func CtxDebug(ctx context.Context, msg string, fields ...zap.Field) {
	l, _ := current()
	l.Debug(msg, contextFields(ctx, fields)...)
}

// CtxWarn logs warnings
func CtxWarn(ctx context.Context, msg string, fields ...zap.Field) {
	l, _ := current()
	l.Warn(msg, contextFields(ctx, fields)...)
}

// NON-CONTEXT LOGGING //

func Info(msg string, fields ...zap.Field) {
	l, _ := current()
	l.Info(msg, fields...)
}

func Debug(msg string, fields ...zap.Field) {
	l, _ := current()
	l.Debug(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	l, _ := current()
	l.Warn(msg, fields...)
}

func Error(msg string, err error, fields ...zap.Field) {
	l, _ := current()
	fields = append(fields, zap.Error(err))
	l.Error(msg, fields...)
}
