package otel

import (
	"context"
	"testing"
	"time"

	"coop-ledger/internal/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_DisabledReturnsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), "coop-ledger", config.OtelConfig{Enabled: false})

	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetup_EnabledInstallsTracer(t *testing.T) {
	shutdown, err := Setup(context.Background(), "coop-ledger", config.OtelConfig{
		Enabled:      true,
		CollectorURL: "localhost:4318",
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		mu.Lock()
		tracer = nil
		mu.Unlock()
	})

	_, span := GetTracer().Start(context.Background(), "test-span")
	span.End()
	assert.True(t, span.SpanContext().IsValid())

	// No collector is listening, so only a prompt return is checked.
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_ = shutdown(ctx)
}

func TestGetTracer_DefaultsToNoop(t *testing.T) {
	mu.Lock()
	prev := tracer
	tracer = nil
	mu.Unlock()
	t.Cleanup(func() {
		mu.Lock()
		tracer = prev
		mu.Unlock()
	})

	_, span := GetTracer().Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
}
