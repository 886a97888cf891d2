package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpf-dev/trust-registry/internal/config"
)

func TestNewProviderDisabled(t *testing.T) {
	t.Parallel()

	p, err := NewProvider(context.Background(), config.TelemetryConfig{})
	require.NoError(t, err)

	tracer := p.Tracer("test")
	_, span := tracer.Start(context.Background(), "op")
	defer span.End()

	assert.False(t, span.SpanContext().IsValid(), "disabled tracing should produce no-op spans")
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProviderEnabled(t *testing.T) {
	t.Parallel()

	// The OTLP HTTP exporter connects lazily, so construction succeeds even
	// without a collector listening.
	p, err := NewProvider(context.Background(), config.TelemetryConfig{
		TracingEnabled: true,
		OTLPEndpoint:   "localhost:4318",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	tracer := p.Tracer("test")
	_, span := tracer.Start(context.Background(), "op")
	span.End()

	assert.True(t, span.SpanContext().IsValid())
}
