package otel

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestStartSpanNilTracer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	newCtx, span := StartSpan(ctx, nil, "test.operation")

	assert.Equal(t, ctx, newCtx)
	assert.False(t, span.SpanContext().IsValid(), "nil tracer should yield a no-op span")
}

func TestStartSpanWithTracer(t *testing.T) {
	t.Parallel()

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, span := StartSpan(context.Background(), tp.Tracer("test"), "test.operation")
	defer span.End()

	assert.True(t, span.SpanContext().IsValid())
}

func TestRecordErrorNilSafe(t *testing.T) {
	t.Parallel()

	// Must not panic on nil span or nil error.
	RecordError(nil, errors.New("boom"))
	RecordError(trace.SpanFromContext(context.Background()), nil)
	RecordError(nil, nil)
}
