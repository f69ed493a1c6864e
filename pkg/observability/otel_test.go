package observability

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInitOTel_Disabled(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(InfoLevel, buf)

	providers, err := InitOTel(context.Background(), OTelConfig{Enabled: false}, logger)

	require.NoError(t, err)
	assert.Nil(t, providers)
	assert.Contains(t, buf.String(), "opentelemetry disabled")
}

// OTLP exporters connect lazily, so provider construction succeeds even
// when no collector is listening.
func TestInitOTel_NoCollector(t *testing.T) {
	logger := NewLogger(InfoLevel, &bytes.Buffer{})

	cfg := OTelConfig{
		Enabled:        true,
		Endpoint:       "localhost:4317",
		ServiceName:    "planora-test",
		ServiceVersion: "0.0.0",
		Insecure:       true,
	}

	providers, err := InitOTel(context.Background(), cfg, logger)
	require.NoError(t, err)
	require.NotNil(t, providers)
	assert.NotNil(t, providers.TracerProvider)
	assert.NotNil(t, providers.MeterProvider)

	// Export failures are expected without a collector.
	_ = ShutdownOTel(context.Background(), providers, logger)
}

func TestShutdownOTel_NilProviders(t *testing.T) {
	logger := NewLogger(InfoLevel, &bytes.Buffer{})

	assert.NoError(t, ShutdownOTel(context.Background(), nil, logger))
	assert.NoError(t, ShutdownOTel(context.Background(), &OTelProviders{}, logger))
}

func TestShutdownOTel_TracerOnly(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(InfoLevel, buf)

	providers := &OTelProviders{TracerProvider: sdktrace.NewTracerProvider()}

	require.NoError(t, ShutdownOTel(context.Background(), providers, logger))
	assert.Contains(t, buf.String(), "opentelemetry shutdown complete")
}

func TestLoggerWithTraceContext_NoSpan(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(InfoLevel, buf)

	tagged := LoggerWithTraceContext(context.Background(), logger)
	tagged.Info("no span")

	assert.NotContains(t, buf.String(), "trace_id")
}

func TestLoggerWithTraceContext_RecordingSpan(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	tracer := tp.Tracer("planora-test")

	ctx, span := tracer.Start(context.Background(), "operation")
	defer span.End()

	buf := &bytes.Buffer{}
	logger := NewLogger(InfoLevel, buf)

	LoggerWithTraceContext(ctx, logger).Info("in span")

	out := buf.String()
	assert.Contains(t, out, "trace_id")
	assert.Contains(t, out, "span_id")
	assert.Contains(t, out, span.SpanContext().TraceID().String())
}

func TestLoggerWithTraceContext_NonRecordingSpan(t *testing.T) {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.NeverSample()))
	tracer := tp.Tracer("planora-test")

	ctx, span := tracer.Start(context.Background(), "operation")
	defer span.End()

	buf := &bytes.Buffer{}
	logger := NewLogger(InfoLevel, buf)

	LoggerWithTraceContext(ctx, logger).Info("unsampled")

	assert.NotContains(t, buf.String(), "trace_id")
}

func TestLoggerWithTraceContext_NestedSpans(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	tracer := tp.Tracer("planora-test")

	ctx, outer := tracer.Start(context.Background(), "outer")
	defer outer.End()
	ctx, inner := tracer.Start(ctx, "inner")
	defer inner.End()

	assert.Equal(t, outer.SpanContext().TraceID(), inner.SpanContext().TraceID())
	assert.NotEqual(t, outer.SpanContext().SpanID(), inner.SpanContext().SpanID())

	buf := &bytes.Buffer{}
	LoggerWithTraceContext(ctx, NewLogger(InfoLevel, buf)).Info("nested")
	assert.Contains(t, buf.String(), inner.SpanContext().SpanID().String())
}
