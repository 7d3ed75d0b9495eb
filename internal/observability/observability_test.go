package observability

import (
	"context"
	"testing"

	"mathapp/internal/config"
	contextutils "mathapp/internal/utils"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestSetupObservability_AllEnabled(t *testing.T) {
	cfg := &config.OpenTelemetryConfig{
		EnableTracing: true,
		EnableMetrics: true,
		EnableLogging: true,
		ServiceName:   "test-service",
		Protocol:      "grpc",
		Endpoint:      "localhost:4317",
		Insecure:      true,
		SamplingRate:  1.0,
	}
	tp, mp, logger, err := SetupObservability(cfg, "test-service")
	require.NoError(t, err)
	require.NotNil(t, tp)
	require.NotNil(t, mp)
	require.NotNil(t, logger)
}

func TestSetupObservability_NoneEnabled(t *testing.T) {
	cfg := &config.OpenTelemetryConfig{
		EnableTracing: false,
		EnableMetrics: false,
		EnableLogging: false,
		ServiceName:   "test-service",
		Protocol:      "grpc",
		Endpoint:      "localhost:4317",
		Insecure:      true,
	}
	tp, mp, logger, err := SetupObservability(cfg, "test-service")
	require.NoError(t, err)
	require.Nil(t, tp)
	require.Nil(t, mp)
	require.NotNil(t, logger) // Logger is always returned (no-op when disabled)
}

func TestSetupObservability_UseAutoSDK(t *testing.T) {
	cfg := &config.OpenTelemetryConfig{
		EnableTracing:  true,
		UseAutoSDK:     true,
		ServiceName:    "test-service",
		ServiceVersion: "1.0.0",
		Protocol:       "grpc",
		Endpoint:       "localhost:4317",
		Insecure:       true,
	}
	tp, _, logger, err := SetupObservability(cfg, "test-service")
	require.NoError(t, err)
	require.NotNil(t, tp)
	require.NotNil(t, logger)

	// The Auto SDK provider is not the standard SDK provider
	_, isStandardSDK := tp.(*sdktrace.TracerProvider)
	require.False(t, isStandardSDK, "Expected Auto SDK TracerProvider, got standard SDK")
}

func TestSetupObservability_StandardSDK(t *testing.T) {
	cfg := &config.OpenTelemetryConfig{
		EnableTracing:  true,
		UseAutoSDK:     false,
		ServiceName:    "test-service",
		ServiceVersion: "1.0.0",
		Protocol:       "grpc",
		Endpoint:       "localhost:4317",
		Insecure:       true,
		SamplingRate:   1.0,
	}
	tp, _, logger, err := SetupObservability(cfg, "test-service")
	require.NoError(t, err)
	require.NotNil(t, tp)
	require.NotNil(t, logger)

	_, isStandardSDK := tp.(*sdktrace.TracerProvider)
	require.True(t, isStandardSDK, "Expected standard SDK TracerProvider")
}

func TestShutdownTracerProvider(t *testing.T) {
	ctx := context.Background()

	// Nil and API-only providers have nothing to shut down
	require.NoError(t, ShutdownTracerProvider(ctx, nil))
	require.NoError(t, ShutdownTracerProvider(ctx, noop.NewTracerProvider()))

	// The SDK provider does, and must be flushed on exit
	sdk := sdktrace.NewTracerProvider()
	require.NoError(t, ShutdownTracerProvider(ctx, sdk))

	// A second shutdown on an already-stopped provider stays nil per the SDK contract
	require.NoError(t, ShutdownTracerProvider(ctx, sdk))
}

func TestLogger_TraceCorrelation(_ *testing.T) {
	cfg := &config.OpenTelemetryConfig{EnableLogging: true}
	logger := NewLogger(cfg)
	ctx := context.Background()
	logger.Info(ctx, "test message")
	logger.Error(ctx, "test error", nil)
	ctx, span := noop.NewTracerProvider().Tracer("test").Start(ctx, "test-span")
	logger.Info(ctx, "test message with span")
	span.End()
}

func TestFinishSpanRecordsAppErrorCode(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)).Tracer("test")

	// Success path: span ends clean
	_, span := tracer.Start(context.Background(), "ok")
	var noErr error
	FinishSpan(span, &noErr)

	// Expected domain outcome: error code attribute, no stack trace
	_, span = tracer.Start(context.Background(), "not-found")
	err := error(contextutils.ErrExerciseNotFound)
	FinishSpan(span, &err)

	// Unexpected failure: stack trace recorded
	_, span = tracer.Start(context.Background(), "boom")
	err = contextutils.WrapError(contextutils.ErrInternalError, "db gone")
	FinishSpan(span, &err)

	spans := recorder.Ended()
	require.Len(t, spans, 3)

	require.Empty(t, spans[0].Events())

	notFound := spans[1]
	require.Contains(t, notFound.Attributes(),
		attribute.String("error.code", string(contextutils.ErrorCodeExerciseNotFound)))
	require.Len(t, notFound.Events(), 1)
	for _, attr := range notFound.Events()[0].Attributes {
		require.NotEqual(t, "exception.stacktrace", string(attr.Key))
	}

	boom := spans[2]
	require.Len(t, boom.Events(), 1)
	var hasStack bool
	for _, attr := range boom.Events()[0].Attributes {
		if string(attr.Key) == "exception.stacktrace" {
			hasStack = true
		}
	}
	require.True(t, hasStack)
}

func TestTraceFunctionNaming(t *testing.T) {
	InitGlobalTracer()
	ctx, span := TraceProgressFunction(context.Background(), "ApplyOutcome", AttributeUserID(1), AttributeExerciseID("fractions"), AttributeLevel(2))
	require.NotNil(t, ctx)
	require.NotNil(t, span)
	span.End()
}
