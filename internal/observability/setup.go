package observability

import (
	"context"
	"os"

	"mathapp/internal/config"

	autosdk "go.opentelemetry.io/auto/sdk"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
)

// SetupObservability initializes tracing, metrics, and logging for a service
func SetupObservability(cfg *config.OpenTelemetryConfig, serviceName string) (result0 trace.TracerProvider, result1 *metric.MeterProvider, result2 *Logger, err error) {
	if serviceName != "" {
		cfg.ServiceName = serviceName
	}

	var tp trace.TracerProvider
	var mp *metric.MeterProvider

	if err := os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName); err != nil {
		return nil, nil, nil, err
	}
	if err := os.Setenv("OTEL_SERVICE_VERSION", cfg.ServiceVersion); err != nil {
		return nil, nil, nil, err
	}

	// Logger is always returned, no-op when logging is disabled
	logger := NewLogger(cfg)

	if cfg.EnableTracing {
		if cfg.UseAutoSDK {
			// Auto SDK cooperates with eBPF-based instrumentation
			tp = autosdk.TracerProvider()
			otel.SetTracerProvider(tp)

			logger.Info(context.Background(), "Tracing enabled with Auto SDK", map[string]interface{}{"service_name": cfg.ServiceName})
		} else {
			tp, err = InitStandardTracing(cfg)
			if err != nil {
				panic(err)
			}
			otel.SetTracerProvider(tp)

			logger.Info(context.Background(), "Tracing enabled with standard SDK", map[string]interface{}{"service_name": cfg.ServiceName})
		}

		if err := InitTracing(cfg); err != nil {
			panic(err)
		}

		InitGlobalTracer()
	}

	if cfg.EnableMetrics {
		mp, err = InitMetrics(cfg)
		if err != nil {
			panic(err)
		}
	}

	return tp, mp, logger, nil
}

// ShutdownTracerProvider flushes and stops a tracer provider. The otel API
// interface has no Shutdown method and the Auto SDK provider is managed
// externally, so the call only happens when the concrete provider supports it.
func ShutdownTracerProvider(ctx context.Context, tp trace.TracerProvider) error {
	if tp == nil {
		return nil
	}
	shutdowner, ok := tp.(interface{ Shutdown(context.Context) error })
	if !ok {
		return nil
	}
	return shutdowner.Shutdown(ctx)
}
