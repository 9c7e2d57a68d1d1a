package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/wolfeidau/dynentry"

// ShutdownFunc flushes and stops the exporters.
type ShutdownFunc func(context.Context) error

// Config controls which OTLP exporters are started.
type Config struct {
	ServiceName    string
	Version        string
	Traces         bool
	Metrics        bool
	MetricInterval time.Duration
}

// Tracer returns the tracer used for generation spans.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// InitTelemetry starts OTLP gRPC exporters for traces and metrics. Endpoints
// and headers come from the standard OTEL_EXPORTER_OTLP_* environment
// variables. A failing exporter is logged and skipped, the build carries on
// without it.
func InitTelemetry(ctx context.Context, cfg Config) (ShutdownFunc, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.Version),
		),
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithHost(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var shutdowns []ShutdownFunc

	if cfg.Traces {
		exporter, err := otlptracegrpc.New(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to create trace exporter, continuing without tracing")
		} else {
			tp := sdktrace.NewTracerProvider(
				sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
				sdktrace.WithResource(res),
			)
			otel.SetTracerProvider(tp)
			otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
				propagation.TraceContext{},
				propagation.Baggage{},
			))
			shutdowns = append(shutdowns, tp.Shutdown)
		}
	}

	if cfg.Metrics {
		interval := cfg.MetricInterval
		if interval <= 0 {
			interval = 10 * time.Second
		}
		exporter, err := otlpmetricgrpc.New(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to create metric exporter, continuing without metrics")
		} else {
			mp := sdkmetric.NewMeterProvider(
				sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
				sdkmetric.WithResource(res),
			)
			otel.SetMeterProvider(mp)
			shutdowns = append(shutdowns, mp.Shutdown)
		}
	}

	log.Info().
		Str("service", cfg.ServiceName).
		Bool("traces", cfg.Traces).
		Bool("metrics", cfg.Metrics).
		Msg("OpenTelemetry initialized")

	return func(ctx context.Context) error {
		var errs []error
		for _, shutdown := range shutdowns {
			if err := shutdown(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}, nil
}
