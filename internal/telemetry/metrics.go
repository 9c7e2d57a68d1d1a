package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/dynentry"
)

// Metrics holds the OpenTelemetry instruments for entry generation
type Metrics struct {
	// Integration metrics
	EntryChangesTotal metric.Int64Counter
	EntrySkipsTotal   metric.Int64Counter

	// Generation metrics
	GenerationsTotal      metric.Int64Counter
	GenerationErrorsTotal metric.Int64Counter
	GenerationDuration    metric.Float64Histogram
	GeneratedBytes        metric.Int64Histogram
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments. Instruments come
// from the global meter provider, which is a no-op until InitTelemetry runs.
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.EntryChangesTotal, _ = meter.Int64Counter(
		"dynentry.entry.changes.total",
		metric.WithDescription("Total number of entry configuration changes applied"),
		metric.WithUnit("{change}"),
	)

	m.EntrySkipsTotal, _ = meter.Int64Counter(
		"dynentry.entry.skips.total",
		metric.WithDescription("Total number of unchanged entry configurations skipped"),
		metric.WithUnit("{change}"),
	)

	m.GenerationsTotal, _ = meter.Int64Counter(
		"dynentry.generate.total",
		metric.WithDescription("Total number of generated entry modules"),
		metric.WithUnit("{module}"),
	)

	m.GenerationErrorsTotal, _ = meter.Int64Counter(
		"dynentry.generate.errors.total",
		metric.WithDescription("Total number of failed entry module generations"),
		metric.WithUnit("{error}"),
	)

	m.GenerationDuration, _ = meter.Float64Histogram(
		"dynentry.generate.duration",
		metric.WithDescription("Duration of entry module generation"),
		metric.WithUnit("ms"),
	)

	m.GeneratedBytes, _ = meter.Int64Histogram(
		"dynentry.generate.bytes",
		metric.WithDescription("Size of generated entry modules"),
		metric.WithUnit("By"),
	)

	return m
}
