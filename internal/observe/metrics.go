// Package observe provides the observability primitives for longscribe:
// OpenTelemetry metric instruments for every pipeline stage and a Prometheus
// exporter bridge for scraping them.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A package-level
// default [Metrics] instance ([DefaultMetrics]) is provided for convenience;
// tests should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all longscribe
// metrics.
const meterName = "github.com/longscribe/longscribe"

// Metrics holds all OpenTelemetry metric instruments for the pipeline.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// VADDuration tracks speech-region detection latency.
	VADDuration metric.Float64Histogram

	// TranscribeDuration tracks single-chunk recognition latency, including
	// fallback attempts.
	TranscribeDuration metric.Float64Histogram

	// MergeDuration tracks overlap merge latency.
	MergeDuration metric.Float64Histogram

	// FilterDuration tracks hallucination-filter pipeline latency.
	FilterDuration metric.Float64Histogram

	// --- Counters ---

	// ChunkAttempts counts individual recognition attempts. Use with
	// attributes:
	//   attribute.String("model", ...), attribute.String("status", ...)
	ChunkAttempts metric.Int64Counter

	// ChunkFailures counts chunks whose whole fallback chain was exhausted.
	ChunkFailures metric.Int64Counter

	// FilterDrops counts segments dropped by the filter pipeline. Use with
	// attributes:
	//   attribute.String("filter", ...)
	FilterDrops metric.Int64Counter

	// --- Gauges ---

	// InFlightChunks tracks the number of chunks currently being
	// transcribed.
	InFlightChunks metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// batch recognition latencies, which run far longer than request-response
// workloads.
var latencyBuckets = []float64{
	0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.VADDuration, err = m.Float64Histogram("longscribe.vad.duration",
		metric.WithDescription("Latency of speech-region detection."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranscribeDuration, err = m.Float64Histogram("longscribe.transcribe.duration",
		metric.WithDescription("Latency of single-chunk recognition, including fallbacks."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.MergeDuration, err = m.Float64Histogram("longscribe.merge.duration",
		metric.WithDescription("Latency of the overlap merge."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.FilterDuration, err = m.Float64Histogram("longscribe.filter.duration",
		metric.WithDescription("Latency of the hallucination filter pipeline."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ChunkAttempts, err = m.Int64Counter("longscribe.chunk.attempts",
		metric.WithDescription("Total recognition attempts by model and status."),
	); err != nil {
		return nil, err
	}
	if met.ChunkFailures, err = m.Int64Counter("longscribe.chunk.failures",
		metric.WithDescription("Total chunks whose fallback chain was exhausted."),
	); err != nil {
		return nil, err
	}
	if met.FilterDrops, err = m.Int64Counter("longscribe.filter.drops",
		metric.WithDescription("Total segments dropped by hallucination filter."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.InFlightChunks, err = m.Int64UpDownCounter("longscribe.chunks.in_flight",
		metric.WithDescription("Number of chunks currently being transcribed."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordChunkAttempt records one recognition attempt against a model with
// the standard attribute set.
func (m *Metrics) RecordChunkAttempt(ctx context.Context, model, status string) {
	m.ChunkAttempts.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("model", model),
			attribute.String("status", status),
		),
	)
}

// RecordFilterDrop records one dropped segment for a filter.
func (m *Metrics) RecordFilterDrop(ctx context.Context, filter string) {
	m.FilterDrops.Add(ctx, 1,
		metric.WithAttributes(attribute.String("filter", filter)),
	)
}
