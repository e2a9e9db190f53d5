// Package observe provides application-wide observability primitives for
// Sondera: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Sondera metrics.
const meterName = "github.com/sondera-ai/sondera"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// EnrichmentDuration tracks end-to-end enrichment latency, from request
	// receipt to final scored result.
	EnrichmentDuration metric.Float64Histogram

	// ExtractionDuration tracks per-modality feature extraction latency. Use
	// with attribute:
	//   attribute.String("modality", "audio"|"visual")
	ExtractionDuration metric.Float64Histogram

	// DecodeDuration tracks audio container decode latency.
	DecodeDuration metric.Float64Histogram

	// --- Counters ---

	// Enrichments counts completed enrichment requests. Use with attributes:
	//   attribute.String("mode", ...), attribute.String("status", ...)
	Enrichments metric.Int64Counter

	// ModalityFailures counts degraded modalities. Use with attributes:
	//   attribute.String("modality", ...), attribute.String("code", ...)
	ModalityFailures metric.Int64Counter

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveEnrichments tracks the number of enrichment requests currently
	// in flight.
	ActiveEnrichments metric.Int64UpDownCounter

	// ActiveStreams tracks the number of open streaming ingest sessions.
	ActiveStreams metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for media-pipeline latencies.
var latencyBuckets = []float64{
	0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.EnrichmentDuration, err = m.Float64Histogram("sondera.enrichment.duration",
		metric.WithDescription("End-to-end enrichment latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ExtractionDuration, err = m.Float64Histogram("sondera.extraction.duration",
		metric.WithDescription("Feature extraction latency by modality."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.DecodeDuration, err = m.Float64Histogram("sondera.decode.duration",
		metric.WithDescription("Audio container decode latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Enrichments, err = m.Int64Counter("sondera.enrichments",
		metric.WithDescription("Total enrichment requests by scoring mode and status."),
	); err != nil {
		return nil, err
	}
	if met.ModalityFailures, err = m.Int64Counter("sondera.modality.failures",
		metric.WithDescription("Total degraded modalities by modality and failure code."),
	); err != nil {
		return nil, err
	}
	if met.ProviderRequests, err = m.Int64Counter("sondera.provider.requests",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ProviderErrors, err = m.Int64Counter("sondera.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveEnrichments, err = m.Int64UpDownCounter("sondera.active_enrichments",
		metric.WithDescription("Number of enrichment requests currently in flight."),
	); err != nil {
		return nil, err
	}
	if met.ActiveStreams, err = m.Int64UpDownCounter("sondera.active_streams",
		metric.WithDescription("Number of open streaming ingest sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("sondera.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
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

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordEnrichment is a convenience method that records an enrichment counter
// increment with the standard attribute set.
func (m *Metrics) RecordEnrichment(ctx context.Context, mode, status string) {
	m.Enrichments.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("mode", mode),
			attribute.String("status", status),
		),
	)
}

// RecordModalityFailure is a convenience method that records a degraded
// modality with its failure code.
func (m *Metrics) RecordModalityFailure(ctx context.Context, modality, code string) {
	m.ModalityFailures.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("modality", modality),
			attribute.String("code", code),
		),
	)
}

// RecordProviderRequest is a convenience method that records a provider
// request counter increment with the standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError is a convenience method that records a provider error
// counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}
