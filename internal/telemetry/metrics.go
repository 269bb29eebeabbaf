package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/bundleplan"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Resolver metrics
	ResolveTotal       metric.Int64Counter
	ResolveErrorsTotal metric.Int64Counter

	// Build metrics
	BuildsTotal       metric.Int64Counter
	BuildErrorsTotal  metric.Int64Counter
	BuildDuration     metric.Float64Histogram
	OutputBytesTotal  metric.Int64Counter
	CompressedOutputs metric.Int64Counter

	// Module metrics
	TransformsTotal        metric.Int64Counter
	ShimSubstitutionsTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance bound to the global
// meter provider, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = NewMetrics(otel.GetMeterProvider().Meter(meterName))
	})
	return metrics
}

// NewMetrics creates all metric instruments on the given meter
func NewMetrics(meter metric.Meter) *Metrics {
	m := &Metrics{}

	m.ResolveTotal, _ = meter.Int64Counter(
		"bundleplan.resolve.total",
		metric.WithDescription("Total number of configuration resolutions"),
		metric.WithUnit("{resolution}"),
	)

	m.ResolveErrorsTotal, _ = meter.Int64Counter(
		"bundleplan.resolve.errors.total",
		metric.WithDescription("Total number of configurations rejected during resolution"),
		metric.WithUnit("{error}"),
	)

	m.BuildsTotal, _ = meter.Int64Counter(
		"bundleplan.builds.total",
		metric.WithDescription("Total number of bundle builds started"),
		metric.WithUnit("{build}"),
	)

	m.BuildErrorsTotal, _ = meter.Int64Counter(
		"bundleplan.builds.errors.total",
		metric.WithDescription("Total number of bundle builds that failed"),
		metric.WithUnit("{error}"),
	)

	m.BuildDuration, _ = meter.Float64Histogram(
		"bundleplan.builds.duration",
		metric.WithDescription("Duration of bundle builds"),
		metric.WithUnit("ms"),
	)

	m.OutputBytesTotal, _ = meter.Int64Counter(
		"bundleplan.outputs.bytes.total",
		metric.WithDescription("Total bytes written to bundle outputs"),
		metric.WithUnit("By"),
	)

	m.CompressedOutputs, _ = meter.Int64Counter(
		"bundleplan.outputs.compressed.total",
		metric.WithDescription("Total number of precompressed output files written"),
		metric.WithUnit("{file}"),
	)

	m.TransformsTotal, _ = meter.Int64Counter(
		"bundleplan.modules.transformed.total",
		metric.WithDescription("Total number of modules passed through a transformer"),
		metric.WithUnit("{module}"),
	)

	m.ShimSubstitutionsTotal, _ = meter.Int64Counter(
		"bundleplan.modules.shimmed.total",
		metric.WithDescription("Total number of built-in imports replaced by a shim"),
		metric.WithUnit("{import}"),
	)

	return m
}
