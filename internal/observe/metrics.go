// Package observe provides OpenTelemetry metrics for the tuning pipeline.
//
// Instruments are created from any [metric.MeterProvider]; tests use an SDK
// provider with a manual reader, the binary uses [InitProvider] which backs
// the instruments with a Prometheus registry that can be written to a
// node_exporter textfile on shutdown.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/0xlemi/timpletune"

// Metrics holds the metric instruments of the tuning pipeline. All fields are
// safe for concurrent use.
type Metrics struct {
	// Frames counts analysed audio frames.
	Frames metric.Int64Counter

	// Readings counts emitted readings. Use with attribute:
	//   attribute.String("status", ...)
	Readings metric.Int64Counter

	// DetectDuration tracks per-frame pipeline latency in seconds.
	DetectDuration metric.Float64Histogram

	// ActiveSessions tracks running tuning sessions.
	ActiveSessions metric.Int64UpDownCounter
}

// frameBuckets are histogram boundaries (seconds) for per-frame work, which
// has to finish well inside one frame period.
var frameBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05,
}

// NewMetrics creates the instruments using mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Frames, err = m.Int64Counter("timpletune.frames",
		metric.WithDescription("Audio frames analysed."),
	); err != nil {
		return nil, err
	}
	if met.Readings, err = m.Int64Counter("timpletune.readings",
		metric.WithDescription("Tuning readings emitted, by status."),
	); err != nil {
		return nil, err
	}
	if met.DetectDuration, err = m.Float64Histogram("timpletune.detect.duration",
		metric.WithDescription("Time to turn one frame into a reading."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(frameBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("timpletune.active_sessions",
		metric.WithDescription("Tuning sessions currently listening."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// RecordReading records one processed frame and the status it produced.
func (m *Metrics) RecordReading(ctx context.Context, status string, elapsed time.Duration) {
	m.Frames.Add(ctx, 1)
	m.Readings.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	m.DetectDuration.Record(ctx, elapsed.Seconds())
}

// SessionStarted increments the active session gauge.
func (m *Metrics) SessionStarted(ctx context.Context) {
	m.ActiveSessions.Add(ctx, 1)
}

// SessionStopped decrements the active session gauge.
func (m *Metrics) SessionStopped(ctx context.Context) {
	m.ActiveSessions.Add(ctx, -1)
}
