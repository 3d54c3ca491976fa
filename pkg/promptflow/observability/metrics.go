package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records promptflow metrics.
// Use NewMetricsRecorder() for OTel metrics, NewPrometheusRecorder for
// Prometheus, or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordAttempt records one completion attempt against a model.
	RecordAttempt(ctx context.Context, model string, duration time.Duration, err error)

	// RecordRetry records a retry decision ("retry_same_model", "retry_next_model", ...).
	RecordRetry(ctx context.Context, action string)

	// RecordDispatch records how a retry sequence ended ("succeeded", "exhausted", "aborted").
	RecordDispatch(ctx context.Context, outcome string, retries int)

	// RecordLeaf records a leaf yielded by flow resolution.
	RecordLeaf(ctx context.Context, kind string)

	// RecordChainRun records a chain run completion.
	RecordChainRun(ctx context.Context, success bool, duration time.Duration)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	attempts       metric.Int64Counter
	attemptErrors  metric.Int64Counter
	attemptLatency metric.Float64Histogram
	retries        metric.Int64Counter
	dispatches     metric.Int64Counter
	leaves         metric.Int64Counter
	chainRuns      metric.Int64Counter
	chainLatency   metric.Float64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics lazily initializes the shared OTel instruments.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates the instruments on the global meter provider.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("promptflow")

	attempts, err := meter.Int64Counter("promptflow.attempts",
		metric.WithDescription("Number of completion attempts"),
	)
	if err != nil {
		return nil, err
	}

	attemptErrors, err := meter.Int64Counter("promptflow.attempt.errors",
		metric.WithDescription("Number of failed completion attempts"),
	)
	if err != nil {
		return nil, err
	}

	attemptLatency, err := meter.Float64Histogram("promptflow.attempt.latency_ms",
		metric.WithDescription("Completion attempt latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	retries, err := meter.Int64Counter("promptflow.retries",
		metric.WithDescription("Number of retry decisions by action"),
	)
	if err != nil {
		return nil, err
	}

	dispatches, err := meter.Int64Counter("promptflow.dispatches",
		metric.WithDescription("Number of retry sequences by outcome"),
	)
	if err != nil {
		return nil, err
	}

	leaves, err := meter.Int64Counter("promptflow.flow.leaves",
		metric.WithDescription("Number of leaves yielded by flow resolution"),
	)
	if err != nil {
		return nil, err
	}

	chainRuns, err := meter.Int64Counter("promptflow.chain.runs",
		metric.WithDescription("Number of chain runs"),
	)
	if err != nil {
		return nil, err
	}

	chainLatency, err := meter.Float64Histogram("promptflow.chain.latency_ms",
		metric.WithDescription("Chain run latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		attempts:       attempts,
		attemptErrors:  attemptErrors,
		attemptLatency: attemptLatency,
		retries:        retries,
		dispatches:     dispatches,
		leaves:         leaves,
		chainRuns:      chainRuns,
		chainLatency:   chainLatency,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordAttempt records a completion attempt.
func (m *otelMetrics) RecordAttempt(ctx context.Context, model string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("model", model))

	m.attempts.Add(ctx, 1, attrs)
	m.attemptLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
	if err != nil {
		m.attemptErrors.Add(ctx, 1, attrs)
	}
}

// RecordRetry records a retry decision.
func (m *otelMetrics) RecordRetry(ctx context.Context, action string) {
	m.retries.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
}

// RecordDispatch records the end of a retry sequence.
func (m *otelMetrics) RecordDispatch(ctx context.Context, outcome string, retries int) {
	m.dispatches.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.Int("retries", retries),
	))
}

// RecordLeaf records a yielded leaf.
func (m *otelMetrics) RecordLeaf(ctx context.Context, kind string) {
	m.leaves.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordChainRun records a chain run.
func (m *otelMetrics) RecordChainRun(ctx context.Context, success bool, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.Bool("success", success))
	m.chainRuns.Add(ctx, 1, attrs)
	m.chainLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
}
