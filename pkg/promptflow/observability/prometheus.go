package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder implements MetricsRecorder with Prometheus collectors.
// Use it when metrics are scraped from a /metrics endpoint instead of
// exported through an OTel pipeline.
type PrometheusRecorder struct {
	attemptsTotal   *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	retriesTotal    *prometheus.CounterVec
	dispatchesTotal *prometheus.CounterVec
	leavesTotal     *prometheus.CounterVec
	chainRunsTotal  *prometheus.CounterVec
	chainDuration   *prometheus.HistogramVec
}

var _ MetricsRecorder = (*PrometheusRecorder)(nil)

// NewPrometheusRecorder registers the promptflow collectors on reg under
// namespace. A nil reg uses prometheus.DefaultRegisterer.
//
// Registering twice on the same registry with the same namespace panics.
func NewPrometheusRecorder(namespace string, reg prometheus.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		attemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "attempts_total",
				Help:      "Total number of completion attempts",
			},
			[]string{"model", "status"},
		),
		attemptDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "attempt_duration_seconds",
				Help:      "Completion attempt duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"model"},
		),
		retriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retries_total",
				Help:      "Total number of retry decisions",
			},
			[]string{"action"},
		),
		dispatchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dispatches_total",
				Help:      "Total number of retry sequences by outcome",
			},
			[]string{"outcome"},
		),
		leavesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "flow_leaves_total",
				Help:      "Total number of leaves yielded by flow resolution",
			},
			[]string{"kind"},
		),
		chainRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chain_runs_total",
				Help:      "Total number of chain runs",
			},
			[]string{"success"},
		),
		chainDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "chain_run_duration_seconds",
				Help:      "Chain run duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"success"},
		),
	}
}

// RecordAttempt records a completion attempt.
func (p *PrometheusRecorder) RecordAttempt(_ context.Context, model string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	p.attemptsTotal.WithLabelValues(model, status).Inc()
	p.attemptDuration.WithLabelValues(model).Observe(duration.Seconds())
}

// RecordRetry records a retry decision.
func (p *PrometheusRecorder) RecordRetry(_ context.Context, action string) {
	p.retriesTotal.WithLabelValues(action).Inc()
}

// RecordDispatch records the end of a retry sequence.
// The retry count is not a label; it would explode cardinality.
func (p *PrometheusRecorder) RecordDispatch(_ context.Context, outcome string, _ int) {
	p.dispatchesTotal.WithLabelValues(outcome).Inc()
}

// RecordLeaf records a yielded leaf.
func (p *PrometheusRecorder) RecordLeaf(_ context.Context, kind string) {
	p.leavesTotal.WithLabelValues(kind).Inc()
}

// RecordChainRun records a chain run.
func (p *PrometheusRecorder) RecordChainRun(_ context.Context, success bool, duration time.Duration) {
	label := strconv.FormatBool(success)
	p.chainRunsTotal.WithLabelValues(label).Inc()
	p.chainDuration.WithLabelValues(label).Observe(duration.Seconds())
}
