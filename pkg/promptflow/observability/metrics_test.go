package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func setupMetricsTest(t *testing.T) *sdkmetric.ManualReader {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	original := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)

	t.Cleanup(func() {
		otel.SetMeterProvider(original)
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("shutting down meter provider: %v", err)
		}
	})
	return reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) *metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return &rm
}

func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumFor returns the counter value for the datapoint carrying key=value.
func sumFor(t *testing.T, rm *metricdata.ResourceMetrics, name, key, value string) int64 {
	t.Helper()
	m := findMetric(rm, name)
	require.NotNil(t, m, "metric %s not found", name)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected Sum type for %s", name)

	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			total += dp.Value
		}
	}
	return total
}

func TestNewMetricsRecorder(t *testing.T) {
	setupMetricsTest(t)

	recorder := NewMetricsRecorder()
	require.NotNil(t, recorder)

	_, isNoop := recorder.(NoopMetrics)
	assert.False(t, isNoop)
}

func TestOtelMetrics_RecordAttempt(t *testing.T) {
	reader := setupMetricsTest(t)
	m, err := newOtelMetrics()
	require.NoError(t, err)
	ctx := context.Background()

	m.RecordAttempt(ctx, "gpt-4o", 20*time.Millisecond, nil)
	m.RecordAttempt(ctx, "gpt-4o", 30*time.Millisecond, errors.New("boom"))

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(2), sumFor(t, rm, "promptflow.attempts", "model", "gpt-4o"))
	assert.Equal(t, int64(1), sumFor(t, rm, "promptflow.attempt.errors", "model", "gpt-4o"))

	latency := findMetric(rm, "promptflow.attempt.latency_ms")
	require.NotNil(t, latency)
	hist, ok := latency.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.NotEmpty(t, hist.DataPoints)
	assert.Equal(t, uint64(2), hist.DataPoints[0].Count)
}

func TestOtelMetrics_RetryAndDispatch(t *testing.T) {
	reader := setupMetricsTest(t)
	m, err := newOtelMetrics()
	require.NoError(t, err)
	ctx := context.Background()

	m.RecordRetry(ctx, "retry_next_model")
	m.RecordRetry(ctx, "retry_next_model")
	m.RecordRetry(ctx, "retry_same_model")
	m.RecordDispatch(ctx, "exhausted", 3)

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(2), sumFor(t, rm, "promptflow.retries", "action", "retry_next_model"))
	assert.Equal(t, int64(1), sumFor(t, rm, "promptflow.retries", "action", "retry_same_model"))
	assert.Equal(t, int64(1), sumFor(t, rm, "promptflow.dispatches", "outcome", "exhausted"))
}

func TestOtelMetrics_LeafAndChainRun(t *testing.T) {
	reader := setupMetricsTest(t)
	m, err := newOtelMetrics()
	require.NoError(t, err)
	ctx := context.Background()

	m.RecordLeaf(ctx, "template")
	m.RecordLeaf(ctx, "literal")
	m.RecordChainRun(ctx, true, time.Second)

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(1), sumFor(t, rm, "promptflow.flow.leaves", "kind", "template"))
	assert.Equal(t, int64(1), sumFor(t, rm, "promptflow.flow.leaves", "kind", "literal"))
	require.NotNil(t, findMetric(rm, "promptflow.chain.runs"))
	require.NotNil(t, findMetric(rm, "promptflow.chain.latency_ms"))
}
