package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestLedgerMetrics_Record(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewLedgerMetrics(provider.Meter("ledger-test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordDecision(ctx, "approve", "ok", 20*time.Millisecond)
	m.RecordDecision(ctx, "approve", "CONFLICT", 5*time.Millisecond)
	m.RecordClamped(ctx, "tenant-a", 3)
	m.RecordClamped(ctx, "tenant-a", 0)
	m.RecordAttachmentFailure(ctx, "TIMEOUT")
	m.RecordBalanceDuration(ctx, 150*time.Millisecond)

	metrics := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, metrics["ledger_receipt_decisions_total"]))
	assert.Equal(t, int64(3), sumOf(t, metrics["ledger_balance_clamped_total"]))
	assert.Equal(t, int64(1), sumOf(t, metrics["ledger_attachment_sign_failures_total"]))

	hist, ok := metrics["ledger_balance_compute_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
}
