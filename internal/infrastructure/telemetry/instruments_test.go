package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/storefront/backend/internal/infrastructure/telemetry"
)

func newManualMeter(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return reader, provider
}

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

func TestCounter_AddAndInc(t *testing.T) {
	reader, provider := newManualMeter(t)
	ctx := context.Background()

	c, err := telemetry.NewCounter(provider.Meter("test"), "cart_mutations", "mutations", "{mutations}")
	require.NoError(t, err)

	c.Add(ctx, 2, telemetry.AttrOperation.String("add_item"))
	c.Inc(ctx, telemetry.AttrOperation.String("add_item"))

	sum := collect(t, reader)["cart_mutations"].Data.(metricdata.Sum[int64])
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(3), sum.DataPoints[0].Value)
}

func TestHistogram_RemoteCallBuckets(t *testing.T) {
	reader, provider := newManualMeter(t)
	ctx := context.Background()

	h, err := telemetry.NewHistogram(provider.Meter("test"), telemetry.HistogramOpts{
		Name:       "remote_call",
		Unit:       "s",
		Boundaries: telemetry.RemoteCallBuckets,
	})
	require.NoError(t, err)

	h.RecordDuration(ctx, 120*time.Millisecond, telemetry.AttrOperation.String("fetch_cart"))
	h.Record(ctx, 3.2, telemetry.AttrOperation.String("fetch_cart"))

	data := collect(t, reader)["remote_call"].Data.(metricdata.Histogram[float64])
	require.Len(t, data.DataPoints, 1)
	assert.Equal(t, uint64(2), data.DataPoints[0].Count)
	assert.Equal(t, telemetry.RemoteCallBuckets, data.DataPoints[0].Bounds)
}

func TestHistogram_DefaultBuckets(t *testing.T) {
	_, provider := newManualMeter(t)

	h, err := telemetry.NewHistogram(provider.Meter("test"), telemetry.HistogramOpts{Name: "plain"})
	require.NoError(t, err)
	assert.NotPanics(t, func() { h.Record(context.Background(), 1) })
}

func TestGauge_KeepsLatest(t *testing.T) {
	reader, provider := newManualMeter(t)
	ctx := context.Background()

	g, err := telemetry.NewGauge(provider.Meter("test"), "stream_clients", "clients", "{clients}")
	require.NoError(t, err)

	g.Record(ctx, 4)
	g.Record(ctx, 2)

	gauge := collect(t, reader)["stream_clients"].Data.(metricdata.Gauge[int64])
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(2), gauge.DataPoints[0].Value)
}
