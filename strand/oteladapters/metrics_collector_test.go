package oteladapters_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/strand-db/strand-client-go/strand/oteladapters"
)

func newCollectorWithReader() (*oteladapters.MetricsCollector, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("strand-client-test")

	return oteladapters.NewMetricsCollector(meter), reader
}

func collectedMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) (metricdata.Metrics, bool) {
	t.Helper()

	var resourceMetrics metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &resourceMetrics), "collecting metrics should work")

	for _, scope := range resourceMetrics.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}

	return metricdata.Metrics{}, false
}

func requireMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) metricdata.Metrics {
	t.Helper()

	m, found := collectedMetric(t, reader, name)
	require.True(t, found, "metric %s should have been recorded", name)

	return m
}

func Test_MetricsCollector_RecordsDurationsAsSecondsHistogram(t *testing.T) {
	collector, reader := newCollectorWithReader()
	labels := map[string]string{"operation": "query", "status": "success"}

	collector.RecordDuration("strand_client_query_duration", 150*time.Millisecond, labels)

	data := requireMetric(t, reader, "strand_client_query_duration")
	histogram, ok := data.Data.(metricdata.Histogram[float64])
	require.True(t, ok, "durations should land in a float64 histogram")
	require.Len(t, histogram.DataPoints, 1)

	point := histogram.DataPoints[0]
	assert.Equal(t, uint64(1), point.Count)
	assert.InDelta(t, 0.15, point.Sum, 0.001, "durations should be recorded in seconds")

	wantAttrs := attribute.NewSet(
		attribute.String("operation", "query"),
		attribute.String("status", "success"),
	)
	assert.True(t, point.Attributes.Equals(&wantAttrs), "labels should become attributes")
}

func Test_MetricsCollector_AccumulatesCounterIncrements(t *testing.T) {
	collector, reader := newCollectorWithReader()
	labels := map[string]string{"operation": "query", "error_type": "transport"}

	collector.IncrementCounter("strand_client_errors", labels)
	collector.IncrementCounter("strand_client_errors", labels)
	collector.IncrementCounter("strand_client_errors", labels)

	data := requireMetric(t, reader, "strand_client_errors")
	sum, ok := data.Data.(metricdata.Sum[int64])
	require.True(t, ok, "counts should land in an int64 sum")
	require.Len(t, sum.DataPoints, 1)

	assert.Equal(t, int64(3), sum.DataPoints[0].Value)
}

func Test_MetricsCollector_GaugeKeepsLastValue(t *testing.T) {
	collector, reader := newCollectorWithReader()

	collector.RecordValue("strand_client_response_bytes", 512, nil)
	collector.RecordValue("strand_client_response_bytes", 1024, nil)

	data := requireMetric(t, reader, "strand_client_response_bytes")
	gauge, ok := data.Data.(metricdata.Gauge[float64])
	require.True(t, ok, "values should land in a float64 gauge")
	require.Len(t, gauge.DataPoints, 1)

	assert.Equal(t, 1024.0, gauge.DataPoints[0].Value, "later values should replace earlier ones")
}

func Test_MetricsCollector_ContextVariantsShareInstruments(t *testing.T) {
	collector, reader := newCollectorWithReader()

	collector.RecordDuration("strand_client_query_duration", 100*time.Millisecond, nil)
	collector.RecordDurationContext(context.Background(), "strand_client_query_duration", 200*time.Millisecond, nil)

	data := requireMetric(t, reader, "strand_client_query_duration")
	histogram, ok := data.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, histogram.DataPoints, 1, "both variants should feed the same instrument")

	assert.Equal(t, uint64(2), histogram.DataPoints[0].Count)
}

func Test_MetricsCollector_ToleratesMissingLabels(t *testing.T) {
	collector, reader := newCollectorWithReader()

	collector.RecordDuration("nil_labels", 50*time.Millisecond, nil)
	collector.IncrementCounter("empty_labels", map[string]string{})

	_, foundDuration := collectedMetric(t, reader, "nil_labels")
	assert.True(t, foundDuration, "nil labels should still record")

	_, foundCounter := collectedMetric(t, reader, "empty_labels")
	assert.True(t, foundCounter, "empty labels should still record")
}

func Test_MetricsCollector_DropsMeasurementsWhenInstrumentCreationFails(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("strand-client-test")
	collector := oteladapters.NewMetricsCollector(failingMeter{Meter: meter})
	ctx := context.Background()

	assert.NotPanics(t, func() {
		collector.RecordDuration("broken_duration", 100*time.Millisecond, nil)
		collector.IncrementCounter("broken_counter", nil)
		collector.RecordValue("broken_gauge", 42, nil)
		collector.RecordDurationContext(ctx, "broken_duration", 100*time.Millisecond, nil)
		collector.IncrementCounterContext(ctx, "broken_counter", nil)
		collector.RecordValueContext(ctx, "broken_gauge", 42, nil)
	}, "a failing instrument must not fail the observed operation")

	collector.IncrementCounter("working_counter", nil)

	_, foundBroken := collectedMetric(t, reader, "broken_counter")
	assert.False(t, foundBroken, "measurements on failed instruments should be dropped")

	_, foundWorking := collectedMetric(t, reader, "working_counter")
	assert.True(t, foundWorking, "other instruments should keep working")
}

func Test_MetricsCollector_IsSafeForConcurrentUse(t *testing.T) {
	collector, reader := newCollectorWithReader()

	const workers = 8
	const incrementsPerWorker = 50

	var wg sync.WaitGroup
	wg.Add(workers)

	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()

			for i := 0; i < incrementsPerWorker; i++ {
				collector.IncrementCounter("concurrent_counter", map[string]string{"operation": "query"})
			}
		}()
	}

	wg.Wait()

	data := requireMetric(t, reader, "concurrent_counter")
	sum, ok := data.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)

	assert.Equal(t, int64(workers*incrementsPerWorker), sum.DataPoints[0].Value)
}

// failingMeter denies instrument creation for names carrying the broken_
// prefix and delegates everything else.
type failingMeter struct {
	metric.Meter
}

func (m failingMeter) Float64Histogram(
	name string,
	options ...metric.Float64HistogramOption,
) (metric.Float64Histogram, error) {
	if strings.HasPrefix(name, "broken_") {
		return nil, errors.New("histogram rejected")
	}

	return m.Meter.Float64Histogram(name, options...)
}

func (m failingMeter) Int64Counter(name string, options ...metric.Int64CounterOption) (metric.Int64Counter, error) {
	if strings.HasPrefix(name, "broken_") {
		return nil, errors.New("counter rejected")
	}

	return m.Meter.Int64Counter(name, options...)
}

func (m failingMeter) Float64Gauge(name string, options ...metric.Float64GaugeOption) (metric.Float64Gauge, error) {
	if strings.HasPrefix(name, "broken_") {
		return nil, errors.New("gauge rejected")
	}

	return m.Meter.Float64Gauge(name, options...)
}
