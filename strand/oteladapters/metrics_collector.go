package oteladapters

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/strand-db/strand-client-go/strand"
)

// MetricsCollector satisfies strand.MetricsCollector and its contextual
// extension on top of an OpenTelemetry Meter. Each metric name maps to one
// instrument: durations to a histogram in seconds, counts to a counter,
// plain values to a gauge. Instruments are created on first use and cached.
// The collector is safe for concurrent use, matching the client it observes.
type MetricsCollector struct {
	meter metric.Meter

	mu         sync.Mutex
	histograms map[string]metric.Float64Histogram
	counters   map[string]metric.Int64Counter
	gauges     map[string]metric.Float64Gauge
}

// NewMetricsCollector wraps the given meter, typically one obtained from a
// MeterProvider.
func NewMetricsCollector(meter metric.Meter) *MetricsCollector {
	return &MetricsCollector{
		meter:      meter,
		histograms: make(map[string]metric.Float64Histogram),
		counters:   make(map[string]metric.Int64Counter),
		gauges:     make(map[string]metric.Float64Gauge),
	}
}

// RecordDuration records one duration into the named histogram.
func (m *MetricsCollector) RecordDuration(name string, duration time.Duration, labels map[string]string) {
	m.RecordDurationContext(context.Background(), name, duration, labels)
}

// RecordDurationContext is RecordDuration with the caller's context forwarded
// to the instrument, which keeps exemplar and baggage correlation intact.
func (m *MetricsCollector) RecordDurationContext(
	ctx context.Context,
	name string,
	duration time.Duration,
	labels map[string]string,
) {
	histogram := m.histogram(name)
	if histogram == nil {
		return
	}

	histogram.Record(ctx, duration.Seconds(), labelSet(labels))
}

// IncrementCounter adds one to the named counter.
func (m *MetricsCollector) IncrementCounter(name string, labels map[string]string) {
	m.IncrementCounterContext(context.Background(), name, labels)
}

// IncrementCounterContext is IncrementCounter with the caller's context
// forwarded to the instrument.
func (m *MetricsCollector) IncrementCounterContext(ctx context.Context, name string, labels map[string]string) {
	counter := m.counter(name)
	if counter == nil {
		return
	}

	counter.Add(ctx, 1, labelSet(labels))
}

// RecordValue stores the current value in the named gauge.
func (m *MetricsCollector) RecordValue(name string, value float64, labels map[string]string) {
	m.RecordValueContext(context.Background(), name, value, labels)
}

// RecordValueContext is RecordValue with the caller's context forwarded to
// the instrument.
func (m *MetricsCollector) RecordValueContext(ctx context.Context, name string, value float64, labels map[string]string) {
	gauge := m.gauge(name)
	if gauge == nil {
		return
	}

	gauge.Record(ctx, value, labelSet(labels))
}

// labelSet converts a label map into a measurement option.
func labelSet(labels map[string]string) metric.MeasurementOption {
	attrs := make([]attribute.KeyValue, 0, len(labels))
	for key, value := range labels {
		attrs = append(attrs, attribute.String(key, value))
	}

	return metric.WithAttributes(attrs...)
}

// histogram returns the cached instrument for name, creating it on first
// use. A creation failure drops the measurements for that name; the observed
// operation must not fail because its metrics do.
func (m *MetricsCollector) histogram(name string) metric.Float64Histogram {
	m.mu.Lock()
	defer m.mu.Unlock()

	if instrument, cached := m.histograms[name]; cached {
		return instrument
	}

	instrument, err := m.meter.Float64Histogram(
		name,
		metric.WithDescription("client operation duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil
	}

	m.histograms[name] = instrument

	return instrument
}

func (m *MetricsCollector) counter(name string) metric.Int64Counter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if instrument, cached := m.counters[name]; cached {
		return instrument
	}

	instrument, err := m.meter.Int64Counter(
		name,
		metric.WithDescription("client operation count"),
	)
	if err != nil {
		return nil
	}

	m.counters[name] = instrument

	return instrument
}

func (m *MetricsCollector) gauge(name string) metric.Float64Gauge {
	m.mu.Lock()
	defer m.mu.Unlock()

	if instrument, cached := m.gauges[name]; cached {
		return instrument
	}

	instrument, err := m.meter.Float64Gauge(
		name,
		metric.WithDescription("client operation value"),
	)
	if err != nil {
		return nil
	}

	m.gauges[name] = instrument

	return instrument
}

var _ strand.MetricsCollector = (*MetricsCollector)(nil)
var _ strand.ContextualMetricsCollector = (*MetricsCollector)(nil)
