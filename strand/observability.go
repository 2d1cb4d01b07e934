package strand

import (
	"context"
	"time"
)

// Logger receives the client's operational output: wire exchanges at debug
// level, completed operations at info, status disagreements at warn, and
// failed exchanges at error. Keeping the interface local means the core
// packages depend on no logging framework.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MetricsCollector receives client measurements: exchange durations,
// error and mismatch counts, and response sizes. Labels carry the
// operation name and outcome.
type MetricsCollector interface {
	RecordDuration(metric string, duration time.Duration, labels map[string]string)
	IncrementCounter(metric string, labels map[string]string)
	RecordValue(metric string, value float64, labels map[string]string)
}

// ContextualMetricsCollector adds context-carrying variants of the
// MetricsCollector methods. The client engines discover it by type
// assertion on the configured MetricsCollector and prefer it when present,
// so implementations get the exchange context for trace correlation
// without a separate configuration knob.
type ContextualMetricsCollector interface {
	MetricsCollector
	RecordDurationContext(ctx context.Context, metric string, duration time.Duration, labels map[string]string)
	IncrementCounterContext(ctx context.Context, metric string, labels map[string]string)
	RecordValueContext(ctx context.Context, metric string, value float64, labels map[string]string)
}

// SpanContext is one live tracing span. The engines set its outcome and
// attach attributes as the exchange progresses.
type SpanContext interface {
	SetStatus(status string)
	AddAttribute(key, value string)
}

// TracingCollector opens and closes one span per client exchange. The
// context returned by StartSpan flows through the rest of the exchange, so
// implementations can parent nested instrumentation under the span. Any
// tracing backend can sit behind it; the oteladapters package ships the
// OpenTelemetry one.
type TracingCollector interface {
	StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, SpanContext)
	FinishSpan(spanCtx SpanContext, status string, attrs map[string]string)
}

// ContextualLogger is the context-carrying form of Logger, preferred by the
// engines when configured. Its method set matches *slog.Logger, so a plain
// slog logger satisfies it directly; the oteladapters package wraps one
// with trace correlation on top.
type ContextualLogger interface {
	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}
