package oteladapters

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/strand-db/strand-client-go/strand"
)

// TracingCollector satisfies strand.TracingCollector on top of an
// OpenTelemetry Tracer. Every client exchange becomes one span, and the
// context returned by StartSpan carries it downstream so nested
// instrumentation parents correctly.
type TracingCollector struct {
	tracer trace.Tracer
}

// NewTracingCollector wraps the given tracer, typically one obtained from a
// TracerProvider.
func NewTracingCollector(tracer trace.Tracer) *TracingCollector {
	return &TracingCollector{tracer: tracer}
}

// StartSpan opens a span under the given name with the initial attributes.
func (t *TracingCollector) StartSpan(
	ctx context.Context,
	name string,
	attrs map[string]string,
) (context.Context, strand.SpanContext) {
	spanCtx, span := t.tracer.Start(ctx, name, trace.WithAttributes(spanAttributes(attrs)...))

	return spanCtx, &OTelSpanContext{span: span}
}

// FinishSpan attaches the final attributes, applies the status, and ends the
// span. Span contexts that did not come from this collector are ignored.
func (t *TracingCollector) FinishSpan(spanCtx strand.SpanContext, status string, attrs map[string]string) {
	wrapped, ok := spanCtx.(*OTelSpanContext)
	if !ok {
		return
	}

	wrapped.span.SetAttributes(spanAttributes(attrs)...)
	wrapped.applyStatus(status)
	wrapped.span.End()
}

func spanAttributes(attrs map[string]string) []attribute.KeyValue {
	converted := make([]attribute.KeyValue, 0, len(attrs))
	for key, value := range attrs {
		converted = append(converted, attribute.String(key, value))
	}

	return converted
}

var _ strand.TracingCollector = (*TracingCollector)(nil)

// OTelSpanContext carries one live OpenTelemetry span across the collector
// interface boundary.
type OTelSpanContext struct {
	span trace.Span
}

// SetStatus applies the client's outcome vocabulary to the span.
func (s *OTelSpanContext) SetStatus(status string) {
	s.applyStatus(status)
}

// AddAttribute attaches one string attribute to the span.
func (s *OTelSpanContext) AddAttribute(key, value string) {
	s.span.SetAttributes(attribute.String(key, value))
}

// applyStatus maps the outcomes the client reports onto span status codes.
// Unknown outcome strings are preserved as an attribute instead of being
// guessed at.
func (s *OTelSpanContext) applyStatus(status string) {
	switch status {
	case "success", "ok":
		s.span.SetStatus(codes.Ok, "")
	case "error":
		s.span.SetStatus(codes.Error, "client operation failed")
	default:
		s.span.SetAttributes(attribute.String("status", status))
	}
}

var _ strand.SpanContext = (*OTelSpanContext)(nil)
