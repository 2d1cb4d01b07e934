package httpengine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/strand-db/strand-client-go/strand"
)

const (
	metricQueryDuration    = "strand_client_query_duration"
	metricClientErrors     = "strand_client_errors"
	metricStatusMismatches = "strand_client_status_mismatches"
	metricResponseBytes    = "strand_client_response_bytes"

	spanNameQuery      = "strand.client.query"
	spanAttrOperation  = "operation"
	spanAttrEndpoint   = "endpoint"
	spanAttrRequestID  = "request_id"
	spanAttrHTTPStatus = "http_status"
	spanAttrErrorType  = "error_type"
	spanAttrDurationMS = "duration_ms"

	operationQuery = "query"

	statusSuccess = "success"
	statusError   = "error"

	errorTypeSerialize = "serialize"
	errorTypeTransport = "transport"
	errorTypeParse     = "parse"
)

// logExchangeWithDuration reports one wire exchange at debug level, carrying
// the request size and the round trip time.
func (c Client) logExchangeWithDuration(
	ctx context.Context,
	requestID string,
	requestSize int,
	duration time.Duration,
) {
	c.logDebug(
		ctx,
		logMsgExchangeExecuted+logActionQuery,
		logAttrRequestID, requestID,
		logAttrRequestSize, requestSize,
		logAttrDurationMS, toMilliseconds(duration))
}

// logOperation reports the outcome of a client operation at info level.
func (c Client) logOperation(ctx context.Context, action string, args ...any) {
	if c.contextualLogger != nil {
		c.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)

		return
	}

	if c.logger != nil {
		c.logger.Info(logMsgOperation+action, args...)
	}
}

// logDebug logs through the contextual logger when one is configured,
// falling back to the plain logger.
func (c Client) logDebug(ctx context.Context, msg string, args ...any) {
	if c.contextualLogger != nil {
		c.contextualLogger.DebugContext(ctx, msg, args...)

		return
	}

	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c Client) logWarn(ctx context.Context, msg string, args ...any) {
	if c.contextualLogger != nil {
		c.contextualLogger.WarnContext(ctx, msg, args...)

		return
	}

	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}

func (c Client) logError(ctx context.Context, msg string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	if c.contextualLogger != nil {
		c.contextualLogger.ErrorContext(ctx, msg, allArgs...)

		return
	}

	if c.logger != nil {
		c.logger.Error(msg, allArgs...)
	}
}

// toMilliseconds renders a duration as fractional milliseconds, keeping
// microsecond resolution.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// recordErrorMetrics counts a failed exchange if a metrics collector is
// configured, using the context-aware method when the collector supports it.
func (c Client) recordErrorMetrics(ctx context.Context, errorType string) {
	if c.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operationQuery,
		"status":          statusError,
		spanAttrErrorType: errorType,
	}

	if contextualCollector, ok := c.metricsCollector.(strand.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metricClientErrors, labels)

		return
	}

	c.metricsCollector.IncrementCounter(metricClientErrors, labels)
}

// recordDurationMetrics measures how long the exchange took, labeled with
// its outcome. The context-aware method wins when the collector has one.
func (c Client) recordDurationMetrics(ctx context.Context, duration time.Duration, status string) {
	if c.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operationQuery,
		"status":          status,
	}

	if contextualCollector, ok := c.metricsCollector.(strand.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metricQueryDuration, duration, labels)

		return
	}

	c.metricsCollector.RecordDuration(metricQueryDuration, duration, labels)
}

// recordResponseSizeMetrics measures the decoded response body in bytes.
func (c Client) recordResponseSizeMetrics(ctx context.Context, bodySize int) {
	if c.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operationQuery,
		"status":          statusSuccess,
	}

	if contextualCollector, ok := c.metricsCollector.(strand.ContextualMetricsCollector); ok {
		contextualCollector.RecordValueContext(ctx, metricResponseBytes, float64(bodySize), labels)

		return
	}

	c.metricsCollector.RecordValue(metricResponseBytes, float64(bodySize), labels)
}

// recordStatusMismatchMetrics counts a disagreement between HTTP status and
// body variant if a metrics collector is configured.
func (c Client) recordStatusMismatchMetrics(ctx context.Context) {
	if c.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operationQuery,
	}

	if contextualCollector, ok := c.metricsCollector.(strand.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metricStatusMismatches, labels)

		return
	}

	c.metricsCollector.IncrementCounter(metricStatusMismatches, labels)
}

// startQuerySpan opens the span covering one exchange. Without a tracing
// collector it hands back the context unchanged and a nil span.
func (c Client) startQuerySpan(ctx context.Context, requestID string) (context.Context, strand.SpanContext) {
	if c.tracingCollector == nil {
		return ctx, nil
	}

	spanAttrs := map[string]string{
		spanAttrOperation: operationQuery,
		spanAttrEndpoint:  c.endpoint,
		spanAttrRequestID: requestID,
	}

	return c.tracingCollector.StartSpan(ctx, spanNameQuery, spanAttrs)
}

// finishQuerySpanSuccess closes the exchange span after a decodable
// response, stamping the HTTP status and the timing on it.
func (c Client) finishQuerySpanSuccess(span strand.SpanContext, statusCode int, duration time.Duration) {
	if c.tracingCollector == nil || span == nil {
		return
	}

	span.SetStatus(statusSuccess)
	span.AddAttribute(spanAttrHTTPStatus, fmt.Sprintf("%d", statusCode))
	span.AddAttribute(spanAttrDurationMS, fmt.Sprintf("%.2f", toMilliseconds(duration)))

	c.tracingCollector.FinishSpan(span, statusSuccess, map[string]string{
		spanAttrHTTPStatus: fmt.Sprintf("%d", statusCode),
	})
}

// finishQuerySpanError closes the exchange span after a failure, stamping
// which stage failed on it.
func (c Client) finishQuerySpanError(span strand.SpanContext, errorType string, duration time.Duration) {
	if c.tracingCollector == nil || span == nil {
		return
	}

	span.SetStatus(statusError)
	span.AddAttribute(spanAttrErrorType, errorType)

	if duration > 0 {
		span.AddAttribute(spanAttrDurationMS, fmt.Sprintf("%.2f", toMilliseconds(duration)))
	}

	c.tracingCollector.FinishSpan(span, statusError, map[string]string{spanAttrErrorType: errorType})
}
