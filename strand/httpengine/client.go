package httpengine

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/strand-db/strand-client-go/strand"
	"github.com/strand-db/strand-client-go/strand/httpengine/internal/adapters"
)

const (
	defaultEndpoint    = "https://db.strand-db.com"
	defaultAPIVersion  = "1"
	defaultHTTPTimeout = 60 * time.Second

	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	headerAPIVersion    = "X-Strand-API-Version"
	headerRequestID     = "X-Request-ID"

	authBearerPrefix = "Bearer "
	contentTypeJSON  = "application/json"

	logMsgSerializeFailed  = "failed to serialize query expression"
	logMsgTransportFailed  = "request transport failed"
	logMsgParseBodyFailed  = "failed to parse response body"
	logMsgStatusMismatch   = "response status disagrees with body variant"
	logMsgQueryCompleted   = "query completed"
	logMsgExchangeExecuted = "executed exchange for: "
	logMsgOperation        = "strand client operation: "

	logAttrError       = "error"
	logAttrEndpoint    = "endpoint"
	logAttrRequestID   = "request_id"
	logAttrDurationMS  = "duration_ms"
	logAttrRequestSize = "request_bytes"
	logAttrHTTPStatus  = "http_status"
	logAttrErrorCount  = "error_count"

	logActionQuery = "query"
)

// SendFunc carries one serialized query to the service and returns the HTTP
// status code and raw response body. It is the plain-function form of the
// transport seam, intended for custom transports and test fakes.
type SendFunc func(ctx context.Context, endpoint string, headers map[string]string, body []byte) (int, []byte, error)

// Client exchanges query expressions with a Strand service over HTTP. It is
// an immutable value configured at construction time and safe for concurrent
// use.
type Client struct {
	transport        adapters.HTTPAdapter
	endpoint         string
	secret           string
	apiVersion       string
	logger           strand.Logger
	contextualLogger strand.ContextualLogger
	metricsCollector strand.MetricsCollector
	tracingCollector strand.TracingCollector
}

// New creates a Client using a default net/http transport with a 60 second
// timeout. For custom timeouts or transports use NewFromHTTPClient,
// NewFromSendFunc or NewFromConfig.
func New(secret string, options ...Option) (Client, error) {
	return newClient(secret, adapters.NewNetHTTPAdapter(&http.Client{Timeout: defaultHTTPTimeout}), options)
}

// NewFromHTTPClient creates a Client using the given net/http client with
// optional configuration.
func NewFromHTTPClient(secret string, httpClient *http.Client, options ...Option) (Client, error) {
	if httpClient == nil {
		return Client{}, strand.ErrNilHTTPClient
	}

	return newClient(secret, adapters.NewNetHTTPAdapter(httpClient), options)
}

// NewFromSendFunc creates a Client using the given send function as its
// transport with optional configuration.
func NewFromSendFunc(secret string, send SendFunc, options ...Option) (Client, error) {
	if send == nil {
		return Client{}, strand.ErrNilSendFunc
	}

	return newClient(secret, adapters.NewFuncAdapter(send), options)
}

// NewFromConfig creates a Client from environment-derived configuration with
// optional configuration on top.
func NewFromConfig(cfg Config, options ...Option) (Client, error) {
	if cfg.Timeout < 0 {
		return Client{}, strand.ErrInvalidHTTPTimeout
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultHTTPTimeout
	}

	if cfg.Endpoint != "" {
		options = append([]Option{WithEndpoint(cfg.Endpoint)}, options...)
	}

	return newClient(cfg.Secret, adapters.NewNetHTTPAdapter(&http.Client{Timeout: timeout}), options)
}

func newClient(secret string, transport adapters.HTTPAdapter, options []Option) (Client, error) {
	if secret == "" {
		return Client{}, strand.ErrEmptySecret
	}

	client := Client{
		transport:  transport,
		endpoint:   defaultEndpoint,
		secret:     secret,
		apiVersion: defaultAPIVersion,
	}

	for _, option := range options {
		if optionErr := option(&client); optionErr != nil {
			return Client{}, optionErr
		}
	}

	return client, nil
}

// Query serializes the expression, carries it to the service, and decodes
// the response into an envelope.
//
// The error return covers exchanges that produced no envelope: a malformed
// expression (refused before anything is sent), a transport failure
// (strand.ErrRequestFailed), or an undecodable body
// (strand.ErrMalformedResponse). Query failures the service reports are not
// Go errors; they come back as the envelope's error variant.
func (c Client) Query(ctx context.Context, expr strand.Expr) (strand.Envelope, error) {
	var empty strand.Envelope

	requestID := c.requestID(ctx)

	ctx, span := c.startQuerySpan(ctx, requestID)

	wire, serializeErr := strand.Serialize(expr)
	if serializeErr != nil {
		c.logError(ctx, logMsgSerializeFailed, serializeErr, logAttrRequestID, requestID)
		c.recordErrorMetrics(ctx, errorTypeSerialize)
		c.finishQuerySpanError(span, errorTypeSerialize, 0)

		return empty, serializeErr
	}

	statusCode, body, duration, sendErr := c.executeExchange(ctx, requestID, wire)
	if sendErr != nil {
		c.recordErrorMetrics(ctx, errorTypeTransport)
		c.recordDurationMetrics(ctx, duration, statusError)
		c.finishQuerySpanError(span, errorTypeTransport, duration)

		return empty, sendErr
	}

	envelope, parseErr := strand.ParseResponse(statusCode, body)
	if parseErr != nil {
		c.logError(ctx, logMsgParseBodyFailed, parseErr, logAttrRequestID, requestID, logAttrHTTPStatus, statusCode)
		c.recordErrorMetrics(ctx, errorTypeParse)
		c.recordDurationMetrics(ctx, duration, statusError)
		c.finishQuerySpanError(span, errorTypeParse, duration)

		return empty, parseErr
	}

	if envelope.StatusMismatch() {
		c.logWarn(ctx, logMsgStatusMismatch, logAttrRequestID, requestID, logAttrHTTPStatus, statusCode)
		c.recordStatusMismatchMetrics(ctx)
	}

	c.logOperation(
		ctx,
		logMsgQueryCompleted,
		logAttrRequestID, requestID,
		logAttrHTTPStatus, statusCode,
		logAttrErrorCount, len(envelope.Errors()),
		logAttrDurationMS, toMilliseconds(duration))

	c.recordDurationMetrics(ctx, duration, statusSuccess)
	c.recordResponseSizeMetrics(ctx, len(body))
	c.finishQuerySpanSuccess(span, statusCode, duration)

	return envelope, nil
}

// executeExchange sends the serialized expression and returns the raw
// exchange outcome with timing information.
func (c Client) executeExchange(ctx context.Context, requestID string, wire []byte) (
	int,
	[]byte,
	time.Duration,
	error,
) {
	headers := c.requestHeaders(requestID)

	start := time.Now()
	statusCode, body, sendErr := c.transport.Send(ctx, c.endpoint, headers, wire)
	duration := time.Since(start)

	c.logExchangeWithDuration(ctx, requestID, len(wire), duration)

	if sendErr != nil {
		c.logError(ctx, logMsgTransportFailed, sendErr, logAttrRequestID, requestID, logAttrEndpoint, c.endpoint)

		return 0, nil, duration, errors.Join(strand.ErrRequestFailed, sendErr)
	}

	return statusCode, body, duration, nil
}

// requestID returns the correlation id for one exchange: the id pinned on
// the context when there is one, otherwise a freshly generated one.
func (c Client) requestID(ctx context.Context) string {
	if pinned, ok := strand.RequestIDFromContext(ctx); ok {
		return pinned
	}

	return uuid.NewString()
}

func (c Client) requestHeaders(requestID string) map[string]string {
	return map[string]string{
		headerAuthorization: authBearerPrefix + c.secret,
		headerContentType:   contentTypeJSON,
		headerAPIVersion:    c.apiVersion,
		headerRequestID:     requestID,
	}
}
