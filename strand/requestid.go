package strand

import "context"

// contextKey is a private type to prevent context key collisions.
type contextKey string

// RequestIDKey is the context key used to store a caller-chosen request id.
const RequestIDKey contextKey = "strand.request_id"

// ContextWithRequestID returns a context that pins the correlation id the
// client engines attach to the next exchange. Without it, every exchange
// gets a freshly generated id.
//
// This is typically used when the caller already has a correlation id from
// an upstream request and wants the database exchange to share it.
//
// Example usage:
//
//	ctx = strand.ContextWithRequestID(ctx, upstreamID)
//	envelope, err := client.Query(ctx, expr)
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// RequestIDFromContext extracts a pinned request id from the context. The
// second return reports whether one was set and non-empty.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(RequestIDKey).(string)
	if !ok || requestID == "" {
		return "", false
	}

	return requestID, true
}
