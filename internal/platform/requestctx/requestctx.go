// Package requestctx threads per-request identifiers through context.
package requestctx

import "context"

// requestIDContextKey is the context key for the request correlation id.
type requestIDContextKey struct{}

// WithRequestID stores a correlation identifier in context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestIDContextKey{}, requestID)
}

// RequestIDFromContext returns the correlation identifier stored in context.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDContextKey{}).(string)
	return value
}
