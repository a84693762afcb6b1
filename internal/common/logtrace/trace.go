package logtrace

import (
	"context"
)

type ctxKey struct{}

// WithRequestID returns a copy of ctx carrying the given request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// RequestIDFromContext extracts the request id from the context.
// Returns an empty string if the context is nil or carries no id.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	r, ok := ctx.Value(ctxKey{}).(string)
	if !ok {
		return ""
	}
	return r
}
