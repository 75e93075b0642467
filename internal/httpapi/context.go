package httpapi

import "context"

type contextKey int

const requestIDKey contextKey = iota

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// requestIDFromContext returns the request id stashed by the request-id
// middleware, or "" if none was set (e.g. in a unit test calling a handler
// directly).
func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
