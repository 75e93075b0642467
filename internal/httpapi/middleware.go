package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/issueboard/server/internal/metrics"
)

var tracer = otel.Tracer("github.com/issueboard/server/internal/httpapi")

type middleware func(http.Handler) http.Handler

// chain applies middlewares in the order given, so the first middleware in
// the list is the outermost wrapper and runs first on the way in.
func chain(h http.Handler, mws ...middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// withRequestIDMiddleware stamps every request with a request id, taken
// from an inbound X-Request-Id header if present, else freshly generated,
// and echoes it back on the response.
func withRequestIDMiddleware() middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-Id")
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-Id", id)
			r = r.WithContext(withRequestID(r.Context(), id))
			next.ServeHTTP(w, r)
		})
	}
}

// withTracingMiddleware opens a span per request. With no exporter
// configured it is a no-op beyond bookkeeping, but every handler
// downstream can still add events/attributes to the active span.
func withTracingMiddleware() middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path,
				trace.WithAttributes(
					attribute.String("http.method", r.Method),
					attribute.String("http.path", r.URL.Path),
				))
			defer span.End()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// withAccessLogMiddleware logs one structured line per request and records
// it against the route's metrics, using httpsnoop to capture the status
// code and bytes written without the handler's cooperation.
func withAccessLogMiddleware(logger *zap.Logger, m *metrics.Metrics) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			metricsCaptured := httpsnoop.CaptureMetrics(next, w, r)
			duration := time.Since(start)

			route := r.Pattern
			if route == "" {
				route = r.Method + " " + r.URL.Path
			}
			ok := metricsCaptured.Code < http.StatusInternalServerError
			m.RecordRequest(route, duration, ok)

			logger.Info("request",
				zap.String("request_id", requestIDFromContext(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", metricsCaptured.Code),
				zap.Int64("bytes", metricsCaptured.Written),
				zap.Duration("duration", duration),
			)
		})
	}
}

// withRecoverMiddleware converts a panic in any downstream handler into a
// 500 response instead of crashing the process.
func withRecoverMiddleware(logger *zap.Logger) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						zap.String("request_id", requestIDFromContext(r.Context())),
						zap.Any("panic", rec),
						zap.Stack("stack"),
					)
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// withTimeoutMiddleware bounds every request's handling time, returning a
// 503 if the handler does not finish before timeout.
func withTimeoutMiddleware(timeout time.Duration) middleware {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, `{"error":"request timed out"}`)
	}
}

// withCORSMiddleware implements the preflight and actual-request CORS
// behavior against a fixed allow-list of origins.
func withCORSMiddleware(allowedOrigins []string) middleware {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && allowed[origin] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Vary", "Origin")
			}

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key, X-Request-Id")
				w.Header().Set("Access-Control-Max-Age", strconv.Itoa(int((10 * time.Minute).Seconds())))
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// withAuthMiddleware rejects any request whose X-API-Key header does not
// match apiKey, using a constant-time comparison so response timing
// cannot be used to brute-force the key a byte at a time.
func withAuthMiddleware(apiKey string) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			supplied := r.Header.Get("X-API-Key")
			if subtle.ConstantTimeCompare([]byte(supplied), []byte(apiKey)) != 1 {
				writeError(w, http.StatusUnauthorized, "invalid or missing API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
