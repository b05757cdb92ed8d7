package middleware

import (
	"context"
	"net/http"
	"time"
)

type timingContextKey struct{}

// TimingMiddleware records the request start so handlers can report
// processing time in the response meta.
func TimingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), timingContextKey{}, time.Now())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetRequestDuration returns milliseconds since the request started, or 0
// when TimingMiddleware did not run.
func GetRequestDuration(ctx context.Context) int64 {
	if start, ok := ctx.Value(timingContextKey{}).(time.Time); ok {
		return time.Since(start).Milliseconds()
	}
	return 0
}

func GetRequestDurationFromRequest(r *http.Request) int64 {
	return GetRequestDuration(r.Context())
}
