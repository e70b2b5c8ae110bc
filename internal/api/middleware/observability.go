package middleware

import (
	"net/http"
	"time"

	"github.com/zatekoja/medscan/backend/internal/infrastructure/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ObservabilityMiddleware opens a span per request and records the request
// counter and latency histogram keyed by route pattern.
func ObservabilityMiddleware(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := observability.StartSpan(r.Context(), "http.request")
			defer span.End()

			sw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
			start := time.Now()

			r = r.WithContext(ctx)
			next.ServeHTTP(sw, r)

			// r.Pattern is set by the mux; raw paths would carry scan ids.
			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			span.SetName(route)
			observability.SetSpanAttributes(span,
				attribute.String("http.method", r.Method),
				attribute.String("http.route", route),
				attribute.Int("http.status_code", sw.statusCode),
				attribute.Int("http.response_size", sw.bytes),
				attribute.Bool("medscan.user_scoped", r.Header.Get(UserIDHeader) != ""),
			)
			if sw.statusCode >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(sw.statusCode))
			}
			observability.RecordRequestMetric(ctx, metrics, r.Method, route, sw.statusCode, time.Since(start))
		})
	}
}
