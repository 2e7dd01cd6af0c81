package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/namelens/orgmatch/internal/metrics"
	"github.com/namelens/orgmatch/internal/observability"
)

// statusRecorder captures the status code and body size written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += int64(n)
	return n, err
}

// EndpointPattern returns the matched chi route pattern, or a fixed bucket
// for requests that never reached a route. Raw paths are never used as
// metric labels.
func EndpointPattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	switch r.URL.Path {
	case "/health", "/health/live", "/health/ready", "/health/startup":
		return "/health/*"
	case "/version", "/metrics", "/v1/match", "/":
		return r.URL.Path
	}
	return "/unknown"
}

// RequestMetrics records request metrics and writes one access log line
// per request. It is a pass-through when telemetry is off.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if observability.TelemetrySystem == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		var reqSize int64
		if cl := r.Header.Get("Content-Length"); cl != "" {
			reqSize, _ = strconv.ParseInt(cl, 10, 64)
		}

		next.ServeHTTP(rec, r)

		done := metrics.HTTPRequest{
			Method:       r.Method,
			Endpoint:     EndpointPattern(r),
			Status:       rec.status,
			Duration:     time.Since(start),
			RequestSize:  reqSize,
			ResponseSize: rec.bytes,
		}
		metrics.RecordHTTPRequest(done)

		observability.OrNop(observability.ServerLogger).Info("HTTP request completed",
			zap.String("method", done.Method),
			zap.String("path", r.URL.Path),
			zap.String("endpoint", done.Endpoint),
			zap.Int("status", done.Status),
			zap.Duration("duration", done.Duration),
			zap.Int64("request_size", done.RequestSize),
			zap.Int64("response_size", done.ResponseSize),
			zap.String("request_id", GetRequestID(r.Context())),
		)
	})
}
