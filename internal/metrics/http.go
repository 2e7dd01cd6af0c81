package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/namelens/orgmatch/internal/observability"
)

// HTTP metrics. Names stay unprefixed so dashboards shared with other
// gofulmen services keep working.
const (
	HTTPRequestsTotal    = "http_requests_total"
	HTTPRequestDuration  = "http_request_duration_ms"
	HTTPRequestSize      = "http_request_size_bytes"
	HTTPResponseSize     = "http_response_size_bytes"
	HTTPErrorsTotal      = "http_errors_total"
	ErrorsTotalName      = "errors_total"
	ErrorsByEndpointName = "errors_by_endpoint"
	PanicsTotalName      = "panics_total"
)

// HTTPRequest describes one completed request. Endpoint is the route
// pattern, never the raw path.
type HTTPRequest struct {
	Method       string
	Endpoint     string
	Status       int
	Duration     time.Duration
	RequestSize  int64
	ResponseSize int64
}

// RecordHTTPRequest emits the request counter, latency and size gauges,
// plus http_errors_total for 4xx and 5xx statuses.
func RecordHTTPRequest(req HTTPRequest) {
	sys := observability.TelemetrySystem
	if sys == nil {
		return
	}
	status := strconv.Itoa(req.Status)
	labels := map[string]string{
		"method":   req.Method,
		"endpoint": req.Endpoint,
		"status":   status,
	}
	sizeLabels := map[string]string{
		"method":   req.Method,
		"endpoint": req.Endpoint,
	}

	_ = sys.Counter(HTTPRequestsTotal, 1, labels)
	_ = sys.Histogram(HTTPRequestDuration, req.Duration, labels)
	_ = sys.Gauge(HTTPRequestSize, float64(req.RequestSize), sizeLabels)
	_ = sys.Gauge(HTTPResponseSize, float64(req.ResponseSize), sizeLabels)

	if kind := errorClass(req.Status); kind != "" {
		_ = sys.Counter(HTTPErrorsTotal, 1, map[string]string{
			"method":     req.Method,
			"endpoint":   req.Endpoint,
			"status":     status,
			"error_type": kind,
		})
	}
}

// RecordError counts an error envelope written to a client. endpoint may
// be empty when the request is unknown.
func RecordError(code string, httpStatus int, endpoint string) {
	sys := observability.TelemetrySystem
	if sys == nil {
		return
	}
	_ = sys.Counter(ErrorsTotalName, 1, map[string]string{
		"error_code":  code,
		"http_status": strconv.Itoa(httpStatus),
	})
	if endpoint != "" {
		_ = sys.Counter(ErrorsByEndpointName, 1, map[string]string{
			"endpoint":   endpoint,
			"error_code": code,
		})
	}
}

// RecordPanic counts a recovered handler panic.
func RecordPanic(endpoint string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(PanicsTotalName, 1, map[string]string{"endpoint": endpoint})
}

func errorClass(status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return "server_error"
	case status >= http.StatusBadRequest:
		return "client_error"
	}
	return ""
}
