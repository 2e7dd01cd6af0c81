package errors

import (
	"encoding/json"
	"net/http"

	"github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	"github.com/namelens/orgmatch/internal/metrics"
	"github.com/namelens/orgmatch/internal/observability"
	"github.com/namelens/orgmatch/internal/server/middleware"
)

// HTTPErrorDetail is the error body returned to API callers.
type HTTPErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// HTTPErrorResponse is the {"error": {...}} envelope.
type HTTPErrorResponse struct {
	Error HTTPErrorDetail `json:"error"`
}

// ResponseDetails merges envelope details with its context. Details win on
// key collisions.
func ResponseDetails(envelope *errors.ErrorEnvelope) map[string]interface{} {
	if envelope == nil || len(envelope.Details)+len(envelope.Context) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(envelope.Details)+len(envelope.Context))
	for k, v := range envelope.Context {
		out[k] = v
	}
	for k, v := range envelope.Details {
		out[k] = v
	}
	return out
}

// RespondWithError writes err as a JSON error envelope.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	RespondWithEnvelope(w, r, EnsureEnvelope(err))
}

// RespondWithEnvelope logs envelope, counts it and writes it with the
// status its code maps to.
func RespondWithEnvelope(w http.ResponseWriter, r *http.Request, envelope *errors.ErrorEnvelope) {
	if w == nil {
		return
	}
	endpoint := ""
	if r != nil {
		envelope = EnsureCorrelationID(envelope, r.Context())
		endpoint = middleware.EndpointPattern(r)
	} else {
		envelope = EnsureCorrelationID(envelope, nil)
	}
	status := HTTPStatusFromEnvelope(envelope)

	logHTTPError(envelope, status)
	metrics.RecordError(envelope.Code, status, endpoint)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(HTTPErrorResponse{Error: HTTPErrorDetail{
		Code:      envelope.Code,
		Message:   envelope.Message,
		Details:   ResponseDetails(envelope),
		RequestID: envelope.CorrelationID,
	}})
}

func logHTTPError(envelope *errors.ErrorEnvelope, status int) {
	logger := observability.ServerLogger
	if logger == nil || envelope == nil {
		return
	}
	fields := []zap.Field{
		zap.String("error_code", envelope.Code),
		zap.Int("http_status", status),
		zap.String("request_id", envelope.CorrelationID),
	}
	if envelope.Severity != "" {
		fields = append(fields, zap.String("severity", string(envelope.Severity)))
	}
	for k, v := range envelope.Context {
		fields = append(fields, zap.Any(k, v))
	}

	switch envelope.Severity {
	case errors.SeverityCritical, errors.SeverityHigh:
		logger.Error(envelope.Message, fields...)
	case errors.SeverityMedium:
		logger.Warn(envelope.Message, fields...)
	default:
		logger.Info(envelope.Message, fields...)
	}
}
