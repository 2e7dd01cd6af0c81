package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	"github.com/namelens/orgmatch/internal/metrics"
	"github.com/namelens/orgmatch/internal/observability"
)

// panicBody mirrors the error envelope written by internal/errors, which
// cannot be imported from here.
type panicBody struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

// Recovery turns a handler panic into a 500 INTERNAL_ERROR response. The
// panic value and stack go to the server log only.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			requestID := GetRequestID(r.Context())
			envelope := errors.NewErrorEnvelope("INTERNAL_ERROR", "Internal server error").
				WithCorrelationID(requestID)
			envelope, _ = envelope.WithSeverity(errors.SeverityCritical)

			observability.OrNop(observability.ServerLogger).Error("Recovered handler panic",
				zap.String("panic", fmt.Sprint(rec)),
				zap.String("severity", string(envelope.Severity)),
				zap.String("endpoint", EndpointPattern(r)),
				zap.String("request_id", requestID),
				zap.ByteString("stack", debug.Stack()),
			)
			metrics.RecordPanic(EndpointPattern(r))

			var body panicBody
			body.Error.Code = envelope.Code
			body.Error.Message = envelope.Message
			body.Error.RequestID = envelope.CorrelationID

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(body)
		}()

		next.ServeHTTP(w, r)
	})
}
