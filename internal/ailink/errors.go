package ailink

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/namelens/orgmatch/internal/ailink/driver"
)

// ErrMissingCredentials is returned when the endpoint, key or model is not set.
var ErrMissingCredentials = errors.New("ailink credentials are not configured")

// ErrorCode classifies judgment service failures for logs and API responses.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrMissingCredentials) {
		return "AILINK_MISSING_CREDENTIALS"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "AILINK_PROVIDER_TIMEOUT"
	}

	var perr *driver.ProviderError
	if errors.As(err, &perr) && perr != nil {
		status := perr.StatusCode
		switch {
		case status == 401 || status == 403:
			return "AILINK_PROVIDER_AUTH"
		case status == 429:
			return "AILINK_PROVIDER_RATE_LIMIT"
		case status >= 500 && status <= 599:
			return "AILINK_PROVIDER_UNAVAILABLE"
		case status >= 400 && status <= 499:
			return "AILINK_PROVIDER_BAD_REQUEST"
		default:
			return "AILINK_PROVIDER_ERROR"
		}
	}

	if errors.Is(err, ErrRefused) {
		return "AILINK_REFUSED"
	}
	var raw *RawResponseError
	if errors.As(err, &raw) {
		return "AILINK_RESPONSE_INVALID"
	}
	return "AILINK_PROVIDER_ERROR"
}

// IsTransient reports whether a failed call may succeed when retried:
// rate limiting, server errors and network timeouts.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var perr *driver.ProviderError
	if errors.As(err, &perr) && perr != nil {
		return perr.Transient()
	}

	var raw *RawResponseError
	if errors.As(err, &raw) {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") || strings.Contains(msg, "connection refused")
}

// RetryAfter returns the delay a provider asked for before the next
// attempt, or zero.
func RetryAfter(err error) time.Duration {
	var perr *driver.ProviderError
	if errors.As(err, &perr) && perr != nil {
		return perr.RetryAfter
	}
	return 0
}
