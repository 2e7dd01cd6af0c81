package driver

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// MaxRetryAfter caps the delay a provider may request through Retry-After.
const MaxRetryAfter = time.Minute

// ProviderError is returned when a provider responds with a non-2xx status.
//
// RawResponse holds the response body and never includes API keys.
type ProviderError struct {
	Provider    string
	StatusCode  int
	Message     string
	RawResponse []byte
	// RetryAfter is the provider's requested delay, zero when absent.
	RetryAfter time.Duration
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s request failed: status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s request failed: %s", e.Provider, e.Message)
}

// Transient reports whether the status signals rate limiting or a server
// fault that a later attempt may not hit.
func (e *ProviderError) Transient() bool {
	if e == nil {
		return false
	}
	return e.StatusCode == http.StatusTooManyRequests ||
		(e.StatusCode >= http.StatusInternalServerError && e.StatusCode <= 599)
}

// ParseRetryAfter reads a Retry-After header given in seconds or as an
// HTTP date. Unparseable values yield zero; results are capped at
// MaxRetryAfter.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	var d time.Duration
	if secs, err := strconv.Atoi(value); err == nil {
		d = time.Duration(secs) * time.Second
	} else if at, err := http.ParseTime(value); err == nil {
		d = at.Sub(now)
	}
	switch {
	case d <= 0:
		return 0
	case d > MaxRetryAfter:
		return MaxRetryAfter
	}
	return d
}
