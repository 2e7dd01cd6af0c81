package metrics

import (
	"time"

	"github.com/namelens/orgmatch/internal/observability"
)

// Service-level metrics
const (
	RunsTotal           = "orgmatch_runs_total"
	RunDuration         = "orgmatch_run_duration_ms"
	HealthCheckTotal    = "orgmatch_health_check_total"
	HealthCheckDuration = "orgmatch_health_check_duration_ms"
	ServerStartTime     = "orgmatch_server_start_time_seconds"
)

// RecordRun records one match or verify run, from the CLI or the HTTP API.
func RecordRun(operation string, success bool, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	_ = observability.TelemetrySystem.Counter(
		RunsTotal,
		1,
		map[string]string{
			"operation": operation,
			"status":    status,
		},
	)
	_ = observability.TelemetrySystem.Histogram(
		RunDuration,
		duration,
		map[string]string{"operation": operation},
	)
}

// RecordHealthCheck records a health check execution
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			HealthCheckTotal,
			1,
			map[string]string{
				"check":  checkName,
				"status": status,
			},
		)

		_ = observability.TelemetrySystem.Histogram(
			HealthCheckDuration,
			duration,
			map[string]string{
				"check": checkName,
			},
		)
	}
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerStartTime,
			float64(timestamp),
			nil,
		)
	}
}
