package observability

import (
	"fmt"
	"net"
	"strconv"

	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/fulmenhq/gofulmen/telemetry/exporters"
)

// DefaultMetricsPort is reported when the exporter was asked for a random
// port and the bound address cannot be read back.
const DefaultMetricsPort = 9090

var (
	// TelemetrySystem receives stage, verification and HTTP metrics. It
	// stays nil for CLI runs, which makes every metrics call a no-op.
	TelemetrySystem *telemetry.System

	// PrometheusExporter serves TelemetrySystem in Prometheus format.
	PrometheusExporter *exporters.PrometheusExporter

	metricsPort int
)

// DisableGlobalTelemetry installs a disabled gofulmen telemetry system so
// that library code (config loading among it) emits nothing until
// InitMetrics runs.
func DisableGlobalTelemetry() error {
	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: false})
	if err != nil {
		return fmt.Errorf("disable telemetry: %w", err)
	}
	telemetry.SetGlobalSystem(sys)
	return nil
}

// InitMetrics starts a Prometheus exporter on port (0 picks a free port)
// and routes TelemetrySystem to it. Metric names are prefixed with
// namespace, or with serviceName when namespace is empty.
func InitMetrics(serviceName string, port int, namespace ...string) error {
	if port < 0 {
		port = 0
	}
	metricsPort = port

	prefix := serviceName
	if len(namespace) > 0 && namespace[0] != "" {
		prefix = namespace[0]
	}

	exporter := exporters.NewPrometheusExporter(prefix, fmt.Sprintf(":%d", port))
	if err := exporter.Start(); err != nil {
		return fmt.Errorf("start prometheus exporter: %w", err)
	}
	PrometheusExporter = exporter

	switch bound, err := portOf(exporter.GetAddr()); {
	case err == nil:
		metricsPort = bound
	case port == 0:
		metricsPort = DefaultMetricsPort
	}

	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: exporter})
	if err != nil {
		return fmt.Errorf("create telemetry system: %w", err)
	}
	TelemetrySystem = sys
	return nil
}

// GetMetricsPort returns the port the exporter listens on.
func GetMetricsPort() int {
	return metricsPort
}

func portOf(addr string) (int, error) {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(port)
}
