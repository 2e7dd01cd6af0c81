package observability_test

import (
	"testing"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/namelens/orgmatch/internal/observability"
)

func TestInitLoggers(t *testing.T) {
	t.Run("CLI logger creation", func(t *testing.T) {
		require.NoError(t, observability.InitCLILogger("test-service", true))
		require.NotNil(t, observability.CLILogger)

		observability.CLILogger.Debug("Test CLI log message", zap.String("test", "value"))
		require.Same(t, observability.CLILogger, observability.Default())
	})

	t.Run("Structured logger creation", func(t *testing.T) {
		require.NoError(t, observability.InitServerLogger("test-service", "debug", "test", "orgmatch"))
		require.NotNil(t, observability.ServerLogger)

		observability.ServerLogger.Info("Test structured log message",
			zap.String("component", "test"),
			zap.Int("request_id", 123))
	})
}

func TestOrNop(t *testing.T) {
	var typedNil *logging.Logger
	var zapNil *zap.Logger

	for _, l := range []observability.Logger{nil, typedNil, zapNil} {
		logger := observability.OrNop(l)
		require.NotNil(t, logger)
		logger.Info("discarded")
	}

	base := zap.NewExample()
	require.Same(t, base, observability.OrNop(base))
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]string{
		"trace":   "TRACE",
		" Debug ": "DEBUG",
		"warning": "WARN",
		"error":   "ERROR",
		"":        "INFO",
		"bogus":   "INFO",
	}
	for in, want := range cases {
		require.Equal(t, want, observability.ParseLogLevel(in), in)
	}
}

func TestDisableGlobalTelemetryLeavesMetricsUnset(t *testing.T) {
	require.NoError(t, observability.DisableGlobalTelemetry())
	require.Nil(t, observability.TelemetrySystem)
}
