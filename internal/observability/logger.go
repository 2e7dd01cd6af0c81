package observability

import (
	"fmt"
	"strings"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"
)

var (
	// CLILogger is used for CLI commands (SIMPLE profile)
	CLILogger *logging.Logger

	// ServerLogger is used for the HTTP server (STRUCTURED profile)
	ServerLogger *logging.Logger
)

// Logger is the logging surface the matching and verification packages
// depend on. Both *logging.Logger and *zap.Logger satisfy it.
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil || isNilLogger(l) {
		return zap.NewNop()
	}
	return l
}

func isNilLogger(l Logger) bool {
	switch v := l.(type) {
	case *logging.Logger:
		return v == nil
	case *zap.Logger:
		return v == nil
	}
	return false
}

// Default returns the CLI logger when initialized, the server logger when
// only that one exists, and a no-op logger otherwise.
func Default() Logger {
	if CLILogger != nil {
		return CLILogger
	}
	if ServerLogger != nil {
		return ServerLogger
	}
	return zap.NewNop()
}

// InitCLILogger initializes the CLI logger with SIMPLE profile.
func InitCLILogger(serviceName string, verbose bool) error {
	logger, err := logging.NewCLI(serviceName)
	if err != nil {
		return fmt.Errorf("initialize CLI logger: %w", err)
	}
	if verbose {
		logger.SetLevel(logging.DEBUG)
	}
	CLILogger = logger
	return nil
}

// InitServerLogger initializes the server logger with STRUCTURED profile.
// namespace, when set, is attached to every entry.
func InitServerLogger(serviceName, logLevel, environment, namespace string) error {
	staticFields := make(map[string]any)
	if namespace != "" {
		staticFields["namespace"] = namespace
	}
	if environment == "" {
		environment = "production"
	}

	config := &logging.LoggerConfig{
		Profile:      logging.ProfileStructured,
		DefaultLevel: ParseLogLevel(logLevel),
		Service:      serviceName,
		Environment:  environment,
		StaticFields: staticFields,
		Middleware: []logging.MiddlewareConfig{
			{
				Name:    "correlation",
				Enabled: true,
				Order:   100,
				Config:  make(map[string]any),
			},
		},
		Sinks: []logging.SinkConfig{
			{
				Type:   "console",
				Format: "json",
				Console: &logging.ConsoleSinkConfig{
					Stream:   "stderr",
					Colorize: false,
				},
			},
		},
		EnableCaller:     true,
		EnableStacktrace: true,
	}

	logger, err := logging.New(config)
	if err != nil {
		return fmt.Errorf("initialize server logger: %w", err)
	}
	ServerLogger = logger
	return nil
}

// ParseLogLevel converts a config log level to a gofulmen severity name.
func ParseLogLevel(level string) string {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return "TRACE"
	case "debug":
		return "DEBUG"
	case "warn", "warning":
		return "WARN"
	case "error":
		return "ERROR"
	default:
		return "INFO"
	}
}
