package cmd

import (
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/namelens/orgmatch/internal/ailink"
	"github.com/namelens/orgmatch/internal/core"
	"github.com/namelens/orgmatch/internal/observability"
)

// Swapped by tests.
var (
	osExit           = os.Exit
	stderr io.Writer = os.Stderr
)

// ExitWithCode logs err with the foundry metadata for exitCode and exits.
// A nil logger falls back to stderr.
func ExitWithCode(logger *logging.Logger, exitCode foundry.ExitCode, msg string, err error) {
	info, ok := foundry.GetExitCodeInfo(exitCode)
	if !ok {
		fmt.Fprintf(stderr, "FATAL: %s: %v (exit code: %d)\n", msg, err, exitCode)
		osExit(int(exitCode))
		return
	}
	if logger == nil {
		writeFatal(msg, err, info.Code, info.Name, info.Description)
		osExit(info.Code)
		return
	}

	fields := []zap.Field{
		zap.Int("exit_code", info.Code),
		zap.String("exit_name", info.Name),
		zap.String("exit_category", info.Category),
	}
	var envelope *errors.ErrorEnvelope
	if stderrors.As(err, &envelope) && envelope != nil {
		fields = append(fields,
			zap.String("error_code", envelope.Code),
			zap.String("correlation_id", envelope.CorrelationID),
		)
		if envelope.Context != nil {
			fields = append(fields, zap.Any("error_context", envelope.Context))
		}
	}
	if code := ailink.ErrorCode(err); code != "" && isJudgeFailure(err) {
		fields = append(fields, zap.String("ailink_error", code))
	}
	fields = append(fields, zap.Error(err))
	logger.Error(msg, fields...)
	osExit(info.Code)
}

// ExitWithCodeStderr reports to stderr; for failures before the logger
// exists.
func ExitWithCodeStderr(exitCode foundry.ExitCode, msg string, err error) {
	info, ok := foundry.GetExitCodeInfo(exitCode)
	if !ok {
		fmt.Fprintf(stderr, "FATAL: %s: %v (exit code: %d)\n", msg, err, exitCode)
		osExit(int(exitCode))
		return
	}
	writeFatal(msg, err, info.Code, info.Name, info.Description)
	osExit(info.Code)
}

func writeFatal(msg string, err error, code int, name, description string) {
	var envelope *errors.ErrorEnvelope
	switch {
	case err == nil:
		fmt.Fprintf(stderr, "FATAL: %s\n", msg)
	case stderrors.As(err, &envelope) && envelope != nil:
		fmt.Fprintf(stderr, "FATAL: %s [%s]: %s (correlation: %s)\n", msg, envelope.Code, envelope.Message, envelope.CorrelationID)
	default:
		fmt.Fprintf(stderr, "FATAL: %s: %v\n", msg, err)
	}
	fmt.Fprintf(stderr, "Exit Code: %d (%s) - %s\n", code, name, description)
}

// exitCodeFor picks the foundry exit code for a failed command: bad input
// tables and missing credentials are configuration errors, an unreachable
// judgment service is an external failure.
func exitCodeFor(err error) foundry.ExitCode {
	var (
		missing    *core.MissingColumnError
		duplicate  *core.DuplicateKeyError
		validation validator.ValidationErrors
	)
	switch {
	case stderrors.Is(err, ailink.ErrMissingCredentials),
		stderrors.As(err, &missing),
		stderrors.As(err, &duplicate),
		stderrors.As(err, &validation):
		return foundry.ExitConfigInvalid
	case stderrors.Is(err, fs.ErrNotExist):
		return foundry.ExitFileNotFound
	case ailink.IsTransient(err):
		return foundry.ExitExternalServiceUnavailable
	default:
		return foundry.ExitFailure
	}
}

func isJudgeFailure(err error) bool {
	var raw *ailink.RawResponseError
	return stderrors.Is(err, ailink.ErrMissingCredentials) || stderrors.As(err, &raw) || ailink.IsTransient(err)
}

// fail logs err with its exit code metadata and exits.
func fail(msg string, err error) {
	ExitWithCode(observability.CLILogger, exitCodeFor(err), msg, err)
}
