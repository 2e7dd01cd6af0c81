package errors

import (
	"context"
	stderrors "errors"

	gferrors "github.com/fulmenhq/gofulmen/errors"
	"github.com/go-playground/validator/v10"

	"github.com/namelens/orgmatch/internal/ailink"
	"github.com/namelens/orgmatch/internal/core"
)

// FromPipelineError maps a fatal matching or verification error onto an
// envelope carrying the violating value.
func FromPipelineError(ctx context.Context, err error) *gferrors.ErrorEnvelope {
	var (
		missing   *core.MissingColumnError
		duplicate *core.DuplicateKeyError
		invalid   validator.ValidationErrors
	)

	switch {
	case stderrors.As(err, &missing):
		return WrapValidationError(ctx, err, err.Error()).WithDetails(map[string]interface{}{
			"table":  missing.Table,
			"column": missing.Column,
		})
	case stderrors.As(err, &duplicate):
		return WrapValidationError(ctx, err, err.Error()).WithDetails(map[string]interface{}{
			"key":       duplicate.Key,
			"first_id":  duplicate.FirstID,
			"second_id": duplicate.SecondID,
		})
	case stderrors.As(err, &invalid):
		fields := make([]string, 0, len(invalid))
		for _, fe := range invalid {
			fields = append(fields, fe.Namespace())
		}
		return WrapValidationError(ctx, err, "request failed validation").WithDetails(map[string]interface{}{
			"fields": fields,
		})
	case stderrors.Is(err, ailink.ErrMissingCredentials):
		return WrapInternal(ctx, err, "judgment service credentials are not configured")
	case stderrors.Is(err, context.DeadlineExceeded):
		return WrapTimeout(ctx, err, "request timed out")
	default:
		return WrapInternal(ctx, err, "matching failed")
	}
}
