package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"testing"

	gferrors "github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/require"

	"github.com/namelens/orgmatch/internal/ailink"
	"github.com/namelens/orgmatch/internal/core"
)

func TestExitCodeFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want foundry.ExitCode
	}{
		{"Credentials", fmt.Errorf("%w: api_key", ailink.ErrMissingCredentials), foundry.ExitConfigInvalid},
		{"MissingColumn", fmt.Errorf("match: %w", &core.MissingColumnError{Table: "query", Column: "name"}), foundry.ExitConfigInvalid},
		{"DuplicateKey", &core.DuplicateKeyError{Key: "acme", FirstID: "1", SecondID: "2"}, foundry.ExitConfigInvalid},
		{"MissingFile", fmt.Errorf("open: %w", os.ErrNotExist), foundry.ExitFileNotFound},
		{"Other", errors.New("boom"), foundry.ExitFailure},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, exitCodeFor(tc.err))
		})
	}
}

func captureExit(t *testing.T) (*bytes.Buffer, *int) {
	t.Helper()
	var buf bytes.Buffer
	code := -1
	origExit, origStderr := osExit, stderr
	osExit = func(c int) { code = c }
	stderr = &buf
	t.Cleanup(func() { osExit, stderr = origExit, origStderr })
	return &buf, &code
}

func TestExitWithCodeStderrReportsEnvelope(t *testing.T) {
	out, code := captureExit(t)

	env := gferrors.NewErrorEnvelope("VALIDATION_FAILED", "query table has no name column").WithCorrelationID("run-1")
	ExitWithCodeStderr(foundry.ExitConfigInvalid, "Matching failed", fmt.Errorf("match: %w", env))

	require.Equal(t, int(foundry.ExitConfigInvalid), *code)
	require.Contains(t, out.String(), "[VALIDATION_FAILED]")
	require.Contains(t, out.String(), "correlation: run-1")
	require.Contains(t, out.String(), "Exit Code:")
}

func TestExitWithCodeFallsBackToStderrWithoutLogger(t *testing.T) {
	out, code := captureExit(t)

	ExitWithCode(nil, foundry.ExitFailure, "Verification failed", errors.New("checkpoint dir is read-only"))

	require.Equal(t, int(foundry.ExitFailure), *code)
	require.Contains(t, out.String(), "FATAL: Verification failed: checkpoint dir is read-only")
}
