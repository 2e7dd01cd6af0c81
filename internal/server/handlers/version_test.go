package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namelens/orgmatch/internal/core"
)

func TestVersionHandlerReportsBuildAndCascade(t *testing.T) {
	SetVersionInfo("1.2.3", "abcd123", "2026-10-01T12:00:00Z")
	SetAppName("orgmatch-staging")
	SetThresholds(core.Thresholds{Similarity: 0.93, Blocking: 0.4, Rarity: 0.7})
	t.Cleanup(func() {
		SetAppName("orgmatch")
		SetThresholds(core.DefaultThresholds())
	})

	rec := httptest.NewRecorder()
	VersionHandler(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp VersionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "orgmatch-staging", resp.App.Name)
	assert.Equal(t, "1.2.3", resp.App.Version)
	assert.Equal(t, "abcd123", resp.App.Commit)
	assert.NotEmpty(t, resp.App.GoVersion)
	assert.Equal(t, []core.MatchType{"Perfect", "FuzzyBlocked", "FuzzyTokenSearch", "RarityToken"}, resp.Matching.Stages)
	assert.InDelta(t, 0.93, resp.Matching.Thresholds.Similarity, 1e-9)
	assert.NotEmpty(t, resp.Runtime.Platform)
}
