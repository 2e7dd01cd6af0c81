package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/namelens/orgmatch/internal/core"
	"github.com/namelens/orgmatch/internal/core/engine"
	apperrors "github.com/namelens/orgmatch/internal/errors"
)

func postMatch(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/match", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func newMatchHandler() *MatchHandler {
	opts := engine.DefaultOptions()
	opts.Workers = 2
	return &MatchHandler{Options: opts}
}

func TestMatchHandlerResolvesQueries(t *testing.T) {
	body := `{
		"queries": [
			{"id": "q1", "name": "Apple Inc"},
			{"id": "q2", "name": "Micro soft"},
			{"id": "q3", "name": "Google"},
			{"id": "q4", "name": "Facebook"}
		],
		"dictionary": [
			{"id": "1", "name": "Apple Inc"},
			{"id": "2", "name": "Microsoft Corp"},
			{"id": "3", "name": "Google LLC"}
		]
	}`

	rec := postMatch(t, newMatchHandler(), body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp MatchResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	byQuery := make(map[string]core.MatchResult)
	for _, m := range resp.Matches {
		byQuery[m.QueryID] = m
	}
	require.Equal(t, core.MatchTypePerfect, byQuery["q1"].MatchType)
	require.Equal(t, "1", byQuery["q1"].DictID)
	require.Equal(t, core.MatchTypePerfect, byQuery["q3"].MatchType)
	require.NotContains(t, byQuery, "q4")
	require.Equal(t, 4-len(byQuery), resp.Unmatched)
	require.Equal(t, 4, resp.Summary.Queries)
}

func TestMatchHandlerRejectsDuplicateDictionaryKeys(t *testing.T) {
	body := `{
		"queries": [{"id": "q1", "name": "Acme"}],
		"dictionary": [{"id": "1", "name": "Acme Ltd"}, {"id": "2", "name": "ACME"}]
	}`

	rec := postMatch(t, newMatchHandler(), body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "VALIDATION_FAILED", resp.Error.Code)
	require.Equal(t, "acme", resp.Error.Details["key"])
}

func TestMatchHandlerValidatesInput(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{name: "malformed json", body: `{"queries": [`, code: "INVALID_INPUT"},
		{name: "unknown field", body: `{"names": []}`, code: "INVALID_INPUT"},
		{name: "missing id", body: `{"queries": [{"name": "Acme"}], "dictionary": []}`, code: "VALIDATION_FAILED"},
		{name: "threshold range", body: `{"queries": [], "dictionary": [], "thresholds": {"similarity": 1.2}}`, code: "VALIDATION_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postMatch(t, newMatchHandler(), tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var resp apperrors.HTTPErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			require.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestMatchHandlerAppliesThresholdOverrides(t *testing.T) {
	names := `"queries": [{"id": "q1", "name": "Globex Systemz"}],
		"dictionary": [{"id": "1", "name": "Globex Systems"}, {"id": "2", "name": "Globex Dynamics"}]`

	rec := postMatch(t, newMatchHandler(), "{"+names+"}")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp MatchResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Matches, 1)
	require.Equal(t, "1", resp.Matches[0].DictID)

	rec = postMatch(t, newMatchHandler(), "{"+names+`, "thresholds": {"similarity": 1, "blocking": 1, "rarity": 1}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = MatchResponse{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Empty(t, resp.Matches)
	require.Equal(t, 1, resp.Unmatched)
}
