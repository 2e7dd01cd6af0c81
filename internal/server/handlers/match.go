package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/namelens/orgmatch/internal/core"
	"github.com/namelens/orgmatch/internal/core/engine"
	"github.com/namelens/orgmatch/internal/core/normalize"
	apperrors "github.com/namelens/orgmatch/internal/errors"
	"github.com/namelens/orgmatch/internal/metrics"
	"github.com/namelens/orgmatch/internal/observability"
	"github.com/namelens/orgmatch/internal/output"
)

const defaultMaxBodyBytes = 32 << 20

var validate = validator.New()

// NameInput is one organization name in a match request.
type NameInput struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name"`
}

// ThresholdsInput overrides the configured thresholds for one request.
type ThresholdsInput struct {
	Similarity *float64 `json:"similarity,omitempty" validate:"omitempty,gte=0,lte=1"`
	Blocking   *float64 `json:"blocking,omitempty" validate:"omitempty,gte=0,lte=1"`
	Rarity     *float64 `json:"rarity,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// MatchRequest is the body of POST /v1/match.
type MatchRequest struct {
	Queries    []NameInput      `json:"queries" validate:"dive"`
	Dictionary []NameInput      `json:"dictionary" validate:"dive"`
	Thresholds *ThresholdsInput `json:"thresholds,omitempty"`
}

// MatchResponse lists matches in stage order.
type MatchResponse struct {
	Matches   []core.MatchResult   `json:"matches"`
	Unmatched int                  `json:"unmatched"`
	Summary   *output.MatchSummary `json:"summary"`
}

// MatchHandler serves the cascade over HTTP.
type MatchHandler struct {
	Options      engine.Options
	Index        engine.IndexBuilder
	MaxBodyBytes int64
}

// ServeHTTP handles POST /v1/match.
func (h *MatchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := h.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	var req MatchRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		apperrors.RespondWithError(w, r, apperrors.WrapInvalidInput(ctx, err, "request body is not a valid match request"))
		return
	}
	if err := validate.Struct(req); err != nil {
		apperrors.RespondWithError(w, r, apperrors.FromPipelineError(ctx, err))
		return
	}
	if req.Thresholds != nil {
		if err := validate.Struct(req.Thresholds); err != nil {
			apperrors.RespondWithError(w, r, apperrors.FromPipelineError(ctx, err))
			return
		}
	}

	opts := h.Options
	applyThresholds(&opts.Thresholds, req.Thresholds)

	logger := observability.OrNop(observability.ServerLogger)
	cascade := engine.NewCascade(opts, h.Index, logger)

	queries := records(req.Queries)
	start := time.Now()
	results, err := cascade.Run(ctx, queries, records(req.Dictionary))
	metrics.RecordRun("http_match", err == nil, time.Since(start))
	if err != nil {
		var dup *core.DuplicateKeyError
		if !errors.As(err, &dup) {
			logger.Warn("Match request failed", zap.Error(err))
		}
		apperrors.RespondWithError(w, r, apperrors.FromPipelineError(ctx, err))
		return
	}

	summary := output.SummarizeMatches(distinctIDs(queries), results)
	response := MatchResponse{
		Matches:   results,
		Unmatched: summary.Unmatched,
		Summary:   summary,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

func applyThresholds(th *core.Thresholds, in *ThresholdsInput) {
	if in == nil {
		return
	}
	if in.Similarity != nil {
		th.Similarity = *in.Similarity
	}
	if in.Blocking != nil {
		th.Blocking = *in.Blocking
	}
	if in.Rarity != nil {
		th.Rarity = *in.Rarity
	}
}

func records(inputs []NameInput) []core.NameRecord {
	out := make([]core.NameRecord, len(inputs))
	for i, in := range inputs {
		out[i] = core.NameRecord{
			ID:             in.ID,
			RawName:        in.Name,
			NormalizedName: normalize.Normalize(in.Name),
		}
	}
	return out
}

func distinctIDs(records []core.NameRecord) int {
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		seen[r.ID] = struct{}{}
	}
	return len(seen)
}
