package metrics

import (
	"time"

	"github.com/namelens/orgmatch/internal/observability"
)

// Matching and verification metrics
const (
	StageMatches     = "orgmatch_stage_matches"
	StageDuration    = "orgmatch_stage_duration_ms"
	VerifyDecisions  = "orgmatch_verify_decisions_total"
	JudgeAttempts    = "orgmatch_judge_attempts_total"
	CheckpointWrites = "orgmatch_checkpoint_writes_total"
)

// RecordStage records the outcome of one cascade stage.
func RecordStage(stage string, matches int, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	labels := map[string]string{"stage": stage}
	_ = observability.TelemetrySystem.Gauge(StageMatches, float64(matches), labels)
	_ = observability.TelemetrySystem.Histogram(StageDuration, duration, labels)
}

// RecordDecision records one verification verdict.
func RecordDecision(decision string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			VerifyDecisions,
			1,
			map[string]string{"decision": decision},
		)
	}
}

// RecordJudgeAttempt records a single judge request and whether it failed.
func RecordJudgeAttempt(success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			JudgeAttempts,
			1,
			map[string]string{"status": status},
		)
	}
}

// RecordCheckpoint records a persisted verification batch.
func RecordCheckpoint() {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(CheckpointWrites, 1, nil)
	}
}
