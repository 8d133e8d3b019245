package pipeline

import (
	"time"

	"github.com/nerrad567/hud-informer/internal/openai"
)

// BuildOutcome aggregates attempted step results into the run record.
//
// The function is pure and idempotent: it copies the steps slice, never
// mutates its inputs, and produces the same outcome for the same inputs.
// Success requires every attempted step to have succeeded and a nil run
// error.
//
// Parameters:
//   - runID: Run identifier
//   - mode: Stage sequence that ran
//   - started, finished: Run boundaries
//   - steps: Attempted stage results, in execution order
//   - artifacts: Written artifact paths
//   - runErr: The short-circuiting failure, nil on success
//
// Returns:
//   - Outcome: Complete run record
func BuildOutcome(runID, mode string, started, finished time.Time,
	steps []StepResult, artifacts Artifacts, runErr error) Outcome {

	outcome := Outcome{
		RunID:      runID,
		Mode:       mode,
		StartedAt:  started,
		FinishedAt: finished,
		Duration:   finished.Sub(started),
		Success:    runErr == nil,
		Steps:      append([]StepResult(nil), steps...),
		Artifacts:  artifacts,
		TotalUsage: totalUsage(steps),
	}
	if runErr != nil {
		outcome.Error = runErr.Error()
	}
	for _, step := range steps {
		if !step.Success {
			outcome.Success = false
		}
	}
	return outcome
}

// totalUsage sums token usage across steps, counting fallback attempts
// through the single result each stage contributes.
func totalUsage(steps []StepResult) openai.Usage {
	var total openai.Usage
	for _, step := range steps {
		total.InputTokens += step.Usage.InputTokens
		total.OutputTokens += step.Usage.OutputTokens
		total.TotalTokens += step.Usage.TotalTokens
	}
	return total
}
