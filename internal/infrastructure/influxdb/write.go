package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/hud-informer/internal/pipeline"
)

// WriteStepMetric writes a single pipeline step measurement.
//
// Each call records the duration, outcome, fallback usage and token
// consumption of one step of a generation run. The write is non-blocking;
// data is batched and sent asynchronously.
//
// Parameters:
//   - runID: Identifier of the generation run the step belongs to
//   - mode: Pipeline mode ("three_step" or "two_step")
//   - step: The completed step to record
func (c *Client) WriteStepMetric(runID string, mode string, step pipeline.StepResult) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"pipeline_step",
		map[string]string{
			"step":  step.Name,
			"mode":  mode,
			"model": step.Model,
		},
		map[string]interface{}{
			"run_id":        runID,
			"duration_ms":   step.Duration.Milliseconds(),
			"success":       step.Success,
			"used_fallback": step.UsedFallback,
			"input_tokens":  step.Usage.InputTokens,
			"output_tokens": step.Usage.OutputTokens,
			"total_tokens":  step.Usage.TotalTokens,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteRunSummary writes the aggregate measurement for a completed run.
//
// Records end-to-end duration, success, total token consumption and which
// artifacts were produced. Timestamped at the run's finish time so the
// series lines up with when the work actually completed.
//
// Parameters:
//   - outcome: The finished run to record
func (c *Client) WriteRunSummary(outcome pipeline.Outcome) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"pipeline_run",
		map[string]string{
			"mode": outcome.Mode,
		},
		map[string]interface{}{
			"run_id":        outcome.RunID,
			"duration_ms":   outcome.Duration.Milliseconds(),
			"success":       outcome.Success,
			"steps":         len(outcome.Steps),
			"input_tokens":  outcome.TotalUsage.InputTokens,
			"output_tokens": outcome.TotalUsage.OutputTokens,
			"total_tokens":  outcome.TotalUsage.TotalTokens,
			"image_written": outcome.Artifacts.ImagePath != "",
			"video_written": outcome.Artifacts.VideoPath != "",
		},
		outcome.FinishedAt,
	)

	c.writeAPI.WritePoint(point)

	for _, step := range outcome.Steps {
		c.WriteStepMetric(outcome.RunID, outcome.Mode, step)
	}
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
