package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/hud-informer/internal/infrastructure/database"
)

// HistoryStore persists one row per run in the SQLite run-history table.
// Persistence is best-effort: the caller logs failures and moves on.
type HistoryStore struct {
	db *database.DB
}

// NewHistoryStore constructs a HistoryStore over an open database.
func NewHistoryStore(db *database.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// SaveRun inserts the outcome of one run.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - outcome: Completed run record
//
// Returns:
//   - error: Encode or insert failure
func (h *HistoryStore) SaveRun(ctx context.Context, outcome Outcome) error {
	steps, err := json.Marshal(outcome.Steps)
	if err != nil {
		return fmt.Errorf("encoding step results: %w", err)
	}

	_, err = h.db.ExecContext(ctx, `
		INSERT INTO runs (
			id, mode, started_at, finished_at, duration_ms, success, error,
			steps, image_path, video_path, input_tokens, output_tokens, total_tokens
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		outcome.RunID,
		outcome.Mode,
		outcome.StartedAt.UTC().Format(time.RFC3339),
		outcome.FinishedAt.UTC().Format(time.RFC3339),
		outcome.Duration.Milliseconds(),
		boolToInt(outcome.Success),
		outcome.Error,
		string(steps),
		outcome.Artifacts.ImagePath,
		outcome.Artifacts.VideoPath,
		outcome.TotalUsage.InputTokens,
		outcome.TotalUsage.OutputTokens,
		outcome.TotalUsage.TotalTokens,
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", outcome.RunID, err)
	}
	return nil
}

// RecentRuns returns the most recent runs, newest first.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - limit: Maximum rows to return
//
// Returns:
//   - []Outcome: Decoded run records
//   - error: Query or decode failure
func (h *HistoryStore) RecentRuns(ctx context.Context, limit int) ([]Outcome, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, mode, started_at, finished_at, duration_ms, success, error,
		       steps, image_path, video_path, input_tokens, output_tokens, total_tokens
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var outcomes []Outcome
	for rows.Next() {
		var (
			o                    Outcome
			started, finished    string
			durationMS           int64
			success              int
			steps                string
		)
		if err := rows.Scan(&o.RunID, &o.Mode, &started, &finished, &durationMS,
			&success, &o.Error, &steps, &o.Artifacts.ImagePath, &o.Artifacts.VideoPath,
			&o.TotalUsage.InputTokens, &o.TotalUsage.OutputTokens, &o.TotalUsage.TotalTokens,
		); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}

		o.StartedAt, _ = time.Parse(time.RFC3339, started)   //nolint:errcheck // Format is ours
		o.FinishedAt, _ = time.Parse(time.RFC3339, finished) //nolint:errcheck // Format is ours
		o.Duration = time.Duration(durationMS) * time.Millisecond
		o.Success = success != 0
		if err := json.Unmarshal([]byte(steps), &o.Steps); err != nil {
			return nil, fmt.Errorf("decoding step results for %s: %w", o.RunID, err)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
