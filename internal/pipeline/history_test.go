package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/hud-informer/internal/infrastructure/database"
	_ "github.com/nerrad567/hud-informer/migrations"
)

func newTestHistory(t *testing.T) *HistoryStore {
	t.Helper()
	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "informer.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewHistoryStore(db)
}

func TestSaveAndLoadRun(t *testing.T) {
	history := newTestHistory(t)

	started := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	outcome := BuildOutcome("run-1", ModeThreeStep, started, started.Add(40*time.Second),
		sampleSteps(), Artifacts{ImagePath: "/media/generated/hud_display.png"}, nil)

	if err := history.SaveRun(context.Background(), outcome); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	runs, err := history.RecentRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentRuns() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}

	got := runs[0]
	if got.RunID != "run-1" || got.Mode != ModeThreeStep {
		t.Errorf("run = %+v", got)
	}
	if !got.Success {
		t.Error("run not marked successful")
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("started_at = %v, want %v", got.StartedAt, started)
	}
	if got.Duration != 40*time.Second {
		t.Errorf("duration = %v", got.Duration)
	}
	if len(got.Steps) != 3 || got.Steps[1].UsedFallback != true {
		t.Errorf("steps round-trip lost detail: %+v", got.Steps)
	}
	if got.TotalUsage.TotalTokens != 1135 {
		t.Errorf("total tokens = %d", got.TotalUsage.TotalTokens)
	}
	if got.Artifacts.ImagePath != "/media/generated/hud_display.png" {
		t.Errorf("image path = %q", got.Artifacts.ImagePath)
	}
}

func TestRecentRunsNewestFirst(t *testing.T) {
	history := newTestHistory(t)
	base := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)

	for i, id := range []string{"run-a", "run-b", "run-c"} {
		started := base.Add(time.Duration(i) * time.Hour)
		outcome := BuildOutcome(id, ModeTwoStep, started, started.Add(time.Minute), nil, Artifacts{}, nil)
		if err := history.SaveRun(context.Background(), outcome); err != nil {
			t.Fatalf("SaveRun(%s) error = %v", id, err)
		}
	}

	runs, err := history.RecentRuns(context.Background(), 2)
	if err != nil {
		t.Fatalf("RecentRuns() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].RunID != "run-c" || runs[1].RunID != "run-b" {
		t.Errorf("order = %s, %s", runs[0].RunID, runs[1].RunID)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "informer.db"),
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	for i := 0; i < 3; i++ {
		if err := db.Migrate(context.Background()); err != nil {
			t.Fatalf("Migrate() error = %v", err)
		}
	}
	if err := db.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}
