package telemetry

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/pthm-cable/snow/config"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreRunLifecycle(t *testing.T) {
	s := openTestStore(t)
	cfg := config.Default()

	id, err := s.BeginRun(cfg, "out/run1")
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("run ID %q is not a UUID: %v", id, err)
	}

	windows := []WindowStats{
		{WindowEndTick: 100, Genotype: "wildtype", Attached: 10, Free: 3},
		{WindowEndTick: 100, Genotype: "mutant", Attached: 4},
	}
	if err := s.SaveWindow(id, windows); err != nil {
		t.Fatalf("SaveWindow: %v", err)
	}
	// Re-saving the same window replaces rows
	if err := s.SaveWindow(id, windows); err != nil {
		t.Fatalf("SaveWindow again: %v", err)
	}
	if err := s.SaveBookmark(id, Bookmark{Type: BookmarkBloom, Tick: 50, Genotype: "wildtype"}); err != nil {
		t.Fatalf("SaveBookmark: %v", err)
	}
	if err := s.SaveBookmark(id, Bookmark{Type: BookmarkExtinction, Tick: 90, Genotype: "mutant"}); err != nil {
		t.Fatalf("SaveBookmark: %v", err)
	}
	if err := s.FinishRun(id, 100, 17, "final_time", 10); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	run, err := s.Run(id)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Ticks != 100 || run.FinalTotal != 17 || run.StopReason != "final_time" {
		t.Errorf("unexpected run record %+v", run)
	}
	if run.FinishedAt == nil {
		t.Error("finished_at should be set")
	}
	if run.Genotypes != "wildtype" || run.OutputDir != "out/run1" {
		t.Errorf("unexpected genotypes/output dir: %q %q", run.Genotypes, run.OutputDir)
	}

	n, err := s.WindowCount(id)
	if err != nil || n != 2 {
		t.Errorf("WindowCount = %d, %v; want 2", n, err)
	}
	types, err := s.BookmarkTypes(id)
	if err != nil {
		t.Fatalf("BookmarkTypes: %v", err)
	}
	if diff := cmp.Diff([]string{"bloom", "extinction"}, types); diff != "" {
		t.Errorf("bookmark types mismatch (-want +got):\n%s", diff)
	}
}

func TestStoreListsRuns(t *testing.T) {
	s := openTestStore(t)
	for i := 0; i < 3; i++ {
		if _, err := s.BeginRun(config.Default(), ""); err != nil {
			t.Fatalf("BeginRun: %v", err)
		}
	}
	runs, err := s.Runs()
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 3 {
		t.Errorf("expected 3 runs, got %d", len(runs))
	}
}

func TestStoreUnknownRun(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Run("missing"); err == nil {
		t.Error("expected error for unknown run")
	}
}
