package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSnapshotSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()

	snapshot := &Snapshot{
		Version:   SnapshotVersion,
		RunID:     "run-1",
		Seed:      42,
		Tick:      1000,
		Time:      100,
		Genotypes: []string{"wt", "mut"},
		Particles: []ParticleState{
			{Serial: 11, BornTick: 900, Conc: 3.5, Attached: []int{4, 0}, Free: []int{1, 2}},
			{
				Serial: 12, BornTick: 950, Conc: 10, Attached: []int{0, 0}, Free: []int{0, 0},
				Lifetime: &LifetimeStats{Serial: 12, BornTick: 950, ColonizedTick: -1},
			},
		},
		Bookmark: &Bookmark{
			Type:        BookmarkBloom,
			Tick:        1000,
			Genotype:    "wt",
			Description: "Test bookmark",
		},
	}

	path, err := SaveSnapshot(snapshot, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if !strings.HasSuffix(path, "snapshot_1000_bloom_wt.json") {
		t.Errorf("unexpected snapshot path %s", path)
	}

	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if diff := cmp.Diff(snapshot, loaded); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
	if loaded.TotalCells() != 7 {
		t.Errorf("TotalCells = %d, want 7", loaded.TotalCells())
	}
}

func TestSnapshotWithoutBookmark(t *testing.T) {
	path, err := SaveSnapshot(&Snapshot{Version: SnapshotVersion, Tick: 5}, filepath.Join(t.TempDir(), "nested"))
	if err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if filepath.Base(path) != "snapshot_5.json" {
		t.Errorf("unexpected snapshot name %s", filepath.Base(path))
	}
}

func TestLoadSnapshotRejectsVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.json")
	if err := os.WriteFile(path, []byte(`{"version": 99, "tick": 1}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSnapshot(path); err == nil {
		t.Error("expected version error")
	}
}
