package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the population structure of a run at one tick.
type Snapshot struct {
	Version int    `json:"version"`
	RunID   string `json:"run_id,omitempty"`
	Seed    int64  `json:"seed"`

	Tick int64   `json:"tick"`
	Time float64 `json:"time"`

	Genotypes []string        `json:"genotypes"`
	Particles []ParticleState `json:"particles"` // oldest first

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// ParticleState holds one particle and its compartments.
type ParticleState struct {
	Serial   uint64  `json:"serial"`
	BornTick int64   `json:"born_tick"`
	Conc     float64 `json:"conc"`
	Attached []int   `json:"attached"` // per genotype
	Free     []int   `json:"free"`     // per genotype

	Lifetime *LifetimeStats `json:"lifetime,omitempty"`
}

// TotalCells sums attached and free cells over every particle.
func (s *Snapshot) TotalCells() int {
	var n int
	for _, p := range s.Particles {
		for g := range p.Attached {
			n += p.Attached[g] + p.Free[g]
		}
	}
	return n
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := fmt.Sprintf("snapshot_%d", snapshot.Tick)
	if snapshot.Bookmark != nil {
		sanitized := strings.ReplaceAll(string(snapshot.Bookmark.Type), " ", "_")
		name = fmt.Sprintf("snapshot_%d_%s_%s", snapshot.Tick, sanitized, snapshot.Bookmark.Genotype)
	}
	path := filepath.Join(dir, name+".json")

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snapshot.Version, SnapshotVersion)
	}
	return &snapshot, nil
}
