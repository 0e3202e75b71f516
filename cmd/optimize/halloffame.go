package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// HallEntry is one evaluated parameter set.
type HallEntry struct {
	Eval      int                `json:"eval"`
	Cells     float64            `json:"mean_final_cells"`
	Occupancy float64            `json:"occupancy"`
	Params    map[string]float64 `json:"params"`
}

// HallOfFame keeps the best evaluations seen, largest community first.
type HallOfFame struct {
	entries []HallEntry
	maxSize int
}

// NewHallOfFame creates a hall holding at most maxSize entries.
func NewHallOfFame(maxSize int) *HallOfFame {
	return &HallOfFame{
		entries: make([]HallEntry, 0, maxSize),
		maxSize: maxSize,
	}
}

// Consider offers an evaluation to the hall. Returns true if it was kept.
func (hof *HallOfFame) Consider(eval int, fitness, occupancy float64, params *ParamVector, values []float64) bool {
	entry := HallEntry{
		Eval:      eval,
		Cells:     -fitness,
		Occupancy: occupancy,
		Params:    make(map[string]float64, len(params.Specs)),
	}
	for i, spec := range params.Specs {
		entry.Params[spec.Name] = values[i]
	}

	// Find insertion point (sorted descending by cells)
	idx := sort.Search(len(hof.entries), func(i int) bool {
		return hof.entries[i].Cells < entry.Cells
	})
	if idx >= hof.maxSize {
		return false
	}

	hof.entries = append(hof.entries, HallEntry{})
	copy(hof.entries[idx+1:], hof.entries[idx:])
	hof.entries[idx] = entry
	if len(hof.entries) > hof.maxSize {
		hof.entries = hof.entries[:hof.maxSize]
	}
	return true
}

// Entries returns the hall, best first.
func (hof *HallOfFame) Entries() []HallEntry {
	return hof.entries
}

// Save writes the hall as indented JSON.
func (hof *HallOfFame) Save(path string) error {
	data, err := json.MarshalIndent(hof.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal hall of fame: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write hall of fame: %w", err)
	}
	return nil
}
