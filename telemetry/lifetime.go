package telemetry

import "log/slog"

// LifetimeStats tracks one particle from creation to turnover.
type LifetimeStats struct {
	Serial        uint64 `csv:"serial" json:"serial"`
	BornTick      int64  `csv:"born_tick" json:"born_tick"`
	RemovedTick   int64  `csv:"removed_tick" json:"removed_tick"`
	ColonizedTick int64  `csv:"colonized_tick" json:"colonized_tick"` // first tick with an attached cell, -1 if never

	// Colonization
	PeakAttached int   `csv:"peak_attached" json:"peak_attached"`
	CellTicks    int64 `csv:"cell_ticks" json:"cell_ticks"` // attached cells summed over observed ticks

	// State at removal
	RemainingConc float64 `csv:"remaining_conc" json:"remaining_conc"`
	Lost          int     `csv:"lost" json:"lost"`
}

// Age returns the ticks between creation and removal.
func (ls LifetimeStats) Age() int64 { return ls.RemovedTick - ls.BornTick }

// LogValue implements slog.LogValuer.
func (ls LifetimeStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("serial", ls.Serial),
		slog.Int64("age", ls.Age()),
		slog.Int64("colonized_tick", ls.ColonizedTick),
		slog.Int("peak_attached", ls.PeakAttached),
		slog.Float64("remaining_conc", ls.RemainingConc),
		slog.Int("lost", ls.Lost),
	)
}

// LifetimeTracker manages per-particle lifetime statistics keyed by serial.
type LifetimeTracker struct {
	stats map[uint64]*LifetimeStats
}

// NewLifetimeTracker creates a new lifetime tracker.
func NewLifetimeTracker() *LifetimeTracker {
	return &LifetimeTracker{
		stats: make(map[uint64]*LifetimeStats),
	}
}

// Register starts tracking a particle.
func (lt *LifetimeTracker) Register(serial uint64, bornTick int64) {
	lt.stats[serial] = &LifetimeStats{
		Serial:        serial,
		BornTick:      bornTick,
		ColonizedTick: -1,
	}
}

// Observe records the attached cell count of a particle at tick.
func (lt *LifetimeTracker) Observe(serial uint64, attached int, tick int64) {
	s, ok := lt.stats[serial]
	if !ok {
		return
	}
	if attached > 0 && s.ColonizedTick < 0 {
		s.ColonizedTick = tick
	}
	s.PeakAttached = max(s.PeakAttached, attached)
	s.CellTicks += int64(attached)
}

// Get returns the stats for a particle, or nil if untracked.
func (lt *LifetimeTracker) Get(serial uint64) *LifetimeStats {
	return lt.stats[serial]
}

// Remove stops tracking a particle and returns its final stats, or nil if
// it was never registered.
func (lt *LifetimeTracker) Remove(serial uint64, tick int64) *LifetimeStats {
	s, ok := lt.stats[serial]
	if !ok {
		return nil
	}
	delete(lt.stats, serial)
	s.RemovedTick = tick
	return s
}

// Count returns the number of tracked particles.
func (lt *LifetimeTracker) Count() int {
	return len(lt.stats)
}
