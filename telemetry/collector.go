package telemetry

import "github.com/pthm-cable/snow/population"

// GenotypeSample is the state of one genotype at a window boundary.
type GenotypeSample struct {
	Name         string
	Attached     int
	Free         int
	Sizes        []int // attached cells per particle
	MeanNutrient float64
	GrowthRate   float64
}

// EnvironmentSample is the state of the particle field at a window boundary.
type EnvironmentSample struct {
	TotalNutrient float64
	Depleted      int
}

// Collector accumulates per-genotype tick counts within windows and produces
// WindowStats.
type Collector struct {
	windowTicks     int64
	windowStartTick int64

	// Movement counters for the current window, one per genotype
	counts []population.TickStats
}

// NewCollector creates a collector flushing every windowTicks ticks.
func NewCollector(windowTicks int, ngenotypes int) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{
		windowTicks: int64(windowTicks),
		counts:      make([]population.TickStats, ngenotypes),
	}
}

// Record adds one tick of movement counts for genotype g.
func (c *Collector) Record(g int, s population.TickStats) {
	acc := &c.counts[g]
	acc.Born += s.Born
	acc.Detached += s.Detached
	acc.Attached += s.Attached
	acc.Lost += s.Lost
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int64) bool {
	return currentTick-c.windowStartTick >= c.windowTicks
}

// Flush produces one WindowStats per genotype and resets counters for the
// next window. samples must be in the same genotype order used by Record.
func (c *Collector) Flush(currentTick int64, simTime float64, samples []GenotypeSample, env EnvironmentSample) []WindowStats {
	out := make([]WindowStats, len(samples))
	for i, s := range samples {
		sizes := make([]float64, 0, len(s.Sizes))
		occupied := 0
		for _, n := range s.Sizes {
			sizes = append(sizes, float64(n))
			if n > 0 {
				occupied++
			}
		}
		mean, std, p10, p50, p90 := ComputeDistribution(sizes)

		var counts population.TickStats
		if i < len(c.counts) {
			counts = c.counts[i]
		}

		out[i] = WindowStats{
			WindowStartTick: c.windowStartTick,
			WindowEndTick:   currentTick,
			SimTime:         simTime,
			Genotype:        s.Name,

			Attached: s.Attached,
			Free:     s.Free,
			Total:    s.Attached + s.Free,
			Occupied: occupied,

			Born:        counts.Born,
			Detached:    counts.Detached,
			Attachments: counts.Attached,
			Lost:        counts.Lost,

			MeanNutrient: s.MeanNutrient,
			GrowthRate:   s.GrowthRate,

			ColonyMean: mean,
			ColonyStd:  std,
			ColonyP10:  p10,
			ColonyP50:  p50,
			ColonyP90:  p90,

			TotalNutrient: env.TotalNutrient,
			Depleted:      env.Depleted,
		}
	}

	// Reset for next window
	c.windowStartTick = currentTick
	clear(c.counts)

	return out
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int64 {
	return c.windowTicks
}

// Pending reports whether ticks have been recorded since the last flush.
func (c *Collector) Pending(currentTick int64) bool {
	return currentTick > c.windowStartTick
}
