package telemetry

import (
	"log/slog"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for one genotype over a window.
type WindowStats struct {
	WindowStartTick int64   `csv:"-"`
	WindowEndTick   int64   `csv:"window_end"`
	SimTime         float64 `csv:"sim_time"`
	Genotype        string  `csv:"genotype"`

	// Population counts at window end
	Attached int `csv:"attached"`
	Free     int `csv:"free"`
	Total    int `csv:"total"`
	Occupied int `csv:"occupied"`

	// Cell movements during window
	Born        int `csv:"born"`
	Detached    int `csv:"detached"`
	Attachments int `csv:"attachments"`
	Lost        int `csv:"lost"`

	// Kinetics at window end
	MeanNutrient float64 `csv:"mean_nutrient"`
	GrowthRate   float64 `csv:"growth_rate"`

	// Attached cells per particle (sampled at window end)
	ColonyMean float64 `csv:"colony_mean"`
	ColonyStd  float64 `csv:"colony_std"`
	ColonyP10  float64 `csv:"colony_p10"`
	ColonyP50  float64 `csv:"colony_p50"`
	ColonyP90  float64 `csv:"colony_p90"`

	// Environment (shared by all genotypes)
	TotalNutrient float64 `csv:"total_nutrient"`
	Depleted      int     `csv:"depleted"` // particles with no nutrient left
}

// Percentile returns the p-th empirical quantile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	switch {
	case p <= 0:
		return sorted[0]
	case p >= 1:
		return sorted[len(sorted)-1]
	}
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// ComputeDistribution returns mean, population standard deviation and the
// 10th/50th/90th percentiles of values.
func ComputeDistribution(values []float64) (mean, std, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0, 0
	}

	mean, std = stat.PopMeanStdDev(values, nil)

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)

	return mean, std, p10, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_start", s.WindowStartTick),
		slog.Int64("window_end", s.WindowEndTick),
		slog.Float64("sim_time", s.SimTime),
		slog.String("genotype", s.Genotype),
		slog.Int("attached", s.Attached),
		slog.Int("free", s.Free),
		slog.Int("total", s.Total),
		slog.Int("occupied", s.Occupied),
		slog.Int("born", s.Born),
		slog.Int("detached", s.Detached),
		slog.Int("attachments", s.Attachments),
		slog.Int("lost", s.Lost),
		slog.Float64("mean_nutrient", s.MeanNutrient),
		slog.Float64("growth_rate", s.GrowthRate),
		slog.Float64("colony_mean", s.ColonyMean),
		slog.Float64("colony_p50", s.ColonyP50),
		slog.Float64("colony_p90", s.ColonyP90),
		slog.Float64("total_nutrient", s.TotalNutrient),
		slog.Int("depleted", s.Depleted),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTime,
		"genotype", s.Genotype,
		"attached", s.Attached,
		"free", s.Free,
		"occupied", s.Occupied,
		"born", s.Born,
		"detached", s.Detached,
		"attachments", s.Attachments,
		"lost", s.Lost,
		"growth_rate", s.GrowthRate,
		"colony_mean", s.ColonyMean,
		"colony_std", s.ColonyStd,
		"total_nutrient", s.TotalNutrient,
		"depleted", s.Depleted,
	)
}
