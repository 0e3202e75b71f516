// Package main provides CMA-ES calibration of genotype detachment and
// dispersal parameters against final community size.
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/snow/config"
	"github.com/pthm-cable/snow/renderer"
	"github.com/pthm-cable/snow/simulation"
)

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

type optimizeOptions struct {
	configPath string
	outputDir  string
	evals      int
	seeds      int
	finalTime  float64
	population int
	parallel   int
}

func newOptimizeCmd() *cobra.Command {
	var opts optimizeOptions
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Search kdet and zmc for the largest steady community",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOptimize(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.configPath, "config", "", "Base config YAML file (empty = use defaults)")
	cmd.Flags().StringVar(&opts.outputDir, "output", "", "Output directory for results")
	cmd.Flags().IntVar(&opts.evals, "evals", 200, "Maximum number of evaluations")
	cmd.Flags().IntVar(&opts.seeds, "seeds", 3, "Number of seeds per evaluation")
	cmd.Flags().Float64Var(&opts.finalTime, "final-time", 0, "Simulated time per run (0 = use config)")
	cmd.Flags().IntVar(&opts.population, "population", 0, "CMA-ES population size (0 = auto)")
	cmd.Flags().IntVar(&opts.parallel, "parallel", 0, "Concurrent seed runs (0 = all seeds)")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func runOptimize(cmd *cobra.Command, opts optimizeOptions) error {
	if opts.seeds < 1 || opts.evals < 1 {
		return fmt.Errorf("--seeds and --evals must be positive")
	}
	if err := os.MkdirAll(opts.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	baseCfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	finalTime := opts.finalTime
	if finalTime <= 0 {
		finalTime = baseCfg.Simulation.FinalTime
	}

	params := NewParamVector(baseCfg)
	if params.Dim() == 0 {
		return fmt.Errorf("config has no genotypes to calibrate")
	}

	evalSeeds := make([]int64, opts.seeds)
	for i := range evalSeeds {
		evalSeeds[i] = int64(i*1000 + 42)
	}
	evaluator := NewFitnessEvaluator(params, finalTime, evalSeeds, baseCfg, opts.parallel)

	dim := params.Dim()
	initX := params.Normalize(params.DefaultVector())

	popSize := opts.population
	if popSize == 0 {
		popSize = 4 + int(3.0*float64(dim)/2.0)
	}
	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}
	settings := &optimize.Settings{
		FuncEvaluations: opts.evals,
		Concurrent:      0,
	}

	logPath := filepath.Join(opts.outputDir, "optimize_log.csv")
	logFile, err := os.Create(logPath)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	defer logFile.Close()

	logWriter := csv.NewWriter(logFile)
	defer logWriter.Flush()

	header := []string{"eval", "fitness", "occupancy"}
	for _, spec := range params.Specs {
		header = append(header, spec.Name)
	}
	if err := logWriter.Write(header); err != nil {
		return err
	}

	hof := NewHallOfFame(10)
	evalCount := 0
	bestFitness := 1e18
	var bestParams []float64
	startTime := time.Now()
	out := cmd.OutOrStdout()

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			clamped := params.Clamp(params.Denormalize(x))
			fitness := evaluator.Evaluate(clamped)
			evalCount++

			if fitness < bestFitness {
				bestFitness = fitness
				bestParams = append(bestParams[:0], clamped...)
			}

			occupancy := evaluator.LastOccupancy()
			hof.Consider(evalCount, fitness, occupancy, params, clamped)
			row := []string{strconv.Itoa(evalCount), fmt.Sprintf("%.6f", fitness), fmt.Sprintf("%.4f", occupancy)}
			for _, v := range clamped {
				row = append(row, fmt.Sprintf("%.6f", v))
			}
			if err := logWriter.Write(row); err != nil {
				slog.Error("failed to write log row", "error", err)
			}
			logWriter.Flush()

			elapsed := time.Since(startTime)
			avgPerEval := elapsed / time.Duration(evalCount)
			remaining := time.Duration(opts.evals-evalCount) * avgPerEval
			fmt.Fprintf(out, "Eval %d/%d: cells=%.1f occupancy=%.2f (best=%.1f) | elapsed: %s, ETA: %s\n",
				evalCount, opts.evals, -fitness, occupancy, -bestFitness,
				formatDuration(elapsed), formatDuration(max(remaining, 0)))

			return fitness
		},
	}

	slog.Info("starting CMA-ES optimization",
		"params", dim,
		"population", popSize,
		"max_evals", opts.evals,
		"seeds", opts.seeds,
		"final_time", finalTime,
	)

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		slog.Warn("optimization ended", "error", err)
	}
	if bestParams == nil {
		if result == nil {
			return fmt.Errorf("optimization produced no evaluations")
		}
		bestParams = params.Clamp(params.Denormalize(result.X))
	}

	fmt.Fprintf(out, "\nOptimization complete after %d evaluations in %s\n", evalCount, formatDuration(time.Since(startTime)))
	fmt.Fprintf(out, "Best mean final cells: %.1f\n", -bestFitness)
	fmt.Fprintln(out, "\nBest parameters:")
	for i, spec := range params.Specs {
		fmt.Fprintf(out, "  %s: %.6f\n", spec.Name, bestParams[i])
	}

	bestCfg := baseCfg.Clone()
	params.ApplyToConfig(bestCfg, bestParams)
	bestCfg.Simulation.FinalTime = finalTime

	configOutPath := filepath.Join(opts.outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		return fmt.Errorf("failed to write best config: %w", err)
	}
	slog.Info("best config saved", "path", configOutPath)

	hofPath := filepath.Join(opts.outputDir, "hall_of_fame.json")
	if err := hof.Save(hofPath); err != nil {
		slog.Error("failed to write hall of fame", "error", err)
	} else {
		slog.Info("hall of fame saved", "path", hofPath)
	}

	return plotBest(cmd.Context(), bestCfg, evalSeeds[0], filepath.Join(opts.outputDir, "best_trajectory.png"))
}

// plotBest replays the best configuration with one seed and charts it.
func plotBest(ctx context.Context, cfg *config.Config, seed int64, path string) error {
	cfg = cfg.Clone()
	cfg.Simulation.Seed = seed
	sim, err := simulation.New(cfg, simulation.Options{Logger: slog.Default()})
	if err != nil {
		return err
	}
	traj, err := sim.Run(ctx, cfg.Simulation.FinalTime, cfg.Environment.DeltaT)
	if err != nil {
		return err
	}
	if err := renderer.WriteTrajectoryPNG(path, traj, renderer.DefaultChartOptions()); err != nil {
		return fmt.Errorf("failed to write trajectory chart: %w", err)
	}
	slog.Info("best trajectory chart saved", "path", path)
	return nil
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	if err := newOptimizeCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
