package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/snow/config"
	"github.com/pthm-cable/snow/simulation"
	"github.com/pthm-cable/snow/telemetry"
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params    *ParamVector
	finalTime float64
	seeds     []int64
	base      *config.Config
	parallel  int

	mu            sync.Mutex
	bestFitness   float64
	lastOccupancy float64 // mean occupied fraction from the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator. parallel bounds concurrent
// seed runs, 0 runs every seed at once.
func NewFitnessEvaluator(params *ParamVector, finalTime float64, seeds []int64, base *config.Config, parallel int) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		finalTime:   finalTime,
		seeds:       seeds,
		base:        base,
		parallel:    parallel,
		bestFitness: math.Inf(1),
	}
}

// LastOccupancy returns the particle occupancy from the most recent evaluation.
func (fe *FitnessEvaluator) LastOccupancy() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastOccupancy
}

// runResult holds the results from a single simulation run.
type runResult struct {
	finalTotal int
	occupancy  float64 // occupied particles / particles in the last window
}

// Evaluate computes fitness for a raw parameter vector (lower = better).
// Fitness is the negated mean final cell count across seeds.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.base.Clone()
	fe.params.ApplyToConfig(cfg, x)

	results := make([]runResult, len(fe.seeds))
	g, ctx := errgroup.WithContext(context.Background())
	if fe.parallel > 0 {
		g.SetLimit(fe.parallel)
	}
	for i, seed := range fe.seeds {
		g.Go(func() error {
			r, err := fe.runSimulation(ctx, cfg, seed)
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.Error("evaluation failed", "error", err)
		return math.Inf(1)
	}

	totals := make([]float64, len(results))
	occupancy := make([]float64, len(results))
	for i, r := range results {
		totals[i] = float64(r.finalTotal)
		occupancy[i] = r.occupancy
	}
	fitness := -stat.Mean(totals, nil)

	fe.mu.Lock()
	fe.bestFitness = min(fe.bestFitness, fitness)
	fe.lastOccupancy = stat.Mean(occupancy, nil)
	fe.mu.Unlock()

	return fitness
}

// runSimulation executes one headless run of cfg with the given seed.
func (fe *FitnessEvaluator) runSimulation(ctx context.Context, base *config.Config, seed int64) (runResult, error) {
	cfg := base.Clone()
	cfg.Simulation.Seed = seed

	var last []telemetry.WindowStats
	sim, err := simulation.New(cfg, simulation.Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		StatsCallback: func(stats []telemetry.WindowStats) {
			last = stats
		},
	})
	if err != nil {
		return runResult{}, err
	}
	if _, err := sim.Run(ctx, fe.finalTime, cfg.Environment.DeltaT); err != nil {
		return runResult{}, err
	}

	r := runResult{finalTotal: sim.TotalCells()}
	if len(last) > 0 {
		var occupied int
		for _, w := range last {
			occupied = max(occupied, w.Occupied)
		}
		r.occupancy = float64(occupied) / float64(cfg.Environment.NParticles)
	}
	return r, nil
}
