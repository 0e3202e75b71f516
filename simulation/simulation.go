// Package simulation drives the coupled environment and populations one
// tick at a time.
package simulation

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/pthm-cable/snow/config"
	"github.com/pthm-cable/snow/environment"
	"github.com/pthm-cable/snow/population"
	"github.com/pthm-cable/snow/telemetry"
)

// ErrShapeMismatch is returned when a population does not have one slot per
// environment particle.
var ErrShapeMismatch = errors.New("environment and population sizes differ")

// Options configures optional outputs of a Simulation.
type Options struct {
	Output *telemetry.OutputManager // CSV output, nil disables
	Store  *telemetry.Store         // run database, nil disables
	RunID  string                   // store key for this run
	Logger *slog.Logger             // defaults to slog.Default()

	// StatsCallback receives every flushed stats window.
	StatsCallback func([]telemetry.WindowStats)
	// LogStats logs window and perf stats when they are flushed.
	LogStats bool
}

// Simulation owns one Environment and one Population per genotype.
type Simulation struct {
	cfg  *config.Config
	env  *environment.Environment
	pops []*population.Population
	opts Options
	log  *slog.Logger

	tick         int64
	time         float64
	abioticEvery int
	lastDT       float64
	nutrients    []float64 // signals from the most recent biotic update
	trajectory   *Trajectory

	collector *telemetry.Collector
	perf      *telemetry.PerfCollector
	bookmarks []*telemetry.BookmarkDetector
	lifetimes *telemetry.LifetimeTracker
}

// New builds the environment and populations described by cfg.
func New(cfg *config.Config, opts Options) (*Simulation, error) {
	env := environment.New(EnvironmentParams(cfg))
	pops := make([]*population.Population, len(cfg.Genotypes))
	for i := range cfg.Genotypes {
		pops[i] = population.New(cfg.Environment.NParticles, PopulationParams(cfg, i))
	}
	return Compose(cfg, env, pops, opts)
}

// Compose wires prebuilt parts into a Simulation. Every population must have
// exactly one slot per particle.
func Compose(cfg *config.Config, env *environment.Environment, pops []*population.Population, opts Options) (*Simulation, error) {
	for i, p := range pops {
		if p.Len() != env.Len() {
			return nil, fmt.Errorf("%w: population %d has %d slots, environment has %d particles",
				ErrShapeMismatch, i, p.Len(), env.Len())
		}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Simulation{
		cfg:       cfg,
		env:       env,
		pops:      pops,
		opts:      opts,
		log:       opts.Logger,
		nutrients: make([]float64, env.Len()),
		collector: telemetry.NewCollector(cfg.Telemetry.StatsWindow, len(pops)),
		perf:      telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		bookmarks: make([]*telemetry.BookmarkDetector, len(pops)),
		lifetimes: telemetry.NewLifetimeTracker(),
	}
	for i := range s.bookmarks {
		s.bookmarks[i] = telemetry.NewBookmarkDetector(cfg.Telemetry.BookmarkHistory)
	}
	for i := 0; i < env.Len(); i++ {
		lin := env.Lineage(i)
		s.lifetimes.Register(lin.Serial, lin.BornTick)
	}
	s.setDT(cfg.Environment.DeltaT)
	return s, nil
}

// EnvironmentParams maps the environment section onto environment.Params.
func EnvironmentParams(cfg *config.Config) environment.Params {
	e := cfg.Environment
	return environment.Params{NParticles: e.NParticles, Ks: e.Ks, KProd: e.KProd, C0: e.C0, KDiff: e.KDiff}
}

// PopulationParams maps genotype i onto population.Params.
func PopulationParams(cfg *config.Config, i int) population.Params {
	g := cfg.Genotypes[i]
	policy := population.PolicyExpected
	if cfg.Simulation.Dispersal == config.DispersalSampled {
		policy = population.PolicySampled
	}
	return population.Params{
		Genotype: population.Genotype{
			Name:    g.Name,
			KGrowth: g.KGrowth,
			GMax:    g.GMax,
			KDet:    g.KDet,
			KMC:     g.KMC,
			ZMC:     g.ZMC,
			NCells:  g.NCells,
		},
		Criterion: Criterion(cfg.Environment.Mode),
		Beta:      cfg.Environment.Beta,
		Capacity:  cfg.Environment.Ks,
		Policy:    policy,
		Source:    rand.NewPCG(uint64(cfg.Simulation.Seed), uint64(i)),
	}
}

// Criterion maps a configured detachment mode onto its policy.
func Criterion(m config.DetachMode) population.Criterion {
	switch m {
	case config.ModeSize:
		return population.CriterionSizeScaled
	case config.ModeConcentration:
		return population.CriterionConcentrationScaled
	}
	return population.CriterionConstant
}

func (s *Simulation) setDT(dt float64) {
	if dt == s.lastDT {
		return
	}
	s.lastDT = dt
	s.abioticEvery = s.cfg.AbioticEvery(dt)
}

// Tick returns the number of ticks run so far.
func (s *Simulation) Tick() int64 { return s.tick }

// Time returns the simulated time.
func (s *Simulation) Time() float64 { return s.time }

// AbioticEvery returns the number of ticks between turnovers at the current dt.
func (s *Simulation) AbioticEvery() int { return s.abioticEvery }

// Environment returns the particle field.
func (s *Simulation) Environment() *environment.Environment { return s.env }

// Populations returns one population per genotype in config order.
func (s *Simulation) Populations() []*population.Population { return s.pops }

// Perf returns the tick timing collector.
func (s *Simulation) Perf() *telemetry.PerfCollector { return s.perf }

// attachedCounts sums attached cells per particle over all genotypes.
func (s *Simulation) attachedCounts() []int {
	counts := make([]int, s.env.Len())
	for _, p := range s.pops {
		for i := range counts {
			counts[i] += p.Attached(i).Size()
		}
	}
	return counts
}

// Step advances one tick of length dt: nutrient release, growth, migration,
// then turnover when the cadence is due. It returns the number of cells
// committed by growth across all genotypes.
func (s *Simulation) Step(dt float64) float64 {
	s.setDT(dt)
	s.perf.StartTick()

	s.perf.StartPhase(telemetry.PhaseNutrient)
	nutrients, concs := s.env.BioticUpdate(s.attachedCounts())
	s.nutrients = nutrients

	var change float64
	s.perf.StartPhase(telemetry.PhaseGrowth)
	for _, p := range s.pops {
		change += p.Grow(nutrients, dt)
	}
	s.perf.StartPhase(telemetry.PhaseMigration)
	for _, p := range s.pops {
		p.Migrate(concs, dt)
	}

	s.tick++
	s.time += dt

	if s.tick%int64(s.abioticEvery) == 0 {
		s.perf.StartPhase(telemetry.PhaseTurnover)
		s.abioticUpdate()
	}

	s.perf.StartPhase(telemetry.PhaseTelemetry)
	s.record()
	s.perf.EndTick()
	return change
}

func (s *Simulation) abioticUpdate() {
	oldest := s.env.Lineage(0)
	remaining := s.env.Particle(0).Conc

	s.env.Turnover()
	var lost int
	for _, p := range s.pops {
		lost += p.Turnover()
	}
	s.log.Debug("turnover", "tick", s.tick, "lost", lost)

	if ls := s.lifetimes.Remove(oldest.Serial, s.tick); ls != nil {
		ls.RemainingConc = remaining
		ls.Lost = lost
		s.log.Debug("particle retired", "particle", *ls)
		if err := s.opts.Output.WriteLifetime(*ls); err != nil {
			s.log.Error("failed to write lifetime", "error", err)
		}
	}
	newest := s.env.Lineage(s.env.Len() - 1)
	s.lifetimes.Register(newest.Serial, newest.BornTick)
}

// Lifetimes returns the tracker of particles currently in the ring.
func (s *Simulation) Lifetimes() *telemetry.LifetimeTracker { return s.lifetimes }

// Structure is a snapshot of every particle and compartment in logical order.
type Structure struct {
	Genotypes []string
	Conc      []float64
	Serial    []uint64
	Attached  [][]int // [genotype][particle]
	Free      [][]int // [genotype][particle]
}

// Structure returns the current population structure.
func (s *Simulation) Structure() Structure {
	st := Structure{
		Genotypes: make([]string, len(s.pops)),
		Conc:      s.env.Concentrations(),
		Serial:    make([]uint64, s.env.Len()),
		Attached:  make([][]int, len(s.pops)),
		Free:      make([][]int, len(s.pops)),
	}
	for i := range st.Serial {
		st.Serial[i] = s.env.Lineage(i).Serial
	}
	for g, p := range s.pops {
		st.Genotypes[g] = p.Genotype().Name
		st.Attached[g] = p.AttachedSizes()
		st.Free[g] = p.FreeSizes()
	}
	return st
}

// TotalCells counts every cell of every genotype.
func (s *Simulation) TotalCells() int {
	var n int
	for _, p := range s.pops {
		n += p.Total()
	}
	return n
}

// MeanNutrient averages the last nutrient signal over particles occupied by
// genotype g.
func (s *Simulation) MeanNutrient(g int) float64 {
	var sum float64
	var n int
	p := s.pops[g]
	for i, nut := range s.nutrients {
		if p.Attached(i).Size() > 0 {
			sum += nut
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
