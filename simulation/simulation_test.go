package simulation

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pthm-cable/snow/config"
	"github.com/pthm-cable/snow/environment"
	"github.com/pthm-cable/snow/population"
	"github.com/pthm-cable/snow/telemetry"
)

func quietOptions() Options {
	return Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// smallConfig is three particles with two sites each and one seeded cell.
func smallConfig() *config.Config {
	cfg := config.Default()
	cfg.Environment.NParticles = 3
	cfg.Environment.Ks = 2
	cfg.Environment.C0 = 10
	cfg.Environment.KProd = 0.05
	cfg.Environment.KDiff = 1
	cfg.Environment.DeltaT = 0.1
	cfg.Environment.Mode = config.ModeConstant
	cfg.Genotypes = []config.GenotypeConfig{{
		Name: "wt", KGrowth: 1, GMax: 1, KDet: 0.5, KMC: 1, ZMC: 2, NCells: 1,
	}}
	cfg.Telemetry.StatsWindow = 5
	return cfg
}

func newSim(t *testing.T, cfg *config.Config, opts Options) *Simulation {
	t.Helper()
	s, err := New(cfg, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestFirstTickMinesSeededParticleOnly(t *testing.T) {
	s := newSim(t, smallConfig(), quietOptions())
	s.Step(0.1)

	concs := s.Environment().Concentrations()
	if concs[0] >= 10 {
		t.Errorf("particle 0 concentration %v should drop below 10", concs[0])
	}
	if concs[1] != 10 || concs[2] != 10 {
		t.Errorf("uncolonized particles should keep their nutrient, got %v", concs)
	}

	p := s.Populations()[0]
	if diff := cmp.Diff([]int{1, 0, 0}, p.AttachedSizes()); diff != "" {
		t.Errorf("attached mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{0, 0, 0}, p.FreeSizes()); diff != "" {
		t.Errorf("free mismatch (-want +got):\n%s", diff)
	}
	if got := p.Attached(0).Outgoing(); got <= 0 || got >= 1 {
		t.Errorf("outgoing accumulator = %v, want fractional pressure", got)
	}
}

func TestComposeRejectsShapeMismatch(t *testing.T) {
	cfg := smallConfig()
	env := environment.New(EnvironmentParams(cfg))
	pops := []*population.Population{population.New(2, PopulationParams(cfg, 0))}

	_, err := Compose(cfg, env, pops, quietOptions())
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestTurnoverCadence(t *testing.T) {
	cfg := smallConfig()
	cfg.Environment.NParticles = 2
	cfg.Environment.DeltaT = 1
	s := newSim(t, cfg, quietOptions())
	if s.AbioticEvery() != 2 {
		t.Fatalf("AbioticEvery = %d, want 2", s.AbioticEvery())
	}

	s.Step(1)
	if got := s.Environment().Lineage(0).Serial; got != 1 {
		t.Fatalf("no turnover expected after one tick, head serial %d", got)
	}

	s.Step(1)
	env := s.Environment()
	if got := env.Lineage(1).Serial; got != 3 {
		t.Errorf("recycled particle serial = %d, want 3", got)
	}
	if got := env.Lineage(1).BornTick; got != 2 {
		t.Errorf("recycled particle born tick = %d, want 2", got)
	}
	if got := env.Particle(1).Conc; got != cfg.Environment.C0 {
		t.Errorf("recycled particle concentration = %v, want %v", got, cfg.Environment.C0)
	}
	p := s.Populations()[0]
	if p.Attached(1).Size() != 0 || p.Free(1).Size() != 0 {
		t.Errorf("recycled slot should be empty, got attached %d free %d", p.Attached(1).Size(), p.Free(1).Size())
	}
}

func TestTurnoverRetiresOldestParticle(t *testing.T) {
	cfg := smallConfig()
	cfg.Environment.NParticles = 2
	cfg.Environment.DeltaT = 1
	out, err := telemetry.NewOutputManager(t.TempDir(), false)
	if err != nil {
		t.Fatal(err)
	}
	opts := quietOptions()
	opts.Output = out
	s := newSim(t, cfg, opts)

	lt := s.Lifetimes()
	if lt.Count() != 2 {
		t.Fatalf("tracked particles = %d, want 2", lt.Count())
	}
	s.Step(1)
	s.Step(1)

	if lt.Count() != 2 {
		t.Errorf("tracked particles after turnover = %d, want 2", lt.Count())
	}
	if lt.Get(1) != nil {
		t.Error("retired particle 1 is still tracked")
	}
	fresh := lt.Get(3)
	if fresh == nil {
		t.Fatal("replacement particle 3 is not tracked")
	}
	if fresh.BornTick != 2 || fresh.ColonizedTick != -1 || fresh.PeakAttached != 0 {
		t.Errorf("unexpected replacement stats %+v", *fresh)
	}

	if err := out.Close(); err != nil {
		t.Fatal(err)
	}
	if n := countRows(t, filepath.Join(out.Dir(), "lifetimes.csv")); n != 2 {
		t.Errorf("lifetimes.csv rows = %d, want header + 1", n)
	}
}

func TestCellsAccountedOverManyTicks(t *testing.T) {
	cfg := smallConfig()
	cfg.Environment.NParticles = 6
	cfg.Environment.Ks = 4
	cfg.Environment.C0 = 50
	cfg.Genotypes[0].NCells = 5
	cfg.Genotypes = append(cfg.Genotypes, config.GenotypeConfig{
		Name: "mut", KGrowth: 1, GMax: 1, KDet: 2, KMC: 2, ZMC: 1, NCells: 3,
	})
	for _, dispersal := range []config.DispersalPolicy{config.DispersalExpected, config.DispersalSampled} {
		t.Run(string(dispersal), func(t *testing.T) {
			c := cfg.Clone()
			c.Simulation.Dispersal = dispersal
			s := newSim(t, c, quietOptions())

			totals := make([]int, len(s.Populations()))
			for g, p := range s.Populations() {
				totals[g] = p.Total()
			}
			for tick := 0; tick < 400; tick++ {
				s.Step(0.5)
				for g, p := range s.Populations() {
					st := p.LastTick()
					totals[g] += st.Born - st.Lost
					if p.Total() != totals[g] {
						t.Fatalf("tick %d genotype %d: total %d, births and losses give %d", tick, g, p.Total(), totals[g])
					}
					for i := 0; i < p.Len(); i++ {
						if p.Attached(i).Size() < 0 || p.Free(i).Size() < 0 {
							t.Fatalf("negative compartment at slot %d", i)
						}
					}
				}
				for i, conc := range s.Environment().Concentrations() {
					if conc < 0 {
						t.Fatalf("tick %d: particle %d concentration %v", tick, i, conc)
					}
				}
			}
		})
	}
}

func TestRunTickCount(t *testing.T) {
	s := newSim(t, smallConfig(), quietOptions())
	traj, err := s.Run(context.Background(), 1.0, 0.1)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if traj.Len() != 10 || s.Tick() != 10 {
		t.Errorf("got %d samples at tick %d, want 10", traj.Len(), s.Tick())
	}
	if traj.Reason != StopFinalTime {
		t.Errorf("reason = %q, want %q", traj.Reason, StopFinalTime)
	}
	if diff := cmp.Diff([]string{"wt"}, traj.Genotypes); diff != "" {
		t.Errorf("genotypes mismatch (-want +got):\n%s", diff)
	}
	times, attached, _ := traj.Series(0)
	if len(times) != 10 || attached[0] < 1 {
		t.Errorf("unexpected series: times %v attached %v", times, attached)
	}
}

func TestRunRejectsNonPositiveIncrement(t *testing.T) {
	s := newSim(t, smallConfig(), quietOptions())
	if _, err := s.Run(context.Background(), 1, 0); err == nil {
		t.Error("expected error for zero time increment")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	s := newSim(t, smallConfig(), quietOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Run(ctx, 10, 0.1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if s.Tick() != 0 {
		t.Errorf("no ticks should run after cancel, got %d", s.Tick())
	}
}

func TestRunUntilSteady(t *testing.T) {
	cfg := smallConfig()
	cfg.Environment.NParticles = 2
	cfg.Genotypes[0].NCells = 0
	s := newSim(t, cfg, quietOptions())

	traj, err := s.RunUntilSteady(context.Background(), 100, 0, 1)
	if err != nil {
		t.Fatalf("RunUntilSteady: %v", err)
	}
	if traj.Reason != StopSteadyState {
		t.Errorf("reason = %q, want %q", traj.Reason, StopSteadyState)
	}
	if s.Tick() != 2 {
		t.Errorf("empty population should settle after one turnover period, got tick %d", s.Tick())
	}
}

func TestRunUntilSteadyHitsMaxTicks(t *testing.T) {
	s := newSim(t, smallConfig(), quietOptions())
	traj, err := s.RunUntilSteady(context.Background(), 3, 0, 0.1)
	if err != nil {
		t.Fatalf("RunUntilSteady: %v", err)
	}
	if traj.Reason != StopMaxTicks || s.Tick() != 3 {
		t.Errorf("got reason %q at tick %d, want %q at 3", traj.Reason, s.Tick(), StopMaxTicks)
	}
}

func TestStructure(t *testing.T) {
	s := newSim(t, smallConfig(), quietOptions())
	want := Structure{
		Genotypes: []string{"wt"},
		Conc:      []float64{10, 10, 10},
		Serial:    []uint64{1, 2, 3},
		Attached:  [][]int{{1, 0, 0}},
		Free:      [][]int{{0, 0, 0}},
	}
	if diff := cmp.Diff(want, s.Structure()); diff != "" {
		t.Errorf("structure mismatch (-want +got):\n%s", diff)
	}
	if s.TotalCells() != 1 {
		t.Errorf("TotalCells = %d, want 1", s.TotalCells())
	}
}

func TestCriterionMapping(t *testing.T) {
	tests := []struct {
		mode config.DetachMode
		want population.Criterion
	}{
		{config.ModeConstant, population.CriterionConstant},
		{config.ModeSize, population.CriterionSizeScaled},
		{config.ModeConcentration, population.CriterionConcentrationScaled},
	}
	for _, tt := range tests {
		if got := Criterion(tt.mode); got != tt.want {
			t.Errorf("Criterion(%q) = %v, want %v", tt.mode, got, tt.want)
		}
	}
}

func countRows(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	return len(rows)
}

func TestRunWritesOutputs(t *testing.T) {
	dir := t.TempDir()
	cfg := smallConfig()

	out, err := telemetry.NewOutputManager(filepath.Join(dir, "out"), true)
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}
	store, err := telemetry.OpenStore(filepath.Join(dir, "runs.db"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer store.Close()
	runID, err := store.BeginRun(cfg, out.Dir())
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}

	var windows int
	opts := quietOptions()
	opts.Output = out
	opts.Store = store
	opts.RunID = runID
	opts.StatsCallback = func(stats []telemetry.WindowStats) { windows++ }

	s := newSim(t, cfg, opts)
	if _, err := s.Run(context.Background(), 1.0, 0.1); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if windows != 2 {
		t.Errorf("stats windows = %d, want 2", windows)
	}
	if n := countRows(t, filepath.Join(out.Dir(), "trajectory.csv")); n != 11 {
		t.Errorf("trajectory.csv rows = %d, want header + 10", n)
	}
	if n := countRows(t, filepath.Join(out.Dir(), "particles.csv")); n != 31 {
		t.Errorf("particles.csv rows = %d, want header + 30", n)
	}
	if n := countRows(t, filepath.Join(out.Dir(), "telemetry.csv")); n != 3 {
		t.Errorf("telemetry.csv rows = %d, want header + 2", n)
	}

	run, err := store.Run(runID)
	if err != nil {
		t.Fatalf("store.Run: %v", err)
	}
	if run.Ticks != 10 || run.StopReason != string(StopFinalTime) {
		t.Errorf("unexpected run record %+v", run)
	}
	if n, err := store.WindowCount(runID); err != nil || n != 2 {
		t.Errorf("WindowCount = %d, %v; want 2", n, err)
	}
}

func TestSnapshotMatchesStructure(t *testing.T) {
	cfg := smallConfig()
	s := newSim(t, cfg, quietOptions())
	for i := 0; i < 5; i++ {
		s.Step(0.1)
	}

	snap := s.Snapshot()
	if snap.Tick != 5 || len(snap.Particles) != cfg.Environment.NParticles {
		t.Fatalf("snapshot tick %d with %d particles", snap.Tick, len(snap.Particles))
	}
	if snap.TotalCells() != s.TotalCells() {
		t.Errorf("snapshot cells = %d, simulation has %d", snap.TotalCells(), s.TotalCells())
	}
	st := s.Structure()
	for i, p := range snap.Particles {
		if p.Serial != st.Serial[i] || p.Conc != st.Conc[i] {
			t.Errorf("particle %d: serial %d conc %v, want %d %v", i, p.Serial, p.Conc, st.Serial[i], st.Conc[i])
		}
		if p.Lifetime == nil || p.Lifetime.Serial != p.Serial {
			t.Errorf("particle %d: missing lifetime stats", i)
		}
	}

	path, err := s.SaveSnapshot(t.TempDir())
	if err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	loaded, err := telemetry.LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if diff := cmp.Diff(snap, loaded); diff != "" {
		t.Errorf("reloaded snapshot differs (-want +got):\n%s", diff)
	}
}
