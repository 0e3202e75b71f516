package simulation

import (
	"context"
	"fmt"
	"math"
)

// StopReason says why a run ended.
type StopReason string

const (
	StopFinalTime   StopReason = "final_time"
	StopSteadyState StopReason = "steady_state"
	StopMaxTicks    StopReason = "max_ticks"
	StopCanceled    StopReason = "canceled"
)

// Sample is the population state recorded after one tick.
type Sample struct {
	Tick      int64
	Time      float64
	Attached  []int   // total attached per genotype
	Free      []int   // total free per genotype
	Particles [][]int // attached per particle, [genotype][particle]
}

// Trajectory is the per-tick time series of a run.
type Trajectory struct {
	Genotypes []string
	Samples   []Sample
	Reason    StopReason
}

// Len returns the number of samples.
func (t *Trajectory) Len() int { return len(t.Samples) }

// Final returns the last sample, or the zero Sample for an empty trajectory.
func (t *Trajectory) Final() Sample {
	if len(t.Samples) == 0 {
		return Sample{}
	}
	return t.Samples[len(t.Samples)-1]
}

// Series returns time, attached and free totals of genotype g as float
// series for plotting.
func (t *Trajectory) Series(g int) (times, attached, free []float64) {
	times = make([]float64, len(t.Samples))
	attached = make([]float64, len(t.Samples))
	free = make([]float64, len(t.Samples))
	for i, s := range t.Samples {
		times[i] = s.Time
		attached[i] = float64(s.Attached[g])
		free[i] = float64(s.Free[g])
	}
	return times, attached, free
}

func (s *Simulation) newTrajectory() *Trajectory {
	names := make([]string, len(s.pops))
	for i, p := range s.pops {
		names[i] = p.Genotype().Name
	}
	return &Trajectory{Genotypes: names}
}

func (s *Simulation) sample() Sample {
	smp := Sample{
		Tick:      s.tick,
		Time:      s.time,
		Attached:  make([]int, len(s.pops)),
		Free:      make([]int, len(s.pops)),
		Particles: make([][]int, len(s.pops)),
	}
	for g, p := range s.pops {
		smp.Attached[g] = p.AttachedTotal()
		smp.Free[g] = p.FreeTotal()
		smp.Particles[g] = p.AttachedSizes()
	}
	return smp
}

// Ticks returns how many ticks of length timeInc fit in finalTime.
func Ticks(finalTime, timeInc float64) int64 {
	if timeInc <= 0 || finalTime <= 0 {
		return 0
	}
	return int64(math.Floor(finalTime/timeInc + 1e-9))
}

// Run advances floor(finalTime/timeInc) ticks of length timeInc and returns
// the recorded trajectory. A cancelled context stops the run between ticks.
func (s *Simulation) Run(ctx context.Context, finalTime, timeInc float64) (*Trajectory, error) {
	if timeInc <= 0 {
		return nil, fmt.Errorf("time increment must be positive, got %g", timeInc)
	}
	n := Ticks(finalTime, timeInc)
	s.trajectory = s.newTrajectory()
	defer func() { s.trajectory = nil }()

	s.log.Info("run started", "ticks", n, "dt", timeInc, "turnover_every", s.cfg.AbioticEvery(timeInc))
	traj := s.trajectory
	for i := int64(0); i < n; i++ {
		if err := ctx.Err(); err != nil {
			traj.Reason = StopCanceled
			s.finish(traj)
			return traj, err
		}
		s.Step(timeInc)
	}

	traj.Reason = StopFinalTime
	s.finish(traj)
	return traj, nil
}

// RunUntilSteady advances ticks of length dt until the number of cells
// committed by growth stays at or below tol for one full turnover period, or
// until maxTicks ticks have run.
func (s *Simulation) RunUntilSteady(ctx context.Context, maxTicks int64, tol, dt float64) (*Trajectory, error) {
	if dt <= 0 {
		return nil, fmt.Errorf("time increment must be positive, got %g", dt)
	}
	s.trajectory = s.newTrajectory()
	defer func() { s.trajectory = nil }()

	period := int64(s.cfg.AbioticEvery(dt))
	s.log.Info("run started", "max_ticks", maxTicks, "dt", dt, "tolerance", tol, "turnover_every", period)

	var quiet int64
	traj := s.trajectory
	traj.Reason = StopMaxTicks
	for i := int64(0); i < maxTicks; i++ {
		if err := ctx.Err(); err != nil {
			traj.Reason = StopCanceled
			s.finish(traj)
			return traj, err
		}
		if s.Step(dt) <= tol {
			quiet++
		} else {
			quiet = 0
		}
		if quiet >= period {
			traj.Reason = StopSteadyState
			break
		}
	}

	s.finish(traj)
	return traj, nil
}

func (s *Simulation) finish(traj *Trajectory) {
	s.flushTelemetry(true)
	final := traj.Final()
	s.log.Info("run finished",
		"reason", string(traj.Reason),
		"ticks", s.tick,
		"time", s.time,
		"attached", final.Attached,
		"free", final.Free,
	)
	if s.opts.Store != nil && s.opts.RunID != "" {
		if err := s.opts.Store.FinishRun(s.opts.RunID, s.tick, s.TotalCells(), string(traj.Reason), s.time); err != nil {
			s.log.Error("failed to finish run", "error", err)
		}
	}
}
