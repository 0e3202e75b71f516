package simulation

import "github.com/pthm-cable/snow/telemetry"

// record stores the tick in the trajectory and feeds the telemetry pipeline.
func (s *Simulation) record() {
	for g, p := range s.pops {
		s.collector.Record(g, p.LastTick())
	}
	for i, n := range s.attachedCounts() {
		s.lifetimes.Observe(s.env.Lineage(i).Serial, n, s.tick)
	}

	if s.trajectory != nil || s.opts.Output != nil {
		smp := s.sample()
		if s.trajectory != nil {
			s.trajectory.Samples = append(s.trajectory.Samples, smp)
		}
		s.writeSample(smp)
	}

	if s.collector.ShouldFlush(s.tick) {
		s.flushTelemetry(false)
	}
}

func (s *Simulation) writeSample(smp Sample) {
	out := s.opts.Output
	if out == nil {
		return
	}

	rows := make([]telemetry.TrajectoryRow, len(s.pops))
	for g, p := range s.pops {
		rows[g] = telemetry.TrajectoryRow{
			Tick:     smp.Tick,
			Time:     smp.Time,
			Genotype: p.Genotype().Name,
			Attached: smp.Attached[g],
			Free:     smp.Free[g],
		}
	}
	if err := out.WriteTrajectory(rows); err != nil {
		s.log.Error("failed to write trajectory", "error", err)
	}

	if !out.RecordsParticles() {
		return
	}
	var particles []telemetry.ParticleRow
	for _, p := range s.pops {
		for i := 0; i < s.env.Len(); i++ {
			particles = append(particles, telemetry.ParticleRow{
				Tick:     smp.Tick,
				Genotype: p.Genotype().Name,
				Particle: i,
				Serial:   s.env.Lineage(i).Serial,
				Conc:     s.env.Particle(i).Conc,
				Attached: p.Attached(i).Size(),
				Free:     p.Free(i).Size(),
			})
		}
	}
	if err := out.WriteParticles(particles); err != nil {
		s.log.Error("failed to write particles", "error", err)
	}
}

// flushTelemetry closes the current stats window. force flushes a partial
// window at the end of a run.
func (s *Simulation) flushTelemetry(force bool) {
	if !s.collector.Pending(s.tick) || (!force && !s.collector.ShouldFlush(s.tick)) {
		return
	}

	samples := make([]telemetry.GenotypeSample, len(s.pops))
	for g, p := range s.pops {
		mean := s.MeanNutrient(g)
		samples[g] = telemetry.GenotypeSample{
			Name:         p.Genotype().Name,
			Attached:     p.AttachedTotal(),
			Free:         p.FreeTotal(),
			Sizes:        p.AttachedSizes(),
			MeanNutrient: mean,
			GrowthRate:   p.Genotype().GrowthRate(mean),
		}
	}

	env := telemetry.EnvironmentSample{TotalNutrient: s.env.TotalNutrient()}
	for _, c := range s.env.Concentrations() {
		if c <= 0 {
			env.Depleted++
		}
	}

	stats := s.collector.Flush(s.tick, s.time, samples, env)
	perfStats := s.perf.Stats()

	if s.opts.StatsCallback != nil {
		s.opts.StatsCallback(stats)
	}

	if s.opts.LogStats {
		for _, st := range stats {
			st.LogStats()
		}
		perfStats.LogStats()
	}

	if out := s.opts.Output; out != nil {
		if err := out.WriteTelemetry(stats...); err != nil {
			s.log.Error("failed to write telemetry", "error", err)
		}
		if err := out.WritePerf(perfStats, s.tick); err != nil {
			s.log.Error("failed to write perf", "error", err)
		}
	}
	if s.opts.Store != nil && s.opts.RunID != "" {
		if err := s.opts.Store.SaveWindow(s.opts.RunID, stats); err != nil {
			s.log.Error("failed to save window", "error", err)
		}
	}

	// Check for bookmarks
	for g, st := range stats {
		for _, bm := range s.bookmarks[g].Check(st) {
			if s.opts.LogStats {
				bm.LogBookmark()
			}
			if s.opts.Output != nil {
				if err := s.opts.Output.WriteBookmark(bm); err != nil {
					s.log.Error("failed to write bookmark", "error", err)
				}
			}
			if s.opts.Store != nil && s.opts.RunID != "" {
				if err := s.opts.Store.SaveBookmark(s.opts.RunID, bm); err != nil {
					s.log.Error("failed to save bookmark", "error", err)
				}
			}
			s.snapshotBookmark(bm)
		}
	}
}
