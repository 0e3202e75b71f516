package simulation

import (
	"path/filepath"

	"github.com/pthm-cable/snow/telemetry"
)

// Snapshot captures every particle and compartment, oldest first, together
// with the lifetime stats of each particle.
func (s *Simulation) Snapshot() *telemetry.Snapshot {
	st := s.Structure()
	snap := &telemetry.Snapshot{
		Version:   telemetry.SnapshotVersion,
		RunID:     s.opts.RunID,
		Seed:      s.cfg.Simulation.Seed,
		Tick:      s.tick,
		Time:      s.time,
		Genotypes: st.Genotypes,
		Particles: make([]telemetry.ParticleState, len(st.Conc)),
	}
	for i := range snap.Particles {
		lin := s.env.Lineage(i)
		ps := telemetry.ParticleState{
			Serial:   lin.Serial,
			BornTick: lin.BornTick,
			Conc:     st.Conc[i],
			Attached: make([]int, len(st.Genotypes)),
			Free:     make([]int, len(st.Genotypes)),
		}
		for g := range st.Genotypes {
			ps.Attached[g] = st.Attached[g][i]
			ps.Free[g] = st.Free[g][i]
		}
		if ls := s.lifetimes.Get(lin.Serial); ls != nil {
			cp := *ls
			ps.Lifetime = &cp
		}
		snap.Particles[i] = ps
	}
	return snap
}

// SaveSnapshot writes the current structure to dir and returns the file path.
func (s *Simulation) SaveSnapshot(dir string) (string, error) {
	return telemetry.SaveSnapshot(s.Snapshot(), dir)
}

// snapshotBookmark saves a snapshot tagged with bm under the output directory.
func (s *Simulation) snapshotBookmark(bm telemetry.Bookmark) {
	out := s.opts.Output
	if out == nil || !s.cfg.Telemetry.BookmarkSnapshots {
		return
	}
	snap := s.Snapshot()
	snap.Bookmark = &bm
	path, err := telemetry.SaveSnapshot(snap, filepath.Join(out.Dir(), "snapshots"))
	if err != nil {
		s.log.Error("failed to save bookmark snapshot", "error", err)
		return
	}
	s.log.Debug("bookmark snapshot saved", "path", path, "type", string(bm.Type))
}
