package population

import "testing"

func TestAttachedUpdateCommitsWholeCells(t *testing.T) {
	a := &Attached{size: 2}

	if d := a.Update(0.25, 1); d != 0 {
		t.Fatalf("first tick should only accumulate, committed %d", d)
	}
	if a.Biomass() != 0.5 {
		t.Errorf("biomass = %v, want 0.5", a.Biomass())
	}

	if d := a.Update(0.25, 1); d != 1 {
		t.Fatalf("second tick should commit one cell, committed %d", d)
	}
	if a.Size() != 3 || a.Biomass() != 0 {
		t.Errorf("got size=%d biomass=%v, want 3 and 0", a.Size(), a.Biomass())
	}
}

func TestAttachedUpdateNoNutrient(t *testing.T) {
	a := &Attached{size: 5}
	for _, c := range []float64{0, -1} {
		if d := a.Update(c, 1); d != 0 || a.Size() != 5 {
			t.Errorf("Update(%v) changed size by %d", c, d)
		}
	}
	empty := &Attached{}
	if d := empty.Update(10, 1); d != 0 {
		t.Errorf("empty colony grew by %d", d)
	}
}

// A constant detachment criterion removes exactly floor(k*kdet*dt) cells
// after k ticks and never more than the colony holds.
func TestDetachmentCommitIsExact(t *testing.T) {
	tests := []struct {
		name string
		kdet float64
		want []int // attached size after each tick
	}{
		{"two per tick", 2.0, []int{3, 1, 0, 0}},
		{"half per tick", 0.5, []int{5, 4, 4, 3, 3, 2}},
		{"quarter per tick", 0.25, []int{5, 5, 5, 4, 4, 4, 4, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Attached{size: 5}
			fc := FlowContext{Slot: 0, NPops: 3, Conc: 1, DT: 1, Criterion: CriterionConstant, KDet: tt.kdet, Capacity: 2}
			detached := 0
			for tick, want := range tt.want {
				detached += a.Flow(fc).Detached
				if a.Size() != want {
					t.Fatalf("tick %d: size = %d, want %d", tick+1, a.Size(), want)
				}
				if a.Size()+detached != 5 {
					t.Fatalf("tick %d: %d attached + %d detached != 5", tick+1, a.Size(), detached)
				}
				if a.Outgoing() < 0 || a.Outgoing() >= 1 {
					t.Fatalf("tick %d: outgoing remainder %v outside [0,1)", tick+1, a.Outgoing())
				}
			}
		})
	}
}

func TestStarvedParticleShedsAllCells(t *testing.T) {
	a := &Attached{size: 4}
	fc := FlowContext{Slot: 1, NPops: 3, Conc: 0, DT: 1, Criterion: CriterionConstant, KDet: 0}
	flux := a.Flow(fc)
	if flux.Detached != 4 || a.Size() != 0 {
		t.Errorf("starved colony: detached=%d size=%d, want 4 and 0", flux.Detached, a.Size())
	}
}

func TestTerminalSlotNeverDetaches(t *testing.T) {
	a := &Attached{size: 4, outgoing: 3.5}
	for _, conc := range []float64{0, 5} {
		fc := FlowContext{Slot: 2, NPops: 3, Conc: conc, DT: 1, Criterion: CriterionSizeScaled, KDet: 10}
		if flux := a.Flow(fc); flux.Detached != 0 {
			t.Errorf("terminal slot detached %d cells at conc %v", flux.Detached, conc)
		}
	}
	if a.Size() != 4 {
		t.Errorf("terminal size changed to %d", a.Size())
	}
}

func TestAttachmentRequestAndAdmit(t *testing.T) {
	a := &Attached{}
	free := &Free{size: 10}
	fc := FlowContext{Slot: 1, NPops: 3, Conc: 1, DT: 1, Beta: 0.5, Capacity: 4, FreeSize: free.Size()}

	flux := a.Flow(fc)
	if flux.Attach != 20 {
		t.Fatalf("attach request = %d, want 20", flux.Attach)
	}
	if got := a.admit(free, flux.Attach); got != 10 {
		t.Errorf("admitted %d, want 10 (free pool limit)", got)
	}
	if a.Size() != 10 || free.Size() != 0 {
		t.Errorf("got attached=%d free=%d, want 10 and 0", a.Size(), free.Size())
	}
	if a.Incoming() != 10 {
		t.Errorf("unfulfilled request should persist, incoming = %v", a.Incoming())
	}
}

func TestFreeIsPassive(t *testing.T) {
	f := &Free{size: 3}
	if d := f.Update(100, 1); d != 0 || f.Size() != 3 {
		t.Errorf("free pool grew by %d", d)
	}
	if flux := f.Flow(FlowContext{NPops: 2, FreeSize: 3}); flux != (Flux{}) {
		t.Errorf("free pool flow = %+v, want zero", flux)
	}
	if got := f.take(5); got != 3 || f.Size() != 0 {
		t.Errorf("take clamped to %d, size %d", got, f.Size())
	}
	f.add(-2)
	if f.Size() != 0 {
		t.Errorf("negative add changed size to %d", f.Size())
	}
}
