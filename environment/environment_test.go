package environment

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testParams() Params {
	return Params{NParticles: 3, Ks: 2, KProd: 0.5, C0: 10, KDiff: 1}
}

func TestReleaseBounds(t *testing.T) {
	for _, kprod := range []float64{0.01, 0.5, 3} {
		prev := -1.0
		for _, load := range []float64{0, 1e-6, 0.1, 1, 10, 1e6} {
			r := Release(load, kprod)
			if r < 0 || r >= 1 {
				t.Errorf("Release(%v, %v) = %v outside [0,1)", load, kprod, r)
			}
			if r < prev {
				t.Errorf("Release not monotone at load %v", load)
			}
			prev = r
		}
	}
	if Release(-1, 1) != 0 {
		t.Error("negative load should release nothing")
	}
}

func TestEstimatePublicGood(t *testing.T) {
	p := Particle{Sites: make([]float64, 2)}
	p.Reset(10)

	got := p.EstimatePublicGood(1, 5, 1)
	// Each site of 5 releases 5/(5+5) = 0.5; diluted by 1/(1+1)
	if math.Abs(got-0.5) > 1e-12 {
		t.Errorf("production = %v, want 0.5", got)
	}
	if math.Abs(p.Conc-9) > 1e-12 {
		t.Errorf("conc = %v, want 9", p.Conc)
	}
	if diff := cmp.Diff([]float64{4.5, 4.5}, p.Sites); diff != "" {
		t.Errorf("sites mismatch (-want +got):\n%s", diff)
	}
}

func TestEstimatePublicGoodDepletedSite(t *testing.T) {
	// A site below its release yields the full release and empties.
	p := Particle{Conc: 0.5, Sites: []float64{0.5}}
	got := p.EstimatePublicGood(1, 0.05, 1)
	want := 0.5 / 0.55 / 2
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("production = %v, want %v", got, want)
	}
	if p.Sites[0] != 0 || p.Conc != 0 {
		t.Errorf("site = %v, conc = %v, want both 0", p.Sites[0], p.Conc)
	}

	p = Particle{Conc: 5.5, Sites: []float64{0.5, 5}}
	p.EstimatePublicGood(1, 0.05, 1)
	wantConc := 5.5 - 0.5/0.55 - 5/5.05
	if math.Abs(p.Conc-wantConc) > 1e-12 {
		t.Errorf("conc = %v, want %v", p.Conc, wantConc)
	}
	if p.Sites[0] != 0 || math.Abs(p.Sites[1]-(5-5/5.05)) > 1e-12 {
		t.Errorf("sites = %v", p.Sites)
	}
}

func TestEstimatePublicGoodNoCells(t *testing.T) {
	p := Particle{Sites: make([]float64, 4)}
	p.Reset(8)
	for _, n := range []int{0, -3} {
		if got := p.EstimatePublicGood(n, 1, 1); got != 0 {
			t.Errorf("ncells=%d produced %v", n, got)
		}
	}
	if p.Conc != 8 {
		t.Errorf("empty particle was mined: conc = %v", p.Conc)
	}
}

func TestEstimatePublicGoodDilutes(t *testing.T) {
	few := Particle{Sites: make([]float64, 2)}
	few.Reset(10)
	many := Particle{Sites: make([]float64, 2)}
	many.Reset(10)

	if a, b := few.EstimatePublicGood(1, 1, 1), many.EstimatePublicGood(50, 1, 1); b >= a {
		t.Errorf("crowded particle should share less: %v >= %v", b, a)
	}
}

func TestDepletionStaysNonNegative(t *testing.T) {
	p := Particle{Sites: make([]float64, 3)}
	p.Reset(0.3)
	for i := 0; i < 1000; i++ {
		p.EstimatePublicGood(5, 0.001, 1)
		if p.Conc < 0 {
			t.Fatalf("iteration %d: negative concentration %v", i, p.Conc)
		}
		for j, s := range p.Sites {
			if s < 0 || s > 0.1+1e-12 {
				t.Fatalf("iteration %d: site %d = %v outside [0, 0.1]", i, j, s)
			}
		}
	}
	if p.Conc > 1e-9 {
		t.Errorf("particle should be exhausted, conc = %v", p.Conc)
	}
}

func TestNewEnvironment(t *testing.T) {
	e := New(testParams())
	if e.Len() != 3 {
		t.Fatalf("Len = %d, want 3", e.Len())
	}
	if diff := cmp.Diff([]float64{10, 10, 10}, e.Concentrations()); diff != "" {
		t.Errorf("concentrations mismatch (-want +got):\n%s", diff)
	}
	if e.TotalNutrient() != 30 {
		t.Errorf("TotalNutrient = %v, want 30", e.TotalNutrient())
	}
	if e.Particle(0).Capacity() != 2 {
		t.Errorf("capacity = %d, want 2", e.Particle(0).Capacity())
	}
}

func TestBioticUpdateOnlyMinesColonized(t *testing.T) {
	e := New(testParams())
	nutrients, concs := e.BioticUpdate([]int{1, 0, 0})

	if nutrients[0] <= 0 {
		t.Errorf("colonized particle produced %v", nutrients[0])
	}
	if concs[0] >= 10 {
		t.Errorf("colonized particle conc should drop, got %v", concs[0])
	}
	if diff := cmp.Diff([]float64{0, 0}, nutrients[1:]); diff != "" {
		t.Errorf("empty particles produced nutrient (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{10, 10}, concs[1:]); diff != "" {
		t.Errorf("empty particles were mined (-want +got):\n%s", diff)
	}
	if e.Tick() != 1 {
		t.Errorf("Tick = %d, want 1", e.Tick())
	}
}

func TestTurnoverRecyclesHead(t *testing.T) {
	e := New(testParams())
	e.BioticUpdate([]int{4, 2, 0})
	oldHead := e.Lineage(0)
	second := e.Lineage(1)
	secondConc := e.Particle(1).Conc

	e.Turnover()

	if e.Len() != 3 {
		t.Fatalf("Len changed to %d", e.Len())
	}
	if e.Lineage(0) != second {
		t.Errorf("second particle should become head")
	}
	if e.Particle(0).Conc != secondConc {
		t.Errorf("head conc = %v, want %v", e.Particle(0).Conc, secondConc)
	}
	tail := e.Particle(2)
	if tail.Conc != 10 {
		t.Errorf("tail conc = %v, want C0", tail.Conc)
	}
	if diff := cmp.Diff([]float64{5, 5}, tail.Sites); diff != "" {
		t.Errorf("tail sites not refilled (-want +got):\n%s", diff)
	}
	for i := 0; i < e.Len(); i++ {
		if e.Lineage(i).Serial == oldHead.Serial {
			t.Errorf("old head identity still present at %d", i)
		}
	}
	if e.Lineage(2).BornTick != 1 {
		t.Errorf("tail born tick = %d, want 1", e.Lineage(2).BornTick)
	}
}

func TestBioticUpdatePanicsOnShapeMismatch(t *testing.T) {
	e := New(testParams())
	defer func() {
		if recover() == nil {
			t.Error("expected panic for mismatched cell counts")
		}
	}()
	e.BioticUpdate([]int{1})
}
