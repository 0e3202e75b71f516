package population

import (
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

func testParams() Params {
	return Params{
		Genotype:  Genotype{Name: "wt", KGrowth: 1, GMax: 1, KDet: 0.5, KMC: 1, ZMC: 2, NCells: 1},
		Criterion: CriterionConstant,
		Beta:      0.5,
		Capacity:  4,
	}
}

func TestNewSeedsSlotZero(t *testing.T) {
	p := New(4, testParams())
	if diff := cmp.Diff([]int{1, 0, 0, 0}, p.AttachedSizes()); diff != "" {
		t.Errorf("attached sizes mismatch (-want +got):\n%s", diff)
	}
	if p.FreeTotal() != 0 {
		t.Errorf("free total = %d, want 0", p.FreeTotal())
	}
	if p.Len() != 4 {
		t.Errorf("Len = %d, want 4", p.Len())
	}
}

func TestNewPanicsWithoutSlots(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for zero slots")
		}
	}()
	New(0, testParams())
}

func TestZipfWeights(t *testing.T) {
	for m := 1; m <= 8; m++ {
		w := ZipfWeights(m, 1.5)
		if len(w) != m {
			t.Fatalf("len = %d, want %d", len(w), m)
		}
		if !scalar.EqualWithinAbs(floats.Sum(w), 1, 1e-12) {
			t.Errorf("m=%d: weights sum to %v", m, floats.Sum(w))
		}
		for i := 1; i < m; i++ {
			if w[i] > w[i-1] {
				t.Errorf("m=%d: weight %d exceeds nearer weight", m, i)
			}
		}
	}
	if ZipfWeights(0, 2) != nil {
		t.Error("no downstream pools should give nil weights")
	}
}

func TestDispersalIsComplete(t *testing.T) {
	policies := []struct {
		name   string
		policy Policy
		kmc    int
	}{
		{"expected", PolicyExpected, 1},
		{"sampled single cells", PolicySampled, 1},
		{"sampled clusters", PolicySampled, 3},
	}

	for _, pc := range policies {
		t.Run(pc.name, func(t *testing.T) {
			params := testParams()
			params.Policy = pc.policy
			params.Genotype.KMC = pc.kmc
			params.Source = rand.NewPCG(7, 11)

			for n := 2; n <= 9; n++ {
				for pid := 0; pid < n-1; pid++ {
					for ncells := 0; ncells <= 40; ncells++ {
						p := New(n, params)
						before := p.FreeSizes()
						shares := p.Disperse(ncells, pid)

						if len(shares) != n-1-pid {
							t.Fatalf("n=%d pid=%d: %d shares", n, pid, len(shares))
						}
						sum := 0
						for _, s := range shares {
							if s < 0 {
								t.Fatalf("negative share %d", s)
							}
							sum += s
						}
						if sum != ncells {
							t.Fatalf("n=%d pid=%d: placed %d of %d cells", n, pid, sum, ncells)
						}
						after := p.FreeSizes()
						for i := 0; i <= pid; i++ {
							if after[i] != before[i] {
								t.Fatalf("upstream pool %d changed", i)
							}
						}
					}
				}
			}
		})
	}
}

func TestExpectedDispersalFavoursNearPools(t *testing.T) {
	p := New(6, testParams())
	shares := p.Disperse(100, 0)
	if shares[0] <= shares[len(shares)-1] {
		t.Errorf("nearest pool should receive most cells: %v", shares)
	}
	if diff := cmp.Diff(shares, p.FreeSizes()[1:]); diff != "" {
		t.Errorf("free pools do not reflect shares (-shares +free):\n%s", diff)
	}
}

func TestSingleCellGoesToNearestPool(t *testing.T) {
	p := New(4, testParams())
	if diff := cmp.Diff([]int{1, 0, 0}, p.Disperse(1, 0)); diff != "" {
		t.Errorf("single cell shares mismatch (-want +got):\n%s", diff)
	}
}

func TestMigrationConservesCells(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for _, crit := range []Criterion{CriterionConstant, CriterionSizeScaled, CriterionConcentrationScaled} {
		params := testParams()
		params.Criterion = crit
		params.Genotype.KDet = 0.7
		p := New(6, params)
		for i := 0; i < p.Len(); i++ {
			p.Attached(i).size = rng.IntN(30)
			p.Free(i).size = rng.IntN(30)
		}

		for tick := 0; tick < 200; tick++ {
			concs := make([]float64, p.Len())
			for i := range concs {
				if rng.IntN(4) > 0 {
					concs[i] = rng.Float64() * 3
				}
			}
			total := p.Total()
			p.Migrate(concs, 0.3)
			if p.Total() != total {
				t.Fatalf("%v tick %d: total changed %d -> %d", crit, tick, total, p.Total())
			}
			for i := 0; i < p.Len(); i++ {
				if p.Attached(i).Size() < 0 || p.Free(i).Size() < 0 {
					t.Fatalf("%v tick %d: negative size at slot %d", crit, tick, i)
				}
			}
		}
	}
}

func TestTerminalSlotKeepsCellsDuringMigration(t *testing.T) {
	params := testParams()
	params.Beta = 0
	params.Genotype.KDet = 5
	p := New(3, params)
	p.Attached(2).size = 12

	for tick := 0; tick < 20; tick++ {
		before := p.Attached(2).Size()
		p.Migrate([]float64{0, 0, 0}, 1)
		if p.Attached(2).Size() < before {
			t.Fatalf("tick %d: terminal slot lost cells %d -> %d", tick, before, p.Attached(2).Size())
		}
	}
}

func TestUpdateGrowsThenMigrates(t *testing.T) {
	params := testParams()
	params.Genotype.KDet = 0
	params.Beta = 0
	p := New(3, params)
	p.Attached(0).size = 4

	born := p.Update([]float64{0.5, 0, 0}, []float64{1, 1, 1}, 1)
	if born != 2 {
		t.Errorf("born = %v, want 2", born)
	}
	if p.Attached(0).Size() != 6 {
		t.Errorf("attached size = %d, want 6", p.Attached(0).Size())
	}
	if p.LastTick().Born != 2 {
		t.Errorf("tick stats born = %d, want 2", p.LastTick().Born)
	}
}

func TestUpdatePanicsOnShapeMismatch(t *testing.T) {
	p := New(3, testParams())
	defer func() {
		if recover() == nil {
			t.Error("expected panic for mismatched signals")
		}
	}()
	p.Update([]float64{1, 1}, []float64{1, 1}, 1)
}

func TestTurnoverResetsHead(t *testing.T) {
	p := New(3, testParams())
	p.Attached(0).size = 5
	p.Attached(0).biomass = 0.5
	p.Attached(0).outgoing = 0.75
	p.Free(0).size = 2
	p.Attached(1).size = 3
	p.Free(2).size = 4

	lost := p.Turnover()
	if lost != 7 {
		t.Errorf("lost = %d, want 7", lost)
	}
	if diff := cmp.Diff([]int{3, 0, 0}, p.AttachedSizes()); diff != "" {
		t.Errorf("attached after turnover (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{0, 4, 0}, p.FreeSizes()); diff != "" {
		t.Errorf("free after turnover (-want +got):\n%s", diff)
	}
	tail := p.Attached(2)
	if tail.Biomass() != 0 || tail.Outgoing() != 0 || tail.Incoming() != 0 {
		t.Errorf("tail accumulators not reset: %+v", *tail)
	}
	if p.Len() != 3 {
		t.Errorf("Len changed to %d", p.Len())
	}
	if p.LastTick().Lost != 7 {
		t.Errorf("tick stats lost = %d, want 7", p.LastTick().Lost)
	}
}

func TestTurnoverWrapsAround(t *testing.T) {
	p := New(3, testParams())
	for i := 0; i < 7; i++ {
		p.Turnover()
	}
	p.Attached(0).size = 9
	if diff := cmp.Diff([]int{9, 0, 0}, p.AttachedSizes()); diff != "" {
		t.Errorf("logical indexing broken after wrap (-want +got):\n%s", diff)
	}
}
