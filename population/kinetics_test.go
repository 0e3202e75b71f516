package population

import (
	"math"
	"testing"
)

func TestGrowthRateBounds(t *testing.T) {
	g := Genotype{KGrowth: 2, GMax: 1.5}

	if got := g.GrowthRate(0); got != g.GMax {
		t.Errorf("GrowthRate(0) = %v, want Gmax %v", got, g.GMax)
	}

	prev := math.Inf(1)
	for _, c := range []float64{0, 0.01, 0.5, 1, 2, 10, 100, 1e6} {
		r := g.GrowthRate(c)
		if r < 0 || r > g.GMax {
			t.Errorf("GrowthRate(%v) = %v outside [0, %v]", c, r, g.GMax)
		}
		if r > prev {
			t.Errorf("GrowthRate not monotone: %v at %v after %v", r, c, prev)
		}
		prev = r
	}

	if r := g.GrowthRate(1e12); r > 1e-9 {
		t.Errorf("GrowthRate should vanish at high nutrient, got %v", r)
	}
	if got := g.GrowthRate(-5); got != g.GMax {
		t.Errorf("negative nutrient should clamp to zero, got %v", got)
	}
}

func TestDetachmentPressure(t *testing.T) {
	tests := []struct {
		name string
		crit Criterion
		kdet float64
		size int
		conc float64
		want float64
	}{
		{"constant", CriterionConstant, 2, 7, 3, 2},
		{"size scaled", CriterionSizeScaled, 0.5, 6, 3, 3},
		{"concentration scaled", CriterionConcentrationScaled, 0.25, 6, 8, 2},
		{"zero kdet", CriterionSizeScaled, 0, 100, 100, 0},
		{"negative clamps", CriterionConstant, -1, 1, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetachmentPressure(tt.crit, tt.kdet, tt.size, tt.conc); got != tt.want {
				t.Errorf("DetachmentPressure = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEncounterRateSaturates(t *testing.T) {
	empty := EncounterRate(0.5, 4, 0)
	if empty != 2 {
		t.Errorf("EncounterRate on empty particle = %v, want 2", empty)
	}
	if crowded := EncounterRate(0.5, 4, 9); crowded >= empty {
		t.Errorf("occupancy should reduce encounter rate: %v >= %v", crowded, empty)
	}
}

func TestCriterionString(t *testing.T) {
	if CriterionSizeScaled.String() != "size" {
		t.Errorf("unexpected name %q", CriterionSizeScaled.String())
	}
	if Criterion(9).String() != "Criterion(9)" {
		t.Errorf("unexpected name for unknown criterion %q", Criterion(9).String())
	}
}
