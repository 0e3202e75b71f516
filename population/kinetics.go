// Package population implements particle-attached and free-living cell
// compartments: Monod growth, detachment, attachment and downstream dispersal.
package population

import "fmt"

// Genotype holds the parameters of one genotype.
type Genotype struct {
	Name    string
	KGrowth float64 // Monod half-saturation constant
	GMax    float64 // Maximum specific growth rate
	KDet    float64 // Detachment constant
	KMC     int     // Cells per dispersing cluster (sampled dispersal)
	ZMC     float64 // Zipf exponent of the dispersal kernel
	NCells  int     // Attached cells seeded on slot 0
}

// GrowthRate returns the Monod specific growth rate
// Gmax * Kgrowth / (Kgrowth + nutconc). Negative input is treated as zero.
func (g Genotype) GrowthRate(nutconc float64) float64 {
	if nutconc < 0 {
		nutconc = 0
	}
	return g.GMax * g.KGrowth / (g.KGrowth + nutconc)
}

// Criterion selects how detachment pressure is computed.
type Criterion uint8

const (
	CriterionConstant            Criterion = iota // Kdet
	CriterionSizeScaled                           // Kdet * size
	CriterionConcentrationScaled                  // Kdet * conc
)

func (c Criterion) String() string {
	switch c {
	case CriterionConstant:
		return "constant"
	case CriterionSizeScaled:
		return "size"
	case CriterionConcentrationScaled:
		return "concentration"
	}
	return fmt.Sprintf("Criterion(%d)", uint8(c))
}

// DetachmentPressure returns the per-time detachment rate for a colony of
// size cells on a particle with concentration conc. Never negative.
func DetachmentPressure(c Criterion, kdet float64, size int, conc float64) float64 {
	var p float64
	switch c {
	case CriterionSizeScaled:
		p = kdet * float64(size)
	case CriterionConcentrationScaled:
		p = kdet * conc
	default:
		p = kdet
	}
	if p < 0 {
		return 0
	}
	return p
}

// EncounterRate is the per-free-cell attachment rate to a particle with
// capacity binding sites already holding size cells.
func EncounterRate(beta float64, capacity, size int) float64 {
	return beta * float64(capacity) / float64(size+1)
}
