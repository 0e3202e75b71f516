package population

import (
	"fmt"
	"math/rand/v2"
)

// Params configures one genotype's population.
type Params struct {
	Genotype  Genotype
	Criterion Criterion
	Beta      float64 // attachment rate constant
	Capacity  int     // binding sites per particle
	Policy    Policy
	Source    rand.Source // used by PolicySampled; nil picks a fixed seed
}

// TickStats counts cell movements during the most recent tick.
type TickStats struct {
	Born     int // cells committed by growth
	Detached int
	Attached int // attachment requests fulfilled
	Lost     int // cells removed by turnover
}

// Population is one genotype's set of attached and free compartments, held
// in a ring aligned with the environment's particle ring. Logical index 0 is
// the oldest particle.
type Population struct {
	genotype  Genotype
	criterion Criterion
	beta      float64
	capacity  int
	kernel    *kernel

	attached []Attached
	free     []Free
	head     int

	stats TickStats
}

// New creates a population over n particles with Genotype.NCells attached
// cells on slot 0.
func New(n int, p Params) *Population {
	if n < 1 {
		panic(fmt.Sprintf("population: need at least one slot, got %d", n))
	}
	pop := &Population{
		genotype:  p.Genotype,
		criterion: p.Criterion,
		beta:      p.Beta,
		capacity:  p.Capacity,
		kernel:    newKernel(p.Genotype, p.Policy, p.Source),
		attached:  make([]Attached, n),
		free:      make([]Free, n),
	}
	if p.Genotype.NCells > 0 {
		pop.attached[0].size = p.Genotype.NCells
	}
	return pop
}

func (p *Population) slot(i int) int {
	return (p.head + i) % len(p.attached)
}

// Len returns the number of slots.
func (p *Population) Len() int { return len(p.attached) }

// Genotype returns the genotype parameters.
func (p *Population) Genotype() Genotype { return p.genotype }

// Attached returns the attached compartment at logical index i.
func (p *Population) Attached(i int) *Attached { return &p.attached[p.slot(i)] }

// Free returns the free pool at logical index i.
func (p *Population) Free(i int) *Free { return &p.free[p.slot(i)] }

// LastTick returns movement counts for the most recent Update and Turnover.
func (p *Population) LastTick() TickStats { return p.stats }

// AttachedSizes returns attached sizes in logical order.
func (p *Population) AttachedSizes() []int {
	out := make([]int, len(p.attached))
	for i := range out {
		out[i] = p.Attached(i).size
	}
	return out
}

// FreeSizes returns free pool sizes in logical order.
func (p *Population) FreeSizes() []int {
	out := make([]int, len(p.free))
	for i := range out {
		out[i] = p.Free(i).size
	}
	return out
}

// AttachedTotal sums attached cells over all slots.
func (p *Population) AttachedTotal() int {
	var n int
	for i := range p.attached {
		n += p.attached[i].size
	}
	return n
}

// FreeTotal sums free-living cells over all slots.
func (p *Population) FreeTotal() int {
	var n int
	for i := range p.free {
		n += p.free[i].size
	}
	return n
}

// Total returns every cell of this genotype.
func (p *Population) Total() int { return p.AttachedTotal() + p.FreeTotal() }

// Occupied counts slots with at least one attached cell.
func (p *Population) Occupied() int {
	var n int
	for i := range p.attached {
		if p.attached[i].size > 0 {
			n++
		}
	}
	return n
}

// Update runs growth then migration for one tick. nutrients and concs are
// per-particle signals in logical order. It returns the number of cells
// committed by growth, which the driver uses as its convergence signal.
// Simulation.Step calls Grow and Migrate separately so it can time each
// phase and grow every genotype before any of them migrates.
func (p *Population) Update(nutrients, concs []float64, dt float64) float64 {
	born := p.Grow(nutrients, dt)
	p.Migrate(concs, dt)
	return born
}

// Grow applies one tick of growth to every attached compartment and starts a
// new set of tick statistics.
func (p *Population) Grow(nutrients []float64, dt float64) float64 {
	p.checkShape(len(nutrients))
	p.stats = TickStats{}
	for i := range nutrients {
		p.stats.Born += p.Attached(i).Update(nutrients[i], dt)
	}
	return float64(p.stats.Born)
}

func (p *Population) checkShape(n int) {
	if n != len(p.attached) {
		panic(fmt.Sprintf("population: signals for %d particles, have %d slots", n, len(p.attached)))
	}
}

// Turnover clears the oldest slot and makes it the newest. It returns the
// number of cells removed.
func (p *Population) Turnover() int {
	lost := p.attached[p.head].size + p.free[p.head].size
	p.attached[p.head].reset()
	p.free[p.head].reset()
	p.head = (p.head + 1) % len(p.attached)
	p.stats.Lost += lost
	return lost
}
