package environment

import (
	"fmt"

	"github.com/mlange-42/ark/ecs"
)

// Params describes the particle field.
type Params struct {
	NParticles int
	Ks         int     // binding sites per particle
	KProd      float64 // release half-saturation
	C0         float64 // nutrient of a fresh particle
	KDiff      float64 // diffusion constant
}

// Environment is a ring of particles stored as ECS entities. Logical index 0
// is the oldest particle; Turnover recycles it as the newest.
type Environment struct {
	params Params

	world     *ecs.World
	mapper    *ecs.Map2[Particle, Lineage]
	particles *ecs.Map1[Particle]
	lineage   *ecs.Map1[Lineage]
	filter    *ecs.Filter1[Particle]

	ring   []ecs.Entity
	head   int
	serial uint64
	tick   int64
}

// New builds nparticles fresh particles.
func New(p Params) *Environment {
	if p.NParticles < 1 || p.Ks < 1 {
		panic(fmt.Sprintf("environment: need at least one particle and site, got %d/%d", p.NParticles, p.Ks))
	}
	world := ecs.NewWorld()
	e := &Environment{
		params:    p,
		world:     world,
		mapper:    ecs.NewMap2[Particle, Lineage](world),
		particles: ecs.NewMap1[Particle](world),
		lineage:   ecs.NewMap1[Lineage](world),
		filter:    ecs.NewFilter1[Particle](world),
		ring:      make([]ecs.Entity, p.NParticles),
	}
	for i := range e.ring {
		part := Particle{Sites: make([]float64, p.Ks)}
		part.Reset(p.C0)
		e.serial++
		lin := Lineage{Serial: e.serial}
		e.ring[i] = e.mapper.NewEntity(&part, &lin)
	}
	return e
}

func (e *Environment) entity(i int) ecs.Entity {
	return e.ring[(e.head+i)%len(e.ring)]
}

// Len returns the number of particles.
func (e *Environment) Len() int { return len(e.ring) }

// Params returns the construction parameters.
func (e *Environment) Params() Params { return e.params }

// Tick returns the number of biotic updates applied so far.
func (e *Environment) Tick() int64 { return e.tick }

// Particle returns the particle at logical index i.
func (e *Environment) Particle(i int) *Particle {
	return e.particles.Get(e.entity(i))
}

// Lineage returns the identity of the particle at logical index i.
func (e *Environment) Lineage(i int) Lineage {
	return *e.lineage.Get(e.entity(i))
}

// Concentrations returns particle concentrations in logical order.
func (e *Environment) Concentrations() []float64 {
	out := make([]float64, len(e.ring))
	for i := range out {
		out[i] = e.Particle(i).Conc
	}
	return out
}

// TotalNutrient sums the concentration of every particle.
func (e *Environment) TotalNutrient() float64 {
	var total float64
	query := e.filter.Query()
	for query.Next() {
		total += query.Get().Conc
	}
	return total
}

// BioticUpdate releases nutrient on every particle colonized by at least one
// cell. ncells holds attached cell counts per particle summed over all
// genotypes. It returns the nutrient produced per particle and the
// concentration left afterwards, both in logical order.
func (e *Environment) BioticUpdate(ncells []int) (nutrients, concs []float64) {
	if len(ncells) != len(e.ring) {
		panic(fmt.Sprintf("environment: %d cell counts for %d particles", len(ncells), len(e.ring)))
	}
	nutrients = make([]float64, len(e.ring))
	concs = make([]float64, len(e.ring))
	for i, n := range ncells {
		p := e.Particle(i)
		nutrients[i] = p.EstimatePublicGood(n, e.params.KProd, e.params.KDiff)
		concs[i] = p.Conc
	}
	e.tick++
	return nutrients, concs
}

// Turnover refills the oldest particle, gives it a new identity and moves
// it to the tail of the ring.
func (e *Environment) Turnover() {
	entity := e.ring[e.head]
	part, lin := e.mapper.Get(entity)
	part.Reset(e.params.C0)
	e.serial++
	*lin = Lineage{Serial: e.serial, BornTick: e.tick}
	e.head = (e.head + 1) % len(e.ring)
}
