package population

import "math"

// Subpopulation is a discrete cell count living either on a particle or in
// the free pool next to it.
type Subpopulation interface {
	Size() int
	// Update applies growth for one tick and returns |old - new| size.
	Update(nutconc, dt float64) int
	// Flow accumulates migration pressure for one tick.
	Flow(fc FlowContext) Flux
}

// FlowContext carries the shared constants a compartment needs for one
// migration step. It replaces any back-reference to the owning Population.
type FlowContext struct {
	Slot      int     // logical index of the particle
	NPops     int     // number of slots
	Conc      float64 // particle nutrient concentration
	DT        float64
	Beta      float64
	Capacity  int // binding sites per particle
	Criterion Criterion
	KDet      float64
	FreeSize  int // cells in the free pool at Slot
}

// Terminal reports whether the slot is the last one, which never sheds cells.
func (fc FlowContext) Terminal() bool {
	return fc.Slot >= fc.NPops-1
}

// Flux is the whole-cell outcome of one Flow call.
type Flux struct {
	Attach   int // cells requested from the free pool
	Detached int // cells already removed from the attached population
}

// Attached is the cell population bound to one particle.
type Attached struct {
	size     int
	biomass  float64 // fractional growth not yet committed
	incoming float64 // pending attachment
	outgoing float64 // pending detachment
}

func (a *Attached) Size() int         { return a.size }
func (a *Attached) Biomass() float64  { return a.biomass }
func (a *Attached) Incoming() float64 { return a.incoming }
func (a *Attached) Outgoing() float64 { return a.outgoing }
func (a *Attached) reset()            { *a = Attached{} }

// Update accumulates biomass produced at rate size*nutconc and commits its
// integer part to size.
func (a *Attached) Update(nutconc, dt float64) int {
	if nutconc <= 0 || a.size == 0 || dt <= 0 {
		return 0
	}
	old := a.size
	a.biomass += float64(a.size) * nutconc * dt
	if whole := math.Floor(a.biomass); whole > 0 {
		a.size += int(whole)
		a.biomass -= whole
	}
	return a.size - old
}

// Flow accumulates attachment and detachment pressure and commits whole
// detaching cells. Attachment is only requested here; the caller fulfils it
// from the free pool.
func (a *Attached) Flow(fc FlowContext) Flux {
	a.incoming += float64(fc.FreeSize) * EncounterRate(fc.Beta, fc.Capacity, a.size) * fc.DT

	if a.size > 0 && !fc.Terminal() {
		if fc.Conc > 0 {
			a.outgoing += DetachmentPressure(fc.Criterion, fc.KDet, a.size, fc.Conc) * fc.DT
		} else {
			// Starved particle: everything leaves
			a.outgoing += float64(a.size) * fc.DT
		}
	}

	var detached int
	if whole := math.Floor(a.outgoing); whole >= 1 && !fc.Terminal() {
		detached = int(whole)
		if detached > a.size {
			detached = a.size
		}
		a.size -= detached
		a.outgoing -= whole
	}

	return Flux{Attach: int(math.Floor(a.incoming)), Detached: detached}
}

// admit moves up to n cells from free into the attached population and
// settles the attachment accumulator by the amount fulfilled.
func (a *Attached) admit(free *Free, n int) int {
	got := free.take(n)
	a.size += got
	a.incoming -= float64(got)
	if a.incoming < 0 {
		a.incoming = 0
	}
	return got
}

// Free is the free-living pool associated with one particle index.
// Free pools are passive: cells arrive by dispersal and leave by attachment.
type Free struct {
	size int
}

func (f *Free) Size() int { return f.size }

// Update is a no-op: free-living cells cannot grow.
func (f *Free) Update(nutconc, dt float64) int { return 0 }

// Flow is a no-op for free pools.
func (f *Free) Flow(fc FlowContext) Flux { return Flux{} }

func (f *Free) add(n int) {
	if n > 0 {
		f.size += n
	}
}

// take removes up to n cells and returns how many were available.
func (f *Free) take(n int) int {
	if n <= 0 {
		return 0
	}
	if n > f.size {
		n = f.size
	}
	f.size -= n
	return n
}

func (f *Free) reset() { f.size = 0 }

var (
	_ Subpopulation = (*Attached)(nil)
	_ Subpopulation = (*Free)(nil)
)
