// Package environment holds the nutrient particles that cells colonize and
// recycles them at a fixed cadence.
package environment

// Particle is a nutrient patch with a fixed number of binding sites.
type Particle struct {
	Conc  float64   // Total nutrient remaining
	Sites []float64 // Residual nutrient per binding site
}

// Lineage identifies one incarnation of a recycled particle.
type Lineage struct {
	Serial   uint64
	BornTick int64
}

// Release is the fraction of an encounter load converted into usable
// nutrient: load / (kprod + load), in [0, 1) for load >= 0.
func Release(load, kprod float64) float64 {
	if load <= 0 {
		return 0
	}
	return load / (kprod + load)
}

// Capacity returns the number of binding sites.
func (p *Particle) Capacity() int { return len(p.Sites) }

// Reset refills the particle to c0 spread evenly over its sites.
func (p *Particle) Reset(c0 float64) {
	p.Conc = c0
	per := c0 / float64(len(p.Sites))
	for i := range p.Sites {
		p.Sites[i] = per
	}
}

// EstimatePublicGood mines every binding site once and returns the
// production available to ncells cells, diluted by kdiff/(ncells+kdiff).
// Each site yields release(site) in full; the site and Conc are floored at
// zero. Nothing is mined when ncells <= 0.
func (p *Particle) EstimatePublicGood(ncells int, kprod, kdiff float64) float64 {
	if ncells <= 0 {
		return 0
	}
	var production float64
	for i, site := range p.Sites {
		mined := Release(site, kprod)
		if mined <= 0 {
			continue
		}
		p.Sites[i] = max(site-mined, 0)
		p.Conc = max(p.Conc-mined, 0)
		production += mined
	}
	return production * kdiff / (float64(ncells) + kdiff)
}
