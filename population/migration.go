package population

// Migrate performs attachment, detachment and dispersal in ascending slot
// order. The total cell count is unchanged.
func (p *Population) Migrate(concs []float64, dt float64) {
	p.checkShape(len(concs))
	n := len(p.attached)
	for i := 0; i < n; i++ {
		att, free := p.Attached(i), p.Free(i)
		flux := att.Flow(FlowContext{
			Slot:      i,
			NPops:     n,
			Conc:      concs[i],
			DT:        dt,
			Beta:      p.beta,
			Capacity:  p.capacity,
			Criterion: p.criterion,
			KDet:      p.genotype.KDet,
			FreeSize:  free.size,
		})
		if flux.Detached > 0 {
			p.stats.Detached += flux.Detached
			p.Disperse(flux.Detached, i)
		}
		if flux.Attach > 0 {
			p.stats.Attached += att.admit(free, flux.Attach)
		}
	}
}

// Disperse places ncells detached from slot pid into the free pools
// downstream of it and returns the per-pool increments for pid+1..n-1.
// Cells detached from the terminal slot have nowhere to go and are kept
// in its own free pool.
func (p *Population) Disperse(ncells, pid int) []int {
	m := len(p.attached) - 1 - pid
	if ncells <= 0 {
		return make([]int, max(m, 0))
	}
	if m <= 0 {
		p.Free(pid).add(ncells)
		return nil
	}
	shares := p.kernel.split(ncells, m)
	for i, c := range shares {
		p.Free(pid + 1 + i).add(c)
	}
	return shares
}
