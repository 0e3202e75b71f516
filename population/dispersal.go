package population

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Policy selects how detached cells are split across downstream pools.
type Policy uint8

const (
	// PolicyExpected assigns floor(n*w_i) cells to each pool and hands the
	// shortfall out round-robin starting at the nearest pool.
	PolicyExpected Policy = iota
	// PolicySampled draws clusters of up to KMC cells from the Zipf kernel.
	PolicySampled
)

func (p Policy) String() string {
	switch p {
	case PolicyExpected:
		return "expected"
	case PolicySampled:
		return "sampled"
	}
	return fmt.Sprintf("Policy(%d)", uint8(p))
}

// ZipfWeights returns m normalized weights proportional to i^-s for
// i = 1..m. Nearer pools receive larger weights.
func ZipfWeights(m int, s float64) []float64 {
	if m <= 0 {
		return nil
	}
	w := make([]float64, m)
	for i := range w {
		w[i] = math.Pow(float64(i+1), -s)
	}
	floats.Scale(1/floats.Sum(w), w)
	return w
}

// kernel caches dispersal weights per downstream length.
type kernel struct {
	zmc     float64
	kmc     int
	policy  Policy
	src     rand.Source
	weights map[int][]float64
	cats    map[int]distuv.Categorical
}

func newKernel(g Genotype, policy Policy, src rand.Source) *kernel {
	kmc := g.KMC
	if kmc < 1 {
		kmc = 1
	}
	if src == nil {
		src = rand.NewPCG(1, 2)
	}
	return &kernel{
		zmc:     g.ZMC,
		kmc:     kmc,
		policy:  policy,
		src:     src,
		weights: make(map[int][]float64),
		cats:    make(map[int]distuv.Categorical),
	}
}

func (k *kernel) zipf(m int) []float64 {
	w, ok := k.weights[m]
	if !ok {
		w = ZipfWeights(m, k.zmc)
		k.weights[m] = w
	}
	return w
}

// split returns how many of n cells land in each of m downstream pools.
// The counts always sum to n.
func (k *kernel) split(n, m int) []int {
	shares := make([]int, m)
	if n <= 0 || m <= 0 {
		return shares
	}
	w := k.zipf(m)

	switch k.policy {
	case PolicySampled:
		cat, ok := k.cats[m]
		if !ok {
			cat = distuv.NewCategorical(w, k.src)
			k.cats[m] = cat
		}
		for remaining := n; remaining > 0; {
			c := min(k.kmc, remaining)
			shares[int(cat.Rand())] += c
			remaining -= c
		}
	default:
		placed := 0
		for i := range shares {
			shares[i] = int(math.Floor(float64(n) * w[i]))
			placed += shares[i]
		}
		for i := 0; placed < n; i++ {
			shares[i%m]++
			placed++
		}
		// Rounding noise in the weights can overshoot by a cell
		for i := m - 1; placed > n && i >= 0; i-- {
			if shares[i] > 0 {
				shares[i]--
				placed--
				i++
			}
		}
	}
	return shares
}
