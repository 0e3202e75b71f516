package main

import (
	"fmt"

	"github.com/pthm-cable/snow/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Starting value
}

// ParamVector holds the detachment constant and dispersal exponent of every
// genotype, two entries per genotype in config order.
type ParamVector struct {
	Specs []ParamSpec
}

// Search bounds for each genotype's parameters.
const (
	kdetMin, kdetMax = 0.01, 5.0
	zmcMin, zmcMax   = 0.25, 6.0
)

// NewParamVector creates the parameter set for the genotypes in cfg, starting
// from their configured values.
func NewParamVector(cfg *config.Config) *ParamVector {
	pv := &ParamVector{}
	for i, g := range cfg.Genotypes {
		pv.Specs = append(pv.Specs,
			ParamSpec{
				Name: g.Name + "_kdet", Path: fmt.Sprintf("genotypes[%d].kdet", i),
				Min: kdetMin, Max: kdetMax, Default: min(max(g.KDet, kdetMin), kdetMax),
			},
			ParamSpec{
				Name: g.Name + "_zmc", Path: fmt.Sprintf("genotypes[%d].zmc", i),
				Min: zmcMin, Max: zmcMax, Default: min(max(g.ZMC, zmcMin), zmcMax),
			},
		)
	}
	return pv
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig writes clamped parameter values into cfg.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)
	for g := range cfg.Genotypes {
		if 2*g+1 >= len(clamped) {
			break
		}
		cfg.Genotypes[g].KDet = clamped[2*g]
		cfg.Genotypes[g].ZMC = clamped[2*g+1]
	}
}

// ExtractFromConfig reads current parameter values from cfg.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	v := make([]float64, 0, len(pv.Specs))
	for _, g := range cfg.Genotypes {
		v = append(v, g.KDet, g.ZMC)
	}
	return v
}
