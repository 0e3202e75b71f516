package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownOption is returned for keys that no section recognizes.
	ErrUnknownOption = errors.New("unrecognized option")
	// ErrInvalidValue is returned for values outside their allowed range.
	ErrInvalidValue = errors.New("invalid value")
)

// Error is a fatal configuration error. Section and Option are empty when
// the problem is not tied to one key.
type Error struct {
	File    string
	Section string
	Option  string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("config")
	if e.File != "" {
		b.WriteString(" ")
		b.WriteString(e.File)
	}
	b.WriteString(": ")
	switch {
	case errors.Is(e.Err, ErrUnknownOption) && e.Section == "":
		fmt.Fprintf(&b, "unrecognized section [%s]", e.Option)
	case errors.Is(e.Err, ErrUnknownOption):
		fmt.Fprintf(&b, "unrecognized option %q in section [%s]", e.Option, e.Section)
	case e.Option != "":
		fmt.Fprintf(&b, "[%s] %s: %v", e.Section, e.Option, e.Err)
	default:
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

var (
	configType   = reflect.TypeOf(Config{})
	genotypeType = reflect.TypeOf(GenotypeConfig{})
)

// tagSet returns the yaml keys a struct type accepts.
func tagSet(t reflect.Type) map[string]reflect.Type {
	keys := make(map[string]reflect.Type, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := strings.Split(f.Tag.Get("yaml"), ",")[0]
		if name == "" || name == "-" {
			continue
		}
		keys[name] = f.Type
	}
	return keys
}

func documentRoot(doc *yaml.Node) *yaml.Node {
	if doc.Kind == yaml.DocumentNode {
		if len(doc.Content) == 0 {
			return nil
		}
		return doc.Content[0]
	}
	return doc
}

// checkKnownKeys walks the top-level mapping and every section below it.
func checkKnownKeys(root *yaml.Node, file string) error {
	if root.Kind != yaml.MappingNode {
		return &Error{File: file, Err: fmt.Errorf("%w: top level must be a mapping", ErrInvalidValue)}
	}
	sections := tagSet(configType)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i].Value, root.Content[i+1]
		t, ok := sections[key]
		if !ok {
			return &Error{File: file, Option: key, Err: ErrUnknownOption}
		}
		switch {
		case t.Kind() == reflect.Struct && val.Kind == yaml.MappingNode:
			if err := checkMappingKeys(val, tagSet(t), key, file); err != nil {
				return err
			}
		case t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Struct && val.Kind == yaml.SequenceNode:
			allowed := tagSet(t.Elem())
			for _, item := range val.Content {
				if item.Kind != yaml.MappingNode {
					continue
				}
				if err := checkMappingKeys(item, allowed, key, file); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func checkMappingKeys(m *yaml.Node, allowed map[string]reflect.Type, section, file string) error {
	for i := 0; i+1 < len(m.Content); i += 2 {
		key := m.Content[i].Value
		if _, ok := allowed[key]; !ok {
			return &Error{File: file, Section: section, Option: key, Err: ErrUnknownOption}
		}
	}
	return nil
}

// Validate checks value ranges. All failures wrap ErrInvalidValue.
func (c *Config) Validate() error {
	invalid := func(section, option, format string, args ...any) error {
		return &Error{Section: section, Option: option,
			Err: fmt.Errorf("%w: %s", ErrInvalidValue, fmt.Sprintf(format, args...))}
	}

	env := c.Environment
	switch {
	case env.NParticles < 1:
		return invalid("environment", "nparticles", "must be at least 1, got %d", env.NParticles)
	case env.Ks < 1:
		return invalid("environment", "ks", "must be at least 1, got %d", env.Ks)
	case env.KProd <= 0:
		return invalid("environment", "kprod", "must be positive, got %g", env.KProd)
	case env.C0 < 0:
		return invalid("environment", "c0", "must be non-negative, got %g", env.C0)
	case env.KDiff <= 0:
		return invalid("environment", "kdiff", "must be positive, got %g", env.KDiff)
	case env.Beta < 0:
		return invalid("environment", "beta", "must be non-negative, got %g", env.Beta)
	case env.DeltaT <= 0:
		return invalid("environment", "delta_t", "must be positive, got %g", env.DeltaT)
	}
	if _, err := ParseDetachMode(string(env.Mode)); err != nil {
		return &Error{Section: "environment", Option: "mode", Err: err}
	}

	if len(c.Genotypes) == 0 {
		return invalid("genotypes", "", "at least one genotype is required")
	}
	seen := make(map[string]bool, len(c.Genotypes))
	for _, g := range c.Genotypes {
		switch {
		case seen[g.Name]:
			return invalid("genotypes", "name", "duplicate genotype %q", g.Name)
		case g.KGrowth <= 0:
			return invalid("genotypes", "kgrowth", "%s: must be positive, got %g", g.Name, g.KGrowth)
		case g.GMax < 0:
			return invalid("genotypes", "gmax", "%s: must be non-negative, got %g", g.Name, g.GMax)
		case g.KDet < 0:
			return invalid("genotypes", "kdet", "%s: must be non-negative, got %g", g.Name, g.KDet)
		case g.KMC < 1:
			return invalid("genotypes", "kmc", "%s: must be at least 1, got %d", g.Name, g.KMC)
		case g.ZMC <= 0:
			return invalid("genotypes", "zmc", "%s: must be positive, got %g", g.Name, g.ZMC)
		case g.NCells < 0:
			return invalid("genotypes", "ncells", "%s: must be non-negative, got %d", g.Name, g.NCells)
		}
		seen[g.Name] = true
	}

	sim := c.Simulation
	switch {
	case sim.FinalTime < 0:
		return invalid("simulation", "final_time", "must be non-negative, got %g", sim.FinalTime)
	case sim.SteadyTolerance < 0:
		return invalid("simulation", "steady_tolerance", "must be non-negative, got %g", sim.SteadyTolerance)
	case sim.Dispersal != DispersalExpected && sim.Dispersal != DispersalSampled:
		return invalid("simulation", "dispersal", "unknown policy %q", sim.Dispersal)
	}
	return nil
}
