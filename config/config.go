// Package config provides configuration loading and access for the simulation.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Simulation    SimulationConfig  `yaml:"simulation"`
	Environment   EnvironmentConfig `yaml:"environment"`
	Genotypes     []GenotypeConfig  `yaml:"genotypes"`
	GenotypeFiles []string          `yaml:"genotype_files"`
	Telemetry     TelemetryConfig   `yaml:"telemetry"`
	Viewer        ViewerConfig      `yaml:"viewer"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// SimulationConfig holds run-level driver settings.
type SimulationConfig struct {
	FinalTime         float64         `yaml:"final_time"`           // Simulated time units per run
	Seed              int64           `yaml:"seed"`                 // RNG seed for sampled dispersal (0 = time-based)
	Dispersal         DispersalPolicy `yaml:"dispersal"`            // expected | sampled
	StopOnSteadyState bool            `yaml:"stop_on_steady_state"` // Convergence mode instead of a fixed tick budget
	SteadyTolerance   float64         `yaml:"steady_tolerance"`     // Max growth change per tick counted as quiet
	MaxTicks          int             `yaml:"max_ticks"`            // Hard cap in convergence mode
}

// EnvironmentConfig holds the particle environment record.
type EnvironmentConfig struct {
	NParticles int        `yaml:"nparticles"` // Particles in the ring (constant over a run)
	KProd      float64    `yaml:"kprod"`      // Half-saturation of nutrient release
	C0         float64    `yaml:"c0"`         // Nutrient in a fresh particle
	KDiff      float64    `yaml:"kdiff"`      // Diffusion efficiency constant
	Beta       float64    `yaml:"beta"`       // Encounter rate constant
	Ks         int        `yaml:"ks"`         // Binding sites per particle
	DeltaT     float64    `yaml:"delta_t"`    // Tick length
	Mode       DetachMode `yaml:"mode"`       // Detachment criterion
}

// GenotypeConfig holds the parameters of one genotype.
type GenotypeConfig struct {
	Name    string  `yaml:"name"`
	KGrowth float64 `yaml:"kgrowth"` // Monod half-saturation
	GMax    float64 `yaml:"gmax"`    // Maximum specific growth rate
	KDet    float64 `yaml:"kdet"`    // Detachment constant
	KMC     int     `yaml:"kmc"`     // Cells per dispersing cluster
	ZMC     float64 `yaml:"zmc"`     // Zipf exponent of the dispersal kernel
	NCells  int     `yaml:"ncells"`  // Attached cells seeded on particle 0
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow       int  `yaml:"stats_window"`       // Ticks per stats window
	PerfWindow        int  `yaml:"perf_window"`        // Ticks averaged by the perf collector
	BookmarkHistory   int  `yaml:"bookmark_history"`   // Windows kept for bookmark detection
	RecordParticles   bool `yaml:"record_particles"`   // Write per-particle rows every tick
	BookmarkSnapshots bool `yaml:"bookmark_snapshots"` // Save a structure snapshot with each bookmark
}

// ViewerConfig holds live viewer settings.
type ViewerConfig struct {
	Width         int `yaml:"width"`
	Height        int `yaml:"height"`
	TargetFPS     int `yaml:"target_fps"`
	StepsPerFrame int `yaml:"steps_per_frame"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	GenotypeIndex map[string]int // name -> index into Genotypes
}

// DefaultGenotype returns the values used for any genotype field left unset.
func DefaultGenotype() GenotypeConfig {
	return GenotypeConfig{
		KGrowth: 1.0,
		GMax:    1.0,
		KDet:    1.0,
		KMC:     1,
		ZMC:     2.0,
		NCells:  1,
	}
}

// UnmarshalYAML decodes a genotype on top of DefaultGenotype so partial
// records keep sensible values.
func (g *GenotypeConfig) UnmarshalYAML(n *yaml.Node) error {
	type plain GenotypeConfig
	p := plain(DefaultGenotype())
	if err := n.Decode(&p); err != nil {
		return err
	}
	*g = GenotypeConfig(p)
	return nil
}

// DetachMode selects the detachment criterion.
type DetachMode string

const (
	ModeConstant      DetachMode = "constant"
	ModeSize          DetachMode = "size"
	ModeConcentration DetachMode = "concentration"
)

// ParseDetachMode accepts the mode names or the legacy integers 0, 1 and 2.
func ParseDetachMode(s string) (DetachMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "constant":
		return ModeConstant, nil
	case "1", "size", "size_scaled":
		return ModeSize, nil
	case "2", "concentration", "concentration_scaled":
		return ModeConcentration, nil
	}
	return "", fmt.Errorf("%w: mode %q", ErrInvalidValue, s)
}

func (m *DetachMode) UnmarshalYAML(n *yaml.Node) error {
	v, err := ParseDetachMode(n.Value)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// DispersalPolicy selects how detached cells are spread downstream.
type DispersalPolicy string

const (
	DispersalExpected DispersalPolicy = "expected"
	DispersalSampled  DispersalPolicy = "sampled"
)

func (d *DispersalPolicy) UnmarshalYAML(n *yaml.Node) error {
	switch strings.ToLower(strings.TrimSpace(n.Value)) {
	case "", "expected":
		*d = DispersalExpected
	case "sampled":
		*d = DispersalSampled
	default:
		return fmt.Errorf("%w: dispersal %q", ErrInvalidValue, n.Value)
	}
	return nil
}

// Default returns a fresh copy of the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if _, err := decodeStrict(defaultsYAML, "defaults.yaml", cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &Error{File: path, Err: err}
		}
		// Unmarshal into same struct - only overwrites fields present in file
		sections, err := decodeStrict(data, path, cfg)
		if err != nil {
			return nil, err
		}

		// Genotype files replace the default genotype unless the file also lists inline ones.
		if len(cfg.GenotypeFiles) > 0 && !sections["genotypes"] {
			cfg.Genotypes = nil
		}
		for _, gf := range cfg.GenotypeFiles {
			if !filepath.IsAbs(gf) {
				gf = filepath.Join(filepath.Dir(path), gf)
			}
			g, err := LoadGenotype(gf)
			if err != nil {
				return nil, err
			}
			cfg.Genotypes = append(cfg.Genotypes, g)
		}
	}

	cfg.computeDerived()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadGenotype reads a single genotype record from its own YAML file.
func LoadGenotype(path string) (GenotypeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return GenotypeConfig{}, &Error{File: path, Section: "genotype", Err: err}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return GenotypeConfig{}, &Error{File: path, Section: "genotype", Err: err}
	}
	if root := documentRoot(&doc); root != nil {
		if err := checkMappingKeys(root, tagSet(genotypeType), "genotype", path); err != nil {
			return GenotypeConfig{}, err
		}
	}

	g := DefaultGenotype()
	if err := decodeKnownFields(data, &g); err != nil {
		return GenotypeConfig{}, &Error{File: path, Section: "genotype", Err: err}
	}
	if g.Name == "" {
		g.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return g, nil
}

// decodeStrict rejects unknown sections and options before decoding into cfg.
// It returns the top-level sections present in the document.
func decodeStrict(data []byte, file string, cfg *Config) (map[string]bool, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &Error{File: file, Err: err}
	}
	sections := make(map[string]bool)
	if root := documentRoot(&doc); root != nil {
		if err := checkKnownKeys(root, file); err != nil {
			return nil, err
		}
		for i := 0; i+1 < len(root.Content); i += 2 {
			sections[root.Content[i].Value] = true
		}
	}
	if err := decodeKnownFields(data, cfg); err != nil {
		if errors.Is(err, ErrInvalidValue) {
			return nil, &Error{File: file, Err: err}
		}
		return nil, &Error{File: file, Err: fmt.Errorf("%w: %v", ErrInvalidValue, err)}
	}
	return sections, nil
}

func decodeKnownFields(data []byte, out interface{}) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		// YAML library returns io.EOF when there is no document.
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.GenotypeIndex = make(map[string]int, len(c.Genotypes))
	for i := range c.Genotypes {
		g := &c.Genotypes[i]
		if g.Name == "" {
			g.Name = "g" + strconv.Itoa(i)
		}
		c.Derived.GenotypeIndex[g.Name] = i
	}
	if c.Environment.Mode == "" {
		c.Environment.Mode = ModeConstant
	}
	if c.Simulation.Dispersal == "" {
		c.Simulation.Dispersal = DispersalExpected
	}
}

// AbioticEvery returns the number of ticks between turnovers for a tick
// length dt: round(nparticles / dt), never less than one.
func (c *Config) AbioticEvery(dt float64) int {
	if dt <= 0 {
		return 1
	}
	n := int(float64(c.Environment.NParticles)/dt + 0.5)
	if n < 1 {
		n = 1
	}
	return n
}

// Clone returns a deep copy, safe to mutate independently.
func (c *Config) Clone() *Config {
	cp := *c
	cp.Genotypes = append([]GenotypeConfig(nil), c.Genotypes...)
	cp.GenotypeFiles = append([]string(nil), c.GenotypeFiles...)
	cp.computeDerived()
	return &cp
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := c.MarshalYAMLBytes()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// MarshalYAMLBytes renders the config as a self-contained YAML document.
func (c *Config) MarshalYAMLBytes() ([]byte, error) {
	// Genotype files are already merged into Genotypes.
	cp := *c
	cp.GenotypeFiles = nil
	data, err := yaml.Marshal(&cp)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return data, nil
}

// ReplaceGenotypes loads each genotype file in paths and uses them instead of
// the configured genotype list.
func (c *Config) ReplaceGenotypes(paths []string) error {
	genotypes := make([]GenotypeConfig, 0, len(paths))
	for _, p := range paths {
		g, err := LoadGenotype(p)
		if err != nil {
			return err
		}
		genotypes = append(genotypes, g)
	}
	c.Genotypes = genotypes
	c.GenotypeFiles = append([]string(nil), paths...)
	c.computeDerived()
	return c.Validate()
}
