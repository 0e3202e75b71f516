package telemetry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/pthm-cable/snow/config"
)

// TrajectoryRow is one genotype's totals at one tick.
type TrajectoryRow struct {
	Tick     int64   `csv:"tick"`
	Time     float64 `csv:"time"`
	Genotype string  `csv:"genotype"`
	Attached int     `csv:"attached"`
	Free     int     `csv:"free"`
}

// ParticleRow is the state of one particle for one genotype at one tick.
type ParticleRow struct {
	Tick     int64   `csv:"tick"`
	Genotype string  `csv:"genotype"`
	Particle int     `csv:"particle"`
	Serial   uint64  `csv:"serial"`
	Conc     float64 `csv:"conc"`
	Attached int     `csv:"attached"`
	Free     int     `csv:"free"`
}

// csvFile appends records to one CSV file, writing the header once.
type csvFile struct {
	f             *os.File
	headerWritten bool
}

func createCSV(dir, name string) (*csvFile, error) {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", name, err)
	}
	return &csvFile{f: f}, nil
}

func appendCSV[T any](c *csvFile, records []T) error {
	if c == nil || len(records) == 0 {
		return nil
	}
	if !c.headerWritten {
		// First write includes headers
		if err := gocsv.Marshal(records, c.f); err != nil {
			return err
		}
		c.headerWritten = true
		return nil
	}
	return gocsv.MarshalWithoutHeaders(records, c.f)
}

func (c *csvFile) Close() error {
	if c == nil {
		return nil
	}
	return c.f.Close()
}

// OutputManager handles structured experiment output with CSV logging.
type OutputManager struct {
	dir        string
	telemetry  *csvFile
	perf       *csvFile
	bookmarks  *csvFile
	trajectory *csvFile
	lifetimes  *csvFile
	particles  *csvFile // nil unless per-particle recording is enabled
}

// NewOutputManager creates the output directory and its CSV files.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string, recordParticles bool) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}
	files := []struct {
		name string
		dst  **csvFile
	}{
		{"telemetry.csv", &om.telemetry},
		{"perf.csv", &om.perf},
		{"bookmarks.csv", &om.bookmarks},
		{"trajectory.csv", &om.trajectory},
		{"lifetimes.csv", &om.lifetimes},
	}
	if recordParticles {
		files = append(files, struct {
			name string
			dst  **csvFile
		}{"particles.csv", &om.particles})
	}

	for _, spec := range files {
		c, err := createCSV(dir, spec.name)
		if err != nil {
			om.Close()
			return nil, err
		}
		*spec.dst = c
	}
	return om, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteTelemetry writes window stats records to telemetry.csv.
func (om *OutputManager) WriteTelemetry(stats ...WindowStats) error {
	if om == nil {
		return nil
	}
	if err := appendCSV(om.telemetry, stats); err != nil {
		return fmt.Errorf("writing telemetry: %w", err)
	}
	return nil
}

// WritePerf writes a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd int64) error {
	if om == nil {
		return nil
	}
	if err := appendCSV(om.perf, []PerfStatsCSV{stats.ToCSV(windowEnd)}); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// WriteBookmark writes a bookmark record to bookmarks.csv.
func (om *OutputManager) WriteBookmark(b Bookmark) error {
	if om == nil {
		return nil
	}
	if err := appendCSV(om.bookmarks, []Bookmark{b}); err != nil {
		return fmt.Errorf("writing bookmark: %w", err)
	}
	return nil
}

// WriteTrajectory appends per-tick totals to trajectory.csv.
func (om *OutputManager) WriteTrajectory(rows []TrajectoryRow) error {
	if om == nil {
		return nil
	}
	if err := appendCSV(om.trajectory, rows); err != nil {
		return fmt.Errorf("writing trajectory: %w", err)
	}
	return nil
}

// WriteLifetime appends a retired particle to lifetimes.csv.
func (om *OutputManager) WriteLifetime(ls LifetimeStats) error {
	if om == nil {
		return nil
	}
	if err := appendCSV(om.lifetimes, []LifetimeStats{ls}); err != nil {
		return fmt.Errorf("writing lifetime: %w", err)
	}
	return nil
}

// RecordsParticles reports whether particles.csv is being written.
func (om *OutputManager) RecordsParticles() bool {
	return om != nil && om.particles != nil
}

// WriteParticles appends per-particle rows to particles.csv when enabled.
func (om *OutputManager) WriteParticles(rows []ParticleRow) error {
	if !om.RecordsParticles() {
		return nil
	}
	if err := appendCSV(om.particles, rows); err != nil {
		return fmt.Errorf("writing particles: %w", err)
	}
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	return errors.Join(
		om.telemetry.Close(),
		om.perf.Close(),
		om.bookmarks.Close(),
		om.trajectory.Close(),
		om.lifetimes.Close(),
		om.particles.Close(),
	)
}
