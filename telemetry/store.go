package telemetry

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/pthm-cable/snow/config"
)

// Store persists runs, their window stats and bookmarks in SQLite.
type Store struct {
	conn *sqlx.DB
}

// RunRecord is one row of the runs table.
type RunRecord struct {
	ID          string  `db:"id"`
	StartedAt   string  `db:"started_at"`
	FinishedAt  *string `db:"finished_at"`
	Seed        int64   `db:"seed"`
	NParticles  int     `db:"nparticles"`
	Genotypes   string  `db:"genotypes"`
	Ticks       int64   `db:"ticks"`
	FinalTotal  int     `db:"final_total"`
	ConfigYAML  string  `db:"config_yaml"`
	StopReason  string  `db:"stop_reason"`
	OutputDir   string  `db:"output_dir"`
	SimDuration float64 `db:"sim_duration"`
}

// OpenStore opens or creates a SQLite database at the given path.
func OpenStore(path string) (*Store, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		seed INTEGER NOT NULL,
		nparticles INTEGER NOT NULL,
		genotypes TEXT NOT NULL,
		ticks INTEGER NOT NULL DEFAULT 0,
		final_total INTEGER NOT NULL DEFAULT 0,
		config_yaml TEXT NOT NULL,
		stop_reason TEXT NOT NULL DEFAULT '',
		output_dir TEXT NOT NULL DEFAULT '',
		sim_duration REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS window_stats (
		run_id TEXT NOT NULL REFERENCES runs(id),
		window_end INTEGER NOT NULL,
		sim_time REAL NOT NULL,
		genotype TEXT NOT NULL,
		attached INTEGER NOT NULL,
		free INTEGER NOT NULL,
		occupied INTEGER NOT NULL,
		born INTEGER NOT NULL,
		detached INTEGER NOT NULL,
		attachments INTEGER NOT NULL,
		lost INTEGER NOT NULL,
		growth_rate REAL NOT NULL,
		colony_mean REAL NOT NULL,
		total_nutrient REAL NOT NULL,
		PRIMARY KEY (run_id, window_end, genotype)
	);

	CREATE TABLE IF NOT EXISTS bookmarks (
		run_id TEXT NOT NULL REFERENCES runs(id),
		tick INTEGER NOT NULL,
		type TEXT NOT NULL,
		genotype TEXT NOT NULL,
		description TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_bookmarks_run ON bookmarks(run_id);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// BeginRun registers a new run and returns its ID.
func (s *Store) BeginRun(cfg *config.Config, outputDir string) (string, error) {
	data, err := cfg.MarshalYAMLBytes()
	if err != nil {
		return "", err
	}
	names := make([]string, len(cfg.Genotypes))
	for i, g := range cfg.Genotypes {
		names[i] = g.Name
	}

	id := uuid.NewString()
	_, err = s.conn.Exec(`INSERT INTO runs
		(id, started_at, seed, nparticles, genotypes, config_yaml, output_dir)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, time.Now().UTC().Format(time.RFC3339Nano), cfg.Simulation.Seed, cfg.Environment.NParticles, strings.Join(names, ","), string(data), outputDir)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// SaveWindow writes one window's stats for every genotype.
func (s *Store) SaveWindow(runID string, stats []WindowStats) error {
	tx, err := s.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT OR REPLACE INTO window_stats
		(run_id, window_end, sim_time, genotype, attached, free, occupied,
		 born, detached, attachments, lost, growth_rate, colony_mean, total_nutrient)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, w := range stats {
		_, err := stmt.Exec(
			runID, w.WindowEndTick, w.SimTime, w.Genotype, w.Attached, w.Free, w.Occupied,
			w.Born, w.Detached, w.Attachments, w.Lost, w.GrowthRate, w.ColonyMean, w.TotalNutrient,
		)
		if err != nil {
			return fmt.Errorf("insert window %d/%s: %w", w.WindowEndTick, w.Genotype, err)
		}
	}
	return tx.Commit()
}

// SaveBookmark records a bookmark against a run.
func (s *Store) SaveBookmark(runID string, b Bookmark) error {
	_, err := s.conn.Exec(
		"INSERT INTO bookmarks (run_id, tick, type, genotype, description) VALUES (?, ?, ?, ?, ?)",
		runID, b.Tick, string(b.Type), b.Genotype, b.Description,
	)
	return err
}

// FinishRun stores the outcome of a run.
func (s *Store) FinishRun(runID string, ticks int64, finalTotal int, reason string, simDuration float64) error {
	_, err := s.conn.Exec(`UPDATE runs
		SET finished_at = ?, ticks = ?, final_total = ?, stop_reason = ?, sim_duration = ?
		WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), ticks, finalTotal, reason, simDuration, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// Run loads one run by ID.
func (s *Store) Run(runID string) (RunRecord, error) {
	var r RunRecord
	if err := s.conn.Get(&r, "SELECT * FROM runs WHERE id = ?", runID); err != nil {
		return RunRecord{}, fmt.Errorf("load run %s: %w", runID, err)
	}
	return r, nil
}

// Runs lists runs newest first.
func (s *Store) Runs() ([]RunRecord, error) {
	var rows []RunRecord
	if err := s.conn.Select(&rows, "SELECT * FROM runs ORDER BY started_at DESC"); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return rows, nil
}

// WindowCount returns how many window rows a run has.
func (s *Store) WindowCount(runID string) (int, error) {
	var n int
	err := s.conn.Get(&n, "SELECT COUNT(*) FROM window_stats WHERE run_id = ?", runID)
	return n, err
}

// BookmarkTypes returns the bookmark types recorded for a run, in tick order.
func (s *Store) BookmarkTypes(runID string) ([]string, error) {
	var types []string
	err := s.conn.Select(&types, "SELECT type FROM bookmarks WHERE run_id = ? ORDER BY tick, rowid", runID)
	return types, err
}
