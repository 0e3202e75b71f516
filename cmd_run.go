package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pthm-cable/snow/config"
	"github.com/pthm-cable/snow/renderer"
	"github.com/pthm-cable/snow/simulation"
	"github.com/pthm-cable/snow/telemetry"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a headless simulation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := applyRunFlags(cmd, cfg); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			outputDir, _ := cmd.Flags().GetString("output-dir")
			dbPath, _ := cmd.Flags().GetString("db")
			plotPath, _ := cmd.Flags().GetString("plot")
			logStats, _ := cmd.Flags().GetBool("log-stats")
			return runHeadless(ctx, cfg, runOutputs{
				dir:      outputDir,
				db:       dbPath,
				plot:     plotPath,
				logStats: logStats,
			})
		},
	}

	cmd.Flags().Float64("final-time", 0, "Simulated time to run (0 = use config)")
	cmd.Flags().Float64("dt", 0, "Tick length (0 = use config)")
	cmd.Flags().Int64("seed", 0, "RNG seed for sampled dispersal (default from config)")
	cmd.Flags().String("dispersal", "", "Dispersal policy: expected or sampled (default from config)")
	cmd.Flags().String("output-dir", "", "Directory for CSV logs and config snapshot")
	cmd.Flags().String("db", "", "SQLite run database to record this run in")
	cmd.Flags().String("plot", "", "Write a PNG chart of the trajectory to this path")
	cmd.Flags().Bool("steady", false, "Run until steady state instead of a fixed time")
	cmd.Flags().Int64("max-ticks", 0, "Tick cap in steady mode (0 = use config)")
	return cmd
}

// applyRunFlags overrides config values with flags that were set.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if v, _ := flags.GetFloat64("final-time"); v > 0 {
		cfg.Simulation.FinalTime = v
	}
	if v, _ := flags.GetFloat64("dt"); v > 0 {
		cfg.Environment.DeltaT = v
	}
	if flags.Changed("seed") {
		cfg.Simulation.Seed, _ = flags.GetInt64("seed")
	}
	if v, _ := flags.GetString("dispersal"); v != "" {
		cfg.Simulation.Dispersal = config.DispersalPolicy(v)
	}
	if v, _ := flags.GetBool("steady"); v {
		cfg.Simulation.StopOnSteadyState = true
	}
	if v, _ := flags.GetInt64("max-ticks"); v > 0 {
		cfg.Simulation.MaxTicks = int(v)
	}
	if cfg.Simulation.Seed == 0 {
		cfg.Simulation.Seed = time.Now().UnixNano()
	}
	return cfg.Validate()
}

type runOutputs struct {
	dir      string
	db       string
	plot     string
	logStats bool
}

// runHeadless runs one simulation to completion and writes its outputs.
func runHeadless(ctx context.Context, cfg *config.Config, outs runOutputs) (err error) {
	logger := slog.Default()
	opts := simulation.Options{Logger: logger, LogStats: outs.logStats}

	if outs.dir != "" {
		om, oerr := telemetry.NewOutputManager(outs.dir, cfg.Telemetry.RecordParticles)
		if oerr != nil {
			return fmt.Errorf("failed to create output manager: %w", oerr)
		}
		defer func() {
			if cerr := om.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		if werr := om.WriteConfig(cfg); werr != nil {
			return fmt.Errorf("failed to write config snapshot: %w", werr)
		}
		opts.Output = om
	}

	if outs.db != "" {
		if dir := filepath.Dir(outs.db); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		store, err := telemetry.OpenStore(outs.db)
		if err != nil {
			return err
		}
		defer store.Close()
		runID, err := store.BeginRun(cfg, outs.dir)
		if err != nil {
			return err
		}
		opts.Store = store
		opts.RunID = runID
		logger = logger.With("run_id", runID)
		opts.Logger = logger
	}

	sim, err := simulation.New(cfg, opts)
	if err != nil {
		return err
	}

	logger.Info("starting headless simulation",
		"seed", cfg.Simulation.Seed,
		"particles", cfg.Environment.NParticles,
		"genotypes", len(cfg.Genotypes),
		"dt", cfg.Environment.DeltaT,
		"steady", cfg.Simulation.StopOnSteadyState,
	)

	start := time.Now()
	var traj *simulation.Trajectory
	if cfg.Simulation.StopOnSteadyState {
		traj, err = sim.RunUntilSteady(ctx, int64(cfg.Simulation.MaxTicks), cfg.Simulation.SteadyTolerance, cfg.Environment.DeltaT)
	} else {
		traj, err = sim.Run(ctx, cfg.Simulation.FinalTime, cfg.Environment.DeltaT)
	}
	if errors.Is(err, context.Canceled) {
		logger.Warn("simulation interrupted", "tick", sim.Tick())
	} else if err != nil {
		return err
	}

	logger.Info("simulation complete",
		"ticks", sim.Tick(),
		"time", sim.Time(),
		"total_cells", sim.TotalCells(),
		"wall", time.Since(start).Round(time.Millisecond).String(),
	)

	if outs.dir != "" {
		path, serr := sim.SaveSnapshot(outs.dir)
		if serr != nil {
			return fmt.Errorf("failed to write final snapshot: %w", serr)
		}
		logger.Info("snapshot written", "path", path)
	}

	if outs.plot != "" && traj != nil && traj.Len() > 0 {
		if perr := renderer.WriteTrajectoryPNG(outs.plot, traj, renderer.DefaultChartOptions()); perr != nil {
			return fmt.Errorf("failed to write plot: %w", perr)
		}
		logger.Info("plot written", "path", outs.plot)
	}
	return nil
}
