package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pthm-cable/snow/config"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "snow",
		Short: "Particle colonization simulator",
		Long: `snow simulates genotypes of cells colonizing a conveyor of nutrient
particles: cells grow on the nutrient they release, detach downstream and
reattach, while the oldest particle is recycled at a fixed cadence.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, _ := cmd.Flags().GetString("log-level")
			return setupLogging(level)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "Path to config.yaml (empty = use defaults)")
	rootCmd.PersistentFlags().StringSlice("genotype", nil, "Genotype YAML file, repeatable (replaces configured genotypes)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("log-stats", false, "Output window stats via slog")

	rootCmd.AddCommand(
		newRunCmd(),
		newViewCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// setupLogging installs a JSON slog handler on stdout at the given level.
func setupLogging(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return nil
}

// loadConfig reads --config and --genotype into a validated config.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if files, _ := cmd.Flags().GetStringSlice("genotype"); len(files) > 0 {
		if err := cfg.ReplaceGenotypes(files); err != nil {
			return nil, fmt.Errorf("failed to load genotypes: %w", err)
		}
	}
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "snow version %s\n", version)
		},
	}
}
