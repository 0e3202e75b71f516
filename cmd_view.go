package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pthm-cable/snow/simulation"
	"github.com/pthm-cable/snow/ui"
)

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Open the live viewer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logStats, _ := cmd.Flags().GetBool("log-stats")
			maxTicks, _ := cmd.Flags().GetInt64("max-ticks")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			v, err := ui.NewViewer(cfg, simulation.Options{Logger: slog.Default(), LogStats: logStats})
			if err != nil {
				return err
			}
			if err := v.Run(ctx, maxTicks); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().Int64("max-ticks", 0, "Close the viewer after N ticks (0 = unlimited)")
	return cmd
}
