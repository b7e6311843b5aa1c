package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rondorn/70K-Bands-sub003/internal/daemon"
	"github.com/rondorn/70K-Bands-sub003/internal/logging"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the background refresh daemon (foreground)",
	Long: `Daemon keeps the catalog fresh: it refreshes the feeds and syncs
annotations on the configured schedule, and watches the drop directory
for manually supplied *.csv feed files.

The migration pipeline runs once before any scheduled work starts.`,
	Run: func(cmd *cobra.Command, args []string) {
		a, err := buildApp()
		if err != nil {
			fail("%v", err)
		}
		defer a.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// Legacy data must land before normal traffic.
		if err := a.pipeline.Run(ctx); err != nil {
			fmt.Printf("Warning: migration failed (will not retry): %v\n", err)
		}

		jobs := daemon.Jobs{
			ImportBands:      a.importBands,
			ImportEvents:     a.importEvents,
			ImportBandsFile:  a.importBandsPath,
			ImportEventsFile: a.importEventsPath,
		}
		if a.engine != nil {
			jobs.CloudSync = func(ctx context.Context) error {
				_, err := a.engine.Sync(ctx, a.cfg.Year)
				return err
			}
		}

		cfg := daemon.DefaultConfig()
		cfg.DropDir = a.cfg.DropDir
		cfg.CronSpec = a.cfg.RefreshSchedule
		cfg.Logger = logging.New(a.logW, "daemon")

		d, err := daemon.New(a.coord, jobs, cfg)
		if err != nil {
			fail("%v", err)
		}

		fmt.Println("Daemon running; press Ctrl+C to stop")
		if err := d.Start(ctx); err != nil {
			fail("daemon stopped with error: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}
