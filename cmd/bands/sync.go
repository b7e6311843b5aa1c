package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rondorn/70K-Bands-sub003/internal/cloudsync"
	"github.com/rondorn/70K-Bands-sub003/internal/coordinator"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync annotations with the shared cloud store",
	Long: `Sync runs a full two-way merge of your priority and attendance
annotations with the shared key-value store: pull first (applying the
last-writer-wins rules), then push anything the cloud is missing or
holds an older copy of.`,
	Run: func(cmd *cobra.Command, args []string) {
		a, err := buildApp()
		if err != nil {
			fail("%v", err)
		}
		defer a.close()

		if a.engine == nil {
			fail("no cloud_url configured")
		}

		ctx := cmd.Context()

		var stats *cloudsync.Stats
		var syncErr error
		accepted := a.coord.Request(coordinator.OpCloudSync, func() {
			stats, syncErr = a.engine.Sync(ctx, a.cfg.Year)
		})
		a.coord.Wait()

		if !accepted {
			fail("sync dropped: already running or year change in progress")
		}
		if syncErr != nil {
			fail("sync failed: %v", syncErr)
		}

		fmt.Printf("Sync complete: adopted=%d ignored=%d pushed=%d malformed=%d\n",
			stats.Adopted, stats.Ignored, stats.Pushed, stats.Malformed)
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
