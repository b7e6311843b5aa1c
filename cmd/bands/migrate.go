package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rondorn/70K-Bands-sub003/internal/coordinator"
)

var migrateForce bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate data from the legacy storage engine",
	Long: `Migrate copies every band, event, priority, and attendance record out
of the legacy storage engine into the current store, then absorbs the
old flat-file priority export if one exists.

The migration runs at most once; rerunning the command is a no-op once
the completion flags are set. Use --force to clear the flags and run it
again deliberately.`,
	Run: func(cmd *cobra.Command, args []string) {
		a, err := buildApp()
		if err != nil {
			fail("%v", err)
		}
		defer a.close()

		ctx := cmd.Context()

		var migErr error
		a.coord.Request(coordinator.OpMigration, func() {
			if migrateForce {
				migErr = a.pipeline.Force(ctx)
			} else {
				migErr = a.pipeline.Run(ctx)
			}
		})
		a.coord.Wait()

		if migErr != nil {
			fail("migration failed: %v", migErr)
		}
		fmt.Printf("Migration state: %s\n", a.pipeline.State())
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateForce, "force", false, "clear completion flags and re-run the migration")
	rootCmd.AddCommand(migrateCmd)
}
