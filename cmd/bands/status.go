package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show catalog and migration status",
	Run: func(cmd *cobra.Command, args []string) {
		a, err := buildApp()
		if err != nil {
			fail("%v", err)
		}
		defer a.close()

		ctx := cmd.Context()

		bands, err := a.store.BandCount(ctx)
		if err != nil {
			fail("%v", err)
		}
		events, err := a.store.EventCount(ctx)
		if err != nil {
			fail("%v", err)
		}
		priorities, err := a.store.AllPriorities(ctx, a.cfg.Year)
		if err != nil {
			fail("%v", err)
		}
		attendance, err := a.store.AllAttendance(ctx, a.cfg.Year)
		if err != nil {
			fail("%v", err)
		}

		fmt.Printf("Year:        %d\n", a.cfg.Year)
		fmt.Printf("Device:      %s\n", a.deviceID)
		fmt.Printf("Store:       %s\n", a.store.Path())
		fmt.Printf("Bands:       %d\n", bands)
		fmt.Printf("Events:      %d\n", events)
		fmt.Printf("Priorities:  %d\n", len(priorities))
		fmt.Printf("Attendance:  %d\n", len(attendance))
		if a.engine != nil {
			fmt.Printf("Cloud:       %s\n", a.cfg.CloudURL)
		} else {
			fmt.Println("Cloud:       disabled")
		}

		legacyDone, _, err := a.store.GetMeta(ctx, "migrated:legacy:v1")
		if err != nil {
			fail("%v", err)
		}
		flatDone, _, err := a.store.GetMeta(ctx, "migrated:flatfile:v1")
		if err != nil {
			fail("%v", err)
		}
		fmt.Printf("Migrated:    legacy=%s flatfile=%s\n",
			yesNo(legacyDone), yesNo(flatDone))
	},
}

func yesNo(flag string) string {
	if flag == "true" {
		return "yes"
	}
	return "no"
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
