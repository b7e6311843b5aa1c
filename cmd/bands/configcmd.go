package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rondorn/70K-Bands-sub003/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Run: func(cmd *cobra.Command, args []string) {
		path := configPath
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				fail("%v", err)
			}
			path = filepath.Join(home, ".bands", "config.yaml")
		}
		if err := config.WriteDefault(path); err != nil {
			fail("%v", err)
		}
		fmt.Printf("Wrote %s\n", path)
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(configPath)
		if err != nil {
			fail("%v", err)
		}
		fmt.Printf("data_dir:         %s\n", cfg.DataDir)
		fmt.Printf("year:             %d\n", cfg.Year)
		fmt.Printf("bands_url:        %s\n", cfg.BandsURL)
		fmt.Printf("events_url:       %s\n", cfg.EventsURL)
		fmt.Printf("drop_dir:         %s\n", cfg.DropDir)
		fmt.Printf("refresh_schedule: %s\n", cfg.RefreshSchedule)
		fmt.Printf("cloud_url:        %s\n", cfg.CloudURL)
		fmt.Printf("log_file:         %s\n", cfg.LogFile)
		fmt.Printf("http_timeout:     %s\n", cfg.HTTPTimeout)
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
