package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/rondorn/70K-Bands-sub003/internal/cloudsync"
	"github.com/rondorn/70K-Bands-sub003/internal/config"
	"github.com/rondorn/70K-Bands-sub003/internal/coordinator"
	"github.com/rondorn/70K-Bands-sub003/internal/device"
	"github.com/rondorn/70K-Bands-sub003/internal/feed"
	"github.com/rondorn/70K-Bands-sub003/internal/logging"
	"github.com/rondorn/70K-Bands-sub003/internal/migrate"
	"github.com/rondorn/70K-Bands-sub003/internal/store"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "bands",
	Short: "Festival lineup tracker",
	Long: `bands keeps the festival's band and event catalog cached locally,
reconciles it from the published CSV feeds, and syncs your priority and
attendance annotations across devices.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (YAML)")
}

// app bundles the wired components behind every command. Components are
// constructed here and injected explicitly; there are no shared
// singletons.
type app struct {
	cfg      *config.Config
	store    *store.Store
	deviceID string
	logW     io.Writer
	importer *feed.Importer
	fetch    feed.FetchFunc
	engine   *cloudsync.Engine
	coord    *coordinator.Coordinator
	pipeline *migrate.Pipeline
}

// buildApp loads configuration and wires the component graph.
// The caller must app.close() when done.
func buildApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logW := logging.Writer(cfg.LogFile)

	st, err := store.Open(cfg.StorePath())
	if err != nil {
		return nil, err
	}
	if err := st.InitSchema(context.Background()); err != nil {
		_ = st.Close()
		return nil, err
	}

	deviceID, err := device.ID(cfg.DeviceIDPath())
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		store:    st,
		deviceID: deviceID,
		logW:     logW,
		fetch:    feed.HTTPFetch(&http.Client{Timeout: cfg.HTTPTimeout}),
		coord:    coordinator.New(logging.New(logW, "coordinator")),
	}

	a.importer = feed.NewImporter(st, logging.New(logW, "import"))
	a.importer.Abort = a.coord.YearChangeActive

	if cfg.CloudURL != "" {
		kv := cloudsync.NewHTTPKV(cfg.CloudURL, &http.Client{Timeout: cfg.HTTPTimeout})
		a.engine = cloudsync.New(st, kv, deviceID, logging.New(logW, "cloudsync"))
	}

	a.pipeline = migrate.New(st, cfg.LegacyStorePath(), cfg.FlatFilePath(),
		cfg.Year, nil, logging.New(logW, "migrate"))

	return a, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

// fail prints the error and exits.
func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
