// Package daemon runs the background refresh loop: a cron-scheduled
// catalog refresh plus a drop-directory watcher for manually supplied
// feed files. All work is routed through the coordinator so scheduled
// and manual triggers can never run the same operation concurrently.
package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"github.com/rondorn/70K-Bands-sub003/internal/coordinator"
)

// Jobs are the operations the daemon can trigger. Each callback does
// its own fetching and importing; the daemon only decides when.
type Jobs struct {
	// ImportBands refreshes the band catalog from the configured URL.
	ImportBands func(ctx context.Context) error
	// ImportEvents refreshes the event catalog from the configured URL.
	ImportEvents func(ctx context.Context) error
	// CloudSync runs a full two-way annotation sync.
	CloudSync func(ctx context.Context) error
	// ImportBandsFile imports a band CSV dropped on disk.
	ImportBandsFile func(ctx context.Context, path string) error
	// ImportEventsFile imports an event CSV dropped on disk.
	ImportEventsFile func(ctx context.Context, path string) error
}

// Config holds daemon configuration.
type Config struct {
	// DropDir is watched for *.csv feed files. Empty disables watching.
	DropDir string

	// CronSpec schedules the periodic refresh (robfig/cron syntax).
	// Empty disables scheduled refresh.
	CronSpec string

	// DebounceInterval batches rapid file events together.
	DebounceInterval time.Duration

	// Logger for daemon activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		CronSpec:         "@every 6h",
		DebounceInterval: 500 * time.Millisecond,
		Logger:           log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Daemon owns the watcher, the cron scheduler, and the debounce queue.
type Daemon struct {
	coord  *coordinator.Coordinator
	jobs   Jobs
	config *Config

	watcher       *fsnotify.Watcher
	cron          *cron.Cron
	changeQueue   map[string]time.Time
	changeQueueMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a daemon. The coordinator and at least the refresh jobs
// must be provided.
func New(coord *coordinator.Coordinator, jobs Jobs, config *Config) (*Daemon, error) {
	if coord == nil {
		return nil, fmt.Errorf("coordinator cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[daemon] ", log.LstdFlags)
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = 500 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		coord:       coord,
		jobs:        jobs,
		config:      config,
		changeQueue: make(map[string]time.Time),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Start begins watching and scheduling. Blocks until ctx is cancelled.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("Starting daemon")

	if d.config.CronSpec != "" {
		d.cron = cron.New()
		if _, err := d.cron.AddFunc(d.config.CronSpec, d.refresh); err != nil {
			return fmt.Errorf("invalid refresh schedule %q: %w", d.config.CronSpec, err)
		}
		d.cron.Start()
		d.config.Logger.Printf("Scheduled refresh: %s", d.config.CronSpec)
	}

	if d.config.DropDir != "" {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to create watcher: %w", err)
		}
		d.watcher = watcher

		if err := os.MkdirAll(d.config.DropDir, 0755); err != nil {
			return fmt.Errorf("failed to create drop directory: %w", err)
		}
		if err := d.watcher.Add(d.config.DropDir); err != nil {
			return fmt.Errorf("failed to watch drop directory: %w", err)
		}
		d.config.Logger.Printf("Watching drop directory: %s", d.config.DropDir)

		d.wg.Add(2)
		go d.watchFileEvents()
		go d.processChangeQueue()
	}

	select {
	case <-ctx.Done():
		d.config.Logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon.
func (d *Daemon) Stop() error {
	d.config.Logger.Println("Stopping daemon")

	d.cancel()
	if d.cron != nil {
		<-d.cron.Stop().Done()
	}
	if d.watcher != nil {
		if err := d.watcher.Close(); err != nil {
			d.config.Logger.Printf("Error closing watcher: %v", err)
		}
	}
	d.wg.Wait()
	d.coord.Wait()

	d.config.Logger.Println("Daemon stopped")
	return nil
}

// refresh triggers the full scheduled pass: both catalog imports, then
// a cloud sync. Each goes through the coordinator; a drop just means
// the same operation is already underway.
func (d *Daemon) refresh() {
	d.config.Logger.Println("Scheduled refresh triggered")

	if d.jobs.ImportBands != nil {
		d.coord.Request(coordinator.OpBandImport, func() {
			if err := d.jobs.ImportBands(d.ctx); err != nil {
				d.config.Logger.Printf("Scheduled band import failed: %v", err)
			}
		})
	}
	if d.jobs.ImportEvents != nil {
		d.coord.Request(coordinator.OpEventImport, func() {
			if err := d.jobs.ImportEvents(d.ctx); err != nil {
				d.config.Logger.Printf("Scheduled event import failed: %v", err)
			}
		})
	}
	if d.jobs.CloudSync != nil {
		d.coord.Request(coordinator.OpCloudSync, func() {
			if err := d.jobs.CloudSync(d.ctx); err != nil {
				d.config.Logger.Printf("Scheduled cloud sync failed: %v", err)
			}
		})
	}
}

// watchFileEvents monitors filesystem events and queues changes.
func (d *Daemon) watchFileEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".csv") {
				continue
			}
			d.config.Logger.Printf("File event: %s %s", event.Op, event.Name)
			d.queueChange(event.Name)

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// queueChange adds a file to the change queue with debouncing.
func (d *Daemon) queueChange(path string) {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()
	d.changeQueue[path] = time.Now()
}

// processChangeQueue drains settled entries from the change queue.
func (d *Daemon) processChangeQueue() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.DebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.processPendingChanges()
		}
	}
}

// processPendingChanges dispatches files that have stopped changing.
func (d *Daemon) processPendingChanges() {
	d.changeQueueMu.Lock()
	var ready []string
	now := time.Now()
	for path, queuedAt := range d.changeQueue {
		if now.Sub(queuedAt) < d.config.DebounceInterval {
			continue
		}
		ready = append(ready, path)
		delete(d.changeQueue, path)
	}
	d.changeQueueMu.Unlock()

	for _, path := range ready {
		d.dispatchDroppedFile(path)
	}
}

// dispatchDroppedFile routes a dropped CSV to the right importer by
// filename: anything containing "event" or "schedule" is an event
// feed, everything else is a band feed.
func (d *Daemon) dispatchDroppedFile(path string) {
	name := strings.ToLower(filepath.Base(path))

	if strings.Contains(name, "event") || strings.Contains(name, "schedule") {
		if d.jobs.ImportEventsFile == nil {
			return
		}
		d.coord.Request(coordinator.OpEventImport, func() {
			if err := d.jobs.ImportEventsFile(d.ctx, path); err != nil {
				d.config.Logger.Printf("Dropped event feed %s failed: %v", path, err)
			}
		})
		return
	}

	if d.jobs.ImportBandsFile == nil {
		return
	}
	d.coord.Request(coordinator.OpBandImport, func() {
		if err := d.jobs.ImportBandsFile(d.ctx, path); err != nil {
			d.config.Logger.Printf("Dropped band feed %s failed: %v", path, err)
		}
	})
}
