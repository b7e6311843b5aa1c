// Package migrate performs the one-time transform of all persisted
// data out of the legacy storage engine into the current store.
//
// The pipeline runs at most once, ever. Completion is recorded in the
// store's meta table under versioned flags, so bumping a version suffix
// forces exactly one re-migration after a schema change. A failed
// migration still marks itself completed: retrying a partially-applied
// migration risks duplicate or conflicting writes, so re-runs happen
// only through the explicit Force entry point.
package migrate

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/rondorn/70K-Bands-sub003/internal/legacy"
	"github.com/rondorn/70K-Bands-sub003/internal/store"
)

// Versioned completion flags in the store meta table. Bump the suffix
// to force one re-migration of that stage.
const (
	legacyFlagKey   = "migrated:legacy:v1"
	flatFileFlagKey = "migrated:flatfile:v1"
)

// minLegacyFileSize is the presence heuristic: a legacy database file
// smaller than this is an empty placeholder from a fresh install, and
// migrating it would be a false positive.
const minLegacyFileSize = 1024

// State describes where the pipeline is in its lifecycle.
type State int

const (
	// StateNotStarted means Run has not been called.
	StateNotStarted State = iota
	// StateChecking means the pipeline is deciding whether legacy data exists.
	StateChecking
	// StateNoLegacyData means a fresh install was detected; nothing to do.
	StateNoLegacyData
	// StateMigrating means the copy is in progress.
	StateMigrating
	// StateCompleted means the pipeline finished (possibly with errors).
	StateCompleted
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateChecking:
		return "checking"
	case StateNoLegacyData:
		return "no-legacy-data"
	case StateMigrating:
		return "migrating"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// OpenFunc opens the legacy source. Injectable so tests can count how
// often the legacy engine is actually initialized.
type OpenFunc func(path string) (legacy.Source, error)

// DefaultOpen opens the real bbolt-backed legacy store.
func DefaultOpen(path string) (legacy.Source, error) {
	return legacy.Open(path)
}

// Pipeline copies legacy data into the store, at most once.
type Pipeline struct {
	store        *store.Store
	legacyPath   string
	flatFilePath string
	year         int
	open         OpenFunc
	logger       *log.Logger

	mu    sync.Mutex
	state State
}

// New creates a pipeline. year is the festival year used for flat-file
// priority rows, which predate per-year bookkeeping. If open is nil,
// DefaultOpen is used; if logger is nil, a stderr logger is used.
func New(st *store.Store, legacyPath, flatFilePath string, year int, open OpenFunc, logger *log.Logger) *Pipeline {
	if open == nil {
		open = DefaultOpen
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[migrate] ", log.LstdFlags)
	}
	return &Pipeline{
		store:        st,
		legacyPath:   legacyPath,
		flatFilePath: flatFilePath,
		year:         year,
		open:         open,
		logger:       logger,
		state:        StateNotStarted,
	}
}

// State returns the pipeline's current state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Run executes the migration if it has never completed. Safe to call
// from every startup; after the first completion it only reads the
// flags and returns without touching the legacy engine.
func (p *Pipeline) Run(ctx context.Context) error {
	p.mu.Lock()
	if p.state == StateMigrating {
		p.mu.Unlock()
		return fmt.Errorf("migration already in progress")
	}
	p.state = StateChecking
	p.mu.Unlock()

	// Flags first: initializing the legacy engine is expensive and must
	// be skippable on every run after the first.
	legacyDone, err := p.flagSet(ctx, legacyFlagKey)
	if err != nil {
		return err
	}
	flatDone, err := p.flagSet(ctx, flatFileFlagKey)
	if err != nil {
		return err
	}
	if legacyDone && flatDone {
		p.setState(StateCompleted)
		return nil
	}

	if !legacyDone {
		// Presence heuristic: no legacy file, or an implausibly small
		// placeholder, means a fresh install. Short-circuit without
		// reading anything.
		info, statErr := os.Stat(p.legacyPath)
		if statErr != nil || info.Size() < minLegacyFileSize {
			p.logger.Printf("No legacy data at %s; marking migration complete", p.legacyPath)
			if err := p.markDone(ctx, legacyFlagKey); err != nil {
				return err
			}
			if err := p.markDone(ctx, flatFileFlagKey); err != nil {
				return err
			}
			p.setState(StateNoLegacyData)
			return nil
		}

		p.setState(StateMigrating)
		absorbed, migErr := p.migrateLegacy(ctx)

		// Completed even on failure; no automatic retry.
		if err := p.markDone(ctx, legacyFlagKey); err != nil {
			return err
		}
		if absorbed {
			if err := p.markDone(ctx, flatFileFlagKey); err != nil {
				return err
			}
			flatDone = true
		}
		if migErr != nil {
			p.setState(StateCompleted)
			p.logger.Printf("Legacy migration failed (will not retry): %v", migErr)
			return fmt.Errorf("legacy migration failed: %w", migErr)
		}
	}

	if !flatDone {
		flatErr := p.migrateFlatFile(ctx)
		if err := p.markDone(ctx, flatFileFlagKey); err != nil {
			return err
		}
		if flatErr != nil {
			p.setState(StateCompleted)
			p.logger.Printf("Flat-file migration failed (will not retry): %v", flatErr)
			return fmt.Errorf("flat-file migration failed: %w", flatErr)
		}
	}

	p.setState(StateCompleted)
	return nil
}

// Force clears both completion flags and runs the migration again.
// This is the only supported way to re-migrate.
func (p *Pipeline) Force(ctx context.Context) error {
	if err := p.store.SetMeta(ctx, legacyFlagKey, "false"); err != nil {
		return err
	}
	if err := p.store.SetMeta(ctx, flatFileFlagKey, "false"); err != nil {
		return err
	}
	p.setState(StateNotStarted)
	return p.Run(ctx)
}

func (p *Pipeline) flagSet(ctx context.Context, key string) (bool, error) {
	value, ok, err := p.store.GetMeta(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to read migration flag %q: %w", key, err)
	}
	return ok && value == "true", nil
}

func (p *Pipeline) markDone(ctx context.Context, key string) error {
	if err := p.store.SetMeta(ctx, key, "true"); err != nil {
		return fmt.Errorf("failed to set migration flag %q: %w", key, err)
	}
	return nil
}

// migrateLegacy copies every record category out of the legacy store.
// It returns whether the legacy store's own bookkeeping says the flat
// file was already absorbed through the old engine, so the flat-file
// stage can be skipped and the same priorities are not imported twice.
func (p *Pipeline) migrateLegacy(ctx context.Context) (absorbed bool, err error) {
	src, err := p.open(p.legacyPath)
	if err != nil {
		return false, fmt.Errorf("failed to open legacy store: %w", err)
	}
	defer src.Close()

	var bands, events, priorities, attendance int

	srcBands, err := src.Bands()
	if err != nil {
		return false, err
	}
	for _, b := range srcBands {
		if err := p.store.UpsertBand(ctx, b); err != nil {
			return false, err
		}
		bands++
	}

	srcEvents, err := src.Events()
	if err != nil {
		return false, err
	}
	for _, ev := range srcEvents {
		if err := p.store.UpsertEvent(ctx, ev); err != nil {
			return false, err
		}
		events++
	}

	srcPriorities, err := src.Priorities()
	if err != nil {
		return false, err
	}
	for _, rec := range srcPriorities {
		if err := p.store.SetPriority(ctx, rec); err != nil {
			return false, err
		}
		priorities++
	}

	srcAttendance, err := src.Attendance()
	if err != nil {
		return false, err
	}
	for _, rec := range srcAttendance {
		if err := p.store.SetAttendance(ctx, rec); err != nil {
			return false, err
		}
		attendance++
	}

	absorbed, err = src.FlatFileAbsorbed()
	if err != nil {
		return false, err
	}

	p.logger.Printf("Legacy migration complete: bands=%d events=%d priorities=%d attendance=%d flatFileAbsorbed=%v",
		bands, events, priorities, attendance, absorbed)
	return absorbed, nil
}
