package cloudsync

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/rondorn/70K-Bands-sub003/internal/schema"
	"github.com/rondorn/70K-Bands-sub003/internal/store"
)

// Engine performs the two-way merge between the store and the cloud KV.
type Engine struct {
	store    *store.Store
	kv       KV
	deviceID string
	logger   *log.Logger
}

// New creates a sync engine for this install.
// If logger is nil, a default stderr logger is used.
func New(st *store.Store, kv KV, deviceID string, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(os.Stderr, "[cloudsync] ", log.LstdFlags)
	}
	return &Engine{
		store:    st,
		kv:       kv,
		deviceID: deviceID,
		logger:   logger,
	}
}

// Stats carries counters from one sync pass.
type Stats struct {
	Adopted   int // remote values written into the store
	Ignored   int // remote values rejected by the precedence rules
	Pushed    int // local values announced to the cloud
	Malformed int // remote entries skipped as unparseable
}

// Sync runs a full two-way sync for year: pull strictly before push.
// Push must see the just-pulled store state so it does not re-announce
// values the pull step just rejected.
func (e *Engine) Sync(ctx context.Context, year int) (*Stats, error) {
	stats := &Stats{}
	if err := e.Pull(ctx, year, stats); err != nil {
		return stats, err
	}
	if err := e.Push(ctx, year, stats); err != nil {
		return stats, err
	}
	e.logger.Printf("Sync complete: adopted=%d ignored=%d pushed=%d malformed=%d",
		stats.Adopted, stats.Ignored, stats.Pushed, stats.Malformed)
	return stats, nil
}

// shouldAdopt applies the three precedence rules to one remote record.
//
//	Rule 1: same device and local data present -> ignore; our own write
//	        already landed locally.
//	Rule 2: different device and local data present -> adopt only if the
//	        remote timestamp is strictly newer. A local record with no
//	        timestamp rejects the remote: a device that never recorded
//	        when it last changed cannot know it is behind, so migrated
//	        records stay local until the user touches them here.
//	Rule 3: no local data -> adopt unconditionally.
func (e *Engine) shouldAdopt(localPresent bool, localTS int64, remote Record) bool {
	if !localPresent {
		return true
	}
	if remote.DeviceID == e.deviceID {
		return false
	}
	if localTS == 0 {
		return false
	}
	return remote.Timestamp > localTS
}

// Pull merges remote entries into the store.
// Malformed entries are logged and skipped, never partially applied.
func (e *Engine) Pull(ctx context.Context, year int, stats *Stats) error {
	entries, err := e.kv.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list cloud entries: %w", err)
	}

	for key, value := range entries {
		switch {
		case strings.HasPrefix(key, PriorityKeyPrefix):
			e.pullPriority(ctx, strings.TrimPrefix(key, PriorityKeyPrefix), value, year, stats)
		case strings.HasPrefix(key, AttendanceKeyPrefix):
			e.pullAttendance(ctx, key, value, stats)
		}
	}
	return nil
}

func (e *Engine) pullPriority(ctx context.Context, band, value string, year int, stats *Stats) {
	remote, err := ParseRecord(value)
	if err != nil {
		e.logger.Printf("Skipping malformed priority entry for %q: %v", band, err)
		stats.Malformed++
		return
	}
	level, err := schema.ParsePriorityLevel(remote.Token)
	if err != nil {
		e.logger.Printf("Skipping malformed priority entry for %q: %v", band, err)
		stats.Malformed++
		return
	}

	local, err := e.store.GetPriority(ctx, band, year)
	if err != nil {
		e.logger.Printf("Failed to read local priority for %q: %v", band, err)
		return
	}

	if !e.shouldAdopt(local.Level != schema.PriorityUnset, local.UpdatedAt, remote) {
		stats.Ignored++
		return
	}

	rec := schema.PriorityRecord{
		Band:      band,
		Year:      year,
		Level:     level,
		UpdatedAt: remote.Timestamp,
		DeviceID:  remote.DeviceID,
	}
	if err := e.store.SetPriority(ctx, rec); err != nil {
		e.logger.Printf("Failed to adopt remote priority for %q: %v", band, err)
		return
	}
	stats.Adopted++
}

func (e *Engine) pullAttendance(ctx context.Context, key, value string, stats *Stats) {
	k, err := ParseAttendanceWireKey(key)
	if err != nil {
		e.logger.Printf("Skipping malformed attendance entry: %v", err)
		stats.Malformed++
		return
	}
	remote, err := ParseRecord(value)
	if err != nil {
		e.logger.Printf("Skipping malformed attendance entry for %q: %v", k.Index(), err)
		stats.Malformed++
		return
	}
	status, err := schema.ParseAttendanceStatus(remote.Token)
	if err != nil {
		e.logger.Printf("Skipping malformed attendance entry for %q: %v", k.Index(), err)
		stats.Malformed++
		return
	}

	local, err := e.store.GetAttendance(ctx, k)
	if err != nil {
		e.logger.Printf("Failed to read local attendance for %q: %v", k.Index(), err)
		return
	}

	if !e.shouldAdopt(local.Status != schema.AttendanceUnset, local.UpdatedAt, remote) {
		stats.Ignored++
		return
	}

	rec := schema.AttendanceRecord{
		Key:       k,
		Status:    status,
		UpdatedAt: remote.Timestamp,
		DeviceID:  remote.DeviceID,
	}
	if err := e.store.SetAttendance(ctx, rec); err != nil {
		e.logger.Printf("Failed to adopt remote attendance for %q: %v", k.Index(), err)
		return
	}
	stats.Adopted++
}

// Push announces local annotations to the cloud. A local value is
// written only when the remote entry is absent or strictly older; a
// more recent remote value is never downgraded.
func (e *Engine) Push(ctx context.Context, year int, stats *Stats) error {
	// Fresh snapshot: the pull pass may have changed what is newest.
	entries, err := e.kv.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list cloud entries: %w", err)
	}

	priorities, err := e.store.AllPriorities(ctx, year)
	if err != nil {
		return fmt.Errorf("failed to read local priorities: %w", err)
	}
	for _, rec := range priorities {
		if rec.Level == schema.PriorityUnset {
			continue
		}
		key := PriorityKey(rec.Band)
		if !e.remoteIsOlder(entries[key], rec.UpdatedAt) {
			continue
		}
		value := FormatRecord(fmt.Sprintf("%d", rec.Level), e.deviceID, rec.UpdatedAt)
		if err := e.kv.Set(ctx, key, value); err != nil {
			e.logger.Printf("Failed to push priority for %q: %v", rec.Band, err)
			continue
		}
		stats.Pushed++
	}

	attendance, err := e.store.AllAttendance(ctx, year)
	if err != nil {
		return fmt.Errorf("failed to read local attendance: %w", err)
	}
	for _, rec := range attendance {
		if rec.Status == schema.AttendanceUnset {
			continue
		}
		key := AttendanceWireKey(rec.Key)
		if !e.remoteIsOlder(entries[key], rec.UpdatedAt) {
			continue
		}
		value := FormatRecord(rec.Status.Token(), e.deviceID, rec.UpdatedAt)
		if err := e.kv.Set(ctx, key, value); err != nil {
			e.logger.Printf("Failed to push attendance for %q: %v", rec.Key.Index(), err)
			continue
		}
		stats.Pushed++
	}

	return nil
}

// remoteIsOlder reports whether a local timestamp beats the remote
// entry. An absent entry always loses; a malformed one cannot express
// recency and is overwritten.
func (e *Engine) remoteIsOlder(remoteValue string, localTS int64) bool {
	if remoteValue == "" {
		return true
	}
	remote, err := ParseRecord(remoteValue)
	if err != nil {
		e.logger.Printf("Overwriting malformed remote entry: %v", err)
		return true
	}
	return localTS > remote.Timestamp
}
