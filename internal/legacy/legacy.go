// Package legacy provides a read-only handle over the previous storage
// engine, a bbolt database, consumed only by the migration pipeline.
//
// Bucket layout of the old engine:
//
//	bands       name            -> JSON band record
//	events      band|timeIndex  -> JSON event record
//	priorities  band            -> JSON priority record
//	attendance  composite index -> JSON attendance record
//	meta        bookkeeping flags, notably "flatfileImported"
//
// Opening bbolt is itself expensive and must be skipped entirely when
// the migration flag is already set; callers check the flag first.
package legacy

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/rondorn/70K-Bands-sub003/internal/schema"
)

// Bucket names in the legacy database.
var (
	bucketBands      = []byte("bands")
	bucketEvents     = []byte("events")
	bucketPriorities = []byte("priorities")
	bucketAttendance = []byte("attendance")
	bucketMeta       = []byte("meta")
)

// Source is what the migration pipeline needs from the legacy engine.
// It is an interface so tests can count reads with a spy.
type Source interface {
	Bands() ([]*schema.Band, error)
	Events() ([]*schema.Event, error)
	Priorities() ([]schema.PriorityRecord, error)
	Attendance() ([]schema.AttendanceRecord, error)
	// FlatFileAbsorbed reports whether the legacy engine's own
	// bookkeeping says it already imported the flat-file export.
	FlatFileAbsorbed() (bool, error)
	Close() error
}

// Store is the bbolt-backed Source.
type Store struct {
	db   *bolt.DB
	path string
}

// Open opens the legacy database read-only.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0400, &bolt.Options{
		ReadOnly: true,
		Timeout:  5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open legacy store %s: %w", path, err)
	}
	return &Store{db: db, path: path}, nil
}

// Close releases the legacy database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return fmt.Errorf("failed to close legacy store: %w", err)
	}
	return nil
}

// legacyPriority is the old engine's JSON shape for a priority row.
type legacyPriority struct {
	Band      string `json:"band"`
	Year      int    `json:"year"`
	Level     int    `json:"level"`
	UpdatedAt int64  `json:"updatedAt"`
	DeviceID  string `json:"deviceId"`
}

// legacyAttendance is the old engine's JSON shape for an attendance row.
type legacyAttendance struct {
	Band        string `json:"band"`
	Location    string `json:"location"`
	StartHour   int    `json:"startHour"`
	StartMinute int    `json:"startMinute"`
	Type        string `json:"type"`
	Year        int    `json:"year"`
	Status      int    `json:"status"`
	UpdatedAt   int64  `json:"updatedAt"`
	DeviceID    string `json:"deviceId"`
}

// forEach walks one bucket, tolerating its absence (older installs did
// not create every bucket).
func (s *Store) forEach(bucket []byte, fn func(k, v []byte) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		return b.ForEach(fn)
	})
}

// Bands reads every band record from the legacy store.
func (s *Store) Bands() ([]*schema.Band, error) {
	var bands []*schema.Band
	err := s.forEach(bucketBands, func(k, v []byte) error {
		var b schema.Band
		if err := json.Unmarshal(v, &b); err != nil {
			return fmt.Errorf("corrupt legacy band %q: %w", k, err)
		}
		bands = append(bands, &b)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bands, nil
}

// Events reads every event record from the legacy store.
func (s *Store) Events() ([]*schema.Event, error) {
	var events []*schema.Event
	err := s.forEach(bucketEvents, func(k, v []byte) error {
		var ev struct {
			schema.Event
			Type string `json:"type"`
		}
		if err := json.Unmarshal(v, &ev); err != nil {
			return fmt.Errorf("corrupt legacy event %q: %w", k, err)
		}
		out := ev.Event
		out.Type = schema.ParseEventType(ev.Type)
		events = append(events, &out)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Priorities reads every priority record from the legacy store.
func (s *Store) Priorities() ([]schema.PriorityRecord, error) {
	var recs []schema.PriorityRecord
	err := s.forEach(bucketPriorities, func(k, v []byte) error {
		var p legacyPriority
		if err := json.Unmarshal(v, &p); err != nil {
			return fmt.Errorf("corrupt legacy priority %q: %w", k, err)
		}
		recs = append(recs, schema.PriorityRecord{
			Band:      p.Band,
			Year:      p.Year,
			Level:     schema.PriorityLevel(p.Level),
			UpdatedAt: p.UpdatedAt,
			DeviceID:  p.DeviceID,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// Attendance reads every attendance record from the legacy store.
func (s *Store) Attendance() ([]schema.AttendanceRecord, error) {
	var recs []schema.AttendanceRecord
	err := s.forEach(bucketAttendance, func(k, v []byte) error {
		var a legacyAttendance
		if err := json.Unmarshal(v, &a); err != nil {
			return fmt.Errorf("corrupt legacy attendance %q: %w", k, err)
		}
		recs = append(recs, schema.AttendanceRecord{
			Key: schema.AttendanceKey{
				Band:        a.Band,
				Location:    a.Location,
				StartHour:   a.StartHour,
				StartMinute: a.StartMinute,
				Type:        schema.ParseEventType(a.Type),
				Year:        a.Year,
			},
			Status:    schema.AttendanceStatus(a.Status),
			UpdatedAt: a.UpdatedAt,
			DeviceID:  a.DeviceID,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// FlatFileAbsorbed implements Source.
func (s *Store) FlatFileAbsorbed() (bool, error) {
	var absorbed bool
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		if b == nil {
			return nil
		}
		absorbed = string(b.Get([]byte("flatfileImported"))) == "true"
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to read legacy bookkeeping: %w", err)
	}
	return absorbed, nil
}
