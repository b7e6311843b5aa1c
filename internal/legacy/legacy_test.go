package legacy

import (
	"encoding/json"
	"path/filepath"
	"testing"

	bolt "go.etcd.io/bbolt"

	"github.com/rondorn/70K-Bands-sub003/internal/schema"
)

// writeFixture builds a legacy database the way the old engine laid it
// out: JSON values in per-category buckets.
func writeFixture(t *testing.T, path string, meta map[string]string) {
	t.Helper()

	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		t.Fatalf("failed to create fixture db: %v", err)
	}
	defer db.Close()

	err = db.Update(func(tx *bolt.Tx) error {
		bands, err := tx.CreateBucketIfNotExists(bucketBands)
		if err != nil {
			return err
		}
		band, _ := json.Marshal(map[string]interface{}{
			"Name": "Sabaton", "Year": 2025, "Country": "Sweden",
		})
		if err := bands.Put([]byte("Sabaton"), band); err != nil {
			return err
		}

		events, err := tx.CreateBucketIfNotExists(bucketEvents)
		if err != nil {
			return err
		}
		ev, _ := json.Marshal(map[string]interface{}{
			"Band": "Sabaton", "TimeIndex": 1700000000, "Year": 2025,
			"Location": "Pool Deck", "type": "Show",
		})
		if err := events.Put([]byte("Sabaton|1700000000"), ev); err != nil {
			return err
		}

		priorities, err := tx.CreateBucketIfNotExists(bucketPriorities)
		if err != nil {
			return err
		}
		pri, _ := json.Marshal(map[string]interface{}{
			"band": "Sabaton", "year": 2025, "level": 1,
			"updatedAt": 1700000500, "deviceId": "old-device",
		})
		if err := priorities.Put([]byte("Sabaton"), pri); err != nil {
			return err
		}

		attendance, err := tx.CreateBucketIfNotExists(bucketAttendance)
		if err != nil {
			return err
		}
		att, _ := json.Marshal(map[string]interface{}{
			"band": "Sabaton", "location": "Pool Deck",
			"startHour": 17, "startMinute": 30, "type": "Show",
			"year": 2025, "status": 2,
			"updatedAt": 1700000600, "deviceId": "old-device",
		})
		if err := attendance.Put([]byte("Sabaton:Pool Deck:17:30:Show:2025"), att); err != nil {
			return err
		}

		if len(meta) > 0 {
			mb, err := tx.CreateBucketIfNotExists(bucketMeta)
			if err != nil {
				return err
			}
			for k, v := range meta {
				if err := mb.Put([]byte(k), []byte(v)); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("failed to populate fixture db: %v", err)
	}
}

func openFixture(t *testing.T, meta map[string]string) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "legacy.db")
	writeFixture(t, path, meta)

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBands(t *testing.T) {
	s := openFixture(t, nil)

	bands, err := s.Bands()
	if err != nil {
		t.Fatalf("Bands failed: %v", err)
	}
	if len(bands) != 1 {
		t.Fatalf("got %d bands, want 1", len(bands))
	}
	if bands[0].Name != "Sabaton" || bands[0].Year != 2025 || bands[0].Country != "Sweden" {
		t.Errorf("band = %+v", bands[0])
	}
}

func TestEventsDecodeTypeString(t *testing.T) {
	s := openFixture(t, nil)

	events, err := s.Events()
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	ev := events[0]
	if ev.Band != "Sabaton" || ev.TimeIndex != 1700000000 {
		t.Errorf("event = %+v", ev)
	}
	if ev.Type != schema.EventTypeShow {
		t.Errorf("type = %v, want the string decoded to Show", ev.Type)
	}
}

func TestPriorities(t *testing.T) {
	s := openFixture(t, nil)

	recs, err := s.Priorities()
	if err != nil {
		t.Fatalf("Priorities failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d priorities, want 1", len(recs))
	}
	want := schema.PriorityRecord{
		Band: "Sabaton", Year: 2025,
		Level: schema.PriorityMust, UpdatedAt: 1700000500, DeviceID: "old-device",
	}
	if recs[0] != want {
		t.Errorf("priority = %+v, want %+v", recs[0], want)
	}
}

func TestAttendance(t *testing.T) {
	s := openFixture(t, nil)

	recs, err := s.Attendance()
	if err != nil {
		t.Fatalf("Attendance failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d attendance records, want 1", len(recs))
	}
	rec := recs[0]
	if rec.Key.Band != "Sabaton" || rec.Key.StartHour != 17 || rec.Key.Type != schema.EventTypeShow {
		t.Errorf("key = %+v", rec.Key)
	}
	if rec.Status != schema.AttendanceSawAll || rec.DeviceID != "old-device" {
		t.Errorf("record = %+v", rec)
	}
}

func TestFlatFileAbsorbed(t *testing.T) {
	s := openFixture(t, map[string]string{"flatfileImported": "true"})
	absorbed, err := s.FlatFileAbsorbed()
	if err != nil {
		t.Fatalf("FlatFileAbsorbed failed: %v", err)
	}
	if !absorbed {
		t.Error("FlatFileAbsorbed = false, want true")
	}
}

func TestFlatFileAbsorbedDefaultsFalse(t *testing.T) {
	s := openFixture(t, nil)
	absorbed, err := s.FlatFileAbsorbed()
	if err != nil {
		t.Fatalf("FlatFileAbsorbed failed: %v", err)
	}
	if absorbed {
		t.Error("FlatFileAbsorbed = true with no meta bucket")
	}
}

func TestMissingBucketsTolerated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")

	// An old install that never wrote events has no events bucket.
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		t.Fatalf("failed to create fixture db: %v", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketBands)
		return err
	})
	db.Close()
	if err != nil {
		t.Fatalf("failed to populate fixture db: %v", err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	events, err := s.Events()
	if err != nil {
		t.Fatalf("Events failed on a missing bucket: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events from a missing bucket", len(events))
	}
}
