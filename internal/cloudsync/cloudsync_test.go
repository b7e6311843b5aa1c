package cloudsync

import (
	"context"
	"io"
	"log"
	"path/filepath"
	"testing"

	"github.com/rondorn/70K-Bands-sub003/internal/schema"
	"github.com/rondorn/70K-Bands-sub003/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.InitSchema(context.Background()); err != nil {
		t.Fatalf("InitSchema failed: %v", err)
	}
	return s
}

func newTestEngine(t *testing.T, s *store.Store, kv KV, deviceID string) *Engine {
	t.Helper()
	return New(s, kv, deviceID, log.New(io.Discard, "", 0))
}

func TestParseRecord(t *testing.T) {
	rec, err := ParseRecord("2:dev-a:1700000000")
	if err != nil {
		t.Fatalf("ParseRecord failed: %v", err)
	}
	if rec.Token != "2" || rec.DeviceID != "dev-a" || rec.Timestamp != 1700000000 {
		t.Errorf("ParseRecord = %+v", rec)
	}

	for _, bad := range []string{"", "2:dev-a", "2:dev-a:then", "a:b:c:d"} {
		if _, err := ParseRecord(bad); err == nil {
			t.Errorf("ParseRecord(%q) should have failed", bad)
		}
	}
}

func TestAttendanceWireKeyRoundTrip(t *testing.T) {
	k := schema.AttendanceKey{
		Band:        "Sabaton",
		Location:    "Pool Deck",
		StartHour:   17,
		StartMinute: 30,
		Type:        schema.EventTypeShow,
		Year:        2026,
	}
	got, err := ParseAttendanceWireKey(AttendanceWireKey(k))
	if err != nil {
		t.Fatalf("ParseAttendanceWireKey failed: %v", err)
	}
	if got != k {
		t.Errorf("round trip = %+v, want %+v", got, k)
	}
}

func TestAttendanceWireKeyLocationWithColons(t *testing.T) {
	k := schema.AttendanceKey{
		Band:        "Sabaton",
		Location:    "Deck 5: Lounge",
		StartHour:   9,
		StartMinute: 0,
		Type:        schema.EventTypeClinic,
		Year:        2026,
	}
	got, err := ParseAttendanceWireKey(AttendanceWireKey(k))
	if err != nil {
		t.Fatalf("ParseAttendanceWireKey failed: %v", err)
	}
	if got.Location != "Deck 5: Lounge" {
		t.Errorf("Location = %q, want the colons preserved", got.Location)
	}
	if got != k {
		t.Errorf("round trip = %+v, want %+v", got, k)
	}
}

func TestParseAttendanceWireKeyMalformed(t *testing.T) {
	bad := []string{
		"eventName:too:few:parts",
		"eventName:Band:Loc:17:30:Show:notayear",
		"eventName::Loc:17:30:Show:2026",
	}
	for _, key := range bad {
		if _, err := ParseAttendanceWireKey(key); err == nil {
			t.Errorf("ParseAttendanceWireKey(%q) should have failed", key)
		}
	}
}

func TestPullAdoptsWhenNoLocalData(t *testing.T) {
	s := newTestStore(t)
	kv := NewMemoryKV()
	e := newTestEngine(t, s, kv, "dev-local")
	ctx := context.Background()

	_ = kv.Set(ctx, PriorityKey("Sabaton"), FormatRecord("1", "dev-remote", 1000))

	stats, err := e.Sync(ctx, 2026)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if stats.Adopted != 1 {
		t.Errorf("adopted = %d, want 1", stats.Adopted)
	}

	rec, err := s.GetPriority(ctx, "Sabaton", 2026)
	if err != nil {
		t.Fatalf("GetPriority failed: %v", err)
	}
	if rec.Level != schema.PriorityMust || rec.UpdatedAt != 1000 || rec.DeviceID != "dev-remote" {
		t.Errorf("adopted record = %+v", rec)
	}
}

func TestPullIgnoresOwnDeviceEcho(t *testing.T) {
	s := newTestStore(t)
	kv := NewMemoryKV()
	e := newTestEngine(t, s, kv, "dev-local")
	ctx := context.Background()

	local := schema.PriorityRecord{Band: "Sabaton", Year: 2026, Level: schema.PriorityMust, UpdatedAt: 500, DeviceID: "dev-local"}
	if err := s.SetPriority(ctx, local); err != nil {
		t.Fatalf("SetPriority failed: %v", err)
	}
	// Echo of our own write with a newer timestamp still loses.
	_ = kv.Set(ctx, PriorityKey("Sabaton"), FormatRecord("3", "dev-local", 9000))

	stats := &Stats{}
	if err := e.Pull(ctx, 2026, stats); err != nil {
		t.Fatalf("Pull failed: %v", err)
	}
	if stats.Ignored != 1 || stats.Adopted != 0 {
		t.Errorf("stats = %+v, want 1 ignored", stats)
	}

	rec, _ := s.GetPriority(ctx, "Sabaton", 2026)
	if rec.Level != schema.PriorityMust {
		t.Errorf("own echo overwrote local record: %+v", rec)
	}
}

func TestPullAdoptsStrictlyNewerRemote(t *testing.T) {
	s := newTestStore(t)
	kv := NewMemoryKV()
	e := newTestEngine(t, s, kv, "dev-local")
	ctx := context.Background()

	local := schema.PriorityRecord{Band: "Sabaton", Year: 2026, Level: schema.PriorityMust, UpdatedAt: 500, DeviceID: "dev-local"}
	if err := s.SetPriority(ctx, local); err != nil {
		t.Fatalf("SetPriority failed: %v", err)
	}

	// Equal timestamp: local wins.
	_ = kv.Set(ctx, PriorityKey("Sabaton"), FormatRecord("2", "dev-remote", 500))
	stats := &Stats{}
	if err := e.Pull(ctx, 2026, stats); err != nil {
		t.Fatalf("Pull failed: %v", err)
	}
	if stats.Adopted != 0 || stats.Ignored != 1 {
		t.Errorf("equal timestamps should be ignored: %+v", stats)
	}

	// Strictly newer: remote wins.
	_ = kv.Set(ctx, PriorityKey("Sabaton"), FormatRecord("2", "dev-remote", 501))
	stats = &Stats{}
	if err := e.Pull(ctx, 2026, stats); err != nil {
		t.Fatalf("Pull failed: %v", err)
	}
	if stats.Adopted != 1 {
		t.Errorf("strictly newer remote not adopted: %+v", stats)
	}

	rec, _ := s.GetPriority(ctx, "Sabaton", 2026)
	if rec.Level != schema.PriorityMight || rec.UpdatedAt != 501 {
		t.Errorf("adopted record = %+v", rec)
	}
}

func TestPullZeroLocalTimestampRejectsRemote(t *testing.T) {
	s := newTestStore(t)
	kv := NewMemoryKV()
	e := newTestEngine(t, s, kv, "dev-local")
	ctx := context.Background()

	// A migrated record with no write time cannot know it is behind.
	local := schema.PriorityRecord{Band: "Sabaton", Year: 2026, Level: schema.PriorityMust}
	if err := s.SetPriority(ctx, local); err != nil {
		t.Fatalf("SetPriority failed: %v", err)
	}
	_ = kv.Set(ctx, PriorityKey("Sabaton"), FormatRecord("3", "dev-remote", 9000))

	stats := &Stats{}
	if err := e.Pull(ctx, 2026, stats); err != nil {
		t.Fatalf("Pull failed: %v", err)
	}
	if stats.Adopted != 0 || stats.Ignored != 1 {
		t.Errorf("stats = %+v, want the remote rejected", stats)
	}
}

func TestPullSkipsMalformedEntries(t *testing.T) {
	s := newTestStore(t)
	kv := NewMemoryKV()
	e := newTestEngine(t, s, kv, "dev-local")
	ctx := context.Background()

	_ = kv.Set(ctx, PriorityKey("Sabaton"), "not a record")
	_ = kv.Set(ctx, PriorityKey("Kreator"), FormatRecord("9", "dev-remote", 1000))
	_ = kv.Set(ctx, AttendanceKeyPrefix+"garbage", FormatRecord("1", "dev-remote", 1000))
	_ = kv.Set(ctx, PriorityKey("Amorphis"), FormatRecord("1", "dev-remote", 1000))

	stats := &Stats{}
	if err := e.Pull(ctx, 2026, stats); err != nil {
		t.Fatalf("Pull failed: %v", err)
	}
	if stats.Malformed != 3 {
		t.Errorf("malformed = %d, want 3", stats.Malformed)
	}
	if stats.Adopted != 1 {
		t.Errorf("adopted = %d, want the one good entry", stats.Adopted)
	}
}

func TestPushAnnouncesLocalAnnotations(t *testing.T) {
	s := newTestStore(t)
	kv := NewMemoryKV()
	e := newTestEngine(t, s, kv, "dev-local")
	ctx := context.Background()

	pri := schema.PriorityRecord{Band: "Sabaton", Year: 2026, Level: schema.PriorityMust, UpdatedAt: 700, DeviceID: "dev-local"}
	if err := s.SetPriority(ctx, pri); err != nil {
		t.Fatalf("SetPriority failed: %v", err)
	}
	att := schema.AttendanceRecord{
		Key: schema.AttendanceKey{
			Band: "Sabaton", Location: "Pool Deck",
			StartHour: 17, StartMinute: 30,
			Type: schema.EventTypeShow, Year: 2026,
		},
		Status: schema.AttendanceSawAll, UpdatedAt: 700, DeviceID: "dev-local",
	}
	if err := s.SetAttendance(ctx, att); err != nil {
		t.Fatalf("SetAttendance failed: %v", err)
	}
	// Unset records never leave the device.
	if err := s.SetPriority(ctx, schema.PriorityRecord{Band: "Kreator", Year: 2026}); err != nil {
		t.Fatalf("SetPriority failed: %v", err)
	}

	stats := &Stats{}
	if err := e.Push(ctx, 2026, stats); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if stats.Pushed != 2 {
		t.Errorf("pushed = %d, want 2", stats.Pushed)
	}

	entries, _ := kv.List(ctx)
	if entries[PriorityKey("Sabaton")] != "1:dev-local:700" {
		t.Errorf("priority entry = %q", entries[PriorityKey("Sabaton")])
	}
	if entries[AttendanceWireKey(att.Key)] != "2:dev-local:700" {
		t.Errorf("attendance entry = %q", entries[AttendanceWireKey(att.Key)])
	}
	if _, ok := entries[PriorityKey("Kreator")]; ok {
		t.Error("unset priority was pushed")
	}
}

func TestPushNeverDowngradesNewerRemote(t *testing.T) {
	s := newTestStore(t)
	kv := NewMemoryKV()
	e := newTestEngine(t, s, kv, "dev-local")
	ctx := context.Background()

	pri := schema.PriorityRecord{Band: "Sabaton", Year: 2026, Level: schema.PriorityMust, UpdatedAt: 700, DeviceID: "dev-local"}
	if err := s.SetPriority(ctx, pri); err != nil {
		t.Fatalf("SetPriority failed: %v", err)
	}
	remote := FormatRecord("2", "dev-remote", 800)
	_ = kv.Set(ctx, PriorityKey("Sabaton"), remote)

	stats := &Stats{}
	if err := e.Push(ctx, 2026, stats); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if stats.Pushed != 0 {
		t.Errorf("pushed = %d, want 0", stats.Pushed)
	}

	entries, _ := kv.List(ctx)
	if entries[PriorityKey("Sabaton")] != remote {
		t.Errorf("newer remote was downgraded to %q", entries[PriorityKey("Sabaton")])
	}
}

func TestPushOverwritesMalformedRemote(t *testing.T) {
	s := newTestStore(t)
	kv := NewMemoryKV()
	e := newTestEngine(t, s, kv, "dev-local")
	ctx := context.Background()

	pri := schema.PriorityRecord{Band: "Sabaton", Year: 2026, Level: schema.PriorityMust, UpdatedAt: 700, DeviceID: "dev-local"}
	if err := s.SetPriority(ctx, pri); err != nil {
		t.Fatalf("SetPriority failed: %v", err)
	}
	_ = kv.Set(ctx, PriorityKey("Sabaton"), "garbage")

	stats := &Stats{}
	if err := e.Push(ctx, 2026, stats); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if stats.Pushed != 1 {
		t.Errorf("pushed = %d, want the malformed entry replaced", stats.Pushed)
	}

	entries, _ := kv.List(ctx)
	if entries[PriorityKey("Sabaton")] != "1:dev-local:700" {
		t.Errorf("entry = %q", entries[PriorityKey("Sabaton")])
	}
}

func TestSyncPullsBeforePush(t *testing.T) {
	s := newTestStore(t)
	kv := NewMemoryKV()
	e := newTestEngine(t, s, kv, "dev-local")
	ctx := context.Background()

	// Local stale, remote newer. After the sync the remote value must
	// survive on both sides; a push-first ordering would clobber it.
	local := schema.PriorityRecord{Band: "Sabaton", Year: 2026, Level: schema.PriorityMust, UpdatedAt: 100, DeviceID: "dev-local"}
	if err := s.SetPriority(ctx, local); err != nil {
		t.Fatalf("SetPriority failed: %v", err)
	}
	remote := FormatRecord("3", "dev-remote", 900)
	_ = kv.Set(ctx, PriorityKey("Sabaton"), remote)

	stats, err := e.Sync(ctx, 2026)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if stats.Adopted != 1 || stats.Pushed != 0 {
		t.Errorf("stats = %+v, want 1 adopted and nothing pushed", stats)
	}

	rec, _ := s.GetPriority(ctx, "Sabaton", 2026)
	if rec.Level != schema.PriorityWont || rec.UpdatedAt != 900 {
		t.Errorf("local record = %+v", rec)
	}
	entries, _ := kv.List(ctx)
	if entries[PriorityKey("Sabaton")] != remote {
		t.Errorf("cloud entry changed to %q", entries[PriorityKey("Sabaton")])
	}
}

func TestSyncAttendanceAcrossDevices(t *testing.T) {
	sA := newTestStore(t)
	sB := newTestStore(t)
	kv := NewMemoryKV()
	devA := newTestEngine(t, sA, kv, "dev-a")
	devB := newTestEngine(t, sB, kv, "dev-b")
	ctx := context.Background()

	rec := schema.AttendanceRecord{
		Key: schema.AttendanceKey{
			Band: "Sabaton", Location: "Pool Deck",
			StartHour: 17, StartMinute: 30,
			Type: schema.EventTypeShow, Year: 2026,
		},
		Status: schema.AttendanceSawSome, UpdatedAt: 400, DeviceID: "dev-a",
	}
	if err := sA.SetAttendance(ctx, rec); err != nil {
		t.Fatalf("SetAttendance failed: %v", err)
	}

	if _, err := devA.Sync(ctx, 2026); err != nil {
		t.Fatalf("device A sync failed: %v", err)
	}
	stats, err := devB.Sync(ctx, 2026)
	if err != nil {
		t.Fatalf("device B sync failed: %v", err)
	}
	if stats.Adopted != 1 {
		t.Errorf("device B adopted = %d, want 1", stats.Adopted)
	}

	got, err := sB.GetAttendance(ctx, rec.Key)
	if err != nil {
		t.Fatalf("GetAttendance failed: %v", err)
	}
	if got.Status != schema.AttendanceSawSome || got.DeviceID != "dev-a" {
		t.Errorf("device B record = %+v", got)
	}
}
