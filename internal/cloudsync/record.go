// Package cloudsync merges the user's priority and attendance
// annotations between the local store and a shared, flat cloud
// key-value store.
//
// Each annotation is one cloud entry:
//
//	"bandName:"+band            -> "<level>:<deviceID>:<unixSeconds>"
//	"eventName:"+attendanceKey  -> "<status>:<deviceID>:<unixSeconds>"
//
// The entry is parsed and discarded on every pass; the cloud store is
// never the system of record. Conflict resolution is deliberately
// simple last-writer-wins with a device-identity tie-break, not a CRDT.
package cloudsync

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rondorn/70K-Bands-sub003/internal/schema"
)

// Cloud key namespaces.
const (
	PriorityKeyPrefix   = "bandName:"
	AttendanceKeyPrefix = "eventName:"
)

// Record is one decoded cloud entry value.
type Record struct {
	// Token is the status or priority token, still undecoded.
	Token string
	// DeviceID identifies the install that wrote the entry.
	DeviceID string
	// Timestamp is the writer's wall-clock Unix seconds.
	Timestamp int64
}

// ParseRecord decodes a "<token>:<deviceID>:<unixSeconds>" value.
// Wrong segment counts and non-numeric timestamps are errors; callers
// skip such entries, they never abort a sync pass.
func ParseRecord(value string) (Record, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return Record{}, fmt.Errorf("malformed record %q: want 3 segments, got %d", value, len(parts))
	}
	ts, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("malformed record %q: bad timestamp: %w", value, err)
	}
	return Record{Token: parts[0], DeviceID: parts[1], Timestamp: ts}, nil
}

// FormatRecord encodes a cloud entry value.
func FormatRecord(token, deviceID string, ts int64) string {
	return fmt.Sprintf("%s:%s:%d", token, deviceID, ts)
}

// PriorityKey returns the cloud key for a band's priority entry.
func PriorityKey(band string) string {
	return PriorityKeyPrefix + band
}

// AttendanceWireKey returns the cloud key for an attendance entry.
func AttendanceWireKey(k schema.AttendanceKey) string {
	return AttendanceKeyPrefix + k.Index()
}

// ParseAttendanceWireKey decodes a cloud attendance key back into a
// structured key. The location segment may itself contain colons, so
// the fixed trailing segments (hour, minute, type, year) are taken from
// the right.
func ParseAttendanceWireKey(key string) (schema.AttendanceKey, error) {
	var k schema.AttendanceKey

	rest := strings.TrimPrefix(key, AttendanceKeyPrefix)
	parts := strings.Split(rest, ":")
	if len(parts) < 6 {
		return k, fmt.Errorf("malformed attendance key %q: want 6+ segments, got %d", key, len(parts))
	}

	n := len(parts)
	year, err := strconv.Atoi(parts[n-1])
	if err != nil {
		return k, fmt.Errorf("malformed attendance key %q: bad year: %w", key, err)
	}
	minute, err := strconv.Atoi(parts[n-3])
	if err != nil {
		return k, fmt.Errorf("malformed attendance key %q: bad minute: %w", key, err)
	}
	hour, err := strconv.Atoi(parts[n-4])
	if err != nil {
		return k, fmt.Errorf("malformed attendance key %q: bad hour: %w", key, err)
	}

	k.Band = parts[0]
	k.Location = strings.Join(parts[1:n-4], ":")
	k.StartHour = hour
	k.StartMinute = minute
	k.Type = schema.ParseEventType(parts[n-2])
	k.Year = year

	if err := k.Validate(); err != nil {
		return k, fmt.Errorf("malformed attendance key %q: %w", key, err)
	}
	return k, nil
}
