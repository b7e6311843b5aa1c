package schema

import (
	"fmt"
	"strconv"
)

// PriorityLevel is the user's ranking of a band.
type PriorityLevel int

const (
	// PriorityUnset means the user has not ranked the band.
	PriorityUnset PriorityLevel = 0
	// PriorityMust marks a must-see band.
	PriorityMust PriorityLevel = 1
	// PriorityMight marks a might-see band.
	PriorityMight PriorityLevel = 2
	// PriorityWont marks a won't-see band.
	PriorityWont PriorityLevel = 3
)

// Valid reports whether the level is one of the defined values.
func (p PriorityLevel) Valid() bool {
	return p >= PriorityUnset && p <= PriorityWont
}

// ParsePriorityLevel decodes a numeric wire token.
func ParsePriorityLevel(s string) (PriorityLevel, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return PriorityUnset, fmt.Errorf("invalid priority token %q: %w", s, err)
	}
	p := PriorityLevel(n)
	if !p.Valid() {
		return PriorityUnset, fmt.Errorf("priority %d out of range", n)
	}
	return p, nil
}

// PriorityRecord is the user's priority annotation for one band.
//
// UpdatedAt is Unix seconds of the last local write; zero means the
// write time was never recorded (legacy migrated data). DeviceID names
// the install that made the last write.
type PriorityRecord struct {
	Band      string
	Year      int
	Level     PriorityLevel
	UpdatedAt int64
	DeviceID  string
}

// AttendanceStatus is the user's attendance annotation for one event.
type AttendanceStatus int

const (
	// AttendanceUnset means no attendance was recorded.
	AttendanceUnset AttendanceStatus = 0
	// AttendanceSawSome means the user saw part of the event.
	AttendanceSawSome AttendanceStatus = 1
	// AttendanceSawAll means the user saw the whole event.
	AttendanceSawAll AttendanceStatus = 2
	// AttendanceSawNone means the user skipped the event.
	AttendanceSawNone AttendanceStatus = 3
)

// Valid reports whether the status is one of the defined values.
func (s AttendanceStatus) Valid() bool {
	return s >= AttendanceUnset && s <= AttendanceSawNone
}

// Token returns the numeric wire token for the status.
func (s AttendanceStatus) Token() string {
	return strconv.Itoa(int(s))
}

// ParseAttendanceStatus decodes a wire token. Both the numeric codes
// and the legacy word forms written by older installs are accepted.
func ParseAttendanceStatus(token string) (AttendanceStatus, error) {
	switch token {
	case "sawSome":
		return AttendanceSawSome, nil
	case "sawAll":
		return AttendanceSawAll, nil
	case "sawNone":
		return AttendanceSawNone, nil
	}
	n, err := strconv.Atoi(token)
	if err != nil {
		return AttendanceUnset, fmt.Errorf("invalid attendance token %q: %w", token, err)
	}
	s := AttendanceStatus(n)
	if !s.Valid() {
		return AttendanceUnset, fmt.Errorf("attendance status %d out of range", n)
	}
	return s, nil
}

// AttendanceKey identifies one attendance annotation. Equality and
// hashing work on the fields; Index renders the canonical composite
// string used for storage and (prefixed) for the cloud wire key.
type AttendanceKey struct {
	Band        string
	Location    string
	StartHour   int
	StartMinute int
	Type        EventType
	Year        int
}

// Index returns the canonical composite index string.
func (k AttendanceKey) Index() string {
	return fmt.Sprintf("%s:%s:%d:%d:%s:%d",
		k.Band, k.Location, k.StartHour, k.StartMinute, k.Type, k.Year)
}

// Validate checks that the key is addressable.
func (k AttendanceKey) Validate() error {
	if k.Band == "" {
		return fmt.Errorf("attendance band is required")
	}
	if k.StartHour < 0 || k.StartHour > 23 || k.StartMinute < 0 || k.StartMinute > 59 {
		return fmt.Errorf("attendance start %d:%d out of range", k.StartHour, k.StartMinute)
	}
	if k.Year <= 0 {
		return fmt.Errorf("attendance year must be positive (got %d)", k.Year)
	}
	return nil
}

// AttendanceRecord is the user's attendance annotation for one event.
type AttendanceRecord struct {
	Key       AttendanceKey
	Status    AttendanceStatus
	UpdatedAt int64
	DeviceID  string
}
