package schema

import (
	"fmt"
	"strings"
	"time"
)

// EventType classifies a scheduled event.
//
// The feed carries these as loose strings; they are decoded once at the
// import boundary so everything downstream can switch exhaustively.
type EventType int

const (
	// EventTypeUnknown is the fallback for unrecognized feed values.
	EventTypeUnknown EventType = iota
	// EventTypeShow is a regular stage performance.
	EventTypeShow
	// EventTypeMeetAndGreet is a meet & greet session.
	EventTypeMeetAndGreet
	// EventTypeClinic is an instrument clinic.
	EventTypeClinic
	// EventTypeSpecial is a special festival event.
	EventTypeSpecial
	// EventTypeUnofficial is a cruiser-organized / unofficial event.
	EventTypeUnofficial
	// EventTypeKaraoke is a karaoke session.
	EventTypeKaraoke
)

// String returns the feed-facing name of the event type.
func (t EventType) String() string {
	switch t {
	case EventTypeShow:
		return "Show"
	case EventTypeMeetAndGreet:
		return "Meet and Greet"
	case EventTypeClinic:
		return "Clinic"
	case EventTypeSpecial:
		return "Special Event"
	case EventTypeUnofficial:
		return "Cruiser Organized"
	case EventTypeKaraoke:
		return "Karaoke"
	default:
		return "Unknown"
	}
}

// ParseEventType maps a feed string to an EventType.
// Unrecognized values map to EventTypeUnknown rather than failing;
// an odd type label is not a reason to drop a schedule row.
func ParseEventType(s string) EventType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "show":
		return EventTypeShow
	case "meet and greet", "meet & greet", "m&g":
		return EventTypeMeetAndGreet
	case "clinic":
		return EventTypeClinic
	case "special event", "special":
		return EventTypeSpecial
	case "cruiser organized", "cruiser organized event", "unofficial event", "unofficial":
		return EventTypeUnofficial
	case "karaoke":
		return EventTypeKaraoke
	default:
		return EventTypeUnknown
	}
}

// Event represents one scheduled slot in the festival catalog.
//
// Events are uniquely identified by (Band, TimeIndex, Year) where
// TimeIndex is the start time as Unix seconds, computed from the feed's
// date+time strings in the device timezone at import time.
//
// An event whose EndTimeIndex precedes TimeIndex is stored literally;
// midnight crossing is a presentation concern, not an import error.
type Event struct {
	Band      string
	TimeIndex int64
	Year      int

	EndTimeIndex int64
	Location     string
	Date         string
	Day          string
	StartTime    string
	EndTime      string
	Type         EventType
	Notes        string
	DescURL      string
	ImageURL     string
}

// Key returns the natural key for this event.
func (e *Event) Key() EventKey {
	return EventKey{Band: e.Band, TimeIndex: e.TimeIndex, Year: e.Year}
}

// Validate checks the natural key, including the load-bearing rule that
// TimeIndex is a real, non-negative parse result. Rows that failed time
// parsing must be rejected upstream, never stored with a sentinel.
func (e *Event) Validate() error {
	if e.Band == "" {
		return fmt.Errorf("event band is required")
	}
	if e.TimeIndex < 0 {
		return fmt.Errorf("event time index must be non-negative (got %d)", e.TimeIndex)
	}
	if e.Year <= 0 {
		return fmt.Errorf("event year must be positive (got %d)", e.Year)
	}
	return nil
}

// AttendanceKey derives the attendance annotation key for this event.
func (e *Event) AttendanceKey() AttendanceKey {
	start := time.Unix(e.TimeIndex, 0)
	return AttendanceKey{
		Band:        e.Band,
		Location:    e.Location,
		StartHour:   start.Hour(),
		StartMinute: start.Minute(),
		Type:        e.Type,
		Year:        e.Year,
	}
}

// EventKey is the natural key of an Event.
type EventKey struct {
	Band      string
	TimeIndex int64
	Year      int
}

// String renders the key for logs.
func (k EventKey) String() string {
	return fmt.Sprintf("%s@%d (%d)", k.Band, k.TimeIndex, k.Year)
}
