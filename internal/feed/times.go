package feed

import (
	"fmt"
	"time"
)

// Feed date and time layouts, in fixed priority order. The first
// layout that parses wins; a row whose date+time matches none of them
// is rejected, never stored with a sentinel time index.
var (
	dateLayouts = []string{
		"1/2/2006",   // M/d/yyyy
		"01/02/2006", // MM/dd/yyyy
	}
	timeLayouts = []string{
		"15:04",   // HH:mm and H:mm
		"3:04 PM", // h:mm a
		"3:04PM",
	}
)

// ParseEventTime combines a feed date and clock string into a concrete
// time in the given location. The location is the device timezone at
// import time; the resulting Unix seconds become the event time index.
func ParseEventTime(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	for _, dl := range dateLayouts {
		for _, tl := range timeLayouts {
			t, err := time.ParseInLocation(dl+" "+tl, date+" "+clock, loc)
			if err == nil {
				return t, nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("unparseable event time %q %q", date, clock)
}
