package feed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/rondorn/70K-Bands-sub003/internal/schema"
	"github.com/rondorn/70K-Bands-sub003/internal/store"
)

// Error taxonomy for import failures. Both leave the store untouched;
// they are distinguished only for logging.
var (
	// ErrParse indicates the feed could not be parsed at all.
	ErrParse = errors.New("feed parse failure")
	// ErrSafetyGate indicates the feed parsed but is too small to be a
	// plausible complete download.
	ErrSafetyGate = errors.New("feed failed safety gate")
	// ErrAborted indicates a year change interrupted the import.
	ErrAborted = errors.New("import aborted by year change")
)

// Minimum plausible feed sizes. Any valid row passes for bands; the
// events feed is always large, so a tiny one signals a truncated or
// corrupt download.
const (
	minBandRows  = 1
	minEventRows = 10
)

// Importer reconciles CSV feeds into the store for one festival year.
type Importer struct {
	store  *store.Store
	logger *log.Logger

	// Location is the timezone used to compute event time indexes.
	// Defaults to the device's local zone.
	Location *time.Location

	// Abort is checked at safe checkpoints (before the delete phase and
	// before each upsert batch). Returning true stops the import early;
	// the year-change flow uses this as its cancellation mechanism.
	Abort func() bool
}

// NewImporter creates an importer writing into st.
// If logger is nil, a default stderr logger is used.
func NewImporter(st *store.Store, logger *log.Logger) *Importer {
	if logger == nil {
		logger = log.New(os.Stderr, "[import] ", log.LstdFlags)
	}
	return &Importer{
		store:    st,
		logger:   logger,
		Location: time.Local,
	}
}

// Result carries statistics from one import run.
type Result struct {
	Parsed   int
	Rejected int
	Deleted  int
	Written  int
}

func (im *Importer) aborted() bool {
	return im.Abort != nil && im.Abort()
}

// ImportBands reconciles a raw band feed into the store for year.
//
// On any returned error the store is exactly as it was before the call,
// except ErrAborted, which may land after the delete phase.
func (im *Importer) ImportBands(ctx context.Context, raw string, year int) (*Result, error) {
	rows, err := ParseRows(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	res := &Result{Parsed: len(rows)}

	// Build the incoming catalog before touching the store.
	var bands []*schema.Band
	keys := make(map[schema.BandKey]bool)
	for _, row := range rows {
		name := row.Get("bandName")
		if name == "" {
			res.Rejected++
			continue
		}
		band := &schema.Band{
			Name:          name,
			Year:          year,
			OfficialSite:  row.Get("officalSite"),
			ImageURL:      row.Get("imageUrl"),
			YouTube:       row.Get("youtube"),
			MetalArchives: row.Get("metalArchives"),
			Wikipedia:     row.Get("wikipedia"),
			Country:       row.Get("country"),
			Genre:         row.Get("genre"),
			Noteworthy:    row.Get("noteworthy"),
			PriorYears:    row.Get("priorYears"),
		}
		bands = append(bands, band)
		keys[band.Key()] = true
	}

	if len(bands) < minBandRows {
		im.logger.Printf("Band feed rejected by safety gate: %d usable of %d parsed rows", len(bands), res.Parsed)
		return res, ErrSafetyGate
	}

	if im.aborted() {
		return res, ErrAborted
	}

	// Delete phase: drop this year's rows missing from the feed.
	// Strictly precedes the upsert phase; other years are untouched.
	existing, err := im.store.FetchBands(ctx, year)
	if err != nil {
		return res, fmt.Errorf("failed to fetch existing bands: %w", err)
	}
	for _, b := range existing {
		if keys[b.Key()] {
			continue
		}
		if err := im.store.DeleteBand(ctx, b.Key()); err != nil {
			return res, fmt.Errorf("failed to delete stale band: %w", err)
		}
		res.Deleted++
	}

	if im.aborted() {
		return res, ErrAborted
	}

	// Upsert phase: last occurrence of a duplicate name wins because
	// each upsert overwrites the whole row.
	for _, band := range bands {
		if err := im.store.UpsertBand(ctx, band); err != nil {
			return res, fmt.Errorf("failed to upsert band: %w", err)
		}
		res.Written++
	}

	im.logger.Printf("Band import complete: parsed=%d written=%d deleted=%d rejected=%d",
		res.Parsed, res.Written, res.Deleted, res.Rejected)
	return res, nil
}

// ImportEvents reconciles a raw event feed into the store for year.
//
// Rows whose date+time fail every known layout are rejected
// individually; the import as a whole fails only on a parse failure,
// the safety gate, or a store write failure.
func (im *Importer) ImportEvents(ctx context.Context, raw string, year int) (*Result, error) {
	rows, err := ParseRows(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	res := &Result{Parsed: len(rows)}

	if len(rows) < minEventRows {
		im.logger.Printf("Event feed rejected by safety gate: %d parsed rows (minimum %d)", len(rows), minEventRows)
		return res, ErrSafetyGate
	}

	var events []*schema.Event
	keys := make(map[schema.EventKey]bool)
	for _, row := range rows {
		ev, err := im.eventFromRow(row, year)
		if err != nil {
			im.logger.Printf("Rejecting event row for %q: %v", row.Get("Band"), err)
			res.Rejected++
			continue
		}
		events = append(events, ev)
		keys[ev.Key()] = true
	}

	// A feed that parses but yields nothing usable is a failure too.
	if len(events) == 0 {
		im.logger.Printf("Event feed rejected: no usable rows out of %d parsed", res.Parsed)
		return res, ErrSafetyGate
	}

	if im.aborted() {
		return res, ErrAborted
	}

	existing, err := im.store.FetchEvents(ctx, year)
	if err != nil {
		return res, fmt.Errorf("failed to fetch existing events: %w", err)
	}
	for _, ev := range existing {
		if keys[ev.Key()] {
			continue
		}
		if err := im.store.DeleteEvent(ctx, ev.Key()); err != nil {
			return res, fmt.Errorf("failed to delete stale event: %w", err)
		}
		res.Deleted++
	}

	if im.aborted() {
		return res, ErrAborted
	}

	for _, ev := range events {
		if err := im.store.UpsertEvent(ctx, ev); err != nil {
			return res, fmt.Errorf("failed to upsert event: %w", err)
		}
		res.Written++
	}

	im.logger.Printf("Event import complete: parsed=%d written=%d deleted=%d rejected=%d",
		res.Parsed, res.Written, res.Deleted, res.Rejected)
	return res, nil
}

// eventFromRow builds an Event from a feed row, computing the start and
// end time indexes. An end time earlier than the start is stored as
// parsed; midnight crossing is a presentation concern.
func (im *Importer) eventFromRow(row Row, year int) (*schema.Event, error) {
	band := row.Get("Band")
	if band == "" {
		return nil, fmt.Errorf("missing band name")
	}

	date := row.Get("Date")
	start, err := ParseEventTime(date, row.Get("Start Time"), im.Location)
	if err != nil {
		return nil, err
	}
	if start.Unix() < 0 {
		return nil, fmt.Errorf("start time %s predates the epoch", start)
	}

	ev := &schema.Event{
		Band:      band,
		TimeIndex: start.Unix(),
		Year:      year,
		Location:  row.Get("Location"),
		Date:      date,
		Day:       row.Get("Day"),
		StartTime: row.Get("Start Time"),
		EndTime:   row.Get("End Time"),
		Type:      schema.ParseEventType(row.Get("Type")),
		Notes:     row.Get("Notes"),
		DescURL:   row.Get("DescriptionURL"),
		ImageURL:  row.Get("ImageURL"),
	}

	if end, err := ParseEventTime(date, row.Get("End Time"), im.Location); err == nil {
		ev.EndTimeIndex = end.Unix()
	}

	return ev, nil
}
