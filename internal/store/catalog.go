package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rondorn/70K-Bands-sub003/internal/schema"
)

// UpsertBand inserts or replaces a band row. The whole row is
// overwritten; duplicate-in-feed policy (last occurrence wins) falls
// out of calling this once per feed row in order.
func (s *Store) UpsertBand(ctx context.Context, band *schema.Band) error {
	if err := band.Validate(); err != nil {
		return fmt.Errorf("invalid band: %w", err)
	}

	query := `
	INSERT INTO bands (
		name, year, official_site, image_url, youtube, metal_archives,
		wikipedia, country, genre, noteworthy, prior_years
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(name, year) DO UPDATE SET
		official_site = excluded.official_site,
		image_url = excluded.image_url,
		youtube = excluded.youtube,
		metal_archives = excluded.metal_archives,
		wikipedia = excluded.wikipedia,
		country = excluded.country,
		genre = excluded.genre,
		noteworthy = excluded.noteworthy,
		prior_years = excluded.prior_years
	`

	_, err := s.conn.ExecContext(ctx, query,
		band.Name, band.Year, band.OfficialSite, band.ImageURL,
		band.YouTube, band.MetalArchives, band.Wikipedia,
		band.Country, band.Genre, band.Noteworthy, band.PriorYears,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert band %s: %w", band.Key(), err)
	}
	return nil
}

// DeleteBand removes a band row. Idempotent.
func (s *Store) DeleteBand(ctx context.Context, key schema.BandKey) error {
	_, err := s.conn.ExecContext(ctx,
		`DELETE FROM bands WHERE name = ? AND year = ?`, key.Name, key.Year)
	if err != nil {
		return fmt.Errorf("failed to delete band %s: %w", key, err)
	}
	return nil
}

// FetchBands returns all bands for the given year, ordered by name.
func (s *Store) FetchBands(ctx context.Context, year int) ([]*schema.Band, error) {
	query := `
	SELECT name, year, official_site, image_url, youtube, metal_archives,
	       wikipedia, country, genre, noteworthy, prior_years
	FROM bands
	WHERE year = ?
	ORDER BY name ASC
	`

	rows, err := s.conn.QueryContext(ctx, query, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query bands: %w", err)
	}
	defer rows.Close()

	return scanBands(rows)
}

func scanBands(rows *sql.Rows) ([]*schema.Band, error) {
	var bands []*schema.Band
	for rows.Next() {
		var b schema.Band
		err := rows.Scan(
			&b.Name, &b.Year, &b.OfficialSite, &b.ImageURL, &b.YouTube,
			&b.MetalArchives, &b.Wikipedia, &b.Country, &b.Genre,
			&b.Noteworthy, &b.PriorYears,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan band: %w", err)
		}
		bands = append(bands, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bands: %w", err)
	}
	return bands, nil
}

// UpsertEvent inserts or replaces an event row.
func (s *Store) UpsertEvent(ctx context.Context, ev *schema.Event) error {
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}

	query := `
	INSERT INTO events (
		band, time_index, year, end_time_index, location, date, day,
		start_time, end_time, type, notes, desc_url, image_url
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(band, time_index, year) DO UPDATE SET
		end_time_index = excluded.end_time_index,
		location = excluded.location,
		date = excluded.date,
		day = excluded.day,
		start_time = excluded.start_time,
		end_time = excluded.end_time,
		type = excluded.type,
		notes = excluded.notes,
		desc_url = excluded.desc_url,
		image_url = excluded.image_url
	`

	_, err := s.conn.ExecContext(ctx, query,
		ev.Band, ev.TimeIndex, ev.Year, ev.EndTimeIndex, ev.Location,
		ev.Date, ev.Day, ev.StartTime, ev.EndTime, ev.Type.String(),
		ev.Notes, ev.DescURL, ev.ImageURL,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert event %s: %w", ev.Key(), err)
	}
	return nil
}

// DeleteEvent removes an event row. Idempotent.
func (s *Store) DeleteEvent(ctx context.Context, key schema.EventKey) error {
	_, err := s.conn.ExecContext(ctx,
		`DELETE FROM events WHERE band = ? AND time_index = ? AND year = ?`,
		key.Band, key.TimeIndex, key.Year)
	if err != nil {
		return fmt.Errorf("failed to delete event %s: %w", key, err)
	}
	return nil
}

// FetchEvents returns all events for the given year in start order.
func (s *Store) FetchEvents(ctx context.Context, year int) ([]*schema.Event, error) {
	query := `
	SELECT band, time_index, year, end_time_index, location, date, day,
	       start_time, end_time, type, notes, desc_url, image_url
	FROM events
	WHERE year = ?
	ORDER BY time_index ASC, band ASC
	`

	rows, err := s.conn.QueryContext(ctx, query, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*schema.Event
	for rows.Next() {
		var ev schema.Event
		var typ string
		err := rows.Scan(
			&ev.Band, &ev.TimeIndex, &ev.Year, &ev.EndTimeIndex,
			&ev.Location, &ev.Date, &ev.Day, &ev.StartTime, &ev.EndTime,
			&typ, &ev.Notes, &ev.DescURL, &ev.ImageURL,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Type = schema.ParseEventType(typ)
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

// BandCount returns the number of band rows across all years.
func (s *Store) BandCount(ctx context.Context) (int, error) {
	var count int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM bands`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count bands: %w", err)
	}
	return count, nil
}

// EventCount returns the number of event rows across all years.
func (s *Store) EventCount(ctx context.Context) (int, error) {
	var count int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// ClearCatalog deletes all catalog rows for every year. Annotations are
// untouched; this is the "clear all caches" entry point used by the
// year-change flow before the new year's feeds are imported.
func (s *Store) ClearCatalog(ctx context.Context) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM bands`); err != nil {
		return fmt.Errorf("failed to clear bands: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM events`); err != nil {
		return fmt.Errorf("failed to clear events: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit catalog clear: %w", err)
	}
	return nil
}
