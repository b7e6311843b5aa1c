package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rondorn/70K-Bands-sub003/internal/schema"
)

// GetPriority returns the user's priority record for a band.
// A band the user never ranked yields a record with PriorityUnset,
// zero UpdatedAt and empty DeviceID; absence is not an error.
func (s *Store) GetPriority(ctx context.Context, band string, year int) (schema.PriorityRecord, error) {
	rec := schema.PriorityRecord{Band: band, Year: year}

	query := `SELECT level, updated_at, device_id FROM priorities WHERE band = ? AND year = ?`
	err := s.conn.QueryRowContext(ctx, query, band, year).
		Scan(&rec.Level, &rec.UpdatedAt, &rec.DeviceID)
	if err == sql.ErrNoRows {
		return rec, nil
	}
	if err != nil {
		return rec, fmt.Errorf("failed to read priority for %s: %w", band, err)
	}
	return rec, nil
}

// SetPriority writes the user's priority record for a band.
func (s *Store) SetPriority(ctx context.Context, rec schema.PriorityRecord) error {
	if rec.Band == "" {
		return fmt.Errorf("priority band is required")
	}
	if !rec.Level.Valid() {
		return fmt.Errorf("priority level %d out of range", rec.Level)
	}

	query := `
	INSERT INTO priorities (band, year, level, updated_at, device_id)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(band, year) DO UPDATE SET
		level = excluded.level,
		updated_at = excluded.updated_at,
		device_id = excluded.device_id
	`
	_, err := s.conn.ExecContext(ctx, query,
		rec.Band, rec.Year, rec.Level, rec.UpdatedAt, rec.DeviceID)
	if err != nil {
		return fmt.Errorf("failed to write priority for %s: %w", rec.Band, err)
	}
	return nil
}

// AllPriorities returns every priority record for the year, including
// legacy rows with zero timestamps.
func (s *Store) AllPriorities(ctx context.Context, year int) ([]schema.PriorityRecord, error) {
	query := `
	SELECT band, year, level, updated_at, device_id
	FROM priorities
	WHERE year = ?
	ORDER BY band ASC
	`

	rows, err := s.conn.QueryContext(ctx, query, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query priorities: %w", err)
	}
	defer rows.Close()

	var recs []schema.PriorityRecord
	for rows.Next() {
		var rec schema.PriorityRecord
		if err := rows.Scan(&rec.Band, &rec.Year, &rec.Level, &rec.UpdatedAt, &rec.DeviceID); err != nil {
			return nil, fmt.Errorf("failed to scan priority: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating priorities: %w", err)
	}
	return recs, nil
}

// GetAttendance returns the attendance record for an event key.
// An event the user never marked yields AttendanceUnset; absence is
// not an error.
func (s *Store) GetAttendance(ctx context.Context, key schema.AttendanceKey) (schema.AttendanceRecord, error) {
	rec := schema.AttendanceRecord{Key: key}

	query := `
	SELECT status, updated_at, device_id FROM attendance
	WHERE band = ? AND location = ? AND start_hour = ? AND start_minute = ? AND type = ? AND year = ?
	`
	err := s.conn.QueryRowContext(ctx, query,
		key.Band, key.Location, key.StartHour, key.StartMinute, key.Type.String(), key.Year).
		Scan(&rec.Status, &rec.UpdatedAt, &rec.DeviceID)
	if err == sql.ErrNoRows {
		return rec, nil
	}
	if err != nil {
		return rec, fmt.Errorf("failed to read attendance for %s: %w", key.Index(), err)
	}
	return rec, nil
}

// SetAttendance writes an attendance record.
func (s *Store) SetAttendance(ctx context.Context, rec schema.AttendanceRecord) error {
	if err := rec.Key.Validate(); err != nil {
		return fmt.Errorf("invalid attendance key: %w", err)
	}
	if !rec.Status.Valid() {
		return fmt.Errorf("attendance status %d out of range", rec.Status)
	}

	query := `
	INSERT INTO attendance (band, location, start_hour, start_minute, type, year, status, updated_at, device_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(band, location, start_hour, start_minute, type, year) DO UPDATE SET
		status = excluded.status,
		updated_at = excluded.updated_at,
		device_id = excluded.device_id
	`
	k := rec.Key
	_, err := s.conn.ExecContext(ctx, query,
		k.Band, k.Location, k.StartHour, k.StartMinute, k.Type.String(), k.Year,
		rec.Status, rec.UpdatedAt, rec.DeviceID)
	if err != nil {
		return fmt.Errorf("failed to write attendance for %s: %w", k.Index(), err)
	}
	return nil
}

// AllAttendance returns every attendance record for the year.
func (s *Store) AllAttendance(ctx context.Context, year int) ([]schema.AttendanceRecord, error) {
	query := `
	SELECT band, location, start_hour, start_minute, type, year, status, updated_at, device_id
	FROM attendance
	WHERE year = ?
	ORDER BY band ASC, start_hour ASC, start_minute ASC
	`

	rows, err := s.conn.QueryContext(ctx, query, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance: %w", err)
	}
	defer rows.Close()

	var recs []schema.AttendanceRecord
	for rows.Next() {
		var rec schema.AttendanceRecord
		var typ string
		err := rows.Scan(
			&rec.Key.Band, &rec.Key.Location, &rec.Key.StartHour,
			&rec.Key.StartMinute, &typ, &rec.Key.Year,
			&rec.Status, &rec.UpdatedAt, &rec.DeviceID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		rec.Key.Type = schema.ParseEventType(typ)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attendance: %w", err)
	}
	return recs, nil
}
