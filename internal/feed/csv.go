// Package feed implements bulk ingestion of the festival's band and
// event CSV feeds into the store.
//
// The importer reconciles each feed into the current year's catalog:
// parse, safety-gate, delete stale rows, upsert fresh rows. A corrupt
// or truncated download must never wipe the cached catalog; the safety
// gates exist for exactly that case. User annotations are never touched
// by an import.
package feed

import (
	"encoding/csv"
	"fmt"
	"strings"
)

// Row is one CSV record keyed by header column name.
// Columns missing from a short record are simply absent.
type Row map[string]string

// Get returns the named column, or "" if the feed did not provide it.
func (r Row) Get(col string) string {
	return r[col]
}

// ParseRows parses a raw CSV feed into header-keyed rows.
// The first record is the header. Records may carry fewer fields than
// the header (trailing columns are treated as empty), which the feeds
// do in practice for optional columns.
func ParseRows(raw string) ([]Row, error) {
	reader := csv.NewReader(strings.NewReader(raw))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	for i, col := range header {
		header[i] = strings.TrimSpace(col)
	}

	rows := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(Row, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}
