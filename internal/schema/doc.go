// Package schema defines the domain types shared by the store, the
// feed importer, the cloud sync engine, and the migration pipeline.
//
// Two kinds of data live here and they have very different lifecycles:
//
//   - Catalog data (Band, Event) is sourced from the festival's CSV
//     feeds and replaced wholesale for a given year on every successful
//     import.
//   - User annotations (PriorityRecord, AttendanceRecord) are created
//     by the user and must survive catalog re-imports and storage
//     backend migrations.
//
// Keys are structured types; their canonical string encodings exist
// only for storage and wire use, never as the source of truth for
// equality.
package schema
