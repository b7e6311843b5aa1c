package schema

import "fmt"

// Band represents one act in the festival catalog for a given year.
//
// Bands are uniquely identified by (Name, Year). All other fields are
// pass-through string attributes from the band feed; empty means the
// feed did not provide a value.
type Band struct {
	Name string
	Year int

	OfficialSite  string
	ImageURL      string
	YouTube       string
	MetalArchives string
	Wikipedia     string
	Country       string
	Genre         string
	Noteworthy    string
	PriorYears    string
}

// Key returns the natural key for this band.
func (b *Band) Key() BandKey {
	return BandKey{Name: b.Name, Year: b.Year}
}

// Validate checks that the band carries a usable natural key.
func (b *Band) Validate() error {
	if b.Name == "" {
		return fmt.Errorf("band name is required")
	}
	if b.Year <= 0 {
		return fmt.Errorf("band year must be positive (got %d)", b.Year)
	}
	return nil
}

// BandKey is the natural key of a Band: unique per (Name, Year).
type BandKey struct {
	Name string
	Year int
}

// String renders the key for logs.
func (k BandKey) String() string {
	return fmt.Sprintf("%s (%d)", k.Name, k.Year)
}
