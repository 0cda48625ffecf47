package medlog

import (
	"context"
	"strings"
)

// Entry is one logged medication event. Field order matches the CSV
// column order of the store file.
type Entry struct {
	Date       string `json:"date"`
	Time       string `json:"time"`
	Medication string `json:"medication"`
	Dosage     string `json:"dosage"`
	Notes      string `json:"notes"`
}

// Store is the append-only entry log backing the tracker.
type Store interface {
	Append(ctx context.Context, e Entry) error
	All(ctx context.Context) ([]Entry, error)
	LastFor(ctx context.Context, medication string) (Entry, bool, error)
	Recent(ctx context.Context, days int) ([]Entry, error)
	Path() string
}

// Importer pushes a logged entry to an external collaborator, best effort.
type Importer interface {
	Enabled() bool
	Import(ctx context.Context, uid string, e Entry) error
}

// MedicationMatches reports whether a recorded medication name and a queried
// one look like the same medication: case-insensitive, substring in either
// direction ("aspirin" matches "Aspirin 81mg" and vice versa).
func MedicationMatches(recorded, queried string) bool {
	r := strings.ToLower(strings.TrimSpace(recorded))
	q := strings.ToLower(strings.TrimSpace(queried))
	if r == "" || q == "" {
		return false
	}
	return strings.Contains(r, q) || strings.Contains(q, r)
}
