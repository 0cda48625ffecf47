package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/lcavalli/medlog/internal/medlog"
)

var header = []string{"Date", "Time", "Medication", "Dosage", "Notes"}

// ErrInvalidEntry is returned when an entry is missing a required field.
// Every persisted row must carry at least a date, a time and a medication.
var ErrInvalidEntry = errors.New("entry requires date, time and medication")

// CSVStore is an append-only medication log backed by a single local CSV
// file. One writer process is assumed; the mutex keeps appends and reads
// from interleaving inside this process.
type CSVStore struct {
	mu   sync.Mutex
	path string
}

// NewCSV opens the store at path, creating parent directories and the
// header row when the file does not exist yet.
func NewCSV(path string) (*CSVStore, error) {
	if strings.TrimSpace(path) == "" {
		path = "medications.csv"
	}
	s := &CSVStore{path: path}
	if err := s.ensureFile(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *CSVStore) Path() string {
	return s.path
}

func (s *CSVStore) ensureFile() error {
	dir := filepath.Dir(s.path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create store directory: %w", err)
		}
	}

	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat store file: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create store file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write store header: %w", err)
	}
	w.Flush()
	return w.Error()
}

// Append writes the entry as the last line of the store file.
func (s *CSVStore) Append(_ context.Context, e medlog.Entry) error {
	if e.Date == "" || e.Time == "" || e.Medication == "" {
		return ErrInvalidEntry
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureFile(); err != nil {
		return err
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open store file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{e.Date, e.Time, e.Medication, e.Dosage, e.Notes}); err != nil {
		return fmt.Errorf("append entry: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush entry: %w", err)
	}
	return nil
}

// All returns every entry in file order.
func (s *CSVStore) All(_ context.Context) ([]medlog.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readAll()
}

func (s *CSVStore) readAll() ([]medlog.Entry, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open store file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	// Tolerate hand-edited rows; the file is the user's to edit.
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read store file: %w", err)
	}

	entries := make([]medlog.Entry, 0, len(records))
	for i, rec := range records {
		if i == 0 && looksLikeHeader(rec) {
			continue
		}
		for len(rec) < len(header) {
			rec = append(rec, "")
		}
		entries = append(entries, medlog.Entry{
			Date:       rec[0],
			Time:       rec[1],
			Medication: rec[2],
			Dosage:     rec[3],
			Notes:      rec[4],
		})
	}
	return entries, nil
}

// LastFor scans entries in reverse file order and returns the first one
// whose medication matches the query. The boolean is false when no entry
// matches or the file is absent.
func (s *CSVStore) LastFor(ctx context.Context, medication string) (medlog.Entry, bool, error) {
	entries, err := s.All(ctx)
	if err != nil {
		return medlog.Entry{}, false, err
	}
	for i := len(entries) - 1; i >= 0; i-- {
		if medlog.MedicationMatches(entries[i].Medication, medication) {
			return entries[i], true, nil
		}
	}
	return medlog.Entry{}, false, nil
}

// Recent returns entries whose date falls within the last `days` days.
// Rows with unparseable dates are skipped, not errors.
func (s *CSVStore) Recent(ctx context.Context, days int) ([]medlog.Entry, error) {
	entries, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	recent := make([]medlog.Entry, 0, len(entries))
	for _, e := range entries {
		d, err := time.ParseInLocation("2006-01-02", e.Date, now.Location())
		if err != nil {
			continue
		}
		if int(cutoff.Sub(d).Hours()/24) <= days {
			recent = append(recent, e)
		}
	}
	return recent, nil
}

func looksLikeHeader(rec []string) bool {
	return len(rec) > 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "Date")
}
