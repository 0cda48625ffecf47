package medlog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lcavalli/medlog/internal/observability"
	"github.com/lcavalli/medlog/internal/session"
)

type fakeStore struct {
	mu        sync.Mutex
	entries   []Entry
	appendErr error
	readErr   error
}

func (s *fakeStore) Append(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	s.entries = append(s.entries, e)
	return nil
}

func (s *fakeStore) All(_ context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

func (s *fakeStore) LastFor(ctx context.Context, medication string) (Entry, bool, error) {
	entries, err := s.All(ctx)
	if err != nil {
		return Entry{}, false, err
	}
	for i := len(entries) - 1; i >= 0; i-- {
		if MedicationMatches(entries[i].Medication, medication) {
			return entries[i], true, nil
		}
	}
	return Entry{}, false, nil
}

func (s *fakeStore) Recent(ctx context.Context, _ int) ([]Entry, error) {
	return s.All(ctx)
}

func (s *fakeStore) Path() string { return "fake.csv" }

type fakeImporter struct {
	calls chan Entry
	err   error
}

func (f *fakeImporter) Enabled() bool { return true }

func (f *fakeImporter) Import(_ context.Context, _ string, e Entry) error {
	f.calls <- e
	return f.err
}

func newTestMetrics(prefix string) *observability.Metrics {
	// promauto registers globally, so every construction needs a fresh
	// namespace even when tests share a prefix.
	return observability.NewMetrics(fmt.Sprintf("%s%d", prefix, time.Now().UnixNano()))
}

func newTestTracker(t *testing.T, st Store, imp Importer, waitTimeout time.Duration) *Tracker {
	t.Helper()
	sessions := session.NewManager(waitTimeout)
	return NewTracker(st, newTestExtractor(nil), sessions, imp, newTestMetrics("test_tracker_"))
}

func TestMetricsConstructionIsRepeatable(t *testing.T) {
	// Same-prefix constructions within one second must not panic with a
	// duplicate collector registration.
	for i := 0; i < 3; i++ {
		if m := newTestMetrics("test_tracker_"); m == nil {
			t.Fatalf("metrics construction %d returned nil", i)
		}
	}
}

func TestProcessTranscriptFlow(t *testing.T) {
	st := &fakeStore{}
	tr := newTestTracker(t, st, nil, time.Minute)
	ctx := context.Background()

	resp, err := tr.ProcessTranscript(ctx, "sess-1", "user-1", "chatting about the weather")
	if err != nil || resp.Status != StatusListening {
		t.Fatalf("idle chatter = %+v, %v, want listening", resp, err)
	}

	resp, err = tr.ProcessTranscript(ctx, "sess-1", "user-1", "okay, pill time")
	if err != nil || resp.Status != StatusTriggered {
		t.Fatalf("trigger = %+v, %v, want triggered", resp, err)
	}

	resp, err = tr.ProcessTranscript(ctx, "sess-1", "user-1", "I'm taking 10mg of aspirin")
	if err != nil || resp.Status != StatusLogged {
		t.Fatalf("details = %+v, %v, want logged", resp, err)
	}
	if !strings.Contains(resp.Message, "Aspirin") || !strings.Contains(resp.Message, "10mg") {
		t.Fatalf("logged message = %q, want medication and dosage", resp.Message)
	}

	if len(st.entries) != 1 {
		t.Fatalf("store entries = %d, want 1", len(st.entries))
	}
	if st.entries[0].Medication != "Aspirin" || st.entries[0].Dosage != "10mg" {
		t.Fatalf("stored entry = %+v", st.entries[0])
	}

	// Device resends the same segment: nothing should be logged twice.
	resp, err = tr.ProcessTranscript(ctx, "sess-1", "user-1", "I'm taking 10mg of aspirin")
	if err != nil || resp.Status != StatusListening {
		t.Fatalf("resend = %+v, %v, want listening", resp, err)
	}
	if len(st.entries) != 1 {
		t.Fatalf("store entries after resend = %d, want 1", len(st.entries))
	}
}

func TestProcessTranscriptAnswersQuestion(t *testing.T) {
	st := &fakeStore{entries: []Entry{
		{Date: "2025-03-01", Time: "09:00 AM", Medication: "Aspirin 81mg", Dosage: "81mg"},
		{Date: "2025-03-02", Time: "08:00 PM", Medication: "Metformin", Dosage: "500mg"},
		{Date: "2025-03-03", Time: "07:45 AM", Medication: "Aspirin 81mg", Dosage: "81mg"},
	}}
	tr := newTestTracker(t, st, nil, time.Minute)
	ctx := context.Background()

	resp, err := tr.ProcessTranscript(ctx, "sess-1", "user-1", "when did I take aspirin?")
	if err != nil || resp.Status != StatusAnswer {
		t.Fatalf("time question = %+v, %v, want answer", resp, err)
	}
	for _, want := range []string{"Aspirin 81mg", "2025-03-03", "07:45 AM"} {
		if !strings.Contains(resp.Message, want) {
			t.Fatalf("time answer = %q, missing %q", resp.Message, want)
		}
	}

	resp, err = tr.ProcessTranscript(ctx, "sess-1", "user-1", "what was my last dose of metformin?")
	if err != nil || resp.Status != StatusAnswer {
		t.Fatalf("dosage question = %+v, %v, want answer", resp, err)
	}
	if !strings.Contains(resp.Message, "500mg") {
		t.Fatalf("dosage answer = %q, missing dosage", resp.Message)
	}

	resp, err = tr.ProcessTranscript(ctx, "sess-1", "user-1", "when did I take warfarin?")
	if err != nil || resp.Status != StatusAnswer {
		t.Fatalf("unknown medication = %+v, %v, want answer", resp, err)
	}
	if !strings.Contains(resp.Message, "couldn't find any warfarin") {
		t.Fatalf("unknown medication answer = %q", resp.Message)
	}
}

func TestProcessTranscriptWaitTimeout(t *testing.T) {
	st := &fakeStore{}
	tr := newTestTracker(t, st, nil, 10*time.Millisecond)
	ctx := context.Background()

	resp, _ := tr.ProcessTranscript(ctx, "sess-1", "", "pill time")
	if resp.Status != StatusTriggered {
		t.Fatalf("trigger = %+v, want triggered", resp)
	}

	time.Sleep(30 * time.Millisecond)

	resp, err := tr.ProcessTranscript(ctx, "sess-1", "", "i'm taking medication")
	if err != nil || resp.Status != StatusTimeout {
		t.Fatalf("late unparseable segment = %+v, %v, want timeout", resp, err)
	}
	if len(st.entries) != 0 {
		t.Fatalf("store entries = %d, want 0", len(st.entries))
	}
}

func TestProcessTranscriptStorageError(t *testing.T) {
	st := &fakeStore{appendErr: errors.New("disk full")}
	tr := newTestTracker(t, st, nil, time.Minute)
	ctx := context.Background()

	if resp, _ := tr.ProcessTranscript(ctx, "sess-1", "", "pill time"); resp.Status != StatusTriggered {
		t.Fatalf("trigger = %+v, want triggered", resp)
	}
	resp, err := tr.ProcessTranscript(ctx, "sess-1", "", "I'm taking 10mg of aspirin")
	if err == nil {
		t.Fatalf("expected storage error, got nil (resp=%+v)", resp)
	}
	if resp.Status != StatusError {
		t.Fatalf("storage failure = %+v, want error status", resp)
	}
}

func TestImportIsBestEffort(t *testing.T) {
	st := &fakeStore{}
	imp := &fakeImporter{calls: make(chan Entry, 1), err: errors.New("vendor down")}
	tr := newTestTracker(t, st, imp, time.Minute)
	ctx := context.Background()

	if resp, _ := tr.ProcessTranscript(ctx, "sess-1", "u1", "pill time"); resp.Status != StatusTriggered {
		t.Fatalf("trigger = %+v, want triggered", resp)
	}
	resp, err := tr.ProcessTranscript(ctx, "sess-1", "u1", "I'm taking 10mg of aspirin")
	if err != nil || resp.Status != StatusLogged {
		t.Fatalf("logged = %+v, %v; import failure must not affect the response", resp, err)
	}

	select {
	case e := <-imp.calls:
		if e.Medication != "Aspirin" {
			t.Fatalf("imported entry = %+v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("importer was never invoked")
	}
}
