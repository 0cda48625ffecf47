package medlog

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/lcavalli/medlog/internal/observability"
	"github.com/lcavalli/medlog/internal/session"
)

// ResponseStatus mirrors the response states the wearable app understands.
type ResponseStatus string

const (
	StatusNoData    ResponseStatus = "no_data"
	StatusListening ResponseStatus = "listening"
	StatusTriggered ResponseStatus = "triggered"
	StatusLogged    ResponseStatus = "logged"
	StatusAnswer    ResponseStatus = "answer"
	StatusTimeout   ResponseStatus = "timeout"
	StatusError     ResponseStatus = "error"
)

// Response is the tracker's reply to one transcript segment. Message is the
// short confirmation shown in the app; Response is the longer spoken reply.
type Response struct {
	Status   ResponseStatus `json:"status"`
	Message  string         `json:"message,omitempty"`
	Response string         `json:"response,omitempty"`
	Data     any            `json:"data,omitempty"`
}

// AnswerData is attached to question answers.
type AnswerData struct {
	Medication string `json:"medication"`
	Dosage     string `json:"dosage,omitempty"`
	Date       string `json:"date"`
	Time       string `json:"time"`
}

// Tracker wires extraction, session state, the CSV store and the optional
// external importer into the transcript-processing flow.
type Tracker struct {
	store     Store
	extractor *Extractor
	sessions  *session.Manager
	importer  Importer
	metrics   *observability.Metrics
}

func NewTracker(store Store, extractor *Extractor, sessions *session.Manager, importer Importer, metrics *observability.Metrics) *Tracker {
	return &Tracker{
		store:     store,
		extractor: extractor,
		sessions:  sessions,
		importer:  importer,
		metrics:   metrics,
	}
}

// ProcessTranscript handles one transcript segment for a device session.
// A non-nil error marks a storage failure; the returned response still
// carries the user-facing error wording.
func (t *Tracker) ProcessTranscript(ctx context.Context, sessionID, uid, text string) (Response, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	st := t.sessions.Observe(sessionID, uid)

	// Questions win over everything: asking about the log must never be
	// mistaken for medication details.
	if q, ok := ParseQuestion(text); ok {
		return t.Answer(ctx, q)
	}

	if IsTrigger(text) {
		t.sessions.Arm(sessionID, text)
		t.metrics.WaitingSessions.Set(float64(t.sessions.WaitingCount()))
		return Response{
			Status:   StatusTriggered,
			Message:  "Okay, what medication are you taking?",
			Response: "I'm listening for your medication details. Please tell me what medication and dosage you're taking.",
		}, nil
	}

	if st.WaitingForMedication && text != st.LastProcessed {
		if entry, ok := t.extractor.Extract(text); ok {
			t.sessions.Disarm(sessionID, text)
			t.metrics.WaitingSessions.Set(float64(t.sessions.WaitingCount()))
			return t.logEntry(ctx, uid, entry)
		}

		t.metrics.ExtractionFailures.Inc()
		if !st.TriggerTime.IsZero() && time.Since(st.TriggerTime) > t.sessions.WaitTimeout() {
			t.sessions.Disarm(sessionID, "")
			t.metrics.WaitingSessions.Set(float64(t.sessions.WaitingCount()))
			return Response{
				Status:   StatusTimeout,
				Message:  "Session timed out. Please try again.",
				Response: "I didn't catch the medication details. Please say 'I'm taking medication' again and then tell me what you're taking.",
			}, nil
		}
	}

	return Response{Status: StatusListening}, nil
}

func (t *Tracker) logEntry(ctx context.Context, uid string, entry Entry) (Response, error) {
	if err := t.store.Append(ctx, entry); err != nil {
		log.Printf("append entry failed: %v", err)
		t.metrics.StoreErrors.Inc()
		return Response{
			Status:   StatusError,
			Message:  "Sorry, I couldn't save that to your medication log. Please try again.",
			Response: "I'm sorry, but I couldn't save your medication information right now. Please try again in a moment.",
		}, err
	}

	log.Printf("logged medication: %s - %s", entry.Medication, entry.Dosage)
	t.metrics.EntriesLogged.Inc()
	t.importAsync(uid, entry)

	return Response{
		Status:  StatusLogged,
		Message: fmt.Sprintf("Perfect! I've logged %s - %s at %s", entry.Medication, entry.Dosage, entry.Time),
		Data:    entry,
		Response: fmt.Sprintf(
			"Great! I've recorded that you took %s %s at %s. Your medication has been logged.",
			entry.Medication, entry.Dosage, entry.Time,
		),
	}, nil
}

// importAsync pushes the entry to the external collaborator without ever
// blocking or failing the webhook response. The local append is the source
// of truth.
func (t *Tracker) importAsync(uid string, entry Entry) {
	if t.importer == nil || !t.importer.Enabled() {
		return
	}
	go func() {
		if err := t.importer.Import(context.Background(), uid, entry); err != nil {
			log.Printf("external import failed for %s: %v", entry.Medication, err)
			t.metrics.ImportResults.WithLabelValues("error").Inc()
			return
		}
		t.metrics.ImportResults.WithLabelValues("ok").Inc()
	}()
}

// Answer resolves a recognized question against the store.
func (t *Tracker) Answer(ctx context.Context, q Question) (Response, error) {
	entry, found, err := t.store.LastFor(ctx, q.Medication)
	if err != nil {
		log.Printf("last-dose lookup failed: %v", err)
		t.metrics.StoreErrors.Inc()
		return Response{
			Status:  StatusError,
			Message: "Sorry, I couldn't read your medication log right now.",
		}, err
	}
	if !found {
		t.metrics.QuestionsAnswered.WithLabelValues(string(q.Kind), "not_found").Inc()
		return Response{
			Status:  StatusAnswer,
			Message: fmt.Sprintf("I couldn't find any %s in your log.", q.Medication),
		}, nil
	}

	t.metrics.QuestionsAnswered.WithLabelValues(string(q.Kind), "found").Inc()
	switch q.Kind {
	case QuestionLastDosage:
		return Response{
			Status: StatusAnswer,
			Message: fmt.Sprintf(
				"Your last dose of %s was %s on %s at %s.",
				entry.Medication, entry.Dosage, entry.Date, entry.Time,
			),
			Data: AnswerData{
				Medication: entry.Medication,
				Dosage:     entry.Dosage,
				Date:       entry.Date,
				Time:       entry.Time,
			},
		}, nil
	default:
		return Response{
			Status: StatusAnswer,
			Message: fmt.Sprintf(
				"Your last %s was on %s at %s.",
				entry.Medication, entry.Date, entry.Time,
			),
			Data: AnswerData{
				Medication: entry.Medication,
				Date:       entry.Date,
				Time:       entry.Time,
			},
		}, nil
	}
}

// History returns entries from the last `days` days.
func (t *Tracker) History(ctx context.Context, days int) ([]Entry, error) {
	entries, err := t.store.Recent(ctx, days)
	if err != nil {
		t.metrics.StoreErrors.Inc()
		return nil, err
	}
	return entries, nil
}

// StorePath exposes the CSV location for the export endpoint.
func (t *Tracker) StorePath() string {
	return t.store.Path()
}
