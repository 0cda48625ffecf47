package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/lcavalli/medlog/internal/config"
	"github.com/lcavalli/medlog/internal/medlog"
	"github.com/lcavalli/medlog/internal/observability"
	"github.com/lcavalli/medlog/internal/session"
)

type Server struct {
	cfg      config.Config
	tracker  *medlog.Tracker
	sessions *session.Manager
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
}

func New(cfg config.Config, tracker *medlog.Tracker, sessions *session.Manager, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:      cfg,
		tracker:  tracker,
		sessions: sessions,
		metrics:  metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only allow browser websocket connections from the same
				// origin unless explicitly opened up. The wearable itself
				// sends no Origin header.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/medication-tracker", s.handleWebhook)
	r.Get("/setup-status", s.handleSetupStatus)
	r.Get("/medications", s.handleListMedications)
	r.Get("/medications/export", s.handleExport)
	r.Get("/v1/transcript/ws", s.handleTranscriptWS)

	return r
}

// transcriptRequest is the webhook payload pushed by the wearable: the
// rolling transcript as a list of segments, newest last.
type transcriptRequest struct {
	Segments  []transcriptSegment `json:"segments"`
	SessionID string              `json:"session_id"`
}

type transcriptSegment struct {
	Text    string  `json:"text"`
	Speaker string  `json:"speaker,omitempty"`
	Start   float64 `json:"start,omitempty"`
	End     float64 `json:"end,omitempty"`
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	uid := strings.TrimSpace(r.URL.Query().Get("uid"))

	var req transcriptRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if sessionID == "" {
		sessionID = strings.TrimSpace(req.SessionID)
	}
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "query parameter session_id is required")
		return
	}

	if len(req.Segments) == 0 {
		s.metrics.WebhookRequests.WithLabelValues(string(medlog.StatusNoData)).Inc()
		respondJSON(w, http.StatusOK, medlog.Response{Status: medlog.StatusNoData})
		return
	}
	latest := req.Segments[len(req.Segments)-1]

	resp, err := s.tracker.ProcessTranscript(r.Context(), sessionID, uid, latest.Text)
	s.metrics.WebhookRequests.WithLabelValues(string(resp.Status)).Inc()
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, resp)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetupStatus(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"is_setup_completed": true})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"service":   "medlog",
		"storage":   "local csv",
		"csv_path":  s.tracker.StorePath(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (s *Server) handleListMedications(w http.ResponseWriter, r *http.Request) {
	days := s.cfg.HistoryDays
	if raw := strings.TrimSpace(r.URL.Query().Get("days")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_days", "days must be a positive integer")
			return
		}
		days = n
	}

	entries, err := s.tracker.History(r.Context(), days)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	if entries == nil {
		entries = []medlog.Entry{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"medications": entries})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="medications.csv"`)
	http.ServeFile(w, r, s.tracker.StorePath())
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"app":         "medlog",
		"description": "Medication-logging webhook for wearable voice devices; entries live in a local CSV file.",
		"storage":     s.tracker.StorePath(),
		"endpoints": map[string]string{
			"medication-tracker": "POST - process medication transcripts",
			"setup-status":       "GET - device setup check",
			"health":             "GET - health check",
			"medications":        "GET - medication history",
			"medications/export": "GET - raw CSV download",
			"v1/transcript/ws":   "GET - websocket transcript stream",
		},
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
