package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lcavalli/medlog/internal/medlog"
)

const defaultTimeout = 5 * time.Second

// Config describes the vendor import endpoint. An empty URL disables the
// importer entirely.
type Config struct {
	URL     string
	APIKey  string
	UserID  string // fallback uid when the webhook request carries none
	Timeout time.Duration
	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

// Client posts logged entries to the device vendor's import API. It is a
// best-effort collaborator: callers log and drop its errors.
type Client struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	tr := cfg.Transport
	if tr == nil {
		tr = http.DefaultTransport
	}
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: tr,
		},
	}
}

func (c *Client) Enabled() bool {
	return c != nil && strings.TrimSpace(c.cfg.URL) != ""
}

// HTTPError is a non-2xx response from the import API.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("import api: status=%d", e.StatusCode)
	}
	return fmt.Sprintf("import api: status=%d body=%s", e.StatusCode, e.Body)
}

type importPayload struct {
	UserID     string `json:"user_id,omitempty"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Medication string `json:"medication"`
	Dosage     string `json:"dosage,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// Import posts one entry. The caller's context plus the client timeout
// bound how long this can take.
func (c *Client) Import(ctx context.Context, uid string, e medlog.Entry) error {
	if !c.Enabled() {
		return nil
	}
	if strings.TrimSpace(uid) == "" {
		uid = c.cfg.UserID
	}

	body, err := json.Marshal(importPayload{
		UserID:     uid,
		Date:       e.Date,
		Time:       e.Time,
		Medication: e.Medication,
		Dosage:     e.Dosage,
		Notes:      e.Notes,
	})
	if err != nil {
		return fmt.Errorf("import api: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("import api: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if strings.TrimSpace(c.cfg.APIKey) != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("import api: do request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
		}
	}
	return nil
}
