package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains all runtime settings for the medication-logging service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	CSVPath     string
	DosageUnits []string
	WaitTimeout time.Duration
	HistoryDays int

	ImportURL     string
	ImportAPIKey  string
	ImportUserID  string
	ImportTimeout time.Duration
}

// Load reads a local .env file when present, then environment variables,
// applying safe defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8000"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "medlog"),
		CSVPath:          envOrDefault("MEDLOG_CSV_PATH", "medications.csv"),
		ImportURL:        envTrimmed("OMI_IMPORT_URL"),
		ImportAPIKey:     envTrimmed("OMI_IMPORT_API_KEY"),
		ImportUserID:     envTrimmed("OMI_IMPORT_USER_ID"),
		ShutdownTimeout:  15 * time.Second,
		WaitTimeout:      30 * time.Second,
		HistoryDays:      7,
		ImportTimeout:    5 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.WaitTimeout, err = durationFromEnv("MEDLOG_WAIT_TIMEOUT", cfg.WaitTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ImportTimeout, err = durationFromEnv("OMI_IMPORT_TIMEOUT", cfg.ImportTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryDays, err = intFromEnv("MEDLOG_HISTORY_DAYS", cfg.HistoryDays)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.DosageUnits = listFromEnv("MEDLOG_DOSAGE_UNITS")

	if cfg.WaitTimeout < time.Second {
		return Config{}, fmt.Errorf("MEDLOG_WAIT_TIMEOUT must be at least 1s")
	}
	if cfg.HistoryDays <= 0 {
		return Config{}, fmt.Errorf("MEDLOG_HISTORY_DAYS must be positive")
	}
	if cfg.ImportTimeout <= 0 {
		return Config{}, fmt.Errorf("OMI_IMPORT_TIMEOUT must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// listFromEnv parses a comma-separated list; an unset variable yields nil
// so callers can apply their own default vocabulary.
func listFromEnv(key string) []string {
	v := envTrimmed(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(envTrimmed(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
