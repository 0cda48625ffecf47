package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	if cfg.BindAddr != ":8000" {
		t.Fatalf("BindAddr = %q", cfg.BindAddr)
	}
	if cfg.CSVPath != "medications.csv" {
		t.Fatalf("CSVPath = %q", cfg.CSVPath)
	}
	if cfg.MetricsNamespace != "medlog" {
		t.Fatalf("MetricsNamespace = %q", cfg.MetricsNamespace)
	}
	if cfg.WaitTimeout != 30*time.Second {
		t.Fatalf("WaitTimeout = %v", cfg.WaitTimeout)
	}
	if cfg.HistoryDays != 7 {
		t.Fatalf("HistoryDays = %d", cfg.HistoryDays)
	}
	if cfg.DosageUnits != nil {
		t.Fatalf("DosageUnits = %v, want nil (extractor default)", cfg.DosageUnits)
	}
	if cfg.ImportURL != "" {
		t.Fatalf("ImportURL = %q, want disabled", cfg.ImportURL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_BIND_ADDR", ":9100")
	t.Setenv("MEDLOG_CSV_PATH", "/var/lib/medlog/meds.csv")
	t.Setenv("MEDLOG_WAIT_TIMEOUT", "45s")
	t.Setenv("MEDLOG_HISTORY_DAYS", "14")
	t.Setenv("MEDLOG_DOSAGE_UNITS", "mg, drops ,ml,")
	t.Setenv("APP_ALLOW_ANY_ORIGIN", "true")
	t.Setenv("OMI_IMPORT_URL", " https://api.example.com/import ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	if cfg.BindAddr != ":9100" {
		t.Fatalf("BindAddr = %q", cfg.BindAddr)
	}
	if cfg.CSVPath != "/var/lib/medlog/meds.csv" {
		t.Fatalf("CSVPath = %q", cfg.CSVPath)
	}
	if cfg.WaitTimeout != 45*time.Second {
		t.Fatalf("WaitTimeout = %v", cfg.WaitTimeout)
	}
	if cfg.HistoryDays != 14 {
		t.Fatalf("HistoryDays = %d", cfg.HistoryDays)
	}
	want := []string{"mg", "drops", "ml"}
	if len(cfg.DosageUnits) != len(want) {
		t.Fatalf("DosageUnits = %v, want %v", cfg.DosageUnits, want)
	}
	for i, u := range want {
		if cfg.DosageUnits[i] != u {
			t.Fatalf("DosageUnits = %v, want %v", cfg.DosageUnits, want)
		}
	}
	if !cfg.AllowAnyOrigin {
		t.Fatalf("AllowAnyOrigin = false, want true")
	}
	if cfg.ImportURL != "https://api.example.com/import" {
		t.Fatalf("ImportURL = %q, want trimmed URL", cfg.ImportURL)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"bad duration", "MEDLOG_WAIT_TIMEOUT", "soon"},
		{"too small wait", "MEDLOG_WAIT_TIMEOUT", "100ms"},
		{"bad int", "MEDLOG_HISTORY_DAYS", "week"},
		{"non-positive days", "MEDLOG_HISTORY_DAYS", "0"},
		{"bad bool", "APP_ALLOW_ANY_ORIGIN", "maybe"},
		{"bad import timeout", "OMI_IMPORT_TIMEOUT", "-1s"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Fatalf("Load with %s=%q succeeded, want error", tc.key, tc.value)
			}
		})
	}
}
