package config

import (
	"os"
	"testing"
	"time"
)

var allKeys = []string{
	"CLINIC_HTTP_PORT",
	"CLINIC_SQLITE_DSN",
	"CLINIC_API_KEY_HASH",
	"CLINIC_UPSTREAM_URL",
	"CLINIC_UPSTREAM_TIMEOUT",
	"CLINIC_RECURRENCE_MAX_DAYS",
	"CLINIC_AGENDA_FIRST_HOUR",
	"CLINIC_AGENDA_LAST_HOUR",
	"CLINIC_TIMEZONE",
	"CLINIC_LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		// Setenv registers the restore; Unsetenv then removes the value for this test.
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("failed to unset %s: %v", key, err)
		}
	}
}

func TestLoader_ParseEnvironment(t *testing.T) {

	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.SQLiteDSN != DefaultSQLiteDSN {
			t.Fatalf("unexpected default DSN: %q", cfg.SQLiteDSN)
		}
		if cfg.RecurrenceMaxDays != 730 {
			t.Fatalf("expected default ceiling 730, got %d", cfg.RecurrenceMaxDays)
		}
		if cfg.AgendaFirstHour != 8 || cfg.AgendaLastHour != 22 {
			t.Fatalf("unexpected agenda hours %d-%d", cfg.AgendaFirstHour, cfg.AgendaLastHour)
		}
		if cfg.UpstreamTimeout != 10*time.Second {
			t.Fatalf("unexpected upstream timeout %s", cfg.UpstreamTimeout)
		}
		if cfg.UsesUpstream() {
			t.Fatal("expected SQLite mode without upstream URL")
		}
		if cfg.Location == nil {
			t.Fatal("expected clinic location to be loaded")
		}
	})

	t.Run("serve requires the api key hash", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		err = cfg.RequireAPIKey()
		if err == nil {
			t.Fatalf("expected error when the API key hash is missing")
		}
		expected := "Variáveis de ambiente obrigatórias não definidas: CLINIC_API_KEY_HASH"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}

		t.Setenv("CLINIC_API_KEY_HASH", "$2a$10$abcdefghijklmnopqrstuv")
		cfg, err = Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if err := cfg.RequireAPIKey(); err != nil {
			t.Fatalf("RequireAPIKey returned error: %v", err)
		}
	})

	t.Run("parses duration and numeric fields", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CLINIC_HTTP_PORT", "9090")
		t.Setenv("CLINIC_SQLITE_DSN", "file:/tmp/clinic.db")
		t.Setenv("CLINIC_UPSTREAM_URL", "https://api.clinica.example")
		t.Setenv("CLINIC_UPSTREAM_TIMEOUT", "3s")
		t.Setenv("CLINIC_RECURRENCE_MAX_DAYS", "365")
		t.Setenv("CLINIC_AGENDA_FIRST_HOUR", "7")
		t.Setenv("CLINIC_AGENDA_LAST_HOUR", "20")
		t.Setenv("CLINIC_TIMEZONE", "UTC")
		t.Setenv("CLINIC_LOG_LEVEL", "DEBUG")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 9090 || cfg.SQLiteDSN != "file:/tmp/clinic.db" {
			t.Fatalf("unexpected port/dsn: %d %q", cfg.HTTPPort, cfg.SQLiteDSN)
		}
		if !cfg.UsesUpstream() || cfg.UpstreamTimeout != 3*time.Second {
			t.Fatalf("unexpected upstream settings: %q %s", cfg.UpstreamURL, cfg.UpstreamTimeout)
		}
		if cfg.RecurrenceMaxDays != 365 {
			t.Fatalf("expected ceiling 365, got %d", cfg.RecurrenceMaxDays)
		}
		if cfg.AgendaFirstHour != 7 || cfg.AgendaLastHour != 20 {
			t.Fatalf("unexpected agenda hours %d-%d", cfg.AgendaFirstHour, cfg.AgendaLastHour)
		}
		if cfg.Location != time.UTC {
			t.Fatalf("expected UTC location, got %v", cfg.Location)
		}
		if cfg.LogLevel != "debug" {
			t.Fatalf("expected lowercased log level, got %q", cfg.LogLevel)
		}
	})

	t.Run("reports invalid values", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CLINIC_HTTP_PORT", "abc")
		t.Setenv("CLINIC_RECURRENCE_MAX_DAYS", "0")

		_, err := Load()
		if err == nil {
			t.Fatal("expected error for invalid values")
		}
		expected := "Valores inválidos nas variáveis de ambiente: CLINIC_HTTP_PORT, CLINIC_RECURRENCE_MAX_DAYS"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("rejects inverted agenda hours", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CLINIC_AGENDA_FIRST_HOUR", "20")
		t.Setenv("CLINIC_AGENDA_LAST_HOUR", "8")

		if _, err := Load(); err == nil {
			t.Fatal("expected error for inverted hours")
		}
	})
}
