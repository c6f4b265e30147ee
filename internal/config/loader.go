package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

const (
	DefaultSQLiteDSN       = "file:clinic.db"
	DefaultTimezone        = "America/Sao_Paulo"
	DefaultUpstreamTimeout = 10 * time.Second
	DefaultMaxWalkDays     = 730
)

// Config captures environment driven configuration values for the agenda service.
type Config struct {
	HTTPPort          int
	SQLiteDSN         string
	APIKeyHash        string
	UpstreamURL       string
	UpstreamTimeout   time.Duration
	RecurrenceMaxDays int
	AgendaFirstHour   int
	AgendaLastHour    int
	Timezone          string
	Location          *time.Location
	LogLevel          string
}

// Load parses configuration values from the current process environment.
//
// The loader applies defaults for optional fields and reports localized error
// messages for malformed entries. The API key hash is only required by the
// serve command; see RequireAPIKey.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:          8080,
		SQLiteDSN:         DefaultSQLiteDSN,
		UpstreamTimeout:   DefaultUpstreamTimeout,
		RecurrenceMaxDays: DefaultMaxWalkDays,
		AgendaFirstHour:   8,
		AgendaLastHour:    22,
		Timezone:          DefaultTimezone,
		LogLevel:          "info",
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("CLINIC_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "CLINIC_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("CLINIC_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	cfg.APIKeyHash = strings.TrimSpace(os.Getenv("CLINIC_API_KEY_HASH"))

	if upstream := strings.TrimSpace(os.Getenv("CLINIC_UPSTREAM_URL")); upstream != "" {
		if !strings.HasPrefix(upstream, "http://") && !strings.HasPrefix(upstream, "https://") {
			invalid = append(invalid, "CLINIC_UPSTREAM_URL")
		} else {
			cfg.UpstreamURL = upstream
		}
	}

	if timeoutValue := strings.TrimSpace(os.Getenv("CLINIC_UPSTREAM_TIMEOUT")); timeoutValue != "" {
		timeout, err := time.ParseDuration(timeoutValue)
		if err != nil || timeout <= 0 {
			invalid = append(invalid, "CLINIC_UPSTREAM_TIMEOUT")
		} else {
			cfg.UpstreamTimeout = timeout
		}
	}

	if daysValue := strings.TrimSpace(os.Getenv("CLINIC_RECURRENCE_MAX_DAYS")); daysValue != "" {
		days, err := strconv.Atoi(daysValue)
		if err != nil || days <= 0 {
			invalid = append(invalid, "CLINIC_RECURRENCE_MAX_DAYS")
		} else {
			cfg.RecurrenceMaxDays = days
		}
	}

	first, firstOK := parseHour("CLINIC_AGENDA_FIRST_HOUR", cfg.AgendaFirstHour)
	last, lastOK := parseHour("CLINIC_AGENDA_LAST_HOUR", cfg.AgendaLastHour)
	switch {
	case !firstOK:
		invalid = append(invalid, "CLINIC_AGENDA_FIRST_HOUR")
	case !lastOK:
		invalid = append(invalid, "CLINIC_AGENDA_LAST_HOUR")
	case first > last:
		invalid = append(invalid, "CLINIC_AGENDA_FIRST_HOUR", "CLINIC_AGENDA_LAST_HOUR")
	default:
		cfg.AgendaFirstHour, cfg.AgendaLastHour = first, last
	}

	if tz := strings.TrimSpace(os.Getenv("CLINIC_TIMEZONE")); tz != "" {
		cfg.Timezone = tz
	}
	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		invalid = append(invalid, "CLINIC_TIMEZONE")
	} else {
		cfg.Location = location
	}

	if level := strings.TrimSpace(os.Getenv("CLINIC_LOG_LEVEL")); level != "" {
		cfg.LogLevel = strings.ToLower(level)
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("Valores inválidos nas variáveis de ambiente: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// RequireAPIKey reports a localized error when no API key hash is configured.
func (c Config) RequireAPIKey() error {
	if c.APIKeyHash == "" {
		return fmt.Errorf("Variáveis de ambiente obrigatórias não definidas: %s", "CLINIC_API_KEY_HASH")
	}
	return nil
}

// UsesUpstream reports whether appointments live in the remote clinic API instead of SQLite.
func (c Config) UsesUpstream() bool {
	return c.UpstreamURL != ""
}

func parseHour(key string, fallback int) (int, bool) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, true
	}
	hour, err := strconv.Atoi(value)
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	return hour, true
}
