package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/example/physio-agenda/internal/apiclient"
	"github.com/example/physio-agenda/internal/application"
	"github.com/example/physio-agenda/internal/calendar"
	"github.com/example/physio-agenda/internal/config"
	httptransport "github.com/example/physio-agenda/internal/http"
	"github.com/example/physio-agenda/internal/icalexport"
	"github.com/example/physio-agenda/internal/logging"
	"github.com/example/physio-agenda/internal/metrics"
	"github.com/example/physio-agenda/internal/persistence/sqlite"
	"github.com/example/physio-agenda/internal/recurrence"
)

func main() {
	// A missing .env file is fine; the environment may already be populated.
	_ = godotenv.Load()

	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		slog.Error("agenda command failed", "error", err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:      "agenda",
		Usage:     "Agenda and session package service for a physiotherapy clinic.",
		Writer:    out,
		ErrWriter: out,
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			previewCommand(),
			hashKeyCommand(),
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API.",
		Action: func(c *cli.Context) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireAPIKey(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, closeStore, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			authenticator, err := application.NewKeyAuthenticator(cfg.APIKeyHash, logger)
			if err != nil {
				return err
			}

			registry := prometheus.NewRegistry()
			registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			handler := newHandler(handlerDeps{
				Config:        cfg,
				Store:         store,
				Authenticator: authenticator,
				Registry:      registry,
				Now:           time.Now,
				NewID:         uuid.NewString,
				Logger:        logger,
			})

			server := &http.Server{
				Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       30 * time.Second,
				WriteTimeout:      30 * time.Second,
				IdleTimeout:       60 * time.Second,
			}

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("failed to shutdown server", "error", err)
				}
			}()

			logger.Info("agenda API listening", "addr", server.Addr, "upstream", cfg.UsesUpstream())
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server encountered error: %w", err)
			}
			return nil
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending SQLite schema migrations.",
		Action: func(c *cli.Context) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			pool, err := openSQLite(c.Context, cfg.SQLiteDSN)
			if err != nil {
				return err
			}
			defer pool.Close()

			version, dirty, err := pool.SchemaVersion()
			if err != nil {
				return err
			}
			logger.Info("schema version", "version", version, "dirty", dirty)
			if err := pool.Migrate(); err != nil {
				return err
			}
			version, dirty, err = pool.SchemaVersion()
			if err != nil {
				return err
			}
			logger.Info("database migrations completed", "version", version, "dirty", dirty)
			return nil
		},
	}
}

func previewCommand() *cli.Command {
	return &cli.Command{
		Name:  "preview",
		Usage: "Expand a session package plan offline and print it as JSON or iCalendar.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "patient", Usage: "Patient id.", Required: true},
			&cli.StringFlag{Name: "name", Usage: "Patient name."},
			&cli.StringFlag{Name: "type", Usage: "Treatment type."},
			&cli.StringFlag{Name: "start", Usage: "Start date (YYYY-MM-DD).", Required: true},
			&cli.IntFlag{Name: "count", Usage: "Number of sessions.", Required: true},
			&cli.StringSliceFlag{Name: "slot", Usage: "Weekly slot as weekday@HH:MM; repeatable.", Required: true},
			&cli.StringFlag{Name: "category", Value: string(calendar.CategoryClinic), Usage: "private or clinic."},
			&cli.StringFlag{Name: "room", Usage: "Room (required for clinic sessions)."},
			&cli.BoolFlag{Name: "ics", Usage: "Print an iCalendar feed instead of JSON."},
		},
		Action: func(c *cli.Context) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			slots, err := parseSlotFlags(c.StringSlice("slot"))
			if err != nil {
				return err
			}
			input := application.PackageInput{
				PatientID:   c.String("patient"),
				PatientName: c.String("name"),
				Type:        c.String("type"),
				Category:    c.String("category"),
				StartDate:   c.String("start"),
				TargetCount: c.Int("count"),
				Slots:       slots,
			}
			if room := strings.TrimSpace(c.String("room")); room != "" {
				input.Room = &room
			}

			service := application.NewSessionPackageServiceWithLogger(nil, recurrence.NewEngine(cfg.RecurrenceMaxDays), nil, uuid.NewString, time.Now, logger)
			preview, warnings, err := service.Preview(c.Context, application.CreatePackageParams{Input: input})
			if err != nil {
				return describeError(err)
			}
			return writePreview(c.App.Writer, cfg, input, preview, warnings, c.Bool("ics"))
		},
	}
}

func hashKeyCommand() *cli.Command {
	return &cli.Command{
		Name:      "hash-key",
		Usage:     "Print the bcrypt hash to store in CLINIC_API_KEY_HASH.",
		ArgsUsage: "<api key>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "cost", Usage: "bcrypt cost; 0 uses the library default."},
		},
		Action: func(c *cli.Context) error {
			key := c.Args().First()
			if key == "" {
				return fmt.Errorf("informe a chave de API")
			}
			hash, err := application.HashKey(key, c.Int("cost"))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.App.Writer, hash)
			return err
		},
	}
}

func loadConfig() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := logging.New(os.Stderr, level)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func openSQLite(ctx context.Context, dsn string) (*sqlite.ConnectionPool, error) {
	return sqlite.Open(ctx, sqlite.DefaultConfig(dsn))
}

// openStore returns the upstream API store when configured, otherwise a
// migrated SQLite store.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (clinicStore, func(), error) {
	if cfg.UsesUpstream() {
		client := apiclient.NewClient(cfg.UpstreamURL, cfg.UpstreamTimeout, logger)
		return newUpstreamStore(client), func() {}, nil
	}

	pool, err := openSQLite(ctx, cfg.SQLiteDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Migrate(); err != nil {
		_ = pool.Close()
		return nil, nil, err
	}
	closeFn := func() {
		if err := pool.Close(); err != nil {
			logger.Error("failed to close storage", "error", err)
		}
	}
	return newSQLiteStore(sqlite.NewAppointmentRepository(pool)), closeFn, nil
}

type handlerDeps struct {
	Config        config.Config
	Store         clinicStore
	Authenticator httptransport.SessionValidator
	Registry      *prometheus.Registry
	Now           func() time.Time
	NewID         func() string
	Logger        *slog.Logger
}

func newHandler(deps handlerDeps) http.Handler {
	cfg := deps.Config
	agendaMetrics := metrics.NewAgendaMetrics(deps.Registry)
	aggregator := calendar.NewAggregator(cfg.AgendaFirstHour, cfg.AgendaLastHour)
	engine := recurrence.NewEngine(cfg.RecurrenceMaxDays)

	packageService := application.NewSessionPackageServiceWithLogger(deps.Store, engine, agendaMetrics, deps.NewID, deps.Now, deps.Logger)
	agendaService := application.NewAgendaServiceWithLogger(deps.Store, aggregator, agendaMetrics, deps.Now, deps.Logger)
	appointmentService := application.NewAppointmentServiceWithLogger(deps.Store, deps.Store, deps.Now, deps.Logger)

	exportOptions := icalexport.Options{Location: cfg.Location}
	router := httptransport.NewRouter(httptransport.RouterConfig{
		Agenda:       httptransport.NewAgendaHandler(agendaService, cfg.Location, deps.Now, deps.Logger),
		Packages:     httptransport.NewPackageHandler(packageService, exportOptions, deps.Logger),
		Appointments: httptransport.NewAppointmentHandler(appointmentService, deps.Logger),
		Metrics:      promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}),
	})

	protect := httptransport.RequireSession(deps.Authenticator, deps.Logger)
	return httptransport.RequestLogger(deps.Logger)(
		httptransport.PublicPaths(protect, "/healthz", "/metrics")(router),
	)
}

func parseSlotFlags(values []string) ([]application.SlotInput, error) {
	slots := make([]application.SlotInput, 0, len(values))
	for _, value := range values {
		day, clock, ok := strings.Cut(value, "@")
		if !ok {
			return nil, fmt.Errorf("horário semanal inválido %q: use dia@HH:MM", value)
		}
		slots = append(slots, application.SlotInput{Weekday: strings.TrimSpace(day), Time: strings.TrimSpace(clock)})
	}
	return slots, nil
}

func describeError(err error) error {
	var vErr *application.ValidationError
	if !errors.As(err, &vErr) || !vErr.HasErrors() {
		return err
	}
	parts := make([]string, 0, len(vErr.FieldErrors))
	for field, message := range vErr.FieldErrors {
		parts = append(parts, field+": "+message)
	}
	return fmt.Errorf("%w: %s", err, strings.Join(parts, "; "))
}

type previewOutput struct {
	Requested    int                   `json:"requested"`
	Shortfall    int                   `json:"shortfall"`
	Appointments []previewAppointment  `json:"appointments"`
	Warnings     []application.Warning `json:"warnings,omitempty"`
}

type previewAppointment struct {
	Date     string `json:"date"`
	Time     string `json:"time"`
	Category string `json:"category"`
	Status   string `json:"status"`
}

func writePreview(w io.Writer, cfg config.Config, input application.PackageInput, preview application.PackagePreview, warnings []application.Warning, asICS bool) error {
	if asICS {
		pkg := application.SessionPackage{
			ID:           "preview",
			PatientID:    input.PatientID,
			PatientName:  input.PatientName,
			Type:         input.Type,
			Room:         input.Room,
			Appointments: preview.Appointments,
		}
		for i := range pkg.Appointments {
			if pkg.Appointments[i].ID == "" {
				pkg.Appointments[i].ID = uuid.NewString()
			}
		}
		return icalexport.EncodePackage(w, pkg, icalexport.Options{Location: cfg.Location})
	}

	out := previewOutput{Requested: preview.Requested, Shortfall: preview.Shortfall, Warnings: warnings}
	for _, appt := range preview.Appointments {
		out.Appointments = append(out.Appointments, previewAppointment{
			Date:     appt.Date,
			Time:     appt.Time,
			Category: string(appt.Category),
			Status:   appt.Status,
		})
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}
