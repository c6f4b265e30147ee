package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Agenda       *AgendaHandler
	Packages     *PackageHandler
	Appointments *AppointmentHandler
	Metrics      http.Handler
	Middleware   []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"status":"ok"}` + "\n"))
	})

	if cfg.Metrics != nil {
		mux.Handle("/metrics", cfg.Metrics)
	}

	if cfg.Agenda != nil {
		mux.HandleFunc("/agenda/week", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Agenda.Week(w, r)
		})
		mux.HandleFunc("/agenda/month", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Agenda.Month(w, r)
		})
	}

	if cfg.Packages != nil {
		mux.HandleFunc("/session-packages", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Packages.Create(w, r)
		})
		mux.HandleFunc("/session-packages/preview", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Packages.Preview(w, r)
		})
		mux.HandleFunc("/session-packages/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/session-packages/")
			id, sub, _ := strings.Cut(rest, "/")
			if id == "" || (sub != "" && sub != "calendar.ics") {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			r = r.WithContext(ContextWithResourceID(r.Context(), id))
			if sub == "calendar.ics" {
				cfg.Packages.Calendar(w, r)
				return
			}
			cfg.Packages.Get(w, r)
		})
	}

	if cfg.Appointments != nil {
		mux.HandleFunc("/appointments/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/appointments/")
			id, action, _ := strings.Cut(rest, "/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			var handle http.HandlerFunc
			switch action {
			case "execute":
				handle = cfg.Appointments.Execute
			case "cancel":
				handle = cfg.Appointments.Cancel
			case "reschedule":
				handle = cfg.Appointments.Reschedule
			default:
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			handle(w, r.WithContext(ContextWithResourceID(r.Context(), id)))
		})
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
