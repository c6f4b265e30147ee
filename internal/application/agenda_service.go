package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/physio-agenda/internal/calendar"
	"github.com/example/physio-agenda/internal/metrics"
)

const (
	viewWeek  = "week"
	viewMonth = "month"
)

// AgendaService renders week and month agenda grids: one range fetch, then a
// pure bucketing pass.
type AgendaService struct {
	source     AppointmentSource
	aggregator calendar.Aggregator
	tracker    *viewTracker
	metrics    *metrics.AgendaMetrics
	now        func() time.Time
	logger     *slog.Logger
}

// NewAgendaService wires dependencies for agenda rendering.
func NewAgendaService(source AppointmentSource, aggregator calendar.Aggregator, now func() time.Time) *AgendaService {
	return NewAgendaServiceWithLogger(source, aggregator, nil, now, nil)
}

// NewAgendaServiceWithLogger wires dependencies including metrics and a logger.
func NewAgendaServiceWithLogger(source AppointmentSource, aggregator calendar.Aggregator, m *metrics.AgendaMetrics, now func() time.Time, logger *slog.Logger) *AgendaService {
	if now == nil {
		now = time.Now
	}
	return &AgendaService{
		source:     source,
		aggregator: aggregator,
		tracker:    newViewTracker(0, 0, now),
		metrics:    m,
		now:        now,
		logger:     defaultLogger(logger),
	}
}

// Week fetches the Monday-start week containing params.Date and buckets it.
// The caller always gets its own grid; only the newest refresh of the week is
// published for LatestWeek.
func (s *AgendaService) Week(ctx context.Context, params WeekParams) (WeekView, error) {
	if s == nil {
		return WeekView{}, fmt.Errorf("AgendaService is nil")
	}
	from, to := calendar.WeekRange(params.Date)
	logger := serviceLogger(ctx, s.logger, "AgendaService", "Week", "week_start", calendar.DateKey(from))

	view, err := s.render(ctx, logger, params.Principal, viewWeek, from, from, to, func(appointments []calendar.Appointment) (any, int) {
		grid := s.aggregator.BucketWeek(from, appointments)
		if len(grid.Unplaced) > 0 {
			logger.InfoContext(ctx, "appointments outside agenda hours", "count", len(grid.Unplaced))
		}
		return WeekView{Grid: grid}, len(grid.Skipped)
	})
	if err != nil {
		return WeekView{}, err
	}
	return view.(WeekView), nil
}

// Month fetches the 42-day grid around the month containing params.Month and buckets it.
func (s *AgendaService) Month(ctx context.Context, params MonthParams) (MonthView, error) {
	if s == nil {
		return MonthView{}, fmt.Errorf("AgendaService is nil")
	}
	month := calendar.StartOfMonth(params.Month)
	from, to := calendar.MonthGridRange(month)
	logger := serviceLogger(ctx, s.logger, "AgendaService", "Month", "month", month.Format("2006-01"))

	view, err := s.render(ctx, logger, params.Principal, viewMonth, month, from, to, func(appointments []calendar.Appointment) (any, int) {
		grid := s.aggregator.BucketMonth(month, appointments)
		return MonthView{Grid: grid}, len(grid.Skipped)
	})
	if err != nil {
		return MonthView{}, err
	}
	return view.(MonthView), nil
}

// LatestWeek returns the last week view published for the principal, if still fresh.
func (s *AgendaService) LatestWeek(principal Principal, date time.Time) (WeekView, bool) {
	view, ok := s.tracker.Latest(buildViewKey(principal, viewWeek, calendar.StartOfWeek(date)))
	if !ok {
		return WeekView{}, false
	}
	week, ok := view.(WeekView)
	return week, ok
}

// LatestMonth returns the last month view published for the principal, if still fresh.
func (s *AgendaService) LatestMonth(principal Principal, month time.Time) (MonthView, bool) {
	view, ok := s.tracker.Latest(buildViewKey(principal, viewMonth, calendar.StartOfMonth(month)))
	if !ok {
		return MonthView{}, false
	}
	grid, ok := view.(MonthView)
	return grid, ok
}

// render runs fetch then bucket for one view key. anchor identifies the view;
// the fetch covers [from, to]. A superseded result is still returned to its
// caller but never replaces the published view.
func (s *AgendaService) render(ctx context.Context, logger *slog.Logger, principal Principal, view string, anchor, from, to time.Time, bucket func([]calendar.Appointment) (any, int)) (any, error) {
	if s.source == nil {
		return nil, fmt.Errorf("appointment source not configured")
	}

	key := buildViewKey(principal, view, anchor)
	ticket := s.tracker.Issue(key)
	began := s.now()

	appointments, err := s.source.ListAppointments(ctx, principal, from, to)
	if err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		s.metrics.ObserveRender(view, "error", s.now().Sub(began).Seconds())
		logger.ErrorContext(ctx, "failed to fetch appointments", "error", err, "error_kind", ErrorKind(wrapped))
		return nil, wrapped
	}

	rendered, skipped := bucket(appointments)
	if !s.tracker.Publish(key, ticket, rendered) {
		s.metrics.ObserveStaleView(view)
		logger.DebugContext(ctx, "newer refresh issued, result not published", "ticket", ticket)
	}

	if skipped > 0 {
		s.metrics.ObserveSkipped(view, skipped)
		logger.WarnContext(ctx, "skipped malformed appointments", "count", skipped, "fetched", len(appointments))
	}
	s.metrics.ObserveRender(view, "ok", s.now().Sub(began).Seconds())
	logger.DebugContext(ctx, "agenda rendered", "fetched", len(appointments))
	return rendered, nil
}
