package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/physio-agenda/internal/calendar"
	"github.com/example/physio-agenda/internal/scheduler"
)

// AppointmentStore exposes the single-appointment lifecycle operations.
type AppointmentStore interface {
	GetAppointment(ctx context.Context, principal Principal, id string) (Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, principal Principal, id, status string, at time.Time) (Appointment, error)
	RescheduleAppointment(ctx context.Context, principal Principal, id, date, clock string, at time.Time) (Appointment, error)
}

// AppointmentService applies status transitions to pending appointments.
type AppointmentService struct {
	store  AppointmentStore
	source AppointmentSource
	now    func() time.Time
	logger *slog.Logger
}

// NewAppointmentService wires dependencies for appointment transitions. source
// is optional and enables slot conflict warnings on reschedule.
func NewAppointmentService(store AppointmentStore, source AppointmentSource, now func() time.Time) *AppointmentService {
	return NewAppointmentServiceWithLogger(store, source, now, nil)
}

// NewAppointmentServiceWithLogger wires dependencies including a logger.
func NewAppointmentServiceWithLogger(store AppointmentStore, source AppointmentSource, now func() time.Time, logger *slog.Logger) *AppointmentService {
	if now == nil {
		now = time.Now
	}
	return &AppointmentService{store: store, source: source, now: now, logger: defaultLogger(logger)}
}

// Execute marks a pending appointment as performed.
func (s *AppointmentService) Execute(ctx context.Context, params TransitionParams) (Appointment, error) {
	return s.transition(ctx, "Execute", params, StatusExecuted)
}

// Cancel marks a pending appointment as cancelled.
func (s *AppointmentService) Cancel(ctx context.Context, params TransitionParams) (Appointment, error) {
	return s.transition(ctx, "Cancel", params, StatusCancelled)
}

// Reschedule moves a pending appointment to another date and time.
func (s *AppointmentService) Reschedule(ctx context.Context, params RescheduleParams) (Appointment, []Warning, error) {
	if s == nil {
		return Appointment{}, nil, fmt.Errorf("AppointmentService is nil")
	}
	if s.store == nil {
		return Appointment{}, nil, fmt.Errorf("appointment store not configured")
	}
	logger := serviceLogger(ctx, s.logger, "AppointmentService", "Reschedule", "appointment_id", params.AppointmentID)

	vErr := &ValidationError{}
	date, dateOK := calendar.ParseDate(params.Date)
	if strings.TrimSpace(params.Date) == "" {
		vErr.add("date", "date is required")
	} else if !dateOK {
		vErr.add("date", "date must be YYYY-MM-DD")
	}
	clock, clockOK := calendar.NormalizeTime(params.Time)
	if strings.TrimSpace(params.Time) == "" {
		vErr.add("time", "time is required")
	} else if !clockOK || strings.Contains(params.Time, "T") {
		vErr.add("time", "time must be HH:MM")
	}
	if vErr.HasErrors() {
		logger.WarnContext(ctx, "reschedule rejected", "error_kind", ErrorKind(vErr))
		return Appointment{}, nil, vErr
	}

	current, err := s.loadPending(ctx, params.Principal, params.AppointmentID)
	if err != nil {
		logger.WarnContext(ctx, "reschedule refused", "error", err, "error_kind", ErrorKind(err))
		return Appointment{}, nil, err
	}

	warnings, err := s.detectConflicts(ctx, params.Principal, current, date, clock)
	if err != nil {
		logger.ErrorContext(ctx, "failed to check reschedule conflicts", "error", err, "error_kind", ErrorKind(err))
		return Appointment{}, nil, err
	}

	updated, err := s.store.RescheduleAppointment(ctx, params.Principal, current.ID, calendar.DateKey(date), clock, s.now())
	if err != nil {
		mapped := mapStoreError(err)
		logger.ErrorContext(ctx, "failed to reschedule appointment", "error", err, "error_kind", ErrorKind(mapped))
		return Appointment{}, nil, mapped
	}
	logger.InfoContext(ctx, "appointment rescheduled", "date", updated.Date, "time", updated.Time, "warnings", len(warnings))
	return updated, warnings, nil
}

func (s *AppointmentService) transition(ctx context.Context, operation string, params TransitionParams, status string) (Appointment, error) {
	if s == nil {
		return Appointment{}, fmt.Errorf("AppointmentService is nil")
	}
	if s.store == nil {
		return Appointment{}, fmt.Errorf("appointment store not configured")
	}
	logger := serviceLogger(ctx, s.logger, "AppointmentService", operation, "appointment_id", params.AppointmentID)

	current, err := s.loadPending(ctx, params.Principal, params.AppointmentID)
	if err != nil {
		logger.WarnContext(ctx, "transition refused", "error", err, "error_kind", ErrorKind(err))
		return Appointment{}, err
	}

	updated, err := s.store.UpdateAppointmentStatus(ctx, params.Principal, current.ID, status, s.now())
	if err != nil {
		mapped := mapStoreError(err)
		logger.ErrorContext(ctx, "failed to update appointment status", "error", err, "error_kind", ErrorKind(mapped))
		return Appointment{}, mapped
	}
	logger.InfoContext(ctx, "appointment status changed", "from", current.Status, "to", updated.Status)
	return updated, nil
}

func (s *AppointmentService) loadPending(ctx context.Context, principal Principal, id string) (Appointment, error) {
	if strings.TrimSpace(id) == "" {
		return Appointment{}, ErrNotFound
	}
	current, err := s.store.GetAppointment(ctx, principal, id)
	if err != nil {
		return Appointment{}, mapStoreError(err)
	}
	if current.Status != StatusPending {
		return Appointment{}, fmt.Errorf("%w: appointment is %s", ErrInvalidTransition, current.Status)
	}
	return current, nil
}

func (s *AppointmentService) detectConflicts(ctx context.Context, principal Principal, current Appointment, date time.Time, clock string) ([]Warning, error) {
	if s.source == nil {
		return nil, nil
	}
	existing, err := s.source.ListAppointments(ctx, principal, date, date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	others := make([]calendar.Appointment, 0, len(existing))
	for _, appointment := range existing {
		if appointment.ID != current.ID {
			others = append(others, appointment)
		}
	}

	candidate := scheduler.Booking{ID: current.ID, Date: date, Time: clock, Category: current.Category}
	conflicts := scheduler.DetectSlotConflicts(toBookings(others), []scheduler.Booking{candidate}, scheduler.DefaultClinicCapacity)
	if len(conflicts) == 0 {
		return nil, nil
	}
	warnings := make([]Warning, 0, len(conflicts))
	for _, conflict := range conflicts {
		warnings = append(warnings, Warning{
			Type:           string(conflict.Type),
			Date:           calendar.DateKey(conflict.Date),
			Time:           conflict.Time,
			AppointmentIDs: conflict.WithBookings,
		})
	}
	return warnings, nil
}
