package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/physio-agenda/internal/calendar"
	"github.com/example/physio-agenda/internal/metrics"
	"github.com/example/physio-agenda/internal/persistence"
	"github.com/example/physio-agenda/internal/recurrence"
	"github.com/example/physio-agenda/internal/scheduler"
)

// MaxPackageSessions bounds the target count a single package may request.
const MaxPackageSessions = 200

// AppointmentSource is the range fetch behind the agenda and conflict checks.
type AppointmentSource interface {
	ListAppointments(ctx context.Context, principal Principal, from, to time.Time) ([]calendar.Appointment, error)
}

// PackageStore persists session packages and their generated appointments.
type PackageStore interface {
	AppointmentSource
	CreateSessionPackage(ctx context.Context, principal Principal, pkg SessionPackage) (SessionPackage, error)
	GetSessionPackage(ctx context.Context, principal Principal, id string) (SessionPackage, error)
}

// SessionPackageService validates, expands and submits session packages.
type SessionPackageService struct {
	store       PackageStore
	engine      *recurrence.Engine
	metrics     *metrics.AgendaMetrics
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewSessionPackageService wires dependencies for session package operations. A
// nil idGenerator issues random UUIDs.
func NewSessionPackageService(store PackageStore, engine *recurrence.Engine, idGenerator func() string, now func() time.Time) *SessionPackageService {
	return NewSessionPackageServiceWithLogger(store, engine, nil, idGenerator, now, nil)
}

// NewSessionPackageServiceWithLogger wires dependencies including metrics and a logger.
func NewSessionPackageServiceWithLogger(store PackageStore, engine *recurrence.Engine, m *metrics.AgendaMetrics, idGenerator func() string, now func() time.Time, logger *slog.Logger) *SessionPackageService {
	if engine == nil {
		engine = recurrence.NewEngine(recurrence.DefaultMaxWalkDays)
	}
	if idGenerator == nil {
		idGenerator = uuid.NewString
	}
	if now == nil {
		now = time.Now
	}
	return &SessionPackageService{
		store:       store,
		engine:      engine,
		metrics:     m,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// Preview expands the plan without persisting anything.
func (s *SessionPackageService) Preview(ctx context.Context, params CreatePackageParams) (PackagePreview, []Warning, error) {
	if s == nil {
		return PackagePreview{}, nil, fmt.Errorf("SessionPackageService is nil")
	}
	logger := serviceLogger(ctx, s.logger, "SessionPackageService", "Preview", "patient_id", params.Input.PatientID)

	draft, plan, err := buildDraft(params.Input)
	if err != nil {
		logger.WarnContext(ctx, "package preview rejected", "error_kind", ErrorKind(err))
		return PackagePreview{}, nil, err
	}

	generated := s.engine.Expand(plan)
	appointments := toDraftAppointments(draft, generated)

	warnings, err := s.collectWarnings(ctx, params.Principal, plan, generated, appointments)
	if err != nil {
		logger.ErrorContext(ctx, "failed to check package conflicts", "error", err, "error_kind", ErrorKind(err))
		return PackagePreview{}, nil, err
	}

	return PackagePreview{
		Requested:    plan.TargetCount,
		Appointments: appointments,
		Shortfall:    recurrence.Shortfall(plan, generated),
	}, warnings, nil
}

// CreatePackage validates the plan, expands it and submits the whole batch in one call.
// A short expansion is persisted as generated and reported with a short_schedule warning.
func (s *SessionPackageService) CreatePackage(ctx context.Context, params CreatePackageParams) (SessionPackage, []Warning, error) {
	if s == nil {
		return SessionPackage{}, nil, fmt.Errorf("SessionPackageService is nil")
	}
	if s.store == nil {
		return SessionPackage{}, nil, fmt.Errorf("package store not configured")
	}
	logger := serviceLogger(ctx, s.logger, "SessionPackageService", "CreatePackage", "patient_id", params.Input.PatientID)

	draft, plan, err := buildDraft(params.Input)
	if err != nil {
		logger.WarnContext(ctx, "package creation rejected", "error_kind", ErrorKind(err))
		return SessionPackage{}, nil, err
	}

	generated := s.engine.Expand(plan)
	if len(generated) == 0 {
		vErr := &ValidationError{}
		vErr.add("slots", "no session fits within the scheduling window")
		logger.WarnContext(ctx, "package expansion produced nothing", "max_days", s.engine.MaxDays())
		return SessionPackage{}, nil, vErr
	}

	draft.ID = s.idGenerator()
	draft.CreatedAt = s.now()
	draft.Appointments = toDraftAppointments(draft, generated)
	for i := range draft.Appointments {
		draft.Appointments[i].ID = s.idGenerator()
		draft.Appointments[i].PackageID = draft.ID
	}

	warnings, err := s.collectWarnings(ctx, params.Principal, plan, generated, draft.Appointments)
	if err != nil {
		logger.ErrorContext(ctx, "failed to check package conflicts", "error", err, "error_kind", ErrorKind(err))
		return SessionPackage{}, nil, err
	}

	persisted, err := s.store.CreateSessionPackage(ctx, params.Principal, draft)
	if err != nil {
		mapped := mapStoreError(err)
		logger.ErrorContext(ctx, "failed to create session package", "error", err, "error_kind", ErrorKind(mapped))
		return SessionPackage{}, nil, mapped
	}

	shortfall := recurrence.Shortfall(plan, generated)
	s.metrics.ObservePackageCreated(string(persisted.Category), len(persisted.Appointments))
	if shortfall > 0 {
		s.metrics.ObserveShortExpansion()
	}
	logger.InfoContext(ctx, "session package created",
		"package_id", persisted.ID,
		"appointments", len(persisted.Appointments),
		"shortfall", shortfall,
		"warnings", len(warnings),
	)
	return persisted, warnings, nil
}

// GetPackage loads a stored package with its appointments.
func (s *SessionPackageService) GetPackage(ctx context.Context, principal Principal, id string) (SessionPackage, error) {
	if s == nil {
		return SessionPackage{}, fmt.Errorf("SessionPackageService is nil")
	}
	if s.store == nil {
		return SessionPackage{}, fmt.Errorf("package store not configured")
	}
	if strings.TrimSpace(id) == "" {
		return SessionPackage{}, ErrNotFound
	}
	pkg, err := s.store.GetSessionPackage(ctx, principal, id)
	if err != nil {
		return SessionPackage{}, mapStoreError(err)
	}
	return pkg, nil
}

func (s *SessionPackageService) collectWarnings(ctx context.Context, principal Principal, plan recurrence.Plan, generated []recurrence.GeneratedAppointment, appointments []Appointment) ([]Warning, error) {
	var warnings []Warning
	if missing := recurrence.Shortfall(plan, generated); missing > 0 {
		warnings = append(warnings, Warning{Type: WarningShortSchedule, Missing: missing})
	}
	if s.store == nil || len(generated) == 0 {
		return warnings, nil
	}

	from := generated[0].Date
	to := generated[len(generated)-1].Date
	existing, err := s.store.ListAppointments(ctx, principal, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	conflicts := scheduler.DetectSlotConflicts(toBookings(existing), candidateBookings(appointments), scheduler.DefaultClinicCapacity)
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

func buildDraft(input PackageInput) (SessionPackage, recurrence.Plan, error) {
	vErr := &ValidationError{}

	patientID := strings.TrimSpace(input.PatientID)
	if patientID == "" {
		vErr.add("patient_id", "patient is required")
	}

	if input.TargetCount < 1 || input.TargetCount > MaxPackageSessions {
		vErr.add("target_count", fmt.Sprintf("target count must be between 1 and %d", MaxPackageSessions))
	}

	var startDate time.Time
	if strings.TrimSpace(input.StartDate) == "" {
		vErr.add("start_date", "start date is required")
	} else if parsed, ok := calendar.ParseDate(input.StartDate); ok {
		startDate = parsed
	} else {
		vErr.add("start_date", "start date must be YYYY-MM-DD")
	}

	category, ok := calendar.ParseCategory(input.Category)
	if !ok {
		vErr.add("category", "category must be private or clinic")
	}

	room := trimmedOrNil(input.Room)
	if category == calendar.CategoryClinic && room == nil {
		vErr.add("room", "room is required for clinic sessions")
	}

	slots := make([]recurrence.WeeklySlot, 0, len(input.Slots))
	if len(input.Slots) == 0 {
		vErr.add("slots", "at least one weekly slot is required")
	}
	for i, raw := range input.Slots {
		slot, err := recurrence.ParseSlot(raw.Weekday, raw.Time)
		switch {
		case errors.Is(err, recurrence.ErrInvalidWeekday):
			vErr.add(fmt.Sprintf("slots[%d].weekday", i), "unknown weekday")
		case errors.Is(err, recurrence.ErrInvalidTime):
			vErr.add(fmt.Sprintf("slots[%d].time", i), "time must be HH:MM")
		case err != nil:
			vErr.add(fmt.Sprintf("slots[%d]", i), err.Error())
		default:
			slots = append(slots, slot)
		}
	}

	if vErr.HasErrors() {
		return SessionPackage{}, recurrence.Plan{}, vErr
	}

	draft := SessionPackage{
		PatientID:    patientID,
		PatientName:  strings.TrimSpace(input.PatientName),
		Type:         strings.TrimSpace(input.Type),
		Category:     category,
		Color:        strings.TrimSpace(input.Color),
		Room:         room,
		HealthPlanID: input.HealthPlanID,
		StartDate:    startDate,
		TargetCount:  input.TargetCount,
		Slots:        slots,
	}
	plan := recurrence.Plan{
		StartDate:    startDate,
		TargetCount:  input.TargetCount,
		Slots:        slots,
		Category:     category,
		Room:         room,
		HealthPlanID: input.HealthPlanID,
	}
	return draft, plan, nil
}

func toDraftAppointments(draft SessionPackage, generated []recurrence.GeneratedAppointment) []Appointment {
	if len(generated) == 0 {
		return nil
	}
	out := make([]Appointment, 0, len(generated))
	for _, g := range generated {
		out = append(out, Appointment{
			PatientID:    draft.PatientID,
			PatientName:  draft.PatientName,
			Date:         calendar.DateKey(g.Date),
			Time:         g.Time,
			Type:         draft.Type,
			Status:       g.Status,
			Category:     g.Category,
			Color:        draft.Color,
			Room:         g.Room,
			HealthPlanID: g.HealthPlanID,
		})
	}
	return out
}

func toBookings(appointments []calendar.Appointment) []scheduler.Booking {
	out := make([]scheduler.Booking, 0, len(appointments))
	for _, appointment := range appointments {
		if appointment.Status == StatusCancelled || appointment.Date == nil || appointment.ScheduledTime == nil {
			continue
		}
		date, ok := calendar.ParseDate(*appointment.Date)
		if !ok {
			continue
		}
		clock, ok := calendar.NormalizeTime(*appointment.ScheduledTime)
		if !ok {
			continue
		}
		out = append(out, scheduler.Booking{
			ID:       appointment.ID,
			Date:     date,
			Time:     clock,
			Category: appointment.Category,
		})
	}
	return out
}

func candidateBookings(appointments []Appointment) []scheduler.Booking {
	out := make([]scheduler.Booking, 0, len(appointments))
	for _, appointment := range appointments {
		date, ok := calendar.ParseDate(appointment.Date)
		if !ok {
			continue
		}
		out = append(out, scheduler.Booking{
			ID:       appointment.ID,
			Date:     date,
			Time:     appointment.Time,
			Category: appointment.Category,
		})
	}
	return out
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrConstraintViolation) || errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("package", "the package violates a storage constraint")
		return vErr
	}
	return err
}
