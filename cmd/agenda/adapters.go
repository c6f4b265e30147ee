package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/physio-agenda/internal/apiclient"
	"github.com/example/physio-agenda/internal/application"
	"github.com/example/physio-agenda/internal/calendar"
	"github.com/example/physio-agenda/internal/persistence"
	"github.com/example/physio-agenda/internal/recurrence"
)

// clinicStore is everything the services need from a backing store.
type clinicStore interface {
	application.PackageStore
	application.AppointmentStore
}

// sqliteStore adapts the local repository. The principal is ignored: the
// local database has a single tenant.
type sqliteStore struct {
	repo persistence.AppointmentRepository
}

func newSQLiteStore(repo persistence.AppointmentRepository) *sqliteStore {
	return &sqliteStore{repo: repo}
}

func (s *sqliteStore) ListAppointments(ctx context.Context, _ application.Principal, from, to time.Time) ([]calendar.Appointment, error) {
	models, err := s.repo.ListAppointments(ctx, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]calendar.Appointment, 0, len(models))
	for _, model := range models {
		out = append(out, toCalendarAppointment(model))
	}
	return out, nil
}

func (s *sqliteStore) CreateSessionPackage(ctx context.Context, _ application.Principal, pkg application.SessionPackage) (application.SessionPackage, error) {
	now := pkg.CreatedAt.UTC()
	appointments := make([]persistence.Appointment, 0, len(pkg.Appointments))
	for _, appt := range pkg.Appointments {
		model := toPersistenceAppointment(appt)
		model.CreatedAt, model.UpdatedAt = now, now
		appointments = append(appointments, model)
	}
	if err := s.repo.CreateSessionPackage(ctx, toPersistencePackage(pkg), appointments); err != nil {
		return application.SessionPackage{}, err
	}
	return s.GetSessionPackage(ctx, application.Principal{}, pkg.ID)
}

func (s *sqliteStore) GetSessionPackage(ctx context.Context, _ application.Principal, id string) (application.SessionPackage, error) {
	stored, err := s.repo.GetSessionPackage(ctx, id)
	if err != nil {
		return application.SessionPackage{}, err
	}
	models, err := s.repo.ListPackageAppointments(ctx, id)
	if err != nil {
		return application.SessionPackage{}, err
	}
	pkg := toApplicationPackage(stored)
	pkg.Appointments = make([]application.Appointment, 0, len(models))
	for _, model := range models {
		pkg.Appointments = append(pkg.Appointments, toApplicationAppointment(model))
	}
	if len(pkg.Appointments) > 0 {
		pkg.Color = pkg.Appointments[0].Color
	}
	return pkg, nil
}

func (s *sqliteStore) GetAppointment(ctx context.Context, _ application.Principal, id string) (application.Appointment, error) {
	stored, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return application.Appointment{}, err
	}
	return toApplicationAppointment(stored), nil
}

func (s *sqliteStore) UpdateAppointmentStatus(ctx context.Context, principal application.Principal, id, status string, at time.Time) (application.Appointment, error) {
	if err := s.repo.UpdateAppointmentStatus(ctx, id, status, at.UTC()); err != nil {
		return application.Appointment{}, err
	}
	return s.GetAppointment(ctx, principal, id)
}

func (s *sqliteStore) RescheduleAppointment(ctx context.Context, principal application.Principal, id, date, clock string, at time.Time) (application.Appointment, error) {
	if err := s.repo.RescheduleAppointment(ctx, id, date, clock, at.UTC()); err != nil {
		return application.Appointment{}, err
	}
	return s.GetAppointment(ctx, principal, id)
}

func toCalendarAppointment(model persistence.Appointment) calendar.Appointment {
	date, clock := model.Date, model.Time
	appt := calendar.Appointment{
		ID:           model.ID,
		PatientID:    model.PatientID,
		PatientName:  model.PatientName,
		Type:         model.Type,
		Status:       model.Status,
		Category:     calendar.Category(model.Category),
		Color:        model.Color,
		Room:         model.Room,
		HealthPlanID: model.HealthPlanID,
	}
	if strings.TrimSpace(date) != "" {
		appt.Date = &date
	}
	if strings.TrimSpace(clock) != "" {
		appt.ScheduledTime = &clock
	}
	return appt
}

func toApplicationAppointment(model persistence.Appointment) application.Appointment {
	appt := application.Appointment{
		ID:           model.ID,
		PatientID:    model.PatientID,
		PatientName:  model.PatientName,
		Date:         model.Date,
		Time:         model.Time,
		Type:         model.Type,
		Status:       model.Status,
		Category:     calendar.Category(model.Category),
		Color:        model.Color,
		Room:         model.Room,
		HealthPlanID: model.HealthPlanID,
	}
	if model.PackageID != nil {
		appt.PackageID = *model.PackageID
	}
	return appt
}

func toPersistenceAppointment(appt application.Appointment) persistence.Appointment {
	model := persistence.Appointment{
		ID:           appt.ID,
		PatientID:    appt.PatientID,
		PatientName:  appt.PatientName,
		Date:         appt.Date,
		Time:         appt.Time,
		Type:         appt.Type,
		Status:       appt.Status,
		Category:     string(appt.Category),
		Color:        appt.Color,
		Room:         appt.Room,
		HealthPlanID: appt.HealthPlanID,
	}
	if appt.PackageID != "" {
		packageID := appt.PackageID
		model.PackageID = &packageID
	}
	return model
}

func toPersistencePackage(pkg application.SessionPackage) persistence.SessionPackage {
	slots := make([]persistence.PackageSlot, 0, len(pkg.Slots))
	for _, slot := range pkg.Slots {
		slots = append(slots, persistence.PackageSlot{Weekday: slot.Weekday, Time: slot.Time})
	}
	return persistence.SessionPackage{
		ID:           pkg.ID,
		PatientID:    pkg.PatientID,
		PatientName:  pkg.PatientName,
		Type:         pkg.Type,
		Category:     string(pkg.Category),
		Room:         pkg.Room,
		HealthPlanID: pkg.HealthPlanID,
		StartDate:    pkg.StartDate,
		TargetCount:  pkg.TargetCount,
		Slots:        slots,
		CreatedAt:    pkg.CreatedAt.UTC(),
	}
}

func toApplicationPackage(model persistence.SessionPackage) application.SessionPackage {
	slots := make([]recurrence.WeeklySlot, 0, len(model.Slots))
	for _, slot := range model.Slots {
		slots = append(slots, recurrence.WeeklySlot{Weekday: slot.Weekday, Time: slot.Time})
	}
	return application.SessionPackage{
		ID:           model.ID,
		PatientID:    model.PatientID,
		PatientName:  model.PatientName,
		Type:         model.Type,
		Category:     calendar.Category(model.Category),
		Room:         model.Room,
		HealthPlanID: model.HealthPlanID,
		StartDate:    model.StartDate,
		TargetCount:  model.TargetCount,
		Slots:        slots,
		CreatedAt:    model.CreatedAt,
	}
}

// upstreamStore forwards every call to the remote clinic API using the
// caller's token.
type upstreamStore struct {
	client *apiclient.Client
}

func newUpstreamStore(client *apiclient.Client) *upstreamStore {
	return &upstreamStore{client: client}
}

func sessionFor(principal application.Principal) apiclient.Session {
	return apiclient.Session{Token: principal.Token}
}

func mapUpstreamError(err error) error {
	if errors.Is(err, apiclient.ErrNotFound) {
		return fmt.Errorf("%w: %v", application.ErrNotFound, err)
	}
	return err
}

func (s *upstreamStore) ListAppointments(ctx context.Context, principal application.Principal, from, to time.Time) ([]calendar.Appointment, error) {
	records, err := s.client.ListAppointments(ctx, sessionFor(principal), from, to)
	if err != nil {
		return nil, err
	}
	out := make([]calendar.Appointment, 0, len(records))
	for _, record := range records {
		out = append(out, record.Calendar())
	}
	return out, nil
}

func (s *upstreamStore) CreateSessionPackage(ctx context.Context, principal application.Principal, pkg application.SessionPackage) (application.SessionPackage, error) {
	created, err := s.client.CreateSessionPackage(ctx, sessionFor(principal), toCreatePackageRequest(pkg))
	if err != nil {
		return application.SessionPackage{}, mapUpstreamError(err)
	}
	return fromUpstreamPackage(created, pkg), nil
}

func (s *upstreamStore) GetSessionPackage(ctx context.Context, principal application.Principal, id string) (application.SessionPackage, error) {
	session := sessionFor(principal)
	stored, err := s.client.GetSessionPackage(ctx, session, id)
	if err != nil {
		return application.SessionPackage{}, mapUpstreamError(err)
	}
	if len(stored.Appointments) == 0 {
		records, err := s.client.ListPackageAppointments(ctx, session, id)
		if err != nil {
			return application.SessionPackage{}, mapUpstreamError(err)
		}
		stored.Appointments = records
	}
	return fromUpstreamPackage(stored, application.SessionPackage{}), nil
}

func (s *upstreamStore) GetAppointment(ctx context.Context, principal application.Principal, id string) (application.Appointment, error) {
	record, err := s.client.GetAppointment(ctx, sessionFor(principal), id)
	if err != nil {
		return application.Appointment{}, mapUpstreamError(err)
	}
	return fromUpstreamAppointment(record), nil
}

func (s *upstreamStore) UpdateAppointmentStatus(ctx context.Context, principal application.Principal, id, status string, _ time.Time) (application.Appointment, error) {
	var (
		record apiclient.Appointment
		err    error
	)
	switch status {
	case application.StatusExecuted:
		record, err = s.client.ExecuteAppointment(ctx, sessionFor(principal), id)
	case application.StatusCancelled:
		record, err = s.client.CancelAppointment(ctx, sessionFor(principal), id)
	default:
		return application.Appointment{}, fmt.Errorf("upstream: unsupported status %q", status)
	}
	if err != nil {
		return application.Appointment{}, mapUpstreamError(err)
	}
	return fromUpstreamAppointment(record), nil
}

func (s *upstreamStore) RescheduleAppointment(ctx context.Context, principal application.Principal, id, date, clock string, _ time.Time) (application.Appointment, error) {
	record, err := s.client.RescheduleAppointment(ctx, sessionFor(principal), id, date, clock)
	if err != nil {
		return application.Appointment{}, mapUpstreamError(err)
	}
	return fromUpstreamAppointment(record), nil
}

func toCreatePackageRequest(pkg application.SessionPackage) apiclient.CreatePackageRequest {
	slots := make([]apiclient.PackageSlot, 0, len(pkg.Slots))
	for _, slot := range pkg.Slots {
		slots = append(slots, apiclient.PackageSlot{Weekday: strings.ToLower(slot.Weekday.String()), Time: slot.Time})
	}
	appointments := make([]apiclient.PackageAppointment, 0, len(pkg.Appointments))
	for _, appt := range pkg.Appointments {
		appointments = append(appointments, apiclient.PackageAppointment{
			ID:           appt.ID,
			Date:         appt.Date,
			Time:         appt.Time,
			Category:     string(appt.Category),
			Room:         appt.Room,
			HealthPlanID: appt.HealthPlanID,
			Status:       appt.Status,
		})
	}
	return apiclient.CreatePackageRequest{
		ID:           pkg.ID,
		PatientID:    pkg.PatientID,
		PatientName:  pkg.PatientName,
		Type:         pkg.Type,
		Category:     string(pkg.Category),
		Color:        pkg.Color,
		Room:         pkg.Room,
		HealthPlanID: pkg.HealthPlanID,
		StartDate:    calendar.DateKey(pkg.StartDate),
		TargetCount:  pkg.TargetCount,
		Slots:        slots,
		Appointments: appointments,
	}
}

// fromUpstreamPackage converts a remote package; fields the API omitted fall back to draft.
func fromUpstreamPackage(remote apiclient.SessionPackage, draft application.SessionPackage) application.SessionPackage {
	pkg := draft
	pkg.ID = remote.ID
	if remote.PatientID != "" {
		pkg.PatientID = remote.PatientID
	}
	if remote.PatientName != "" {
		pkg.PatientName = remote.PatientName
	}
	if remote.Type != "" {
		pkg.Type = remote.Type
	}
	if category, ok := calendar.ParseCategory(remote.Category); ok {
		pkg.Category = category
	}
	if remote.Color != "" {
		pkg.Color = remote.Color
	}
	if remote.Room != nil {
		pkg.Room = remote.Room
	}
	if remote.HealthPlanID != nil {
		pkg.HealthPlanID = remote.HealthPlanID
	}
	if start, ok := calendar.ParseDate(remote.StartDate); ok {
		pkg.StartDate = start
	}
	if remote.TargetCount > 0 {
		pkg.TargetCount = remote.TargetCount
	}
	if len(remote.Slots) > 0 {
		pkg.Slots = make([]recurrence.WeeklySlot, 0, len(remote.Slots))
		for _, slot := range remote.Slots {
			if parsed, err := recurrence.ParseSlot(slot.Weekday, slot.Time); err == nil {
				pkg.Slots = append(pkg.Slots, parsed)
			}
		}
	}
	if !remote.CreatedAt.IsZero() {
		pkg.CreatedAt = remote.CreatedAt
	}
	if len(remote.Appointments) > 0 {
		pkg.Appointments = make([]application.Appointment, 0, len(remote.Appointments))
		for _, record := range remote.Appointments {
			appt := fromUpstreamAppointment(record)
			if appt.PackageID == "" {
				appt.PackageID = pkg.ID
			}
			pkg.Appointments = append(pkg.Appointments, appt)
		}
	}
	return pkg
}

func fromUpstreamAppointment(record apiclient.Appointment) application.Appointment {
	converted := record.Calendar()
	appt := application.Appointment{
		ID:           converted.ID,
		PatientID:    converted.PatientID,
		PatientName:  converted.PatientName,
		Type:         converted.Type,
		Status:       converted.Status,
		Category:     converted.Category,
		Color:        converted.Color,
		Room:         converted.Room,
		HealthPlanID: converted.HealthPlanID,
	}
	if record.PackageID != nil {
		appt.PackageID = *record.PackageID
	}
	if converted.Date != nil {
		appt.Date = *converted.Date
	}
	if converted.ScheduledTime != nil {
		appt.Time = *converted.ScheduledTime
	}
	return appt
}
