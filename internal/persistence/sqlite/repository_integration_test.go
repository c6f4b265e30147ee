package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/physio-agenda/internal/calendar"
	"github.com/example/physio-agenda/internal/persistence"
	"github.com/example/physio-agenda/internal/testfixtures"
)

func newPersistenceAppointment(opts ...testfixtures.AppointmentOption) persistence.Appointment {
	return testfixtures.NewAppointmentFixture(opts...).Persistence()
}

func newPersistencePackage(id string) persistence.SessionPackage {
	room := "Sala 2"
	return persistence.SessionPackage{
		ID:          id,
		PatientID:   "patient-" + id,
		PatientName: "Paciente " + id,
		Type:        "RPG",
		Category:    string(calendar.CategoryClinic),
		Room:        &room,
		StartDate:   testfixtures.ReferenceTime(),
		TargetCount: 2,
		Slots:       []persistence.PackageSlot{{Weekday: time.Monday, Time: "09:00"}},
		CreatedAt:   testfixtures.ReferenceTime(),
	}
}

func TestAppointmentRepositoryOnSQLite(t *testing.T) {
	t.Parallel()

	t.Run("stores a package with its appointments and lists them by range", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		harness := testfixtures.NewSQLiteHarness(t)

		pkg := newPersistencePackage("pkg-a")
		appointments := []persistence.Appointment{
			newPersistenceAppointment(
				testfixtures.WithAppointmentID("a2"),
				testfixtures.WithAppointmentPackage(pkg.ID),
				testfixtures.WithAppointmentSlot("2024-03-11", "09:00"),
			),
			newPersistenceAppointment(
				testfixtures.WithAppointmentID("a1"),
				testfixtures.WithAppointmentPackage(pkg.ID),
				testfixtures.WithAppointmentPatient(pkg.PatientID, pkg.PatientName),
			),
		}
		if err := harness.Appointments.CreateSessionPackage(ctx, pkg, appointments); err != nil {
			t.Fatalf("CreateSessionPackage failed: %v", err)
		}

		stored, err := harness.Appointments.GetSessionPackage(ctx, pkg.ID)
		if err != nil {
			t.Fatalf("GetSessionPackage failed: %v", err)
		}
		if stored.Room == nil || *stored.Room != "Sala 2" || len(stored.Slots) != 1 || stored.Slots[0].Weekday != time.Monday {
			t.Fatalf("unexpected stored package: %+v", stored)
		}
		if !stored.StartDate.Equal(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)) {
			t.Fatalf("unexpected start date %v", stored.StartDate)
		}

		listed, err := harness.Appointments.ListPackageAppointments(ctx, pkg.ID)
		if err != nil {
			t.Fatalf("ListPackageAppointments failed: %v", err)
		}
		if len(listed) != 2 || listed[0].ID != "a1" || listed[1].ID != "a2" {
			t.Fatalf("expected schedule order a1, a2, got %+v", listed)
		}
		if listed[0].PackageID == nil || *listed[0].PackageID != pkg.ID || listed[0].PatientName != pkg.PatientName {
			t.Fatalf("unexpected first appointment: %+v", listed[0])
		}

		week, err := harness.Appointments.ListAppointments(ctx, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))
		if err != nil {
			t.Fatalf("ListAppointments failed: %v", err)
		}
		if len(week) != 1 || week[0].ID != "a1" {
			t.Fatalf("expected only a1 in the first week, got %+v", week)
		}
	})

	t.Run("rolls back the whole batch when one appointment is rejected", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		harness := testfixtures.NewSQLiteHarness(t)

		pkg := newPersistencePackage("pkg-b")
		appointments := []persistence.Appointment{
			newPersistenceAppointment(testfixtures.WithAppointmentID("b1"), testfixtures.WithAppointmentPackage(pkg.ID)),
			newPersistenceAppointment(
				testfixtures.WithAppointmentID("b2"),
				testfixtures.WithAppointmentPackage(pkg.ID),
				testfixtures.WithAppointmentCategory("vip"),
			),
		}
		err := harness.Appointments.CreateSessionPackage(ctx, pkg, appointments)
		if !errors.Is(err, persistence.ErrConstraintViolation) {
			t.Fatalf("expected ErrConstraintViolation, got %v", err)
		}
		if _, err := harness.Appointments.GetSessionPackage(ctx, pkg.ID); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected package insert to be rolled back, got %v", err)
		}
		if _, err := harness.Appointments.GetAppointment(ctx, "b1"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected appointment insert to be rolled back, got %v", err)
		}
	})

	t.Run("updates status and reschedules", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		harness := testfixtures.NewSQLiteHarness(t)
		clock := testfixtures.NewClock(time.Time{})

		pkg := newPersistencePackage("pkg-c")
		appointment := newPersistenceAppointment(
			testfixtures.WithAppointmentID("c1"),
			testfixtures.WithAppointmentPackage(pkg.ID),
			testfixtures.WithAppointmentStatus("Pendente"),
		)
		if err := harness.Appointments.CreateSessionPackage(ctx, pkg, []persistence.Appointment{appointment}); err != nil {
			t.Fatalf("CreateSessionPackage failed: %v", err)
		}

		if err := harness.Appointments.UpdateAppointmentStatus(ctx, "c1", "Realizado", clock.Advance(time.Hour)); err != nil {
			t.Fatalf("UpdateAppointmentStatus failed: %v", err)
		}
		if err := harness.Appointments.RescheduleAppointment(ctx, "c1", "2024-03-05", "15:00", clock.AdvanceDays(1)); err != nil {
			t.Fatalf("RescheduleAppointment failed: %v", err)
		}

		got, err := harness.Appointments.GetAppointment(ctx, "c1")
		if err != nil {
			t.Fatalf("GetAppointment failed: %v", err)
		}
		if got.Status != "Realizado" || got.Date != "2024-03-05" || got.Time != "15:00" {
			t.Fatalf("unexpected appointment after updates: %+v", got)
		}
		if !got.UpdatedAt.Equal(clock.Now()) {
			t.Fatalf("expected updated_at %v, got %v", clock.Now(), got.UpdatedAt)
		}

		if err := harness.Appointments.UpdateAppointmentStatus(ctx, "ghost", "Cancelado", clock.Now()); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound for a missing appointment, got %v", err)
		}
	})
}
