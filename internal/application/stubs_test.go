package application_test

import (
	"context"
	"sync"
	"time"

	"github.com/example/physio-agenda/internal/application"
	"github.com/example/physio-agenda/internal/calendar"
	"github.com/example/physio-agenda/internal/testfixtures"
)

type packageStoreStub struct {
	mu        sync.Mutex
	existing  []calendar.Appointment
	listErr   error
	createErr error
	getErr    error
	created   application.SessionPackage
	stored    application.SessionPackage
	ranges    [][2]time.Time
}

func (s *packageStoreStub) ListAppointments(ctx context.Context, principal application.Principal, from, to time.Time) ([]calendar.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ranges = append(s.ranges, [2]time.Time{from, to})
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]calendar.Appointment, len(s.existing))
	copy(out, s.existing)
	return out, nil
}

func (s *packageStoreStub) CreateSessionPackage(ctx context.Context, principal application.Principal, pkg application.SessionPackage) (application.SessionPackage, error) {
	if s.createErr != nil {
		return application.SessionPackage{}, s.createErr
	}
	s.created = pkg
	return pkg, nil
}

func (s *packageStoreStub) GetSessionPackage(ctx context.Context, principal application.Principal, id string) (application.SessionPackage, error) {
	if s.getErr != nil {
		return application.SessionPackage{}, s.getErr
	}
	if s.stored.ID != id {
		return application.SessionPackage{}, application.ErrNotFound
	}
	return s.stored, nil
}

type appointmentStoreStub struct {
	appointment application.Appointment
	getErr      error
	updateErr   error
	statuses    []string
	moved       [2]string
}

func (s *appointmentStoreStub) GetAppointment(ctx context.Context, principal application.Principal, id string) (application.Appointment, error) {
	if s.getErr != nil {
		return application.Appointment{}, s.getErr
	}
	if s.appointment.ID != id {
		return application.Appointment{}, application.ErrNotFound
	}
	return s.appointment, nil
}

func (s *appointmentStoreStub) UpdateAppointmentStatus(ctx context.Context, principal application.Principal, id, status string, at time.Time) (application.Appointment, error) {
	if s.updateErr != nil {
		return application.Appointment{}, s.updateErr
	}
	s.statuses = append(s.statuses, status)
	updated := s.appointment
	updated.Status = status
	return updated, nil
}

func (s *appointmentStoreStub) RescheduleAppointment(ctx context.Context, principal application.Principal, id, date, clock string, at time.Time) (application.Appointment, error) {
	if s.updateErr != nil {
		return application.Appointment{}, s.updateErr
	}
	s.moved = [2]string{date, clock}
	updated := s.appointment
	updated.Date = date
	updated.Time = clock
	return updated, nil
}

// booked is an existing appointment as returned by the range fetch.
func booked(id, date, clock string, category calendar.Category) calendar.Appointment {
	return testfixtures.NewAppointmentFixture(
		testfixtures.WithAppointmentID(id),
		testfixtures.WithAppointmentSlot(date, clock),
		testfixtures.WithAppointmentCategory(category),
	).Calendar()
}

func strPtr(value string) *string {
	return &value
}
