package persistence

import (
	"context"
	"time"
)

// AppointmentRepository stores appointments and the session packages that generated them.
type AppointmentRepository interface {
	ListAppointments(ctx context.Context, from, to time.Time) ([]Appointment, error)
	GetAppointment(ctx context.Context, id string) (Appointment, error)
	CreateSessionPackage(ctx context.Context, pkg SessionPackage, appointments []Appointment) error
	GetSessionPackage(ctx context.Context, id string) (SessionPackage, error)
	ListPackageAppointments(ctx context.Context, packageID string) ([]Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id, status string, updatedAt time.Time) error
	RescheduleAppointment(ctx context.Context, id, date, clock string, updatedAt time.Time) error
}
