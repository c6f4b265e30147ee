package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/physio-agenda/internal/application"
	"github.com/example/physio-agenda/internal/calendar"
	"github.com/example/physio-agenda/internal/persistence"
)

var (
	appointmentCounter uint64
	packageCounter     uint64
)

var referenceTime = time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
// It falls on a Monday.
func ReferenceTime() time.Time {
	return referenceTime
}

// -------------------------- Appointment fixtures --------------------------

// AppointmentFixture represents a deterministic appointment record that can be
// materialised for calendar, application or persistence tests.
type AppointmentFixture struct {
	ID           string
	PackageID    string
	PatientID    string
	PatientName  string
	Date         string
	Time         string
	Type         string
	Status       string
	Category     calendar.Category
	Color        string
	Room         *string
	HealthPlanID *int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AppointmentOption configures the generated appointment fixture.
type AppointmentOption func(*AppointmentFixture)

// NewAppointmentFixture returns a pending clinic appointment on the reference
// Monday at 09:00 with optional overrides.
func NewAppointmentFixture(opts ...AppointmentOption) AppointmentFixture {
	idx := atomic.AddUint64(&appointmentCounter, 1)
	room := "Sala 1"
	fixture := AppointmentFixture{
		ID:          fmt.Sprintf("appt-%03d", idx),
		PatientID:   fmt.Sprintf("patient-%03d", idx),
		PatientName: fmt.Sprintf("Paciente %03d", idx),
		Date:        calendar.DateKey(referenceTime),
		Time:        "09:00",
		Type:        "Fisioterapia",
		Status:      application.StatusPending,
		Category:    calendar.CategoryClinic,
		Color:       "#4caf50",
		Room:        &room,
		CreatedAt:   referenceTime,
		UpdatedAt:   referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithAppointmentID overrides the appointment identifier.
func WithAppointmentID(id string) AppointmentOption {
	return func(f *AppointmentFixture) {
		f.ID = id
	}
}

// WithAppointmentSlot overrides the date and time.
func WithAppointmentSlot(date, clock string) AppointmentOption {
	return func(f *AppointmentFixture) {
		f.Date = date
		f.Time = clock
	}
}

// WithAppointmentCategory overrides the category.
func WithAppointmentCategory(category calendar.Category) AppointmentOption {
	return func(f *AppointmentFixture) {
		f.Category = category
	}
}

// WithAppointmentStatus overrides the status.
func WithAppointmentStatus(status string) AppointmentOption {
	return func(f *AppointmentFixture) {
		f.Status = status
	}
}

// WithAppointmentPackage links the appointment to a session package.
func WithAppointmentPackage(packageID string) AppointmentOption {
	return func(f *AppointmentFixture) {
		f.PackageID = packageID
	}
}

// WithAppointmentPatient overrides the patient.
func WithAppointmentPatient(id, name string) AppointmentOption {
	return func(f *AppointmentFixture) {
		f.PatientID = id
		f.PatientName = name
	}
}

// Calendar returns the fixture in the read-contract shape consumed by the aggregator.
func (f AppointmentFixture) Calendar() calendar.Appointment {
	date := f.Date
	clock := f.Time
	return calendar.Appointment{
		ID:            f.ID,
		PatientID:     f.PatientID,
		PatientName:   f.PatientName,
		Date:          &date,
		ScheduledTime: &clock,
		Type:          f.Type,
		Status:        f.Status,
		Category:      f.Category,
		Color:         f.Color,
		Room:          copyStringPtr(f.Room),
		HealthPlanID:  copyInt64Ptr(f.HealthPlanID),
	}
}

// Application returns the fixture as an application.Appointment value.
func (f AppointmentFixture) Application() application.Appointment {
	return application.Appointment{
		ID:           f.ID,
		PackageID:    f.PackageID,
		PatientID:    f.PatientID,
		PatientName:  f.PatientName,
		Date:         f.Date,
		Time:         f.Time,
		Type:         f.Type,
		Status:       f.Status,
		Category:     f.Category,
		Color:        f.Color,
		Room:         copyStringPtr(f.Room),
		HealthPlanID: copyInt64Ptr(f.HealthPlanID),
	}
}

// Persistence returns the fixture as a persistence.Appointment value.
func (f AppointmentFixture) Persistence() persistence.Appointment {
	var packageID *string
	if f.PackageID != "" {
		id := f.PackageID
		packageID = &id
	}
	return persistence.Appointment{
		ID:           f.ID,
		PackageID:    packageID,
		PatientID:    f.PatientID,
		PatientName:  f.PatientName,
		Date:         f.Date,
		Time:         f.Time,
		Type:         f.Type,
		Status:       f.Status,
		Category:     string(f.Category),
		Color:        f.Color,
		Room:         copyStringPtr(f.Room),
		HealthPlanID: copyInt64Ptr(f.HealthPlanID),
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// ---------------------------- Package fixtures ----------------------------

// PackageOption configures the generated package input.
type PackageOption func(*application.PackageInput)

// NewPackageInput returns a ten-session clinic package on Monday and Wednesday
// mornings starting on the reference Monday.
func NewPackageInput(opts ...PackageOption) application.PackageInput {
	idx := atomic.AddUint64(&packageCounter, 1)
	room := "Sala 1"
	input := application.PackageInput{
		PatientID:   fmt.Sprintf("patient-pkg-%03d", idx),
		PatientName: fmt.Sprintf("Paciente Pacote %03d", idx),
		Type:        "Pilates",
		Category:    string(calendar.CategoryClinic),
		Room:        &room,
		StartDate:   calendar.DateKey(referenceTime),
		TargetCount: 10,
		Slots: []application.SlotInput{
			{Weekday: "monday", Time: "09:00"},
			{Weekday: "wednesday", Time: "14:00"},
		},
	}
	for _, opt := range opts {
		opt(&input)
	}
	return input
}

// WithPackageTarget overrides the number of sessions.
func WithPackageTarget(count int) PackageOption {
	return func(in *application.PackageInput) {
		in.TargetCount = count
	}
}

// WithPackageSlots replaces the weekly slots.
func WithPackageSlots(slots ...application.SlotInput) PackageOption {
	return func(in *application.PackageInput) {
		in.Slots = slots
	}
}

// WithPackageStart overrides the start date.
func WithPackageStart(date string) PackageOption {
	return func(in *application.PackageInput) {
		in.StartDate = date
	}
}

// WithPrivatePackage switches the package to the private category without a room.
func WithPrivatePackage() PackageOption {
	return func(in *application.PackageInput) {
		in.Category = string(calendar.CategoryPrivate)
		in.Room = nil
	}
}

func copyStringPtr(src *string) *string {
	if src == nil {
		return nil
	}
	v := *src
	return &v
}

func copyInt64Ptr(src *int64) *int64 {
	if src == nil {
		return nil
	}
	v := *src
	return &v
}
