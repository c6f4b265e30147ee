package application

import (
	"time"

	"github.com/example/physio-agenda/internal/calendar"
	"github.com/example/physio-agenda/internal/recurrence"
)

// Appointment statuses.
const (
	StatusPending   = recurrence.StatusPending
	StatusExecuted  = "Realizado"
	StatusCancelled = "Cancelado"
)

// Principal represents the authenticated caller. Token is forwarded to the
// upstream clinic API when one is configured.
type Principal struct {
	UserID string
	Token  string
}

// Appointment is a single scheduled treatment session.
type Appointment struct {
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
}

// SessionPackage is a bundle of appointments generated from a weekly plan.
type SessionPackage struct {
	ID           string
	PatientID    string
	PatientName  string
	Type         string
	Category     calendar.Category
	Color        string
	Room         *string
	HealthPlanID *int64
	StartDate    time.Time
	TargetCount  int
	Slots        []recurrence.WeeklySlot
	CreatedAt    time.Time
	Appointments []Appointment
}

// SlotInput is a caller supplied weekly slot.
type SlotInput struct {
	Weekday string
	Time    string
}

// PackageInput captures caller provided session package fields.
type PackageInput struct {
	PatientID    string
	PatientName  string
	Type         string
	Category     string
	Color        string
	Room         *string
	HealthPlanID *int64
	StartDate    string
	TargetCount  int
	Slots        []SlotInput
}

// CreatePackageParams wraps the data required to preview or create a session package.
type CreatePackageParams struct {
	Principal Principal
	Input     PackageInput
}

// PackagePreview is the unsaved outcome of expanding a package plan.
type PackagePreview struct {
	Requested    int
	Appointments []Appointment
	Shortfall    int
}

// Warning types surfaced alongside package previews and creations.
const (
	WarningShortSchedule   = "short_schedule"
	WarningSlotFull        = "slot_full"
	WarningPrivateConflict = "private_conflict"
)

// Warning describes a non-fatal issue the caller should confirm.
type Warning struct {
	Type           string
	Date           string
	Time           string
	AppointmentIDs []string
	Missing        int
}

// WeekParams selects the week containing Date.
type WeekParams struct {
	Principal Principal
	Date      time.Time
}

// MonthParams selects the month containing Month.
type MonthParams struct {
	Principal Principal
	Month     time.Time
}

// WeekView is a rendered week grid.
type WeekView struct {
	Grid calendar.WeekGrid
}

// MonthView is a rendered month grid.
type MonthView struct {
	Grid calendar.MonthGrid
}

// TransitionParams identifies the appointment a status change applies to.
type TransitionParams struct {
	Principal     Principal
	AppointmentID string
}

// RescheduleParams moves a pending appointment to a new slot.
type RescheduleParams struct {
	Principal     Principal
	AppointmentID string
	Date          string
	Time          string
}
