package persistence

import "time"

// Appointment is a stored appointment row. Date and Time keep the stored text
// so that the agenda applies the same normalisation as for remote records.
type Appointment struct {
	ID           string
	PackageID    *string
	PatientID    string
	PatientName  string
	Date         string
	Time         string
	Type         string
	Status       string
	Category     string
	Color        string
	Room         *string
	HealthPlanID *int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PackageSlot is a weekly slot stored with its session package.
type PackageSlot struct {
	Weekday time.Weekday `json:"weekday"`
	Time    string       `json:"time"`
}

// SessionPackage is a bundle of appointments generated from a weekly plan.
type SessionPackage struct {
	ID           string
	PatientID    string
	PatientName  string
	Type         string
	Category     string
	Room         *string
	HealthPlanID *int64
	StartDate    time.Time
	TargetCount  int
	Slots        []PackageSlot
	CreatedAt    time.Time
}
