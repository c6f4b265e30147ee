// Package icalexport renders session packages as iCalendar feeds.
package icalexport

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/example/physio-agenda/internal/application"
	"github.com/example/physio-agenda/internal/calendar"
)

const (
	// DefaultDuration is the length of a treatment session.
	DefaultDuration = 50 * time.Minute
	// DefaultProductID identifies the generator in PRODID.
	DefaultProductID = "-//physio-agenda//session packages//PT-BR"
)

// ErrEmptyPackage is returned when a package has no exportable appointment.
var ErrEmptyPackage = errors.New("icalexport: package has no appointments")

// Options tunes the generated events.
type Options struct {
	Location  *time.Location
	Duration  time.Duration
	ProductID string
	Stamp     time.Time
}

func (o Options) withDefaults() Options {
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Duration <= 0 {
		o.Duration = DefaultDuration
	}
	if strings.TrimSpace(o.ProductID) == "" {
		o.ProductID = DefaultProductID
	}
	if o.Stamp.IsZero() {
		o.Stamp = time.Now()
	}
	return o
}

// EncodePackage writes pkg as a VCALENDAR with one VEVENT per appointment.
func EncodePackage(w io.Writer, pkg application.SessionPackage, opts Options) error {
	cal, err := PackageCalendar(pkg, opts)
	if err != nil {
		return err
	}
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("icalexport: encode: %w", err)
	}
	return nil
}

// PackageCalendar builds the calendar without encoding it. Wall-clock slots are
// read in opts.Location and written as UTC instants, so no VTIMEZONE is needed.
// Appointments whose date or time cannot be parsed are left out.
func PackageCalendar(pkg application.SessionPackage, opts Options) (*ical.Calendar, error) {
	opts = opts.withDefaults()

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, opts.ProductID)

	total := len(pkg.Appointments)
	for i, appt := range pkg.Appointments {
		start, ok := startOf(appt, opts.Location)
		if !ok {
			continue
		}
		cal.Children = append(cal.Children, toEvent(pkg, appt, start, i+1, total, opts))
	}
	if len(cal.Children) == 0 {
		return nil, ErrEmptyPackage
	}
	return cal, nil
}

func toEvent(pkg application.SessionPackage, appt application.Appointment, start time.Time, seq, total int, opts Options) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, appt.ID)
	ve.Props.SetText(ical.PropSummary, summaryOf(pkg, appt))
	ve.Props.SetDateTime(ical.PropDateTimeStamp, opts.Stamp.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, start.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeEnd, start.Add(opts.Duration).UTC())
	ve.Props.SetText(ical.PropStatus, statusOf(appt.Status))
	ve.Props.SetText(ical.PropDescription, fmt.Sprintf("Pacote %s, sessão %d de %d", pkg.ID, seq, total))

	if room := roomOf(pkg, appt); room != "" {
		ve.Props.SetText(ical.PropLocation, room)
	}
	if category := string(appt.Category); category != "" {
		ve.Props.SetText(ical.PropCategories, category)
	}
	return ve
}

func startOf(appt application.Appointment, loc *time.Location) (time.Time, bool) {
	day, ok := calendar.ParseDate(appt.Date)
	if !ok {
		return time.Time{}, false
	}
	clock, ok := calendar.NormalizeTime(appt.Time)
	if !ok {
		return time.Time{}, false
	}
	parsed, err := time.Parse(calendar.TimeLayout, clock)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(), parsed.Hour(), parsed.Minute(), 0, 0, loc), true
}

func summaryOf(pkg application.SessionPackage, appt application.Appointment) string {
	name := appt.PatientName
	if name == "" {
		name = pkg.PatientName
	}
	kind := appt.Type
	if kind == "" {
		kind = pkg.Type
	}
	switch {
	case name != "" && kind != "":
		return name + " - " + kind
	case name != "":
		return name
	case kind != "":
		return kind
	}
	return "Sessão"
}

func roomOf(pkg application.SessionPackage, appt application.Appointment) string {
	if appt.Room != nil {
		return strings.TrimSpace(*appt.Room)
	}
	if pkg.Room != nil {
		return strings.TrimSpace(*pkg.Room)
	}
	return ""
}

func statusOf(status string) string {
	switch status {
	case application.StatusExecuted:
		return "CONFIRMED"
	case application.StatusCancelled:
		return "CANCELLED"
	}
	return "TENTATIVE"
}
