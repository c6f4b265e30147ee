// Package calendar buckets clinic appointments into week and month agenda grids.
//
// Bucketing is pure: grids are derived from the supplied appointment list on
// every call and the input slice is never modified. Records whose date (or,
// for the week view, time) cannot be normalised are excluded from all cells
// and reported through the grid's Skipped list instead of aborting the pass.
package calendar

import (
	"sort"
	"strings"
	"time"
)

// Category distinguishes shared clinic slots from exclusive private slots.
type Category string

const (
	// CategoryPrivate marks an appointment that owns its slot.
	CategoryPrivate Category = "private"
	// CategoryClinic marks a group appointment sharing a room with up to three others.
	CategoryClinic Category = "clinic"
)

// ParseCategory accepts the English and Portuguese spellings used by the clinic API.
func ParseCategory(value string) (Category, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "private", "particular":
		return CategoryPrivate, true
	case "clinic", "clinica", "clínica":
		return CategoryClinic, true
	}
	return "", false
}

// Appointment is the read-only appointment record returned by the range fetch.
type Appointment struct {
	ID            string
	PatientID     string
	PatientName   string
	Date          *string
	ScheduledTime *string
	Type          string
	Status        string
	Category      Category
	Color         string
	Room          *string
	HealthPlanID  *int64
}

// Aggregator holds the operating-hour configuration of the week grid. The zero
// value renders the default hours.
type Aggregator struct {
	FirstHour int
	LastHour  int
}

const (
	// DefaultFirstHour is the first hour row of the week grid.
	DefaultFirstHour = 8
	// DefaultLastHour is the last hour row of the week grid.
	DefaultLastHour = 22
)

// DefaultAggregator renders 08:00 through 22:00 on the hour.
var DefaultAggregator = Aggregator{FirstHour: DefaultFirstHour, LastHour: DefaultLastHour}

// NewAggregator returns an aggregator for the given operating hours, falling back
// to the defaults when the range is unset (0, 0) or not a valid 0..23 interval.
func NewAggregator(firstHour, lastHour int) Aggregator {
	if firstHour == 0 && lastHour == 0 {
		return DefaultAggregator
	}
	if firstHour < 0 || lastHour > 23 || firstHour > lastHour {
		return DefaultAggregator
	}
	return Aggregator{FirstHour: firstHour, LastHour: lastHour}
}

// Hours enumerates the hour rows as "HH:MM".
func (a Aggregator) Hours() []string {
	a = NewAggregator(a.FirstHour, a.LastHour)
	hours := make([]string, 0, a.LastHour-a.FirstHour+1)
	for h := a.FirstHour; h <= a.LastHour; h++ {
		hours = append(hours, time.Date(0, 1, 1, h, 0, 0, 0, time.UTC).Format(TimeLayout))
	}
	return hours
}

// BucketWeek buckets appointments with the default operating hours.
func BucketWeek(weekStart time.Time, appointments []Appointment) WeekGrid {
	return DefaultAggregator.BucketWeek(weekStart, appointments)
}

// BucketMonth buckets appointments into the 42-cell grid of monthAnchor's month.
func BucketMonth(monthAnchor time.Time, appointments []Appointment) MonthGrid {
	return DefaultAggregator.BucketMonth(monthAnchor, appointments)
}

type entry struct {
	appointment Appointment
	date        time.Time
	clock       string
	hasClock    bool
}

// normalize resolves the date and clock of a record. A present but unparsable
// time is treated the same as an invalid date.
func normalize(appointment Appointment) (entry, bool) {
	if appointment.Date == nil {
		return entry{}, false
	}
	date, ok := ParseDate(*appointment.Date)
	if !ok {
		return entry{}, false
	}
	e := entry{appointment: appointment, date: date}
	if appointment.ScheduledTime != nil && strings.TrimSpace(*appointment.ScheduledTime) != "" {
		clock, ok := NormalizeTime(*appointment.ScheduledTime)
		if !ok {
			return entry{}, false
		}
		e.clock = clock
		e.hasClock = true
	}
	return e, true
}

func sortEntries(entries []entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.hasClock != b.hasClock {
			return a.hasClock
		}
		if a.clock != b.clock {
			return a.clock < b.clock
		}
		return a.appointment.ID < b.appointment.ID
	})
}

func appointmentsOf(entries []entry) []Appointment {
	if len(entries) == 0 {
		return nil
	}
	out := make([]Appointment, len(entries))
	for i, e := range entries {
		out[i] = e.appointment
	}
	return out
}
