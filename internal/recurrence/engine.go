package recurrence

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/example/physio-agenda/internal/calendar"
)

// DefaultMaxWalkDays caps the day walk at two years.
const DefaultMaxWalkDays = 730

// StatusPending is the status carried by every generated appointment.
const StatusPending = "Pendente"

var (
	// ErrInvalidWeekday indicates a slot day that is not a known weekday name.
	ErrInvalidWeekday = errors.New("recurrence: invalid weekday")
	// ErrInvalidTime indicates a slot time that is not HH:MM.
	ErrInvalidTime = errors.New("recurrence: invalid slot time")
)

// WeeklySlot is a weekly (weekday, time) pair at which a treatment recurs.
type WeeklySlot struct {
	Weekday time.Weekday
	Time    string
}

// Plan describes a session package to expand.
type Plan struct {
	StartDate    time.Time
	TargetCount  int
	Slots        []WeeklySlot
	Category     calendar.Category
	Room         *string
	HealthPlanID *int64
}

// GeneratedAppointment is one concrete slot produced by the expansion.
type GeneratedAppointment struct {
	Date         time.Time
	Time         string
	Weekday      time.Weekday
	Category     calendar.Category
	Room         *string
	HealthPlanID *int64
	Status       string
}

// Engine expands recurrence plans into dated appointments.
type Engine struct {
	maxDays int
}

// NewEngine constructs an Engine with the given day-walk ceiling.
// Non-positive values use DefaultMaxWalkDays.
func NewEngine(maxDays int) *Engine {
	if maxDays <= 0 {
		maxDays = DefaultMaxWalkDays
	}
	return &Engine{maxDays: maxDays}
}

var defaultEngine = NewEngine(DefaultMaxWalkDays)

// Expand expands plan with the default two-year ceiling.
func Expand(plan Plan) []GeneratedAppointment {
	return defaultEngine.Expand(plan)
}

// MaxDays reports the configured day-walk ceiling.
func (e *Engine) MaxDays() int {
	if e == nil || e.maxDays <= 0 {
		return DefaultMaxWalkDays
	}
	return e.maxDays
}

// Expand walks forward one day at a time from plan.StartDate (inclusive) and
// emits one appointment per matching slot until TargetCount is reached or the
// day ceiling is hit. A short result is returned as-is; see Shortfall.
//
// Output is ordered by (date, time). Same-day slots fire in (weekday, time)
// order, which keeps duplicates deterministic.
func (e *Engine) Expand(plan Plan) []GeneratedAppointment {
	if plan.TargetCount <= 0 || len(plan.Slots) == 0 {
		return nil
	}

	slots := sortSlots(plan.Slots)
	byDay := make(map[time.Weekday][]WeeklySlot, 7)
	for _, slot := range slots {
		byDay[slot.Weekday] = append(byDay[slot.Weekday], slot)
	}

	out := make([]GeneratedAppointment, 0, plan.TargetCount)
	current := calendar.DateOf(plan.StartDate)

	for walked := 0; walked < e.MaxDays() && len(out) < plan.TargetCount; walked++ {
		for _, slot := range byDay[current.Weekday()] {
			out = append(out, GeneratedAppointment{
				Date:         current,
				Time:         slot.Time,
				Weekday:      slot.Weekday,
				Category:     plan.Category,
				Room:         cloneString(plan.Room),
				HealthPlanID: cloneInt64(plan.HealthPlanID),
				Status:       StatusPending,
			})
			if len(out) == plan.TargetCount {
				break
			}
		}
		current = current.AddDate(0, 0, 1)
	}

	return out
}

// Shortfall reports how many occurrences the ceiling cut off.
func Shortfall(plan Plan, generated []GeneratedAppointment) int {
	if plan.TargetCount <= 0 || len(plan.Slots) == 0 {
		return 0
	}
	if missing := plan.TargetCount - len(generated); missing > 0 {
		return missing
	}
	return 0
}

// ParseSlot validates a (weekday, time) pair supplied by a caller.
func ParseSlot(day, clock string) (WeeklySlot, error) {
	weekday, err := ParseWeekday(day)
	if err != nil {
		return WeeklySlot{}, err
	}
	normalized, ok := calendar.NormalizeTime(clock)
	if !ok || strings.Contains(strings.TrimSpace(clock), "T") {
		return WeeklySlot{}, ErrInvalidTime
	}
	return WeeklySlot{Weekday: weekday, Time: normalized}, nil
}

var weekdayNames = map[string]time.Weekday{
	"mon": time.Monday, "monday": time.Monday, "seg": time.Monday, "segunda": time.Monday, "segunda-feira": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday, "ter": time.Tuesday, "terca": time.Tuesday, "terça": time.Tuesday, "terça-feira": time.Tuesday, "terca-feira": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday, "qua": time.Wednesday, "quarta": time.Wednesday, "quarta-feira": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday, "qui": time.Thursday, "quinta": time.Thursday, "quinta-feira": time.Thursday,
	"fri": time.Friday, "friday": time.Friday, "sex": time.Friday, "sexta": time.Friday, "sexta-feira": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday, "sab": time.Saturday, "sáb": time.Saturday, "sabado": time.Saturday, "sábado": time.Saturday,
	"sun": time.Sunday, "sunday": time.Sunday, "dom": time.Sunday, "domingo": time.Sunday,
}

// ParseWeekday accepts English and Portuguese weekday names and abbreviations.
func ParseWeekday(value string) (time.Weekday, error) {
	day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(value))]
	if !ok {
		return time.Sunday, ErrInvalidWeekday
	}
	return day, nil
}

func sortSlots(slots []WeeklySlot) []WeeklySlot {
	sorted := make([]WeeklySlot, len(slots))
	copy(sorted, slots)
	sort.SliceStable(sorted, func(i, j int) bool {
		di, dj := calendar.MondayIndex(sorted[i].Weekday), calendar.MondayIndex(sorted[j].Weekday)
		if di != dj {
			return di < dj
		}
		return sorted[i].Time < sorted[j].Time
	})
	return sorted
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneInt64(value *int64) *int64 {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
