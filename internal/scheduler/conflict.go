package scheduler

import (
	"sort"
	"time"

	"github.com/example/physio-agenda/internal/calendar"
)

// DefaultClinicCapacity is the number of clinic patients one slot can hold.
const DefaultClinicCapacity = calendar.ClinicGridCapacity

// Booking is a slot occupation reduced to what conflict detection needs.
type Booking struct {
	ID       string
	Date     time.Time
	Time     string
	Category calendar.Category
}

// ConflictType describes the type of conflict detected for a candidate slot.
type ConflictType string

const (
	// ConflictTypeSlotFull indicates a clinic slot already holds its capacity.
	ConflictTypeSlotFull ConflictType = "slot_full"
	// ConflictTypePrivate indicates a private candidate lands on an occupied slot,
	// or any candidate lands on a slot held by a private appointment.
	ConflictTypePrivate ConflictType = "private_conflict"
)

// Conflict details a candidate slot that collides with existing bookings.
type Conflict struct {
	Date         time.Time
	Time         string
	Type         ConflictType
	WithBookings []string
}

type slotKey struct {
	date string
	time string
}

// DetectSlotConflicts checks each candidate against the existing bookings of its
// (date, time) slot. Candidates are evaluated in order and count towards the
// capacity seen by later candidates of the same slot.
func DetectSlotConflicts(existing, candidates []Booking, clinicCapacity int) []Conflict {
	if len(candidates) == 0 {
		return nil
	}
	if clinicCapacity <= 0 {
		clinicCapacity = DefaultClinicCapacity
	}

	occupied := make(map[slotKey][]Booking, len(existing))
	for _, booking := range existing {
		key := keyOf(booking)
		occupied[key] = append(occupied[key], booking)
	}

	var conflicts []Conflict
	for _, candidate := range candidates {
		key := keyOf(candidate)
		current := occupied[key]

		if conflictType, ok := evaluate(candidate, current, clinicCapacity); ok {
			conflicts = append(conflicts, Conflict{
				Date:         calendar.DateOf(candidate.Date),
				Time:         candidate.Time,
				Type:         conflictType,
				WithBookings: bookingIDs(current),
			})
		}
		occupied[key] = append(current, candidate)
	}

	return conflicts
}

func evaluate(candidate Booking, current []Booking, capacity int) (ConflictType, bool) {
	if len(current) == 0 {
		return "", false
	}
	clinic := 0
	for _, booking := range current {
		if booking.Category != calendar.CategoryClinic {
			return ConflictTypePrivate, true
		}
		clinic++
	}
	if candidate.Category != calendar.CategoryClinic {
		return ConflictTypePrivate, true
	}
	if clinic >= capacity {
		return ConflictTypeSlotFull, true
	}
	return "", false
}

func keyOf(booking Booking) slotKey {
	return slotKey{date: calendar.DateKey(calendar.DateOf(booking.Date)), time: booking.Time}
}

func bookingIDs(bookings []Booking) []string {
	ids := make([]string, 0, len(bookings))
	for _, booking := range bookings {
		if booking.ID != "" {
			ids = append(ids, booking.ID)
		}
	}
	sort.Strings(ids)
	return ids
}
