package scheduler

import (
	"fmt"
	"testing"
	"time"

	"github.com/example/physio-agenda/internal/calendar"
)

var monday = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

func TestDetectSlotConflicts(t *testing.T) {
	t.Run("private candidate on an occupied slot produces conflict", func(t *testing.T) {
		existing := []Booking{{ID: "a1", Date: monday, Time: "09:00", Category: calendar.CategoryPrivate}}
		candidates := []Booking{{Date: monday, Time: "09:00", Category: calendar.CategoryPrivate}}

		conflicts := DetectSlotConflicts(existing, candidates, 0)
		if len(conflicts) != 1 || conflicts[0].Type != ConflictTypePrivate {
			t.Fatalf("expected one private conflict, got %+v", conflicts)
		}
		if len(conflicts[0].WithBookings) != 1 || conflicts[0].WithBookings[0] != "a1" {
			t.Fatalf("expected conflict to reference a1, got %v", conflicts[0].WithBookings)
		}
	})

	t.Run("clinic candidate on a full clinic slot produces conflict", func(t *testing.T) {
		existing := make([]Booking, 0, 4)
		for i := 0; i < 4; i++ {
			existing = append(existing, Booking{ID: fmt.Sprintf("c%d", i), Date: monday, Time: "10:00", Category: calendar.CategoryClinic})
		}
		candidates := []Booking{{Date: monday, Time: "10:00", Category: calendar.CategoryClinic}}

		conflicts := DetectSlotConflicts(existing, candidates, DefaultClinicCapacity)
		if len(conflicts) != 1 || conflicts[0].Type != ConflictTypeSlotFull {
			t.Fatalf("expected slot_full conflict, got %+v", conflicts)
		}
	})

	t.Run("clinic slot with spare capacity accepts candidates", func(t *testing.T) {
		existing := []Booking{
			{ID: "c1", Date: monday, Time: "10:00", Category: calendar.CategoryClinic},
			{ID: "c2", Date: monday, Time: "10:00", Category: calendar.CategoryClinic},
		}
		candidates := []Booking{
			{Date: monday, Time: "10:00", Category: calendar.CategoryClinic},
			{Date: monday, Time: "10:00", Category: calendar.CategoryClinic},
			{Date: monday, Time: "10:00", Category: calendar.CategoryClinic},
		}

		conflicts := DetectSlotConflicts(existing, candidates, 4)
		if len(conflicts) != 1 || conflicts[0].Type != ConflictTypeSlotFull {
			t.Fatalf("expected only the fifth booking to conflict, got %+v", conflicts)
		}
	})

	t.Run("non-overlapping slots yield no conflicts", func(t *testing.T) {
		existing := []Booking{{ID: "a1", Date: monday, Time: "09:00", Category: calendar.CategoryPrivate}}
		candidates := []Booking{
			{Date: monday, Time: "10:00", Category: calendar.CategoryPrivate},
			{Date: monday.AddDate(0, 0, 1), Time: "09:00", Category: calendar.CategoryPrivate},
		}

		if conflicts := DetectSlotConflicts(existing, candidates, 4); len(conflicts) != 0 {
			t.Fatalf("expected no conflicts, got %+v", conflicts)
		}
	})
}
