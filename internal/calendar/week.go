package calendar

import "time"

// ClinicGridCapacity is the number of clinic appointments laid out in one week cell.
const ClinicGridCapacity = 4

// Layout selects how a week cell arranges its appointments.
type Layout int

const (
	// LayoutEmpty marks a cell without appointments.
	LayoutEmpty Layout = iota
	// LayoutStack stacks appointments vertically without a cap.
	LayoutStack
	// LayoutClinicGrid places up to four appointments in a fixed 2x2 arrangement.
	LayoutClinicGrid
)

// String returns the wire name of the layout.
func (l Layout) String() string {
	switch l {
	case LayoutStack:
		return "stack"
	case LayoutClinicGrid:
		return "clinic_grid"
	default:
		return "empty"
	}
}

// WeekCell is one (day, hour) slot of the week grid.
type WeekCell struct {
	Date         time.Time
	Hour         string
	Layout       Layout
	Appointments []Appointment
}

// Count reports every appointment matched to the cell, including overflow.
func (c WeekCell) Count() int {
	return len(c.Appointments)
}

// Visible returns the appointments that fit the cell layout. The result has its
// capacity capped, so appending to it never writes over the overflow.
func (c WeekCell) Visible() []Appointment {
	n := len(c.Appointments)
	if c.Layout == LayoutClinicGrid && n > ClinicGridCapacity {
		n = ClinicGridCapacity
	}
	return c.Appointments[:n:n]
}

// Overflow reports how many appointments were left out of the layout.
func (c WeekCell) Overflow() int {
	return len(c.Appointments) - len(c.Visible())
}

// Position returns the 2x2 row and column of the i-th visible clinic appointment.
func (c WeekCell) Position(i int) (row, col int, ok bool) {
	if c.Layout != LayoutClinicGrid || i < 0 || i >= len(c.Visible()) {
		return 0, 0, false
	}
	return i / 2, i % 2, true
}

// PrivateCollision reports more than one private appointment sharing the slot.
// The cell still renders all of them stacked; callers surface it as a data anomaly.
func (c WeekCell) PrivateCollision() bool {
	private := 0
	for _, appointment := range c.Appointments {
		if appointment.Category == CategoryPrivate {
			private++
		}
	}
	return private > 1
}

// WeekGrid holds seven day columns of hour cells starting on Monday.
type WeekGrid struct {
	Start time.Time
	Days  []time.Time
	Hours []string
	// Cells is indexed [day][hour].
	Cells [][]WeekCell
	// Unplaced holds well-formed appointments whose time is not an hour row.
	Unplaced []Appointment
	// Skipped holds malformed records excluded from every cell.
	Skipped []Appointment
}

// Cell returns the cell for the given day index (0 = Monday) and hour row.
func (g WeekGrid) Cell(day int, hour string) (WeekCell, bool) {
	if day < 0 || day >= len(g.Cells) {
		return WeekCell{}, false
	}
	for _, cell := range g.Cells[day] {
		if cell.Hour == hour {
			return cell, true
		}
	}
	return WeekCell{}, false
}

// Total counts the appointments placed in cells.
func (g WeekGrid) Total() int {
	total := 0
	for _, column := range g.Cells {
		for _, cell := range column {
			total += cell.Count()
		}
	}
	return total
}

// BucketWeek places appointments into the week containing weekStart.
func (a Aggregator) BucketWeek(weekStart time.Time, appointments []Appointment) WeekGrid {
	start := StartOfWeek(weekStart)
	hours := a.Hours()

	grid := WeekGrid{
		Start: start,
		Days:  make([]time.Time, 7),
		Hours: hours,
		Cells: make([][]WeekCell, 7),
	}

	dayIndex := make(map[string]int, 7)
	for d := 0; d < 7; d++ {
		day := start.AddDate(0, 0, d)
		grid.Days[d] = day
		dayIndex[DateKey(day)] = d
	}
	hourIndex := make(map[string]int, len(hours))
	for i, hour := range hours {
		hourIndex[hour] = i
	}

	buckets := make([][][]entry, 7)
	for d := range buckets {
		buckets[d] = make([][]entry, len(hours))
	}

	for _, appointment := range appointments {
		e, ok := normalize(appointment)
		if !ok || !e.hasClock {
			grid.Skipped = append(grid.Skipped, appointment)
			continue
		}
		d, inWeek := dayIndex[DateKey(e.date)]
		if !inWeek {
			continue
		}
		h, onRow := hourIndex[e.clock]
		if !onRow {
			grid.Unplaced = append(grid.Unplaced, appointment)
			continue
		}
		buckets[d][h] = append(buckets[d][h], e)
	}

	for d := 0; d < 7; d++ {
		column := make([]WeekCell, len(hours))
		for h, hour := range hours {
			entries := buckets[d][h]
			sortEntries(entries)
			column[h] = WeekCell{
				Date:         grid.Days[d],
				Hour:         hour,
				Layout:       layoutFor(entries),
				Appointments: appointmentsOf(entries),
			}
		}
		grid.Cells[d] = column
	}

	return grid
}

func layoutFor(entries []entry) Layout {
	if len(entries) == 0 {
		return LayoutEmpty
	}
	for _, e := range entries {
		if e.appointment.Category == CategoryClinic {
			return LayoutClinicGrid
		}
	}
	return LayoutStack
}
