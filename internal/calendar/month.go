package calendar

import "time"

const (
	// MonthGridCells is the fixed 6x7 size of the month grid.
	MonthGridCells = 42
	// MonthCellDisplayCap is the number of appointments listed per day before "+N more".
	MonthCellDisplayCap = 3
)

// MonthCell is one day of the month grid.
type MonthCell struct {
	Date         time.Time
	CurrentMonth bool
	Appointments []Appointment
}

// Count reports every appointment on the day.
func (c MonthCell) Count() int {
	return len(c.Appointments)
}

// Visible returns at most MonthCellDisplayCap appointments.
func (c MonthCell) Visible() []Appointment {
	n := min(len(c.Appointments), MonthCellDisplayCap)
	return c.Appointments[:n:n]
}

// More is the "+N more" count hidden by the display cap.
func (c MonthCell) More() int {
	return len(c.Appointments) - len(c.Visible())
}

// MonthGrid is a Monday-first 42-cell matrix covering one month plus padding.
type MonthGrid struct {
	Month   time.Time
	Cells   []MonthCell
	Skipped []Appointment
}

// PaddingBefore counts leading cells from the previous month.
func (g MonthGrid) PaddingBefore() int {
	n := 0
	for _, cell := range g.Cells {
		if cell.CurrentMonth {
			break
		}
		n++
	}
	return n
}

// PaddingAfter counts trailing cells from the next month.
func (g MonthGrid) PaddingAfter() int {
	n := 0
	for i := len(g.Cells) - 1; i >= 0; i-- {
		if g.Cells[i].CurrentMonth {
			break
		}
		n++
	}
	return n
}

// Cell returns the cell for a calendar date if the grid shows it.
func (g MonthGrid) Cell(date time.Time) (MonthCell, bool) {
	key := DateKey(DateOf(date))
	for _, cell := range g.Cells {
		if DateKey(cell.Date) == key {
			return cell, true
		}
	}
	return MonthCell{}, false
}

// BucketMonth places appointments into the grid of monthAnchor's month.
// Padding cells receive appointments for their dates as well.
func (a Aggregator) BucketMonth(monthAnchor time.Time, appointments []Appointment) MonthGrid {
	month := StartOfMonth(monthAnchor)
	start, _ := MonthGridRange(month)

	grid := MonthGrid{
		Month: month,
		Cells: make([]MonthCell, MonthGridCells),
	}

	index := make(map[string]int, MonthGridCells)
	buckets := make([][]entry, MonthGridCells)
	for i := 0; i < MonthGridCells; i++ {
		day := start.AddDate(0, 0, i)
		grid.Cells[i] = MonthCell{Date: day, CurrentMonth: day.Month() == month.Month()}
		index[DateKey(day)] = i
	}

	for _, appointment := range appointments {
		e, ok := normalize(appointment)
		if !ok {
			grid.Skipped = append(grid.Skipped, appointment)
			continue
		}
		if i, shown := index[DateKey(e.date)]; shown {
			buckets[i] = append(buckets[i], e)
		}
	}

	for i := range grid.Cells {
		sortEntries(buckets[i])
		grid.Cells[i].Appointments = appointmentsOf(buckets[i])
	}

	return grid
}
