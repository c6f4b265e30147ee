package testfixtures

import (
	"fmt"
	"sync"
	"time"

	"github.com/example/physio-agenda/internal/calendar"
)

// Clock is a manually driven time source. Agenda and package services read
// "today" from it, so tests move it by whole days or minutes.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts the clock at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{now: start}
}

// NewClockAt starts the clock at a naive clinic date and time ("2024-03-04", "09:00") in UTC.
func NewClockAt(date, clock string) (*Clock, error) {
	start, err := time.Parse(calendar.DateLayout+" "+calendar.TimeLayout, date+" "+clock)
	if err != nil {
		return nil, fmt.Errorf("testfixtures: clock start %q %q: %w", date, clock, err)
	}
	return &Clock{now: start}, nil
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// NowFunc returns time.Now for a nil clock.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Today is the clock's current date in DateLayout.
func (c *Clock) Today() string {
	return calendar.DateKey(c.Now())
}

// Advance moves the clock forward by d and returns the new instant.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// AdvanceDays moves the clock by whole calendar days, keeping the wall time.
func (c *Clock) AdvanceDays(days int) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.AddDate(0, 0, days)
	return c.now
}
