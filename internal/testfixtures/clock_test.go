package testfixtures

import (
	"testing"
	"time"
)

func TestClockDefaultsToReferenceMonday(t *testing.T) {
	t.Parallel()

	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected ReferenceTime, got %v", clock.Now())
	}
	if clock.Now().Weekday() != time.Monday {
		t.Fatalf("expected a Monday, got %v", clock.Now().Weekday())
	}
	if got := clock.Today(); got != "2024-03-04" {
		t.Fatalf("expected 2024-03-04, got %q", got)
	}
}

func TestClockAt(t *testing.T) {
	t.Parallel()

	clock, err := NewClockAt("2024-02-29", "18:30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2024, time.February, 29, 18, 30, 0, 0, time.UTC)
	if !clock.Now().Equal(want) {
		t.Fatalf("expected %v, got %v", want, clock.Now())
	}

	if _, err := NewClockAt("2024-02-30", "18:30"); err == nil {
		t.Fatalf("expected an error for an impossible date")
	}
}

func TestClockAdvance(t *testing.T) {
	t.Parallel()

	clock := NewClock(time.Date(2024, time.March, 8, 21, 0, 0, 0, time.UTC))
	nowFn := clock.NowFunc()

	if got := clock.Advance(90 * time.Minute); !got.Equal(time.Date(2024, time.March, 8, 22, 30, 0, 0, time.UTC)) {
		t.Fatalf("advance returned %v", got)
	}
	if clock.Today() != "2024-03-08" {
		t.Fatalf("expected same day after 90 minutes, got %s", clock.Today())
	}

	clock.AdvanceDays(3)
	if got := nowFn(); got.Format("2006-01-02 15:04") != "2024-03-11 22:30" {
		t.Fatalf("expected NowFunc to follow the clock, got %v", got)
	}
}

func TestNilClockFallsBackToWallClock(t *testing.T) {
	t.Parallel()

	var clock *Clock
	before := time.Now()
	if got := clock.NowFunc()(); got.Before(before) {
		t.Fatalf("expected wall clock time, got %v", got)
	}
}
