package application

import (
	"testing"
	"time"
)

func TestViewTrackerLastIssuedWins(t *testing.T) {
	tracker := newViewTracker(time.Minute, 4, nil)

	first := tracker.Issue("key")
	second := tracker.Issue("key")

	if !tracker.Publish("key", second, "second") {
		t.Fatalf("expected newest ticket to publish")
	}
	if tracker.Publish("key", first, "first") {
		t.Fatalf("expected stale ticket to be discarded")
	}

	view, ok := tracker.Latest("key")
	if !ok || view != "second" {
		t.Fatalf("expected latest view to remain %q, got %v (ok=%v)", "second", view, ok)
	}
}

func TestViewTrackerOlderTicketDiscardedEvenWhenFirstToFinish(t *testing.T) {
	tracker := newViewTracker(time.Minute, 4, nil)

	first := tracker.Issue("key")
	second := tracker.Issue("key")

	if tracker.Publish("key", first, "first") {
		t.Fatalf("expected superseded ticket to be discarded")
	}
	if _, ok := tracker.Latest("key"); ok {
		t.Fatalf("expected nothing published yet")
	}
	if !tracker.Publish("key", second, "second") {
		t.Fatalf("expected newest ticket to publish")
	}
}

func TestViewTrackerKeysAreIndependent(t *testing.T) {
	tracker := newViewTracker(time.Minute, 4, nil)

	week := tracker.Issue("week")
	month := tracker.Issue("month")
	tracker.Issue("week")

	if !tracker.Publish("month", month, "month") {
		t.Fatalf("expected month ticket to be unaffected by week refreshes")
	}
	if tracker.Publish("week", week, "week") {
		t.Fatalf("expected superseded week ticket to be discarded")
	}
}

func TestViewTrackerExpiresPublishedViews(t *testing.T) {
	current := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	tracker := newViewTracker(time.Second, 4, func() time.Time { return current })

	ticket := tracker.Issue("key")
	tracker.Publish("key", ticket, "view")
	if _, ok := tracker.Latest("key"); !ok {
		t.Fatalf("expected view before expiry")
	}

	current = current.Add(2 * time.Second)
	if _, ok := tracker.Latest("key"); ok {
		t.Fatalf("expected view to expire")
	}
}

func TestViewTrackerEvictionKeepsInFlightEntries(t *testing.T) {
	tracker := newViewTracker(time.Minute, 2, nil)

	inFlight := tracker.Issue("busy")
	idle := tracker.Issue("idle")
	tracker.Publish("idle", idle, "idle")

	tracker.Issue("new")

	if !tracker.Publish("busy", inFlight, "busy") {
		t.Fatalf("expected in-flight entry to survive eviction")
	}
	if _, ok := tracker.Latest("idle"); ok {
		t.Fatalf("expected idle entry to be evicted")
	}
}
