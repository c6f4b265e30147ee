package application_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/physio-agenda/internal/application"
	"github.com/example/physio-agenda/internal/calendar"
	"github.com/example/physio-agenda/internal/testfixtures"
)

// blockingSource answers the n-th ListAppointments call with results[n] once
// gates[n] is closed.
type blockingSource struct {
	mu      sync.Mutex
	gates   []chan struct{}
	results [][]calendar.Appointment
	next    int
	started chan struct{}
}

func newBlockingSource(results ...[]calendar.Appointment) *blockingSource {
	gates := make([]chan struct{}, len(results))
	for i := range gates {
		gates[i] = make(chan struct{})
	}
	return &blockingSource{gates: gates, results: results, started: make(chan struct{}, len(results))}
}

func (s *blockingSource) ListAppointments(ctx context.Context, principal application.Principal, from, to time.Time) ([]calendar.Appointment, error) {
	s.mu.Lock()
	call := s.next
	s.next++
	s.mu.Unlock()

	s.started <- struct{}{}
	<-s.gates[call]
	return s.results[call], nil
}

type weekResult struct {
	view application.WeekView
	err  error
}

// startWeek runs Week in the background and waits until its fetch is in flight.
func startWeek(svc *application.AgendaService, source *blockingSource, params application.WeekParams) <-chan weekResult {
	done := make(chan weekResult, 1)
	go func() {
		view, err := svc.Week(context.Background(), params)
		done <- weekResult{view: view, err: err}
	}()
	<-source.started
	return done
}

func TestAgendaService_Week(t *testing.T) {
	t.Parallel()

	factory := testfixtures.NewServiceFactory()

	t.Run("fetches monday to sunday and buckets the result", func(t *testing.T) {
		t.Parallel()

		store := &packageStoreStub{existing: []calendar.Appointment{
			booked("a1", "2024-03-06", "10:00", calendar.CategoryClinic),
			booked("a2", "2024-03-06T10:00:00.000Z", "10:00", calendar.CategoryClinic),
			booked("bad", "", "10:00", calendar.CategoryClinic),
		}}
		svc := factory.NewAgendaService(testfixtures.AgendaServiceDeps{Source: store})

		view, err := svc.Week(context.Background(), application.WeekParams{Date: time.Date(2024, 3, 7, 15, 0, 0, 0, time.UTC)})
		if err != nil {
			t.Fatalf("Week returned error: %v", err)
		}
		if len(store.ranges) != 1 {
			t.Fatalf("expected one fetch, got %d", len(store.ranges))
		}
		if calendar.DateKey(store.ranges[0][0]) != "2024-03-04" || calendar.DateKey(store.ranges[0][1]) != "2024-03-10" {
			t.Fatalf("unexpected fetch range %v", store.ranges[0])
		}

		cell, ok := view.Grid.Cell(2, "10:00")
		if !ok || cell.Count() != 2 || cell.Layout != calendar.LayoutClinicGrid {
			t.Fatalf("expected two clinic appointments on wednesday 10:00, got %+v", cell)
		}
		if len(view.Grid.Skipped) != 1 {
			t.Fatalf("expected one skipped record, got %d", len(view.Grid.Skipped))
		}

		latest, ok := svc.LatestWeek(application.Principal{}, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))
		if !ok || latest.Grid.Total() != view.Grid.Total() {
			t.Fatalf("expected latest week view to be published")
		}
	})

	t.Run("uses the configured operating hours", func(t *testing.T) {
		t.Parallel()

		aggregator := calendar.NewAggregator(7, 12)
		store := &packageStoreStub{existing: []calendar.Appointment{
			booked("early", "2024-03-04", "07:00", calendar.CategoryPrivate),
			booked("late", "2024-03-04", "18:00", calendar.CategoryPrivate),
		}}
		svc := factory.NewAgendaService(testfixtures.AgendaServiceDeps{Source: store, Aggregator: &aggregator})

		view, err := svc.Week(context.Background(), application.WeekParams{Date: testfixtures.ReferenceTime()})
		if err != nil {
			t.Fatalf("Week returned error: %v", err)
		}
		if len(view.Grid.Hours) != 6 || len(view.Grid.Unplaced) != 1 || view.Grid.Unplaced[0].ID != "late" {
			t.Fatalf("expected 07:00-12:00 rows with the 18:00 session unplaced, got %v / %+v", view.Grid.Hours, view.Grid.Unplaced)
		}
	})

	t.Run("surfaces network failures before bucketing", func(t *testing.T) {
		t.Parallel()

		svc := factory.NewAgendaService(testfixtures.AgendaServiceDeps{Source: &packageStoreStub{listErr: errors.New("timeout")}})
		_, err := svc.Week(context.Background(), application.WeekParams{Date: time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)})
		if !errors.Is(err, application.ErrSourceUnavailable) {
			t.Fatalf("expected ErrSourceUnavailable, got %v", err)
		}
		if _, ok := svc.LatestWeek(application.Principal{}, time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)); ok {
			t.Fatalf("expected nothing published after a failed fetch")
		}
	})
}

func TestAgendaService_ConcurrentRefreshes(t *testing.T) {
	t.Parallel()

	older := []calendar.Appointment{booked("a1", "2024-03-04", "09:00", calendar.CategoryPrivate)}
	newer := []calendar.Appointment{
		booked("a1", "2024-03-04", "09:00", calendar.CategoryPrivate),
		booked("a2", "2024-03-05", "09:00", calendar.CategoryPrivate),
	}
	// Every API key caller shares one principal, so two open tabs share a view key.
	params := application.WeekParams{
		Principal: application.Principal{UserID: application.APIKeyPrincipalID},
		Date:      testfixtures.ReferenceTime(),
	}

	t.Run("an earlier refresh that finishes first still answers its caller", func(t *testing.T) {
		t.Parallel()

		source := newBlockingSource(older, newer)
		svc := testfixtures.NewServiceFactory().NewAgendaService(testfixtures.AgendaServiceDeps{Source: source})

		first := startWeek(svc, source, params)
		second := startWeek(svc, source, params)

		close(source.gates[0])
		got := <-first
		if got.err != nil {
			t.Fatalf("expected the earlier refresh to succeed, got %v", got.err)
		}
		if got.view.Grid.Total() != 1 {
			t.Fatalf("expected the earlier refresh to return its own grid, got total %d", got.view.Grid.Total())
		}
		if _, ok := svc.LatestWeek(params.Principal, params.Date); ok {
			t.Fatalf("expected nothing published while a newer refresh is in flight")
		}

		close(source.gates[1])
		if got := <-second; got.err != nil || got.view.Grid.Total() != 2 {
			t.Fatalf("expected the newer refresh to return two appointments, got %d (%v)", got.view.Grid.Total(), got.err)
		}
		latest, ok := svc.LatestWeek(params.Principal, params.Date)
		if !ok || latest.Grid.Total() != 2 {
			t.Fatalf("expected the newer view to be published")
		}
	})

	t.Run("a late earlier refresh never replaces the published view", func(t *testing.T) {
		t.Parallel()

		source := newBlockingSource(older, newer)
		svc := testfixtures.NewServiceFactory().NewAgendaService(testfixtures.AgendaServiceDeps{Source: source})

		first := startWeek(svc, source, params)
		second := startWeek(svc, source, params)

		close(source.gates[1])
		if got := <-second; got.err != nil || got.view.Grid.Total() != 2 {
			t.Fatalf("expected the newer refresh to succeed, got %d (%v)", got.view.Grid.Total(), got.err)
		}
		close(source.gates[0])
		if got := <-first; got.err != nil || got.view.Grid.Total() != 1 {
			t.Fatalf("expected the late refresh to answer with its own grid, got %d (%v)", got.view.Grid.Total(), got.err)
		}

		latest, ok := svc.LatestWeek(params.Principal, params.Date)
		if !ok || latest.Grid.Total() != 2 {
			t.Fatalf("expected the newer view to stay published, got %+v (ok=%v)", latest.Grid.Total(), ok)
		}
	})
}

func TestAgendaService_Month(t *testing.T) {
	t.Parallel()

	store := &packageStoreStub{existing: []calendar.Appointment{
		booked("a1", "2024-02-01", "09:00", calendar.CategoryPrivate),
		booked("a2", "2024-03-10", "09:00", calendar.CategoryPrivate),
	}}
	svc := testfixtures.NewServiceFactory().NewAgendaService(testfixtures.AgendaServiceDeps{Source: store})

	view, err := svc.Month(context.Background(), application.MonthParams{Month: time.Date(2024, 2, 17, 0, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("Month returned error: %v", err)
	}
	if calendar.DateKey(store.ranges[0][0]) != "2024-01-29" || calendar.DateKey(store.ranges[0][1]) != "2024-03-10" {
		t.Fatalf("unexpected fetch range %v", store.ranges[0])
	}
	if len(view.Grid.Cells) != calendar.MonthGridCells {
		t.Fatalf("expected %d cells, got %d", calendar.MonthGridCells, len(view.Grid.Cells))
	}
	if view.Grid.PaddingBefore() != 3 || view.Grid.PaddingAfter() != 10 {
		t.Fatalf("unexpected padding %d/%d", view.Grid.PaddingBefore(), view.Grid.PaddingAfter())
	}
	last := view.Grid.Cells[len(view.Grid.Cells)-1]
	if last.CurrentMonth || last.Count() != 1 {
		t.Fatalf("expected trailing padding cell to hold the march appointment, got %+v", last)
	}

	if _, ok := svc.LatestMonth(application.Principal{}, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)); !ok {
		t.Fatalf("expected latest month view to be published")
	}
}
