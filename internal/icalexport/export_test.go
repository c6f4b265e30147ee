package icalexport

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"

	"github.com/example/physio-agenda/internal/application"
	"github.com/example/physio-agenda/internal/calendar"
)

func strPtr(value string) *string { return &value }

func samplePackage() application.SessionPackage {
	return application.SessionPackage{
		ID:          "pkg-1",
		PatientName: "Ana Souza",
		Type:        "Pilates",
		Room:        strPtr("Sala 2"),
		Appointments: []application.Appointment{
			{ID: "a1", Date: "2024-03-04", Time: "09:00", Status: application.StatusPending, Category: calendar.CategoryClinic},
			{ID: "a2", Date: "2024-03-06", Time: "14:00:00", Status: application.StatusExecuted, Category: calendar.CategoryClinic},
			{ID: "a3", Date: "2024-03-11", Time: "09:00", Status: application.StatusCancelled, Room: strPtr("Sala 5")},
			{ID: "broken", Date: "not-a-date", Time: "09:00"},
		},
	}
}

func TestEncodePackage(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("BRT", -3*60*60)
	stamp := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	if err := EncodePackage(&buf, samplePackage(), Options{Location: loc, Stamp: stamp}); err != nil {
		t.Fatalf("EncodePackage error: %v", err)
	}
	if !strings.Contains(buf.String(), "BEGIN:VCALENDAR") {
		t.Fatalf("missing VCALENDAR in output:\n%s", buf.String())
	}

	cal, err := ical.NewDecoder(&buf).Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	events := cal.Events()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}

	first := events[0]
	if uid, _ := first.Props.Text(ical.PropUID); uid != "a1" {
		t.Fatalf("uid = %q", uid)
	}
	if summary, _ := first.Props.Text(ical.PropSummary); summary != "Ana Souza - Pilates" {
		t.Fatalf("summary = %q", summary)
	}
	if location, _ := first.Props.Text(ical.PropLocation); location != "Sala 2" {
		t.Fatalf("location = %q", location)
	}
	start, err := first.Props.DateTime(ical.PropDateTimeStart, loc)
	if err != nil {
		t.Fatalf("DTSTART: %v", err)
	}
	if !start.Equal(time.Date(2024, 3, 4, 9, 0, 0, 0, loc)) {
		t.Fatalf("DTSTART = %v", start)
	}
	end, err := first.Props.DateTime(ical.PropDateTimeEnd, loc)
	if err != nil {
		t.Fatalf("DTEND: %v", err)
	}
	if end.Sub(start) != DefaultDuration {
		t.Fatalf("duration = %v", end.Sub(start))
	}

	wantStatus := []string{"TENTATIVE", "CONFIRMED", "CANCELLED"}
	for i, event := range events {
		if status, _ := event.Props.Text(ical.PropStatus); status != wantStatus[i] {
			t.Fatalf("event %d status = %q, want %q", i, status, wantStatus[i])
		}
	}
	if location, _ := events[2].Props.Text(ical.PropLocation); location != "Sala 5" {
		t.Fatalf("appointment room should win over package room, got %q", location)
	}
}

func TestPackageCalendarEmpty(t *testing.T) {
	t.Parallel()

	pkg := application.SessionPackage{ID: "pkg-2", Appointments: []application.Appointment{{ID: "x", Date: "", Time: ""}}}
	if _, err := PackageCalendar(pkg, Options{}); !errors.Is(err, ErrEmptyPackage) {
		t.Fatalf("expected ErrEmptyPackage, got %v", err)
	}
}

func TestSummaryFallbacks(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		pkg  application.SessionPackage
		appt application.Appointment
		want string
	}{
		{name: "appointment fields", appt: application.Appointment{PatientName: "Bia", Type: "RPG"}, want: "Bia - RPG"},
		{name: "package fields", pkg: application.SessionPackage{PatientName: "Caio", Type: "Hidro"}, want: "Caio - Hidro"},
		{name: "name only", appt: application.Appointment{PatientName: "Duda"}, want: "Duda"},
		{name: "nothing", want: "Sessão"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := summaryOf(tc.pkg, tc.appt); got != tc.want {
				t.Fatalf("summaryOf = %q, want %q", got, tc.want)
			}
		})
	}
}
