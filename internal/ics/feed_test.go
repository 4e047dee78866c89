package ics

import (
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
)

func TestBuildFeed_EmptyStillValid(t *testing.T) {
	doc := BuildFeed(nil, paris)

	cal, err := ical.ParseCalendar(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("empty feed did not parse: %v", err)
	}
	if len(cal.Events()) != 0 {
		t.Errorf("expected 0 events, got %d", len(cal.Events()))
	}
	if !strings.Contains(doc, "BEGIN:VTIMEZONE") {
		t.Error("expected a VTIMEZONE block in the empty feed")
	}
	if !strings.Contains(doc, "TZID:Europe/Paris") {
		t.Error("expected the exhibition timezone id in the feed")
	}
}

func TestBuildFeed_RoundTrip(t *testing.T) {
	events := []Event{
		{
			UID:         "evt-1",
			Summary:     "Analyse - M. Dupont (TD)",
			Location:    "Salle B12",
			Description: "Salle B12\r\nAnalyse\r\nM. Dupont",
			Start:       time.Date(2026, 1, 12, 8, 0, 0, 0, time.UTC),
			End:         time.Date(2026, 1, 12, 10, 0, 0, 0, time.UTC),
		},
		{
			UID:     "evt-2",
			Summary: "Partiel Maths (Épreuve)",
			Start:   time.Date(2026, 6, 2, 12, 30, 0, 0, time.UTC),
			End:     time.Date(2026, 6, 2, 14, 30, 0, 0, time.UTC),
		},
	}

	doc := BuildFeed(events, paris)

	cal, err := ical.ParseCalendar(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("feed did not parse: %v", err)
	}

	parsed := cal.Events()
	if len(parsed) != len(events) {
		t.Fatalf("expected %d events, got %d", len(events), len(parsed))
	}

	for i, ve := range parsed {
		want := events[i]

		uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
		if uid == nil || uid.Value != want.UID {
			t.Errorf("event %d: uid = %v, want %q", i, uid, want.UID)
		}
		if p := ve.GetProperty(ical.ComponentPropertySummary); p == nil || p.Value != want.Summary {
			t.Errorf("event %d: summary mismatch", i)
		}

		start := parseEventTime(t, ve, ical.ComponentPropertyDtStart)
		if !start.Equal(want.Start) {
			t.Errorf("event %d: start = %v, want %v", i, start, want.Start)
		}
		end := parseEventTime(t, ve, ical.ComponentPropertyDtEnd)
		if !end.Equal(want.End) {
			t.Errorf("event %d: end = %v, want %v", i, end, want.End)
		}
	}
}

// parseEventTime reads a DTSTART/DTEND property back the way a calendar
// client would: local time value interpreted in the TZID parameter's zone.
func parseEventTime(t *testing.T, ve *ical.VEvent, prop ical.ComponentProperty) time.Time {
	t.Helper()

	p := ve.GetProperty(prop)
	if p == nil {
		t.Fatalf("missing %s", prop)
	}

	tzids, ok := p.ICalParameters["TZID"]
	if !ok || len(tzids) == 0 {
		t.Fatalf("%s has no TZID parameter", prop)
	}
	loc, err := time.LoadLocation(tzids[0])
	if err != nil {
		t.Fatalf("bad TZID %q: %v", tzids[0], err)
	}

	ts, err := time.ParseInLocation(dtLocalFormat, p.Value, loc)
	if err != nil {
		t.Fatalf("bad %s value %q: %v", prop, p.Value, err)
	}
	return ts
}
