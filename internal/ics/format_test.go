package ics

import (
	"testing"
	"time"

	"aurioncal/internal/models"
)

var paris = mustLoad("Europe/Paris")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func formatTitle(t *testing.T, title, courseType string) Event {
	t.Helper()
	return FormatEvent(models.CalendarEvent{
		ID:         "evt-1",
		Title:      title,
		CourseType: courseType,
		Start:      time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC),
		End:        time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
	}, paris)
}

func TestFormatEvent_ExamDropsSupervisionLine(t *testing.T) {
	got := formatTitle(t, "Room 204\r\nFinal Exam\r\nEXAM_SURV John", "est-epreuve")

	if got.Summary != "Final Exam (Épreuve)" {
		t.Errorf("summary = %q, want %q", got.Summary, "Final Exam (Épreuve)")
	}
	if got.Location != "Room 204" {
		t.Errorf("location = %q, want %q", got.Location, "Room 204")
	}
}

func TestFormatEvent_ExamTieBreaks(t *testing.T) {
	tests := []struct {
		name         string
		title        string
		wantSummary  string
		wantLocation string
	}{
		{
			"two remaining lines",
			"B12\r\nAmphi A\r\nPartiel Maths",
			"Partiel Maths (Épreuve)",
			"Amphi A",
		},
		{
			"single remaining line differs from first",
			"Amphi A\r\nPartiel Maths",
			"Partiel Maths (Épreuve)",
			"Amphi A",
		},
		{
			"single remaining line repeats first",
			"Partiel Maths\r\npartiel maths",
			"partiel maths (Épreuve)",
			"",
		},
		{
			"only supervision lines after first",
			"Partiel Maths\r\nexam_surv Mme Durand",
			"Partiel Maths (Épreuve)",
			"",
		},
		{
			"single line title",
			"Partiel Maths",
			"Partiel Maths (Épreuve)",
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatTitle(t, tt.title, "est-epreuve")
			if got.Summary != tt.wantSummary {
				t.Errorf("summary = %q, want %q", got.Summary, tt.wantSummary)
			}
			if got.Location != tt.wantLocation {
				t.Errorf("location = %q, want %q", got.Location, tt.wantLocation)
			}
		})
	}
}

func TestFormatEvent_CourseStripsTypeLine(t *testing.T) {
	got := formatTitle(t, "Algorithms\r\nDr. Smith\r\nCS101", "COURS_TD")

	if got.Summary != "Algorithms - Dr. Smith (TD)" {
		t.Errorf("summary = %q, want %q", got.Summary, "Algorithms - Dr. Smith (TD)")
	}
	if got.Location != "Algorithms" {
		t.Errorf("location = %q, want %q", got.Location, "Algorithms")
	}
}

func TestFormatEvent_CourseVariants(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		courseType  string
		wantSummary string
	}{
		{
			"type repeated in a line is ignored",
			"Analyse\r\ncours_td groupe 2\r\nM. Dupont",
			"COURS_TD",
			"Analyse - M. Dupont (TD)",
		},
		{
			"single line course",
			"Analyse",
			"COURS_TD",
			"Analyse (TD)",
		},
		{
			"unknown type keeps raw display",
			"Réunion\r\nMme Martin",
			"PLENIERE",
			"Réunion - Mme Martin (PLENIERE)",
		},
		{
			"blank type falls back to Autre",
			"Réunion",
			"",
			"Réunion (Autre)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatTitle(t, tt.title, tt.courseType)
			if got.Summary != tt.wantSummary {
				t.Errorf("summary = %q, want %q", got.Summary, tt.wantSummary)
			}
		})
	}
}

func TestFormatEvent_EmptyTitle(t *testing.T) {
	got := formatTitle(t, " \r\n \n", "COURS_TD")

	if got.Summary != "Sans titre" {
		t.Errorf("summary = %q, want %q", got.Summary, "Sans titre")
	}
	if got.Location != "" {
		t.Errorf("location = %q, want empty", got.Location)
	}
}

func TestFormatEvent_ConvertsToExhibitionTimezone(t *testing.T) {
	// 08:00 UTC on a March date before the DST switch is 09:00 in Paris.
	got := formatTitle(t, "Analyse", "COURS_TD")

	if got.Start.Hour() != 9 {
		t.Errorf("start hour = %d, want 9", got.Start.Hour())
	}
	if got.Start.Location() != paris {
		t.Errorf("start location = %v, want Europe/Paris", got.Start.Location())
	}
}

func TestFormatEvent_DescriptionIsTrimmedRawTitle(t *testing.T) {
	got := formatTitle(t, "  Analyse\r\nM. Dupont  ", "COURS_TD")

	if got.Description != "Analyse\r\nM. Dupont" {
		t.Errorf("description = %q", got.Description)
	}
	if got.UID != "evt-1" {
		t.Errorf("uid = %q, want evt-1", got.UID)
	}
}
