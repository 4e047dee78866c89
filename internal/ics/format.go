// Package ics turns stored planning events into a serialized ICS feed.
// Raw event titles from the planning source are multi-line blobs (room,
// name, teacher, sometimes supervision markers); the formatter extracts a
// readable summary and location from them.
package ics

import (
	"strings"
	"time"

	"aurioncal/internal/course"
	"aurioncal/internal/models"
)

// supervisionMarker tags exam-supervisor lines in raw titles; those lines
// are noise in a calendar summary.
const supervisionMarker = "EXAM_SURV"

// Event is a fully formatted calendar entry, ready for feed serialization.
// Start and End are already in the exhibition timezone.
type Event struct {
	UID         string
	Summary     string
	Location    string
	Description string
	Start       time.Time
	End         time.Time
}

// FormatEvent builds the displayable event for one stored planning entry.
// Exam events ("est-epreuve") and regular courses read their title lines
// differently; see formatExam and formatCourse.
func FormatEvent(ev models.CalendarEvent, exhibition *time.Location) Event {
	out := Event{
		UID:         ev.ID,
		Description: strings.TrimSpace(ev.Title),
		Start:       ev.Start.In(exhibition),
		End:         ev.End.In(exhibition),
	}

	lines := splitTitle(ev.Title)
	if len(lines) == 0 {
		out.Summary = "Sans titre"
		return out
	}

	if course.Classify(ev.CourseType) == course.Epreuve {
		out.Summary, out.Location = formatExam(lines, ev.CourseType)
	} else {
		out.Summary, out.Location = formatCourse(lines, ev.CourseType)
	}
	return out
}

// formatExam reads an exam title. The lines after the first are usually
// [room, exam name, supervisors...]; supervision lines are dropped and the
// leftovers decide which line is the room and which is the name.
func formatExam(lines []string, rawType string) (summary, location string) {
	first := lines[0]

	var rest []string
	for _, l := range lines[1:] {
		if !containsFold(l, supervisionMarker) {
			rest = append(rest, l)
		}
	}

	var name string
	switch {
	case len(rest) >= 2:
		location, name = rest[0], rest[1]
	case len(rest) == 1 && !strings.EqualFold(rest[0], first):
		location, name = first, rest[0]
	case len(rest) == 1:
		location, name = "", rest[0]
	default:
		location, name = "", first
	}

	return buildSummary(name, rawType), location
}

// formatCourse reads a regular course title: the first line is both the
// location and the course name, the next line (ignoring repeats of the raw
// course-type string) is the teacher.
func formatCourse(lines []string, rawType string) (summary, location string) {
	kept := lines[:1:1]
	if course.Classify(rawType) != course.Unknown && strings.TrimSpace(rawType) != "" {
		needle := strings.TrimSpace(rawType)
		for _, l := range lines[1:] {
			if !containsFold(l, needle) {
				kept = append(kept, l)
			}
		}
	} else {
		kept = append(kept, lines[1:]...)
	}

	var courseName, teacher string
	switch {
	case len(kept) >= 2:
		courseName, teacher = kept[0], kept[1]
	case len(kept) == 1:
		courseName = kept[0]
	}

	var parts []string
	if strings.TrimSpace(courseName) != "" {
		parts = append(parts, courseName)
	}
	if strings.TrimSpace(teacher) != "" {
		parts = append(parts, "- "+teacher)
	}

	return buildSummary(strings.Join(parts, " "), rawType), lines[0]
}

// buildSummary appends the course-type display name, keeping whichever part
// is non-empty when the other is blank.
func buildSummary(base, rawType string) string {
	display := course.DisplayNameFromRaw(rawType)
	if strings.TrimSpace(display) == "" {
		return base
	}
	if strings.TrimSpace(base) == "" {
		return display
	}
	return base + " (" + display + ")"
}

// splitTitle cuts a raw title into trimmed, non-empty lines.
func splitTitle(title string) []string {
	var lines []string
	for _, l := range strings.FieldsFunc(title, func(r rune) bool {
		return r == '\r' || r == '\n'
	}) {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
