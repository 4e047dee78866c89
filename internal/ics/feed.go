package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"
)

const (
	// ContentType is the MIME type calendar clients expect for the feed.
	ContentType = "text/calendar"
	// AttachmentFilename is the suggested download name for the feed.
	AttachmentFilename = "calendar.ics"

	prodID = "-//aurioncal//Planning Feed//FR"

	dtLocalFormat = "20060102T150405"
)

// BuildFeed serializes the given events into a single ICS document. The
// document always carries one VTIMEZONE definition for the exhibition
// timezone, even when there are no events, so the output stays a valid
// calendar for an empty planning.
func BuildFeed(events []Event, exhibition *time.Location) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(prodID)

	cal.Components = append(cal.Components, buildTimezone(exhibition))

	for _, ev := range events {
		ve := cal.AddEvent(ev.UID)
		ve.SetDtStampTime(time.Now().UTC())
		ve.SetSummary(ev.Summary)
		ve.SetLocation(ev.Location)
		ve.SetDescription(ev.Description)
		setLocalTime(ve, ical.ComponentPropertyDtStart, ev.Start.In(exhibition), exhibition)
		setLocalTime(ve, ical.ComponentPropertyDtEnd, ev.End.In(exhibition), exhibition)
	}

	return cal.Serialize()
}

func setLocalTime(ve *ical.VEvent, prop ical.ComponentProperty, t time.Time, loc *time.Location) {
	ve.SetProperty(prop, t.Format(dtLocalFormat), &ical.KeyValues{
		Key:   "TZID",
		Value: []string{loc.String()},
	})
}

// buildTimezone emits a VTIMEZONE for the exhibition zone. Zones without
// DST get a single STANDARD block with their fixed offset. Zones with DST
// get the EU transition rule (last Sunday of March/October), which is what
// the default Europe/Paris zone follows; exotic exhibition zones would need
// their own rules.
func buildTimezone(loc *time.Location) *ical.VTimezone {
	tz := &ical.VTimezone{}
	tz.AddProperty(ical.ComponentProperty("TZID"), loc.String())

	year := time.Now().Year()
	_, winterOff := time.Date(year, time.January, 15, 12, 0, 0, 0, loc).Zone()
	summerName, summerOff := time.Date(year, time.July, 15, 12, 0, 0, 0, loc).Zone()
	winterName, _ := time.Date(year, time.January, 15, 12, 0, 0, 0, loc).Zone()

	if winterOff == summerOff {
		std := &ical.Standard{}
		std.AddProperty(ical.ComponentProperty("TZOFFSETFROM"), utcOffset(winterOff))
		std.AddProperty(ical.ComponentProperty("TZOFFSETTO"), utcOffset(winterOff))
		std.AddProperty(ical.ComponentProperty("TZNAME"), winterName)
		std.AddProperty(ical.ComponentProperty("DTSTART"), "19700101T000000")
		tz.Components = append(tz.Components, std)
		return tz
	}

	dst := &ical.Daylight{}
	dst.AddProperty(ical.ComponentProperty("TZOFFSETFROM"), utcOffset(winterOff))
	dst.AddProperty(ical.ComponentProperty("TZOFFSETTO"), utcOffset(summerOff))
	dst.AddProperty(ical.ComponentProperty("TZNAME"), summerName)
	dst.AddProperty(ical.ComponentProperty("DTSTART"), "19700329T020000")
	dst.AddProperty(ical.ComponentProperty("RRULE"), "FREQ=YEARLY;BYMONTH=3;BYDAY=-1SU")
	tz.Components = append(tz.Components, dst)

	std := &ical.Standard{}
	std.AddProperty(ical.ComponentProperty("TZOFFSETFROM"), utcOffset(summerOff))
	std.AddProperty(ical.ComponentProperty("TZOFFSETTO"), utcOffset(winterOff))
	std.AddProperty(ical.ComponentProperty("TZNAME"), winterName)
	std.AddProperty(ical.ComponentProperty("DTSTART"), "19701025T030000")
	std.AddProperty(ical.ComponentProperty("RRULE"), "FREQ=YEARLY;BYMONTH=10;BYDAY=-1SU")
	tz.Components = append(tz.Components, std)

	return tz
}

func utcOffset(seconds int) string {
	sign := "+"
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	return sign + twoDigits(h) + twoDigits(m)
}

func twoDigits(n int) string {
	return string([]byte{byte('0' + n/10), byte('0' + n%10)})
}
