// Package calendar renders add-to-calendar artifacts for approved bookings.
package calendar

import (
	"net/url"
	"strings"
	"time"
)

// GoogleLink builds a calendar.google.com render URL for the event.
func GoogleLink(title, description, location string, start, end time.Time) string {
	v := url.Values{}
	v.Set("action", "TEMPLATE")
	v.Set("text", title)
	v.Set("details", description+"\n\nLocation: "+location)
	v.Set("location", location)
	v.Set("dates", stamp(start)+"/"+stamp(end))
	return "https://calendar.google.com/calendar/render?" + v.Encode()
}

// ICS renders a minimal single-event VCALENDAR payload. now feeds DTSTAMP and
// the event UID.
func ICS(title, description, location string, start, end, now time.Time) string {
	// Literal newlines break the ICS format; encode them per RFC 5545.
	desc := strings.ReplaceAll(description, "\n", "\\n")

	var b strings.Builder
	b.WriteString("BEGIN:VCALENDAR\r\n")
	b.WriteString("VERSION:2.0\r\n")
	b.WriteString("PRODID:-//ActivityHub//Booking//EN\r\n")
	b.WriteString("CALSCALE:GREGORIAN\r\n")
	b.WriteString("BEGIN:VEVENT\r\n")
	b.WriteString("DTSTAMP:" + stamp(now) + "\r\n")
	b.WriteString("UID:" + stamp(now) + "-" + stamp(start) + "@activityhub\r\n")
	b.WriteString("DTSTART:" + stamp(start) + "\r\n")
	b.WriteString("DTEND:" + stamp(end) + "\r\n")
	b.WriteString("SUMMARY:" + title + "\r\n")
	b.WriteString("DESCRIPTION:" + desc + "\\n\\nLocation: " + location + "\r\n")
	b.WriteString("LOCATION:" + location + "\r\n")
	b.WriteString("STATUS:CONFIRMED\r\n")
	b.WriteString("END:VEVENT\r\n")
	b.WriteString("END:VCALENDAR\r\n")
	return b.String()
}

func stamp(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}
