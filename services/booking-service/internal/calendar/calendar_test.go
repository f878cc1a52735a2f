package calendar

import (
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestGoogleLink(t *testing.T) {
	start := time.Date(2026, 3, 4, 18, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	link := GoogleLink("Yoga Class", "Bring a mat", "Studio 3", start, end)

	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("link does not parse: %v", err)
	}
	if u.Host != "calendar.google.com" {
		t.Fatalf("host = %q", u.Host)
	}
	q := u.Query()
	if q.Get("text") != "Yoga Class" {
		t.Fatalf("text = %q", q.Get("text"))
	}
	if q.Get("dates") != "20260304T180000Z/20260304T190000Z" {
		t.Fatalf("dates = %q", q.Get("dates"))
	}
}

func TestICS(t *testing.T) {
	start := time.Date(2026, 3, 4, 18, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	out := ICS("Yoga Class", "Bring a mat\nArrive early", "Studio 3", start, end, now)

	for _, want := range []string{
		"BEGIN:VCALENDAR\r\n",
		"BEGIN:VEVENT\r\n",
		"DTSTART:20260304T180000Z\r\n",
		"DTEND:20260304T190000Z\r\n",
		"DTSTAMP:20260301T090000Z\r\n",
		"SUMMARY:Yoga Class\r\n",
		"STATUS:CONFIRMED\r\n",
		"END:VCALENDAR\r\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("ICS output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Bring a mat\nArrive") {
		t.Fatal("literal newline in DESCRIPTION must be escaped")
	}
	if !strings.Contains(out, "Bring a mat\\nArrive early") {
		t.Fatal("DESCRIPTION should carry the escaped newline")
	}
}
