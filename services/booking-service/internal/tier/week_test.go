package tier

import (
	"testing"
	"time"
)

func TestWeekWindowAnchorsOnMonday(t *testing.T) {
	// Wednesday 2026-03-04 15:30 UTC.
	now := time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC)
	start, end := WeekWindow(now)

	wantStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	if !start.Equal(wantStart) {
		t.Fatalf("start = %v, want %v", start, wantStart)
	}
	if !end.Equal(wantEnd) {
		t.Fatalf("end = %v, want %v", end, wantEnd)
	}
}

func TestWeekWindowOnMondayMidnight(t *testing.T) {
	now := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	start, _ := WeekWindow(now)
	if !start.Equal(now) {
		t.Fatalf("Monday midnight should start its own week, got %v", start)
	}
}

func TestWeekWindowOnSunday(t *testing.T) {
	// Sunday belongs to the week that started the previous Monday.
	now := time.Date(2026, 3, 8, 23, 59, 59, 0, time.UTC)
	start, end := WeekWindow(now)

	if !start.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("start = %v, want Monday 2026-03-02", start)
	}
	if !end.Equal(time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("end = %v, want Monday 2026-03-09", end)
	}
}

func TestWeekWindowDeterministic(t *testing.T) {
	now := time.Date(2026, 7, 17, 9, 0, 0, 0, time.UTC)
	s1, e1 := WeekWindow(now)
	s2, e2 := WeekWindow(now)
	if !s1.Equal(s2) || !e1.Equal(e2) {
		t.Fatal("same input must produce the same window")
	}
}

func TestInWeekBoundaries(t *testing.T) {
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	start, end := WeekWindow(now)

	if !InWeek(start, now) {
		t.Fatal("window start is inside the week")
	}
	if InWeek(end, now) {
		t.Fatal("window end belongs to the next week")
	}
	if InWeek(start.Add(-time.Nanosecond), now) {
		t.Fatal("instant before start is the previous week")
	}
	if !InWeek(end.Add(-time.Nanosecond), now) {
		t.Fatal("last instant before end is still this week")
	}
}
