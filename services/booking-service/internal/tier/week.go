package tier

import "time"

// WeekWindow returns the half-open calendar week [start, end) containing now,
// anchored on Monday 00:00:00 in now's location. A timestamp equal to end
// belongs to the next week, not this one.
func WeekWindow(now time.Time) (start, end time.Time) {
	// time.Weekday has Sunday = 0; shift so Monday = 0.
	daysSinceMonday := (int(now.Weekday()) + 6) % 7
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	start = midnight.AddDate(0, 0, -daysSinceMonday)
	return start, start.AddDate(0, 0, 7)
}

// InWeek reports whether ts falls inside the week window containing now.
func InWeek(ts, now time.Time) bool {
	start, end := WeekWindow(now)
	return !ts.Before(start) && ts.Before(end)
}
