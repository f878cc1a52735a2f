package schedule

import "time"

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open intervals intersect. Touching
// endpoints (one ending exactly when the other starts) do not overlap.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Booked is an interval held by an existing confirmed booking.
type Booked struct {
	BookingID  string
	ActivityID string
	Interval
}

// FindConflict scans the user's held intervals for one overlapping the
// candidate and returns the first hit. The input carries no ordering
// guarantee; the scan is linear over the full confirmed set.
func FindConflict(candidate Interval, held []Booked) (Booked, bool) {
	for _, b := range held {
		if candidate.Overlaps(b.Interval) {
			return b, true
		}
	}
	return Booked{}, false
}
