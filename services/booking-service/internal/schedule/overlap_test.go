package schedule

import (
	"testing"
	"time"
)

func iv(startHour, endHour int) Interval {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	return Interval{Start: day.Add(time.Duration(startHour) * time.Hour), End: day.Add(time.Duration(endHour) * time.Hour)}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"partial overlap", iv(9, 11), iv(10, 12), true},
		{"containment", iv(9, 17), iv(10, 11), true},
		{"identical", iv(9, 10), iv(9, 10), true},
		{"disjoint", iv(9, 10), iv(11, 12), false},
		{"touching end-to-start", iv(9, 10), iv(10, 11), false},
		{"touching start-to-end", iv(10, 11), iv(9, 10), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Overlaps(tc.b); got != tc.want {
				t.Fatalf("Overlaps = %v, want %v", got, tc.want)
			}
			if got := tc.b.Overlaps(tc.a); got != tc.want {
				t.Fatalf("Overlaps is not symmetric: reversed = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFindConflict(t *testing.T) {
	held := []Booked{
		{BookingID: "b1", ActivityID: "a1", Interval: iv(9, 10)},
		{BookingID: "b2", ActivityID: "a2", Interval: iv(14, 16)},
	}

	if _, ok := FindConflict(iv(10, 11), held); ok {
		t.Fatal("back-to-back booking should not conflict")
	}

	hit, ok := FindConflict(iv(15, 17), held)
	if !ok {
		t.Fatal("expected a conflict with b2")
	}
	if hit.BookingID != "b2" {
		t.Fatalf("conflicting booking = %q, want b2", hit.BookingID)
	}

	if _, ok := FindConflict(iv(9, 10), nil); ok {
		t.Fatal("no held bookings, no conflict")
	}
}
