package model

import (
	"time"

	"activityhub/services/booking-service/internal/tier"
)

type BookingStatus string

const (
	StatusConfirmed BookingStatus = "confirmed"
	StatusAttended  BookingStatus = "attended"
	StatusCancelled BookingStatus = "cancelled"
)

// Booking references one member and one activity. BookedAt is the instant the
// booking was made and drives weekly quota accounting; the activity's own
// time window drives conflict detection.
type Booking struct {
	ID          string
	UserID      string
	ActivityID  string
	Status      BookingStatus
	BookedAt    time.Time
	CancelledAt *time.Time
	CreatedAt   time.Time
}

// Activity is read-only here; activity management owns the records.
type Activity struct {
	ID          string
	Title       string
	Description string
	Location    string
	StartTime   time.Time
	EndTime     time.Time
	// AllowedTiers empty or nil means open to all tiers.
	AllowedTiers []tier.Tier
}

// Window returns the activity's half-open time window.
func (a Activity) Window() (start, end time.Time) {
	return a.StartTime, a.EndTime
}
