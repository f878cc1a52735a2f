package admission

import (
	"context"
	"time"

	"activityhub/services/booking-service/internal/tier"
)

// QuotaStatus reports weekly quota usage for one member at one instant.
type QuotaStatus struct {
	Unlimited bool
	Limit     int
	Used      int
	Remaining int
}

// Permits reports whether one more booking fits the quota. A finite limit of
// zero permits nothing; only Unlimited bypasses the count.
func (q QuotaStatus) Permits() bool {
	return q.Unlimited || q.Used < q.Limit
}

// WeeklyCounter counts a member's confirmed bookings whose booking timestamp
// falls in a half-open window.
type WeeklyCounter interface {
	CountConfirmedInWindow(ctx context.Context, userID string, start, end time.Time) (int, error)
}

// EvaluateQuota computes quota usage for the calendar week containing now.
// Unlimited tiers skip the count entirely.
func EvaluateQuota(ctx context.Context, counter WeeklyCounter, catalog *tier.Catalog, userID string, t tier.Tier, now time.Time) (QuotaStatus, error) {
	limit, unlimited := catalog.QuotaFor(t)
	if unlimited {
		return QuotaStatus{Unlimited: true}, nil
	}

	start, end := tier.WeekWindow(now)
	used, err := counter.CountConfirmedInWindow(ctx, userID, start, end)
	if err != nil {
		return QuotaStatus{}, err
	}
	return QuotaStatus{Limit: limit, Used: used, Remaining: limit - used}, nil
}
