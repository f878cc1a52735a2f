package admission

import (
	"activityhub/services/booking-service/internal/schedule"
	"activityhub/services/booking-service/internal/tier"
)

type Outcome string

const (
	OutcomeApproved         Outcome = "approved"
	OutcomeRejected         Outcome = "rejected"
	OutcomeActivityNotFound Outcome = "activity_not_found"
)

type Reason string

const (
	ReasonTierNotAllowed   Reason = "tier_not_allowed"
	ReasonScheduleConflict Reason = "schedule_conflict"
	ReasonQuotaExceeded    Reason = "quota_exceeded"
)

// Result is the admission decision for one booking request. Policy rejections
// live here as values; storage faults travel separately as errors and are
// never folded into a Result.
type Result struct {
	Outcome   Outcome
	Reason    Reason
	BookingID string // set iff Outcome == OutcomeApproved and the commit ran

	// Detail fields, populated per reason for user-facing messaging.
	AllowedTiers []tier.Tier      // ReasonTierNotAllowed: the activity's allow-list
	Conflict     *schedule.Booked // ReasonScheduleConflict: the booking in the way
	Quota        *QuotaStatus     // ReasonQuotaExceeded, and on approvals once evaluated
}

func (r Result) Approved() bool {
	return r.Outcome == OutcomeApproved
}
