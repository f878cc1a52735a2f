package admission

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"activityhub/services/booking-service/internal/model"
	"activityhub/services/booking-service/internal/schedule"
	"activityhub/services/booking-service/internal/tier"
)

// ErrActivityNotFound is returned by Ledger.GetActivity for unknown activity IDs.
var ErrActivityNotFound = errors.New("activity not found")

// ErrCommitRace signals that the booking insert lost a race with a concurrent
// commit for the same user. The controller re-runs the full evaluation once
// so the caller sees a policy rejection instead of a raw storage error.
var ErrCommitRace = errors.New("booking commit race")

// Ledger is the booking store view the controller evaluates against. All
// methods are read-only except InsertConfirmed.
type Ledger interface {
	GetActivity(ctx context.Context, activityID string) (model.Activity, error)
	ConfirmedBookings(ctx context.Context, userID string) ([]schedule.Booked, error)
	CountConfirmedInWindow(ctx context.Context, userID string, start, end time.Time) (int, error)
	InsertConfirmed(ctx context.Context, userID, activityID string, bookedAt time.Time) (string, error)
}

// TxLedger additionally scopes a ledger view to a per-user atomic unit: while
// fn runs, no other admission or cancellation for the same user may commit.
type TxLedger interface {
	Ledger
	InUserTx(ctx context.Context, userID string, fn func(Ledger) error) error
}

type Controller struct {
	ledger  TxLedger
	catalog *tier.Catalog
	logger  *slog.Logger
	clock   func() time.Time
}

type Request struct {
	UserID     string
	Tier       tier.Tier
	ActivityID string
}

func NewController(ledger TxLedger, catalog *tier.Catalog, logger *slog.Logger) *Controller {
	return &Controller{
		ledger:  ledger,
		catalog: catalog,
		logger:  logger,
		clock:   time.Now,
	}
}

// Preview runs the admission checks without committing anything. Safe to call
// repeatedly; two calls with no intervening commits yield the same result.
func (c *Controller) Preview(ctx context.Context, req Request) (Result, error) {
	res, _, err := c.evaluate(ctx, c.ledger, req, c.clock().UTC())
	return res, err
}

// Admit evaluates the request and, if every check passes, commits a confirmed
// booking stamped with the evaluation instant. The check-and-commit sequence
// runs as one atomic unit per user; a commit that loses a race triggers
// exactly one re-evaluation before any outcome is surfaced.
func (c *Controller) Admit(ctx context.Context, req Request) (Result, error) {
	res, err := c.admitOnce(ctx, req)
	if errors.Is(err, ErrCommitRace) {
		c.logger.Warn("admission commit race, re-evaluating",
			"user_id", req.UserID, "activity_id", req.ActivityID)
		res, err = c.admitOnce(ctx, req)
	}
	return res, err
}

func (c *Controller) admitOnce(ctx context.Context, req Request) (Result, error) {
	now := c.clock().UTC()

	var res Result
	err := c.ledger.InUserTx(ctx, req.UserID, func(view Ledger) error {
		r, _, err := c.evaluate(ctx, view, req, now)
		if err != nil {
			return err
		}
		res = r
		if !r.Approved() {
			return nil
		}

		id, err := view.InsertConfirmed(ctx, req.UserID, req.ActivityID, now)
		if err != nil {
			return err
		}
		res.BookingID = id
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// evaluate applies the checks in their fixed order: activity resolution, tier
// eligibility, schedule conflict, weekly quota. The order decides which single
// rejection a caller sees when several would apply; clients depend on
// conflict-before-quota, so it is not configurable.
func (c *Controller) evaluate(ctx context.Context, view Ledger, req Request, now time.Time) (Result, model.Activity, error) {
	activity, err := view.GetActivity(ctx, req.ActivityID)
	if err != nil {
		if errors.Is(err, ErrActivityNotFound) {
			return Result{Outcome: OutcomeActivityNotFound}, model.Activity{}, nil
		}
		return Result{}, model.Activity{}, err
	}

	if !tier.Allowed(req.Tier, activity.AllowedTiers) {
		return Result{
			Outcome:      OutcomeRejected,
			Reason:       ReasonTierNotAllowed,
			AllowedTiers: activity.AllowedTiers,
		}, activity, nil
	}

	held, err := view.ConfirmedBookings(ctx, req.UserID)
	if err != nil {
		return Result{}, model.Activity{}, err
	}
	start, end := activity.Window()
	candidate := schedule.Interval{Start: start, End: end}
	if conflict, ok := schedule.FindConflict(candidate, held); ok {
		return Result{
			Outcome:  OutcomeRejected,
			Reason:   ReasonScheduleConflict,
			Conflict: &conflict,
		}, activity, nil
	}

	quota, err := EvaluateQuota(ctx, view, c.catalog, req.UserID, req.Tier, now)
	if err != nil {
		return Result{}, model.Activity{}, err
	}
	if !quota.Permits() {
		return Result{
			Outcome: OutcomeRejected,
			Reason:  ReasonQuotaExceeded,
			Quota:   &quota,
		}, activity, nil
	}

	return Result{Outcome: OutcomeApproved, Quota: &quota}, activity, nil
}
