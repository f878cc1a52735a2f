package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"activityhub/libs/db"
	"activityhub/services/booking-service/internal/admission"
	"activityhub/services/booking-service/internal/model"
	"activityhub/services/booking-service/internal/outbox"
	"activityhub/services/booking-service/internal/schedule"
	"activityhub/services/booking-service/internal/tier"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrNotCancellable  = errors.New("booking cannot be cancelled")
)

// BookingRepository is the Booking Ledger: bookings, read-only activities and
// the member tier cache, all in one Postgres database. It implements
// admission.TxLedger; outside a transaction the reads run against the pool.
type BookingRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewBookingRepository(pool *db.Pool, outboxRepo *outbox.Repository) *BookingRepository {
	return &BookingRepository{pool: pool, outbox: outboxRepo}
}

// querier is satisfied by both *db.Pool and pgx.Tx so the ledger queries can
// run pooled (preview) or inside the per-user transaction (commit).
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *BookingRepository) GetActivity(ctx context.Context, activityID string) (model.Activity, error) {
	return getActivity(ctx, r.pool, activityID)
}

func (r *BookingRepository) ConfirmedBookings(ctx context.Context, userID string) ([]schedule.Booked, error) {
	return confirmedBookings(ctx, r.pool, userID)
}

func (r *BookingRepository) CountConfirmedInWindow(ctx context.Context, userID string, start, end time.Time) (int, error) {
	return countConfirmedInWindow(ctx, r.pool, userID, start, end)
}

func (r *BookingRepository) InsertConfirmed(ctx context.Context, userID, activityID string, bookedAt time.Time) (string, error) {
	return insertConfirmed(ctx, r.pool, r.outbox, userID, activityID, bookedAt)
}

// InUserTx runs fn in a transaction holding an advisory lock on the user id.
// All admissions and cancellations for one user funnel through this lock, so
// the read-evaluate-write cycle can never interleave with a competing commit
// for the same user. Other users proceed in parallel.
func (r *BookingRepository) InUserTx(ctx context.Context, userID string, fn func(admission.Ledger) error) error {
	return r.pool.InTx(ctx, func(tx pgx.Tx) error {
		if err := lockUser(ctx, tx, userID); err != nil {
			return err
		}
		return fn(&txLedger{tx: tx, outbox: r.outbox})
	})
}

type txLedger struct {
	tx     pgx.Tx
	outbox *outbox.Repository
}

func (l *txLedger) GetActivity(ctx context.Context, activityID string) (model.Activity, error) {
	return getActivity(ctx, l.tx, activityID)
}

func (l *txLedger) ConfirmedBookings(ctx context.Context, userID string) ([]schedule.Booked, error) {
	return confirmedBookings(ctx, l.tx, userID)
}

func (l *txLedger) CountConfirmedInWindow(ctx context.Context, userID string, start, end time.Time) (int, error) {
	return countConfirmedInWindow(ctx, l.tx, userID, start, end)
}

func (l *txLedger) InsertConfirmed(ctx context.Context, userID, activityID string, bookedAt time.Time) (string, error) {
	return insertConfirmed(ctx, l.tx, l.outbox, userID, activityID, bookedAt)
}

func lockUser(ctx context.Context, tx pgx.Tx, userID string) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended('bookings:user:' || $1, 0))`, userID)
	if err != nil {
		return fmt.Errorf("acquire user lock: %w", err)
	}
	return nil
}

func getActivity(ctx context.Context, q querier, activityID string) (model.Activity, error) {
	var a model.Activity
	var allowed []string
	err := q.QueryRow(ctx, `
		SELECT id::text, title, COALESCE(description, ''), COALESCE(location, ''),
			start_time, end_time, COALESCE(allowed_tiers, '{}')
		FROM activities
		WHERE id = $1
	`, activityID).Scan(&a.ID, &a.Title, &a.Description, &a.Location, &a.StartTime, &a.EndTime, &allowed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Activity{}, admission.ErrActivityNotFound
		}
		return model.Activity{}, err
	}
	for _, t := range allowed {
		a.AllowedTiers = append(a.AllowedTiers, tier.Tier(t))
	}
	return a, nil
}

func confirmedBookings(ctx context.Context, q querier, userID string) ([]schedule.Booked, error) {
	rows, err := q.Query(ctx, `
		SELECT b.id::text, b.activity_id::text, a.start_time, a.end_time
		FROM bookings b
		JOIN activities a ON a.id = b.activity_id
		WHERE b.user_id = $1 AND b.status = 'confirmed'
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var held []schedule.Booked
	for rows.Next() {
		var b schedule.Booked
		if err := rows.Scan(&b.BookingID, &b.ActivityID, &b.Start, &b.End); err != nil {
			return nil, err
		}
		held = append(held, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return held, nil
}

func countConfirmedInWindow(ctx context.Context, q querier, userID string, start, end time.Time) (int, error) {
	var cnt int
	err := q.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM bookings
		WHERE user_id = $1
		  AND status = 'confirmed'
		  AND booked_at >= $2
		  AND booked_at < $3
	`, userID, start, end).Scan(&cnt)
	return cnt, err
}

func insertConfirmed(ctx context.Context, q querier, ob *outbox.Repository, userID, activityID string, bookedAt time.Time) (string, error) {
	var id string
	err := q.QueryRow(ctx, `
		INSERT INTO bookings (user_id, activity_id, status, booked_at)
		VALUES ($1, $2, 'confirmed', $3)
		RETURNING id::text
	`, userID, activityID, bookedAt).Scan(&id)
	if err != nil {
		if isCommitRace(err) {
			return "", fmt.Errorf("%w: %v", admission.ErrCommitRace, err)
		}
		return "", err
	}

	payload, err := json.Marshal(map[string]any{
		"booking_id":  id,
		"user_id":     userID,
		"activity_id": activityID,
		"booked_at":   bookedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return "", err
	}
	if err := ob.Insert(ctx, q, outbox.Event{
		AggregateType: "booking",
		AggregateID:   id,
		EventType:     outbox.EventBookingConfirmed,
		Payload:       payload,
	}); err != nil {
		return "", err
	}
	return id, nil
}

// isCommitRace classifies errors that mean a competing commit got there
// first: unique/exclusion violations and serialization failures.
func isCommitRace(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "23505", "23P01", "40001":
		return true
	}
	return false
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
