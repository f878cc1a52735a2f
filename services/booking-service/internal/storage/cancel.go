package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"activityhub/services/booking-service/internal/model"
	"activityhub/services/booking-service/internal/outbox"

	"github.com/jackc/pgx/v5"
)

// CancelOwn cancels a member's own confirmed booking. It runs under the same
// per-user lock as admissions, because a cancellation changes exactly the
// state (quota count, held intervals) a concurrent admission is reading.
// Cancelling an already-cancelled booking is a no-op returning the record.
func (r *BookingRepository) CancelOwn(ctx context.Context, userID, bookingID string) (model.Booking, error) {
	var b model.Booking
	err := r.pool.InTx(ctx, func(tx pgx.Tx) error {
		if err := lockUser(ctx, tx, userID); err != nil {
			return err
		}

		var cancelledAt *time.Time
		err := tx.QueryRow(ctx, `
			SELECT id::text, user_id::text, activity_id::text, status, booked_at, cancelled_at, created_at
			FROM bookings
			WHERE id = $1 AND user_id = $2
			FOR UPDATE
		`, bookingID, userID).Scan(&b.ID, &b.UserID, &b.ActivityID, &b.Status, &b.BookedAt, &cancelledAt, &b.CreatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrBookingNotFound
			}
			return err
		}
		b.CancelledAt = cancelledAt

		if b.Status == model.StatusCancelled {
			return nil
		}
		if b.Status != model.StatusConfirmed {
			return ErrNotCancellable
		}

		var at time.Time
		err = tx.QueryRow(ctx, `
			UPDATE bookings
			SET status = 'cancelled', cancelled_at = now()
			WHERE id = $1
			RETURNING cancelled_at
		`, b.ID).Scan(&at)
		if err != nil {
			return err
		}
		b.Status = model.StatusCancelled
		b.CancelledAt = &at

		payload, err := json.Marshal(map[string]any{
			"booking_id":   b.ID,
			"user_id":      b.UserID,
			"activity_id":  b.ActivityID,
			"cancelled_at": at.UTC().Format(time.RFC3339),
		})
		if err != nil {
			return err
		}
		return r.outbox.Insert(ctx, tx, outbox.Event{
			AggregateType: "booking",
			AggregateID:   b.ID,
			EventType:     outbox.EventBookingCancelled,
			Payload:       payload,
		})
	})
	if err != nil {
		return model.Booking{}, err
	}
	return b, nil
}
