package storage

import (
	"context"
	"time"

	"activityhub/services/booking-service/internal/model"
)

// BookingWithActivity joins a booking with the display fields of its activity.
type BookingWithActivity struct {
	model.Booking
	ActivityTitle string
	ActivityStart time.Time
	ActivityEnd   time.Time
}

func (r *BookingRepository) ListByUser(ctx context.Context, userID string, limit int) ([]BookingWithActivity, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT b.id::text, b.user_id::text, b.activity_id::text, b.status, b.booked_at,
			b.cancelled_at, b.created_at, a.title, a.start_time, a.end_time
		FROM bookings b
		JOIN activities a ON a.id = b.activity_id
		WHERE b.user_id = $1
		ORDER BY a.start_time DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []BookingWithActivity
	for rows.Next() {
		var it BookingWithActivity
		var cancelledAt *time.Time
		if err := rows.Scan(
			&it.ID,
			&it.UserID,
			&it.ActivityID,
			&it.Status,
			&it.BookedAt,
			&cancelledAt,
			&it.CreatedAt,
			&it.ActivityTitle,
			&it.ActivityStart,
			&it.ActivityEnd,
		); err != nil {
			return nil, err
		}
		it.CancelledAt = cancelledAt
		items = append(items, it)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}
