package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// UpsertMemberTier records a member's current tier as published by the
// membership service. Fed by the tier-update event consumer.
func (r *BookingRepository) UpsertMemberTier(ctx context.Context, userID, rawTier string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO member_tiers (user_id, tier)
		VALUES ($1, $2)
		ON CONFLICT (user_id)
		DO UPDATE SET tier = EXCLUDED.tier, updated_at = now()
	`, userID, rawTier)
	return err
}

// GetMemberTier returns the cached tier for a member, if known. The second
// return is false when no tier event has been seen for this user yet.
func (r *BookingRepository) GetMemberTier(ctx context.Context, userID string) (string, bool, error) {
	var raw string
	err := r.pool.QueryRow(ctx, `
		SELECT tier FROM member_tiers WHERE user_id = $1
	`, userID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return raw, true, nil
}
