//go:build !protogen

package policy

import (
	"log/slog"

	"activityhub/services/booking-service/internal/tier"
)

func NewMembershipPolicyProvider(_ *slog.Logger, fallback map[tier.Tier]int, _ string) (Provider, error) {
	return NewStaticProvider(fallback), nil
}
