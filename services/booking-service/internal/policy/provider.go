package policy

import (
	"context"

	"activityhub/services/booking-service/internal/tier"
)

// Provider supplies tier quota overrides applied on top of the built-in
// catalog at startup. A negative override value means unlimited.
type Provider interface {
	QuotaOverrides(ctx context.Context) (map[tier.Tier]int, error)
}

type staticProvider struct {
	overrides map[tier.Tier]int
}

func NewStaticProvider(overrides map[tier.Tier]int) Provider {
	return &staticProvider{overrides: overrides}
}

func (p *staticProvider) QuotaOverrides(_ context.Context) (map[tier.Tier]int, error) {
	return p.overrides, nil
}
