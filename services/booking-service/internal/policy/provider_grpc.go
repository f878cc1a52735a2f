//go:build protogen

package policy

import (
	"context"
	"log/slog"
	"time"

	"activityhub/libs/grpcx"
	membershipv1 "activityhub/protos/gen/membership/v1"
	"activityhub/services/booking-service/internal/tier"
)

type grpcProvider struct {
	client membershipv1.MembershipServiceClient
}

// NewMembershipPolicyProvider fetches quota overrides from the membership
// service when an address is configured, falling back to the static set when
// it is absent or unreachable.
func NewMembershipPolicyProvider(logger *slog.Logger, fallback map[tier.Tier]int, addr string) (Provider, error) {
	if addr == "" {
		return NewStaticProvider(fallback), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := grpcx.Dial(ctx, addr, grpcx.DialOptions{Timeout: 5 * time.Second})
	if err != nil {
		logger.Warn("grpc policy provider unavailable, using fallback", "err", err)
		return NewStaticProvider(fallback), nil
	}

	logger.Info("grpc policy provider enabled", "addr", addr)
	return &grpcProvider{client: membershipv1.NewMembershipServiceClient(conn)}, nil
}

func (p *grpcProvider) QuotaOverrides(ctx context.Context) (map[tier.Tier]int, error) {
	resp, err := p.client.GetTierPolicy(ctx, &membershipv1.TierPolicyRequest{})
	if err != nil {
		return nil, err
	}
	overrides := make(map[tier.Tier]int, len(resp.GetQuotas()))
	for _, q := range resp.GetQuotas() {
		t, ok := tier.Normalize(q.GetTier())
		if !ok {
			continue
		}
		if q.GetUnlimited() {
			overrides[t] = tier.Unlimited
			continue
		}
		overrides[t] = int(q.GetWeeklyLimit())
	}
	return overrides, nil
}
