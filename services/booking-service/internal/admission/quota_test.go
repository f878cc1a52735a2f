package admission

import (
	"context"
	"errors"
	"testing"
	"time"

	"activityhub/services/booking-service/internal/tier"
)

type countFunc func(ctx context.Context, userID string, start, end time.Time) (int, error)

func (f countFunc) CountConfirmedInWindow(ctx context.Context, userID string, start, end time.Time) (int, error) {
	return f(ctx, userID, start, end)
}

func TestEvaluateQuotaUnlimitedSkipsCount(t *testing.T) {
	counter := countFunc(func(context.Context, string, time.Time, time.Time) (int, error) {
		t.Fatal("unlimited tiers must not hit the counter")
		return 0, nil
	})

	q, err := EvaluateQuota(context.Background(), counter, tier.DefaultCatalog(), "u1", tier.AdHoc, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !q.Unlimited || !q.Permits() {
		t.Fatalf("ad-hoc should be unlimited, got %+v", q)
	}
}

func TestEvaluateQuotaCountsCalendarWeek(t *testing.T) {
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

	var gotStart, gotEnd time.Time
	counter := countFunc(func(_ context.Context, _ string, start, end time.Time) (int, error) {
		gotStart, gotEnd = start, end
		return 1, nil
	})

	q, err := EvaluateQuota(context.Background(), counter, tier.DefaultCatalog(), "u1", tier.TwiceAWeek, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantStart, wantEnd := tier.WeekWindow(now)
	if !gotStart.Equal(wantStart) || !gotEnd.Equal(wantEnd) {
		t.Fatalf("counted window [%v, %v), want [%v, %v)", gotStart, gotEnd, wantStart, wantEnd)
	}
	if q.Limit != 2 || q.Used != 1 || q.Remaining != 1 {
		t.Fatalf("quota = %+v, want limit 2 used 1 remaining 1", q)
	}
	if !q.Permits() {
		t.Fatal("one of two slots used should still permit")
	}
}

func TestQuotaStatusPermits(t *testing.T) {
	tests := []struct {
		name string
		q    QuotaStatus
		want bool
	}{
		{"unlimited", QuotaStatus{Unlimited: true}, true},
		{"under limit", QuotaStatus{Limit: 2, Used: 1}, true},
		{"at limit", QuotaStatus{Limit: 2, Used: 2}, false},
		{"zero limit", QuotaStatus{Limit: 0, Used: 0}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.q.Permits(); got != tc.want {
				t.Fatalf("Permits() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEvaluateQuotaPropagatesCounterError(t *testing.T) {
	boom := errors.New("db down")
	counter := countFunc(func(context.Context, string, time.Time, time.Time) (int, error) {
		return 0, boom
	})

	_, err := EvaluateQuota(context.Background(), counter, tier.DefaultCatalog(), "u1", tier.OnceAWeek, time.Now())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want the counter's error", err)
	}
}
