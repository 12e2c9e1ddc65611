//go:build !integration

package bandit

import (
	"math"
	"testing"

	"github.com/choresh/PspRouter-sub000/domain"
)

func TestRewardForOutcome_AuthorizedFastLowRisk(t *testing.T) {
	t.Parallel()

	// 1.0 - 2.70/120 + 0.1 = 1.0775 before the clamp
	outcome := domain.TransactionOutcome{
		Authorized:       true,
		Amount:           120.00,
		FeeAmount:        2.70,
		ProcessingTimeMs: 450,
		RiskScore:        20,
	}

	if got := RewardForOutcome(outcome); got != 1.0 {
		t.Fatalf("expected clamped reward 1.0, got %v", got)
	}
}

func TestRewardForOutcome_Components(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		outcome domain.TransactionOutcome
		want    float64
	}{
		{
			name: "declined with fee",
			outcome: domain.TransactionOutcome{
				Authorized:       false,
				Amount:           100,
				FeeAmount:        2.0,
				ProcessingTimeMs: 5000,
				RiskScore:        10,
			},
			want: -0.02,
		},
		{
			name: "999ms earns the speed bonus",
			outcome: domain.TransactionOutcome{
				Authorized:       true,
				Amount:           100,
				FeeAmount:        50,
				ProcessingTimeMs: 999,
			},
			want: 0.6,
		},
		{
			name: "1000ms does not",
			outcome: domain.TransactionOutcome{
				Authorized:       true,
				Amount:           100,
				FeeAmount:        50,
				ProcessingTimeMs: 1000,
			},
			want: 0.5,
		},
		{
			name: "risk 50 is not penalized",
			outcome: domain.TransactionOutcome{
				Authorized:       true,
				Amount:           100,
				FeeAmount:        50,
				ProcessingTimeMs: 2000,
				RiskScore:        50,
			},
			want: 0.5,
		},
		{
			name: "risk 51 is penalized",
			outcome: domain.TransactionOutcome{
				Authorized:       true,
				Amount:           100,
				FeeAmount:        50,
				ProcessingTimeMs: 2000,
				RiskScore:        51,
			},
			want: 0.3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RewardForOutcome(tt.outcome)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("expected reward %v, got %v", tt.want, got)
			}
		})
	}
}

func TestRewardForOutcome_ZeroAmountClampsToFloor(t *testing.T) {
	t.Parallel()

	// fee over the amount floor dwarfs everything else
	outcome := domain.TransactionOutcome{
		Authorized:       false,
		Amount:           0,
		FeeAmount:        0.30,
		ProcessingTimeMs: 200,
	}

	if got := RewardForOutcome(outcome); got != -1.0 {
		t.Fatalf("expected clamped reward -1.0, got %v", got)
	}
}

func TestRewardForOutcome_NaNCollapsesToZero(t *testing.T) {
	t.Parallel()

	outcome := domain.TransactionOutcome{
		Authorized: true,
		Amount:     math.NaN(),
		FeeAmount:  1,
	}

	if got := RewardForOutcome(outcome); got != 0 {
		t.Fatalf("expected NaN reward to collapse to 0, got %v", got)
	}
}
