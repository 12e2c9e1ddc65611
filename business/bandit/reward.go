package bandit

import (
	"math"

	"github.com/choresh/PspRouter-sub000/domain"
)

// rewardAmountFloor keeps the fee ratio finite for zero-amount
// transactions; the clamp then pins such outcomes to -1.
const rewardAmountFloor = 1e-6

// RewardForOutcome turns a settled transaction into a bounded learning
// signal: authorization dominates, fees subtract proportionally, fast
// processing earns a small bonus and high risk a small penalty.
func RewardForOutcome(o domain.TransactionOutcome) float64 {
	reward := 0.0
	if o.Authorized {
		reward = 1.0
	}

	reward -= o.FeeAmount / math.Max(o.Amount, rewardAmountFloor)

	if o.ProcessingTimeMs < 1000 {
		reward += 0.1
	}
	if o.RiskScore > 50 {
		reward -= 0.2
	}

	return clampReward(reward)
}

func clampReward(r float64) float64 {
	if math.IsNaN(r) {
		return 0
	}
	if r > 1.0 {
		return 1.0
	}
	if r < -1.0 {
		return -1.0
	}
	return r
}
