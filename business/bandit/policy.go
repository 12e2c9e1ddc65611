package bandit

import (
	"math"
	"math/rand"

	exprand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

const contextualBonusWeight = 0.1

// epsilonGreedy explores a uniformly random arm with probability
// epsilon, otherwise exploits the highest observed mean reward. Ties
// resolve to the earliest arm in input order.
func epsilonGreedy(arms []string, stats []ArmStats, epsilon float64) string {
	if epsilon > 0 && rand.Float64() < epsilon {
		return arms[rand.Intn(len(arms))]
	}

	best := 0
	bestScore := stats[0].Mean()
	for i := 1; i < len(arms); i++ {
		if score := stats[i].Mean(); score > bestScore {
			best = i
			bestScore = score
		}
	}

	return arms[best]
}

// contextualScore is the contextual exploitation score: observed mean
// plus a bonus for arms whose learned feature centroids sit close to
// the live context. Never-pulled arms score 0.
func contextualScore(st ArmStats, features map[string]float64) float64 {
	if st.Count <= 0 {
		return 0
	}

	score := st.Mean()
	if len(features) == 0 {
		return score
	}

	bonus := 0.0
	for f, observed := range features {
		centroid := st.Centroids[f]
		// floor of 1 keeps the ratio defined when both sides are 0
		denom := math.Max(observed, math.Max(centroid, 1))
		bonus += 1 - math.Abs(observed-centroid)/denom
	}

	return score + contextualBonusWeight*bonus
}

// contextualGreedy is epsilon-greedy with the contextual exploitation
// score in place of the plain mean.
func contextualGreedy(arms []string, stats []ArmStats, epsilon float64, features map[string]float64) string {
	if epsilon > 0 && rand.Float64() < epsilon {
		return arms[rand.Intn(len(arms))]
	}

	best := 0
	bestScore := contextualScore(stats[0], features)
	for i := 1; i < len(arms); i++ {
		if score := contextualScore(stats[i], features); score > bestScore {
			best = i
			bestScore = score
		}
	}

	return arms[best]
}

// thompson draws one Beta(alpha, beta) sample per arm and picks the
// highest draw. Fresh arms carry the uniform Beta(1,1) prior, so wide
// posteriors explore themselves.
func thompson(arms []string, stats []ArmStats, src exprand.Source) string {
	best := 0
	bestSample := math.Inf(-1)
	for i := range arms {
		dist := distuv.Beta{Alpha: stats[i].Alpha, Beta: stats[i].Beta, Src: src}
		if sample := dist.Rand(); sample > bestSample {
			best = i
			bestSample = sample
		}
	}

	return arms[best]
}
