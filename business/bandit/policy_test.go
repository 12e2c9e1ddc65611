//go:build !integration

package bandit

import (
	"math"
	"testing"

	exprand "golang.org/x/exp/rand"
)

func statsWithMeans(means ...float64) []ArmStats {
	out := make([]ArmStats, len(means))
	for i, m := range means {
		out[i] = ArmStats{Count: 10, Sum: m * 10, Alpha: 1, Beta: 1}
	}
	return out
}

func TestEpsilonGreedy_ExploitPicksHighestMean(t *testing.T) {
	arms := []string{"stripe", "adyen", "worldpay"}
	stats := statsWithMeans(0.2, 0.8, 0.5)

	if got := epsilonGreedy(arms, stats, 0); got != "adyen" {
		t.Fatalf("expected adyen, got %q", got)
	}
}

func TestEpsilonGreedy_TiesKeepFirstArm(t *testing.T) {
	arms := []string{"stripe", "adyen", "worldpay"}
	stats := statsWithMeans(0.5, 0.5, 0.5)

	for i := 0; i < 20; i++ {
		if got := epsilonGreedy(arms, stats, 0); got != "stripe" {
			t.Fatalf("expected ties to keep the first arm, got %q", got)
		}
	}
}

func TestEpsilonGreedy_UnseenArmScoresZero(t *testing.T) {
	arms := []string{"losing", "fresh"}
	stats := []ArmStats{
		{Count: 10, Sum: -3, Alpha: 1, Beta: 1},
		newArmStats(),
	}

	// 0 beats a negative observed mean
	if got := epsilonGreedy(arms, stats, 0); got != "fresh" {
		t.Fatalf("expected the unseen arm, got %q", got)
	}
}

func TestEpsilonGreedy_FullExplorationCoversAllArms(t *testing.T) {
	arms := []string{"a", "b", "c"}
	stats := statsWithMeans(0.9, 0.1, 0.1)

	picks := make(map[string]int)
	for i := 0; i < 3000; i++ {
		picks[epsilonGreedy(arms, stats, 1.0)]++
	}

	for _, arm := range arms {
		if picks[arm] == 0 {
			t.Fatalf("expected full exploration to reach %q, picks=%v", arm, picks)
		}
	}
	t.Logf("exploration spread: %v", picks)
}

func TestContextualScore_NeverPulledScoresZero(t *testing.T) {
	st := newArmStats()
	features := map[string]float64{"amount": 120}

	if got := contextualScore(st, features); got != 0 {
		t.Fatalf("expected 0 for a never-pulled arm, got %v", got)
	}
}

func TestContextualScore_NoFeaturesReturnsMean(t *testing.T) {
	st := ArmStats{Count: 4, Sum: 2, Alpha: 1, Beta: 1}

	if got := contextualScore(st, nil); got != 0.5 {
		t.Fatalf("expected the bare mean 0.5, got %v", got)
	}
}

func TestContextualScore_MatchingCentroidsEarnFullBonus(t *testing.T) {
	st := ArmStats{
		Count:     5,
		Sum:       2.5,
		Alpha:     1,
		Beta:      1,
		Centroids: map[string]float64{"amount": 120, "risk_score": 20},
	}
	features := map[string]float64{"amount": 120, "risk_score": 20}

	// mean 0.5 plus 0.1 per exactly-matching feature
	want := 0.5 + contextualBonusWeight*2
	if got := contextualScore(st, features); math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestContextualScore_DenominatorFloor(t *testing.T) {
	st := ArmStats{Count: 2, Sum: 1, Alpha: 1, Beta: 1}
	features := map[string]float64{"risk_score": 0.5}

	// centroid 0, observed 0.5: denom floors at 1, bonus 1-0.5
	want := 0.5 + contextualBonusWeight*0.5
	if got := contextualScore(st, features); math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestContextualGreedy_PrefersCloserCentroid(t *testing.T) {
	arms := []string{"far", "near"}
	stats := []ArmStats{
		{Count: 10, Sum: 5, Alpha: 1, Beta: 1, Centroids: map[string]float64{"amount": 900}},
		{Count: 10, Sum: 5, Alpha: 1, Beta: 1, Centroids: map[string]float64{"amount": 100}},
	}
	features := map[string]float64{"amount": 100}

	if got := contextualGreedy(arms, stats, 0, features); got != "near" {
		t.Fatalf("expected the arm with the matching centroid, got %q", got)
	}
}

func TestThompson_ExtremePosteriorsDominate(t *testing.T) {
	arms := []string{"strong", "weak"}
	stats := []ArmStats{
		{Count: 99, Sum: 90, Alpha: 100, Beta: 1},
		{Count: 99, Sum: 5, Alpha: 1, Beta: 100},
	}

	src := exprand.NewSource(42)
	for i := 0; i < 200; i++ {
		if got := thompson(arms, stats, src); got != "strong" {
			t.Fatalf("draw %d picked %q against a Beta(100,1) vs Beta(1,100) posterior", i, got)
		}
	}
}

func TestThompson_UniformPriorExploresBothArms(t *testing.T) {
	arms := []string{"a", "b"}
	stats := []ArmStats{newArmStats(), newArmStats()}

	src := exprand.NewSource(7)
	picks := make(map[string]int)
	for i := 0; i < 200; i++ {
		picks[thompson(arms, stats, src)]++
	}

	if picks["a"] == 0 || picks["b"] == 0 {
		t.Fatalf("expected the uniform prior to reach both arms, picks=%v", picks)
	}
	t.Logf("uniform prior spread: %v", picks)
}
