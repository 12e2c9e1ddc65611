//go:build !integration

package routing

import (
	"math"
	"testing"

	"github.com/choresh/PspRouter-sub000/domain"
)

func zeroBias(string) float64 { return 0 }

// weights used in the canonical two-PSP scoring scenario
func scoreOnlyConfig() Config {
	cfg := DefaultConfig()
	cfg.WAuth = 1
	cfg.WFee = 1
	cfg.WFixed = 1
	cfg.WBias = 0
	cfg.WSCA = 0
	cfg.WYellow = 0
	cfg.WRisk = 0
	return cfg
}

func adyenStripeCandidates() []domain.CandidateSnapshot {
	return []domain.CandidateSnapshot{
		{Name: "adyen", Supports: true, Health: domain.HealthGreen, AuthRate: 0.89, FeeBps: 200, FixedFee: 0.30, Supports3DS: true},
		{Name: "stripe", Supports: true, Health: domain.HealthGreen, AuthRate: 0.87, FeeBps: 180, FixedFee: 0.25, Supports3DS: true},
	}
}

func TestFallbackScore_TwoPSPScenario(t *testing.T) {
	cfg := scoreOnlyConfig()
	tx := cardTx(false)
	candidates := adyenStripeCandidates()

	adyen := FallbackScore(cfg, tx, candidates[0], 0)
	stripe := FallbackScore(cfg, tx, candidates[1], 0)

	// 0.89 - 0.02 - 0.30/120 and 0.87 - 0.018 - 0.25/120
	if math.Abs(adyen-0.8675) > 1e-9 {
		t.Fatalf("expected adyen score 0.8675, got %v", adyen)
	}
	if math.Abs(stripe-0.8499) > 1e-4 {
		t.Fatalf("expected stripe score near 0.8499, got %v", stripe)
	}
	if adyen <= stripe {
		t.Fatalf("expected adyen to outrank stripe: %v vs %v", adyen, stripe)
	}
}

func TestFallbackDecision_RanksByScore(t *testing.T) {
	cfg := scoreOnlyConfig()
	tx := cardTx(false)

	dec := fallbackDecision(cfg, tx, adyenStripeCandidates(), "dec-1", zeroBias)

	if dec.Candidate != "adyen" {
		t.Fatalf("expected adyen, got %q", dec.Candidate)
	}
	if len(dec.Alternates) != 1 || dec.Alternates[0] != "stripe" {
		t.Fatalf("expected [stripe] as alternates, got %v", dec.Alternates)
	}
	if dec.DecisionID != "dec-1" {
		t.Fatalf("expected the issued decision id, got %q", dec.DecisionID)
	}
	if dec.SchemaVersion != domain.DecisionSchemaVersion {
		t.Fatalf("unexpected schema version %q", dec.SchemaVersion)
	}
	if dec.Guardrail != domain.GuardrailNone {
		t.Fatalf("unexpected guardrail %q", dec.Guardrail)
	}
	if dec.Constraints.RetryWindowMs != cfg.RetryWindowMs || dec.Constraints.MaxRetries != cfg.MaxRetries {
		t.Fatalf("expected the retry contract from config, got %+v", dec.Constraints)
	}
	if dec.Constraints.MustUse3DS {
		t.Fatal("expected MustUse3DS false without SCA")
	}
	if dec.Reasoning == "" || len(dec.FeaturesUsed) == 0 {
		t.Fatalf("expected reasoning and features, got %+v", dec)
	}
}

func TestFallbackDecision_TiesKeepInputOrder(t *testing.T) {
	cfg := scoreOnlyConfig()
	tx := cardTx(false)
	twin := domain.CandidateSnapshot{Supports: true, Health: domain.HealthGreen, AuthRate: 0.9, FeeBps: 100, FixedFee: 0.1, Supports3DS: true}

	first, second := twin, twin
	first.Name = "first"
	second.Name = "second"

	dec := fallbackDecision(cfg, tx, []domain.CandidateSnapshot{first, second}, "dec-2", zeroBias)
	if dec.Candidate != "first" {
		t.Fatalf("expected the earlier candidate on a tie, got %q", dec.Candidate)
	}
}

func TestFallbackScore_YellowPenalty(t *testing.T) {
	cfg := scoreOnlyConfig()
	cfg.WYellow = 0.1
	tx := cardTx(false)

	green := domain.CandidateSnapshot{Name: "psp", Supports: true, Health: domain.HealthGreen, AuthRate: 0.9}
	yellow := green
	yellow.Health = domain.HealthYellow

	gap := FallbackScore(cfg, tx, green, 0) - FallbackScore(cfg, tx, yellow, 0)
	if math.Abs(gap-0.1) > 1e-9 {
		t.Fatalf("expected the yellow penalty to cost 0.1, got gap %v", gap)
	}
}

func TestFallbackDecision_BiasShiftsRanking(t *testing.T) {
	cfg := scoreOnlyConfig()
	cfg.WBias = 0.5
	tx := cardTx(false)

	biasFor := func(psp string) float64 {
		if psp == "stripe" {
			return 0.1
		}
		return 0
	}

	dec := fallbackDecision(cfg, tx, adyenStripeCandidates(), "dec-3", biasFor)
	if dec.Candidate != "stripe" {
		t.Fatalf("expected the merchant bias to flip the ranking, got %q", dec.Candidate)
	}
}

func TestFallbackScore_SCABonus(t *testing.T) {
	cfg := scoreOnlyConfig()
	cfg.WSCA = 0.05
	c := domain.CandidateSnapshot{Name: "psp", Supports: true, Health: domain.HealthGreen, AuthRate: 0.9, Supports3DS: true}

	gap := FallbackScore(cfg, cardTx(true), c, 0) - FallbackScore(cfg, cardTx(false), c, 0)
	if math.Abs(gap-0.05) > 1e-9 {
		t.Fatalf("expected the 3DS bonus to add 0.05 under SCA, got gap %v", gap)
	}
}

func TestFallbackScore_RiskPenalty(t *testing.T) {
	cfg := scoreOnlyConfig()
	cfg.WRisk = 0.2
	c := domain.CandidateSnapshot{Name: "psp", Supports: true, Health: domain.HealthGreen, AuthRate: 0.9}

	risky := cardTx(false)
	risky.RiskScore = 80
	calm := cardTx(false)

	gap := FallbackScore(cfg, calm, c, 0) - FallbackScore(cfg, risky, c, 0)
	if math.Abs(gap-0.16) > 1e-9 {
		t.Fatalf("expected risk 80 to cost 0.16, got gap %v", gap)
	}
}

func TestVetoDecision_Shape(t *testing.T) {
	dec := vetoDecision("dec-4")

	if dec.Candidate != domain.NoCandidate {
		t.Fatalf("expected the NONE sentinel, got %q", dec.Candidate)
	}
	if dec.Guardrail != domain.GuardrailVetoNoPSP {
		t.Fatalf("expected the veto guardrail, got %q", dec.Guardrail)
	}
	if !dec.IsVeto() {
		t.Fatal("expected IsVeto to report true")
	}
	if dec.DecisionID != "dec-4" {
		t.Fatalf("expected the issued decision id, got %q", dec.DecisionID)
	}
	if dec.Alternates == nil || len(dec.Alternates) != 0 {
		t.Fatalf("expected an empty non-nil alternates list, got %v", dec.Alternates)
	}
	if dec.FeaturesUsed == nil || len(dec.FeaturesUsed) != 0 {
		t.Fatalf("expected an empty non-nil features list, got %v", dec.FeaturesUsed)
	}
	if dec.Constraints != (domain.DecisionConstraints{}) {
		t.Fatalf("expected empty constraints, got %+v", dec.Constraints)
	}
}
