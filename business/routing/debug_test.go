//go:build !integration

package routing

import (
	"context"
	"math"
	"testing"

	"github.com/choresh/PspRouter-sub000/domain"
)

func TestDebugDecide_ScoresEveryCandidate(t *testing.T) {
	svc, decisionRepo, _, engine := newTestService(t, nil)
	ctx := context.Background()

	engine.Update("US|USD|visa", "adyen", 0.5, nil)

	candidates := append(adyenStripeCandidates(), domain.CandidateSnapshot{
		Name: "worldpay", Supports: true, Health: domain.HealthRed,
	})

	dbg, err := svc.DebugDecide(ctx, cardTx(false), candidates)
	if err != nil {
		t.Fatalf("Failed to debug decide: %v", err)
	}

	if dbg.SegmentKey != "US|USD|visa" {
		t.Fatalf("expected segment US|USD|visa, got %q", dbg.SegmentKey)
	}
	if len(dbg.Candidates) != 3 {
		t.Fatalf("expected all candidates in the table, got %d", len(dbg.Candidates))
	}

	byName := map[string]domain.DebugCandidate{}
	for _, c := range dbg.Candidates {
		byName[c.Name] = c
	}

	adyen := byName["adyen"]
	if !adyen.Admissible || adyen.RejectReason != "" {
		t.Fatalf("expected adyen admissible, got %+v", adyen)
	}
	if math.Abs(adyen.AuthComponent-0.89) > 1e-9 {
		t.Fatalf("expected the auth component, got %v", adyen.AuthComponent)
	}
	if adyen.BanditCount != 1 || adyen.BanditMean != 0.5 {
		t.Fatalf("expected the learned statistics in the table, got %+v", adyen)
	}

	worldpay := byName["worldpay"]
	if worldpay.Admissible || worldpay.RejectReason != RejectHealthRed {
		t.Fatalf("expected worldpay rejected for red health, got %+v", worldpay)
	}
	if worldpay.Total != 0 {
		t.Fatalf("expected no score for an inadmissible candidate, got %v", worldpay.Total)
	}

	if dbg.Decision.Candidate != "adyen" {
		t.Fatalf("expected the deterministic pick, got %q", dbg.Decision.Candidate)
	}

	// debug never persists
	if _, ok, _ := decisionRepo.GetByDecisionID(ctx, dbg.Decision.DecisionID); ok {
		t.Fatal("expected the debug decision to stay unpersisted")
	}
}

func TestDebugDecide_VetoWhenNothingAdmissible(t *testing.T) {
	svc, _, _, _ := newTestService(t, nil)

	dbg, err := svc.DebugDecide(context.Background(), cardTx(false), []domain.CandidateSnapshot{
		{Name: "stripe", Supports: true, Health: domain.HealthRed},
	})
	if err != nil {
		t.Fatalf("Failed to debug decide: %v", err)
	}

	if !dbg.Decision.IsVeto() {
		t.Fatalf("expected a veto decision, got %+v", dbg.Decision)
	}
	if len(dbg.Candidates) != 1 || dbg.Candidates[0].Admissible {
		t.Fatalf("expected the rejected candidate in the table, got %+v", dbg.Candidates)
	}
}
