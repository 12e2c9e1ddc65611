//go:build !integration

package routing

import (
	"context"
	"strings"
	"testing"

	"github.com/choresh/PspRouter-sub000/business/bandit"
	"github.com/choresh/PspRouter-sub000/domain"
)

func banditProposalRequest(candidates []domain.CandidateSnapshot) ProposalRequest {
	return ProposalRequest{
		Context: domain.RouteContext{
			Transaction: cardTx(false),
			Candidates:  candidates,
		},
		DecisionID: "dec-bandit-1",
		SegmentKey: "US|USD|visa",
		Policy:     domain.PolicyEpsilonGreedy,
		Epsilon:    0,
		Constraints: domain.DecisionConstraints{
			RetryWindowMs: 60000,
			MaxRetries:    2,
		},
	}
}

func TestBanditProposer_PicksLearnedArm(t *testing.T) {
	engine := bandit.NewEngine(nil)
	for i := 0; i < 10; i++ {
		engine.Update("US|USD|visa", "stripe", 0.9, nil)
		engine.Update("US|USD|visa", "adyen", 0.1, nil)
	}

	proposers := BuildProposers(engine, nil, nil)
	proposer := proposers[domain.ProposerBandit]
	if proposer == nil {
		t.Fatal("expected the bandit proposer to be wired")
	}

	dec, err := proposer.Propose(context.Background(), banditProposalRequest(adyenStripeCandidates()))
	if err != nil {
		t.Fatalf("Failed to propose: %v", err)
	}

	if dec.Candidate != "stripe" {
		t.Fatalf("expected the learned arm, got %q", dec.Candidate)
	}
	if len(dec.Alternates) != 1 || dec.Alternates[0] != "adyen" {
		t.Fatalf("expected [adyen] as alternates, got %v", dec.Alternates)
	}
	if dec.DecisionID != "dec-bandit-1" {
		t.Fatalf("expected the issued decision id, got %q", dec.DecisionID)
	}
	if dec.SchemaVersion != domain.DecisionSchemaVersion {
		t.Fatalf("unexpected schema version %q", dec.SchemaVersion)
	}
	if !strings.Contains(dec.Reasoning, "stripe") {
		t.Fatalf("expected the pick in the reasoning, got %q", dec.Reasoning)
	}
	if dec.Constraints.RetryWindowMs != 60000 {
		t.Fatalf("expected the request constraints to carry over, got %+v", dec.Constraints)
	}

	// the proposal must survive schema validation untouched
	if err := ValidateProposal(&dec, adyenStripeCandidates(), "dec-bandit-1"); err != nil {
		t.Fatalf("expected the bandit proposal to validate: %v", err)
	}
}

func TestBanditProposer_CancelledContext(t *testing.T) {
	proposers := BuildProposers(bandit.NewEngine(nil), nil, nil)
	proposer := proposers[domain.ProposerBandit]

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := proposer.Propose(ctx, banditProposalRequest(adyenStripeCandidates())); err == nil {
		t.Fatal("expected an error for a cancelled context")
	}
}

func TestBuildProposers_NilClientsAbsent(t *testing.T) {
	proposers := BuildProposers(nil, nil, nil)
	if len(proposers) != 0 {
		t.Fatalf("expected no proposers without clients, got %v", proposers)
	}

	withEngine := BuildProposers(bandit.NewEngine(nil), nil, nil)
	if _, ok := withEngine[domain.ProposerBandit]; !ok {
		t.Fatal("expected the bandit proposer with an engine")
	}
	if _, ok := withEngine[domain.ProposerReasoner]; ok {
		t.Fatal("expected no reasoner proposer without a client")
	}
}

type fakePredictorClient struct {
	candidate  string
	alternates []string
	confidence float64
}

func (f *fakePredictorClient) PredictRoute(ctx context.Context, req ReasonerRequest) (string, []string, float64, error) {
	return f.candidate, f.alternates, f.confidence, nil
}

func TestPredictorProposer_BuildsDecisionDocument(t *testing.T) {
	client := &fakePredictorClient{candidate: "adyen", alternates: []string{"stripe"}, confidence: 0.93}
	proposers := BuildProposers(nil, nil, client)

	proposer := proposers[domain.ProposerPredictor]
	if proposer == nil {
		t.Fatal("expected the predictor proposer to be wired")
	}

	dec, err := proposer.Propose(context.Background(), banditProposalRequest(adyenStripeCandidates()))
	if err != nil {
		t.Fatalf("Failed to propose: %v", err)
	}

	if dec.Candidate != "adyen" {
		t.Fatalf("expected the predictor pick, got %q", dec.Candidate)
	}
	if !strings.Contains(dec.Reasoning, "0.9300") {
		t.Fatalf("expected the confidence in the reasoning, got %q", dec.Reasoning)
	}
	if err := ValidateProposal(&dec, adyenStripeCandidates(), "dec-bandit-1"); err != nil {
		t.Fatalf("expected the predictor proposal to validate: %v", err)
	}
}
