//go:build !integration

package routing

import (
	"testing"

	"github.com/choresh/PspRouter-sub000/domain"
)

func admissiblePair() []domain.CandidateSnapshot {
	return []domain.CandidateSnapshot{
		{Name: "adyen", Supports: true, Health: domain.HealthGreen},
		{Name: "stripe", Supports: true, Health: domain.HealthGreen},
	}
}

func validProposal() domain.RouteDecision {
	return domain.RouteDecision{
		SchemaVersion: domain.DecisionSchemaVersion,
		DecisionID:    "proposer-made-this-up",
		Candidate:     "stripe",
		Alternates:    []string{"adyen"},
		Reasoning:     "stripe has the better recent auth rate",
		Guardrail:     domain.GuardrailNone,
	}
}

func TestValidateProposal_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*domain.RouteDecision)
	}{
		{"missing schema version", func(d *domain.RouteDecision) { d.SchemaVersion = "" }},
		{"unsupported schema version", func(d *domain.RouteDecision) { d.SchemaVersion = "2.0" }},
		{"missing candidate", func(d *domain.RouteDecision) { d.Candidate = "" }},
		{"veto sentinel", func(d *domain.RouteDecision) { d.Candidate = domain.NoCandidate }},
		{"inadmissible candidate", func(d *domain.RouteDecision) { d.Candidate = "worldpay" }},
		{"missing reasoning", func(d *domain.RouteDecision) { d.Reasoning = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := validProposal()
			tt.mutate(&dec)

			if err := ValidateProposal(&dec, admissiblePair(), "issued-id"); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}

func TestValidateProposal_NormalizesAcceptedDecision(t *testing.T) {
	t.Parallel()

	dec := validProposal()
	dec.Guardrail = ""
	dec.Constraints.RetryWindowMs = -5
	dec.Constraints.MaxRetries = -1
	dec.FeaturesUsed = nil

	if err := ValidateProposal(&dec, admissiblePair(), "issued-id"); err != nil {
		t.Fatalf("expected the proposal to validate: %v", err)
	}

	// the router owns the id regardless of what came back
	if dec.DecisionID != "issued-id" {
		t.Fatalf("expected the issued decision id, got %q", dec.DecisionID)
	}
	if dec.Guardrail != domain.GuardrailNone {
		t.Fatalf("expected the empty guardrail to normalize, got %q", dec.Guardrail)
	}
	if dec.Constraints.RetryWindowMs != 0 || dec.Constraints.MaxRetries != 0 {
		t.Fatalf("expected negative constraints to clamp to 0, got %+v", dec.Constraints)
	}
	if dec.FeaturesUsed == nil {
		t.Fatal("expected a non-nil features list")
	}
}

func TestValidateProposal_FiltersAlternates(t *testing.T) {
	t.Parallel()

	dec := validProposal()
	// includes the chosen candidate, a duplicate and an off-list name
	dec.Alternates = []string{"stripe", "adyen", "adyen", "worldpay"}

	if err := ValidateProposal(&dec, admissiblePair(), "issued-id"); err != nil {
		t.Fatalf("expected the proposal to validate: %v", err)
	}

	if len(dec.Alternates) != 1 || dec.Alternates[0] != "adyen" {
		t.Fatalf("expected alternates to reduce to [adyen], got %v", dec.Alternates)
	}
}
