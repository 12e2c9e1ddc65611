package routing

import (
	"fmt"

	"github.com/choresh/PspRouter-sub000/domain"
)

// ValidateProposal checks a proposer decision against the wire schema
// and the admissible set, then normalizes the parts the router owns.
// Any error here triggers the deterministic fallback; it is never
// surfaced to the caller.
func ValidateProposal(dec *domain.RouteDecision, admissible []domain.CandidateSnapshot, decisionID string) error {
	if dec.SchemaVersion == "" {
		return fmt.Errorf("missing schemaVersion")
	}
	if dec.SchemaVersion != domain.DecisionSchemaVersion {
		return fmt.Errorf("unsupported schemaVersion %q", dec.SchemaVersion)
	}
	if dec.Candidate == "" {
		return fmt.Errorf("missing candidate")
	}
	if dec.Candidate == domain.NoCandidate {
		return fmt.Errorf("proposer returned the veto sentinel")
	}
	if !candidateIn(admissible, dec.Candidate) {
		return fmt.Errorf("candidate %q is not admissible", dec.Candidate)
	}
	if dec.Reasoning == "" {
		return fmt.Errorf("missing reasoning")
	}

	// the router issued the id; overwrite whatever came back so the
	// outcome join always works
	dec.DecisionID = decisionID

	if dec.Guardrail == "" {
		dec.Guardrail = domain.GuardrailNone
	}
	if dec.Constraints.RetryWindowMs < 0 {
		dec.Constraints.RetryWindowMs = 0
	}
	if dec.Constraints.MaxRetries < 0 {
		dec.Constraints.MaxRetries = 0
	}
	dec.Alternates = admissibleAlternates(dec.Alternates, admissible, dec.Candidate)
	if dec.FeaturesUsed == nil {
		dec.FeaturesUsed = []string{}
	}
	return nil
}

func candidateIn(admissible []domain.CandidateSnapshot, name string) bool {
	for _, c := range admissible {
		if c.Name == name {
			return true
		}
	}
	return false
}

// admissibleAlternates drops alternates the guardrail excluded along
// with duplicates and the chosen candidate itself.
func admissibleAlternates(alternates []string, admissible []domain.CandidateSnapshot, chosen string) []string {
	out := make([]string, 0, len(alternates))
	seen := map[string]bool{chosen: true}
	for _, name := range alternates {
		if seen[name] || !candidateIn(admissible, name) {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
