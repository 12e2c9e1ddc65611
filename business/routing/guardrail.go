package routing

import "github.com/choresh/PspRouter-sub000/domain"

// Guardrail reject reasons, surfaced by the debug endpoint.
const (
	RejectCapability    = "capability"
	RejectHealthRed     = "health:red"
	RejectHealthUnknown = "health:unknown"
	RejectNo3DS         = "sca:no_3ds"
)

// Admit reports whether one candidate may be attempted for the
// transaction, with a short reason when it may not. Health must be
// green or yellow; red or anything unrecognized is excluded.
func Admit(tx domain.Transaction, c domain.CandidateSnapshot) (bool, string) {
	if !c.Supports {
		return false, RejectCapability
	}
	if c.Health == domain.HealthRed {
		return false, RejectHealthRed
	}
	if c.Health != domain.HealthGreen && c.Health != domain.HealthYellow {
		return false, RejectHealthUnknown
	}
	if tx.SCARequired && tx.IsCard() && !c.Supports3DS {
		return false, RejectNo3DS
	}
	return true, ""
}

// FilterCandidates returns the admissible subset, preserving input
// order. No scoring happens here; the guardrail only excludes.
func FilterCandidates(tx domain.Transaction, candidates []domain.CandidateSnapshot) []domain.CandidateSnapshot {
	out := make([]domain.CandidateSnapshot, 0, len(candidates))
	for _, c := range candidates {
		if ok, _ := Admit(tx, c); ok {
			out = append(out, c)
		}
	}
	return out
}
