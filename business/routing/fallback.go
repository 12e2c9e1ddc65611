package routing

import (
	"fmt"
	"math"

	"github.com/choresh/PspRouter-sub000/domain"
)

// scoreParts are the signed components of one fallback score.
type scoreParts struct {
	auth   float64
	fee    float64
	fixed  float64
	bias   float64
	sca    float64
	yellow float64
	risk   float64
}

func (p scoreParts) total() float64 {
	return p.auth - p.fee - p.fixed + p.bias + p.sca - p.yellow - p.risk
}

// fallbackParts computes the score components for one admissible
// candidate. The fixed-fee ratio divides by max(amount, 1) so a zero
// or sub-unit amount cannot blow the score up.
func fallbackParts(cfg Config, tx domain.Transaction, c domain.CandidateSnapshot, bias float64) scoreParts {
	p := scoreParts{
		auth:  cfg.WAuth * c.AuthRate,
		fee:   cfg.WFee * (float64(c.FeeBps) / 10000.0),
		fixed: cfg.WFixed * (c.FixedFee / math.Max(tx.Amount, 1)),
		bias:  cfg.WBias * bias,
		risk:  cfg.WRisk * (tx.RiskScore / 100.0),
	}
	if tx.SCARequired && tx.IsCard() && c.Supports3DS {
		p.sca = cfg.WSCA
	}
	if c.Health == domain.HealthYellow {
		p.yellow = cfg.WYellow
	}
	return p
}

// FallbackScore is the deterministic score used to rank admissible
// candidates when no proposer produced a valid decision.
func FallbackScore(cfg Config, tx domain.Transaction, c domain.CandidateSnapshot, bias float64) float64 {
	return fallbackParts(cfg, tx, c, bias).total()
}

type scoredCandidate struct {
	candidate domain.CandidateSnapshot
	score     float64
}

// rankFallback orders the admissible candidates by score. Strictly
// greater wins, so on ties the earlier input candidate stays first.
func rankFallback(cfg Config, tx domain.Transaction, admissible []domain.CandidateSnapshot, biasFor func(string) float64) []scoredCandidate {
	list := make([]scoredCandidate, 0, len(admissible))
	for _, c := range admissible {
		list = append(list, scoredCandidate{
			candidate: c,
			score:     FallbackScore(cfg, tx, c, biasFor(c.Name)),
		})
	}

	// sort by final score (simple selection)
	for i := 0; i < len(list); i++ {
		maxIdx := i
		for j := i + 1; j < len(list); j++ {
			if list[j].score > list[maxIdx].score {
				maxIdx = j
			}
		}
		list[i], list[maxIdx] = list[maxIdx], list[i]
	}
	return list
}

// fallbackDecision builds the deterministic decision from the ranked
// admissible set. Must only be called with a non-empty set.
func fallbackDecision(cfg Config, tx domain.Transaction, admissible []domain.CandidateSnapshot, decisionID string, biasFor func(string) float64) domain.RouteDecision {
	ranked := rankFallback(cfg, tx, admissible, biasFor)
	best := ranked[0]

	alternates := make([]string, 0, len(ranked)-1)
	for _, r := range ranked[1:] {
		alternates = append(alternates, r.candidate.Name)
	}

	reasoning := fmt.Sprintf(
		"deterministic fallback picked %s on %s: auth_rate=%.4f fee_bps=%d fixed_fee=%.2f score=%.4f",
		best.candidate.Name, tx.Method, best.candidate.AuthRate,
		best.candidate.FeeBps, best.candidate.FixedFee, best.score,
	)

	return domain.RouteDecision{
		SchemaVersion: domain.DecisionSchemaVersion,
		DecisionID:    decisionID,
		Candidate:     best.candidate.Name,
		Alternates:    alternates,
		Reasoning:     reasoning,
		Guardrail:     domain.GuardrailNone,
		Constraints: domain.DecisionConstraints{
			MustUse3DS:    tx.SCARequired && tx.IsCard(),
			RetryWindowMs: cfg.RetryWindowMs,
			MaxRetries:    cfg.MaxRetries,
		},
		FeaturesUsed: []string{
			fmt.Sprintf("auth_rate:%.4f", best.candidate.AuthRate),
			fmt.Sprintf("fee_bps:%d", best.candidate.FeeBps),
			"method:" + string(tx.Method),
		},
	}
}

// vetoDecision is the terminal decision when the guardrail admits
// nothing. Constraints stay empty.
func vetoDecision(decisionID string) domain.RouteDecision {
	return domain.RouteDecision{
		SchemaVersion: domain.DecisionSchemaVersion,
		DecisionID:    decisionID,
		Candidate:     domain.NoCandidate,
		Alternates:    []string{},
		Reasoning:     "no PSP passed the guardrail filter",
		Guardrail:     domain.GuardrailVetoNoPSP,
		Constraints:   domain.DecisionConstraints{},
		FeaturesUsed:  []string{},
	}
}
