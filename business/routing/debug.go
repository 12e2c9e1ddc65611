package routing

import (
	"context"
	"fmt"

	"github.com/choresh/PspRouter-sub000/business/bandit"
	"github.com/choresh/PspRouter-sub000/domain"
	"github.com/choresh/PspRouter-sub000/pkg/logger"

	"github.com/google/uuid"
)

// DebugDecide returns the full scoring table for inspection: every
// candidate with its guardrail verdict, fallback score components and
// bandit statistics. The external proposer is skipped and nothing is
// persisted, so the decision shown is the deterministic one.
func (s *RoutingService) DebugDecide(
	ctx context.Context,
	tx domain.Transaction,
	provided []domain.CandidateSnapshot,
) (domain.DebugDecision, error) {
	if err := ctx.Err(); err != nil {
		return domain.DebugDecision{}, fmt.Errorf("context error: %w", err)
	}

	// 1) same segment + config derivation as Decide
	segKey := bandit.SegmentKey(tx)
	cfg := s.loadConfigForSegment(ctx, segKey)

	candidates, err := s.assembleCandidates(ctx, tx, provided)
	if err != nil {
		return domain.DebugDecision{}, err
	}

	decisionID := uuid.NewString()
	merchant, haveMerchant := s.loadMerchant(ctx, tx.MerchantID)
	biasFor := biasFunc(merchant, haveMerchant)

	tid := TraceIDFromContext(ctx)
	logger.Debug("route_debug_decide",
		"trace_id", tid,
		"merchant_id", tx.MerchantID,
		"segment", segKey,
		"candidates", len(candidates),
	)

	// 2) score every candidate, admissible or not
	admissible := FilterCandidates(tx, candidates)
	table := make([]domain.DebugCandidate, 0, len(candidates))
	for _, c := range candidates {
		ok, reason := Admit(tx, c)
		dc := domain.DebugCandidate{
			Name:         c.Name,
			Admissible:   ok,
			RejectReason: reason,
		}

		if ok {
			parts := fallbackParts(cfg, tx, c, biasFor(c.Name))
			dc.AuthComponent = parts.auth
			dc.FeeComponent = parts.fee
			dc.FixedFeeComp = parts.fixed
			dc.BiasComponent = parts.bias
			dc.SCAComponent = parts.sca
			dc.HealthPenalty = parts.yellow
			dc.RiskPenalty = parts.risk
			dc.Total = parts.total()
		}

		if s.engine != nil {
			view := s.engine.ArmView(segKey, c.Name)
			dc.BanditCount = view.Count
			dc.BanditMean = view.AvgReward
		}

		table = append(table, dc)
	}

	// 3) the decision the fallback would make right now
	var dec domain.RouteDecision
	if len(admissible) == 0 {
		dec = vetoDecision(decisionID)
	} else {
		dec = fallbackDecision(cfg, tx, admissible, decisionID, biasFor)
	}

	return domain.DebugDecision{
		Decision:   dec,
		SegmentKey: segKey,
		Policy:     cfg.Policy,
		Proposer:   cfg.Proposer,
		Candidates: table,
	}, nil
}
