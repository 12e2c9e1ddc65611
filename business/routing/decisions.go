package routing

import (
	"context"
	"errors"
	"fmt"

	"github.com/choresh/PspRouter-sub000/domain"
)

// DecisionByID returns the persisted record for one decision.
func (s *RoutingService) DecisionByID(ctx context.Context, decisionID string) (domain.RouteDecisionRecord, error) {
	if decisionID == "" {
		return domain.RouteDecisionRecord{}, errors.New("decision_id is required")
	}

	rec, ok, err := s.decisionRepo.GetByDecisionID(ctx, decisionID)
	if err != nil {
		return domain.RouteDecisionRecord{}, fmt.Errorf("failed to load decision: %w", err)
	}
	if !ok {
		return domain.RouteDecisionRecord{}, errors.New("decision not found")
	}

	return rec, nil
}

// RecentDecisions lists a merchant's latest decisions, newest first.
func (s *RoutingService) RecentDecisions(ctx context.Context, merchantID string, limit int) ([]domain.RouteDecisionRecord, error) {
	if merchantID == "" {
		return nil, errors.New("merchant_id is required")
	}

	recs, err := s.decisionRepo.RecentByMerchant(ctx, merchantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}

	return recs, nil
}
