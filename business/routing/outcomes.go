package routing

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/choresh/PspRouter-sub000/business/bandit"
	"github.com/choresh/PspRouter-sub000/domain"
	"github.com/choresh/PspRouter-sub000/pkg/logger"

	"gorm.io/datatypes"
)

//  Feedback / learning

// RecordOutcome joins a transaction outcome back to its decision,
// updates the bandit statistics exactly once and persists the outcome
// for the auth-rate window.
func (s *RoutingService) RecordOutcome(ctx context.Context, outcome domain.TransactionOutcome) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	if outcome.DecisionID == "" {
		return fmt.Errorf("decision_id is required")
	}
	if outcome.PSPName == "" {
		return fmt.Errorf("psp_name is required")
	}

	// 1) join back to the decision for the segment key
	rec, ok, err := s.decisionRepo.GetByDecisionID(ctx, outcome.DecisionID)
	if err != nil {
		return fmt.Errorf("failed to load decision %s: %w", outcome.DecisionID, err)
	}
	if !ok {
		return fmt.Errorf("unknown decision id %s", outcome.DecisionID)
	}
	if rec.Candidate == domain.NoCandidate {
		return fmt.Errorf("decision %s was a veto; no outcome expected", outcome.DecisionID)
	}

	segKey := rec.SegmentKey

	// 2) compute the bounded reward
	reward := bandit.RewardForOutcome(outcome)

	now := time.Now()
	if outcome.ProcessedAt.IsZero() {
		outcome.ProcessedAt = now
	}

	// convert outcome.Context (JSONMap) into plain map[string]any for merging
	outcomeCtxMap := map[string]any{}
	if outcome.Context != nil {
		for k, v := range outcome.Context {
			outcomeCtxMap[k] = v
		}
	}

	baseCtx := map[string]any{
		"segment":         segKey,
		"decision_method": rec.Method,
		"merchant_id":     rec.MerchantID,
		"reward":          reward,
		"event_time":      now.Format(time.RFC3339),
	}

	// merged outcome context = base + reporter-provided context
	outcome.Context = datatypes.JSONMap(mergeContext(baseCtx, outcomeCtxMap))

	tid := TraceIDFromContext(ctx)
	logger.Debug("route_outcome",
		"trace_id", tid,
		"decision_id", outcome.DecisionID,
		"psp", outcome.PSPName,
		"authorized", outcome.Authorized,
		"segment", segKey,
		"reward", reward,
	)

	// 3) one atomic statistics update for this outcome
	if s.engine != nil {
		s.engine.Update(segKey, outcome.PSPName, reward, trackedFeatures(outcome.Amount, outcome.RiskScore))
	}

	// 4) persist the raw outcome
	if err := s.outcomeRepo.SaveOutcome(ctx, outcome); err != nil {
		return fmt.Errorf("failed to save transaction outcome: %w", err)
	}

	s.distillLesson(ctx, rec, outcome)

	// increment Prometheus counter AFTER we successfully process the outcome
	OutcomeEventsTotal.
		WithLabelValues(outcome.PSPName, strconv.FormatBool(outcome.Authorized)).
		Inc()

	return nil
}

// distillLesson turns a decline into a retrievable lesson so the
// reasoner can see it on later similar transactions.
func (s *RoutingService) distillLesson(ctx context.Context, rec domain.RouteDecisionRecord, outcome domain.TransactionOutcome) {
	if s.lessonRepo == nil || outcome.Authorized {
		return
	}

	detail := outcome.ErrorCode
	if detail == "" {
		detail = "declined"
	}

	text := fmt.Sprintf("%s declined on segment %s: %s (amount %.2f, risk %.0f)",
		outcome.PSPName, rec.SegmentKey, detail, outcome.Amount, outcome.RiskScore)

	lesson := domain.Lesson{
		Key:  "lesson:" + outcome.DecisionID,
		Text: text,
		Metadata: map[string]any{
			"decision_id": outcome.DecisionID,
			"psp":         outcome.PSPName,
			"segment":     rec.SegmentKey,
			"error_code":  outcome.ErrorCode,
		},
		CreatedAt: time.Now(),
	}

	if err := s.lessonRepo.Add(ctx, lesson); err != nil {
		logger.Warn("Failed to store lesson", "decision_id", outcome.DecisionID, "error", err)
	}
}
