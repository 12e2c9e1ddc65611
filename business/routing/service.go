package routing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/choresh/PspRouter-sub000/business/bandit"
	"github.com/choresh/PspRouter-sub000/domain"
	"github.com/choresh/PspRouter-sub000/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ---- context helpers ----

// buildDecisionContext captures the transaction facts a decision read.
// The raw BIN never goes in here; it is stored encrypted in its own
// column.
func buildDecisionContext(tx domain.Transaction, dec domain.RouteDecision, cfg Config) map[string]any {
	return map[string]any{
		"buyer_country":    tx.BuyerCountry,
		"merchant_country": tx.MerchantCountry,
		"currency":         tx.Currency,
		"amount":           tx.Amount,
		"method":           string(tx.Method),
		"card_scheme":      tx.CardScheme,
		"sca_required":     tx.SCARequired,
		"risk_score":       tx.RiskScore,
		"policy":           cfg.Policy,
		"proposer":         cfg.Proposer,
		"features_used":    dec.FeaturesUsed,
		"event_time":       time.Now().Format(time.RFC3339),
	}
}

// mergeContext merges multiple maps into a new one.
func mergeContext(maps ...map[string]any) map[string]any {
	out := make(map[string]any)
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

// trackedFeatures are the numeric transaction features the contextual
// policy keeps centroids for. Decision and outcome sides must extract
// the same keys or the centroids drift.
func trackedFeatures(amount, riskScore float64) map[string]float64 {
	return map[string]float64{
		"amount":     amount,
		"risk_score": riskScore,
	}
}

func candidateNames(candidates []domain.CandidateSnapshot) []string {
	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		names = append(names, c.Name)
	}
	return names
}

// ---- Repository interfaces ----

type DecisionRepository interface {
	SaveDecision(ctx context.Context, rec domain.RouteDecisionRecord) error
	GetByDecisionID(ctx context.Context, decisionID string) (domain.RouteDecisionRecord, bool, error)
	RecentByMerchant(ctx context.Context, merchantID string, limit int) ([]domain.RouteDecisionRecord, error)
}

type OutcomeRepository interface {
	SaveOutcome(ctx context.Context, outcome domain.TransactionOutcome) error
	AuthRateWindows(ctx context.Context, since time.Time) ([]domain.AuthRateWindow, error)
}

type MerchantRepository interface {
	FindByMerchantID(ctx context.Context, merchantID string) (domain.Merchant, bool, error)
}

type CatalogRepository interface {
	FindAllActive(ctx context.Context) ([]domain.PSPProfile, error)
}

// HealthProvider reports live PSP health. Latency is informational;
// only the traffic-light state gates admission.
type HealthProvider interface {
	Health(ctx context.Context, pspName string) (domain.PSPHealth, int64, error)
}

// FeeProvider quotes the current fee schedule for a PSP and
// transaction, overriding the static catalog numbers.
type FeeProvider interface {
	Fees(ctx context.Context, pspName string, tx domain.Transaction) (feeBps int, fixedFee float64, err error)
}

// LessonRepository is the semantic memory over past outcomes. Search
// embeds the query text itself.
type LessonRepository interface {
	Search(ctx context.Context, query string, k int) ([]domain.LessonMatch, error)
	Add(ctx context.Context, lesson domain.Lesson) error
}

// AlertNotifier delivers operational alerts. Implementations own rate
// limiting and transport.
type AlertNotifier interface {
	SendAlert(subject, message string) error
}

// ---- Usecase / Service ----

type RoutingService struct {
	decisionRepo DecisionRepository
	outcomeRepo  OutcomeRepository
	merchantRepo MerchantRepository
	catalogRepo  CatalogRepository
	cfgRepo      ConfigRepository
	healthProv   HealthProvider
	feeProv      FeeProvider
	lessonRepo   LessonRepository
	notifier     AlertNotifier
	engine       *bandit.Engine
	proposers    map[string]CandidateProposer
	defaultCfg   Config
}

func NewRoutingService(
	decisionRepo DecisionRepository,
	outcomeRepo OutcomeRepository,
	merchantRepo MerchantRepository,
	catalogRepo CatalogRepository,
	cfgRepo ConfigRepository,
	healthProv HealthProvider,
	feeProv FeeProvider,
	lessonRepo LessonRepository,
	notifier AlertNotifier,
	engine *bandit.Engine,
	proposers map[string]CandidateProposer,
	defaultCfg Config,
) *RoutingService {
	return &RoutingService{
		decisionRepo: decisionRepo,
		outcomeRepo:  outcomeRepo,
		merchantRepo: merchantRepo,
		catalogRepo:  catalogRepo,
		cfgRepo:      cfgRepo,
		healthProv:   healthProv,
		feeProv:      feeProv,
		lessonRepo:   lessonRepo,
		notifier:     notifier,
		engine:       engine,
		proposers:    proposers,
		defaultCfg:   defaultCfg,
	}
}

//  Decision / serving

// Decide routes one transaction. Callers always get a well-formed
// decision unless the inputs themselves are unusable; proposer
// failures degrade to the deterministic fallback, an empty admissible
// set degrades to the veto decision.
func (s *RoutingService) Decide(
	ctx context.Context,
	tx domain.Transaction,
	provided []domain.CandidateSnapshot,
) (domain.RouteDecision, error) {
	if err := ctx.Err(); err != nil {
		return domain.RouteDecision{}, fmt.Errorf("context error: %w", err)
	}
	if tx.MerchantID == "" {
		return domain.RouteDecision{}, fmt.Errorf("merchant_id is required")
	}
	if tx.Currency == "" {
		return domain.RouteDecision{}, fmt.Errorf("currency is required")
	}
	if tx.Method == "" {
		return domain.RouteDecision{}, fmt.Errorf("payment method is required")
	}

	// 1) segment + config for this transaction
	segKey := bandit.SegmentKey(tx)
	cfg := s.loadConfigForSegment(ctx, segKey)

	// 2) candidate snapshots (caller-provided or assembled live)
	candidates, err := s.assembleCandidates(ctx, tx, provided)
	if err != nil {
		return domain.RouteDecision{}, err
	}

	decisionID := uuid.NewString()

	// 3) guardrail filter; empty set short-circuits to veto without
	// consulting any proposer or statistic
	admissible := FilterCandidates(tx, candidates)
	if len(admissible) == 0 {
		dec := vetoDecision(decisionID)
		s.persistDecision(ctx, tx, segKey, dec, domain.DecisionByVeto, cfg)
		RouteDecisionsTotal.WithLabelValues(domain.DecisionByVeto, segKey).Inc()
		return dec, nil
	}

	// 4) context for the proposer and the fallback bias
	merchant, haveMerchant := s.loadMerchant(ctx, tx.MerchantID)
	rc := s.buildRouteContext(ctx, tx, admissible, segKey, merchant, haveMerchant)

	tid := TraceIDFromContext(ctx)
	logger.Debug("route_decide",
		"trace_id", tid,
		"decision_id", decisionID,
		"merchant_id", tx.MerchantID,
		"segment", segKey,
		"proposer", cfg.Proposer,
		"policy", cfg.Policy,
		"candidates", len(candidates),
		"admissible", len(admissible),
	)

	// 5) attempt the configured proposer, then validate or fall back
	dec, method := s.attemptAndFallback(ctx, cfg, rc, segKey, decisionID, biasFunc(merchant, haveMerchant))

	s.persistDecision(ctx, tx, segKey, dec, method, cfg)
	RouteDecisionsTotal.WithLabelValues(method, segKey).Inc()
	return dec, nil
}

// attemptAndFallback runs the decision protocol after the guardrail:
// one bounded proposer attempt, schema validation, then the
// deterministic fallback if anything went sideways.
func (s *RoutingService) attemptAndFallback(
	ctx context.Context,
	cfg Config,
	rc domain.RouteContext,
	segKey string,
	decisionID string,
	biasFor func(string) float64,
) (domain.RouteDecision, string) {
	tx := rc.Transaction

	if proposer := s.proposerFor(cfg.Proposer); proposer != nil {
		timeout := cfg.ProposerTimeout
		if timeout <= 0 {
			timeout = defaultProposerTimeout
		}

		req := ProposalRequest{
			Context:    rc,
			DecisionID: decisionID,
			SegmentKey: segKey,
			Policy:     cfg.Policy,
			Epsilon:    cfg.Epsilon,
			Features:   trackedFeatures(tx.Amount, tx.RiskScore),
			Constraints: domain.DecisionConstraints{
				MustUse3DS:    tx.SCARequired && tx.IsCard(),
				RetryWindowMs: cfg.RetryWindowMs,
				MaxRetries:    cfg.MaxRetries,
			},
		}

		pctx, cancel := context.WithTimeout(ctx, timeout)
		proposal, err := proposer.Propose(pctx, req)
		cancel()

		tid := TraceIDFromContext(ctx)
		if err != nil {
			logger.Warn("route_proposer_failed",
				"trace_id", tid,
				"decision_id", decisionID,
				"proposer", proposer.Name(),
				"error", err,
			)
		} else if verr := ValidateProposal(&proposal, rc.Candidates, decisionID); verr != nil {
			logger.Warn("route_proposer_rejected",
				"trace_id", tid,
				"decision_id", decisionID,
				"proposer", proposer.Name(),
				"error", verr,
			)
		} else {
			return proposal, methodFor(cfg.Proposer)
		}
	}

	return fallbackDecision(cfg, tx, rc.Candidates, decisionID, biasFor), domain.DecisionByFallback
}

func (s *RoutingService) proposerFor(name string) CandidateProposer {
	if name == "" || name == domain.ProposerNone {
		return nil
	}
	return s.proposers[name]
}

// buildRouteContext assembles everything the proposer may read.
func (s *RoutingService) buildRouteContext(
	ctx context.Context,
	tx domain.Transaction,
	admissible []domain.CandidateSnapshot,
	segKey string,
	merchant domain.Merchant,
	haveMerchant bool,
) domain.RouteContext {
	rc := domain.RouteContext{
		Transaction: tx,
		Candidates:  admissible,
	}

	if s.engine != nil {
		rc.SegmentStats = s.engine.SegmentView(segKey, candidateNames(admissible))
	}
	if haveMerchant && merchant.Preferences != nil {
		rc.MerchantPrefs = map[string]any(merchant.Preferences)
	}

	if s.lessonRepo != nil && s.defaultCfg.LessonLimit > 0 {
		lessons, err := s.lessonRepo.Search(ctx, lessonQuery(tx), s.defaultCfg.LessonLimit)
		if err != nil {
			logger.Debug("route_lesson_search_failed", "segment", segKey, "error", err)
		} else {
			rc.Lessons = lessons
		}
	}

	return rc
}

func (s *RoutingService) loadMerchant(ctx context.Context, merchantID string) (domain.Merchant, bool) {
	if s.merchantRepo == nil || merchantID == "" {
		return domain.Merchant{}, false
	}
	m, ok, err := s.merchantRepo.FindByMerchantID(ctx, merchantID)
	if err != nil {
		logger.Warn("Failed to load merchant", "merchant_id", merchantID, "error", err)
		return domain.Merchant{}, false
	}
	return m, ok
}

func biasFunc(merchant domain.Merchant, haveMerchant bool) func(string) float64 {
	if !haveMerchant {
		return func(string) float64 { return 0 }
	}
	return merchant.BiasFor
}

// lessonQuery phrases the transaction the same way distilled lessons
// are phrased, so similar transactions recall them.
func lessonQuery(tx domain.Transaction) string {
	scheme := tx.CardScheme
	if scheme == "" {
		scheme = string(tx.Method)
	}
	return fmt.Sprintf("%s %s %s %s amount %.2f risk %.0f",
		tx.BuyerCountry, tx.Currency, tx.Method, scheme, tx.Amount, tx.RiskScore)
}

// persistDecision records the decision for analytics and the outcome
// join. Persistence failures are logged, never returned; the caller
// still gets the decision.
func (s *RoutingService) persistDecision(
	ctx context.Context,
	tx domain.Transaction,
	segKey string,
	dec domain.RouteDecision,
	method string,
	cfg Config,
) {
	if s.decisionRepo == nil {
		return
	}

	rec := domain.RouteDecisionRecord{
		DecisionID: dec.DecisionID,
		MerchantID: tx.MerchantID,
		SegmentKey: segKey,
		Candidate:  dec.Candidate,
		Alternates: strings.Join(dec.Alternates, ","),
		Guardrail:  dec.Guardrail,
		Method:     method,
		Reasoning:  dec.Reasoning,
		Context:    datatypes.JSONMap(buildDecisionContext(tx, dec, cfg)),
	}

	if tx.BIN != "" && s.defaultCfg.BINKey != "" {
		cipher, err := encryptBIN(tx.BIN, s.defaultCfg.BINKey)
		if err != nil {
			logger.Warn("Failed to encrypt BIN", "decision_id", dec.DecisionID, "error", err)
		} else {
			rec.BINCipher = cipher
		}
	}

	if err := s.decisionRepo.SaveDecision(ctx, rec); err != nil {
		logger.Error("Failed to save route decision", "decision_id", dec.DecisionID, "error", err)
	}
}
