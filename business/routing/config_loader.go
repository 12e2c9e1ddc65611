package routing

import (
	"context"
	"time"

	"github.com/choresh/PspRouter-sub000/domain"
)

// main entry point used by Decide / RecordOutcome / DebugDecide
func (s *RoutingService) loadConfigForSegment(ctx context.Context, segmentKey string) Config {
	// 1) global default row (segment "")
	cfg := s.loadConfig(ctx, "", s.defaultCfg)

	// 2) segment-specific overrides on top
	return s.loadConfig(ctx, segmentKey, cfg)
}

// read config for a given segment from repo, layering it over base
func (s *RoutingService) loadConfig(ctx context.Context, segment string, base Config) Config {
	if s.cfgRepo == nil {
		return base
	}

	dbCfg, ok, err := s.cfgRepo.GetConfig(ctx, segment)
	if err != nil || !ok {
		return base
	}

	// start from base to keep sane fallbacks for any missing fields
	cfg := base

	if dbCfg.Policy != "" {
		cfg.Policy = dbCfg.Policy
	}
	if dbCfg.Proposer != "" {
		cfg.Proposer = dbCfg.Proposer
	}
	cfg.Epsilon = dbCfg.Epsilon

	cfg.WAuth = dbCfg.WAuth
	cfg.WFee = dbCfg.WFee
	cfg.WFixed = dbCfg.WFixed
	cfg.WBias = dbCfg.WBias
	cfg.WSCA = dbCfg.WSCA
	cfg.WYellow = dbCfg.WYellow
	cfg.WRisk = dbCfg.WRisk

	if dbCfg.RetryWindowMs > 0 {
		cfg.RetryWindowMs = dbCfg.RetryWindowMs
	}
	cfg.MaxRetries = dbCfg.MaxRetries
	if dbCfg.ReasonerTimeoutMs > 0 {
		cfg.ProposerTimeout = time.Duration(dbCfg.ReasonerTimeoutMs) * time.Millisecond
	}

	return cfg
}

// methodFor maps a proposer name to the decision method recorded when
// that proposer's decision is accepted.
func methodFor(proposer string) string {
	switch proposer {
	case domain.ProposerPredictor:
		return domain.DecisionByPredictor
	case domain.ProposerBandit:
		return domain.DecisionByBandit
	default:
		return domain.DecisionByReasoner
	}
}
