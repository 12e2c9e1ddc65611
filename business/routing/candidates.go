package routing

import (
	"context"
	"fmt"
	"time"

	"github.com/choresh/PspRouter-sub000/domain"
	"github.com/choresh/PspRouter-sub000/pkg/logger"
)

// defaultAuthRate is the neutral prior used for a PSP with no outcomes
// inside the trailing window.
const defaultAuthRate = 0.5

// assembleCandidates returns the snapshots to route over. A caller-
// provided list wins; otherwise snapshots are built live from the PSP
// catalog, the trailing auth-rate window and the health/fee providers.
// An empty result is not an error here; the guardrail turns it into a
// veto decision.
func (s *RoutingService) assembleCandidates(
	ctx context.Context,
	tx domain.Transaction,
	provided []domain.CandidateSnapshot,
) ([]domain.CandidateSnapshot, error) {
	if len(provided) > 0 {
		return provided, nil
	}
	if s.catalogRepo == nil {
		return []domain.CandidateSnapshot{}, nil
	}

	profiles, err := s.catalogRepo.FindAllActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load psp catalog: %w", err)
	}

	rates := s.authRates(ctx)

	out := make([]domain.CandidateSnapshot, 0, len(profiles))
	for _, p := range profiles {
		c := domain.CandidateSnapshot{
			Name:           p.Name,
			Supports:       p.SupportsMethod(tx.Method),
			Health:         domain.HealthGreen,
			AuthRate:       defaultAuthRate,
			FeeBps:         p.FeeBps,
			FixedFee:       p.FixedFee,
			Supports3DS:    p.Supports3DS,
			SupportsTokens: p.SupportsTokens,
		}

		if rate, ok := rates[p.Name]; ok {
			c.AuthRate = rate
		}

		if s.healthProv != nil {
			health, _, herr := s.healthProv.Health(ctx, p.Name)
			if herr != nil {
				logger.Warn("Failed to read PSP health", "psp", p.Name, "error", herr)
			} else {
				c.Health = health
				if health == domain.HealthRed {
					s.alertRedHealth(p.Name)
				}
			}
		}

		if s.feeProv != nil {
			feeBps, fixedFee, ferr := s.feeProv.Fees(ctx, p.Name, tx)
			if ferr != nil {
				logger.Debug("route_fee_quote_failed", "psp", p.Name, "error", ferr)
			} else {
				c.FeeBps = feeBps
				c.FixedFee = fixedFee
			}
		}

		out = append(out, c)
	}

	return out, nil
}

// authRates loads the trailing authorization rate per PSP. Failures
// degrade to the neutral prior rather than failing the decision.
func (s *RoutingService) authRates(ctx context.Context) map[string]float64 {
	if s.outcomeRepo == nil {
		return map[string]float64{}
	}

	window := s.defaultCfg.AuthRateWindow
	if window <= 0 {
		window = defaultAuthRateWindow
	}

	windows, err := s.outcomeRepo.AuthRateWindows(ctx, time.Now().Add(-window))
	if err != nil {
		logger.Warn("Failed to load auth rate windows", "error", err)
		return map[string]float64{}
	}

	out := make(map[string]float64, len(windows))
	for _, w := range windows {
		out[w.PSPName] = w.Rate
	}
	return out
}

// alertRedHealth notifies operators off the hot path. The notifier
// rate-limits repeats.
func (s *RoutingService) alertRedHealth(psp string) {
	if s.notifier == nil {
		return
	}
	go func() {
		subject := fmt.Sprintf("PSP %s health is red", psp)
		message := fmt.Sprintf("PSP %s reported red health and was excluded from routing at %s.",
			psp, time.Now().Format(time.RFC3339))
		if err := s.notifier.SendAlert(subject, message); err != nil {
			logger.Warn("Failed to send health alert", "psp", psp, "error", err)
		}
	}()
}
