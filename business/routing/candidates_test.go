//go:build !integration

package routing

import (
	"context"
	"errors"
	"testing"

	"github.com/choresh/PspRouter-sub000/business/bandit"
	"github.com/choresh/PspRouter-sub000/domain"
)

type fakeCatalogRepo struct {
	profiles []domain.PSPProfile
	err      error
}

func (f *fakeCatalogRepo) FindAllActive(ctx context.Context) ([]domain.PSPProfile, error) {
	return f.profiles, f.err
}

type fakeHealthProvider struct {
	health map[string]domain.PSPHealth
}

func (f *fakeHealthProvider) Health(ctx context.Context, pspName string) (domain.PSPHealth, int64, error) {
	h, ok := f.health[pspName]
	if !ok {
		return "", 0, errors.New("no status")
	}
	return h, 120, nil
}

type fakeFeeProvider struct {
	feeBps   map[string]int
	fixedFee map[string]float64
}

func (f *fakeFeeProvider) Fees(ctx context.Context, pspName string, tx domain.Transaction) (int, float64, error) {
	bps, ok := f.feeBps[pspName]
	if !ok {
		return 0, 0, errors.New("no schedule")
	}
	return bps, f.fixedFee[pspName], nil
}

func catalogProfiles() []domain.PSPProfile {
	return []domain.PSPProfile{
		{Name: "adyen", Methods: "card,wallet", FeeBps: 200, FixedFee: 0.30, Supports3DS: true, Active: true},
		{Name: "stripe", Methods: "card", FeeBps: 180, FixedFee: 0.25, Supports3DS: true, Active: true},
		{Name: "paypal", Methods: "wallet", FeeBps: 340, FixedFee: 0.49, Active: true},
	}
}

func newAssemblyService(t *testing.T, catalog *fakeCatalogRepo, health *fakeHealthProvider, fees *fakeFeeProvider, outcomes *fakeOutcomeRepo) *RoutingService {
	t.Helper()

	var catalogRepo CatalogRepository
	if catalog != nil {
		catalogRepo = catalog
	}
	var healthProv HealthProvider
	if health != nil {
		healthProv = health
	}
	var feeProv FeeProvider
	if fees != nil {
		feeProv = fees
	}

	return NewRoutingService(
		newFakeDecisionRepo(), outcomes,
		nil, catalogRepo, nil,
		healthProv, feeProv,
		nil, nil,
		bandit.NewEngine(nil), nil, DefaultConfig(),
	)
}

func TestAssembleCandidates_ProvidedListWins(t *testing.T) {
	catalog := &fakeCatalogRepo{profiles: catalogProfiles()}
	svc := newAssemblyService(t, catalog, nil, nil, &fakeOutcomeRepo{})

	provided := []domain.CandidateSnapshot{{Name: "checkout", Supports: true, Health: domain.HealthGreen}}
	got, err := svc.assembleCandidates(context.Background(), cardTx(false), provided)
	if err != nil {
		t.Fatalf("Failed to assemble candidates: %v", err)
	}

	if len(got) != 1 || got[0].Name != "checkout" {
		t.Fatalf("expected the caller-provided list to win, got %v", got)
	}
}

func TestAssembleCandidates_BuildsFromCatalog(t *testing.T) {
	catalog := &fakeCatalogRepo{profiles: catalogProfiles()}
	outcomes := &fakeOutcomeRepo{
		windows: []domain.AuthRateWindow{
			{PSPName: "adyen", Total: 200, Authorized: 178, Rate: 0.89},
		},
	}
	svc := newAssemblyService(t, catalog, nil, nil, outcomes)

	got, err := svc.assembleCandidates(context.Background(), cardTx(false), nil)
	if err != nil {
		t.Fatalf("Failed to assemble candidates: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected all catalog entries, got %d", len(got))
	}

	byName := map[string]domain.CandidateSnapshot{}
	for _, c := range got {
		byName[c.Name] = c
	}

	// capability follows the method list for a card transaction
	if !byName["adyen"].Supports || !byName["stripe"].Supports || byName["paypal"].Supports {
		t.Fatalf("unexpected capability flags: %+v", byName)
	}
	// windowed auth rate where available, the neutral prior otherwise
	if byName["adyen"].AuthRate != 0.89 {
		t.Fatalf("expected the windowed auth rate, got %v", byName["adyen"].AuthRate)
	}
	if byName["stripe"].AuthRate != defaultAuthRate {
		t.Fatalf("expected the neutral prior, got %v", byName["stripe"].AuthRate)
	}
	// no providers configured: catalog fees and green health
	if byName["stripe"].FeeBps != 180 || byName["stripe"].Health != domain.HealthGreen {
		t.Fatalf("expected catalog defaults, got %+v", byName["stripe"])
	}
}

func TestAssembleCandidates_ProvidersOverrideCatalog(t *testing.T) {
	catalog := &fakeCatalogRepo{profiles: catalogProfiles()}
	health := &fakeHealthProvider{health: map[string]domain.PSPHealth{
		"adyen":  domain.HealthRed,
		"stripe": domain.HealthYellow,
	}}
	fees := &fakeFeeProvider{
		feeBps:   map[string]int{"stripe": 160},
		fixedFee: map[string]float64{"stripe": 0.20},
	}
	svc := newAssemblyService(t, catalog, health, fees, &fakeOutcomeRepo{})

	got, err := svc.assembleCandidates(context.Background(), cardTx(false), nil)
	if err != nil {
		t.Fatalf("Failed to assemble candidates: %v", err)
	}

	byName := map[string]domain.CandidateSnapshot{}
	for _, c := range got {
		byName[c.Name] = c
	}

	if byName["adyen"].Health != domain.HealthRed {
		t.Fatalf("expected the live health state, got %v", byName["adyen"].Health)
	}
	if byName["stripe"].Health != domain.HealthYellow {
		t.Fatalf("expected the live health state, got %v", byName["stripe"].Health)
	}
	// provider errors leave the catalog defaults in place
	if byName["paypal"].Health != domain.HealthGreen {
		t.Fatalf("expected green on a status miss, got %v", byName["paypal"].Health)
	}
	if byName["stripe"].FeeBps != 160 || byName["stripe"].FixedFee != 0.20 {
		t.Fatalf("expected the quoted fees, got %+v", byName["stripe"])
	}
	if byName["adyen"].FeeBps != 200 {
		t.Fatalf("expected catalog fees on a quote miss, got %+v", byName["adyen"])
	}
}

func TestAssembleCandidates_EmptyWithoutCatalog(t *testing.T) {
	svc := newAssemblyService(t, nil, nil, nil, &fakeOutcomeRepo{})

	got, err := svc.assembleCandidates(context.Background(), cardTx(false), nil)
	if err != nil {
		t.Fatalf("Failed to assemble candidates: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected an empty set without a catalog, got %v", got)
	}
}
