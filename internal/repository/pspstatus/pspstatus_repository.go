package pspstatus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/choresh/PspRouter-sub000/business/routing"
	"github.com/choresh/PspRouter-sub000/domain"
)

// healthCacheTTL bounds how stale a health reading may be. The status
// service is polled at most once per PSP per TTL, off the per-decision
// path.
const healthCacheTTL = 10 * time.Second

type StatusConfig struct {
	StatusBaseURL string
	StatusAPIKey  string
}

// StatusRepository reads live PSP health and fee quotes from the
// payments status service.
type StatusRepository struct {
	statusConfig StatusConfig
	client       *http.Client

	mu     sync.RWMutex
	health map[string]cachedHealth
}

type cachedHealth struct {
	state     domain.PSPHealth
	latencyMs int64
	fetchedAt time.Time
}

var (
	_ routing.HealthProvider = (*StatusRepository)(nil)
	_ routing.FeeProvider    = (*StatusRepository)(nil)
)

func NewStatusRepository(cfg StatusConfig) *StatusRepository {
	return &StatusRepository{
		statusConfig: StatusConfig{
			StatusBaseURL: strings.TrimRight(cfg.StatusBaseURL, "/"),
			StatusAPIKey:  cfg.StatusAPIKey,
		},
		client: &http.Client{Timeout: 3 * time.Second},
		health: make(map[string]cachedHealth),
	}
}

type healthResponse struct {
	Health    string `json:"health"`
	LatencyMs int64  `json:"latency_ms"`
}

type feeResponse struct {
	FeeBps   int     `json:"fee_bps"`
	FixedFee float64 `json:"fixed_fee"`
}

// Health returns the PSP's traffic-light state and reported latency,
// serving from cache inside the TTL.
func (r *StatusRepository) Health(ctx context.Context, pspName string) (domain.PSPHealth, int64, error) {
	r.mu.RLock()
	cached, ok := r.health[pspName]
	r.mu.RUnlock()
	if ok && time.Since(cached.fetchedAt) < healthCacheTTL {
		return cached.state, cached.latencyMs, nil
	}

	endpoint := fmt.Sprintf("%s/psps/%s/status", r.statusConfig.StatusBaseURL, url.PathEscape(pspName))
	var decoded healthResponse
	if err := r.getJSON(ctx, endpoint, &decoded); err != nil {
		return "", 0, err
	}

	state := domain.PSPHealth(decoded.Health)
	switch state {
	case domain.HealthGreen, domain.HealthYellow, domain.HealthRed:
	default:
		return "", 0, fmt.Errorf("unknown psp health %q", decoded.Health)
	}

	r.mu.Lock()
	r.health[pspName] = cachedHealth{
		state:     state,
		latencyMs: decoded.LatencyMs,
		fetchedAt: time.Now(),
	}
	r.mu.Unlock()

	return state, decoded.LatencyMs, nil
}

// Fees quotes the corridor-specific fee schedule for one transaction.
func (r *StatusRepository) Fees(ctx context.Context, pspName string, tx domain.Transaction) (int, float64, error) {
	query := url.Values{}
	query.Set("currency", tx.Currency)
	query.Set("method", string(tx.Method))
	query.Set("buyer_country", tx.BuyerCountry)

	endpoint := fmt.Sprintf("%s/psps/%s/fees?%s",
		r.statusConfig.StatusBaseURL, url.PathEscape(pspName), query.Encode())

	var decoded feeResponse
	if err := r.getJSON(ctx, endpoint, &decoded); err != nil {
		return 0, 0, err
	}

	return decoded.FeeBps, decoded.FixedFee, nil
}

func (r *StatusRepository) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create status request: %w", err)
	}
	req.SetBasicAuth(r.statusConfig.StatusAPIKey, "")

	res, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("status service request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("failed to read status response: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("status service error (%d): %s", res.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode status response: %w", err)
	}

	return nil
}
