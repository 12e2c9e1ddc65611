package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/choresh/PspRouter-sub000/business/routing"
)

const predictPath = "/predict"

// Repository calls the lightweight ML scorer that ranks candidates
// without an LLM round trip.
type Repository struct {
	baseURL string
	client  *http.Client
}

var _ routing.PredictorClient = (*Repository)(nil)

func NewPredictorRepository(baseURL string, timeoutMs int) *Repository {
	if timeoutMs <= 0 {
		timeoutMs = 300
	}
	return &Repository{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond},
	}
}

type predictResponse struct {
	Candidate  string   `json:"candidate"`
	Alternates []string `json:"alternates"`
	Confidence float64  `json:"confidence"`
}

func (r *Repository) PredictRoute(ctx context.Context, req routing.ReasonerRequest) (string, []string, float64, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", nil, 0, fmt.Errorf("failed to marshal predictor payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+predictPath, bytes.NewReader(body))
	if err != nil {
		return "", nil, 0, fmt.Errorf("failed to create predictor request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := r.client.Do(httpReq)
	if err != nil {
		return "", nil, 0, fmt.Errorf("predictor request failed: %w", err)
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return "", nil, 0, fmt.Errorf("failed to read predictor response: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		return "", nil, 0, fmt.Errorf("predictor error (%d): %s", res.StatusCode, string(resBody))
	}

	var decoded predictResponse
	if err := json.Unmarshal(resBody, &decoded); err != nil {
		return "", nil, 0, fmt.Errorf("failed to decode predictor response: %w", err)
	}
	if decoded.Candidate == "" {
		return "", nil, 0, fmt.Errorf("predictor returned no candidate")
	}

	return decoded.Candidate, decoded.Alternates, decoded.Confidence, nil
}
