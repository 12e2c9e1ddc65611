package reasoner

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
	"github.com/choresh/PspRouter-sub000/domain"
)

const (
	chatCompletionsPath = "/v1/chat/completions"
	retryInitialDelay   = 200 * time.Millisecond
	maxResponseTokens   = 512
)

const systemPrompt = `You are a payment routing analyst. Given a transaction and a list of admissible payment service providers, pick the single best provider.

Reply with ONLY a JSON object, no prose, matching exactly:
{"schemaVersion":"1.0","decisionId":"<echo the decisionId from the request>","candidate":"<name from candidates>","alternates":["<other candidate names, best first>"],"reasoning":"<2-4 sentences citing the metrics you weighed>","guardrail":"none","constraints":{"mustUse3ds":<bool>,"retryWindowMs":<int>,"maxRetries":<int>},"featuresUsed":["<metric tags you relied on>"]}

Rules:
- candidate MUST be one of the provided candidate names.
- Weigh authorization rate against fees; respect merchant preferences and any relevant lessons.
- If scaRequired is true for a card transaction, set mustUse3ds true.`

// Repository calls an OpenAI-compatible chat completions endpoint and
// decodes the reasoner's decision document.
type Repository struct {
	baseURL    string
	apiKey     string
	model      string
	maxRetries int
	client     *http.Client
}

var _ routing.ReasonerClient = (*Repository)(nil)

func NewReasonerRepository(baseURL, apiKey, model string, timeoutMs, maxRetries int) *Repository {
	if timeoutMs <= 0 {
		timeoutMs = 1500
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Repository{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		maxRetries: maxRetries,
		client:     &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond},
	}
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func (r *Repository) ProposeRoute(ctx context.Context, req routing.ReasonerRequest) (domain.RouteDecision, error) {
	if r.apiKey == "" {
		return domain.RouteDecision{}, fmt.Errorf("reasoner api key not set")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return domain.RouteDecision{}, fmt.Errorf("failed to marshal reasoner payload: %w", err)
	}

	body, err := json.Marshal(chatRequest{
		Model: r.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: string(payload)},
		},
		MaxTokens:      maxResponseTokens,
		Temperature:    0,
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return domain.RouteDecision{}, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryInitialDelay * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return domain.RouteDecision{}, ctx.Err()
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+chatCompletionsPath, bytes.NewReader(body))
		if err != nil {
			return domain.RouteDecision{}, fmt.Errorf("failed to create reasoner request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)

		res, err := r.client.Do(httpReq)
		if err != nil {
			lastErr = fmt.Errorf("reasoner request failed: %w", err)
			continue
		}

		resBody, err := io.ReadAll(res.Body)
		res.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read reasoner response: %w", err)
			continue
		}

		if res.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("reasoner error (%d): %s", res.StatusCode, string(resBody))
			if res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= 500 {
				continue
			}
			return domain.RouteDecision{}, lastErr
		}

		var decoded chatResponse
		if err := json.Unmarshal(resBody, &decoded); err != nil {
			return domain.RouteDecision{}, fmt.Errorf("failed to decode reasoner response: %w", err)
		}
		if len(decoded.Choices) == 0 {
			return domain.RouteDecision{}, fmt.Errorf("empty reasoner response")
		}

		return parseDecision(decoded.Choices[0].Message.Content)
	}

	return domain.RouteDecision{}, fmt.Errorf("reasoner retries exceeded: %w", lastErr)
}

// parseDecision extracts the decision JSON, handling markdown code
// fences some models wrap around their output.
func parseDecision(text string) (domain.RouteDecision, error) {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		// remove opening fence (with optional language tag)
		if idx := strings.Index(cleaned, "\n"); idx >= 0 {
			cleaned = cleaned[idx+1:]
		}
		// remove closing fence
		if idx := strings.LastIndex(cleaned, "```"); idx >= 0 {
			cleaned = cleaned[:idx]
		}
		cleaned = strings.TrimSpace(cleaned)
	}

	var dec domain.RouteDecision
	if err := json.Unmarshal([]byte(cleaned), &dec); err != nil {
		return domain.RouteDecision{}, fmt.Errorf("failed to parse decision JSON: %w (raw: %s)", err, text)
	}
	return dec, nil
}
