package rest

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/choresh/PspRouter-sub000/domain"
	"github.com/choresh/PspRouter-sub000/pkg/metrics"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type (
	RoutingHandler struct {
		validate       *validator.Validate
		routingService RoutingService
	}

	RoutingService interface {
		Decide(ctx context.Context, tx domain.Transaction, provided []domain.CandidateSnapshot) (domain.RouteDecision, error)
		DebugDecide(ctx context.Context, tx domain.Transaction, provided []domain.CandidateSnapshot) (domain.DebugDecision, error)
		RecordOutcome(ctx context.Context, outcome domain.TransactionOutcome) error
		DecisionByID(ctx context.Context, decisionID string) (domain.RouteDecisionRecord, error)
		RecentDecisions(ctx context.Context, merchantID string, limit int) ([]domain.RouteDecisionRecord, error)
	}

	RouteRequest struct {
		Transaction TransactionRequest `json:"transaction" validate:"required"`
		Candidates  []CandidateRequest `json:"candidates" validate:"omitempty,dive"`
	}

	TransactionRequest struct {
		BuyerCountry    string  `json:"buyer_country" validate:"omitempty,len=2"`
		MerchantCountry string  `json:"merchant_country" validate:"omitempty,len=2"`
		Currency        string  `json:"currency" validate:"required,len=3"`
		Amount          float64 `json:"amount" validate:"required,gt=0"`
		Method          string  `json:"method" validate:"required,oneof=card wallet bank_transfer bnpl"`
		CardScheme      string  `json:"card_scheme"`
		SCARequired     bool    `json:"sca_required"`
		RiskScore       float64 `json:"risk_score" validate:"gte=0,lte=100"`
		BIN             string  `json:"bin" validate:"omitempty,numeric,min=6,max=8"`
	}

	CandidateRequest struct {
		Name           string  `json:"name" validate:"required"`
		Supports       bool    `json:"supports"`
		Health         string  `json:"health" validate:"omitempty,oneof=green yellow red"`
		AuthRate       float64 `json:"auth_rate" validate:"gte=0,lte=1"`
		FeeBps         int     `json:"fee_bps" validate:"gte=0"`
		FixedFee       float64 `json:"fixed_fee" validate:"gte=0"`
		Supports3DS    bool    `json:"supports_3ds"`
		SupportsTokens bool    `json:"supports_tokens"`
	}
)

func NewRoutingHandler(svc RoutingService) *RoutingHandler {
	return &RoutingHandler{
		validate:       validator.New(),
		routingService: svc,
	}
}

func (r TransactionRequest) toDomain(merchantID string) domain.Transaction {
	return domain.Transaction{
		MerchantID:      merchantID,
		BuyerCountry:    strings.ToUpper(r.BuyerCountry),
		MerchantCountry: strings.ToUpper(r.MerchantCountry),
		Currency:        strings.ToUpper(r.Currency),
		Amount:          r.Amount,
		Method:          domain.PaymentMethod(r.Method),
		CardScheme:      strings.ToLower(r.CardScheme),
		SCARequired:     r.SCARequired,
		RiskScore:       r.RiskScore,
		BIN:             r.BIN,
		CreatedAt:       time.Now(),
	}
}

func toSnapshots(reqs []CandidateRequest) []domain.CandidateSnapshot {
	if len(reqs) == 0 {
		return nil
	}

	out := make([]domain.CandidateSnapshot, 0, len(reqs))
	for _, r := range reqs {
		health := domain.PSPHealth(r.Health)
		if health == "" {
			health = domain.HealthGreen
		}
		out = append(out, domain.CandidateSnapshot{
			Name:           r.Name,
			Supports:       r.Supports,
			Health:         health,
			AuthRate:       r.AuthRate,
			FeeBps:         r.FeeBps,
			FixedFee:       r.FixedFee,
			Supports3DS:    r.Supports3DS,
			SupportsTokens: r.SupportsTokens,
		})
	}
	return out
}

// POST /api/v1/route
func (h *RoutingHandler) Route(c echo.Context) error {
	merchantID, ok := c.Get("merchant_id").(string)
	if !ok || merchantID == "" {
		return c.JSON(http.StatusUnauthorized, ResponseError{Message: "unauthorized"})
	}

	var req RouteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	start := time.Now()
	decision, err := h.routingService.Decide(c.Request().Context(), req.Transaction.toDomain(merchantID), toSnapshots(req.Candidates))
	metrics.RouteDecisionLatency.Observe(time.Since(start).Seconds())
	metrics.RouteDecisionRequests.Inc()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(decision))
}

// POST /api/v1/route/debug
func (h *RoutingHandler) DebugRoute(c echo.Context) error {
	merchantID, ok := c.Get("merchant_id").(string)
	if !ok || merchantID == "" {
		return c.JSON(http.StatusUnauthorized, ResponseError{Message: "unauthorized"})
	}

	var req RouteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	debug, err := h.routingService.DebugDecide(c.Request().Context(), req.Transaction.toDomain(merchantID), toSnapshots(req.Candidates))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(debug))
}

// POST /api/v1/outcomes
func (h *RoutingHandler) ReportOutcome(c echo.Context) error {
	var outcome domain.TransactionOutcome
	if err := c.Bind(&outcome); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&outcome); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	if err := h.routingService.RecordOutcome(c.Request().Context(), outcome); err != nil {
		if strings.Contains(err.Error(), "unknown decision id") || strings.Contains(err.Error(), "veto") {
			return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated("outcome recorded"))
}

// GET /api/v1/decisions/:decision_id
func (h *RoutingHandler) GetDecision(c echo.Context) error {
	merchantID, ok := c.Get("merchant_id").(string)
	if !ok || merchantID == "" {
		return c.JSON(http.StatusUnauthorized, ResponseError{Message: "unauthorized"})
	}

	rec, err := h.routingService.DecisionByID(c.Request().Context(), c.Param("decision_id"))
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return c.JSON(http.StatusNotFound, ResponseError{Message: err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	role, _ := c.Get("role").(string)
	if rec.MerchantID != merchantID && strings.ToUpper(role) != "ADMIN" {
		return c.JSON(http.StatusForbidden, ResponseError{Message: "forbidden"})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(rec))
}

// GET /api/v1/decisions?limit=50
func (h *RoutingHandler) ListDecisions(c echo.Context) error {
	merchantID, ok := c.Get("merchant_id").(string)
	if !ok || merchantID == "" {
		return c.JSON(http.StatusUnauthorized, ResponseError{Message: "unauthorized"})
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid limit"})
		}
		limit = n
	}

	recs, err := h.routingService.RecentDecisions(c.Request().Context(), merchantID, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(recs))
}
