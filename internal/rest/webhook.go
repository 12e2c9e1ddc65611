package rest

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/choresh/PspRouter-sub000/domain"
	"github.com/choresh/PspRouter-sub000/pkg/logger"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type (
	WebhookHandler struct {
		outcomeService    OutcomeService
		verificationToken string
		validate          *validator.Validate
	}

	OutcomeService interface {
		RecordOutcome(ctx context.Context, outcome domain.TransactionOutcome) error
	}

	// PSPWebhookRequest is the callback body PSPs post after an attempt
	// settles. ExternalID carries "<decision_id>|<psp_name>" so the
	// outcome can be tied back to the decision that routed it.
	PSPWebhookRequest struct {
		ID             string    `json:"id"`
		ExternalID     string    `json:"external_id"`
		Status         string    `json:"status"`
		FailureCode    string    `json:"failure_code"`
		FailureMessage string    `json:"failure_message"`
		Amount         float64   `json:"amount"`
		FeesPaidAmount float64   `json:"fees_paid_amount"`
		PaymentMethod  string    `json:"payment_method"`
		Currency       string    `json:"currency"`
		Created        time.Time `json:"created"`
		Updated        time.Time `json:"updated"`
	}
)

// authorizedStatuses are the PSP callback statuses counted as an
// approved attempt. Everything else is a decline.
var authorizedStatuses = map[string]bool{
	"PAID":       true,
	"SETTLED":    true,
	"AUTHORIZED": true,
	"CAPTURED":   true,
}

func NewWebhookHandler(outcomeService OutcomeService, verificationToken string) *WebhookHandler {
	return &WebhookHandler{
		outcomeService:    outcomeService,
		verificationToken: verificationToken,
		validate:          validator.New(),
	}
}

func (h WebhookHandler) HandleWebhook(c echo.Context) error {
	// Token check is disabled when no token is configured.
	if h.verificationToken != "" && c.Request().Header.Get("x-callback-token") != h.verificationToken {
		logger.Warn("Webhook callback token mismatch")
		return c.JSON(http.StatusUnauthorized, ResponseError{Message: "unauthorized"})
	}

	var request PSPWebhookRequest

	if err := c.Bind(&request); err != nil {
		logger.Warn("Failed to bind webhook request", "error", err)
		return c.JSON(http.StatusBadRequest, fres.Response.StatusBadRequest("Invalid request"))
	}

	parts := strings.Split(request.ExternalID, "|")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		logger.Warn("Webhook external_id is malformed", "external_id", request.ExternalID)
		return c.JSON(http.StatusBadRequest, fres.Response.StatusBadRequest("Invalid external_id"))
	}
	decisionID, pspName := parts[0], parts[1]

	outcome := domain.TransactionOutcome{
		DecisionID:   decisionID,
		PSPName:      pspName,
		Authorized:   authorizedStatuses[strings.ToUpper(request.Status)],
		Amount:       request.Amount,
		FeeAmount:    request.FeesPaidAmount,
		ProcessedAt:  request.Updated,
		ErrorCode:    request.FailureCode,
		ErrorMessage: request.FailureMessage,
	}
	if !request.Created.IsZero() && request.Updated.After(request.Created) {
		outcome.ProcessingTimeMs = request.Updated.Sub(request.Created).Milliseconds()
	}

	if err := h.outcomeService.RecordOutcome(c.Request().Context(), outcome); err != nil {
		logger.Error("Failed to record webhook outcome", "decision_id", decisionID, "error", err)
		if strings.Contains(err.Error(), "unknown decision id") || strings.Contains(err.Error(), "veto") {
			return c.JSON(http.StatusBadRequest, fres.Response.StatusBadRequest("Unknown decision"))
		}
		return c.JSON(http.StatusInternalServerError, fres.Response.StatusInternalServerError(http.StatusInternalServerError))
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(http.StatusOK))
}
