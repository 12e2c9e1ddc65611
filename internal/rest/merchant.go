package rest

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/choresh/PspRouter-sub000/domain"
	"github.com/choresh/PspRouter-sub000/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"gorm.io/datatypes"
)

type MerchantService interface {
	Onboard(ctx context.Context, merchant *domain.Merchant) (domain.Merchant, string, error)
	IssueToken(ctx context.Context, merchantID, apiKey, ipAddress, userAgent string) (string, domain.Merchant, error)
	Revoke(ctx context.Context, merchantID string) error
	GetMerchant(ctx context.Context, merchantID string) (domain.Merchant, error)
	UpdatePreferences(ctx context.Context, merchantID string, prefs map[string]any) (domain.Merchant, error)
}

type MerchantHandler struct {
	merchantService MerchantService
	validator       *validator.Validate
	timeout         time.Duration
}

func NewMerchantHandler(merchantService MerchantService) *MerchantHandler {
	return &MerchantHandler{
		merchantService: merchantService,
		validator:       validator.New(),
		timeout:         10 * time.Second,
	}
}

type MerchantOnboardRequest struct {
	MerchantID  string         `json:"merchant_id" validate:"required,min=3"`
	Name        string         `json:"name" validate:"required"`
	Country     string         `json:"country" validate:"omitempty,len=2"`
	Preferences map[string]any `json:"preferences"`
}

type MerchantTokenRequest struct {
	MerchantID string `json:"merchant_id" validate:"required"`
	APIKey     string `json:"api_key" validate:"required"`
}

type MerchantPreferencesRequest struct {
	Preferences map[string]any `json:"preferences" validate:"required"`
}

// ResponseError represent the response error struct
type ResponseError struct {
	Message string `json:"message"`
}

// Onboard registers a merchant and returns its API key once.
func (h *MerchantHandler) Onboard(c echo.Context) error {
	var req MerchantOnboardRequest

	if err := c.Bind(&req); err != nil {
		logger.Error("Invalid request body", "error", err)
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	if err := h.validator.Struct(&req); err != nil {
		logger.Error("Failed to validate merchant onboard", "error", err)
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	merchant, apiKey, err := h.merchantService.Onboard(ctx, &domain.Merchant{
		MerchantID:  req.MerchantID,
		Name:        req.Name,
		Country:     strings.ToUpper(req.Country),
		Preferences: toJSONMap(req.Preferences),
	})
	if err != nil {
		logger.Error("Failed to onboard merchant", "error", err)
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message":  "Merchant onboarded. Store the API key now; it is not shown again.",
		"merchant": merchant,
		"api_key":  apiKey,
	})
}

// Token exchanges a merchant API key for a session token.
func (h *MerchantHandler) Token(c echo.Context) error {
	var req MerchantTokenRequest

	if err := c.Bind(&req); err != nil {
		logger.Error("Failed to bind request", "error", err)
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	if err := h.validator.Struct(&req); err != nil {
		logger.Error("Failed to validate token request", "error", err)
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	// get ip address and user agent
	ipAddress := c.RealIP()
	userAgent := c.Request().UserAgent()

	token, merchant, err := h.merchantService.IssueToken(ctx, req.MerchantID, req.APIKey, ipAddress, userAgent)
	if err != nil {
		logger.Error("Failed to issue merchant token", "error", err)
		return c.JSON(http.StatusUnauthorized, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":  "Token issued",
		"token":    token,
		"merchant": merchant,
	})
}

// Logout revokes the calling merchant's session.
func (h *MerchantHandler) Logout(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	merchantID, ok := c.Get("merchant_id").(string)
	if !ok || merchantID == "" {
		logger.Error("Failed to get merchant_id from context")
		return c.JSON(http.StatusUnauthorized, ResponseError{Message: "unauthorized"})
	}

	if err := h.merchantService.Revoke(ctx, merchantID); err != nil {
		logger.Error("Failed to logout merchant", "error", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Logout successful",
	})
}

// Me returns the calling merchant's profile.
func (h *MerchantHandler) Me(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	merchantID, ok := c.Get("merchant_id").(string)
	if !ok || merchantID == "" {
		return c.JSON(http.StatusUnauthorized, ResponseError{Message: "unauthorized"})
	}

	merchant, err := h.merchantService.GetMerchant(ctx, merchantID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return c.JSON(http.StatusNotFound, ResponseError{Message: err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"merchant": merchant,
	})
}

// UpdatePreferences replaces the calling merchant's routing preferences.
func (h *MerchantHandler) UpdatePreferences(c echo.Context) error {
	var req MerchantPreferencesRequest

	if err := c.Bind(&req); err != nil {
		logger.Error("Invalid request body", "error", err)
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	if err := h.validator.Struct(&req); err != nil {
		logger.Error("Failed to validate preferences update", "error", err)
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	merchantID, ok := c.Get("merchant_id").(string)
	if !ok || merchantID == "" {
		return c.JSON(http.StatusUnauthorized, ResponseError{Message: "unauthorized"})
	}

	merchant, err := h.merchantService.UpdatePreferences(ctx, merchantID, req.Preferences)
	if err != nil {
		if strings.Contains(err.Error(), "must be") {
			return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":  "Preferences updated",
		"merchant": merchant,
	})
}

func toJSONMap(in map[string]any) datatypes.JSONMap {
	if in == nil {
		return datatypes.JSONMap{}
	}
	return datatypes.JSONMap(in)
}
