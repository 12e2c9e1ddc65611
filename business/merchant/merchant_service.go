package merchant

import (
	"context"
	"errors"
	"time"

	"github.com/choresh/PspRouter-sub000/domain"
	redisrepo "github.com/choresh/PspRouter-sub000/internal/repository/redis"
	"github.com/choresh/PspRouter-sub000/pkg/logger"
	"github.com/choresh/PspRouter-sub000/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MerchantRepository contract interface
type MerchantRepository interface {
	Create(ctx context.Context, merchant *domain.Merchant) error
	FindByMerchantID(ctx context.Context, merchantID string) (domain.Merchant, bool, error)
	UpdatePreferences(ctx context.Context, merchantID string, prefs datatypes.JSONMap) error
}

type merchantService struct {
	merchantRepo MerchantRepository
	tokenRepo    *redisrepo.TokenRepository
	validate     *validator.Validate
}

const (
	RoleMerchant = "merchant"
	RoleAdmin    = "admin"

	tokenTTL = 24 * time.Hour
)

func NewMerchantService(
	merchantRepo MerchantRepository,
	tokenRepo *redisrepo.TokenRepository,
	validate *validator.Validate,
) *merchantService {
	return &merchantService{
		merchantRepo: merchantRepo,
		tokenRepo:    tokenRepo,
		validate:     validate,
	}
}

// Onboard registers a merchant and issues its API key. The plaintext
// key is returned exactly once; only the bcrypt hash is stored.
func (s *merchantService) Onboard(ctx context.Context, merchant *domain.Merchant) (domain.Merchant, string, error) {
	if err := s.validate.Var(merchant.MerchantID, "required,min=3"); err != nil {
		logger.Error("Invalid merchant id", "error", err)
		return domain.Merchant{}, "", errors.New("merchant_id must be at least 3 characters")
	}

	if err := s.validate.Var(merchant.Name, "required"); err != nil {
		logger.Error("Invalid merchant name", "error", err)
		return domain.Merchant{}, "", errors.New("merchant name is required")
	}

	_, ok, err := s.merchantRepo.FindByMerchantID(ctx, merchant.MerchantID)
	if err != nil {
		logger.Error("Failed to check existing merchant", "error", err)
		return domain.Merchant{}, "", err
	}
	if ok {
		return domain.Merchant{}, "", errors.New("merchant already exists")
	}

	apiKey := uuid.NewString()
	hash, err := utils.HashAPIKey(apiKey)
	if err != nil {
		logger.Error("Failed to hash API key", "error", err)
		return domain.Merchant{}, "", errors.New("failed to hash API key")
	}

	prefs := merchant.Preferences
	if prefs == nil {
		prefs = datatypes.JSONMap{}
	}

	newMerchant := domain.Merchant{
		MerchantID:  merchant.MerchantID,
		Name:        merchant.Name,
		Country:     merchant.Country,
		APIKeyHash:  string(hash),
		Preferences: prefs,
		Active:      true,
	}

	if err := s.merchantRepo.Create(ctx, &newMerchant); err != nil {
		logger.Error("Failed to create merchant", "error", err)
		return domain.Merchant{}, "", err
	}

	return newMerchant, apiKey, nil
}

// IssueToken authenticates a merchant by API key and returns a session
// token. The same generic error covers unknown merchants and wrong
// keys.
func (s *merchantService) IssueToken(ctx context.Context, merchantID, apiKey, ipAddress, userAgent string) (string, domain.Merchant, error) {
	m, ok, err := s.merchantRepo.FindByMerchantID(ctx, merchantID)
	if err != nil {
		logger.Error("Failed to load merchant", "error", err)
		return "", domain.Merchant{}, err
	}
	if !ok || !utils.CheckAPIKey(apiKey, m.APIKeyHash) {
		logger.Warn("merchant_auth_failed", "merchant_id", merchantID)
		return "", domain.Merchant{}, errors.New("invalid merchant credentials")
	}

	role := s.roleFor(m)
	token, err := utils.GenerateJWT(m.MerchantID, role)
	if err != nil {
		logger.Error("Failed to generate token", "error", err)
		return "", domain.Merchant{}, errors.New("failed to generate token")
	}

	now := time.Now()
	data := redisrepo.TokenData{
		MerchantID: m.MerchantID,
		Role:       role,
		Token:      token,
		IssuedAt:   now,
		ExpiresAt:  now.Add(tokenTTL),
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
	}

	if err := s.tokenRepo.StoreToken(ctx, m.MerchantID, token, data, tokenTTL); err != nil {
		logger.Error("Failed to store token", "error", err)
		return "", domain.Merchant{}, errors.New("failed to store session")
	}

	return token, m, nil
}

// roleFor maps a merchant to its token role. Operators elevate a
// merchant by setting the "role" preference to "admin" out of band.
func (s *merchantService) roleFor(m domain.Merchant) string {
	if raw, ok := m.Preferences["role"]; ok {
		if r, ok := raw.(string); ok && r == RoleAdmin {
			return RoleAdmin
		}
	}
	return RoleMerchant
}

// Revoke drops the merchant's active session from Redis.
func (s *merchantService) Revoke(ctx context.Context, merchantID string) error {
	if err := s.tokenRepo.RevokeToken(ctx, merchantID); err != nil {
		logger.Error("Failed to revoke token", "error", err)
		return err
	}
	return nil
}

// ValidateTokenFromRedis resolves a token to its merchant ID, failing
// for revoked or expired sessions.
func (s *merchantService) ValidateTokenFromRedis(ctx context.Context, token string) (string, error) {
	return s.tokenRepo.ValidateToken(ctx, token)
}

func (s *merchantService) GetMerchant(ctx context.Context, merchantID string) (domain.Merchant, error) {
	m, ok, err := s.merchantRepo.FindByMerchantID(ctx, merchantID)
	if err != nil {
		logger.Error("Failed to load merchant", "error", err)
		return domain.Merchant{}, err
	}
	if !ok {
		return domain.Merchant{}, errors.New("merchant not found")
	}

	return m, nil
}

// UpdatePreferences replaces the merchant's routing preferences.
// Recognized keys are "preferred" and "bias"; anything else is stored
// untouched and ignored by the router.
func (s *merchantService) UpdatePreferences(ctx context.Context, merchantID string, prefs map[string]any) (domain.Merchant, error) {
	if raw, ok := prefs["bias"]; ok {
		biases, ok := raw.(map[string]any)
		if !ok {
			return domain.Merchant{}, errors.New("bias must be a map of psp name to number")
		}
		for name, v := range biases {
			if _, ok := v.(float64); !ok {
				return domain.Merchant{}, errors.New("bias for " + name + " must be a number")
			}
		}
	}

	if err := s.merchantRepo.UpdatePreferences(ctx, merchantID, datatypes.JSONMap(prefs)); err != nil {
		logger.Error("Failed to update merchant preferences", "error", err)
		return domain.Merchant{}, err
	}

	return s.GetMerchant(ctx, merchantID)
}
