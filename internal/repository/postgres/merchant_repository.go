package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/choresh/PspRouter-sub000/business/routing"
	"github.com/choresh/PspRouter-sub000/domain"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type MerchantRepository struct {
	DB *gorm.DB
}

var _ routing.MerchantRepository = (*MerchantRepository)(nil)

func NewMerchantRepository(db *gorm.DB) *MerchantRepository {
	return &MerchantRepository{DB: db}
}

func (r *MerchantRepository) Create(ctx context.Context, merchant *domain.Merchant) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(merchant).Error; err != nil {
		return fmt.Errorf("failed to create merchant: %w", err)
	}

	return nil
}

func (r *MerchantRepository) FindByMerchantID(ctx context.Context, merchantID string) (domain.Merchant, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.Merchant{}, false, fmt.Errorf("context error: %w", err)
	}

	var merchant domain.Merchant
	err := r.DB.WithContext(ctx).
		First(&merchant, "merchant_id = ? AND active = ?", merchantID, true).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Merchant{}, false, nil
	}
	if err != nil {
		return domain.Merchant{}, false, fmt.Errorf("failed to find merchant: %w", err)
	}

	return merchant, true, nil
}

func (r *MerchantRepository) UpdatePreferences(ctx context.Context, merchantID string, prefs datatypes.JSONMap) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	result := r.DB.WithContext(ctx).
		Model(&domain.Merchant{}).
		Where("merchant_id = ?", merchantID).
		Update("preferences", prefs)
	if result.Error != nil {
		return fmt.Errorf("failed to update merchant preferences: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.New("merchant not found")
	}

	return nil
}
