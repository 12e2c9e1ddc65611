package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/choresh/PspRouter-sub000/business/routing"
	"github.com/choresh/PspRouter-sub000/domain"

	"gorm.io/gorm"
)

type DecisionRepository struct {
	DB *gorm.DB
}

var _ routing.DecisionRepository = (*DecisionRepository)(nil)

func NewDecisionRepository(db *gorm.DB) *DecisionRepository {
	return &DecisionRepository{DB: db}
}

func (r *DecisionRepository) SaveDecision(ctx context.Context, rec domain.RouteDecisionRecord) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to save route decision: %w", err)
	}

	return nil
}

func (r *DecisionRepository) GetByDecisionID(ctx context.Context, decisionID string) (domain.RouteDecisionRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.RouteDecisionRecord{}, false, fmt.Errorf("context error: %w", err)
	}

	var rec domain.RouteDecisionRecord
	err := r.DB.WithContext(ctx).First(&rec, "decision_id = ?", decisionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.RouteDecisionRecord{}, false, nil
	}
	if err != nil {
		return domain.RouteDecisionRecord{}, false, fmt.Errorf("failed to query route decision: %w", err)
	}

	return rec, true, nil
}

// RecentByMerchant lists a merchant's latest decisions for the ops API.
func (r *DecisionRepository) RecentByMerchant(ctx context.Context, merchantID string, limit int) ([]domain.RouteDecisionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	if limit <= 0 {
		limit = 50
	}

	var recs []domain.RouteDecisionRecord
	err := r.DB.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		Order("id DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list route decisions: %w", err)
	}

	return recs, nil
}
