package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/choresh/PspRouter-sub000/business/routing"
	"github.com/choresh/PspRouter-sub000/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RouterConfigRepository struct {
	DB *gorm.DB
}

var _ routing.ConfigRepository = (*RouterConfigRepository)(nil)

func NewRouterConfigRepository(db *gorm.DB) *RouterConfigRepository {
	return &RouterConfigRepository{DB: db}
}

func (r *RouterConfigRepository) GetConfig(ctx context.Context, segment string) (domain.RouterConfig, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.RouterConfig{}, false, fmt.Errorf("context error: %w", err)
	}

	var cfg domain.RouterConfig
	err := r.DB.WithContext(ctx).
		Where("segment = ? AND active = ?", segment, true).
		First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.RouterConfig{}, false, nil
	}
	if err != nil {
		return domain.RouterConfig{}, false, fmt.Errorf("failed to query router config: %w", err)
	}

	return cfg, true, nil
}

func (r *RouterConfigRepository) UpsertConfig(ctx context.Context, cfg domain.RouterConfig) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "segment"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"policy",
				"proposer",
				"epsilon",
				"w_auth",
				"w_fee",
				"w_fixed",
				"w_bias",
				"w_sca",
				"w_yellow",
				"w_risk",
				"reasoner_timeout_ms",
				"retry_window_ms",
				"max_retries",
				"active",
				"updated_at",
			}),
		}).
		Create(&cfg).Error
}

// ListConfigs returns every config row, active or not, for the ops API.
func (r *RouterConfigRepository) ListConfigs(ctx context.Context) ([]domain.RouterConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var cfgs []domain.RouterConfig
	err := r.DB.WithContext(ctx).Order("segment ASC").Find(&cfgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list router configs: %w", err)
	}

	return cfgs, nil
}
