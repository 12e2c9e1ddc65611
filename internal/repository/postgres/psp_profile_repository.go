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

type PSPProfileRepository struct {
	DB *gorm.DB
}

var _ routing.CatalogRepository = (*PSPProfileRepository)(nil)

func NewPSPProfileRepository(db *gorm.DB) *PSPProfileRepository {
	return &PSPProfileRepository{DB: db}
}

// FindAllActive returns the active catalog in insertion order. That
// order is the candidate input order, so tie-breaks stay stable.
func (r *PSPProfileRepository) FindAllActive(ctx context.Context) ([]domain.PSPProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var profiles []domain.PSPProfile
	err := r.DB.WithContext(ctx).
		Where("active = ?", true).
		Order("id ASC").
		Find(&profiles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find psp profiles: %w", err)
	}

	return profiles, nil
}

func (r *PSPProfileRepository) FindAll(ctx context.Context) ([]domain.PSPProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var profiles []domain.PSPProfile
	err := r.DB.WithContext(ctx).Order("id ASC").Find(&profiles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find psp profiles: %w", err)
	}

	return profiles, nil
}

func (r *PSPProfileRepository) FindByName(ctx context.Context, name string) (domain.PSPProfile, error) {
	if err := ctx.Err(); err != nil {
		return domain.PSPProfile{}, fmt.Errorf("context error: %w", err)
	}

	var profile domain.PSPProfile
	err := r.DB.WithContext(ctx).First(&profile, "name = ?", name).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.PSPProfile{}, errors.New("psp profile not found")
		}
		return domain.PSPProfile{}, fmt.Errorf("failed to find psp profile: %w", err)
	}

	return profile, nil
}

func (r *PSPProfileRepository) UpsertProfile(ctx context.Context, profile domain.PSPProfile) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"methods",
				"fee_bps",
				"fixed_fee",
				"supports_3ds",
				"supports_tokens",
				"active",
				"updated_at",
			}),
		}).
		Create(&profile).Error
}
