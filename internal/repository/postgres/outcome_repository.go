package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/choresh/PspRouter-sub000/business/routing"
	"github.com/choresh/PspRouter-sub000/domain"

	"gorm.io/gorm"
)

type OutcomeRepository struct {
	DB *gorm.DB
}

var _ routing.OutcomeRepository = (*OutcomeRepository)(nil)

func NewOutcomeRepository(db *gorm.DB) *OutcomeRepository {
	return &OutcomeRepository{DB: db}
}

func (r *OutcomeRepository) SaveOutcome(ctx context.Context, outcome domain.TransactionOutcome) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(&outcome).Error; err != nil {
		return fmt.Errorf("failed to save transaction outcome: %w", err)
	}

	return nil
}

type authRateRow struct {
	PSPName    string `gorm:"column:psp_name"`
	Total      int64  `gorm:"column:total"`
	Authorized int64  `gorm:"column:authorized_count"`
}

// AuthRateWindows aggregates per-PSP authorization rates over outcomes
// processed since the given time.
func (r *OutcomeRepository) AuthRateWindows(ctx context.Context, since time.Time) ([]domain.AuthRateWindow, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var rows []authRateRow
	err := r.DB.WithContext(ctx).
		Model(&domain.TransactionOutcome{}).
		Select("psp_name, COUNT(*) AS total, SUM(CASE WHEN authorized THEN 1 ELSE 0 END) AS authorized_count").
		Where("processed_at >= ?", since).
		Group("psp_name").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate auth rates: %w", err)
	}

	out := make([]domain.AuthRateWindow, 0, len(rows))
	for _, row := range rows {
		w := domain.AuthRateWindow{
			PSPName:    row.PSPName,
			Total:      row.Total,
			Authorized: row.Authorized,
		}
		if row.Total > 0 {
			w.Rate = float64(row.Authorized) / float64(row.Total)
		}
		out = append(out, w)
	}

	return out, nil
}

// RecentByDecision lists outcomes reported for one decision.
func (r *OutcomeRepository) RecentByDecision(ctx context.Context, decisionID string) ([]domain.TransactionOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var outcomes []domain.TransactionOutcome
	err := r.DB.WithContext(ctx).
		Where("decision_id = ?", decisionID).
		Order("id ASC").
		Find(&outcomes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transaction outcomes: %w", err)
	}

	return outcomes, nil
}
