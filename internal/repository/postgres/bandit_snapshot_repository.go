package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/choresh/PspRouter-sub000/business/bandit"
	"github.com/choresh/PspRouter-sub000/pkg/logger"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// snapshotRowName keys the single snapshot row.
const snapshotRowName = "default"

type banditSnapshotRow struct {
	Name         string    `gorm:"column:name;primaryKey"`
	SnapshotJSON []byte    `gorm:"column:snapshot_json"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (banditSnapshotRow) TableName() string {
	return "bandit_snapshots"
}

type BanditSnapshotRepository struct {
	DB *gorm.DB
}

var _ bandit.SnapshotRepository = (*BanditSnapshotRepository)(nil)

func NewBanditSnapshotRepository(db *gorm.DB) *BanditSnapshotRepository {
	// the row type is private to this package, so it migrates here
	// instead of with the domain models
	if err := db.AutoMigrate(&banditSnapshotRow{}); err != nil {
		logger.Warn("Failed to migrate bandit_snapshots table", "error", err)
	}
	return &BanditSnapshotRepository{DB: db}
}

func (r *BanditSnapshotRepository) GetSnapshot(ctx context.Context) (*bandit.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var row banditSnapshotRow
	err := r.DB.WithContext(ctx).First(&row, "name = ?", snapshotRowName).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query bandit_snapshots: %w", err)
	}

	var snap bandit.Snapshot
	if err := json.Unmarshal(row.SnapshotJSON, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot_json: %w", err)
	}

	return &snap, nil
}

func (r *BanditSnapshotRepository) SaveSnapshot(ctx context.Context, snap *bandit.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	row := banditSnapshotRow{
		Name:         snapshotRowName,
		SnapshotJSON: raw,
	}

	if err := r.DB.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			UpdateAll: true,
		},
	).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to upsert bandit_snapshots: %w", err)
	}

	return nil
}
