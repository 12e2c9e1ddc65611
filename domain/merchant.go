package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Merchant is an onboarded caller of the routing API. Preferences is a
// free-form map; recognized keys are "preferred" (PSP name pinned by the
// merchant) and "bias" (map of PSP name to additive score bias).
type Merchant struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	MerchantID  string            `gorm:"column:merchant_id;uniqueIndex;not null" json:"merchant_id" validate:"required"`
	Name        string            `gorm:"column:name;not null" json:"name" validate:"required"`
	Country     string            `gorm:"column:country" json:"country"`
	APIKeyHash  string            `gorm:"column:api_key_hash" json:"-"`
	Preferences datatypes.JSONMap `gorm:"column:preferences;type:jsonb" json:"preferences"`
	Active      bool              `gorm:"column:active;default:true" json:"active"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Merchant) TableName() string {
	return "merchants"
}

// BiasFor returns the merchant's additive score bias for the named PSP,
// zero when none is configured.
func (m Merchant) BiasFor(psp string) float64 {
	raw, ok := m.Preferences["bias"]
	if !ok {
		return 0
	}
	biases, ok := raw.(map[string]any)
	if !ok {
		return 0
	}
	v, ok := biases[psp]
	if !ok {
		return 0
	}
	f, ok := v.(float64)
	if !ok {
		return 0
	}
	return f
}
