package domain

import (
	"strings"
	"time"
)

// PSPProfile is the catalog entry for one payment service provider.
// Fee fields are defaults; per-corridor overrides come from the fee
// schedule provider when one is configured.
type PSPProfile struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"column:name;uniqueIndex;not null" json:"name" validate:"required"`
	Methods        string    `gorm:"column:methods;not null" json:"methods" validate:"required"`
	FeeBps         int       `gorm:"column:fee_bps" json:"fee_bps" validate:"gte=0"`
	FixedFee       float64   `gorm:"column:fixed_fee" json:"fixed_fee" validate:"gte=0"`
	Supports3DS    bool      `gorm:"column:supports_3ds" json:"supports_3ds"`
	SupportsTokens bool      `gorm:"column:supports_tokens" json:"supports_tokens"`
	Active         bool      `gorm:"column:active;default:true" json:"active"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (PSPProfile) TableName() string {
	return "psp_profiles"
}

// SupportsMethod reports whether the profile's comma separated method
// list contains the given payment method.
func (p PSPProfile) SupportsMethod(m PaymentMethod) bool {
	for _, part := range strings.Split(p.Methods, ",") {
		if PaymentMethod(strings.TrimSpace(part)) == m {
			return true
		}
	}
	return false
}
