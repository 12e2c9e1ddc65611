package domain

import (
	"time"

	"gorm.io/datatypes"
)

// TransactionOutcome reports how a routed transaction actually went at
// the PSP. Outcomes arrive over the webhook or the outcome topic and
// feed the learning loop.
type TransactionOutcome struct {
	ID               uint              `gorm:"primaryKey" json:"id"`
	DecisionID       string            `gorm:"column:decision_id;index;not null" json:"decisionId" validate:"required"`
	PSPName          string            `gorm:"column:psp_name;not null" json:"pspName" validate:"required"`
	Authorized       bool              `gorm:"column:authorized" json:"authorized"`
	Amount           float64           `gorm:"column:amount" json:"transactionAmount" validate:"gte=0"`
	FeeAmount        float64           `gorm:"column:fee_amount" json:"feeAmount" validate:"gte=0"`
	ProcessingTimeMs int64             `gorm:"column:processing_time_ms" json:"processingTimeMs"`
	RiskScore        float64           `gorm:"column:risk_score" json:"riskScore"`
	ProcessedAt      time.Time         `gorm:"column:processed_at" json:"processedAt"`
	ErrorCode        string            `gorm:"column:error_code" json:"errorCode,omitempty"`
	ErrorMessage     string            `gorm:"column:error_message" json:"errorMessage,omitempty"`
	Context          datatypes.JSONMap `gorm:"column:context;type:jsonb" json:"context,omitempty"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime" json:"-"`
}

func (TransactionOutcome) TableName() string {
	return "transaction_outcomes"
}

// AuthRateWindow is an aggregate over recent outcomes for one PSP,
// used to refresh the trailing authorization rate on snapshots.
type AuthRateWindow struct {
	PSPName    string  `json:"psp_name"`
	Total      int64   `json:"total"`
	Authorized int64   `json:"authorized"`
	Rate       float64 `json:"rate"`
}
