package domain

import "time"

// Bandit policies selectable per segment.
const (
	PolicyEpsilonGreedy = "epsilon_greedy"
	PolicyThompson      = "thompson"
	PolicyContextual    = "contextual"
)

// Candidate proposers selectable per segment. The protocol is the same
// for all of them; only the first attempt differs.
const (
	ProposerReasoner  = "reasoner"
	ProposerPredictor = "predictor"
	ProposerBandit    = "bandit"
	ProposerNone      = "none"
)

// RouterConfig is the persisted tuning row for one segment. The row
// with Segment "" is the default; per-segment rows override it.
type RouterConfig struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Segment           string    `gorm:"column:segment;uniqueIndex" json:"segment"`
	Policy            string    `gorm:"column:policy" json:"policy" validate:"omitempty,oneof=epsilon_greedy thompson contextual"`
	Proposer          string    `gorm:"column:proposer" json:"proposer" validate:"omitempty,oneof=reasoner predictor bandit none"`
	Epsilon           float64   `gorm:"column:epsilon" json:"epsilon" validate:"gte=0,lte=1"`
	WAuth             float64   `gorm:"column:w_auth" json:"w_auth"`
	WFee              float64   `gorm:"column:w_fee" json:"w_fee"`
	WFixed            float64   `gorm:"column:w_fixed" json:"w_fixed"`
	WBias             float64   `gorm:"column:w_bias" json:"w_bias"`
	WSCA              float64   `gorm:"column:w_sca" json:"w_sca"`
	WYellow           float64   `gorm:"column:w_yellow" json:"w_yellow"`
	WRisk             float64   `gorm:"column:w_risk" json:"w_risk"`
	ReasonerTimeoutMs int       `gorm:"column:reasoner_timeout_ms" json:"reasoner_timeout_ms" validate:"gte=0"`
	RetryWindowMs     int       `gorm:"column:retry_window_ms" json:"retry_window_ms" validate:"gte=0"`
	MaxRetries        int       `gorm:"column:max_retries" json:"max_retries" validate:"gte=0"`
	Active            bool      `gorm:"column:active;default:true" json:"active"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (RouterConfig) TableName() string {
	return "router_configs"
}
