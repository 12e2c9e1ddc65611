package domain

import (
	"time"

	"gorm.io/datatypes"
)

const (
	// DecisionSchemaVersion is the wire version both the reasoner and
	// the router stamp on every decision document.
	DecisionSchemaVersion = "1.0"

	// NoCandidate is the sentinel candidate used when the guardrail
	// vetoes every PSP.
	NoCandidate = "NONE"

	GuardrailNone      = "none"
	GuardrailVetoNoPSP = "veto:no_valid_psp"
)

// Decision methods, recorded for analytics so operators can tell which
// path produced each routing choice.
const (
	DecisionByReasoner  = "reasoner"
	DecisionByPredictor = "predictor"
	DecisionByBandit    = "bandit"
	DecisionByFallback  = "fallback"
	DecisionByVeto      = "veto"
)

// DecisionConstraints carries the retry contract attached to a decision.
// Field names follow the reasoner wire schema.
type DecisionConstraints struct {
	MustUse3DS    bool `json:"mustUse3ds"`
	RetryWindowMs int  `json:"retryWindowMs"`
	MaxRetries    int  `json:"maxRetries"`
}

// RouteDecision is the structured routing decision returned to callers.
// Field names follow the reasoner wire schema so reasoner output can be
// decoded straight into it.
type RouteDecision struct {
	SchemaVersion string              `json:"schemaVersion"`
	DecisionID    string              `json:"decisionId"`
	Candidate     string              `json:"candidate"`
	Alternates    []string            `json:"alternates"`
	Reasoning     string              `json:"reasoning"`
	Guardrail     string              `json:"guardrail"`
	Constraints   DecisionConstraints `json:"constraints"`
	FeaturesUsed  []string            `json:"featuresUsed"`
}

// IsVeto reports whether the decision routed nowhere.
func (d RouteDecision) IsVeto() bool {
	return d.Candidate == NoCandidate
}

// RouteDecisionRecord is the persisted form of a decision. The card BIN
// is stored encrypted; everything else about the transaction that the
// decision read goes into Context.
type RouteDecisionRecord struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	DecisionID string            `gorm:"column:decision_id;uniqueIndex;not null" json:"decision_id"`
	MerchantID string            `gorm:"column:merchant_id;index" json:"merchant_id"`
	SegmentKey string            `gorm:"column:segment_key;index" json:"segment_key"`
	Candidate  string            `gorm:"column:candidate;not null" json:"candidate"`
	Alternates string            `gorm:"column:alternates" json:"alternates"`
	Guardrail  string            `gorm:"column:guardrail" json:"guardrail"`
	Method     string            `gorm:"column:method" json:"method"`
	Reasoning  string            `gorm:"column:reasoning" json:"reasoning"`
	BINCipher  string            `gorm:"column:bin_cipher" json:"-"`
	Context    datatypes.JSONMap `gorm:"column:context;type:jsonb" json:"context"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (RouteDecisionRecord) TableName() string {
	return "route_decisions"
}
