package domain

// DebugCandidate is the per-PSP score breakdown returned by the debug
// decision endpoint. Component and penalty fields hold positive
// magnitudes; Total applies the signs.
type DebugCandidate struct {
	Name          string  `json:"name"`
	Admissible    bool    `json:"admissible"`
	RejectReason  string  `json:"reject_reason,omitempty"`
	AuthComponent float64 `json:"auth_component"`
	FeeComponent  float64 `json:"fee_component"`
	FixedFeeComp  float64 `json:"fixed_fee_component"`
	BiasComponent float64 `json:"bias_component"`
	SCAComponent  float64 `json:"sca_component"`
	HealthPenalty float64 `json:"health_penalty"`
	RiskPenalty   float64 `json:"risk_penalty"`
	Total         float64 `json:"total"`
	BanditCount   int64   `json:"bandit_count"`
	BanditMean    float64 `json:"bandit_mean"`
}

// DebugDecision pairs a real decision with the full scoring table that
// produced (or would have produced) the fallback ranking.
type DebugDecision struct {
	Decision   RouteDecision    `json:"decision"`
	SegmentKey string           `json:"segment_key"`
	Policy     string           `json:"policy"`
	Proposer   string           `json:"proposer"`
	Candidates []DebugCandidate `json:"candidates"`
}
