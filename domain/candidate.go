package domain

type PSPHealth string

const (
	HealthGreen  PSPHealth = "green"
	HealthYellow PSPHealth = "yellow"
	HealthRed    PSPHealth = "red"
)

// CandidateSnapshot is the point-in-time view of one PSP offered to the
// router for a single transaction. Snapshots are assembled per request
// and treated as read-only by everything downstream.
type CandidateSnapshot struct {
	Name           string    `json:"name"`
	Supports       bool      `json:"supports"`
	Health         PSPHealth `json:"health"`
	AuthRate       float64   `json:"auth_rate"`
	FeeBps         int       `json:"fee_bps"`
	FixedFee       float64   `json:"fixed_fee"`
	Supports3DS    bool      `json:"supports_3ds"`
	SupportsTokens bool      `json:"supports_tokens"`
}

// ArmStatView is a read-only summary of one bandit arm inside a segment,
// exposed to callers and to the reasoner payload.
type ArmStatView struct {
	Count     int64   `json:"count"`
	AvgReward float64 `json:"avg_reward"`
	Alpha     float64 `json:"alpha"`
	Beta      float64 `json:"beta"`
}

// RouteContext bundles everything a single routing decision may read:
// the transaction, the candidate snapshots, merchant preferences, the
// learned per-arm statistics for the transaction's segment, and any
// retrieved lessons from prior outcomes.
type RouteContext struct {
	Transaction   Transaction            `json:"transaction"`
	Candidates    []CandidateSnapshot    `json:"candidates"`
	MerchantPrefs map[string]any         `json:"merchant_prefs,omitempty"`
	SegmentStats  map[string]ArmStatView `json:"segment_stats,omitempty"`
	Lessons       []LessonMatch          `json:"lessons,omitempty"`
}
