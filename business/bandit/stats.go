package bandit

import (
	"math"
	"time"

	"github.com/choresh/PspRouter-sub000/domain"
)

// Per arm learned statistics. Alpha/Beta start at 1,1 (uniform prior)
// for Thompson sampling; Centroids track running means of the observed
// context features for the contextual policy.
type ArmStats struct {
	Sum         float64            `json:"sum"`
	Count       int64              `json:"count"`
	Alpha       float64            `json:"alpha"`
	Beta        float64            `json:"beta"`
	Centroids   map[string]float64 `json:"centroids,omitempty"`
	LastUpdated time.Time          `json:"last_updated"`
}

func newArmStats() ArmStats {
	return ArmStats{
		Alpha:       1,
		Beta:        1,
		Centroids:   make(map[string]float64),
		LastUpdated: time.Now(),
	}
}

// Mean is the exploitation score. Arms that were never pulled score 0,
// not infinity.
func (a ArmStats) Mean() float64 {
	if a.Count <= 0 {
		return 0
	}
	return a.Sum / float64(a.Count)
}

// corrupted reports an impossible state that should never occur under
// the update protocol. Such an entry is reset instead of propagated.
func (a ArmStats) corrupted() bool {
	if a.Count < 0 {
		return true
	}
	if math.IsNaN(a.Sum) || math.IsInf(a.Sum, 0) {
		return true
	}
	if a.Alpha <= 0 || a.Beta <= 0 {
		return true
	}
	if math.IsNaN(a.Alpha) || math.IsNaN(a.Beta) {
		return true
	}
	return false
}

func (a ArmStats) view() domain.ArmStatView {
	return domain.ArmStatView{
		Count:     a.Count,
		AvgReward: a.Mean(),
		Alpha:     a.Alpha,
		Beta:      a.Beta,
	}
}
