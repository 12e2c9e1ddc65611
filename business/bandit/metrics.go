package bandit

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ArmUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bandit_arm_updates_total",
			Help: "Count of bandit statistic updates by segment and arm.",
		},
		[]string{"segment", "arm"},
	)

	StatisticsResetsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bandit_statistics_resets_total",
			Help: "Count of corrupted statistic entries reset to the zero-state.",
		},
	)

	SnapshotExportsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bandit_snapshot_exports_total",
			Help: "Count of successful statistics snapshot exports.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		ArmUpdatesTotal,
		StatisticsResetsTotal,
		SnapshotExportsTotal,
	)
}
