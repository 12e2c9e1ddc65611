package routing

import "github.com/prometheus/client_golang/prometheus"

var (
	RouteDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "route_decisions_total",
			Help: "Count of route decisions by decision method and segment.",
		},
		[]string{"method", "segment"},
	)

	OutcomeEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "route_outcome_events_total",
			Help: "Count of recorded transaction outcomes by PSP and authorization result.",
		},
		[]string{"psp", "authorized"},
	)
)

func init() {
	prometheus.MustRegister(
		RouteDecisionsTotal,
		OutcomeEventsTotal,
	)
}
