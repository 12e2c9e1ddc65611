package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// Latency of the route decision HTTP handler
	RouteDecisionLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "route_decision_latency_seconds",
		Help:    "Latency of the route decision handler",
		Buckets: prometheus.DefBuckets,
	})

	// Total number of route decision requests served
	RouteDecisionRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "route_decision_requests_total",
		Help: "Total number of route decision requests",
	})
)

func Init() {
	prometheus.MustRegister(
		RouteDecisionLatency,
		RouteDecisionRequests,
	)
}
