package bridge

import "github.com/prometheus/client_golang/prometheus"

// Metric label values for bridge outcomes.
const (
	outcomeCompleted = "completed"
	outcomeRejected  = "rejected"
	outcomeFailed    = "provider_failure"
	outcomeTimeout   = "timeout"
	outcomeCanceled  = "canceled"
)

var (
	workersActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "flysearch_bridge_workers_active",
			Help: "Number of provider searches currently executing.",
		},
	)

	workersWaiting = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "flysearch_bridge_workers_waiting",
			Help: "Number of submissions waiting for a worker permit.",
		},
	)

	providerDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flysearch_bridge_provider_seconds",
			Help:    "Duration of one complete provider search, in seconds.",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 15, 30, 60, 120, 300},
		},
	)

	resultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flysearch_bridge_results_total",
			Help: "Total number of bridge invocations by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(workersActive)
	prometheus.MustRegister(workersWaiting)
	prometheus.MustRegister(providerDuration)
	prometheus.MustRegister(resultsTotal)

	for _, o := range []string{outcomeCompleted, outcomeRejected, outcomeFailed, outcomeTimeout, outcomeCanceled} {
		resultsTotal.WithLabelValues(o)
	}
}
