package cache

import "github.com/prometheus/client_golang/prometheus"

// Metric label values for cache events.
const (
	eventHit    = "hit"
	eventMiss   = "miss"
	eventExpire = "expire"
	eventEvict  = "evict"
)

var cacheEventsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "flysearch_cache_events_total",
		Help: "Total number of cache lookups and removals by cache and event.",
	},
	[]string{"cache", "event"},
)

func init() {
	prometheus.MustRegister(cacheEventsTotal)
}
