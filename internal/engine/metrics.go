package engine

import "github.com/prometheus/client_golang/prometheus"

var tasksTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "flysearch_tasks_total",
		Help: "Total number of task status transitions, by target status.",
	},
	[]string{"status"},
)

func init() {
	prometheus.MustRegister(tasksTotal)
}
