package health

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// healthProbes counts completed probes by verdict.
	// Labels: dependency, verdict (healthy|degraded).
	healthProbes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "health_probes_total",
			Help: "Total health probes by verdict",
		},
		[]string{"dependency", "verdict"},
	)

	// healthStatus is 1 while the dependency is healthy, 0 otherwise.
	// Unprobed dependencies report nothing. Labels: dependency.
	healthStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "health_status",
			Help: "Current health verdict (1 healthy, 0 degraded)",
		},
		[]string{"dependency"},
	)

	// healthTransitions counts verdict changes.
	// Labels: dependency, from, to.
	healthTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "health_transitions_total",
			Help: "Total health verdict transitions",
		},
		[]string{"dependency", "from", "to"},
	)
)
