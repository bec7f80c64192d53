package circuitbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sony/gobreaker"
)

var (
	// circuitState mirrors gobreaker's state constants: 0 closed,
	// 1 half-open, 2 open. Labels: circuit.
	circuitState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"circuit"},
	)

	// circuitTrips counts transitions into the open state. Labels: circuit.
	circuitTrips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_trips_total",
			Help: "Total number of times a circuit breaker opened",
		},
		[]string{"circuit"},
	)
)

// recordStateChange publishes a state transition.
func recordStateChange(name string, _ gobreaker.State, to gobreaker.State) {
	circuitState.WithLabelValues(name).Set(float64(to))
	if to == gobreaker.StateOpen {
		circuitTrips.WithLabelValues(name).Inc()
	}
}
