package slo

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SLO targets define the service level objectives for the watch pipeline.
// The cycle is the unit of service: each scheduled run either delivered
// its observation or it did not.
const (
	// AvailabilitySLO defines the target ratio of attempted cycles that
	// complete (0.99 allows roughly one failed cycle per day at a
	// 10-minute cadence)
	AvailabilitySLO = 0.99

	// LatencyP95SLO defines the target for 95th percentile cycle duration
	// in seconds. Composition dominates a cycle, so the budget is wide.
	LatencyP95SLO = 45.0

	// LatencyP99SLO defines the target for 99th percentile cycle duration
	// in seconds, kept under the two-minute cycle timeout
	LatencyP99SLO = 90.0

	// ErrorRateSLO defines the maximum acceptable ratio of failed cycles
	ErrorRateSLO = 0.01
)

// DefaultWindow is the number of recent cycles the recorder keeps. At a
// 10-minute cadence this covers roughly a day.
const DefaultWindow = 144

// SLO tracking metrics
// These gauges are recomputed after every recorded cycle from the
// recorder's rolling window.
var (
	// SLOCycleAvailability tracks the ratio of recent cycles that completed (0-1)
	SLOCycleAvailability = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slo_cycle_availability_ratio",
			Help: "Ratio of recent watch cycles that completed (0-1), target: 0.99",
		},
	)

	// SLOCycleLatencyP95 tracks the p95 cycle duration over the window
	SLOCycleLatencyP95 = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slo_cycle_duration_p95_seconds",
			Help: "p95 watch cycle duration in seconds, target: 45",
		},
	)

	// SLOCycleLatencyP99 tracks the p99 cycle duration over the window
	SLOCycleLatencyP99 = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slo_cycle_duration_p99_seconds",
			Help: "p99 watch cycle duration in seconds, target: 90",
		},
	)

	// SLOCycleErrorRate tracks the ratio of recent cycles that failed (0-1)
	SLOCycleErrorRate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slo_cycle_error_rate_ratio",
			Help: "Ratio of recent watch cycles that failed (0-1), target: 0.01",
		},
	)
)

type cycleSample struct {
	success  bool
	duration time.Duration
}

// Recorder maintains a rolling window of cycle outcomes and republishes
// the SLO gauges after each one. Skipped cycles are not recorded: a
// deliberate skip is load shedding, not a service failure, and the cycle
// run counters already track them separately.
type Recorder struct {
	mu     sync.Mutex
	window int
	cycles []cycleSample
	next   int
}

// NewRecorder creates a recorder keeping the given number of recent
// cycles. A window of zero or less uses DefaultWindow.
func NewRecorder(window int) *Recorder {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Recorder{
		window: window,
		cycles: make([]cycleSample, 0, window),
	}
}

// Record adds one attempted cycle's outcome and updates the gauges.
func (r *Recorder) Record(success bool, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sample := cycleSample{success: success, duration: duration}
	if len(r.cycles) < r.window {
		r.cycles = append(r.cycles, sample)
	} else {
		// Full window: overwrite the oldest sample.
		r.cycles[r.next] = sample
		r.next = (r.next + 1) % r.window
	}
	r.publishLocked()
}

// publishLocked recomputes the gauges from the window. Callers hold r.mu.
func (r *Recorder) publishLocked() {
	total := len(r.cycles)
	if total == 0 {
		return
	}

	failures := 0
	durations := make([]float64, 0, total)
	for _, c := range r.cycles {
		if !c.success {
			failures++
		}
		durations = append(durations, c.duration.Seconds())
	}
	sort.Float64s(durations)

	SLOCycleAvailability.Set(float64(total-failures) / float64(total))
	SLOCycleErrorRate.Set(float64(failures) / float64(total))
	SLOCycleLatencyP95.Set(percentile(durations, 0.95))
	SLOCycleLatencyP99.Set(percentile(durations, 0.99))
}

// percentile returns the nearest-rank percentile of sorted values.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}
