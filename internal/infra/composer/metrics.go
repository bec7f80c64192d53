package composer

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CompositionMetricsRecorder records post composition metrics. The
// interface keeps the providers independent of Prometheus, so tests can
// inject a capturing recorder.
type CompositionMetricsRecorder interface {
	// RecordLength records the length of a composed post in characters,
	// measured before any clamping.
	RecordLength(length int)

	// RecordLimitExceeded increments the counter when a post exceeds the
	// configured length target.
	RecordLimitExceeded()

	// RecordCompliance records whether a post came back within the
	// length target.
	RecordCompliance(withinLimit bool)

	// RecordDuration records the provider call duration.
	RecordDuration(duration time.Duration)
}

// PrometheusCompositionMetrics is the production recorder.
type PrometheusCompositionMetrics struct {
	lengthHistogram   prometheus.Histogram
	exceededCounter   prometheus.Counter
	complianceGauge   prometheus.Gauge
	durationHistogram prometheus.Histogram
}

var (
	compositionMetricsInstance *PrometheusCompositionMetrics
	compositionMetricsOnce     sync.Once
)

// getOrCreateHistogram returns the already registered collector when two
// composer instances race to register the same metric.
func getOrCreateHistogram(opts prometheus.HistogramOpts) prometheus.Histogram {
	h := prometheus.NewHistogram(opts)
	if err := prometheus.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(prometheus.Histogram)
		}
		return promauto.NewHistogram(opts)
	}
	return h
}

func getOrCreateCounter(opts prometheus.CounterOpts) prometheus.Counter {
	c := prometheus.NewCounter(opts)
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(prometheus.Counter)
		}
		return promauto.NewCounter(opts)
	}
	return c
}

func getOrCreateGauge(opts prometheus.GaugeOpts) prometheus.Gauge {
	g := prometheus.NewGauge(opts)
	if err := prometheus.Register(g); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(prometheus.Gauge)
		}
		return promauto.NewGauge(opts)
	}
	return g
}

// NewPrometheusCompositionMetrics creates the Prometheus recorder. All
// composer providers share one instance so the metrics register once.
func NewPrometheusCompositionMetrics() *PrometheusCompositionMetrics {
	compositionMetricsOnce.Do(func() {
		compositionMetricsInstance = &PrometheusCompositionMetrics{
			lengthHistogram: getOrCreateHistogram(prometheus.HistogramOpts{
				Name:    "post_composition_length_characters",
				Help:    "Distribution of composed post lengths in characters (Unicode runes)",
				Buckets: []float64{50, 100, 200, 280, 400, 500, 700, 1000},
			}),
			exceededCounter: getOrCreateCounter(prometheus.CounterOpts{
				Name: "post_composition_limit_exceeded_total",
				Help: "Total number of composed posts exceeding the configured length target",
			}),
			complianceGauge: getOrCreateGauge(prometheus.GaugeOpts{
				Name: "post_composition_limit_compliance_ratio",
				Help: "Whether the most recent post stayed within the length target (0 or 1)",
			}),
			durationHistogram: getOrCreateHistogram(prometheus.HistogramOpts{
				Name:    "post_composition_duration_seconds",
				Help:    "Time taken to compose a post via the provider API",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			}),
		}
	})
	return compositionMetricsInstance
}

// RecordLength implements CompositionMetricsRecorder.
func (p *PrometheusCompositionMetrics) RecordLength(length int) {
	p.lengthHistogram.Observe(float64(length))
}

// RecordLimitExceeded implements CompositionMetricsRecorder.
func (p *PrometheusCompositionMetrics) RecordLimitExceeded() {
	p.exceededCounter.Inc()
}

// RecordCompliance implements CompositionMetricsRecorder.
func (p *PrometheusCompositionMetrics) RecordCompliance(withinLimit bool) {
	if withinLimit {
		p.complianceGauge.Set(1.0)
	} else {
		p.complianceGauge.Set(0.0)
	}
}

// RecordDuration implements CompositionMetricsRecorder.
func (p *PrometheusCompositionMetrics) RecordDuration(duration time.Duration) {
	p.durationHistogram.Observe(duration.Seconds())
}
