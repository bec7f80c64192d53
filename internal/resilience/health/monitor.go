// Package health tracks whether an upstream dependency is currently
// usable, so scheduled work can skip cycles instead of burning retry
// budget against an endpoint that is down or heavily limited.
//
// A monitor starts UNKNOWN, which counts as not healthy: the first caller
// must probe before any cycle runs. Probe verdicts stay fresh for a
// configured maximum age; EnsureFresh re-probes only when the verdict has
// expired.
package health

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultMaxAge is how long a probe verdict stays fresh.
const DefaultMaxAge = 10 * time.Minute

// Status is the monitor's view of the dependency.
type Status int

const (
	// StatusUnknown means no probe has completed yet. Treated as not
	// healthy: work gated on the monitor must probe first.
	StatusUnknown Status = iota
	// StatusHealthy means the last probe got a usable answer.
	StatusHealthy
	// StatusDegraded means the last probe got nothing usable.
	StatusDegraded
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// ProbeFunc reports whether the dependency answered with a usable result.
// Probes are expected to be best-effort: failures surface as false, not as
// an error.
type ProbeFunc func(ctx context.Context) bool

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the system time.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Config holds monitor parameters.
type Config struct {
	// MaxAge is how long a probe verdict stays fresh. Zero means
	// DefaultMaxAge.
	MaxAge time.Duration
	// Clock defaults to SystemClock.
	Clock Clock
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Snapshot is a point-in-time copy of the monitor's state for status
// surfaces. CheckedAt is zero until the first probe completes.
type Snapshot struct {
	Status    Status
	CheckedAt time.Time
}

// Monitor runs probes against one dependency and caches the verdict.
type Monitor struct {
	name  string
	probe ProbeFunc

	// probeMu serializes probes so concurrent EnsureFresh callers do not
	// stampede the dependency; mu guards only the verdict fields.
	probeMu sync.Mutex
	mu      sync.Mutex

	status    Status
	checkedAt time.Time

	maxAge time.Duration
	clock  Clock
	logger *slog.Logger
}

// NewMonitor creates a monitor for the named dependency.
func NewMonitor(name string, probe ProbeFunc, cfg Config) *Monitor {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Monitor{
		name:   name,
		probe:  probe,
		status: StatusUnknown,
		maxAge: cfg.MaxAge,
		clock:  cfg.Clock,
		logger: cfg.Logger,
	}
}

// Healthy reports whether the last verdict was healthy. UNKNOWN is not
// healthy.
func (m *Monitor) Healthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status == StatusHealthy
}

// Snapshot returns the current verdict and when it was taken.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{Status: m.status, CheckedAt: m.checkedAt}
}

// Probe runs the probe now and records the verdict, regardless of
// freshness. Callers use it to re-check immediately after a failed work
// cycle instead of staying degraded until the next scheduled probe.
func (m *Monitor) Probe(ctx context.Context) bool {
	m.probeMu.Lock()
	defer m.probeMu.Unlock()
	return m.runProbe(ctx)
}

// EnsureFresh returns the current verdict, probing first if none exists
// or the last one has expired. Concurrent callers share a single probe.
func (m *Monitor) EnsureFresh(ctx context.Context) bool {
	if healthy, fresh := m.freshVerdict(); fresh {
		return healthy
	}

	m.probeMu.Lock()
	defer m.probeMu.Unlock()

	// Another caller may have probed while we waited for the lock.
	if healthy, fresh := m.freshVerdict(); fresh {
		return healthy
	}
	return m.runProbe(ctx)
}

// StartBackgroundProbe refreshes the verdict on a fixed interval until the
// context is canceled, keeping readiness surfaces current between work
// cycles. It blocks; run it in a goroutine.
func (m *Monitor) StartBackgroundProbe(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = m.maxAge
	}

	m.logger.Info("health background probe started",
		slog.String("dependency", m.name),
		slog.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("health background probe stopped",
				slog.String("dependency", m.name))
			return
		case <-ticker.C:
			m.EnsureFresh(ctx)
		}
	}
}

// freshVerdict reports the verdict and whether it is still usable.
func (m *Monitor) freshVerdict() (healthy, fresh bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status == StatusUnknown {
		return false, false
	}
	if m.clock.Now().Sub(m.checkedAt) >= m.maxAge {
		return false, false
	}
	return m.status == StatusHealthy, true
}

// runProbe executes the probe and records the verdict. Caller holds
// probeMu.
func (m *Monitor) runProbe(ctx context.Context) bool {
	ok := m.probe(ctx)
	now := m.clock.Now()

	next := StatusDegraded
	if ok {
		next = StatusHealthy
	}

	m.mu.Lock()
	prev := m.status
	m.status = next
	m.checkedAt = now
	m.mu.Unlock()

	healthProbes.WithLabelValues(m.name, next.String()).Inc()
	if next == StatusHealthy {
		healthStatus.WithLabelValues(m.name).Set(1)
	} else {
		healthStatus.WithLabelValues(m.name).Set(0)
	}

	if prev != next {
		healthTransitions.WithLabelValues(m.name, prev.String(), next.String()).Inc()
		if next == StatusDegraded {
			m.logger.Warn("dependency degraded",
				slog.String("dependency", m.name),
				slog.String("previous", prev.String()))
		} else {
			m.logger.Info("dependency healthy",
				slog.String("dependency", m.name),
				slog.String("previous", prev.String()))
		}
	}

	return ok
}
