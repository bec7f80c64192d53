package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
)

func testConfig() Config {
	return Config{
		Name:             "test-circuit",
		MaxRequests:      3,
		Interval:         10 * time.Second,
		Timeout:          20 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// trip drives the breaker past its failure threshold.
func trip(cb *CircuitBreaker, failures int) {
	err := errors.New("dependency down")
	for i := 0; i < failures; i++ {
		_, _ = cb.Execute(func() (interface{}, error) {
			return nil, err
		})
	}
}

func TestNew(t *testing.T) {
	cb := New(testConfig())

	if cb == nil {
		t.Fatal("expected circuit breaker, got nil")
	}
	if cb.Name() != "test-circuit" {
		t.Errorf("expected name='test-circuit', got %q", cb.Name())
	}
	if cb.State() != gobreaker.StateClosed {
		t.Errorf("expected initial state=Closed, got %v", cb.State())
	}
	if cb.IsOpen() {
		t.Error("fresh breaker should not report open")
	}
}

func TestCircuitBreaker_Execute(t *testing.T) {
	cb := New(testConfig())

	result, err := cb.Execute(func() (interface{}, error) {
		return "payload", nil
	})
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if result != "payload" {
		t.Errorf("expected result='payload', got %v", result)
	}

	callErr := errors.New("call failed")
	result, err = cb.Execute(func() (interface{}, error) {
		return nil, callErr
	})
	if err != callErr {
		t.Errorf("expected the call error back, got %v", err)
	}
	if result != nil {
		t.Errorf("expected nil result on failure, got %v", result)
	}
	if cb.State() != gobreaker.StateClosed {
		t.Errorf("one failure should not trip the breaker, got %v", cb.State())
	}
}

func TestCircuitBreaker_TripsOpen(t *testing.T) {
	cfg := testConfig()
	cfg.Timeout = 1 * time.Second

	cb := New(cfg)
	testErr := errors.New("test error")

	// 4 failures + 1 success = 80% failure rate over MinRequests=5.
	for i := 0; i < 4; i++ {
		_, err := cb.Execute(func() (interface{}, error) {
			return nil, testErr
		})
		if err != testErr {
			t.Errorf("request %d: expected test error, got %v", i, err)
		}
	}
	if _, err := cb.Execute(func() (interface{}, error) {
		return "success", nil
	}); err != nil {
		t.Errorf("success request failed: %v", err)
	}

	// ReadyToTrip is evaluated on failures, so one more is needed.
	if _, err := cb.Execute(func() (interface{}, error) {
		return nil, testErr
	}); err != testErr {
		t.Errorf("expected test error, got %v", err)
	}

	if cb.State() != gobreaker.StateOpen {
		t.Errorf("expected state=Open after exceeding failure threshold, got %v", cb.State())
	}
	if !cb.IsOpen() {
		t.Error("expected IsOpen()=true")
	}

	_, err := cb.Execute(func() (interface{}, error) {
		t.Error("function should not be called when circuit is open")
		return nil, nil
	})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected ErrOpenState, got %v", err)
	}
}

func TestCircuitBreaker_HalfOpen(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRequests = 2
	cfg.Timeout = 100 * time.Millisecond

	cb := New(cfg)
	trip(cb, 6)
	if cb.State() != gobreaker.StateOpen {
		t.Fatalf("circuit should be open, got %v", cb.State())
	}

	// Wait past the timeout so the next request runs half-open.
	time.Sleep(150 * time.Millisecond)

	if _, err := cb.Execute(func() (interface{}, error) {
		return "success", nil
	}); err != nil {
		t.Errorf("expected success in half-open state, got %v", err)
	}
	if cb.State() == gobreaker.StateOpen {
		t.Errorf("circuit should not be open after successful half-open request, got %v", cb.State())
	}
}

func TestCircuitBreaker_MinRequests(t *testing.T) {
	cfg := testConfig()
	cfg.FailureThreshold = 0.5
	cfg.MinRequests = 10

	cb := New(cfg)
	trip(cb, 4)

	if cb.State() != gobreaker.StateClosed {
		t.Errorf("expected state=Closed (below MinRequests), got %v", cb.State())
	}
}

func TestCircuitBreaker_StateMetrics(t *testing.T) {
	cfg := testConfig()
	cfg.Name = "metrics-circuit"
	cfg.Timeout = 1 * time.Second

	cb := New(cfg)
	if got := testutil.ToFloat64(circuitState.WithLabelValues("metrics-circuit")); got != float64(gobreaker.StateClosed) {
		t.Errorf("expected state gauge=0 for fresh breaker, got %v", got)
	}

	trip(cb, 6)
	if cb.State() != gobreaker.StateOpen {
		t.Fatalf("circuit should be open, got %v", cb.State())
	}
	if got := testutil.ToFloat64(circuitState.WithLabelValues("metrics-circuit")); got != float64(gobreaker.StateOpen) {
		t.Errorf("expected state gauge=2 after trip, got %v", got)
	}
	if got := testutil.ToFloat64(circuitTrips.WithLabelValues("metrics-circuit")); got != 1 {
		t.Errorf("expected 1 recorded trip, got %v", got)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("test")

	if cfg.Name != "test" {
		t.Errorf("expected Name='test', got %q", cfg.Name)
	}
	if cfg.MaxRequests != 3 {
		t.Errorf("expected MaxRequests=3, got %d", cfg.MaxRequests)
	}
	if cfg.Interval != 30*time.Second {
		t.Errorf("expected Interval=30s, got %v", cfg.Interval)
	}
	if cfg.Timeout != 60*time.Second {
		t.Errorf("expected Timeout=60s, got %v", cfg.Timeout)
	}
	if cfg.FailureThreshold != 0.6 {
		t.Errorf("expected FailureThreshold=0.6, got %f", cfg.FailureThreshold)
	}
	if cfg.MinRequests != 5 {
		t.Errorf("expected MinRequests=5, got %d", cfg.MinRequests)
	}
}

func TestSocialAPIConfig(t *testing.T) {
	cfg := SocialAPIConfig()

	if cfg.Name != "social-api" {
		t.Errorf("expected Name='social-api', got %q", cfg.Name)
	}
	if cfg.MaxRequests != 3 {
		t.Errorf("expected MaxRequests=3, got %d", cfg.MaxRequests)
	}
}

func TestComposerAPIConfig(t *testing.T) {
	cfg := ComposerAPIConfig()

	if cfg.Name != "composer-api" {
		t.Errorf("expected Name='composer-api', got %q", cfg.Name)
	}
}

func TestExplorerConfig(t *testing.T) {
	cfg := ExplorerConfig()

	if cfg.Name != "explorer" {
		t.Errorf("expected Name='explorer', got %q", cfg.Name)
	}
	if cfg.Timeout != 3600*time.Second {
		t.Errorf("expected Timeout=1h, got %v", cfg.Timeout)
	}
	if cfg.FailureThreshold != 0.8 {
		t.Errorf("expected FailureThreshold=0.8, got %f", cfg.FailureThreshold)
	}
}
