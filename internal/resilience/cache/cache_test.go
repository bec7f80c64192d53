package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// MockClock implements Clock interface for testing
type MockClock struct {
	mu  sync.RWMutex
	now time.Time
}

func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

func (m *MockClock) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now
}

func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

func TestCacheRoundTrip(t *testing.T) {
	clock := NewMockClock(time.Unix(1700000000, 0))
	c := New(Config{TTL: 300 * time.Second, Clock: clock})

	c.Set("gasPrice", "5")

	v, ok := c.Get("gasPrice")
	if !ok {
		t.Fatal("Get right after Set missed")
	}
	if v != "5" {
		t.Errorf("Get = %v, want %q", v, "5")
	}
}

func TestCacheExpiryBoundary(t *testing.T) {
	clock := NewMockClock(time.Unix(1700000000, 0))
	c := New(Config{TTL: 300 * time.Second, Clock: clock})

	c.Set("gasPrice", "5")

	clock.Advance(299 * time.Second)
	if _, ok := c.Get("gasPrice"); !ok {
		t.Error("Get at +299s missed, want hit")
	}

	clock.Advance(2 * time.Second)
	if _, ok := c.Get("gasPrice"); ok {
		t.Error("Get at +301s hit, want absent")
	}

	// Read-time expiry removed the entry without any sweep
	if c.Len() != 0 {
		t.Errorf("Len after expired read = %d, want 0", c.Len())
	}
}

func TestCacheExactTTLIsExpired(t *testing.T) {
	clock := NewMockClock(time.Unix(1700000000, 0))
	c := New(Config{TTL: 300 * time.Second, Clock: clock})

	c.Set("k", 1)
	clock.Advance(300 * time.Second)

	if _, ok := c.Get("k"); ok {
		t.Error("Get at exactly +ttl hit, want absent")
	}
}

func TestCacheOverwrite(t *testing.T) {
	clock := NewMockClock(time.Unix(1700000000, 0))
	c := New(Config{TTL: time.Minute, Clock: clock})

	c.Set("blockNumber", uint64(100))
	clock.Advance(50 * time.Second)
	c.Set("blockNumber", uint64(200))

	// The overwrite restarted the entry's lifetime
	clock.Advance(30 * time.Second)
	v, ok := c.Get("blockNumber")
	if !ok {
		t.Fatal("Get after overwrite missed")
	}
	if v != uint64(200) {
		t.Errorf("Get = %v, want 200", v)
	}
}

func TestCachePerEntryTTL(t *testing.T) {
	clock := NewMockClock(time.Unix(1700000000, 0))
	c := New(Config{TTL: time.Minute, Clock: clock})

	c.SetTTL("short", "a", 10*time.Second)
	c.Set("long", "b")

	clock.Advance(30 * time.Second)

	if _, ok := c.Get("short"); ok {
		t.Error("short-TTL entry survived past its TTL")
	}
	if _, ok := c.Get("long"); !ok {
		t.Error("default-TTL entry expired early")
	}
}

func TestCacheSweepRemovesUnreadEntries(t *testing.T) {
	clock := NewMockClock(time.Unix(1700000000, 0))
	c := New(Config{TTL: time.Minute, Clock: clock})

	for i := 0; i < 10; i++ {
		c.Set(fmt.Sprintf("key-%d", i), i)
	}
	clock.Advance(30 * time.Second)
	c.Set("fresh", "still here")

	clock.Advance(45 * time.Second)

	examined, removed := c.sweep()
	if examined != 11 {
		t.Errorf("sweep examined %d entries, want 11", examined)
	}
	if removed != 10 {
		t.Errorf("sweep removed %d entries, want 10", removed)
	}
	if c.Len() != 1 {
		t.Errorf("Len after sweep = %d, want 1", c.Len())
	}
	if _, ok := c.Get("fresh"); !ok {
		t.Error("sweep removed a fresh entry")
	}
}

func TestStartSweepStopsOnCancel(t *testing.T) {
	c := New(Config{TTL: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.StartSweep(ctx, time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("StartSweep did not stop on context cancellation")
	}
}

func TestCacheFlush(t *testing.T) {
	c := New(Config{})

	c.Set("a", 1)
	c.Set("b", 2)
	c.Flush()

	if c.Len() != 0 {
		t.Errorf("Len after Flush = %d, want 0", c.Len())
	}
}

func TestValueTypedAccess(t *testing.T) {
	c := New(Config{})

	c.Set("gasPrice", uint64(42))

	if v, ok := Value[uint64](c, "gasPrice"); !ok || v != 42 {
		t.Errorf("Value[uint64] = %v, %v; want 42, true", v, ok)
	}

	// Wrong type counts as a miss but leaves the entry alone
	if _, ok := Value[string](c, "gasPrice"); ok {
		t.Error("Value[string] on a uint64 entry hit, want miss")
	}
	if v, ok := Value[uint64](c, "gasPrice"); !ok || v != 42 {
		t.Errorf("entry was disturbed by a mistyped read: %v, %v", v, ok)
	}

	if _, ok := Value[uint64](c, "absent"); ok {
		t.Error("Value on an absent key hit, want miss")
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	clock := NewMockClock(time.Unix(1700000000, 0))
	c := New(Config{TTL: time.Minute, Clock: clock})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", n%4)
			for j := 0; j < 500; j++ {
				c.Set(key, j)
				c.Get(key)
				if j%50 == 0 {
					c.sweep()
				}
			}
		}(i)
	}
	wg.Wait()

	if c.Len() != 4 {
		t.Errorf("Len = %d, want 4", c.Len())
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	c := New(Config{})
	if c.ttl != DefaultTTL {
		t.Errorf("default TTL = %v, want %v", c.ttl, DefaultTTL)
	}
	if c.clock == nil {
		t.Error("Clock should not be nil")
	}
}
