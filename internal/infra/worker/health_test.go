package worker

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"
)

func healthTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// startHealthServer starts a server on the given address and blocks until
// it is accepting requests. Shutdown is wired into test cleanup.
func startHealthServer(t *testing.T, addr string) *HealthServer {
	t.Helper()

	server := NewHealthServer(addr, healthTestLogger())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		time.Sleep(50 * time.Millisecond)
	})

	go func() {
		if err := server.Start(ctx); err != nil && err != http.ErrServerClosed {
			t.Errorf("unexpected server error: %v", err)
		}
	}()

	// Wait for the listener to come up
	time.Sleep(100 * time.Millisecond)
	return server
}

// getJSON fetches a URL, decodes the JSON body into out, and returns the
// HTTP status code.
func getJSON(t *testing.T, url string, out any) int {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("failed to call %s: %v", url, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			t.Errorf("failed to close response body: %v", cerr)
		}
	}()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("failed to decode response from %s: %v", url, err)
	}
	return resp.StatusCode
}

func TestHealthServer_Liveness(t *testing.T) {
	startHealthServer(t, "localhost:19181")

	var response healthResponse
	code := getJSON(t, "http://localhost:19181/health", &response)

	if code != http.StatusOK {
		t.Errorf("expected status 200, got %d", code)
	}
	if response.Status != "ok" {
		t.Errorf("expected status 'ok', got '%s'", response.Status)
	}
}

func TestHealthServer_Readiness_NotReady(t *testing.T) {
	startHealthServer(t, "localhost:19182")

	// Not ready by default
	var response healthResponse
	code := getJSON(t, "http://localhost:19182/health/ready", &response)

	if code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", code)
	}
	if response.Status != "not ready" {
		t.Errorf("expected status 'not ready', got '%s'", response.Status)
	}
}

func TestHealthServer_Readiness_Transition(t *testing.T) {
	server := startHealthServer(t, "localhost:19183")
	url := "http://localhost:19183/health/ready"

	var response healthResponse

	// Not ready initially
	if code := getJSON(t, url, &response); code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503 initially, got %d", code)
	}

	// Transition to ready
	server.SetReady(true)
	if code := getJSON(t, url, &response); code != http.StatusOK {
		t.Errorf("expected status 200 after SetReady(true), got %d", code)
	}
	if response.Status != "ok" {
		t.Errorf("expected status 'ok', got '%s'", response.Status)
	}

	// Transition back to not ready
	server.SetReady(false)
	if code := getJSON(t, url, &response); code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503 after SetReady(false), got %d", code)
	}
}

func TestHealthServer_Status_NoSource(t *testing.T) {
	startHealthServer(t, "localhost:19184")

	var response healthResponse
	code := getJSON(t, "http://localhost:19184/status", &response)

	if code != http.StatusNotFound {
		t.Errorf("expected status 404 without a status source, got %d", code)
	}
	if response.Status != "no status source" {
		t.Errorf("expected status 'no status source', got '%s'", response.Status)
	}
}

func TestHealthServer_Status_WithSource(t *testing.T) {
	server := startHealthServer(t, "localhost:19185")
	server.SetStatusFunc(func() any {
		return map[string]any{
			"healthy":        true,
			"degraded_since": "",
			"endpoints":      []string{"chain-rpc", "social"},
		}
	})

	var status map[string]any
	code := getJSON(t, "http://localhost:19185/status", &status)

	if code != http.StatusOK {
		t.Errorf("expected status 200, got %d", code)
	}
	if status["healthy"] != true {
		t.Errorf("expected healthy true in snapshot, got %v", status["healthy"])
	}
	endpoints, ok := status["endpoints"].([]any)
	if !ok || len(endpoints) != 2 {
		t.Errorf("expected 2 endpoints in snapshot, got %v", status["endpoints"])
	}
}

func TestHealthServer_Status_NilFuncIgnored(t *testing.T) {
	server := startHealthServer(t, "localhost:19186")
	server.SetStatusFunc(nil)

	var response healthResponse
	code := getJSON(t, "http://localhost:19186/status", &response)

	if code != http.StatusNotFound {
		t.Errorf("expected status 404 after SetStatusFunc(nil), got %d", code)
	}
}

func TestHealthServer_GracefulShutdown(t *testing.T) {
	server := NewHealthServer("localhost:19187", healthTestLogger())

	ctx, cancel := context.WithCancel(context.Background())

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	// Wait for the listener to come up
	time.Sleep(100 * time.Millisecond)

	resp, err := http.Get("http://localhost:19187/health")
	if err != nil {
		t.Fatalf("server not running: %v", err)
	}
	if err := resp.Body.Close(); err != nil {
		t.Errorf("failed to close response body: %v", err)
	}

	// Trigger graceful shutdown
	cancel()

	select {
	case err := <-errChan:
		if err != http.ErrServerClosed {
			t.Errorf("expected http.ErrServerClosed, got %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("shutdown timeout")
	}

	// Verify server is stopped
	_, err = http.Get("http://localhost:19187/health")
	if err == nil {
		t.Error("expected connection error after shutdown, but got success")
	}
}

func TestNewHealthServer(t *testing.T) {
	server := NewHealthServer(":9091", healthTestLogger())

	if server.addr != ":9091" {
		t.Errorf("expected addr ':9091', got '%s'", server.addr)
	}

	if server.logger == nil {
		t.Error("expected logger to be set")
	}

	if server.isReady == nil {
		t.Fatal("expected isReady to be initialized")
	}

	// Should start as not ready
	if server.isReady.Load() {
		t.Error("expected isReady to be false initially")
	}
}

func TestSetReady(t *testing.T) {
	server := NewHealthServer(":9091", healthTestLogger())

	if server.isReady.Load() {
		t.Error("expected isReady to be false initially")
	}

	server.SetReady(true)
	if !server.isReady.Load() {
		t.Error("expected isReady to be true after SetReady(true)")
	}

	server.SetReady(false)
	if server.isReady.Load() {
		t.Error("expected isReady to be false after SetReady(false)")
	}
}
