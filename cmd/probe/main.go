// Package main provides a one-shot connectivity probe for the watcher's
// upstream dependencies. It is meant for container healthchecks and
// deploy-time smoke tests.
// Usage: chainpulse-probe [--social] [--timeout 15s] [--output json]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"time"

	"chainpulse/internal/infra/chainrpc"
	"chainpulse/internal/infra/social"
	"chainpulse/internal/resilience/ratelimit"
	"chainpulse/internal/resilience/retry"
	"chainpulse/internal/usecase/watch"
)

// ProbeOutput represents the JSON output format for probe results.
// RateLimits is present only when the probe observed a rate limit, which
// is the case worth reporting after a failed deploy check.
type ProbeOutput struct {
	Healthy     bool                            `json:"healthy"`
	BlockNumber uint64                          `json:"block_number,omitempty"`
	GasPriceWei string                          `json:"gas_price_wei,omitempty"`
	Social      string                          `json:"social,omitempty"`
	RateLimits  map[string]watch.EndpointStatus `json:"rate_limits,omitempty"`
	Error       string                          `json:"error,omitempty"`
	DurationMS  int64                           `json:"duration_ms"`
}

func main() {
	var (
		timeout      time.Duration
		checkSocial  bool
		outputFormat string
	)
	flag.DurationVar(&timeout, "timeout", 15*time.Second, "Overall probe deadline")
	flag.BoolVar(&checkSocial, "social", false, "Also verify social platform credentials")
	flag.StringVar(&outputFormat, "output", "text", "Output format: text or json")
	flag.Parse()

	logger := initLogger()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	out := runProbe(ctx, logger, checkSocial)
	out.DurationMS = time.Since(start).Milliseconds()

	switch outputFormat {
	case "json":
		_ = json.NewEncoder(os.Stdout).Encode(out)
	default:
		printText(out)
	}

	if !out.Healthy {
		os.Exit(1)
	}
}

// runProbe checks the chain RPC endpoint and, on request, the social
// platform credentials. Probe attempts run through a short-schedule retry
// executor so a transient 429 does not fail a deploy.
func runProbe(ctx context.Context, logger *slog.Logger, checkSocial bool) ProbeOutput {
	rpcConfig, err := chainrpc.LoadConfigFromEnv()
	if err != nil {
		return ProbeOutput{Error: fmt.Sprintf("chain RPC configuration: %v", err)}
	}
	client := chainrpc.NewClient(rpcConfig, logger)
	reader := chainrpc.NewReader(client, rpcConfig, logger)

	tracker := ratelimit.NewTracker(ratelimit.TrackerConfig{Logger: logger})
	executor := retry.New(tracker, nil, retry.ProbeConfig(), logger)

	block, err := retry.Do(ctx, executor, watch.EndpointBlockNumber, func(ctx context.Context) (uint64, http.Header, error) {
		n, err := reader.BlockNumber(ctx)
		return n, nil, err
	})
	if err != nil {
		return ProbeOutput{
			Error:      fmt.Sprintf("block number: %v", err),
			RateLimits: watch.EndpointStatuses(tracker),
		}
	}

	gas, err := retry.Do(ctx, executor, watch.EndpointGasPrice, func(ctx context.Context) (*big.Int, http.Header, error) {
		g, err := reader.GasPrice(ctx)
		return g, nil, err
	})
	if err != nil {
		return ProbeOutput{
			BlockNumber: block,
			Error:       fmt.Sprintf("gas price: %v", err),
			RateLimits:  watch.EndpointStatuses(tracker),
		}
	}

	out := ProbeOutput{Healthy: true, BlockNumber: block, GasPriceWei: gas.String()}

	if checkSocial {
		out.Social, err = verifySocial(ctx, logger)
		if err != nil {
			out.Healthy = false
			out.Error = fmt.Sprintf("social: %v", err)
		}
	}

	out.RateLimits = watch.EndpointStatuses(tracker)
	return out
}

// verifySocial checks the platform token without posting anything.
func verifySocial(ctx context.Context, logger *slog.Logger) (string, error) {
	baseURL := os.Getenv("SOCIAL_BASE_URL")
	accessToken := os.Getenv("SOCIAL_ACCESS_TOKEN")
	if baseURL == "" || accessToken == "" {
		return "", fmt.Errorf("SOCIAL_BASE_URL and SOCIAL_ACCESS_TOKEN must be set")
	}

	client := social.NewClient(social.Config{
		Enabled:     true,
		BaseURL:     baseURL,
		AccessToken: accessToken,
	}, logger)

	if _, err := client.VerifyCredentials(ctx); err != nil {
		return "", err
	}
	return "verified", nil
}

func printText(out ProbeOutput) {
	if !out.Healthy {
		fmt.Printf("UNHEALTHY: %s (%dms)\n", out.Error, out.DurationMS)
		printRateLimits(out)
		return
	}
	fmt.Printf("OK: block %d, gas %s wei (%dms)\n", out.BlockNumber, out.GasPriceWei, out.DurationMS)
	if out.Social != "" {
		fmt.Printf("social credentials: %s\n", out.Social)
	}
	printRateLimits(out)
}

func printRateLimits(out ProbeOutput) {
	for name, es := range out.RateLimits {
		fmt.Printf("rate limited: %s remaining %d/%d, resets %s\n",
			name, es.Remaining, es.Limit, es.ResetAt.Format(time.RFC3339))
	}
}

func initLogger() *slog.Logger {
	logLevel := slog.LevelWarn
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return logger
}
