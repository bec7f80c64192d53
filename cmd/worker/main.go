package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"chainpulse/internal/config"
	"chainpulse/internal/domain/event"
	"chainpulse/internal/infra/chainrpc"
	"chainpulse/internal/infra/composer"
	"chainpulse/internal/infra/explorer"
	"chainpulse/internal/infra/social"
	workerPkg "chainpulse/internal/infra/worker"
	"chainpulse/internal/observability/logging"
	"chainpulse/internal/observability/slo"
	"chainpulse/internal/resilience/cache"
	"chainpulse/internal/resilience/health"
	"chainpulse/internal/resilience/ratelimit"
	"chainpulse/internal/resilience/retry"
	"chainpulse/internal/usecase/watch"
	pkgconfig "chainpulse/pkg/config"
)

// defaultWrappedNative is WETH on Ethereum mainnet. Plain ETH transfers
// emit no logs, so the large-transfer scanner watches the wrapped token.
const defaultWrappedNative = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"

// defaultLargeTransferEth is the report threshold in whole ETH.
const defaultLargeTransferEth = 100

func main() {
	logger := initLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load watcher configuration (fail-open strategy)
	watcherMetrics := workerPkg.NewWatcherMetrics()
	watcherMetrics.MustRegister()
	watcherConfig, err := workerPkg.LoadConfigFromEnv(logger, watcherMetrics)
	if err != nil {
		logger.Error("failed to load watcher configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("watcher configuration loaded",
		slog.String("cron_schedule", watcherConfig.CronSchedule),
		slog.String("timezone", watcherConfig.Timezone),
		slog.Int("fetch_max_concurrent", watcherConfig.FetchMaxConcurrent),
		slog.Duration("cycle_timeout", watcherConfig.CycleTimeout),
		slog.Int("health_port", watcherConfig.HealthPort))

	// Resilience tunables come in two tiers: RESILIENCE_* environment
	// variables for the global knobs, endpoints.yaml for per-endpoint
	// overrides. The file wins where both set the same knob.
	resilience, err := pkgconfig.LoadResilienceConfig()
	if err != nil {
		logger.Error("failed to load resilience configuration", slog.Any("error", err))
		os.Exit(1)
	}
	endpoints := loadEndpointsConfig(logger)

	executor := setupExecutor(ctx, logger, resilience, endpoints)
	reader, monitor := setupChain(ctx, logger, resilience)

	svc := watch.NewService(
		monitor,
		executor,
		reader,
		buildScanners(logger, reader),
		setupMetaLookup(logger),
		setupComposer(logger),
		setupPoster(logger),
		loadWatchConfig(logger, watcherConfig),
		logger,
	)

	// Start metrics HTTP server
	startMetricsServer(ctx, logger)

	// Start health check server
	healthAddr := fmt.Sprintf(":%d", watcherConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)
	healthServer.SetStatusFunc(func() any { return svc.Status() })
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()
	logger.Info("health check server started", slog.String("addr", healthAddr))

	sloRecorder := slo.NewRecorder(0)
	startCronWorker(ctx, logger, svc, watcherConfig, watcherMetrics, sloRecorder, healthServer)
}

// initLogger initializes and returns a structured logger based on environment configuration.
// LOG_FORMAT=text switches to human-readable output for local runs.
func initLogger() *slog.Logger {
	var logger *slog.Logger
	if os.Getenv("LOG_FORMAT") == "text" {
		logger = logging.NewTextLogger()
	} else {
		logger = logging.NewLogger()
	}
	slog.SetDefault(logger)
	return logger
}

// loadEndpointsConfig reads per-endpoint resilience overrides. A missing
// file is not fatal when the path was not set explicitly: the resilience
// layer has defaults for everything, so the worker starts on those.
func loadEndpointsConfig(logger *slog.Logger) *config.EndpointsConfig {
	path := os.Getenv("ENDPOINTS_CONFIG")
	explicit := path != ""
	if !explicit {
		path = "configs/endpoints.yaml"
	}

	cfg, err := config.LoadEndpointsConfig(path)
	if err != nil {
		if explicit {
			logger.Error("failed to load endpoints configuration",
				slog.String("path", path), slog.Any("error", err))
			os.Exit(1)
		}
		logger.Warn("endpoints configuration not loaded, using defaults",
			slog.String("path", path), slog.Any("error", err))
		return &config.EndpointsConfig{}
	}

	logger.Info("endpoints configuration loaded",
		slog.String("path", path),
		slog.Int("endpoints", len(cfg.Resilience.Endpoints)))
	return cfg
}

// setupExecutor builds the shared resilience stack: the rate limit
// tracker, the response cache with its background sweep, and the retry
// executor every outbound call runs through.
func setupExecutor(ctx context.Context, logger *slog.Logger, resilience *pkgconfig.ResilienceConfig, endpoints *config.EndpointsConfig) *retry.Executor {
	safetyMargin := resilience.SafetyMargin
	if m := endpoints.GetDefaultSafetyMargin(); m > 0 {
		safetyMargin = m
	}
	tracker := ratelimit.NewTracker(ratelimit.TrackerConfig{
		SafetyMargin:    safetyMargin,
		EndpointMargins: endpoints.GetSafetyMargins(),
		Logger:          logger,
	})

	cacheTTL := resilience.CacheTTL
	if ttl := endpoints.GetDefaultCacheTTL(); ttl > 0 {
		cacheTTL = ttl
	}
	responseCache := cache.New(cache.Config{
		TTL:    cacheTTL,
		Logger: logger,
	})
	go responseCache.StartSweep(ctx, resilience.CacheSweepInterval)

	retryConfig := retry.Config{
		MaxRetries:         resilience.MaxRetries,
		BestEffortSchedule: resilience.BackoffSchedule,
		EndpointTTLs:       endpoints.GetCacheTTLs(),
	}
	return retry.New(tracker, responseCache, retryConfig, logger)
}

// setupChain wires the JSON-RPC reader and its health monitor. The
// monitor owns probe freshness; cycles consult it before doing any work.
// Background probing is optional: without it, verdicts refresh on demand
// when a cycle finds them stale.
func setupChain(ctx context.Context, logger *slog.Logger, resilience *pkgconfig.ResilienceConfig) (*chainrpc.Reader, *health.Monitor) {
	rpcConfig, err := chainrpc.LoadConfigFromEnv()
	if err != nil {
		logger.Error("failed to load chain RPC configuration", slog.Any("error", err))
		os.Exit(1)
	}
	client := chainrpc.NewClient(rpcConfig, logger)
	reader := chainrpc.NewReader(client, rpcConfig, logger)
	logger.Info("chain RPC reader initialized",
		slog.String("host", endpointHost(rpcConfig.Endpoint)),
		slog.Duration("timeout", rpcConfig.Timeout),
		slog.Uint64("max_block_range", rpcConfig.MaxBlockRange))

	monitor := health.NewMonitor("chain-rpc", func(ctx context.Context) bool {
		return reader.Probe(ctx) == nil
	}, health.Config{MaxAge: resilience.HealthMaxAge, Logger: logger})
	if resilience.HealthProbeInterval > 0 {
		go monitor.StartBackgroundProbe(ctx, resilience.HealthProbeInterval)
	}

	return reader, monitor
}

// endpointHost strips credentials and paths from an RPC URL for logging.
// Provider URLs routinely carry API keys in the path.
func endpointHost(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return "invalid"
	}
	return u.Host
}

// buildScanners assembles the event scanners for the cycle fan-out.
// Thresholds come from the environment so deployments can tune noise
// without a rebuild.
func buildScanners(logger *slog.Logger, reader *chainrpc.Reader) []watch.EventScanner {
	wrapped := pkgconfig.GetEnvString("WATCH_WRAPPED_NATIVE", defaultWrappedNative)

	minEth := int64(defaultLargeTransferEth)
	if raw := os.Getenv("WATCH_MIN_TRANSFER_ETH"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			logger.Warn("invalid WATCH_MIN_TRANSFER_ETH, using default",
				slog.String("value", raw), slog.Int64("default", minEth))
		} else {
			minEth = parsed
		}
	}

	scanners := []watch.EventScanner{
		chainrpc.NewLargeTransferScanner(reader, chainrpc.LargeTransferConfig{
			WrappedNative: wrapped,
			MinAmountWei:  new(big.Int).Mul(big.NewInt(minEth), big.NewInt(1e18)),
		}, logger),
		chainrpc.NewTokenTransferScanner(reader, chainrpc.TokenTransferConfig{
			Tokens: defaultWatchedTokens(),
		}, logger),
		chainrpc.NewNewContractScanner(reader, chainrpc.NewContractConfig{}, logger),
	}

	logger.Info("event scanners initialized",
		slog.Int("count", len(scanners)),
		slog.Int64("min_transfer_eth", minEth))
	return scanners
}

// defaultWatchedTokens is the mainnet stablecoin set worth reporting.
// Minimums are one million tokens, in each token's raw units.
func defaultWatchedTokens() map[string]chainrpc.WatchedToken {
	return map[string]chainrpc.WatchedToken{
		"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48": {Symbol: "USDC", Decimals: 6, MinAmount: tokenUnits(1_000_000, 6)},
		"0xdac17f958d2ee523a2206206994597c13d831ec7": {Symbol: "USDT", Decimals: 6, MinAmount: tokenUnits(1_000_000, 6)},
		"0x6b175474e89094c44da98b954eedeac495271d0f": {Symbol: "DAI", Decimals: 18, MinAmount: tokenUnits(1_000_000, 18)},
	}
}

// tokenUnits converts a whole-token amount into raw units.
func tokenUnits(amount int64, decimals int) *big.Int {
	exp := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return new(big.Int).Mul(big.NewInt(amount), exp)
}

// loadWatchConfig assembles the cycle configuration. Chain identity and
// the scan window are environment-tunable; the rest rides on package
// defaults.
func loadWatchConfig(logger *slog.Logger, watcherConfig *workerPkg.WatcherConfig) watch.Config {
	cfg := watch.Config{
		MaxConcurrentFetches: watcherConfig.FetchMaxConcurrent,
		ChainName:            os.Getenv("WATCH_CHAIN_NAME"),
		NativeSymbol:         os.Getenv("WATCH_NATIVE_SYMBOL"),
	}
	if raw := os.Getenv("WATCH_SCAN_BLOCKS"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || parsed == 0 {
			logger.Warn("invalid WATCH_SCAN_BLOCKS, using default", slog.String("value", raw))
		} else {
			cfg.ScanBlocks = parsed
		}
	}
	return cfg
}

// setupMetaLookup wires the explorer scraper. Returning nil disables
// enrichment; the watch service then posts shortened raw addresses.
func setupMetaLookup(logger *slog.Logger) watch.MetaLookup {
	if !pkgconfig.GetEnvBool("EXPLORER_ENABLED", true) {
		logger.Info("explorer enrichment disabled")
		return nil
	}

	explorerConfig, err := explorer.LoadConfigFromEnv()
	if err != nil {
		logger.Warn("invalid explorer configuration, enrichment disabled", slog.Any("error", err))
		return nil
	}

	logger.Info("explorer enrichment enabled", slog.String("base_url", explorerConfig.BaseURL))
	return &explorerLookup{client: explorer.NewClient(explorerConfig, logger)}
}

// setupComposer selects the post composer. Composition is the one
// dependency the worker cannot run without, so a bad configuration is
// fatal rather than fail-open.
func setupComposer(logger *slog.Logger) watch.Composer {
	composerConfig, err := config.LoadComposerConfig()
	if err != nil {
		logger.Error("failed to load composer configuration", slog.Any("error", err))
		os.Exit(1)
	}

	comp, err := composer.New(composerConfig, logger)
	if err != nil {
		logger.Error("failed to initialize composer", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("composer initialized", slog.String("provider", composerConfig.Provider))
	return comp
}

// setupPoster wires the social platform client, or the no-op poster when
// publishing is disabled. Cycles still run either way, which is how
// staging environments watch without posting.
func setupPoster(logger *slog.Logger) watch.Poster {
	socialConfig := loadSocialConfig(logger)
	if !socialConfig.Enabled {
		logger.Info("social posting disabled, using noop poster")
		return &socialPoster{poster: social.NewNoopPoster()}
	}

	logger.Info("social posting enabled", slog.String("base_url", socialConfig.BaseURL))
	return &socialPoster{poster: social.NewClient(socialConfig, logger)}
}

// loadSocialConfig loads social platform configuration from environment variables.
//
// Environment variables:
//   - SOCIAL_ENABLED: Boolean flag to enable posting (default: false)
//   - SOCIAL_BASE_URL: Platform API origin (required if enabled)
//   - SOCIAL_ACCESS_TOKEN: Bearer token (required if enabled)
func loadSocialConfig(logger *slog.Logger) social.Config {
	if !pkgconfig.GetEnvBool("SOCIAL_ENABLED", false) {
		return social.Config{Enabled: false}
	}

	baseURL := os.Getenv("SOCIAL_BASE_URL")
	accessToken := os.Getenv("SOCIAL_ACCESS_TOKEN")

	if baseURL == "" {
		logger.Warn("social base URL is empty, disabling posting")
		return social.Config{Enabled: false}
	}
	if accessToken == "" {
		logger.Warn("social access token is empty, disabling posting")
		return social.Config{Enabled: false}
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		logger.Warn("invalid social base URL format, disabling posting", slog.Any("error", err))
		return social.Config{Enabled: false}
	}
	if u.Scheme != "https" {
		logger.Warn("social base URL must use HTTPS, disabling posting")
		return social.Config{Enabled: false}
	}
	if u.Host == "" {
		logger.Warn("social base URL has no host, disabling posting")
		return social.Config{Enabled: false}
	}

	return social.Config{
		Enabled:     true,
		BaseURL:     strings.TrimRight(baseURL, "/"),
		AccessToken: accessToken,
	}
}

// explorerLookup adapts the explorer client to the watch service's
// metadata interface.
type explorerLookup struct {
	client *explorer.Client
}

func (e *explorerLookup) Lookup(ctx context.Context, address string) (event.ContractMeta, error) {
	meta, err := e.client.Lookup(ctx, address)
	if err != nil {
		return event.ContractMeta{}, err
	}
	return meta.Meta(), nil
}

// socialPoster adapts a social poster to the watch service's interface.
type socialPoster struct {
	poster social.Poster
}

func (p *socialPoster) PostStatus(ctx context.Context, text string) (watch.PostResult, http.Header, error) {
	receipt, headers, err := p.poster.PostStatus(ctx, text)
	if err != nil {
		return watch.PostResult{}, headers, err
	}
	return watch.PostResult{ID: receipt.ID, URL: receipt.URL}, headers, nil
}

// startCronWorker schedules the watch cycle and blocks until shutdown.
func startCronWorker(ctx context.Context, logger *slog.Logger, svc *watch.Service, cfg *workerPkg.WatcherConfig, metrics *workerPkg.WatcherMetrics, sloRecorder *slo.Recorder, healthServer *workerPkg.HealthServer) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone, using UTC", slog.String("timezone", cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))

	_, err = c.AddFunc(cfg.CronSchedule, func() {
		runWatchCycle(logger, svc, cfg, metrics, sloRecorder)
	})
	if err != nil {
		logger.Error("failed to add cron job", slog.Any("error", err))
		os.Exit(1)
	}
	c.Start()

	// Mark as ready after cron is set up
	healthServer.SetReady(true)
	logger.Info("watcher started", slog.String("schedule", cfg.CronSchedule), slog.String("timezone", cfg.Timezone))

	// An immediate first cycle closes the blind window between deploy
	// and the first scheduled tick.
	if cfg.RunOnStart {
		go runWatchCycle(logger, svc, cfg, metrics, sloRecorder)
	}

	<-ctx.Done()
	logger.Info("shutdown signal received, stopping scheduler")
	<-c.Stop().Done()
	logger.Info("watcher stopped")
}

// runWatchCycle executes one scheduled cycle with its own timeout and
// records the outcome. Skipped cycles stay out of the SLO window: a
// deliberate skip is load shedding, not a delivery failure.
func runWatchCycle(logger *slog.Logger, svc *watch.Service, cfg *workerPkg.WatcherConfig, metrics *workerPkg.WatcherMetrics, sloRecorder *slo.Recorder) {
	startTime := time.Now()
	logger.Info("watch cycle triggered")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.CycleTimeout)
	defer cancel()

	stats, err := svc.RunCycle(ctx)
	metrics.RecordCycleDuration(time.Since(startTime).Seconds())

	switch {
	case err != nil:
		logger.Error("watch cycle failed", slog.Any("error", err))
		metrics.RecordCycleRun("failure")
		sloRecorder.Record(false, time.Since(startTime))
		return
	case stats.Skipped:
		logger.Warn("watch cycle skipped, chain dependency degraded")
		metrics.RecordCycleRun("skipped_degraded")
		return
	}

	metrics.RecordCycleRun("success")
	sloRecorder.Record(true, time.Since(startTime))
	metrics.RecordEventsObserved(stats.EventsObserved)
	metrics.RecordLastSuccess()
	if stats.Posted {
		metrics.RecordPostPublished()
	}
	if stats.BlockNumber > 0 {
		metrics.SetLastObservedBlock(stats.BlockNumber)
	}

	logger.Info("watch cycle completed",
		slog.Uint64("block", stats.BlockNumber),
		slog.Int("events", stats.EventsObserved),
		slog.Bool("posted", stats.Posted),
		slog.String("post_id", stats.PostID),
		slog.Duration("duration", stats.Duration))
}
