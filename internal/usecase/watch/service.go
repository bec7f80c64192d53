package watch

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"sort"
	"sync"
	"time"

	"chainpulse/internal/domain/event"
	"chainpulse/internal/observability/metrics"
	"chainpulse/internal/resilience/health"
	"chainpulse/internal/resilience/ratelimit"
	"chainpulse/internal/resilience/retry"

	"golang.org/x/sync/errgroup"
)

// Logical endpoint keys for the rate-limit tracker and the cache. The
// event scans share one key because every scan draws on the same
// eth_getLogs quota.
const (
	EndpointGasPrice    = "gas_price"
	EndpointBlockNumber = "block_number"
	EndpointLogs        = "logs"
	EndpointExplorer    = "explorer"
	EndpointCompose     = "compose"
	EndpointPost        = "post"
)

// ChainReader provides the scalar chain reads the cycle needs.
// The chainrpc Reader satisfies it.
type ChainReader interface {
	// GasPrice returns the current gas price in wei.
	GasPrice(ctx context.Context) (*big.Int, error)

	// BlockNumber returns the latest block height.
	BlockNumber(ctx context.Context) (uint64, error)
}

// EventScanner fetches one kind of noteworthy chain event over a block
// range. Scans run best effort: a scanner that fails contributes nothing
// to the cycle instead of failing it.
type EventScanner interface {
	// Kind identifies what the scanner looks for, for logs.
	Kind() event.Kind

	// Scan returns the events found in blocks [fromBlock, toBlock].
	Scan(ctx context.Context, fromBlock, toBlock uint64) ([]event.ChainEvent, error)
}

// MetaLookup resolves display metadata for an address, typically by
// scraping a block explorer page.
type MetaLookup interface {
	Lookup(ctx context.Context, address string) (event.ContractMeta, error)
}

// Composer turns the cycle digest into post text.
type Composer interface {
	Compose(ctx context.Context, digest string) (string, error)
}

// PostResult identifies a successfully published post.
type PostResult struct {
	ID  string
	URL string
}

// Poster publishes post text to the social platform. The returned headers
// carry the platform's rate-limit metadata for the tracker; nil when the
// implementation has none.
type Poster interface {
	PostStatus(ctx context.Context, text string) (PostResult, http.Header, error)
}

// Config holds the watch cycle settings.
type Config struct {
	// MaxConcurrentFetches bounds the parallel fan-out of chain reads.
	// Default: 3
	MaxConcurrentFetches int

	// ScanBlocks is the block window for the first cycle and the cap on
	// catch-up after downtime. Default: 25 (five minutes of 12-second
	// blocks)
	ScanBlocks uint64

	// MaxEnrichments bounds explorer lookups per cycle. Default: 3
	MaxEnrichments int

	// ChainName labels the digest, e.g. "Ethereum". Default: "Ethereum"
	ChainName string

	// NativeSymbol is the native token ticker for digest amounts.
	// Default: "ETH"
	NativeSymbol string
}

// DefaultConfig returns the default watch cycle settings.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentFetches: 3,
		ScanBlocks:           25,
		MaxEnrichments:       3,
		ChainName:            "Ethereum",
		NativeSymbol:         "ETH",
	}
}

// Service orchestrates the watch cycle. It owns no transport of its own;
// every external call goes through the retry executor so pre-emptive
// throttling and rate-limit bookkeeping apply uniformly.
type Service struct {
	monitor  *health.Monitor
	executor *retry.Executor
	chain    ChainReader
	scanners []EventScanner
	meta     MetaLookup
	composer Composer
	poster   Poster
	cfg      Config
	logger   *slog.Logger

	// mu guards the scan cursor and the last cycle report.
	mu        sync.Mutex
	lastBlock uint64
	lastCycle *CycleReport
}

// NewService creates a watch Service with the provided dependencies.
//
// Parameters:
//   - monitor: health monitor for the chain dependency; gates every cycle
//   - executor: shared retry executor (tracker + cache attached)
//   - chain: scalar chain reads (gas price, block number)
//   - scanners: event scans to fan out; may be empty to disable scanning
//   - meta: explorer metadata lookup; may be nil to disable enrichment
//   - composer: post text composer
//   - poster: social platform publisher
//   - cfg: cycle settings; zero fields fall back to DefaultConfig
//   - logger: structured logger; nil falls back to slog.Default
func NewService(
	monitor *health.Monitor,
	executor *retry.Executor,
	chain ChainReader,
	scanners []EventScanner,
	meta MetaLookup,
	composer Composer,
	poster Poster,
	cfg Config,
	logger *slog.Logger,
) *Service {
	def := DefaultConfig()
	if cfg.MaxConcurrentFetches <= 0 {
		cfg.MaxConcurrentFetches = def.MaxConcurrentFetches
	}
	if cfg.ScanBlocks == 0 {
		cfg.ScanBlocks = def.ScanBlocks
	}
	if cfg.MaxEnrichments <= 0 {
		cfg.MaxEnrichments = def.MaxEnrichments
	}
	if cfg.ChainName == "" {
		cfg.ChainName = def.ChainName
	}
	if cfg.NativeSymbol == "" {
		cfg.NativeSymbol = def.NativeSymbol
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		monitor:  monitor,
		executor: executor,
		chain:    chain,
		scanners: scanners,
		meta:     meta,
		composer: composer,
		poster:   poster,
		cfg:      cfg,
		logger:   logger,
	}
}

// CycleStats contains statistics about one watch cycle.
type CycleStats struct {
	Skipped        bool
	BlockNumber    uint64
	GasPriceWei    uint64
	EventsObserved int
	Posted         bool
	PostID         string
	Duration       time.Duration
}

// RunCycle executes one watch cycle.
//
// Order of operations:
//  1. Health gate: EnsureFresh on the chain monitor; a not-healthy
//     verdict skips the entire cycle without a single wrapped call.
//  2. Observe: block number and gas price through the cached executor
//     path, event scans fanned out best effort.
//  3. Enrich: explorer metadata for event addresses, bounded and cached.
//  4. Compose and publish through the retrying executor path.
//
// A skipped cycle returns stats with Skipped set and a nil error. An
// observation with nothing in it fails the cycle and re-probes the
// dependency immediately, so recovery does not wait for the next
// scheduled check.
func (s *Service) RunCycle(ctx context.Context) (stats *CycleStats, err error) {
	start := time.Now()
	stats = &CycleStats{}
	defer func() {
		stats.Duration = time.Since(start)
		s.recordCycle(stats, err)
	}()

	if !s.monitor.EnsureFresh(ctx) {
		snap := s.monitor.Snapshot()
		s.logger.WarnContext(ctx, "chain dependency not healthy, skipping watch cycle",
			slog.String("job", "watch"),
			slog.String("status", snap.Status.String()),
			slog.Time("checked_at", snap.CheckedAt))
		stats.Skipped = true
		return stats, nil
	}

	obs := s.observe(ctx)
	stats.BlockNumber = obs.BlockNumber
	stats.GasPriceWei = obs.GasPriceWei
	stats.EventsObserved = len(obs.Events)

	if obs.GasPriceWei > 0 {
		metrics.UpdateGasPrice(obs.GasPriceGwei())
	}
	for _, ev := range obs.Events {
		metrics.RecordChainEvent(string(ev.Kind))
	}

	if obs.Empty() {
		s.logger.ErrorContext(ctx, "watch cycle observed nothing, re-probing dependency",
			slog.String("job", "watch"))
		s.monitor.Probe(ctx)
		return stats, ErrEmptyObservation
	}

	metas := s.enrich(ctx, obs.Events)
	digest := buildDigest(s.cfg.ChainName, s.cfg.NativeSymbol, obs, metas)

	composed, err := retry.Do(ctx, s.executor, EndpointCompose, func(ctx context.Context) (string, http.Header, error) {
		text, err := s.composer.Compose(ctx, digest)
		return text, nil, err
	})
	if err != nil {
		return stats, fmt.Errorf("compose post: %w", err)
	}

	post := event.Post{Text: composed, Observed: obs, ComposedAt: time.Now()}
	if err := post.Validate(); err != nil {
		return stats, fmt.Errorf("%w: %v", ErrInvalidPost, err)
	}

	receipt, err := retry.Do(ctx, s.executor, EndpointPost, func(ctx context.Context) (PostResult, http.Header, error) {
		return s.poster.PostStatus(ctx, post.Text)
	})
	if err != nil {
		return stats, fmt.Errorf("publish post: %w", err)
	}
	stats.Posted = true
	stats.PostID = receipt.ID

	s.logger.InfoContext(ctx, "watch cycle completed",
		slog.String("job", "watch"),
		slog.Uint64("block", obs.BlockNumber),
		slog.Int("events", len(obs.Events)),
		slog.String("post_id", receipt.ID),
		slog.Duration("duration", time.Since(start)))

	return stats, nil
}

// observe gathers the cycle's view of the chain. The block number is read
// first because it anchors the scan range; the gas price and the event
// scans then fan out in parallel under the concurrency bound. Every read
// fails soft, leaving its field empty in the returned observation.
func (s *Service) observe(ctx context.Context) event.Observation {
	obs := event.Observation{ObservedAt: time.Now()}

	block, err := retry.DoCached(ctx, s.executor, EndpointBlockNumber, EndpointBlockNumber, func(ctx context.Context) (uint64, http.Header, error) {
		n, err := s.chain.BlockNumber(ctx)
		return n, nil, err
	})
	if err != nil {
		s.logger.WarnContext(ctx, "block number read failed",
			slog.String("endpoint", EndpointBlockNumber),
			slog.Any("error", err))
	} else {
		obs.BlockNumber = block
	}

	var (
		mu     sync.Mutex
		events []event.ChainEvent
		gas    uint64
	)

	sem := make(chan struct{}, s.cfg.MaxConcurrentFetches)
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		sem <- struct{}{}
		defer func() { <-sem }()

		price, err := retry.DoCached(egCtx, s.executor, EndpointGasPrice, EndpointGasPrice, func(ctx context.Context) (*big.Int, http.Header, error) {
			p, err := s.chain.GasPrice(ctx)
			return p, nil, err
		})
		if err != nil {
			s.logger.WarnContext(egCtx, "gas price read failed",
				slog.String("endpoint", EndpointGasPrice),
				slog.Any("error", err))
			return nil
		}
		if price == nil || !price.IsUint64() {
			s.logger.WarnContext(egCtx, "gas price out of range, ignoring",
				slog.String("endpoint", EndpointGasPrice))
			return nil
		}
		gas = price.Uint64()
		return nil
	})

	from, to, ok := s.scanRange(obs.BlockNumber)
	if ok {
		metrics.RecordScanWindow(from, to)
		for _, sc := range s.scanners {
			scanner := sc
			eg.Go(func() error {
				sem <- struct{}{}
				defer func() { <-sem }()

				found := retry.BestEffort(egCtx, s.executor, EndpointLogs, func(ctx context.Context) ([]event.ChainEvent, error) {
					return scanner.Scan(ctx, from, to)
				})
				if len(found) == 0 {
					return nil
				}
				mu.Lock()
				events = append(events, found...)
				mu.Unlock()
				return nil
			})
		}
	}

	// Fetches fail soft, so no goroutine ever returns an error.
	_ = eg.Wait()

	obs.GasPriceWei = gas
	obs.Events = events

	// Scans complete in arbitrary order; sort for a stable digest.
	sort.Slice(obs.Events, func(i, j int) bool {
		if obs.Events[i].BlockNumber != obs.Events[j].BlockNumber {
			return obs.Events[i].BlockNumber < obs.Events[j].BlockNumber
		}
		if obs.Events[i].TxHash != obs.Events[j].TxHash {
			return obs.Events[i].TxHash < obs.Events[j].TxHash
		}
		return obs.Events[i].Kind < obs.Events[j].Kind
	})

	if ok {
		s.advanceScanned(to)
	}
	return obs
}

// scanRange returns the block window for this cycle's event scans. The
// window continues from the previous cycle's cursor; the first cycle, and
// any cycle too far behind the head, scans only the most recent
// ScanBlocks window. The watcher surfaces news, it does not index, so
// blocks missed during downtime are not replayed.
func (s *Service) scanRange(current uint64) (from, to uint64, ok bool) {
	if current == 0 || len(s.scanners) == 0 {
		return 0, 0, false
	}

	s.mu.Lock()
	last := s.lastBlock
	s.mu.Unlock()

	if last >= current {
		// No new blocks since the previous cycle.
		return 0, 0, false
	}

	from = last + 1
	if last == 0 || current-from+1 > s.cfg.ScanBlocks {
		if current >= s.cfg.ScanBlocks {
			from = current - s.cfg.ScanBlocks + 1
		} else {
			from = 1
		}
	}
	return from, current, true
}

// advanceScanned moves the scan cursor. It advances even when a scan
// failed: a window lost to a failed best-effort scan is not replayed.
func (s *Service) advanceScanned(to uint64) {
	s.mu.Lock()
	if to > s.lastBlock {
		s.lastBlock = to
	}
	s.mu.Unlock()
}

// enrich resolves display metadata for event addresses. Lookups are
// bounded per cycle and served from the cache on repeats, and a failed
// lookup costs a log line, never the cycle. Token symbols the scanners
// could not provide are backfilled from the results.
func (s *Service) enrich(ctx context.Context, events []event.ChainEvent) map[string]event.ContractMeta {
	if s.meta == nil || len(events) == 0 {
		return nil
	}

	metas := make(map[string]event.ContractMeta)
	attempts := 0
	for i := range events {
		if attempts >= s.cfg.MaxEnrichments {
			break
		}
		addr := events[i].Address
		if addr == "" {
			continue
		}
		if _, done := metas[addr]; done {
			continue
		}
		attempts++

		meta, err := retry.DoCached(ctx, s.executor, EndpointExplorer, "explorer:"+addr, func(ctx context.Context) (event.ContractMeta, http.Header, error) {
			m, err := s.meta.Lookup(ctx, addr)
			return m, nil, err
		})
		metrics.RecordEnrichment(err == nil)
		if err != nil {
			s.logger.DebugContext(ctx, "explorer enrichment failed",
				slog.String("address", addr),
				slog.Any("error", err))
			continue
		}
		metas[addr] = meta
	}

	for i := range events {
		if events[i].Kind != event.KindTokenTransfer || events[i].TokenSymbol != "" {
			continue
		}
		if m, ok := metas[events[i].Address]; ok && m.TokenSymbol != "" {
			events[i].TokenSymbol = m.TokenSymbol
		}
	}
	return metas
}

// recordCycle stores the cycle outcome for the status surface.
func (s *Service) recordCycle(stats *CycleStats, err error) {
	report := &CycleReport{
		At:             time.Now(),
		Skipped:        stats.Skipped,
		BlockNumber:    stats.BlockNumber,
		GasPriceWei:    stats.GasPriceWei,
		EventsObserved: stats.EventsObserved,
		Posted:         stats.Posted,
		DurationMS:     stats.Duration.Milliseconds(),
	}
	if err != nil {
		report.Error = err.Error()
	}

	s.mu.Lock()
	s.lastCycle = report
	s.mu.Unlock()
}

// EndpointStatus is one endpoint's last known rate-limit window, shaped
// for the ops /status JSON payload.
type EndpointStatus struct {
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter string    `json:"retry_after,omitempty"`
}

// EndpointStatuses shapes a tracker snapshot for a status payload. The
// probe CLI shares it with the ops server so both report the same view.
func EndpointStatuses(tracker *ratelimit.Tracker) map[string]EndpointStatus {
	endpoints := make(map[string]EndpointStatus)
	for name, state := range tracker.Statuses() {
		es := EndpointStatus{
			Limit:     state.Limit,
			Remaining: state.Remaining,
			ResetAt:   state.ResetAt,
		}
		if state.RetryAfter > 0 {
			es.RetryAfter = state.RetryAfter.String()
		}
		endpoints[name] = es
	}
	return endpoints
}

// CycleReport summarizes the most recent cycle for the status surface.
type CycleReport struct {
	At             time.Time `json:"at"`
	Skipped        bool      `json:"skipped"`
	BlockNumber    uint64    `json:"block_number"`
	GasPriceWei    uint64    `json:"gas_price_wei"`
	EventsObserved int       `json:"events_observed"`
	Posted         bool      `json:"posted"`
	DurationMS     int64     `json:"duration_ms"`
	Error          string    `json:"error,omitempty"`
}

// StatusReport is the JSON payload served by the ops /status endpoint:
// the health verdict, the tracker's rate-limit snapshot, and the last
// cycle outcome.
type StatusReport struct {
	Healthy    bool                      `json:"healthy"`
	Dependency string                    `json:"dependency"`
	CheckedAt  time.Time                 `json:"checked_at"`
	Endpoints  map[string]EndpointStatus `json:"endpoints"`
	LastCycle  *CycleReport              `json:"last_cycle,omitempty"`
}

// Status returns a point-in-time snapshot for the ops server. Safe for
// concurrent use with a running cycle.
func (s *Service) Status() StatusReport {
	snap := s.monitor.Snapshot()

	s.mu.Lock()
	last := s.lastCycle
	s.mu.Unlock()

	return StatusReport{
		Healthy:    snap.Status == health.StatusHealthy,
		Dependency: snap.Status.String(),
		CheckedAt:  snap.CheckedAt,
		Endpoints:  EndpointStatuses(s.executor.Tracker()),
		LastCycle:  last,
	}
}
