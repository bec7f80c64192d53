package chainrpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"strings"

	"github.com/sony/gobreaker"

	"chainpulse/internal/resilience/circuitbreaker"
)

// LogFilter selects which event logs to fetch. The zero value of Addresses
// and Topics means "no filter" for that dimension.
type LogFilter struct {
	FromBlock uint64
	ToBlock   uint64
	// Addresses restricts logs to these contract addresses.
	Addresses []string
	// Topics is the positional topic filter; each inner slice is an OR
	// set for that position.
	Topics [][]string
}

// Log is a raw event log as the provider returns it. Numeric fields stay
// hex-encoded; use the accessors to decode them.
type Log struct {
	Address     string   `json:"address"`
	Topics      []string `json:"topics"`
	Data        string   `json:"data"`
	BlockNumber string   `json:"blockNumber"`
	TxHash      string   `json:"transactionHash"`
	Removed     bool     `json:"removed"`
}

// Block decodes the log's block number.
func (l Log) Block() (uint64, error) {
	return parseHexUint64(l.BlockNumber)
}

// Reader provides typed chain reads over the JSON-RPC transport, protected
// by a circuit breaker so a provider outage fails fast.
type Reader struct {
	rpc           *circuitbreaker.RPCCircuitBreaker
	maxBlockRange uint64
	logger        *slog.Logger
}

// NewReader wraps the transport with the chain RPC breaker profile. The
// caller is usually a *Client, but tests may pass any RPCCaller.
func NewReader(caller circuitbreaker.RPCCaller, config Config, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	maxRange := config.MaxBlockRange
	if maxRange == 0 {
		maxRange = DefaultConfig().MaxBlockRange
	}
	breakerConfig := circuitbreaker.ChainRPCConfig()
	breakerConfig.Logger = logger
	return &Reader{
		rpc:           circuitbreaker.NewRPCCircuitBreakerWithConfig(caller, breakerConfig),
		maxBlockRange: maxRange,
		logger:        logger,
	}
}

// GasPrice returns the current gas price in wei.
func (r *Reader) GasPrice(ctx context.Context) (*big.Int, error) {
	var hex string
	if err := r.call(ctx, &hex, "eth_gasPrice"); err != nil {
		return nil, err
	}
	price, err := parseHexBig(hex)
	if err != nil {
		return nil, fmt.Errorf("eth_gasPrice returned malformed quantity %q: %w", hex, err)
	}
	return price, nil
}

// BlockNumber returns the latest block height.
func (r *Reader) BlockNumber(ctx context.Context) (uint64, error) {
	var hex string
	if err := r.call(ctx, &hex, "eth_blockNumber"); err != nil {
		return 0, err
	}
	number, err := parseHexUint64(hex)
	if err != nil {
		return 0, fmt.Errorf("eth_blockNumber returned malformed quantity %q: %w", hex, err)
	}
	return number, nil
}

// Logs fetches event logs matching the filter. The filter's block span
// must stay within the configured maximum; wider ranges are rejected here
// rather than bounced by the provider mid-cycle.
func (r *Reader) Logs(ctx context.Context, filter LogFilter) ([]Log, error) {
	if filter.ToBlock < filter.FromBlock {
		return nil, fmt.Errorf("log filter has toBlock %d before fromBlock %d", filter.ToBlock, filter.FromBlock)
	}
	if span := filter.ToBlock - filter.FromBlock + 1; span > r.maxBlockRange {
		return nil, fmt.Errorf("log filter spans %d blocks, maximum is %d", span, r.maxBlockRange)
	}

	var logs []Log
	if err := r.call(ctx, &logs, "eth_getLogs", filter.toParams()); err != nil {
		return nil, err
	}
	return logs, nil
}

// Probe performs the cheapest possible read. The health monitor uses it to
// decide whether the provider is reachable and answering.
func (r *Reader) Probe(ctx context.Context) error {
	_, err := r.BlockNumber(ctx)
	return err
}

// BreakerState reports the circuit breaker state for status surfaces.
func (r *Reader) BreakerState() gobreaker.State {
	return r.rpc.State()
}

// call runs one RPC through the breaker and turns an open circuit into an
// operational error instead of the library sentinel.
func (r *Reader) call(ctx context.Context, result any, method string, params ...any) error {
	err := r.rpc.CallContext(ctx, result, method, params...)
	if err != nil && errors.Is(err, gobreaker.ErrOpenState) {
		r.logger.WarnContext(ctx, "chain rpc circuit breaker open, request rejected",
			slog.String("method", method),
			slog.String("state", r.rpc.State().String()))
		return fmt.Errorf("chain rpc unavailable: circuit breaker open")
	}
	return err
}

// toParams builds the eth_getLogs filter object.
func (f LogFilter) toParams() map[string]any {
	params := map[string]any{
		"fromBlock": hexUint64(f.FromBlock),
		"toBlock":   hexUint64(f.ToBlock),
	}
	if len(f.Addresses) > 0 {
		params["address"] = f.Addresses
	}
	if len(f.Topics) > 0 {
		topics := make([]any, len(f.Topics))
		for i, set := range f.Topics {
			switch len(set) {
			case 0:
				topics[i] = nil
			case 1:
				topics[i] = set[0]
			default:
				topics[i] = set
			}
		}
		params["topics"] = topics
	}
	return params
}

// hexUint64 encodes a block number as a 0x-prefixed quantity.
func hexUint64(v uint64) string {
	return "0x" + strconv.FormatUint(v, 16)
}

// parseHexUint64 decodes a 0x-prefixed quantity into a uint64.
func parseHexUint64(s string) (uint64, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if trimmed == "" {
		return 0, fmt.Errorf("empty hex quantity")
	}
	return strconv.ParseUint(trimmed, 16, 64)
}

// parseHexBig decodes a 0x-prefixed quantity of arbitrary size.
func parseHexBig(s string) (*big.Int, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if trimmed == "" {
		return nil, fmt.Errorf("empty hex quantity")
	}
	value, ok := new(big.Int).SetString(trimmed, 16)
	if !ok {
		return nil, fmt.Errorf("not a hex quantity: %q", s)
	}
	return value, nil
}
