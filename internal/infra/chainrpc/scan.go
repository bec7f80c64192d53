package chainrpc

import (
	"context"
	"log/slog"
	"math/big"
	"sort"
	"strings"
	"time"

	"chainpulse/internal/domain/event"
)

// Event signatures as keccak topic hashes.
const (
	// topicTransfer is Transfer(address,address,uint256), shared by every
	// ERC-20 token.
	topicTransfer = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"

	// topicOwnershipTransferred is OwnershipTransferred(address,address),
	// emitted by the Ownable constructor with a zero previous owner when
	// a contract deploys.
	topicOwnershipTransferred = "0x8be0079c531659141344cd1fd0a4f28419497f9722a3daafe3b4186f6b6457e0"

	topicZeroAddress = "0x0000000000000000000000000000000000000000000000000000000000000000"
)

// LogsReader is the slice of the Reader the scanners need.
type LogsReader interface {
	Logs(ctx context.Context, filter LogFilter) ([]Log, error)
}

// LargeTransferConfig configures the wrapped-native transfer scan.
type LargeTransferConfig struct {
	// WrappedNative is the wrapped native token contract, WETH on
	// Ethereum mainnet. Transfers of the wrapped token stand in for big
	// native moves because plain ETH transfers emit no logs.
	WrappedNative string

	// MinAmountWei is the inclusive reporting threshold in wei.
	MinAmountWei *big.Int
}

// LargeTransferScanner reports wrapped-native transfers at or above a
// threshold.
type LargeTransferScanner struct {
	logs   LogsReader
	cfg    LargeTransferConfig
	logger *slog.Logger
}

// NewLargeTransferScanner creates a scanner for large wrapped-native
// transfers.
func NewLargeTransferScanner(logs LogsReader, cfg LargeTransferConfig, logger *slog.Logger) *LargeTransferScanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &LargeTransferScanner{
		logs:   logs,
		cfg:    cfg,
		logger: logger,
	}
}

// Kind identifies the scanner's events.
func (s *LargeTransferScanner) Kind() event.Kind { return event.KindLargeTransfer }

// Scan returns the qualifying transfers in [fromBlock, toBlock].
func (s *LargeTransferScanner) Scan(ctx context.Context, fromBlock, toBlock uint64) ([]event.ChainEvent, error) {
	logs, err := s.logs.Logs(ctx, LogFilter{
		FromBlock: fromBlock,
		ToBlock:   toBlock,
		Addresses: []string{s.cfg.WrappedNative},
		Topics:    [][]string{{topicTransfer}},
	})
	if err != nil {
		return nil, err
	}

	var events []event.ChainEvent
	for _, lg := range logs {
		amount, ok := transferAmount(lg, s.logger)
		if !ok {
			continue
		}
		if s.cfg.MinAmountWei != nil && amount.Cmp(s.cfg.MinAmountWei) < 0 {
			continue
		}
		block, err := lg.Block()
		if err != nil {
			continue
		}
		events = append(events, event.ChainEvent{
			Kind:        event.KindLargeTransfer,
			TxHash:      lg.TxHash,
			BlockNumber: block,
			Address:     addressFromTopic(lg.Topics[2]),
			AmountWei:   amount.String(),
			ObservedAt:  time.Now(),
		})
	}
	return events, nil
}

// WatchedToken describes one ERC-20 contract worth reporting on.
type WatchedToken struct {
	Symbol   string
	Decimals int

	// MinAmount is the inclusive reporting threshold in the token's raw
	// units. Nil reports every transfer.
	MinAmount *big.Int
}

// TokenTransferConfig configures the watched-token transfer scan.
type TokenTransferConfig struct {
	// Tokens maps lowercase contract addresses to their display info.
	Tokens map[string]WatchedToken
}

// TokenTransferScanner reports transfers of a fixed set of ERC-20 tokens.
type TokenTransferScanner struct {
	logs   LogsReader
	cfg    TokenTransferConfig
	logger *slog.Logger
}

// NewTokenTransferScanner creates a scanner for watched-token transfers.
func NewTokenTransferScanner(logs LogsReader, cfg TokenTransferConfig, logger *slog.Logger) *TokenTransferScanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenTransferScanner{
		logs:   logs,
		cfg:    cfg,
		logger: logger,
	}
}

// Kind identifies the scanner's events.
func (s *TokenTransferScanner) Kind() event.Kind { return event.KindTokenTransfer }

// Scan returns the qualifying token transfers in [fromBlock, toBlock].
func (s *TokenTransferScanner) Scan(ctx context.Context, fromBlock, toBlock uint64) ([]event.ChainEvent, error) {
	if len(s.cfg.Tokens) == 0 {
		return nil, nil
	}

	addrs := make([]string, 0, len(s.cfg.Tokens))
	for addr := range s.cfg.Tokens {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	logs, err := s.logs.Logs(ctx, LogFilter{
		FromBlock: fromBlock,
		ToBlock:   toBlock,
		Addresses: addrs,
		Topics:    [][]string{{topicTransfer}},
	})
	if err != nil {
		return nil, err
	}

	var events []event.ChainEvent
	for _, lg := range logs {
		token, watched := s.cfg.Tokens[strings.ToLower(lg.Address)]
		if !watched {
			continue
		}
		amount, ok := transferAmount(lg, s.logger)
		if !ok {
			continue
		}
		if token.MinAmount != nil && amount.Cmp(token.MinAmount) < 0 {
			continue
		}
		block, err := lg.Block()
		if err != nil {
			continue
		}
		events = append(events, event.ChainEvent{
			Kind:          event.KindTokenTransfer,
			TxHash:        lg.TxHash,
			BlockNumber:   block,
			Address:       addressFromTopic(lg.Topics[2]),
			AmountWei:     amount.String(),
			TokenSymbol:   token.Symbol,
			TokenDecimals: token.Decimals,
			ObservedAt:    time.Now(),
		})
	}
	return events, nil
}

// NewContractConfig configures the contract deployment scan.
type NewContractConfig struct {
	// MaxResults caps how many deployments one scan reports; block
	// windows with heavy deploy activity would otherwise drown the
	// digest. Default: 5
	MaxResults int
}

// NewContractScanner reports freshly deployed Ownable contracts. The
// OwnershipTransferred event with a zero previous owner fires exactly
// once, in the constructor, which makes it a usable deployment signal
// without tracing support on the provider.
type NewContractScanner struct {
	logs       LogsReader
	maxResults int
	logger     *slog.Logger
}

// NewNewContractScanner creates a scanner for contract deployments.
func NewNewContractScanner(logs LogsReader, cfg NewContractConfig, logger *slog.Logger) *NewContractScanner {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NewContractScanner{
		logs:       logs,
		maxResults: cfg.MaxResults,
		logger:     logger,
	}
}

// Kind identifies the scanner's events.
func (s *NewContractScanner) Kind() event.Kind { return event.KindNewContract }

// Scan returns contract deployments in [fromBlock, toBlock], capped at
// MaxResults.
func (s *NewContractScanner) Scan(ctx context.Context, fromBlock, toBlock uint64) ([]event.ChainEvent, error) {
	logs, err := s.logs.Logs(ctx, LogFilter{
		FromBlock: fromBlock,
		ToBlock:   toBlock,
		Topics:    [][]string{{topicOwnershipTransferred}, {topicZeroAddress}},
	})
	if err != nil {
		return nil, err
	}

	var events []event.ChainEvent
	for _, lg := range logs {
		if lg.Removed || len(lg.Topics) < 3 {
			continue
		}
		if lg.Topics[1] != topicZeroAddress {
			continue
		}
		block, err := lg.Block()
		if err != nil {
			continue
		}
		events = append(events, event.ChainEvent{
			Kind:        event.KindNewContract,
			TxHash:      lg.TxHash,
			BlockNumber: block,
			Address:     strings.ToLower(lg.Address),
			ObservedAt:  time.Now(),
		})
		if len(events) >= s.maxResults {
			break
		}
	}
	return events, nil
}

// transferAmount extracts the value from a Transfer log. Reorged and
// malformed logs report false.
func transferAmount(lg Log, logger *slog.Logger) (*big.Int, bool) {
	if lg.Removed || len(lg.Topics) < 3 {
		return nil, false
	}
	amount, err := parseHexBig(lg.Data)
	if err != nil {
		logger.Debug("transfer log with undecodable amount",
			slog.String("tx", lg.TxHash),
			slog.Any("error", err))
		return nil, false
	}
	return amount, true
}

// addressFromTopic unpacks an address from a 32-byte indexed topic.
func addressFromTopic(topic string) string {
	const addrHexLen = 40
	t := strings.TrimPrefix(topic, "0x")
	if len(t) < addrHexLen {
		return topic
	}
	return "0x" + strings.ToLower(t[len(t)-addrHexLen:])
}
