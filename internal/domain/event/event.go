// Package event defines the core domain entities for chain observations
// and the posts composed from them, along with their validation rules and
// domain-specific errors.
package event

import (
	"time"

	"chainpulse/internal/utils/text"
)

// MaxPostRunes is the longest post the social platform accepts, counted
// in Unicode characters rather than bytes.
const MaxPostRunes = 500

// Kind classifies a chain event worth posting about.
type Kind string

const (
	// KindLargeTransfer is a native-token transfer above the watcher's
	// value threshold.
	KindLargeTransfer Kind = "large_transfer"
	// KindNewContract is a contract creation.
	KindNewContract Kind = "new_contract"
	// KindTokenTransfer is an ERC-20 transfer above the threshold.
	KindTokenTransfer Kind = "token_transfer"
)

// ChainEvent is a single noteworthy occurrence decoded from chain logs.
type ChainEvent struct {
	Kind        Kind
	TxHash      string
	BlockNumber uint64
	// Address is the created contract for KindNewContract, or the
	// recipient for transfers.
	Address string
	// AmountWei is the transferred value in wei, as a decimal string.
	// Empty for KindNewContract.
	AmountWei string
	// TokenSymbol is set for KindTokenTransfer when known.
	TokenSymbol string
	// TokenDecimals is the token's display exponent for KindTokenTransfer.
	// Zero means unknown; display code assumes the native 18.
	TokenDecimals int
	ObservedAt    time.Time
}

// Validate checks the event's identifying fields.
func (e *ChainEvent) Validate() error {
	switch e.Kind {
	case KindLargeTransfer, KindNewContract, KindTokenTransfer:
	default:
		return &ValidationError{Field: "kind", Message: "unknown event kind"}
	}
	if err := ValidateTxHash(e.TxHash); err != nil {
		return err
	}
	if e.Address != "" {
		if err := ValidateAddress(e.Address); err != nil {
			return err
		}
	}
	return nil
}

// Observation is one watch cycle's aggregated view of the chain. Any of
// the fields may be missing when its best-effort fetch failed.
type Observation struct {
	BlockNumber uint64
	GasPriceWei uint64
	Events      []ChainEvent
	ObservedAt  time.Time
}

// GasPriceGwei converts the gas price for display.
func (o Observation) GasPriceGwei() float64 {
	return float64(o.GasPriceWei) / 1e9
}

// Empty reports whether every fetch in the cycle came back with nothing.
// An all-empty observation means the cycle failed as a whole, not that
// the chain was quiet.
func (o Observation) Empty() bool {
	return o.BlockNumber == 0 && o.GasPriceWei == 0 && len(o.Events) == 0
}

// ContractMeta is explorer-derived metadata about a contract address.
type ContractMeta struct {
	Address     string
	Name        string
	TokenSymbol string
}

// Post is a composed status update ready for the social platform.
type Post struct {
	Text       string
	Observed   Observation
	ComposedAt time.Time
}

// Validate checks the post against platform constraints.
func (p *Post) Validate() error {
	if p.Text == "" {
		return &ValidationError{Field: "text", Message: "post text is required"}
	}
	if n := text.CountRunes(p.Text); n > MaxPostRunes {
		return &ValidationError{Field: "text", Message: "post text exceeds platform limit"}
	}
	return nil
}
