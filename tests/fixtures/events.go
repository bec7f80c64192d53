// Package fixtures provides reusable test data generators for integration tests.
// This package eliminates test data duplication and ensures consistent test
// content across different test suites.
package fixtures

import (
	"fmt"
	"time"

	"chainpulse/internal/domain/event"
)

// DefaultBlock is the block number fixtures use when none is given.
const DefaultBlock uint64 = 19_000_000

// DefaultGasPriceWei is the gas price fixtures use for observations (23.5 gwei).
const DefaultGasPriceWei uint64 = 23_500_000_000

// fixedObservedAt keeps generated timestamps deterministic across runs.
var fixedObservedAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// EventOptions configures the generated chain event.
type EventOptions struct {
	// Kind selects the event kind. Empty defaults to a large transfer.
	Kind event.Kind

	// BlockNumber places the event. Zero defaults to DefaultBlock.
	BlockNumber uint64

	// Seq distinguishes events within one block. It feeds the generated
	// transaction hash and address, so equal (BlockNumber, Seq) pairs
	// yield identical events.
	Seq int

	// AmountWei overrides the transferred value as a decimal string.
	// Empty uses a kind-appropriate default.
	AmountWei string

	// TokenSymbol and TokenDecimals apply to token transfers. Empty and
	// zero default to a USDC-shaped transfer.
	TokenSymbol   string
	TokenDecimals int
}

// GenerateEvent generates a chain event based on the provided options.
// Hashes and addresses are deterministic in (BlockNumber, Seq), and every
// generated event passes domain validation.
//
// Example:
//
//	ev := GenerateEvent(EventOptions{
//	    Kind: event.KindTokenTransfer,
//	    BlockNumber: 19_000_100,
//	    Seq: 3,
//	})
func GenerateEvent(opts EventOptions) event.ChainEvent {
	if opts.Kind == "" {
		opts.Kind = event.KindLargeTransfer
	}
	if opts.BlockNumber == 0 {
		opts.BlockNumber = DefaultBlock
	}

	ev := event.ChainEvent{
		Kind:        opts.Kind,
		TxHash:      TxHash(opts.BlockNumber, opts.Seq),
		BlockNumber: opts.BlockNumber,
		Address:     Address(opts.BlockNumber, opts.Seq),
		ObservedAt:  fixedObservedAt,
	}

	switch opts.Kind {
	case event.KindNewContract:
		// Contract creations carry no transferred value.
	case event.KindTokenTransfer:
		ev.AmountWei = opts.AmountWei
		if ev.AmountWei == "" {
			ev.AmountWei = "2500000000000" // 2.5M at 6 decimals
		}
		ev.TokenSymbol = opts.TokenSymbol
		if ev.TokenSymbol == "" {
			ev.TokenSymbol = "USDC"
		}
		ev.TokenDecimals = opts.TokenDecimals
		if ev.TokenDecimals == 0 {
			ev.TokenDecimals = 6
		}
	default:
		ev.AmountWei = opts.AmountWei
		if ev.AmountWei == "" {
			ev.AmountWei = "150000000000000000000" // 150 ETH
		}
	}
	return ev
}

// GenerateLargeTransfer generates a native-token transfer above a typical
// watch threshold.
//
// Example:
//
//	ev := GenerateLargeTransfer()
//	// Returns a 150 ETH transfer at DefaultBlock
func GenerateLargeTransfer() event.ChainEvent {
	return GenerateEvent(EventOptions{Kind: event.KindLargeTransfer})
}

// GenerateTokenTransfer generates a stablecoin transfer with symbol and
// decimals set.
//
// Example:
//
//	ev := GenerateTokenTransfer()
//	// Returns a 2.5M USDC transfer at DefaultBlock
func GenerateTokenTransfer() event.ChainEvent {
	return GenerateEvent(EventOptions{Kind: event.KindTokenTransfer})
}

// GenerateNewContract generates a contract creation event.
//
// Example:
//
//	ev := GenerateNewContract()
//	// Returns a creation at DefaultBlock with no transferred value
func GenerateNewContract() event.ChainEvent {
	return GenerateEvent(EventOptions{Kind: event.KindNewContract})
}

// GenerateEvents generates count events of one kind in consecutive blocks
// starting at startBlock. Every event gets a distinct address and hash.
//
// Example:
//
//	events := GenerateEvents(5, event.KindLargeTransfer, 19_000_000)
//	// Returns transfers at blocks 19_000_000 through 19_000_004
func GenerateEvents(count int, kind event.Kind, startBlock uint64) []event.ChainEvent {
	if startBlock == 0 {
		startBlock = DefaultBlock
	}
	events := make([]event.ChainEvent, 0, count)
	for i := 0; i < count; i++ {
		events = append(events, GenerateEvent(EventOptions{
			Kind:        kind,
			BlockNumber: startBlock + uint64(i),
			Seq:         i,
		}))
	}
	return events
}

// GenerateObservation builds a complete watch cycle observation around the
// given events. The observed head is DefaultBlock or the highest event
// block, whichever is greater.
//
// Example:
//
//	obs := GenerateObservation(GenerateLargeTransfer(), GenerateNewContract())
func GenerateObservation(events ...event.ChainEvent) event.Observation {
	obs := event.Observation{
		BlockNumber: DefaultBlock,
		GasPriceWei: DefaultGasPriceWei,
		Events:      events,
		ObservedAt:  fixedObservedAt,
	}
	for _, ev := range events {
		if ev.BlockNumber > obs.BlockNumber {
			obs.BlockNumber = ev.BlockNumber
		}
	}
	return obs
}

// TxHash returns a deterministic transaction hash for a block and sequence.
func TxHash(block uint64, seq int) string {
	return fmt.Sprintf("0x%064x", block*1_000+uint64(seq))
}

// Address returns a deterministic hex address for a block and sequence.
// The offset keeps it distinct from the transaction hash value space.
func Address(block uint64, seq int) string {
	return fmt.Sprintf("0x%040x", block*1_000+uint64(seq)+7)
}
