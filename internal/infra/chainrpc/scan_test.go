package chainrpc_test

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"chainpulse/internal/domain/event"
	"chainpulse/internal/infra/chainrpc"
)

const (
	transferTopic  = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"
	ownershipTopic = "0x8be0079c531659141344cd1fd0a4f28419497f9722a3daafe3b4186f6b6457e0"
	zeroTopic      = "0x0000000000000000000000000000000000000000000000000000000000000000"

	wethAddr    = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
	usdcAddr    = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
	linkAddr    = "0x514910771af9ca656af840dff83e8264ecf986ca"
	daiAddr     = "0x6b175474e89094c44da98b954eedeac495271d0f"
	binanceAddr = "0x28c6c06298d514db089934071355e5743bf21d60"
)

// fakeLogs is a scripted log source for scanner tests.
type fakeLogs struct {
	logs      []chainrpc.Log
	err       error
	calls     int
	gotFilter chainrpc.LogFilter
}

func (f *fakeLogs) Logs(_ context.Context, filter chainrpc.LogFilter) ([]chainrpc.Log, error) {
	f.calls++
	f.gotFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	return f.logs, nil
}

func addressTopic(addr string) string {
	return "0x000000000000000000000000" + strings.TrimPrefix(addr, "0x")
}

func amountData(t *testing.T, decimal string) string {
	t.Helper()
	v, ok := new(big.Int).SetString(decimal, 10)
	if !ok {
		t.Fatalf("bad decimal amount %q", decimal)
	}
	return fmt.Sprintf("0x%064x", v)
}

func transferLog(t *testing.T, token, to, amount string, block uint64, tx string) chainrpc.Log {
	t.Helper()
	return chainrpc.Log{
		Address: token,
		Topics: []string{
			transferTopic,
			addressTopic(binanceAddr),
			addressTopic(to),
		},
		Data:        amountData(t, amount),
		BlockNumber: fmt.Sprintf("0x%x", block),
		TxHash:      tx,
	}
}

func TestLargeTransferScanner(t *testing.T) {
	threshold := new(big.Int).Mul(big.NewInt(100), big.NewInt(1_000_000_000_000_000_000))

	t.Run("reports transfers at or above the threshold", func(t *testing.T) {
		big500 := transferLog(t, wethAddr, binanceAddr, "500000000000000000000", 18_456_780, "0xaaa")
		small := transferLog(t, wethAddr, binanceAddr, "3000000000000000000", 18_456_781, "0xbbb")
		reorged := transferLog(t, wethAddr, binanceAddr, "600000000000000000000", 18_456_782, "0xccc")
		reorged.Removed = true
		garbled := transferLog(t, wethAddr, binanceAddr, "700000000000000000000", 18_456_783, "0xddd")
		garbled.Data = "0xzz"

		fake := &fakeLogs{logs: []chainrpc.Log{big500, small, reorged, garbled}}
		scanner := chainrpc.NewLargeTransferScanner(fake, chainrpc.LargeTransferConfig{
			WrappedNative: wethAddr,
			MinAmountWei:  threshold,
		}, newTestLogger())

		if scanner.Kind() != event.KindLargeTransfer {
			t.Errorf("Kind() = %q, want %q", scanner.Kind(), event.KindLargeTransfer)
		}

		events, err := scanner.Scan(context.Background(), 18_456_765, 18_456_789)
		if err != nil {
			t.Fatalf("Scan() error = %v", err)
		}
		if len(events) != 1 {
			t.Fatalf("Scan() returned %d events, want 1", len(events))
		}

		ev := events[0]
		if ev.Kind != event.KindLargeTransfer {
			t.Errorf("Kind = %q, want %q", ev.Kind, event.KindLargeTransfer)
		}
		if ev.TxHash != "0xaaa" {
			t.Errorf("TxHash = %q, want %q", ev.TxHash, "0xaaa")
		}
		if ev.BlockNumber != 18_456_780 {
			t.Errorf("BlockNumber = %d, want %d", ev.BlockNumber, 18_456_780)
		}
		if ev.Address != binanceAddr {
			t.Errorf("Address = %q, want recipient %q", ev.Address, binanceAddr)
		}
		if ev.AmountWei != "500000000000000000000" {
			t.Errorf("AmountWei = %q, want %q", ev.AmountWei, "500000000000000000000")
		}

		filter := fake.gotFilter
		if filter.FromBlock != 18_456_765 || filter.ToBlock != 18_456_789 {
			t.Errorf("filter range = [%d, %d], want [18456765, 18456789]", filter.FromBlock, filter.ToBlock)
		}
		if len(filter.Addresses) != 1 || filter.Addresses[0] != wethAddr {
			t.Errorf("filter.Addresses = %v, want [%s]", filter.Addresses, wethAddr)
		}
		if len(filter.Topics) != 1 || len(filter.Topics[0]) != 1 || filter.Topics[0][0] != transferTopic {
			t.Errorf("filter.Topics = %v, want the Transfer signature", filter.Topics)
		}
	})

	t.Run("propagates transport errors", func(t *testing.T) {
		fake := &fakeLogs{err: errors.New("provider unavailable")}
		scanner := chainrpc.NewLargeTransferScanner(fake, chainrpc.LargeTransferConfig{
			WrappedNative: wethAddr,
			MinAmountWei:  threshold,
		}, newTestLogger())

		if _, err := scanner.Scan(context.Background(), 100, 200); err == nil {
			t.Fatal("Scan() expected an error")
		}
	})
}

func TestTokenTransferScanner(t *testing.T) {
	cfg := chainrpc.TokenTransferConfig{
		Tokens: map[string]chainrpc.WatchedToken{
			usdcAddr: {Symbol: "USDC", Decimals: 6, MinAmount: big.NewInt(1_000_000_000_000)},
			linkAddr: {Symbol: "LINK", Decimals: 18},
		},
	}

	t.Run("reports watched tokens with their display info", func(t *testing.T) {
		bigUSDC := transferLog(t, usdcAddr, binanceAddr, "2500000000000", 18_456_780, "0xaaa")
		smallUSDC := transferLog(t, usdcAddr, binanceAddr, "500000000000", 18_456_781, "0xbbb")
		anyLINK := transferLog(t, linkAddr, binanceAddr, "1000000000000000000000", 18_456_782, "0xccc")
		unwatched := transferLog(t, daiAddr, binanceAddr, "9000000000000000000000", 18_456_783, "0xddd")

		fake := &fakeLogs{logs: []chainrpc.Log{bigUSDC, smallUSDC, anyLINK, unwatched}}
		scanner := chainrpc.NewTokenTransferScanner(fake, cfg, newTestLogger())

		if scanner.Kind() != event.KindTokenTransfer {
			t.Errorf("Kind() = %q, want %q", scanner.Kind(), event.KindTokenTransfer)
		}

		events, err := scanner.Scan(context.Background(), 18_456_765, 18_456_789)
		if err != nil {
			t.Fatalf("Scan() error = %v", err)
		}
		if len(events) != 2 {
			t.Fatalf("Scan() returned %d events, want 2", len(events))
		}

		if events[0].TokenSymbol != "USDC" || events[0].TokenDecimals != 6 {
			t.Errorf("first event token = %s/%d, want USDC/6", events[0].TokenSymbol, events[0].TokenDecimals)
		}
		if events[0].AmountWei != "2500000000000" {
			t.Errorf("first event AmountWei = %q, want %q", events[0].AmountWei, "2500000000000")
		}
		if events[1].TokenSymbol != "LINK" || events[1].TokenDecimals != 18 {
			t.Errorf("second event token = %s/%d, want LINK/18", events[1].TokenSymbol, events[1].TokenDecimals)
		}

		// Address filter covers exactly the watched set, in sorted order
		// so the wire request is deterministic.
		filter := fake.gotFilter
		want := []string{linkAddr, usdcAddr}
		if len(filter.Addresses) != 2 || filter.Addresses[0] != want[0] || filter.Addresses[1] != want[1] {
			t.Errorf("filter.Addresses = %v, want %v", filter.Addresses, want)
		}
	})

	t.Run("skips the call when no tokens are configured", func(t *testing.T) {
		fake := &fakeLogs{}
		scanner := chainrpc.NewTokenTransferScanner(fake, chainrpc.TokenTransferConfig{}, newTestLogger())

		events, err := scanner.Scan(context.Background(), 100, 200)
		if err != nil {
			t.Fatalf("Scan() error = %v", err)
		}
		if events != nil {
			t.Errorf("Scan() = %v, want nil", events)
		}
		if fake.calls != 0 {
			t.Errorf("log source called %d times, want 0", fake.calls)
		}
	})
}

func TestNewContractScanner(t *testing.T) {
	deployLog := func(contract string, block uint64, tx string) chainrpc.Log {
		return chainrpc.Log{
			Address: contract,
			Topics: []string{
				ownershipTopic,
				zeroTopic,
				addressTopic(binanceAddr),
			},
			Data:        "0x",
			BlockNumber: fmt.Sprintf("0x%x", block),
			TxHash:      tx,
		}
	}

	t.Run("reports deployments with normalized addresses", func(t *testing.T) {
		first := deployLog("0x1f98431c8ad98523631ae4a59f267346ea31f984", 18_456_780, "0xaaa")
		// Checksummed casing from the provider normalizes to lowercase.
		second := deployLog("0x6B175474E89094C44Da98b954EedeAC495271d0F", 18_456_781, "0xbbb")
		ownerChange := deployLog("0xdef1c0ded9bec7f1a1670819833240f027b25eff", 18_456_782, "0xccc")
		ownerChange.Topics[1] = addressTopic(binanceAddr)
		reorged := deployLog("0x881d40237659c251811cec9c364ef91dc08d300c", 18_456_783, "0xddd")
		reorged.Removed = true

		fake := &fakeLogs{logs: []chainrpc.Log{first, second, ownerChange, reorged}}
		scanner := chainrpc.NewNewContractScanner(fake, chainrpc.NewContractConfig{}, newTestLogger())

		if scanner.Kind() != event.KindNewContract {
			t.Errorf("Kind() = %q, want %q", scanner.Kind(), event.KindNewContract)
		}

		events, err := scanner.Scan(context.Background(), 18_456_765, 18_456_789)
		if err != nil {
			t.Fatalf("Scan() error = %v", err)
		}
		if len(events) != 2 {
			t.Fatalf("Scan() returned %d events, want 2", len(events))
		}
		if events[0].Address != "0x1f98431c8ad98523631ae4a59f267346ea31f984" {
			t.Errorf("first Address = %q", events[0].Address)
		}
		if events[1].Address != daiAddr {
			t.Errorf("second Address = %q, want lowercased %q", events[1].Address, daiAddr)
		}

		filter := fake.gotFilter
		if len(filter.Addresses) != 0 {
			t.Errorf("filter.Addresses = %v, want none", filter.Addresses)
		}
		if len(filter.Topics) != 2 || filter.Topics[0][0] != ownershipTopic || filter.Topics[1][0] != zeroTopic {
			t.Errorf("filter.Topics = %v, want signature plus zero previous owner", filter.Topics)
		}
	})

	t.Run("caps results per scan", func(t *testing.T) {
		fake := &fakeLogs{logs: []chainrpc.Log{
			deployLog("0x1f98431c8ad98523631ae4a59f267346ea31f984", 18_456_780, "0xaaa"),
			deployLog(daiAddr, 18_456_781, "0xbbb"),
			deployLog(linkAddr, 18_456_782, "0xccc"),
		}}
		scanner := chainrpc.NewNewContractScanner(fake, chainrpc.NewContractConfig{MaxResults: 2}, newTestLogger())

		events, err := scanner.Scan(context.Background(), 18_456_765, 18_456_789)
		if err != nil {
			t.Fatalf("Scan() error = %v", err)
		}
		if len(events) != 2 {
			t.Fatalf("Scan() returned %d events, want 2", len(events))
		}
	})
}
