package watch

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"chainpulse/internal/domain/event"
)

// maxDigestEvents bounds how many event lines go into the digest; the
// post has a hard character budget and the composer only needs a taste.
const maxDigestEvents = 5

// buildDigest renders the cycle's observation as the plain-text digest
// handed to the composer. The template composer publishes it nearly
// verbatim, so the digest is written post-first: short lines, readable
// amounts, no hex dumps.
func buildDigest(chainName, nativeSymbol string, obs event.Observation, metas map[string]event.ContractMeta) string {
	var b strings.Builder

	if obs.BlockNumber > 0 {
		fmt.Fprintf(&b, "%s pulse @ block %s\n", chainName, groupDigits(strconv.FormatUint(obs.BlockNumber, 10)))
	} else {
		fmt.Fprintf(&b, "%s pulse\n", chainName)
	}
	if obs.GasPriceWei > 0 {
		fmt.Fprintf(&b, "Gas: %s gwei\n", formatGwei(obs.GasPriceWei))
	}

	if len(obs.Events) == 0 {
		b.WriteString("Quiet block window, nothing above the thresholds.")
		return b.String()
	}

	if len(obs.Events) == 1 {
		b.WriteString("1 notable event:\n")
	} else {
		fmt.Fprintf(&b, "%d notable events:\n", len(obs.Events))
	}

	shown := obs.Events
	if len(shown) > maxDigestEvents {
		shown = shown[:maxDigestEvents]
	}
	for _, ev := range shown {
		b.WriteString("- " + eventLine(ev, nativeSymbol, metas) + "\n")
	}
	if extra := len(obs.Events) - len(shown); extra > 0 {
		fmt.Fprintf(&b, "...and %d more\n", extra)
	}

	return strings.TrimRight(b.String(), "\n")
}

// eventLine renders one event as a digest bullet.
func eventLine(ev event.ChainEvent, nativeSymbol string, metas map[string]event.ContractMeta) string {
	label := addressLabel(ev.Address, metas)

	switch ev.Kind {
	case event.KindLargeTransfer:
		if ev.AmountWei == "" {
			return fmt.Sprintf("%s transfer to %s", nativeSymbol, label)
		}
		return fmt.Sprintf("%s %s to %s", formatAmount(ev.AmountWei, 18), nativeSymbol, label)
	case event.KindTokenTransfer:
		symbol := ev.TokenSymbol
		if symbol == "" {
			symbol = "tokens"
		}
		if ev.AmountWei == "" {
			return fmt.Sprintf("%s transfer to %s", symbol, label)
		}
		decimals := ev.TokenDecimals
		if decimals == 0 {
			decimals = 18
		}
		return fmt.Sprintf("%s %s to %s", formatAmount(ev.AmountWei, decimals), symbol, label)
	case event.KindNewContract:
		return fmt.Sprintf("new contract %s deployed", label)
	default:
		return string(ev.Kind)
	}
}

// addressLabel prefers the explorer-provided name over the raw address.
func addressLabel(addr string, metas map[string]event.ContractMeta) string {
	if m, ok := metas[addr]; ok && m.Name != "" {
		return m.Name
	}
	return shortenAddress(addr)
}

// shortenAddress renders an address as 0x1234…5678 for display.
func shortenAddress(addr string) string {
	if len(addr) <= 13 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

// formatGwei renders a wei gas price in gwei with one decimal.
func formatGwei(wei uint64) string {
	return strconv.FormatFloat(float64(wei)/1e9, 'f', 1, 64)
}

// formatAmount renders a raw integer token amount using the token's
// decimal exponent, keeping two fractional digits, truncated not rounded
// ("450000000000000000000" with 18 decimals renders as "450.00").
// Unparseable input is returned as is.
func formatAmount(raw string, decimals int) string {
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok || v.Sign() < 0 {
		return raw
	}
	if decimals <= 0 {
		return groupDigits(v.String())
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(v, scale, new(big.Int))

	fracStr := frac.String()
	for len(fracStr) < decimals {
		fracStr = "0" + fracStr
	}
	if len(fracStr) > 2 {
		fracStr = fracStr[:2]
	}
	for len(fracStr) < 2 {
		fracStr += "0"
	}

	return groupDigits(whole.String()) + "." + fracStr
}

// groupDigits inserts thousands separators ("18456789" -> "18,456,789").
func groupDigits(s string) string {
	if len(s) <= 3 {
		return s
	}

	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
