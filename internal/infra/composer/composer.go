// Package composer turns a watch-cycle digest into post text for the social
// platform. It provides adapters for Claude (Anthropic) and OpenAI plus a
// deterministic template fallback, selected by configuration. Provider
// failures are mapped to the typed errors in internal/resilience/ratelimit;
// retrying is left to the retry executor, the adapters only carry a circuit
// breaker.
package composer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"chainpulse/internal/config"
	"chainpulse/internal/resilience/circuitbreaker"
)

// Composer produces the text of a post from a plain-text digest of what the
// watcher observed this cycle.
type Composer interface {
	Compose(ctx context.Context, digest string) (string, error)
}

// New selects the provider from the configuration. LLM providers need their
// API key in the environment (ANTHROPIC_API_KEY or OPENAI_API_KEY);
// provider "none" composes from the digest directly.
func New(cfg *config.ComposerConfig, logger *slog.Logger) (Composer, error) {
	switch cfg.Provider {
	case "claude":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("COMPOSER_PROVIDER=claude requires ANTHROPIC_API_KEY")
		}
		return NewClaude(apiKey, cfg, logger), nil
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("COMPOSER_PROVIDER=openai requires OPENAI_API_KEY")
		}
		return NewOpenAI(apiKey, cfg, logger), nil
	case "none":
		return NewTemplate(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown composer provider %q", cfg.Provider)
	}
}

// buildPrompt renders the instruction sent to LLM providers. The style
// settings drive tone, length, and hashtag behavior.
func buildPrompt(style config.StyleConfig, digest string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Compose a social media post about the following on-chain activity. Tone: %s. At most %d characters.",
		style.Tone, style.MaxPostRunes)
	if style.IncludeHashtags && style.MaxHashtags > 0 {
		fmt.Fprintf(&b, " Include up to %d relevant hashtags.", style.MaxHashtags)
	} else {
		b.WriteString(" Do not include hashtags.")
	}
	b.WriteString(" Reply with the post text only.\n\n")
	b.WriteString(digest)
	return b.String()
}

// breakerConfig builds a circuit breaker profile from the composer
// configuration.
func breakerConfig(name string, cb config.CircuitBreakerConfig, logger *slog.Logger) circuitbreaker.Config {
	return circuitbreaker.Config{
		Name:             name,
		MaxRequests:      cb.MaxRequests,
		Interval:         cb.Interval,
		Timeout:          cb.Timeout,
		FailureThreshold: cb.FailureThreshold,
		MinRequests:      cb.MinRequests,
		Logger:           logger,
	}
}

// maxDigestBytes caps the digest sent to LLM providers. Digests are short
// in practice; the cap only guards against a runaway log-heavy cycle.
const maxDigestBytes = 8000

// trimDigest bounds the digest size, noting the cut in the returned text.
func trimDigest(digest string) (string, bool) {
	if len(digest) <= maxDigestBytes {
		return digest, false
	}
	return digest[:maxDigestBytes] + "\n(digest trimmed)", true
}
