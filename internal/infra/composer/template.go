package composer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"chainpulse/internal/config"
	"chainpulse/internal/utils/text"
)

// defaultHashtags are appended by the template composer when hashtags are
// enabled. LLM providers pick their own instead.
var defaultHashtags = []string{"#Ethereum", "#onchain", "#crypto"}

// Template is the no-LLM fallback composer: the digest itself becomes the
// post, clamped to the configured length. Useful for development and as a
// degraded mode when no provider key is configured.
type Template struct {
	config *config.ComposerConfig
	logger *slog.Logger
}

// NewTemplate creates the template composer.
func NewTemplate(cfg *config.ComposerConfig, logger *slog.Logger) *Template {
	if logger == nil {
		logger = slog.Default()
	}
	return &Template{config: cfg, logger: logger}
}

// Compose returns the digest as the post. Hashtags are appended only when
// they fit inside the length target; otherwise they are dropped whole
// rather than clamped mid-tag.
func (t *Template) Compose(_ context.Context, digest string) (string, error) {
	post := strings.TrimSpace(digest)
	if post == "" {
		return "", fmt.Errorf("cannot compose from an empty digest")
	}

	style := t.config.Style
	if style.IncludeHashtags && style.MaxHashtags > 0 {
		count := min(style.MaxHashtags, len(defaultHashtags))
		candidate := post + "\n\n" + strings.Join(defaultHashtags[:count], " ")
		if text.CountRunes(candidate) <= style.MaxPostRunes {
			post = candidate
		}
	}

	if text.CountRunes(post) > style.MaxPostRunes {
		t.logger.Warn("digest exceeds length target, clamping",
			slog.Int("digest_length", text.CountRunes(post)),
			slog.Int("length_target", style.MaxPostRunes))
		post = text.TruncateRunes(post, style.MaxPostRunes)
	}

	return post, nil
}
