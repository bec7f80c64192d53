package composer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"chainpulse/internal/config"
	"chainpulse/internal/observability/tracing"
	"chainpulse/internal/resilience/circuitbreaker"
	"chainpulse/internal/resilience/ratelimit"
	"chainpulse/internal/utils/text"
)

// defaultClaudeModel is used when the configuration leaves the model empty.
const defaultClaudeModel = anthropic.Model("claude-sonnet-4-5-20250929")

// Claude composes posts through Anthropic's Messages API.
type Claude struct {
	client          anthropic.Client
	circuitBreaker  *circuitbreaker.CircuitBreaker
	config          *config.ComposerConfig
	model           anthropic.Model
	metricsRecorder CompositionMetricsRecorder
	logger          *slog.Logger
}

// NewClaude creates a Claude composer. Extra request options are forwarded
// to the SDK client, which lets tests point it at a local server.
func NewClaude(apiKey string, cfg *config.ComposerConfig, logger *slog.Logger, opts ...option.RequestOption) *Claude {
	if logger == nil {
		logger = slog.Default()
	}

	model := defaultClaudeModel
	if cfg.Model != "" {
		model = anthropic.Model(cfg.Model)
	}

	logger.Info("initialized claude composer",
		slog.String("model", string(model)),
		slog.Int("max_post_runes", cfg.Style.MaxPostRunes))

	clientOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Claude{
		client:          anthropic.NewClient(clientOpts...),
		circuitBreaker:  circuitbreaker.New(breakerConfig("composer-claude", cfg.CircuitBreaker, logger)),
		config:          cfg,
		model:           model,
		metricsRecorder: NewPrometheusCompositionMetrics(),
		logger:          logger,
	}
}

// Compose generates the post text for the digest. The call runs through the
// circuit breaker; failures keep their resilience type so the retry
// executor can classify them.
func (c *Claude) Compose(ctx context.Context, digest string) (string, error) {
	if c.config.Observability.EnableTracing {
		var span trace.Span
		ctx, span = tracing.GetTracer().Start(ctx, "composer.compose",
			trace.WithAttributes(attribute.String("composer.provider", "claude")))
		defer span.End()
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	result, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return c.doCompose(ctx, digest)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			c.logger.WarnContext(ctx, "claude api circuit breaker open, request rejected",
				slog.String("service", "composer-claude"),
				slog.String("state", c.circuitBreaker.State().String()))
			return "", fmt.Errorf("claude api unavailable: circuit breaker open")
		}
		return "", err
	}
	return result.(string), nil
}

// doCompose performs the API call without circuit breaker involvement.
func (c *Claude) doCompose(ctx context.Context, digest string) (string, error) {
	requestID := uuid.New().String()

	trimmed, wasTrimmed := trimDigest(digest)
	if wasTrimmed {
		c.logger.Warn("digest truncated for claude api",
			slog.String("request_id", requestID),
			slog.Int("original_length", len(digest)),
			slog.Int("truncated_length", len(trimmed)))
	}

	prompt := buildPrompt(c.config.Style, trimmed)

	c.logger.InfoContext(ctx, "starting post composition",
		slog.String("request_id", requestID),
		slog.String("provider", "claude"),
		slog.Int("digest_length", text.CountRunes(trimmed)))

	start := time.Now()
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   int64(c.config.MaxTokens),
		Temperature: anthropic.Float(c.config.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorContext(ctx, "post composition failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return "", mapAnthropicError(err)
	}

	if len(message.Content) == 0 {
		c.logger.ErrorContext(ctx, "claude api returned empty response",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration))
		return "", fmt.Errorf("claude api returned empty response")
	}

	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		c.logger.ErrorContext(ctx, "claude api returned unexpected response type",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration))
		return "", fmt.Errorf("claude api returned unexpected response type")
	}

	post := textBlock.Text
	postLength := text.CountRunes(post)
	withinLimit := postLength <= c.config.Style.MaxPostRunes

	c.logger.InfoContext(ctx, "post composition completed",
		slog.String("request_id", requestID),
		slog.Int("post_length", postLength),
		slog.Int("length_target", c.config.Style.MaxPostRunes),
		slog.Bool("within_limit", withinLimit),
		slog.Duration("duration", duration))

	if !withinLimit {
		c.logger.WarnContext(ctx, "composed post exceeds length target, clamping",
			slog.String("request_id", requestID),
			slog.Int("post_length", postLength),
			slog.Int("length_target", c.config.Style.MaxPostRunes))
		post = text.TruncateRunes(post, c.config.Style.MaxPostRunes)
	}

	c.metricsRecorder.RecordLength(postLength)
	c.metricsRecorder.RecordDuration(duration)
	c.metricsRecorder.RecordCompliance(withinLimit)
	if !withinLimit {
		c.metricsRecorder.RecordLimitExceeded()
	}

	return post, nil
}

// mapAnthropicError converts SDK failures into the typed resilience errors.
func mapAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("claude api error: %w", err)
	}

	message := fmt.Sprintf("claude api returned %d", apiErr.StatusCode)
	switch {
	case apiErr.StatusCode == http.StatusTooManyRequests:
		rlErr := &ratelimit.RateLimitError{
			StatusCode: apiErr.StatusCode,
			Message:    "claude api rate limit exceeded",
		}
		if apiErr.Response != nil {
			if d, ok := ratelimit.ParseRetryAfter(apiErr.Response.Header.Get("Retry-After"), time.Now()); ok {
				rlErr.RetryAfter = d
			}
		}
		return rlErr
	case apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
		return &ratelimit.ClientError{StatusCode: apiErr.StatusCode, Message: message}
	default:
		return &ratelimit.ServerError{StatusCode: apiErr.StatusCode, Message: message}
	}
}
