package composer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"chainpulse/internal/config"
	"chainpulse/internal/observability/tracing"
	"chainpulse/internal/resilience/circuitbreaker"
	"chainpulse/internal/resilience/ratelimit"
	"chainpulse/internal/utils/text"
)

// defaultOpenAIModel is used when the configuration leaves the model empty.
const defaultOpenAIModel = openai.GPT4oMini

// OpenAI composes posts through the chat completions API.
type OpenAI struct {
	client          *openai.Client
	circuitBreaker  *circuitbreaker.CircuitBreaker
	config          *config.ComposerConfig
	model           string
	metricsRecorder CompositionMetricsRecorder
	logger          *slog.Logger
}

// NewOpenAI creates an OpenAI composer with the given API key.
func NewOpenAI(apiKey string, cfg *config.ComposerConfig, logger *slog.Logger) *OpenAI {
	return NewOpenAIWithClient(openai.NewClient(apiKey), cfg, logger)
}

// NewOpenAIWithClient creates an OpenAI composer around an existing SDK
// client. Tests use it to point the composer at a local server.
func NewOpenAIWithClient(client *openai.Client, cfg *config.ComposerConfig, logger *slog.Logger) *OpenAI {
	if logger == nil {
		logger = slog.Default()
	}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	logger.Info("initialized openai composer",
		slog.String("model", model),
		slog.Int("max_post_runes", cfg.Style.MaxPostRunes))

	return &OpenAI{
		client:          client,
		circuitBreaker:  circuitbreaker.New(breakerConfig("composer-openai", cfg.CircuitBreaker, logger)),
		config:          cfg,
		model:           model,
		metricsRecorder: NewPrometheusCompositionMetrics(),
		logger:          logger,
	}
}

// Compose generates the post text for the digest through the circuit
// breaker, without retrying; that is the retry executor's job.
func (o *OpenAI) Compose(ctx context.Context, digest string) (string, error) {
	if o.config.Observability.EnableTracing {
		var span trace.Span
		ctx, span = tracing.GetTracer().Start(ctx, "composer.compose",
			trace.WithAttributes(attribute.String("composer.provider", "openai")))
		defer span.End()
	}

	ctx, cancel := context.WithTimeout(ctx, o.config.RequestTimeout)
	defer cancel()

	result, err := o.circuitBreaker.Execute(func() (interface{}, error) {
		return o.doCompose(ctx, digest)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			o.logger.WarnContext(ctx, "openai api circuit breaker open, request rejected",
				slog.String("service", "composer-openai"),
				slog.String("state", o.circuitBreaker.State().String()))
			return "", fmt.Errorf("openai api unavailable: circuit breaker open")
		}
		return "", err
	}
	return result.(string), nil
}

// doCompose performs the API call without circuit breaker involvement.
func (o *OpenAI) doCompose(ctx context.Context, digest string) (string, error) {
	requestID := uuid.New().String()

	trimmed, wasTrimmed := trimDigest(digest)
	if wasTrimmed {
		o.logger.Warn("digest truncated for openai api",
			slog.String("request_id", requestID),
			slog.Int("original_length", len(digest)),
			slog.Int("truncated_length", len(trimmed)))
	}

	prompt := buildPrompt(o.config.Style, trimmed)

	o.logger.InfoContext(ctx, "starting post composition",
		slog.String("request_id", requestID),
		slog.String("provider", "openai"),
		slog.Int("digest_length", text.CountRunes(trimmed)))

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		MaxTokens:   o.config.MaxTokens,
		Temperature: float32(o.config.Temperature),
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		}},
	})
	duration := time.Since(start)

	if err != nil {
		o.logger.ErrorContext(ctx, "post composition failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return "", mapOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		o.logger.ErrorContext(ctx, "openai api returned empty response",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration))
		return "", fmt.Errorf("openai api returned empty response")
	}

	post := resp.Choices[0].Message.Content
	postLength := text.CountRunes(post)
	withinLimit := postLength <= o.config.Style.MaxPostRunes

	o.logger.InfoContext(ctx, "post composition completed",
		slog.String("request_id", requestID),
		slog.Int("post_length", postLength),
		slog.Int("length_target", o.config.Style.MaxPostRunes),
		slog.Bool("within_limit", withinLimit),
		slog.Duration("duration", duration))

	if !withinLimit {
		o.logger.WarnContext(ctx, "composed post exceeds length target, clamping",
			slog.String("request_id", requestID),
			slog.Int("post_length", postLength),
			slog.Int("length_target", o.config.Style.MaxPostRunes))
		post = text.TruncateRunes(post, o.config.Style.MaxPostRunes)
	}

	o.metricsRecorder.RecordLength(postLength)
	o.metricsRecorder.RecordDuration(duration)
	o.metricsRecorder.RecordCompliance(withinLimit)
	if !withinLimit {
		o.metricsRecorder.RecordLimitExceeded()
	}

	return post, nil
}

// mapOpenAIError converts SDK failures into the typed resilience errors.
// The SDK reports API-level failures as APIError and transport-level ones
// as RequestError; both carry the HTTP status.
func mapOpenAIError(err error) error {
	var statusCode int
	var message string

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		statusCode = apiErr.HTTPStatusCode
		message = apiErr.Message
	case errors.As(err, &reqErr):
		statusCode = reqErr.HTTPStatusCode
		message = reqErr.Error()
	default:
		return fmt.Errorf("openai api error: %w", err)
	}

	switch {
	case statusCode == http.StatusTooManyRequests:
		return &ratelimit.RateLimitError{
			StatusCode: statusCode,
			Message:    fmt.Sprintf("openai api rate limit exceeded: %s", message),
		}
	case statusCode >= 400 && statusCode < 500:
		return &ratelimit.ClientError{StatusCode: statusCode, Message: message}
	case statusCode >= 500:
		return &ratelimit.ServerError{StatusCode: statusCode, Message: message}
	default:
		return fmt.Errorf("openai api error: %w", err)
	}
}
