package social

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"chainpulse/internal/resilience/ratelimit"
	"chainpulse/internal/utils/text"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

const requestIDKey contextKey = "request_id"

const (
	statusesPath          = "/api/v1/statuses"
	verifyCredentialsPath = "/api/v1/accounts/verify_credentials"

	defaultTimeout           = 10 * time.Second
	defaultMaxPostRunes      = 500
	defaultRequestsPerSecond = 1.0
	defaultBurst             = 2
)

// Config holds the social platform client configuration.
type Config struct {
	// Enabled controls whether posts are actually published. When false,
	// callers should wire the NoopPoster instead of a Client.
	Enabled bool
	// BaseURL is the platform API origin, e.g. "https://mastodon.example".
	BaseURL string
	// AccessToken is the bearer token used for authentication.
	AccessToken string
	// Timeout bounds each HTTP request. Defaults to 10s.
	Timeout time.Duration
	// MaxPostRunes is the platform character limit. Posts longer than
	// this are truncated before sending. Defaults to 500.
	MaxPostRunes int
	// RequestsPerSecond and Burst configure the local politeness limiter.
	// This protects the platform from bursts; it does not track the
	// platform's own quota, which is the rate limit tracker's job.
	RequestsPerSecond float64
	Burst             int
}

// Client publishes posts through the platform REST API.
type Client struct {
	config      Config
	httpClient  *http.Client
	rateLimiter *RateLimiter
	logger      *slog.Logger
}

// NewClient creates a social platform client. Zero config fields fall back
// to the package defaults.
func NewClient(config Config, logger *slog.Logger) *Client {
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	if config.MaxPostRunes <= 0 {
		config.MaxPostRunes = defaultMaxPostRunes
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = defaultRequestsPerSecond
	}
	if config.Burst <= 0 {
		config.Burst = defaultBurst
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		config:      config,
		httpClient:  &http.Client{Timeout: config.Timeout},
		rateLimiter: NewRateLimiter(config.RequestsPerSecond, config.Burst),
		logger:      logger,
	}
}

// statusRequest is the JSON body for creating a post.
type statusRequest struct {
	Status string `json:"status"`
}

// statusResponse is the platform response for a created post.
type statusResponse struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// apiError is the JSON error body the platform returns on failures.
// RetryAfter is in seconds and may be fractional.
type apiError struct {
	Error      string  `json:"error"`
	RetryAfter float64 `json:"retry_after"`
}

// PostStatus publishes text as a new post. Text over the configured rune
// limit is truncated with a trailing ellipsis before sending.
//
// On success it returns the receipt and the response headers, so the caller
// can update the rate limit tracker. Failures are returned as the typed
// errors from internal/resilience/ratelimit and are never retried here.
func (c *Client) PostStatus(ctx context.Context, postText string) (PostReceipt, http.Header, error) {
	requestID := uuid.New().String()
	ctx = context.WithValue(ctx, requestIDKey, requestID)

	if n := text.CountRunes(postText); n > c.config.MaxPostRunes {
		c.logger.Warn("post exceeds platform limit, truncating",
			slog.String("request_id", requestID),
			slog.Int("runes", n),
			slog.Int("limit", c.config.MaxPostRunes))
		postText = text.TruncateRunes(postText, c.config.MaxPostRunes)
	}

	if err := c.rateLimiter.Allow(ctx); err != nil {
		return PostReceipt{}, nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	body, err := json.Marshal(statusRequest{Status: postText})
	if err != nil {
		return PostReceipt{}, nil, fmt.Errorf("failed to marshal status request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+statusesPath, bytes.NewReader(body))
	if err != nil {
		return PostReceipt{}, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return PostReceipt{}, nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return PostReceipt{}, resp.Header, c.mapAPIError(resp)
	}

	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return PostReceipt{}, resp.Header, fmt.Errorf("failed to decode status response: %w", err)
	}

	c.logger.Info("post published",
		slog.String("request_id", requestID),
		slog.String("post_id", status.ID))

	receipt := PostReceipt{
		ID:       status.ID,
		URL:      status.URL,
		PostedAt: status.CreatedAt,
	}
	return receipt, resp.Header, nil
}

// VerifyCredentials checks the configured token against the platform. A nil
// error means the platform answered 2xx and the dependency is usable.
func (c *Client) VerifyCredentials(ctx context.Context) (http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+verifyCredentialsPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.Header, c.mapAPIError(resp)
	}
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Header, nil
}

// mapAPIError converts a non-2xx platform response into the typed errors
// the resilience layer classifies. The body is consumed here.
func (c *Client) mapAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	message := errorMessage(body, resp.StatusCode)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		rlErr := &ratelimit.RateLimitError{
			StatusCode: resp.StatusCode,
			RetryAfter: extractRetryAfter(resp.Header, body),
			Message:    message,
		}
		if limit, ok := headerInt(resp.Header, "X-Rate-Limit-Limit", "X-RateLimit-Limit"); ok {
			rlErr.Limit = limit
		}
		if remaining, ok := headerInt(resp.Header, "X-Rate-Limit-Remaining", "X-RateLimit-Remaining"); ok {
			rlErr.Remaining = remaining
		}
		if reset, ok := headerInt(resp.Header, "X-Rate-Limit-Reset", "X-RateLimit-Reset"); ok {
			rlErr.ResetAt = time.Unix(int64(reset), 0)
		}
		return rlErr
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &ratelimit.ClientError{StatusCode: resp.StatusCode, Message: message}
	default:
		return &ratelimit.ServerError{StatusCode: resp.StatusCode, Message: message}
	}
}

// extractRetryAfter determines how long the platform asked us to back off.
// The JSON body's retry_after field wins over the Retry-After header. A zero
// return means the platform gave no usable hint; the tracker applies its own
// default in that case.
func extractRetryAfter(header http.Header, body []byte) time.Duration {
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.RetryAfter > 0 {
		return time.Duration(apiErr.RetryAfter * float64(time.Second))
	}
	if d, ok := ratelimit.ParseRetryAfter(header.Get("Retry-After"), time.Now()); ok {
		return d
	}
	return 0
}

// errorMessage extracts a human-readable message from the error body,
// falling back to the HTTP status text.
func errorMessage(body []byte, statusCode int) string {
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
		return apiErr.Error
	}
	return fmt.Sprintf("social API returned %d %s", statusCode, http.StatusText(statusCode))
}

// headerInt returns the first named header that parses as an integer. The
// names cover both hyphenation styles platforms use for rate limit headers.
func headerInt(header http.Header, names ...string) (int, bool) {
	for _, name := range names {
		value := strings.TrimSpace(header.Get(name))
		if value == "" {
			continue
		}
		if n, err := strconv.Atoi(value); err == nil {
			return n, true
		}
	}
	return 0, false
}
