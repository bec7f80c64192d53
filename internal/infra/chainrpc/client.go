// Package chainrpc provides the JSON-RPC 2.0 client for reading chain state
// (gas price, block height, event logs) from an EVM provider. The transport
// maps provider throttling, both HTTP 429 and the JSON-RPC limit-exceeded
// error codes, to the typed errors in internal/resilience/ratelimit so the
// retry executor can classify them. The client itself never retries.
package chainrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"chainpulse/internal/resilience/ratelimit"
)

// JSON-RPC error codes providers use for request-rate throttling.
// -32005 is the EIP-1474 "limit exceeded" code; some providers report
// the HTTP status 429 as the error code instead.
const (
	codeLimitExceeded   = -32005
	codeTooManyRequests = -32029
	codeHTTPRateLimited = 429
)

// RPCError is a JSON-RPC level failure that does not classify as a rate
// limit, e.g. an unknown method or a malformed filter.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Client is the HTTP JSON-RPC transport. It satisfies the RPCCaller
// interface in internal/resilience/circuitbreaker.
type Client struct {
	endpoint    string
	httpClient  *http.Client
	maxBodySize int64
	logger      *slog.Logger
	nextID      atomic.Uint64
}

// NewClient creates a JSON-RPC client for the configured provider.
func NewClient(config Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint:    config.Endpoint,
		httpClient:  &http.Client{Timeout: config.Timeout},
		maxBodySize: config.MaxBodySize,
		logger:      logger,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcErrorBody   `json:"error"`
}

type rpcErrorBody struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// rpcErrorData is the provider-specific detail block some providers attach
// to throttling errors. Only the backoff hint is interesting here.
type rpcErrorData struct {
	BackoffSeconds float64 `json:"backoff_seconds"`
}

// CallContext performs a single JSON-RPC call and unmarshals the result
// into result when it is non-nil.
func (c *Client) CallContext(ctx context.Context, result any, method string, params ...any) error {
	requestID := uuid.New().String()
	if params == nil {
		params = []any{}
	}

	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rpc transport error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.mapHTTPError(resp, method)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		return fmt.Errorf("failed to read rpc response: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("failed to decode rpc response: %w", err)
	}

	if rpcResp.Error != nil {
		return c.mapRPCError(rpcResp.Error, method)
	}

	c.logger.DebugContext(ctx, "rpc call completed",
		slog.String("request_id", requestID),
		slog.String("method", method),
		slog.Duration("duration", time.Since(start)))

	if result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("failed to unmarshal rpc result for %s: %w", method, err)
		}
	}
	return nil
}

// mapHTTPError converts a non-2xx provider response. Providers that
// throttle at the HTTP layer answer 429 with an optional Retry-After.
func (c *Client) mapHTTPError(resp *http.Response, method string) error {
	// Drain a little of the body for the message, then discard the rest.
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	message := fmt.Sprintf("provider returned %d %s for %s", resp.StatusCode, http.StatusText(resp.StatusCode), method)
	if len(snippet) > 0 {
		message = fmt.Sprintf("%s: %s", message, string(snippet))
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		rlErr := &ratelimit.RateLimitError{
			StatusCode: resp.StatusCode,
			Message:    message,
		}
		if d, ok := ratelimit.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()); ok {
			rlErr.RetryAfter = d
		}
		return rlErr
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &ratelimit.ClientError{StatusCode: resp.StatusCode, Message: message}
	default:
		return &ratelimit.ServerError{StatusCode: resp.StatusCode, Message: message}
	}
}

// mapRPCError converts a JSON-RPC error object. Limit-exceeded codes
// become rate limit errors carrying the provider's backoff hint when one
// is attached.
func (c *Client) mapRPCError(body *rpcErrorBody, method string) error {
	switch body.Code {
	case codeLimitExceeded, codeTooManyRequests, codeHTTPRateLimited:
		rlErr := &ratelimit.RateLimitError{
			StatusCode: http.StatusTooManyRequests,
			Message:    fmt.Sprintf("%s: %s", method, body.Message),
		}
		var data rpcErrorData
		if len(body.Data) > 0 {
			if err := json.Unmarshal(body.Data, &data); err == nil && data.BackoffSeconds > 0 {
				rlErr.RetryAfter = time.Duration(data.BackoffSeconds * float64(time.Second))
			}
		}
		return rlErr
	default:
		return &RPCError{Code: body.Code, Message: body.Message}
	}
}
