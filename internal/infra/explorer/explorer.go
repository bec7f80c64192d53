// Package explorer scrapes public block-explorer pages for address
// metadata. The scrape is best effort: explorers change their markup
// without notice, so a page we cannot read yields an empty name rather
// than a hard failure. Lookups are expected to run through the retry
// executor's cache, one page fetch per address per TTL.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"chainpulse/internal/domain/event"
	"chainpulse/internal/resilience/circuitbreaker"
	"chainpulse/internal/resilience/ratelimit"
)

const userAgent = "ChainPulseBot/1.0"

// ContractMeta is what the explorer page reveals about an address.
type ContractMeta struct {
	Address string
	Name    string
	Tag     string
}

// Label returns the best human-readable handle for the address: the
// contract name when known, otherwise the shortened address.
func (m ContractMeta) Label() string {
	if m.Name != "" {
		return m.Name
	}
	return ShortenAddress(m.Address)
}

// Meta converts the scraped fields into domain metadata. Token pages
// title themselves "Name (SYMBOL)", so the symbol is split out for
// transfer lines. A public name tag wins over the contract name:
// exchange wallets are tagged, not named.
func (m ContractMeta) Meta() event.ContractMeta {
	name, symbol := splitSymbol(m.Name)
	if m.Tag != "" {
		name = m.Tag
	}
	return event.ContractMeta{
		Address:     m.Address,
		Name:        name,
		TokenSymbol: symbol,
	}
}

// splitSymbol separates a trailing "(SYMBOL)" from a scraped contract
// name. Anything that does not look like a ticker is left alone.
func splitSymbol(name string) (string, string) {
	open := strings.LastIndex(name, "(")
	if open < 0 || !strings.HasSuffix(name, ")") {
		return name, ""
	}
	base := strings.TrimSpace(name[:open])
	symbol := strings.TrimSpace(name[open+1 : len(name)-1])
	if base == "" || symbol == "" || len(symbol) > 12 {
		return name, ""
	}
	for _, r := range symbol {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return name, ""
		}
	}
	return base, symbol
}

// ShortenAddress renders an address as 0x1234…5678 for display in posts.
func ShortenAddress(addr string) string {
	if len(addr) <= 13 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

// Client fetches address pages from a block explorer website and extracts
// contract metadata with goquery.
type Client struct {
	config         Config
	httpClient     *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	logger         *slog.Logger
}

// NewClient creates an explorer client. Zero config fields fall back to
// their defaults.
func NewClient(config Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = DefaultConfig().MaxBodySize
	}

	breakerConfig := circuitbreaker.ExplorerConfig()
	breakerConfig.Logger = logger

	return &Client{
		config:         config,
		httpClient:     &http.Client{Timeout: config.Timeout},
		circuitBreaker: circuitbreaker.New(breakerConfig),
		logger:         logger,
	}
}

// Lookup fetches the explorer page for the address and extracts what
// metadata it can. A page without a recognizable name yields a meta with
// an empty Name; transport and HTTP failures are returned as typed errors
// for the retry executor to classify.
func (c *Client) Lookup(ctx context.Context, address string) (ContractMeta, error) {
	if err := event.ValidateAddress(address); err != nil {
		return ContractMeta{}, fmt.Errorf("address validation failed: %w", err)
	}

	result, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return c.doLookup(ctx, address)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			c.logger.WarnContext(ctx, "explorer circuit breaker open, request rejected",
				slog.String("service", "explorer"),
				slog.String("state", c.circuitBreaker.State().String()))
			return ContractMeta{}, fmt.Errorf("explorer unavailable: circuit breaker open")
		}
		return ContractMeta{}, err
	}
	return result.(ContractMeta), nil
}

// BreakerState exposes the circuit breaker state for status reporting.
func (c *Client) BreakerState() gobreaker.State {
	return c.circuitBreaker.State()
}

// doLookup performs the page fetch without circuit breaker involvement.
func (c *Client) doLookup(ctx context.Context, address string) (ContractMeta, error) {
	requestID := uuid.New().String()
	pageURL := strings.TrimRight(c.config.BaseURL, "/") + "/address/" + address

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return ContractMeta{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ContractMeta{}, fmt.Errorf("explorer request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ContractMeta{}, c.mapHTTPError(resp)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, c.config.MaxBodySize))
	if err != nil {
		return ContractMeta{}, fmt.Errorf("parse explorer page: %w", err)
	}

	meta := c.extractMeta(doc, address)

	c.logger.DebugContext(ctx, "explorer lookup completed",
		slog.String("request_id", requestID),
		slog.String("address", address),
		slog.String("name", meta.Name),
		slog.Duration("duration", time.Since(start)))

	return meta, nil
}

// mapHTTPError converts a non-2xx explorer response into a typed error.
func (c *Client) mapHTTPError(resp *http.Response) error {
	// The page body is HTML and useless for diagnostics; drain and drop it.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	message := fmt.Sprintf("explorer returned %d", resp.StatusCode)
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		rlErr := &ratelimit.RateLimitError{
			StatusCode: resp.StatusCode,
			Message:    "explorer rate limited",
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

// extractMeta pulls the contract name and label out of the parsed page.
func (c *Client) extractMeta(doc *goquery.Document, address string) ContractMeta {
	meta := ContractMeta{Address: address}

	if c.config.NameSelector != "" {
		meta.Name = strings.TrimSpace(doc.Find(c.config.NameSelector).First().Text())
	}
	if meta.Name == "" {
		meta.Name = nameFromTitle(doc.Find("title").First().Text(), address)
	}
	if c.config.TagSelector != "" {
		meta.Tag = strings.TrimSpace(doc.Find(c.config.TagSelector).First().Text())
	}

	return meta
}

// nameFromTitle pulls a contract name out of the page title. Explorer
// titles look like "PepeCoin (PEPE) Token Tracker | Etherscan" for named
// contracts and "Address 0x1234...5678 | Etherscan" for plain accounts,
// which carry no name.
func nameFromTitle(title, address string) string {
	head, _, _ := strings.Cut(title, "|")
	head = strings.TrimSpace(head)
	head = strings.TrimSpace(strings.TrimSuffix(head, "Token Tracker"))
	if head == "" {
		return ""
	}

	lower := strings.ToLower(head)
	if strings.HasPrefix(lower, "address") || strings.HasPrefix(lower, "contract") {
		return ""
	}
	if strings.Contains(lower, strings.ToLower(address)) {
		return ""
	}

	return head
}
