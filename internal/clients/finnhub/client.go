// Package finnhub is a rate-limited client for the Finnhub
// financials-reported API. A single client enforces a global gap
// between requests so concurrent callers share the free-tier quota.
package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	baseURL           = "https://finnhub.io/api/v1"
	requestIntervalMS = 1100
	maxRetries        = 3
)

// Client is a Finnhub API client.
type Client struct {
	client *http.Client
	log    zerolog.Logger
	apiKey string

	mu          sync.Mutex
	lastRequest time.Time
}

// NewClient creates a new Finnhub client.
func NewClient(apiKey string, log zerolog.Logger) *Client {
	return &Client{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log:    log.With().Str("client", "finnhub").Logger(),
		apiKey: apiKey,
	}
}

// gate blocks until at least the request interval has passed since the
// previous request, across all goroutines using this client.
func (c *Client) gate(ctx context.Context) error {
	c.mu.Lock()
	lag := time.Since(c.lastRequest)
	wait := requestIntervalMS*time.Millisecond - lag
	if wait > 0 {
		c.mu.Unlock()
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
		c.mu.Lock()
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()
	return nil
}

// gatedFetch performs a rate-limited GET with retry on 429.
// Backoff on 429 is 2^attempt seconds plus up to one second of jitter.
func (c *Client) gatedFetch(ctx context.Context, rawURL string, out any) error {
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err := c.gate(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			c.log.Warn().Err(err).Int("attempt", attempt).Msg("Request failed")
			continue
		}

		if remaining := resp.Header.Get("X-Ratelimit-Remaining"); remaining != "" {
			c.log.Debug().
				Str("remaining", remaining).
				Str("reset", resp.Header.Get("X-Ratelimit-Reset")).
				Msg("Rate limit headers")
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			backoff := time.Duration(math.Pow(2, float64(attempt)))*time.Second +
				time.Duration(rand.Intn(1000))*time.Millisecond
			c.log.Warn().
				Dur("backoff", backoff).
				Int("attempt", attempt).
				Msg("Rate limited, backing off")
			if attempt < maxRetries {
				select {
				case <-time.After(backoff):
				case <-ctx.Done():
					return ctx.Err()
				}
				continue
			}
			return fmt.Errorf("rate limited after %d attempts", maxRetries)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
			c.log.Warn().Err(lastErr).Int("attempt", attempt).Msg("Request failed")
			continue
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}

	return fmt.Errorf("fetch failed after %d attempts: %w", maxRetries, lastErr)
}

func (c *Client) reportedURL(ticker, freq string) string {
	params := url.Values{}
	params.Set("symbol", ticker)
	params.Set("freq", freq)
	params.Set("token", c.apiKey)
	return fmt.Sprintf("%s/stock/financials-reported?%s", baseURL, params.Encode())
}

// GetQuarterlyFinancials fetches as-reported quarterly filings.
func (c *Client) GetQuarterlyFinancials(ctx context.Context, ticker string) (*ReportedFinancials, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("finnhub API key is not set")
	}
	var out ReportedFinancials
	if err := c.gatedFetch(ctx, c.reportedURL(ticker, "quarterly"), &out); err != nil {
		return nil, fmt.Errorf("failed to fetch quarterly financials: %w", err)
	}
	return &out, nil
}

// GetAnnualFinancials fetches as-reported annual filings. Annual data
// only feeds Q4 synthesis, so a failure is logged and nil is returned
// instead of aborting the pipeline.
func (c *Client) GetAnnualFinancials(ctx context.Context, ticker string) *ReportedFinancials {
	if c.apiKey == "" {
		return nil
	}
	var out ReportedFinancials
	if err := c.gatedFetch(ctx, c.reportedURL(ticker, "annual"), &out); err != nil {
		c.log.Warn().Err(err).Str("ticker", ticker).Msg("Annual data fetch failed")
		return nil
	}
	return &out
}

// GetBasicFinancials fetches the pre-computed metric bundle (growth
// rates, ownership). Supplementary data; failures are logged and nil
// is returned.
func (c *Client) GetBasicFinancials(ctx context.Context, ticker string) *BasicFinancials {
	if c.apiKey == "" {
		return nil
	}
	params := url.Values{}
	params.Set("symbol", ticker)
	params.Set("metric", "all")
	params.Set("token", c.apiKey)
	u := fmt.Sprintf("%s/stock/metric?%s", baseURL, params.Encode())

	var out BasicFinancials
	if err := c.gatedFetch(ctx, u, &out); err != nil {
		c.log.Warn().Err(err).Str("ticker", ticker).Msg("Basic financials fetch failed")
		return nil
	}
	return &out
}
