// Package yahoo is a client for the Yahoo Finance chart and
// quoteSummary APIs.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	chartBaseURL   = "https://query1.finance.yahoo.com/v8/finance/chart"
	summaryBaseURL = "https://query1.finance.yahoo.com/v10/finance/quoteSummary"
	userAgent      = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36"
)

// Modules requested from quoteSummary. Statement histories feed the
// normalizer; price/summaryDetail/defaultKeyStatistics feed metrics.
var summaryModules = []string{
	"incomeStatementHistory",
	"incomeStatementHistoryQuarterly",
	"cashflowStatementHistory",
	"cashflowStatementHistoryQuarterly",
	"balanceSheetHistory",
	"balanceSheetHistoryQuarterly",
	"price",
	"summaryDetail",
	"defaultKeyStatistics",
	"financialData",
}

// Client is a Yahoo Finance API client
type Client struct {
	client *http.Client
	log    zerolog.Logger
}

// NewClient creates a new Yahoo Finance client
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With().Str("client", "yahoo").Logger(),
	}
}

func (c *Client) fetch(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// GetDailyPrices fetches daily OHLC bars for the given range
// (e.g. "5y", "3mo"). Returns the first chart result.
func (c *Client) GetDailyPrices(ctx context.Context, ticker, rng string) (*ChartResult, error) {
	params := url.Values{}
	params.Set("range", rng)
	params.Set("interval", "1d")
	params.Set("events", "div,splits")
	reqURL := fmt.Sprintf("%s/%s?%s", chartBaseURL, url.PathEscape(ticker), params.Encode())

	var out ChartResponse
	if err := c.fetch(ctx, reqURL, &out); err != nil {
		return nil, fmt.Errorf("failed to fetch prices for %s: %w", ticker, err)
	}
	if len(out.Chart.Result) == 0 {
		return nil, fmt.Errorf("no price data returned for %s", ticker)
	}

	c.log.Debug().
		Str("ticker", ticker).
		Str("range", rng).
		Int("points", len(out.Chart.Result[0].Timestamp)).
		Msg("Fetched price history")

	return &out.Chart.Result[0], nil
}

// GetQuoteSummary fetches the fundamentals modules for one symbol.
func (c *Client) GetQuoteSummary(ctx context.Context, ticker string) (*QuoteSummaryResult, error) {
	params := url.Values{}
	params.Set("modules", strings.Join(summaryModules, ","))
	reqURL := fmt.Sprintf("%s/%s?%s", summaryBaseURL, url.PathEscape(ticker), params.Encode())

	var out QuoteSummaryResponse
	if err := c.fetch(ctx, reqURL, &out); err != nil {
		return nil, fmt.Errorf("failed to fetch quote summary for %s: %w", ticker, err)
	}
	if len(out.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("no quote summary returned for %s", ticker)
	}
	return &out.QuoteSummary.Result[0], nil
}
