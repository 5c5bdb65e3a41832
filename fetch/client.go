// Package fetch retrieves per-symbol candlestick series from the upstream
// market data HTTP API and runs concurrent fetches for comparison sets.
package fetch

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cmlane/overlay/shared"
	"github.com/tidwall/gjson"
)

const (
	// historyPath is the upstream path serving historical candle data.
	historyPath = "/history"
)

// ClientConfig represents the configuration for the upstream API client.
type ClientConfig struct {
	// BaseURL is the upstream market data API endpoint.
	BaseURL string
	// APIKey is the upstream API key.
	APIKey string
}

// Client represents the upstream market data API client. One client is
// shared by concurrent fetch workers, so it carries no mutable state beyond
// the http client.
type Client struct {
	cfg   *ClientConfig
	httpc http.Client
}

// Ensure the client implements the SeriesFetcher interface.
var _ shared.SeriesFetcher = (*Client)(nil)

// NewClient instantiates a new upstream API client.
func NewClient(cfg *ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url cannot be an empty string")
	}

	return &Client{
		cfg:   cfg,
		httpc: http.Client{Timeout: time.Second * 5},
	}, nil
}

// formURL creates full urls including parameters for the api.
func (c *Client) formURL(path string, params string) string {
	var buf strings.Builder
	buf.Grow(len(c.cfg.BaseURL) + len(path) + len(params) + 1)
	buf.WriteString(c.cfg.BaseURL)
	buf.WriteString(path)
	buf.WriteString("?")
	buf.WriteString(params)

	return buf.String()
}

// fieldValue extracts the named candle field, reporting NaN when the field
// is absent on the payload so it degrades to a missing observation
// downstream instead of a fabricated zero.
func fieldValue(item *gjson.Result, name string) float64 {
	field := item.Get(name)
	if !field.Exists() {
		return math.NaN()
	}

	return field.Float()
}

// parseDate extracts the candle timestamp, accepting both the intraday
// Datetime and the daily Date upstream field names.
func parseDate(item *gjson.Result) (time.Time, error) {
	raw := item.Get("Datetime")
	if !raw.Exists() {
		raw = item.Get("Date")
	}
	if !raw.Exists() {
		return time.Time{}, fmt.Errorf("candle payload has no Date or Datetime field")
	}

	dt, err := time.Parse(shared.DateLayout, raw.String())
	if err != nil {
		dt, err = time.Parse(shared.DayLayout, raw.String())
		if err != nil {
			return time.Time{}, fmt.Errorf("parsing candle date %q: %w", raw.String(), err)
		}
	}

	return dt, nil
}

// ParseCandlesticks parses candlesticks from the provided json data.
func (c *Client) ParseCandlesticks(data []gjson.Result, symbol string, timeframe shared.Timeframe) ([]shared.Candlestick, error) {
	candles := make([]shared.Candlestick, len(data))

	for idx := range data {
		var candle shared.Candlestick

		candle.Open = fieldValue(&data[idx], "Open")
		candle.High = fieldValue(&data[idx], "High")
		candle.Low = fieldValue(&data[idx], "Low")
		candle.Close = fieldValue(&data[idx], "Close")
		candle.Volume = fieldValue(&data[idx], "Volume")

		candle.Symbol = symbol
		candle.Timeframe = timeframe

		dt, err := parseDate(&data[idx])
		if err != nil {
			return nil, err
		}

		candle.Date = dt
		candles[idx] = candle
	}

	return candles, nil
}

// FetchHistory fetches historical candle data for the provided symbol.
func (c *Client) FetchHistory(ctx context.Context, symbol string, timeframe shared.Timeframe, start time.Time, end time.Time) ([]gjson.Result, error) {
	params := url.Values{}
	params.Add("symbol", symbol)
	params.Add("interval", timeframe.String())
	params.Add("apikey", c.cfg.APIKey)
	params.Add("from", start.Format(shared.DateLayout))
	if !end.IsZero() {
		params.Add("to", end.Format(shared.DateLayout))
	}

	formedURL := c.formURL(historyPath, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, formedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating history request for %s: %w", symbol, err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s history (%s): %w", symbol, timeframe.String(), err)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s history: unexpected status %d", symbol, resp.StatusCode)
	}

	data := gjson.ParseBytes(body).Array()

	return data, nil
}

// FetchSeries fetches the candlestick series for the provided symbol
// covering the provided time range.
func (c *Client) FetchSeries(ctx context.Context, symbol string, timeframe shared.Timeframe, start time.Time, end time.Time) ([]shared.Candlestick, error) {
	data, err := c.FetchHistory(ctx, symbol, timeframe, start, end)
	if err != nil {
		return nil, err
	}

	candles, err := c.ParseCandlesticks(data, symbol, timeframe)
	if err != nil {
		return nil, fmt.Errorf("parsing candlesticks for %s: %w", symbol, err)
	}

	return candles, nil
}
