package shared

import (
	"context"
	"time"
)

// SeriesFetcher defines the requirements for fetching per-symbol market data.
type SeriesFetcher interface {
	// FetchSeries fetches the candlestick series for the provided symbol
	// covering the provided time range.
	FetchSeries(ctx context.Context, symbol string, timeframe Timeframe, start time.Time, end time.Time) ([]Candlestick, error)
}
