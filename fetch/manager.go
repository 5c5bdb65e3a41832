package fetch

import (
	"context"
	"sync"
	"time"

	"github.com/cmlane/overlay/shared"
	"github.com/rs/zerolog"
)

const (
	// maxWorkers is the maximum number of concurrent fetch workers.
	maxWorkers = 8
)

// SymbolSeries is the fetch outcome for one symbol of a comparison set. A
// failed fetch carries its error and an empty series so the rest of the set
// still aligns.
type SymbolSeries struct {
	Symbol  string
	Candles []shared.Candlestick
	Err     error
}

// ManagerConfig represents the configuration for the fetch manager.
type ManagerConfig struct {
	// Fetcher represents the upstream series fetcher.
	Fetcher shared.SeriesFetcher
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Manager fetches the series of a comparison set concurrently, one worker
// per symbol bounded by the worker pool.
type Manager struct {
	cfg     *ManagerConfig
	workers chan struct{}
}

// NewManager initializes the fetch manager.
func NewManager(cfg *ManagerConfig) *Manager {
	return &Manager{
		cfg:     cfg,
		workers: make(chan struct{}, maxWorkers),
	}
}

// FetchSet fetches all series of the provided symbol set, blocking until
// every fetch resolves. Results preserve the supply order of the symbols. A
// per-symbol failure degrades to an empty series rather than failing the set.
func (m *Manager) FetchSet(ctx context.Context, symbols []string, timeframe shared.Timeframe, start time.Time, end time.Time) []SymbolSeries {
	results := make([]SymbolSeries, len(symbols))

	var wg sync.WaitGroup
	for idx := range symbols {
		wg.Add(1)
		m.workers <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-m.workers }()

			symbol := symbols[idx]
			candles, err := m.cfg.Fetcher.FetchSeries(ctx, symbol, timeframe, start, end)
			if err != nil {
				m.cfg.Logger.Error().Msgf("fetching %s series: %v", symbol, err)
				results[idx] = SymbolSeries{Symbol: symbol, Err: err}
				return
			}

			results[idx] = SymbolSeries{Symbol: symbol, Candles: candles}
		}(idx)
	}

	wg.Wait()

	return results
}
