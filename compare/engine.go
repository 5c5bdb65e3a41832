// Package compare orchestrates comparison requests: concurrent fetches,
// staleness tokens, alignment, normalization and chart dataset assembly.
package compare

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cmlane/overlay/chart"
	"github.com/cmlane/overlay/fetch"
	"github.com/cmlane/overlay/series"
	"github.com/cmlane/overlay/shared"
	"github.com/rs/zerolog"
)

const (
	// bufferSize is the default buffer size for channels.
	bufferSize = 64
	// maxWorkers is the maximum number of concurrent workers.
	maxWorkers = 8
)

// ErrSuperseded indicates a comparison was discarded because a newer request
// was issued while its fetches were in flight.
var ErrSuperseded = errors.New("superseded by a newer comparison request")

// EngineConfig represents the configuration for the comparison engine.
type EngineConfig struct {
	// FetchSet fetches all series of a symbol set, blocking until every
	// fetch resolves.
	FetchSet func(ctx context.Context, symbols []string, timeframe shared.Timeframe, start time.Time, end time.Time) []fetch.SymbolSeries
	// RecordRun persists a completed comparison run. Optional.
	RecordRun func(ctx context.Context, run *RunRecord)
	// Now returns the current time. Optional, defaults to wall clock time.
	Now func() time.Time
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Engine processes comparison requests. Each submitted request snapshots a
// monotonically increasing token; a request whose fetches resolve after a
// newer request was issued is discarded, so stale data never pollutes a
// newer timeline.
type Engine struct {
	cfg      *EngineConfig
	requests chan *Request
	workers  chan struct{}
	token    atomic.Uint64

	lastMtx sync.Mutex
	last    *Request
}

// NewEngine initializes a new comparison engine.
func NewEngine(cfg *EngineConfig) (*Engine, error) {
	if cfg.FetchSet == nil {
		return nil, fmt.Errorf("fetch set function cannot be nil")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Engine{
		cfg:      cfg,
		requests: make(chan *Request, bufferSize),
		workers:  make(chan struct{}, maxWorkers),
	}, nil
}

// SendRequest submits the provided comparison request for processing. The
// request is stamped with the next token on submission, superseding all
// requests submitted before it.
func (e *Engine) SendRequest(req *Request) {
	req.token = e.token.Add(1)
	e.enqueue(req)
}

// enqueue submits the provided stamped request for processing.
func (e *Engine) enqueue(req *Request) {
	select {
	case e.requests <- req:
		// do nothing.
	default:
		e.cfg.Logger.Error().Msgf("comparison request channel at capacity: %d/%d",
			len(e.requests), bufferSize)
		e.respond(req, &Response{Err: fmt.Errorf("comparison request channel at capacity")})
	}
}

// respond relays the provided response to the request's issuer.
func (e *Engine) respond(req *Request, resp *Response) {
	if req.Response == nil {
		e.cfg.Logger.Error().Msg("comparison request has no response channel")
		return
	}

	req.Response <- resp
}

// RefreshLast re-runs the most recent comparison request, keeping its chart
// fresh between user interactions. The refresh reuses the current token
// instead of taking a new one, so it never supersedes a manual request; a
// manual request issued while the refresh is in flight supersedes it through
// the usual token path.
func (e *Engine) RefreshLast() {
	e.lastMtx.Lock()
	last := e.last
	e.lastMtx.Unlock()

	if last == nil {
		return
	}

	req := last.clone()
	req.token = e.token.Load()
	e.enqueue(req)
	go func() {
		resp := <-req.Response
		if resp.Err != nil && !errors.Is(resp.Err, ErrSuperseded) {
			e.cfg.Logger.Error().Msgf("refreshing comparison: %v", resp.Err)
		}
	}()
}

// handleRequest processes the provided comparison request.
func (e *Engine) handleRequest(ctx context.Context, req *Request) {
	err := req.Validate()
	if err != nil {
		e.respond(req, &Response{Err: err})
		return
	}

	tolerance := req.Timeframe.DefaultTolerance()
	if req.Tolerance != nil {
		tolerance = *req.Tolerance
	}

	end := e.cfg.Now()
	start := end.AddDate(0, 0, -req.LookbackDays)

	// Alignment must not start until every constituent fetch resolves; a
	// partial input set would silently produce a misleading timeline.
	set := e.cfg.FetchSet(ctx, req.Symbols, req.Timeframe, start, end)

	if req.token != e.token.Load() {
		e.cfg.Logger.Info().Msgf("discarding superseded comparison of %v", req.Symbols)
		e.respond(req, &Response{Err: ErrSuperseded})
		return
	}

	comparison, err := e.assemble(req, set, tolerance)
	if err != nil {
		e.respond(req, &Response{Err: err})
		return
	}

	if e.cfg.RecordRun != nil {
		record := &RunRecord{
			Symbols:   req.Symbols,
			Timeframe: req.Timeframe,
			Points:    len(comparison.Timeline),
			Partial:   comparison.Partial,
			CreatedOn: e.cfg.Now(),
		}
		e.cfg.RecordRun(ctx, record)
	}

	e.lastMtx.Lock()
	e.last = req
	e.lastMtx.Unlock()

	e.respond(req, &Response{Comparison: comparison})
}

// assemble aligns the fetched set and builds the chart-ready comparison.
func (e *Engine) assemble(req *Request, set []fetch.SymbolSeries, tolerance time.Duration) (*chart.Comparison, error) {
	inputs := make([]series.Input, len(set))
	partial := make([]string, 0)
	for idx := range set {
		inputs[idx] = series.Input{Symbol: set[idx].Symbol, Candles: set[idx].Candles}
		if set[idx].Err != nil || len(set[idx].Candles) == 0 {
			partial = append(partial, set[idx].Symbol)
		}
	}

	primary, err := series.Align(inputs, req.Field, tolerance)
	if err != nil {
		return nil, fmt.Errorf("aligning comparison set: %w", err)
	}

	comparison := &chart.Comparison{
		Timeline:  timelineMillis(primary.Timeline),
		Datasets:  make([]chart.Dataset, 0, len(primary.Symbols)),
		Summaries: make([]chart.Summary, 0, len(primary.Symbols)),
	}
	if len(partial) > 0 {
		comparison.Partial = partial
	}

	// Summary statistics describe observed prices, so they are computed
	// before any normalization.
	for idx := range primary.Symbols {
		symbol := primary.Symbols[idx]
		comparison.Summaries = append(comparison.Summaries,
			chart.NewSummary(series.Summarize(symbol, primary.Aligned[symbol])))
	}

	display := primary
	if req.Base100 {
		display = primary.NormalizeBase100()
	}

	for idx := range display.Symbols {
		symbol := display.Symbols[idx]
		comparison.Datasets = append(comparison.Datasets, chart.Dataset{
			Symbol: symbol,
			Label:  symbol,
			Kind:   chart.KindLine,
			Color:  chart.ColorFor(idx),
			Values: chart.Values(display.Aligned[symbol]),
		})
	}

	if req.Candles {
		err = e.addCandleDatasets(comparison, inputs, tolerance)
		if err != nil {
			return nil, err
		}
	}

	if req.VolumeOverlay {
		volume, err := series.Align(inputs, shared.Volume, tolerance)
		if err != nil {
			return nil, fmt.Errorf("aligning volume overlay: %w", err)
		}

		for idx := range volume.Symbols {
			symbol := volume.Symbols[idx]
			comparison.Datasets = append(comparison.Datasets, chart.Dataset{
				Symbol: symbol,
				Label:  symbol + " volume",
				Kind:   chart.KindVolume,
				Color:  chart.ColorFor(idx),
				Values: chart.Values(volume.Aligned[symbol]),
			})
		}
	}

	if req.SMAWindow > 0 {
		for idx := range display.Symbols {
			symbol := display.Symbols[idx]
			sma, err := series.SMA(display.Aligned[symbol], req.SMAWindow)
			if err != nil {
				return nil, fmt.Errorf("computing moving average for %s: %w", symbol, err)
			}

			comparison.Datasets = append(comparison.Datasets, chart.Dataset{
				Symbol: symbol,
				Label:  fmt.Sprintf("%s sma(%d)", symbol, req.SMAWindow),
				Kind:   chart.KindSMA,
				Color:  chart.ColorFor(idx),
				Values: chart.Values(sma),
			})
		}
	}

	return comparison, nil
}

// addCandleDatasets aligns the four price fields of the set and appends one
// candlestick dataset per symbol, omitting instants with no matched candle.
func (e *Engine) addCandleDatasets(comparison *chart.Comparison, inputs []series.Input, tolerance time.Duration) error {
	fields := []shared.ValueField{shared.Open, shared.High, shared.Low, shared.Close}
	aligned := make(map[shared.ValueField]*series.Result, len(fields))
	for _, field := range fields {
		res, err := series.Align(inputs, field, tolerance)
		if err != nil {
			return fmt.Errorf("aligning %s for candlestick datasets: %w", field.String(), err)
		}
		aligned[field] = res
	}

	closes := aligned[shared.Close]
	for idx := range closes.Symbols {
		symbol := closes.Symbols[idx]
		points := make([]chart.FinancialPoint, 0, len(closes.Timeline))
		for i := range closes.Timeline {
			// A candle needs all four price fields to render; instants
			// missing any of them are omitted from the dataset.
			missing := false
			for _, field := range fields {
				if series.IsMissing(aligned[field].Aligned[symbol][i]) {
					missing = true
					break
				}
			}
			if missing {
				continue
			}

			points = append(points, chart.FinancialPoint{
				XAxis: closes.Timeline[i].UnixMilli(),
				Open:  aligned[shared.Open].Aligned[symbol][i],
				High:  aligned[shared.High].Aligned[symbol][i],
				Low:   aligned[shared.Low].Aligned[symbol][i],
				Close: closes.Aligned[symbol][i],
			})
		}

		comparison.Datasets = append(comparison.Datasets, chart.Dataset{
			Symbol: symbol,
			Label:  symbol + " candles",
			Kind:   chart.KindCandlestick,
			Color:  chart.ColorFor(idx),
			Points: points,
		})
	}

	return nil
}

// timelineMillis converts the timeline to unix milliseconds for rendering.
func timelineMillis(timeline []time.Time) []int64 {
	millis := make([]int64, len(timeline))
	for idx := range timeline {
		millis[idx] = timeline[idx].UnixMilli()
	}

	return millis
}

// Run manages the lifecycle processes of the comparison engine.
func (e *Engine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-e.requests:
			e.workers <- struct{}{}
			go func(req *Request) {
				e.handleRequest(ctx, req)
				<-e.workers
			}(req)
		}
	}
}
