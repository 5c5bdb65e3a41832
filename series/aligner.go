// Package series merges independently fetched per-symbol candlestick series
// onto one shared timeline and rescales them for relative comparison.
package series

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/cmlane/overlay/shared"
)

// ErrInvalidInput indicates malformed alignment arguments.
var ErrInvalidInput = errors.New("invalid input")

// Missing returns the sentinel marking a timeline instant with no observation.
func Missing() float64 {
	return math.NaN()
}

// IsMissing reports whether the provided value is the missing sentinel.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// Input is one symbol's raw series. Inputs are supplied as an ordered slice
// because downstream legend and color assignment depend on supply order.
type Input struct {
	Symbol  string
	Candles []shared.Candlestick
}

// Result is one alignment batch: a shared ascending timeline and, per symbol,
// a value row of equal length with gaps marked by the missing sentinel.
type Result struct {
	Timeline []time.Time
	Symbols  []string
	Aligned  map[string][]float64
}

// Align merges the provided series onto one shared timeline and projects the
// provided candle field of each series against it. Two timestamps share a
// timeline instant when they differ by strictly less than the tolerance;
// timestamps exactly a tolerance apart remain distinct instants. A series
// with no candles, or with the projected field absent at a matched instant,
// degrades to missing values rather than failing the batch.
func Align(inputs []Input, field shared.ValueField, tolerance time.Duration) (*Result, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: no series provided for alignment", ErrInvalidInput)
	}
	if tolerance < 0 {
		return nil, fmt.Errorf("%w: negative matching tolerance %v", ErrInvalidInput, tolerance)
	}

	// Inputs are expected sorted ascending by timestamp but not assumed to
	// be. Sorting happens on copies, the caller's series stay untouched.
	sorted := make(map[string][]shared.Candlestick, len(inputs))
	symbols := make([]string, 0, len(inputs))
	total := 0
	for idx := range inputs {
		symbols = append(symbols, inputs[idx].Symbol)

		candles := slices.Clone(inputs[idx].Candles)
		slices.SortStableFunc(candles, func(a, b shared.Candlestick) int {
			return a.Date.Compare(b.Date)
		})

		sorted[inputs[idx].Symbol] = candles
		total += len(candles)
	}

	timeline := buildTimeline(sorted, total, tolerance)

	aligned := make(map[string][]float64, len(symbols))
	for idx := range symbols {
		aligned[symbols[idx]] = project(sorted[symbols[idx]], timeline, field, tolerance)
	}

	return &Result{
		Timeline: timeline,
		Symbols:  symbols,
		Aligned:  aligned,
	}, nil
}

// buildTimeline collects every timestamp across the provided series and
// greedily merges them in sorted order into de-duplicated instants. Each
// instant is represented by its earliest member, so merging stays
// deterministic and bounded by the tolerance.
func buildTimeline(sorted map[string][]shared.Candlestick, total int, tolerance time.Duration) []time.Time {
	stamps := make([]time.Time, 0, total)
	for _, candles := range sorted {
		for idx := range candles {
			stamps = append(stamps, candles[idx].Date)
		}
	}

	slices.SortFunc(stamps, func(a, b time.Time) int {
		return a.Compare(b)
	})

	timeline := make([]time.Time, 0, len(stamps))
	for idx := range stamps {
		if len(timeline) > 0 {
			anchor := timeline[len(timeline)-1]
			if stamps[idx].Equal(anchor) || stamps[idx].Sub(anchor) < tolerance {
				continue
			}
		}

		timeline = append(timeline, stamps[idx])
	}

	return timeline
}

// project positions the provided sorted series against the timeline, taking
// the provided field from the nearest candle within the matching tolerance of
// each instant and the missing sentinel where none qualifies.
func project(candles []shared.Candlestick, timeline []time.Time, field shared.ValueField, tolerance time.Duration) []float64 {
	row := make([]float64, len(timeline))

	for idx := range timeline {
		candle := nearest(candles, timeline[idx], tolerance)
		if candle == nil {
			row[idx] = Missing()
			continue
		}

		// An absent field on a matched candle degrades to missing so the
		// rest of the comparison still renders.
		row[idx] = candle.FieldValue(field)
	}

	return row
}

// nearest binary searches the sorted series for the candle closest to the
// provided instant, returning nil when no candle falls within the tolerance.
func nearest(candles []shared.Candlestick, at time.Time, tolerance time.Duration) *shared.Candlestick {
	if len(candles) == 0 {
		return nil
	}

	pos, _ := slices.BinarySearchFunc(candles, at, func(c shared.Candlestick, t time.Time) int {
		return c.Date.Compare(t)
	})

	var best *shared.Candlestick
	var bestGap time.Duration
	for _, idx := range []int{pos - 1, pos} {
		if idx < 0 || idx >= len(candles) {
			continue
		}

		gap := candles[idx].Date.Sub(at)
		if gap < 0 {
			gap = -gap
		}
		if gap != 0 && gap >= tolerance {
			continue
		}
		if best == nil || gap < bestGap {
			best = &candles[idx]
			bestGap = gap
		}
	}

	return best
}
