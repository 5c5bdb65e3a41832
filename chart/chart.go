// Package chart defines the chart-ready output shape handed to rendering
// consumers: parallel timeline and value arrays plus a stable symbol to
// color assignment for legend rendering.
package chart

import (
	"math"
	"strconv"

	"github.com/cmlane/overlay/series"
)

// Dataset kinds understood by rendering consumers.
const (
	KindLine        = "line"
	KindCandlestick = "candlestick"
	KindVolume      = "volume"
	KindSMA         = "sma"
)

// palette is the color cycle assigned to datasets by supply order. Legend
// colors must stay stable across refreshes of the same symbol set.
var palette = []string{
	"#2E86C1",
	"#E74C3C",
	"#27AE60",
	"#F39C12",
	"#8E44AD",
	"#16A085",
	"#D35400",
	"#7F8C8D",
}

// ColorFor returns the palette color for the provided dataset index.
func ColorFor(idx int) string {
	return palette[idx%len(palette)]
}

// Values is a row of aligned values. Missing entries marshal as JSON null,
// which rendering consumers treat as a gap rather than a zero.
type Values []float64

// MarshalJSON encodes the values with missing entries as null.
func (v Values) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, len(v)*8+2)
	buf = append(buf, '[')
	for idx := range v {
		if idx > 0 {
			buf = append(buf, ',')
		}
		if math.IsNaN(v[idx]) {
			buf = append(buf, "null"...)
			continue
		}
		buf = strconv.AppendFloat(buf, v[idx], 'f', -1, 64)
	}
	buf = append(buf, ']')

	return buf, nil
}

// FinancialPoint is one candlestick positioned on the shared timeline.
type FinancialPoint struct {
	XAxis int64   `json:"x"`
	Open  float64 `json:"o"`
	High  float64 `json:"h"`
	Low   float64 `json:"l"`
	Close float64 `json:"c"`
}

// Dataset is one renderable series positioned against the shared timeline.
// Line, volume and sma datasets carry Values; candlestick datasets carry
// Points, omitting instants with no matched candle.
type Dataset struct {
	Symbol string           `json:"symbol"`
	Label  string           `json:"label"`
	Kind   string           `json:"kind"`
	Color  string           `json:"color"`
	Values Values           `json:"values,omitempty"`
	Points []FinancialPoint `json:"points,omitempty"`
}

// Summary is the JSON view of per-symbol summary statistics. Statistics with
// no backing observation render as null.
type Summary struct {
	Symbol        string   `json:"symbol"`
	Count         int      `json:"count"`
	Min           *float64 `json:"min"`
	Max           *float64 `json:"max"`
	Mean          *float64 `json:"mean"`
	Last          *float64 `json:"last"`
	ChangePercent *float64 `json:"changePercent"`
}

// NewSummary adapts the provided series summary for JSON rendering.
func NewSummary(s series.Summary) Summary {
	return Summary{
		Symbol:        s.Symbol,
		Count:         s.Count,
		Min:           stat(s.Min),
		Max:           stat(s.Max),
		Mean:          stat(s.Mean),
		Last:          stat(s.Last),
		ChangePercent: stat(s.ChangePercent),
	}
}

// stat converts a possibly-missing statistic to its nullable JSON form.
func stat(v float64) *float64 {
	if series.IsMissing(v) {
		return nil
	}

	return &v
}

// Comparison is a fully assembled comparison chart: the shared timeline in
// unix milliseconds, the datasets in symbol supply order, per-symbol summary
// statistics and the symbols that degraded to all-missing rows.
type Comparison struct {
	Timeline  []int64   `json:"timeline"`
	Datasets  []Dataset `json:"datasets"`
	Summaries []Summary `json:"summaries"`
	Partial   []string  `json:"partial,omitempty"`
}
