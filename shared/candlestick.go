package shared

import (
	"math"
	"time"
)

// Candlestick represents a unit candlestick for a market symbol. Fields that
// were absent on the upstream payload are NaN rather than zero, so a missing
// observation is never mistaken for a real zero value.
type Candlestick struct {
	Open   float64
	Low    float64
	High   float64
	Close  float64
	Volume float64
	Date   time.Time

	// Metadata.
	Symbol    string
	Timeframe Timeframe
}

// FieldValue returns the candle value for the provided field. Unknown fields
// report NaN.
func (c *Candlestick) FieldValue(field ValueField) float64 {
	switch field {
	case Open:
		return c.Open
	case High:
		return c.High
	case Low:
		return c.Low
	case Close:
		return c.Close
	case Volume:
		return c.Volume
	default:
		return math.NaN()
	}
}

// HasField reports whether the candle carries an observation for the
// provided field.
func (c *Candlestick) HasField(field ValueField) bool {
	return !math.IsNaN(c.FieldValue(field))
}
