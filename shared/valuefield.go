package shared

import (
	"fmt"
	"strings"
)

// ValueField represents the candlestick field projected onto a timeline.
type ValueField int

const (
	Open ValueField = iota
	High
	Low
	Close
	Volume
)

// String stringifies the provided value field.
func (f ValueField) String() string {
	switch f {
	case Open:
		return "open"
	case High:
		return "high"
	case Low:
		return "low"
	case Close:
		return "close"
	case Volume:
		return "volume"
	default:
		return "unknown"
	}
}

// ParseValueField parses a value field from the provided string.
func ParseValueField(field string) (ValueField, error) {
	switch strings.ToLower(field) {
	case "open":
		return Open, nil
	case "high":
		return High, nil
	case "low":
		return Low, nil
	case "close", "":
		// Close is the default projection for comparison charts.
		return Close, nil
	case "volume":
		return Volume, nil
	default:
		return 0, fmt.Errorf("unknown value field provided: %s", field)
	}
}
