package compare

import (
	"errors"
	"fmt"
	"time"

	"github.com/cmlane/overlay/chart"
	"github.com/cmlane/overlay/series"
	"github.com/cmlane/overlay/shared"
)

const (
	// defaultLookbackDays is the fetch window applied when a request does
	// not carry one.
	defaultLookbackDays = 30
)

// Request represents a comparison request for a set of symbols. The mode
// toggles are independent booleans selecting which candle fields are
// projected and whether normalization runs; they carry no ordering state.
type Request struct {
	Symbols      []string
	Timeframe    shared.Timeframe
	Field        shared.ValueField
	LookbackDays int
	// Tolerance is the timestamp matching tolerance. Nil falls back to the
	// timeframe default; an explicit zero matches exact timestamps only.
	Tolerance     *time.Duration
	Base100       bool
	Candles       bool
	VolumeOverlay bool
	SMAWindow     int
	Response      chan *Response

	// token orders the request against later ones, set on submission.
	token uint64
}

// Response represents the outcome of a comparison request.
type Response struct {
	Comparison *chart.Comparison
	Err        error
}

// NewRequest initializes a new comparison request with default projection
// and fetch window. Callers set mode toggles on the returned request.
func NewRequest(symbols []string, timeframe shared.Timeframe) *Request {
	return &Request{
		Symbols:      symbols,
		Timeframe:    timeframe,
		Field:        shared.Close,
		LookbackDays: defaultLookbackDays,
		Response:     make(chan *Response, 1),
	}
}

// Validate asserts the request has sane inputs.
func (r *Request) Validate() error {
	var errs error

	if len(r.Symbols) == 0 {
		errs = errors.Join(errs, fmt.Errorf("%w: no symbols provided for comparison", series.ErrInvalidInput))
	}
	for idx := range r.Symbols {
		if r.Symbols[idx] == "" {
			errs = errors.Join(errs, fmt.Errorf("%w: symbol cannot be an empty string", series.ErrInvalidInput))
			break
		}
	}
	if r.LookbackDays <= 0 {
		errs = errors.Join(errs, fmt.Errorf("%w: lookback days must be positive, got %d", series.ErrInvalidInput, r.LookbackDays))
	}
	if r.Tolerance != nil && *r.Tolerance < 0 {
		errs = errors.Join(errs, fmt.Errorf("%w: negative matching tolerance %v", series.ErrInvalidInput, *r.Tolerance))
	}
	if r.SMAWindow < 0 {
		errs = errors.Join(errs, fmt.Errorf("%w: negative moving average window %d", series.ErrInvalidInput, r.SMAWindow))
	}
	if r.Response == nil {
		errs = errors.Join(errs, fmt.Errorf("%w: response channel cannot be nil", series.ErrInvalidInput))
	}

	return errs
}

// clone copies the request for a scheduled re-run, with a fresh response
// channel and no token.
func (r *Request) clone() *Request {
	clone := *r
	clone.Symbols = append([]string(nil), r.Symbols...)
	clone.Response = make(chan *Response, 1)
	clone.token = 0

	return &clone
}

// RunRecord describes one completed comparison for persistence.
type RunRecord struct {
	Symbols   []string
	Timeframe shared.Timeframe
	Points    int
	Partial   []string
	CreatedOn time.Time
}
