package series

const (
	// baseline is the value the first observation of a normalized series is
	// fixed to.
	baseline = 100
)

// ToBase100 rescales the provided values so the first non-missing value
// equals exactly 100, making series of different price magnitudes
// comparable. Missing values propagate unchanged, never interpolated. A row
// with no observations, or one anchored at zero, is returned as an untouched
// copy. The transform is pure and idempotent on its own output.
func ToBase100(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)

	anchor := Missing()
	for idx := range values {
		if !IsMissing(values[idx]) {
			anchor = values[idx]
			break
		}
	}

	if IsMissing(anchor) || anchor == 0 {
		return out
	}

	for idx := range values {
		if !IsMissing(values[idx]) {
			out[idx] = values[idx] / anchor * baseline
		}
	}

	return out
}

// NormalizeBase100 returns a new result with every aligned row rescaled to
// the base-100 baseline. The timeline is shared with the receiver, never
// altered by normalization.
func (r *Result) NormalizeBase100() *Result {
	aligned := make(map[string][]float64, len(r.Aligned))
	for symbol, row := range r.Aligned {
		aligned[symbol] = ToBase100(row)
	}

	return &Result{
		Timeline: r.Timeline,
		Symbols:  r.Symbols,
		Aligned:  aligned,
	}
}
