package series

import "fmt"

// SMA computes a simple moving average over the provided aligned values.
// Missing values do not contribute to the window; an output value is emitted
// once the window is full of observations and is missing before that. The
// output row has the same length as the input so it can share the timeline.
func SMA(values []float64, window int) ([]float64, error) {
	if window < 1 {
		return nil, fmt.Errorf("%w: moving average window must be positive, got %d", ErrInvalidInput, window)
	}

	out := make([]float64, len(values))
	recent := make([]float64, 0, window)
	sum := float64(0)

	for idx := range values {
		v := values[idx]
		if !IsMissing(v) {
			recent = append(recent, v)
			sum += v
			if len(recent) > window {
				sum -= recent[0]
				recent = recent[1:]
			}
		}

		if len(recent) == window {
			out[idx] = sum / float64(window)
			continue
		}

		out[idx] = Missing()
	}

	return out, nil
}
