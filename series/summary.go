package series

// Summary describes the observed values of one aligned series for legend and
// report rendering. All reductions skip missing values; a row with no
// observations reports a zero count and missing statistics.
type Summary struct {
	Symbol        string
	Count         int
	Min           float64
	Max           float64
	Mean          float64
	First         float64
	Last          float64
	ChangePercent float64
}

// Summarize computes summary statistics over the provided aligned values.
func Summarize(symbol string, values []float64) Summary {
	summary := Summary{
		Symbol:        symbol,
		Min:           Missing(),
		Max:           Missing(),
		Mean:          Missing(),
		First:         Missing(),
		Last:          Missing(),
		ChangePercent: Missing(),
	}

	sum := float64(0)
	for idx := range values {
		v := values[idx]
		if IsMissing(v) {
			continue
		}

		if summary.Count == 0 {
			summary.Min = v
			summary.Max = v
			summary.First = v
		}
		if v < summary.Min {
			summary.Min = v
		}
		if v > summary.Max {
			summary.Max = v
		}

		summary.Last = v
		sum += v
		summary.Count++
	}

	if summary.Count == 0 {
		return summary
	}

	summary.Mean = sum / float64(summary.Count)
	if summary.First != 0 {
		summary.ChangePercent = (summary.Last - summary.First) / summary.First * 100
	}

	return summary
}
