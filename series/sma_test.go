package series

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/peterldowns/testy/assert"
)

func TestSMA(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		window int
		want   []float64
	}{
		{
			name:   "warmup before a full window",
			values: []float64{1, 2, 3, 4},
			window: 3,
			want:   []float64{Missing(), Missing(), 2, 3},
		},
		{
			name:   "missing values do not consume the window",
			values: []float64{2, Missing(), 4, Missing(), 6},
			window: 2,
			want:   []float64{Missing(), Missing(), 3, 3, 5},
		},
		{
			name:   "window of one mirrors observations",
			values: []float64{5, Missing(), 7},
			window: 1,
			want:   []float64{5, 5, 7},
		},
	}

	for _, test := range tests {
		got, err := SMA(test.values, test.window)
		assert.NoError(t, err)
		assert.Equal(t, got, test.want, cmpopts.EquateNaNs())
	}
}

func TestSMAInvalidWindow(t *testing.T) {
	_, err := SMA([]float64{1, 2}, 0)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}
