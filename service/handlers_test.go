package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cmlane/overlay/chart"
	"github.com/cmlane/overlay/compare"
	"github.com/cmlane/overlay/fetch"
	"github.com/cmlane/overlay/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog/log"
)

// setupHandler builds an api handler backed by an engine serving canned data.
func setupHandler(t *testing.T) *apiHandler {
	set := []fetch.SymbolSeries{
		{Symbol: "AAPL", Candles: []shared.Candlestick{
			{Close: 100, Volume: 10, Date: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)},
			{Close: 110, Volume: 20, Date: time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC)},
		}},
	}

	engine, err := compare.NewEngine(&compare.EngineConfig{
		FetchSet: func(_ context.Context, _ []string, _ shared.Timeframe, _ time.Time, _ time.Time) []fetch.SymbolSeries {
			return set
		},
		Logger: &log.Logger,
	})
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go engine.Run(ctx)

	return newAPIHandler(engine, &log.Logger)
}

func TestHandleCompare(t *testing.T) {
	handler := setupHandler(t)

	body := `{"symbols":["AAPL"],"timeframe":"1D","base100":true}`
	req := httptest.NewRequest(http.MethodPost, "/compare", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.handleCompare(rec, req)
	assert.Equal(t, rec.Code, http.StatusOK)

	var comparison chart.Comparison
	err := json.Unmarshal(rec.Body.Bytes(), &comparison)
	assert.NoError(t, err)
	assert.Equal(t, len(comparison.Timeline), 2)
	assert.Equal(t, len(comparison.Datasets), 1)
	assert.Equal(t, comparison.Datasets[0].Symbol, "AAPL")
	assert.Equal(t, []float64(comparison.Datasets[0].Values), []float64{100, 110})
}

func TestHandleCompareZeroTolerance(t *testing.T) {
	// Candles a minute apart merge under the daily default tolerance; an
	// explicit zero tolerance in the body keeps them distinct instead of
	// being treated as omitted.
	set := []fetch.SymbolSeries{
		{Symbol: "AAPL", Candles: []shared.Candlestick{
			{Close: 100, Date: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)},
			{Close: 110, Date: time.Date(2025, 2, 1, 0, 1, 0, 0, time.UTC)},
		}},
	}

	engine, err := compare.NewEngine(&compare.EngineConfig{
		FetchSet: func(_ context.Context, _ []string, _ shared.Timeframe, _ time.Time, _ time.Time) []fetch.SymbolSeries {
			return set
		},
		Logger: &log.Logger,
	})
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go engine.Run(ctx)

	handler := newAPIHandler(engine, &log.Logger)

	tests := []struct {
		name       string
		body       string
		wantPoints int
	}{
		{
			name:       "omitted tolerance uses the timeframe default",
			body:       `{"symbols":["AAPL"],"timeframe":"1D"}`,
			wantPoints: 1,
		},
		{
			name:       "explicit zero tolerance matches exact timestamps only",
			body:       `{"symbols":["AAPL"],"timeframe":"1D","toleranceMs":0}`,
			wantPoints: 2,
		},
	}

	for _, test := range tests {
		req := httptest.NewRequest(http.MethodPost, "/compare", strings.NewReader(test.body))
		rec := httptest.NewRecorder()

		handler.handleCompare(rec, req)
		assert.Equal(t, rec.Code, http.StatusOK)

		var comparison chart.Comparison
		err := json.Unmarshal(rec.Body.Bytes(), &comparison)
		assert.NoError(t, err)
		if len(comparison.Timeline) != test.wantPoints {
			t.Errorf("%s: expected %d timeline points, got %d", test.name, test.wantPoints, len(comparison.Timeline))
		}
	}
}

func TestHandleCompareInvalid(t *testing.T) {
	handler := setupHandler(t)

	tests := []struct {
		name     string
		method   string
		body     string
		wantCode int
	}{
		{
			name:     "wrong method",
			method:   http.MethodGet,
			body:     "",
			wantCode: http.StatusMethodNotAllowed,
		},
		{
			name:     "malformed body",
			method:   http.MethodPost,
			body:     "{",
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown timeframe",
			method:   http.MethodPost,
			body:     `{"symbols":["AAPL"],"timeframe":"2w"}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown field",
			method:   http.MethodPost,
			body:     `{"symbols":["AAPL"],"field":"vwap"}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "no symbols",
			method:   http.MethodPost,
			body:     `{"symbols":[]}`,
			wantCode: http.StatusBadRequest,
		},
	}

	for _, test := range tests {
		req := httptest.NewRequest(test.method, "/compare", strings.NewReader(test.body))
		rec := httptest.NewRecorder()

		handler.handleCompare(rec, req)
		if rec.Code != test.wantCode {
			t.Errorf("%s: expected status %d, got %d", test.name, test.wantCode, rec.Code)
		}
	}
}

func TestHandleHealth(t *testing.T) {
	handler := setupHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	handler.handleHealth(rec, req)
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.True(t, strings.Contains(rec.Body.String(), "ok"))
}
