package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/cmlane/overlay/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/tidwall/gjson"
)

func TestClientFormURL(t *testing.T) {
	cfg := &ClientConfig{
		BaseURL: "http://base",
		APIKey:  "key",
	}

	c, err := NewClient(cfg)
	assert.NoError(t, err)

	// Ensure urls can be formed accurately.
	params := url.Values{}
	params.Add("a", "bbb")
	params.Add("b", "ccc")

	formedURL := c.formURL("/path", params.Encode())
	assert.Equal(t, formedURL, "http://base/path?a=bbb&b=ccc")
}

func TestParseCandlesticks(t *testing.T) {
	c, err := NewClient(&ClientConfig{BaseURL: "http://base"})
	assert.NoError(t, err)

	symbol := "AAPL"
	data := `[{"Open":10,"Close":12,"High":15,"Low":8,"Volume":5,"Datetime":"2025-02-04 15:05:00"},
		{"Close":13,"Date":"2025-02-05"}]`
	gjd := gjson.Parse(data).Array()

	candles, err := c.ParseCandlesticks(gjd, symbol, shared.OneDay)
	assert.NoError(t, err)
	assert.Equal(t, len(candles), 2)
	assert.Equal(t, candles[0].Open, float64(10))
	assert.Equal(t, candles[0].Close, float64(12))
	assert.Equal(t, candles[0].High, float64(15))
	assert.Equal(t, candles[0].Low, float64(8))
	assert.Equal(t, candles[0].Volume, float64(5))
	assert.Equal(t, candles[0].Symbol, symbol)
	assert.Equal(t, candles[0].Date.Year(), 2025)
	assert.Equal(t, candles[0].Date.Hour(), 15)

	// Absent fields degrade to missing observations, not zeros.
	assert.Equal(t, candles[1].Close, float64(13))
	assert.False(t, candles[1].HasField(shared.Open))
	assert.False(t, candles[1].HasField(shared.Volume))
	assert.Equal(t, candles[1].Date.Day(), 5)

	// A candle without a date fails the parse.
	_, err = c.ParseCandlesticks(gjson.Parse(`[{"Close":1}]`).Array(), symbol, shared.OneDay)
	assert.Error(t, err)
}

func TestFetchSeries(t *testing.T) {
	payload := `[{"Open":1,"High":2,"Low":0.5,"Close":1.5,"Volume":100,"Date":"2025-02-04"}]`

	var gotQuery url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte(payload))
	}))
	defer server.Close()

	c, err := NewClient(&ClientConfig{BaseURL: server.URL, APIKey: "key"})
	assert.NoError(t, err)

	start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 2, 5, 0, 0, 0, 0, time.UTC)

	candles, err := c.FetchSeries(context.Background(), "AAPL", shared.OneDay, start, end)
	assert.NoError(t, err)
	assert.Equal(t, len(candles), 1)
	assert.Equal(t, candles[0].Close, 1.5)
	assert.Equal(t, candles[0].Timeframe, shared.OneDay)

	assert.Equal(t, gotQuery.Get("symbol"), "AAPL")
	assert.Equal(t, gotQuery.Get("interval"), "1D")
	assert.Equal(t, gotQuery.Get("apikey"), "key")
	assert.Equal(t, gotQuery.Get("from"), start.Format(shared.DateLayout))
	assert.Equal(t, gotQuery.Get("to"), end.Format(shared.DateLayout))
}

func TestFetchSeriesUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	c, err := NewClient(&ClientConfig{BaseURL: server.URL})
	assert.NoError(t, err)

	_, err = c.FetchSeries(context.Background(), "AAPL", shared.OneDay, time.Now().AddDate(0, 0, -5), time.Time{})
	assert.Error(t, err)
}

func TestNewClientInvalid(t *testing.T) {
	_, err := NewClient(&ClientConfig{})
	assert.Error(t, err)
}
