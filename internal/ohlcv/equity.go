package ohlcv

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"Draks/internal/domain/models"
	xhttp "Draks/pkg/http"
	"Draks/pkg/util"
)

// EquityFetcher pulls candles from a stock-data REST API.
type EquityFetcher struct {
	client  *xhttp.Client
	baseURL string
	apiKey  string
}

// NewEquityFetcher creates an equity market-data fetcher.
func NewEquityFetcher(client *xhttp.Client, baseURL, apiKey string) *EquityFetcher {
	return &EquityFetcher{client: client, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey}
}

func (f *EquityFetcher) Asset() string { return "equity" }

type equityCandles struct {
	Status     string    `json:"s"`
	Timestamps []int64   `json:"t"` // unix seconds
	Opens      []float64 `json:"o"`
	Highs      []float64 `json:"h"`
	Lows       []float64 `json:"l"`
	Closes     []float64 `json:"c"`
	Volumes    []float64 `json:"v"`
}

// Fetch retrieves the most recent candles for symbol. The upstream API
// is range-based, so the window is derived from limit and the bar size.
func (f *EquityFetcher) Fetch(ctx context.Context, symbol, timeframe string, limit int) (models.Series, error) {
	barDur := util.TimeframeDuration(timeframe)
	if barDur == 0 {
		return nil, fmt.Errorf("%w: unknown timeframe %q", ErrFetchFailed, timeframe)
	}

	now := time.Now()
	// Pad the window so market closures do not starve the request.
	from := now.Add(-time.Duration(limit) * barDur * 3)

	var out equityCandles
	err := f.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    f.baseURL + "/stock/candle",
		QueryParams: map[string][]string{
			"symbol":     {symbol},
			"resolution": {equityResolution(timeframe)},
			"from":       {strconv.FormatInt(from.Unix(), 10)},
			"to":         {strconv.FormatInt(now.Unix(), 10)},
			"token":      {f.apiKey},
		},
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrFetchFailed, symbol, timeframe, err)
	}
	if out.Status != "ok" {
		return nil, fmt.Errorf("%w: %s: upstream status %q", ErrFetchFailed, symbol, out.Status)
	}

	n := len(out.Timestamps)
	if len(out.Opens) != n || len(out.Highs) != n || len(out.Lows) != n ||
		len(out.Closes) != n || len(out.Volumes) != n {
		return nil, fmt.Errorf("%w: %s: ragged candle columns", ErrFetchFailed, symbol)
	}

	series := make(models.Series, 0, n)
	for i := 0; i < n; i++ {
		series = append(series, models.Bar{
			Timestamp: out.Timestamps[i] * 1000,
			Open:      out.Opens[i],
			High:      out.Highs[i],
			Low:       out.Lows[i],
			Close:     out.Closes[i],
			Volume:    out.Volumes[i],
		})
	}
	series = series.Clean()
	if len(series) > limit {
		series = series[len(series)-limit:]
	}
	return series, nil
}

// equityResolution maps timeframes onto the upstream resolution codes.
func equityResolution(tf string) string {
	switch tf {
	case "1m":
		return "1"
	case "3m", "5m":
		return "5"
	case "15m":
		return "15"
	case "30m":
		return "30"
	case "1h", "2h":
		return "60"
	case "4h", "6h", "12h":
		return "240"
	case "1d":
		return "D"
	case "1w":
		return "W"
	default:
		return "D"
	}
}
