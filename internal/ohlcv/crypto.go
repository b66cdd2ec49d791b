package ohlcv

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"Draks/internal/domain/models"
	xhttp "Draks/pkg/http"
)

// CryptoFetcher pulls spot klines from an exchange REST API.
type CryptoFetcher struct {
	client  *xhttp.Client
	baseURL string
}

// NewCryptoFetcher creates a crypto market-data fetcher.
func NewCryptoFetcher(client *xhttp.Client, baseURL string) *CryptoFetcher {
	return &CryptoFetcher{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (f *CryptoFetcher) Asset() string { return "crypto" }

// Fetch retrieves klines for symbol. Symbols may carry a "/" separator
// ("BTC/USDT"); the exchange wants them joined.
func (f *CryptoFetcher) Fetch(ctx context.Context, symbol, timeframe string, limit int) (models.Series, error) {
	var raw [][]interface{}
	err := f.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    f.baseURL + "/api/v3/klines",
		QueryParams: map[string][]string{
			"symbol":   {strings.ReplaceAll(symbol, "/", "")},
			"interval": {timeframe},
			"limit":    {strconv.Itoa(limit)},
		},
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrFetchFailed, symbol, timeframe, err)
	}

	series := make(models.Series, 0, len(raw))
	for _, k := range raw {
		bar, err := parseKline(k)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrFetchFailed, symbol, err)
		}
		series = append(series, bar)
	}
	return series.Clean(), nil
}

// parseKline decodes one exchange kline row:
// [openTimeMs, "open", "high", "low", "close", "volume", ...].
func parseKline(k []interface{}) (models.Bar, error) {
	if len(k) < 6 {
		return models.Bar{}, fmt.Errorf("short kline row: %d fields", len(k))
	}
	ts, ok := k[0].(float64)
	if !ok {
		return models.Bar{}, fmt.Errorf("bad kline timestamp %v", k[0])
	}
	vals := make([]float64, 5)
	for i := 1; i <= 5; i++ {
		s, ok := k[i].(string)
		if !ok {
			return models.Bar{}, fmt.Errorf("bad kline field %v", k[i])
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return models.Bar{}, fmt.Errorf("parse kline field %q: %w", s, err)
		}
		vals[i-1] = v
	}
	return models.Bar{
		Timestamp: int64(ts),
		Open:      vals[0],
		High:      vals[1],
		Low:       vals[2],
		Close:     vals[3],
		Volume:    vals[4],
	}, nil
}
