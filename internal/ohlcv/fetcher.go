package ohlcv

import (
	"context"
	"errors"
	"fmt"

	"Draks/internal/domain/models"
)

// ErrFetchFailed wraps any upstream market-data failure so callers can
// classify it without inspecting transport details.
var ErrFetchFailed = errors.New("ohlcv fetch failed")

// Fetcher retrieves candles from an upstream market-data source.
type Fetcher interface {
	// Fetch returns up to limit most-recent bars for symbol at the
	// given timeframe, oldest first.
	Fetch(ctx context.Context, symbol, timeframe string, limit int) (models.Series, error)

	// Asset is the asset class this fetcher serves ("crypto", "equity").
	Asset() string
}

// Router dispatches fetches by asset class.
type Router struct {
	fetchers map[string]Fetcher
}

// NewRouter builds a Router over the given fetchers.
func NewRouter(fetchers ...Fetcher) *Router {
	m := make(map[string]Fetcher, len(fetchers))
	for _, f := range fetchers {
		m[f.Asset()] = f
	}
	return &Router{fetchers: m}
}

func (r *Router) Fetch(ctx context.Context, asset, symbol, timeframe string, limit int) (models.Series, error) {
	f, ok := r.fetchers[asset]
	if !ok {
		return nil, fmt.Errorf("%w: no fetcher for asset %q", ErrFetchFailed, asset)
	}
	return f.Fetch(ctx, symbol, timeframe, limit)
}
