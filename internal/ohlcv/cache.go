package ohlcv

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"Draks/internal/domain/models"
	"Draks/pkg/cache"
	"Draks/pkg/logger"
	"Draks/pkg/util"
)

var symbolPattern = regexp.MustCompile(`^[A-Z0-9./:-]{1,20}$`)

// ErrInvalidRequest marks a malformed symbol, timeframe, or asset class.
var ErrInvalidRequest = errors.New("invalid ohlcv request")

type cacheMetrics interface {
	RecordCacheHit()
	RecordCacheMiss()
}

// Cache is a read-through candle cache: lookups hit the KV store first
// and fall back to the upstream fetcher, storing what came back.
// Upstream failures are never cached.
type Cache struct {
	store   cache.Service
	source  *Router
	metrics cacheMetrics
	log     *logger.Logger

	ttl        time.Duration
	maxCandles int
}

// NewCache creates a read-through OHLCV cache.
func NewCache(store cache.Service, source *Router, metrics cacheMetrics, log *logger.Logger, ttl time.Duration, maxCandles int) *Cache {
	return &Cache{
		store:      store,
		source:     source,
		metrics:    metrics,
		log:        log,
		ttl:        ttl,
		maxCandles: maxCandles,
	}
}

// Get returns candles for the request, serving from cache when a fresh
// entry exists. limit is clamped to the configured maximum; the cache
// key carries the clamped value so equal requests share an entry.
func (c *Cache) Get(ctx context.Context, asset, symbol, timeframe string, limit int) (models.Series, error) {
	asset = strings.ToLower(strings.TrimSpace(asset))
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if err := validateRequest(asset, symbol, timeframe); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > c.maxCandles {
		limit = c.maxCandles
	}

	key := cache.GenerateKeyWithParams("ohlcv", asset, symbol, timeframe, limit)

	var rows [][]float64
	if err := c.store.Get(ctx, key, &rows); err == nil {
		c.metrics.RecordCacheHit()
		return models.SeriesFromRows(rows), nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		// Degraded store: fall through to upstream rather than fail.
		c.log.Warn("ohlcv cache read failed", logger.String("key", key), logger.Error(err))
	}
	c.metrics.RecordCacheMiss()

	series, err := c.source.Fetch(ctx, asset, symbol, timeframe, limit)
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		// An empty response is a per-symbol failure and must not
		// occupy the key for the full TTL.
		return nil, fmt.Errorf("%w: empty response for %s %s", ErrFetchFailed, symbol, timeframe)
	}

	if err := c.store.Set(ctx, key, series.Rows(), c.ttl); err != nil {
		c.log.Warn("ohlcv cache write failed", logger.String("key", key), logger.Error(err))
	}
	return series, nil
}

func validateRequest(asset, symbol, timeframe string) error {
	if asset != "crypto" && asset != "equity" {
		return fmt.Errorf("%w: unknown asset class %q", ErrInvalidRequest, asset)
	}
	if !symbolPattern.MatchString(symbol) {
		return fmt.Errorf("%w: bad symbol %q", ErrInvalidRequest, symbol)
	}
	if !util.ValidTimeframe(timeframe) {
		return fmt.Errorf("%w: unsupported timeframe %q", ErrInvalidRequest, timeframe)
	}
	return nil
}
