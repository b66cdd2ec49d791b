package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"Draks/internal/domain/models"
	"Draks/internal/engine"
	"Draks/internal/ohlcv"
	"Draks/internal/orchestrator"
	"Draks/pkg/cache"
	"Draks/pkg/logger"
	"Draks/pkg/util"
)

// DecisionUseCase runs the full decision pipeline for one symbol:
// candles in, per-engine results plus weighted consensus out.
type DecisionUseCase struct {
	candles *ohlcv.Cache
	kv      cache.Service
	log     *logger.Logger
	orchCfg models.OrchestratorConfig
	respTTL time.Duration
}

// NewDecisionUseCase creates the decision pipeline.
func NewDecisionUseCase(candles *ohlcv.Cache, kv cache.Service, log *logger.Logger, orchCfg models.OrchestratorConfig, respTTL time.Duration) *DecisionUseCase {
	return &DecisionUseCase{
		candles: candles,
		kv:      kv,
		log:     log,
		orchCfg: orchCfg,
		respTTL: respTTL,
	}
}

// Decide produces a consensus decision. Uploaded candles take priority
// over fetched history and bypass both caches.
func (uc *DecisionUseCase) Decide(ctx context.Context, req *models.DecisionHTTPRequest) (*models.DecisionHTTPResponse, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))

	uploaded := len(req.Candles) > 0
	var respKey string
	if !uploaded {
		respKey = cache.GenerateKeyWithParams("decision", req.Asset, symbol, req.Timeframe, req.Limit)
		var cached models.DecisionHTTPResponse
		if err := uc.kv.Get(ctx, respKey, &cached); err == nil {
			return &cached, nil
		}
	}

	series, err := uc.loadSeries(ctx, req, symbol)
	if err != nil {
		return nil, err
	}
	if len(series) < models.MinDecisionBars {
		return nil, orchestrator.ErrInsufficientData
	}

	engReq := &models.DecisionRequest{
		Symbol:    symbol,
		Timeframe: req.Timeframe,
		OHLCV:     series,
	}
	results := engine.RunAll(engReq)

	consensus, err := orchestrator.BuildConsensus(symbol, req.Timeframe, series, results, uc.orchCfg, req.AccountValue)
	if err != nil {
		return nil, err
	}

	resp := &models.DecisionHTTPResponse{
		Symbol:    symbol,
		Timeframe: req.Timeframe,
		Consensus: *consensus,
		Engines:   results,
		AsOf:      util.FormatUTC(time.Now()),
	}

	// Account value shapes position_value, so only parameter-free
	// responses are shared through the cache.
	if !uploaded && req.AccountValue == 0 {
		if err := uc.kv.Set(ctx, respKey, resp, uc.respTTL); err != nil {
			uc.log.Warn("decision cache write failed", logger.String("key", respKey), logger.Error(err))
		}
	}
	return resp, nil
}

func (uc *DecisionUseCase) loadSeries(ctx context.Context, req *models.DecisionHTTPRequest, symbol string) (models.Series, error) {
	if len(req.Candles) > 0 {
		series := make(models.Series, 0, len(req.Candles))
		for _, c := range req.Candles {
			series = append(series, c.Bar())
		}
		return series.Clean(), nil
	}
	return uc.candles.Get(ctx, req.Asset, symbol, req.Timeframe, req.Limit)
}

// errors surfaced to handlers for status mapping.
var (
	ErrInvalidInput     = ohlcv.ErrInvalidRequest
	ErrUpstreamFailed   = ohlcv.ErrFetchFailed
	ErrInsufficientData = orchestrator.ErrInsufficientData
)

// Classify maps pipeline errors onto coarse categories for transport.
func Classify(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInsufficientData):
		return "client"
	case errors.Is(err, ErrUpstreamFailed):
		return "upstream"
	default:
		return "internal"
	}
}
