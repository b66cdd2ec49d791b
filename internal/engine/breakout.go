package engine

import (
	"math"

	"github.com/creasty/defaults"

	"Draks/internal/domain/models"
	"Draks/internal/indicators"
)

func init() { Register("KM2", func() Engine { return &Breakout{} }) }

// BreakoutParams tunes the ATR channel breakout engine.
type BreakoutParams struct {
	ATRWindow   int     `default:"14" validate:"gt=0"`
	MAWindow    int     `default:"20" validate:"gt=0"`
	ATRK        float64 `default:"1.0" validate:"gt=0"`
	HorizonDays float64 `default:"4" validate:"gte=0"`
}

// Breakout is the ATR channel breakout engine (KM2).
type Breakout struct{}

func (b *Breakout) ID() string { return "KM2" }

func (b *Breakout) Run(req *models.DecisionRequest) *models.DecisionResult {
	p := BreakoutParams{}
	_ = defaults.Set(&p)
	intParam(req.Params, "atr_window", &p.ATRWindow)
	intParam(req.Params, "ma_window", &p.MAWindow)
	floatParam(req.Params, "atr_k", &p.ATRK)
	floatParam(req.Params, "horizon_days", &p.HorizonDays)
	validOrDefault(&p)

	bars := req.OHLCV.Clean()
	closes := bars.Closes()
	ma := indicators.SMA(closes, p.MAWindow)
	atr := indicators.ATR(bars.Highs(), bars.Lows(), closes, p.ATRWindow)

	n := len(closes)
	if n == 0 || math.IsNaN(tail(ma)) || math.IsNaN(tail(atr)) || closes[n-1] == 0 {
		return holdResult("KM2", p.HorizonDays)
	}

	close := closes[n-1]
	upper := ma[n-1] + p.ATRK*atr[n-1]
	lower := ma[n-1] - p.ATRK*atr[n-1]

	action := models.ActionHold
	dist := 0.0 // signed distance past the broken band
	switch {
	case close > upper:
		action = models.ActionBuy
		dist = (close - upper) / close
	case close < lower:
		action = models.ActionSell
		dist = (close - lower) / close
	}

	vol := indicators.DailyVolatility(closes)
	return &models.DecisionResult{
		EngineID:       "KM2",
		Action:         action,
		Confidence:     indicators.Clip(math.Tanh(math.Abs(dist)*50), 0, 1),
		HorizonDays:    p.HorizonDays,
		ExpectedReturn: indicators.Clip(dist*3, -0.06, 0.06),
		StopLoss:       -1.2 * vol,
		TakeProfit:     1.8 * vol,
		Metadata: map[string]float64{
			"upper": upper, "lower": lower, "dist": dist, "daily_vol": vol,
		},
	}
}
