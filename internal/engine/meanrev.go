package engine

import (
	"math"

	"github.com/creasty/defaults"

	"Draks/internal/domain/models"
	"Draks/internal/indicators"
)

func init() { Register("KM3", func() Engine { return &MeanReversion{} }) }

// MeanRevParams tunes the RSI mean-reversion engine.
type MeanRevParams struct {
	RSIPeriod   int     `default:"14" validate:"gt=0"`
	RSILow      float64 `default:"30" validate:"gt=0,lt=100"`
	RSIHigh     float64 `default:"70" validate:"gt=0,lt=100,gtfield=RSILow"`
	HorizonDays float64 `default:"3" validate:"gte=0"`
}

// MeanReversion is the RSI mean-reversion engine (KM3).
type MeanReversion struct{}

func (m *MeanReversion) ID() string { return "KM3" }

func (m *MeanReversion) Run(req *models.DecisionRequest) *models.DecisionResult {
	p := MeanRevParams{}
	_ = defaults.Set(&p)
	intParam(req.Params, "rsi_period", &p.RSIPeriod)
	floatParam(req.Params, "rsi_low", &p.RSILow)
	floatParam(req.Params, "rsi_high", &p.RSIHigh)
	floatParam(req.Params, "horizon_days", &p.HorizonDays)
	validOrDefault(&p)

	bars := req.OHLCV.Clean()
	closes := bars.Closes()
	rsi := indicators.RSI(closes, p.RSIPeriod)

	last := tail(rsi)
	if math.IsNaN(last) {
		return holdResult("KM3", p.HorizonDays)
	}

	// Thresholds are strict: RSI exactly at a bound holds.
	action := models.ActionHold
	dist := 0.0
	switch {
	case last < p.RSILow:
		action = models.ActionBuy
		dist = (p.RSILow - last) / 100
	case last > p.RSIHigh:
		action = models.ActionSell
		dist = (p.RSIHigh - last) / 100
	}

	vol := indicators.DailyVolatility(closes)
	return &models.DecisionResult{
		EngineID:       "KM3",
		Action:         action,
		Confidence:     indicators.Clip(math.Tanh(math.Abs(dist)*6), 0, 1),
		HorizonDays:    p.HorizonDays,
		ExpectedReturn: indicators.Clip(dist*4, -0.05, 0.05),
		StopLoss:       -1.4 * vol,
		TakeProfit:     1.6 * vol,
		Metadata:       map[string]float64{"rsi": last, "daily_vol": vol},
	}
}
