package engine

import (
	"math"

	"github.com/creasty/defaults"

	"Draks/internal/domain/models"
	"Draks/internal/indicators"
)

func init() { Register("KM1", func() Engine { return &Momentum{} }) }

// MomentumParams tunes the EMA crossover engine.
type MomentumParams struct {
	EMAFast     int     `default:"12" validate:"gt=0"`
	EMASlow     int     `default:"48" validate:"gt=0,gtefield=EMAFast"`
	HorizonDays float64 `default:"5" validate:"gte=0"`
	ATRMult     float64 `default:"1.5" validate:"gt=0"`
}

// Momentum is the trend/EMA-crossover engine (KM1).
type Momentum struct{}

func (m *Momentum) ID() string { return "KM1" }

func (m *Momentum) Run(req *models.DecisionRequest) *models.DecisionResult {
	p := MomentumParams{}
	_ = defaults.Set(&p)
	intParam(req.Params, "ema_fast", &p.EMAFast)
	intParam(req.Params, "ema_slow", &p.EMASlow)
	floatParam(req.Params, "horizon_days", &p.HorizonDays)
	floatParam(req.Params, "atr_mult", &p.ATRMult)
	validOrDefault(&p)

	bars := req.OHLCV.Clean()
	closes := bars.Closes()
	fast := indicators.EMA(closes, p.EMAFast)
	slow := indicators.EMA(closes, p.EMASlow)

	n := len(closes)
	if n == 0 || math.IsNaN(tail(fast)) || math.IsNaN(tail(slow)) || closes[n-1] == 0 {
		return holdResult("KM1", p.HorizonDays)
	}

	t := (fast[n-1] - slow[n-1]) / closes[n-1]

	action := models.ActionHold
	switch {
	case t > 0:
		action = models.ActionBuy
	case t < 0:
		action = models.ActionSell
	}

	// A fresh cross between the last two bars overrides the base rule.
	// Equal EMAs on the previous bar do count as a cross start, but an
	// equality on the current bar does not.
	if n >= 2 && !math.IsNaN(fast[n-2]) && !math.IsNaN(slow[n-2]) {
		if fast[n-2] <= slow[n-2] && fast[n-1] > slow[n-1] {
			action = models.ActionBuy
		} else if fast[n-2] >= slow[n-2] && fast[n-1] < slow[n-1] {
			action = models.ActionSell
		}
	}

	vol := indicators.DailyVolatility(closes)
	return &models.DecisionResult{
		EngineID:       "KM1",
		Action:         action,
		Confidence:     indicators.Clip(math.Tanh(math.Abs(t)*100), 0, 1),
		HorizonDays:    p.HorizonDays,
		ExpectedReturn: indicators.Clip(t*5, -0.08, 0.08),
		StopLoss:       -1.0 * vol,
		TakeProfit:     2.0 * vol,
		Metadata:       map[string]float64{"trend": t, "daily_vol": vol},
	}
}

func tail(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	return xs[len(xs)-1]
}

func holdResult(id string, horizon float64) *models.DecisionResult {
	return &models.DecisionResult{
		EngineID:    id,
		Action:      models.ActionHold,
		Confidence:  0,
		HorizonDays: horizon,
	}
}
