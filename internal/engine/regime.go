package engine

import (
	"math"

	"Draks/internal/domain/models"
	"Draks/internal/indicators"
)

// Regime classification thresholds at the series tail.
const (
	trendDeadband = 0.002
	lowVolBound   = 0.02
	highVolBound  = 0.04
)

// DetectRegime classifies the market into risk_on / risk_off / mixed
// from EMA50/EMA200 trend and ATR(14) relative volatility. 200+ bars
// are recommended; with less history the trend leg is NaN and the
// result degrades to mixed.
func DetectRegime(series models.Series) models.Regime {
	bars := series.Clean()
	closes := bars.Closes()
	n := len(closes)

	trend, volPct := math.NaN(), math.NaN()
	if n > 0 && closes[n-1] != 0 {
		ema50 := tail(indicators.EMA(closes, 50))
		ema200 := tail(indicators.EMA(closes, 200))
		if !math.IsNaN(ema50) && !math.IsNaN(ema200) {
			trend = (ema50 - ema200) / closes[n-1]
		}
		atr := tail(indicators.ATR(bars.Highs(), bars.Lows(), closes, 14))
		if !math.IsNaN(atr) {
			volPct = atr / closes[n-1]
		}
	}

	label := models.RegimeMixed
	if !math.IsNaN(trend) && !math.IsNaN(volPct) {
		up := trend > trendDeadband
		down := trend < -trendDeadband
		switch {
		case up && volPct < lowVolBound:
			label = models.RegimeRiskOn
		case down && volPct > highVolBound:
			label = models.RegimeRiskOff
		}
	}

	if math.IsNaN(volPct) {
		volPct = 0
	}
	if math.IsNaN(trend) {
		trend = 0
	}
	return models.Regime{Label: label, TrendStrength: trend, VolPct: volPct}
}
