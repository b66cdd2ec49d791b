// Package orchestrator combines per-engine decisions into a single
// consensus recommendation with position sizing.
package orchestrator

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"Draks/internal/domain/models"
	"Draks/internal/engine"
	"Draks/internal/indicators"
)

var (
	ErrNoEngines        = errors.New("no engines")
	ErrInsufficientData = errors.New("insufficient data")
)

const (
	epsilon        = 1e-9
	labelThreshold = 0.15
	annualFactor   = 252
)

// BuildConsensus aggregates engine results under the regime detected
// from the series. accountValue of zero yields a zero position value.
func BuildConsensus(
	symbol, timeframe string,
	series models.Series,
	results map[string]*models.DecisionResult,
	cfg models.OrchestratorConfig,
	accountValue float64,
) (*models.Consensus, error) {
	if len(results) == 0 {
		return nil, ErrNoEngines
	}
	bars := series.Clean()
	if len(bars) < models.MinDecisionBars {
		return nil, fmt.Errorf("%w: %d bars for %s", ErrInsufficientData, len(bars), symbol)
	}

	regime := engine.DetectRegime(bars)
	ids := orderedIDs(results)

	w := weightVector(ids, cfg.Weights[regime.Label])

	raw := make([]float64, len(ids))
	for i, id := range ids {
		r := results[id]
		raw[i] = r.Action.Score() * indicators.Clip(r.Confidence, 0, 1)
	}
	z := zscore(winsorize(raw, 0.01, 0.99))

	var sCons, expCons, confCons, horizon, sl, tp float64
	for i, id := range ids {
		r := results[id]
		sCons += w[i] * z[i]
		expCons += w[i] * r.ExpectedReturn
		confCons += w[i] * indicators.Clip(r.Confidence, 0, 1)
		horizon += w[i] * r.HorizonDays
		sl += w[i] * r.StopLoss
		tp += w[i] * r.TakeProfit
	}

	label := models.ActionHold
	switch {
	case sCons > labelThreshold:
		label = models.ActionBuy
	case sCons < -labelThreshold:
		label = models.ActionSell
	}

	zStd := std(z)
	conf := indicators.Clip(confCons, 0, 1)

	dailyVol := indicators.DailyVolatility(bars.Closes())
	annVol := dailyVol * math.Sqrt(annualFactor)
	frac := math.Min(cfg.MaxPositionFraction, cfg.VolTargetAnnual/(annVol+epsilon))
	if regime.Label == models.RegimeRiskOff {
		frac *= 0.5
	}
	if label == models.ActionBuy && expCons <= 0 {
		frac *= 0.5
	}

	rationale := make([]string, 0, len(ids))
	for _, id := range ids {
		r := results[id]
		rationale = append(rationale, fmt.Sprintf("%s:%s(%.2f)", id, r.Action, indicators.Clip(r.Confidence, 0, 1)))
	}

	return &models.Consensus{
		Label:            label,
		ScoreRaw:         sCons,
		ExpectedReturn:   expCons,
		Confidence:       conf,
		ConfInt:          [2]float64{expCons - 0.5*zStd, expCons + 0.5*zStd},
		HorizonDays:      horizon,
		PositionFraction: frac,
		PositionValue:    frac * accountValue,
		StopLoss:         sl,
		TakeProfit:       tp,
		Regime:           regime,
		Rationale:        rationale,
		TopDrivers:       topDrivers(ids, raw, 3),
	}, nil
}

// orderedIDs returns the engine ids of the result map in a stable
// order: registry order first, unknown ids appended alphabetically.
func orderedIDs(results map[string]*models.DecisionResult) []string {
	seen := make(map[string]bool, len(results))
	ids := make([]string, 0, len(results))
	for _, id := range engine.IDs() {
		if _, ok := results[id]; ok {
			ids = append(ids, id)
			seen[id] = true
		}
	}
	extra := make([]string, 0)
	for id := range results {
		if !seen[id] {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	return append(ids, extra...)
}

// weightVector reads per-engine weights (missing entries are zero) and
// normalizes; an all-zero map falls back to uniform weights.
func weightVector(ids []string, weights map[string]float64) []float64 {
	w := make([]float64, len(ids))
	var sum float64
	for i, id := range ids {
		w[i] = weights[id]
		sum += w[i]
	}
	if sum <= epsilon {
		for i := range w {
			w[i] = 1 / float64(len(w))
		}
		return w
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}

// winsorize clips values to the [lo, hi] quantiles.
func winsorize(xs []float64, lo, hi float64) []float64 {
	if len(xs) == 0 {
		return xs
	}
	qlo := quantile(xs, lo)
	qhi := quantile(xs, hi)
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = indicators.Clip(x, qlo, qhi)
	}
	return out
}

// quantile computes the q-th quantile with linear interpolation.
func quantile(xs []float64, q float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// zscore standardizes values; a degenerate spread maps everything to 0.
func zscore(xs []float64) []float64 {
	out := make([]float64, len(xs))
	m := mean(xs)
	s := std(xs)
	if s <= epsilon {
		return out
	}
	for i, x := range xs {
		out[i] = (x - m) / s
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func std(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}

// topDrivers returns up to n engine ids ranked by |raw score|; ties
// keep the earlier engine first.
func topDrivers(ids []string, raw []float64, n int) []string {
	idx := make([]int, len(ids))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return math.Abs(raw[idx[a]]) > math.Abs(raw[idx[b]])
	})
	if n > len(idx) {
		n = len(idx)
	}
	out := make([]string, 0, n)
	for _, i := range idx[:n] {
		out = append(out, ids[i])
	}
	return out
}
