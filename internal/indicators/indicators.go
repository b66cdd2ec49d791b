// Package indicators provides pure technical-analysis functions over
// ordered OHLCV columns. Every function returns a slice of the input
// length with leading NaNs until its rolling window is filled; callers
// must check the tail with math.IsNaN before acting on it.
package indicators

import "math"

var nan = math.NaN()

const epsilon = 1e-12

// SMA computes a simple moving average over the given window.
func SMA(values []float64, window int) []float64 {
	out := fill(len(values))
	if window <= 0 || len(values) < window {
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// EMA computes an exponential moving average with alpha = 2/(span+1).
// The first value is seeded with the SMA of the first span inputs.
func EMA(values []float64, span int) []float64 {
	out := fill(len(values))
	if span <= 0 || len(values) < span {
		return out
	}
	alpha := 2.0 / (float64(span) + 1.0)
	var seed float64
	for _, v := range values[:span] {
		seed += v
	}
	out[span-1] = seed / float64(span)
	for i := span; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// RSI computes the Relative Strength Index using Wilder's smoothing
// (alpha = 1/period) of gains and losses.
func RSI(closes []float64, period int) []float64 {
	out := fill(len(closes))
	if period <= 0 || len(closes) < period+1 {
		return out
	}
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			avgGain += d
		} else {
			avgLoss -= d
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	rs := avgGain / (avgLoss + epsilon)
	return 100 - 100/(1+rs)
}

// MACD returns the MACD line (EMA12-EMA26), the signal line (EMA9 of
// the MACD) and the histogram.
func MACD(closes []float64) (macd, signal, hist []float64) {
	n := len(closes)
	macd, signal, hist = fill(n), fill(n), fill(n)

	fast := EMA(closes, 12)
	slow := EMA(closes, 26)
	start := -1
	for i := 0; i < n; i++ {
		if !math.IsNaN(fast[i]) && !math.IsNaN(slow[i]) {
			macd[i] = fast[i] - slow[i]
			if start < 0 {
				start = i
			}
		}
	}
	if start < 0 {
		return
	}
	sub := EMA(macd[start:], 9)
	for i, v := range sub {
		signal[start+i] = v
		if !math.IsNaN(v) {
			hist[start+i] = macd[start+i] - v
		}
	}
	return
}

// Bollinger returns the upper band, lower band and relative band width
// ((upper-lower)/close) for SMA(period) +/- k standard deviations.
func Bollinger(closes []float64, period int, k float64) (upper, lower, width []float64) {
	n := len(closes)
	upper, lower, width = fill(n), fill(n), fill(n)
	mid := SMA(closes, period)
	for i := period - 1; i < n; i++ {
		if math.IsNaN(mid[i]) {
			continue
		}
		var ss float64
		for j := i - period + 1; j <= i; j++ {
			d := closes[j] - mid[i]
			ss += d * d
		}
		sigma := math.Sqrt(ss / float64(period))
		upper[i] = mid[i] + k*sigma
		lower[i] = mid[i] - k*sigma
		if closes[i] != 0 {
			width[i] = (upper[i] - lower[i]) / closes[i]
		}
	}
	return
}

// ATR computes the Average True Range as a simple mean of the true
// range over the window. TR for the first bar is high-low.
func ATR(highs, lows, closes []float64, window int) []float64 {
	n := len(closes)
	out := fill(n)
	if window <= 0 || n < window || len(highs) != n || len(lows) != n {
		return out
	}
	tr := make([]float64, n)
	tr[0] = highs[0] - lows[0]
	for i := 1; i < n; i++ {
		hl := highs[i] - lows[i]
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}
	return SMA(tr, window)
}

// DailyVolatility returns the sample standard deviation of simple
// percent returns of close, or 0 when fewer than 6 returns exist.
func DailyVolatility(closes []float64) float64 {
	if len(closes) < 7 {
		return 0
	}
	rets := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		rets = append(rets, closes[i]/closes[i-1]-1)
	}
	if len(rets) < 6 {
		return 0
	}
	var mean float64
	for _, r := range rets {
		mean += r
	}
	mean /= float64(len(rets))
	var ss float64
	for _, r := range rets {
		d := r - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(rets)-1))
}

// Clip bounds v to [lo, hi].
func Clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func fill(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = nan
	}
	return out
}
