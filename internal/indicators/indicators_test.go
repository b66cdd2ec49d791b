package indicators

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestSMAWindow(t *testing.T) {
	got := SMA([]float64{1, 2, 3, 4, 5}, 3)
	if !math.IsNaN(got[0]) || !math.IsNaN(got[1]) {
		t.Fatalf("expected NaN lead, got %v", got[:2])
	}
	want := []float64{2, 3, 4}
	for i, w := range want {
		if !almostEqual(got[i+2], w, 1e-12) {
			t.Fatalf("sma[%d] = %v, want %v", i+2, got[i+2], w)
		}
	}
}

func TestSMAShortInput(t *testing.T) {
	got := SMA([]float64{1, 2}, 3)
	for i, v := range got {
		if !math.IsNaN(v) {
			t.Fatalf("expected NaN at %d, got %v", i, v)
		}
	}
}

func TestEMASeededWithSMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6}
	got := EMA(values, 3)
	if !math.IsNaN(got[1]) {
		t.Fatalf("expected NaN before seed")
	}
	if !almostEqual(got[2], 2, 1e-12) {
		t.Fatalf("seed = %v, want 2", got[2])
	}
	// alpha = 0.5 for span 3
	if !almostEqual(got[3], 0.5*4+0.5*2, 1e-12) {
		t.Fatalf("ema[3] = %v", got[3])
	}
}

func TestRSIExtremes(t *testing.T) {
	up := make([]float64, 30)
	for i := range up {
		up[i] = float64(100 + i)
	}
	rsi := RSI(up, 14)
	last := rsi[len(rsi)-1]
	if last < 99 {
		t.Fatalf("monotonic rise should pin RSI near 100, got %v", last)
	}

	down := make([]float64, 30)
	for i := range down {
		down[i] = float64(200 - i)
	}
	rsi = RSI(down, 14)
	last = rsi[len(rsi)-1]
	if last > 1 {
		t.Fatalf("monotonic fall should pin RSI near 0, got %v", last)
	}
}

func TestRSILeadIsNaN(t *testing.T) {
	closes := []float64{1, 2, 3, 2, 3, 4, 3, 4, 5, 4, 5, 6, 5, 6, 7, 6}
	rsi := RSI(closes, 14)
	for i := 0; i < 14; i++ {
		if !math.IsNaN(rsi[i]) {
			t.Fatalf("rsi[%d] should be NaN", i)
		}
	}
	if math.IsNaN(rsi[14]) {
		t.Fatalf("rsi[14] should be defined")
	}
}

func TestMACDShape(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + math.Sin(float64(i)/5)*3
	}
	macd, signal, hist := MACD(closes)
	if len(macd) != 60 || len(signal) != 60 || len(hist) != 60 {
		t.Fatalf("output length mismatch")
	}
	if !math.IsNaN(macd[24]) || math.IsNaN(macd[25]) {
		t.Fatalf("macd should start at index 25")
	}
	for i := range hist {
		if math.IsNaN(hist[i]) {
			continue
		}
		if !almostEqual(hist[i], macd[i]-signal[i], 1e-9) {
			t.Fatalf("hist[%d] != macd-signal", i)
		}
	}
}

func TestBollingerConstantSeries(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 50
	}
	upper, lower, width := Bollinger(closes, 20, 2)
	last := len(closes) - 1
	if !almostEqual(upper[last], 50, 1e-12) || !almostEqual(lower[last], 50, 1e-12) {
		t.Fatalf("constant series should have zero-width bands, got %v %v", upper[last], lower[last])
	}
	if !almostEqual(width[last], 0, 1e-12) {
		t.Fatalf("width should be 0, got %v", width[last])
	}
}

func TestATRFirstBarTrueRange(t *testing.T) {
	highs := []float64{10, 11, 12}
	lows := []float64{8, 9, 10}
	closes := []float64{9, 10, 11}
	atr := ATR(highs, lows, closes, 3)
	// all TRs are 2 (hl dominates), so ATR(3) at index 2 is 2
	if !almostEqual(atr[2], 2, 1e-12) {
		t.Fatalf("atr[2] = %v, want 2", atr[2])
	}
}

func TestDailyVolatilityShortSeries(t *testing.T) {
	if v := DailyVolatility([]float64{1, 2, 3, 4, 5, 6}); v != 0 {
		t.Fatalf("short series volatility = %v, want 0", v)
	}
}

func TestDailyVolatilityConstant(t *testing.T) {
	closes := []float64{5, 5, 5, 5, 5, 5, 5, 5}
	if v := DailyVolatility(closes); v != 0 {
		t.Fatalf("flat series volatility = %v, want 0", v)
	}
}

func TestClip(t *testing.T) {
	if Clip(2, 0, 1) != 1 || Clip(-2, 0, 1) != 0 || Clip(0.5, 0, 1) != 0.5 {
		t.Fatalf("clip misbehaves")
	}
}
