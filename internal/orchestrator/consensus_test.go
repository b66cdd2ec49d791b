package orchestrator

import (
	"errors"
	"math"
	"testing"

	"Draks/internal/domain/models"
)

func barsFlat(n int, price float64) models.Series {
	s := make(models.Series, 0, n)
	for i := 0; i < n; i++ {
		s = append(s, models.Bar{
			Timestamp: int64(i) * 86400000,
			Open:      price,
			High:      price * 1.001,
			Low:       price * 0.999,
			Close:     price,
			Volume:    1000,
		})
	}
	return s
}

func result(action models.Action, conf, exp float64) *models.DecisionResult {
	return &models.DecisionResult{
		Action:         action,
		Confidence:     conf,
		ExpectedReturn: exp,
		HorizonDays:    5,
		StopLoss:       -0.02,
		TakeProfit:     0.04,
	}
}

func allHold() map[string]*models.DecisionResult {
	return map[string]*models.DecisionResult{
		"KM1": result(models.ActionHold, 0.25, 0),
		"KM2": result(models.ActionHold, 0.25, 0),
		"KM3": result(models.ActionHold, 0.25, 0),
		"KM4": result(models.ActionHold, 0.25, 0),
	}
}

func TestConsensusNoEngines(t *testing.T) {
	_, err := BuildConsensus("BTCUSDT", "1d", barsFlat(80, 100), nil, models.DefaultOrchestratorConfig(), 0)
	if !errors.Is(err, ErrNoEngines) {
		t.Fatalf("err = %v, want ErrNoEngines", err)
	}
}

func TestConsensusInsufficientData(t *testing.T) {
	_, err := BuildConsensus("BTCUSDT", "1d", barsFlat(30, 100), allHold(), models.DefaultOrchestratorConfig(), 0)
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}
}

func TestConsensusBuyLabel(t *testing.T) {
	// One confident buy against one confident sell produces a nonzero
	// z-score spread; all weight on the buyer pushes the score past the
	// label threshold.
	results := map[string]*models.DecisionResult{
		"KM1": result(models.ActionBuy, 1, 0.05),
		"KM2": result(models.ActionSell, 1, -0.05),
		"KM3": result(models.ActionHold, 0, 0),
		"KM4": result(models.ActionHold, 0.25, 0),
	}
	cfg := models.DefaultOrchestratorConfig()
	cfg.Weights[models.RegimeMixed] = map[string]float64{"KM1": 1}

	c, err := BuildConsensus("BTCUSDT", "1d", barsFlat(80, 100), results, cfg, 0)
	if err != nil {
		t.Fatalf("BuildConsensus: %v", err)
	}
	if c.Label != models.ActionBuy {
		t.Fatalf("label = %s (score %v), want buy", c.Label, c.ScoreRaw)
	}
	if c.ScoreRaw <= labelThreshold {
		t.Fatalf("score = %v, want > %v", c.ScoreRaw, labelThreshold)
	}
	if math.Abs(c.ExpectedReturn-0.05) > 1e-12 {
		t.Fatalf("expected return = %v, want 0.05", c.ExpectedReturn)
	}
}

func TestConsensusSellLabel(t *testing.T) {
	results := map[string]*models.DecisionResult{
		"KM1": result(models.ActionBuy, 1, 0.05),
		"KM2": result(models.ActionSell, 1, -0.05),
		"KM3": result(models.ActionHold, 0, 0),
		"KM4": result(models.ActionHold, 0.25, 0),
	}
	cfg := models.DefaultOrchestratorConfig()
	cfg.Weights[models.RegimeMixed] = map[string]float64{"KM2": 1}

	c, err := BuildConsensus("BTCUSDT", "1d", barsFlat(80, 100), results, cfg, 0)
	if err != nil {
		t.Fatalf("BuildConsensus: %v", err)
	}
	if c.Label != models.ActionSell {
		t.Fatalf("label = %s (score %v), want sell", c.Label, c.ScoreRaw)
	}
}

func TestConsensusAllHoldIsHold(t *testing.T) {
	// Identical raw scores have zero spread, so every z-score is zero
	// and the consensus stays at hold.
	c, err := BuildConsensus("BTCUSDT", "1d", barsFlat(80, 100), allHold(), models.DefaultOrchestratorConfig(), 0)
	if err != nil {
		t.Fatalf("BuildConsensus: %v", err)
	}
	if c.Label != models.ActionHold || c.ScoreRaw != 0 {
		t.Fatalf("label = %s score = %v, want hold with zero score", c.Label, c.ScoreRaw)
	}
}

func TestConsensusUniformWeightFallback(t *testing.T) {
	// No weights configured for the active regime: every engine gets an
	// equal share, visible in the blended expected return.
	results := allHold()
	results["KM1"].ExpectedReturn = 0.04
	cfg := models.OrchestratorConfig{
		Weights:             map[models.RegimeLabel]map[string]float64{},
		VolTargetAnnual:     0.15,
		MaxPositionFraction: 0.02,
	}

	c, err := BuildConsensus("BTCUSDT", "1d", barsFlat(80, 100), results, cfg, 0)
	if err != nil {
		t.Fatalf("BuildConsensus: %v", err)
	}
	if math.Abs(c.ExpectedReturn-0.01) > 1e-12 {
		t.Fatalf("expected return = %v, want 0.01 under uniform weights", c.ExpectedReturn)
	}
}

func TestConsensusPositionSizing(t *testing.T) {
	// Flat closes have zero realized volatility, so sizing hits the
	// max-fraction cap and position value scales with account value.
	c, err := BuildConsensus("BTCUSDT", "1d", barsFlat(80, 100), allHold(), models.DefaultOrchestratorConfig(), 10000)
	if err != nil {
		t.Fatalf("BuildConsensus: %v", err)
	}
	if math.Abs(c.PositionFraction-0.02) > 1e-9 {
		t.Fatalf("position fraction = %v, want 0.02", c.PositionFraction)
	}
	if math.Abs(c.PositionValue-200) > 1e-6 {
		t.Fatalf("position value = %v, want 200", c.PositionValue)
	}
}

func TestConsensusVolTargetCapsFraction(t *testing.T) {
	// Wild alternating closes drive annualized volatility far above the
	// target, shrinking the fraction below the cap.
	series := make(models.Series, 0, 100)
	for i := 0; i < 100; i++ {
		price := 100.0
		if i%2 == 1 {
			price = 200.0
		}
		series = append(series, models.Bar{
			Timestamp: int64(i) * 86400000,
			Open:      price,
			High:      price * 1.01,
			Low:       price * 0.99,
			Close:     price,
			Volume:    1000,
		})
	}

	c, err := BuildConsensus("BTCUSDT", "1d", series, allHold(), models.DefaultOrchestratorConfig(), 0)
	if err != nil {
		t.Fatalf("BuildConsensus: %v", err)
	}
	if c.PositionFraction <= 0 || c.PositionFraction >= 0.02 {
		t.Fatalf("position fraction = %v, want in (0, 0.02)", c.PositionFraction)
	}
}

func TestConsensusRiskOffHalvesFraction(t *testing.T) {
	// A long decline with wide intrabar ranges lands in risk_off, which
	// halves the zero-vol cap of 0.02. Per-bar returns are constant, so
	// realized close-to-close volatility stays zero.
	series := make(models.Series, 0, 250)
	price := 100.0
	for i := 0; i < 250; i++ {
		series = append(series, models.Bar{
			Timestamp: int64(i) * 86400000,
			Open:      price,
			High:      price * 1.05,
			Low:       price * 0.95,
			Close:     price,
			Volume:    1000,
		})
		price *= 0.997
	}

	c, err := BuildConsensus("BTCUSDT", "1d", series, allHold(), models.DefaultOrchestratorConfig(), 0)
	if err != nil {
		t.Fatalf("BuildConsensus: %v", err)
	}
	if c.Regime.Label != models.RegimeRiskOff {
		t.Fatalf("regime = %s, want risk_off", c.Regime.Label)
	}
	if math.Abs(c.PositionFraction-0.01) > 1e-9 {
		t.Fatalf("position fraction = %v, want 0.01", c.PositionFraction)
	}
}

func TestConsensusBuyWithNonPositiveReturnHalves(t *testing.T) {
	results := map[string]*models.DecisionResult{
		"KM1": result(models.ActionBuy, 1, -0.01),
		"KM2": result(models.ActionSell, 1, 0),
		"KM3": result(models.ActionHold, 0, 0),
		"KM4": result(models.ActionHold, 0, 0),
	}
	cfg := models.DefaultOrchestratorConfig()
	cfg.Weights[models.RegimeMixed] = map[string]float64{"KM1": 1}

	c, err := BuildConsensus("BTCUSDT", "1d", barsFlat(80, 100), results, cfg, 0)
	if err != nil {
		t.Fatalf("BuildConsensus: %v", err)
	}
	if c.Label != models.ActionBuy {
		t.Fatalf("label = %s, want buy", c.Label)
	}
	if math.Abs(c.PositionFraction-0.01) > 1e-9 {
		t.Fatalf("position fraction = %v, want halved to 0.01", c.PositionFraction)
	}
}

func TestConsensusRationaleAndDrivers(t *testing.T) {
	results := map[string]*models.DecisionResult{
		"KM1": result(models.ActionBuy, 1, 0.05),
		"KM2": result(models.ActionSell, 0.5, -0.02),
		"KM3": result(models.ActionHold, 0.25, 0),
		"KM4": result(models.ActionHold, 0.25, 0),
	}
	c, err := BuildConsensus("BTCUSDT", "1d", barsFlat(80, 100), results, models.DefaultOrchestratorConfig(), 0)
	if err != nil {
		t.Fatalf("BuildConsensus: %v", err)
	}

	wantRationale := []string{"KM1:buy(1.00)", "KM2:sell(0.50)", "KM3:hold(0.25)", "KM4:hold(0.25)"}
	if len(c.Rationale) != len(wantRationale) {
		t.Fatalf("rationale = %v", c.Rationale)
	}
	for i, want := range wantRationale {
		if c.Rationale[i] != want {
			t.Fatalf("rationale[%d] = %q, want %q", i, c.Rationale[i], want)
		}
	}

	if len(c.TopDrivers) != 3 {
		t.Fatalf("top drivers = %v, want 3 entries", c.TopDrivers)
	}
	if c.TopDrivers[0] != "KM1" || c.TopDrivers[1] != "KM2" {
		t.Fatalf("top drivers = %v, want KM1 then KM2 leading", c.TopDrivers)
	}
}
