package models

// Action is the per-engine recommendation.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// Score maps the action to a signed unit score.
func (a Action) Score() float64 {
	switch a {
	case ActionBuy:
		return 1
	case ActionSell:
		return -1
	default:
		return 0
	}
}

// DecisionRequest is the input to a single strategy engine run.
type DecisionRequest struct {
	EngineID  string
	Symbol    string
	Timeframe string
	OHLCV     Series
	Params    map[string]float64 // engine-specific overrides, may be nil
}

// DecisionResult is the output of one engine run. Engines never fail:
// when history is insufficient they return hold with zero confidence.
type DecisionResult struct {
	EngineID       string             `json:"engine_id"`
	Action         Action             `json:"action"`
	Confidence     float64            `json:"confidence"`      // [0,1]
	HorizonDays    float64            `json:"horizon_days"`    // >= 0
	ExpectedReturn float64            `json:"expected_return"` // [-1,1]
	StopLoss       float64            `json:"stop_loss"`       // <= 0, fractional
	TakeProfit     float64            `json:"take_profit"`     // >= 0, fractional
	Metadata       map[string]float64 `json:"metadata,omitempty"`
}

// RegimeLabel classifies the market state.
type RegimeLabel string

const (
	RegimeRiskOn  RegimeLabel = "risk_on"
	RegimeRiskOff RegimeLabel = "risk_off"
	RegimeMixed   RegimeLabel = "mixed"
)

// Regime is the regime detector output.
type Regime struct {
	Label         RegimeLabel `json:"label"`
	TrendStrength float64     `json:"trend_strength"`
	VolPct        float64     `json:"vol_pct"`
}
