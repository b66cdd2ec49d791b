package models

// Consensus is the orchestrator's aggregated recommendation.
type Consensus struct {
	Label            Action     `json:"label"`
	ScoreRaw         float64    `json:"score_raw"`
	ExpectedReturn   float64    `json:"expected_return"`
	Confidence       float64    `json:"confidence"`
	ConfInt          [2]float64 `json:"conf_int"`
	HorizonDays      float64    `json:"horizon_days"`
	PositionFraction float64    `json:"position_fraction"` // [0,1]
	PositionValue    float64    `json:"position_value"`    // >= 0
	StopLoss         float64    `json:"stop_loss"`
	TakeProfit       float64    `json:"take_profit"`
	Regime           Regime     `json:"regime"`
	Rationale        []string   `json:"rationale"`
	TopDrivers       []string   `json:"top_drivers"`
}

// OrchestratorConfig carries per-regime engine weights and sizing knobs.
// Weights need not sum to one; they are normalized at use.
type OrchestratorConfig struct {
	Weights             map[RegimeLabel]map[string]float64
	VolTargetAnnual     float64 // default 0.15
	MaxPositionFraction float64 // default 0.02
}

// DefaultOrchestratorConfig returns the stock weight maps and sizing
// defaults used when nothing is configured.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		Weights: map[RegimeLabel]map[string]float64{
			RegimeRiskOn:  {"KM1": 0.4, "KM2": 0.3, "KM3": 0.2, "KM4": 0.1},
			RegimeRiskOff: {"KM1": 0.15, "KM2": 0.2, "KM3": 0.35, "KM4": 0.3},
			RegimeMixed:   {"KM1": 0.3, "KM2": 0.3, "KM3": 0.3, "KM4": 0.1},
		},
		VolTargetAnnual:     0.15,
		MaxPositionFraction: 0.02,
	}
}
