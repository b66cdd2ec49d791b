package engine

import (
	"Draks/internal/domain/models"
	"Draks/internal/indicators"
)

func init() { Register("KM4", func() Engine { return &Baseline{} }) }

// Baseline always holds. Its fixed low confidence damps the consensus
// against overreacting to a single directional engine.
type Baseline struct{}

func (b *Baseline) ID() string { return "KM4" }

func (b *Baseline) Run(req *models.DecisionRequest) *models.DecisionResult {
	vol := indicators.DailyVolatility(req.OHLCV.Clean().Closes())
	return &models.DecisionResult{
		EngineID:       "KM4",
		Action:         models.ActionHold,
		Confidence:     0.25,
		HorizonDays:    0,
		ExpectedReturn: 0,
		StopLoss:       -vol,
		TakeProfit:     vol,
	}
}
