package models

// Request DTOs for the decision and batch endpoints. Defined in domain
// for reuse between handlers and tests; validation tags are enforced by
// pkg/http.ReadAndValidateRequest.

// CandleDTO mirrors a single uploaded bar.
type CandleDTO struct {
	TS     int64   `json:"ts" validate:"required"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Bar converts the DTO to a domain bar.
func (c CandleDTO) Bar() Bar {
	return Bar{Timestamp: c.TS, Open: c.Open, High: c.High, Low: c.Low, Close: c.Close, Volume: c.Volume}
}

type DecisionHTTPRequest struct {
	Symbol    string      `json:"symbol" validate:"required,max=20"`
	Timeframe string      `json:"timeframe" default:"1d" validate:"oneof=1m 3m 5m 15m 30m 1h 2h 4h 6h 12h 1d 1w"`
	Asset     string      `json:"asset" default:"crypto" validate:"oneof=crypto equity"`
	Candles   []CandleDTO `json:"candles,omitempty"`
	Limit     int         `json:"limit" default:"240" validate:"gte=0,lte=1000"`
	AccountValue float64  `json:"account_value" validate:"gte=0"`
}

type DecisionHTTPResponse struct {
	Symbol    string                     `json:"symbol"`
	Timeframe string                     `json:"timeframe"`
	Consensus Consensus                  `json:"consensus"`
	Engines   map[string]*DecisionResult `json:"engines"`
	AsOf      string                     `json:"as_of"` // ISO-8601 UTC
}

type BatchSubmitRequest struct {
	Asset     string   `json:"asset" validate:"required,oneof=crypto equity"`
	Timeframe string   `json:"timeframe" default:"1d" validate:"oneof=1m 3m 5m 15m 30m 1h 2h 4h 6h 12h 1d 1w"`
	Symbols   []string `json:"symbols" validate:"required,min=1"`
	Limit     int      `json:"limit" default:"240" validate:"gte=0,lte=1000"`
}

type BatchSubmitResponse struct {
	JobID string `json:"job_id"`
	Total int    `json:"total"`
}

type BatchResultsResponse struct {
	JobID string      `json:"job_id"`
	Items []JobResult `json:"items"`
}
