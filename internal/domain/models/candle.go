package models

import (
	"math"
	"sort"
	"time"
)

// Bar is a single OHLCV record.
type Bar struct {
	Timestamp int64   `json:"ts"` // unix milliseconds
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Time returns the bar timestamp as time.Time.
func (b Bar) Time() time.Time { return time.UnixMilli(b.Timestamp) }

// Series is an ordered OHLCV sequence.
type Series []Bar

// MinDecisionBars is the minimum history required to produce a decision.
const MinDecisionBars = 60

// Clean sorts bars by timestamp, drops NaN bars and duplicate timestamps.
// It returns a new slice; the input is not modified.
func (s Series) Clean() Series {
	out := make(Series, 0, len(s))
	for _, b := range s {
		if math.IsNaN(b.Open) || math.IsNaN(b.High) || math.IsNaN(b.Low) ||
			math.IsNaN(b.Close) || math.IsNaN(b.Volume) {
			continue
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })

	dedup := out[:0]
	var prev int64 = math.MinInt64
	for _, b := range out {
		if b.Timestamp == prev {
			continue
		}
		dedup = append(dedup, b)
		prev = b.Timestamp
	}
	return dedup
}

// Closes extracts the close column.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Close
	}
	return out
}

// Highs extracts the high column.
func (s Series) Highs() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.High
	}
	return out
}

// Lows extracts the low column.
func (s Series) Lows() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Low
	}
	return out
}

// Rows serializes the series as [ts_ms, o, h, l, c, v] rows, the wire
// format used by the OHLCV cache.
func (s Series) Rows() [][]float64 {
	rows := make([][]float64, len(s))
	for i, b := range s {
		rows[i] = []float64{float64(b.Timestamp), b.Open, b.High, b.Low, b.Close, b.Volume}
	}
	return rows
}

// SeriesFromRows rebuilds a series from cache rows. Short rows are skipped.
func SeriesFromRows(rows [][]float64) Series {
	s := make(Series, 0, len(rows))
	for _, r := range rows {
		if len(r) < 6 {
			continue
		}
		s = append(s, Bar{
			Timestamp: int64(r[0]),
			Open:      r[1],
			High:      r[2],
			Low:       r[3],
			Close:     r[4],
			Volume:    r[5],
		})
	}
	return s
}
