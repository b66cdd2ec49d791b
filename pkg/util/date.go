package util

import "time"

// Supported candle timeframes and their bar durations.
var timeframeDurations = map[string]time.Duration{
	"1m":  time.Minute,
	"3m":  3 * time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"2h":  2 * time.Hour,
	"4h":  4 * time.Hour,
	"6h":  6 * time.Hour,
	"12h": 12 * time.Hour,
	"1d":  24 * time.Hour,
	"1w":  7 * 24 * time.Hour,
}

// ValidTimeframe reports whether tf is one of the supported timeframes.
func ValidTimeframe(tf string) bool {
	_, ok := timeframeDurations[tf]
	return ok
}

// TimeframeDuration returns the duration of a single bar for tf,
// or zero for an unknown timeframe.
func TimeframeDuration(tf string) time.Duration {
	return timeframeDurations[tf]
}

// Timeframes returns the supported timeframes in ascending bar size.
func Timeframes() []string {
	return []string{"1m", "3m", "5m", "15m", "30m", "1h", "2h", "4h", "6h", "12h", "1d", "1w"}
}

// FormatUTC renders t as an ISO-8601 UTC timestamp.
func FormatUTC(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
