package repository

import "time"

// Timeframe represents bar resolution buckets.
type Timeframe string

const (
	TFM1  Timeframe = "M1"
	TFM5  Timeframe = "M5"
	TFM15 Timeframe = "M15"
)

// AllTimeframes lists the timeframes the aggregator maintains, in ascending
// resolution order.
var AllTimeframes = []Timeframe{TFM1, TFM5, TFM15}

// IsValidTimeframe returns true if tf is a supported timeframe.
func IsValidTimeframe(tf Timeframe) bool {
	switch tf {
	case TFM1, TFM5, TFM15:
		return true
	default:
		return false
	}
}

// DefaultTimeframe returns the default timeframe.
func DefaultTimeframe() Timeframe { return TFM1 }

// Duration returns the wall-clock span of one bar of this timeframe.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case TFM1:
		return time.Minute
	case TFM5:
		return 5 * time.Minute
	case TFM15:
		return 15 * time.Minute
	default:
		return time.Minute
	}
}

// NormalizeTimeframe converts raw string to a valid timeframe (or default).
func NormalizeTimeframe(s string) Timeframe {
	if s == "" {
		return DefaultTimeframe()
	}
	tf := Timeframe(s)
	if IsValidTimeframe(tf) {
		return tf
	}
	return DefaultTimeframe()
}
