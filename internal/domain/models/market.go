package models

import "time"

// Tick is a single quote update for one symbol. Immutable once created.
type Tick struct {
	Symbol    string
	Bid       float64
	Ask       float64
	Spread    float64
	Volume    float64
	Timestamp time.Time
}

// Mid returns the quote midpoint.
func (t Tick) Mid() float64 { return (t.Bid + t.Ask) / 2 }

// Bar represents an OHLCV record derived incrementally from ticks.
type Bar struct {
	Symbol    string
	Timeframe string // "M1", "M5", "M15"
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	StartTime time.Time
}
