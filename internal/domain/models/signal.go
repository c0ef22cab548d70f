package models

import "time"

// Direction of a trading signal.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// Tier identifies the risk/duration profile of a published signal.
type Tier string

const (
	TierRapid     Tier = "rapid"
	TierPrecision Tier = "precision"
)

// CandidateSignal is produced by a pattern detector and consumed within the
// same scan cycle.
type CandidateSignal struct {
	Symbol         string
	Pattern        string
	Direction      Direction
	EntryPrice     float64
	BaseConfidence float64
	Timeframe      string
	DetectedAt     time.Time
}

// ScoredSignal is a candidate with confluence bonuses applied.
// FinalScore never exceeds the scorer ceiling and never drops below
// BaseConfidence.
type ScoredSignal struct {
	CandidateSignal
	FinalScore     float64
	TFAlignment    int // 0, 1 or 2 timeframes agreeing with the direction
	Session        string
	ShieldEnhanced bool
}

// PublishedSignal is the outbound record. Immutable once emitted; the core
// keeps no reference after publish except the outcome log append.
type PublishedSignal struct {
	ID             string    `json:"id"`
	Symbol         string    `json:"symbol"`
	Pattern        string    `json:"pattern"`
	Direction      Direction `json:"direction"`
	Tier           Tier      `json:"tier"`
	EntryPrice     float64   `json:"entry_price"`
	StopLoss       float64   `json:"stop_loss"`
	TakeProfit     float64   `json:"take_profit"`
	RiskReward     float64   `json:"risk_reward"`
	Duration       int64     `json:"duration_sec"`
	FinalScore     float64   `json:"final_score"`
	Session        string    `json:"session"`
	ShieldEnhanced bool      `json:"shield_enhanced"`
	PublishedAt    time.Time `json:"published_at"`
}
