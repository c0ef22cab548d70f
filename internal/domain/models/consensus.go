package models

import "time"

// ConsensusData is the statistical consensus over independently sourced
// quotes for one symbol. Cached for a short TTL to bound external query cost.
type ConsensusData struct {
	Symbol        string
	MedianPrice   float64
	ConfidencePct float64 // fraction of sources within 2 stddev, 0..100
	BrokerCount   int
	OutlierCount  int
	ComputedAt    time.Time
}

// ThresholdState is the shared adaptive-threshold snapshot. A single instance
// is owned by the threshold controller and read by the rest of the pipeline.
type ThresholdState struct {
	CurrentThreshold float64
	TierLevel        int
	LastSignalAt     time.Time
	ReasonCode       string
}
