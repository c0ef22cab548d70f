package pattern

import (
	"math"

	"SignalForge/internal/domain/models"
)

// Pattern names as they appear on outbound signals.
const (
	PatternLiquiditySweep = "LIQUIDITY_SWEEP_REVERSAL"
	PatternOrderBlock     = "ORDER_BLOCK_BOUNCE"
	PatternFairValueGap   = "FAIR_VALUE_GAP_FILL"
)

// Base confidences per pattern. Declaration order in the engine doubles as
// tie-break priority: sweep > order block > FVG.
const (
	sweepBaseConfidence      = 75.0
	orderBlockBaseConfidence = 70.0
	fvgBaseConfidence        = 65.0
)

// LiquiditySweepDetector flags a volume spike beyond recent range as a
// stop-hunt and signals the post-spike reversal.
//
// Over the last 20 M1 bars: range of the last 5 closes as a fraction of their
// average must exceed 3%, and the latest bar volume must exceed 1.3x the
// 10-bar average. Direction reverses the most recent 3-bar move.
type LiquiditySweepDetector struct{}

func (d *LiquiditySweepDetector) Name() string { return PatternLiquiditySweep }

func (d *LiquiditySweepDetector) Detect(snap *Snapshot) *models.CandidateSignal {
	bars := snap.M1
	if len(bars) < 20 {
		return nil
	}

	last5 := bars[len(bars)-5:]
	lo, hi, sum := last5[0].Close, last5[0].Close, 0.0
	for _, b := range last5 {
		if b.Close < lo {
			lo = b.Close
		}
		if b.Close > hi {
			hi = b.Close
		}
		sum += b.Close
	}
	avg := sum / float64(len(last5))
	if avg == 0 {
		return nil
	}
	rangePct := (hi - lo) / avg

	volSum := 0.0
	for _, b := range bars[len(bars)-10:] {
		volSum += b.Volume
	}
	avgVol := volSum / 10
	if avgVol == 0 {
		return nil
	}
	volumeSurge := bars[len(bars)-1].Volume / avgVol

	if rangePct <= 0.03 || volumeSurge <= 1.3 {
		return nil
	}

	// price rose into the spike: genuine move is the reversal down
	dir := models.DirectionBuy
	if bars[len(bars)-1].Close > bars[len(bars)-4].Close {
		dir = models.DirectionSell
	}

	return &models.CandidateSignal{
		Symbol:         snap.Symbol,
		Pattern:        PatternLiquiditySweep,
		Direction:      dir,
		EntryPrice:     snap.Price,
		BaseConfidence: sweepBaseConfidence,
		Timeframe:      "M1",
		DetectedAt:     snap.Now,
	}
}

// OrderBlockDetector signals price returning to the edge of a recent
// accumulation/distribution range: bottom quartile of the last 15 M5 closes
// is a buy, top quartile a sell.
type OrderBlockDetector struct{}

func (d *OrderBlockDetector) Name() string { return PatternOrderBlock }

func (d *OrderBlockDetector) Detect(snap *Snapshot) *models.CandidateSignal {
	bars := snap.M5
	if len(bars) < 15 {
		return nil
	}
	bars = bars[len(bars)-15:]

	lo, hi := bars[0].Close, bars[0].Close
	for _, b := range bars {
		if b.Close < lo {
			lo = b.Close
		}
		if b.Close > hi {
			hi = b.Close
		}
	}
	size := hi - lo
	if size <= 0 {
		return nil
	}

	pos := (snap.Price - lo) / size
	var dir models.Direction
	switch {
	case pos <= 0.25:
		dir = models.DirectionBuy
	case pos >= 0.75:
		dir = models.DirectionSell
	default:
		return nil
	}

	return &models.CandidateSignal{
		Symbol:         snap.Symbol,
		Pattern:        PatternOrderBlock,
		Direction:      dir,
		EntryPrice:     snap.Price,
		BaseConfidence: orderBlockBaseConfidence,
		Timeframe:      "M5",
		DetectedAt:     snap.Now,
	}
}

// FairValueGapDetector scans the last 8 M5 closes for adjacent-bar gaps
// exceeding 0.04% of price. When current price sits within 0.03% of a gap's
// midpoint, it signals toward the gap fill.
type FairValueGapDetector struct{}

func (d *FairValueGapDetector) Name() string { return PatternFairValueGap }

const (
	fvgGapThreshold  = 0.0004 // 0.04% minimum gap size
	fvgNearThreshold = 0.0003 // 0.03% proximity to midpoint
)

func (d *FairValueGapDetector) Detect(snap *Snapshot) *models.CandidateSignal {
	bars := snap.M5
	if len(bars) < 8 {
		return nil
	}
	bars = bars[len(bars)-8:]

	// newest gap first
	for i := len(bars) - 1; i >= 1; i-- {
		prev, cur := bars[i-1].Close, bars[i].Close
		if prev == 0 {
			continue
		}
		if math.Abs(cur-prev)/prev <= fvgGapThreshold {
			continue
		}
		mid := (cur + prev) / 2
		if mid == 0 || math.Abs(snap.Price-mid)/mid >= fvgNearThreshold {
			continue
		}

		dir := models.DirectionBuy
		if snap.Price > mid {
			dir = models.DirectionSell
		}
		return &models.CandidateSignal{
			Symbol:         snap.Symbol,
			Pattern:        PatternFairValueGap,
			Direction:      dir,
			EntryPrice:     snap.Price,
			BaseConfidence: fvgBaseConfidence,
			Timeframe:      "M5",
			DetectedAt:     snap.Now,
		}
	}
	return nil
}
