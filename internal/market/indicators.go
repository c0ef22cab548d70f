package market

import "SignalForge/internal/domain/models"

// ATR returns the average true range over the last period bars, using the
// simple high-low range (bars here are mid-price derived, so there are no
// session gaps to bridge). Returns 0 on insufficient history.
func ATR(bars []models.Bar, period int) float64 {
	if period <= 0 || len(bars) < period {
		return 0
	}
	bars = bars[len(bars)-period:]
	sum := 0.0
	for _, b := range bars {
		sum += b.High - b.Low
	}
	return sum / float64(period)
}

// TrendDirection compares the latest close against the close lookback bars
// earlier: +1 rising, -1 falling, 0 flat or insufficient history.
func TrendDirection(bars []models.Bar, lookback int) int {
	if lookback <= 0 || len(bars) < lookback+1 {
		return 0
	}
	last := bars[len(bars)-1].Close
	ref := bars[len(bars)-1-lookback].Close
	switch {
	case last > ref:
		return 1
	case last < ref:
		return -1
	default:
		return 0
	}
}
