package confluence

import (
	"SignalForge/internal/domain/models"
	"SignalForge/internal/market"
)

// Inputs is the read-only context a factor evaluates against.
type Inputs struct {
	Candidate   *models.CandidateSignal
	Session     Session
	RecentTicks []models.Tick
	M1          []models.Bar
	M5          []models.Bar
}

// Factor is one confluence contribution: a small pure function returning a
// non-negative bonus. Factors are pluggable so a trained model can replace
// any of them without touching the pipeline.
type Factor interface {
	Name() string
	Bonus(in *Inputs) float64
}

// Calibration constants. Starting points, not a fitted model.
const (
	volumeFloor       = 1.0    // min average tick volume for confirmation
	spreadCeiling     = 0.0003 // max spread considered institutional-quality
	trendLookback     = 5      // bars compared for directional trend
	atrPeriod         = 10
	atrOptimalMinFrac = 0.0001 // ATR/price lower edge of the optimal band
	atrOptimalMaxFrac = 0.0015 // ATR/price upper edge of the optimal band
)

// sessionAffinityFactor pays the session quality bonus (0-25) when the
// candidate's symbol is in the active session's optimal-pair table.
type sessionAffinityFactor struct{}

func (sessionAffinityFactor) Name() string { return "session_affinity" }

func (sessionAffinityFactor) Bonus(in *Inputs) float64 {
	if in.Session.Optimal(in.Candidate.Symbol) {
		return in.Session.QualityBonus
	}
	return 0
}

// volumeFactor adds +5 when recent average tick volume clears the floor.
type volumeFactor struct{}

func (volumeFactor) Name() string { return "volume_confirmation" }

func (volumeFactor) Bonus(in *Inputs) float64 {
	if len(in.RecentTicks) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range in.RecentTicks {
		sum += t.Volume
	}
	if sum/float64(len(in.RecentTicks)) > volumeFloor {
		return 5
	}
	return 0
}

// spreadFactor adds +3 when the current spread is below the ceiling.
type spreadFactor struct{}

func (spreadFactor) Name() string { return "spread_quality" }

func (spreadFactor) Bonus(in *Inputs) float64 {
	if len(in.RecentTicks) == 0 {
		return 0
	}
	if in.RecentTicks[len(in.RecentTicks)-1].Spread < spreadCeiling {
		return 3
	}
	return 0
}

// alignmentFactor adds +15 when both M1 and M5 trends match the candidate
// direction, +8 when exactly one does.
type alignmentFactor struct{}

func (alignmentFactor) Name() string { return "tf_alignment" }

func (alignmentFactor) Bonus(in *Inputs) float64 {
	switch TrendAlignment(in) {
	case 2:
		return 15
	case 1:
		return 8
	default:
		return 0
	}
}

// TrendAlignment counts how many of M1/M5 trend directions agree with the
// candidate direction.
func TrendAlignment(in *Inputs) int {
	want := 1
	if in.Candidate.Direction == models.DirectionSell {
		want = -1
	}
	n := 0
	if market.TrendDirection(in.M1, trendLookback) == want {
		n++
	}
	if market.TrendDirection(in.M5, trendLookback) == want {
		n++
	}
	return n
}

// volatilityFactor adds +5 when the 10-period ATR sits inside the optimal
// band relative to price. Too quiet means no follow-through, too wild means
// stop-outs.
type volatilityFactor struct{}

func (volatilityFactor) Name() string { return "volatility_fitness" }

func (volatilityFactor) Bonus(in *Inputs) float64 {
	atr := market.ATR(in.M5, atrPeriod)
	price := in.Candidate.EntryPrice
	if atr == 0 || price == 0 {
		return 0
	}
	frac := atr / price
	if frac >= atrOptimalMinFrac && frac <= atrOptimalMaxFrac {
		return 5
	}
	return 0
}

// DefaultFactors is the standard confluence factor set, in evaluation order.
func DefaultFactors() []Factor {
	return []Factor{
		sessionAffinityFactor{},
		volumeFactor{},
		spreadFactor{},
		alignmentFactor{},
		volatilityFactor{},
	}
}
