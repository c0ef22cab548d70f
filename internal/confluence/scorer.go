package confluence

import (
	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/pkg/logger"
)

// ScoreCeiling caps the final score regardless of cumulative bonuses. This is
// a deliberate anti-overconfidence invariant.
const ScoreCeiling = 88.0

// MarketView provides the buffered data scoring factors read.
type MarketView interface {
	Snapshot(symbol string, tf domrepo.Timeframe, n int) []models.Bar
	RecentTicks(symbol string, n int) []models.Tick
}

// Scorer adjusts a candidate's base confidence with bounded, non-negative
// confluence bonuses.
type Scorer struct {
	view    MarketView
	factors []Factor
	logger  *logger.Logger
}

// NewScorer builds a scorer over the given market view with the default
// factor set.
func NewScorer(view MarketView, lgr *logger.Logger) *Scorer {
	return &Scorer{view: view, factors: DefaultFactors(), logger: lgr}
}

// NewScorerWithFactors allows swapping individual factors.
func NewScorerWithFactors(view MarketView, factors []Factor, lgr *logger.Logger) *Scorer {
	return &Scorer{view: view, factors: factors, logger: lgr}
}

// Score starts from the candidate's base confidence, adds every factor bonus
// and caps the result at ScoreCeiling. The final score is monotonic in its
// contributing factors and never below the base confidence.
func (s *Scorer) Score(c *models.CandidateSignal) models.ScoredSignal {
	sess := CurrentSession(c.DetectedAt)
	in := &Inputs{
		Candidate:   c,
		Session:     sess,
		RecentTicks: s.view.RecentTicks(c.Symbol, 10),
		M1:          s.view.Snapshot(c.Symbol, domrepo.TFM1, 20),
		M5:          s.view.Snapshot(c.Symbol, domrepo.TFM5, 20),
	}

	score := c.BaseConfidence
	for _, f := range s.factors {
		b := f.Bonus(in)
		if b < 0 {
			b = 0
		}
		score += b
	}
	if score > ScoreCeiling {
		score = ScoreCeiling
	}

	out := models.ScoredSignal{
		CandidateSignal: *c,
		FinalScore:      score,
		TFAlignment:     TrendAlignment(in),
		Session:         sess.Name,
	}
	s.logger.Debug("candidate scored",
		logger.String("symbol", c.Symbol),
		logger.String("pattern", c.Pattern),
		logger.String("session", sess.Name),
		logger.Any("final_score", score))
	return out
}
