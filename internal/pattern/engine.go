package pattern

import (
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/pkg/logger"
)

// Snapshot is the read-only market view handed to detectors for one symbol.
type Snapshot struct {
	Symbol string
	M1     []models.Bar
	M5     []models.Bar
	Price  float64
	Now    time.Time
}

// Detector inspects one symbol's buffered data and returns at most one
// candidate. A detector abstains (returns nil) on insufficient history.
type Detector interface {
	Name() string
	Detect(snap *Snapshot) *models.CandidateSignal
}

// BarSource provides the bounded bar/tick views detectors run over.
type BarSource interface {
	Snapshot(symbol string, tf domrepo.Timeframe, n int) []models.Bar
	LastTick(symbol string) (models.Tick, bool)
}

// Engine runs the detector library over a symbol and returns the prioritized
// candidate. Detector declaration order breaks base-confidence ties.
type Engine struct {
	source    BarSource
	detectors []Detector
	logger    *logger.Logger
}

// NewEngine creates an engine with the standard detector library:
// liquidity sweep, order block, fair value gap.
func NewEngine(source BarSource, lgr *logger.Logger) *Engine {
	return &Engine{
		source: source,
		detectors: []Detector{
			&LiquiditySweepDetector{},
			&OrderBlockDetector{},
			&FairValueGapDetector{},
		},
		logger: lgr,
	}
}

// Scan runs every detector for the symbol and returns the candidate with the
// highest base confidence, or nil when all detectors abstain.
func (e *Engine) Scan(symbol string, now time.Time) *models.CandidateSignal {
	tick, ok := e.source.LastTick(symbol)
	if !ok {
		return nil
	}
	snap := &Snapshot{
		Symbol: symbol,
		M1:     e.source.Snapshot(symbol, domrepo.TFM1, 20),
		M5:     e.source.Snapshot(symbol, domrepo.TFM5, 20),
		Price:  tick.Mid(),
		Now:    now,
	}

	var best *models.CandidateSignal
	for _, d := range e.detectors {
		c := d.Detect(snap)
		if c == nil {
			continue
		}
		e.logger.Debug("detector fired",
			logger.String("symbol", symbol),
			logger.String("pattern", c.Pattern),
			logger.String("direction", string(c.Direction)))
		if best == nil || c.BaseConfidence > best.BaseConfidence {
			best = c
		}
	}
	return best
}
