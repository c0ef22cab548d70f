package usecase

import (
	"context"
	"time"

	"SignalForge/internal/confluence"
	"SignalForge/internal/domain/models"
	"SignalForge/pkg/logger"

	domrepo "SignalForge/internal/domain/repository"
)

// SymbolLister enumerates the tracked instrument set.
type SymbolLister interface {
	Symbols() []string
}

// PatternScanner yields at most one candidate per symbol per pass.
type PatternScanner interface {
	Scan(symbol string, now time.Time) *models.CandidateSignal
}

// SignalScorer applies the confluence model to a candidate.
type SignalScorer interface {
	Score(c *models.CandidateSignal) models.ScoredSignal
}

// ShieldValidator cross-checks a scored signal against price consensus.
type ShieldValidator interface {
	Validate(ctx context.Context, s models.ScoredSignal) (models.ScoredSignal, bool, string)
}

// SignalPublisher gates and emits approved signals.
type SignalPublisher interface {
	Publish(ctx context.Context, s models.ScoredSignal) (bool, string, error)
}

// ScanLoop drives the detection pipeline: for every tracked symbol it runs
// pattern detection, confluence scoring, consensus validation, then hands
// approved signals to the publisher. One pass per invocation; cadence follows
// the active trading session.
type ScanLoop struct {
	symbols SymbolLister
	engine  PatternScanner
	scorer  SignalScorer
	shield  ShieldValidator
	pub     SignalPublisher
	metrics domrepo.Metrics
	logger  *logger.Logger
}

func NewScanLoop(
	symbols SymbolLister,
	engine PatternScanner,
	scorer SignalScorer,
	shield ShieldValidator,
	pub SignalPublisher,
	metrics domrepo.Metrics,
	lgr *logger.Logger,
) *ScanLoop {
	return &ScanLoop{
		symbols: symbols,
		engine:  engine,
		scorer:  scorer,
		shield:  shield,
		pub:     pub,
		metrics: metrics,
		logger:  lgr,
	}
}

// Interval returns the scan cadence for the session active at now.
func (s *ScanLoop) Interval(now time.Time) time.Duration {
	return confluence.CurrentSession(now).ScanInterval
}

// Run executes one scan pass over all tracked symbols.
func (s *ScanLoop) Run(ctx context.Context) {
	start := time.Now()
	for _, symbol := range s.symbols.Symbols() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		s.scanSymbol(ctx, symbol, start)
	}
	s.metrics.RecordLatency("scan_pass", time.Since(start).Seconds())
}

func (s *ScanLoop) scanSymbol(ctx context.Context, symbol string, now time.Time) {
	candidate := s.engine.Scan(symbol, now)
	if candidate == nil {
		return
	}
	// every candidate counts as generated, whether it ends up blocked,
	// suppressed or published
	s.metrics.RecordSignal("generated", symbol)

	scored := s.scorer.Score(candidate)

	enhanced, ok, reason := s.shield.Validate(ctx, scored)
	if !ok {
		s.metrics.RecordSignal("blocked", symbol)
		s.logger.Debug("signal rejected by consensus",
			logger.String("symbol", symbol),
			logger.String("pattern", scored.Pattern),
			logger.String("reason", reason))
		return
	}

	published, blockReason, err := s.pub.Publish(ctx, enhanced)
	if err != nil {
		s.metrics.RecordError("scan_publish")
		s.logger.Error("publish failed",
			logger.String("symbol", symbol),
			logger.Error(err))
		return
	}
	if !published {
		s.logger.Debug("signal suppressed",
			logger.String("symbol", symbol),
			logger.String("reason", blockReason))
	}
}
