package publisher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/internal/market"
	"SignalForge/pkg/logger"
)

// Block reasons reported for suppressed signals.
const (
	BlockBelowThreshold = "below_threshold"
	BlockCooldown       = "cooldown"
	BlockDailyCap       = "daily_cap"
	BlockSessionCap     = "session_cap"
)

// TierSpec defines one published variant per approved pattern.
type TierSpec struct {
	Tier        models.Tier
	StopATRMult float64 // stop-loss distance as a multiple of ATR
	RiskReward  float64 // take-profit distance = stop distance * RiskReward
	Duration    time.Duration
}

// DefaultTiers: a shorter-duration lower-RR variant and a longer-duration
// higher-RR variant.
func DefaultTiers() []TierSpec {
	return []TierSpec{
		{Tier: models.TierRapid, StopATRMult: 1.5, RiskReward: 1.5, Duration: 35 * time.Minute},
		{Tier: models.TierPrecision, StopATRMult: 2.0, RiskReward: 2.0, Duration: 65 * time.Minute},
	}
}

// Config calibrates publish gating.
type Config struct {
	Cooldown   time.Duration // per-symbol publish cooldown
	DailyCap   int           // max published patterns per UTC day
	SessionCap int           // max published patterns per trading session
}

// DefaultConfig returns the standard gating calibration.
func DefaultConfig() Config {
	return Config{Cooldown: 5 * time.Minute, DailyCap: 30, SessionCap: 10}
}

// PublishListener is notified after every successful publish. The threshold
// controller implements it to reset its idle clock.
type PublishListener interface {
	MarkPublished(at time.Time)
}

// BarView provides the volatility input for stop/target sizing.
type BarView interface {
	Snapshot(symbol string, tf domrepo.Timeframe, n int) []models.Bar
}

// Publisher assembles tier variants for approved signals and emits them on
// the outbound channel, updating counters and the outcome log. Publishing is
// at-most-once per symbol per cooldown window.
type Publisher struct {
	cfg       Config
	tiers     []TierSpec
	sink      domrepo.SignalSink
	outcome   domrepo.OutcomeLog
	threshold interface{ Current() float64 }
	listener  PublishListener
	view      BarView
	metrics   domrepo.Metrics
	logger    *logger.Logger

	mu               sync.Mutex
	cooldowns        map[string]time.Time
	dailyCount       int
	sessionCount     int
	dailyCapLogged   bool
	sessionCapLogged bool

	cron *cron.Cron
}

func New(
	cfg Config,
	tiers []TierSpec,
	sink domrepo.SignalSink,
	outcome domrepo.OutcomeLog,
	thresholdState interface{ Current() float64 },
	listener PublishListener,
	view BarView,
	metrics domrepo.Metrics,
	lgr *logger.Logger,
) *Publisher {
	return &Publisher{
		cfg:       cfg,
		tiers:     tiers,
		sink:      sink,
		outcome:   outcome,
		threshold: thresholdState,
		listener:  listener,
		view:      view,
		metrics:   metrics,
		logger:    lgr,
		cooldowns: make(map[string]time.Time),
		cron:      cron.New(cron.WithLocation(time.UTC)),
	}
}

// StartResetSchedule arms the UTC counter resets: daily cap at midnight,
// session cap at each session boundary.
func (p *Publisher) StartResetSchedule() error {
	if _, err := p.cron.AddFunc("0 0 * * *", p.resetDaily); err != nil {
		return fmt.Errorf("schedule daily reset: %w", err)
	}
	// session boundaries (UTC): Asian 23, London 7, Overlap 12, New York 16, close 21
	if _, err := p.cron.AddFunc("0 7,12,16,21,23 * * *", p.resetSession); err != nil {
		return fmt.Errorf("schedule session reset: %w", err)
	}
	p.cron.Start()
	return nil
}

// StopResetSchedule stops the cron scheduler.
func (p *Publisher) StopResetSchedule() {
	if p.cron != nil {
		p.cron.Stop()
	}
}

func (p *Publisher) resetDaily() {
	p.mu.Lock()
	p.dailyCount = 0
	p.dailyCapLogged = false
	p.mu.Unlock()
	p.logger.Info("daily signal counter reset")
}

func (p *Publisher) resetSession() {
	p.mu.Lock()
	p.sessionCount = 0
	p.sessionCapLogged = false
	p.mu.Unlock()
	p.logger.Info("session signal counter reset")
}

// Publish gates the scored signal against the adaptive threshold, the
// per-symbol cooldown and the daily/session caps, then emits one variant per
// tier. It returns whether anything was published and a block reason when
// nothing was.
func (p *Publisher) Publish(ctx context.Context, s models.ScoredSignal) (bool, string, error) {
	now := time.Now()

	if reason := p.gate(s, now); reason != "" {
		p.metrics.RecordSignal("blocked", s.Symbol)
		return false, reason, nil
	}

	variants := p.buildVariants(s, now)
	sent := 0
	for _, v := range variants {
		if err := p.emit(ctx, v); err != nil {
			p.metrics.RecordError("publish_emit")
			if sent > 0 {
				p.logger.Error("partial publish, remaining variants dropped",
					logger.String("symbol", s.Symbol),
					logger.Int("sent", sent),
					logger.Error(err))
				return true, "", fmt.Errorf("emit %s/%s: %w", v.Symbol, v.Tier, err)
			}
			return false, "", fmt.Errorf("emit %s/%s: %w", v.Symbol, v.Tier, err)
		}
		sent++
		if sent == 1 {
			// the first variant on the wire is the publish: cooldown, caps
			// and the listener fire here, not after the full variant set
			p.markPublished(s.Symbol, now)
		}
		// outcome log is externally durable but best-effort from our side
		if err := p.outcome.Append(ctx, v); err != nil {
			p.metrics.RecordError("outcome_append")
			p.logger.Warn("outcome log append failed", logger.Error(err))
		}
		p.metrics.RecordSignal("approved", v.Symbol)
	}

	p.logger.Info("signal published",
		logger.String("symbol", s.Symbol),
		logger.String("pattern", s.Pattern),
		logger.String("direction", string(s.Direction)),
		logger.Any("final_score", s.FinalScore),
		logger.Bool("shield_enhanced", s.ShieldEnhanced),
		logger.Int("variants", len(variants)))
	return true, "", nil
}

// markPublished records a successful publish for the symbol: the cooldown
// window opens, the caps count one publish event and the threshold controller
// resets its idle clock.
func (p *Publisher) markPublished(symbol string, now time.Time) {
	p.mu.Lock()
	p.cooldowns[symbol] = now
	p.dailyCount++
	p.sessionCount++
	p.mu.Unlock()

	if p.listener != nil {
		p.listener.MarkPublished(now)
	}
}

// gate holds the mutex only for the duration of the checks, never across I/O.
// Cap hits are logged once per cap period; this is normal throttling, not an
// error.
func (p *Publisher) gate(s models.ScoredSignal, now time.Time) string {
	if s.FinalScore < p.threshold.Current() {
		return BlockBelowThreshold
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if last, ok := p.cooldowns[s.Symbol]; ok && now.Sub(last) < p.cfg.Cooldown {
		return BlockCooldown
	}
	if p.cfg.DailyCap > 0 && p.dailyCount >= p.cfg.DailyCap {
		if !p.dailyCapLogged {
			p.dailyCapLogged = true
			p.logger.Info("daily signal cap reached, publishing suppressed",
				logger.Int("cap", p.cfg.DailyCap))
		}
		return BlockDailyCap
	}
	if p.cfg.SessionCap > 0 && p.sessionCount >= p.cfg.SessionCap {
		if !p.sessionCapLogged {
			p.sessionCapLogged = true
			p.logger.Info("session signal cap reached, publishing suppressed",
				logger.Int("cap", p.cfg.SessionCap))
		}
		return BlockSessionCap
	}
	return ""
}

func (p *Publisher) buildVariants(s models.ScoredSignal, now time.Time) []*models.PublishedSignal {
	atr := market.ATR(p.view.Snapshot(s.Symbol, domrepo.TFM5, 20), 10)
	if atr <= 0 {
		// volatility unavailable on thin history; fall back to a fraction of price
		atr = s.EntryPrice * 0.0005
	}

	out := make([]*models.PublishedSignal, 0, len(p.tiers))
	for _, spec := range p.tiers {
		stopDist := atr * spec.StopATRMult
		tpDist := stopDist * spec.RiskReward
		sl, tp := s.EntryPrice-stopDist, s.EntryPrice+tpDist
		if s.Direction == models.DirectionSell {
			sl, tp = s.EntryPrice+stopDist, s.EntryPrice-tpDist
		}
		out = append(out, &models.PublishedSignal{
			ID:             uuid.NewString(),
			Symbol:         s.Symbol,
			Pattern:        s.Pattern,
			Direction:      s.Direction,
			Tier:           spec.Tier,
			EntryPrice:     s.EntryPrice,
			StopLoss:       sl,
			TakeProfit:     tp,
			RiskReward:     spec.RiskReward,
			Duration:       int64(spec.Duration.Seconds()),
			FinalScore:     s.FinalScore,
			Session:        s.Session,
			ShieldEnhanced: s.ShieldEnhanced,
			PublishedAt:    now,
		})
	}
	return out
}

// emit sends one variant with bounded retry/backoff. A sink that stays down
// past the retries surfaces as an error for the caller to escalate.
func (p *Publisher) emit(ctx context.Context, v *models.PublishedSignal) error {
	var err error
	backoff := 100 * time.Millisecond
	for attempt := 1; attempt <= 3; attempt++ {
		if err = p.sink.Publish(ctx, v); err == nil {
			return nil
		}
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// Counters returns current publish counters for the status surface.
func (p *Publisher) Counters() (daily, session int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dailyCount, p.sessionCount
}
