package threshold

import (
	"context"
	"sync"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/pkg/logger"
)

// Reason codes carried on the shared state.
const (
	ReasonBaseline         = "baseline"
	ReasonIdleDecay        = "idle_decay"
	ReasonPublishReset     = "publish_reset"
	ReasonPressureOverride = "pressure_override"
)

// State is the shared threshold snapshot. It is an explicitly injected,
// lock-guarded object: mutated only by the Controller, read by the rest of
// the pipeline.
type State struct {
	mu sync.RWMutex
	st models.ThresholdState
}

// NewState initializes shared state at the baseline threshold.
func NewState(baseline float64, now time.Time) *State {
	return &State{st: models.ThresholdState{
		CurrentThreshold: baseline,
		TierLevel:        0,
		LastSignalAt:     now,
		ReasonCode:       ReasonBaseline,
	}}
}

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() models.ThresholdState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st
}

// Current returns the active minimum-confidence threshold.
func (s *State) Current() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.CurrentThreshold
}

func (s *State) set(st models.ThresholdState) {
	s.mu.Lock()
	s.st = st
	s.mu.Unlock()
}

// Config calibrates the controller.
type Config struct {
	Baseline     float64       // starting minimum-confidence threshold
	PollInterval time.Duration // outcome-log poll cadence
}

// DefaultConfig returns the standard calibration.
func DefaultConfig() Config {
	return Config{Baseline: 82, PollInterval: 30 * time.Second}
}

// tierSteps maps idle duration to a threshold reduction. Tier 4 (>90m) is
// handled separately: it forces the threshold back to baseline as a safety
// valve against indefinite erosion.
var tierSteps = []struct {
	maxIdle   time.Duration
	reduction float64
}{
	{20 * time.Minute, 0},
	{35 * time.Minute, 2.5},
	{50 * time.Minute, 5},
	{90 * time.Minute, 7.5},
}

const overrideTier = 4

// Controller self-tunes pipeline sensitivity from elapsed time since the last
// successful publish. It runs as its own periodic task and never blocks
// signal publishing; it only updates shared state.
type Controller struct {
	cfg     Config
	state   *State
	log     domrepo.OutcomeLog
	metrics domrepo.Metrics
	logger  *logger.Logger

	mu           sync.Mutex
	lastPublish  time.Time
	overrideUsed bool // pressure override already emitted for this drought
}

func NewController(cfg Config, state *State, outcome domrepo.OutcomeLog, metrics domrepo.Metrics, lgr *logger.Logger) *Controller {
	return &Controller{
		cfg:         cfg,
		state:       state,
		log:         outcome,
		metrics:     metrics,
		logger:      lgr,
		lastPublish: state.Snapshot().LastSignalAt,
	}
}

// Run polls the outcome log until the context is cancelled.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Tick(time.Now())
		}
	}
}

// Tick performs one controller cycle at the given wall-clock time. A
// transiently unreadable outcome log means no change this cycle.
func (c *Controller) Tick(now time.Time) {
	// the log read happens before the lock: MarkPublished sits on the publish
	// path and must never wait out a slow or unreachable outcome log
	readCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	last, err := c.log.LastPublishedAt(readCtx)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.logger.Debug("outcome log unreadable, keeping threshold", logger.Error(err))
	} else if last.After(c.lastPublish) {
		c.lastPublish = last
		c.overrideUsed = false
	}

	idle := now.Sub(c.lastPublish)
	c.apply(idle, now)
}

func (c *Controller) apply(idle time.Duration, now time.Time) {
	for tier, step := range tierSteps {
		if idle < step.maxIdle {
			c.update(models.ThresholdState{
				CurrentThreshold: c.cfg.Baseline - step.reduction,
				TierLevel:        tier,
				LastSignalAt:     c.lastPublish,
				ReasonCode:       tierReason(tier),
			})
			return
		}
	}

	// >90 minutes idle: force back to baseline, emit pressure override once
	if !c.overrideUsed {
		c.overrideUsed = true
		c.logger.Warn("pressure override: prolonged signal drought, resetting threshold",
			logger.Duration("idle", idle))
		c.metrics.RecordError("threshold_pressure_override")
	}
	c.update(models.ThresholdState{
		CurrentThreshold: c.cfg.Baseline,
		TierLevel:        overrideTier,
		LastSignalAt:     c.lastPublish,
		ReasonCode:       ReasonPressureOverride,
	})
	_ = now
}

func tierReason(tier int) string {
	if tier == 0 {
		return ReasonBaseline
	}
	return ReasonIdleDecay
}

func (c *Controller) update(st models.ThresholdState) {
	c.state.set(st)
	c.metrics.RecordThreshold(st.CurrentThreshold, st.TierLevel)
}

// MarkPublished resets the controller to tier 0 immediately after a
// successful publish, regardless of the current tier.
func (c *Controller) MarkPublished(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastPublish = at
	c.overrideUsed = false
	c.update(models.ThresholdState{
		CurrentThreshold: c.cfg.Baseline,
		TierLevel:        0,
		LastSignalAt:     at,
		ReasonCode:       ReasonPublishReset,
	})
}
