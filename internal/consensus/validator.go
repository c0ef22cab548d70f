package consensus

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/internal/service/cache"
	"SignalForge/pkg/logger"
)

// Rejection reasons surfaced on blocked candidates.
const (
	ReasonNoConsensus     = "no_consensus"
	ReasonPriceDeviation  = "price_deviation"
	ReasonLowConfidence   = "low_confidence"
	ReasonTooManyOutliers = "too_many_outliers"
	ReasonStaleConsensus  = "stale_consensus"
)

// EnhancedCeiling caps the shield-boosted score.
const EnhancedCeiling = 90.0

// Config calibrates the validator. The stated defaults are a starting
// calibration, not a guaranteed-correct statistical model.
type Config struct {
	MinSources    int           // minimum responding sources for a valid consensus
	MaxDeviation  float64       // max |entry-median|/median
	MinConfidence float64       // min fraction of sources within 2 stddev, 0..100
	MaxOutliers   int           // max sources beyond 2 stddev
	MaxAge        time.Duration // freshness ceiling for a consensus snapshot
	CacheTTL      time.Duration // per-symbol consensus cache TTL
	QueryTimeout  time.Duration // overall fan-out timeout
}

// DefaultConfig returns the standard calibration.
func DefaultConfig() Config {
	return Config{
		MinSources:    3,
		MaxDeviation:  0.005,
		MinConfidence: 75,
		MaxOutliers:   1,
		MaxAge:        60 * time.Second,
		CacheTTL:      15 * time.Second,
		QueryTimeout:  3 * time.Second,
	}
}

// Validator is the adversarial-input defense: it cross-checks a candidate's
// entry price against a statistical consensus of independent sources and
// fails closed whenever evidence is insufficient.
type Validator struct {
	cfg     Config
	sources []domrepo.QuoteSource
	cache   *cache.TTL[models.ConsensusData]
	metrics domrepo.Metrics
	logger  *logger.Logger
}

func NewValidator(cfg Config, sources []domrepo.QuoteSource, metrics domrepo.Metrics, lgr *logger.Logger) *Validator {
	return &Validator{
		cfg:     cfg,
		sources: sources,
		cache:   cache.NewTTL[models.ConsensusData](),
		metrics: metrics,
		logger:  lgr,
	}
}

// Validate cross-checks a scored signal. It returns the (possibly boosted)
// signal, whether it was approved, and a rejection reason when it was not.
func (v *Validator) Validate(ctx context.Context, s models.ScoredSignal) (models.ScoredSignal, bool, string) {
	cd, ok := v.Consensus(ctx, s.Symbol)
	if !ok {
		v.metrics.RecordError("consensus_unavailable")
		return s, false, ReasonNoConsensus
	}

	if cd.MedianPrice <= 0 {
		return s, false, ReasonNoConsensus
	}
	if math.Abs(s.EntryPrice-cd.MedianPrice)/cd.MedianPrice > v.cfg.MaxDeviation {
		return s, false, ReasonPriceDeviation
	}
	if cd.ConfidencePct < v.cfg.MinConfidence {
		return s, false, ReasonLowConfidence
	}
	if cd.OutlierCount > v.cfg.MaxOutliers {
		return s, false, ReasonTooManyOutliers
	}
	if time.Since(cd.ComputedAt) > v.cfg.MaxAge {
		return s, false, ReasonStaleConsensus
	}

	s.FinalScore += confidenceBoost(cd.ConfidencePct) + participationBoost(cd.BrokerCount)
	if s.FinalScore > EnhancedCeiling {
		s.FinalScore = EnhancedCeiling
	}
	s.ShieldEnhanced = true
	return s, true, ""
}

// confidenceBoost pays up to +8 for very high consensus confidence.
func confidenceBoost(confidencePct float64) float64 {
	switch {
	case confidencePct >= 95:
		return 8
	case confidencePct >= 90:
		return 6
	case confidencePct >= 85:
		return 4
	case confidencePct >= 80:
		return 2
	default:
		return 0
	}
}

// participationBoost pays up to +3 for broad source participation.
func participationBoost(brokers int) float64 {
	switch {
	case brokers >= 8:
		return 3
	case brokers >= 6:
		return 2
	case brokers >= 4:
		return 1
	default:
		return 0
	}
}

// Consensus returns the cached or freshly computed consensus for a symbol.
// ok is false when fewer than MinSources sources responded.
func (v *Validator) Consensus(ctx context.Context, symbol string) (models.ConsensusData, bool) {
	if cd, hit := v.cache.Get(symbol); hit {
		return cd, true
	}

	mids := v.queryAll(ctx, symbol)
	if len(mids) < v.cfg.MinSources {
		v.logger.Warn("consensus below source floor",
			logger.String("symbol", symbol),
			logger.Int("responded", len(mids)),
			logger.Int("required", v.cfg.MinSources))
		return models.ConsensusData{}, false
	}

	cd := compute(symbol, mids)
	v.cache.Set(symbol, cd, v.cfg.CacheTTL)
	return cd, true
}

// queryAll fans out to every configured source in parallel with an overall
// timeout. A slow source does not stall the others; partial results are
// acceptable. On shutdown in-flight queries are abandoned, not awaited.
func (v *Validator) queryAll(ctx context.Context, symbol string) []float64 {
	ctx, cancel := context.WithTimeout(ctx, v.cfg.QueryTimeout)
	defer cancel()

	start := time.Now()
	type result struct {
		mid float64
		ok  bool
	}
	ch := make(chan result, len(v.sources))
	var wg sync.WaitGroup
	for _, src := range v.sources {
		wg.Add(1)
		go func(src domrepo.QuoteSource) {
			defer wg.Done()
			bid, ask, err := src.Quote(ctx, symbol)
			if err != nil || bid <= 0 || ask < bid {
				v.metrics.RecordError("quote_source_" + src.Name())
				ch <- result{}
				return
			}
			ch <- result{mid: (bid + ask) / 2, ok: true}
		}(src)
	}
	go func() { wg.Wait(); close(ch) }()

	var mids []float64
	for r := range ch {
		if r.ok {
			mids = append(mids, r.mid)
		}
	}
	v.metrics.RecordLatency("consensus_query", time.Since(start).Seconds())
	return mids
}

// compute derives median, 2-sigma confidence and outlier count from raw mids.
// With a degenerate spread (stddev 0) every source is in band.
func compute(symbol string, mids []float64) models.ConsensusData {
	sorted := make([]float64, len(mids))
	copy(sorted, mids)
	sort.Float64s(sorted)

	var median float64
	n := len(sorted)
	if n%2 == 1 {
		median = sorted[n/2]
	} else {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	mean := 0.0
	for _, m := range mids {
		mean += m
	}
	mean /= float64(n)
	variance := 0.0
	for _, m := range mids {
		variance += (m - mean) * (m - mean)
	}
	sigma := math.Sqrt(variance / float64(n))

	inBand := n
	outliers := 0
	if sigma > 0 {
		inBand = 0
		for _, m := range mids {
			if math.Abs(m-median) <= 2*sigma {
				inBand++
			} else {
				outliers++
			}
		}
	}

	return models.ConsensusData{
		Symbol:        symbol,
		MedianPrice:   median,
		ConfidencePct: float64(inBand) / float64(n) * 100,
		BrokerCount:   n,
		OutlierCount:  outliers,
		ComputedAt:    time.Now(),
	}
}
