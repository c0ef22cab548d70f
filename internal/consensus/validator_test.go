package consensus

import (
	"context"
	"fmt"
	"testing"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/pkg/logger"
)

type stubMetrics struct{}

func (stubMetrics) RecordSignal(stage, symbol string)            {}
func (stubMetrics) RecordError(kind string)                      {}
func (stubMetrics) RecordLastPrice(symbol string, price float64) {}
func (stubMetrics) RecordThreshold(value float64, tier int)      {}
func (stubMetrics) RecordLatency(op string, seconds float64)     {}

type fakeSource struct {
	name string
	bid  float64
	ask  float64
	err  error
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Quote(ctx context.Context, symbol string) (float64, float64, error) {
	if f.err != nil {
		return 0, 0, f.err
	}
	return f.bid, f.ask, nil
}

// sourcesAt builds one fake source per mid price with a negligible spread.
func sourcesAt(mids ...float64) []domrepo.QuoteSource {
	out := make([]domrepo.QuoteSource, 0, len(mids))
	for i, m := range mids {
		out = append(out, &fakeSource{name: fmt.Sprintf("src%d", i), bid: m, ask: m})
	}
	return out
}

func scored(entry, score float64) models.ScoredSignal {
	return models.ScoredSignal{
		CandidateSignal: models.CandidateSignal{
			Symbol:     "EURUSD",
			Pattern:    "LIQUIDITY_SWEEP_REVERSAL",
			Direction:  models.DirectionBuy,
			EntryPrice: entry,
			DetectedAt: time.Now(),
		},
		FinalScore: score,
	}
}

func newValidator(cfg Config, sources []domrepo.QuoteSource) *Validator {
	return NewValidator(cfg, sources, stubMetrics{}, logger.Nop())
}

func TestValidate_FailsClosedBelowSourceFloor(t *testing.T) {
	v := newValidator(DefaultConfig(), sourcesAt(1.1000, 1.1001))

	_, ok, reason := v.Validate(context.Background(), scored(1.1000, 85))
	if ok {
		t.Fatal("expected rejection with 2 of 3 required sources")
	}
	if reason != ReasonNoConsensus {
		t.Errorf("reason = %s, want %s", reason, ReasonNoConsensus)
	}
}

func TestValidate_FailsClosedWhenAllSourcesError(t *testing.T) {
	srcs := []domrepo.QuoteSource{
		&fakeSource{name: "a", err: fmt.Errorf("timeout")},
		&fakeSource{name: "b", err: fmt.Errorf("timeout")},
		&fakeSource{name: "c", err: fmt.Errorf("timeout")},
	}
	v := newValidator(DefaultConfig(), srcs)

	_, ok, reason := v.Validate(context.Background(), scored(1.1000, 85))
	if ok || reason != ReasonNoConsensus {
		t.Fatalf("expected no_consensus, got ok=%v reason=%s", ok, reason)
	}
}

func TestValidate_SingleOutlierTolerated(t *testing.T) {
	// 1.0950 sits beyond two sigma of the others: confidence 75%, one outlier
	v := newValidator(DefaultConfig(), sourcesAt(1.1000, 1.1001, 1.0950, 1.1002))

	out, ok, reason := v.Validate(context.Background(), scored(1.1000, 85))
	if !ok {
		t.Fatalf("expected approval, got reason=%s", reason)
	}
	if !out.ShieldEnhanced {
		t.Error("approved signal must be flagged shield-enhanced")
	}
}

func TestValidate_PriceDeviationRejected(t *testing.T) {
	// median ~1.10005; an entry 0.7% away exceeds the 0.5% deviation cap
	v := newValidator(DefaultConfig(), sourcesAt(1.1000, 1.1001, 1.0950, 1.1002))

	_, ok, reason := v.Validate(context.Background(), scored(1.1080, 85))
	if ok {
		t.Fatal("expected rejection on price deviation")
	}
	if reason != ReasonPriceDeviation {
		t.Errorf("reason = %s, want %s", reason, ReasonPriceDeviation)
	}
}

func TestValidate_TooManyOutliersRejected(t *testing.T) {
	// two sources far above the cluster: both beyond two sigma
	v := newValidator(DefaultConfig(), sourcesAt(1.0, 1.0, 1.0, 1.0, 1.0, 1.0, 3.0, 3.0))

	_, ok, reason := v.Validate(context.Background(), scored(1.0, 85))
	if ok {
		t.Fatal("expected rejection on outlier count")
	}
	if reason != ReasonTooManyOutliers {
		t.Errorf("reason = %s, want %s", reason, ReasonTooManyOutliers)
	}
}

func TestValidate_DegenerateSpreadAllInBand(t *testing.T) {
	// identical mids: sigma is zero, every source counts as in band
	v := newValidator(DefaultConfig(), sourcesAt(1.1, 1.1, 1.1))

	out, ok, reason := v.Validate(context.Background(), scored(1.1, 80))
	if !ok {
		t.Fatalf("expected approval on degenerate spread, got %s", reason)
	}
	if out.FinalScore <= 80 {
		t.Errorf("expected confidence boost, score = %.1f", out.FinalScore)
	}
}

func TestValidate_BoostCappedAtEnhancedCeiling(t *testing.T) {
	// 8 agreeing sources: +8 confidence boost, +3 participation boost
	v := newValidator(DefaultConfig(), sourcesAt(1.1, 1.1, 1.1, 1.1, 1.1, 1.1, 1.1, 1.1))

	out, ok, _ := v.Validate(context.Background(), scored(1.1, 88))
	if !ok {
		t.Fatal("expected approval")
	}
	if out.FinalScore != EnhancedCeiling {
		t.Fatalf("score = %.1f, want capped %.1f", out.FinalScore, EnhancedCeiling)
	}
}

func TestConsensus_CachedWithinTTL(t *testing.T) {
	src := &fakeSource{name: "a", bid: 1.1, ask: 1.1}
	v := newValidator(DefaultConfig(), []domrepo.QuoteSource{src, src, src})

	first, ok := v.Consensus(context.Background(), "EURUSD")
	if !ok {
		t.Fatal("expected consensus")
	}

	// sources move, but the cached snapshot must be served within the TTL
	src.bid, src.ask = 2.0, 2.0
	second, ok := v.Consensus(context.Background(), "EURUSD")
	if !ok {
		t.Fatal("expected cached consensus")
	}
	if second.MedianPrice != first.MedianPrice {
		t.Errorf("cache miss: %.4f != %.4f", second.MedianPrice, first.MedianPrice)
	}
}

func TestCompute_ScenarioFourBrokers(t *testing.T) {
	cd := compute("EURUSD", []float64{1.1000, 1.1001, 1.0950, 1.1002})

	if cd.MedianPrice != (1.1000+1.1001)/2 {
		t.Errorf("median = %.5f", cd.MedianPrice)
	}
	if cd.ConfidencePct != 75 {
		t.Errorf("confidence = %.1f, want 75", cd.ConfidencePct)
	}
	if cd.OutlierCount != 1 {
		t.Errorf("outliers = %d, want 1", cd.OutlierCount)
	}
	if cd.BrokerCount != 4 {
		t.Errorf("brokers = %d, want 4", cd.BrokerCount)
	}
}
