package pattern

import (
	"testing"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/pkg/logger"
)

func flatBars(n int, close float64) []models.Bar {
	bars := make([]models.Bar, n)
	for i := range bars {
		bars[i] = models.Bar{Open: close, High: close, Low: close, Close: close, Volume: 1}
	}
	return bars
}

// sweepBars builds 20 M1 bars whose last five closes span ~4% and whose final
// bar carries a volume spike.
func sweepBars() []models.Bar {
	bars := flatBars(20, 1.00)
	bars[16].Close = 1.00
	bars[17].Close = 1.02
	bars[18].Close = 1.03
	bars[19].Close = 1.04
	bars[19].Volume = 4
	return bars
}

func TestLiquiditySweep_SpikeWithWideRangeFires(t *testing.T) {
	snap := &Snapshot{Symbol: "EURUSD", M1: sweepBars(), Price: 1.04, Now: time.Now()}

	c := (&LiquiditySweepDetector{}).Detect(snap)
	if c == nil {
		t.Fatal("expected sweep candidate")
	}
	if c.Pattern != PatternLiquiditySweep {
		t.Errorf("pattern = %s", c.Pattern)
	}
	if c.BaseConfidence != 75 {
		t.Errorf("base confidence = %.1f, want 75", c.BaseConfidence)
	}
	// price rose into the spike, so the sweep signals the reversal down
	if c.Direction != models.DirectionSell {
		t.Errorf("direction = %s, want SELL", c.Direction)
	}
}

func TestLiquiditySweep_NoVolumeSurgeAbstains(t *testing.T) {
	bars := sweepBars()
	bars[19].Volume = 1
	snap := &Snapshot{Symbol: "EURUSD", M1: bars, Price: 1.04, Now: time.Now()}

	if c := (&LiquiditySweepDetector{}).Detect(snap); c != nil {
		t.Fatalf("expected abstain without volume surge, got %+v", c)
	}
}

func TestLiquiditySweep_NarrowRangeAbstains(t *testing.T) {
	bars := flatBars(20, 1.00)
	bars[19].Volume = 4 // surge but flat closes
	snap := &Snapshot{Symbol: "EURUSD", M1: bars, Price: 1.00, Now: time.Now()}

	if c := (&LiquiditySweepDetector{}).Detect(snap); c != nil {
		t.Fatalf("expected abstain on narrow range, got %+v", c)
	}
}

func TestLiquiditySweep_InsufficientHistory(t *testing.T) {
	snap := &Snapshot{Symbol: "EURUSD", M1: flatBars(19, 1.0), Price: 1.0, Now: time.Now()}
	if c := (&LiquiditySweepDetector{}).Detect(snap); c != nil {
		t.Fatal("expected abstain with fewer than 20 bars")
	}
}

func orderBlockBars() []models.Bar {
	bars := flatBars(15, 1.05)
	bars[0].Close = 1.00
	bars[1].Close = 1.10
	return bars
}

func TestOrderBlock_BottomQuartileIsBuy(t *testing.T) {
	snap := &Snapshot{Symbol: "EURUSD", M5: orderBlockBars(), Price: 1.01, Now: time.Now()}

	c := (&OrderBlockDetector{}).Detect(snap)
	if c == nil {
		t.Fatal("expected order block candidate")
	}
	if c.Direction != models.DirectionBuy {
		t.Errorf("direction = %s, want BUY", c.Direction)
	}
	if c.BaseConfidence != 70 {
		t.Errorf("base confidence = %.1f, want 70", c.BaseConfidence)
	}
}

func TestOrderBlock_TopQuartileIsSell(t *testing.T) {
	snap := &Snapshot{Symbol: "EURUSD", M5: orderBlockBars(), Price: 1.09, Now: time.Now()}

	c := (&OrderBlockDetector{}).Detect(snap)
	if c == nil {
		t.Fatal("expected order block candidate")
	}
	if c.Direction != models.DirectionSell {
		t.Errorf("direction = %s, want SELL", c.Direction)
	}
}

func TestOrderBlock_MidRangeAbstains(t *testing.T) {
	snap := &Snapshot{Symbol: "EURUSD", M5: orderBlockBars(), Price: 1.05, Now: time.Now()}
	if c := (&OrderBlockDetector{}).Detect(snap); c != nil {
		t.Fatalf("expected abstain mid-range, got %+v", c)
	}
}

func TestFairValueGap_NearMidpointFires(t *testing.T) {
	bars := flatBars(8, 1.0000)
	bars[7].Close = 1.0010 // 0.1% gap vs previous close

	mid := (1.0000 + 1.0010) / 2
	snap := &Snapshot{Symbol: "EURUSD", M5: bars, Price: mid - 0.00002, Now: time.Now()}

	c := (&FairValueGapDetector{}).Detect(snap)
	if c == nil {
		t.Fatal("expected FVG candidate")
	}
	if c.Direction != models.DirectionBuy {
		t.Errorf("direction = %s, want BUY below midpoint", c.Direction)
	}
	if c.BaseConfidence != 65 {
		t.Errorf("base confidence = %.1f, want 65", c.BaseConfidence)
	}
}

func TestFairValueGap_FarFromMidpointAbstains(t *testing.T) {
	bars := flatBars(8, 1.0000)
	bars[7].Close = 1.0010
	snap := &Snapshot{Symbol: "EURUSD", M5: bars, Price: 1.0100, Now: time.Now()}

	if c := (&FairValueGapDetector{}).Detect(snap); c != nil {
		t.Fatalf("expected abstain far from midpoint, got %+v", c)
	}
}

type stubSource struct {
	m1   []models.Bar
	m5   []models.Bar
	tick models.Tick
	has  bool
}

func (s *stubSource) Snapshot(symbol string, tf domrepo.Timeframe, n int) []models.Bar {
	if tf == domrepo.TFM1 {
		return s.m1
	}
	return s.m5
}

func (s *stubSource) LastTick(symbol string) (models.Tick, bool) {
	return s.tick, s.has
}

func TestEngine_HighestConfidenceWins(t *testing.T) {
	// M1 triggers the sweep, M5 triggers the order block
	src := &stubSource{
		m1:   sweepBars(),
		m5:   orderBlockBars(),
		tick: models.Tick{Symbol: "EURUSD", Bid: 1.00995, Ask: 1.01005, Timestamp: time.Now()},
		has:  true,
	}
	e := NewEngine(src, logger.Nop())

	c := e.Scan("EURUSD", time.Now())
	if c == nil {
		t.Fatal("expected a candidate")
	}
	if c.Pattern != PatternLiquiditySweep {
		t.Errorf("expected sweep to outrank order block, got %s", c.Pattern)
	}
}

func TestEngine_NoTickNoScan(t *testing.T) {
	e := NewEngine(&stubSource{}, logger.Nop())
	if c := e.Scan("EURUSD", time.Now()); c != nil {
		t.Fatalf("expected nil without a last tick, got %+v", c)
	}
}

func TestEngine_AllAbstain(t *testing.T) {
	src := &stubSource{
		m1:   flatBars(20, 1.0),
		m5:   flatBars(20, 1.0),
		tick: models.Tick{Symbol: "EURUSD", Bid: 0.9999, Ask: 1.0001, Timestamp: time.Now()},
		has:  true,
	}
	e := NewEngine(src, logger.Nop())
	if c := e.Scan("EURUSD", time.Now()); c != nil {
		t.Fatalf("expected nil on flat market, got %+v", c)
	}
}
