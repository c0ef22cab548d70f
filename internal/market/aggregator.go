package market

import (
	"sync"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
)

const (
	// TickCapacity bounds the per-symbol tick ring buffer.
	TickCapacity = 200
	// BarHistoryCapacity bounds closed-bar history per symbol per timeframe.
	BarHistoryCapacity = 200
)

// Aggregator ingests raw ticks for a fixed set of symbols and derives
// multi-timeframe bars incrementally. Single-writer (the ingestion path),
// multi-reader (scan loop and scoring factors).
type Aggregator struct {
	mu      sync.RWMutex
	symbols map[string]*symbolState
	metrics domrepo.Metrics
}

type symbolState struct {
	ticks []models.Tick // ring buffer, oldest evicted on overflow
	head  int
	count int

	lastTickAt time.Time

	open    map[domrepo.Timeframe]*models.Bar
	history map[domrepo.Timeframe][]models.Bar
}

func newSymbolState() *symbolState {
	return &symbolState{
		ticks:   make([]models.Tick, TickCapacity),
		open:    make(map[domrepo.Timeframe]*models.Bar, len(domrepo.AllTimeframes)),
		history: make(map[domrepo.Timeframe][]models.Bar, len(domrepo.AllTimeframes)),
	}
}

// NewAggregator creates an aggregator tracking the given symbols. Ticks for
// untracked symbols are dropped.
func NewAggregator(symbols []string, metrics domrepo.Metrics) *Aggregator {
	a := &Aggregator{
		symbols: make(map[string]*symbolState, len(symbols)),
		metrics: metrics,
	}
	for _, s := range symbols {
		a.symbols[s] = newSymbolState()
	}
	return a
}

// Ingest appends a tick to the symbol's ring buffer and updates the
// in-progress bar for every timeframe. Re-ingesting a tick whose timestamp
// does not advance the symbol's clock is a no-op, which makes ingestion
// idempotent under duplicate or out-of-order delivery.
func (a *Aggregator) Ingest(t *models.Tick) {
	if t == nil || t.Symbol == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	st, ok := a.symbols[t.Symbol]
	if !ok {
		if a.metrics != nil {
			a.metrics.RecordError("ingest_untracked_symbol")
		}
		return
	}
	if !t.Timestamp.After(st.lastTickAt) {
		if a.metrics != nil {
			a.metrics.RecordError("ingest_stale_tick")
		}
		return
	}
	st.lastTickAt = t.Timestamp

	// ring append
	idx := (st.head + st.count) % TickCapacity
	st.ticks[idx] = *t
	if st.count < TickCapacity {
		st.count++
	} else {
		st.head = (st.head + 1) % TickCapacity
	}

	price := t.Mid()
	for _, tf := range domrepo.AllTimeframes {
		st.updateBar(t, tf, price)
	}
}

func (s *symbolState) updateBar(t *models.Tick, tf domrepo.Timeframe, price float64) {
	start := t.Timestamp.Truncate(tf.Duration())
	bar := s.open[tf]
	if bar != nil && start.After(bar.StartTime) {
		// timeframe boundary crossed: close the bar into bounded history
		h := append(s.history[tf], *bar)
		if len(h) > BarHistoryCapacity {
			h = h[len(h)-BarHistoryCapacity:]
		}
		s.history[tf] = h
		bar = nil
	}
	if bar == nil {
		s.open[tf] = &models.Bar{
			Symbol:    t.Symbol,
			Timeframe: string(tf),
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Volume:    t.Volume,
			StartTime: start,
		}
		return
	}
	if price > bar.High {
		bar.High = price
	}
	if price < bar.Low {
		bar.Low = price
	}
	bar.Close = price
	bar.Volume += t.Volume
}

// Snapshot returns copies of the most recent n closed bars for the symbol and
// timeframe, oldest first. Fewer than n bars is a "not enough data" condition
// for the caller, not an error.
func (a *Aggregator) Snapshot(symbol string, tf domrepo.Timeframe, n int) []models.Bar {
	a.mu.RLock()
	defer a.mu.RUnlock()

	st, ok := a.symbols[symbol]
	if !ok || n <= 0 {
		return nil
	}
	h := st.history[tf]
	if len(h) > n {
		h = h[len(h)-n:]
	}
	out := make([]models.Bar, len(h))
	copy(out, h)
	return out
}

// RecentTicks returns copies of the most recent n buffered ticks, oldest first.
func (a *Aggregator) RecentTicks(symbol string, n int) []models.Tick {
	a.mu.RLock()
	defer a.mu.RUnlock()

	st, ok := a.symbols[symbol]
	if !ok || n <= 0 || st.count == 0 {
		return nil
	}
	if n > st.count {
		n = st.count
	}
	out := make([]models.Tick, n)
	for i := 0; i < n; i++ {
		out[i] = st.ticks[(st.head+st.count-n+i)%TickCapacity]
	}
	return out
}

// LastTick returns the most recent tick for the symbol, if any.
func (a *Aggregator) LastTick(symbol string) (models.Tick, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	st, ok := a.symbols[symbol]
	if !ok || st.count == 0 {
		return models.Tick{}, false
	}
	return st.ticks[(st.head+st.count-1)%TickCapacity], true
}

// Symbols returns the tracked symbol set.
func (a *Aggregator) Symbols() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]string, 0, len(a.symbols))
	for s := range a.symbols {
		out = append(out, s)
	}
	return out
}
