package threshold

import (
	"context"
	"fmt"
	"testing"
	"time"

	"SignalForge/internal/domain/models"
	"SignalForge/pkg/logger"
)

type stubMetrics struct {
	errors map[string]int
}

func newStubMetrics() *stubMetrics { return &stubMetrics{errors: make(map[string]int)} }

func (m *stubMetrics) RecordSignal(stage, symbol string)            {}
func (m *stubMetrics) RecordError(kind string)                      { m.errors[kind]++ }
func (m *stubMetrics) RecordLastPrice(symbol string, price float64) {}
func (m *stubMetrics) RecordThreshold(value float64, tier int)      {}
func (m *stubMetrics) RecordLatency(op string, seconds float64)     {}

type stubLog struct {
	last time.Time
	err  error
}

func (l *stubLog) Append(ctx context.Context, s *models.PublishedSignal) error { return nil }
func (l *stubLog) LastPublishedAt(ctx context.Context) (time.Time, error)      { return l.last, l.err }
func (l *stubLog) Recent(ctx context.Context, n int) ([]models.PublishedSignal, error) {
	return nil, nil
}
func (l *stubLog) Health(ctx context.Context) error { return nil }
func (l *stubLog) Close() error                     { return nil }

// slowLog blocks LastPublishedAt until released, signalling when the read is
// in flight.
type slowLog struct {
	stubLog
	entered chan struct{}
	release chan struct{}
}

func (l *slowLog) LastPublishedAt(ctx context.Context) (time.Time, error) {
	select {
	case l.entered <- struct{}{}:
	default:
	}
	<-l.release
	return l.last, nil
}

func newTestController(t0 time.Time) (*Controller, *State, *stubLog, *stubMetrics) {
	state := NewState(82, t0)
	log := &stubLog{last: t0}
	m := newStubMetrics()
	c := NewController(DefaultConfig(), state, log, m, logger.Nop())
	return c, state, log, m
}

func TestTick_IdleDecayWalk(t *testing.T) {
	t0 := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	c, state, _, _ := newTestController(t0)

	cases := []struct {
		idle      time.Duration
		threshold float64
		tier      int
		reason    string
	}{
		{10 * time.Minute, 82, 0, ReasonBaseline},
		{25 * time.Minute, 79.5, 1, ReasonIdleDecay},
		{40 * time.Minute, 77, 2, ReasonIdleDecay},
		{60 * time.Minute, 74.5, 3, ReasonIdleDecay},
	}
	for _, tc := range cases {
		c.Tick(t0.Add(tc.idle))
		st := state.Snapshot()
		if st.CurrentThreshold != tc.threshold {
			t.Errorf("idle %v: threshold = %.1f, want %.1f", tc.idle, st.CurrentThreshold, tc.threshold)
		}
		if st.TierLevel != tc.tier {
			t.Errorf("idle %v: tier = %d, want %d", tc.idle, st.TierLevel, tc.tier)
		}
		if st.ReasonCode != tc.reason {
			t.Errorf("idle %v: reason = %s, want %s", tc.idle, st.ReasonCode, tc.reason)
		}
	}
}

func TestTick_PressureOverrideAfterNinetyMinutes(t *testing.T) {
	t0 := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	c, state, _, m := newTestController(t0)

	c.Tick(t0.Add(95 * time.Minute))
	st := state.Snapshot()
	if st.CurrentThreshold != 82 {
		t.Errorf("override threshold = %.1f, want baseline 82", st.CurrentThreshold)
	}
	if st.TierLevel != 4 {
		t.Errorf("override tier = %d, want 4", st.TierLevel)
	}
	if st.ReasonCode != ReasonPressureOverride {
		t.Errorf("reason = %s, want %s", st.ReasonCode, ReasonPressureOverride)
	}
	if m.errors["threshold_pressure_override"] != 1 {
		t.Errorf("override signal count = %d, want 1", m.errors["threshold_pressure_override"])
	}

	// the override is announced once per drought, not per poll
	c.Tick(t0.Add(100 * time.Minute))
	if m.errors["threshold_pressure_override"] != 1 {
		t.Errorf("override re-announced: count = %d", m.errors["threshold_pressure_override"])
	}
}

func TestMarkPublished_ResetsToBaselineImmediately(t *testing.T) {
	t0 := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	c, state, _, _ := newTestController(t0)

	c.Tick(t0.Add(60 * time.Minute))
	if state.Snapshot().TierLevel != 3 {
		t.Fatalf("precondition: tier = %d, want 3", state.Snapshot().TierLevel)
	}

	at := t0.Add(61 * time.Minute)
	c.MarkPublished(at)
	st := state.Snapshot()
	if st.CurrentThreshold != 82 || st.TierLevel != 0 {
		t.Fatalf("after publish: threshold=%.1f tier=%d, want 82/0", st.CurrentThreshold, st.TierLevel)
	}
	if st.ReasonCode != ReasonPublishReset {
		t.Errorf("reason = %s, want %s", st.ReasonCode, ReasonPublishReset)
	}
	if !st.LastSignalAt.Equal(at) {
		t.Errorf("last signal at = %v, want %v", st.LastSignalAt, at)
	}
}

func TestTick_OutcomeLogPickedUpOnNextPoll(t *testing.T) {
	t0 := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	c, state, log, _ := newTestController(t0)

	c.Tick(t0.Add(40 * time.Minute))
	if state.Snapshot().TierLevel != 2 {
		t.Fatalf("precondition: tier = %d, want 2", state.Snapshot().TierLevel)
	}

	// another instance published: the log advances and the next poll resets
	log.last = t0.Add(39 * time.Minute)
	c.Tick(t0.Add(41 * time.Minute))
	st := state.Snapshot()
	if st.TierLevel != 0 {
		t.Errorf("tier = %d, want 0 after log catch-up", st.TierLevel)
	}
}

func TestMarkPublished_NotBlockedBySlowLogRead(t *testing.T) {
	t0 := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	state := NewState(82, t0)
	log := &slowLog{
		stubLog: stubLog{last: t0},
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	c := NewController(DefaultConfig(), state, log, newStubMetrics(), logger.Nop())

	tickDone := make(chan struct{})
	go func() {
		c.Tick(t0.Add(25 * time.Minute))
		close(tickDone)
	}()
	<-log.entered // log read is in flight

	done := make(chan struct{})
	go func() {
		c.MarkPublished(t0.Add(30 * time.Minute))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("MarkPublished blocked behind the outcome log read")
	}

	close(log.release)
	<-tickDone
}

func TestTick_UnreadableLogKeepsDecayClock(t *testing.T) {
	t0 := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	c, state, log, _ := newTestController(t0)

	log.err = fmt.Errorf("connection refused")
	c.Tick(t0.Add(25 * time.Minute))
	st := state.Snapshot()
	if st.TierLevel != 1 || st.CurrentThreshold != 79.5 {
		t.Errorf("with unreadable log: threshold=%.1f tier=%d, want 79.5/1",
			st.CurrentThreshold, st.TierLevel)
	}
}
