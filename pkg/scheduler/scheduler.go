package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"SignalForge/pkg/logger"
)

// Scheduler owns the periodic background tasks of the process. Tasks are
// context-cancellable so shutdown is deterministic instead of relying on
// process signals reaching ad-hoc sleep loops.
type Scheduler struct {
	logger *logger.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(lgr *logger.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{logger: lgr, ctx: ctx, cancel: cancel}
}

// Every runs fn on a fixed interval until the scheduler stops.
func (s *Scheduler) Every(name string, interval time.Duration, fn func(ctx context.Context)) {
	s.Dynamic(name, func(ctx context.Context) time.Duration {
		fn(ctx)
		return interval
	})
}

// Dynamic runs fn repeatedly; fn returns the delay before its next run, which
// lets tasks adjust their own cadence (the scan loop slows down off-session).
func (s *Scheduler) Dynamic(name string, fn func(ctx context.Context) time.Duration) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Debug("scheduler task started", logger.String("task", name))
		timer := time.NewTimer(0)
		defer timer.Stop()
		for {
			select {
			case <-s.ctx.Done():
				s.logger.Debug("scheduler task stopped", logger.String("task", name))
				return
			case <-timer.C:
				next := fn(s.ctx)
				if next <= 0 {
					next = time.Second
				}
				timer.Reset(next)
			}
		}
	}()
}

// Stop cancels all tasks and waits for them to exit, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}
