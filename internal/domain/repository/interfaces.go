package repository

import (
	"context"
	"time"

	"SignalForge/internal/domain/models"
)

// TickStream is an inbound connection to the market-data bridge.
type TickStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Tick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// SignalSink publishes enhanced signals to downstream consumers.
type SignalSink interface {
	Publish(ctx context.Context, s *models.PublishedSignal) error
	Close() error
}

// QuoteSource is one independent price source used for consensus. Each source
// is independently fallible; callers must tolerate timeouts and malformed
// responses.
type QuoteSource interface {
	Name() string
	Quote(ctx context.Context, symbol string) (bid, ask float64, err error)
}

// OutcomeLog is an append-only, externally durable log of publish events.
// The core only appends and tail-reads; it is not the log's owner.
type OutcomeLog interface {
	Append(ctx context.Context, s *models.PublishedSignal) error
	LastPublishedAt(ctx context.Context) (time.Time, error)
	Recent(ctx context.Context, n int) ([]models.PublishedSignal, error)
	Health(ctx context.Context) error
	Close() error
}

// Metrics records lightweight performance counters for the pipeline.
type Metrics interface {
	RecordSignal(stage, symbol string) // stage: generated | approved | blocked
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordThreshold(value float64, tier int)
	RecordLatency(op string, seconds float64)
}
