package usecase

import (
	"context"

	"SignalForge/internal/domain/models"
	drepo "SignalForge/internal/domain/repository"
	mid "SignalForge/internal/middleware"
)

// TickCollector reads ticks from the WebSocket bridge and pushes them through
// the ingest pipeline. Used when ingest.transport is "ws".
type TickCollector struct {
	stream  drepo.TickStream
	metrics drepo.Metrics
	pipe    *mid.IngestPipeline
}

func NewTickCollector(stream drepo.TickStream, metrics drepo.Metrics, pipe *mid.IngestPipeline) *TickCollector {
	return &TickCollector{stream: stream, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the bridge stream is connected.
func (c *TickCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *TickCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	c.pipe.Start(ctx)
	tickCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, tickCh, errCh)
	return nil
}

func (c *TickCollector) consume(ctx context.Context, tickCh <-chan *models.Tick, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				_ = c.stream.Reconnect(ctx)
			}
		case t := <-tickCh:
			if t == nil {
				continue
			}
			_ = c.pipe.Process(ctx, t)
		}
	}
}

// Shutdown stops the pipeline and closes the stream.
func (c *TickCollector) Shutdown(ctx context.Context) error {
	c.pipe.Stop()
	return c.stream.Close()
}
