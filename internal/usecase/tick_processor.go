package usecase

import (
	"context"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/internal/market"
)

// TickProcessor feeds validated ticks into the market aggregator.
type TickProcessor struct {
	agg     *market.Aggregator
	metrics domrepo.Metrics
}

func NewTickProcessor(agg *market.Aggregator, metrics domrepo.Metrics) *TickProcessor {
	return &TickProcessor{agg: agg, metrics: metrics}
}

func (p *TickProcessor) Process(ctx context.Context, t *models.Tick) error {
	p.agg.Ingest(t)
	p.metrics.RecordLastPrice(t.Symbol, t.Mid())
	return nil
}
