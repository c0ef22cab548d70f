package usecase

import (
	"context"
	"encoding/json"
	"time"

	domrepo "SignalForge/internal/domain/repository"
	mid "SignalForge/internal/middleware"
	pkgkafka "SignalForge/pkg/kafka"

	"SignalForge/internal/domain/models"
)

// KafkaTicksHandler consumes tick messages and forwards them through the
// ingest pipeline. Producers upstream are not uniform, so three payload
// shapes are accepted; anything else is dropped without failing the message.
type KafkaTicksHandler struct {
	topic   string
	pipe    *mid.IngestPipeline
	metrics domrepo.Metrics
}

func NewKafkaTicksHandler(topic string, pipe *mid.IngestPipeline, metrics domrepo.Metrics) *KafkaTicksHandler {
	return &KafkaTicksHandler{topic: topic, pipe: pipe, metrics: metrics}
}

func (h *KafkaTicksHandler) Topic() string { return h.topic }

func (h *KafkaTicksHandler) Handle(ctx context.Context, b []byte) error {
	ticks, ok := parseTicks(b)
	if !ok {
		// unknown shape: drop, do not poison the partition
		h.metrics.RecordError("consumer_unknown_shape")
		return nil
	}
	for _, t := range ticks {
		h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(t.Timestamp).Seconds())
		_ = h.pipe.Process(ctx, t)
	}
	return nil
}

// flatTick is the canonical payload: {"symbol","bid","ask","volume","t"}.
type flatTick struct {
	Symbol string  `json:"symbol"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
	Volume float64 `json:"volume"`
	T      int64   `json:"t"` // ms or s epoch
}

// envelope wraps a batch: {"type":"tick","data":[{...}]}.
type envelope struct {
	Type string     `json:"type"`
	Data []flatTick `json:"data"`
}

func (f flatTick) valid() bool {
	return f.Symbol != "" && f.Bid > 0 && f.Ask >= f.Bid && f.T > 0
}

func (f flatTick) toModel() *models.Tick {
	ts := f.T
	if ts > 1e11 { // ms
		return &models.Tick{
			Symbol:    f.Symbol,
			Bid:       f.Bid,
			Ask:       f.Ask,
			Spread:    f.Ask - f.Bid,
			Volume:    f.Volume,
			Timestamp: time.UnixMilli(ts).UTC(),
		}
	}
	return &models.Tick{
		Symbol:    f.Symbol,
		Bid:       f.Bid,
		Ask:       f.Ask,
		Spread:    f.Ask - f.Bid,
		Volume:    f.Volume,
		Timestamp: time.Unix(ts, 0).UTC(),
	}
}

// parseTicks tries the known payload shapes in order: envelope batch, flat
// single tick, then symbol-keyed map {"EURUSD":{"bid":...}}.
func parseTicks(b []byte) ([]*models.Tick, bool) {
	var env envelope
	if err := json.Unmarshal(b, &env); err == nil && env.Type == "tick" && len(env.Data) > 0 {
		out := make([]*models.Tick, 0, len(env.Data))
		for _, f := range env.Data {
			if f.valid() {
				out = append(out, f.toModel())
			}
		}
		return out, len(out) > 0
	}

	var flat flatTick
	if err := json.Unmarshal(b, &flat); err == nil && flat.valid() {
		return []*models.Tick{flat.toModel()}, true
	}

	var keyed map[string]flatTick
	if err := json.Unmarshal(b, &keyed); err == nil && len(keyed) > 0 {
		out := make([]*models.Tick, 0, len(keyed))
		for sym, f := range keyed {
			if f.Symbol == "" {
				f.Symbol = sym
			}
			if f.valid() {
				out = append(out, f.toModel())
			}
		}
		if len(out) > 0 {
			return out, true
		}
	}

	return nil, false
}

var _ pkgkafka.MessageHandler = (*KafkaTicksHandler)(nil)
