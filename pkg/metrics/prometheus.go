package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	signals     *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	lastPrice   *prometheus.GaugeVec
	threshold   prometheus.Gauge
	tier        prometheus.Gauge
	latency     *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		signals: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalforge_signals_total",
				Help: "Signals by pipeline stage (generated/approved/blocked)",
			},
			[]string{"stage", "symbol"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalforge_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "signalforge_last_price",
				Help: "Last recorded mid price for a symbol",
			},
			[]string{"symbol"},
		),
		threshold: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "signalforge_confidence_threshold",
				Help: "Current adaptive minimum-confidence threshold",
			},
		),
		tier: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "signalforge_threshold_tier",
				Help: "Current adaptive threshold tier (0-4)",
			},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signalforge_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordSignal records a signal at a pipeline stage.
func (r *Recorder) RecordSignal(stage, symbol string) {
	r.signals.WithLabelValues(stage, symbol).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last mid price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordThreshold records the current adaptive threshold and tier.
func (r *Recorder) RecordThreshold(value float64, tier int) {
	r.threshold.Set(value)
	r.tier.Set(float64(tier))
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
