package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"SignalForge/internal/confluence"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/internal/market"
	"SignalForge/internal/publisher"
	"SignalForge/internal/threshold"
	xlogger "SignalForge/pkg/logger"
)

// StatusHandler exposes the read-only operational surface of the pipeline.
type StatusHandler struct {
	logger  *xlogger.Logger
	agg     *market.Aggregator
	state   *threshold.State
	pub     *publisher.Publisher
	outcome domrepo.OutcomeLog
}

func NewStatusHandler(
	lgr *xlogger.Logger,
	agg *market.Aggregator,
	state *threshold.State,
	pub *publisher.Publisher,
	outcome domrepo.OutcomeLog,
) *StatusHandler {
	return &StatusHandler{logger: lgr, agg: agg, state: state, pub: pub, outcome: outcome}
}

func (h *StatusHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api/v1")
	g.GET("/status", h.Status)
	g.GET("/threshold", h.Threshold)
}

func (h *StatusHandler) Health(c echo.Context) error {
	if err := h.outcome.Health(c.Request().Context()); err != nil {
		h.logger.Warn("outcome log health check failed", xlogger.Error(err))
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"error":  err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type symbolStatus struct {
	Symbol     string    `json:"symbol"`
	LastPrice  float64   `json:"last_price"`
	LastTickAt time.Time `json:"last_tick_at"`
}

func (h *StatusHandler) Status(c echo.Context) error {
	now := time.Now()
	session := confluence.CurrentSession(now)
	daily, sess := h.pub.Counters()

	symbols := make([]symbolStatus, 0)
	for _, sym := range h.agg.Symbols() {
		t, ok := h.agg.LastTick(sym)
		if !ok {
			symbols = append(symbols, symbolStatus{Symbol: sym})
			continue
		}
		symbols = append(symbols, symbolStatus{
			Symbol:     sym,
			LastPrice:  t.Mid(),
			LastTickAt: t.Timestamp,
		})
	}

	recent, err := h.outcome.Recent(c.Request().Context(), 10)
	if err != nil {
		h.logger.Warn("recent outcomes unavailable", xlogger.Error(err))
		recent = nil
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"session":        session.Name,
		"scan_interval":  session.ScanInterval.String(),
		"daily_signals":  daily,
		"session_count":  sess,
		"symbols":        symbols,
		"recent_signals": recent,
		"threshold":      h.state.Snapshot(),
		"server_time":    now.UTC(),
	})
}

func (h *StatusHandler) Threshold(c echo.Context) error {
	return c.JSON(http.StatusOK, h.state.Snapshot())
}
