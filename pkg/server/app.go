package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"SignalForge/internal/handler/api"
	mid "SignalForge/internal/middleware"
	"SignalForge/internal/publisher"
	"SignalForge/internal/threshold"
	"SignalForge/internal/usecase"
	"SignalForge/pkg/config"
	xhttp "SignalForge/pkg/http"
	pkgkafka "SignalForge/pkg/kafka"
	applogger "SignalForge/pkg/logger"
	"SignalForge/pkg/scheduler"

	domrepo "SignalForge/internal/domain/repository"
)

// App encapsulates the entire application lifecycle: tick ingestion, the
// periodic scan and threshold tasks, the HTTP status surface, and graceful
// shutdown.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	sched      *scheduler.Scheduler
	pipe       *mid.IngestPipeline
	consumer   *pkgkafka.Consumer
	kh         *usecase.KafkaTicksHandler
	collector  *usecase.TickCollector
	scan       *usecase.ScanLoop
	ctrl       *threshold.Controller
	pub        *publisher.Publisher
	outcome    domrepo.OutcomeLog
	sink       domrepo.SignalSink
	status     *api.StatusHandler
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	lgr *applogger.Logger,
	sched *scheduler.Scheduler,
	pipe *mid.IngestPipeline,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaTicksHandler,
	collector *usecase.TickCollector,
	scan *usecase.ScanLoop,
	ctrl *threshold.Controller,
	pub *publisher.Publisher,
	outcome domrepo.OutcomeLog,
	sink domrepo.SignalSink,
	status *api.StatusHandler,
) *App {
	return &App{
		cfg:       cfg,
		logger:    lgr,
		sched:     sched,
		pipe:      pipe,
		consumer:  consumer,
		kh:        kh,
		collector: collector,
		scan:      scan,
		ctrl:      ctrl,
		pub:       pub,
		outcome:   outcome,
		sink:      sink,
		status:    status,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.status,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Ingestion: either the Kafka consumer or the WebSocket collector,
	// never both. The pipeline sits behind whichever transport is active.
	a.pipe.Start(ctx)
	switch {
	case a.consumer != nil:
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.logger.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.logger.Info("kafka tick ingestion started",
			applogger.String("topic", a.kh.Topic()),
			applogger.Strings("symbols", a.cfg.Symbols))
	case a.collector != nil:
		go func() {
			if err := a.collector.Start(ctx); err != nil {
				a.logger.Error("bridge collector error", applogger.Error(err))
			}
		}()
		a.logger.Info("ws tick ingestion started",
			applogger.Strings("symbols", a.cfg.Symbols))
	}

	if err := a.pub.StartResetSchedule(); err != nil {
		return err
	}

	// Scan cadence follows the active trading session.
	a.sched.Dynamic("scan", func(ctx context.Context) time.Duration {
		a.scan.Run(ctx)
		return a.scan.Interval(time.Now())
	})
	a.sched.Every("threshold", a.cfg.Threshold.PollInterval, func(ctx context.Context) {
		a.ctrl.Tick(time.Now())
	})

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("signalforge started",
		applogger.String("environment", a.cfg.Environment),
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("transport", a.cfg.Ingest.Transport))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services: ingestion first so no new signals
// form, then background tasks, then the outbound side.
func (a *App) shutdown(ctx context.Context) error {
	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			a.logger.Warn("collector stop error", applogger.Error(err))
		}
	} else {
		a.pipe.Stop()
	}

	if a.consumer != nil {
		stopCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
		if err := a.consumer.Stop(stopCtx); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
		}
		cancel()
	}

	schedCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	if err := a.sched.Stop(schedCtx); err != nil {
		a.logger.Warn("scheduler stop error", applogger.Error(err))
	}
	cancel()
	a.pub.StopResetSchedule()

	httpCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	if err := a.httpServer.Stop(httpCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}
	cancel()

	if err := a.sink.Close(); err != nil {
		a.logger.Warn("signal sink close error", applogger.Error(err))
	}
	if err := a.outcome.Close(); err != nil {
		a.logger.Warn("outcome log close error", applogger.Error(err))
	}

	a.logger.Info("shutdown complete")
	return nil
}
