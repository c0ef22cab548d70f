package di

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"SignalForge/internal/confluence"
	"SignalForge/internal/consensus"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/internal/handler/api"
	"SignalForge/internal/market"
	mid "SignalForge/internal/middleware"
	"SignalForge/internal/pattern"
	"SignalForge/internal/publisher"
	internalrepo "SignalForge/internal/repository"
	"SignalForge/internal/service/bridge"
	"SignalForge/internal/threshold"
	"SignalForge/internal/usecase"
	pkgch "SignalForge/pkg/clickhouse"
	"SignalForge/pkg/config"
	pkgkafka "SignalForge/pkg/kafka"
	"SignalForge/pkg/logger"
	"SignalForge/pkg/metrics"
	"SignalForge/pkg/scheduler"
	"SignalForge/pkg/server"
)

// ProvideLogger creates the structured application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideAggregator creates the in-memory market aggregator for the tracked
// symbol set.
func ProvideAggregator(cfg *config.Config, m domrepo.Metrics) *market.Aggregator {
	return market.NewAggregator(cfg.Symbols, m)
}

// ProvideEngine creates the pattern detection engine over the aggregator.
func ProvideEngine(agg *market.Aggregator, lgr *logger.Logger) *pattern.Engine {
	return pattern.NewEngine(agg, lgr)
}

// ProvideScorer creates the confluence scorer over the aggregator.
func ProvideScorer(agg *market.Aggregator, lgr *logger.Logger) *confluence.Scorer {
	return confluence.NewScorer(agg, lgr)
}

// ProvideQuoteSources builds the consensus source set from configuration.
func ProvideQuoteSources(cfg *config.Config) []domrepo.QuoteSource {
	out := make([]domrepo.QuoteSource, 0, len(cfg.Consensus.Sources))
	for _, s := range cfg.Consensus.Sources {
		out = append(out, consensus.NewHTTPQuoteSource(s.Name, s.URL, s.Timeout))
	}
	return out
}

// ProvideShield creates the consensus validator.
func ProvideShield(cfg *config.Config, sources []domrepo.QuoteSource, m domrepo.Metrics, lgr *logger.Logger) *consensus.Validator {
	return consensus.NewValidator(consensus.Config{
		MinSources:    cfg.Consensus.MinSources,
		MaxDeviation:  cfg.Consensus.MaxDeviation,
		MinConfidence: cfg.Consensus.MinConfidence,
		MaxOutliers:   cfg.Consensus.MaxOutliers,
		MaxAge:        cfg.Consensus.MaxAge,
		CacheTTL:      cfg.Consensus.CacheTTL,
		QueryTimeout:  cfg.Consensus.QueryTimeout,
	}, sources, m, lgr)
}

// ProvideThresholdState creates the shared threshold state at baseline.
func ProvideThresholdState(cfg *config.Config) *threshold.State {
	return threshold.NewState(cfg.Threshold.Baseline, time.Now())
}

// ProvideOutcomeLog creates the configured outcome log backend.
func ProvideOutcomeLog(cfg *config.Config, lgr *logger.Logger) (domrepo.OutcomeLog, error) {
	switch cfg.Outcome.Backend {
	case "clickhouse":
		client, err := pkgch.NewClient(
			pkgch.WithHost(cfg.Outcome.ClickHouse.Host),
			pkgch.WithPort(cfg.Outcome.ClickHouse.Port),
			pkgch.WithDatabase(cfg.Outcome.ClickHouse.Database),
			pkgch.WithCredentials(cfg.Outcome.ClickHouse.User, cfg.Outcome.ClickHouse.Password),
			pkgch.WithTimeouts(cfg.Outcome.ClickHouse.DialTimeout, 10*time.Second, 10*time.Second),
		)
		if err != nil {
			return nil, fmt.Errorf("clickhouse client: %w", err)
		}
		log := internalrepo.NewCHOutcomeLog(client, cfg.Outcome.ClickHouse.Table)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := log.InitSchema(ctx); err != nil {
			_ = client.Close()
			return nil, err
		}
		return log, nil
	default:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Outcome.Redis.Addr,
			Password: cfg.Outcome.Redis.Password,
			DB:       cfg.Outcome.Redis.DB,
		})
		return internalrepo.NewRedisOutcomeLog(client, cfg.Outcome.Redis.Key, lgr), nil
	}
}

// ProvideKafkaProducer creates the outbound Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideSignalSink creates the Kafka signal sink.
func ProvideSignalSink(producer *pkgkafka.Producer, cfg *config.Config) domrepo.SignalSink {
	return internalrepo.NewKafkaSignalSink(producer, cfg.Kafka.SignalsTopic)
}

// ProvideThresholdController creates the adaptive threshold controller.
func ProvideThresholdController(
	cfg *config.Config,
	state *threshold.State,
	outcome domrepo.OutcomeLog,
	m domrepo.Metrics,
	lgr *logger.Logger,
) *threshold.Controller {
	return threshold.NewController(threshold.Config{
		Baseline:     cfg.Threshold.Baseline,
		PollInterval: cfg.Threshold.PollInterval,
	}, state, outcome, m, lgr)
}

// ProvidePublisher creates the signal publisher. The threshold controller
// doubles as the publish listener so its idle clock resets on publish.
func ProvidePublisher(
	cfg *config.Config,
	sink domrepo.SignalSink,
	outcome domrepo.OutcomeLog,
	state *threshold.State,
	ctrl *threshold.Controller,
	agg *market.Aggregator,
	m domrepo.Metrics,
	lgr *logger.Logger,
) *publisher.Publisher {
	return publisher.New(publisher.Config{
		Cooldown:   cfg.Publisher.Cooldown,
		DailyCap:   cfg.Publisher.DailyCap,
		SessionCap: cfg.Publisher.SessionCap,
	}, publisher.DefaultTiers(), sink, outcome, state, ctrl, agg, m, lgr)
}

// ProvideScanLoop creates the detection scan loop.
func ProvideScanLoop(
	agg *market.Aggregator,
	engine *pattern.Engine,
	scorer *confluence.Scorer,
	shield *consensus.Validator,
	pub *publisher.Publisher,
	m domrepo.Metrics,
	lgr *logger.Logger,
) *usecase.ScanLoop {
	return usecase.NewScanLoop(agg, engine, scorer, shield, pub, m, lgr)
}

// ProvideIngestPipeline creates the validate/throttle/buffer pipeline feeding
// the aggregator.
func ProvideIngestPipeline(cfg *config.Config, agg *market.Aggregator, m domrepo.Metrics) *mid.IngestPipeline {
	proc := usecase.NewTickProcessor(agg, m)
	return mid.NewIngestPipeline(proc, m,
		mid.WithMaxRPS(cfg.Ingest.MaxRPS),
		mid.WithBufferSize(cfg.Ingest.BufferSize),
	)
}

// ProvideKafkaConsumer creates the tick consumer. Returns nil when the
// configured transport is not Kafka.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if cfg.Ingest.Transport != "kafka" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaTicksHandler registers the handler for the ticks topic.
func ProvideKafkaTicksHandler(cfg *config.Config, pipe *mid.IngestPipeline, m domrepo.Metrics) *usecase.KafkaTicksHandler {
	return usecase.NewKafkaTicksHandler(cfg.Kafka.TicksTopic, pipe, m)
}

// ProvideTickCollector creates the WebSocket bridge collector. Returns nil
// when the configured transport is not ws.
func ProvideTickCollector(cfg *config.Config, pipe *mid.IngestPipeline, m domrepo.Metrics) *usecase.TickCollector {
	if cfg.Ingest.Transport != "ws" {
		return nil
	}
	stream := bridge.New(
		cfg.Bridge.APIKey,
		cfg.Bridge.URL,
		cfg.Symbols,
		cfg.Bridge.ReconnectDelay,
		cfg.Bridge.PingInterval,
	)
	return usecase.NewTickCollector(stream, m, pipe)
}

// ProvideStatusHandler creates the read-only status API handler.
func ProvideStatusHandler(
	lgr *logger.Logger,
	agg *market.Aggregator,
	state *threshold.State,
	pub *publisher.Publisher,
	outcome domrepo.OutcomeLog,
) *api.StatusHandler {
	return api.NewStatusHandler(lgr, agg, state, pub, outcome)
}

// ProvideScheduler creates the background task scheduler.
func ProvideScheduler(lgr *logger.Logger) *scheduler.Scheduler {
	return scheduler.New(lgr)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	lgr *logger.Logger,
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
) *server.App {
	return server.New(cfg, lgr, sched, pipe, consumer, kh, collector, scan, ctrl, pub, outcome, sink, status)
}
