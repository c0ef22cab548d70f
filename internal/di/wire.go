//go:build wireinject
// +build wireinject

package di

import (
	"SignalForge/pkg/config"
	"SignalForge/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		ProvideScheduler,

		// Market state
		ProvideAggregator,

		// Detection pipeline
		ProvideEngine,
		ProvideScorer,
		ProvideQuoteSources,
		ProvideShield,

		// Threshold control
		ProvideThresholdState,
		ProvideThresholdController,

		// Infrastructure
		ProvideOutcomeLog,
		ProvideKafkaProducer,
		ProvideSignalSink,

		// Publishing
		ProvidePublisher,
		ProvideScanLoop,

		// Ingestion
		ProvideIngestPipeline,
		ProvideKafkaConsumer,
		ProvideKafkaTicksHandler,
		ProvideTickCollector,

		// HTTP surface
		ProvideStatusHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
