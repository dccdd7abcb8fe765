//go:build wireinject
// +build wireinject

package di

import (
	"TradePulse/pkg/config"
	"TradePulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideCandleStorage,
		ProvideCandlePublisher,
		ProvideCandleStore,
		ProvideSignalStore,
		ProvideLearningStore,

		// Market data ingest
		ProvideBinanceStream,
		ProvideMarketStream,
		ProvideBackfiller,
		ProvideCandleProcessor,
		ProvideCandleCollector,
		ProvideKafkaCandlesHandler,

		// Analysis stack
		ProvideAnalysisEngine,
		ProvideConfluence,
		ProvideRegimeDetector,
		ProvideSentiment,
		ProvideCalendar,
		ProvideEnsemble,
		ProvideOrchestrator,
		ProvideAnalysisUseCase,

		// Trading and learning
		ProvideSignalGenerator,
		ProvideCircuitBreaker,
		ProvideExecutionManager,
		ProvidePerformanceTracker,
		ProvideMistakeTracker,
		ProvideOnlineLearner,
		ProvideAgentRunner,

		// Chat and settings
		ProvideChatModel,
		ProvideChatEngine,
		ProvideSettingsStore,

		// HTTP surface
		ProvideBytesCache,
		ProvideRateLimiter,
		ProvideHub,
		ProvideRouter,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
