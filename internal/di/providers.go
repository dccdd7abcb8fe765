package di

import (
	"context"
	"fmt"
	"time"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/domain/repository"
	domsvc "TradePulse/internal/domain/service"
	"TradePulse/internal/handler/api"
	"TradePulse/internal/handler/ws"
	mid "TradePulse/internal/middleware"
	internalrepo "TradePulse/internal/repository"
	"TradePulse/internal/service/binance"
	icache "TradePulse/internal/service/cache"
	"TradePulse/internal/service/calendar"
	"TradePulse/internal/service/llm"
	svcmetrics "TradePulse/internal/service/metrics"
	"TradePulse/internal/service/ratelimit"
	"TradePulse/internal/service/sentiment"
	"TradePulse/internal/service/settings"
	"TradePulse/internal/services/agents"
	"TradePulse/internal/services/analysis"
	"TradePulse/internal/services/learning"
	"TradePulse/internal/services/ml"
	"TradePulse/internal/services/trading"
	"TradePulse/internal/usecase"
	pkgch "TradePulse/pkg/clickhouse"
	"TradePulse/pkg/config"
	xhttp "TradePulse/pkg/http"
	pkgkafka "TradePulse/pkg/kafka"
	applogger "TradePulse/pkg/logger"
	"TradePulse/pkg/metrics"
	"TradePulse/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	lc := &applogger.Config{Level: "info", Format: "json", Output: "stdout"}
	if cfg.Environment == "development" {
		lc.Level = "debug"
		lc.Format = "console"
	}
	return applogger.New(lc)
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.SchemaStatements(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
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

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	svcmetrics.Register()
	return metrics.New()
}

// ProvideCandleStorage creates the direct ClickHouse write path.
func ProvideCandleStorage(chClient *pkgch.Client, cfg *config.Config) repository.Storage {
	return internalrepo.NewClickHouseStorage(chClient.DB(), cfg.ClickHouse.Database+".candles")
}

// ProvideCandlePublisher creates the Kafka write path.
func ProvideCandlePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideKafkaCandlesHandler registers the consumer-side candle handler.
func ProvideKafkaCandlesHandler(store repository.Storage, m repository.Metrics, cfg *config.Config) *usecase.KafkaCandlesHandler {
	return usecase.NewKafkaCandlesHandler(cfg.Kafka.Topic, store, m)
}

// ProvideBinanceStream creates the Binance kline stream.
func ProvideBinanceStream(cfg *config.Config, log *applogger.Logger) *binance.Stream {
	return binance.New(
		cfg.Binance.APIKey,
		cfg.Binance.SecretKey,
		cfg.Binance.Symbols,
		cfg.Binance.Timeframes,
		cfg.Binance.ReconnectDelay,
		log,
	)
}

// ProvideMarketStream exposes the stream behind the domain interface.
func ProvideMarketStream(s *binance.Stream) repository.MarketStream { return s }

// ProvideBackfiller exposes the stream's REST backfill.
func ProvideBackfiller(s *binance.Stream) usecase.Backfiller { return s }

// ProvideCandleProcessor creates the candle write-path use case.
func ProvideCandleProcessor(
	pub repository.Publisher,
	store repository.Storage,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.CandleProcessor {
	return usecase.NewCandleProcessor(
		pub,
		store,
		m,
		cfg.Backend.Type,
		cfg.Backend.BatchSize,
		cfg.Backend.BatchTimeout,
	)
}

// ProvideCandleCollector creates the ingest loop with its pipeline.
func ProvideCandleCollector(
	stream repository.MarketStream,
	backfiller usecase.Backfiller,
	processor *usecase.CandleProcessor,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.CandleCollector {
	pipe := mid.NewRealtimePipeline(processor, m,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return usecase.NewCandleCollector(
		stream,
		backfiller,
		processor,
		m,
		pipe,
		cfg.Binance.Symbols,
		cfg.Binance.Timeframes,
		cfg.Binance.BackfillBars,
	)
}

// ProvideCandleStore creates the read-side candle repository.
func ProvideCandleStore(chClient *pkgch.Client, cfg *config.Config, log *applogger.Logger) repository.CandleStore {
	store := internalrepo.NewCHCandleStore(chClient, cfg.ClickHouse.Database+".candles")
	store.SetLogger(log)
	return store
}

// ProvideSignalStore creates the signal repository.
func ProvideSignalStore(chClient *pkgch.Client, cfg *config.Config) repository.SignalStore {
	return internalrepo.NewCHSignalStore(chClient, cfg.ClickHouse.Database)
}

// ProvideLearningStore creates the learning-artifact repository.
func ProvideLearningStore(chClient *pkgch.Client, cfg *config.Config) repository.LearningStore {
	return internalrepo.NewCHLearningStore(chClient, cfg.ClickHouse.Database)
}

// ProvideBytesCache picks Redis when configured, in-process TTL otherwise.
func ProvideBytesCache(cfg *config.Config) icache.BytesCache {
	if cfg.Redis.Enabled {
		return icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	return icache.NewTTLCache()
}

// ProvideEnsemble creates the ML ensemble, restoring saved weights when present.
func ProvideEnsemble(cfg *config.Config, log *applogger.Logger) *ml.Ensemble {
	e := ml.NewEnsemble()
	if cfg.Learning.ModelDir != "" {
		if err := e.Load(cfg.Learning.ModelDir); err != nil {
			log.Warn("model restore skipped", applogger.Error(err))
		}
	}
	return e
}

// ProvideAnalysisEngine creates the indicator engine.
func ProvideAnalysisEngine() *analysis.Engine { return analysis.NewEngine() }

// ProvideConfluence creates the multi-timeframe scorer.
func ProvideConfluence(engine *analysis.Engine) *analysis.Confluence {
	return analysis.NewConfluence(engine)
}

// ProvideRegimeDetector creates the regime classifier.
func ProvideRegimeDetector() domsvc.RegimeDetector { return analysis.NewRegimeDetector() }

// ProvideSentiment creates the fear & greed provider.
func ProvideSentiment(cfg *config.Config) domsvc.SentimentProvider {
	opts := []sentiment.ProviderOption{}
	if cfg.Sentiment.FearGreedURL != "" {
		opts = append(opts, sentiment.WithFeedURL(cfg.Sentiment.FearGreedURL))
	}
	if cfg.Sentiment.CacheTTL > 0 {
		opts = append(opts, sentiment.WithCacheTTL(cfg.Sentiment.CacheTTL))
	}
	return sentiment.NewProvider(opts...)
}

// ProvideCalendar creates the economic calendar provider.
func ProvideCalendar(cfg *config.Config) domsvc.CalendarProvider {
	opts := []calendar.ProviderOption{}
	if cfg.Calendar.CacheTTL > 0 {
		opts = append(opts, calendar.WithCacheTTL(cfg.Calendar.CacheTTL))
	}
	return calendar.NewProvider(cfg.Calendar.FeedURL, opts...)
}

// ProvideOrchestrator assembles the agent council.
func ProvideOrchestrator(cfg *config.Config, log *applogger.Logger) *agents.Orchestrator {
	limits := agents.Limits{
		StaleAfter:       cfg.Agent.StaleAfter,
		MaxDrawdown:      cfg.Risk.MaxDailyDrawdown * 5, // account-level, not daily
		MaxDailyLossPct:  cfg.Risk.MaxDailyLoss,
		MaxOpenPositions: cfg.Risk.MaxOpenPositions,
	}
	return agents.NewOrchestrator(log,
		agents.NewDataAgent(limits),
		agents.NewTechnicalAgent(),
		agents.NewSentimentAgent(),
		agents.NewMLAgent(),
		agents.NewRiskAgent(limits),
	)
}

// ProvideAnalysisUseCase assembles the per-symbol analysis view.
func ProvideAnalysisUseCase(
	store repository.CandleStore,
	engine *analysis.Engine,
	confluence *analysis.Confluence,
	regime domsvc.RegimeDetector,
	sent domsvc.SentimentProvider,
	ensemble *ml.Ensemble,
	log *applogger.Logger,
	cfg *config.Config,
) *usecase.AnalysisUseCase {
	tfs := make([]repository.Timeframe, 0, len(cfg.Binance.Timeframes))
	for _, s := range cfg.Binance.Timeframes {
		tfs = append(tfs, repository.NormalizeTimeframe(s))
	}
	return usecase.NewAnalysisUseCase(store, engine, confluence, regime, sent, ensemble, log, tfs, cfg.Binance.BackfillBars)
}

// ProvideSignalGenerator creates the signal generator from risk config.
func ProvideSignalGenerator(cfg *config.Config) *trading.SignalGenerator {
	opts := []trading.GeneratorOption{}
	if cfg.Risk.RiskPerTrade > 0 {
		opts = append(opts, trading.WithRiskPct(cfg.Risk.RiskPerTrade*100))
	}
	return trading.NewSignalGenerator(opts...)
}

// ProvideCircuitBreaker creates the daily-loss circuit breaker.
func ProvideCircuitBreaker(cfg *config.Config) *trading.CircuitBreaker {
	opts := []trading.BreakerOption{}
	if cfg.Risk.MaxDailyDrawdown > 0 && cfg.Risk.MaxDailyLoss > 0 {
		opts = append(opts, trading.WithDailyLimits(cfg.Risk.MaxDailyDrawdown, cfg.Risk.MaxDailyLoss))
	}
	if cfg.Risk.MaxConsecutiveLosses > 0 {
		opts = append(opts, trading.WithMaxConsecutiveLosses(cfg.Risk.MaxConsecutiveLosses))
	}
	return trading.NewCircuitBreaker(cfg.Risk.AccountBalance, opts...)
}

// ProvideExecutionManager creates the paper execution layer.
func ProvideExecutionManager(cfg *config.Config, log *applogger.Logger) *trading.ExecutionManager {
	opts := []trading.ExecOption{}
	if cfg.Agent.AutonomyThreshold > 0 {
		opts = append(opts, trading.WithAutonomyThreshold(cfg.Agent.AutonomyThreshold))
	}
	if cfg.Risk.MaxPerSymbol > 0 {
		opts = append(opts, trading.WithMaxPerSymbol(cfg.Risk.MaxPerSymbol))
	}
	if cfg.Risk.MinRiskReward > 0 {
		opts = append(opts, trading.WithMinRiskReward(cfg.Risk.MinRiskReward))
	}
	return trading.NewExecutionManager(log, opts...)
}

// ProvidePerformanceTracker creates the account-level tracker.
func ProvidePerformanceTracker(cfg *config.Config) *learning.PerformanceTracker {
	return learning.NewPerformanceTracker(cfg.Risk.AccountBalance)
}

// ProvideMistakeTracker creates the post-mortem classifier.
func ProvideMistakeTracker() *learning.MistakeTracker { return learning.NewMistakeTracker() }

// ProvideOnlineLearner creates the retraining loop.
func ProvideOnlineLearner(ensemble *ml.Ensemble, log *applogger.Logger, cfg *config.Config) *learning.OnlineLearner {
	opts := []learning.LearnerOption{}
	if cfg.Learning.BufferSize > 0 {
		opts = append(opts, learning.WithBufferSize(cfg.Learning.BufferSize))
	}
	if cfg.Learning.RetrainEvery > 0 {
		opts = append(opts, learning.WithRetrainEvery(cfg.Learning.RetrainEvery))
	}
	if cfg.Learning.MinSamples > 0 {
		opts = append(opts, learning.WithMinSamples(cfg.Learning.MinSamples))
	}
	if cfg.Learning.ModelDir != "" {
		opts = append(opts, learning.WithModelDir(cfg.Learning.ModelDir))
	}
	return learning.NewOnlineLearner(ensemble, log, opts...)
}

// ProvideAgentRunner assembles the trading loop.
func ProvideAgentRunner(
	analysisUC *usecase.AnalysisUseCase,
	orchestrator *agents.Orchestrator,
	generator *trading.SignalGenerator,
	breaker *trading.CircuitBreaker,
	execution *trading.ExecutionManager,
	performance *learning.PerformanceTracker,
	mistakes *learning.MistakeTracker,
	learner *learning.OnlineLearner,
	signals repository.SignalStore,
	learningDB repository.LearningStore,
	m repository.Metrics,
	log *applogger.Logger,
	cfg *config.Config,
) *usecase.AgentRunner {
	return usecase.NewAgentRunner(
		analysisUC,
		orchestrator,
		generator,
		breaker,
		execution,
		performance,
		mistakes,
		learner,
		signals,
		learningDB,
		m,
		log,
		cfg.Binance.Symbols,
		cfg.Agent.CycleInterval,
	)
}

// ProvideChatModel creates the LLM client.
func ProvideChatModel(cfg *config.Config) domsvc.ChatModel {
	opts := []llm.Option{}
	if cfg.LLM.Model != "" {
		opts = append(opts, llm.WithModel(cfg.LLM.Model))
	}
	if cfg.LLM.Temperature > 0 {
		opts = append(opts, llm.WithTemperature(cfg.LLM.Temperature))
	}
	if cfg.LLM.MaxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(cfg.LLM.MaxTokens))
	}
	if cfg.LLM.Timeout > 0 {
		opts = append(opts, llm.WithTimeout(cfg.LLM.Timeout))
	}
	return llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, opts...)
}

// ProvideChatEngine wires the chat to the runner and the model. History
// lands in the shared cache, so with Redis enabled it survives restarts.
func ProvideChatEngine(model domsvc.ChatModel, runner *usecase.AgentRunner, cfg *config.Config, bc icache.BytesCache) *llm.Engine {
	return llm.NewEngine(
		model,
		runner,
		runner.StatusText,
		runner.AnalyzeText,
		cfg.Binance.Symbols,
		cfg.Settings.HistoryCap,
		llm.WithHistoryStore(bc),
	)
}

// ProvideSettingsStore opens the runtime settings file.
func ProvideSettingsStore(cfg *config.Config, log *applogger.Logger) (*settings.Store, error) {
	store, err := settings.NewStore(cfg.Settings.Path, log)
	if err != nil {
		return nil, err
	}
	if cfg.Settings.WatchFile {
		if err := store.Watch(); err != nil {
			log.Warn("settings watch disabled", applogger.Error(err))
		}
	}
	return store, nil
}

// ProvideRateLimiter creates the shared per-key limiter.
func ProvideRateLimiter() *ratelimit.Limiter { return ratelimit.New() }

// ProvideHub creates the websocket broadcast hub.
func ProvideHub(log *applogger.Logger) *ws.Hub { return ws.NewHub(log) }

// ProvideRouter assembles all HTTP handlers and wires live broadcasts.
func ProvideRouter(
	log *applogger.Logger,
	cfg *config.Config,
	candleStore repository.CandleStore,
	analysisUC *usecase.AnalysisUseCase,
	signals repository.SignalStore,
	learningDB repository.LearningStore,
	storage repository.Storage,
	runner *usecase.AgentRunner,
	orchestrator *agents.Orchestrator,
	execution *trading.ExecutionManager,
	breaker *trading.CircuitBreaker,
	performance *learning.PerformanceTracker,
	engine *llm.Engine,
	cal domsvc.CalendarProvider,
	settingsStore *settings.Store,
	bc icache.BytesCache,
	rl *ratelimit.Limiter,
	hub *ws.Hub,
) xhttp.Handler {
	// Push live events to connected dashboards.
	orchestrator.OnConsensus(func(cr *models.ConsensusResult) {
		hub.Broadcast("consensus", cr)
	})
	runner.OnSignal(func(sig *models.TradingSignal) {
		hub.Broadcast("signal", sig)
	})
	execution.OnOutcome(func(o *models.TradeOutcome) {
		hub.Broadcast("outcome", o)
	})

	return api.NewRouter(
		api.NewMarketHandler(log, usecase.NewCandlesUseCase(candleStore), analysisUC, bc, rl, cfg.Binance.Symbols),
		api.NewTradingHandler(log, signals, runner, orchestrator, execution, breaker, performance),
		api.NewLearningHandler(log, learningDB),
		api.NewChatHandler(log, engine, cal, rl),
		api.NewSettingsHandler(log, settingsStore),
		api.NewSystemHandler(log, storage, runner, cfg.Binance.Symbols),
		hub,
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	collector *usecase.CandleCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaCandlesHandler,
	chClient *pkgch.Client,
	handler xhttp.Handler,
	runner *usecase.AgentRunner,
	settingsStore *settings.Store,
	hub *ws.Hub,
	log *applogger.Logger,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	return server.New(cfg, collector, consumer, kh, chClient, handler, runner, settingsStore, hub, log)
}
