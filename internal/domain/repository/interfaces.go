package repository

import (
	"context"
	"time"

	"TradePulse/internal/domain/models"
)

// MarketStream delivers closed candles from the exchange feed.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Candle, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Publisher fans candles out to a message backend.
type Publisher interface {
	Publish(ctx context.Context, c *models.Candle) error
	PublishBatch(ctx context.Context, candles []*models.Candle) error
	Close() error
}

// Storage persists candles directly, bypassing the message backend.
type Storage interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, c *models.Candle) error
	StoreBatch(ctx context.Context, candles []*models.Candle) error
	Query(ctx context.Context, symbol string, from, to time.Time, tf Timeframe, limit int) ([]*models.Candle, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// SignalStore persists trading signals and their outcomes.
type SignalStore interface {
	SaveSignal(ctx context.Context, s *models.TradingSignal) error
	UpdateSignalStatus(ctx context.Context, id string, status models.SignalStatus) error
	ListSignals(ctx context.Context, symbol string, status models.SignalStatus, limit int) ([]models.TradingSignal, error)
	SaveOutcome(ctx context.Context, o *models.TradeOutcome) error
	ListOutcomes(ctx context.Context, symbol string, limit int) ([]models.TradeOutcome, error)
}

// LearningStore persists what the learning loop produces.
type LearningStore interface {
	SaveMistake(ctx context.Context, m *models.TradingMistake) error
	ListMistakes(ctx context.Context, symbol string, limit int) ([]models.TradingMistake, error)
	SaveEvolution(ctx context.Context, e *models.EvolutionEvent) error
	ListEvolution(ctx context.Context, limit int) ([]models.EvolutionEvent, error)
	SaveModelPerformance(ctx context.Context, p *models.ModelPerformance) error
	ListModelPerformance(ctx context.Context, model string, limit int) ([]models.ModelPerformance, error)
}

// Metrics abstracts operational counters away from prometheus.
type Metrics interface {
	RecordMessageSent(backend, symbol string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordSignal(symbol string, direction string)
	RecordConsensus(symbol string, actionable bool)
	RecordTradeOutcome(result string)
}
