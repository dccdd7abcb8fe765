package service

import (
	"context"

	"TradePulse/internal/domain/models"
)

// Agent is one voter in the multi-agent consensus.
type Agent interface {
	Name() string
	Evaluate(ctx context.Context, sctx *SymbolContext) (models.AgentVote, error)
}

// SymbolContext carries everything agents need to form an opinion.
type SymbolContext struct {
	Symbol     string
	Price      float64
	Candles    map[string][]models.Candle            // tf -> candles, oldest first
	Indicators map[string]map[string]float64         // tf -> feature vector
	Confluence *models.ConfluenceResult
	Regime     *models.Regime
	Sentiment  *models.Sentiment
	Prediction *models.EnsemblePrediction
	Account    AccountState
}

// AccountState is the risk view agents gate on.
type AccountState struct {
	Balance           float64
	StartBalance      float64
	DailyPnL          float64
	Drawdown          float64
	OpenPositions     int
	ConsecutiveLosses int
}

// RegimeDetector labels the prevailing market regime from a feature vector.
type RegimeDetector interface {
	Detect(ctx context.Context, symbol string, features map[string]float64) (models.Regime, error)
}

// SentimentProvider supplies a blended market mood score.
type SentimentProvider interface {
	Sentiment(ctx context.Context) (models.Sentiment, error)
}

// Predictor is a single ML model voting on direction.
type Predictor interface {
	Name() string
	Predict(features map[string]float64) (models.ModelVote, error)
	Train(samples []TrainingSample) error
	Trained() bool
}

// TrainingSample pairs an indicator snapshot with the realized outcome.
type TrainingSample struct {
	Features map[string]float64
	Label    float64 // +1 favorable, -1 adverse
}

// CalendarProvider supplies upcoming economic events.
type CalendarProvider interface {
	Events(ctx context.Context) ([]models.CalendarEvent, error)
}

// ChatModel generates free-form replies for the dashboard chat.
type ChatModel interface {
	Complete(ctx context.Context, messages []models.ChatMessage) (string, error)
}
