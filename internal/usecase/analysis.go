package usecase

import (
	"context"
	"fmt"
	"time"

	"TradePulse/internal/domain/models"
	domrepo "TradePulse/internal/domain/repository"
	domsvc "TradePulse/internal/domain/service"
	"TradePulse/internal/services/analysis"
	"TradePulse/internal/services/ml"
	"TradePulse/pkg/logger"
)

// AnalysisUseCase assembles the full analytical view of a symbol:
// per-timeframe indicators, multi-timeframe confluence, regime,
// sentiment and the ML ensemble vote.
type AnalysisUseCase struct {
	store      domrepo.CandleStore
	engine     *analysis.Engine
	confluence *analysis.Confluence
	regime     domsvc.RegimeDetector
	sentiment  domsvc.SentimentProvider
	ensemble   *ml.Ensemble
	log        *logger.Logger

	timeframes []domrepo.Timeframe
	signalTF   domrepo.Timeframe // timeframe used for regime, prediction and trade levels
	bars       int
}

func NewAnalysisUseCase(
	store domrepo.CandleStore,
	engine *analysis.Engine,
	confluence *analysis.Confluence,
	regime domsvc.RegimeDetector,
	sentiment domsvc.SentimentProvider,
	ensemble *ml.Ensemble,
	log *logger.Logger,
	timeframes []domrepo.Timeframe,
	bars int,
) *AnalysisUseCase {
	if bars <= 0 {
		bars = 300
	}
	signalTF := domrepo.DefaultTimeframe()
	if !containsTF(timeframes, signalTF) && len(timeframes) > 0 {
		signalTF = timeframes[0]
	}
	return &AnalysisUseCase{
		store:      store,
		engine:     engine,
		confluence: confluence,
		regime:     regime,
		sentiment:  sentiment,
		ensemble:   ensemble,
		log:        log,
		timeframes: timeframes,
		signalTF:   signalTF,
		bars:       bars,
	}
}

// SignalTimeframe returns the timeframe trade levels are derived from.
func (uc *AnalysisUseCase) SignalTimeframe() domrepo.Timeframe { return uc.signalTF }

// Snapshot builds the analytical view served by the API.
func (uc *AnalysisUseCase) Snapshot(ctx context.Context, symbol string) (*models.AnalysisSnapshot, error) {
	snap, _, err := uc.Evaluate(ctx, symbol)
	return snap, err
}

// Evaluate builds the snapshot plus the raw candles per timeframe, as
// needed by the agent loop.
func (uc *AnalysisUseCase) Evaluate(ctx context.Context, symbol string) (*models.AnalysisSnapshot, map[string][]models.Candle, error) {
	if symbol == "" {
		return nil, nil, fmt.Errorf("symbol required")
	}

	indicators := make(map[string]map[string]float64, len(uc.timeframes))
	candles := make(map[string][]models.Candle, len(uc.timeframes))
	for _, tf := range uc.timeframes {
		bars, err := uc.store.GetLatestNCandles(ctx, symbol, uc.bars, tf)
		if err != nil {
			uc.log.Warn("analysis: candles unavailable",
				logger.String("symbol", symbol),
				logger.String("tf", string(tf)),
				logger.Error(err))
			continue
		}
		features, err := uc.engine.Compute(bars)
		if err != nil {
			continue // not enough bars yet
		}
		indicators[string(tf)] = features
		candles[string(tf)] = bars
	}
	if len(indicators) == 0 {
		return nil, nil, fmt.Errorf("analysis %s: no timeframe has enough data", symbol)
	}

	snap := &models.AnalysisSnapshot{
		Symbol:     symbol,
		Indicators: indicators,
		Timestamp:  time.Now().UTC(),
	}

	primary := indicators[string(uc.signalTF)]
	if primary == nil {
		for _, f := range indicators {
			primary = f
			break
		}
	}
	snap.Price = primary["close"]
	if quote, err := uc.store.LatestQuote(ctx, symbol); err == nil {
		snap.Price = quote.Price
	}

	snap.Confluence = uc.confluence.Score(symbol, indicators)

	if regime, err := uc.regime.Detect(ctx, symbol, primary); err == nil {
		snap.Regime = &regime
	}
	if uc.sentiment != nil {
		if sent, err := uc.sentiment.Sentiment(ctx); err == nil {
			snap.Sentiment = &sent
		} else {
			uc.log.Warn("analysis: sentiment unavailable", logger.Error(err))
		}
	}
	if uc.ensemble != nil {
		if pred, err := uc.ensemble.Predict(symbol, primary); err == nil {
			snap.Prediction = pred
		}
	}
	return snap, candles, nil
}

func containsTF(tfs []domrepo.Timeframe, tf domrepo.Timeframe) bool {
	for _, t := range tfs {
		if t == tf {
			return true
		}
	}
	return false
}
