package agents

import (
	"context"
	"fmt"
	"time"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/domain/service"
)

// Risk limits the DataAgent and RiskAgent gate on. Zero values fall back
// to the defaults below.
type Limits struct {
	MinCandles       int
	StaleAfter       time.Duration
	MaxDrawdown      float64
	MaxDailyLossPct  float64
	MaxOpenPositions int
}

func (l Limits) withDefaults() Limits {
	if l.MinCandles == 0 {
		l.MinCandles = 100
	}
	if l.StaleAfter == 0 {
		l.StaleAfter = 120 * time.Second
	}
	if l.MaxDrawdown == 0 {
		l.MaxDrawdown = 0.10
	}
	if l.MaxDailyLossPct == 0 {
		l.MaxDailyLossPct = 0.02
	}
	if l.MaxOpenPositions == 0 {
		l.MaxOpenPositions = 5
	}
	return l
}

func vote(name, symbol string, dir models.Direction, conf float64, veto bool, reason string) models.AgentVote {
	return models.AgentVote{
		Agent:      name,
		Symbol:     symbol,
		Direction:  dir,
		Confidence: conf,
		Veto:       veto,
		Reason:     reason,
		Timestamp:  time.Now().UTC(),
	}
}

// DataAgent vetoes when market data is too thin or too old to trust.
type DataAgent struct {
	limits Limits
	clock  func() time.Time
}

func NewDataAgent(limits Limits) *DataAgent {
	return &DataAgent{limits: limits.withDefaults(), clock: time.Now}
}

func (a *DataAgent) Name() string { return "data" }

func (a *DataAgent) Evaluate(_ context.Context, sctx *service.SymbolContext) (models.AgentVote, error) {
	total := 0
	var latest time.Time
	for _, bars := range sctx.Candles {
		total += len(bars)
		if n := len(bars); n > 0 && bars[n-1].Bucket.After(latest) {
			latest = bars[n-1].Bucket
		}
	}
	if total < a.limits.MinCandles {
		return vote(a.Name(), sctx.Symbol, models.Neutral, 0, true,
			fmt.Sprintf("insufficient data: %d candles (< %d)", total, a.limits.MinCandles)), nil
	}
	// Staleness is measured at the finest timeframe, which closes most often.
	if fin, ok := finestBars(sctx.Candles); ok {
		age := a.clock().UTC().Sub(fin)
		if age > a.limits.StaleAfter {
			return vote(a.Name(), sctx.Symbol, models.Neutral, 0, true,
				fmt.Sprintf("stale data: last candle %s old", age.Round(time.Second))), nil
		}
	}
	return vote(a.Name(), sctx.Symbol, models.Neutral, 0.9, false, "data quality ok"), nil
}

// finestBars returns the close time of the finest timeframe present.
func finestBars(candles map[string][]models.Candle) (time.Time, bool) {
	order := []string{"1m", "5m", "15m", "1h", "4h", "1d"}
	for _, tf := range order {
		if bars, ok := candles[tf]; ok && len(bars) > 0 {
			return bars[len(bars)-1].Bucket, true
		}
	}
	return time.Time{}, false
}

// TechnicalAgent votes the multi-timeframe confluence verdict.
type TechnicalAgent struct{}

func NewTechnicalAgent() *TechnicalAgent { return &TechnicalAgent{} }

func (a *TechnicalAgent) Name() string { return "technical" }

func (a *TechnicalAgent) Evaluate(_ context.Context, sctx *service.SymbolContext) (models.AgentVote, error) {
	conf := sctx.Confluence
	if conf == nil {
		return vote(a.Name(), sctx.Symbol, models.Neutral, 0.2, false, "no confluence available"), nil
	}
	score := conf.Score
	confidence := (abs(score) + conf.Confidence) / 2
	reason := fmt.Sprintf("confluence %.2f, %d timeframes", score, len(conf.Timeframes))
	return vote(a.Name(), sctx.Symbol, conf.Direction, confidence, false, reason), nil
}

// SentimentAgent trades contrarian on fear & greed extremes.
type SentimentAgent struct{}

func NewSentimentAgent() *SentimentAgent { return &SentimentAgent{} }

func (a *SentimentAgent) Name() string { return "sentiment" }

func (a *SentimentAgent) Evaluate(_ context.Context, sctx *service.SymbolContext) (models.AgentVote, error) {
	s := sctx.Sentiment
	if s == nil {
		return vote(a.Name(), sctx.Symbol, models.Neutral, 0.2, false, "no sentiment available"), nil
	}
	switch {
	case s.FearGreed <= 25:
		return vote(a.Name(), sctx.Symbol, models.Long, 0.6, false,
			fmt.Sprintf("extreme fear (%d): contrarian long", s.FearGreed)), nil
	case s.FearGreed >= 75:
		return vote(a.Name(), sctx.Symbol, models.Short, 0.6, false,
			fmt.Sprintf("extreme greed (%d): contrarian short", s.FearGreed)), nil
	default:
		return vote(a.Name(), sctx.Symbol, models.Neutral, 0.3,
			false, fmt.Sprintf("fear & greed neutral (%d)", s.FearGreed)), nil
	}
}

// MLAgent votes the ensemble prediction.
type MLAgent struct{}

func NewMLAgent() *MLAgent { return &MLAgent{} }

func (a *MLAgent) Name() string { return "ml" }

func (a *MLAgent) Evaluate(_ context.Context, sctx *service.SymbolContext) (models.AgentVote, error) {
	p := sctx.Prediction
	if p == nil {
		return vote(a.Name(), sctx.Symbol, models.Neutral, 0.2, false, "no prediction available"), nil
	}
	reason := fmt.Sprintf("ensemble score %.2f, agreement %.0f%%", p.Score, p.Agreement*100)
	return vote(a.Name(), sctx.Symbol, p.Direction, p.Confidence, false, reason), nil
}

// RiskAgent vetoes when the account breaches its loss limits.
type RiskAgent struct {
	limits Limits
}

func NewRiskAgent(limits Limits) *RiskAgent {
	return &RiskAgent{limits: limits.withDefaults()}
}

func (a *RiskAgent) Name() string { return "risk" }

func (a *RiskAgent) Evaluate(_ context.Context, sctx *service.SymbolContext) (models.AgentVote, error) {
	acc := sctx.Account
	if acc.Drawdown >= a.limits.MaxDrawdown {
		return vote(a.Name(), sctx.Symbol, models.Neutral, 0, true,
			fmt.Sprintf("drawdown %.1f%% at limit", acc.Drawdown*100)), nil
	}
	if acc.StartBalance > 0 && -acc.DailyPnL/acc.StartBalance >= a.limits.MaxDailyLossPct {
		return vote(a.Name(), sctx.Symbol, models.Neutral, 0, true,
			fmt.Sprintf("daily loss %.2f at limit", acc.DailyPnL)), nil
	}
	if acc.OpenPositions >= a.limits.MaxOpenPositions {
		return vote(a.Name(), sctx.Symbol, models.Neutral, 0, true,
			fmt.Sprintf("%d open positions at limit", acc.OpenPositions)), nil
	}
	return vote(a.Name(), sctx.Symbol, models.Neutral, 1.0, false, "risk limits ok"), nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

var (
	_ service.Agent = (*DataAgent)(nil)
	_ service.Agent = (*TechnicalAgent)(nil)
	_ service.Agent = (*SentimentAgent)(nil)
	_ service.Agent = (*MLAgent)(nil)
	_ service.Agent = (*RiskAgent)(nil)
)
