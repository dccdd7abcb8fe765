package trading

import (
	"fmt"
	"math"
	"time"

	"TradePulse/internal/domain/models"
)

// SignalGenerator turns an actionable consensus into a complete trade
// proposal: entry, stop, targets and size.
type SignalGenerator struct {
	riskPct    float64 // percent of balance risked per trade
	defaultRR  float64
	maxRR      float64
	atrMult    float64
	expiry     time.Duration
	maxReasons int
}

// GeneratorOption configures SignalGenerator.
type GeneratorOption func(*SignalGenerator)

func WithRiskPct(pct float64) GeneratorOption {
	return func(g *SignalGenerator) { g.riskPct = pct }
}

func WithRiskReward(def, max float64) GeneratorOption {
	return func(g *SignalGenerator) { g.defaultRR, g.maxRR = def, max }
}

func WithATRMultiplier(m float64) GeneratorOption {
	return func(g *SignalGenerator) { g.atrMult = m }
}

func WithExpiry(d time.Duration) GeneratorOption {
	return func(g *SignalGenerator) { g.expiry = d }
}

func NewSignalGenerator(opts ...GeneratorOption) *SignalGenerator {
	g := &SignalGenerator{
		riskPct:    1.0,
		defaultRR:  2.0,
		maxRR:      3.0,
		atrMult:    1.5,
		expiry:     time.Hour,
		maxReasons: 5,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate builds a TradingSignal from an actionable consensus.
// Returns nil when the consensus does not warrant a trade.
func (g *SignalGenerator) Generate(
	consensus *models.ConsensusResult,
	indicators map[string]float64,
	currentPrice, balance float64,
) *models.TradingSignal {
	if consensus == nil || !consensus.Actionable {
		return nil
	}
	if consensus.Direction != models.Long && consensus.Direction != models.Short {
		return nil
	}
	isLong := consensus.Direction == models.Long

	entry := currentPrice
	if entry <= 0 {
		entry = indicators["ema_9"]
	}
	if entry <= 0 {
		return nil
	}

	atr := indicators["atr_14"]
	if atr <= 0 {
		atr = entry * 0.01
	}
	atrDist := atr * g.atrMult

	// Stop: tighter of the ATR stop and the nearest structure level that
	// sits on the correct side of entry.
	var sl float64
	if isLong {
		atrSL := entry - atrDist
		structure := indicators["nearest_support"]
		if structure > 0 && structure < entry {
			sl = math.Max(atrSL, structure)
		} else {
			sl = atrSL
		}
	} else {
		atrSL := entry + atrDist
		structure := indicators["nearest_resistance"]
		if structure > entry {
			sl = math.Min(atrSL, structure)
		} else {
			sl = atrSL
		}
	}

	rr := g.defaultRR
	if consensus.AvgConfidence > 0.75 {
		rr = g.maxRR
	}

	riskDist := math.Abs(entry - sl)
	if riskDist <= 0 {
		return nil
	}
	var tp, tp2 float64
	if isLong {
		tp = entry + riskDist*rr
		tp2 = entry + riskDist*rr*0.5
	} else {
		tp = entry - riskDist*rr
		tp2 = entry - riskDist*rr*0.5
	}

	riskAmount := balance * (g.riskPct / 100.0)
	size := riskAmount / riskDist

	reasons := collectReasons(consensus, g.maxReasons)
	now := time.Now().UTC()
	return &models.TradingSignal{
		ID:             fmt.Sprintf("%s-%d", consensus.Symbol, now.UnixNano()),
		Timestamp:      now,
		Symbol:         consensus.Symbol,
		Direction:      consensus.Direction,
		SignalType:     "MARKET",
		Entry:          round6(entry),
		StopLoss:       round6(sl),
		TakeProfit:     round6(tp),
		TakeProfit2:    round6(tp2),
		Size:           round4(size),
		RiskPct:        g.riskPct,
		RiskReward:     rr,
		Confidence:     consensus.AvgConfidence,
		ConsensusScore: consensus.Score,
		Agreement:      consensus.Agreement,
		Status:         models.SignalPending,
		ExpiresAt:      now.Add(g.expiry),
		Reasons:        reasons,
	}
}

func collectReasons(consensus *models.ConsensusResult, limit int) []string {
	reasons := make([]string, 0, limit)
	for _, v := range consensus.Votes {
		if v.Reason == "" {
			continue
		}
		reasons = append(reasons, fmt.Sprintf("%s: %s", v.Agent, v.Reason))
		if len(reasons) == limit {
			break
		}
	}
	return reasons
}

func round6(v float64) float64 { return math.Round(v*1e6) / 1e6 }
func round4(v float64) float64 { return math.Round(v*1e4) / 1e4 }
