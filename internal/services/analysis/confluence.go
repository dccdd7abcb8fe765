package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"TradePulse/internal/domain/models"
)

// DefaultThreshold is the confluence score magnitude required for a signal.
const DefaultThreshold = 0.60

// TimeframeWeights reflect how much each resolution counts toward the
// final score. Higher timeframes carry the trend, lower ones the timing.
var TimeframeWeights = map[string]float64{
	"1d":  0.35,
	"4h":  0.25,
	"1h":  0.20,
	"15m": 0.12,
	"5m":  0.08,
}

const fallbackTFWeight = 0.05

// Confluence scores directional bias across timeframes for one symbol.
type Confluence struct {
	engine    *Engine
	weights   map[string]float64
	threshold float64
}

func NewConfluence(engine *Engine) *Confluence {
	return &Confluence{
		engine:    engine,
		weights:   TimeframeWeights,
		threshold: DefaultThreshold,
	}
}

// SetThreshold overrides the actionable score boundary.
func (c *Confluence) SetThreshold(t float64) { c.threshold = t }

// Analyse computes indicators per timeframe and blends them into one verdict.
func (c *Confluence) Analyse(symbol string, candles map[string][]models.Candle) *models.ConfluenceResult {
	indicators := make(map[string]map[string]float64, len(candles))
	for tf, bars := range candles {
		ind, err := c.engine.Compute(bars)
		if err != nil {
			continue
		}
		indicators[tf] = ind
	}
	return c.Score(symbol, indicators)
}

// Score blends precomputed per-timeframe feature vectors into one verdict.
func (c *Confluence) Score(symbol string, indicators map[string]map[string]float64) *models.ConfluenceResult {
	res := &models.ConfluenceResult{
		Symbol:    symbol,
		Direction: models.Neutral,
		Timestamp: time.Now().UTC(),
	}

	var totalWeight, weighted float64
	for tf, ind := range indicators {
		weight, ok := c.weights[tf]
		if !ok {
			weight = fallbackTFWeight
		}
		score, components := scoreTimeframe(ind)
		res.Timeframes = append(res.Timeframes, models.TimeframeScore{
			TF:         tf,
			Score:      round4(score),
			Components: components,
		})
		totalWeight += weight
		weighted += score * weight
	}
	sort.Slice(res.Timeframes, func(i, j int) bool { return res.Timeframes[i].TF < res.Timeframes[j].TF })

	if totalWeight == 0 {
		res.Reasons = []string{"no timeframe data available"}
		return res
	}

	raw := weighted / totalWeight
	res.Score = round4(raw)

	// Confidence is the fraction of timeframes agreeing with the majority sign.
	majority := 1.0
	if raw < 0 {
		majority = -1.0
	}
	agreeing := 0
	for _, ts := range res.Timeframes {
		if (ts.Score >= 0) == (majority >= 0) {
			agreeing++
		}
	}
	res.Confidence = round3(float64(agreeing) / float64(len(res.Timeframes)))

	switch {
	case raw >= c.threshold:
		res.Direction = models.Long
		res.Reasons = append(res.Reasons, fmt.Sprintf("confluence score %.2f above threshold +%.2f", raw, c.threshold))
	case raw <= -c.threshold:
		res.Direction = models.Short
		res.Reasons = append(res.Reasons, fmt.Sprintf("confluence score %.2f below threshold -%.2f", raw, c.threshold))
	default:
		res.Reasons = append(res.Reasons, fmt.Sprintf("score %.2f inside neutral zone (±%.2f)", raw, c.threshold))
	}

	for _, ts := range res.Timeframes {
		bias := "bullish"
		if ts.Score < 0 {
			bias = "bearish"
		}
		res.Reasons = append(res.Reasons, fmt.Sprintf("%s: %+.2f (%s) trend=%+.2f mom=%+.2f",
			strings.ToUpper(ts.TF), ts.Score, bias, ts.Components["trend"], ts.Components["momentum"]))
	}
	return res
}

// scoreTimeframe converts one feature vector into a directional score
// weighted across subcategories.
func scoreTimeframe(ind map[string]float64) (float64, map[string]float64) {
	trend := scoreTrend(ind)
	momentum := scoreMomentum(ind)
	volatility := scoreVolatility(ind)
	volume := scoreVolume(ind)
	pattern := scorePatterns(ind)
	sr := scoreSupportResistance(ind)

	score := trend*0.30 + momentum*0.25 + volatility*0.10 + volume*0.10 + pattern*0.10 + sr*0.15
	score = clamp(score, -1, 1)

	return score, map[string]float64{
		"trend":      round4(trend),
		"momentum":   round4(momentum),
		"volatility": round4(volatility),
		"volume":     round4(volume),
		"pattern":    round4(pattern),
		"sr":         round4(sr),
	}
}

func scoreTrend(ind map[string]float64) float64 {
	score := 0.0
	n := 0

	score += ind["ema_alignment"]
	n++

	score += ind["supertrend_direction"]
	n++

	if adx := ind["adx_14"]; adx > 25 {
		bias := -1.0
		if ind["di_plus"] > ind["di_minus"] {
			bias = 1.0
		}
		score += bias * math.Min(adx/50.0, 1.0)
		n++
	}

	senkouA, senkouB, e9 := ind["ichimoku_senkou_a"], ind["ichimoku_senkou_b"], ind["ema_9"]
	if senkouA != 0 && senkouB != 0 && e9 != 0 {
		cloudTop := math.Max(senkouA, senkouB)
		cloudBot := math.Min(senkouA, senkouB)
		if e9 > cloudTop {
			score += 1.0
		} else if e9 < cloudBot {
			score -= 1.0
		}
		n++
	}

	score += ind["psar_direction"]
	n++

	return clamp(score/float64(max(n, 1)), -1, 1)
}

func scoreMomentum(ind map[string]float64) float64 {
	score := 0.0
	n := 0

	rsi := indOr(ind, "rsi_14", 50)
	switch {
	case rsi > 70:
		score -= 0.5
	case rsi > 55:
		score += (rsi - 50) / 20.0
	case rsi < 30:
		score += 0.5
	case rsi < 45:
		score -= (50 - rsi) / 20.0
	}
	n++

	hist := ind["macd_histogram"]
	signal := math.Max(math.Abs(ind["macd_signal"]), 0.001)
	if hist > 0 {
		score += math.Min(hist/signal, 1.0)
	} else {
		score += math.Max(hist/signal, -1.0)
	}
	n++

	k := indOr(ind, "stoch_k", 50)
	d := indOr(ind, "stoch_d", 50)
	if k > 80 {
		score -= 0.3
	} else if k < 20 {
		score += 0.3
	}
	if k > d {
		score += 0.2
	} else {
		score -= 0.2
	}
	n++

	if cci := ind["cci_20"]; cci > 100 {
		score += 0.5
	} else if cci < -100 {
		score -= 0.5
	}
	n++

	wr := indOr(ind, "williams_r", -50)
	if wr > -20 {
		score -= 0.3
	} else if wr < -80 {
		score += 0.3
	}
	n++

	return clamp(score/float64(max(n, 1)), -1, 1)
}

// scoreVolatility rewards squeezes and trending conditions rather than a
// direction of its own.
func scoreVolatility(ind map[string]float64) float64 {
	score := 0.0
	if ind["bb_bandwidth"] < 0.04 {
		score += 0.5
	}
	pctB := indOr(ind, "bb_percent_b", 0.5)
	if pctB > 1.0 {
		score += 0.3
	} else if pctB < 0.0 {
		score -= 0.3
	}
	chop := indOr(ind, "choppiness_14", 50)
	if chop < 40 {
		score += 0.3
	} else if chop > 60 {
		score -= 0.3
	}
	return clamp(score, -1, 1)
}

func scoreVolume(ind map[string]float64) float64 {
	score := 0.0
	if ind["volume_surge"] != 0 {
		score += 0.4
	}
	if cmf := ind["cmf_20"]; cmf > 0.05 {
		score += 0.3
	} else if cmf < -0.05 {
		score -= 0.3
	}
	mfi := indOr(ind, "mfi_14", 50)
	if mfi > 80 {
		score -= 0.2
	} else if mfi < 20 {
		score += 0.2
	}
	ratio := indOr(ind, "volume_ratio", 1)
	if ratio > 2.0 {
		score += 0.2
	} else if ratio < 0.5 {
		score -= 0.1
	}
	return clamp(score, -1, 1)
}

func scorePatterns(ind map[string]float64) float64 {
	total := 0.0
	count := 0
	for k, v := range ind {
		if strings.HasPrefix(k, "pattern_") {
			total += v
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return clamp(total/float64(count), -1, 1)
}

func scoreSupportResistance(ind map[string]float64) float64 {
	score := 0.0
	if ind["near_support"] != 0 {
		score += 0.5
	}
	if ind["near_resistance"] != 0 {
		score -= 0.5
	}
	return clamp(score, -1, 1)
}

func indOr(ind map[string]float64, key string, def float64) float64 {
	if v, ok := ind[key]; ok {
		return v
	}
	return def
}

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
