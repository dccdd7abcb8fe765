package analysis

import (
	"context"
	"math"
	"sync"
	"time"

	"TradePulse/internal/domain/models"
)

// RegimeDetector labels the market regime from the feature vector using
// volatility, trend strength and moving-average posture. It keeps per-symbol
// state so regime duration survives across cycles.
type RegimeDetector struct {
	mu      sync.Mutex
	current map[string]models.Regime
}

func NewRegimeDetector() *RegimeDetector {
	return &RegimeDetector{current: make(map[string]models.Regime)}
}

// Detect classifies the regime for symbol given its indicator snapshot.
func (d *RegimeDetector) Detect(_ context.Context, symbol string, features map[string]float64) (models.Regime, error) {
	vol := features["hv_21"] / 100.0
	adx := features["adx_14"]
	momentum := features["roc_10"] / 100.0

	smaRatio := 1.0
	if s50 := features["sma_50"]; s50 > 0 {
		smaRatio = features["sma_20"] / s50
	}

	state := models.RegimeRangeBound
	confidence := 0.5
	switch {
	case vol > 0.5:
		state = models.RegimeHighVolatility
		confidence = 0.8
	case vol > 0 && vol < 0.1:
		state = models.RegimeLowVolatility
		confidence = 0.7
	case adx > 25 && smaRatio > 1.02 && momentum > 0.02:
		state = models.RegimeTrendingUp
		confidence = math.Min(adx/50.0, 0.9)
	case adx > 25 && smaRatio < 0.98 && momentum < -0.02:
		state = models.RegimeTrendingDown
		confidence = math.Min(adx/50.0, 0.9)
	case adx < 20 && math.Abs(smaRatio-1) < 0.02:
		state = models.RegimeRangeBound
		confidence = 0.7
	}

	now := time.Now().UTC()
	d.mu.Lock()
	defer d.mu.Unlock()

	prev, ok := d.current[symbol]
	since := now
	if ok && prev.State == state {
		since = prev.Since
	}
	regime := models.Regime{
		Symbol:     symbol,
		State:      state,
		Confidence: confidence,
		Since:      since,
		Timestamp:  now,
	}
	d.current[symbol] = regime
	return regime, nil
}

// Current returns the last detected regime for symbol, if any.
func (d *RegimeDetector) Current(symbol string) (models.Regime, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.current[symbol]
	return r, ok
}
