package analysis

import (
	"context"
	"testing"

	"TradePulse/internal/domain/models"
)

func bullishFeatures() map[string]float64 {
	return map[string]float64{
		"ema_alignment":        1.0,
		"supertrend_direction": 1.0,
		"psar_direction":       1.0,
		"adx_14":               40,
		"di_plus":              30,
		"di_minus":             10,
		"ichimoku_senkou_a":    100,
		"ichimoku_senkou_b":    101,
		"ema_9":                110,
		"rsi_14":               62,
		"macd_histogram":       0.5,
		"macd_signal":          0.4,
		"stoch_k":              65,
		"stoch_d":              55,
		"cci_20":               120,
		"williams_r":           -40,
		"bb_bandwidth":         0.03,
		"bb_percent_b":         1.1,
		"choppiness_14":        35,
		"volume_surge":         1,
		"cmf_20":               0.1,
		"mfi_14":               60,
		"volume_ratio":         2.5,
		"near_support":         1,
		"near_resistance":      0,
		"pattern_bullish_engulfing": 1,
	}
}

func bearishFeatures() map[string]float64 {
	f := bullishFeatures()
	f["ema_alignment"] = -1
	f["supertrend_direction"] = -1
	f["psar_direction"] = -1
	f["di_plus"], f["di_minus"] = 10, 30
	f["ema_9"] = 90
	f["rsi_14"] = 38
	f["macd_histogram"] = -0.5
	f["stoch_k"], f["stoch_d"] = 35, 45
	f["cci_20"] = -120
	f["bb_bandwidth"] = 0.06
	f["bb_percent_b"] = -0.1
	f["choppiness_14"] = 65
	f["cmf_20"] = -0.1
	f["volume_ratio"] = 0.4
	f["volume_surge"] = 0
	f["near_support"], f["near_resistance"] = 0, 1
	delete(f, "pattern_bullish_engulfing")
	f["pattern_bearish_engulfing"] = -1
	return f
}

func TestConfluenceLongSignal(t *testing.T) {
	c := NewConfluence(NewEngine())
	res := c.Score("BTCUSDT", map[string]map[string]float64{
		"1d": bullishFeatures(),
		"4h": bullishFeatures(),
		"1h": bullishFeatures(),
	})
	if res.Direction != models.Long {
		t.Fatalf("expected LONG, got %s (score %v)", res.Direction, res.Score)
	}
	if res.Score < DefaultThreshold || res.Score > 1 {
		t.Fatalf("score out of range: %v", res.Score)
	}
	if res.Confidence != 1.0 {
		t.Fatalf("all timeframes agree, confidence should be 1, got %v", res.Confidence)
	}
}

func TestConfluenceShortSignal(t *testing.T) {
	c := NewConfluence(NewEngine())
	res := c.Score("BTCUSDT", map[string]map[string]float64{
		"1d": bearishFeatures(),
		"4h": bearishFeatures(),
	})
	if res.Direction != models.Short {
		t.Fatalf("expected SHORT, got %s (score %v)", res.Direction, res.Score)
	}
	if res.Score > -DefaultThreshold {
		t.Fatalf("score should be below -threshold, got %v", res.Score)
	}
}

func TestConfluenceNeutralZone(t *testing.T) {
	c := NewConfluence(NewEngine())
	res := c.Score("BTCUSDT", map[string]map[string]float64{
		"1d": bullishFeatures(),
		"4h": bearishFeatures(),
		"1h": bearishFeatures(),
	})
	if res.Direction != models.Neutral {
		t.Fatalf("mixed timeframes should be neutral, got %s (score %v)", res.Direction, res.Score)
	}
	if res.Confidence >= 1.0 {
		t.Fatalf("confidence should drop when timeframes disagree, got %v", res.Confidence)
	}
}

func TestConfluenceNoData(t *testing.T) {
	c := NewConfluence(NewEngine())
	res := c.Score("BTCUSDT", nil)
	if res.Direction != models.Neutral || res.Score != 0 {
		t.Fatalf("empty input should be neutral zero, got %s %v", res.Direction, res.Score)
	}
}

func TestRegimeDetector(t *testing.T) {
	d := NewRegimeDetector()
	ctx := context.Background()

	r, err := d.Detect(ctx, "BTCUSDT", map[string]float64{
		"hv_21": 20, "adx_14": 40, "roc_10": 5, "sma_20": 105, "sma_50": 100,
	})
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if r.State != models.RegimeTrendingUp {
		t.Fatalf("expected trending_up, got %s", r.State)
	}

	r, _ = d.Detect(ctx, "BTCUSDT", map[string]float64{
		"hv_21": 80, "adx_14": 10, "roc_10": 0, "sma_20": 100, "sma_50": 100,
	})
	if r.State != models.RegimeHighVolatility {
		t.Fatalf("expected high_volatility, got %s", r.State)
	}

	r, _ = d.Detect(ctx, "ETHUSDT", map[string]float64{
		"hv_21": 30, "adx_14": 15, "roc_10": 0, "sma_20": 100, "sma_50": 100,
	})
	if r.State != models.RegimeRangeBound {
		t.Fatalf("expected range_bound, got %s", r.State)
	}
}
