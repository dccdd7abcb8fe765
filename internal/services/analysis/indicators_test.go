package analysis

import (
	"math"
	"testing"
	"time"

	"TradePulse/internal/domain/models"
)

func trendingCandles(n int, start, step float64) []models.Candle {
	out := make([]models.Candle, n)
	ts := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	price := start
	for i := 0; i < n; i++ {
		open := price
		price += step
		c := models.Candle{
			Bucket: ts.Add(time.Duration(i) * time.Hour),
			Symbol: "BTCUSDT",
			TF:     "1h",
			Open:   open,
			Close:  price,
			Volume: 100,
		}
		c.High = math.Max(open, price) + math.Abs(step)*0.2
		c.Low = math.Min(open, price) - math.Abs(step)*0.2
		out[i] = c
	}
	return out
}

func TestComputeRequiresMinBars(t *testing.T) {
	e := NewEngine()
	if _, err := e.Compute(trendingCandles(MinBars-1, 100, 1)); err == nil {
		t.Fatalf("expected error for short window")
	}
}

func TestComputeUptrend(t *testing.T) {
	e := NewEngine()
	ind, err := e.Compute(trendingCandles(250, 100, 1))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	if ind["ema_alignment"] != 1.0 {
		t.Fatalf("expected bullish ema alignment, got %v", ind["ema_alignment"])
	}
	if ind["ema_9"] <= ind["ema_200"] {
		t.Fatalf("ema_9 %v should exceed ema_200 %v in uptrend", ind["ema_9"], ind["ema_200"])
	}
	if ind["rsi_14"] < 50 || ind["rsi_14"] > 100 {
		t.Fatalf("rsi out of bullish range: %v", ind["rsi_14"])
	}
	if ind["supertrend_direction"] != 1.0 {
		t.Fatalf("expected supertrend up, got %v", ind["supertrend_direction"])
	}
	if ind["atr_14"] <= 0 {
		t.Fatalf("atr must be positive, got %v", ind["atr_14"])
	}
	if ind["macd_line"] <= 0 {
		t.Fatalf("macd line should be positive in steady trend, got %v", ind["macd_line"])
	}
	if ind["roc_10"] <= 0 {
		t.Fatalf("roc should be positive in uptrend, got %v", ind["roc_10"])
	}
}

func TestComputeDowntrend(t *testing.T) {
	candles := trendingCandles(200, 500, -1)
	// A crash bar breaks the lower supertrend band; decline continues after.
	price := candles[len(candles)-1].Close
	ts := candles[len(candles)-1].Bucket
	candles = append(candles, models.Candle{
		Bucket: ts.Add(time.Hour), Symbol: "BTCUSDT", TF: "1h",
		Open: price, Close: price - 50, High: price + 1, Low: price - 51, Volume: 500,
	})
	price -= 50
	for i := 1; i <= 20; i++ {
		candles = append(candles, models.Candle{
			Bucket: ts.Add(time.Duration(i+1) * time.Hour), Symbol: "BTCUSDT", TF: "1h",
			Open: price, Close: price - 1, High: price + 0.2, Low: price - 1.2, Volume: 100,
		})
		price--
	}

	e := NewEngine()
	ind, err := e.Compute(candles)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if ind["ema_alignment"] != -1.0 {
		t.Fatalf("expected bearish ema alignment, got %v", ind["ema_alignment"])
	}
	if ind["rsi_14"] > 50 {
		t.Fatalf("rsi should be below 50 in downtrend, got %v", ind["rsi_14"])
	}
	if ind["supertrend_direction"] != -1.0 {
		t.Fatalf("expected supertrend down, got %v", ind["supertrend_direction"])
	}
}

func TestVolumeSurge(t *testing.T) {
	candles := trendingCandles(60, 100, 0.5)
	candles[len(candles)-1].Volume = 1000 // 10x the baseline
	e := NewEngine()
	ind, err := e.Compute(candles)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if ind["volume_surge"] != 1.0 {
		t.Fatalf("expected volume surge flag, ratio=%v", ind["volume_ratio"])
	}
	if ind["volume_ratio"] < 1.5 {
		t.Fatalf("expected elevated volume ratio, got %v", ind["volume_ratio"])
	}
}

func TestBullishEngulfingPattern(t *testing.T) {
	candles := trendingCandles(30, 100, 0.1)
	n := len(candles)
	// Prior bar bearish, last bar engulfs it.
	candles[n-2].Open = 105
	candles[n-2].Close = 104
	candles[n-2].High = 105.2
	candles[n-2].Low = 103.8
	candles[n-1].Open = 103.9
	candles[n-1].Close = 105.5
	candles[n-1].High = 105.6
	candles[n-1].Low = 103.8

	e := NewEngine()
	ind, err := e.Compute(candles)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if ind["pattern_bullish_engulfing"] != 1.0 {
		t.Fatalf("expected bullish engulfing, got %v", ind["pattern_bullish_engulfing"])
	}
}

func TestDojiPattern(t *testing.T) {
	candles := trendingCandles(30, 100, 0.1)
	n := len(candles)
	candles[n-1].Open = 103
	candles[n-1].Close = 103.01
	candles[n-1].High = 104
	candles[n-1].Low = 102

	e := NewEngine()
	ind, err := e.Compute(candles)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if ind["doji"] != 1.0 {
		t.Fatalf("expected doji, got %v", ind["doji"])
	}
	// indecision must not lean the directional pattern keys
	if ind["pattern_doji"] != 0 {
		t.Fatalf("doji must not carry a direction, got %v", ind["pattern_doji"])
	}
}

func TestSupportResistanceLevels(t *testing.T) {
	e := NewEngine()
	ind, err := e.Compute(trendingCandles(120, 100, 0.5))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if ind["nearest_support"] <= 0 {
		t.Fatalf("expected a support level, got %v", ind["nearest_support"])
	}
	if ind["pivot_r1"] <= ind["pivot_s1"] {
		t.Fatalf("r1 %v should exceed s1 %v", ind["pivot_r1"], ind["pivot_s1"])
	}
	if ind["fib_236"] <= ind["fib_786"] {
		t.Fatalf("fib levels inverted: 236=%v 786=%v", ind["fib_236"], ind["fib_786"])
	}
}
