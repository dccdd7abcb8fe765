package analysis

import (
	"fmt"
	"math"

	"TradePulse/internal/domain/models"
)

// MinBars is the minimum number of candles the engine needs.
const MinBars = 20

// Engine computes the full technical feature vector for a candle window.
// The flat map it returns doubles as the ML feature vector, so key names
// are part of the contract with the predictors and the confluence scorer.
type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

// Compute calculates all indicator groups over candles (oldest first).
func (e *Engine) Compute(candles []models.Candle) (map[string]float64, error) {
	if len(candles) < MinBars {
		return nil, fmt.Errorf("indicators: need at least %d candles, got %d", MinBars, len(candles))
	}

	n := len(candles)
	open := make([]float64, n)
	high := make([]float64, n)
	low := make([]float64, n)
	close := make([]float64, n)
	volume := make([]float64, n)
	for i, c := range candles {
		open[i] = c.Open
		high[i] = c.High
		low[i] = c.Low
		close[i] = c.Close
		volume[i] = c.Volume
	}

	out := make(map[string]float64, 80)
	e.trend(out, open, high, low, close, volume)
	e.momentum(out, high, low, close)
	e.volatility(out, high, low, close)
	e.volumeFlow(out, high, low, close, volume)
	e.supportResistance(out, high, low, close)
	patterns(out, open, high, low, close)
	out["close"] = close[n-1]
	return out, nil
}

func (e *Engine) trend(out map[string]float64, open, high, low, close, volume []float64) {
	n := len(close)

	for _, p := range []int{9, 20, 50, 200} {
		out[fmt.Sprintf("ema_%d", p)] = last(ema(close, p))
	}
	for _, p := range []int{20, 50} {
		out[fmt.Sprintf("sma_%d", p)] = last(rollingMean(close, p))
	}

	// VWAP over the window; falls back to close when there is no volume.
	var cumPV, cumV float64
	for i := range close {
		tp := (high[i] + low[i] + close[i]) / 3.0
		cumPV += tp * volume[i]
		cumV += volume[i]
	}
	if cumV > 0 {
		out["vwap"] = cumPV / cumV
	} else {
		out["vwap"] = close[n-1]
	}

	stVal, stDir := supertrend(high, low, close, 10, 3.0)
	out["supertrend"] = stVal
	out["supertrend_direction"] = stDir

	adxVal, diPlus, diMinus := adx(high, low, close, 14)
	out["adx_14"] = adxVal
	out["di_plus"] = diPlus
	out["di_minus"] = diMinus

	ichimoku(out, high, low, close)

	psarVal, psarDir := parabolicSAR(high, low, 0.02, 0.02, 0.20)
	out["psar"] = psarVal
	out["psar_direction"] = psarDir

	e9, e20, e50, e200 := out["ema_9"], out["ema_20"], out["ema_50"], out["ema_200"]
	switch {
	case e9 > e20 && e20 > e50 && e50 > e200:
		out["ema_alignment"] = 1.0
	case e9 < e20 && e20 < e50 && e50 < e200:
		out["ema_alignment"] = -1.0
	default:
		out["ema_alignment"] = 0.0
	}
}

func (e *Engine) momentum(out map[string]float64, high, low, close []float64) {
	n := len(close)

	out["rsi_14"] = rsi(close, 14)

	k, d := stochastic(high, low, close, 14, 3, 3)
	out["stoch_k"] = k
	out["stoch_d"] = d

	line, signal, hist := macd(close, 12, 26, 9)
	out["macd_line"] = line
	out["macd_signal"] = signal
	out["macd_histogram"] = hist

	out["cci_20"] = cci(high, low, close, 20)
	out["williams_r"] = williamsR(high, low, close, 14)

	if n > 10 && close[n-11] != 0 {
		out["roc_10"] = (close[n-1]/close[n-11] - 1) * 100
	} else {
		out["roc_10"] = 0
	}
}

func (e *Engine) volatility(out map[string]float64, high, low, close []float64) {
	n := len(close)
	tr := trueRange(high, low, close)
	atr := wilder(tr, 14)
	atrLast := last(atr)
	out["atr_14"] = atrLast

	lastClose := close[n-1]
	if lastClose > 0 {
		out["atr_pct"] = atrLast / lastClose * 100
	} else {
		out["atr_pct"] = 0
	}

	mid := last(rollingMean(close, 20))
	std := last(rollingStd(close, 20))
	upper := mid + 2*std
	lower := mid - 2*std
	out["bb_upper"] = upper
	out["bb_middle"] = mid
	out["bb_lower"] = lower
	if mid > 0 {
		out["bb_bandwidth"] = (upper - lower) / mid
	} else {
		out["bb_bandwidth"] = 0
	}
	if upper-lower > 0 {
		out["bb_percent_b"] = (lastClose - lower) / (upper - lower)
	} else {
		out["bb_percent_b"] = 0.5
	}

	kcMid := last(ema(close, 20))
	out["kc_upper"] = kcMid + 2*atrLast
	out["kc_middle"] = kcMid
	out["kc_lower"] = kcMid - 2*atrLast

	// Historical volatility, annualized.
	returns := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		if close[i-1] != 0 {
			returns = append(returns, close[i]/close[i-1]-1)
		}
	}
	if len(returns) >= 21 {
		out["hv_21"] = last(rollingStd(returns, 21)) * math.Sqrt(252) * 100
	} else {
		out["hv_21"] = 0
	}

	out["choppiness_14"] = choppiness(high, low, close, 14)
}

func (e *Engine) volumeFlow(out map[string]float64, high, low, close, volume []float64) {
	n := len(close)

	obv := 0.0
	for i := 1; i < n; i++ {
		switch {
		case close[i] > close[i-1]:
			obv += volume[i]
		case close[i] < close[i-1]:
			obv -= volume[i]
		}
	}
	out["obv"] = obv

	out["cmf_20"] = cmf(high, low, close, volume, 20)
	out["mfi_14"] = mfi(high, low, close, volume, 14)

	volSMA := last(rollingMean(volume, 20))
	out["volume_sma_20"] = volSMA
	lastVol := volume[n-1]
	if volSMA > 0 && lastVol > 1.5*volSMA {
		out["volume_surge"] = 1.0
	} else {
		out["volume_surge"] = 0.0
	}
	if volSMA > 0 {
		out["volume_ratio"] = lastVol / volSMA
	} else {
		out["volume_ratio"] = 1.0
	}
}

func (e *Engine) supportResistance(out map[string]float64, high, low, close []float64) {
	n := len(close)
	lastClose := close[n-1]

	// Classic pivots off the previous bar.
	prevH, prevL, prevC := high[n-1], low[n-1], close[n-1]
	if n > 1 {
		prevH, prevL, prevC = high[n-2], low[n-2], close[n-2]
	}
	pivot := (prevH + prevL + prevC) / 3.0
	out["pivot"] = pivot
	out["pivot_r1"] = 2*pivot - prevL
	out["pivot_s1"] = 2*pivot - prevH
	out["pivot_r2"] = pivot + (prevH - prevL)
	out["pivot_s2"] = pivot - (prevH - prevL)

	// Fibonacci retracements from the last 50 bars.
	if n >= 50 {
		fibHigh, fibLow := high[n-50], low[n-50]
		for i := n - 50; i < n; i++ {
			if high[i] > fibHigh {
				fibHigh = high[i]
			}
			if low[i] < fibLow {
				fibLow = low[i]
			}
		}
		fibRange := fibHigh - fibLow
		out["fib_236"] = fibHigh - fibRange*0.236
		out["fib_382"] = fibHigh - fibRange*0.382
		out["fib_500"] = fibHigh - fibRange*0.500
		out["fib_618"] = fibHigh - fibRange*0.618
		out["fib_786"] = fibHigh - fibRange*0.786
	} else {
		out["fib_236"], out["fib_382"], out["fib_500"] = 0, 0, 0
		out["fib_618"], out["fib_786"] = 0, 0
	}

	support, resistance := swingLevels(high, low, 5)
	out["nearest_support"] = support
	out["nearest_resistance"] = resistance
	ref := math.Max(lastClose, 1e-10)
	out["near_support"] = boolToFloat(math.Abs(lastClose-support)/ref < 0.005)
	out["near_resistance"] = boolToFloat(math.Abs(lastClose-resistance)/ref < 0.005)

	// Nearest round-number level by price magnitude.
	switch {
	case lastClose > 100:
		out["round_number"] = math.Round(lastClose/100) * 100
	case lastClose > 1:
		out["round_number"] = math.Round(lastClose/0.005) * 0.005
	default:
		out["round_number"] = math.Round(lastClose*10000) / 10000
	}
}

// --- individual indicator calculations ---

func rsi(close []float64, period int) float64 {
	if len(close) < period+1 {
		return 0
	}
	gains := make([]float64, len(close))
	losses := make([]float64, len(close))
	for i := 1; i < len(close); i++ {
		d := close[i] - close[i-1]
		if d > 0 {
			gains[i] = d
		} else {
			losses[i] = -d
		}
	}
	avgGain := last(wilder(gains[1:], period))
	avgLoss := last(wilder(losses[1:], period))
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

func stochastic(high, low, close []float64, kPeriod, dPeriod, smooth int) (float64, float64) {
	n := len(close)
	if n < kPeriod {
		return 50, 50
	}
	lowest := rollingMin(low, kPeriod)
	highest := rollingMax(high, kPeriod)
	raw := nanSeries(n)
	for i := kPeriod - 1; i < n; i++ {
		rng := highest[i] - lowest[i]
		if rng > 0 {
			raw[i] = (close[i] - lowest[i]) / rng * 100
		}
	}
	k := rollingMeanNaN(raw, smooth)
	d := rollingMeanNaN(k, dPeriod)
	return last(k), last(d)
}

// rollingMeanNaN averages the last window values, skipping NaN entries.
func rollingMeanNaN(vals []float64, window int) []float64 {
	out := nanSeries(len(vals))
	for i := window - 1; i < len(vals); i++ {
		sum, cnt := 0.0, 0
		for j := i - window + 1; j <= i; j++ {
			if !math.IsNaN(vals[j]) {
				sum += vals[j]
				cnt++
			}
		}
		if cnt > 0 {
			out[i] = sum / float64(cnt)
		}
	}
	return out
}

func macd(close []float64, fast, slow, signal int) (float64, float64, float64) {
	emaFast := ema(close, fast)
	emaSlow := ema(close, slow)
	line := make([]float64, len(close))
	for i := range close {
		line[i] = emaFast[i] - emaSlow[i]
	}
	sig := ema(line, signal)
	return last(line), last(sig), last(line) - last(sig)
}

func cci(high, low, close []float64, period int) float64 {
	n := len(close)
	if n < period {
		return 0
	}
	tp := make([]float64, n)
	for i := range close {
		tp[i] = (high[i] + low[i] + close[i]) / 3.0
	}
	sum := 0.0
	for i := n - period; i < n; i++ {
		sum += tp[i]
	}
	mean := sum / float64(period)
	mad := 0.0
	for i := n - period; i < n; i++ {
		mad += math.Abs(tp[i] - mean)
	}
	mad /= float64(period)
	if mad == 0 {
		return 0
	}
	return (tp[n-1] - mean) / (0.015 * mad)
}

func williamsR(high, low, close []float64, period int) float64 {
	n := len(close)
	if n < period {
		return -50
	}
	highest := high[n-period]
	lowest := low[n-period]
	for i := n - period; i < n; i++ {
		if high[i] > highest {
			highest = high[i]
		}
		if low[i] < lowest {
			lowest = low[i]
		}
	}
	if highest == lowest {
		return -50
	}
	return -100 * (highest - close[n-1]) / (highest - lowest)
}

func supertrend(high, low, close []float64, period int, multiplier float64) (float64, float64) {
	n := len(close)
	if n < 2 {
		return 0, 1
	}
	atr := wilder(trueRange(high, low, close), period)
	upperBand := make([]float64, n)
	lowerBand := make([]float64, n)
	for i := range close {
		hl2 := (high[i] + low[i]) / 2.0
		upperBand[i] = hl2 + multiplier*atr[i]
		lowerBand[i] = hl2 - multiplier*atr[i]
	}
	value := 0.0
	dir := 1.0
	for i := 1; i < n; i++ {
		switch {
		case close[i] > upperBand[i-1]:
			dir = 1.0
		case close[i] < lowerBand[i-1]:
			dir = -1.0
		}
		if dir == 1.0 {
			value = lowerBand[i]
		} else {
			value = upperBand[i]
		}
	}
	return value, dir
}

func adx(high, low, close []float64, period int) (float64, float64, float64) {
	n := len(close)
	if n < period+1 {
		return 0, 0, 0
	}
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		up := high[i] - high[i-1]
		down := low[i-1] - low[i]
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}
	atr := wilder(trueRange(high, low, close), period)
	smPlus := wilder(plusDM, period)
	smMinus := wilder(minusDM, period)

	dx := make([]float64, n)
	var diPlus, diMinus float64
	for i := range close {
		if atr[i] == 0 {
			continue
		}
		p := 100 * smPlus[i] / atr[i]
		m := 100 * smMinus[i] / atr[i]
		if p+m > 0 {
			dx[i] = 100 * math.Abs(p-m) / (p + m)
		}
		if i == n-1 {
			diPlus, diMinus = p, m
		}
	}
	return last(wilder(dx, period)), diPlus, diMinus
}

func ichimoku(out map[string]float64, high, low, close []float64) {
	n := len(close)
	tenkan := (last(rollingMax(high, 9)) + last(rollingMin(low, 9))) / 2.0
	kijun := (last(rollingMax(high, 26)) + last(rollingMin(low, 26))) / 2.0
	out["ichimoku_tenkan"] = tenkan
	out["ichimoku_kijun"] = kijun
	out["ichimoku_senkou_a"] = (tenkan + kijun) / 2.0
	if n >= 52 {
		out["ichimoku_senkou_b"] = (last(rollingMax(high, 52)) + last(rollingMin(low, 52))) / 2.0
	} else {
		out["ichimoku_senkou_b"] = (last(rollingMax(high, n)) + last(rollingMin(low, n))) / 2.0
	}
	if n > 26 {
		out["ichimoku_chikou"] = close[n-1-26]
	} else {
		out["ichimoku_chikou"] = 0
	}
}

func parabolicSAR(high, low []float64, afStart, afStep, afMax float64) (float64, float64) {
	n := len(high)
	if n < 2 {
		return 0, 1
	}
	psar := low[0]
	dir := 1.0
	af := afStart
	ep := high[0]
	for i := 1; i < n; i++ {
		psar = psar + af*(ep-psar)
		if dir == 1 {
			if psar > low[i-1] {
				psar = low[i-1]
			}
			if low[i] < psar {
				dir = -1
				psar = ep
				af = afStart
				ep = low[i]
			} else if high[i] > ep {
				ep = high[i]
				af = math.Min(af+afStep, afMax)
			}
		} else {
			if psar < high[i-1] {
				psar = high[i-1]
			}
			if high[i] > psar {
				dir = 1
				psar = ep
				af = afStart
				ep = high[i]
			} else if low[i] < ep {
				ep = low[i]
				af = math.Min(af+afStep, afMax)
			}
		}
	}
	return psar, dir
}

func choppiness(high, low, close []float64, period int) float64 {
	n := len(close)
	if n < period {
		return 50
	}
	tr := trueRange(high, low, close)
	atrSum := last(rollingSum(tr, period))
	rng := last(rollingMax(high, period)) - last(rollingMin(low, period))
	if rng <= 0 || atrSum <= 0 {
		return 50
	}
	return 100 * math.Log10(atrSum/rng) / math.Log10(float64(period))
}

func cmf(high, low, close, volume []float64, period int) float64 {
	n := len(close)
	if n < period {
		return 0
	}
	var mfvSum, volSum float64
	for i := n - period; i < n; i++ {
		rng := high[i] - low[i]
		if rng == 0 {
			continue
		}
		mfm := ((close[i] - low[i]) - (high[i] - close[i])) / rng
		mfvSum += mfm * volume[i]
		volSum += volume[i]
	}
	if volSum == 0 {
		return 0
	}
	return mfvSum / volSum
}

func mfi(high, low, close, volume []float64, period int) float64 {
	n := len(close)
	if n < period+1 {
		return 50
	}
	var pos, neg float64
	for i := n - period; i < n; i++ {
		tp := (high[i] + low[i] + close[i]) / 3.0
		prevTP := (high[i-1] + low[i-1] + close[i-1]) / 3.0
		mf := tp * volume[i]
		if tp > prevTP {
			pos += mf
		} else if tp < prevTP {
			neg += mf
		}
	}
	if neg == 0 {
		if pos == 0 {
			return 50
		}
		return 100
	}
	ratio := pos / neg
	return 100 - 100/(1+ratio)
}

func swingLevels(high, low []float64, lookback int) (float64, float64) {
	n := len(high)
	var swingHighs, swingLows []float64
	for i := lookback; i < n-lookback; i++ {
		isHigh, isLow := true, true
		for j := i - lookback; j <= i+lookback; j++ {
			if high[j] > high[i] {
				isHigh = false
			}
			if low[j] < low[i] {
				isLow = false
			}
		}
		if isHigh {
			swingHighs = append(swingHighs, high[i])
		}
		if isLow {
			swingLows = append(swingLows, low[i])
		}
	}

	ref := (high[n-1] + low[n-1]) / 2.0

	support := minOf(low)
	if len(swingLows) > 0 {
		below := -math.MaxFloat64
		for _, s := range swingLows {
			if s < ref && s > below {
				below = s
			}
		}
		if below != -math.MaxFloat64 {
			support = below
		} else {
			support = minOf(swingLows)
		}
	}

	resistance := maxOf(high)
	if len(swingHighs) > 0 {
		above := math.MaxFloat64
		for _, r := range swingHighs {
			if r > ref && r < above {
				above = r
			}
		}
		if above != math.MaxFloat64 {
			resistance = above
		} else {
			resistance = maxOf(swingHighs)
		}
	}
	return safe(support), safe(resistance)
}

func minOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals {
		if v > m {
			m = v
		}
	}
	return m
}

func boolToFloat(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}
