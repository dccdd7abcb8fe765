package analysis

import "math"

// Rolling-window and smoothing primitives over float64 series.
// Warmup positions are NaN; callers go through last()/safe() before
// exposing values.

func safe(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// last returns the last non-NaN value of s, or 0.
func last(s []float64) float64 {
	for i := len(s) - 1; i >= 0; i-- {
		if !math.IsNaN(s[i]) {
			return safe(s[i])
		}
	}
	return 0
}

// ema computes an exponential moving average with alpha = 2/(span+1),
// seeded with the first value.
func ema(vals []float64, span int) []float64 {
	out := make([]float64, len(vals))
	if len(vals) == 0 {
		return out
	}
	alpha := 2.0 / (float64(span) + 1.0)
	out[0] = vals[0]
	for i := 1; i < len(vals); i++ {
		out[i] = alpha*vals[i] + (1-alpha)*out[i-1]
	}
	return out
}

// wilder computes a Wilder-style smoothed average with alpha = 1/period.
func wilder(vals []float64, period int) []float64 {
	out := make([]float64, len(vals))
	if len(vals) == 0 {
		return out
	}
	alpha := 1.0 / float64(period)
	prev := vals[0]
	out[0] = prev
	for i := 1; i < len(vals); i++ {
		v := vals[i]
		if math.IsNaN(v) {
			out[i] = prev
			continue
		}
		prev = alpha*v + (1-alpha)*prev
		out[i] = prev
	}
	return out
}

func rollingMean(vals []float64, window int) []float64 {
	out := nanSeries(len(vals))
	if window <= 0 || len(vals) < window {
		return out
	}
	sum := 0.0
	for i, v := range vals {
		sum += v
		if i >= window {
			sum -= vals[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// rollingStd computes the sample standard deviation (ddof=1) per window.
func rollingStd(vals []float64, window int) []float64 {
	out := nanSeries(len(vals))
	if window <= 1 || len(vals) < window {
		return out
	}
	for i := window - 1; i < len(vals); i++ {
		sum, sum2 := 0.0, 0.0
		for j := i - window + 1; j <= i; j++ {
			sum += vals[j]
			sum2 += vals[j] * vals[j]
		}
		n := float64(window)
		mean := sum / n
		variance := (sum2 - n*mean*mean) / (n - 1)
		if variance < 0 {
			variance = 0
		}
		out[i] = math.Sqrt(variance)
	}
	return out
}

func rollingMax(vals []float64, window int) []float64 {
	out := nanSeries(len(vals))
	if window <= 0 || len(vals) < window {
		return out
	}
	for i := window - 1; i < len(vals); i++ {
		m := vals[i-window+1]
		for j := i - window + 2; j <= i; j++ {
			if vals[j] > m {
				m = vals[j]
			}
		}
		out[i] = m
	}
	return out
}

func rollingMin(vals []float64, window int) []float64 {
	out := nanSeries(len(vals))
	if window <= 0 || len(vals) < window {
		return out
	}
	for i := window - 1; i < len(vals); i++ {
		m := vals[i-window+1]
		for j := i - window + 2; j <= i; j++ {
			if vals[j] < m {
				m = vals[j]
			}
		}
		out[i] = m
	}
	return out
}

func rollingSum(vals []float64, window int) []float64 {
	out := nanSeries(len(vals))
	if window <= 0 || len(vals) < window {
		return out
	}
	sum := 0.0
	for i, v := range vals {
		sum += v
		if i >= window {
			sum -= vals[i-window]
		}
		if i >= window-1 {
			out[i] = sum
		}
	}
	return out
}

// trueRange computes the TR series; index 0 falls back to high-low.
func trueRange(high, low, close []float64) []float64 {
	out := make([]float64, len(high))
	for i := range high {
		hl := high[i] - low[i]
		if i == 0 {
			out[i] = hl
			continue
		}
		hc := math.Abs(high[i] - close[i-1])
		lc := math.Abs(low[i] - close[i-1])
		out[i] = math.Max(hl, math.Max(hc, lc))
	}
	return out
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
