package analysis

import "math"

// patterns detects candlestick formations on the last bars of the window.
// Each pattern_ key holds +1 (bullish), -1 (bearish) or 0 (absent). A doji
// is indecision, not a lean, so it is reported under its own key and stays
// out of the directional pattern score.
func patterns(out map[string]float64, open, high, low, close []float64) {
	n := len(close)
	if n < 3 {
		return
	}

	body := math.Abs(close[n-1] - open[n-1])
	upperWick := high[n-1] - math.Max(open[n-1], close[n-1])
	lowerWick := math.Min(open[n-1], close[n-1]) - low[n-1]
	totalRange := high[n-1] - low[n-1]

	out["doji"] = boolToFloat(totalRange > 0 && body/totalRange < 0.1)
	out["pattern_hammer"] = boolToFloat(totalRange > 0 && lowerWick > 2*body && upperWick < body)
	out["pattern_inverted_hammer"] = boolToFloat(totalRange > 0 && upperWick > 2*body && lowerWick < body)

	if totalRange > 0 && upperWick > 2*body && lowerWick < body && close[n-2] < close[n-1] {
		out["pattern_shooting_star"] = -1.0
	} else {
		out["pattern_shooting_star"] = 0.0
	}

	// Engulfing pairs.
	if close[n-2] < open[n-2] && close[n-1] > open[n-1] &&
		open[n-1] <= close[n-2] && close[n-1] >= open[n-2] {
		out["pattern_bullish_engulfing"] = 1.0
	} else {
		out["pattern_bullish_engulfing"] = 0.0
	}
	if close[n-2] > open[n-2] && close[n-1] < open[n-1] &&
		open[n-1] >= close[n-2] && close[n-1] <= open[n-2] {
		out["pattern_bearish_engulfing"] = -1.0
	} else {
		out["pattern_bearish_engulfing"] = 0.0
	}

	// Three-candle stars.
	body3 := math.Abs(close[n-3] - open[n-3])
	body2 := math.Abs(close[n-2] - open[n-2])
	if close[n-3] < open[n-3] && body2 < body3*0.3 &&
		close[n-1] > open[n-1] && close[n-1] > (open[n-3]+close[n-3])/2 {
		out["pattern_morning_star"] = 1.0
	} else {
		out["pattern_morning_star"] = 0.0
	}
	if close[n-3] > open[n-3] && body2 < body3*0.3 &&
		close[n-1] < open[n-1] && close[n-1] < (open[n-3]+close[n-3])/2 {
		out["pattern_evening_star"] = -1.0
	} else {
		out["pattern_evening_star"] = 0.0
	}

	if close[n-3] > open[n-3] && close[n-2] > open[n-2] && close[n-1] > open[n-1] &&
		close[n-2] > close[n-3] && close[n-1] > close[n-2] &&
		open[n-2] > open[n-3] && open[n-1] > open[n-2] {
		out["pattern_three_white_soldiers"] = 1.0
	} else {
		out["pattern_three_white_soldiers"] = 0.0
	}
	if close[n-3] < open[n-3] && close[n-2] < open[n-2] && close[n-1] < open[n-1] &&
		close[n-2] < close[n-3] && close[n-1] < close[n-2] &&
		open[n-2] < open[n-3] && open[n-1] < open[n-2] {
		out["pattern_three_black_crows"] = -1.0
	} else {
		out["pattern_three_black_crows"] = 0.0
	}

	// Pinbar needs a 3:1 wick-to-body ratio.
	switch {
	case totalRange > 0 && lowerWick > 3*body && upperWick < body:
		out["pattern_pinbar"] = 1.0
	case totalRange > 0 && upperWick > 3*body && lowerWick < body:
		out["pattern_pinbar"] = -1.0
	default:
		out["pattern_pinbar"] = 0.0
	}
}
