package ml

import "math"

// FeatureOrder is the canonical input layout shared by every model.
// Values come from the analysis feature vector and are scaled to roughly
// [-1, 1] so the models can share weights across symbols.
var FeatureOrder = []string{
	"ema_alignment",
	"rsi_14",
	"macd_histogram",
	"stoch_k",
	"cci_20",
	"williams_r",
	"roc_10",
	"adx_14",
	"atr_pct",
	"bb_percent_b",
	"cmf_20",
	"volume_ratio",
}

// Vectorize maps a raw indicator snapshot onto the canonical feature layout.
func Vectorize(features map[string]float64) []float64 {
	out := make([]float64, len(FeatureOrder))
	for i, key := range FeatureOrder {
		out[i] = scaleFeature(key, features[key])
	}
	return out
}

func scaleFeature(key string, v float64) float64 {
	switch key {
	case "ema_alignment":
		return v
	case "rsi_14":
		return (v - 50) / 50
	case "macd_histogram":
		return math.Tanh(v)
	case "stoch_k":
		return (v - 50) / 50
	case "cci_20":
		return clamp(v/200, -1, 1)
	case "williams_r":
		return (v + 50) / 50
	case "roc_10":
		return clamp(v/10, -1, 1)
	case "adx_14":
		return clamp(v/50, 0, 1)
	case "atr_pct":
		return clamp(v/5, 0, 1)
	case "bb_percent_b":
		return clamp(2*v-1, -1.5, 1.5)
	case "cmf_20":
		return clamp(v*5, -1, 1)
	case "volume_ratio":
		return clamp(v-1, -1, 2)
	default:
		return math.Tanh(v)
	}
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

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }
