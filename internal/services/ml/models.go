package ml

import (
	"fmt"
	"math"
	"sync"
	"time"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/domain/service"
)

// directionFromScore applies the shared ±0.2 decision band.
func directionFromScore(score float64) models.Direction {
	switch {
	case score > 0.2:
		return models.Long
	case score < -0.2:
		return models.Short
	default:
		return models.Neutral
	}
}

// heuristicScore is the shared untrained fallback: trend alignment plus
// momentum tilt. Keeps predictors useful before the first retrain.
func heuristicScore(features map[string]float64) float64 {
	score := features["ema_alignment"] * 0.4
	score += (features["rsi_14"] - 50) / 100 * 0.3
	if features["macd_histogram"] > 0 {
		score += 0.3
	} else if features["macd_histogram"] < 0 {
		score -= 0.3
	}
	return clamp(score, -1, 1)
}

// --- logistic model ---

// Logistic is a gradient-trained logistic classifier over the canonical
// feature vector. Untrained it falls back to the heuristic score.
type Logistic struct {
	mu      sync.RWMutex
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
	Fitted  bool      `json:"fitted"`

	epochs int
	lr     float64
}

func NewLogistic() *Logistic {
	return &Logistic{
		Weights: make([]float64, len(FeatureOrder)),
		epochs:  200,
		lr:      0.05,
	}
}

func (m *Logistic) Name() string { return "logistic" }

func (m *Logistic) Trained() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Fitted
}

func (m *Logistic) Predict(features map[string]float64) (models.ModelVote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var score float64
	if m.Fitted {
		x := Vectorize(features)
		z := m.Bias
		for i, w := range m.Weights {
			z += w * x[i]
		}
		score = 2*sigmoid(z) - 1
	} else {
		score = heuristicScore(features)
	}

	conf := math.Abs(score)
	if !m.Fitted {
		conf = math.Min(conf, 0.4)
	}
	return models.ModelVote{
		Model:      m.Name(),
		Direction:  directionFromScore(score),
		Score:      score,
		Confidence: conf,
	}, nil
}

func (m *Logistic) Train(samples []service.TrainingSample) error {
	if len(samples) == 0 {
		return fmt.Errorf("logistic: no samples")
	}
	xs := make([][]float64, len(samples))
	ys := make([]float64, len(samples))
	for i, s := range samples {
		xs[i] = Vectorize(s.Features)
		if s.Label > 0 {
			ys[i] = 1
		}
	}

	weights := make([]float64, len(FeatureOrder))
	bias := 0.0
	n := float64(len(samples))
	for epoch := 0; epoch < m.epochs; epoch++ {
		gradW := make([]float64, len(weights))
		gradB := 0.0
		for i, x := range xs {
			z := bias
			for j, w := range weights {
				z += w * x[j]
			}
			err := sigmoid(z) - ys[i]
			for j := range gradW {
				gradW[j] += err * x[j]
			}
			gradB += err
		}
		for j := range weights {
			weights[j] -= m.lr * gradW[j] / n
		}
		bias -= m.lr * gradB / n
	}

	m.mu.Lock()
	m.Weights = weights
	m.Bias = bias
	m.Fitted = true
	m.mu.Unlock()
	return nil
}

// --- nearest-centroid model ---

// Centroid classifies by distance to the mean feature vector of winning
// and losing trades.
type Centroid struct {
	mu     sync.RWMutex
	Win    []float64 `json:"win"`
	Loss   []float64 `json:"loss"`
	Fitted bool      `json:"fitted"`
}

func NewCentroid() *Centroid { return &Centroid{} }

func (m *Centroid) Name() string { return "centroid" }

func (m *Centroid) Trained() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Fitted
}

func (m *Centroid) Predict(features map[string]float64) (models.ModelVote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var score float64
	if m.Fitted {
		x := Vectorize(features)
		dWin := euclidean(x, m.Win)
		dLoss := euclidean(x, m.Loss)
		total := dWin + dLoss
		if total > 0 {
			// Closer to the winning centroid pushes the score positive.
			score = (dLoss - dWin) / total
		}
	} else {
		score = heuristicScore(features)
	}

	conf := math.Abs(score)
	if !m.Fitted {
		conf = math.Min(conf, 0.4)
	}
	return models.ModelVote{
		Model:      m.Name(),
		Direction:  directionFromScore(score),
		Score:      score,
		Confidence: conf,
	}, nil
}

func (m *Centroid) Train(samples []service.TrainingSample) error {
	if len(samples) == 0 {
		return fmt.Errorf("centroid: no samples")
	}
	win := make([]float64, len(FeatureOrder))
	loss := make([]float64, len(FeatureOrder))
	var nWin, nLoss float64
	for _, s := range samples {
		x := Vectorize(s.Features)
		if s.Label > 0 {
			addInto(win, x)
			nWin++
		} else {
			addInto(loss, x)
			nLoss++
		}
	}
	if nWin == 0 || nLoss == 0 {
		return fmt.Errorf("centroid: need both winning and losing samples")
	}
	scaleBy(win, 1/nWin)
	scaleBy(loss, 1/nLoss)

	m.mu.Lock()
	m.Win = win
	m.Loss = loss
	m.Fitted = true
	m.mu.Unlock()
	return nil
}

// --- stump ensemble ---

// stump is a single-feature threshold rule.
type stump struct {
	Feature  int     `json:"feature"`
	Split    float64 `json:"split"`
	Polarity float64 `json:"polarity"` // +1: above split means favorable
	Weight   float64 `json:"weight"`   // training accuracy above chance
}

// Stumps is a boosted-style committee of one-feature threshold rules.
type Stumps struct {
	mu     sync.RWMutex
	Rules  []stump `json:"rules"`
	Fitted bool    `json:"fitted"`
}

func NewStumps() *Stumps { return &Stumps{} }

func (m *Stumps) Name() string { return "stumps" }

func (m *Stumps) Trained() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Fitted
}

func (m *Stumps) Predict(features map[string]float64) (models.ModelVote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var score float64
	if m.Fitted && len(m.Rules) > 0 {
		x := Vectorize(features)
		var total float64
		for _, r := range m.Rules {
			vote := -1.0
			if x[r.Feature] > r.Split {
				vote = 1.0
			}
			score += vote * r.Polarity * r.Weight
			total += r.Weight
		}
		if total > 0 {
			score /= total
		}
	} else {
		score = heuristicScore(features)
	}

	conf := math.Abs(score)
	if !m.Fitted {
		conf = math.Min(conf, 0.4)
	}
	return models.ModelVote{
		Model:      m.Name(),
		Direction:  directionFromScore(score),
		Score:      score,
		Confidence: conf,
	}, nil
}

func (m *Stumps) Train(samples []service.TrainingSample) error {
	if len(samples) == 0 {
		return fmt.Errorf("stumps: no samples")
	}
	xs := make([][]float64, len(samples))
	for i, s := range samples {
		xs[i] = Vectorize(s.Features)
	}

	var rules []stump
	for f := range FeatureOrder {
		// Split at the midpoint between class means.
		var sumWin, sumLoss, nWin, nLoss float64
		for i, s := range samples {
			if s.Label > 0 {
				sumWin += xs[i][f]
				nWin++
			} else {
				sumLoss += xs[i][f]
				nLoss++
			}
		}
		if nWin == 0 || nLoss == 0 {
			continue
		}
		split := (sumWin/nWin + sumLoss/nLoss) / 2
		polarity := 1.0
		if sumWin/nWin < sumLoss/nLoss {
			polarity = -1.0
		}

		correct := 0
		for i, s := range samples {
			vote := -1.0
			if xs[i][f] > split {
				vote = 1.0
			}
			vote *= polarity
			if (vote > 0) == (s.Label > 0) {
				correct++
			}
		}
		acc := float64(correct) / float64(len(samples))
		if acc <= 0.5 {
			continue // no better than chance
		}
		rules = append(rules, stump{Feature: f, Split: split, Polarity: polarity, Weight: acc - 0.5})
	}
	if len(rules) == 0 {
		return fmt.Errorf("stumps: no informative features")
	}

	m.mu.Lock()
	m.Rules = rules
	m.Fitted = true
	m.mu.Unlock()
	return nil
}

// --- momentum heuristic ---

// Momentum is a fixed-rule model; it is never trained, mirroring a policy
// model that learns on a different loop than the supervised ones.
type Momentum struct{}

func NewMomentum() *Momentum { return &Momentum{} }

func (m *Momentum) Name() string { return "momentum" }

func (m *Momentum) Trained() bool { return true }

func (m *Momentum) Predict(features map[string]float64) (models.ModelVote, error) {
	score := 0.0
	score += clamp(features["roc_10"]/10, -0.4, 0.4)
	if features["macd_histogram"] > 0 {
		score += 0.2
	} else if features["macd_histogram"] < 0 {
		score -= 0.2
	}
	rsi := features["rsi_14"]
	if rsi > 55 && rsi < 70 {
		score += 0.2
	} else if rsi < 45 && rsi > 30 {
		score -= 0.2
	}
	if features["volume_surge"] != 0 {
		score *= 1.2
	}
	score = clamp(score, -1, 1)

	return models.ModelVote{
		Model:      m.Name(),
		Direction:  directionFromScore(score),
		Score:      score,
		Confidence: math.Abs(score),
	}, nil
}

func (m *Momentum) Train([]service.TrainingSample) error { return nil }

// --- helpers ---

func euclidean(a, b []float64) float64 {
	if len(a) != len(b) {
		return math.MaxFloat64
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

func addInto(dst, src []float64) {
	for i := range dst {
		dst[i] += src[i]
	}
}

func scaleBy(vals []float64, k float64) {
	for i := range vals {
		vals[i] *= k
	}
}

var _ service.Predictor = (*Logistic)(nil)
var _ service.Predictor = (*Centroid)(nil)
var _ service.Predictor = (*Stumps)(nil)
var _ service.Predictor = (*Momentum)(nil)

// now is separated for tests.
var now = func() time.Time { return time.Now().UTC() }
