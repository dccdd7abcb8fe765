package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/domain/service"
)

// Default ensemble weights per model name.
var defaultWeights = map[string]float64{
	"logistic": 0.30,
	"stumps":   0.30,
	"centroid": 0.20,
	"momentum": 0.20,
}

// lowConfidenceCut halves a model's weight when its vote confidence is
// below this bound. The momentum model is exempt.
const lowConfidenceCut = 0.5

// Ensemble blends the individual predictors into one weighted vote.
type Ensemble struct {
	mu      sync.RWMutex
	models  []service.Predictor
	weights map[string]float64
}

func NewEnsemble() *Ensemble {
	return &Ensemble{
		models:  []service.Predictor{NewLogistic(), NewStumps(), NewCentroid(), NewMomentum()},
		weights: defaultWeights,
	}
}

// Models exposes the underlying predictors (for training and reporting).
func (e *Ensemble) Models() []service.Predictor {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.models
}

// Predict produces the weighted ensemble vote for one feature snapshot.
func (e *Ensemble) Predict(symbol string, features map[string]float64) (*models.EnsemblePrediction, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	pred := &models.EnsemblePrediction{
		Symbol:    symbol,
		Direction: models.Neutral,
		Timestamp: now(),
	}

	var weighted, totalWeight, confSum float64
	for _, m := range e.models {
		vote, err := m.Predict(features)
		if err != nil {
			continue
		}
		w := e.weights[m.Name()]
		if vote.Confidence < lowConfidenceCut && m.Name() != "momentum" {
			w /= 2
		}
		vote.Weight = w
		pred.Votes = append(pred.Votes, vote)
		weighted += vote.Score * w
		totalWeight += w
		confSum += vote.Confidence
	}
	if totalWeight == 0 {
		return pred, fmt.Errorf("ensemble: no votes")
	}

	pred.Score = weighted / totalWeight
	pred.Direction = directionFromScore(pred.Score)
	pred.Confidence = confSum / float64(len(pred.Votes))

	agreeing := 0
	for _, v := range pred.Votes {
		if v.Direction == pred.Direction {
			agreeing++
		}
	}
	pred.Agreement = float64(agreeing) / float64(len(pred.Votes))
	return pred, nil
}

// Train retrains every trainable model on the same sample set.
// Models that cannot fit (e.g. single-class data) keep their prior state.
func (e *Ensemble) Train(samples []service.TrainingSample) map[string]error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	errs := make(map[string]error)
	for _, m := range e.models {
		if err := m.Train(samples); err != nil {
			errs[m.Name()] = err
		}
	}
	return errs
}

// modelState is the serialized form of one predictor.
type modelState struct {
	Name  string          `json:"name"`
	State json.RawMessage `json:"state"`
}

// Save writes all model states under dir, one JSON file per model.
func (e *Ensemble) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensemble save: %w", err)
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, m := range e.models {
		raw, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("ensemble save %s: %w", m.Name(), err)
		}
		st := modelState{Name: m.Name(), State: raw}
		b, err := json.MarshalIndent(st, "", "  ")
		if err != nil {
			return fmt.Errorf("ensemble save %s: %w", m.Name(), err)
		}
		path := filepath.Join(dir, m.Name()+".json")
		if err := os.WriteFile(path, b, 0o644); err != nil {
			return fmt.Errorf("ensemble save %s: %w", m.Name(), err)
		}
	}
	return nil
}

// Load restores model states from dir; missing files are skipped.
func (e *Ensemble) Load(dir string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, m := range e.models {
		path := filepath.Join(dir, m.Name()+".json")
		b, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("ensemble load %s: %w", m.Name(), err)
		}
		var st modelState
		if err := json.Unmarshal(b, &st); err != nil {
			return fmt.Errorf("ensemble load %s: %w", m.Name(), err)
		}
		if err := json.Unmarshal(st.State, m); err != nil {
			return fmt.Errorf("ensemble load %s: %w", m.Name(), err)
		}
	}
	return nil
}

// Accuracy evaluates each model against labelled samples.
func (e *Ensemble) Accuracy(samples []service.TrainingSample) map[string]float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[string]float64, len(e.models))
	if len(samples) == 0 {
		return out
	}
	for _, m := range e.models {
		correct := 0
		for _, s := range samples {
			vote, err := m.Predict(s.Features)
			if err != nil {
				continue
			}
			favorable := vote.Score > 0
			if favorable == (s.Label > 0) {
				correct++
			}
		}
		out[m.Name()] = float64(correct) / float64(len(samples))
	}
	return out
}
