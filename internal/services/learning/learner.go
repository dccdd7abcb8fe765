package learning

import (
	"fmt"
	"sync"
	"time"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/domain/service"
	"TradePulse/internal/services/ml"
	"TradePulse/pkg/logger"
)

// Learning loop parameters.
const (
	DefaultBufferSize   = 100
	DefaultRetrainEvery = 20
	DefaultMinSamples   = 10
)

// EvolutionCallback fires for each adjustment the learner makes.
type EvolutionCallback func(*models.EvolutionEvent)

// PerformanceCallback fires for each post-retrain accuracy measurement.
type PerformanceCallback func(*models.ModelPerformance)

// OnlineLearner feeds closed-trade outcomes back into the ML ensemble.
// It keeps a bounded sample buffer, retrains periodically, and reports
// per-model accuracy after each retrain.
type OnlineLearner struct {
	ensemble *ml.Ensemble
	log      *logger.Logger

	bufferSize   int
	retrainEvery int
	minSamples   int
	modelDir     string

	mu        sync.Mutex
	features  map[string]map[string]float64 // signal ID -> entry snapshot
	buffer    []service.TrainingSample
	sinceLast int

	evoCallbacks  []EvolutionCallback
	perfCallbacks []PerformanceCallback
}

// LearnerOption configures OnlineLearner.
type LearnerOption func(*OnlineLearner)

func WithBufferSize(n int) LearnerOption {
	return func(l *OnlineLearner) { l.bufferSize = n }
}

func WithRetrainEvery(n int) LearnerOption {
	return func(l *OnlineLearner) { l.retrainEvery = n }
}

func WithMinSamples(n int) LearnerOption {
	return func(l *OnlineLearner) { l.minSamples = n }
}

// WithModelDir enables model persistence after each retrain.
func WithModelDir(dir string) LearnerOption {
	return func(l *OnlineLearner) { l.modelDir = dir }
}

func NewOnlineLearner(ensemble *ml.Ensemble, log *logger.Logger, opts ...LearnerOption) *OnlineLearner {
	l := &OnlineLearner{
		ensemble:     ensemble,
		log:          log,
		bufferSize:   DefaultBufferSize,
		retrainEvery: DefaultRetrainEvery,
		minSamples:   DefaultMinSamples,
		features:     make(map[string]map[string]float64),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// OnEvolution registers a callback for learner adjustments.
func (l *OnlineLearner) OnEvolution(cb EvolutionCallback) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.evoCallbacks = append(l.evoCallbacks, cb)
}

// OnPerformance registers a callback for accuracy measurements.
func (l *OnlineLearner) OnPerformance(cb PerformanceCallback) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.perfCallbacks = append(l.perfCallbacks, cb)
}

// RememberEntry stores the indicator snapshot a signal was generated
// from, so the outcome can be labelled against the right features.
func (l *OnlineLearner) RememberEntry(signalID string, features map[string]float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	snap := make(map[string]float64, len(features))
	for k, v := range features {
		snap[k] = v
	}
	l.features[signalID] = snap
}

// RecordOutcome labels the remembered entry snapshot with the trade
// result and retrains once enough new samples accumulated.
func (l *OnlineLearner) RecordOutcome(outcome *models.TradeOutcome) {
	if outcome == nil || outcome.Result == models.OutcomeBreakeven {
		return
	}

	l.mu.Lock()
	feats, ok := l.features[outcome.SignalID]
	if !ok {
		l.mu.Unlock()
		return
	}
	delete(l.features, outcome.SignalID)

	label := -1.0
	won := outcome.Result == models.OutcomeWin
	// A winning short means the bearish setup was right: label by
	// whether price moved the predicted way, not by direction alone.
	if (outcome.Direction == models.Long) == won {
		label = 1.0
	}
	l.buffer = append(l.buffer, service.TrainingSample{Features: feats, Label: label})
	if len(l.buffer) > l.bufferSize {
		l.buffer = l.buffer[len(l.buffer)-l.bufferSize:]
	}
	l.sinceLast++

	retrain := l.sinceLast >= l.retrainEvery && len(l.buffer) >= l.minSamples
	if retrain {
		l.sinceLast = 0
	}
	l.mu.Unlock()

	if retrain {
		l.retrain()
	}
}

// SampleCount returns the current training buffer size.
func (l *OnlineLearner) SampleCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buffer)
}

// Retrain forces an immediate retrain if the buffer is large enough.
func (l *OnlineLearner) Retrain() error {
	l.mu.Lock()
	n := len(l.buffer)
	l.mu.Unlock()
	if n < l.minSamples {
		return fmt.Errorf("learner: %d samples, need %d", n, l.minSamples)
	}
	l.retrain()
	return nil
}

func (l *OnlineLearner) retrain() {
	l.mu.Lock()
	samples := make([]service.TrainingSample, len(l.buffer))
	copy(samples, l.buffer)
	evoCbs := l.evoCallbacks
	perfCbs := l.perfCallbacks
	l.mu.Unlock()

	errs := l.ensemble.Train(samples)
	for name, err := range errs {
		l.log.Warn("model retrain failed",
			logger.String("model", name),
			logger.Error(err))
	}

	now := time.Now().UTC()
	wins := 0
	for _, s := range samples {
		if s.Label > 0 {
			wins++
		}
	}
	winRate := float64(wins) / float64(len(samples))

	accuracy := l.ensemble.Accuracy(samples)
	for name, acc := range accuracy {
		perf := &models.ModelPerformance{
			Timestamp:   now,
			Model:       name,
			Accuracy:    acc,
			Predictions: len(samples),
		}
		for _, cb := range perfCbs {
			cb(perf)
		}
	}

	event := &models.EvolutionEvent{
		Timestamp: now,
		Event:     "ensemble_retrained",
		Detail:    fmt.Sprintf("retrained on %d outcomes, %d models failed", len(samples), len(errs)),
		WinRate:   winRate,
	}
	for _, cb := range evoCbs {
		cb(event)
	}

	if l.modelDir != "" {
		if err := l.ensemble.Save(l.modelDir); err != nil {
			l.log.Warn("model persistence failed", logger.Error(err))
		}
	}

	l.log.Info("ensemble retrained",
		logger.Int("samples", len(samples)),
		logger.Any("accuracy", accuracy))
}
