package ml

import (
	"path/filepath"
	"testing"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/domain/service"
)

func bullishSnapshot() map[string]float64 {
	return map[string]float64{
		"ema_alignment":  1,
		"rsi_14":         62,
		"macd_histogram": 0.8,
		"stoch_k":        65,
		"cci_20":         110,
		"williams_r":     -35,
		"roc_10":         4,
		"adx_14":         35,
		"atr_pct":        1.2,
		"bb_percent_b":   0.8,
		"cmf_20":         0.1,
		"volume_ratio":   1.8,
	}
}

func bearishSnapshot() map[string]float64 {
	return map[string]float64{
		"ema_alignment":  -1,
		"rsi_14":         36,
		"macd_histogram": -0.8,
		"stoch_k":        30,
		"cci_20":         -110,
		"williams_r":     -75,
		"roc_10":         -4,
		"adx_14":         35,
		"atr_pct":        1.4,
		"bb_percent_b":   0.1,
		"cmf_20":         -0.1,
		"volume_ratio":   0.6,
	}
}

func trainingSet(n int) []service.TrainingSample {
	samples := make([]service.TrainingSample, 0, 2*n)
	for i := 0; i < n; i++ {
		samples = append(samples,
			service.TrainingSample{Features: bullishSnapshot(), Label: 1},
			service.TrainingSample{Features: bearishSnapshot(), Label: -1},
		)
	}
	return samples
}

func TestUntrainedFallbackHeuristic(t *testing.T) {
	m := NewLogistic()
	if m.Trained() {
		t.Fatalf("fresh model should not be trained")
	}
	vote, err := m.Predict(bullishSnapshot())
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if vote.Direction != models.Long {
		t.Fatalf("heuristic should go long on bullish snapshot, got %s (score %v)", vote.Direction, vote.Score)
	}
	if vote.Confidence > 0.4 {
		t.Fatalf("untrained confidence should be capped at 0.4, got %v", vote.Confidence)
	}
}

func TestLogisticTraining(t *testing.T) {
	m := NewLogistic()
	if err := m.Train(trainingSet(20)); err != nil {
		t.Fatalf("train: %v", err)
	}
	if !m.Trained() {
		t.Fatalf("model should report trained")
	}
	up, _ := m.Predict(bullishSnapshot())
	down, _ := m.Predict(bearishSnapshot())
	if up.Score <= down.Score {
		t.Fatalf("trained model should rank bullish above bearish: %v vs %v", up.Score, down.Score)
	}
}

func TestCentroidNeedsBothClasses(t *testing.T) {
	m := NewCentroid()
	oneSided := []service.TrainingSample{{Features: bullishSnapshot(), Label: 1}}
	if err := m.Train(oneSided); err == nil {
		t.Fatalf("expected error for single-class training data")
	}
}

func TestEnsemblePredict(t *testing.T) {
	e := NewEnsemble()
	pred, err := e.Predict("BTCUSDT", bullishSnapshot())
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if len(pred.Votes) != 4 {
		t.Fatalf("expected 4 votes, got %d", len(pred.Votes))
	}
	if pred.Score < -1 || pred.Score > 1 {
		t.Fatalf("score out of bounds: %v", pred.Score)
	}
	if pred.Direction != models.Long {
		t.Fatalf("bullish snapshot should vote LONG, got %s (score %v)", pred.Direction, pred.Score)
	}
	if pred.Agreement <= 0 || pred.Agreement > 1 {
		t.Fatalf("agreement out of bounds: %v", pred.Agreement)
	}
}

func TestEnsembleTrainImproves(t *testing.T) {
	e := NewEnsemble()
	samples := trainingSet(25)
	errs := e.Train(samples)
	if err, ok := errs["logistic"]; ok {
		t.Fatalf("logistic training failed: %v", err)
	}
	acc := e.Accuracy(samples)
	if acc["logistic"] < 0.9 {
		t.Fatalf("logistic should separate linearly separable data, accuracy %v", acc["logistic"])
	}
	if acc["stumps"] < 0.9 {
		t.Fatalf("stumps should separate clean data, accuracy %v", acc["stumps"])
	}
}

func TestEnsembleSaveLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "mdl")
	e := NewEnsemble()
	if errs := e.Train(trainingSet(10)); len(errs) > 0 {
		for name, err := range errs {
			t.Fatalf("train %s: %v", name, err)
		}
	}
	want, _ := e.Predict("BTCUSDT", bullishSnapshot())

	if err := e.Save(dir); err != nil {
		t.Fatalf("save: %v", err)
	}
	fresh := NewEnsemble()
	if err := fresh.Load(dir); err != nil {
		t.Fatalf("load: %v", err)
	}
	got, _ := fresh.Predict("BTCUSDT", bullishSnapshot())
	if got.Score != want.Score {
		t.Fatalf("restored ensemble diverges: %v vs %v", got.Score, want.Score)
	}
}
