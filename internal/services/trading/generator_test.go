package trading

import (
	"math"
	"testing"

	"TradePulse/internal/domain/models"
)

func actionableConsensus(dir models.Direction, conf float64) *models.ConsensusResult {
	return &models.ConsensusResult{
		Symbol:        "BTCUSDT",
		Direction:     dir,
		Score:         0.7,
		AvgConfidence: conf,
		Agreement:     0.8,
		Actionable:    true,
		Votes: []models.AgentVote{
			{Agent: "technical", Direction: dir, Confidence: conf, Reason: "trend aligned"},
			{Agent: "ml", Direction: dir, Confidence: conf, Reason: "ensemble agrees"},
		},
	}
}

func TestGenerateLongSignal(t *testing.T) {
	g := NewSignalGenerator()
	ind := map[string]float64{
		"atr_14":          200,
		"nearest_support": 49500,
	}
	sig := g.Generate(actionableConsensus(models.Long, 0.6), ind, 50000, 10000)
	if sig == nil {
		t.Fatalf("actionable consensus must produce a signal")
	}
	if sig.Direction != models.Long {
		t.Fatalf("direction: got %s", sig.Direction)
	}
	// ATR stop 50000-300=49700 is tighter than support 49500.
	if sig.StopLoss != 49700 {
		t.Fatalf("stop loss: got %v, want 49700", sig.StopLoss)
	}
	if sig.StopLoss >= sig.Entry {
		t.Fatalf("long stop must sit below entry")
	}
	// RR 2.0: target = entry + 2*risk.
	if sig.TakeProfit != 50600 {
		t.Fatalf("take profit: got %v, want 50600", sig.TakeProfit)
	}
	if sig.TakeProfit2 != 50300 {
		t.Fatalf("partial target: got %v, want 50300", sig.TakeProfit2)
	}
	// 1% of 10000 risked over a 300 point stop.
	wantSize := round4(100.0 / 300.0)
	if sig.Size != wantSize {
		t.Fatalf("size: got %v, want %v", sig.Size, wantSize)
	}
	if sig.Status != models.SignalPending {
		t.Fatalf("new signals start pending, got %s", sig.Status)
	}
	if len(sig.Reasons) != 2 {
		t.Fatalf("reasons should carry agent explanations, got %v", sig.Reasons)
	}
}

func TestGenerateStructureStopTighter(t *testing.T) {
	g := NewSignalGenerator()
	// Support at 49900 sits inside the ATR stop, so it wins.
	ind := map[string]float64{
		"atr_14":          200,
		"nearest_support": 49900,
	}
	sig := g.Generate(actionableConsensus(models.Long, 0.6), ind, 50000, 10000)
	if sig.StopLoss != 49900 {
		t.Fatalf("structure stop should be used when tighter, got %v", sig.StopLoss)
	}
}

func TestGenerateShortSignal(t *testing.T) {
	g := NewSignalGenerator()
	ind := map[string]float64{
		"atr_14":             200,
		"nearest_resistance": 50200,
	}
	sig := g.Generate(actionableConsensus(models.Short, 0.6), ind, 50000, 10000)
	if sig.Direction != models.Short {
		t.Fatalf("direction: got %s", sig.Direction)
	}
	if sig.StopLoss <= sig.Entry {
		t.Fatalf("short stop must sit above entry")
	}
	// Resistance 50200 is tighter than ATR stop 50300.
	if sig.StopLoss != 50200 {
		t.Fatalf("stop loss: got %v, want 50200", sig.StopLoss)
	}
	if sig.TakeProfit >= sig.Entry {
		t.Fatalf("short target must sit below entry")
	}
}

func TestGenerateHighConfidenceWidensTarget(t *testing.T) {
	g := NewSignalGenerator()
	ind := map[string]float64{"atr_14": 200}
	sig := g.Generate(actionableConsensus(models.Long, 0.9), ind, 50000, 10000)
	if sig.RiskReward != 3.0 {
		t.Fatalf("high confidence should use max RR, got %v", sig.RiskReward)
	}
	risk := sig.Entry - sig.StopLoss
	want := sig.Entry + risk*3
	if math.Abs(sig.TakeProfit-want) > 1e-6 {
		t.Fatalf("target %v does not respect RR 3 (want %v)", sig.TakeProfit, want)
	}
}

func TestGenerateRejectsNonActionable(t *testing.T) {
	g := NewSignalGenerator()
	c := actionableConsensus(models.Long, 0.9)
	c.Actionable = false
	if sig := g.Generate(c, nil, 50000, 10000); sig != nil {
		t.Fatalf("non-actionable consensus must not produce a signal")
	}

	c = actionableConsensus(models.Neutral, 0.9)
	if sig := g.Generate(c, nil, 50000, 10000); sig != nil {
		t.Fatalf("neutral consensus must not produce a signal")
	}

	if sig := g.Generate(nil, nil, 50000, 10000); sig != nil {
		t.Fatalf("nil consensus must not produce a signal")
	}
}

func TestGenerateATRFallback(t *testing.T) {
	g := NewSignalGenerator()
	// No ATR available: stop defaults to 1% of entry times the multiplier.
	sig := g.Generate(actionableConsensus(models.Long, 0.6), map[string]float64{}, 50000, 10000)
	if sig == nil {
		t.Fatalf("missing ATR should fall back, not reject")
	}
	if sig.StopLoss != 49250 {
		t.Fatalf("fallback stop: got %v, want 49250", sig.StopLoss)
	}
}
