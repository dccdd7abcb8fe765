package agents

import (
	"context"
	"testing"
	"time"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/domain/service"
	"TradePulse/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

type stubAgent struct {
	name string
	vote models.AgentVote
}

func (s stubAgent) Name() string { return s.name }
func (s stubAgent) Evaluate(context.Context, *service.SymbolContext) (models.AgentVote, error) {
	return s.vote, nil
}

func stub(name string, dir models.Direction, conf float64, veto bool) stubAgent {
	return stubAgent{name: name, vote: models.AgentVote{
		Agent: name, Direction: dir, Confidence: conf, Veto: veto,
	}}
}

func TestConsensusMajorityActionable(t *testing.T) {
	o := NewOrchestrator(testLogger(t),
		stub("a", models.Long, 0.8, false),
		stub("b", models.Long, 0.7, false),
		stub("c", models.Long, 0.6, false),
		stub("d", models.Neutral, 0.9, false),
		stub("e", models.Neutral, 1.0, false),
	)
	res := o.Decide(context.Background(), &service.SymbolContext{Symbol: "BTCUSDT"})
	if res.Direction != models.Long {
		t.Fatalf("expected LONG, got %s", res.Direction)
	}
	if !res.Actionable {
		t.Fatalf("3 long votes averaging 0.7 should be actionable")
	}
	if res.AvgConfidence < 0.69 || res.AvgConfidence > 0.71 {
		t.Fatalf("avg confidence of majority should be 0.7, got %v", res.AvgConfidence)
	}
}

func TestConsensusVetoBlocks(t *testing.T) {
	o := NewOrchestrator(testLogger(t),
		stub("a", models.Long, 0.9, false),
		stub("b", models.Long, 0.9, false),
		stub("c", models.Long, 0.9, false),
		stub("risk", models.Neutral, 0, true),
	)
	res := o.Decide(context.Background(), &service.SymbolContext{Symbol: "BTCUSDT"})
	if res.Actionable {
		t.Fatalf("veto must block actionability")
	}
	if len(res.VetoedBy) != 1 || res.VetoedBy[0] != "risk" {
		t.Fatalf("veto attribution wrong: %v", res.VetoedBy)
	}
}

func TestConsensusNeedsThreeVotes(t *testing.T) {
	o := NewOrchestrator(testLogger(t),
		stub("a", models.Long, 0.9, false),
		stub("b", models.Long, 0.9, false),
		stub("c", models.Short, 0.9, false),
		stub("d", models.Neutral, 0.9, false),
		stub("e", models.Neutral, 0.9, false),
	)
	res := o.Decide(context.Background(), &service.SymbolContext{Symbol: "BTCUSDT"})
	if res.Actionable {
		t.Fatalf("2 agreeing votes must not be actionable")
	}
}

func TestConsensusTieIsNeutral(t *testing.T) {
	o := NewOrchestrator(testLogger(t),
		stub("a", models.Long, 0.9, false),
		stub("b", models.Long, 0.9, false),
		stub("c", models.Short, 0.9, false),
		stub("d", models.Short, 0.9, false),
		stub("e", models.Neutral, 0.5, false),
	)
	res := o.Decide(context.Background(), &service.SymbolContext{Symbol: "BTCUSDT"})
	if res.Direction != models.Neutral {
		t.Fatalf("a 2-2 split must not report a lean, got %s", res.Direction)
	}
	if res.Actionable {
		t.Fatalf("tie must not be actionable")
	}
}

func TestConsensusConfidenceGate(t *testing.T) {
	o := NewOrchestrator(testLogger(t),
		stub("a", models.Short, 0.4, false),
		stub("b", models.Short, 0.4, false),
		stub("c", models.Short, 0.45, false),
	)
	res := o.Decide(context.Background(), &service.SymbolContext{Symbol: "BTCUSDT"})
	if res.Direction != models.Short {
		t.Fatalf("expected SHORT majority, got %s", res.Direction)
	}
	if res.Actionable {
		t.Fatalf("low average confidence must not be actionable")
	}
}

func TestLatestStored(t *testing.T) {
	o := NewOrchestrator(testLogger(t), stub("a", models.Long, 0.9, false))
	o.Decide(context.Background(), &service.SymbolContext{Symbol: "ETHUSDT"})
	if _, ok := o.Latest("ETHUSDT"); !ok {
		t.Fatalf("latest consensus should be stored per symbol")
	}
	if got := o.LatestAll(); len(got) != 1 {
		t.Fatalf("expected one consensus, got %d", len(got))
	}
}

func TestDataAgentVetoes(t *testing.T) {
	a := NewDataAgent(Limits{})
	ctx := context.Background()

	v, err := a.Evaluate(ctx, &service.SymbolContext{Symbol: "BTCUSDT"})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !v.Veto {
		t.Fatalf("no candles must veto")
	}

	// Fresh data with enough bars passes.
	bars := make([]models.Candle, 120)
	nowTS := time.Now().UTC()
	for i := range bars {
		bars[i] = models.Candle{Bucket: nowTS.Add(-time.Duration(len(bars)-i) * time.Minute), Close: 100}
	}
	v, _ = a.Evaluate(ctx, &service.SymbolContext{
		Symbol:  "BTCUSDT",
		Candles: map[string][]models.Candle{"1m": bars},
	})
	if v.Veto {
		t.Fatalf("fresh data should not veto: %s", v.Reason)
	}

	// Stale data vetoes.
	for i := range bars {
		bars[i].Bucket = bars[i].Bucket.Add(-time.Hour)
	}
	v, _ = a.Evaluate(ctx, &service.SymbolContext{
		Symbol:  "BTCUSDT",
		Candles: map[string][]models.Candle{"1m": bars},
	})
	if !v.Veto {
		t.Fatalf("stale data must veto")
	}
}

func TestRiskAgentLimits(t *testing.T) {
	a := NewRiskAgent(Limits{})
	ctx := context.Background()

	v, _ := a.Evaluate(ctx, &service.SymbolContext{
		Symbol:  "BTCUSDT",
		Account: service.AccountState{Drawdown: 0.12, StartBalance: 10000},
	})
	if !v.Veto {
		t.Fatalf("drawdown breach must veto")
	}

	v, _ = a.Evaluate(ctx, &service.SymbolContext{
		Symbol:  "BTCUSDT",
		Account: service.AccountState{DailyPnL: -300, StartBalance: 10000},
	})
	if !v.Veto {
		t.Fatalf("daily loss breach must veto")
	}

	v, _ = a.Evaluate(ctx, &service.SymbolContext{
		Symbol:  "BTCUSDT",
		Account: service.AccountState{OpenPositions: 5, StartBalance: 10000},
	})
	if !v.Veto {
		t.Fatalf("position cap breach must veto")
	}

	v, _ = a.Evaluate(ctx, &service.SymbolContext{
		Symbol:  "BTCUSDT",
		Account: service.AccountState{Balance: 10000, StartBalance: 10000, OpenPositions: 1},
	})
	if v.Veto {
		t.Fatalf("healthy account should not veto: %s", v.Reason)
	}
	if v.Confidence != 1.0 {
		t.Fatalf("healthy risk vote carries full confidence, got %v", v.Confidence)
	}
}

func TestSentimentAgentContrarian(t *testing.T) {
	a := NewSentimentAgent()
	ctx := context.Background()

	v, _ := a.Evaluate(ctx, &service.SymbolContext{
		Symbol:    "BTCUSDT",
		Sentiment: &models.Sentiment{FearGreed: 12},
	})
	if v.Direction != models.Long {
		t.Fatalf("extreme fear should vote long, got %s", v.Direction)
	}

	v, _ = a.Evaluate(ctx, &service.SymbolContext{
		Symbol:    "BTCUSDT",
		Sentiment: &models.Sentiment{FearGreed: 90},
	})
	if v.Direction != models.Short {
		t.Fatalf("extreme greed should vote short, got %s", v.Direction)
	}

	v, _ = a.Evaluate(ctx, &service.SymbolContext{
		Symbol:    "BTCUSDT",
		Sentiment: &models.Sentiment{FearGreed: 50},
	})
	if v.Direction != models.Neutral || v.Confidence != 0.3 {
		t.Fatalf("mid-range sentiment should be neutral 0.3, got %s %v", v.Direction, v.Confidence)
	}
}
