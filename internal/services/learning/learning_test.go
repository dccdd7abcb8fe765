package learning

import (
	"fmt"
	"testing"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/services/ml"
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

func loss(symbol string, dir models.Direction) *models.TradeOutcome {
	return &models.TradeOutcome{
		SignalID:  symbol + "-1",
		Symbol:    symbol,
		Direction: dir,
		Result:    models.OutcomeLoss,
		PnL:       -100,
		PnLPct:    -1,
	}
}

func TestMistakeCounterTrend(t *testing.T) {
	tr := NewMistakeTracker()
	found := tr.Review(loss("BTCUSDT", models.Long),
		&models.TradingSignal{Confidence: 0.7},
		map[string]float64{"ema_alignment": -1})
	if len(found) != 1 {
		t.Fatalf("expected one mistake, got %d", len(found))
	}
	if found[0].Type != models.MistakeCounterTrend || found[0].Severity != 0.8 {
		t.Fatalf("wrong classification: %+v", found[0])
	}
}

func TestMistakeLowConfidenceAndVolatility(t *testing.T) {
	tr := NewMistakeTracker()
	found := tr.Review(loss("BTCUSDT", models.Long),
		&models.TradingSignal{Confidence: 0.5},
		map[string]float64{"ema_alignment": 1, "atr_pct": 3.5})

	types := map[models.MistakeType]bool{}
	for _, m := range found {
		types[m.Type] = true
	}
	if !types[models.MistakeLowConfidence] {
		t.Fatalf("confidence 0.5 should flag low_confidence: %+v", found)
	}
	if !types[models.MistakeHighVolatility] {
		t.Fatalf("atr_pct 3.5 should flag high_volatility: %+v", found)
	}
	if types[models.MistakeCounterTrend] {
		t.Fatalf("trade aligned with trend should not flag counter_trend")
	}
}

func TestMistakeRepeatLoss(t *testing.T) {
	tr := NewMistakeTracker()
	sig := &models.TradingSignal{Confidence: 0.7}
	ind := map[string]float64{"ema_alignment": 1}

	for i := 0; i < 3; i++ {
		tr.Review(loss("ETHUSDT", models.Long), sig, ind)
	}
	found := tr.Review(loss("ETHUSDT", models.Long), sig, ind)
	has := false
	for _, m := range found {
		if m.Type == models.MistakeRepeatLoss {
			has = true
		}
	}
	if !has {
		t.Fatalf("fourth straight loss should flag repeat_loss: %+v", found)
	}

	// A win resets the streak.
	tr.Review(&models.TradeOutcome{Symbol: "ETHUSDT", Result: models.OutcomeWin}, sig, ind)
	if tr.LossStreak("ETHUSDT") != 0 {
		t.Fatalf("win should reset the loss streak")
	}
}

func TestMistakeIgnoresWins(t *testing.T) {
	tr := NewMistakeTracker()
	found := tr.Review(&models.TradeOutcome{Symbol: "BTCUSDT", Result: models.OutcomeWin},
		&models.TradingSignal{Confidence: 0.3},
		map[string]float64{"ema_alignment": -1})
	if found != nil {
		t.Fatalf("winning trades are not mistakes: %+v", found)
	}
}

func TestPerformanceSummary(t *testing.T) {
	p := NewPerformanceTracker(10000)
	p.Record(&models.TradeOutcome{Result: models.OutcomeWin, PnL: 200, PnLPct: 2}, 2.0)
	p.Record(&models.TradeOutcome{Result: models.OutcomeLoss, PnL: -100, PnLPct: -1}, 2.0)
	p.Record(&models.TradeOutcome{Result: models.OutcomeWin, PnL: 150, PnLPct: 1.5}, 3.0)

	s := p.Summary()
	if s.TotalTrades != 3 || s.Wins != 2 || s.Losses != 1 {
		t.Fatalf("counts: %+v", s)
	}
	if s.WinRate < 0.66 || s.WinRate > 0.67 {
		t.Fatalf("win rate: got %v", s.WinRate)
	}
	if s.TotalPnL != 250 {
		t.Fatalf("total pnl: got %v", s.TotalPnL)
	}
	if s.Balance != 10250 {
		t.Fatalf("balance: got %v", s.Balance)
	}
	if s.AvgRR < 2.33 || s.AvgRR > 2.34 {
		t.Fatalf("avg rr: got %v", s.AvgRR)
	}
	if s.KillSwitch {
		t.Fatalf("healthy stats must not trip the kill switch")
	}
}

func TestKillSwitchDrawdown(t *testing.T) {
	p := NewPerformanceTracker(10000)
	p.Record(&models.TradeOutcome{Result: models.OutcomeLoss, PnL: -1100, PnLPct: -11}, 2.0)
	if !p.Halted() {
		t.Fatalf("11%% drawdown must trip the kill switch")
	}
	p.Resume()
	if p.Halted() {
		t.Fatalf("resume must clear the kill switch")
	}
}

func TestKillSwitchWinRate(t *testing.T) {
	p := NewPerformanceTracker(1000000)
	// 50 trades at 30% win rate, tiny sizes so drawdown stays small.
	for i := 0; i < 50; i++ {
		if i%10 < 3 {
			p.Record(&models.TradeOutcome{Result: models.OutcomeWin, PnL: 10, PnLPct: 0.1}, 2.0)
		} else {
			p.Record(&models.TradeOutcome{Result: models.OutcomeLoss, PnL: -5, PnLPct: -0.05}, 2.0)
		}
	}
	if !p.Halted() {
		t.Fatalf("30%% win rate over 50 trades must trip the kill switch")
	}
}

func TestLearnerRetrainsOnSchedule(t *testing.T) {
	ens := ml.NewEnsemble()
	l := NewOnlineLearner(ens, testLogger(t), WithRetrainEvery(4), WithMinSamples(4))

	var evolutions []*models.EvolutionEvent
	var perfs []*models.ModelPerformance
	l.OnEvolution(func(e *models.EvolutionEvent) { evolutions = append(evolutions, e) })
	l.OnPerformance(func(p *models.ModelPerformance) { perfs = append(perfs, p) })

	bull := map[string]float64{
		"ema_alignment": 1, "rsi_14": 62, "macd_histogram": 15,
		"supertrend_direction": 1, "adx_14": 30, "roc_10": 2,
	}
	bear := map[string]float64{
		"ema_alignment": -1, "rsi_14": 38, "macd_histogram": -15,
		"supertrend_direction": -1, "adx_14": 30, "roc_10": -2,
	}

	for i := 0; i < 4; i++ {
		id := fmt.Sprintf("s%d", i)
		feats := bull
		dir := models.Long
		if i%2 == 1 {
			feats = bear
			dir = models.Short
		}
		l.RememberEntry(id, feats)
		l.RecordOutcome(&models.TradeOutcome{
			SignalID: id, Symbol: "BTCUSDT", Direction: dir,
			Result: models.OutcomeWin, PnL: 10, PnLPct: 0.1,
		})
	}

	if len(evolutions) != 1 {
		t.Fatalf("expected one retrain event, got %d", len(evolutions))
	}
	if len(perfs) == 0 {
		t.Fatalf("retrain should report per-model accuracy")
	}
	if l.SampleCount() != 4 {
		t.Fatalf("buffer should hold all 4 samples, got %d", l.SampleCount())
	}
}

func TestLearnerSkipsUnknownSignals(t *testing.T) {
	l := NewOnlineLearner(ml.NewEnsemble(), testLogger(t))
	l.RecordOutcome(&models.TradeOutcome{SignalID: "never-seen", Result: models.OutcomeWin})
	if l.SampleCount() != 0 {
		t.Fatalf("outcomes without a remembered entry must be ignored")
	}
}

func TestLearnerLabelsShortWins(t *testing.T) {
	l := NewOnlineLearner(ml.NewEnsemble(), testLogger(t))
	l.RememberEntry("s1", map[string]float64{"rsi_14": 30})
	l.RecordOutcome(&models.TradeOutcome{
		SignalID: "s1", Direction: models.Short, Result: models.OutcomeWin,
	})
	if l.SampleCount() != 1 {
		t.Fatalf("short win should produce a sample")
	}
}
