package trading

import (
	"testing"
	"time"

	"TradePulse/internal/domain/models"
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

func testSignal(id string, dir models.Direction, conf float64) *models.TradingSignal {
	entry, sl, tp := 50000.0, 49700.0, 50600.0
	if dir == models.Short {
		sl, tp = 50300.0, 49400.0
	}
	return &models.TradingSignal{
		ID:         id,
		Timestamp:  time.Now().UTC(),
		Symbol:     "BTCUSDT",
		Direction:  dir,
		Entry:      entry,
		StopLoss:   sl,
		TakeProfit: tp,
		Size:       0.5,
		RiskReward: 2.0,
		Confidence: conf,
		Status:     models.SignalPending,
		ExpiresAt:  time.Now().UTC().Add(time.Hour),
	}
}

func TestSubmitAutonomousFill(t *testing.T) {
	m := NewExecutionManager(testLogger(t))
	status, err := m.Submit(testSignal("s1", models.Long, 0.9))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if status != models.SignalFilled {
		t.Fatalf("high confidence should fill immediately, got %s", status)
	}
	if m.OpenCount() != 1 {
		t.Fatalf("expected one open position")
	}
}

func TestSubmitQueuesLowConfidence(t *testing.T) {
	m := NewExecutionManager(testLogger(t))
	status, err := m.Submit(testSignal("s1", models.Long, 0.6))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if status != models.SignalPending {
		t.Fatalf("low confidence should queue for confirmation, got %s", status)
	}
	if m.OpenCount() != 0 || len(m.Pending()) != 1 {
		t.Fatalf("signal should wait in the manual queue")
	}

	if err := m.Confirm("s1"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if m.OpenCount() != 1 {
		t.Fatalf("confirmed signal should open a position")
	}
	if err := m.Confirm("s1"); err == nil {
		t.Fatalf("double confirm must fail")
	}
}

func TestSubmitRejectsLowRiskReward(t *testing.T) {
	m := NewExecutionManager(testLogger(t))
	sig := testSignal("s1", models.Long, 0.9)
	sig.RiskReward = 1.2
	status, err := m.Submit(sig)
	if err == nil {
		t.Fatalf("RR below minimum must be rejected")
	}
	if status != models.SignalCancelled {
		t.Fatalf("rejected signal should be cancelled, got %s", status)
	}
}

func TestSubmitEnforcesPerSymbolCap(t *testing.T) {
	m := NewExecutionManager(testLogger(t))
	if _, err := m.Submit(testSignal("s1", models.Long, 0.9)); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := m.Submit(testSignal("s2", models.Long, 0.9)); err != nil {
		t.Fatalf("second: %v", err)
	}
	if _, err := m.Submit(testSignal("s3", models.Long, 0.9)); err == nil {
		t.Fatalf("third position on the same symbol must be rejected")
	}
}

func TestMarkPriceClosesOnTakeProfit(t *testing.T) {
	m := NewExecutionManager(testLogger(t))
	var got []*models.TradeOutcome
	m.OnOutcome(func(o *models.TradeOutcome) { got = append(got, o) })

	m.Submit(testSignal("s1", models.Long, 0.9))

	if out := m.MarkPrice("BTCUSDT", 50100); len(out) != 0 {
		t.Fatalf("price inside the bracket must not close")
	}
	out := m.MarkPrice("BTCUSDT", 50650)
	if len(out) != 1 {
		t.Fatalf("take profit touch should close the position")
	}
	if out[0].Result != models.OutcomeWin || out[0].ExitReason != "take_profit" {
		t.Fatalf("outcome: %+v", out[0])
	}
	if out[0].PnL != (50650-50000)*0.5 {
		t.Fatalf("pnl: got %v", out[0].PnL)
	}
	if len(got) != 1 {
		t.Fatalf("outcome callback should fire once, got %d", len(got))
	}
	if m.OpenCount() != 0 {
		t.Fatalf("position should be removed after close")
	}
}

func TestMarkPriceClosesShortOnStop(t *testing.T) {
	m := NewExecutionManager(testLogger(t))
	m.Submit(testSignal("s1", models.Short, 0.9))

	out := m.MarkPrice("BTCUSDT", 50350)
	if len(out) != 1 {
		t.Fatalf("stop touch should close the short")
	}
	if out[0].Result != models.OutcomeLoss || out[0].ExitReason != "stop_loss" {
		t.Fatalf("outcome: %+v", out[0])
	}
	if out[0].PnL != (50000-50350)*0.5 {
		t.Fatalf("short pnl: got %v", out[0].PnL)
	}
}

func TestMarkPriceExpiresStalePending(t *testing.T) {
	m := NewExecutionManager(testLogger(t))
	sig := testSignal("s1", models.Long, 0.6)
	sig.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	m.Submit(sig)

	m.MarkPrice("BTCUSDT", 50000)
	if len(m.Pending()) != 0 {
		t.Fatalf("expired pending signals should be dropped")
	}
	if sig.Status != models.SignalExpired {
		t.Fatalf("status should be expired, got %s", sig.Status)
	}
}

func TestManualClose(t *testing.T) {
	m := NewExecutionManager(testLogger(t))
	m.Submit(testSignal("s1", models.Long, 0.9))

	out, err := m.Close("s1", 50050)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if out.ExitReason != "manual" || out.Result != models.OutcomeWin {
		t.Fatalf("outcome: %+v", out)
	}
	if _, err := m.Close("s1", 50050); err == nil {
		t.Fatalf("closing twice must fail")
	}
}
