package trading

import (
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestBreakerAllowsHealthyAccount(t *testing.T) {
	b := NewCircuitBreaker(10000)
	if !b.Allow() {
		t.Fatalf("fresh breaker must allow trading")
	}
	b.RecordTrade(50)
	b.RecordTrade(-30)
	if !b.Allow() {
		t.Fatalf("small losses must not trip the breaker")
	}
}

func TestBreakerTripsOnDailyLoss(t *testing.T) {
	b := NewCircuitBreaker(10000)
	b.RecordTrade(-310) // 3.1% of start, over the 3% limit
	if b.Allow() {
		t.Fatalf("daily loss breach must trip the breaker")
	}
	st := b.Status()
	if !st.Tripped || st.Reason == "" {
		t.Fatalf("status should report the trip: %+v", st)
	}
}

func TestBreakerTripsOnDrawdownFromPeak(t *testing.T) {
	b := NewCircuitBreaker(10000)
	b.RecordTrade(500) // peak 10500
	b.RecordTrade(-250)
	// 250/10500 = 2.38% drawdown from peak, over the 2% limit,
	// while the day is still up overall.
	if b.Allow() {
		t.Fatalf("drawdown from intraday peak must trip the breaker")
	}
}

func TestBreakerTripsOnConsecutiveLosses(t *testing.T) {
	b := NewCircuitBreaker(100000, WithDailyLimits(0.5, 0.5))
	for i := 0; i < 4; i++ {
		b.RecordTrade(-10)
	}
	if !b.Allow() {
		t.Fatalf("4 losses should not trip yet")
	}
	b.RecordTrade(-10)
	if b.Allow() {
		t.Fatalf("5 consecutive losses must trip the breaker")
	}
}

func TestBreakerWinResetsStreak(t *testing.T) {
	b := NewCircuitBreaker(100000, WithDailyLimits(0.5, 0.5))
	for i := 0; i < 4; i++ {
		b.RecordTrade(-10)
	}
	b.RecordTrade(20)
	b.RecordTrade(-10)
	if !b.Allow() {
		t.Fatalf("a win must reset the consecutive loss streak")
	}
}

func TestBreakerDayRolloverResets(t *testing.T) {
	day1 := time.Date(2026, 8, 22, 23, 0, 0, 0, time.UTC)
	now := day1
	b := NewCircuitBreaker(10000, withClock(func() time.Time { return now }))

	b.RecordTrade(-400)
	if b.Allow() {
		t.Fatalf("breaker should be tripped on day one")
	}

	now = day1.Add(2 * time.Hour) // past midnight UTC
	if !b.Allow() {
		t.Fatalf("new UTC day must reset the breaker")
	}
	st := b.Status()
	if st.StartingBalance != 9600 {
		t.Fatalf("new day should rebase from current balance, got %v", st.StartingBalance)
	}
	if st.TradesToday != 0 || st.ConsecutiveLosses != 0 {
		t.Fatalf("daily counters should reset: %+v", st)
	}
}

func TestBreakerManualReset(t *testing.T) {
	b := NewCircuitBreaker(10000)
	b.RecordTrade(-400)
	if b.Allow() {
		t.Fatalf("expected tripped breaker")
	}
	b.Reset()
	if !b.Allow() {
		t.Fatalf("manual reset must clear the trip")
	}
}
