package trading

import (
	"fmt"
	"sync"
	"time"
)

// Circuit breaker defaults, as fractions of the day's starting balance.
const (
	DefaultMaxDailyDrawdown   = 0.02
	DefaultMaxDailyLoss       = 0.03
	DefaultMaxConsecutiveLoss = 5
)

// BreakerStatus is the externally visible circuit breaker state.
type BreakerStatus struct {
	Tripped           bool      `json:"tripped"`
	Reason            string    `json:"reason,omitempty"`
	TrippedAt         time.Time `json:"tripped_at,omitempty"`
	Day               string    `json:"day"`
	StartingBalance   float64   `json:"starting_balance"`
	CurrentBalance    float64   `json:"current_balance"`
	PeakBalance       float64   `json:"peak_balance"`
	DailyPnL          float64   `json:"daily_pnl"`
	DailyDrawdown     float64   `json:"daily_drawdown"`
	ConsecutiveLosses int       `json:"consecutive_losses"`
	TradesToday       int       `json:"trades_today"`
}

// CircuitBreaker halts trading when the account breaches daily loss
// limits. State resets automatically at day rollover.
type CircuitBreaker struct {
	mu sync.Mutex

	maxDailyDrawdown float64
	maxDailyLoss     float64
	maxConsecLosses  int

	day          string
	startBalance float64
	balance      float64
	peak         float64
	consecLosses int
	trades       int

	tripped   bool
	reason    string
	trippedAt time.Time

	clock func() time.Time
}

// BreakerOption configures CircuitBreaker.
type BreakerOption func(*CircuitBreaker)

func WithDailyLimits(drawdown, loss float64) BreakerOption {
	return func(b *CircuitBreaker) {
		b.maxDailyDrawdown = drawdown
		b.maxDailyLoss = loss
	}
}

func WithMaxConsecutiveLosses(n int) BreakerOption {
	return func(b *CircuitBreaker) { b.maxConsecLosses = n }
}

func withClock(clock func() time.Time) BreakerOption {
	return func(b *CircuitBreaker) { b.clock = clock }
}

func NewCircuitBreaker(startingBalance float64, opts ...BreakerOption) *CircuitBreaker {
	b := &CircuitBreaker{
		maxDailyDrawdown: DefaultMaxDailyDrawdown,
		maxDailyLoss:     DefaultMaxDailyLoss,
		maxConsecLosses:  DefaultMaxConsecutiveLoss,
		startBalance:     startingBalance,
		balance:          startingBalance,
		peak:             startingBalance,
		clock:            time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.day = b.clock().UTC().Format("2006-01-02")
	return b
}

// Allow reports whether new trades may be opened.
func (b *CircuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rolloverLocked()
	return !b.tripped
}

// RecordTrade updates daily state with a closed trade's PnL.
func (b *CircuitBreaker) RecordTrade(pnl float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rolloverLocked()

	b.trades++
	b.balance += pnl
	if b.balance > b.peak {
		b.peak = b.balance
	}
	if pnl < 0 {
		b.consecLosses++
	} else {
		b.consecLosses = 0
	}
	b.checkLocked()
}

// SetBalance marks the current account balance (unrealized moves included).
func (b *CircuitBreaker) SetBalance(balance float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rolloverLocked()
	b.balance = balance
	if balance > b.peak {
		b.peak = balance
	}
	b.checkLocked()
}

// Reset manually clears a tripped breaker.
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tripped = false
	b.reason = ""
	b.consecLosses = 0
}

// Status returns a snapshot of the breaker state.
func (b *CircuitBreaker) Status() BreakerStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rolloverLocked()

	dd := 0.0
	if b.peak > 0 {
		dd = (b.peak - b.balance) / b.peak
	}
	return BreakerStatus{
		Tripped:           b.tripped,
		Reason:            b.reason,
		TrippedAt:         b.trippedAt,
		Day:               b.day,
		StartingBalance:   b.startBalance,
		CurrentBalance:    b.balance,
		PeakBalance:       b.peak,
		DailyPnL:          b.balance - b.startBalance,
		DailyDrawdown:     dd,
		ConsecutiveLosses: b.consecLosses,
		TradesToday:       b.trades,
	}
}

// rolloverLocked resets daily counters when the UTC day changes.
func (b *CircuitBreaker) rolloverLocked() {
	today := b.clock().UTC().Format("2006-01-02")
	if today == b.day {
		return
	}
	b.day = today
	b.startBalance = b.balance
	b.peak = b.balance
	b.consecLosses = 0
	b.trades = 0
	b.tripped = false
	b.reason = ""
}

func (b *CircuitBreaker) checkLocked() {
	if b.tripped {
		return
	}
	if b.peak > 0 {
		if dd := (b.peak - b.balance) / b.peak; dd >= b.maxDailyDrawdown {
			b.tripLocked(fmt.Sprintf("daily drawdown %.2f%% reached limit %.2f%%", dd*100, b.maxDailyDrawdown*100))
			return
		}
	}
	if b.startBalance > 0 {
		if loss := (b.startBalance - b.balance) / b.startBalance; loss >= b.maxDailyLoss {
			b.tripLocked(fmt.Sprintf("daily loss %.2f%% reached limit %.2f%%", loss*100, b.maxDailyLoss*100))
			return
		}
	}
	if b.consecLosses >= b.maxConsecLosses {
		b.tripLocked(fmt.Sprintf("%d consecutive losses", b.consecLosses))
	}
}

func (b *CircuitBreaker) tripLocked(reason string) {
	b.tripped = true
	b.reason = reason
	b.trippedAt = b.clock().UTC()
}
