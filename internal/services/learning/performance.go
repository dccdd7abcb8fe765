package learning

import (
	"fmt"
	"math"
	"sync"
	"time"

	"TradePulse/internal/domain/models"
)

// Kill switch thresholds over the rolling trade window.
const (
	windowTrades     = 500
	recentLookback   = 50
	killWinRateBelow = 0.40 // needs at least 50 trades
	killWinRateMin   = 50
	killDrawdownOver = 0.10
	killSharpeBelow  = 0.5 // needs at least 30 trades
	killSharpeMin    = 30
)

// PerformanceTracker maintains a rolling account view and halts the
// system when performance degrades past hard limits. A tripped kill
// switch stays down until someone resumes it.
type PerformanceTracker struct {
	mu sync.Mutex

	startBalance float64
	balance      float64
	peak         float64
	maxDrawdown  float64

	outcomes []models.TradeOutcome // rolling window
	wins     int
	losses   int
	totalPnL float64
	rrSum    float64
	rrCount  int

	killed     bool
	killReason string
}

func NewPerformanceTracker(startBalance float64) *PerformanceTracker {
	return &PerformanceTracker{
		startBalance: startBalance,
		balance:      startBalance,
		peak:         startBalance,
	}
}

// Record folds a closed trade into the rolling stats. Returns true when
// this trade tripped the kill switch.
func (p *PerformanceTracker) Record(outcome *models.TradeOutcome, riskReward float64) bool {
	if outcome == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.outcomes = append(p.outcomes, *outcome)
	if len(p.outcomes) > windowTrades {
		dropped := p.outcomes[0]
		p.outcomes = p.outcomes[1:]
		switch dropped.Result {
		case models.OutcomeWin:
			p.wins--
		case models.OutcomeLoss:
			p.losses--
		}
	}
	switch outcome.Result {
	case models.OutcomeWin:
		p.wins++
	case models.OutcomeLoss:
		p.losses++
	}

	p.totalPnL += outcome.PnL
	p.balance += outcome.PnL
	if p.balance > p.peak {
		p.peak = p.balance
	}
	if p.peak > 0 {
		if dd := (p.peak - p.balance) / p.peak; dd > p.maxDrawdown {
			p.maxDrawdown = dd
		}
	}
	if riskReward > 0 {
		p.rrSum += riskReward
		p.rrCount++
	}

	return p.checkKillLocked()
}

// SetBalance updates the balance from an external account sync.
func (p *PerformanceTracker) SetBalance(balance float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balance = balance
	if balance > p.peak {
		p.peak = balance
	}
	if p.peak > 0 {
		if dd := (p.peak - p.balance) / p.peak; dd > p.maxDrawdown {
			p.maxDrawdown = dd
		}
	}
	p.checkKillLocked()
}

// Halted reports whether the kill switch is down.
func (p *PerformanceTracker) Halted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.killed
}

// Resume clears the kill switch. Deliberately manual.
func (p *PerformanceTracker) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.killed = false
	p.killReason = ""
}

// Summary returns the current rolling performance view.
func (p *PerformanceTracker) Summary() models.PerformanceSummary {
	p.mu.Lock()
	defer p.mu.Unlock()

	total := len(p.outcomes)
	winRate := 0.0
	if decided := p.wins + p.losses; decided > 0 {
		winRate = float64(p.wins) / float64(decided)
	}
	avgRR := 0.0
	if p.rrCount > 0 {
		avgRR = p.rrSum / float64(p.rrCount)
	}
	return models.PerformanceSummary{
		TotalTrades:  total,
		Wins:         p.wins,
		Losses:       p.losses,
		WinRate:      winRate,
		TotalPnL:     p.totalPnL,
		MaxDrawdown:  p.maxDrawdown,
		Sharpe:       p.sharpeLocked(),
		AvgRR:        avgRR,
		KillSwitch:   p.killed,
		KillReason:   p.killReason,
		Balance:      p.balance,
		StartBalance: p.startBalance,
		UpdatedAt:    time.Now().UTC(),
	}
}

// RecentWinRate returns the win rate over the last recentLookback trades.
func (p *PerformanceTracker) RecentWinRate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := len(p.outcomes) - recentLookback
	if start < 0 {
		start = 0
	}
	wins, decided := 0, 0
	for _, o := range p.outcomes[start:] {
		switch o.Result {
		case models.OutcomeWin:
			wins++
			decided++
		case models.OutcomeLoss:
			decided++
		}
	}
	if decided == 0 {
		return 0
	}
	return float64(wins) / float64(decided)
}

// sharpeLocked computes an annualized Sharpe ratio over per-trade
// percentage returns in the window.
func (p *PerformanceTracker) sharpeLocked() float64 {
	n := len(p.outcomes)
	if n < 2 {
		return 0
	}
	var sum float64
	for _, o := range p.outcomes {
		sum += o.PnLPct
	}
	mean := sum / float64(n)
	var variance float64
	for _, o := range p.outcomes {
		d := o.PnLPct - mean
		variance += d * d
	}
	variance /= float64(n - 1)
	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(252)
}

func (p *PerformanceTracker) checkKillLocked() bool {
	if p.killed {
		return false
	}
	decided := p.wins + p.losses
	if decided >= killWinRateMin {
		if wr := float64(p.wins) / float64(decided); wr < killWinRateBelow {
			p.killLocked(fmt.Sprintf("win rate %.1f%% over %d trades", wr*100, decided))
			return true
		}
	}
	if p.maxDrawdown > killDrawdownOver {
		p.killLocked(fmt.Sprintf("max drawdown %.1f%%", p.maxDrawdown*100))
		return true
	}
	if len(p.outcomes) >= killSharpeMin {
		if s := p.sharpeLocked(); s < killSharpeBelow {
			p.killLocked(fmt.Sprintf("sharpe %.2f over %d trades", s, len(p.outcomes)))
			return true
		}
	}
	return false
}

func (p *PerformanceTracker) killLocked(reason string) {
	p.killed = true
	p.killReason = reason
}
