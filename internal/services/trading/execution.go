package trading

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"TradePulse/internal/domain/models"
	"TradePulse/pkg/logger"
)

// Execution gates.
const (
	DefaultAutonomyThreshold = 0.85
	DefaultMaxPerSymbol      = 2
	DefaultMinRiskReward     = 1.5
)

// OutcomeCallback fires whenever a position closes.
type OutcomeCallback func(*models.TradeOutcome)

// ExecutionManager is a paper broker: it fills signals, tracks open
// positions and closes them against incoming prices. Signals below the
// autonomy threshold wait in a manual confirmation queue.
type ExecutionManager struct {
	log *logger.Logger

	autonomyThreshold float64
	maxPerSymbol      int
	minRR             float64

	mu        sync.Mutex
	positions map[string]*models.Position      // signal ID -> position
	pending   map[string]*models.TradingSignal // manual queue
	callbacks []OutcomeCallback

	clock func() time.Time
}

// ExecOption configures ExecutionManager.
type ExecOption func(*ExecutionManager)

func WithAutonomyThreshold(t float64) ExecOption {
	return func(m *ExecutionManager) { m.autonomyThreshold = t }
}

func WithMaxPerSymbol(n int) ExecOption {
	return func(m *ExecutionManager) { m.maxPerSymbol = n }
}

func WithMinRiskReward(rr float64) ExecOption {
	return func(m *ExecutionManager) { m.minRR = rr }
}

func NewExecutionManager(log *logger.Logger, opts ...ExecOption) *ExecutionManager {
	m := &ExecutionManager{
		log:               log,
		autonomyThreshold: DefaultAutonomyThreshold,
		maxPerSymbol:      DefaultMaxPerSymbol,
		minRR:             DefaultMinRiskReward,
		positions:         make(map[string]*models.Position),
		pending:           make(map[string]*models.TradingSignal),
		clock:             time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnOutcome registers a callback for closed positions.
func (m *ExecutionManager) OnOutcome(cb OutcomeCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, cb)
}

// Submit runs pre-trade checks and either fills the signal, queues it for
// manual confirmation, or rejects it.
func (m *ExecutionManager) Submit(sig *models.TradingSignal) (models.SignalStatus, error) {
	if sig == nil {
		return models.SignalCancelled, fmt.Errorf("execution: nil signal")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.preTradeChecksLocked(sig); err != nil {
		sig.Status = models.SignalCancelled
		return sig.Status, err
	}

	if sig.Confidence >= m.autonomyThreshold {
		m.fillLocked(sig)
		return sig.Status, nil
	}

	sig.Status = models.SignalPending
	m.pending[sig.ID] = sig
	m.log.Info("signal queued for manual confirmation",
		logger.String("signal", sig.ID),
		logger.String("symbol", sig.Symbol),
		logger.Any("confidence", sig.Confidence))
	return sig.Status, nil
}

// Confirm fills a manually approved pending signal.
func (m *ExecutionManager) Confirm(signalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sig, ok := m.pending[signalID]
	if !ok {
		return fmt.Errorf("execution: no pending signal %s", signalID)
	}
	delete(m.pending, signalID)

	if sig.Expired(m.clock().UTC()) {
		sig.Status = models.SignalExpired
		return fmt.Errorf("execution: signal %s expired", signalID)
	}
	if err := m.preTradeChecksLocked(sig); err != nil {
		sig.Status = models.SignalCancelled
		return err
	}
	m.fillLocked(sig)
	return nil
}

// MarkPrice feeds the latest price for a symbol and closes any position
// whose stop or target it crosses. Returns the resulting outcomes.
func (m *ExecutionManager) MarkPrice(symbol string, price float64) []*models.TradeOutcome {
	m.mu.Lock()

	var closed []*models.TradeOutcome
	for id, pos := range m.positions {
		if pos.Symbol != symbol {
			continue
		}
		exitReason := ""
		if pos.Direction == models.Long {
			if price <= pos.StopLoss {
				exitReason = "stop_loss"
			} else if price >= pos.TakeProfit {
				exitReason = "take_profit"
			}
		} else {
			if price >= pos.StopLoss {
				exitReason = "stop_loss"
			} else if price <= pos.TakeProfit {
				exitReason = "take_profit"
			}
		}
		if exitReason == "" {
			continue
		}
		closed = append(closed, m.closeLocked(id, pos, price, exitReason))
	}

	// Expire stale pending signals on the same feed.
	now := m.clock().UTC()
	for id, sig := range m.pending {
		if sig.Symbol == symbol && sig.Expired(now) {
			sig.Status = models.SignalExpired
			delete(m.pending, id)
		}
	}

	cbs := m.callbacks
	m.mu.Unlock()

	for _, o := range closed {
		for _, cb := range cbs {
			cb(o)
		}
	}
	return closed
}

// Close force-closes a position at the given price.
func (m *ExecutionManager) Close(signalID string, price float64) (*models.TradeOutcome, error) {
	m.mu.Lock()
	pos, ok := m.positions[signalID]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("execution: no open position %s", signalID)
	}
	outcome := m.closeLocked(signalID, pos, price, "manual")
	cbs := m.callbacks
	m.mu.Unlock()

	for _, cb := range cbs {
		cb(outcome)
	}
	return outcome, nil
}

// Positions returns the open positions sorted by open time.
func (m *ExecutionManager) Positions() []*models.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Position, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.Before(out[j].OpenedAt) })
	return out
}

// Pending returns signals waiting for manual confirmation.
func (m *ExecutionManager) Pending() []*models.TradingSignal {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.TradingSignal, 0, len(m.pending))
	for _, s := range m.pending {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// OpenCount returns the number of open positions.
func (m *ExecutionManager) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.positions)
}

func (m *ExecutionManager) preTradeChecksLocked(sig *models.TradingSignal) error {
	if sig.RiskReward < m.minRR {
		return fmt.Errorf("execution: risk reward %.2f below minimum %.2f", sig.RiskReward, m.minRR)
	}
	count := 0
	for _, p := range m.positions {
		if p.Symbol == sig.Symbol {
			count++
		}
	}
	if count >= m.maxPerSymbol {
		return fmt.Errorf("execution: %d positions already open on %s", count, sig.Symbol)
	}
	return nil
}

func (m *ExecutionManager) fillLocked(sig *models.TradingSignal) {
	sig.Status = models.SignalFilled
	m.positions[sig.ID] = &models.Position{
		SignalID:   sig.ID,
		Symbol:     sig.Symbol,
		Direction:  sig.Direction,
		Entry:      sig.Entry,
		StopLoss:   sig.StopLoss,
		TakeProfit: sig.TakeProfit,
		Size:       sig.Size,
		OpenedAt:   m.clock().UTC(),
	}
	m.log.Info("position opened",
		logger.String("signal", sig.ID),
		logger.String("symbol", sig.Symbol),
		logger.String("direction", string(sig.Direction)),
		logger.Any("entry", sig.Entry),
		logger.Any("size", sig.Size))
}

func (m *ExecutionManager) closeLocked(id string, pos *models.Position, price float64, reason string) *models.TradeOutcome {
	delete(m.positions, id)

	pnl := pos.UnrealizedPnL(price)
	result := models.OutcomeBreakeven
	if pnl > 0 {
		result = models.OutcomeWin
	} else if pnl < 0 {
		result = models.OutcomeLoss
	}
	pnlPct := 0.0
	if pos.Entry != 0 {
		pnlPct = (price - pos.Entry) / pos.Entry * 100
		if pos.Direction == models.Short {
			pnlPct = -pnlPct
		}
	}
	return &models.TradeOutcome{
		SignalID:   id,
		Symbol:     pos.Symbol,
		Direction:  pos.Direction,
		Entry:      pos.Entry,
		Exit:       price,
		PnL:        pnl,
		PnLPct:     pnlPct,
		Result:     result,
		ExitReason: reason,
		OpenedAt:   pos.OpenedAt,
		ClosedAt:   m.clock().UTC(),
	}
}
