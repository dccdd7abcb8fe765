package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"TradePulse/internal/domain/models"
	domrepo "TradePulse/internal/domain/repository"
	domsvc "TradePulse/internal/domain/service"
	"TradePulse/internal/services/agents"
	"TradePulse/internal/services/learning"
	"TradePulse/internal/services/trading"
	"TradePulse/pkg/logger"
)

// AgentRunner drives the trading loop: every cycle it analyses each
// symbol, runs the agent consensus, and turns actionable rounds into
// managed paper trades. Closed trades feed the learning loop.
type AgentRunner struct {
	analysis     *AnalysisUseCase
	orchestrator *agents.Orchestrator
	generator    *trading.SignalGenerator
	breaker      *trading.CircuitBreaker
	execution    *trading.ExecutionManager
	performance  *learning.PerformanceTracker
	mistakes     *learning.MistakeTracker
	learner      *learning.OnlineLearner
	signals      domrepo.SignalStore
	learningDB   domrepo.LearningStore
	metrics      domrepo.Metrics
	log          *logger.Logger

	symbols  []string
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	sigCbs  []func(*models.TradingSignal)
	// entry context per open signal, for post-mortems
	entries map[string]signalEntry
	cycles  map[string]*SymbolCycle
}

type signalEntry struct {
	signal     *models.TradingSignal
	indicators map[string]float64
}

// SymbolCycle reports the outcome of the latest cycle for one symbol.
type SymbolCycle struct {
	Symbol       string    `json:"symbol"`
	LastCycle    time.Time `json:"last_cycle"`
	LastDecision string    `json:"last_decision"`
	LastError    string    `json:"last_error,omitempty"`
}

func NewAgentRunner(
	analysis *AnalysisUseCase,
	orchestrator *agents.Orchestrator,
	generator *trading.SignalGenerator,
	breaker *trading.CircuitBreaker,
	execution *trading.ExecutionManager,
	performance *learning.PerformanceTracker,
	mistakes *learning.MistakeTracker,
	learner *learning.OnlineLearner,
	signals domrepo.SignalStore,
	learningDB domrepo.LearningStore,
	metrics domrepo.Metrics,
	log *logger.Logger,
	symbols []string,
	interval time.Duration,
) *AgentRunner {
	if interval <= 0 {
		interval = time.Minute
	}
	r := &AgentRunner{
		analysis:     analysis,
		orchestrator: orchestrator,
		generator:    generator,
		breaker:      breaker,
		execution:    execution,
		performance:  performance,
		mistakes:     mistakes,
		learner:      learner,
		signals:      signals,
		learningDB:   learningDB,
		metrics:      metrics,
		log:          log,
		symbols:      symbols,
		interval:     interval,
		entries:      make(map[string]signalEntry),
		cycles:       make(map[string]*SymbolCycle),
	}
	r.wireCallbacks()
	return r
}

// wireCallbacks connects trade outcomes to risk and learning.
func (r *AgentRunner) wireCallbacks() {
	r.execution.OnOutcome(func(o *models.TradeOutcome) {
		r.breaker.RecordTrade(o.PnL)

		entry, ok := r.takeEntry(o.SignalID)
		rr := 0.0
		if ok {
			rr = entry.signal.RiskReward
		}
		if tripped := r.performance.Record(o, rr); tripped {
			r.log.Error("kill switch tripped",
				logger.String("reason", r.performance.Summary().KillReason))
		}

		var found []models.TradingMistake
		if ok {
			found = r.mistakes.Review(o, entry.signal, entry.indicators)
		} else {
			found = r.mistakes.Review(o, nil, nil)
		}
		r.learner.RecordOutcome(o)
		r.metrics.RecordTradeOutcome(string(o.Result))

		ctx, cancelPersist := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelPersist()
		if err := r.signals.SaveOutcome(ctx, o); err != nil {
			r.log.Warn("outcome persist failed", logger.Error(err))
		}
		for i := range found {
			if err := r.learningDB.SaveMistake(ctx, &found[i]); err != nil {
				r.log.Warn("mistake persist failed", logger.Error(err))
			}
		}
	})

	r.learner.OnEvolution(func(e *models.EvolutionEvent) {
		ctx, cancelPersist := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelPersist()
		if err := r.learningDB.SaveEvolution(ctx, e); err != nil {
			r.log.Warn("evolution persist failed", logger.Error(err))
		}
	})
	r.learner.OnPerformance(func(p *models.ModelPerformance) {
		ctx, cancelPersist := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelPersist()
		if err := r.learningDB.SaveModelPerformance(ctx, p); err != nil {
			r.log.Warn("model performance persist failed", logger.Error(err))
		}
	})
}

// OnSignal registers a callback fired for every generated signal.
// Must be called before Start.
func (r *AgentRunner) OnSignal(cb func(*models.TradingSignal)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sigCbs = append(r.sigCbs, cb)
}

// Start launches the cycle loop. Safe to call when already running.
func (r *AgentRunner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}
	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true

	go r.loop(loopCtx)
	r.log.Info("agent runner started",
		logger.Strings("symbols", r.symbols),
		logger.Duration("interval", r.interval))
	return nil
}

// Stop halts the cycle loop.
func (r *AgentRunner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	r.cancel()
	r.running = false
	r.log.Info("agent runner stopped")
}

// Running reports whether the loop is active.
func (r *AgentRunner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *AgentRunner) loop(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.Cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Cycle(ctx)
		}
	}
}

// Cycle runs one full pass over all symbols.
func (r *AgentRunner) Cycle(ctx context.Context) {
	for _, symbol := range r.symbols {
		decision, err := r.runSymbol(ctx, symbol)
		if err != nil {
			r.log.Warn("cycle failed",
				logger.String("symbol", symbol),
				logger.Error(err))
		}
		r.recordCycle(symbol, decision, err)
		if ctx.Err() != nil {
			return
		}
	}
}

func (r *AgentRunner) recordCycle(symbol, decision string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := &SymbolCycle{
		Symbol:       symbol,
		LastCycle:    time.Now().UTC(),
		LastDecision: decision,
	}
	if err != nil {
		st.LastError = err.Error()
	}
	r.cycles[symbol] = st
}

// CycleStats returns the latest cycle outcome per symbol, sorted by symbol.
func (r *AgentRunner) CycleStats() []SymbolCycle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SymbolCycle, 0, len(r.cycles))
	for _, st := range r.cycles {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func (r *AgentRunner) runSymbol(ctx context.Context, symbol string) (string, error) {
	start := time.Now()
	snap, candles, err := r.analysis.Evaluate(ctx, symbol)
	if err != nil {
		return "analysis_failed", err
	}

	// Mark open positions against the fresh price first.
	r.execution.MarkPrice(symbol, snap.Price)

	summary := r.performance.Summary()
	breakerStatus := r.breaker.Status()
	sctx := &domsvc.SymbolContext{
		Symbol:     symbol,
		Price:      snap.Price,
		Candles:    candles,
		Indicators: snap.Indicators,
		Confluence: snap.Confluence,
		Regime:     snap.Regime,
		Sentiment:  snap.Sentiment,
		Prediction: snap.Prediction,
		Account: domsvc.AccountState{
			Balance:           summary.Balance,
			StartBalance:      breakerStatus.StartingBalance,
			DailyPnL:          breakerStatus.DailyPnL,
			Drawdown:          summary.MaxDrawdown,
			OpenPositions:     r.execution.OpenCount(),
			ConsecutiveLosses: breakerStatus.ConsecutiveLosses,
		},
	}

	consensus := r.orchestrator.Decide(ctx, sctx)
	r.metrics.RecordConsensus(symbol, consensus.Actionable)
	r.metrics.RecordLatency("cycle", time.Since(start).Seconds())
	if !consensus.Actionable {
		return "hold", nil
	}

	if r.performance.Halted() {
		r.log.Warn("signal suppressed: kill switch down", logger.String("symbol", symbol))
		return "halted", nil
	}
	if !r.breaker.Allow() {
		r.log.Warn("signal suppressed: circuit breaker open",
			logger.String("symbol", symbol),
			logger.String("reason", breakerStatus.Reason))
		return "breaker_open", nil
	}

	indicators := snap.Indicators[string(r.analysis.SignalTimeframe())]
	sig := r.generator.Generate(consensus, indicators, snap.Price, summary.Balance)
	if sig == nil {
		return "no_signal", nil
	}

	r.rememberEntry(sig, indicators)
	r.learner.RememberEntry(sig.ID, indicators)

	status, err := r.execution.Submit(sig)
	if err != nil {
		r.log.Info("signal rejected",
			logger.String("symbol", symbol),
			logger.Error(err))
	}
	r.metrics.RecordSignal(symbol, string(sig.Direction))

	if err := r.signals.SaveSignal(ctx, sig); err != nil {
		r.log.Warn("signal persist failed", logger.Error(err))
	}
	for _, cb := range r.sigCbs {
		cb(sig)
	}
	r.log.Info("signal generated",
		logger.String("signal", sig.ID),
		logger.String("symbol", symbol),
		logger.String("direction", string(sig.Direction)),
		logger.String("status", string(status)),
		logger.Any("entry", sig.Entry),
		logger.Any("confidence", sig.Confidence))
	return "signal", nil
}

// ConfirmSignal approves a pending manual signal and records the fill.
func (r *AgentRunner) ConfirmSignal(ctx context.Context, id string) error {
	if err := r.execution.Confirm(id); err != nil {
		return err
	}
	if err := r.signals.UpdateSignalStatus(ctx, id, models.SignalFilled); err != nil {
		r.log.Warn("signal status update failed", logger.Error(err))
	}
	return nil
}

// StatusText summarizes runner state for the chat interface.
func (r *AgentRunner) StatusText(ctx context.Context) string {
	summary := r.performance.Summary()
	breaker := r.breaker.Status()
	state := "stopped"
	if r.Running() {
		state = "running"
	}
	return fmt.Sprintf(
		"Loop %s. Balance %.2f, total PnL %.2f over %d trades (win rate %.0f%%). "+
			"Open positions: %d, pending confirmations: %d. Circuit breaker tripped: %v.",
		state, summary.Balance, summary.TotalPnL, summary.TotalTrades, summary.WinRate*100,
		r.execution.OpenCount(), len(r.execution.Pending()), breaker.Tripped)
}

// AnalyzeText summarizes the latest analysis for the chat interface.
func (r *AgentRunner) AnalyzeText(ctx context.Context, symbol string) string {
	snap, err := r.analysis.Snapshot(ctx, symbol)
	if err != nil {
		return fmt.Sprintf("Analysis for %s is unavailable: %v.", symbol, err)
	}
	conf := snap.Confluence
	regime := "unknown"
	if snap.Regime != nil {
		regime = string(snap.Regime.State)
	}
	return fmt.Sprintf(
		"%s at %.2f. Confluence %.2f (%s, confidence %.0f%%), regime %s.",
		symbol, snap.Price, conf.Score, conf.Direction, conf.Confidence*100, regime)
}

func (r *AgentRunner) rememberEntry(sig *models.TradingSignal, indicators map[string]float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[sig.ID] = signalEntry{signal: sig, indicators: indicators}
}

func (r *AgentRunner) takeEntry(id string) (signalEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	return e, ok
}
