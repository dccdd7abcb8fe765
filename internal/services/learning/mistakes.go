package learning

import (
	"fmt"
	"sync"
	"time"

	"TradePulse/internal/domain/models"
)

// Mistake classification thresholds.
const (
	lowConfidenceBelow = 0.55
	highVolatilityATR  = 3.0 // atr_pct
	repeatLossCount    = 3
)

// MistakeCallback fires for every classified mistake.
type MistakeCallback func(*models.TradingMistake)

// MistakeTracker runs a post-mortem on every losing trade and classifies
// what went wrong so the same error is not repeated blindly.
type MistakeTracker struct {
	mu        sync.Mutex
	losses    map[string]int // per-symbol running loss count
	recent    []models.TradingMistake
	cap       int
	callbacks []MistakeCallback
}

func NewMistakeTracker() *MistakeTracker {
	return &MistakeTracker{
		losses: make(map[string]int),
		cap:    200,
	}
}

// OnMistake registers a callback invoked for each classified mistake.
func (t *MistakeTracker) OnMistake(cb MistakeCallback) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.callbacks = append(t.callbacks, cb)
}

// Review inspects a closed trade together with the signal and the
// indicator snapshot taken at entry. Winning trades only reset the
// symbol's loss streak; losing trades are classified.
func (t *MistakeTracker) Review(
	outcome *models.TradeOutcome,
	signal *models.TradingSignal,
	indicators map[string]float64,
) []models.TradingMistake {
	if outcome == nil {
		return nil
	}

	t.mu.Lock()
	if outcome.Result != models.OutcomeLoss {
		t.losses[outcome.Symbol] = 0
		t.mu.Unlock()
		return nil
	}
	priorLosses := t.losses[outcome.Symbol]
	t.losses[outcome.Symbol] = priorLosses + 1
	t.mu.Unlock()

	var found []models.TradingMistake
	now := time.Now().UTC()
	add := func(kind models.MistakeType, severity float64, desc, action string) {
		found = append(found, models.TradingMistake{
			Timestamp:        now,
			Symbol:           outcome.Symbol,
			Type:             kind,
			Severity:         severity,
			Description:      desc,
			CorrectiveAction: action,
		})
	}

	if align, ok := indicators["ema_alignment"]; ok {
		against := (outcome.Direction == models.Long && align < 0) ||
			(outcome.Direction == models.Short && align > 0)
		if against {
			add(models.MistakeCounterTrend, 0.8,
				fmt.Sprintf("traded %s against EMA alignment %.0f", outcome.Direction, align),
				"require trend agreement before entry")
		}
	}

	if signal != nil && signal.Confidence < lowConfidenceBelow {
		add(models.MistakeLowConfidence, 0.6,
			fmt.Sprintf("entered at confidence %.2f", signal.Confidence),
			"raise the minimum entry confidence")
	}

	if atrPct, ok := indicators["atr_pct"]; ok && atrPct > highVolatilityATR {
		add(models.MistakeHighVolatility, 0.7,
			fmt.Sprintf("entered with ATR at %.1f%% of price", atrPct),
			"reduce size or stand aside in high volatility")
	}

	if priorLosses >= repeatLossCount {
		add(models.MistakeRepeatLoss, 0.9,
			fmt.Sprintf("%d consecutive losses on %s", priorLosses+1, outcome.Symbol),
			"pause the symbol until conditions change")
	}

	t.mu.Lock()
	t.recent = append(t.recent, found...)
	if len(t.recent) > t.cap {
		t.recent = t.recent[len(t.recent)-t.cap:]
	}
	cbs := t.callbacks
	t.mu.Unlock()

	for i := range found {
		for _, cb := range cbs {
			cb(&found[i])
		}
	}
	return found
}

// Recent returns up to limit most recent mistakes, newest last.
func (t *MistakeTracker) Recent(limit int) []models.TradingMistake {
	t.mu.Lock()
	defer t.mu.Unlock()
	if limit <= 0 || limit > len(t.recent) {
		limit = len(t.recent)
	}
	out := make([]models.TradingMistake, limit)
	copy(out, t.recent[len(t.recent)-limit:])
	return out
}

// LossStreak returns the current consecutive loss count for symbol.
func (t *MistakeTracker) LossStreak(symbol string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.losses[symbol]
}
