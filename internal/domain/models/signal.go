package models

import "time"

// Direction is the traded side of a signal or vote.
type Direction string

const (
	Long    Direction = "LONG"
	Short   Direction = "SHORT"
	Neutral Direction = "NEUTRAL"
)

// Opposite returns the inverse side. Neutral maps to itself.
func (d Direction) Opposite() Direction {
	switch d {
	case Long:
		return Short
	case Short:
		return Long
	default:
		return Neutral
	}
}

// SignalStatus tracks a signal through its lifecycle.
type SignalStatus string

const (
	SignalPending   SignalStatus = "PENDING"
	SignalActive    SignalStatus = "ACTIVE"
	SignalFilled    SignalStatus = "FILLED"
	SignalCancelled SignalStatus = "CANCELLED"
	SignalExpired   SignalStatus = "EXPIRED"
)

// TradingSignal is a fully specified trade proposal produced from a consensus.
type TradingSignal struct {
	ID             string       `json:"id"`
	Timestamp      time.Time    `json:"timestamp"`
	Symbol         string       `json:"symbol"`
	Direction      Direction    `json:"direction"`
	SignalType     string       `json:"signal_type"`
	Entry          float64      `json:"entry"`
	StopLoss       float64      `json:"stop_loss"`
	TakeProfit     float64      `json:"take_profit"`
	TakeProfit2    float64      `json:"take_profit2,omitempty"`
	Size           float64      `json:"size"`
	RiskPct        float64      `json:"risk_pct"`
	RiskReward     float64      `json:"risk_reward"`
	Confidence     float64      `json:"confidence"`
	ConsensusScore float64      `json:"consensus_score"`
	Agreement      float64      `json:"agreement"`
	Status         SignalStatus `json:"status"`
	ExpiresAt      time.Time    `json:"expires_at"`
	Reasons        []string     `json:"reasons"`
}

// RiskPerUnit returns the per-unit distance between entry and stop.
func (s *TradingSignal) RiskPerUnit() float64 {
	d := s.Entry - s.StopLoss
	if d < 0 {
		return -d
	}
	return d
}

// Expired reports whether the signal is past its validity window.
func (s *TradingSignal) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// OutcomeResult classifies a closed trade.
type OutcomeResult string

const (
	OutcomeWin       OutcomeResult = "WIN"
	OutcomeLoss      OutcomeResult = "LOSS"
	OutcomeBreakeven OutcomeResult = "BREAKEVEN"
)

// TradeOutcome records how a signal resolved once its position closed.
type TradeOutcome struct {
	SignalID   string        `json:"signal_id"`
	Symbol     string        `json:"symbol"`
	Direction  Direction     `json:"direction"`
	Entry      float64       `json:"entry"`
	Exit       float64       `json:"exit"`
	PnL        float64       `json:"pnl"`
	PnLPct     float64       `json:"pnl_pct"`
	Result     OutcomeResult `json:"result"`
	ExitReason string        `json:"exit_reason"`
	OpenedAt   time.Time     `json:"opened_at"`
	ClosedAt   time.Time     `json:"closed_at"`
}

// Position is an open paper trade tracked by the execution manager.
type Position struct {
	SignalID   string    `json:"signal_id"`
	Symbol     string    `json:"symbol"`
	Direction  Direction `json:"direction"`
	Entry      float64   `json:"entry"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	Size       float64   `json:"size"`
	OpenedAt   time.Time `json:"opened_at"`
}

// UnrealizedPnL values the position against the given price.
func (p *Position) UnrealizedPnL(price float64) float64 {
	if p.Direction == Short {
		return (p.Entry - price) * p.Size
	}
	return (price - p.Entry) * p.Size
}
