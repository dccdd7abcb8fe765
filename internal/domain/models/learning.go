package models

import "time"

// MistakeType categorizes recurring trading errors.
type MistakeType string

const (
	MistakeCounterTrend   MistakeType = "counter_trend"
	MistakeLowConfidence  MistakeType = "low_confidence"
	MistakeHighVolatility MistakeType = "high_volatility"
	MistakeRepeatLoss     MistakeType = "repeat_loss"
)

// TradingMistake is a categorized post-mortem of a losing trade.
type TradingMistake struct {
	Timestamp        time.Time   `json:"timestamp"`
	Symbol           string      `json:"symbol"`
	Type             MistakeType `json:"type"`
	Severity         float64     `json:"severity"`
	Description      string      `json:"description"`
	CorrectiveAction string      `json:"corrective_action"`
}

// EvolutionEvent records a self-adjustment made by the learning loop.
type EvolutionEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Symbol    string    `json:"symbol"`
	Event     string    `json:"event"`
	Detail    string    `json:"detail"`
	WinRate   float64   `json:"win_rate"`
	Threshold float64   `json:"threshold"`
}

// ModelPerformance is one accuracy measurement for a predictor.
type ModelPerformance struct {
	Timestamp   time.Time `json:"timestamp"`
	Model       string    `json:"model"`
	Accuracy    float64   `json:"accuracy"`
	Predictions int       `json:"predictions"`
	Agreement   float64   `json:"agreement"`
}

// PerformanceSummary is the rolling account view served by the API.
type PerformanceSummary struct {
	TotalTrades  int       `json:"total_trades"`
	Wins         int       `json:"wins"`
	Losses       int       `json:"losses"`
	WinRate      float64   `json:"win_rate"`
	TotalPnL     float64   `json:"total_pnl"`
	MaxDrawdown  float64   `json:"max_drawdown"`
	Sharpe       float64   `json:"sharpe"`
	AvgRR        float64   `json:"avg_rr"`
	KillSwitch   bool      `json:"kill_switch"`
	KillReason   string    `json:"kill_reason,omitempty"`
	Balance      float64   `json:"balance"`
	StartBalance float64   `json:"start_balance"`
	UpdatedAt    time.Time `json:"updated_at"`
}
