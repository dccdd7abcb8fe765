package models

import "time"

// AgentVote is one agent's opinion about a symbol.
type AgentVote struct {
	Agent      string    `json:"agent"`
	Symbol     string    `json:"symbol"`
	Direction  Direction `json:"direction"`
	Confidence float64   `json:"confidence"`
	Veto       bool      `json:"veto"`
	Reason     string    `json:"reason"`
	Timestamp  time.Time `json:"timestamp"`
}

// ConsensusResult aggregates agent votes into one decision per symbol.
type ConsensusResult struct {
	Symbol        string      `json:"symbol"`
	Direction     Direction   `json:"direction"`
	Score         float64     `json:"score"`
	AvgConfidence float64     `json:"avg_confidence"`
	Agreement     float64     `json:"agreement"`
	Votes         []AgentVote `json:"votes"`
	VetoedBy      []string    `json:"vetoed_by,omitempty"`
	Actionable    bool        `json:"actionable"`
	Timestamp     time.Time   `json:"timestamp"`
}

// RegimeState labels the prevailing market regime for a symbol.
type RegimeState string

const (
	RegimeTrendingUp     RegimeState = "trending_up"
	RegimeTrendingDown   RegimeState = "trending_down"
	RegimeRangeBound     RegimeState = "range_bound"
	RegimeHighVolatility RegimeState = "high_volatility"
	RegimeLowVolatility  RegimeState = "low_volatility"
)

// Regime is a detected market regime with confidence and duration.
type Regime struct {
	Symbol     string      `json:"symbol"`
	State      RegimeState `json:"state"`
	Confidence float64     `json:"confidence"`
	Since      time.Time   `json:"since"`
	Timestamp  time.Time   `json:"timestamp"`
}

// Sentiment is a blended market mood score in [-1, 1].
type Sentiment struct {
	Score     float64   `json:"score"`
	FearGreed int       `json:"fear_greed"`
	Label     string    `json:"label"`
	Timestamp time.Time `json:"timestamp"`
}

// TimeframeScore is the confluence verdict for one timeframe.
type TimeframeScore struct {
	TF         string             `json:"tf"`
	Score      float64            `json:"score"`
	Components map[string]float64 `json:"components"`
}

// ConfluenceResult is the multi-timeframe technical verdict for a symbol.
type ConfluenceResult struct {
	Symbol     string           `json:"symbol"`
	Score      float64          `json:"score"`
	Direction  Direction        `json:"direction"`
	Confidence float64          `json:"confidence"`
	Timeframes []TimeframeScore `json:"timeframes"`
	Reasons    []string         `json:"reasons"`
	Timestamp  time.Time        `json:"timestamp"`
}

// AnalysisSnapshot is the full analytical view of one symbol, as served by the API.
type AnalysisSnapshot struct {
	Symbol     string                        `json:"symbol"`
	Price      float64                       `json:"price"`
	Indicators map[string]map[string]float64 `json:"indicators"`
	Confluence *ConfluenceResult             `json:"confluence"`
	Regime     *Regime                       `json:"regime"`
	Sentiment  *Sentiment                    `json:"sentiment"`
	Prediction *EnsemblePrediction           `json:"prediction,omitempty"`
	Timestamp  time.Time                     `json:"timestamp"`
}

// ModelVote is a single model's contribution to an ensemble prediction.
type ModelVote struct {
	Model      string    `json:"model"`
	Direction  Direction `json:"direction"`
	Score      float64   `json:"score"`
	Confidence float64   `json:"confidence"`
	Weight     float64   `json:"weight"`
}

// EnsemblePrediction is the weighted vote of all ML models for a symbol.
type EnsemblePrediction struct {
	Symbol     string      `json:"symbol"`
	Direction  Direction   `json:"direction"`
	Score      float64     `json:"score"`
	Confidence float64     `json:"confidence"`
	Agreement  float64     `json:"agreement"`
	Votes      []ModelVote `json:"votes"`
	Timestamp  time.Time   `json:"timestamp"`
}
