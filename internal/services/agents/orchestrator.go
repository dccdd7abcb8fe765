package agents

import (
	"context"
	"sort"
	"sync"
	"time"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/domain/service"
	"TradePulse/pkg/logger"
)

// Consensus gates: a decision needs a directional majority of at least
// minMajority votes whose average confidence clears minConfidence.
const (
	minMajority   = 3
	minConfidence = 0.50
)

// ConsensusCallback fires after every completed consensus round.
type ConsensusCallback func(*models.ConsensusResult)

// Orchestrator runs all agents concurrently and merges their votes.
type Orchestrator struct {
	agents    []service.Agent
	log       *logger.Logger
	callbacks []ConsensusCallback

	mu     sync.RWMutex
	latest map[string]*models.ConsensusResult
}

func NewOrchestrator(log *logger.Logger, agents ...service.Agent) *Orchestrator {
	return &Orchestrator{
		agents: agents,
		log:    log,
		latest: make(map[string]*models.ConsensusResult),
	}
}

// OnConsensus registers a callback invoked for every consensus round.
func (o *Orchestrator) OnConsensus(cb ConsensusCallback) {
	o.callbacks = append(o.callbacks, cb)
}

// Latest returns the most recent consensus for symbol, if any.
func (o *Orchestrator) Latest(symbol string) (*models.ConsensusResult, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	r, ok := o.latest[symbol]
	return r, ok
}

// LatestAll returns the latest consensus per symbol, sorted by symbol.
func (o *Orchestrator) LatestAll() []*models.ConsensusResult {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]*models.ConsensusResult, 0, len(o.latest))
	for _, r := range o.latest {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Decide runs every agent on sctx and merges the votes into a consensus.
// A veto from any agent makes the round non-actionable regardless of votes.
func (o *Orchestrator) Decide(ctx context.Context, sctx *service.SymbolContext) *models.ConsensusResult {
	votes := make([]models.AgentVote, len(o.agents))
	var wg sync.WaitGroup
	for i, agent := range o.agents {
		wg.Add(1)
		go func(i int, agent service.Agent) {
			defer wg.Done()
			v, err := agent.Evaluate(ctx, sctx)
			if err != nil {
				o.log.Warn("agent evaluation failed",
					logger.String("agent", agent.Name()),
					logger.String("symbol", sctx.Symbol),
					logger.Error(err))
				v = vote(agent.Name(), sctx.Symbol, models.Neutral, 0, false, "evaluation error")
			}
			votes[i] = v
		}(i, agent)
	}
	wg.Wait()

	result := merge(sctx.Symbol, votes)

	o.mu.Lock()
	o.latest[sctx.Symbol] = result
	o.mu.Unlock()

	for _, cb := range o.callbacks {
		cb(result)
	}
	return result
}

// merge tallies votes: majority direction, average confidence of the
// majority, and the veto rule.
func merge(symbol string, votes []models.AgentVote) *models.ConsensusResult {
	result := &models.ConsensusResult{
		Symbol:    symbol,
		Direction: models.Neutral,
		Votes:     votes,
		Timestamp: time.Now().UTC(),
	}

	counts := map[models.Direction]int{}
	var score float64
	for _, v := range votes {
		counts[v.Direction]++
		switch v.Direction {
		case models.Long:
			score += v.Confidence
		case models.Short:
			score -= v.Confidence
		}
		if v.Veto {
			result.VetoedBy = append(result.VetoedBy, v.Agent)
		}
	}
	if len(votes) > 0 {
		result.Score = score / float64(len(votes))
	}

	// a Long/Short tie has no lean to report
	majority := models.Neutral
	best := 0
	switch {
	case counts[models.Long] > counts[models.Short]:
		majority, best = models.Long, counts[models.Long]
	case counts[models.Short] > counts[models.Long]:
		majority, best = models.Short, counts[models.Short]
	}
	result.Direction = majority
	if len(votes) > 0 {
		result.Agreement = float64(best) / float64(len(votes))
	}

	if majority != models.Neutral {
		var confSum float64
		for _, v := range votes {
			if v.Direction == majority {
				confSum += v.Confidence
			}
		}
		result.AvgConfidence = confSum / float64(best)
	}

	result.Actionable = len(result.VetoedBy) == 0 &&
		majority != models.Neutral &&
		best >= minMajority &&
		result.AvgConfidence >= minConfidence
	return result
}
