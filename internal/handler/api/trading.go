package api

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"TradePulse/internal/domain/models"
	domrepo "TradePulse/internal/domain/repository"
	svcmetrics "TradePulse/internal/service/metrics"
	"TradePulse/internal/services/agents"
	"TradePulse/internal/services/learning"
	"TradePulse/internal/services/trading"
	"TradePulse/internal/usecase"
	xhttp "TradePulse/pkg/http"
	"TradePulse/pkg/logger"
)

// TradingHandler serves signals, consensus, positions, performance and
// the agent control endpoints.
type TradingHandler struct {
	log          *logger.Logger
	signals      domrepo.SignalStore
	runner       *usecase.AgentRunner
	orchestrator *agents.Orchestrator
	execution    *trading.ExecutionManager
	breaker      *trading.CircuitBreaker
	performance  *learning.PerformanceTracker
}

func NewTradingHandler(
	log *logger.Logger,
	signals domrepo.SignalStore,
	runner *usecase.AgentRunner,
	orchestrator *agents.Orchestrator,
	execution *trading.ExecutionManager,
	breaker *trading.CircuitBreaker,
	performance *learning.PerformanceTracker,
) *TradingHandler {
	return &TradingHandler{
		log:          log,
		signals:      signals,
		runner:       runner,
		orchestrator: orchestrator,
		execution:    execution,
		breaker:      breaker,
		performance:  performance,
	}
}

var _ xhttp.Handler = (*TradingHandler)(nil)

func (h *TradingHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.GET("/signals", h.ListSignals)
	g.POST("/signals/:id/confirm", h.ConfirmSignal)
	g.GET("/consensus/latest", h.LatestConsensus)
	g.GET("/positions", h.ListPositions)
	g.GET("/performance", h.GetPerformance)
	g.POST("/performance/resume", h.ResumeTrading)
	g.POST("/agent/start", h.StartAgent)
	g.POST("/agent/stop", h.StopAgent)
	g.GET("/agent/status", h.AgentStatus)
}

// ListSignals returns persisted signals, newest first.
func (h *TradingHandler) ListSignals(c echo.Context) error {
	start := time.Now()
	defer func() {
		svcmetrics.APILatency.WithLabelValues("signals").Observe(time.Since(start).Seconds())
	}()

	req := new(models.SignalsRequest)
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rows, err := h.signals.ListSignals(c.Request().Context(),
		req.Symbol, models.SignalStatus(req.Status), req.Limit)
	if err != nil {
		svcmetrics.APIErrors.WithLabelValues("signals").Inc()
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// ConfirmSignal approves a pending signal for paper execution.
func (h *TradingHandler) ConfirmSignal(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return xhttp.BadRequestResponse(c, "signal id required")
	}
	if err := h.runner.ConfirmSignal(c.Request().Context(), id); err != nil {
		svcmetrics.APIErrors.WithLabelValues("signals").Inc()
		return xhttp.BadRequestResponse(c, err.Error())
	}
	h.log.Info("signal confirmed", logger.String("signal", id))
	return xhttp.SuccessResponse(c, map[string]string{"id": id, "status": string(models.SignalFilled)})
}

// LatestConsensus returns the most recent consensus round per symbol.
func (h *TradingHandler) LatestConsensus(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.orchestrator.LatestAll())
}

// ListPositions returns open positions and pending confirmations.
func (h *TradingHandler) ListPositions(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"open":    h.execution.Positions(),
		"pending": h.execution.Pending(),
	})
}

// GetPerformance returns the rolling account summary.
func (h *TradingHandler) GetPerformance(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.performance.Summary())
}

// ResumeTrading lifts the kill switch after manual review.
func (h *TradingHandler) ResumeTrading(c echo.Context) error {
	h.performance.Resume()
	h.breaker.Reset()
	h.log.Info("trading resumed manually")
	return xhttp.SuccessResponse(c, h.performance.Summary())
}

// StartAgent launches the trading loop. The loop outlives the request,
// so it runs under its own context rather than the request's.
func (h *TradingHandler) StartAgent(c echo.Context) error {
	if err := h.runner.Start(context.Background()); err != nil {
		svcmetrics.APIErrors.WithLabelValues("agent").Inc()
		return xhttp.AppErrorResponse(c, err)
	}
	return h.AgentStatus(c)
}

// StopAgent halts the trading loop. Open positions keep being marked.
func (h *TradingHandler) StopAgent(c echo.Context) error {
	h.runner.Stop()
	return h.AgentStatus(c)
}

// AgentStatus reports the loop state, risk posture and the latest
// cycle outcome per symbol.
func (h *TradingHandler) AgentStatus(c echo.Context) error {
	breaker := h.breaker.Status()
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"running":     h.runner.Running(),
		"performance": h.performance.Summary(),
		"breaker":     breaker,
		"open":        h.execution.OpenCount(),
		"pending":     len(h.execution.Pending()),
		"symbols":     h.runner.CycleStats(),
	})
}
