package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"TradePulse/internal/domain/models"
	domrepo "TradePulse/internal/domain/repository"
	svcmetrics "TradePulse/internal/service/metrics"
	xhttp "TradePulse/pkg/http"
	"TradePulse/pkg/logger"
)

// LearningHandler serves the learning loop's output: mistakes,
// evolution events and per-model accuracy.
type LearningHandler struct {
	log   *logger.Logger
	store domrepo.LearningStore
}

func NewLearningHandler(log *logger.Logger, store domrepo.LearningStore) *LearningHandler {
	return &LearningHandler{log: log, store: store}
}

var _ xhttp.Handler = (*LearningHandler)(nil)

func (h *LearningHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.GET("/mistakes", h.ListMistakes)
	g.GET("/evolution/recent", h.RecentEvolution)
	g.GET("/models/performance", h.ModelPerformance)
}

// ListMistakes returns categorized post-mortems, newest first.
func (h *LearningHandler) ListMistakes(c echo.Context) error {
	start := time.Now()
	defer func() {
		svcmetrics.APILatency.WithLabelValues("mistakes").Observe(time.Since(start).Seconds())
	}()

	req := new(models.MistakesRequest)
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rows, err := h.store.ListMistakes(c.Request().Context(), req.Symbol, req.Limit)
	if err != nil {
		svcmetrics.APIErrors.WithLabelValues("mistakes").Inc()
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// RecentEvolution returns the latest self-adjustment events.
func (h *LearningHandler) RecentEvolution(c echo.Context) error {
	req := new(models.EvolutionRequest)
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rows, err := h.store.ListEvolution(c.Request().Context(), req.Limit)
	if err != nil {
		svcmetrics.APIErrors.WithLabelValues("evolution").Inc()
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// ModelPerformance returns accuracy history for the ensemble models.
func (h *LearningHandler) ModelPerformance(c echo.Context) error {
	model := c.QueryParam("model")
	rows, err := h.store.ListModelPerformance(c.Request().Context(), model, 100)
	if err != nil {
		svcmetrics.APIErrors.WithLabelValues("models").Inc()
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}
