package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"

	domrepo "TradePulse/internal/domain/repository"
	"TradePulse/internal/usecase"
	xhttp "TradePulse/pkg/http"
	"TradePulse/pkg/logger"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// SystemHandler serves liveness and runtime information.
type SystemHandler struct {
	log     *logger.Logger
	storage domrepo.Storage
	runner  *usecase.AgentRunner
	symbols []string
	started time.Time
}

func NewSystemHandler(
	log *logger.Logger,
	storage domrepo.Storage,
	runner *usecase.AgentRunner,
	symbols []string,
) *SystemHandler {
	return &SystemHandler{
		log:     log,
		storage: storage,
		runner:  runner,
		symbols: symbols,
		started: time.Now().UTC(),
	}
}

var _ xhttp.Handler = (*SystemHandler)(nil)

func (h *SystemHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)
	e.GET("/api/v1/system/info", h.SystemInfo)
}

// Healthz reports liveness plus storage reachability.
func (h *SystemHandler) Healthz(c echo.Context) error {
	status := "ok"
	code := http.StatusOK
	if h.storage != nil {
		if err := h.storage.Health(c.Request().Context()); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
			h.log.Warn("healthz: storage unreachable", logger.Error(err))
		}
	}
	return c.JSON(code, map[string]string{"status": status})
}

// SystemInfo returns build and runtime facts for the dashboard.
func (h *SystemHandler) SystemInfo(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"version":        Version,
		"go_version":     runtime.Version(),
		"started_at":     h.started,
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"goroutines":     runtime.NumGoroutine(),
		"symbols":        h.symbols,
		"agent_running":  h.runner.Running(),
	})
}
