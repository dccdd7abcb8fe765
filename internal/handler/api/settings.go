package api

import (
	"github.com/labstack/echo/v4"

	"TradePulse/internal/domain/models"
	svcmetrics "TradePulse/internal/service/metrics"
	"TradePulse/internal/service/settings"
	xhttp "TradePulse/pkg/http"
	"TradePulse/pkg/logger"
)

// SettingsHandler exposes runtime configuration sections.
type SettingsHandler struct {
	log   *logger.Logger
	store *settings.Store
}

func NewSettingsHandler(log *logger.Logger, store *settings.Store) *SettingsHandler {
	return &SettingsHandler{log: log, store: store}
}

var _ xhttp.Handler = (*SettingsHandler)(nil)

func (h *SettingsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.GET("/settings", h.GetSettings)
	g.GET("/settings/schema", h.GetSchema)
	g.PUT("/settings", h.UpdateSettings)
}

// GetSchema describes the tunable sections and their fields.
func (h *SettingsHandler) GetSchema(c echo.Context) error {
	return xhttp.SuccessResponse(c, settings.Schema())
}

// GetSettings returns all configuration sections.
func (h *SettingsHandler) GetSettings(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.store.All())
}

// UpdateSettings merges new values into one section and persists.
func (h *SettingsHandler) UpdateSettings(c echo.Context) error {
	req := new(models.SettingsUpdateRequest)
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if err := h.store.Update(req.Section, req.Values); err != nil {
		svcmetrics.APIErrors.WithLabelValues("settings").Inc()
		return xhttp.BadRequestResponse(c, err.Error())
	}
	h.log.Info("settings updated", logger.String("section", req.Section))
	return xhttp.SuccessResponse(c, h.store.All())
}
