package api

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"TradePulse/internal/domain/models"
	domsvc "TradePulse/internal/domain/service"
	"TradePulse/internal/service/llm"
	svcmetrics "TradePulse/internal/service/metrics"
	"TradePulse/internal/service/ratelimit"
	xhttp "TradePulse/pkg/http"
	"TradePulse/pkg/logger"
)

// ChatHandler serves the conversational interface and the economic
// calendar.
type ChatHandler struct {
	log      *logger.Logger
	engine   *llm.Engine
	calendar domsvc.CalendarProvider
	rl       *ratelimit.Limiter
}

func NewChatHandler(
	log *logger.Logger,
	engine *llm.Engine,
	calendar domsvc.CalendarProvider,
	rl *ratelimit.Limiter,
) *ChatHandler {
	return &ChatHandler{log: log, engine: engine, calendar: calendar, rl: rl}
}

var _ xhttp.Handler = (*ChatHandler)(nil)

func (h *ChatHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.POST("/chat/message", h.PostMessage)
	g.GET("/chat/history", h.GetHistory)
	g.GET("/calendar", h.GetCalendar)
	g.GET("/calendar/next", h.GetNextEvent)
}

// PostMessage routes one user message through the chat engine.
func (h *ChatHandler) PostMessage(c echo.Context) error {
	start := time.Now()
	defer func() {
		svcmetrics.APILatency.WithLabelValues("chat").Observe(time.Since(start).Seconds())
	}()

	req := new(models.ChatMessageRequest)
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":chat", 1, 3) {
		svcmetrics.APIRateLimited.WithLabelValues("chat").Inc()
		return xhttp.TooManyRequestsResponse(c)
	}

	reply, err := h.engine.Handle(c.Request().Context(), req.Message)
	if err != nil {
		svcmetrics.APIErrors.WithLabelValues("chat").Inc()
		h.log.Warn("chat failed", logger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, reply)
}

// GetHistory returns the recent conversation turns.
func (h *ChatHandler) GetHistory(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.engine.History())
}

// GetCalendar returns upcoming economic events, optionally filtered.
func (h *ChatHandler) GetCalendar(c echo.Context) error {
	req := new(models.CalendarRequest)
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	events, err := h.calendar.Events(c.Request().Context())
	if err != nil {
		svcmetrics.APIErrors.WithLabelValues("calendar").Inc()
		return xhttp.AppErrorResponse(c, err)
	}

	filtered := events[:0:0]
	for _, ev := range events {
		if req.Currency != "" && !strings.EqualFold(ev.Currency, req.Currency) {
			continue
		}
		if req.Impact != "" && !strings.EqualFold(ev.Impact, req.Impact) {
			continue
		}
		filtered = append(filtered, ev)
	}
	return xhttp.ListResponse(c, filtered, int64(len(filtered)))
}

// GetNextEvent returns the nearest upcoming event, or null when the
// calendar is empty.
func (h *ChatHandler) GetNextEvent(c echo.Context) error {
	events, err := h.calendar.Events(c.Request().Context())
	if err != nil {
		svcmetrics.APIErrors.WithLabelValues("calendar").Inc()
		return xhttp.AppErrorResponse(c, err)
	}
	if len(events) == 0 {
		return xhttp.SuccessResponse(c, nil)
	}
	return xhttp.SuccessResponse(c, events[0])
}
