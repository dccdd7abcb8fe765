package api

import (
	"github.com/labstack/echo/v4"

	xhttp "TradePulse/pkg/http"
)

// Router bundles all API handlers behind one route registrar.
type Router struct {
	handlers []xhttp.Handler
}

func NewRouter(handlers ...xhttp.Handler) *Router {
	return &Router{handlers: handlers}
}

var _ xhttp.Handler = (*Router)(nil)

func (r *Router) RegisterRoutes(e *echo.Echo) {
	for _, h := range r.handlers {
		h.RegisterRoutes(e)
	}
}
