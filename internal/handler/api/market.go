package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"TradePulse/internal/domain/models"
	domrepo "TradePulse/internal/domain/repository"
	"TradePulse/internal/service/cache"
	svcmetrics "TradePulse/internal/service/metrics"
	"TradePulse/internal/service/ratelimit"
	"TradePulse/internal/usecase"
	xhttp "TradePulse/pkg/http"
	"TradePulse/pkg/logger"
	"TradePulse/pkg/util"
)

const (
	pricesCacheTTL   = 2 * time.Second
	analysisCacheTTL = 15 * time.Second
)

// MarketHandler serves prices, candles and the per-symbol analysis view.
type MarketHandler struct {
	log      *logger.Logger
	candles  *usecase.CandlesUseCase
	analysis *usecase.AnalysisUseCase
	cache    cache.BytesCache
	rl       *ratelimit.Limiter
	symbols  []string // default watchlist when ?symbols is absent
}

func NewMarketHandler(
	log *logger.Logger,
	candles *usecase.CandlesUseCase,
	analysis *usecase.AnalysisUseCase,
	bc cache.BytesCache,
	rl *ratelimit.Limiter,
	symbols []string,
) *MarketHandler {
	return &MarketHandler{
		log:      log,
		candles:  candles,
		analysis: analysis,
		cache:    bc,
		rl:       rl,
		symbols:  symbols,
	}
}

var _ xhttp.Handler = (*MarketHandler)(nil)

func (h *MarketHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.GET("/market/prices", h.GetPrices)
	g.GET("/market/candles/:symbol", h.GetCandles)
	g.GET("/analysis/:symbol", h.GetAnalysis)
}

// GetPrices returns the latest quote for each requested symbol.
func (h *MarketHandler) GetPrices(c echo.Context) error {
	start := time.Now()
	defer func() {
		svcmetrics.APILatency.WithLabelValues("prices").Observe(time.Since(start).Seconds())
	}()

	req := new(models.PricesRequest)
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	symbols := h.symbols
	if req.Symbols != "" {
		symbols = splitSymbols(req.Symbols)
	}
	if len(symbols) == 0 {
		return xhttp.BadRequestResponse(c, "no symbols requested or configured")
	}

	key := "prices:" + strings.Join(symbols, ",")
	if b, ok, _ := h.cache.GetBytes(key); ok {
		return cachedJSON(c, b)
	}

	quotes := make([]*models.PriceQuote, 0, len(symbols))
	for _, symbol := range symbols {
		q, err := h.candles.LatestQuote(c.Request().Context(), symbol)
		if err != nil {
			h.log.Warn("quote unavailable",
				logger.String("symbol", symbol),
				logger.Error(err))
			continue
		}
		quotes = append(quotes, q)
	}
	if len(quotes) == 0 {
		svcmetrics.APIErrors.WithLabelValues("prices").Inc()
		return xhttp.NotFoundResponse(c, "no quotes available")
	}

	h.storeCache(key, quotes, pricesCacheTTL)
	return xhttp.SuccessResponse(c, quotes)
}

// GetCandles returns recent bars for one symbol and timeframe.
func (h *MarketHandler) GetCandles(c echo.Context) error {
	start := time.Now()
	defer func() {
		svcmetrics.APILatency.WithLabelValues("candles").Observe(time.Since(start).Seconds())
	}()

	req := new(models.CandlesRequest)
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	symbol := strings.ToUpper(c.Param("symbol"))
	if symbol == "" {
		return xhttp.BadRequestResponse(c, "symbol required")
	}

	tf := domrepo.NormalizeTimeframe(req.TF)

	var bars []models.Candle
	var err error
	if fromRaw := c.QueryParam("from"); fromRaw != "" {
		now := time.Now().UTC()
		from := xhttp.ParseTimeDefault(fromRaw, now.Add(-24*time.Hour))
		to := xhttp.ParseTimeDefault(c.QueryParam("to"), now)
		from, to = util.AlignFromTo(from, to, string(tf))

		var res *usecase.GetCandlesResult
		res, err = h.candles.GetCandles(c.Request().Context(), usecase.GetCandlesParams{
			Symbol:    symbol,
			From:      from,
			To:        to,
			Timeframe: tf,
			Limit:     req.Limit,
		})
		if res != nil {
			bars = res.Candles
		}
	} else {
		bars, err = h.candles.GetLatest(c.Request().Context(), symbol, req.Limit, tf)
	}
	if err != nil {
		svcmetrics.APIErrors.WithLabelValues("candles").Inc()
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"symbol":  symbol,
		"tf":      string(tf),
		"count":   len(bars),
		"candles": bars,
	})
}

// GetAnalysis returns the full analytical snapshot for one symbol.
func (h *MarketHandler) GetAnalysis(c echo.Context) error {
	start := time.Now()
	defer func() {
		svcmetrics.APILatency.WithLabelValues("analysis").Observe(time.Since(start).Seconds())
	}()

	symbol := strings.ToUpper(c.Param("symbol"))
	if symbol == "" {
		return xhttp.BadRequestResponse(c, "symbol required")
	}
	if !h.rl.Allow(c.RealIP()+":analysis", 5, 2) {
		svcmetrics.APIRateLimited.WithLabelValues("analysis").Inc()
		return xhttp.TooManyRequestsResponse(c)
	}

	key := "analysis:" + symbol
	if b, ok, _ := h.cache.GetBytes(key); ok {
		return cachedJSON(c, b)
	}

	snap, err := h.analysis.Snapshot(c.Request().Context(), symbol)
	if err != nil {
		svcmetrics.APIErrors.WithLabelValues("analysis").Inc()
		return xhttp.AppErrorResponse(c, err)
	}

	h.storeCache(key, snap, analysisCacheTTL)
	return xhttp.SuccessResponse(c, snap)
}

func (h *MarketHandler) storeCache(key string, data interface{}, ttl time.Duration) {
	b, err := json.Marshal(xhttp.APIResponse{
		Status:  http.StatusOK,
		Message: http.StatusText(http.StatusOK),
		Data:    data,
	})
	if err != nil {
		return
	}
	if err := h.cache.SetBytes(key, b, ttl); err != nil {
		h.log.Warn("response cache write failed", logger.Error(err))
	}
}

func cachedJSON(c echo.Context, b []byte) error {
	c.Response().Header().Set("X-Cache", "HIT")
	return c.JSONBlob(http.StatusOK, b)
}

func splitSymbols(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
