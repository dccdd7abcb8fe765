package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"TradePulse/internal/domain/models"
	domrepo "TradePulse/internal/domain/repository"
	"TradePulse/internal/service/cache"
	"TradePulse/internal/service/ratelimit"
	"TradePulse/internal/usecase"
	"TradePulse/pkg/logger"
)

type fakeCandleStore struct {
	candles []models.Candle
	quote   *models.PriceQuote
}

func (f *fakeCandleStore) GetCandles(_ context.Context, _ string, _, _ time.Time, _ domrepo.Timeframe) ([]models.Candle, error) {
	return f.candles, nil
}

func (f *fakeCandleStore) GetLatestNCandles(_ context.Context, _ string, n int, _ domrepo.Timeframe) ([]models.Candle, error) {
	if n < len(f.candles) {
		return f.candles[len(f.candles)-n:], nil
	}
	return f.candles, nil
}

func (f *fakeCandleStore) LatestQuote(_ context.Context, symbol string) (*models.PriceQuote, error) {
	if f.quote == nil {
		return nil, fmt.Errorf("no quote for %s", symbol)
	}
	q := *f.quote
	q.Symbol = symbol
	return &q, nil
}

func testBars(n int) []models.Candle {
	out := make([]models.Candle, 0, n)
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		out = append(out, models.Candle{
			Bucket: start.Add(time.Duration(i) * time.Hour),
			Symbol: "BTCUSDT",
			TF:     "1h",
			Open:   100, High: 101, Low: 99, Close: 100.5, Volume: 10,
		})
	}
	return out
}

func newMarketHandler(t *testing.T, store domrepo.CandleStore) *MarketHandler {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return NewMarketHandler(log, usecase.NewCandlesUseCase(store), nil,
		cache.NewTTLCache(), ratelimit.New(), []string{"BTCUSDT", "ETHUSDT"})
}

func TestGetCandlesReturnsBars(t *testing.T) {
	h := newMarketHandler(t, &fakeCandleStore{candles: testBars(10)})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/market/candles/btcusdt?tf=1h&limit=5", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/v1/market/candles/:symbol")
	c.SetParamNames("symbol")
	c.SetParamValues("btcusdt")

	if err := h.GetCandles(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Data struct {
			Symbol string `json:"symbol"`
			TF     string `json:"tf"`
			Count  int    `json:"count"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Symbol != "BTCUSDT" {
		t.Fatalf("symbol not normalized: %q", body.Data.Symbol)
	}
	if body.Data.Count != 5 {
		t.Fatalf("count = %d, want limit 5", body.Data.Count)
	}
}

func TestGetCandlesRejectsBadTimeframe(t *testing.T) {
	h := newMarketHandler(t, &fakeCandleStore{candles: testBars(3)})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/market/candles/BTCUSDT?tf=7h", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("symbol")
	c.SetParamValues("BTCUSDT")

	if err := h.GetCandles(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	var body struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != http.StatusBadRequest {
		t.Fatalf("status = %d, want validation failure", body.Status)
	}
}

func TestGetPricesUsesWatchlistAndCache(t *testing.T) {
	store := &fakeCandleStore{quote: &models.PriceQuote{Price: 50000, Change24h: 1.2}}
	h := newMarketHandler(t, store)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/market/prices", nil)
	rec := httptest.NewRecorder()
	if err := h.GetPrices(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler: %v", err)
	}

	var body struct {
		Data []models.PriceQuote `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data) != 2 {
		t.Fatalf("quotes = %d, want one per watchlist symbol", len(body.Data))
	}

	// second call is served from cache
	rec2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/api/v1/market/prices", nil)
	if err := h.GetPrices(e.NewContext(req2, rec2)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec2.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("expected cache hit on second request")
	}
}

func TestGetPricesExplicitSymbols(t *testing.T) {
	store := &fakeCandleStore{quote: &models.PriceQuote{Price: 3000}}
	h := newMarketHandler(t, store)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/market/prices?symbols=ethusdt", nil)
	rec := httptest.NewRecorder()
	if err := h.GetPrices(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler: %v", err)
	}

	var body struct {
		Data []models.PriceQuote `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data) != 1 || body.Data[0].Symbol != "ETHUSDT" {
		t.Fatalf("unexpected quotes %+v", body.Data)
	}
}
