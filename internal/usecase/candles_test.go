package usecase

import (
	"context"
	"testing"
	"time"

	"TradePulse/internal/domain/models"
	domrepo "TradePulse/internal/domain/repository"
)

type stubCandleStore struct {
	candles []models.Candle
}

func (s *stubCandleStore) GetCandles(_ context.Context, _ string, _, _ time.Time, _ domrepo.Timeframe) ([]models.Candle, error) {
	return s.candles, nil
}

func (s *stubCandleStore) GetLatestNCandles(_ context.Context, _ string, n int, _ domrepo.Timeframe) ([]models.Candle, error) {
	if n < len(s.candles) {
		return s.candles[len(s.candles)-n:], nil
	}
	return s.candles, nil
}

func (s *stubCandleStore) LatestQuote(_ context.Context, symbol string) (*models.PriceQuote, error) {
	return &models.PriceQuote{Symbol: symbol, Price: 100}, nil
}

func bars(n int) []models.Candle {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.Candle{
			Bucket: start.Add(time.Duration(i) * time.Hour),
			Symbol: "BTCUSDT",
			TF:     "1h",
			Open:   100, High: 101, Low: 99, Close: 100, Volume: 1,
		})
	}
	return out
}

func TestGetCandlesKeepsNewestOnLimit(t *testing.T) {
	uc := NewCandlesUseCase(&stubCandleStore{candles: bars(10)})

	res, err := uc.GetCandles(context.Background(), GetCandlesParams{
		Symbol:    "BTCUSDT",
		From:      time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		To:        time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
		Timeframe: domrepo.TF1h,
		Limit:     4,
	})
	if err != nil {
		t.Fatalf("get candles: %v", err)
	}
	if res.Count != 4 {
		t.Fatalf("count = %d, want 4", res.Count)
	}
	// truncation must drop the oldest bars, not the newest
	first := res.Candles[0].Bucket
	want := time.Date(2024, 6, 1, 6, 0, 0, 0, time.UTC)
	if !first.Equal(want) {
		t.Fatalf("first bar %v, want %v", first, want)
	}
}

func TestGetCandlesValidation(t *testing.T) {
	uc := NewCandlesUseCase(&stubCandleStore{candles: bars(2)})

	if _, err := uc.GetCandles(context.Background(), GetCandlesParams{}); err == nil {
		t.Fatal("missing symbol must fail")
	}

	_, err := uc.GetCandles(context.Background(), GetCandlesParams{
		Symbol: "BTCUSDT",
		From:   time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
		To:     time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	if err == nil {
		t.Fatal("inverted range must fail")
	}
}
