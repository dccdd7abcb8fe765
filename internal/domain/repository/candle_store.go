package repository

import (
	"context"
	"time"

	"TradePulse/internal/domain/models"
)

// CandleStore provides access to stored candles for analysis and the API.
type CandleStore interface {
	GetCandles(ctx context.Context, symbol string, from, to time.Time, tf Timeframe) ([]models.Candle, error)
	GetLatestNCandles(ctx context.Context, symbol string, n int, tf Timeframe) ([]models.Candle, error)
	LatestQuote(ctx context.Context, symbol string) (*models.PriceQuote, error)
}
