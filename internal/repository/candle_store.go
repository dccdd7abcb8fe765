package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"TradePulse/internal/domain/models"
	domrepo "TradePulse/internal/domain/repository"
	pkgch "TradePulse/pkg/clickhouse"
	applogger "TradePulse/pkg/logger"
)

// CHCandleStore implements CandleStore backed by ClickHouse.
type CHCandleStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHCandleStore(ch *pkgch.Client, table string) *CHCandleStore {
	return &CHCandleStore{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *CHCandleStore) SetLogger(l *applogger.Logger) { s.l = l }

var _ domrepo.CandleStore = (*CHCandleStore)(nil)

func (s *CHCandleStore) GetCandles(ctx context.Context, symbol string, from, to time.Time, tf domrepo.Timeframe) ([]models.Candle, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT bucket, symbol, tf, open, high, low, close, vol
        FROM %s FINAL
        WHERE symbol = ? AND tf = ? AND bucket >= ? AND bucket <= ?
        ORDER BY bucket ASC
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, string(tf), from, to)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse get_candles query error",
				applogger.String("symbol", symbol),
				applogger.String("tf", string(tf)),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("get candles: %w", err)
	}
	defer rows.Close()

	out := make([]models.Candle, 0, 1024)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Bucket, &c.Symbol, &c.TF, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse get_candles ok",
			applogger.String("symbol", symbol),
			applogger.String("tf", string(tf)),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHCandleStore) GetLatestNCandles(ctx context.Context, symbol string, n int, tf domrepo.Timeframe) ([]models.Candle, error) {
	q := fmt.Sprintf(`
        SELECT bucket, symbol, tf, open, high, low, close, vol
        FROM %s FINAL
        WHERE symbol = ? AND tf = ?
        ORDER BY bucket DESC
        LIMIT ?
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, string(tf), n)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse latest_candles query error",
				applogger.String("symbol", symbol),
				applogger.String("tf", string(tf)),
				applogger.Int("limit", n),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("get latest candles: %w", err)
	}
	defer rows.Close()

	tmp := make([]models.Candle, 0, n)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Bucket, &c.Symbol, &c.TF, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		tmp = append(tmp, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	// reverse to ASC
	for i, j := 0, len(tmp)-1; i < j; i, j = i+1, j-1 {
		tmp[i], tmp[j] = tmp[j], tmp[i]
	}
	return tmp, nil
}

// LatestQuote derives the newest price and 24h change from stored 1m bars.
func (s *CHCandleStore) LatestQuote(ctx context.Context, symbol string) (*models.PriceQuote, error) {
	q := fmt.Sprintf(`
        SELECT
            argMax(close, bucket)          AS last_price,
            max(bucket)                    AS last_bucket,
            argMin(close, bucket)          AS first_price,
            sum(close * vol)               AS quote_volume
        FROM %s FINAL
        WHERE symbol = ? AND tf = '1m' AND bucket >= now() - INTERVAL 24 HOUR
    `, s.table)

	var (
		lastPrice   float64
		lastBucket  time.Time
		firstPrice  float64
		quoteVolume float64
	)
	err := s.db.QueryRowContext(ctx, q, symbol).Scan(&lastPrice, &lastBucket, &firstPrice, &quoteVolume)
	if err != nil {
		return nil, fmt.Errorf("latest quote %s: %w", symbol, err)
	}
	if lastPrice == 0 {
		return nil, fmt.Errorf("latest quote %s: no data", symbol)
	}

	change := 0.0
	if firstPrice > 0 {
		change = (lastPrice - firstPrice) / firstPrice * 100
	}
	return &models.PriceQuote{
		Symbol:    symbol,
		Price:     lastPrice,
		Change24h: change,
		Volume24h: quoteVolume,
		UpdatedAt: lastBucket,
	}, nil
}
