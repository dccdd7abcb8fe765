package binance

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"TradePulse/internal/domain/models"
	drepo "TradePulse/internal/domain/repository"
	"TradePulse/pkg/logger"

	gobinance "github.com/adshao/go-binance/v2"
)

// Stream implements a MarketStream backed by Binance kline websockets,
// one subscription per symbol and timeframe. Only closed bars are
// forwarded downstream.
type Stream struct {
	rest           *gobinance.Client
	symbols        []string
	timeframes     []string
	reconnectDelay time.Duration
	log            *logger.Logger

	mu        sync.Mutex
	stops     []chan struct{}
	candles   chan *models.Candle
	errs      chan error
	connected bool
}

// New creates a Binance-backed MarketStream. Public kline streams need
// no credentials; keys are only used for authenticated REST calls.
func New(apiKey, secretKey string, symbols, timeframes []string, reconnectDelay time.Duration, log *logger.Logger) *Stream {
	return &Stream{
		rest:           gobinance.NewClient(apiKey, secretKey),
		symbols:        symbols,
		timeframes:     timeframes,
		reconnectDelay: reconnectDelay,
		log:            log,
		candles:        make(chan *models.Candle, 1024),
		errs:           make(chan error, 16),
	}
}

var _ drepo.MarketStream = (*Stream)(nil)

// Connect verifies exchange reachability.
func (s *Stream) Connect(ctx context.Context) error {
	if err := s.rest.NewPingService().Do(ctx); err != nil {
		return fmt.Errorf("binance connect: %w", err)
	}
	s.mu.Lock()
	s.connected = true
	s.mu.Unlock()
	s.log.Info("binance: connected",
		logger.Strings("symbols", s.symbols),
		logger.Strings("timeframes", s.timeframes))
	return nil
}

// Subscribe opens one kline websocket per symbol and timeframe.
func (s *Stream) Subscribe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return fmt.Errorf("binance not connected")
	}

	for _, symbol := range s.symbols {
		for _, tf := range s.timeframes {
			symbol, tf := symbol, tf
			handler := func(event *gobinance.WsKlineEvent) {
				if event == nil || !event.Kline.IsFinal {
					return
				}
				c, err := klineToCandle(symbol, tf, &event.Kline)
				if err != nil {
					s.log.Warn("binance: bad kline",
						logger.String("symbol", symbol),
						logger.Error(err))
					return
				}
				select {
				case s.candles <- c:
				default:
					// drop on backpressure
				}
			}
			errHandler := func(err error) {
				select {
				case s.errs <- fmt.Errorf("binance stream %s/%s: %w", symbol, tf, err):
				default:
				}
			}
			_, stopC, err := gobinance.WsKlineServe(symbol, tf, handler, errHandler)
			if err != nil {
				return fmt.Errorf("subscribe %s/%s: %w", symbol, tf, err)
			}
			s.stops = append(s.stops, stopC)
			s.log.Info("binance: subscribed",
				logger.String("symbol", symbol),
				logger.String("timeframe", tf))
		}
	}
	return nil
}

// Read returns the candle and error channels. The channels stay open
// across reconnects.
func (s *Stream) Read(ctx context.Context) (<-chan *models.Candle, <-chan error) {
	return s.candles, s.errs
}

// Reconnect tears down all subscriptions and resubscribes.
func (s *Stream) Reconnect(ctx context.Context) error {
	s.stopAll()
	time.Sleep(s.reconnectDelay)
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return s.Subscribe(ctx)
}

// Close stops all websocket subscriptions.
func (s *Stream) Close() error {
	s.stopAll()
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()
	return nil
}

// IsConnected indicates status.
func (s *Stream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *Stream) stopAll() {
	s.mu.Lock()
	stops := s.stops
	s.stops = nil
	s.mu.Unlock()
	for _, stop := range stops {
		close(stop)
	}
}

// Backfill fetches the most recent closed klines over REST, oldest first.
func (s *Stream) Backfill(ctx context.Context, symbol, tf string, limit int) ([]*models.Candle, error) {
	klines, err := s.rest.NewKlinesService().
		Symbol(symbol).
		Interval(tf).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance backfill %s/%s: %w", symbol, tf, err)
	}

	out := make([]*models.Candle, 0, len(klines))
	for _, k := range klines {
		c, err := restKlineToCandle(symbol, tf, k)
		if err != nil {
			return nil, fmt.Errorf("binance backfill %s/%s: %w", symbol, tf, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// Quote fetches the latest price with 24h change and volume.
func (s *Stream) Quote(ctx context.Context, symbol string) (*models.PriceQuote, error) {
	stats, err := s.rest.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance quote %s: %w", symbol, err)
	}
	if len(stats) == 0 {
		return nil, fmt.Errorf("binance quote %s: empty response", symbol)
	}
	st := stats[0]

	price, err := strconv.ParseFloat(st.LastPrice, 64)
	if err != nil {
		return nil, fmt.Errorf("binance quote %s: parse price: %w", symbol, err)
	}
	change, _ := strconv.ParseFloat(st.PriceChangePercent, 64)
	volume, _ := strconv.ParseFloat(st.QuoteVolume, 64)

	return &models.PriceQuote{
		Symbol:    symbol,
		Price:     price,
		Change24h: change,
		Volume24h: volume,
		UpdatedAt: time.Now().UTC(),
	}, nil
}

func klineToCandle(symbol, tf string, k *gobinance.WsKline) (*models.Candle, error) {
	o, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return nil, fmt.Errorf("parse open: %w", err)
	}
	h, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return nil, fmt.Errorf("parse high: %w", err)
	}
	l, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return nil, fmt.Errorf("parse low: %w", err)
	}
	c, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return nil, fmt.Errorf("parse close: %w", err)
	}
	v, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return nil, fmt.Errorf("parse volume: %w", err)
	}
	return &models.Candle{
		Bucket: time.UnixMilli(k.StartTime).UTC(),
		Symbol: symbol,
		TF:     tf,
		Open:   o,
		High:   h,
		Low:    l,
		Close:  c,
		Volume: v,
	}, nil
}

func restKlineToCandle(symbol, tf string, k *gobinance.Kline) (*models.Candle, error) {
	o, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return nil, fmt.Errorf("parse open: %w", err)
	}
	h, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return nil, fmt.Errorf("parse high: %w", err)
	}
	l, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return nil, fmt.Errorf("parse low: %w", err)
	}
	c, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return nil, fmt.Errorf("parse close: %w", err)
	}
	v, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return nil, fmt.Errorf("parse volume: %w", err)
	}
	return &models.Candle{
		Bucket: time.UnixMilli(k.OpenTime).UTC(),
		Symbol: symbol,
		TF:     tf,
		Open:   o,
		High:   h,
		Low:    l,
		Close:  c,
		Volume: v,
	}, nil
}
