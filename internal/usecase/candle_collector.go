package usecase

import (
	"context"

	"TradePulse/internal/domain/models"
	drepo "TradePulse/internal/domain/repository"
	mid "TradePulse/internal/middleware"
)

// Backfiller fetches historical candles over REST.
type Backfiller interface {
	Backfill(ctx context.Context, symbol, tf string, limit int) ([]*models.Candle, error)
}

// CandleCollector wires the exchange stream to the processor and seeds
// history on startup.
type CandleCollector struct {
	stream     drepo.MarketStream
	backfiller Backfiller
	proc       *CandleProcessor
	metrics    drepo.Metrics
	pipe       *mid.RealtimePipeline

	symbols      []string
	timeframes   []string
	backfillBars int
}

// NewCandleCollector creates a new CandleCollector instance.
func NewCandleCollector(
	stream drepo.MarketStream,
	backfiller Backfiller,
	proc *CandleProcessor,
	metrics drepo.Metrics,
	pipe *mid.RealtimePipeline,
	symbols, timeframes []string,
	backfillBars int,
) *CandleCollector {
	return &CandleCollector{
		stream:       stream,
		backfiller:   backfiller,
		proc:         proc,
		metrics:      metrics,
		pipe:         pipe,
		symbols:      symbols,
		timeframes:   timeframes,
		backfillBars: backfillBars,
	}
}

// IsConnected returns true if the market stream is connected.
func (c *CandleCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *CandleCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.Backfill(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	candleCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, candleCh, errCh)
	return nil
}

// Backfill seeds history for every symbol and timeframe.
func (c *CandleCollector) Backfill(ctx context.Context) error {
	if c.backfiller == nil || c.backfillBars <= 0 {
		return nil
	}
	for _, symbol := range c.symbols {
		for _, tf := range c.timeframes {
			candles, err := c.backfiller.Backfill(ctx, symbol, tf, c.backfillBars)
			if err != nil {
				c.metrics.RecordError("backfill")
				return err
			}
			if err := c.proc.ProcessBatch(ctx, candles); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *CandleCollector) consume(ctx context.Context, candleCh <-chan *models.Candle, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				_ = c.stream.Reconnect(ctx)
			}
		case cd := <-candleCh:
			if cd == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, cd)
			} else {
				_ = c.proc.Process(ctx, cd)
			}
			c.metrics.RecordLastPrice(cd.Symbol, cd.Close)
		}
	}
}

func (c *CandleCollector) Stop() error { return c.stream.Close() }

// Processor returns the underlying CandleProcessor for lifecycle management.
func (c *CandleCollector) Processor() *CandleProcessor { return c.proc }

// Shutdown stops pipeline and closes stream.
func (c *CandleCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
