package models

import "time"

// Candle represents one OHLCV bar for a symbol at a given timeframe.
type Candle struct {
	Bucket time.Time
	Symbol string
	TF     string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// IsValid rejects bars that cannot come from a real market feed.
func (c *Candle) IsValid() bool {
	if c == nil || c.Symbol == "" || c.Bucket.IsZero() {
		return false
	}
	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
		return false
	}
	if c.High < c.Low || c.Volume < 0 {
		return false
	}
	return true
}

// Range returns the high-low spread of the bar.
func (c *Candle) Range() float64 { return c.High - c.Low }

// Body returns the absolute open-close distance.
func (c *Candle) Body() float64 {
	b := c.Close - c.Open
	if b < 0 {
		return -b
	}
	return b
}

// Bullish reports whether the bar closed above its open.
func (c *Candle) Bullish() bool { return c.Close > c.Open }

// PriceQuote is the latest known price for a symbol with 24h context.
type PriceQuote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Change24h float64   `json:"change_24h"`
	Volume24h float64   `json:"volume_24h"`
	UpdatedAt time.Time `json:"updated_at"`
}
