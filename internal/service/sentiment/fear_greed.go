package sentiment

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/domain/service"
	xhttp "TradePulse/pkg/http"
)

const (
	// DefaultFeedURL serves the crypto fear & greed index.
	DefaultFeedURL = "https://api.alternative.me/fng/"

	fgWeight  = 0.7
	auxWeight = 0.3
)

// AuxSource optionally contributes a secondary mood score in [-1, 1]
// (e.g. aggregated funding rates). Blended at 30% when present.
type AuxSource func(ctx context.Context) (float64, bool)

// Provider fetches the fear & greed index and caches it. The index is
// normalized so 0 is neutral, -1 extreme fear and +1 extreme greed.
type Provider struct {
	feedURL string
	ttl     time.Duration
	http    *xhttp.Client
	aux     AuxSource

	mu      sync.Mutex
	cached  models.Sentiment
	fetched time.Time
}

// ProviderOption configures Provider.
type ProviderOption func(*Provider)

func WithFeedURL(url string) ProviderOption {
	return func(p *Provider) { p.feedURL = url }
}

func WithCacheTTL(ttl time.Duration) ProviderOption {
	return func(p *Provider) { p.ttl = ttl }
}

func WithAuxSource(aux AuxSource) ProviderOption {
	return func(p *Provider) { p.aux = aux }
}

func NewProvider(opts ...ProviderOption) *Provider {
	p := &Provider{
		feedURL: DefaultFeedURL,
		ttl:     15 * time.Minute,
		http:    xhttp.NewClient(xhttp.WithTimeout(10 * time.Second)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ service.SentimentProvider = (*Provider)(nil)

type fngResponse struct {
	Data []struct {
		Value          string `json:"value"`
		Classification string `json:"value_classification"`
	} `json:"data"`
}

// Sentiment returns the blended market mood, served from cache inside
// the TTL window.
func (p *Provider) Sentiment(ctx context.Context) (models.Sentiment, error) {
	p.mu.Lock()
	if !p.fetched.IsZero() && time.Since(p.fetched) < p.ttl {
		cached := p.cached
		p.mu.Unlock()
		return cached, nil
	}
	p.mu.Unlock()

	var resp fngResponse
	err := p.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    p.feedURL,
	}, &resp)
	if err != nil {
		return models.Sentiment{}, fmt.Errorf("sentiment fetch: %w", err)
	}
	if len(resp.Data) == 0 {
		return models.Sentiment{}, fmt.Errorf("sentiment fetch: empty feed")
	}

	index, err := strconv.ParseFloat(resp.Data[0].Value, 64)
	if err != nil {
		return models.Sentiment{}, fmt.Errorf("sentiment fetch: parse value: %w", err)
	}

	score := Normalize(index)
	if p.aux != nil {
		if auxScore, ok := p.aux(ctx); ok {
			score = fgWeight*score + auxWeight*auxScore
		}
	}

	s := models.Sentiment{
		Score:     score,
		FearGreed: int(index),
		Label:     resp.Data[0].Classification,
		Timestamp: time.Now().UTC(),
	}

	p.mu.Lock()
	p.cached = s
	p.fetched = s.Timestamp
	p.mu.Unlock()
	return s, nil
}

// Normalize maps the 0-100 index to [-1, 1] around the neutral 50.
func Normalize(index float64) float64 {
	return (index - 50) / 50
}
