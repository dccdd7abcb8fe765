package calendar

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/domain/service"
	xhttp "TradePulse/pkg/http"
)

// Provider fetches upcoming economic releases from a JSON feed and
// caches the result.
type Provider struct {
	feedURL string
	ttl     time.Duration
	http    *xhttp.Client

	mu      sync.Mutex
	cached  []models.CalendarEvent
	fetched time.Time
}

// ProviderOption configures Provider.
type ProviderOption func(*Provider)

func WithCacheTTL(ttl time.Duration) ProviderOption {
	return func(p *Provider) { p.ttl = ttl }
}

func NewProvider(feedURL string, opts ...ProviderOption) *Provider {
	p := &Provider{
		feedURL: feedURL,
		ttl:     time.Hour,
		http:    xhttp.NewClient(xhttp.WithTimeout(15 * time.Second)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ service.CalendarProvider = (*Provider)(nil)

type feedEvent struct {
	Date     string `json:"date"`
	Country  string `json:"country"`
	Impact   string `json:"impact"`
	Title    string `json:"title"`
	Forecast string `json:"forecast"`
	Previous string `json:"previous"`
}

// Events returns upcoming events sorted by time, served from cache
// inside the TTL window. Past events are filtered out.
func (p *Provider) Events(ctx context.Context) ([]models.CalendarEvent, error) {
	p.mu.Lock()
	if !p.fetched.IsZero() && time.Since(p.fetched) < p.ttl {
		cached := upcoming(p.cached, time.Now().UTC())
		p.mu.Unlock()
		return cached, nil
	}
	p.mu.Unlock()

	if p.feedURL == "" {
		return nil, nil
	}

	var feed []feedEvent
	err := p.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    p.feedURL,
	}, &feed)
	if err != nil {
		return nil, fmt.Errorf("calendar fetch: %w", err)
	}

	events := make([]models.CalendarEvent, 0, len(feed))
	for _, e := range feed {
		ts, err := parseEventTime(e.Date)
		if err != nil {
			continue
		}
		events = append(events, models.CalendarEvent{
			Time:     ts,
			Currency: e.Country,
			Impact:   e.Impact,
			Title:    e.Title,
			Forecast: e.Forecast,
			Previous: e.Previous,
		})
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Time.Before(events[j].Time) })

	p.mu.Lock()
	p.cached = events
	p.fetched = time.Now().UTC()
	p.mu.Unlock()

	return upcoming(events, time.Now().UTC()), nil
}

// HighImpactSoon reports whether a high impact event lands inside the
// given window. Useful as a trading filter around news.
func (p *Provider) HighImpactSoon(ctx context.Context, window time.Duration) (bool, error) {
	events, err := p.Events(ctx)
	if err != nil {
		return false, err
	}
	deadline := time.Now().UTC().Add(window)
	for _, e := range events {
		if e.Impact == "High" && e.Time.Before(deadline) {
			return true, nil
		}
	}
	return false, nil
}

func upcoming(events []models.CalendarEvent, now time.Time) []models.CalendarEvent {
	out := make([]models.CalendarEvent, 0, len(events))
	for _, e := range events {
		if e.Time.After(now) {
			out = append(out, e)
		}
	}
	return out
}

func parseEventTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05-07:00", "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}
