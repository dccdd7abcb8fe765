package sentiment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func feedServer(t *testing.T, value, classification string) (*httptest.Server, *int) {
	t.Helper()
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"value":"` + value + `","value_classification":"` + classification + `"}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestSentimentNormalizesIndex(t *testing.T) {
	srv, _ := feedServer(t, "75", "Greed")
	p := NewProvider(WithFeedURL(srv.URL))

	s, err := p.Sentiment(context.Background())
	if err != nil {
		t.Fatalf("sentiment: %v", err)
	}
	if s.FearGreed != 75 || s.Label != "Greed" {
		t.Fatalf("unexpected sentiment %+v", s)
	}
	if s.Score != 0.5 {
		t.Fatalf("score = %v, want 0.5 for index 75", s.Score)
	}
}

func TestSentimentServedFromCache(t *testing.T) {
	srv, hits := feedServer(t, "20", "Extreme Fear")
	p := NewProvider(WithFeedURL(srv.URL), WithCacheTTL(time.Minute))

	for i := 0; i < 3; i++ {
		if _, err := p.Sentiment(context.Background()); err != nil {
			t.Fatalf("sentiment: %v", err)
		}
	}
	if *hits != 1 {
		t.Fatalf("feed hit %d times, want 1", *hits)
	}
}

func TestSentimentBlendsAuxSource(t *testing.T) {
	srv, _ := feedServer(t, "75", "Greed")
	p := NewProvider(WithFeedURL(srv.URL), WithAuxSource(func(context.Context) (float64, bool) {
		return -1, true
	}))

	s, err := p.Sentiment(context.Background())
	if err != nil {
		t.Fatalf("sentiment: %v", err)
	}
	// 0.7*0.5 + 0.3*(-1) = 0.05
	if s.Score < 0.049 || s.Score > 0.051 {
		t.Fatalf("blended score = %v, want 0.05", s.Score)
	}
}

func TestNormalize(t *testing.T) {
	cases := map[float64]float64{0: -1, 50: 0, 100: 1}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%v) = %v, want %v", in, got, want)
		}
	}
}
