package calendar

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func calendarServer(t *testing.T, events string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(events))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func eventJSON(ts time.Time, impact, title string) string {
	return fmt.Sprintf(`{"date":%q,"country":"USD","impact":%q,"title":%q}`,
		ts.Format(time.RFC3339), impact, title)
}

func TestEventsFiltersPastAndSorts(t *testing.T) {
	now := time.Now().UTC()
	feed := "[" +
		eventJSON(now.Add(4*time.Hour), "Medium", "CPI") + "," +
		eventJSON(now.Add(-2*time.Hour), "High", "NFP") + "," +
		eventJSON(now.Add(time.Hour), "High", "FOMC") +
		"]"
	p := NewProvider(calendarServer(t, feed).URL)

	events, err := p.Events(context.Background())
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want past ones dropped", len(events))
	}
	if events[0].Title != "FOMC" || events[1].Title != "CPI" {
		t.Fatalf("not sorted by time: %+v", events)
	}
}

func TestHighImpactSoon(t *testing.T) {
	now := time.Now().UTC()
	feed := "[" + eventJSON(now.Add(30*time.Minute), "High", "FOMC") + "]"
	p := NewProvider(calendarServer(t, feed).URL)

	soon, err := p.HighImpactSoon(context.Background(), time.Hour)
	if err != nil {
		t.Fatalf("high impact: %v", err)
	}
	if !soon {
		t.Fatal("expected high impact event inside the window")
	}

	soon, err = p.HighImpactSoon(context.Background(), 10*time.Minute)
	if err != nil {
		t.Fatalf("high impact: %v", err)
	}
	if soon {
		t.Fatal("event outside the window must not trigger")
	}
}

func TestEventsSkipsMalformedDates(t *testing.T) {
	now := time.Now().UTC()
	feed := "[" +
		`{"date":"not a date","country":"USD","impact":"High","title":"Broken"},` +
		eventJSON(now.Add(time.Hour), "Low", "GDP") +
		"]"
	p := NewProvider(calendarServer(t, feed).URL)

	events, err := p.Events(context.Background())
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 1 || events[0].Title != "GDP" {
		t.Fatalf("unexpected events %+v", events)
	}
}
