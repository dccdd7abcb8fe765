package llm

import (
	"context"
	"testing"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/service/cache"
)

type fakeController struct {
	running bool
	starts  int
	stops   int
}

func (f *fakeController) Start(context.Context) error {
	f.starts++
	f.running = true
	return nil
}

func (f *fakeController) Stop() {
	f.stops++
	f.running = false
}

func (f *fakeController) Running() bool { return f.running }

type fakeModel struct {
	reply string
	calls int
}

func (f *fakeModel) Complete(_ context.Context, _ []models.ChatMessage) (string, error) {
	f.calls++
	return f.reply, nil
}

var watchlist = []string{"BTCUSDT", "ETHUSDT"}

func TestDetectIntent(t *testing.T) {
	cases := []struct {
		text   string
		intent models.ChatIntent
		symbol string
	}{
		{"please start trading now", models.IntentStart, ""},
		{"halt everything", models.IntentStop, ""},
		{"analyze BTCUSDT for me", models.IntentAnalyze, "BTCUSDT"},
		{"can you look at eth?", models.IntentAnalyze, "ETHUSDT"},
		{"what is our pnl today", models.IntentStatus, ""},
		{"tell me a joke", models.IntentChat, ""},
	}
	for _, tc := range cases {
		intent, symbol := DetectIntent(tc.text, watchlist)
		if intent != tc.intent {
			t.Fatalf("%q: intent = %s, want %s", tc.text, intent, tc.intent)
		}
		if symbol != tc.symbol {
			t.Fatalf("%q: symbol = %q, want %q", tc.text, symbol, tc.symbol)
		}
	}
}

func TestHandleStartStop(t *testing.T) {
	ctrl := &fakeController{}
	e := NewEngine(nil, ctrl, nil, nil, watchlist, 0)

	reply, err := e.Handle(context.Background(), "start trading")
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if reply.Intent != models.IntentStart || ctrl.starts != 1 {
		t.Fatalf("expected one start, got intent %s starts %d", reply.Intent, ctrl.starts)
	}

	// starting again must not restart the loop
	if _, err := e.Handle(context.Background(), "start trading"); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if ctrl.starts != 1 {
		t.Fatalf("running loop restarted, starts = %d", ctrl.starts)
	}

	reply, err = e.Handle(context.Background(), "stop trading")
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if reply.Intent != models.IntentStop || ctrl.stops != 1 {
		t.Fatalf("expected one stop, got intent %s stops %d", reply.Intent, ctrl.stops)
	}
}

func TestHandleAnalyzeRoutesToCallback(t *testing.T) {
	called := ""
	e := NewEngine(nil, &fakeController{}, nil, func(_ context.Context, symbol string) string {
		called = symbol
		return "analysis text"
	}, watchlist, 0)

	reply, err := e.Handle(context.Background(), "analyze btc please")
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if called != "BTCUSDT" {
		t.Fatalf("analyze callback got %q", called)
	}
	if reply.Reply != "analysis text" {
		t.Fatalf("unexpected reply %q", reply.Reply)
	}
}

func TestHandleFreeformUsesModel(t *testing.T) {
	model := &fakeModel{reply: "hello there"}
	e := NewEngine(model, &fakeController{}, nil, nil, watchlist, 0)

	reply, err := e.Handle(context.Background(), "what do you think about markets")
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if model.calls != 1 || reply.Reply != "hello there" {
		t.Fatalf("model calls %d reply %q", model.calls, reply.Reply)
	}
	if reply.Intent != models.IntentChat {
		t.Fatalf("intent = %s", reply.Intent)
	}
}

func TestHistoryBounded(t *testing.T) {
	e := NewEngine(&fakeModel{reply: "ok"}, nil, nil, nil, watchlist, 4)
	for i := 0; i < 10; i++ {
		if _, err := e.Handle(context.Background(), "hello"); err != nil {
			t.Fatalf("handle: %v", err)
		}
	}
	if n := len(e.History()); n != 4 {
		t.Fatalf("history length = %d, want cap 4", n)
	}
}

func TestHistorySurvivesRestart(t *testing.T) {
	store := cache.NewTTLCache()

	e := NewEngine(&fakeModel{reply: "ok"}, nil, nil, nil, watchlist, 10,
		WithHistoryStore(store))
	if _, err := e.Handle(context.Background(), "hello"); err != nil {
		t.Fatalf("handle: %v", err)
	}

	// a fresh engine on the same store picks up the conversation
	e2 := NewEngine(&fakeModel{reply: "ok"}, nil, nil, nil, watchlist, 10,
		WithHistoryStore(store))
	h := e2.History()
	if len(h) != 2 {
		t.Fatalf("restored history length = %d, want 2", len(h))
	}
	if h[0].Role != models.RoleUser || h[0].Content != "hello" {
		t.Fatalf("unexpected restored message %+v", h[0])
	}

	// restore still honors the cap
	e3 := NewEngine(&fakeModel{reply: "ok"}, nil, nil, nil, watchlist, 1,
		WithHistoryStore(store))
	if n := len(e3.History()); n != 1 {
		t.Fatalf("capped restore length = %d, want 1", n)
	}
}
