package usecase

import (
	"errors"
	"testing"
)

func TestCycleStatsTracksSymbols(t *testing.T) {
	r := &AgentRunner{cycles: make(map[string]*SymbolCycle)}

	r.recordCycle("ETHUSDT", "hold", nil)
	r.recordCycle("BTCUSDT", "signal", nil)
	// a later cycle overwrites the earlier entry for the same symbol
	r.recordCycle("ETHUSDT", "analysis_failed", errors.New("no candles"))

	stats := r.CycleStats()
	if len(stats) != 2 {
		t.Fatalf("stats = %d entries, want one per symbol", len(stats))
	}
	if stats[0].Symbol != "BTCUSDT" || stats[1].Symbol != "ETHUSDT" {
		t.Fatalf("not sorted by symbol: %+v", stats)
	}
	if stats[0].LastDecision != "signal" || stats[0].LastError != "" {
		t.Fatalf("unexpected BTCUSDT stat %+v", stats[0])
	}
	if stats[1].LastDecision != "analysis_failed" || stats[1].LastError != "no candles" {
		t.Fatalf("unexpected ETHUSDT stat %+v", stats[1])
	}
	if stats[0].LastCycle.IsZero() || stats[1].LastCycle.IsZero() {
		t.Fatal("cycle timestamps must be set")
	}
}
