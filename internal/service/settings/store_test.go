package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"TradePulse/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func TestUpdateMergesSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	s, err := NewStore(path, testLogger(t))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer s.Close()

	if err := s.Update(SectionRisk, map[string]interface{}{
		"risk_per_trade": 1.0,
		"max_positions":  5,
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	// Partial update keeps untouched keys.
	if err := s.Update(SectionRisk, map[string]interface{}{
		"risk_per_trade": 0.5,
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	var risk map[string]float64
	ok, err := s.Section(SectionRisk, &risk)
	if err != nil || !ok {
		t.Fatalf("section: ok=%v err=%v", ok, err)
	}
	if risk["risk_per_trade"] != 0.5 {
		t.Fatalf("updated key: got %v", risk["risk_per_trade"])
	}
	if risk["max_positions"] != 5 {
		t.Fatalf("merge must keep untouched keys, got %v", risk["max_positions"])
	}
}

func TestUpdatePersistsToDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	s, err := NewStore(path, testLogger(t))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := s.Update(SectionPairs, map[string]interface{}{"symbols": []string{"BTCUSDT"}}); err != nil {
		t.Fatalf("update: %v", err)
	}
	s.Close()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, ok := doc[SectionPairs]; !ok {
		t.Fatalf("pairs section missing on disk: %s", b)
	}

	// A fresh store sees the persisted document.
	s2, err := NewStore(path, testLogger(t))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	var pairs map[string][]string
	ok, err := s2.Section(SectionPairs, &pairs)
	if err != nil || !ok {
		t.Fatalf("section after reopen: ok=%v err=%v", ok, err)
	}
	if len(pairs["symbols"]) != 1 || pairs["symbols"][0] != "BTCUSDT" {
		t.Fatalf("persisted symbols wrong: %v", pairs)
	}
}

func TestUpdateRejectsUnknownSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	s, err := NewStore(path, testLogger(t))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer s.Close()

	if err := s.Update("nope", map[string]interface{}{"x": 1}); err == nil {
		t.Fatalf("unknown section must be rejected")
	}
}

func TestChangeCallbackFires(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	s, err := NewStore(path, testLogger(t))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer s.Close()

	fired := 0
	s.OnChange(func(map[string]json.RawMessage) { fired++ })
	if err := s.Update(SectionMonitoring, map[string]interface{}{"interval": 60}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if fired != 1 {
		t.Fatalf("callback should fire once per update, got %d", fired)
	}
}

func TestReloadSkipsOwnWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	s, err := NewStore(path, testLogger(t))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer s.Close()

	fired := 0
	s.OnChange(func(map[string]json.RawMessage) { fired++ })

	if err := s.Update(SectionRisk, map[string]interface{}{"risk_per_trade": 1.0}); err != nil {
		t.Fatalf("update: %v", err)
	}
	// the watcher sees our own persist land on disk
	if err := s.reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if fired != 1 {
		t.Fatalf("own write must not re-fire callbacks, got %d", fired)
	}

	// an external edit still triggers a reload callback
	if err := os.WriteFile(path, []byte(`{"risk":{"risk_per_trade":0.25}}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if fired != 2 {
		t.Fatalf("external edit must fire callbacks, got %d", fired)
	}

	var risk map[string]float64
	if ok, err := s.Section(SectionRisk, &risk); err != nil || !ok {
		t.Fatalf("section: ok=%v err=%v", ok, err)
	}
	if risk["risk_per_trade"] != 0.25 {
		t.Fatalf("external edit not loaded: %v", risk)
	}
}
