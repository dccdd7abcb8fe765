package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"TradePulse/pkg/logger"

	"github.com/fsnotify/fsnotify"
)

// Section names accepted by Update.
const (
	SectionRisk       = "risk"
	SectionMonitoring = "monitoring"
	SectionPairs      = "pairs"
	SectionProviders  = "providers"
)

// SectionInfo describes one tunable section for API consumers.
type SectionInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Fields      []string `json:"fields"`
}

// Schema lists the sections Update accepts and their well-known fields.
func Schema() []SectionInfo {
	return []SectionInfo{
		{
			Name:        SectionRisk,
			Description: "position sizing and loss limits",
			Fields: []string{
				"risk_per_trade", "max_daily_drawdown", "max_daily_loss",
				"max_consecutive_losses", "max_open_positions", "min_risk_reward",
			},
		},
		{
			Name:        SectionMonitoring,
			Description: "agent cycle and alerting knobs",
			Fields:      []string{"cycle_interval_seconds", "auto_start", "stale_after_seconds"},
		},
		{
			Name:        SectionPairs,
			Description: "watched symbols and timeframes",
			Fields:      []string{"symbols", "timeframes"},
		},
		{
			Name:        SectionProviders,
			Description: "external provider endpoints and keys",
			Fields:      []string{"llm_base_url", "llm_model", "sentiment_feed", "calendar_feed"},
		},
	}
}

// ChangeCallback fires after the settings document changes, with the
// new full document.
type ChangeCallback func(map[string]json.RawMessage)

// Store keeps runtime-tunable settings in a JSON file. Updates merge
// into the existing section rather than replacing the document, and an
// optional file watcher picks up external edits.
type Store struct {
	path string
	log  *logger.Logger

	mu        sync.RWMutex
	doc       map[string]json.RawMessage
	callbacks []ChangeCallback
	// last bytes this store wrote, to tell its own persists apart
	// from external edits when the watcher fires
	lastWritten []byte

	watcher *fsnotify.Watcher
	done    chan struct{}
}

func NewStore(path string, log *logger.Logger) (*Store, error) {
	s := &Store{
		path: path,
		log:  log,
		doc:  make(map[string]json.RawMessage),
		done: make(chan struct{}),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// OnChange registers a callback for settings changes.
func (s *Store) OnChange(cb ChangeCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, cb)
}

// All returns the full settings document.
func (s *Store) All() map[string]json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]json.RawMessage, len(s.doc))
	for k, v := range s.doc {
		out[k] = v
	}
	return out
}

// Section decodes one section into dest. Missing sections leave dest
// untouched and return false.
func (s *Store) Section(name string, dest interface{}) (bool, error) {
	s.mu.RLock()
	raw, ok := s.doc[name]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return true, fmt.Errorf("settings section %s: %w", name, err)
	}
	return true, nil
}

// Update merges the given values into a section and persists the
// document. Keys not present in values keep their stored value.
func (s *Store) Update(section string, values map[string]interface{}) error {
	switch section {
	case SectionRisk, SectionMonitoring, SectionPairs, SectionProviders:
	default:
		return fmt.Errorf("settings: unknown section %q", section)
	}

	s.mu.Lock()

	merged := make(map[string]interface{})
	if raw, ok := s.doc[section]; ok {
		if err := json.Unmarshal(raw, &merged); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("settings merge %s: %w", section, err)
		}
	}
	for k, v := range values {
		merged[k] = v
	}

	raw, err := json.Marshal(merged)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("settings marshal %s: %w", section, err)
	}
	s.doc[section] = raw

	if err := s.persistLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	doc := s.snapshotLocked()
	cbs := s.callbacks
	s.mu.Unlock()

	for _, cb := range cbs {
		cb(doc)
	}
	return nil
}

// Watch starts a file watcher that reloads the document when the file
// changes on disk. Safe to skip for test setups.
func (s *Store) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("settings watch: %w", err)
	}
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		w.Close()
		return fmt.Errorf("settings watch: %w", err)
	}
	s.watcher = w

	go func() {
		for {
			select {
			case <-s.done:
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Name != s.path {
					continue
				}
				if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
					continue
				}
				if err := s.reload(); err != nil {
					s.log.Warn("settings reload failed", logger.Error(err))
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.log.Warn("settings watcher error", logger.Error(err))
			}
		}
	}()
	return nil
}

// Close stops the watcher.
func (s *Store) Close() error {
	close(s.done)
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

func (s *Store) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // start empty, file appears on first Update
		}
		return fmt.Errorf("settings load: %w", err)
	}
	doc := make(map[string]json.RawMessage)
	if err := json.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("settings load: %w", err)
	}
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
	return nil
}

func (s *Store) reload() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("settings load: %w", err)
	}

	s.mu.Lock()
	if bytes.Equal(b, s.lastWritten) {
		// our own persist landing back through the watcher;
		// Update already fired the callbacks
		s.mu.Unlock()
		return nil
	}
	doc := make(map[string]json.RawMessage)
	if err := json.Unmarshal(b, &doc); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("settings load: %w", err)
	}
	s.doc = doc
	snapshot := s.snapshotLocked()
	cbs := s.callbacks
	s.mu.Unlock()

	s.log.Info("settings reloaded from disk", logger.String("path", s.path))
	for _, cb := range cbs {
		cb(snapshot)
	}
	return nil
}

func (s *Store) persistLocked() error {
	b, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("settings persist: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("settings persist: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("settings persist: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("settings persist: %w", err)
	}
	s.lastWritten = b
	return nil
}

func (s *Store) snapshotLocked() map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(s.doc))
	for k, v := range s.doc {
		out[k] = v
	}
	return out
}
