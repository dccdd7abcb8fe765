package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/domain/service"
	"TradePulse/internal/service/cache"
)

const systemPrompt = "You are the assistant of an automated crypto trading system. " +
	"Answer questions about market conditions, open signals and system state. " +
	"Be concise and never invent trade results."

// Controller lets the chat start and stop the trading loop.
type Controller interface {
	Start(ctx context.Context) error
	Stop()
	Running() bool
}

// historyKey is where the conversation lives in the history store.
const historyKey = "chat:history"

// Engine routes chat messages: recognized commands are executed
// directly, everything else goes to the language model with recent
// history as context.
type Engine struct {
	model      service.ChatModel
	controller Controller
	status     func(ctx context.Context) string
	analyze    func(ctx context.Context, symbol string) string
	symbols    []string
	store      cache.BytesCache

	mu         sync.Mutex
	history    []models.ChatMessage
	historyCap int
}

type EngineOption func(*Engine)

// WithHistoryStore persists the conversation in the given cache so it
// survives restarts. Without a store history stays in memory only.
func WithHistoryStore(store cache.BytesCache) EngineOption {
	return func(e *Engine) { e.store = store }
}

func NewEngine(
	model service.ChatModel,
	controller Controller,
	status func(ctx context.Context) string,
	analyze func(ctx context.Context, symbol string) string,
	symbols []string,
	historyCap int,
	opts ...EngineOption,
) *Engine {
	if historyCap <= 0 {
		historyCap = 50
	}
	e := &Engine{
		model:      model,
		controller: controller,
		status:     status,
		analyze:    analyze,
		symbols:    symbols,
		historyCap: historyCap,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.loadHistory()
	return e
}

// loadHistory restores a persisted conversation, best effort.
func (e *Engine) loadHistory() {
	if e.store == nil {
		return
	}
	b, ok, err := e.store.GetBytes(historyKey)
	if err != nil || !ok {
		return
	}
	var msgs []models.ChatMessage
	if json.Unmarshal(b, &msgs) != nil {
		return
	}
	if len(msgs) > e.historyCap {
		msgs = msgs[len(msgs)-e.historyCap:]
	}
	e.history = msgs
}

// Handle processes one user message and produces a reply.
func (e *Engine) Handle(ctx context.Context, text string) (*models.ChatReply, error) {
	now := time.Now().UTC()
	e.remember(models.ChatMessage{Role: models.RoleUser, Content: text, Timestamp: now})

	intent, symbol := DetectIntent(text, e.symbols)

	var reply string
	var err error
	switch intent {
	case models.IntentStart:
		if e.controller != nil && !e.controller.Running() {
			if err := e.controller.Start(ctx); err != nil {
				reply = fmt.Sprintf("Could not start the trading loop: %v", err)
				break
			}
		}
		reply = "Trading loop is running."
	case models.IntentStop:
		if e.controller != nil {
			e.controller.Stop()
		}
		reply = "Trading loop stopped."
	case models.IntentStatus:
		if e.status != nil {
			reply = e.status(ctx)
		} else {
			reply = "Status is not available."
		}
	case models.IntentAnalyze:
		if e.analyze != nil && symbol != "" {
			reply = e.analyze(ctx, symbol)
		} else {
			reply = "Tell me which symbol to analyze."
		}
	default:
		reply, err = e.freeform(ctx)
		if err != nil {
			return nil, err
		}
	}

	e.remember(models.ChatMessage{Role: models.RoleAssistant, Content: reply, Timestamp: time.Now().UTC()})
	return &models.ChatReply{
		Reply:     reply,
		Intent:    intent,
		Symbol:    symbol,
		Timestamp: now,
	}, nil
}

// History returns a copy of the stored conversation, oldest first.
func (e *Engine) History() []models.ChatMessage {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.ChatMessage, len(e.history))
	copy(out, e.history)
	return out
}

func (e *Engine) freeform(ctx context.Context) (string, error) {
	if e.model == nil {
		return "The language model is not configured.", nil
	}
	e.mu.Lock()
	messages := make([]models.ChatMessage, 0, len(e.history)+1)
	messages = append(messages, models.ChatMessage{Role: models.RoleSystem, Content: systemPrompt})
	messages = append(messages, e.history...)
	e.mu.Unlock()

	reply, err := e.model.Complete(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}
	return reply, nil
}

func (e *Engine) remember(m models.ChatMessage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = append(e.history, m)
	if len(e.history) > e.historyCap {
		e.history = e.history[len(e.history)-e.historyCap:]
	}
	if e.store != nil {
		if b, err := json.Marshal(e.history); err == nil {
			_ = e.store.SetBytes(historyKey, b, 0)
		}
	}
}

// DetectIntent scans a message for command keywords and an optional
// symbol mention.
func DetectIntent(text string, symbols []string) (models.ChatIntent, string) {
	lower := strings.ToLower(text)
	symbol := findSymbol(lower, symbols)

	switch {
	case containsAny(lower, "start trading", "start the", "resume trading", "begin trading"):
		return models.IntentStart, symbol
	case containsAny(lower, "stop trading", "stop the", "halt", "pause trading", "shut down"):
		return models.IntentStop, symbol
	case containsAny(lower, "analyze", "analyse", "analysis of", "look at"):
		return models.IntentAnalyze, symbol
	case containsAny(lower, "status", "how are we doing", "performance", "pnl", "p&l"):
		return models.IntentStatus, symbol
	default:
		return models.IntentChat, symbol
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func findSymbol(lower string, symbols []string) string {
	for _, s := range symbols {
		if strings.Contains(lower, strings.ToLower(s)) {
			return s
		}
		// allow the base asset alone, e.g. "btc" for BTCUSDT
		base := strings.ToLower(strings.TrimSuffix(s, "USDT"))
		if base != "" && strings.Contains(lower, base) {
			return s
		}
	}
	return ""
}
