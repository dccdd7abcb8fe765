package models

import "time"

// ChatRole distinguishes user and assistant turns.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
	RoleSystem    ChatRole = "system"
)

// ChatMessage is one turn of the dashboard conversation.
type ChatMessage struct {
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatIntent is a recognized command inside a chat message.
type ChatIntent string

const (
	IntentStart   ChatIntent = "start"
	IntentStop    ChatIntent = "stop"
	IntentAnalyze ChatIntent = "analyze"
	IntentStatus  ChatIntent = "status"
	IntentChat    ChatIntent = "chat"
)

// ChatReply is the engine's answer plus what it decided to do.
type ChatReply struct {
	Reply     string     `json:"reply"`
	Intent    ChatIntent `json:"intent"`
	Symbol    string     `json:"symbol,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// CalendarEvent is one scheduled economic release.
type CalendarEvent struct {
	Time     time.Time `json:"time"`
	Currency string    `json:"currency"`
	Impact   string    `json:"impact"`
	Title    string    `json:"title"`
	Forecast string    `json:"forecast,omitempty"`
	Previous string    `json:"previous,omitempty"`
}
