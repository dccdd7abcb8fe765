package llm

import (
	"context"
	"fmt"
	"time"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/domain/service"
	xhttp "TradePulse/pkg/http"
)

// Client talks to an OpenAI-compatible chat completions endpoint.
// Works against OpenAI, OpenRouter, Ollama and anything else speaking
// the same wire format.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	http        *xhttp.Client
}

// Option configures Client.
type Option func(*Client)

func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

func WithTemperature(t float64) Option {
	return func(c *Client) { c.temperature = t }
}

func WithMaxTokens(n int) Option {
	return func(c *Client) { c.maxTokens = n }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http = xhttp.NewClient(xhttp.WithTimeout(d)) }
}

func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:     baseURL,
		apiKey:      apiKey,
		model:       "gpt-4o-mini",
		temperature: 0.3,
		maxTokens:   1024,
		http:        xhttp.NewClient(xhttp.WithTimeout(30 * time.Second)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ service.ChatModel = (*Client)(nil)

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message wireMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends the conversation and returns the assistant reply.
func (c *Client) Complete(ctx context.Context, messages []models.ChatMessage) (string, error) {
	if c.baseURL == "" {
		return "", fmt.Errorf("llm: no endpoint configured")
	}

	req := chatRequest{
		Model:       c.model,
		Messages:    make([]wireMessage, 0, len(messages)),
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, wireMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	headers := map[string]string{"Content-Type": "application/json"}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}

	var resp chatResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     c.baseURL + "/chat/completions",
		Headers: headers,
		Body:    req,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("llm complete: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("llm complete: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm complete: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
