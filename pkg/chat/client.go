package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	openai "github.com/sashabaranov/go-openai"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// ErrNoAPIKey indicates the Groq key is not configured.
// No network call is attempted in this case.
var ErrNoAPIKey = errors.New("chat: API key is required")

// Usage reports token consumption for one completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the result of one completion call.
type Response struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
	Model   string `json:"model"`
}

// Client requests single non-streaming completions from Groq.
type Client struct {
	apiKey  string
	baseURL string
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint (used in tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a chat client. An empty apiKey is allowed; Complete
// then fails fast with ErrNoAPIKey.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: groqBaseURL,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "chat")
	return c
}

// nonZero maps an explicit 0 to the smallest positive float32. The
// underlying request marshals temperature and top_p with omitempty, so a
// literal 0 would vanish from the wire and the server default would apply.
func nonZero(v float32) float32 {
	if v == 0 {
		return math.SmallestNonzeroFloat32
	}
	return v
}

// Complete requests one non-streaming completion for the given messages.
// No intermediate tokens are surfaced.
func (c *Client) Complete(ctx context.Context, msgs []Message, cfg Config) (*Response, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clientConfig := openai.DefaultConfig(c.apiKey)
	clientConfig.BaseURL = c.baseURL
	client := openai.NewClientWithConfig(clientConfig)

	history := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		history = append(history, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       cfg.Model,
		Temperature: nonZero(cfg.Temperature),
		MaxTokens:   cfg.MaxTokens,
		TopP:        nonZero(cfg.TopP),
		Messages:    history,
		Stream:      false,
	})
	if err != nil {
		c.logger.Error("completion failed", "model", cfg.Model, "error", err)
		return nil, fmt.Errorf("chat: completion failed: %w", err)
	}

	content := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}

	c.logger.Debug("completion received",
		"model", resp.Model,
		"total_tokens", resp.Usage.TotalTokens,
	)

	return &Response{
		Content: content,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		Model: resp.Model,
	}, nil
}
