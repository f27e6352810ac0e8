// Package chat produces grounded answers with the Groq chat completions
// API (OpenAI-compatible).
package chat

import "errors"

// Default completion parameters.
const (
	DefaultModel       = "llama-3.3-70b-versatile"
	DefaultTemperature = 1.0
	DefaultMaxTokens   = 1024
	DefaultTopP        = 1.0
)

// Config holds the LLM parameters for one completion call.
// A Config is immutable per call and snapshotted into the assistant
// message metadata for reproducibility.
type Config struct {
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_completion_tokens"`
	TopP        float32 `json:"top_p"`
}

// DefaultConfig returns the default completion parameters.
func DefaultConfig() Config {
	return Config{
		Model:       DefaultModel,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		TopP:        DefaultTopP,
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.Model == "" {
		return errors.New("chat: model is required")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return errors.New("chat: temperature must be between 0 and 2")
	}
	if c.TopP < 0 || c.TopP > 1 {
		return errors.New("chat: top_p must be between 0 and 1")
	}
	if c.MaxTokens <= 0 {
		return errors.New("chat: max tokens must be positive")
	}
	return nil
}

// WithDefaults fills zero-valued fields from DefaultConfig.
// Temperature and TopP of exactly zero are kept: zero is a legal setting
// for both, and callers wanting defaults start from DefaultConfig.
func (c Config) WithDefaults() Config {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	return c
}
