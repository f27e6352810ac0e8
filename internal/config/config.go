// Package config loads go-sage server configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all server settings. API keys are optional: a missing key
// disables the corresponding feature rather than preventing startup.
type Config struct {
	Port      int    `env:"PORT" env-default:"3000"`
	LogLevel  string `env:"LOG_LEVEL" env-default:"info"`
	StaticDir string `env:"STATIC_DIR" env-default:"./web"`

	DeepgramAPIKey string `env:"DEEPGRAM_API_KEY"`
	TavilyAPIKey   string `env:"TAVILY_API_KEY"`
	GroqAPIKey     string `env:"GROQ_API_KEY"`

	// TTS server endpoints (local collaborator service).
	TTSBaseURL   string `env:"TTS_BASE_URL" env-default:"http://127.0.0.1:8000/api"`
	TTSStreamURL string `env:"TTS_WS_URL" env-default:"ws://127.0.0.1:8000/ws/stream"`

	// StageTimeout bounds each remote pipeline stage call.
	StageTimeout time.Duration `env:"STAGE_TIMEOUT" env-default:"60s"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	return &cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
