// Package stt transcribes recorded audio with the Deepgram prerecorded API.
package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/sagelab/go-sage/internal/httpc"
)

const (
	defaultBaseURL = "https://api.deepgram.com/v1/listen"
	defaultModel   = "flux-general-en"
)

// Sentinel errors for the stt package.
var (
	// ErrNoAPIKey indicates the Deepgram key is not configured.
	// No network call is attempted in this case.
	ErrNoAPIKey = errors.New("stt: API key is required")

	// ErrEmptyAudio indicates an empty audio payload was supplied.
	ErrEmptyAudio = errors.New("stt: audio payload is empty")
)

// Client calls the Deepgram prerecorded transcription endpoint.
// A single attempt is made per call; failures are surfaced to the caller.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the Deepgram endpoint (used in tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithModel overrides the transcription model.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a transcription client. An empty apiKey is allowed;
// Transcribe then fails fast with ErrNoAPIKey.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		httpClient: httpc.Client,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "stt")
	return c
}

// response mirrors the subset of the Deepgram result we read.
type response struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe sends one audio blob and returns the transcript.
// The transcript may be an empty string when no speech was recognized.
func (c *Client) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if c.apiKey == "" {
		return "", ErrNoAPIKey
	}
	if len(audio) == 0 {
		return "", ErrEmptyAudio
	}

	q := url.Values{}
	q.Set("model", c.model)
	q.Set("smart_format", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"?"+q.Encode(), bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("stt: build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Content-Type", "audio/wav")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("stt: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("stt: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("transcription failed", "status", resp.StatusCode)
		return "", NewAPIError(resp.StatusCode, string(body))
	}

	var parsed response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("stt: parse response: %w", err)
	}

	if len(parsed.Results.Channels) == 0 || len(parsed.Results.Channels[0].Alternatives) == 0 {
		return "", nil
	}

	transcript := parsed.Results.Channels[0].Alternatives[0].Transcript
	c.logger.Debug("transcription complete", "chars", len(transcript))
	return transcript, nil
}
