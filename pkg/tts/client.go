package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/sagelab/go-sage/internal/httpc"
)

const defaultBaseURL = "http://127.0.0.1:8000/api"

// Client talks to the local synthesis server over HTTP for voice listing,
// batch synthesis, and voice sample uploads.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the synthesis server base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a synthesis client for the local server.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		http:    httpc.Client,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "tts")
	return c
}

// Voices lists the voices the server can synthesize with. If the server is
// unreachable or returns an error, the built-in fallback list is returned
// with a nil error so voice selection keeps working without the server.
func (c *Client) Voices(ctx context.Context) []string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/voices", nil)
	if err != nil {
		return FallbackVoices
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("voice listing unreachable, using fallback", "error", err)
		return FallbackVoices
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("voice listing failed, using fallback", "status", resp.StatusCode)
		return FallbackVoices
	}

	var body struct {
		Voices []string `json:"voices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || len(body.Voices) == 0 {
		c.logger.Warn("voice listing unparseable, using fallback", "error", err)
		return FallbackVoices
	}

	return body.Voices
}

// Synthesize renders text to a complete audio blob in one request.
// Empty text is rejected locally without contacting the server.
func (c *Client) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	if voice == "" {
		voice = DefaultVoice
	}

	form := url.Values{}
	form.Set("text", text)
	form.Set("voice", voice)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/generate", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("tts: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &ConnectionError{Op: "synthesize", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(msg)}
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ConnectionError{Op: "synthesize read", Err: err}
	}

	c.logger.Debug("synthesized", "voice", voice, "bytes", len(audio))
	return audio, nil
}

// UploadVoice submits an audio sample so the server can clone it as a new
// voice. The returned name is the server-assigned voice identifier.
func (c *Client) UploadVoice(ctx context.Context, name string, sample io.Reader) (string, error) {
	if name == "" {
		return "", fmt.Errorf("tts: voice name is required")
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("name", name); err != nil {
		return "", fmt.Errorf("tts: build upload: %w", err)
	}
	part, err := w.CreateFormFile("file", name+".wav")
	if err != nil {
		return "", fmt.Errorf("tts: build upload: %w", err)
	}
	if _, err := io.Copy(part, sample); err != nil {
		return "", fmt.Errorf("tts: read sample: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("tts: build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/upload-voice", &buf)
	if err != nil {
		return "", fmt.Errorf("tts: build request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &ConnectionError{Op: "upload voice", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &APIError{StatusCode: resp.StatusCode, Message: string(msg)}
	}

	var body struct {
		Voice string `json:"voice"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("tts: decode upload response: %w", err)
	}
	if body.Voice == "" {
		body.Voice = name
	}

	c.logger.Info("voice uploaded", "voice", body.Voice)
	return body.Voice, nil
}
