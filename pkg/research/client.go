package research

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/sagelab/go-sage/internal/httpc"
)

const defaultBaseURL = "https://api.tavily.com"

// Fixed search payload values. These always win over caller-supplied
// options so one user turn cannot silently widen the result set.
const (
	searchMaxResults    = 5
	searchIncludeAnswer = true
)

// Client calls the Tavily API. Each Research invocation makes exactly one
// HTTP call: no pagination, no retries, no caching.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the Tavily endpoint (used in tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a research client. An empty apiKey is allowed;
// Research then fails fast with ErrNoAPIKey.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: httpc.Client,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "research")
	return c
}

// endpoint returns the API path for a mode.
func endpoint(mode Mode) string {
	switch mode {
	case ModeExtract:
		return "/extract"
	case ModeCrawl:
		return "/crawl"
	default:
		return "/search"
	}
}

// buildPayload assembles the request body for the active strategy.
// Caller options are merged first; strategy fields and the fixed search
// keys are written last so they always take precedence.
func (c *Client) buildPayload(req Request) map[string]any {
	payload := make(map[string]any, len(req.Options)+6)
	for k, v := range req.Options {
		payload[k] = v
	}
	payload["api_key"] = c.apiKey

	switch req.Mode {
	case ModeExtract:
		payload["urls"] = req.URLs
	case ModeCrawl:
		depth := req.ExtractDepth
		if depth == "" {
			depth = DefaultDepth
		}
		payload["url"] = req.URL
		payload["extract_depth"] = depth
	default:
		depth := req.SearchDepth
		if depth == "" {
			depth = DefaultDepth
		}
		payload["query"] = req.Query
		payload["search_depth"] = depth
		payload["include_answer"] = searchIncludeAnswer
		payload["max_results"] = searchMaxResults
	}
	return payload
}

// searchResponse mirrors the subset of the search result we normalize.
type searchResponse struct {
	Answer  string   `json:"answer"`
	Results []Source `json:"results"`
}

// extractResponse mirrors the subset of the extract result we serialize.
type extractResponse struct {
	Results json.RawMessage `json:"results"`
}

// Research performs one retrieval call and normalizes the response into a
// context string plus citable sources. Sources are only produced in search
// mode; extract and crawl serialize the raw structured result verbatim.
func (c *Client) Research(ctx context.Context, req Request) (*Result, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(c.buildPayload(req))
	if err != nil {
		return nil, fmt.Errorf("research: marshal payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint(req.Mode), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("research: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("research: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("research: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("research failed", "mode", req.Mode, "status", resp.StatusCode)
		return nil, NewAPIError(resp.StatusCode, fmt.Sprintf("%s request rejected", req.Mode), raw)
	}

	c.logger.Debug("research complete", "mode", req.Mode, "bytes", len(raw))
	return normalize(req.Mode, raw)
}

// normalize converts a raw remote response into a Result.
func normalize(mode Mode, raw []byte) (*Result, error) {
	res := &Result{Raw: raw}

	switch mode {
	case ModeSearch:
		var parsed searchResponse
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return nil, fmt.Errorf("research: parse search response: %w", err)
		}
		res.Sources = parsed.Results
		res.Context = BuildSearchContext(parsed.Results)

	case ModeExtract:
		var parsed extractResponse
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return nil, fmt.Errorf("research: parse extract response: %w", err)
		}
		res.Context = indentJSON(parsed.Results)

	case ModeCrawl:
		res.Context = indentJSON(raw)
	}

	return res, nil
}
