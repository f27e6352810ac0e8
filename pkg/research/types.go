// Package research retrieves fresh web content through the Tavily API.
// It supports three mutually exclusive retrieval strategies: search,
// extract, and crawl.
package research

import (
	"encoding/json"
	"strings"
)

// Mode selects the retrieval strategy.
type Mode string

const (
	// ModeSearch issues a web search query.
	ModeSearch Mode = "search"

	// ModeExtract pulls content from an explicit list of URLs.
	ModeExtract Mode = "extract"

	// ModeCrawl walks a single site starting from one URL.
	ModeCrawl Mode = "crawl"
)

// DefaultDepth is the depth hint applied when none is given.
const DefaultDepth = "advanced"

// Source is a citation attached to an assistant answer.
// Only search mode produces sources.
type Source struct {
	Title   string `json:"title,omitempty"`
	URL     string `json:"url"`
	Content string `json:"content,omitempty"`
}

// Request describes one research call. Exactly one strategy is active,
// selected by Mode; only the fields of the active strategy are sent.
type Request struct {
	Mode Mode

	// Search fields
	Query       string
	SearchDepth string // "basic" or "advanced", defaults to advanced

	// Extract fields
	URLs []string

	// Crawl fields
	URL          string
	ExtractDepth string // defaults to advanced

	// Options carries extra caller-supplied payload keys. Fixed search
	// keys (max_results, include_answer) always win over Options.
	Options map[string]any
}

// SearchRequest builds a search-mode request.
func SearchRequest(query string) Request {
	return Request{Mode: ModeSearch, Query: query}
}

// ExtractRequest builds an extract-mode request.
func ExtractRequest(urls []string) Request {
	return Request{Mode: ModeExtract, URLs: urls}
}

// CrawlRequest builds a crawl-mode request.
func CrawlRequest(url string) Request {
	return Request{Mode: ModeCrawl, URL: url}
}

// SplitURLs splits a comma-separated URL list, trimming whitespace and
// dropping empty entries. Order is preserved.
func SplitURLs(s string) []string {
	parts := strings.Split(s, ",")
	urls := make([]string, 0, len(parts))
	for _, p := range parts {
		if u := strings.TrimSpace(p); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// Validate checks that the fields of the active strategy are present.
func (r Request) Validate() error {
	switch r.Mode {
	case ModeSearch:
		if strings.TrimSpace(r.Query) == "" {
			return ErrMissingQuery
		}
	case ModeExtract:
		if len(r.URLs) == 0 {
			return ErrMissingURLs
		}
	case ModeCrawl:
		if strings.TrimSpace(r.URL) == "" {
			return ErrMissingURL
		}
	default:
		return ErrUnknownMode
	}
	return nil
}

// Result is the normalized outcome of one research call.
type Result struct {
	// Context is the text handed to the chat stage.
	Context string

	// Sources lists citable results (search mode only).
	Sources []Source

	// Raw is the unmodified remote response, kept for diagnostics.
	Raw json.RawMessage
}
