package research

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Sentinel errors for the research package.
var (
	// ErrNoAPIKey indicates the Tavily key is not configured.
	// No network call is attempted in this case.
	ErrNoAPIKey = errors.New("research: API key is required")

	// ErrMissingQuery indicates a search request without a query.
	ErrMissingQuery = errors.New("research: query is required for search")

	// ErrMissingURLs indicates an extract request without URLs.
	ErrMissingURLs = errors.New("research: at least one URL is required for extract")

	// ErrMissingURL indicates a crawl request without a URL.
	ErrMissingURL = errors.New("research: URL is required for crawl")

	// ErrUnknownMode indicates an unrecognized research mode.
	ErrUnknownMode = errors.New("research: unknown mode")
)

// APIError represents a remote research failure. Details carries the
// remote error body verbatim for diagnostics.
type APIError struct {
	StatusCode int
	Message    string
	Details    json.RawMessage
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("research: API error (HTTP %d): %s", e.StatusCode, e.Message)
}

// NewAPIError creates a new APIError.
func NewAPIError(statusCode int, message string, details []byte) *APIError {
	return &APIError{StatusCode: statusCode, Message: message, Details: details}
}
