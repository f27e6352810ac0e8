package stt

import "fmt"

// APIError represents a remote transcription failure.
type APIError struct {
	// StatusCode is the HTTP status returned by the service.
	StatusCode int

	// Message is the response body or error detail.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("stt: API error (HTTP %d): %s", e.StatusCode, e.Message)
}

// NewAPIError creates a new APIError.
func NewAPIError(statusCode int, message string) *APIError {
	return &APIError{StatusCode: statusCode, Message: message}
}
