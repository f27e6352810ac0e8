package tts

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyText indicates synthesis was requested for empty text.
	ErrEmptyText = errors.New("tts: text is required")

	// ErrStreamActive indicates a stream operation raced a live session.
	ErrStreamActive = errors.New("tts: stream already active")

	// ErrStreamClosed indicates the stream was closed before the operation.
	ErrStreamClosed = errors.New("tts: stream closed")
)

// APIError is a non-2xx response from the synthesis server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tts: server returned %d: %s", e.StatusCode, e.Message)
}

// ConnectionError wraps a transport failure reaching the synthesis server,
// batch or streaming.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("tts: %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }
