// Package capture records microphone audio and finalizes each recording
// session into a single WAV blob.
package capture

import (
	"context"
	"io"
	"time"
)

// Chunk represents a chunk of captured audio.
type Chunk struct {
	// Samples contains PCM16 audio samples (little-endian).
	Samples []int16

	// SampleRate is the sample rate of this chunk.
	SampleRate int

	// Channels is the number of channels in this chunk.
	Channels int
}

// Duration returns the duration of this chunk.
func (c *Chunk) Duration() time.Duration {
	if c.SampleRate == 0 || c.Channels == 0 {
		return 0
	}
	seconds := float64(len(c.Samples)) / float64(c.SampleRate*c.Channels)
	return time.Duration(seconds * float64(time.Second))
}

// Config holds audio capture parameters.
type Config struct {
	// SampleRate in Hz.
	SampleRate int

	// Channels is the channel count (1 = mono).
	Channels int

	// BufferDuration is how much audio each chunk carries.
	BufferDuration time.Duration
}

// DefaultConfig returns capture defaults: 16kHz mono, 100ms chunks.
func DefaultConfig() Config {
	return Config{
		SampleRate:     16000,
		Channels:       1,
		BufferDuration: 100 * time.Millisecond,
	}
}

// BufferSize returns the number of samples per channel in one chunk.
func (c Config) BufferSize() int {
	return int(float64(c.SampleRate) * c.BufferDuration.Seconds())
}

// Source captures audio from a microphone or other input device.
// The device is an exclusive resource: implementations must release it on
// Stop and Close, including abort paths.
type Source interface {
	// Start begins audio capture. After Start, chunks arrive on Stream.
	Start(ctx context.Context) error

	// Stop halts audio capture and releases the device.
	// It is safe to call Stop multiple times.
	Stop() error

	// Stream returns a channel that receives audio chunks.
	// The channel is closed when the source is stopped.
	Stream() <-chan Chunk

	// Config returns the current audio configuration.
	Config() Config

	// Name returns the backend name (e.g., "mock").
	Name() string

	// Close releases all resources. After Close, the source cannot restart.
	io.Closer
}
