package capture

import (
	"context"
	"log/slog"
	"sync"
)

// Recorder buffers audio from a Source for one recording session at a time
// and finalizes it into a single WAV blob.
//
// Start while already recording is a no-op, so a UI toggle cannot open a
// second session. Stop without an active session returns no blob. The
// underlying device is released on every exit path, including Abort.
type Recorder struct {
	src    Source
	logger *slog.Logger

	mu        sync.Mutex
	recording bool
	buf       []int16
	done      chan struct{}
}

// NewRecorder creates a Recorder on top of the given source.
func NewRecorder(src Source, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		src:    src,
		logger: logger.With("component", "capture.recorder"),
	}
}

// Start acquires the audio device and begins buffering.
// If acquisition fails the recorder state is unchanged. Calling Start while
// a session is active does nothing.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		return nil
	}

	if err := r.src.Start(ctx); err != nil {
		return err
	}

	r.recording = true
	r.buf = r.buf[:0]
	r.done = make(chan struct{})

	go r.drain(r.src.Stream(), r.done)

	r.logger.Debug("recording started", "backend", r.src.Name())
	return nil
}

func (r *Recorder) drain(stream <-chan Chunk, done chan struct{}) {
	defer close(done)
	for chunk := range stream {
		r.mu.Lock()
		r.buf = append(r.buf, chunk.Samples...)
		r.mu.Unlock()
	}
}

// Stop finalizes the session into a WAV blob and releases the device.
// Stop without an active session is a no-op returning no blob.
func (r *Recorder) Stop() ([]byte, error) {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return nil, nil
	}
	r.recording = false
	done := r.done
	r.mu.Unlock()

	// Stopping the source closes its stream, which ends the drain goroutine.
	if err := r.src.Stop(); err != nil {
		return nil, err
	}
	<-done

	r.mu.Lock()
	samples := r.buf
	r.buf = nil
	cfg := r.src.Config()
	r.mu.Unlock()

	r.logger.Debug("recording stopped", "samples", len(samples))
	return EncodeWAV(samples, cfg.SampleRate, cfg.Channels), nil
}

// Abort releases the device and discards any buffered audio.
func (r *Recorder) Abort() error {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return nil
	}
	r.recording = false
	done := r.done
	r.buf = nil
	r.mu.Unlock()

	err := r.src.Stop()
	<-done
	return err
}

// Recording reports whether a session is active.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}
