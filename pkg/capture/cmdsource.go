package capture

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"
)

// DefaultCaptureCommand records raw S16LE PCM from the default input
// device with arecord.
func DefaultCaptureCommand(cfg Config) []string {
	return []string{
		"arecord", "-q",
		"-f", "S16_LE",
		"-r", strconv.Itoa(cfg.SampleRate),
		"-c", strconv.Itoa(cfg.Channels),
		"-t", "raw", "-",
	}
}

// CommandSource captures audio by running an external recorder process
// and reading raw PCM16 from its stdout.
type CommandSource struct {
	cfg     Config
	command []string
	logger  *slog.Logger

	mu       sync.Mutex
	running  bool
	closed   bool
	cmd      *exec.Cmd
	streamCh chan Chunk
	done     chan struct{}
}

// CommandSourceOption configures a CommandSource.
type CommandSourceOption func(*CommandSource)

// WithCaptureCommand overrides the recorder command line. The command
// must write raw S16LE PCM at the configured rate to stdout.
func WithCaptureCommand(cmd ...string) CommandSourceOption {
	return func(s *CommandSource) {
		if len(cmd) > 0 {
			s.command = cmd
		}
	}
}

// NewCommandSource creates a source around an external recorder.
func NewCommandSource(cfg Config, logger *slog.Logger, opts ...CommandSourceOption) *CommandSource {
	if logger == nil {
		logger = slog.Default()
	}
	s := &CommandSource{
		cfg:      cfg,
		command:  DefaultCaptureCommand(cfg),
		logger:   logger.With("component", "capture.cmd"),
		streamCh: make(chan Chunk, 10),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the recorder process and begins streaming chunks.
func (s *CommandSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.running {
		return nil
	}

	cmd := exec.Command(s.command[0], s.command[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: stdout pipe: %v", ErrDeviceUnavailable, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: start %s: %v", ErrDeviceUnavailable, s.command[0], err)
	}

	s.cmd = cmd
	s.running = true
	s.streamCh = make(chan Chunk, 10)
	s.done = make(chan struct{})

	go s.readLoop(stdout, s.streamCh, s.done)

	s.logger.Debug("capture started", "command", s.command[0], "sample_rate", s.cfg.SampleRate)
	return nil
}

// readLoop converts stdout bytes into chunks until the process exits.
// It owns closing the stream channel.
func (s *CommandSource) readLoop(stdout io.Reader, stream chan Chunk, done chan struct{}) {
	defer close(done)
	defer close(stream)

	chunkBytes := s.cfg.BufferSize() * s.cfg.Channels * 2
	buf := make([]byte, chunkBytes)

	for {
		n, err := io.ReadFull(stdout, buf)
		if n > 0 {
			samples := make([]int16, n/2)
			for i := range samples {
				samples[i] = int16(buf[i*2]) | int16(buf[i*2+1])<<8
			}
			select {
			case stream <- Chunk{Samples: samples, SampleRate: s.cfg.SampleRate, Channels: s.cfg.Channels}:
			default:
				s.logger.Debug("capture buffer full, dropping chunk")
			}
		}
		if err != nil {
			return
		}
	}
}

// Stop kills the recorder process and waits for the stream to close.
func (s *CommandSource) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cmd := s.cmd
	done := s.done
	s.mu.Unlock()

	if cmd.Process != nil {
		cmd.Process.Kill()
	}
	cmd.Wait()
	<-done

	s.logger.Debug("capture stopped")
	return nil
}

// Stream returns the audio chunk channel.
func (s *CommandSource) Stream() <-chan Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamCh
}

// Config returns the capture configuration.
func (s *CommandSource) Config() Config {
	return s.cfg
}

// Name returns the recorder command name.
func (s *CommandSource) Name() string {
	return s.command[0]
}

// Close stops the source permanently.
func (s *CommandSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	return s.Stop()
}

var _ Source = (*CommandSource)(nil)
