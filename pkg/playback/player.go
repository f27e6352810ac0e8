// Package playback plays synthesized audio blobs through an external
// player process, one blob at a time.
package playback

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
)

// DefaultCommand pipes audio into ffplay, which detects the container
// format from the stream itself.
var DefaultCommand = []string{"ffplay", "-autoexit", "-nodisp", "-loglevel", "quiet", "-i", "pipe:0"}

// CommandPlayer feeds each audio blob to a player command over stdin and
// waits for it to finish. Blobs play strictly in the order Play is called.
type CommandPlayer struct {
	command []string
	logger  *slog.Logger

	mu sync.Mutex
}

// Option configures a CommandPlayer.
type Option func(*CommandPlayer)

// WithCommand overrides the player command line.
func WithCommand(cmd ...string) Option {
	return func(p *CommandPlayer) {
		if len(cmd) > 0 {
			p.command = cmd
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *CommandPlayer) { p.logger = l }
}

// NewCommandPlayer creates a player around an external command.
func NewCommandPlayer(opts ...Option) *CommandPlayer {
	p := &CommandPlayer{
		command: DefaultCommand,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "playback")
	return p
}

// Available reports whether the player command can be found.
func (p *CommandPlayer) Available() bool {
	_, err := exec.LookPath(p.command[0])
	return err == nil
}

// Play pipes one blob through the player and blocks until playback ends
// or the context is cancelled.
func (p *CommandPlayer) Play(ctx context.Context, audio []byte) error {
	if len(audio) == 0 {
		return nil
	}

	// One blob at a time so overlapping calls cannot interleave output.
	p.mu.Lock()
	defer p.mu.Unlock()

	cmd := exec.CommandContext(ctx, p.command[0], p.command[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("playback: stdin pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("playback: start %s: %w", p.command[0], err)
	}

	if _, err := stdin.Write(audio); err != nil {
		stdin.Close()
		cmd.Wait()
		return fmt.Errorf("playback: write audio: %w", err)
	}
	stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("playback: %s: %w", p.command[0], err)
	}

	p.logger.Debug("played", "bytes", len(audio))
	return nil
}

// WriterPlayer writes audio to an io.Writer instead of playing it. Useful
// for saving answers to a file and for tests.
type WriterPlayer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterPlayer creates a player that appends all audio to w.
func NewWriterPlayer(w io.Writer) *WriterPlayer {
	return &WriterPlayer{w: w}
}

func (p *WriterPlayer) Play(ctx context.Context, audio []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.w.Write(audio)
	return err
}
