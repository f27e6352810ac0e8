package playback

import (
	"bytes"
	"context"
	"os/exec"
	"testing"
)

func TestWriterPlayer(t *testing.T) {
	t.Run("appends audio in call order", func(t *testing.T) {
		var buf bytes.Buffer
		p := NewWriterPlayer(&buf)

		for _, chunk := range [][]byte{{1, 2}, {3}, {4, 5, 6}} {
			if err := p.Play(context.Background(), chunk); err != nil {
				t.Fatalf("play failed: %v", err)
			}
		}

		if !bytes.Equal(buf.Bytes(), []byte{1, 2, 3, 4, 5, 6}) {
			t.Errorf("unexpected output: %v", buf.Bytes())
		}
	})

	t.Run("cancelled context rejected", func(t *testing.T) {
		var buf bytes.Buffer
		p := NewWriterPlayer(&buf)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := p.Play(ctx, []byte{1}); err == nil {
			t.Error("expected context error")
		}
		if buf.Len() != 0 {
			t.Error("audio written after cancellation")
		}
	})
}

func TestCommandPlayer(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}

	t.Run("pipes blob through the command", func(t *testing.T) {
		p := NewCommandPlayer(WithCommand("cat"))
		if !p.Available() {
			t.Fatal("cat should be available")
		}
		if err := p.Play(context.Background(), []byte("audio-bytes")); err != nil {
			t.Fatalf("play failed: %v", err)
		}
	})

	t.Run("empty blob is a no-op", func(t *testing.T) {
		p := NewCommandPlayer(WithCommand("false"))
		if err := p.Play(context.Background(), nil); err != nil {
			t.Errorf("empty blob must not run the command: %v", err)
		}
	})

	t.Run("missing command surfaces an error", func(t *testing.T) {
		p := NewCommandPlayer(WithCommand("definitely-not-a-player"))
		if p.Available() {
			t.Skip("unexpectedly present")
		}
		if err := p.Play(context.Background(), []byte{1}); err == nil {
			t.Error("expected start error")
		}
	})
}
