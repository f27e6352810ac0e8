package capture

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		SampleRate:     16000,
		Channels:       1,
		BufferDuration: 10 * time.Millisecond,
	}
}

func TestRecorderLifecycle(t *testing.T) {
	t.Run("stop without start returns no blob", func(t *testing.T) {
		src := NewMockSource(testConfig(), nil)
		r := NewRecorder(src, nil)

		blob, err := r.Stop()
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if blob != nil {
			t.Errorf("expected no blob, got %d bytes", len(blob))
		}
	})

	t.Run("start and stop produces WAV blob", func(t *testing.T) {
		src := NewMockSource(testConfig(), nil, WithSineWave(440, 0.5))
		r := NewRecorder(src, nil)

		if err := r.Start(context.Background()); err != nil {
			t.Fatalf("start failed: %v", err)
		}
		if !r.Recording() {
			t.Error("should be recording after Start")
		}

		time.Sleep(50 * time.Millisecond)

		blob, err := r.Stop()
		if err != nil {
			t.Fatalf("stop failed: %v", err)
		}
		if r.Recording() {
			t.Error("should not be recording after Stop")
		}

		if len(blob) < 44 {
			t.Fatalf("blob too short for a WAV file: %d bytes", len(blob))
		}
		if string(blob[0:4]) != "RIFF" || string(blob[8:12]) != "WAVE" {
			t.Error("blob is not a RIFF/WAVE container")
		}

		var rate uint32
		binary.Read(bytes.NewReader(blob[24:28]), binary.LittleEndian, &rate)
		if rate != 16000 {
			t.Errorf("expected sample rate 16000, got %d", rate)
		}
	})

	t.Run("start while recording is a no-op", func(t *testing.T) {
		src := NewMockSource(testConfig(), nil)
		r := NewRecorder(src, nil)

		if err := r.Start(context.Background()); err != nil {
			t.Fatalf("start failed: %v", err)
		}
		if err := r.Start(context.Background()); err != nil {
			t.Errorf("second start should be a no-op, got %v", err)
		}

		if _, err := r.Stop(); err != nil {
			t.Errorf("stop failed: %v", err)
		}
	})

	t.Run("failed start leaves state unchanged", func(t *testing.T) {
		src := NewMockSource(testConfig(), nil)
		src.FailStart = ErrPermissionDenied
		r := NewRecorder(src, nil)

		err := r.Start(context.Background())
		if !errors.Is(err, ErrPermissionDenied) {
			t.Errorf("expected ErrPermissionDenied, got %v", err)
		}
		if r.Recording() {
			t.Error("should not be recording after failed start")
		}
		if src.Running() {
			t.Error("source should not be running after failed start")
		}
	})

	t.Run("stop releases the device", func(t *testing.T) {
		src := NewMockSource(testConfig(), nil)
		r := NewRecorder(src, nil)

		_ = r.Start(context.Background())
		if !src.Running() {
			t.Fatal("source should be running")
		}

		_, _ = r.Stop()
		if src.Running() {
			t.Error("source should be released after Stop")
		}
	})

	t.Run("abort releases the device and discards audio", func(t *testing.T) {
		src := NewMockSource(testConfig(), nil, WithSineWave(440, 0.5))
		r := NewRecorder(src, nil)

		_ = r.Start(context.Background())
		time.Sleep(30 * time.Millisecond)

		if err := r.Abort(); err != nil {
			t.Errorf("abort failed: %v", err)
		}
		if src.Running() {
			t.Error("source should be released after Abort")
		}
		if r.Recording() {
			t.Error("should not be recording after Abort")
		}
	})
}

func TestEncodeWAV(t *testing.T) {
	samples := []int16{0, 100, -100, 32767}
	blob := EncodeWAV(samples, 16000, 1)

	if len(blob) != 44+len(samples)*2 {
		t.Fatalf("expected %d bytes, got %d", 44+len(samples)*2, len(blob))
	}

	var dataSize uint32
	binary.Read(bytes.NewReader(blob[40:44]), binary.LittleEndian, &dataSize)
	if dataSize != uint32(len(samples)*2) {
		t.Errorf("expected data size %d, got %d", len(samples)*2, dataSize)
	}

	var first int16
	binary.Read(bytes.NewReader(blob[44:46]), binary.LittleEndian, &first)
	if first != 0 {
		t.Errorf("expected first sample 0, got %d", first)
	}

	var last int16
	binary.Read(bytes.NewReader(blob[50:52]), binary.LittleEndian, &last)
	if last != 32767 {
		t.Errorf("expected last sample 32767, got %d", last)
	}
}

func TestChunkDuration(t *testing.T) {
	c := Chunk{
		Samples:    make([]int16, 1600),
		SampleRate: 16000,
		Channels:   1,
	}
	if d := c.Duration(); d != 100*time.Millisecond {
		t.Errorf("expected 100ms, got %v", d)
	}

	empty := Chunk{}
	if d := empty.Duration(); d != 0 {
		t.Errorf("expected 0 for empty chunk, got %v", d)
	}
}
