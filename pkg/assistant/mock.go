package assistant

import (
	"context"
	"sync"

	"github.com/sagelab/go-sage/pkg/chat"
	"github.com/sagelab/go-sage/pkg/research"
	"github.com/sagelab/go-sage/pkg/tts"
)

// Mock stage implementations for tests. Each records its calls and returns
// canned results or a configured error.

// MockRecorder is an in-memory Recorder.
type MockRecorder struct {
	StartErr error
	StopBlob []byte
	StopErr  error

	mu        sync.Mutex
	recording bool
	Starts    int
	Stops     int
}

func (m *MockRecorder) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Starts++
	if m.StartErr != nil {
		return m.StartErr
	}
	m.recording = true
	return nil
}

func (m *MockRecorder) Stop() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Stops++
	m.recording = false
	return m.StopBlob, m.StopErr
}

func (m *MockRecorder) Recording() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recording
}

// MockTranscriber returns a fixed transcript.
type MockTranscriber struct {
	Text string
	Err  error

	mu        sync.Mutex
	Calls     int
	LastAudio []byte
}

func (m *MockTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	m.LastAudio = audio
	return m.Text, m.Err
}

// MockResearcher returns a fixed result. Block, when set, stalls the call
// until the channel is closed so tests can hold a run mid-flight.
type MockResearcher struct {
	Result *research.Result
	Err    error
	Block  chan struct{}

	mu      sync.Mutex
	Calls   int
	LastReq research.Request
}

func (m *MockResearcher) Research(ctx context.Context, req research.Request) (*research.Result, error) {
	m.mu.Lock()
	m.Calls++
	m.LastReq = req
	block := m.Block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Result, nil
}

// MockCompleter returns a fixed completion.
type MockCompleter struct {
	Response *chat.Response
	Err      error

	mu       sync.Mutex
	Calls    int
	LastMsgs []chat.Message
	LastCfg  chat.Config
}

func (m *MockCompleter) Complete(ctx context.Context, msgs []chat.Message, cfg chat.Config) (*chat.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	m.LastMsgs = msgs
	m.LastCfg = cfg
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Response, nil
}

// MockSynthesizer returns a fixed audio blob.
type MockSynthesizer struct {
	Audio []byte
	Err   error

	mu        sync.Mutex
	Calls     int
	LastText  string
	LastVoice string
}

func (m *MockSynthesizer) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	m.LastText = text
	m.LastVoice = voice
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Audio, nil
}

// MockPlayer records every blob played.
type MockPlayer struct {
	Err error

	mu     sync.Mutex
	Played [][]byte
}

func (m *MockPlayer) Play(ctx context.Context, audio []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Played = append(m.Played, audio)
	return nil
}

func (m *MockPlayer) PlayedChunks() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.Played))
	copy(out, m.Played)
	return out
}

// MockStreamOpener plays out a canned streaming session: each chunk is
// delivered through OnChunk in order, then either a clean completion or
// StreamErr through OnError.
type MockStreamOpener struct {
	Chunks    [][]byte
	OpenErr   error
	StreamErr error

	mu        sync.Mutex
	Calls     int
	LastText  string
	LastVoice string
}

func (m *MockStreamOpener) OpenStream(ctx context.Context, text, voice string, cb tts.StreamCallbacks) (StreamHandle, error) {
	m.mu.Lock()
	m.Calls++
	m.LastText = text
	m.LastVoice = voice
	m.mu.Unlock()

	if m.OpenErr != nil {
		return nil, m.OpenErr
	}

	h := &mockStream{done: make(chan struct{})}
	go func() {
		defer close(h.done)
		for _, c := range m.Chunks {
			if cb.OnChunk != nil {
				cb.OnChunk(c)
			}
		}
		if m.StreamErr != nil {
			if cb.OnError != nil {
				cb.OnError(m.StreamErr)
			}
			return
		}
		if cb.OnComplete != nil {
			cb.OnComplete()
		}
	}()
	return h, nil
}

type mockStream struct {
	done chan struct{}
}

func (s *mockStream) Done() <-chan struct{} { return s.done }
func (s *mockStream) Close() error          { return nil }
