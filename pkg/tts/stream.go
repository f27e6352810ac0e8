package tts

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultStreamURL = "ws://127.0.0.1:8000/ws/stream"

	handshakeTimeout = 10 * time.Second
	writeTimeout     = 10 * time.Second
)

// StreamState tracks where a streaming session is in its lifecycle.
type StreamState int32

const (
	// StateConnecting means the WebSocket dial or request send is in flight.
	StateConnecting StreamState = iota
	// StateStreaming means audio frames are arriving.
	StateStreaming
	// StateCompleted means the server closed the stream cleanly after the
	// final frame. Terminal.
	StateCompleted
	// StateFailed means the stream ended with an error or local abort.
	// Terminal.
	StateFailed
)

func (s StreamState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StreamCallbacks receive stream events. OnChunk fires once per binary audio
// frame in arrival order. Exactly one of OnComplete or OnError fires after
// the last chunk, unless the stream is aborted with Close first. Nil
// callbacks are skipped.
type StreamCallbacks struct {
	OnChunk    func(audio []byte)
	OnComplete func()
	OnError    func(err error)
}

// streamRequest is the single JSON frame sent after connecting.
type streamRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

// Stream is one synthesis session over the WebSocket endpoint.
type Stream struct {
	callbacks StreamCallbacks
	logger    *slog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	state  StreamState
	closed bool

	done chan struct{}
}

// Streamer dials the synthesis server's WebSocket endpoint.
type Streamer struct {
	url    string
	logger *slog.Logger
}

// StreamerOption configures a Streamer.
type StreamerOption func(*Streamer)

// WithStreamURL overrides the WebSocket endpoint.
func WithStreamURL(u string) StreamerOption {
	return func(s *Streamer) { s.url = u }
}

// WithStreamLogger sets the logger.
func WithStreamLogger(l *slog.Logger) StreamerOption {
	return func(s *Streamer) { s.logger = l }
}

// NewStreamer creates a streaming synthesis client.
func NewStreamer(opts ...StreamerOption) *Streamer {
	s := &Streamer{
		url:    defaultStreamURL,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "tts_stream")
	return s
}

// OpenStream connects, sends one synthesis request, and delivers audio
// frames through the callbacks as they arrive. It returns once the request
// is on the wire; frames are delivered from a background reader.
func (s *Streamer) OpenStream(ctx context.Context, text, voice string, cb StreamCallbacks) (*Stream, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	if voice == "" {
		voice = DefaultVoice
	}

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return nil, &ConnectionError{Op: "dial stream", Err: err}
	}

	st := &Stream{
		callbacks: cb,
		logger:    s.logger,
		conn:      conn,
		state:     StateConnecting,
		done:      make(chan struct{}),
	}

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(streamRequest{Text: text, Voice: voice}); err != nil {
		conn.Close()
		return nil, &ConnectionError{Op: "send stream request", Err: err}
	}

	s.logger.Debug("stream opened", "voice", voice, "chars", len(text))

	go st.readLoop()
	return st, nil
}

// State reports the current lifecycle state.
func (st *Stream) State() StreamState {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.state
}

// Done is closed when the stream reaches a terminal state.
func (st *Stream) Done() <-chan struct{} { return st.done }

// Close aborts the stream. The connection is torn down and no further
// callbacks fire, including OnComplete and OnError. Safe to call from any
// state and more than once.
func (st *Stream) Close() error {
	st.mu.Lock()
	if st.closed {
		st.mu.Unlock()
		return nil
	}
	st.closed = true
	if st.state != StateCompleted {
		st.state = StateFailed
	}
	conn := st.conn
	st.mu.Unlock()

	close(st.done)
	if conn != nil {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		return conn.Close()
	}
	return nil
}

// readLoop delivers frames until the server closes or an error occurs.
func (st *Stream) readLoop() {
	for {
		msgType, data, err := st.conn.ReadMessage()
		if err != nil {
			st.finish(err)
			return
		}

		if msgType != websocket.BinaryMessage {
			// Non-binary frames from the server are informational only.
			st.logger.Debug("ignoring non-binary frame", "type", msgType)
			continue
		}

		st.mu.Lock()
		if st.closed {
			st.mu.Unlock()
			return
		}
		st.state = StateStreaming
		st.mu.Unlock()

		if st.callbacks.OnChunk != nil {
			st.callbacks.OnChunk(data)
		}
	}
}

// finish moves the stream to its terminal state and fires the final
// callback, unless Close already aborted the session. The callback runs
// before done is closed so a waiter woken by Done observes it.
func (st *Stream) finish(readErr error) {
	clean := websocket.IsCloseError(readErr,
		websocket.CloseNormalClosure, websocket.CloseNoStatusReceived)

	st.mu.Lock()
	if st.closed {
		st.mu.Unlock()
		return
	}
	st.closed = true
	if clean {
		st.state = StateCompleted
	} else {
		st.state = StateFailed
	}
	conn := st.conn
	st.mu.Unlock()

	conn.Close()

	if clean {
		st.logger.Debug("stream completed")
		if st.callbacks.OnComplete != nil {
			st.callbacks.OnComplete()
		}
	} else {
		st.logger.Warn("stream failed", "error", readErr)
		if st.callbacks.OnError != nil {
			st.callbacks.OnError(&ConnectionError{Op: "stream read", Err: readErr})
		}
	}

	close(st.done)
}
