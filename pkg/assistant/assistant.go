// Package assistant sequences one user utterance through research, chat
// completion, and speech synthesis, tracking a single pipeline status and
// isolating speech failures from the text answer.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sagelab/go-sage/pkg/chat"
	"github.com/sagelab/go-sage/pkg/research"
	"github.com/sagelab/go-sage/pkg/tts"
)

var (
	// ErrBusy indicates a pipeline run or recording is already active.
	ErrBusy = errors.New("assistant: pipeline busy")

	// ErrEmptyInput indicates send was called with nothing to send.
	ErrEmptyInput = errors.New("assistant: input is empty")
)

// DefaultStageTimeout bounds each remote stage call so a hung service
// cannot wedge the state machine in a non-idle status.
const DefaultStageTimeout = 60 * time.Second

// Recorder is the microphone session the mic toggle drives.
type Recorder interface {
	Start(ctx context.Context) error
	Stop() ([]byte, error)
	Recording() bool
}

// Transcriber turns an audio blob into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Researcher runs one retrieval call.
type Researcher interface {
	Research(ctx context.Context, req research.Request) (*research.Result, error)
}

// Completer requests one chat completion.
type Completer interface {
	Complete(ctx context.Context, msgs []chat.Message, cfg chat.Config) (*chat.Response, error)
}

// Synthesizer is the batch speech path.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// StreamHandle is a live streaming speech session.
type StreamHandle interface {
	Done() <-chan struct{}
	Close() error
}

// StreamOpener is the streaming speech path.
type StreamOpener interface {
	OpenStream(ctx context.Context, text, voice string, cb tts.StreamCallbacks) (StreamHandle, error)
}

// TTSStreamer adapts a tts.Streamer to the StreamOpener interface.
type TTSStreamer struct {
	Streamer *tts.Streamer
}

func (t TTSStreamer) OpenStream(ctx context.Context, text, voice string, cb tts.StreamCallbacks) (StreamHandle, error) {
	st, err := t.Streamer.OpenStream(ctx, text, voice, cb)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// Player consumes synthesized audio in delivery order.
type Player interface {
	Play(ctx context.Context, audio []byte) error
}

// ResearchSettings selects the retrieval strategy for the next run.
// Search takes its query from the user text; extract and crawl take their
// targets from here.
type ResearchSettings struct {
	Mode         research.Mode
	SearchDepth  string
	URLs         string // comma-separated, extract mode
	URL          string // crawl mode
	ExtractDepth string
	Options      map[string]any
}

// Settings is the per-run configuration snapshot.
type Settings struct {
	Research     ResearchSettings
	LLM          chat.Config
	Voice        string
	StreamSpeech bool
}

// DefaultSettings returns the configuration a fresh session starts with.
func DefaultSettings() Settings {
	return Settings{
		Research: ResearchSettings{Mode: research.ModeSearch},
		LLM:      chat.DefaultConfig(),
		Voice:    tts.DefaultVoice,
	}
}

// Assistant owns the pipeline state: conversation history, input buffer,
// status, and settings. All mutation goes through its methods. At most one
// pipeline run is in flight, enforced by a non-reentrant run token.
type Assistant struct {
	recorder    Recorder
	transcriber Transcriber
	researcher  Researcher
	completer   Completer
	synthesizer Synthesizer
	streamer    StreamOpener
	player      Player

	stageTimeout time.Duration
	logger       *slog.Logger

	mu       sync.Mutex
	status   Status
	runToken string
	history  []Message
	input    string
	notices  []Notice
	settings Settings
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithRecorder sets the microphone recorder.
func WithRecorder(r Recorder) Option {
	return func(a *Assistant) { a.recorder = r }
}

// WithTranscriber sets the speech-to-text stage.
func WithTranscriber(t Transcriber) Option {
	return func(a *Assistant) { a.transcriber = t }
}

// WithResearcher sets the retrieval stage.
func WithResearcher(r Researcher) Option {
	return func(a *Assistant) { a.researcher = r }
}

// WithCompleter sets the chat completion stage.
func WithCompleter(c Completer) Option {
	return func(a *Assistant) { a.completer = c }
}

// WithSynthesizer sets the batch speech stage.
func WithSynthesizer(s Synthesizer) Option {
	return func(a *Assistant) { a.synthesizer = s }
}

// WithStreamer sets the streaming speech stage.
func WithStreamer(s StreamOpener) Option {
	return func(a *Assistant) { a.streamer = s }
}

// WithPlayer sets the audio sink.
func WithPlayer(p Player) Option {
	return func(a *Assistant) { a.player = p }
}

// WithStageTimeout bounds each remote stage call.
func WithStageTimeout(d time.Duration) Option {
	return func(a *Assistant) {
		if d > 0 {
			a.stageTimeout = d
		}
	}
}

// WithSettings sets the initial configuration.
func WithSettings(s Settings) Option {
	return func(a *Assistant) { a.settings = s }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Assistant) { a.logger = l }
}

// New creates an Assistant in the idle state.
func New(opts ...Option) *Assistant {
	a := &Assistant{
		stageTimeout: DefaultStageTimeout,
		logger:       slog.Default(),
		status:       StatusIdle,
		settings:     DefaultSettings(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("component", "assistant")
	return a
}

// Status reports the current pipeline state.
func (a *Assistant) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// History returns a copy of the conversation so far.
func (a *Assistant) History() []Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Message, len(a.history))
	copy(out, a.history)
	return out
}

// Input returns the current input buffer.
func (a *Assistant) Input() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.input
}

// SetInput replaces the input buffer. Ignored while a run is active so a
// late edit cannot race the pipeline.
func (a *Assistant) SetInput(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.status == StatusIdle || a.status == StatusRecording {
		a.input = text
	}
}

// Notices returns the accumulated user-visible notices.
func (a *Assistant) Notices() []Notice {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Notice, len(a.notices))
	copy(out, a.notices)
	return out
}

// Settings returns the current configuration snapshot.
func (a *Assistant) Settings() Settings {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.settings
}

// UpdateSettings replaces the configuration. Rejected while a run is
// active; the run keeps the snapshot it started with.
func (a *Assistant) UpdateSettings(s Settings) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.status != StatusIdle && a.status != StatusRecording {
		return ErrBusy
	}
	a.settings = s
	return nil
}

// ToggleMic flips the recording session. The first call starts capturing,
// the second stops, transcribes, and fills the input buffer with the
// transcript, which is also returned. Rejected while a pipeline run is
// active.
func (a *Assistant) ToggleMic(ctx context.Context) (string, error) {
	a.mu.Lock()
	switch a.status {
	case StatusIdle:
		if a.recorder == nil {
			a.mu.Unlock()
			return "", fmt.Errorf("assistant: no recorder configured")
		}
		if err := a.recorder.Start(ctx); err != nil {
			a.mu.Unlock()
			a.addNotice(NoticeError, "microphone unavailable: "+err.Error())
			return "", err
		}
		a.status = StatusRecording
		a.mu.Unlock()
		a.logger.Debug("recording started")
		return "", nil

	case StatusRecording:
		a.status = StatusTranscribing
		a.mu.Unlock()

	default:
		a.mu.Unlock()
		return "", ErrBusy
	}

	// Recording -> transcribing path.
	defer a.setStatus(StatusIdle)

	audio, err := a.recorder.Stop()
	if err != nil {
		a.addNotice(NoticeError, "recording failed: "+err.Error())
		return "", err
	}
	if len(audio) == 0 {
		return "", nil
	}
	if a.transcriber == nil {
		err := fmt.Errorf("assistant: no transcriber configured")
		a.addNotice(NoticeError, "transcription failed: "+err.Error())
		return "", err
	}

	stageCtx, cancel := context.WithTimeout(ctx, a.stageTimeout)
	defer cancel()

	text, err := a.transcriber.Transcribe(stageCtx, audio)
	if err != nil {
		a.addNotice(NoticeError, "transcription failed: "+err.Error())
		return "", err
	}

	a.mu.Lock()
	a.input = text
	a.mu.Unlock()

	a.logger.Debug("transcript ready", "chars", len(text))
	return text, nil
}

// Send runs one full pipeline over the input buffer: research, completion,
// then speech. It is rejected unless the status is idle and the trimmed
// buffer is non-empty; no network call happens on rejection. A speech
// failure is demoted to a warning and the returned assistant message
// stands. Every exit path returns the status to idle.
func (a *Assistant) Send(ctx context.Context) (*Message, error) {
	a.mu.Lock()
	if a.status != StatusIdle || a.runToken != "" {
		a.mu.Unlock()
		return nil, ErrBusy
	}
	text := strings.TrimSpace(a.input)
	if text == "" {
		a.mu.Unlock()
		return nil, ErrEmptyInput
	}

	token := uuid.NewString()
	a.runToken = token
	a.status = StatusResearching
	a.input = ""
	cfg := a.settings
	a.history = append(a.history, Message{
		ID:        uuid.NewString(),
		Role:      chat.RoleUser,
		Content:   text,
		CreatedAt: time.Now(),
	})
	prior := a.history[:len(a.history)-1]
	priorHistory := make([]chat.Message, 0, len(prior))
	for _, m := range prior {
		priorHistory = append(priorHistory, chat.Message{Role: m.Role, Content: m.Content})
	}
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.runToken = ""
		a.status = StatusIdle
		a.mu.Unlock()
	}()

	a.logger.Info("run started", "run", token, "mode", cfg.Research.Mode)

	result, err := a.doResearch(ctx, cfg.Research, text)
	if err != nil {
		a.addNotice(NoticeError, "research failed: "+err.Error())
		return nil, err
	}

	a.setStatus(StatusThinking)
	msgs := chat.BuildPrompt(priorHistory, text, string(cfg.Research.Mode), result.Context)

	stageCtx, cancel := context.WithTimeout(ctx, a.stageTimeout)
	resp, err := a.completer.Complete(stageCtx, msgs, cfg.LLM)
	cancel()
	if err != nil {
		a.addNotice(NoticeError, "chat failed: "+err.Error())
		return nil, err
	}

	answer := Message{
		ID:      uuid.NewString(),
		Role:    chat.RoleAssistant,
		Content: resp.Content,
		Sources: result.Sources,
		Metadata: &Metadata{
			LLM: LLMMetadata{
				Config: cfg.LLM.WithDefaults(),
				Usage:  resp.Usage,
				Model:  resp.Model,
			},
			Research: ResearchMetadata{
				Method: string(cfg.Research.Mode),
				Raw:    result.Raw,
			},
			TTS: TTSMetadata{Voice: cfg.Voice},
		},
		CreatedAt: time.Now(),
	}

	a.mu.Lock()
	a.history = append(a.history, answer)
	a.mu.Unlock()

	a.setStatus(StatusSpeaking)
	if err := a.speak(ctx, resp.Content, cfg); err != nil {
		a.addNotice(NoticeWarning, "speech unavailable: "+err.Error())
		a.logger.Warn("speech skipped", "run", token, "error", err)
	}

	a.logger.Info("run completed", "run", token)
	return &answer, nil
}

// doResearch builds the request for the active strategy and runs it under
// the stage timeout.
func (a *Assistant) doResearch(ctx context.Context, rs ResearchSettings, text string) (*research.Result, error) {
	req := research.Request{
		Mode:         rs.Mode,
		SearchDepth:  rs.SearchDepth,
		ExtractDepth: rs.ExtractDepth,
		Options:      rs.Options,
	}
	switch rs.Mode {
	case research.ModeSearch:
		req.Query = text
	case research.ModeExtract:
		req.URLs = research.SplitURLs(rs.URLs)
	case research.ModeCrawl:
		req.URL = strings.TrimSpace(rs.URL)
	}

	stageCtx, cancel := context.WithTimeout(ctx, a.stageTimeout)
	defer cancel()
	return a.researcher.Research(stageCtx, req)
}

// speak voices the answer through the streaming path when enabled, falling
// back to batch synthesis. Errors here never undo the text answer.
func (a *Assistant) speak(ctx context.Context, text string, cfg Settings) error {
	if cfg.StreamSpeech && a.streamer != nil {
		return a.speakStream(ctx, text, cfg.Voice)
	}
	if a.synthesizer == nil {
		return nil
	}

	stageCtx, cancel := context.WithTimeout(ctx, a.stageTimeout)
	defer cancel()

	audio, err := a.synthesizer.Synthesize(stageCtx, text, cfg.Voice)
	if err != nil {
		return err
	}
	if a.player == nil {
		return nil
	}
	return a.player.Play(stageCtx, audio)
}

// speakStream opens one streaming session and plays chunks in arrival
// order. A second stream is never opened; the session is awaited to its
// terminal state or aborted on timeout.
func (a *Assistant) speakStream(ctx context.Context, text, voice string) error {
	stageCtx, cancel := context.WithTimeout(ctx, a.stageTimeout)
	defer cancel()

	errCh := make(chan error, 1)
	stream, err := a.streamer.OpenStream(stageCtx, text, voice, tts.StreamCallbacks{
		OnChunk: func(audio []byte) {
			if a.player == nil {
				return
			}
			if err := a.player.Play(stageCtx, audio); err != nil {
				a.logger.Warn("playback failed", "error", err)
			}
		},
		OnError: func(err error) {
			errCh <- err
		},
	})
	if err != nil {
		return err
	}

	select {
	case <-stream.Done():
		select {
		case err := <-errCh:
			return err
		default:
			return nil
		}
	case err := <-errCh:
		return err
	case <-stageCtx.Done():
		stream.Close()
		return stageCtx.Err()
	}
}

func (a *Assistant) setStatus(s Status) {
	a.mu.Lock()
	a.status = s
	a.mu.Unlock()
}

func (a *Assistant) addNotice(level NoticeLevel, text string) {
	a.mu.Lock()
	a.notices = append(a.notices, Notice{Level: level, Text: text})
	a.mu.Unlock()
}
