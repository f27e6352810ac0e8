// Package server exposes the pipeline stages to the UI over HTTP and
// bridges browser speech streaming to the synthesis server.
package server

import (
	"context"
	"io"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/sagelab/go-sage/pkg/assistant"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// SpeechClient is the batch side of the TTS collaborator the server
// proxies for the UI.
type SpeechClient interface {
	Voices(ctx context.Context) []string
	UploadVoice(ctx context.Context, name string, sample io.Reader) (string, error)
}

// Server wires the stage clients behind the HTTP surface.
type Server struct {
	app    *fiber.App
	logger *slog.Logger

	transcriber assistant.Transcriber
	researcher  assistant.Researcher
	completer   assistant.Completer
	speech      SpeechClient
	streamer    assistant.StreamOpener
	staticDir   string
	debug       bool
}

// Option configures a Server.
type Option func(*Server)

// WithTranscriber sets the speech-to-text client.
func WithTranscriber(t assistant.Transcriber) Option {
	return func(s *Server) { s.transcriber = t }
}

// WithResearcher sets the research client.
func WithResearcher(r assistant.Researcher) Option {
	return func(s *Server) { s.researcher = r }
}

// WithCompleter sets the chat client.
func WithCompleter(c assistant.Completer) Option {
	return func(s *Server) { s.completer = c }
}

// WithSpeech sets the batch TTS client.
func WithSpeech(sp SpeechClient) Option {
	return func(s *Server) { s.speech = sp }
}

// WithStreamer sets the streaming TTS client for the WS bridge.
func WithStreamer(st assistant.StreamOpener) Option {
	return func(s *Server) { s.streamer = st }
}

// WithStaticDir serves the UI bundle from the given directory.
func WithStaticDir(dir string) Option {
	return func(s *Server) { s.staticDir = dir }
}

// WithDebug enables per-request logging.
func WithDebug(debug bool) Option {
	return func(s *Server) { s.debug = debug }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New builds the fiber app with all routes registered.
func New(opts ...Option) *Server {
	s := &Server{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "server")

	app := fiber.New(fiber.Config{
		AppName:               "sage",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New())
	if s.debug {
		app.Use(fiberlogger.New())
	}

	app.Get("/health", s.handleHealth)

	api := app.Group("/api")
	api.Post("/stt", s.handleSTT)
	api.Post("/research", s.handleResearch)
	api.Post("/chat", s.handleChat)
	api.Get("/voices", s.handleVoices)
	api.Post("/upload-voice", s.handleUploadVoice)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/speech", websocket.New(s.handleSpeechWS))

	if s.staticDir != "" {
		app.Static("/", s.staticDir)
	}

	s.app = app
	return s
}

// App exposes the underlying fiber app, used by tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts serving on the given address and blocks.
func (s *Server) Listen(addr string) error {
	s.logger.Info("listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
