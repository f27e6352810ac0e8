// sage: voice research assistant server. Wires the speech-to-text,
// research, chat, and synthesis clients behind the HTTP surface the UI
// talks to.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/sagelab/go-sage/internal/config"
	"github.com/sagelab/go-sage/internal/log"
	"github.com/sagelab/go-sage/internal/server"
	"github.com/sagelab/go-sage/pkg/assistant"
	"github.com/sagelab/go-sage/pkg/chat"
	"github.com/sagelab/go-sage/pkg/research"
	"github.com/sagelab/go-sage/pkg/stt"
	"github.com/sagelab/go-sage/pkg/tts"
)

var (
	envFile = flag.String("env", ".env", "Environment file to load")
	debug   = flag.Bool("debug", false, "Enable per-request logging")
)

func main() {
	flag.Parse()

	// A missing .env is fine; real environments set variables directly.
	_ = godotenv.Load(*envFile)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.LogLevel)
	logger := log.L()

	speech := tts.NewClient(tts.WithBaseURL(cfg.TTSBaseURL), tts.WithLogger(logger))
	streamer := tts.NewStreamer(tts.WithStreamURL(cfg.TTSStreamURL), tts.WithStreamLogger(logger))

	srv := server.New(
		server.WithTranscriber(stt.NewClient(cfg.DeepgramAPIKey, stt.WithLogger(logger))),
		server.WithResearcher(research.NewClient(cfg.TavilyAPIKey, research.WithLogger(logger))),
		server.WithCompleter(chat.NewClient(cfg.GroqAPIKey, chat.WithLogger(logger))),
		server.WithSpeech(speech),
		server.WithStreamer(assistant.TTSStreamer{Streamer: streamer}),
		server.WithStaticDir(cfg.StaticDir),
		server.WithDebug(*debug),
		server.WithLogger(logger),
	)

	go func() {
		if err := srv.Listen(cfg.Addr()); err != nil {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("sage ready",
		"addr", cfg.Addr(),
		"stt", cfg.DeepgramAPIKey != "",
		"research", cfg.TavilyAPIKey != "",
		"chat", cfg.GroqAPIKey != "",
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if err := srv.Shutdown(); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}
