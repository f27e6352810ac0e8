// sage-cli: terminal front end for the research assistant. Runs the full
// pipeline locally: mic capture, transcription, research, completion, and
// spoken playback.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/sagelab/go-sage/internal/config"
	"github.com/sagelab/go-sage/internal/log"
	"github.com/sagelab/go-sage/pkg/assistant"
	"github.com/sagelab/go-sage/pkg/capture"
	"github.com/sagelab/go-sage/pkg/chat"
	"github.com/sagelab/go-sage/pkg/playback"
	"github.com/sagelab/go-sage/pkg/research"
	"github.com/sagelab/go-sage/pkg/stt"
	"github.com/sagelab/go-sage/pkg/tts"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.LogLevel)
	logger := log.L()

	source := capture.NewCommandSource(capture.DefaultConfig(), logger)
	player := playback.NewCommandPlayer(playback.WithLogger(logger))
	speech := tts.NewClient(tts.WithBaseURL(cfg.TTSBaseURL), tts.WithLogger(logger))
	streamer := tts.NewStreamer(tts.WithStreamURL(cfg.TTSStreamURL), tts.WithStreamLogger(logger))

	a := assistant.New(
		assistant.WithRecorder(capture.NewRecorder(source, logger)),
		assistant.WithTranscriber(stt.NewClient(cfg.DeepgramAPIKey, stt.WithLogger(logger))),
		assistant.WithResearcher(research.NewClient(cfg.TavilyAPIKey, research.WithLogger(logger))),
		assistant.WithCompleter(chat.NewClient(cfg.GroqAPIKey, chat.WithLogger(logger))),
		assistant.WithSynthesizer(speech),
		assistant.WithStreamer(assistant.TTSStreamer{Streamer: streamer}),
		assistant.WithPlayer(player),
		assistant.WithStageTimeout(cfg.StageTimeout),
		assistant.WithLogger(logger),
	)

	if !player.Available() {
		fmt.Println("note: no audio player found, answers will be text only")
	}

	fmt.Println("sage — type a question, /mic to toggle recording, /help for commands")
	scanner := bufio.NewScanner(os.Stdin)
	ctx := context.Background()

	for {
		fmt.Printf("[%s] > ", a.Status())
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := command(ctx, a, speech, line); quit {
				return
			}
			continue
		}

		a.SetInput(line)
		answer(ctx, a)
	}
}

func command(ctx context.Context, a *assistant.Assistant, speech *tts.Client, line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	switch cmd {
	case "/quit", "/exit":
		return true

	case "/help":
		fmt.Println("  /mic              toggle recording; second toggle transcribes")
		fmt.Println("  /send             run the pipeline over the transcript")
		fmt.Println("  /mode <m> [arg]   search | extract <urls> | crawl <url>")
		fmt.Println("  /voice <name>     pick a voice")
		fmt.Println("  /voices           list voices")
		fmt.Println("  /stream on|off    streamed vs batch speech")

	case "/mic":
		text, err := a.ToggleMic(ctx)
		if err != nil {
			fmt.Printf("mic: %v\n", err)
		} else if text != "" {
			fmt.Printf("heard: %s\n", text)
		}

	case "/send":
		answer(ctx, a)

	case "/mode":
		mode, rest, _ := strings.Cut(arg, " ")
		s := a.Settings()
		switch research.Mode(mode) {
		case research.ModeSearch:
			s.Research = assistant.ResearchSettings{Mode: research.ModeSearch}
		case research.ModeExtract:
			s.Research = assistant.ResearchSettings{Mode: research.ModeExtract, URLs: rest}
		case research.ModeCrawl:
			s.Research = assistant.ResearchSettings{Mode: research.ModeCrawl, URL: rest}
		default:
			fmt.Println("mode: search, extract <urls>, or crawl <url>")
			return false
		}
		if err := a.UpdateSettings(s); err != nil {
			fmt.Printf("settings: %v\n", err)
		}

	case "/voice":
		s := a.Settings()
		s.Voice = arg
		if err := a.UpdateSettings(s); err != nil {
			fmt.Printf("settings: %v\n", err)
		}

	case "/voices":
		fmt.Println(strings.Join(speech.Voices(ctx), ", "))

	case "/stream":
		s := a.Settings()
		s.StreamSpeech = arg == "on"
		if err := a.UpdateSettings(s); err != nil {
			fmt.Printf("settings: %v\n", err)
		}

	default:
		fmt.Println("unknown command, try /help")
	}
	return false
}

func answer(ctx context.Context, a *assistant.Assistant) {
	before := len(a.Notices())

	msg, err := a.Send(ctx)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	fmt.Println(msg.Content)
	for _, src := range msg.Sources {
		fmt.Printf("  - %s (%s)\n", src.Title, src.URL)
	}
	for _, n := range a.Notices()[before:] {
		fmt.Printf("%s: %s\n", n.Level, n.Text)
	}
}
