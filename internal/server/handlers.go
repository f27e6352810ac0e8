package server

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/sagelab/go-sage/pkg/chat"
	"github.com/sagelab/go-sage/pkg/research"
	"github.com/sagelab/go-sage/pkg/stt"
)

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": Version,
	})
}

// handleSTT accepts a multipart "audio" field and returns its transcript.
func (s *Server) handleSTT(c *fiber.Ctx) error {
	fh, err := c.FormFile("audio")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "multipart field 'audio' is required",
		})
	}

	f, err := fh.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "cannot read uploaded audio",
		})
	}
	defer f.Close()

	audio, err := io.ReadAll(f)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "cannot read uploaded audio",
		})
	}

	text, err := s.transcriber.Transcribe(c.UserContext(), audio)
	if err != nil {
		s.logger.Error("transcription failed", "error", err)
		return c.Status(sttStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"text": text})
}

func sttStatus(err error) int {
	if errors.Is(err, stt.ErrNoAPIKey) {
		return fiber.StatusServiceUnavailable
	}
	if errors.Is(err, stt.ErrEmptyAudio) {
		return fiber.StatusBadRequest
	}
	var apiErr *stt.APIError
	if errors.As(err, &apiErr) {
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

// researchBody is the UI's research request shape.
type researchBody struct {
	Query   string         `json:"query"`
	Type    string         `json:"type"`
	Options map[string]any `json:"options"`
}

// handleResearch runs one retrieval call and passes the remote response
// through untouched.
func (s *Server) handleResearch(c *fiber.Ctx) error {
	var body researchBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	req := buildResearchRequest(body)
	result, err := s.researcher.Research(c.UserContext(), req)
	if err != nil {
		s.logger.Error("research failed", "mode", req.Mode, "error", err)

		var apiErr *research.APIError
		if errors.As(err, &apiErr) {
			return c.Status(apiErr.StatusCode).JSON(fiber.Map{
				"error":   apiErr.Message,
				"details": apiErr.Details,
			})
		}
		if errors.Is(err, research.ErrNoAPIKey) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(result.Raw)
}

// buildResearchRequest maps the UI body onto a Request. Known option keys
// become typed fields; the rest ride along in Options.
func buildResearchRequest(body researchBody) research.Request {
	req := research.Request{
		Mode:  research.Mode(body.Type),
		Query: body.Query,
	}

	opts := make(map[string]any, len(body.Options))
	for k, v := range body.Options {
		switch k {
		case "search_depth":
			if d, ok := v.(string); ok {
				req.SearchDepth = d
				continue
			}
		case "urls":
			if u, ok := v.(string); ok {
				req.URLs = research.SplitURLs(u)
				continue
			}
		case "url":
			if u, ok := v.(string); ok {
				req.URL = u
				continue
			}
		case "extract_depth":
			if d, ok := v.(string); ok {
				req.ExtractDepth = d
				continue
			}
		}
		opts[k] = v
	}
	if len(opts) > 0 {
		req.Options = opts
	}
	return req
}

// chatBody is the UI's completion request shape.
type chatBody struct {
	Messages []chat.Message `json:"messages"`
	Config   chat.Config    `json:"config"`
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	var body chatBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err := body.Config.WithDefaults().Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	resp, err := s.completer.Complete(c.UserContext(), body.Messages, body.Config)
	if err != nil {
		s.logger.Error("chat failed", "error", err)
		if errors.Is(err, chat.ErrNoAPIKey) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"content": resp.Content,
		"usage":   resp.Usage,
		"model":   resp.Model,
	})
}

func (s *Server) handleVoices(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"voices": s.speech.Voices(c.UserContext()),
	})
}

func (s *Server) handleUploadVoice(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "multipart field 'file' is required",
		})
	}

	name := c.FormValue("name")
	if name == "" {
		name = fh.Filename
	}

	f, err := fh.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "cannot read uploaded sample",
		})
	}
	defer f.Close()

	voice, err := s.speech.UploadVoice(c.UserContext(), name, f)
	if err != nil {
		s.logger.Error("voice upload failed", "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"voice": voice})
}
