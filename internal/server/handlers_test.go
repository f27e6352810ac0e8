package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sagelab/go-sage/pkg/assistant"
	"github.com/sagelab/go-sage/pkg/chat"
	"github.com/sagelab/go-sage/pkg/research"
	"github.com/sagelab/go-sage/pkg/stt"
)

type mockSpeech struct {
	voices     []string
	uploadName string
	uploadErr  error
}

func (m *mockSpeech) Voices(ctx context.Context) []string {
	return m.voices
}

func (m *mockSpeech) UploadVoice(ctx context.Context, name string, sample io.Reader) (string, error) {
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	m.uploadName = name
	return name, nil
}

func testServer(opts ...Option) *Server {
	base := []Option{
		WithTranscriber(&assistant.MockTranscriber{Text: "hello"}),
		WithResearcher(&assistant.MockResearcher{Result: &research.Result{
			Raw: json.RawMessage(`{"results":[{"title":"Paris"}]}`),
		}}),
		WithCompleter(&assistant.MockCompleter{Response: &chat.Response{
			Content: "Paris is the capital of France.",
			Usage:   chat.Usage{TotalTokens: 48},
			Model:   chat.DefaultModel,
		}}),
		WithSpeech(&mockSpeech{voices: []string{"alba", "marius"}}),
	}
	return New(append(base, opts...)...)
}

func decodeJSON(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestHealth(t *testing.T) {
	srv := testServer()
	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	body := decodeJSON(t, resp)
	if body["status"] != "ok" || body["version"] != Version {
		t.Errorf("unexpected body: %v", body)
	}
}

func audioRequest(t *testing.T, field string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, "recording.wav")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write(data)
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/stt", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestSTTHandler(t *testing.T) {
	t.Run("transcribes uploaded audio", func(t *testing.T) {
		transcriber := &assistant.MockTranscriber{Text: "What is the capital of France?"}
		srv := testServer(WithTranscriber(transcriber))

		resp, err := srv.App().Test(audioRequest(t, "audio", []byte("wav-bytes")))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("unexpected status: %d", resp.StatusCode)
		}
		body := decodeJSON(t, resp)
		if body["text"] != "What is the capital of France?" {
			t.Errorf("unexpected text: %v", body["text"])
		}
		if !bytes.Equal(transcriber.LastAudio, []byte("wav-bytes")) {
			t.Error("audio blob not forwarded")
		}
	})

	t.Run("missing audio field", func(t *testing.T) {
		srv := testServer()
		req := httptest.NewRequest(http.MethodPost, "/api/stt", strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")

		resp, err := srv.App().Test(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("unexpected status: %d", resp.StatusCode)
		}
	})

	t.Run("missing credential maps to 503", func(t *testing.T) {
		srv := testServer(WithTranscriber(&assistant.MockTranscriber{Err: stt.ErrNoAPIKey}))
		resp, err := srv.App().Test(audioRequest(t, "audio", []byte("wav")))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("unexpected status: %d", resp.StatusCode)
		}
	})
}

func TestResearchHandler(t *testing.T) {
	t.Run("passes remote response through", func(t *testing.T) {
		res := &assistant.MockResearcher{Result: &research.Result{
			Raw: json.RawMessage(`{"answer":"Paris","results":[]}`),
		}}
		srv := testServer(WithResearcher(res))

		req := httptest.NewRequest(http.MethodPost, "/api/research",
			strings.NewReader(`{"query":"capital of France","type":"search","options":{"search_depth":"basic"}}`))
		req.Header.Set("Content-Type", "application/json")

		resp, err := srv.App().Test(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("unexpected status: %d", resp.StatusCode)
		}

		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if string(raw) != `{"answer":"Paris","results":[]}` {
			t.Errorf("response not passed through: %s", raw)
		}

		if res.LastReq.Mode != research.ModeSearch || res.LastReq.Query != "capital of France" {
			t.Errorf("unexpected request: %+v", res.LastReq)
		}
		if res.LastReq.SearchDepth != "basic" {
			t.Errorf("search_depth option not lifted: %+v", res.LastReq)
		}
	})

	t.Run("extract urls lifted from options", func(t *testing.T) {
		res := &assistant.MockResearcher{Result: &research.Result{Raw: json.RawMessage(`{}`)}}
		srv := testServer(WithResearcher(res))

		req := httptest.NewRequest(http.MethodPost, "/api/research",
			strings.NewReader(`{"type":"extract","options":{"urls":"https://a.example, https://b.example"}}`))
		req.Header.Set("Content-Type", "application/json")

		if _, err := srv.App().Test(req); err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if len(res.LastReq.URLs) != 2 || res.LastReq.URLs[0] != "https://a.example" {
			t.Errorf("urls not split: %v", res.LastReq.URLs)
		}
	})

	t.Run("remote error carries status and details", func(t *testing.T) {
		res := &assistant.MockResearcher{Err: &research.APIError{
			StatusCode: http.StatusTooManyRequests,
			Message:    "rate limited",
			Details:    json.RawMessage(`{"retry_after":30}`),
		}}
		srv := testServer(WithResearcher(res))

		req := httptest.NewRequest(http.MethodPost, "/api/research",
			strings.NewReader(`{"query":"q","type":"search"}`))
		req.Header.Set("Content-Type", "application/json")

		resp, err := srv.App().Test(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			t.Errorf("unexpected status: %d", resp.StatusCode)
		}
		body := decodeJSON(t, resp)
		if body["error"] != "rate limited" {
			t.Errorf("unexpected error: %v", body["error"])
		}
		if body["details"] == nil {
			t.Error("details missing")
		}
	})
}

func TestChatHandler(t *testing.T) {
	t.Run("returns content, usage and model", func(t *testing.T) {
		srv := testServer()
		req := httptest.NewRequest(http.MethodPost, "/api/chat",
			strings.NewReader(`{"messages":[{"role":"user","content":"hi"}],"config":{}}`))
		req.Header.Set("Content-Type", "application/json")

		resp, err := srv.App().Test(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("unexpected status: %d", resp.StatusCode)
		}
		body := decodeJSON(t, resp)
		if body["content"] != "Paris is the capital of France." {
			t.Errorf("unexpected content: %v", body["content"])
		}
		if body["model"] != chat.DefaultModel {
			t.Errorf("unexpected model: %v", body["model"])
		}
	})

	t.Run("invalid config rejected", func(t *testing.T) {
		comp := &assistant.MockCompleter{}
		srv := testServer(WithCompleter(comp))

		req := httptest.NewRequest(http.MethodPost, "/api/chat",
			strings.NewReader(`{"messages":[],"config":{"temperature":9}}`))
		req.Header.Set("Content-Type", "application/json")

		resp, err := srv.App().Test(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("unexpected status: %d", resp.StatusCode)
		}
		if comp.Calls != 0 {
			t.Errorf("completer called %d times", comp.Calls)
		}
	})
}

func TestVoicesHandler(t *testing.T) {
	srv := testServer(WithSpeech(&mockSpeech{voices: []string{"alba", "cosette"}}))
	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/api/voices", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body := decodeJSON(t, resp)
	voices, ok := body["voices"].([]any)
	if !ok || len(voices) != 2 || voices[0] != "alba" {
		t.Errorf("unexpected voices: %v", body["voices"])
	}
}

func TestUploadVoiceHandler(t *testing.T) {
	speech := &mockSpeech{}
	srv := testServer(WithSpeech(speech))

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	w.WriteField("name", "gavroche")
	part, _ := w.CreateFormFile("file", "sample.wav")
	part.Write([]byte("wav-data"))
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload-voice", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	body := decodeJSON(t, resp)
	if body["voice"] != "gavroche" {
		t.Errorf("unexpected voice: %v", body["voice"])
	}
	if speech.uploadName != "gavroche" {
		t.Errorf("name not forwarded: %q", speech.uploadName)
	}
}
