package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestComplete(t *testing.T) {
	t.Run("missing API key fails fast", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
		}))
		defer srv.Close()

		c := NewClient("", WithBaseURL(srv.URL))
		_, err := c.Complete(context.Background(), nil, DefaultConfig())
		if !errors.Is(err, ErrNoAPIKey) {
			t.Errorf("expected ErrNoAPIKey, got %v", err)
		}
		if calls != 0 {
			t.Errorf("expected no network calls, got %d", calls)
		}
	})

	t.Run("single non-streaming completion", func(t *testing.T) {
		var reqBody map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/chat/completions" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			_ = json.NewDecoder(r.Body).Decode(&reqBody)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"model": "llama-3.3-70b-versatile",
				"choices": [{"message": {"role": "assistant", "content": "Paris is the capital of France."}}],
				"usage": {"prompt_tokens": 40, "completion_tokens": 8, "total_tokens": 48}
			}`))
		}))
		defer srv.Close()

		c := NewClient("test-key", WithBaseURL(srv.URL))
		msgs := BuildPrompt(nil, "What is the capital of France?", "search", "[Paris](https://w.example): capital")

		resp, err := c.Complete(context.Background(), msgs, DefaultConfig())
		if err != nil {
			t.Fatalf("complete failed: %v", err)
		}

		if resp.Content != "Paris is the capital of France." {
			t.Errorf("unexpected content: %q", resp.Content)
		}
		if resp.Model != "llama-3.3-70b-versatile" {
			t.Errorf("unexpected model: %q", resp.Model)
		}
		if resp.Usage.TotalTokens != 48 {
			t.Errorf("unexpected usage: %+v", resp.Usage)
		}

		if stream, ok := reqBody["stream"].(bool); ok && stream {
			t.Error("request must not ask for a streamed completion")
		}
		if reqBody["model"] != "llama-3.3-70b-versatile" {
			t.Errorf("unexpected model in request: %v", reqBody["model"])
		}
	})

	t.Run("explicit zero temperature reaches the wire", func(t *testing.T) {
		var reqBody map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&reqBody)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
		}))
		defer srv.Close()

		cfg := DefaultConfig()
		cfg.Temperature = 0
		cfg.TopP = 0

		c := NewClient("test-key", WithBaseURL(srv.URL))
		if _, err := c.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, cfg); err != nil {
			t.Fatalf("complete failed: %v", err)
		}

		temp, ok := reqBody["temperature"].(float64)
		if !ok {
			t.Fatal("temperature dropped from the request")
		}
		if temp > 1e-30 {
			t.Errorf("expected near-zero temperature, got %v", temp)
		}
		topP, ok := reqBody["top_p"].(float64)
		if !ok {
			t.Fatal("top_p dropped from the request")
		}
		if topP > 1e-30 {
			t.Errorf("expected near-zero top_p, got %v", topP)
		}
	})

	t.Run("invalid config is rejected before the call", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
		}))
		defer srv.Close()

		cfg := DefaultConfig()
		cfg.Temperature = 5

		c := NewClient("test-key", WithBaseURL(srv.URL))
		if _, err := c.Complete(context.Background(), nil, cfg); err == nil {
			t.Error("expected validation error")
		}
		if calls != 0 {
			t.Errorf("expected no network calls, got %d", calls)
		}
	})

	t.Run("remote error surfaces", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":{"message":"model overloaded"}}`))
		}))
		defer srv.Close()

		c := NewClient("test-key", WithBaseURL(srv.URL))
		_, err := c.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, DefaultConfig())
		if err == nil {
			t.Fatal("expected error")
		}
	})
}
