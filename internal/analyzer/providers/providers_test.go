package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"google.golang.org/genai"

	"github.com/kirvlasenkov/subreddit-insights/internal/logging"
	"github.com/kirvlasenkov/subreddit-insights/internal/store"
)

func TestAnthropicProvider_PrefillsObject(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			http.NotFound(w, r)
			return
		}
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &body)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-test",
			"content": [{"type": "text", "text": "\"pains\": []}"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`)
	}))
	defer srv.Close()

	dir := t.TempDir()
	p := NewAnthropicProvider("key", "claude-test", store.NewExchangeLog(dir), logging.Discard(),
		option.WithBaseURL(srv.URL), option.WithMaxRetries(0))

	text, err := p.Complete(context.Background(), "analyze this")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if text != `{"pains": []}` {
		t.Errorf("expected prefilled object, got %q", text)
	}

	msgs, _ := body["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected user message and prefill, got %v", body["messages"])
	}
	if last, _ := msgs[1].(map[string]any); last["role"] != "assistant" {
		t.Errorf("expected assistant prefill, got %v", msgs[1])
	}

	files, _ := filepath.Glob(filepath.Join(dir, "*.json"))
	if len(files) != 1 {
		t.Errorf("expected one cached exchange, got %d", len(files))
	}
}

func TestAnthropicProvider_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)
	}))
	defer srv.Close()

	dir := t.TempDir()
	p := NewAnthropicProvider("bad", "claude-test", store.NewExchangeLog(dir), logging.Discard(),
		option.WithBaseURL(srv.URL), option.WithMaxRetries(0))

	if _, err := p.Complete(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error")
	}

	files, _ := filepath.Glob(filepath.Join(dir, "*.json"))
	if len(files) != 1 {
		t.Fatalf("failed calls should be cached too, got %d files", len(files))
	}
	data, _ := os.ReadFile(files[0])
	if !strings.Contains(string(data), `"error"`) {
		t.Errorf("expected error recorded in exchange: %s", data)
	}
}

func TestGeminiProvider_JSONMode(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			http.NotFound(w, r)
			return
		}
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &body)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates": [{"content": {"role": "model", "parts": [{"text": "{\"pains\": "}, {"text": "[]}"}]}}]}`)
	}))
	defer srv.Close()

	p, err := newGeminiProvider(context.Background(), &genai.ClientConfig{
		APIKey:      "key",
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: srv.URL + "/"},
	}, "gemini-test", nil, logging.Discard())
	if err != nil {
		t.Fatal(err)
	}

	text, err := p.Complete(context.Background(), "analyze this")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if text != `{"pains": []}` {
		t.Errorf("expected joined parts, got %q", text)
	}

	cfg, _ := body["generationConfig"].(map[string]any)
	if cfg["responseMimeType"] != "application/json" {
		t.Errorf("expected JSON response mode, got %v", body["generationConfig"])
	}
}
