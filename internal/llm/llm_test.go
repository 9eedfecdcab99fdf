package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func chatServer(t *testing.T, status int, reply string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("path = %q, want .../chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if seen != nil {
			json.NewDecoder(r.Body).Decode(seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"choices": []map[string]any{
				{"index": 0, "message": map[string]string{"role": "assistant", "content": reply}, "finish_reason": "stop"},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestChatClient_Generate(t *testing.T) {
	var seen map[string]any
	srv := chatServer(t, http.StatusOK, `{"objective":"hire"}`, &seen)

	c := NewChatClient(srv.URL, "test-key", "llama-test", time.Second)
	got, err := c.Generate(context.Background(), Request{Prompt: "interpret this", Temperature: 0.5})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != `{"objective":"hire"}` {
		t.Errorf("reply = %q", got)
	}
	if seen["model"] != "llama-test" {
		t.Errorf("model = %v, want llama-test", seen["model"])
	}
	if temp, _ := seen["temperature"].(float64); temp != 0.5 {
		t.Errorf("temperature = %v, want 0.5", seen["temperature"])
	}
}

func TestChatClient_ModelOverride(t *testing.T) {
	var seen map[string]any
	srv := chatServer(t, http.StatusOK, "ok", &seen)

	c := NewChatClient(srv.URL, "test-key", "default-model", time.Second)
	if _, err := c.Generate(context.Background(), Request{Prompt: "p", Model: "other-model"}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if seen["model"] != "other-model" {
		t.Errorf("model = %v, want other-model", seen["model"])
	}
}

func TestChatClient_APIError(t *testing.T) {
	srv := chatServer(t, http.StatusTooManyRequests, "", nil)

	c := NewChatClient(srv.URL, "test-key", "m", time.Second)
	_, err := c.Generate(context.Background(), Request{Prompt: "p"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error should carry status, got: %v", err)
	}
}

func TestOffline(t *testing.T) {
	got, err := Offline{}.Generate(context.Background(), Request{Prompt: "anything"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "" {
		t.Errorf("reply = %q, want empty", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (Offline{}).Generate(ctx, Request{}); err == nil {
		t.Error("expected cancelled context to fail")
	}
}

func TestNew(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "g-key")

	if g, err := New(Options{Provider: "offline"}); err != nil {
		t.Errorf("offline: %v", err)
	} else if _, ok := g.(Offline); !ok {
		t.Errorf("offline generator = %T", g)
	}

	if _, err := New(Options{Provider: "groq"}); err == nil {
		t.Error("expected error without GROQ_API_KEY")
	} else if !strings.Contains(err.Error(), "GROQ_API_KEY") {
		t.Errorf("error should name the variable, got: %v", err)
	}

	g, err := New(Options{Provider: "Gemini"})
	if err != nil {
		t.Fatalf("gemini: %v", err)
	}
	cc, ok := g.(*ChatClient)
	if !ok {
		t.Fatalf("gemini generator = %T", g)
	}
	if cc.Model() != "gemini-2.0-flash" {
		t.Errorf("model = %q", cc.Model())
	}

	if _, err := New(Options{Provider: "claude"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestGeneratorFunc(t *testing.T) {
	var g Generator = GeneratorFunc(func(ctx context.Context, req Request) (string, error) {
		return "echo: " + req.Prompt, nil
	})
	got, _ := g.Generate(context.Background(), Request{Prompt: "hi"})
	if got != "echo: hi" {
		t.Errorf("reply = %q", got)
	}
}
