package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/lucasnoah/hirefactory/internal/llm"
	"github.com/lucasnoah/hirefactory/internal/prompt"
)

type greeting struct {
	Name string `json:"name"`
}

func greetStep() Step[greeting] {
	return Step[greeting]{
		Name:        "greet",
		Template:    "Greet {{who}}",
		Temperature: 0.4,
		Parse: func(payload string) (greeting, error) {
			g, err := DecodeJSON[greeting](payload)
			if err != nil {
				return g, err
			}
			if g.Name == "" {
				return g, fmt.Errorf("missing name")
			}
			return g, nil
		},
	}
}

// scripted returns replies in order and records each request.
type scripted struct {
	replies []string
	err     error
	calls   []llm.Request
}

func (s *scripted) Generate(ctx context.Context, req llm.Request) (string, error) {
	s.calls = append(s.calls, req)
	if s.err != nil {
		return "", s.err
	}
	if len(s.replies) == 0 {
		return "", nil
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r, nil
}

func TestPerform_Parsed(t *testing.T) {
	gen := &scripted{replies: []string{"Sure!\n```json\n{\"name\": \"Raja\"}\n```\nDone."}}
	fallbackCalled := false

	out, err := greetStep().Perform(context.Background(), gen, prompt.Vars{"who": "Raja"}, func() greeting {
		fallbackCalled = true
		return greeting{Name: "fallback"}
	})
	if err != nil {
		t.Fatalf("Perform: %v", err)
	}
	if out.Status != Parsed {
		t.Errorf("Status = %v, want parsed (reason %q)", out.Status, out.Reason)
	}
	if out.Value.Name != "Raja" {
		t.Errorf("Name = %q, want Raja", out.Value.Name)
	}
	if fallbackCalled {
		t.Error("fallback should not run for a parsed reply")
	}
	if len(gen.calls) != 1 {
		t.Fatalf("generator calls = %d, want 1", len(gen.calls))
	}
	if gen.calls[0].Prompt != "Greet Raja" || gen.calls[0].Temperature != 0.4 {
		t.Errorf("request = %+v", gen.calls[0])
	}
	if out.Prompt != "Greet Raja" {
		t.Errorf("Prompt = %q", out.Prompt)
	}
}

func TestPerform_UnparseableUsesFallback(t *testing.T) {
	replies := []string{
		"I cannot help with that.",
		"",
		`{"name": ""}`,
		"```json\n{not json}\n```",
	}
	for _, reply := range replies {
		gen := &scripted{replies: []string{reply}}
		out, err := greetStep().Perform(context.Background(), gen, prompt.Vars{"who": "x"}, func() greeting {
			return greeting{Name: "fallback"}
		})
		if err != nil {
			t.Fatalf("Perform(%q): %v", reply, err)
		}
		if out.Status != Unparseable || !out.Fallback() {
			t.Errorf("Perform(%q) status = %v, want unparseable", reply, out.Status)
		}
		if out.Value.Name != "fallback" {
			t.Errorf("Perform(%q) value = %+v", reply, out.Value)
		}
		if out.Reason == "" {
			t.Errorf("Perform(%q) reason empty", reply)
		}
		if out.Raw != reply {
			t.Errorf("Raw = %q, want %q", out.Raw, reply)
		}
	}
}

func TestPerform_GeneratorErrorIsFault(t *testing.T) {
	gen := &scripted{err: errors.New("connection refused")}
	_, err := greetStep().Perform(context.Background(), gen, prompt.Vars{"who": "x"}, func() greeting {
		t.Error("fallback should not run on a generator fault")
		return greeting{}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "connection refused") || !strings.Contains(err.Error(), "greet") {
		t.Errorf("error = %v", err)
	}
}

func TestPerform_MissingVarIsFault(t *testing.T) {
	gen := &scripted{}
	if _, err := greetStep().Perform(context.Background(), gen, prompt.Vars{}, func() greeting { return greeting{} }); err == nil {
		t.Fatal("expected render error")
	}
	if len(gen.calls) != 0 {
		t.Error("generator should not be called when rendering fails")
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"  {\"a\":1}\n", `{"a":1}`},
		{"text\n```json\n{\"a\":1}\n```\nmore", `{"a":1}`},
		{"```\n{\"b\":2}\n```", `{"b":2}`},
		{"```json\n{\"a\":1}", `{"a":1}`},
		{"```\n[1]\n```\n```json\n{\"a\":1}\n```", `{"a":1}`},
	}
	for _, tt := range tests {
		if got := ExtractJSON(tt.in); got != tt.want {
			t.Errorf("ExtractJSON(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStatusString(t *testing.T) {
	if Parsed.String() != "parsed" || Unparseable.String() != "unparseable" {
		t.Errorf("String() = %q, %q", Parsed, Unparseable)
	}
}
