// Package agent runs one prompt-and-parse step against a text generator and
// decides between the parsed reply and a deterministic fallback.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lucasnoah/hirefactory/internal/llm"
	"github.com/lucasnoah/hirefactory/internal/prompt"
)

// Status tags how a step's value was produced.
type Status int

const (
	// Parsed means the value came from the model's reply.
	Parsed Status = iota
	// Unparseable means the reply could not be used and the fallback was substituted.
	Unparseable
)

func (s Status) String() string {
	switch s {
	case Parsed:
		return "parsed"
	case Unparseable:
		return "unparseable"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Outcome is the result of one Perform call.
type Outcome[T any] struct {
	Value  T
	Status Status
	Prompt string
	Raw    string
	// Reason explains why the reply was rejected. Empty when Parsed.
	Reason string
}

// Fallback reports whether the value was synthesized.
func (o Outcome[T]) Fallback() bool {
	return o.Status == Unparseable
}

// Step is one prompt-and-parse unit. Stages are configurations of Step,
// differing only in template, temperature and parse function.
type Step[T any] struct {
	Name        string
	Template    string
	Temperature float64
	Model       string
	// Extract pulls the payload out of the reply. Nil means ExtractJSON.
	Extract func(reply string) string
	Parse   func(payload string) (T, error)
}

// Perform renders the template with vars, calls gen exactly once and parses
// the reply. A reply that fails to parse yields fallback() tagged Unparseable.
// Only template and generator failures are returned as errors.
func (s Step[T]) Perform(ctx context.Context, gen llm.Generator, vars prompt.Vars, fallback func() T) (Outcome[T], error) {
	var out Outcome[T]

	text, err := prompt.Render(s.Template, vars)
	if err != nil {
		return out, fmt.Errorf("render %s prompt: %w", s.Name, err)
	}
	out.Prompt = text

	raw, err := gen.Generate(ctx, llm.Request{Prompt: text, Temperature: s.Temperature, Model: s.Model})
	if err != nil {
		return out, fmt.Errorf("%s generation: %w", s.Name, err)
	}
	out.Raw = raw

	value, perr := s.parse(raw)
	if perr == nil {
		out.Status = Parsed
	} else {
		out.Status = Unparseable
		out.Reason = perr.Error()
	}

	switch out.Status {
	case Parsed:
		out.Value = value
	case Unparseable:
		out.Value = fallback()
	}
	return out, nil
}

func (s Step[T]) parse(raw string) (T, error) {
	var zero T
	if s.Parse == nil {
		return zero, errors.New("no parser configured")
	}
	extract := s.Extract
	if extract == nil {
		extract = ExtractJSON
	}
	payload := extract(raw)
	if payload == "" {
		return zero, errors.New("empty reply")
	}
	return s.Parse(payload)
}

// ExtractJSON returns the body of the first ```json fence in reply, else the
// body of the first bare ``` fence, else the whole reply, trimmed.
func ExtractJSON(reply string) string {
	if _, after, ok := strings.Cut(reply, "```json"); ok {
		body, _, _ := strings.Cut(after, "```")
		return strings.TrimSpace(body)
	}
	if _, after, ok := strings.Cut(reply, "```"); ok {
		body, _, _ := strings.Cut(after, "```")
		return strings.TrimSpace(body)
	}
	return strings.TrimSpace(reply)
}

// DecodeJSON unmarshals payload into a fresh T.
func DecodeJSON[T any](payload string) (T, error) {
	var v T
	if err := json.Unmarshal([]byte(payload), &v); err != nil {
		return v, fmt.Errorf("decode reply: %w", err)
	}
	return v, nil
}
