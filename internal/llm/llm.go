// Package llm wraps the hosted text-generation services the pipeline stages call.
package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// Providers.
const (
	ProviderGroq    = "groq"
	ProviderGemini  = "gemini"
	ProviderOffline = "offline"
)

// DefaultTimeout bounds a single generation call when no timeout is configured.
const DefaultTimeout = 2 * time.Minute

// Request is one prompt sent to a generator.
type Request struct {
	Prompt      string
	Temperature float64
	// Model overrides the generator's default model when set.
	Model string
}

// Generator produces free text for a prompt. An error means the service
// could not be reached or refused the call; an unhelpful reply is not an error.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Offline returns an empty reply for every prompt, which drives every stage
// onto its fallback path. It needs no credentials.
type Offline struct{}

// Generate implements Generator.
func (Offline) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "", nil
}

// Options selects and configures a provider.
type Options struct {
	Provider string
	Model    string
	BaseURL  string
	// APIKey is used as-is; when empty the key is read from APIKeyEnv.
	APIKey    string
	APIKeyEnv string
	Timeout   time.Duration
}

type providerDefaults struct {
	baseURL string
	model   string
	keyEnv  string
}

var defaults = map[string]providerDefaults{
	ProviderGroq:   {baseURL: "https://api.groq.com/openai/v1", model: "llama-3.3-70b-versatile", keyEnv: "GROQ_API_KEY"},
	ProviderGemini: {baseURL: "https://generativelanguage.googleapis.com/v1beta/openai/", model: "gemini-2.0-flash", keyEnv: "GOOGLE_API_KEY"},
}

// Providers lists the accepted provider names.
func Providers() []string {
	return []string{ProviderGroq, ProviderGemini, ProviderOffline}
}

// DefaultModel returns the model used for provider when none is configured.
func DefaultModel(provider string) string {
	return defaults[provider].model
}

// DefaultKeyEnv returns the environment variable holding provider's API key.
func DefaultKeyEnv(provider string) string {
	return defaults[provider].keyEnv
}

// New builds the Generator for opts.Provider.
func New(opts Options) (Generator, error) {
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	if provider == ProviderOffline {
		return Offline{}, nil
	}
	d, ok := defaults[provider]
	if !ok {
		return nil, fmt.Errorf("unknown llm provider %q (want one of %s)", opts.Provider, strings.Join(Providers(), ", "))
	}

	key := opts.APIKey
	keyEnv := opts.APIKeyEnv
	if keyEnv == "" {
		keyEnv = d.keyEnv
	}
	if key == "" {
		key = os.Getenv(keyEnv)
	}
	if key == "" {
		return nil, fmt.Errorf("%s not set: export it or choose provider %q", keyEnv, ProviderOffline)
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = d.baseURL
	}
	model := opts.Model
	if model == "" {
		model = d.model
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return NewChatClient(baseURL, key, model, timeout), nil
}
