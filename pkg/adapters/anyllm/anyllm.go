// Package anyllm provides a Generator backed by github.com/mozilla-ai/any-llm-go,
// a unified interface over OpenAI, Anthropic, Gemini, Ollama, DeepSeek, Mistral,
// Groq and local llama.cpp servers.
package anyllm

import (
	"context"
	"fmt"
	"strings"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/llamafile"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"
)

// DefaultProvider is used when Config.Provider is empty.
const DefaultProvider = "gemini"

// DefaultModels maps providers to the model used when Config.Model is empty.
var DefaultModels = map[string]string{
	"gemini":    "gemini-2.5-flash-lite",
	"openai":    "gpt-4o-mini",
	"anthropic": "claude-3-5-haiku-latest",
	"ollama":    "llama3.2",
	"deepseek":  "deepseek-chat",
	"mistral":   "mistral-small-latest",
	"groq":      "llama-3.1-8b-instant",
}

// Config selects and tunes the backing provider.
type Config struct {
	// Provider is one of: gemini, openai, anthropic, ollama, deepseek,
	// mistral, groq, llamacpp, llamafile.
	Provider string
	Model    string

	// APIKey falls back to the provider's environment variable
	// (GEMINI_API_KEY, OPENAI_API_KEY, ...) when empty.
	APIKey  string
	BaseURL string

	Temperature float64
	MaxTokens   int

	// Timeout bounds one Generate call. Zero means no extra limit.
	Timeout time.Duration
}

// Generator implements ports.Generator as a single-message chat completion.
type Generator struct {
	backend anyllmlib.Provider
	cfg     Config
}

// New creates a Generator for cfg.
func New(cfg Config) (*Generator, error) {
	cfg, err := normalize(cfg)
	if err != nil {
		return nil, err
	}

	var opts []anyllmlib.Option
	if cfg.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(cfg.BaseURL))
	}

	backend, err := createBackend(cfg.Provider, opts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %q backend: %w", cfg.Provider, err)
	}
	return &Generator{backend: backend, cfg: cfg}, nil
}

func normalize(cfg Config) (Config, error) {
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if cfg.Provider == "" {
		cfg.Provider = DefaultProvider
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModels[cfg.Provider]
	}
	if cfg.Model == "" {
		return cfg, fmt.Errorf("anyllm: model must be set for provider %q", cfg.Provider)
	}
	if cfg.Temperature < 0 {
		return cfg, fmt.Errorf("anyllm: temperature must not be negative")
	}
	return cfg, nil
}

// createBackend creates the underlying any-llm-go provider for the given provider name.
func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch providerName {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "deepseek":
		return deepseek.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	case "llamacpp":
		return llamacpp.New(opts...)
	case "llamafile":
		return llamafile.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: gemini, openai, anthropic, ollama, deepseek, mistral, groq, llamacpp, llamafile", providerName)
	}
}

// Model reports the model requests are sent to.
func (g *Generator) Model() string {
	return g.cfg.Model
}

// Provider reports the backing provider name.
func (g *Generator) Provider() string {
	return g.cfg.Provider
}

// Generate implements ports.Generator.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	resp, err := g.backend.Completion(ctx, g.buildParams(prompt))
	if err != nil {
		return "", fmt.Errorf("anyllm: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("anyllm: empty choices in response")
	}
	return resp.Choices[0].Message.ContentString(), nil
}

// buildParams wraps prompt as the only user message.
func (g *Generator) buildParams(prompt string) anyllmlib.CompletionParams {
	params := anyllmlib.CompletionParams{
		Model: g.cfg.Model,
		Messages: []anyllmlib.Message{{
			Role:    anyllmlib.RoleUser,
			Content: prompt,
		}},
	}

	if g.cfg.Temperature != 0 {
		t := g.cfg.Temperature
		params.Temperature = &t
	}
	if g.cfg.MaxTokens > 0 {
		mt := g.cfg.MaxTokens
		params.MaxTokens = &mt
	}
	return params
}
