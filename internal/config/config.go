// Package config holds the proofreader configuration file schema.
package config

import (
	"time"

	"github.com/aretw0/proofreader/internal/runtime"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Model clients.
const (
	ClientAnyLLM = "anyllm"
	ClientOpenAI = "openai"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config is the root of proofreader.yaml.
type Config struct {
	Provider     ProviderConfig     `yaml:"provider"`
	Store        StoreConfig        `yaml:"store"`
	Encryption   EncryptionConfig   `yaml:"encryption"`
	Conversation ConversationConfig `yaml:"conversation"`
	Server       ServerConfig       `yaml:"server"`
	Log          LogConfig          `yaml:"log"`
}

// ProviderConfig selects the model service.
type ProviderConfig struct {
	// Client is "anyllm" (default, multi-provider) or "openai" (openai-go,
	// also for OpenAI-compatible servers via BaseURL).
	Client string `yaml:"client"`
	// Name is the any-llm provider: gemini, openai, anthropic, ollama, ...
	Name    string `yaml:"name"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`

	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`

	// Options holds client-specific settings, decoded into ProviderOptions.
	Options map[string]any `yaml:"options"`
}

// ProviderOptions are the typed form of ProviderConfig.Options.
type ProviderOptions struct {
	Organization string `mapstructure:"organization"`
	MaxRetries   *int   `mapstructure:"max_retries"`
}

// StoreConfig selects where sessions are persisted.
type StoreConfig struct {
	Type     string        `yaml:"type"`
	Path     string        `yaml:"path"`
	RedisURL string        `yaml:"redis_url"`
	TTL      time.Duration `yaml:"ttl"`
	Prefix   string        `yaml:"prefix"`
	// Lock enables the Redis distributed lock so several servers can share a store.
	Lock bool `yaml:"lock"`
}

// EncryptionConfig enables at-rest encryption. Keys are 32 bytes, hex or base64.
type EncryptionConfig struct {
	Key          string   `yaml:"key"`
	FallbackKeys []string `yaml:"fallback_keys"`
}

// ConversationConfig tunes the state machine texts.
type ConversationConfig struct {
	Affirmatives []string        `yaml:"affirmatives"`
	Prompts      runtime.Prompts `yaml:"prompts"`
}

// ServerConfig configures `proofreader serve`.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{Client: ClientAnyLLM},
		Store:    StoreConfig{Type: StoreMemory},
		Server:   ServerConfig{Addr: ":8080"},
		Log:      LogConfig{Level: "info", Format: LogFormatText},
	}
}
