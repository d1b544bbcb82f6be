package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/aretw0/proofreader/internal/logging"
	"github.com/aretw0/proofreader/pkg/persistence/middleware"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Environment overrides, applied after the file is read.
const (
	EnvAPIKey        = "PROOFREADER_API_KEY"
	EnvRedisURL      = "PROOFREADER_REDIS_URL"
	EnvEncryptionKey = "PROOFREADER_ENCRYPTION_KEY"
)

// Load reads the YAML configuration file at path, applies environment
// overrides and validates the result. An empty path yields Default().
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		ApplyEnv(cfg, os.LookupEnv)
		return cfg, Validate(cfg)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r on top of Default(),
// applies environment overrides and validates the result.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyEnv(cfg, os.LookupEnv)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides secrets and endpoints from the environment.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvAPIKey); ok && v != "" {
		cfg.Provider.APIKey = v
	}
	if v, ok := lookup(EnvRedisURL); ok && v != "" {
		cfg.Store.RedisURL = v
		if cfg.Store.Type == "" || cfg.Store.Type == StoreMemory {
			cfg.Store.Type = StoreRedis
		}
	}
	if v, ok := lookup(EnvEncryptionKey); ok && v != "" {
		cfg.Encryption.Key = v
	}
}

// ProviderOptions decodes the free-form provider options.
// Unknown keys are rejected.
func (p ProviderConfig) ProviderOptions() (ProviderOptions, error) {
	var opts ProviderOptions
	if len(p.Options) == 0 {
		return opts, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &opts,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return opts, err
	}
	if err := dec.Decode(p.Options); err != nil {
		return opts, fmt.Errorf("provider.options: %w", err)
	}
	return opts, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if c := cfg.Provider.Client; c != "" && c != ClientAnyLLM && c != ClientOpenAI {
		errs = append(errs, fmt.Errorf("provider.client %q is invalid; valid values: anyllm, openai", c))
	}
	if cfg.Provider.Temperature < 0 || cfg.Provider.Temperature > 2 {
		errs = append(errs, fmt.Errorf("provider.temperature %.2f is out of range [0, 2]", cfg.Provider.Temperature))
	}
	if cfg.Provider.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("provider.max_tokens must not be negative"))
	}
	if cfg.Provider.Timeout < 0 {
		errs = append(errs, fmt.Errorf("provider.timeout must not be negative"))
	}
	if _, err := cfg.Provider.ProviderOptions(); err != nil {
		errs = append(errs, err)
	}

	switch cfg.Store.Type {
	case "", StoreMemory, StoreFile:
	case StoreRedis:
		if cfg.Store.RedisURL == "" {
			errs = append(errs, fmt.Errorf("store.redis_url is required for the redis store (or set %s)", EnvRedisURL))
		}
	default:
		errs = append(errs, fmt.Errorf("store.type %q is invalid; valid values: memory, file, redis", cfg.Store.Type))
	}
	if cfg.Store.Lock && cfg.Store.Type != StoreRedis {
		errs = append(errs, fmt.Errorf("store.lock requires the redis store"))
	}
	if cfg.Store.TTL < 0 {
		errs = append(errs, fmt.Errorf("store.ttl must not be negative"))
	}

	if cfg.Encryption.Key != "" {
		if _, err := middleware.ParseKey(cfg.Encryption.Key); err != nil {
			errs = append(errs, fmt.Errorf("encryption.key: %w", err))
		}
	}
	if len(cfg.Encryption.FallbackKeys) > 0 && cfg.Encryption.Key == "" {
		errs = append(errs, fmt.Errorf("encryption.fallback_keys require encryption.key"))
	}
	for i, k := range cfg.Encryption.FallbackKeys {
		if _, err := middleware.ParseKey(k); err != nil {
			errs = append(errs, fmt.Errorf("encryption.fallback_keys[%d]: %w", i, err))
		}
	}

	if slices.Contains(cfg.Conversation.Affirmatives, "") {
		errs = append(errs, fmt.Errorf("conversation.affirmatives must not contain empty keywords"))
	}

	if cfg.Log.Level != "" {
		if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
			errs = append(errs, fmt.Errorf("log.level: %w", err))
		}
	}
	if f := cfg.Log.Format; f != "" && f != LogFormatText && f != LogFormatJSON {
		errs = append(errs, fmt.Errorf("log.format %q is invalid; valid values: text, json", f))
	}

	return errors.Join(errs...)
}
