package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/proofreader"
	"github.com/aretw0/proofreader/internal/config"
	"github.com/aretw0/proofreader/pkg/adapters/anyllm"
	"github.com/aretw0/proofreader/pkg/adapters/file"
	"github.com/aretw0/proofreader/pkg/adapters/memory"
	"github.com/aretw0/proofreader/pkg/adapters/openai"
	"github.com/aretw0/proofreader/pkg/adapters/redis"
	"github.com/aretw0/proofreader/pkg/domain"
	"github.com/aretw0/proofreader/pkg/observability"
	"github.com/aretw0/proofreader/pkg/persistence/middleware"
	"github.com/aretw0/proofreader/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
)

// providerKeyEnv lists the variables each provider reads its API key from.
// Providers missing here (ollama, llamacpp, llamafile) need no key.
var providerKeyEnv = map[string]string{
	"gemini":    "GEMINI_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"deepseek":  "DEEPSEEK_API_KEY",
	"mistral":   "MISTRAL_API_KEY",
	"groq":      "GROQ_API_KEY",
}

// Backend bundles the persistence pieces built from config.
type Backend struct {
	Store  ports.SessionStore
	Locker ports.DistributedLocker
	close  func() error
}

// Close releases connections held by the backend.
func (b *Backend) Close() error {
	if b == nil || b.close == nil {
		return nil
	}
	return b.close()
}

// NeedsAPIKey reports whether the configured provider requires a key that
// is neither in the config nor in the environment.
func NeedsAPIKey(p config.ProviderConfig) bool {
	if p.APIKey != "" {
		return false
	}
	name := providerName(p)
	envVar, ok := providerKeyEnv[name]
	if !ok {
		return false
	}
	// OpenAI-compatible local servers usually accept any key.
	if p.BaseURL != "" && p.Client == config.ClientOpenAI {
		return false
	}
	return os.Getenv(envVar) == ""
}

func providerName(p config.ProviderConfig) string {
	if p.Client == config.ClientOpenAI {
		return "openai"
	}
	name := strings.ToLower(strings.TrimSpace(p.Name))
	if name == "" {
		return anyllm.DefaultProvider
	}
	return name
}

// NewGenerator builds the model client selected by p.
func NewGenerator(p config.ProviderConfig) (ports.Generator, error) {
	opts, err := p.ProviderOptions()
	if err != nil {
		return nil, err
	}

	switch p.Client {
	case config.ClientOpenAI:
		apiKey := p.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" && p.BaseURL != "" {
			apiKey = "unused"
		}
		var oaOpts []openai.Option
		if p.BaseURL != "" {
			oaOpts = append(oaOpts, openai.WithBaseURL(p.BaseURL))
		}
		if opts.Organization != "" {
			oaOpts = append(oaOpts, openai.WithOrganization(opts.Organization))
		}
		if opts.MaxRetries != nil {
			oaOpts = append(oaOpts, openai.WithMaxRetries(*opts.MaxRetries))
		}
		if p.Timeout > 0 {
			oaOpts = append(oaOpts, openai.WithTimeout(p.Timeout))
		}
		if p.Temperature > 0 {
			oaOpts = append(oaOpts, openai.WithTemperature(p.Temperature))
		}
		if p.MaxTokens > 0 {
			oaOpts = append(oaOpts, openai.WithMaxTokens(p.MaxTokens))
		}
		return openai.New(apiKey, p.Model, oaOpts...)

	case "", config.ClientAnyLLM:
		return anyllm.New(anyllm.Config{
			Provider:    p.Name,
			Model:       p.Model,
			APIKey:      p.APIKey,
			BaseURL:     p.BaseURL,
			Temperature: p.Temperature,
			MaxTokens:   p.MaxTokens,
			Timeout:     p.Timeout,
		})

	default:
		return nil, fmt.Errorf("unknown provider client %q", p.Client)
	}
}

// NewBackend builds the session store (plus optional encryption and lock).
func NewBackend(cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	b := &Backend{}

	switch cfg.Store.Type {
	case "", config.StoreMemory:
		b.Store = memory.NewStore()
	case config.StoreFile:
		b.Store = file.New(cfg.Store.Path)
	case config.StoreRedis:
		var opts []redis.Option
		if cfg.Store.TTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.Store.TTL))
		}
		if cfg.Store.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Store.Prefix))
		}
		store, err := redis.NewFromURL(cfg.Store.RedisURL, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		b.Store = store
		b.close = store.Close
		if cfg.Store.Lock {
			prefix := cfg.Store.Prefix
			if prefix == "" {
				prefix = redis.DefaultPrefix
			}
			b.Locker = redis.NewLocker(store.Client(), prefix)
		}
		logger.Debug("Using redis session store", "prefix", cfg.Store.Prefix, "ttl", cfg.Store.TTL, "lock", cfg.Store.Lock)
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Store.Type)
	}

	if cfg.Encryption.Key != "" {
		encCfg, err := encryptionConfig(cfg.Encryption)
		if err != nil {
			return nil, errors.Join(err, b.Close())
		}
		b.Store = middleware.Chain(b.Store, middleware.NewEncryptionMiddleware(encCfg))
		logger.Debug("Session encryption enabled", "fallback_keys", len(encCfg.FallbackKeys))
	}
	return b, nil
}

func encryptionConfig(c config.EncryptionConfig) (middleware.EncryptionConfig, error) {
	active, err := middleware.ParseKey(c.Key)
	if err != nil {
		return middleware.EncryptionConfig{}, fmt.Errorf("encryption key: %w", err)
	}
	out := middleware.EncryptionConfig{ActiveKey: active}
	for i, k := range c.FallbackKeys {
		key, err := middleware.ParseKey(k)
		if err != nil {
			return middleware.EncryptionConfig{}, fmt.Errorf("fallback key %d: %w", i, err)
		}
		out.FallbackKeys = append(out.FallbackKeys, key)
	}
	return out, nil
}

// EngineOptions are the runtime pieces NewEngine wires around the config.
type EngineOptions struct {
	Generator ports.Generator
	Backend   *Backend
	Logger    *slog.Logger
	// Registerer, if set, receives the conversation metrics.
	Registerer prometheus.Registerer
	// LogTurns writes one info line per turn, model call and reset.
	LogTurns bool
}

// NewEngine initializes a proofreader engine with standard CLI conventions.
func NewEngine(cfg *config.Config, opts EngineOptions) (*proofreader.Engine, error) {
	var hooks []domain.LifecycleHooks
	if opts.LogTurns {
		hooks = append(hooks, observability.LogHooks(opts.Logger))
	}
	if opts.Registerer != nil {
		metrics, err := observability.NewMetrics(opts.Registerer)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		hooks = append(hooks, metrics.Hooks())
	}

	engineOpts := []proofreader.Option{
		proofreader.WithLogger(opts.Logger),
		proofreader.WithPrompts(cfg.Conversation.Prompts),
	}
	if len(hooks) > 0 {
		engineOpts = append(engineOpts, proofreader.WithLifecycleHooks(observability.Combine(hooks...)))
	}
	if len(cfg.Conversation.Affirmatives) > 0 {
		engineOpts = append(engineOpts, proofreader.WithAffirmatives(cfg.Conversation.Affirmatives...))
	}
	if opts.Backend != nil {
		engineOpts = append(engineOpts, proofreader.WithStore(opts.Backend.Store))
		if opts.Backend.Locker != nil {
			engineOpts = append(engineOpts, proofreader.WithLocker(opts.Backend.Locker))
		}
	}

	engine, err := proofreader.New(opts.Generator, engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return engine, nil
}
