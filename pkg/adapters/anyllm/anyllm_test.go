package anyllm

import (
	"testing"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_Defaults(t *testing.T) {
	cfg, err := normalize(Config{})
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.Provider)
	assert.Equal(t, "gemini-2.5-flash-lite", cfg.Model)
}

func TestNormalize_ProviderCaseAndModel(t *testing.T) {
	cfg, err := normalize(Config{Provider: " OpenAI "})
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, DefaultModels["openai"], cfg.Model)

	cfg, err = normalize(Config{Provider: "anthropic", Model: "claude-sonnet-4"})
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4", cfg.Model)
}

func TestNormalize_Errors(t *testing.T) {
	_, err := normalize(Config{Provider: "llamacpp"})
	assert.Error(t, err, "local servers have no default model")

	_, err = normalize(Config{Temperature: -1})
	assert.Error(t, err)
}

func TestNew_UnsupportedProvider(t *testing.T) {
	_, err := New(Config{Provider: "nope", Model: "m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported provider")
}

func TestNew_Ollama(t *testing.T) {
	g, err := New(Config{Provider: "ollama", BaseURL: "http://localhost:11434", Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "ollama", g.Provider())
	assert.Equal(t, "llama3.2", g.Model())
}

func TestBuildParams(t *testing.T) {
	g := &Generator{cfg: Config{Model: "m", Temperature: 0.2, MaxTokens: 512}}
	params := g.buildParams("Text: teh")

	assert.Equal(t, "m", params.Model)
	require.Len(t, params.Messages, 1)
	assert.Equal(t, anyllmlib.RoleUser, params.Messages[0].Role)
	assert.Equal(t, "Text: teh", params.Messages[0].ContentString())
	require.NotNil(t, params.Temperature)
	assert.Equal(t, 0.2, *params.Temperature)
	require.NotNil(t, params.MaxTokens)
	assert.Equal(t, 512, *params.MaxTokens)
}

func TestBuildParams_ZeroTuningLeftUnset(t *testing.T) {
	g := &Generator{cfg: Config{Model: "m"}}
	params := g.buildParams("x")
	assert.Nil(t, params.Temperature)
	assert.Nil(t, params.MaxTokens)
}
