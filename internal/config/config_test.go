package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathanhorst/obsidian-media-summarizer/internal/provider"
	"github.com/jonathanhorst/obsidian-media-summarizer/internal/provider/ollama"
	"github.com/jonathanhorst/obsidian-media-summarizer/internal/provider/openai"
	"github.com/jonathanhorst/obsidian-media-summarizer/internal/provider/openrouter"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "media-summarizer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")

	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "ollama", s.Provider)
	assert.Equal(t, DefaultTimeout, s.Timeout)
	assert.Equal(t, DefaultModelsCacheTTL, s.ModelsCacheTTL)
	assert.Equal(t, openai.DefaultBaseURL, s.OpenAI.BaseURL)
	assert.Equal(t, ollama.DefaultModel, s.Ollama.Model)
	assert.Equal(t, openrouter.DefaultAppName, s.OpenRouter.AppName)
	assert.Equal(t, provider.TypeOllama, s.ActiveType())
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
provider: openrouter
timeout: 45s
openai:
  api_key: sk-file
  max_tokens: 1000
openrouter:
  api_key: or-file
  model: anthropic/claude-3.5-sonnet
  fallback_models: [openai/gpt-4o-mini]
  auto_model: true
  requests_per_minute: 20
  headers:
    X-Extra: extra
ollama:
  base_url: http://gpu-box:11434
telemetry:
  otlp_endpoint: localhost:4318
`)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, provider.TypeOpenRouter, s.ActiveType())
	assert.Equal(t, 45*time.Second, s.Timeout)
	assert.Equal(t, "sk-file", s.OpenAI.APIKey)
	assert.Equal(t, "or-file", s.OpenRouter.APIKey)
	assert.Equal(t, []string{"openai/gpt-4o-mini"}, s.OpenRouter.FallbackModels)
	assert.True(t, s.OpenRouter.AutoModel)
	assert.Equal(t, "localhost:4318", s.Telemetry.OTLPEndpoint)

	cfgs := s.ProviderConfigs()
	assert.Equal(t, 1000, cfgs[provider.TypeOpenAI].MaxTokens)
	assert.Equal(t, "anthropic/claude-3.5-sonnet", cfgs[provider.TypeOpenRouter].DefaultModel)
	assert.Equal(t, 20, cfgs[provider.TypeOpenRouter].RequestsPerMinute)
	// viper lower-cases map keys; HTTP header names are case-insensitive
	assert.Equal(t, "extra", cfgs[provider.TypeOpenRouter].Headers["x-extra"])
	assert.Equal(t, "http://gpu-box:11434", cfgs[provider.TypeOllama].BaseURL)
	assert.True(t, cfgs[provider.TypeOllama].IsLocal)

	opts := s.OpenRouterOptions()
	assert.True(t, opts.AutoModel)
	assert.Equal(t, openrouter.DefaultSiteURL, opts.SiteURL)
}

func TestEnvOverrides(t *testing.T) {
	path := writeFile(t, "provider: openai\n")
	t.Setenv("MEDIASUM_PROVIDER", "ollama")
	t.Setenv("MEDIASUM_OPENAI_MODEL", "gpt-4o")
	t.Setenv("MEDIASUM_TIMEOUT", "30s")
	t.Setenv("OPENAI_API_KEY", "sk-env")

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ollama", s.Provider)
	assert.Equal(t, "gpt-4o", s.OpenAI.Model)
	assert.Equal(t, 30*time.Second, s.Timeout)
	assert.Equal(t, "sk-env", s.OpenAI.APIKey)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "provider: anthropic\n"))
	assert.ErrorContains(t, err, `unknown provider "anthropic"`)

	_, err = Load(writeFile(t, "timeout: 0s\n"))
	assert.ErrorContains(t, err, "timeout must be positive")
}

func TestProviderConfigsAreFresh(t *testing.T) {
	s := Default()
	s.OpenAI.Headers = map[string]string{"A": "1"}
	a := s.ProviderConfigs()
	a[provider.TypeOpenAI].Headers["A"] = "changed"
	assert.Equal(t, "1", s.OpenAI.Headers["A"])
	assert.Equal(t, "1", s.ProviderConfigs()[provider.TypeOpenAI].Headers["A"])
}

func TestWriteStarter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "media-summarizer.yaml")
	require.NoError(t, WriteStarter(path, false))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Provider, s.Provider)
	assert.Equal(t, DefaultTimeout, s.Timeout)
	assert.Equal(t, []string{openrouter.BalancedModel}, s.OpenRouter.FallbackModels)

	assert.ErrorIs(t, WriteStarter(path, false), ErrConfigExists)
	assert.NoError(t, WriteStarter(path, true))
}
