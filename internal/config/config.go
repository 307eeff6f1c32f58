// Package config loads settings from a YAML file and MEDIASUM_* environment
// variables, and turns them into provider configurations.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jonathanhorst/obsidian-media-summarizer/internal/provider"
	"github.com/jonathanhorst/obsidian-media-summarizer/internal/provider/ollama"
	"github.com/jonathanhorst/obsidian-media-summarizer/internal/provider/openai"
	"github.com/jonathanhorst/obsidian-media-summarizer/internal/provider/openrouter"
)

const (
	// FileName is the config file name without extension.
	FileName  = "media-summarizer"
	EnvPrefix = "MEDIASUM"

	DefaultTimeout        = 120 * time.Second
	DefaultModelsCacheTTL = 10 * time.Minute
)

// ProviderSettings are the per-backend keys.
type ProviderSettings struct {
	BaseURL           string            `mapstructure:"base_url"`
	APIKey            string            `mapstructure:"api_key"`
	Model             string            `mapstructure:"model"`
	Models            []string          `mapstructure:"models"`
	MaxTokens         int               `mapstructure:"max_tokens"`
	RequestsPerMinute int               `mapstructure:"requests_per_minute"`
	Headers           map[string]string `mapstructure:"headers"`
}

// OpenRouterSettings adds the router-only keys.
type OpenRouterSettings struct {
	ProviderSettings `mapstructure:",squash"`
	FallbackModels   []string `mapstructure:"fallback_models"`
	AutoModel        bool     `mapstructure:"auto_model"`
	SiteURL          string   `mapstructure:"site_url"`
	AppName          string   `mapstructure:"app_name"`
}

// Telemetry configures trace export.
type Telemetry struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// Settings is the whole configuration. A Settings value is treated as
// immutable; a change produces a new value.
type Settings struct {
	Provider       string             `mapstructure:"provider"`
	Timeout        time.Duration      `mapstructure:"timeout"`
	ModelsCacheTTL time.Duration      `mapstructure:"models_cache_ttl"`
	OpenAI         ProviderSettings   `mapstructure:"openai"`
	OpenRouter     OpenRouterSettings `mapstructure:"openrouter"`
	Ollama         ProviderSettings   `mapstructure:"ollama"`
	Telemetry      Telemetry          `mapstructure:"telemetry"`
}

// Default returns the settings used when nothing is configured.
func Default() Settings {
	return Settings{
		Provider:       string(provider.TypeOllama),
		Timeout:        DefaultTimeout,
		ModelsCacheTTL: DefaultModelsCacheTTL,
		OpenAI: ProviderSettings{
			BaseURL: openai.DefaultBaseURL,
			Model:   openai.DefaultModel,
		},
		OpenRouter: OpenRouterSettings{
			ProviderSettings: ProviderSettings{
				BaseURL: openrouter.DefaultBaseURL,
				Model:   openrouter.FastModel,
			},
			SiteURL: openrouter.DefaultSiteURL,
			AppName: openrouter.DefaultAppName,
		},
		Ollama: ProviderSettings{
			BaseURL: ollama.DefaultBaseURL,
			Model:   ollama.DefaultModel,
		},
	}
}

// Load reads settings. An explicit path must exist; otherwise
// media-summarizer.yaml is looked up in the working directory and
// $HOME/.config/media-summarizer, and a missing file is not an error.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", FileName))
		}
	}

	// allow environment variables like MEDIASUM_OPENAI_API_KEY
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("openai.api_key", EnvPrefix+"_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("openrouter.api_key", EnvPrefix+"_OPENROUTER_API_KEY", "OPENROUTER_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		// don't fail if config file is missing, allow env-only config
		var nf viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &nf) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("provider", d.Provider)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("models_cache_ttl", d.ModelsCacheTTL)
	v.SetDefault("telemetry.otlp_endpoint", "")

	for name, ps := range map[string]ProviderSettings{
		"openai":     d.OpenAI,
		"openrouter": d.OpenRouter.ProviderSettings,
		"ollama":     d.Ollama,
	} {
		v.SetDefault(name+".base_url", ps.BaseURL)
		v.SetDefault(name+".api_key", "")
		v.SetDefault(name+".model", ps.Model)
		v.SetDefault(name+".models", []string{})
		v.SetDefault(name+".max_tokens", 0)
		v.SetDefault(name+".requests_per_minute", 0)
		v.SetDefault(name+".headers", map[string]string{})
	}
	v.SetDefault("openrouter.fallback_models", []string{})
	v.SetDefault("openrouter.auto_model", false)
	v.SetDefault("openrouter.site_url", d.OpenRouter.SiteURL)
	v.SetDefault("openrouter.app_name", d.OpenRouter.AppName)
}

// Validate checks values the providers cannot check themselves.
func (s Settings) Validate() error {
	if _, ok := provider.ParseType(s.Provider); !ok {
		return fmt.Errorf("unknown provider %q (want one of openai, openrouter, ollama)", s.Provider)
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", s.Timeout)
	}
	if s.ModelsCacheTTL < 0 {
		return fmt.Errorf("models_cache_ttl cannot be negative, got %s", s.ModelsCacheTTL)
	}
	return nil
}

// ActiveType returns the configured active provider.
func (s Settings) ActiveType() provider.Type {
	t, _ := provider.ParseType(s.Provider)
	return t
}

// ProviderConfigs builds a fresh Config per backend from the built-in
// defaults overlaid with the settings.
func (s Settings) ProviderConfigs() map[provider.Type]provider.Config {
	return map[provider.Type]provider.Config{
		provider.TypeOpenAI:     overlay(openai.DefaultConfig(s.OpenAI.APIKey), s.OpenAI),
		provider.TypeOpenRouter: overlay(openrouter.DefaultConfig(s.OpenRouter.APIKey), s.OpenRouter.ProviderSettings),
		provider.TypeOllama:     overlay(ollama.DefaultConfig(), s.Ollama),
	}
}

// OpenRouterOptions returns the router-only settings.
func (s Settings) OpenRouterOptions() openrouter.Options {
	return openrouter.Options{
		FallbackModels: append([]string{}, s.OpenRouter.FallbackModels...),
		AutoModel:      s.OpenRouter.AutoModel,
		SiteURL:        s.OpenRouter.SiteURL,
		AppName:        s.OpenRouter.AppName,
	}
}

func overlay(cfg provider.Config, ps ProviderSettings) provider.Config {
	if ps.BaseURL != "" {
		cfg.BaseURL = ps.BaseURL
	}
	if ps.APIKey != "" {
		cfg.APIKey = ps.APIKey
	}
	if ps.Model != "" {
		cfg.DefaultModel = ps.Model
	}
	if len(ps.Models) > 0 {
		cfg.Models = append([]string{}, ps.Models...)
	}
	if ps.MaxTokens > 0 {
		cfg.MaxTokens = ps.MaxTokens
	}
	cfg.RequestsPerMinute = ps.RequestsPerMinute
	if len(ps.Headers) > 0 {
		cfg.Headers = make(map[string]string, len(ps.Headers))
		for k, v := range ps.Headers {
			cfg.Headers[k] = v
		}
	}
	return cfg
}

// starter is the YAML shape written by WriteStarter. Durations are strings
// so the file stays readable.
type starter struct {
	Provider       string            `yaml:"provider"`
	Timeout        string            `yaml:"timeout"`
	ModelsCacheTTL string            `yaml:"models_cache_ttl"`
	OpenAI         starterProvider   `yaml:"openai"`
	OpenRouter     starterOpenRouter `yaml:"openrouter"`
	Ollama         starterProvider   `yaml:"ollama"`
	Telemetry      struct {
		OTLPEndpoint string `yaml:"otlp_endpoint"`
	} `yaml:"telemetry"`
}

type starterProvider struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key,omitempty"`
	Model   string `yaml:"model"`
}

type starterOpenRouter struct {
	starterProvider `yaml:",inline"`
	FallbackModels  []string `yaml:"fallback_models"`
	AutoModel       bool     `yaml:"auto_model"`
}

// ErrConfigExists is returned by WriteStarter when path exists and force is off.
var ErrConfigExists = errors.New("config file already exists")

// WriteStarter writes a starter config holding the defaults. The file is
// created 0600 since it may later hold API keys.
func WriteStarter(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	}
	d := Default()
	doc := starter{
		Provider:       d.Provider,
		Timeout:        d.Timeout.String(),
		ModelsCacheTTL: d.ModelsCacheTTL.String(),
		OpenAI:         starterProvider{BaseURL: d.OpenAI.BaseURL, APIKey: "", Model: d.OpenAI.Model},
		OpenRouter: starterOpenRouter{
			starterProvider: starterProvider{BaseURL: d.OpenRouter.BaseURL, Model: d.OpenRouter.Model},
			FallbackModels:  []string{openrouter.BalancedModel},
		},
		Ollama: starterProvider{BaseURL: d.Ollama.BaseURL, Model: d.Ollama.Model},
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return enc.Close()
}
