// Package openrouter implements the OpenRouter model marketplace backend,
// which can route one request across several upstream vendors.
package openrouter

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/jonathanhorst/obsidian-media-summarizer/internal/provider"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultAppName = "Media Summarizer"
	DefaultSiteURL = "https://github.com/jonathanhorst/obsidian-media-summarizer"
)

// Model tiers picked by SelectModel.
const (
	FastModel        = "openai/gpt-4o-mini"
	BalancedModel    = "anthropic/claude-3.5-sonnet"
	LongContextModel = "google/gemini-pro-1.5"
)

// Input size thresholds, in characters, for the tiers.
const (
	fastLimit     = 8000
	balancedLimit = 40000
)

// StaticModels is reported when the models endpoint cannot be reached.
var StaticModels = []string{
	FastModel,
	BalancedModel,
	LongContextModel,
	"google/gemini-flash-1.5",
	"meta-llama/llama-3.1-70b-instruct",
	"mistralai/mistral-large",
}

// Tuning for routed cloud models.
var Tuning = provider.Tuning{
	ChunkSize:        15000,
	SummaryMaxTokens: 2000,
	EnhanceMaxTokens: 4000,
	Temperature:      0.3,
}

// Options are the router-specific settings.
type Options struct {
	// FallbackModels are tried in order by OpenRouter if the requested model fails.
	FallbackModels []string
	// AutoModel lets the transcript pipeline pick a tier by input size.
	AutoModel bool
	SiteURL   string
	AppName   string
}

// Provider implements provider.Provider for OpenRouter.
type Provider struct {
	provider.Base
	compat *provider.Compat
	opts   Options
}

// DefaultConfig fills in the OpenRouter endpoint, model and catalog around apiKey.
func DefaultConfig(apiKey string) provider.Config {
	return provider.Config{
		Name:         "OpenRouter",
		BaseURL:      DefaultBaseURL,
		APIKey:       apiKey,
		DefaultModel: FastModel,
		Models:       append([]string{}, StaticModels...),
		RequiresAuth: true,
		MaxTokens:    8192,
	}
}

// New creates a Provider for cfg. Attribution headers are added unless cfg
// already sets them.
func New(cfg provider.Config, opts Options, doer provider.Doer, log logrus.FieldLogger) *Provider {
	cfg.RequiresAuth = true
	if opts.SiteURL == "" {
		opts.SiteURL = DefaultSiteURL
	}
	if opts.AppName == "" {
		opts.AppName = DefaultAppName
	}
	headers := map[string]string{
		"HTTP-Referer": opts.SiteURL,
		"X-Title":      opts.AppName,
	}
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	cfg.Headers = headers

	if doer == nil {
		doer = provider.NewHTTPTransport(&http.Client{}, cfg.RequestsPerMinute)
	}
	p := &Provider{opts: opts}
	p.Base = provider.NewBase(provider.TypeOpenRouter, cfg, Tuning, p)
	if opts.AutoModel {
		p.WithModelSelector(SelectModel)
	}
	p.compat = provider.NewCompat(p.Name(), cfg, doer, log)
	return p
}

// SelectModel picks a model tier for an input of n characters: short inputs
// go to a fast model, medium to a balanced one, long to the largest context.
func SelectModel(n int) string {
	switch {
	case n <= fastLimit:
		return FastModel
	case n <= balancedLimit:
		return BalancedModel
	default:
		return LongContextModel
	}
}

// ChatCompletion implements provider.Provider. With fallback models
// configured the request asks OpenRouter to route across them; the response
// reports whichever model actually answered.
func (p *Provider) ChatCompletion(ctx context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	if err := p.Check(req); err != nil {
		return nil, err
	}
	body := provider.NewCompatRequest(req)
	if body.MaxTokens != nil {
		body.MaxTokens = provider.Int(p.MaxTokens(*body.MaxTokens))
	}
	if route := FallbackChain(req.Model, p.opts.FallbackModels); len(route) > 1 {
		body.Models = route
		body.Route = "fallback"
	}
	return p.compat.Complete(ctx, body)
}

// FallbackChain returns primary followed by the fallbacks, without duplicates.
func FallbackChain(primary string, fallbacks []string) []string {
	seen := map[string]bool{primary: true}
	chain := []string{primary}
	for _, m := range fallbacks {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		chain = append(chain, m)
	}
	return chain
}

// ListModels implements provider.ModelLister.
func (p *Provider) ListModels(ctx context.Context) ([]string, error) {
	ids, err := p.compat.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, provider.NewProtocolError(p.Name(), "model listing is empty")
	}
	return ids, nil
}

// AvailableModels implements provider.Provider.
func (p *Provider) AvailableModels(ctx context.Context) []string {
	ids, err := p.ListModels(ctx)
	if err != nil {
		return p.StaticModels()
	}
	return ids
}
