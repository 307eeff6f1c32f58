// Package openai implements the keyed OpenAI chat completions backend.
package openai

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jonathanhorst/obsidian-media-summarizer/internal/provider"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
)

// StaticModels is reported when the models endpoint cannot be reached.
var StaticModels = []string{
	"gpt-4o",
	"gpt-4o-mini",
	"gpt-4-turbo",
	"gpt-3.5-turbo",
}

// nonChatMarkers flag model ids that cannot serve chat completions.
var nonChatMarkers = []string{
	"instruct", "edit", "search", "embedding", "whisper", "tts",
	"dall-e", "moderation", "audio", "realtime", "transcribe", "image",
}

// Tuning for large-context cloud models.
var Tuning = provider.Tuning{
	ChunkSize:        12000,
	SummaryMaxTokens: 1500,
	EnhanceMaxTokens: 4000,
	Temperature:      0.3,
}

// Provider implements provider.Provider using the OpenAI chat completions API.
// Works with OpenAI and other bearer-token endpoints that speak the same dialect.
type Provider struct {
	provider.Base
	compat *provider.Compat
}

// DefaultConfig fills in the OpenAI endpoint, model and catalog around apiKey.
func DefaultConfig(apiKey string) provider.Config {
	return provider.Config{
		Name:         "OpenAI",
		BaseURL:      DefaultBaseURL,
		APIKey:       apiKey,
		DefaultModel: DefaultModel,
		Models:       append([]string{}, StaticModels...),
		RequiresAuth: true,
		MaxTokens:    4096,
	}
}

// New creates a Provider for cfg. A nil doer uses a plain HTTP transport
// paced by cfg.RequestsPerMinute.
func New(cfg provider.Config, doer provider.Doer, log logrus.FieldLogger) *Provider {
	cfg.RequiresAuth = true
	if doer == nil {
		doer = provider.NewHTTPTransport(&http.Client{}, cfg.RequestsPerMinute)
	}
	p := &Provider{}
	p.Base = provider.NewBase(provider.TypeOpenAI, cfg, Tuning, p)
	p.compat = provider.NewCompat(p.Name(), cfg, doer, log)
	return p
}

// ChatCompletion implements provider.Provider.
func (p *Provider) ChatCompletion(ctx context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	if err := p.Check(req); err != nil {
		return nil, err
	}
	body := provider.NewCompatRequest(req)
	if body.MaxTokens != nil {
		body.MaxTokens = provider.Int(p.MaxTokens(*body.MaxTokens))
	}
	return p.compat.Complete(ctx, body)
}

// ListModels implements provider.ModelLister. Only chat-capable models are
// kept.
func (p *Provider) ListModels(ctx context.Context) ([]string, error) {
	ids, err := p.compat.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	models := FilterChatModels(ids)
	if len(models) == 0 {
		return nil, provider.NewProtocolError(p.Name(), "model listing has no chat models")
	}
	return models, nil
}

// AvailableModels implements provider.Provider. Any failure returns the
// static list.
func (p *Provider) AvailableModels(ctx context.Context) []string {
	models, err := p.ListModels(ctx)
	if err != nil {
		return p.StaticModels()
	}
	return models
}

// FilterChatModels keeps gpt-* and o-series ids that are not edit, search,
// embedding or media variants, sorted.
func FilterChatModels(ids []string) []string {
	var out []string
	for _, id := range ids {
		lower := strings.ToLower(id)
		if !isChatFamily(lower) {
			continue
		}
		skip := false
		for _, marker := range nonChatMarkers {
			if strings.Contains(lower, marker) {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func isChatFamily(id string) bool {
	if strings.HasPrefix(id, "gpt-") || strings.HasPrefix(id, "chatgpt-") {
		return true
	}
	// o1, o3, o4-mini ...
	return len(id) > 1 && id[0] == 'o' && id[1] >= '0' && id[1] <= '9'
}
