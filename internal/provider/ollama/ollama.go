// Package ollama implements the local Ollama daemon backend. It needs no
// credentials and probes the daemon before every chat so a stopped service is
// reported as such rather than as a generic network failure.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/sirupsen/logrus"

	"github.com/jonathanhorst/obsidian-media-summarizer/internal/provider"
)

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2:latest"
)

// ErrNoModelsInstalled is returned by InstalledModels when the daemon is up
// but has nothing pulled.
var ErrNoModelsInstalled = errors.New("no models installed")

// StaticModels is reported when the daemon cannot be listed.
var StaticModels = []string{
	DefaultModel,
	"llama3.1:8b",
	"mistral:latest",
	"qwen2.5:7b",
	"gemma2:9b",
}

// Tuning for small local models: short chunks, short outputs and the compact
// summary instruction.
var Tuning = provider.Tuning{
	ChunkSize:        4000,
	SummaryMaxTokens: 800,
	EnhanceMaxTokens: 2000,
	Temperature:      0.3,
	CompactPrompts:   true,
}

// Provider implements provider.Provider for a local Ollama daemon.
type Provider struct {
	provider.Base
	client Client
	log    logrus.FieldLogger
}

// DefaultConfig returns the settings for a daemon on localhost.
func DefaultConfig() provider.Config {
	return provider.Config{
		Name:         "Ollama",
		BaseURL:      DefaultBaseURL,
		DefaultModel: DefaultModel,
		Models:       append([]string{}, StaticModels...),
		IsLocal:      true,
		MaxTokens:    4096,
	}
}

// New creates a Provider for cfg. A nil client connects to cfg.BaseURL.
func New(cfg provider.Config, client Client, log logrus.FieldLogger) (*Provider, error) {
	cfg.RequiresAuth = false
	cfg.IsLocal = true
	if client == nil {
		rc, err := NewRealClient(cfg.BaseURL, nil)
		if err != nil {
			return nil, err
		}
		client = rc
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	p := &Provider{client: client, log: log}
	p.Base = provider.NewBase(provider.TypeOllama, cfg, Tuning, p)
	return p, nil
}

// NewFromClient creates a Provider with default settings around client.
// Used for testing with MockClient.
func NewFromClient(client Client) *Provider {
	p, _ := New(DefaultConfig(), client, nil)
	return p
}

// Probe checks that the daemon answers its version endpoint.
func (p *Provider) Probe(ctx context.Context) error {
	version, err := p.client.Version(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return provider.RequestError(p.Name(), ctx.Err())
		}
		return &provider.Error{
			Kind:     provider.KindTransport,
			Provider: p.Name(),
			Message:  fmt.Sprintf("Ollama service is not running at %s", p.Config().BaseURL),
			Err:      fmt.Errorf("%w: %w", provider.ErrServiceNotRunning, err),
		}
	}
	p.log.WithFields(logrus.Fields{"provider": p.Name(), "version": version}).Debug("ollama daemon reachable")
	return nil
}

// ChatCompletion implements provider.Provider.
func (p *Provider) ChatCompletion(ctx context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	if err := p.Check(req); err != nil {
		return nil, err
	}
	if err := p.Probe(ctx); err != nil {
		return nil, err
	}

	stream := false
	chatReq := &api.ChatRequest{
		Model:    req.Model,
		Messages: make([]api.Message, len(req.Messages)),
		Options:  map[string]interface{}{},
		Stream:   &stream,
	}
	for i, m := range req.Messages {
		chatReq.Messages[i] = api.Message{Role: m.Role, Content: m.Content}
	}
	if req.Temperature != nil {
		chatReq.Options["temperature"] = *req.Temperature
	}
	if req.MaxTokens != nil {
		chatReq.Options["num_predict"] = p.MaxTokens(*req.MaxTokens)
	}

	var (
		content strings.Builder
		last    api.ChatResponse
	)
	err := p.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		last = resp
		return nil
	})
	if err != nil {
		return nil, p.chatError(ctx, err)
	}

	text := strings.TrimSpace(content.String())
	if text == "" {
		return nil, provider.NewProtocolError(p.Name(), "empty response from model")
	}
	resp := &provider.ChatResponse{
		Content:      text,
		Model:        last.Model,
		FinishReason: last.DoneReason,
	}
	if resp.Model == "" {
		resp.Model = req.Model
	}
	if last.PromptEvalCount > 0 || last.EvalCount > 0 {
		resp.Usage = &provider.Usage{
			PromptTokens:     last.PromptEvalCount,
			CompletionTokens: last.EvalCount,
			TotalTokens:      last.PromptEvalCount + last.EvalCount,
		}
	}
	return resp, nil
}

func (p *Provider) chatError(ctx context.Context, err error) error {
	var se api.StatusError
	if errors.As(err, &se) {
		msg := se.ErrorMessage
		if msg == "" {
			msg = se.Status
		}
		return provider.StatusError(p.Name(), se.StatusCode, msg)
	}
	if ctx.Err() != nil {
		return provider.RequestError(p.Name(), ctx.Err())
	}
	return provider.RequestError(p.Name(), err)
}

// InstalledModels lists the models pulled into the daemon, sorted. An empty
// daemon yields ErrNoModelsInstalled.
func (p *Provider) InstalledModels(ctx context.Context) ([]string, error) {
	if err := p.Probe(ctx); err != nil {
		return nil, err
	}
	resp, err := p.client.List(ctx)
	if err != nil {
		return nil, p.chatError(ctx, err)
	}
	names := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		name := m.Name
		if name == "" {
			name = m.Model
		}
		if name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, ErrNoModelsInstalled
	}
	sort.Strings(names)
	return names, nil
}

// ListModels implements provider.ModelLister.
func (p *Provider) ListModels(ctx context.Context) ([]string, error) {
	return p.InstalledModels(ctx)
}

// AvailableModels implements provider.Provider. A running daemon with nothing
// installed yields an empty list; an unreachable one yields the static list.
func (p *Provider) AvailableModels(ctx context.Context) []string {
	names, err := p.InstalledModels(ctx)
	if errors.Is(err, ErrNoModelsInstalled) {
		return []string{}
	}
	if err != nil {
		p.log.WithFields(logrus.Fields{"provider": p.Name(), "error": err}).Debug("listing installed models failed")
		return p.StaticModels()
	}
	return names
}

// HasModel reports whether model is installed.
func (p *Provider) HasModel(ctx context.Context, model string) (bool, error) {
	names, err := p.InstalledModels(ctx)
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == model {
			return true, nil
		}
	}
	return false, nil
}
