// Package manager is the single entry point the CLI calls. It owns the table
// of constructed providers, dispatches to the active one and turns failures
// into user-facing "Error: ..." strings for the transcript operations.
package manager

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/jonathanhorst/obsidian-media-summarizer/internal/config"
	"github.com/jonathanhorst/obsidian-media-summarizer/internal/metrics"
	"github.com/jonathanhorst/obsidian-media-summarizer/internal/observability"
	"github.com/jonathanhorst/obsidian-media-summarizer/internal/provider"
	"github.com/jonathanhorst/obsidian-media-summarizer/internal/provider/ollama"
	"github.com/jonathanhorst/obsidian-media-summarizer/internal/provider/openai"
	"github.com/jonathanhorst/obsidian-media-summarizer/internal/provider/openrouter"
	"github.com/jonathanhorst/obsidian-media-summarizer/internal/transcript"
)

// Factory builds the provider of type typ from cfg.
type Factory func(typ provider.Type, cfg provider.Config, s config.Settings, log logrus.FieldLogger) (provider.Provider, error)

// DefaultFactory builds the real HTTP and daemon backed providers.
func DefaultFactory(typ provider.Type, cfg provider.Config, s config.Settings, log logrus.FieldLogger) (provider.Provider, error) {
	switch typ {
	case provider.TypeOpenAI:
		return openai.New(cfg, nil, log), nil
	case provider.TypeOpenRouter:
		return openrouter.New(cfg, s.OpenRouterOptions(), nil, log), nil
	case provider.TypeOllama:
		return ollama.New(cfg, nil, log)
	default:
		return nil, fmt.Errorf("unknown provider type %q", typ)
	}
}

// Option configures a Manager.
type Option func(*Manager)

// WithFactory replaces the provider constructor, mostly for tests.
func WithFactory(f Factory) Option {
	return func(m *Manager) { m.factory = f }
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(m *Manager) { m.log = log }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r metrics.Recorder) Option {
	return func(m *Manager) { m.metrics = r }
}

// WithTracer sets the tracer used for request spans.
func WithTracer(t trace.Tracer) Option {
	return func(m *Manager) { m.tracer = t }
}

// Manager dispatches requests to the active provider.
type Manager struct {
	mu        sync.RWMutex
	settings  config.Settings
	providers map[provider.Type]provider.Provider
	active    provider.Type

	factory Factory
	log     logrus.FieldLogger
	metrics metrics.Recorder
	tracer  trace.Tracer

	flights singleflight.Group
	models  *cache.Cache
}

// New creates a Manager and builds its providers from settings.
func New(settings config.Settings, opts ...Option) (*Manager, error) {
	m := &Manager{
		providers: map[provider.Type]provider.Provider{},
		factory:   DefaultFactory,
		log:       logrus.StandardLogger(),
		metrics:   metrics.Nop{},
		tracer:    observability.Tracer(),
		models:    cache.New(config.DefaultModelsCacheTTL, 2*config.DefaultModelsCacheTTL),
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.UpdateSettings(settings); err != nil {
		return nil, err
	}
	return m, nil
}

// UpdateSettings discards every provider and rebuilds the table from
// settings. Providers that need a credential are only built when one is
// present; the local daemon provider is always built. The new table replaces
// the old one in a single step.
func (m *Manager) UpdateSettings(settings config.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	table := make(map[provider.Type]provider.Provider, len(provider.KnownTypes()))
	for typ, cfg := range settings.ProviderConfigs() {
		log := m.log.WithField("provider", string(typ))
		if cfg.RequiresAuth && cfg.APIKey == "" {
			log.Debug("skipping provider without credentials")
			continue
		}
		p, err := m.factory(typ, cfg, settings, m.log)
		if err != nil {
			log.WithError(err).Warn("building provider failed")
			continue
		}
		table[typ] = p
	}

	m.mu.Lock()
	m.settings = settings
	m.providers = table
	m.active = settings.ActiveType()
	m.mu.Unlock()

	m.models.Flush()
	m.log.WithFields(logrus.Fields{"active": settings.Provider, "providers": len(table)}).Debug("provider table rebuilt")
	return nil
}

// SetActive selects the provider used by subsequent requests.
func (m *Manager) SetActive(typ provider.Type) error {
	if _, ok := provider.ParseType(string(typ)); !ok {
		return fmt.Errorf("unknown provider type %q", typ)
	}
	m.mu.Lock()
	m.active = typ
	m.mu.Unlock()
	return nil
}

// Active returns the selected provider type.
func (m *Manager) Active() provider.Type {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// Settings returns the settings the table was built from.
func (m *Manager) Settings() config.Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// Provider returns the constructed provider of type typ.
func (m *Manager) Provider(typ provider.Type) (provider.Provider, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.providers[typ]
	return p, ok
}

// ActiveProvider returns the selected provider, or a configuration error
// when it was not built.
func (m *Manager) ActiveProvider() (provider.Provider, error) {
	m.mu.RLock()
	typ := m.active
	p, ok := m.providers[typ]
	m.mu.RUnlock()
	if !ok {
		return nil, &provider.Error{
			Kind:     provider.KindConfiguration,
			Provider: string(typ),
			Message:  "provider is not configured",
			Err:      ErrNotConfigured,
		}
	}
	return p, nil
}

func (m *Manager) timeout() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.settings.Timeout > 0 {
		return m.settings.Timeout
	}
	return config.DefaultTimeout
}

// ChatCompletion sends req to the active provider. An empty model is replaced
// by the provider's default. Failures are returned, never retried.
func (m *Manager) ChatCompletion(ctx context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	p, err := m.ActiveProvider()
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, provider.NewValidationError(p.Name(), []string{"Request is required"})
	}
	r := *req
	if r.Model == "" {
		r.Model = p.Config().DefaultModel
	}

	var resp *provider.ChatResponse
	err = m.instrument(ctx, "chat_completion", p, r.Model, func(ctx context.Context) error {
		var err error
		resp, err = p.ChatCompletion(ctx, &r)
		if err == nil && resp.Usage != nil {
			m.metrics.AddTokens(string(p.Type()), resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// SummarizeTranscript summarizes text with the active provider. It never
// returns an error: failures come back as an "Error: ..." string.
func (m *Manager) SummarizeTranscript(ctx context.Context, text string, meta *transcript.Metadata) string {
	return m.transcriptOp(ctx, "summarize", text, meta, provider.Provider.SummarizeTranscript)
}

// EnhanceTranscript reformats timestamped text with the active provider. It
// never returns an error: failures come back as an "Error: ..." string.
func (m *Manager) EnhanceTranscript(ctx context.Context, text string, meta *transcript.Metadata) string {
	return m.transcriptOp(ctx, "enhance", text, meta, provider.Provider.EnhanceTranscript)
}

type transcriptFunc func(p provider.Provider, ctx context.Context, text string, meta *transcript.Metadata) (string, error)

// transcriptOp runs op once per distinct input: concurrent identical calls
// share the first call's result. The shared call is not tied to any single
// caller's context, so one caller giving up does not fail the others.
func (m *Manager) transcriptOp(ctx context.Context, op, text string, meta *transcript.Metadata, fn transcriptFunc) string {
	p, err := m.ActiveProvider()
	if err != nil {
		return UserMessage(err)
	}
	model := p.Config().DefaultModel
	key := fingerprint(op, p, model, text, meta)

	ch := m.flights.DoChan(key, func() (interface{}, error) {
		var out string
		err := m.instrument(context.WithoutCancel(ctx), op, p, model, func(ctx context.Context) error {
			var err error
			out, err = fn(p, ctx, text, meta)
			return err
		})
		return out, err
	})

	select {
	case res := <-ch:
		if res.Shared {
			m.log.WithFields(logrus.Fields{"provider": p.Name(), "op": op}).Debug("joined in-flight request")
		}
		if res.Err != nil {
			return UserMessage(res.Err)
		}
		return res.Val.(string)
	case <-ctx.Done():
		return UserMessage(provider.RequestError(p.Name(), ctx.Err()))
	}
}

// instrument applies the timeout budget and records logs, a span and metrics
// around fn.
func (m *Manager) instrument(ctx context.Context, op string, p provider.Provider, model string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout())
	defer cancel()

	requestID := uuid.NewString()
	ctx, span := m.tracer.Start(ctx, op, trace.WithAttributes(observability.Attributes(string(p.Type()), model, requestID)...))
	defer span.End()

	log := m.log.WithFields(logrus.Fields{
		"provider":   p.Name(),
		"model":      model,
		"op":         op,
		"request_id": requestID,
	})
	log.Debug("dispatching request")

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	label := string(p.Type())
	if err != nil {
		kind := provider.KindOf(err).String()
		m.metrics.ObserveRequest(label, metrics.OutcomeError, elapsed)
		m.metrics.CountError(label, kind)
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
		log.WithError(err).WithField("kind", kind).Warn("request failed")
		return err
	}
	m.metrics.ObserveRequest(label, metrics.OutcomeSuccess, elapsed)
	log.WithField("elapsed", elapsed).Debug("request completed")
	return nil
}

// fingerprint identifies one logical transcript operation.
func fingerprint(op string, p provider.Provider, model, text string, meta *transcript.Metadata) string {
	h := sha256.New()
	h.Write([]byte(text))
	if meta != nil {
		fmt.Fprintf(h, "\x00%s\x00%s\x00%s\x00%d", meta.Title, meta.Channel, meta.Description, meta.Duration)
	}
	return op + "|" + string(p.Type()) + "|" + model + "|" + hex.EncodeToString(h.Sum(nil))
}

// ListModels lists models for typ. Only a successful backend listing is
// cached, for models_cache_ttl; a failed one falls back to the configured
// static list. A running local daemon with nothing installed returns
// ollama.ErrNoModelsInstalled instead of the static list.
func (m *Manager) ListModels(ctx context.Context, typ provider.Type) ([]string, error) {
	key := string(typ)
	if v, ok := m.models.Get(key); ok {
		return append([]string{}, v.([]string)...), nil
	}

	settings := m.Settings()
	p, ok := m.Provider(typ)
	if !ok {
		if cfg, ok := settings.ProviderConfigs()[typ]; ok {
			return append([]string{}, cfg.Models...), nil
		}
		return nil, nil
	}
	lister, ok := p.(provider.ModelLister)
	if !ok {
		return p.AvailableModels(ctx), nil
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout())
	defer cancel()
	models, err := lister.ListModels(ctx)
	if errors.Is(err, ollama.ErrNoModelsInstalled) {
		return nil, err
	}
	if err != nil {
		m.log.WithFields(logrus.Fields{"provider": p.Name(), "error": err}).Debug("model listing failed, using static list")
		return append([]string{}, p.Config().Models...), nil
	}
	if ttl := settings.ModelsCacheTTL; ttl > 0 {
		m.models.Set(key, append([]string{}, models...), ttl)
	}
	return models, nil
}

// AvailableModels is ListModels without the error. An empty local daemon
// yields an empty list.
func (m *Manager) AvailableModels(ctx context.Context, typ provider.Type) []string {
	models, _ := m.ListModels(ctx, typ)
	return models
}
