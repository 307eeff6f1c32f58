// Package provider defines the backend-agnostic contract for chat completion
// providers and the pieces they share: request validation, the error
// taxonomy, the HTTP transport, the OpenAI-compatible wire codec and the
// generic chunk-and-prompt transcript pipeline.
package provider

import (
	"context"
	"strings"

	"github.com/jonathanhorst/obsidian-media-summarizer/internal/transcript"
)

// Provider is implemented by every backend. Callers never need to know which
// concrete backend they hold.
type Provider interface {
	// Name returns the display label.
	Name() string
	// Type returns the backend family tag.
	Type() Type
	// Config returns the configuration the provider was built from.
	Config() Config
	// ChatCompletion sends one request and returns the trimmed completion.
	ChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	// TestConnection reports whether the backend answers a canned prompt.
	// It never returns an error.
	TestConnection(ctx context.Context) bool
	// AvailableModels lists model ids, falling back to the configured list.
	// It never returns an error.
	AvailableModels(ctx context.Context) []string
	// ValidateConfig checks the configuration without I/O.
	ValidateConfig() ValidationResult
	// ValidateRequest checks a request without I/O.
	ValidateRequest(req *ChatRequest) ValidationResult
	// SummarizeTranscript condenses transcript text.
	SummarizeTranscript(ctx context.Context, text string, meta *transcript.Metadata) (string, error)
	// EnhanceTranscript reformats timestamped transcript text, keeping the words.
	EnhanceTranscript(ctx context.Context, text string, meta *transcript.Metadata) (string, error)
}

// ModelLister is implemented by providers that can list models from the
// backend. Unlike AvailableModels it reports failures instead of falling back
// to the configured list.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// Completer is the subset of Provider the shared pipeline needs.
type Completer interface {
	ChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}

// Tuning holds per-backend knobs for the transcript pipeline.
type Tuning struct {
	// ChunkSize is the character budget per prompt.
	ChunkSize        int
	SummaryMaxTokens int
	EnhanceMaxTokens int
	Temperature      float64
	// CompactPrompts selects the shorter summarization instruction.
	CompactPrompts bool
}

// DefaultTuning suits cloud backends with large context windows.
var DefaultTuning = Tuning{
	ChunkSize:        12000,
	SummaryMaxTokens: 1500,
	EnhanceMaxTokens: 4000,
	Temperature:      0.3,
}

// Base implements everything in Provider except ChatCompletion and
// AvailableModels. Concrete providers embed it and pass themselves as the
// Completer so the shared pipeline calls back into their transport.
type Base struct {
	typ       Type
	cfg       Config
	tuning    Tuning
	completer Completer
	// selectModel picks a model for an input size; nil means the default model.
	selectModel func(inputLen int) string
}

// NewBase wires the shared behaviour to completer.
func NewBase(typ Type, cfg Config, tuning Tuning, completer Completer) Base {
	return Base{typ: typ, cfg: cfg, tuning: tuning, completer: completer}
}

// WithModelSelector makes the transcript pipeline choose models by input size.
func (b *Base) WithModelSelector(fn func(inputLen int) string) {
	b.selectModel = fn
}

// Name implements Provider.Name.
func (b *Base) Name() string {
	if b.cfg.Name != "" {
		return b.cfg.Name
	}
	return string(b.typ)
}

// Type implements Provider.Type.
func (b *Base) Type() Type { return b.typ }

// Config implements Provider.Config.
func (b *Base) Config() Config { return b.cfg }

// Tuning returns the pipeline knobs.
func (b *Base) Tuning() Tuning { return b.tuning }

// ValidateConfig implements Provider.ValidateConfig.
func (b *Base) ValidateConfig() ValidationResult { return ValidateConfig(b.cfg) }

// ValidateRequest implements Provider.ValidateRequest.
func (b *Base) ValidateRequest(req *ChatRequest) ValidationResult { return ValidateRequest(req) }

// Check runs config and request validation and returns the matching typed
// error. Concrete ChatCompletion implementations call it before any I/O.
func (b *Base) Check(req *ChatRequest) error {
	if v := b.ValidateConfig(); !v.Valid {
		return NewConfigError(b.Name(), v.Errors)
	}
	if v := b.ValidateRequest(req); !v.Valid {
		return NewValidationError(b.Name(), v.Errors)
	}
	return nil
}

// MaxTokens caps want at the configured ceiling.
func (b *Base) MaxTokens(want int) int {
	if b.cfg.MaxTokens > 0 && want > b.cfg.MaxTokens {
		return b.cfg.MaxTokens
	}
	return want
}

// ModelFor returns the model the pipeline should use for an input of n chars.
func (b *Base) ModelFor(n int) string {
	if b.selectModel != nil {
		if m := b.selectModel(n); m != "" {
			return m
		}
	}
	return b.cfg.DefaultModel
}

// StaticModels returns a copy of the configured model list.
func (b *Base) StaticModels() []string {
	return append([]string{}, b.cfg.Models...)
}

// TestConnection implements Provider.TestConnection.
func (b *Base) TestConnection(ctx context.Context) bool {
	return TestConnection(ctx, b.completer, b.ModelFor(0))
}

// SummarizeTranscript implements Provider.SummarizeTranscript with the
// generic pipeline.
func (b *Base) SummarizeTranscript(ctx context.Context, text string, meta *transcript.Metadata) (string, error) {
	if err := b.checkTranscript(text); err != nil {
		return "", err
	}
	return Summarize(ctx, b.completer, b.ModelFor(len(text)), b.MaxTokensTuning(), text, meta)
}

// EnhanceTranscript implements Provider.EnhanceTranscript with the generic
// pipeline.
func (b *Base) EnhanceTranscript(ctx context.Context, text string, meta *transcript.Metadata) (string, error) {
	if err := b.checkTranscript(text); err != nil {
		return "", err
	}
	return Enhance(ctx, b.completer, b.ModelFor(len(text)), b.MaxTokensTuning(), text, meta)
}

// checkTranscript rejects blank input before any request is sent.
func (b *Base) checkTranscript(text string) error {
	if strings.TrimSpace(text) == "" {
		return NewValidationError(b.Name(), []string{"Transcript is empty"})
	}
	return nil
}

// MaxTokensTuning returns the tuning with token limits capped by the config.
func (b *Base) MaxTokensTuning() Tuning {
	t := b.tuning
	t.SummaryMaxTokens = b.MaxTokens(t.SummaryMaxTokens)
	t.EnhanceMaxTokens = b.MaxTokens(t.EnhanceMaxTokens)
	return t
}
