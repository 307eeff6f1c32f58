package provider

import (
	"context"
	"strings"
	"sync"
)

// MockProvider is a Provider for tests. It answers from MockResponses by
// matching snippets of the last message and records every request.
type MockProvider struct {
	Base

	// MockResponses maps content snippets to canned completions.
	MockResponses map[string]string
	// DefaultResponse is returned when no snippet matches.
	DefaultResponse string
	// Err, when set, is returned from every ChatCompletion call.
	Err error
	// Models is returned from ListModels and AvailableModels; nil falls back
	// to the config list.
	Models []string
	// ListErr, when set, is returned from ListModels.
	ListErr error
	// Block, when non-nil, is received from before answering.
	Block chan struct{}

	mu       sync.Mutex
	requests []*ChatRequest
}

// NewMockProvider creates a MockProvider for cfg with default settings.
func NewMockProvider(typ Type, cfg Config) *MockProvider {
	m := &MockProvider{
		MockResponses:   make(map[string]string),
		DefaultResponse: "This is a mock summary for testing purposes.",
	}
	m.Base = NewBase(typ, cfg, DefaultTuning, m)
	return m
}

// SetTuning replaces the pipeline knobs.
func (m *MockProvider) SetTuning(t Tuning) {
	m.Base.tuning = t
}

// ChatCompletion implements Provider.ChatCompletion for the mock.
func (m *MockProvider) ChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if err := m.Check(req); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.Block != nil {
		select {
		case <-m.Block:
		case <-ctx.Done():
			return nil, RequestError(m.Name(), ctx.Err())
		}
	}
	if m.Err != nil {
		return nil, m.Err
	}

	content := req.Messages[len(req.Messages)-1].Content
	for key, response := range m.MockResponses {
		if strings.Contains(content, key) {
			return &ChatResponse{Content: response, Model: req.Model}, nil
		}
	}
	return &ChatResponse{
		Content: m.DefaultResponse,
		Model:   req.Model,
		Usage:   &Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

// ListModels implements ModelLister for the mock.
func (m *MockProvider) ListModels(ctx context.Context) ([]string, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	if m.Models != nil {
		return m.Models, nil
	}
	return m.StaticModels(), nil
}

// AvailableModels implements Provider.AvailableModels for the mock.
func (m *MockProvider) AvailableModels(ctx context.Context) []string {
	models, err := m.ListModels(ctx)
	if err != nil {
		return m.StaticModels()
	}
	return models
}

// Requests returns a copy of every request received so far.
func (m *MockProvider) Requests() []*ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*ChatRequest{}, m.requests...)
}
