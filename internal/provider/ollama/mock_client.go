package ollama

import (
	"context"
	"strings"
	"sync"

	"github.com/ollama/ollama/api"
)

// MockClient is a mock implementation of Client for testing.
type MockClient struct {
	// Map of prompt snippets to mock replies
	MockResponses map[string]string
	// Default response if no match is found
	DefaultResponse string
	// Installed models to return from List()
	InstalledModels []string
	// Errors returned by the matching calls when set
	VersionErr error
	ChatErr    error
	ListErr    error

	mu       sync.Mutex
	requests []*api.ChatRequest
}

// NewMockClient creates a new MockClient with default responses.
func NewMockClient() *MockClient {
	return &MockClient{
		MockResponses:   make(map[string]string),
		DefaultResponse: "This is a mock summary for testing purposes.",
		InstalledModels: []string{DefaultModel},
	}
}

// Chat implements Client.Chat for the mock.
func (m *MockClient) Chat(ctx context.Context, req *api.ChatRequest, fn func(api.ChatResponse) error) error {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.ChatErr != nil {
		return m.ChatErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// Match against the last message, which carries the transcript
	var content string
	if len(req.Messages) > 0 {
		content = req.Messages[len(req.Messages)-1].Content
	}
	reply := m.DefaultResponse
	for key, response := range m.MockResponses {
		if strings.Contains(content, key) {
			reply = response
			break
		}
	}

	resp := api.ChatResponse{
		Model:      req.Model,
		Message:    api.Message{Role: "assistant", Content: reply},
		Done:       true,
		DoneReason: "stop",
	}
	resp.PromptEvalCount = 12
	resp.EvalCount = 8
	return fn(resp)
}

// List implements Client.List for the mock.
func (m *MockClient) List(ctx context.Context) (*api.ListResponse, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	models := make([]api.ListModelResponse, len(m.InstalledModels))
	for i, name := range m.InstalledModels {
		models[i] = api.ListModelResponse{Name: name, Model: name}
	}
	return &api.ListResponse{Models: models}, nil
}

// Version implements Client.Version for the mock.
func (m *MockClient) Version(ctx context.Context) (string, error) {
	if m.VersionErr != nil {
		return "", m.VersionErr
	}
	return "0.5.0", nil
}

// Requests returns a copy of every chat request received so far.
func (m *MockClient) Requests() []*api.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*api.ChatRequest{}, m.requests...)
}
