package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
)

// Client is the subset of the Ollama API the provider uses.
// This allows the daemon to be mocked in tests.
type Client interface {
	Chat(ctx context.Context, req *api.ChatRequest, fn func(api.ChatResponse) error) error
	List(ctx context.Context) (*api.ListResponse, error)
	Version(ctx context.Context) (string, error)
}

// RealClient wraps the Ollama SDK client and implements Client.
type RealClient struct {
	client *api.Client
}

// NewRealClient creates a RealClient for baseURL. An empty baseURL reads
// OLLAMA_HOST from the environment.
func NewRealClient(baseURL string, httpClient *http.Client) (*RealClient, error) {
	if baseURL == "" {
		client, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, err
		}
		return &RealClient{client: client}, nil
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing ollama base url: %w", err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &RealClient{client: api.NewClient(u, httpClient)}, nil
}

// Chat implements Client.Chat
func (r *RealClient) Chat(ctx context.Context, req *api.ChatRequest, fn func(api.ChatResponse) error) error {
	return r.client.Chat(ctx, req, fn)
}

// List implements Client.List
func (r *RealClient) List(ctx context.Context) (*api.ListResponse, error) {
	return r.client.List(ctx)
}

// Version implements Client.Version
func (r *RealClient) Version(ctx context.Context) (string, error) {
	return r.client.Version(ctx)
}
