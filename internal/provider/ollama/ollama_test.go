package ollama

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathanhorst/obsidian-media-summarizer/internal/provider"
	"github.com/jonathanhorst/obsidian-media-summarizer/internal/transcript"
)

func userRequest() *provider.ChatRequest {
	return &provider.ChatRequest{
		Model:       DefaultModel,
		Messages:    []provider.Message{{Role: provider.RoleUser, Content: "hello"}},
		Temperature: provider.Float64(0.2),
		MaxTokens:   provider.Int(100000),
	}
}

func TestChatCompletion(t *testing.T) {
	mock := NewMockClient()
	mock.DefaultResponse = "\n  local answer  \n"
	p := NewFromClient(mock)

	resp, err := p.ChatCompletion(context.Background(), userRequest())
	require.NoError(t, err)
	assert.Equal(t, "local answer", resp.Content)
	assert.Equal(t, DefaultModel, resp.Model)
	assert.Equal(t, "stop", resp.FinishReason)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 20, resp.Usage.TotalTokens)

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	require.NotNil(t, reqs[0].Stream)
	assert.False(t, *reqs[0].Stream)
	assert.Equal(t, 0.2, reqs[0].Options["temperature"])
	assert.Equal(t, 4096, reqs[0].Options["num_predict"])
}

func TestNoAuthRequired(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RequiresAuth = true
	p, err := New(cfg, NewMockClient(), nil)
	require.NoError(t, err)
	assert.True(t, p.ValidateConfig().Valid)
	assert.True(t, p.Config().IsLocal)
}

func TestServiceNotRunning(t *testing.T) {
	mock := NewMockClient()
	mock.VersionErr = errors.New("dial tcp 127.0.0.1:11434: connect: connection refused")
	p := NewFromClient(mock)

	_, err := p.ChatCompletion(context.Background(), userRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, provider.ErrServiceNotRunning))
	assert.True(t, errors.Is(err, provider.KindTransport))
	assert.Contains(t, err.Error(), "not running")
	assert.Empty(t, mock.Requests())

	assert.False(t, p.TestConnection(context.Background()))
	assert.Equal(t, StaticModels, p.AvailableModels(context.Background()))
}

func TestDaemonUnreachableOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = url
	p, err := New(cfg, nil, nil)
	require.NoError(t, err)

	_, err = p.ChatCompletion(context.Background(), userRequest())
	assert.True(t, errors.Is(err, provider.ErrServiceNotRunning))
	assert.Contains(t, err.Error(), url)
}

func TestRealClientAgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/version":
			_, _ = w.Write([]byte(`{"version":"0.5.0"}`))
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models":[{"name":"mistral:latest","model":"mistral:latest"},{"name":"llama3.2:latest","model":"llama3.2:latest"}]}`))
		case "/api/chat":
			_, _ = w.Write([]byte(`{"model":"llama3.2:latest","message":{"role":"assistant","content":" hi "},"done":true,"done_reason":"stop","prompt_eval_count":3,"eval_count":2}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	p, err := New(cfg, nil, nil)
	require.NoError(t, err)

	resp, err := p.ChatCompletion(context.Background(), userRequest())
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Content)
	assert.Equal(t, 5, resp.Usage.TotalTokens)

	models, err := p.InstalledModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"llama3.2:latest", "mistral:latest"}, models)
}

func TestStatusErrorMapping(t *testing.T) {
	mock := NewMockClient()
	mock.ChatErr = api.StatusError{StatusCode: http.StatusNotFound, ErrorMessage: `model "nope" not found, try pulling it first`}
	p := NewFromClient(mock)

	_, err := p.ChatCompletion(context.Background(), userRequest())
	var pe *provider.Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, provider.KindTransport, pe.Kind)
	assert.Equal(t, http.StatusNotFound, pe.StatusCode)
	assert.Contains(t, err.Error(), "try pulling it first")
}

func TestTimeout(t *testing.T) {
	mock := NewMockClient()
	p := NewFromClient(mock)
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	mock.ChatErr = ctx.Err()
	_, err := p.ChatCompletion(ctx, userRequest())
	assert.True(t, errors.Is(err, provider.KindTimeout))
}

func TestEmptyReply(t *testing.T) {
	mock := NewMockClient()
	mock.DefaultResponse = "   "
	_, err := NewFromClient(mock).ChatCompletion(context.Background(), userRequest())
	assert.True(t, errors.Is(err, provider.KindProtocol))
}

func TestInstalledModels(t *testing.T) {
	mock := NewMockClient()
	mock.InstalledModels = []string{"qwen2.5:7b", "gemma2:9b"}
	p := NewFromClient(mock)

	models, err := p.InstalledModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"gemma2:9b", "qwen2.5:7b"}, models)

	ok, err := p.HasModel(context.Background(), "gemma2:9b")
	require.NoError(t, err)
	assert.True(t, ok)

	mock.InstalledModels = nil
	_, err = p.InstalledModels(context.Background())
	assert.ErrorIs(t, err, ErrNoModelsInstalled)
	_, err = p.ListModels(context.Background())
	assert.ErrorIs(t, err, ErrNoModelsInstalled)
	// a running daemon with nothing pulled does not advertise the static list
	assert.Empty(t, p.AvailableModels(context.Background()))
}

func TestTunedSummarize(t *testing.T) {
	mock := NewMockClient()
	mock.DefaultResponse = "- point"
	p := NewFromClient(mock)

	text := strings.Repeat("Local models get shorter chunks of the talk. ", 200)
	out, err := p.SummarizeTranscript(context.Background(), text, &transcript.Metadata{Title: "Talk"})
	require.NoError(t, err)

	reqs := mock.Requests()
	require.Greater(t, len(reqs), 1)
	assert.Contains(t, out, "## Part 1 of")
	for _, r := range reqs {
		assert.LessOrEqual(t, len([]rune(r.Messages[1].Content)), Tuning.ChunkSize+500)
		assert.Equal(t, Tuning.SummaryMaxTokens, r.Options["num_predict"])
	}
}

func TestTunedEnhance(t *testing.T) {
	mock := NewMockClient()
	mock.DefaultResponse = "[0:00] cleaned"
	p := NewFromClient(mock)

	lines := []transcript.Line{{Text: "um so hello", Offset: 0, Duration: 2000}}
	meta := &transcript.Metadata{Duration: transcript.TotalDuration(lines)}
	out, err := p.EnhanceTranscript(context.Background(), transcript.Format(lines), meta)
	require.NoError(t, err)
	assert.Equal(t, "[0:00] cleaned", out)
	assert.Equal(t, Tuning.EnhanceMaxTokens, mock.Requests()[0].Options["num_predict"])
}
