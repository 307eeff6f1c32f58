package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathanhorst/obsidian-media-summarizer/internal/prompt"
	"github.com/jonathanhorst/obsidian-media-summarizer/internal/transcript"
)

type panicCompleter struct{}

func (panicCompleter) ChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	panic("boom")
}

func sampleText() string {
	sentences := make([]string, 28)
	for i := range sentences {
		sentences[i] = fmt.Sprintf("Segment %02d covers one idea from the talk in plain words here.", i)
	}
	return strings.Join(sentences, " ")
}

func TestTestConnection(t *testing.T) {
	m := NewMockProvider(TypeOpenAI, keyedConfig())
	m.DefaultResponse = "Ok."
	assert.True(t, m.TestConnection(context.Background()))

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, 10, *reqs[0].MaxTokens)
	assert.Equal(t, ConnectionProbePrompt, reqs[0].Messages[0].Content)

	m.DefaultResponse = "Hello!"
	assert.False(t, m.TestConnection(context.Background()))

	m.Err = errors.New("network down")
	assert.False(t, m.TestConnection(context.Background()))

	assert.False(t, TestConnection(context.Background(), panicCompleter{}, "m"))
}

func TestSummarizeSingleChunk(t *testing.T) {
	m := NewMockProvider(TypeOpenAI, keyedConfig())
	m.DefaultResponse = "A short summary."
	m.SetTuning(Tuning{ChunkSize: 8000, SummaryMaxTokens: 500, Temperature: 0.3})

	out, err := m.SummarizeTranscript(context.Background(), sampleText(), &transcript.Metadata{Title: "Talk"})
	require.NoError(t, err)
	assert.Equal(t, "A short summary.", out)
	assert.NotContains(t, out, "Part 1 of 1")

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, RoleSystem, reqs[0].Messages[0].Role)
	assert.Contains(t, reqs[0].Messages[1].Content, "Video title: Talk")
	assert.Equal(t, 500, *reqs[0].MaxTokens)
	assert.Equal(t, "gpt-4o-mini", reqs[0].Model)
}

func TestSummarizeMultipleChunks(t *testing.T) {
	m := NewMockProvider(TypeOpenAI, keyedConfig())
	m.SetTuning(Tuning{ChunkSize: 400, SummaryMaxTokens: 500})

	out, err := m.SummarizeTranscript(context.Background(), sampleText(), nil)
	require.NoError(t, err)

	reqs := m.Requests()
	assert.GreaterOrEqual(t, len(reqs), 4)
	assert.Contains(t, out, fmt.Sprintf("## Part 1 of %d", len(reqs)))
	assert.Contains(t, out, fmt.Sprintf("## Part %d of %d", len(reqs), len(reqs)))
	assert.Equal(t, len(reqs)-1, strings.Count(out, prompt.PartSeparator))
	assert.Contains(t, reqs[1].Messages[0].Content, fmt.Sprintf("part 2 of %d", len(reqs)))
}

func TestSummarizeConfigCapsMaxTokens(t *testing.T) {
	cfg := keyedConfig()
	cfg.MaxTokens = 200
	m := NewMockProvider(TypeOpenAI, cfg)

	_, err := m.SummarizeTranscript(context.Background(), "Short.", nil)
	require.NoError(t, err)
	assert.Equal(t, 200, *m.Requests()[0].MaxTokens)
}

func TestSummarizeErrorNamesPart(t *testing.T) {
	m := NewMockProvider(TypeOpenAI, keyedConfig())
	m.SetTuning(Tuning{ChunkSize: 400})
	m.Err = StatusError("openai", 429, "slow down")

	_, err := m.SummarizeTranscript(context.Background(), sampleText(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "summarizing part 1 of")
	assert.True(t, errors.Is(err, KindUpstreamPolicy))

	_, err = m.SummarizeTranscript(context.Background(), "Short.", nil)
	assert.NotContains(t, err.Error(), "part")
}

func TestEnhance(t *testing.T) {
	m := NewMockProvider(TypeOpenAI, keyedConfig())
	m.DefaultResponse = "### Topic\n[0:00] Clean text."
	m.SetTuning(Tuning{ChunkSize: 300, EnhanceMaxTokens: 900})

	lines := make([]transcript.Line, 28)
	for i := range lines {
		lines[i] = transcript.Line{Text: fmt.Sprintf("line %d of the talk", i), Offset: int64(i) * 9000, Duration: 7000}
	}
	meta := &transcript.Metadata{Title: "Talk", Duration: transcript.TotalDuration(lines)}

	out, err := m.EnhanceTranscript(context.Background(), transcript.Format(lines), meta)
	require.NoError(t, err)

	reqs := m.Requests()
	require.Greater(t, len(reqs), 1)
	assert.Equal(t, len(reqs), strings.Count(out, "### Topic"))
	assert.NotContains(t, out, "## Part")
	for _, r := range reqs {
		assert.Contains(t, r.Messages[0].Content, "KEEP THE EXACT SPOKEN WORDS")
		assert.Contains(t, r.Messages[1].Content, "Video duration: 4:10")
		assert.Equal(t, 900, *r.MaxTokens)
	}
}

func TestModelSelector(t *testing.T) {
	m := NewMockProvider(TypeOpenRouter, keyedConfig())
	m.WithModelSelector(func(n int) string {
		if n > 100 {
			return "big"
		}
		return ""
	})
	assert.Equal(t, "gpt-4o-mini", m.ModelFor(10))
	assert.Equal(t, "big", m.ModelFor(1000))
}

func TestMockHonoursContext(t *testing.T) {
	m := NewMockProvider(TypeOpenAI, keyedConfig())
	m.Block = make(chan struct{})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := m.ChatCompletion(ctx, &ChatRequest{Model: "m", Messages: []Message{{Role: RoleUser, Content: "x"}}})
	assert.True(t, errors.Is(err, KindTimeout))
}

func TestChatCompletionValidation(t *testing.T) {
	m := NewMockProvider(TypeOpenAI, keyedConfig())
	_, err := m.ChatCompletion(context.Background(), &ChatRequest{Model: "m"})
	assert.True(t, errors.Is(err, KindValidation))

	cfg := keyedConfig()
	cfg.APIKey = ""
	m = NewMockProvider(TypeOpenAI, cfg)
	_, err = m.ChatCompletion(context.Background(), &ChatRequest{Model: "m", Messages: []Message{{Role: RoleUser, Content: "x"}}})
	assert.True(t, errors.Is(err, KindConfiguration))
	assert.Empty(t, m.Requests())
}

func TestBlankTranscriptNotSent(t *testing.T) {
	m := NewMockProvider(TypeOpenAI, keyedConfig())

	_, err := m.SummarizeTranscript(context.Background(), "  \n\t ", nil)
	assert.True(t, errors.Is(err, KindValidation))
	assert.Contains(t, err.Error(), "Transcript is empty")

	_, err = m.EnhanceTranscript(context.Background(), "", nil)
	assert.True(t, errors.Is(err, KindValidation))
	assert.Empty(t, m.Requests())
}

func TestMockListModels(t *testing.T) {
	cfg := keyedConfig()
	cfg.Models = []string{"static"}
	m := NewMockProvider(TypeOpenAI, cfg)
	m.Models = []string{"live"}

	models, err := m.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"live"}, models)

	m.ListErr = errors.New("listing failed")
	_, err = m.ListModels(context.Background())
	assert.Error(t, err)
	assert.Equal(t, []string{"static"}, m.AvailableModels(context.Background()))
}
