package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathanhorst/obsidian-media-summarizer/internal/prompt"
	"github.com/jonathanhorst/obsidian-media-summarizer/internal/transcript"
)

// ConnectionProbePrompt is the canned request TestConnection sends.
const ConnectionProbePrompt = `Reply with the single word "OK" to confirm the connection works.`

// TestConnection sends a tiny canned request and reports whether the reply
// contains the acknowledgement. Errors and panics from c become false.
func TestConnection(ctx context.Context, c Completer, model string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	resp, err := c.ChatCompletion(ctx, &ChatRequest{
		Model:     model,
		Messages:  []Message{{Role: RoleUser, Content: ConnectionProbePrompt}},
		MaxTokens: Int(10),
	})
	if err != nil || resp == nil {
		return false
	}
	return strings.Contains(strings.ToLower(resp.Content), "ok")
}

// Summarize chunks text by tuning.ChunkSize, summarizes each chunk and
// combines the results. A single chunk comes back unwrapped.
func Summarize(ctx context.Context, c Completer, model string, tuning Tuning, text string, meta *transcript.Metadata) (string, error) {
	build := prompt.Summary
	if tuning.CompactPrompts {
		build = prompt.CompactSummary
	}

	chunks := transcript.SplitIntoChunks(text, tuning.ChunkSize)
	parts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		p := build(chunk, meta, i+1, len(chunks))
		out, err := complete(ctx, c, model, p, tuning.Temperature, tuning.SummaryMaxTokens)
		if err != nil {
			if len(chunks) > 1 {
				return "", fmt.Errorf("summarizing part %d of %d: %w", i+1, len(chunks), err)
			}
			return "", err
		}
		parts = append(parts, out)
	}
	return prompt.CombineParts(parts), nil
}

// Enhance chunks timestamped text on line boundaries and reformats each
// chunk, joining the results in order.
func Enhance(ctx context.Context, c Completer, model string, tuning Tuning, text string, meta *transcript.Metadata) (string, error) {
	duration := meta.GetDuration()

	chunks := transcript.SplitLinesIntoChunks(text, tuning.ChunkSize)
	parts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		p := prompt.Enhancement(chunk, meta, duration, i+1, len(chunks))
		out, err := complete(ctx, c, model, p, tuning.Temperature, tuning.EnhanceMaxTokens)
		if err != nil {
			if len(chunks) > 1 {
				return "", fmt.Errorf("enhancing part %d of %d: %w", i+1, len(chunks), err)
			}
			return "", err
		}
		parts = append(parts, out)
	}
	return prompt.JoinEnhanced(parts), nil
}

func complete(ctx context.Context, c Completer, model string, p prompt.Prompt, temperature float64, maxTokens int) (string, error) {
	req := &ChatRequest{
		Model: model,
		Messages: []Message{
			{Role: RoleSystem, Content: p.System},
			{Role: RoleUser, Content: p.User},
		},
		Temperature: Float64(temperature),
	}
	if maxTokens > 0 {
		req.MaxTokens = Int(maxTokens)
	}
	resp, err := c.ChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
