// Package prompt builds the system and user messages for transcript
// summarization and enhancement.
package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jonathanhorst/obsidian-media-summarizer/internal/transcript"
)

// Prompt is a system instruction plus the user content it applies to.
type Prompt struct {
	System string
	User   string
}

const descriptionLimit = 1000

const summarySystem = `You are an expert at creating concise, well-structured summaries of video transcripts.

Produce a summary that:
- Opens with a one or two sentence overview of what the video is about
- Lists the key points and main ideas as short bullet points
- Keeps important names, numbers and technical terms exactly as spoken
- Ends with the main takeaway or conclusion, if the speaker gives one

Write in clear markdown. Do not invent details that are not in the transcript.`

const compactSummarySystem = `Summarize this video transcript. Start with a short overview, then list the key points as bullets. Only use information from the transcript.`

// Summary builds the summarization prompt for one chunk. part and total are
// 1-based; total <= 1 means the transcript was not split.
func Summary(text string, meta *transcript.Metadata, part, total int) Prompt {
	return buildSummary(summarySystem, text, meta, part, total)
}

// CompactSummary is a shorter summarization prompt for small local models.
func CompactSummary(text string, meta *transcript.Metadata, part, total int) Prompt {
	return buildSummary(compactSummarySystem, text, meta, part, total)
}

func buildSummary(system, text string, meta *transcript.Metadata, part, total int) Prompt {
	if total > 1 {
		system += fmt.Sprintf("\n\nThis is part %d of %d of a longer transcript. Summarize only the content of this part; the parts will be combined afterwards.", part, total)
	}

	var sb strings.Builder
	writeContext(&sb, meta)
	sb.WriteString("Transcript:\n")
	sb.WriteString(text)
	return Prompt{System: system, User: sb.String()}
}

// writeContext adds labeled metadata lines, skipping empty fields.
func writeContext(sb *strings.Builder, meta *transcript.Metadata) {
	if meta.IsZero() {
		return
	}
	if meta.Title != "" {
		fmt.Fprintf(sb, "Video title: %s\n", meta.Title)
	}
	if meta.Channel != "" {
		fmt.Fprintf(sb, "Channel: %s\n", meta.Channel)
	}
	if meta.Description != "" {
		fmt.Fprintf(sb, "Description: %s\n", truncateRunes(meta.Description, descriptionLimit))
	}
	if meta.Duration > 0 {
		fmt.Fprintf(sb, "Duration: %s\n", transcript.FormatTimestamp(meta.Duration))
	}
	sb.WriteByte('\n')
}

func truncateRunes(s string, limit int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "..."
}

// PartSeparator sits between combined chunk results.
const PartSeparator = "\n\n---\n\n"

// CombineParts joins per-chunk results under numbered headers. A single
// result is returned as is.
func CombineParts(parts []string) string {
	if len(parts) == 1 {
		return parts[0]
	}
	sections := make([]string, len(parts))
	for i, p := range parts {
		sections[i] = fmt.Sprintf("## Part %d of %d\n\n%s", i+1, len(parts), p)
	}
	return strings.Join(sections, PartSeparator)
}
