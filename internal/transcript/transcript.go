// Package transcript holds the timed caption lines handed over by the
// acquisition layer, plus the text helpers the summarization pipeline needs:
// formatting, chunking and timestamp checks.
package transcript

import (
	"fmt"
	"strings"
	"time"
)

// Line is one caption entry. Offset and Duration are milliseconds, matching
// the units caption sources report.
type Line struct {
	Text     string `json:"text" yaml:"text"`
	Offset   int64  `json:"offset" yaml:"offset"`
	Duration int64  `json:"duration" yaml:"duration"`
}

// Start returns the line offset as a time.Duration.
func (l Line) Start() time.Duration {
	return time.Duration(l.Offset) * time.Millisecond
}

// End returns offset+duration as a time.Duration.
func (l Line) End() time.Duration {
	return time.Duration(l.Offset+l.Duration) * time.Millisecond
}

// Metadata is optional video context layered into prompts.
type Metadata struct {
	Title       string
	Channel     string
	Description string
	Duration    time.Duration
}

// IsZero reports whether no metadata field is set.
func (m *Metadata) IsZero() bool {
	return m == nil || (m.Title == "" && m.Channel == "" && m.Description == "" && m.Duration == 0)
}

// GetDuration returns the video duration, or zero for nil metadata.
func (m *Metadata) GetDuration() time.Duration {
	if m == nil {
		return 0
	}
	return m.Duration
}

// TotalDuration is the end of the final line, or zero for an empty transcript.
func TotalDuration(lines []Line) time.Duration {
	if len(lines) == 0 {
		return 0
	}
	return lines[len(lines)-1].End()
}

// FormatTimestamp renders d as m:ss, or h:mm:ss once it reaches an hour.
func FormatTimestamp(d time.Duration) string {
	total := int(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// Format renders each line as "[m:ss] text", one per row. This is the text
// the enhancement prompt works from.
func Format(lines []Line) string {
	var sb strings.Builder
	for _, l := range lines {
		text := strings.TrimSpace(l.Text)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "[%s] %s", FormatTimestamp(l.Start()), text)
	}
	return sb.String()
}

// PlainText joins the spoken text of every line with single spaces.
func PlainText(lines []Line) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		if text := strings.TrimSpace(l.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// CheckOrder returns an error if offsets ever decrease.
func CheckOrder(lines []Line) error {
	for i := 1; i < len(lines); i++ {
		if lines[i].Offset < lines[i-1].Offset {
			return fmt.Errorf("line %d offset %dms is before line %d offset %dms", i, lines[i].Offset, i-1, lines[i-1].Offset)
		}
	}
	return nil
}
