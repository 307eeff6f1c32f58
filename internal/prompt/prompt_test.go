package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jonathanhorst/obsidian-media-summarizer/internal/transcript"
)

func TestSummaryIncludesMetadata(t *testing.T) {
	meta := &transcript.Metadata{
		Title:       "Baking Bread",
		Channel:     "Kitchen Lab",
		Description: "A look at sourdough.",
		Duration:    250 * time.Second,
	}
	p := Summary("The transcript text.", meta, 1, 1)

	assert.Contains(t, p.System, "concise, well-structured summaries")
	assert.NotContains(t, p.System, "part 1 of 1")
	assert.Contains(t, p.User, "Video title: Baking Bread\n")
	assert.Contains(t, p.User, "Channel: Kitchen Lab\n")
	assert.Contains(t, p.User, "Description: A look at sourdough.\n")
	assert.Contains(t, p.User, "Duration: 4:10\n")
	assert.True(t, strings.HasSuffix(p.User, "Transcript:\nThe transcript text."))
}

func TestSummaryWithoutMetadata(t *testing.T) {
	p := Summary("Only text.", nil, 1, 1)
	assert.Equal(t, "Transcript:\nOnly text.", p.User)
}

func TestSummaryNotesPart(t *testing.T) {
	p := Summary("chunk", nil, 2, 3)
	assert.Contains(t, p.System, "part 2 of 3")

	c := CompactSummary("chunk", nil, 1, 2)
	assert.Contains(t, c.System, "part 1 of 2")
	assert.Less(t, len(c.System), len(p.System))
}

func TestSummaryTruncatesDescription(t *testing.T) {
	meta := &transcript.Metadata{Description: strings.Repeat("é", descriptionLimit+50)}
	p := Summary("x", meta, 1, 1)
	assert.Contains(t, p.User, strings.Repeat("é", descriptionLimit)+"...")
	assert.NotContains(t, p.User, strings.Repeat("é", descriptionLimit+1))
}

func TestEnhancementKeepsRules(t *testing.T) {
	meta := &transcript.Metadata{Title: "Robotics Chat", Duration: 250 * time.Second}
	p := Enhancement("[0:00] hello", meta, 250*time.Second, 1, 1)

	for _, rule := range []string{
		"KEEP THE EXACT SPOKEN WORDS",
		"MUST NOT",
		"Summarize, shorten or condense",
		"single speaker or a conversation",
		"###",
		"Speaker 1",
		"Never invent or interpolate a timestamp",
		"Never write a timestamp larger than the video duration",
		"filler words",
		"video title and description",
	} {
		assert.Contains(t, p.System, rule)
	}
	assert.Contains(t, p.User, "Video title: Robotics Chat\n")
	assert.Contains(t, p.User, "Video duration: 4:10 (no timestamp may exceed this)")
	assert.NotContains(t, p.User, "Duration: 4:10\n")
	assert.True(t, strings.HasSuffix(p.User, "Transcript:\n[0:00] hello"))
}

func TestEnhancementPart(t *testing.T) {
	p := Enhancement("[0:00] hello", nil, 0, 2, 4)
	assert.Contains(t, p.System, "part 2 of 4")
	assert.NotContains(t, p.User, "Video duration")
}

func TestCombineParts(t *testing.T) {
	assert.Equal(t, "only", CombineParts([]string{"only"}))

	combined := CombineParts([]string{"first", "second"})
	assert.Equal(t, "## Part 1 of 2\n\nfirst"+PartSeparator+"## Part 2 of 2\n\nsecond", combined)
}

func TestJoinEnhanced(t *testing.T) {
	assert.Equal(t, "a\n\nb", JoinEnhanced([]string{" a ", "", "b\n"}))
}
