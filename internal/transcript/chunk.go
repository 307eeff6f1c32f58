package transcript

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// sentenceRe matches a run of text up to and including its terminal
// punctuation, or a trailing run with no terminator. Together the matches
// cover the whole input.
var sentenceRe = regexp.MustCompile(`[^.!?]*[.!?]+|[^.!?]+$`)

// SplitSentences breaks text on ., ! and ? boundaries, keeping the
// punctuation and dropping whitespace-only pieces.
func SplitSentences(text string) []string {
	var sentences []string
	pending := ""
	for _, s := range sentenceRe.FindAllString(text, -1) {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if strings.Trim(s, ".!?") == "" {
			// Bare punctuation sticks to the neighbouring sentence.
			if len(sentences) > 0 {
				sentences[len(sentences)-1] += s
			} else {
				pending += s
			}
			continue
		}
		sentences = append(sentences, pending+s)
		pending = ""
	}
	if pending != "" {
		sentences = append(sentences, pending)
	}
	return sentences
}

// SplitIntoChunks splits text into pieces of at most maxChars characters
// without breaking sentences. Text that already fits is returned as a single
// chunk. A sentence longer than maxChars becomes its own oversized chunk.
// Non-empty input never yields zero chunks.
func SplitIntoChunks(text string, maxChars int) []string {
	text = strings.TrimSpace(text)
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0
	for _, sentence := range SplitSentences(text) {
		n := utf8.RuneCountInString(sentence)
		if currentLen > 0 && currentLen+1+n > maxChars {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
		if currentLen > 0 {
			current.WriteByte(' ')
			currentLen++
		}
		current.WriteString(sentence)
		currentLen += n
	}
	if currentLen > 0 {
		chunks = append(chunks, current.String())
	}

	if len(chunks) == 0 {
		return []string{text}
	}
	return chunks
}

// SplitLinesIntoChunks packs whole lines into chunks of at most maxChars
// characters. It is used for timestamped text, where each line must keep its
// marker. An overlong line becomes its own chunk.
func SplitLinesIntoChunks(text string, maxChars int) []string {
	text = strings.TrimSpace(text)
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return []string{text}
	}

	var chunks []string
	var current []string
	currentLen := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		n := utf8.RuneCountInString(line)
		if currentLen > 0 && currentLen+1+n > maxChars {
			chunks = append(chunks, strings.Join(current, "\n"))
			current = current[:0]
			currentLen = 0
		}
		if currentLen > 0 {
			currentLen++
		}
		current = append(current, line)
		currentLen += n
	}
	if currentLen > 0 {
		chunks = append(chunks, strings.Join(current, "\n"))
	}

	if len(chunks) == 0 {
		return []string{text}
	}
	return chunks
}
