package transcript

import (
	"regexp"
	"strconv"
	"time"
)

var timestampRe = regexp.MustCompile(`\[(?:(\d{1,2}):)?(\d{1,2}):(\d{2})\]`)

// Timestamp is a bracketed time marker found in model output.
type Timestamp struct {
	Token string
	At    time.Duration
}

// Violation describes a timestamp that cannot have come from the transcript.
type Violation struct {
	Timestamp
	Reason string
}

const (
	ReasonBeyondDuration = "exceeds video duration"
	ReasonNotInInput     = "not present in transcript"
)

// ExtractTimestamps returns every [m:ss] or [h:mm:ss] marker in text, in order.
func ExtractTimestamps(text string) []Timestamp {
	var out []Timestamp
	for _, m := range timestampRe.FindAllStringSubmatch(text, -1) {
		h, _ := strconv.Atoi(m[1])
		mins, _ := strconv.Atoi(m[2])
		secs, _ := strconv.Atoi(m[3])
		at := time.Duration(h)*time.Hour + time.Duration(mins)*time.Minute + time.Duration(secs)*time.Second
		out = append(out, Timestamp{Token: m[0], At: at})
	}
	return out
}

// ValidateTimestamps checks the markers in an enhanced transcript against the
// source lines. A marker is invalid when it lies past the total duration or
// does not match the start second of any input line. The output is reported,
// never rewritten.
func ValidateTimestamps(output string, lines []Line) []Violation {
	total := TotalDuration(lines)
	known := make(map[int64]struct{}, len(lines))
	for _, l := range lines {
		known[int64(l.Start()/time.Second)] = struct{}{}
	}

	var violations []Violation
	for _, ts := range ExtractTimestamps(output) {
		switch {
		case ts.At > total:
			violations = append(violations, Violation{Timestamp: ts, Reason: ReasonBeyondDuration})
		default:
			if _, ok := known[int64(ts.At/time.Second)]; !ok {
				violations = append(violations, Violation{Timestamp: ts, Reason: ReasonNotInInput})
			}
		}
	}
	return violations
}
